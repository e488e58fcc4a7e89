package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/quantarena/arena/internal/types"
	"github.com/quantarena/arena/pkg/errors"
)

// UpsertResult reports how many rows an UpsertBars call inserted vs updated.
type UpsertResult struct {
	Inserted int
	Updated  int
}

// UpsertBars writes bars in a single statement per row batch using
// INSERT ... ON CONFLICT (symbol, timestamp, interval) DO UPDATE, so
// concurrent writers for overlapping ranges never collide and no
// SELECT-then-INSERT race is possible.
func (s *Store) UpsertBars(ctx context.Context, bars []types.PriceBar) (UpsertResult, error) {
	if len(bars) == 0 {
		return UpsertResult{}, nil
	}

	var result UpsertResult

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, bar := range bars {
			bar.Quantize()

			if err := bar.Validate(); err != nil {
				return err
			}

			row := tx.QueryRow(ctx, `
				INSERT INTO price_bars
					(symbol, timestamp, interval, open, high, low, close, volume,
					 adjusted_close, data_source, last_fetched_at, is_validated, updated_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now(),$11,now())
				ON CONFLICT (symbol, timestamp, interval) DO UPDATE SET
					open = EXCLUDED.open,
					high = EXCLUDED.high,
					low = EXCLUDED.low,
					close = EXCLUDED.close,
					volume = EXCLUDED.volume,
					adjusted_close = EXCLUDED.adjusted_close,
					data_source = EXCLUDED.data_source,
					last_fetched_at = now(),
					is_validated = EXCLUDED.is_validated,
					updated_at = now()
				RETURNING (xmax = 0) AS inserted
			`,
				bar.Symbol, bar.Timestamp, bar.Interval, bar.Open, bar.High, bar.Low, bar.Close,
				bar.Volume, bar.AdjustedClose, bar.DataSource, bar.IsValidated,
			)

			var inserted bool
			if err := row.Scan(&inserted); err != nil {
				return errors.Wrap(errors.ErrCodeStoreUpsertFailed, "failed to upsert price bar", err)
			}

			if inserted {
				result.Inserted++
			} else {
				result.Updated++
			}
		}

		return nil
	})
	if err != nil {
		return UpsertResult{}, err
	}

	return result, nil
}

// GetBarsInRange returns bars for symbol/interval within [start, end]
// inclusive, ordered by timestamp ascending.
func (s *Store) GetBarsInRange(ctx context.Context, symbol string, start, end time.Time, interval types.Interval) ([]types.PriceBar, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT symbol, timestamp, interval, open, high, low, close, volume,
		       adjusted_close, data_source, last_fetched_at, is_validated
		FROM price_bars
		WHERE symbol = $1 AND interval = $2 AND timestamp BETWEEN $3 AND $4
		ORDER BY timestamp ASC
	`, symbol, interval, start, end)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreRangeFailed, "failed to query price bars", err)
	}
	defer rows.Close()

	var bars []types.PriceBar

	for rows.Next() {
		var bar types.PriceBar
		if err := rows.Scan(&bar.Symbol, &bar.Timestamp, &bar.Interval, &bar.Open, &bar.High,
			&bar.Low, &bar.Close, &bar.Volume, &bar.AdjustedClose, &bar.DataSource,
			&bar.LastFetchedAt, &bar.IsValidated); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStoreRangeFailed, "failed to scan price bar", err)
		}

		bars = append(bars, bar)
	}

	return bars, rows.Err()
}

// UpdateLastFetchedAt bumps freshness stamps for a range without touching
// bar values, used after a freshness check confirms the existing rows are
// current enough not to warrant a provider refetch.
func (s *Store) UpdateLastFetchedAt(ctx context.Context, symbol string, start, end time.Time, interval types.Interval) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE price_bars
		SET last_fetched_at = now()
		WHERE symbol = $1 AND interval = $2 AND timestamp BETWEEN $3 AND $4
	`, symbol, interval, start, end)

	return err
}
