package store

import (
	"context"

	"github.com/quantarena/arena/internal/types"
)

// UpsertSector writes sector metadata once on first provider call and
// updates it opportunistically thereafter.
func (s *Store) UpsertSector(ctx context.Context, sector types.StockSector) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO stock_sectors (symbol, sector, sector_etf, industry, name, exchange, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,now())
		ON CONFLICT (symbol) DO UPDATE SET
			sector = EXCLUDED.sector,
			sector_etf = EXCLUDED.sector_etf,
			industry = EXCLUDED.industry,
			name = EXCLUDED.name,
			exchange = EXCLUDED.exchange,
			updated_at = now()
	`, sector.Symbol, sector.Sector, sector.SectorETF, sector.Industry, sector.Name, sector.Exchange)

	return err
}

// GetSector looks up cached sector metadata for symbol. Returns
// (types.StockSector{}, false, nil) when absent.
func (s *Store) GetSector(ctx context.Context, symbol string) (types.StockSector, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT symbol, sector, sector_etf, industry, name, exchange, created_at, updated_at
		FROM stock_sectors WHERE symbol = $1
	`, symbol)

	var sec types.StockSector

	err := row.Scan(&sec.Symbol, &sec.Sector, &sec.SectorETF, &sec.Industry, &sec.Name,
		&sec.Exchange, &sec.CreatedAt, &sec.UpdatedAt)
	if err != nil {
		return types.StockSector{}, false, nil
	}

	return sec, true, nil
}
