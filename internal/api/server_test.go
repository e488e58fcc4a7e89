package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quantarena/arena/internal/agent"
	"github.com/quantarena/arena/internal/types"
	"github.com/quantarena/arena/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// fakeStore is an in-memory api.Store, enough to drive every handler
// without a real Postgres instance.
type fakeStore struct {
	sims map[uuid.UUID]types.ArenaSimulation
	runs map[uuid.UUID]types.Live20Run
	recs map[uuid.UUID][]types.Recommendation
	bars []types.PriceBar

	pingErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sims: map[uuid.UUID]types.ArenaSimulation{},
		runs: map[uuid.UUID]types.Live20Run{},
		recs: map[uuid.UUID][]types.Recommendation{},
	}
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) InsertSimulation(_ context.Context, sim types.ArenaSimulation) (uuid.UUID, error) {
	sim.ID = uuid.New()
	sim.Status = types.JobStatusPending
	f.sims[sim.ID] = sim

	return sim.ID, nil
}

func (f *fakeStore) GetSimulation(_ context.Context, id uuid.UUID) (types.ArenaSimulation, error) {
	sim, ok := f.sims[id]
	if !ok {
		return types.ArenaSimulation{}, errors.Newf(errors.ErrCodeSimulationNotFound, "simulation %s not found", id)
	}

	return sim, nil
}

func (f *fakeStore) ListSimulations(context.Context) ([]types.ArenaSimulation, error) {
	out := make([]types.ArenaSimulation, 0, len(f.sims))
	for _, sim := range f.sims {
		out = append(out, sim)
	}

	return out, nil
}

func (f *fakeStore) DeleteSimulation(_ context.Context, id uuid.UUID) error {
	if _, ok := f.sims[id]; !ok {
		return errors.Newf(errors.ErrCodeSimulationNotFound, "simulation %s not found", id)
	}

	delete(f.sims, id)

	return nil
}

func (f *fakeStore) ListPositions(context.Context, uuid.UUID) ([]types.ArenaPosition, error) {
	return nil, nil
}

func (f *fakeStore) ListSnapshots(context.Context, uuid.UUID) ([]types.ArenaSnapshot, error) {
	return nil, nil
}

func (f *fakeStore) InsertLive20Run(_ context.Context, run types.Live20Run) (uuid.UUID, error) {
	run.ID = uuid.New()
	run.Status = types.JobStatusPending
	f.runs[run.ID] = run

	return run.ID, nil
}

func (f *fakeStore) GetLive20Run(_ context.Context, id uuid.UUID) (types.Live20Run, error) {
	run, ok := f.runs[id]
	if !ok {
		return types.Live20Run{}, errors.Newf(errors.ErrCodeAgentNotFound, "live20 run %s not found", id)
	}

	return run, nil
}

func (f *fakeStore) ListLive20Runs(context.Context) ([]types.Live20Run, error) {
	out := make([]types.Live20Run, 0, len(f.runs))
	for _, run := range f.runs {
		out = append(out, run)
	}

	return out, nil
}

func (f *fakeStore) DeleteLive20Run(_ context.Context, id uuid.UUID) error {
	if _, ok := f.runs[id]; !ok {
		return errors.Newf(errors.ErrCodeAgentNotFound, "live20 run %s not found", id)
	}

	delete(f.runs, id)

	return nil
}

func (f *fakeStore) ListRecommendations(_ context.Context, runID uuid.UUID) ([]types.Recommendation, error) {
	return f.recs[runID], nil
}

func (f *fakeStore) GetBarsInRange(context.Context, string, time.Time, time.Time, types.Interval) ([]types.PriceBar, error) {
	return f.bars, nil
}

// fakeQueue is a minimal SimulationQueue/RunQueue fake: tracks the last
// cancelled job ID and returns cancelErr when set.
type fakeQueue struct {
	cancelled []uuid.UUID
	cancelErr error
}

func (f *fakeQueue) Cancel(_ context.Context, jobID uuid.UUID) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}

	f.cancelled = append(f.cancelled, jobID)

	return nil
}

type ServerTestSuite struct {
	suite.Suite
	st       *fakeStore
	simQueue *fakeQueue
	runQueue *fakeQueue
	server   *Server
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (suite *ServerTestSuite) SetupTest() {
	suite.st = newFakeStore()
	suite.simQueue = &fakeQueue{}
	suite.runQueue = &fakeQueue{}

	agents := agent.NewRegistry(agent.NewLive20(types.AgentConfig{}))
	portfolios := agent.NewPortfolioRegistry()

	suite.server = NewServer(suite.st, nil, suite.simQueue, suite.runQueue, agents, portfolios, "mock", nil)
}

func (suite *ServerTestSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Buffer

	if body != nil {
		b, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewBuffer(b)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	suite.server.Handler().ServeHTTP(rec, req)

	return rec
}

func (suite *ServerTestSuite) TestCreateSimulationRejectsUnknownAgent() {
	rec := suite.do(http.MethodPost, "/arena/simulations", CreateSimulationRequest{
		Symbols:        []string{"AAPL"},
		StartDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		InitialCapital: decimal.NewFromInt(10000),
		PositionSize:   decimal.NewFromInt(1000),
		AgentType:      "not_registered",
	})

	suite.Equal(http.StatusBadRequest, rec.Code)
}

func (suite *ServerTestSuite) TestCreateSimulationRejectsMalformedBody() {
	req := httptest.NewRequest(http.MethodPost, "/arena/simulations", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	suite.server.Handler().ServeHTTP(rec, req)

	suite.Equal(http.StatusBadRequest, rec.Code)
}

func (suite *ServerTestSuite) TestCreateSimulationRejectsInvalidDateRange() {
	rec := suite.do(http.MethodPost, "/arena/simulations", CreateSimulationRequest{
		Symbols:        []string{"AAPL"},
		StartDate:      time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		InitialCapital: decimal.NewFromInt(10000),
		PositionSize:   decimal.NewFromInt(1000),
		AgentType:      "live20",
	})

	suite.Equal(http.StatusBadRequest, rec.Code)
}

func (suite *ServerTestSuite) TestCreateAndGetSimulationRoundTrips() {
	createRec := suite.do(http.MethodPost, "/arena/simulations", CreateSimulationRequest{
		Symbols:        []string{"aapl", "msft"},
		StartDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		InitialCapital: decimal.NewFromInt(10000),
		PositionSize:   decimal.NewFromInt(1000),
		AgentType:      "live20",
	})
	suite.Require().Equal(http.StatusCreated, createRec.Code)

	var created types.ArenaSimulation
	suite.Require().NoError(json.Unmarshal(createRec.Body.Bytes(), &created))
	suite.Equal([]string{"AAPL", "MSFT"}, created.Symbols)

	getRec := suite.do(http.MethodGet, "/arena/simulations/"+created.ID.String(), nil)
	suite.Equal(http.StatusOK, getRec.Code)
}

func (suite *ServerTestSuite) TestGetSimulationNotFound() {
	rec := suite.do(http.MethodGet, "/arena/simulations/"+uuid.New().String(), nil)
	suite.Equal(http.StatusNotFound, rec.Code)
}

func (suite *ServerTestSuite) TestGetSimulationInvalidID() {
	rec := suite.do(http.MethodGet, "/arena/simulations/not-a-uuid", nil)
	suite.Equal(http.StatusBadRequest, rec.Code)
}

func (suite *ServerTestSuite) TestCancelSimulationDelegatesToQueue() {
	id := uuid.New()

	rec := suite.do(http.MethodPost, "/arena/simulations/"+id.String()+"/cancel", nil)
	suite.Equal(http.StatusOK, rec.Code)
	suite.Equal([]uuid.UUID{id}, suite.simQueue.cancelled)
}

func (suite *ServerTestSuite) TestCancelSimulationPropagatesNotCancellable() {
	suite.simQueue.cancelErr = errors.New(errors.ErrCodeJobNotCancellable, "terminal")

	rec := suite.do(http.MethodPost, "/arena/simulations/"+uuid.New().String()+"/cancel", nil)
	suite.Equal(http.StatusConflict, rec.Code)
}

func (suite *ServerTestSuite) TestDeleteSimulation() {
	id, err := suite.st.InsertSimulation(context.Background(), types.ArenaSimulation{})
	suite.Require().NoError(err)

	rec := suite.do(http.MethodDelete, "/arena/simulations/"+id.String(), nil)
	suite.Equal(http.StatusNoContent, rec.Code)

	_, ok := suite.st.sims[id]
	suite.False(ok)
}

func (suite *ServerTestSuite) TestListAgentsAndPortfolioStrategies() {
	agentsRec := suite.do(http.MethodGet, "/arena/agents", nil)
	suite.Equal(http.StatusOK, agentsRec.Code)

	var agentNames []string
	suite.Require().NoError(json.Unmarshal(agentsRec.Body.Bytes(), &agentNames))
	suite.Contains(agentNames, "live20")

	strategiesRec := suite.do(http.MethodGet, "/arena/portfolio-strategies", nil)
	suite.Equal(http.StatusOK, strategiesRec.Code)

	var strategyNames []string
	suite.Require().NoError(json.Unmarshal(strategiesRec.Body.Bytes(), &strategyNames))
	suite.Contains(strategyNames, "none")
	suite.Contains(strategyNames, "score_sector_low_atr")
}

func (suite *ServerTestSuite) TestAgentConfigSchemaReturnsSchemaForKnownAgent() {
	rec := suite.do(http.MethodGet, "/arena/agents/live20/config-schema", nil)
	suite.Equal(http.StatusOK, rec.Code)

	var schema map[string]any
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &schema))
	suite.Equal("object", schema["type"])
}

func (suite *ServerTestSuite) TestAgentConfigSchemaRejectsUnknownAgent() {
	rec := suite.do(http.MethodGet, "/arena/agents/not_registered/config-schema", nil)
	suite.Equal(http.StatusNotFound, rec.Code)
}

func (suite *ServerTestSuite) TestCreateLive20RunCanonicalizesSymbols() {
	rec := suite.do(http.MethodPost, "/live-20/analyze", CreateLive20RunRequest{
		Symbols: []string{"tsla", "NVDA"},
	})
	suite.Require().Equal(http.StatusCreated, rec.Code)

	var run types.Live20Run
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &run))
	suite.Equal([]string{"TSLA", "NVDA"}, run.InputSymbols)

	getRec := suite.do(http.MethodGet, "/live-20/runs/"+run.ID.String(), nil)
	suite.Equal(http.StatusOK, getRec.Code)
}

func (suite *ServerTestSuite) TestCreateLive20RunRejectsEmptySymbols() {
	rec := suite.do(http.MethodPost, "/live-20/analyze", CreateLive20RunRequest{Symbols: nil})
	suite.Equal(http.StatusBadRequest, rec.Code)
}

func (suite *ServerTestSuite) TestCreateLive20RunRejectsMalformedBody() {
	req := httptest.NewRequest(http.MethodPost, "/live-20/analyze", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	suite.server.Handler().ServeHTTP(rec, req)

	suite.Equal(http.StatusBadRequest, rec.Code)
}

func (suite *ServerTestSuite) TestCancelLive20Run() {
	id := uuid.New()

	rec := suite.do(http.MethodPost, "/live-20/runs/"+id.String()+"/cancel", nil)
	suite.Equal(http.StatusOK, rec.Code)
	suite.Equal([]uuid.UUID{id}, suite.runQueue.cancelled)
}

func (suite *ServerTestSuite) TestDeleteLive20RunNotFound() {
	rec := suite.do(http.MethodDelete, "/live-20/runs/"+uuid.New().String(), nil)
	suite.Equal(http.StatusNotFound, rec.Code)
}

func (suite *ServerTestSuite) TestStockPricesRejectsInvalidInterval() {
	rec := suite.do(http.MethodGet, "/stocks/AAPL/prices?interval=bogus", nil)
	suite.Equal(http.StatusBadRequest, rec.Code)
}

func (suite *ServerTestSuite) TestHealthLiveAlwaysOK() {
	rec := suite.do(http.MethodGet, "/health/live", nil)
	suite.Equal(http.StatusOK, rec.Code)
}

func (suite *ServerTestSuite) TestHealthReadyReflectsStoreFailure() {
	suite.st.pingErr = errors.New(errors.ErrCodeUnknown, "db down")

	rec := suite.do(http.MethodGet, "/health/ready", nil)
	suite.Equal(http.StatusServiceUnavailable, rec.Code)
}
