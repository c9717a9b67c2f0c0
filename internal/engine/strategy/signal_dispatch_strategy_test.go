package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-signal-engine/internal/engine/dto"
	"stock-signal-engine/internal/entity"
	"stock-signal-engine/pkg/logger"
)

type fakeStocksRepo struct {
	stocks []entity.Stock
	err    error
}

func (f *fakeStocksRepo) GetActive(ctx context.Context) ([]entity.Stock, error) {
	return f.stocks, f.err
}

type fakeBatchRunner struct {
	report *dto.SignalRunReport
	got    []entity.Stock
}

func (f *fakeBatchRunner) GenerateBatch(ctx context.Context, stocks []entity.Stock) *dto.SignalRunReport {
	f.got = stocks
	return f.report
}

func TestSignalDispatch_RunsUniverseAndReportsCounts(t *testing.T) {
	stocks := []entity.Stock{{Code: "BBCA"}, {Code: "TLKM"}}
	runner := &fakeBatchRunner{report: &dto.SignalRunReport{Total: 2, Written: 1, Failed: 1, FailedCode: []string{"TLKM"}}}

	s := NewSignalDispatchStrategy(logger.NewNop(), &fakeStocksRepo{stocks: stocks}, runner)
	require.Equal(t, entity.JobTypeSignalDispatch, s.GetType())

	output, err := s.Execute(context.Background(), &entity.Job{ID: 1})
	require.NoError(t, err)
	assert.Equal(t, stocks, runner.got)
	assert.JSONEq(t, `{"total":2,"written":1,"duplicates":0,"rejected":0,"deferred":0,"failed":1,"failed_codes":["TLKM"]}`, output)
}

func TestSignalDispatch_EmptyUniverseSkipsBatch(t *testing.T) {
	runner := &fakeBatchRunner{}

	s := NewSignalDispatchStrategy(logger.NewNop(), &fakeStocksRepo{}, runner)

	output, err := s.Execute(context.Background(), &entity.Job{ID: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":0}`, output)
	assert.Nil(t, runner.got)
}

func TestSignalDispatch_StockLoadFailureFailsJob(t *testing.T) {
	s := NewSignalDispatchStrategy(logger.NewNop(), &fakeStocksRepo{err: errors.New("db down")}, &fakeBatchRunner{})

	_, err := s.Execute(context.Background(), &entity.Job{ID: 1})
	require.Error(t, err)
}
