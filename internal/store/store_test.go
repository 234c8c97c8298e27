package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/retinotopy/internal/fit"
	"github.com/banshee-data/retinotopy/internal/monitoring"
	"github.com/banshee-data/retinotopy/internal/timeutil"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "fits.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.MigrateUp())
	return s
}

func TestMigrations(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "fits.db"))
	require.NoError(t, err)
	defer s.Close()

	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)

	require.NoError(t, s.MigrateUp())
	version, _, err = s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)

	// Second run is a no-op.
	require.NoError(t, s.MigrateUp())

	require.NoError(t, s.MigrateDown())
	version, _, err = s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestRunRoundTrip(t *testing.T) {
	s := setupTestStore(t)

	run := &FitRun{
		Model:      "gaussian",
		Params:     []string{"x", "y", "sigma", "beta", "baseline"},
		Overloaded: []string{"theta", "rho", "sigma", "beta", "baseline"},
		Config:     json.RawMessage(`{"workers":2}`),
	}
	require.NoError(t, s.CreateRun(run))
	assert.NotEmpty(t, run.RunID)
	assert.NotZero(t, run.CreatedAt)

	got, err := s.GetRun(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.Model, got.Model)
	assert.Equal(t, run.Params, got.Params)
	assert.Equal(t, run.Overloaded, got.Overloaded)
	assert.JSONEq(t, `{"workers":2}`, string(got.Config))

	later := &FitRun{Model: "spatiotemporal", Params: []string{"x"}, CreatedAt: run.CreatedAt + 1}
	require.NoError(t, s.CreateRun(later))
	latest, err := s.LatestRun()
	require.NoError(t, err)
	assert.Equal(t, later.RunID, latest.RunID)
	assert.Nil(t, latest.Config)

	_, err = s.GetRun("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCreateRunUsesClock(t *testing.T) {
	at := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	s, err := Open(filepath.Join(t.TempDir(), "fits.db"), WithClock(timeutil.NewMockClock(at)))
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.MigrateUp())

	run := &FitRun{Model: "gaussian", Params: []string{"x"}}
	require.NoError(t, s.CreateRun(run))
	assert.Equal(t, at.UnixNano(), run.CreatedAt)
}

func TestLatestRunEmpty(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.LatestRun()
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestVoxelFits(t *testing.T) {
	s := setupTestStore(t)
	run := &FitRun{Model: "gaussian", Params: []string{"x", "y", "sigma", "beta", "baseline"}}
	require.NoError(t, s.CreateRun(run))

	fits := []VoxelFit{
		{
			RunID: run.RunID, Voxel: 1,
			Coarse:      []float64{1, 2, 0.5, 3, 100},
			Estimate:    []float64{1.1, 2.2, 0.6, 3.3, 101},
			Overloaded:  []float64{1.107, 2.46, 0.6, 3.3, 101},
			SSE:         4.5,
			RSquared:    0.91,
			Evaluations: 321,
			Status:      "FunctionConvergence",
		},
		{RunID: run.RunID, Voxel: 0, Status: StatusFailed, Error: "non-finite data"},
	}
	require.NoError(t, s.InsertVoxelFits(fits))

	got, err := s.ListVoxelFits(run.RunID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 0, got[0].Voxel)
	assert.Equal(t, StatusFailed, got[0].Status)
	assert.Equal(t, "non-finite data", got[0].Error)
	assert.Nil(t, got[0].Estimate)

	assert.Equal(t, fits[0], got[1])

	// Duplicate voxel violates the primary key.
	assert.Error(t, s.InsertVoxelFit(fits[0]))

	// Unknown run violates the foreign key.
	orphan := fits[0]
	orphan.RunID = "no-such-run"
	assert.Error(t, s.InsertVoxelFit(orphan))

	none, err := s.ListVoxelFits("no-such-run")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNewVoxelFit(t *testing.T) {
	failed := NewVoxelFit("r1", fit.VoxelResult{Voxel: 7, Err: fit.ErrNonFinite})
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, 7, failed.Voxel)
	assert.Contains(t, failed.Error, fit.ErrNonFinite.Error())
	assert.Nil(t, failed.Estimate)
}
