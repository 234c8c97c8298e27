package fit

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/retinotopy/internal/model"
)

// VoxelResult pairs a voxel index with its fit or the error that stopped it.
type VoxelResult struct {
	Voxel int
	Fit   *Fit
	Err   error
}

// Batch fits every voxel with at most workers fits in flight. A failed voxel
// is recorded in its result and does not stop the others. The returned
// error is non-nil only when ctx ends the batch early.
func Batch(ctx context.Context, m model.Model, voxels [][]float64, grids []Grid, bounds []Bound, opts Options, workers int) ([]VoxelResult, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]VoxelResult, len(voxels))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, data := range voxels {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			f, err := New(ctx, m, data, grids, bounds, opts)
			results[i] = VoxelResult{Voxel: i, Fit: f, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for i := range results {
		results[i].Voxel = i
		if results[i].Fit == nil && results[i].Err == nil {
			results[i].Err = ctx.Err()
		}
		if results[i].Err != nil {
			failed++
		}
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	logf("batch of %d voxels finished with %d failures", len(voxels), failed)
	return results, nil
}
