package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/retinotopy/internal/fit"
)

// FitRun describes one fitting run: the model, its parameter layout and the
// configuration it ran with.
type FitRun struct {
	RunID      string          `json:"run_id"`
	Model      string          `json:"model"`
	Params     []string        `json:"params"`
	Overloaded []string        `json:"overloaded"`
	Config     json.RawMessage `json:"config,omitempty"`
	CreatedAt  int64           `json:"created_at"`
}

// VoxelFit is the stored outcome for one voxel of a run.
type VoxelFit struct {
	RunID       string    `json:"run_id"`
	Voxel       int       `json:"voxel"`
	Coarse      []float64 `json:"coarse"`
	Estimate    []float64 `json:"estimate"`
	Overloaded  []float64 `json:"overloaded"`
	SSE         float64   `json:"sse"`
	RSquared    float64   `json:"r_squared"`
	Evaluations int       `json:"evaluations"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
}

// StatusFailed marks a voxel whose fit returned an error.
const StatusFailed = "failed"

// NewVoxelFit converts a batch result into its stored form.
func NewVoxelFit(runID string, r fit.VoxelResult) VoxelFit {
	v := VoxelFit{RunID: runID, Voxel: r.Voxel}
	if r.Err != nil {
		v.Status = StatusFailed
		v.Error = r.Err.Error()
		return v
	}
	f := r.Fit
	v.Coarse = f.Coarse
	v.Estimate = f.Estimate
	v.Overloaded = f.OverloadedEstimate()
	v.SSE = f.SSE
	v.RSquared = f.RSquared
	v.Evaluations = f.Evaluations
	v.Status = f.Status
	return v
}

// CreateRun inserts run, assigning a RunID and CreatedAt when unset.
func (s *Store) CreateRun(run *FitRun) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = s.clock.Now().UnixNano()
	}
	params, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	overloaded, err := json.Marshal(run.Overloaded)
	if err != nil {
		return fmt.Errorf("marshal overloaded names: %w", err)
	}
	var config interface{}
	if len(run.Config) > 0 {
		config = string(run.Config)
	}

	return s.retry(func() error {
		_, err := s.db.Exec(`
			INSERT INTO fit_runs (run_id, model, params_json, overloaded_json, config_json, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			run.RunID, run.Model, string(params), string(overloaded), config, run.CreatedAt,
		)
		return err
	})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*FitRun, error) {
	var r FitRun
	var params string
	var overloaded, config sql.NullString
	if err := row.Scan(&r.RunID, &r.Model, &params, &overloaded, &config, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(params), &r.Params); err != nil {
		return nil, fmt.Errorf("run %s params: %w", r.RunID, err)
	}
	if overloaded.Valid && overloaded.String != "" {
		if err := json.Unmarshal([]byte(overloaded.String), &r.Overloaded); err != nil {
			return nil, fmt.Errorf("run %s overloaded names: %w", r.RunID, err)
		}
	}
	if config.Valid {
		r.Config = json.RawMessage(config.String)
	}
	return &r, nil
}

const runColumns = `run_id, model, params_json, overloaded_json, config_json, created_at`

// GetRun returns the run with the given ID.
func (s *Store) GetRun(runID string) (*FitRun, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM fit_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return r, nil
}

// LatestRun returns the most recently created run.
func (s *Store) LatestRun() (*FitRun, error) {
	row := s.db.QueryRow(`SELECT ` + runColumns + ` FROM fit_runs ORDER BY created_at DESC LIMIT 1`)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("latest run: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return r, nil
}

func marshalSlice(v []float64) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalSlice(s sql.NullString) ([]float64, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var v []float64
	if err := json.Unmarshal([]byte(s.String), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// InsertVoxelFit stores one voxel result.
func (s *Store) InsertVoxelFit(v VoxelFit) error {
	return s.InsertVoxelFits([]VoxelFit{v})
}

// InsertVoxelFits stores results in a single transaction.
func (s *Store) InsertVoxelFits(fits []VoxelFit) error {
	type encoded struct {
		coarse, estimate, overloaded interface{}
	}
	enc := make([]encoded, len(fits))
	for i, v := range fits {
		var err error
		if enc[i].coarse, err = marshalSlice(v.Coarse); err != nil {
			return fmt.Errorf("voxel %d coarse: %w", v.Voxel, err)
		}
		if enc[i].estimate, err = marshalSlice(v.Estimate); err != nil {
			return fmt.Errorf("voxel %d estimate: %w", v.Voxel, err)
		}
		if enc[i].overloaded, err = marshalSlice(v.Overloaded); err != nil {
			return fmt.Errorf("voxel %d overloaded: %w", v.Voxel, err)
		}
	}

	return s.retry(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		stmt, err := tx.Prepare(`
			INSERT INTO voxel_fits (
				run_id, voxel, coarse_json, estimate_json, overloaded_json,
				sse, r_squared, evaluations, status, error
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			tx.Rollback()
			return err
		}
		defer stmt.Close()
		for i, v := range fits {
			var errText interface{}
			if v.Error != "" {
				errText = v.Error
			}
			if _, err := stmt.Exec(v.RunID, v.Voxel, enc[i].coarse, enc[i].estimate, enc[i].overloaded,
				v.SSE, v.RSquared, v.Evaluations, v.Status, errText); err != nil {
				tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
}

// ListVoxelFits returns every voxel of a run in voxel order.
func (s *Store) ListVoxelFits(runID string) ([]VoxelFit, error) {
	rows, err := s.db.Query(`
		SELECT run_id, voxel, coarse_json, estimate_json, overloaded_json,
		       sse, r_squared, evaluations, status, error
		FROM voxel_fits
		WHERE run_id = ?
		ORDER BY voxel`, runID)
	if err != nil {
		return nil, fmt.Errorf("query voxel fits: %w", err)
	}
	defer rows.Close()

	var out []VoxelFit
	for rows.Next() {
		var v VoxelFit
		var coarse, estimate, overloaded, errText sql.NullString
		var sse, r2 sql.NullFloat64
		if err := rows.Scan(&v.RunID, &v.Voxel, &coarse, &estimate, &overloaded,
			&sse, &r2, &v.Evaluations, &v.Status, &errText); err != nil {
			return nil, fmt.Errorf("scan voxel fit: %w", err)
		}
		if v.Coarse, err = unmarshalSlice(coarse); err != nil {
			return nil, fmt.Errorf("voxel %d coarse: %w", v.Voxel, err)
		}
		if v.Estimate, err = unmarshalSlice(estimate); err != nil {
			return nil, fmt.Errorf("voxel %d estimate: %w", v.Voxel, err)
		}
		if v.Overloaded, err = unmarshalSlice(overloaded); err != nil {
			return nil, fmt.Errorf("voxel %d overloaded: %w", v.Voxel, err)
		}
		v.SSE, v.RSquared = sse.Float64, r2.Float64
		v.Error = errText.String
		out = append(out, v)
	}
	return out, rows.Err()
}
