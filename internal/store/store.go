package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/san-kum/odejac/internal/ode"
	"gonum.org/v1/gonum/mat"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Report records one Jacobian evaluation and, optionally, a trajectory.
type Report struct {
	ID        string      `json:"id"`
	Problem   string      `json:"problem"`
	Timestamp time.Time   `json:"timestamp"`
	DType     string      `json:"dtype"`
	Source    string      `json:"source"`
	Time      float64     `json:"time"`
	Shapes    [][]int     `json:"shapes"`
	State     []float64   `json:"state"`
	Jacobian  [][]float64 `json:"jacobian"`
	Vec       []float64   `json:"vec,omitempty"`
	Product   []float64   `json:"product,omitempty"`

	Trajectory *Trajectory `json:"trajectory,omitempty"`
}

type Trajectory struct {
	Integrator string      `json:"integrator"`
	Times      []float64   `json:"times"`
	States     [][]float64 `json:"states"`
}

// NewReport captures the Jacobian jac of problem at time t and flat state x.
func NewReport(problem, dtype, source string, t float64, x []float64, shape ode.StateShape, jac mat.Matrix) *Report {
	r := &Report{
		Problem:   problem,
		Timestamp: time.Now(),
		DType:     dtype,
		Source:    source,
		Time:      t,
		State:     append([]float64(nil), x...),
	}
	for _, b := range shape.Blocks() {
		r.Shapes = append(r.Shapes, []int(b.Shape))
	}
	if jac != nil {
		r.Jacobian = rows(jac)
	}
	return r
}

func rows(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = make([]float64, c)
		mat.Row(out[i], i, m)
	}
	return out
}

// Save writes the report under a new run directory and returns its id.
func (s *Store) Save(r *Report) (string, error) {
	runID := fmt.Sprintf("%s_%d", r.Problem, time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	r.ID = runID
	if err := ExportJSON(filepath.Join(runDir, "report.json"), r); err != nil {
		return "", err
	}
	if len(r.Jacobian) > 0 {
		if err := writeRows(filepath.Join(runDir, "jacobian.csv"), nil, r.Jacobian); err != nil {
			return "", err
		}
	}
	if r.Trajectory != nil {
		if err := ExportTrajectoryCSV(filepath.Join(runDir, "states.csv"), r.Trajectory); err != nil {
			return "", err
		}
	}
	return runID, nil
}

func (s *Store) List() ([]Report, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Report{}, nil
		}
		return nil, err
	}

	reports := make([]Report, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		r, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		r.Trajectory = nil
		reports = append(reports, *r)
	}
	return reports, nil
}

func (s *Store) Load(runID string) (*Report, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "report.json"))
	if err != nil {
		return nil, err
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// LoadJacobian reads the saved Jacobian back as a dense matrix.
func (s *Store) LoadJacobian(runID string) (*mat.Dense, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "jacobian.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("store: empty jacobian in run %s", runID)
	}

	n := len(records)
	m := mat.NewDense(n, len(records[0]), nil)
	for i, record := range records {
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("store: jacobian row %d: %w", i, err)
			}
			m.Set(i, j, v)
		}
	}
	return m, nil
}
