package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/san-kum/odejac/internal/integrators"
	"github.com/san-kum/odejac/internal/ode"
	"github.com/san-kum/odejac/internal/tensor"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

const (
	ModeAutoDiff = "autodiff"
	ModeDense    = "dense"
	ModeNested   = "nested"
)

const (
	DefaultDt         = 0.01
	DefaultDuration   = 1.0
	DefaultTolerance  = 1e-6
	DefaultIntegrator = "backward_euler"
)

var ErrInvalidProblem = errors.New("config: invalid problem")

// Problem describes a linear test system f(t, x) = M · flatten(x) over a
// structured state, plus how its Jacobian should be obtained.
type Problem struct {
	Name       string           `yaml:"name"`
	DType      string           `yaml:"dtype"`
	Jacobian   string           `yaml:"jacobian"`
	Time       float64          `yaml:"time"`
	Single     bool             `yaml:"single"`
	State      []StateBlock     `yaml:"state"`
	Matrix     [][]float64      `yaml:"matrix"`
	Vec        []float64        `yaml:"vec"`
	FiniteDiff FiniteDiffConfig `yaml:"finite_diff"`
	Solver     SolverConfig     `yaml:"solver"`
}

// StateBlock is one component of the state. Value is a scalar or a nested
// list of numbers.
type StateBlock struct {
	Name  string `yaml:"name"`
	Value any    `yaml:"value"`
}

type FiniteDiffConfig struct {
	Formula    string  `yaml:"formula"`
	Step       float64 `yaml:"step"`
	Concurrent bool    `yaml:"concurrent"`
}

type SolverConfig struct {
	Integrator string  `yaml:"integrator"`
	Dt         float64 `yaml:"dt"`
	Duration   float64 `yaml:"duration"`
	Adaptive   bool    `yaml:"adaptive"`
	Tolerance  float64 `yaml:"tolerance"`
}

func DefaultProblem() *Problem {
	return &Problem{
		Name:     "default",
		DType:    "float64",
		Jacobian: ModeAutoDiff,
		Single:   true,
		State:    []StateBlock{{Name: "x", Value: []float64{1, 1}}},
		Matrix:   [][]float64{{0, 1}, {-1, 0}},
		FiniteDiff: FiniteDiffConfig{
			Formula: "central",
		},
		Solver: SolverConfig{
			Integrator: DefaultIntegrator,
			Dt:         DefaultDt,
			Duration:   DefaultDuration,
			Tolerance:  DefaultTolerance,
		},
	}
}

func Load(path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p := DefaultProblem()
	p.State = nil
	p.Matrix = nil
	p.Single = false
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func Save(path string, p *Problem) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks that the state, matrix and vector agree in size and that
// every option names something known.
func (p *Problem) Validate() error {
	if _, err := p.DTypeValue(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProblem, err)
	}
	switch p.Jacobian {
	case ModeAutoDiff, ModeDense, ModeNested:
	default:
		return fmt.Errorf("%w: unknown jacobian mode %q", ErrInvalidProblem, p.Jacobian)
	}
	if _, err := p.Differentiator(); err != nil {
		return err
	}

	state, err := p.StateValue()
	if err != nil {
		return err
	}
	x, _, err := ode.Flatten(state)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProblem, err)
	}
	n := len(x)
	if n == 0 {
		return fmt.Errorf("%w: empty state", ErrInvalidProblem)
	}
	if _, err := p.MatrixValue(n); err != nil {
		return err
	}
	if len(p.Vec) != 0 && len(p.Vec) != n {
		return fmt.Errorf("%w: vec has %d elements, state has %d", ErrInvalidProblem, len(p.Vec), n)
	}
	if p.Solver.Integrator != "" {
		if _, err := integrators.New(p.Solver.Integrator, nil); err != nil && !errors.Is(err, integrators.ErrNoJacobian) {
			return fmt.Errorf("%w: %v", ErrInvalidProblem, err)
		}
	}
	return nil
}

func (p *Problem) DTypeValue() (tensor.DType, error) {
	return tensor.ParseDType(p.DType)
}

// StateValue builds the structured state. A single problem must have
// exactly one block.
func (p *Problem) StateValue() (ode.State, error) {
	if len(p.State) == 0 {
		return ode.State{}, fmt.Errorf("%w: no state blocks", ErrInvalidProblem)
	}
	if p.Single && len(p.State) != 1 {
		return ode.State{}, fmt.Errorf("%w: single state with %d blocks", ErrInvalidProblem, len(p.State))
	}
	parts := make([]*tensor.Tensor, len(p.State))
	for i, b := range p.State {
		t, err := tensor.FromValues(b.Value)
		if err != nil {
			return ode.State{}, fmt.Errorf("%w: state block %d (%s): %v", ErrInvalidProblem, i, b.Name, err)
		}
		parts[i] = t
	}
	if p.Single {
		return ode.Single(parts[0]), nil
	}
	return ode.NestedState(parts...), nil
}

// MatrixValue returns the system matrix, which must be n x n.
func (p *Problem) MatrixValue(n int) (*mat.Dense, error) {
	if len(p.Matrix) != n {
		return nil, fmt.Errorf("%w: matrix has %d rows, state has %d elements", ErrInvalidProblem, len(p.Matrix), n)
	}
	m := mat.NewDense(n, n, nil)
	for i, row := range p.Matrix {
		if len(row) != n {
			return nil, fmt.Errorf("%w: matrix row %d has %d columns, want %d", ErrInvalidProblem, i, len(row), n)
		}
		m.SetRow(i, row)
	}
	return m, nil
}

// LinearFunc returns the structured right-hand side m · flatten(s).
func LinearFunc(m *mat.Dense, shape ode.StateShape) ode.Func {
	return func(_ float64, s ode.State) (ode.State, error) {
		x, err := ode.FlattenAs(s, shape)
		if err != nil {
			return ode.State{}, err
		}
		y := mat.NewVecDense(len(x), nil)
		y.MulVec(m, mat.NewVecDense(len(x), x))
		return ode.Unflatten(y.RawVector().Data, shape)
	}
}

// Source turns the jacobian mode into an ode.Source. Nested mode slices m
// into one block per pair of state components.
func (p *Problem) Source(m *mat.Dense, shape ode.StateShape) (ode.Source, error) {
	switch p.Jacobian {
	case ModeDense:
		return ode.Dense{M: m}, nil
	case ModeNested:
		return Blocks(m, shape), nil
	case ModeAutoDiff:
		d, err := p.Differentiator()
		if err != nil {
			return nil, err
		}
		return ode.AutoDiff{Differentiator: d}, nil
	}
	return nil, fmt.Errorf("%w: unknown jacobian mode %q", ErrInvalidProblem, p.Jacobian)
}

// Blocks splits m into the block grid matching shape.
func Blocks(m *mat.Dense, shape ode.StateShape) ode.Nested {
	k := shape.Len()
	blocks := make(ode.Nested, k)
	for i := 0; i < k; i++ {
		rb := shape.Block(i)
		blocks[i] = make([]*tensor.Tensor, k)
		for j := 0; j < k; j++ {
			cb := shape.Block(j)
			data := make([]float64, 0, rb.Size()*cb.Size())
			for r := 0; r < rb.Size(); r++ {
				for c := 0; c < cb.Size(); c++ {
					data = append(data, m.At(rb.Offset+r, cb.Offset+c))
				}
			}
			blocks[i][j] = tensor.MustNew(tensor.Shape{rb.Size(), cb.Size()}, data)
		}
	}
	return blocks
}

func (p *Problem) Differentiator() (ode.FiniteDiff, error) {
	d := ode.FiniteDiff{Step: p.FiniteDiff.Step, Concurrent: p.FiniteDiff.Concurrent}
	switch strings.ToLower(p.FiniteDiff.Formula) {
	case "", "central":
		d.Formula = fd.Central
	case "forward":
		d.Formula = fd.Forward
	case "backward":
		d.Formula = fd.Backward
	default:
		return d, fmt.Errorf("%w: unknown finite difference formula %q", ErrInvalidProblem, p.FiniteDiff.Formula)
	}
	if p.FiniteDiff.Step < 0 {
		return d, fmt.Errorf("%w: negative finite difference step", ErrInvalidProblem)
	}
	return d, nil
}

func (p *Problem) IntegratorConfig() integrators.Config {
	cfg := integrators.DefaultConfig()
	cfg.T0 = p.Time
	if p.Solver.Dt > 0 {
		cfg.Dt = p.Solver.Dt
	}
	if p.Solver.Duration > 0 {
		cfg.Duration = p.Solver.Duration
	}
	if p.Solver.Tolerance > 0 {
		cfg.Tolerance = p.Solver.Tolerance
	}
	cfg.Adaptive = p.Solver.Adaptive
	return cfg
}
