package config

import "sort"

var Presets = map[string]func() *Problem{
	// vec · J for a constant 3x3 system.
	"linear3": func() *Problem {
		return &Problem{
			Name: "linear3", DType: "float32", Jacobian: ModeDense, Single: true,
			State: []StateBlock{{Name: "x", Value: []float64{1, 1, 1}}},
			Matrix: [][]float64{
				{-1, -2, -3},
				{-4, -5, -6},
				{-7, -8, -9},
			},
			Vec:        []float64{1, 2, 3},
			FiniteDiff: FiniteDiffConfig{Formula: "central"},
			Solver:     SolverConfig{Integrator: "backward_euler", Dt: 0.01, Duration: 1},
		}
	},
	// Three components of sizes 2, 1 and 2x2.
	"structured7": func() *Problem {
		return &Problem{
			Name: "structured7", DType: "float32", Jacobian: ModeNested,
			State: []StateBlock{
				{Name: "a", Value: []float64{1, 2}},
				{Name: "b", Value: []float64{3}},
				{Name: "c", Value: [][]float64{{4, 5}, {6, 7}}},
			},
			Matrix: [][]float64{
				{-2, 1, 0, 0, 0, 0, 0},
				{1, -2, 1, 0, 0, 0, 0},
				{0, 1, -2, 1, 0, 0, 0},
				{0, 0, 1, -2, 1, 0, 0},
				{0, 0, 0, 1, -2, 1, 0},
				{0, 0, 0, 0, 1, -2, 1},
				{0, 0, 0, 0, 0, 1, -2},
			},
			Vec:        []float64{1, 0, 0, 0, 0, 0, 1},
			FiniteDiff: FiniteDiffConfig{Formula: "central"},
			Solver:     SolverConfig{Integrator: "backward_euler", Dt: 0.05, Duration: 2},
		}
	},
	// Eigenvalues -1 and -1000; explicit methods need dt < 0.002.
	"stiff2": func() *Problem {
		return &Problem{
			Name: "stiff2", DType: "float64", Jacobian: ModeAutoDiff, Single: true,
			State:      []StateBlock{{Name: "x", Value: []float64{1, 1}}},
			Matrix:     [][]float64{{-1, 0}, {0, -1000}},
			Vec:        []float64{1, 1},
			FiniteDiff: FiniteDiffConfig{Formula: "central"},
			Solver:     SolverConfig{Integrator: "backward_euler", Dt: 0.1, Duration: 5},
		}
	},
	// Undamped oscillator stored as position and velocity blocks.
	"oscillator": func() *Problem {
		return &Problem{
			Name: "oscillator", DType: "float64", Jacobian: ModeAutoDiff,
			State: []StateBlock{
				{Name: "pos", Value: 1.0},
				{Name: "vel", Value: 0.0},
			},
			Matrix:     [][]float64{{0, 1}, {-1, 0}},
			Vec:        []float64{1, 0},
			FiniteDiff: FiniteDiffConfig{Formula: "central"},
			Solver:     SolverConfig{Integrator: "rk4", Dt: 0.01, Duration: 10},
		}
	},
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Problem {
	mk, ok := Presets[name]
	if !ok {
		return nil
	}
	return mk()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
