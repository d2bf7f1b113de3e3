package main

import (
	"fmt"
	"math"
	"os"
	"text/tabwriter"
	"time"

	"github.com/san-kum/odejac/internal/config"
	"github.com/san-kum/odejac/internal/integrators"
	"github.com/san-kum/odejac/internal/ode"
	"github.com/san-kum/odejac/internal/store"
	"github.com/san-kum/odejac/internal/tensor"
	"github.com/san-kum/odejac/internal/viz"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

// system is a loaded problem with its derived state, matrix and
// right-hand side.
type system struct {
	problem *config.Problem
	dtype   tensor.DType
	shape   ode.StateShape
	x0      []float64
	m       *mat.Dense
	fn      ode.VecFunc
}

func loadProblem(cmd *cobra.Command, args []string) (*config.Problem, error) {
	var p *config.Problem
	switch {
	case preset != "":
		p = config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	case len(args) == 1:
		var err error
		p, err = config.Load(args[0])
		if err != nil {
			return nil, err
		}
	default:
		p = config.DefaultProblem()
	}

	flags := cmd.Flags()
	if flags.Changed("dtype") {
		p.DType = dtype
	}
	if flags.Changed("mode") {
		p.Jacobian = mode
	}
	if flags.Changed("time") {
		p.Time = evalTime
	}
	if flags.Changed("integrator") {
		p.Solver.Integrator = integrator
	}
	if flags.Changed("dt") {
		p.Solver.Dt = dt
	}
	if flags.Changed("duration") {
		p.Solver.Duration = duration
	}
	if flags.Changed("adaptive") {
		p.Solver.Adaptive = adaptive
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func buildSystem(p *config.Problem) (*system, error) {
	typ, err := p.DTypeValue()
	if err != nil {
		return nil, err
	}
	state, err := p.StateValue()
	if err != nil {
		return nil, err
	}
	x0, shape, err := ode.Flatten(state)
	if err != nil {
		return nil, err
	}
	m, err := p.MatrixValue(len(x0))
	if err != nil {
		return nil, err
	}
	return &system{
		problem: p,
		dtype:   typ,
		shape:   shape,
		x0:      x0,
		m:       m,
		fn:      ode.Vectorize(config.LinearFunc(m, shape), shape),
	}, nil
}

func (s *system) jacobianFn(mode string) (ode.JacobianFn, error) {
	p := *s.problem
	p.Jacobian = mode
	src, err := p.Source(s.m, s.shape)
	if err != nil {
		return nil, err
	}
	return ode.NewJacobianFn(src, s.fn, s.shape, s.dtype)
}

func (s *system) splits() []int {
	out := make([]int, 0, s.shape.Len())
	for _, b := range s.shape.Blocks() {
		out = append(out, b.Offset)
	}
	return out
}

func runJacobian(cmd *cobra.Command, args []string) error {
	p, err := loadProblem(cmd, args)
	if err != nil {
		return err
	}
	sys, err := buildSystem(p)
	if err != nil {
		return err
	}

	jf, err := sys.jacobianFn(p.Jacobian)
	if err != nil {
		return err
	}
	start := time.Now()
	jac, err := jf.Evaluate(p.Time, sys.x0)
	if err != nil {
		return err
	}
	logger.Debug("jacobian evaluated",
		"problem", p.Name, "mode", p.Jacobian, "dtype", sys.dtype,
		"size", jf.Size(), "constant", jf.Constant(), "elapsed", time.Since(start))

	title := fmt.Sprintf("%s  J(t=%g)  %s  %s", p.Name, p.Time, p.Jacobian, sys.dtype)
	fmt.Println(viz.RenderMatrix(title, jac, sys.splits()))

	report := store.NewReport(p.Name, sys.dtype.String(), p.Jacobian, p.Time, sys.x0, sys.shape, jac)
	if len(p.Vec) > 0 {
		prod, err := ode.RightMultByJacobian(jf, sys.fn, p.Time, sys.x0, p.Vec)
		if err != nil {
			return err
		}
		fmt.Println(viz.RenderVector("vec · J", prod))
		report.Vec = p.Vec
		report.Product = prod
	}

	return writeOutputs(report, jac)
}

func runSolve(cmd *cobra.Command, args []string) error {
	p, err := loadProblem(cmd, args)
	if err != nil {
		return err
	}
	sys, err := buildSystem(p)
	if err != nil {
		return err
	}

	name := p.Solver.Integrator
	if name == "" {
		name = config.DefaultIntegrator
	}
	var jf ode.JacobianFn
	if integrators.IsImplicit(name) {
		if jf, err = sys.jacobianFn(p.Jacobian); err != nil {
			return err
		}
	}
	integ, err := integrators.New(name, jf)
	if err != nil {
		return err
	}

	cfg := p.IntegratorConfig()
	logger.Info("solving", "problem", p.Name, "integrator", name,
		"dt", cfg.Dt, "duration", cfg.Duration, "adaptive", cfg.Adaptive)

	start := time.Now()
	result, err := integrators.Run(cmd.Context(), integ, sys.fn, sys.x0, cfg)
	if err != nil {
		return err
	}
	logger.Debug("solve finished", "steps", result.StepsTaken, "elapsed", time.Since(start))

	series := make([][]float64, 0, 4)
	for k := 0; k < len(sys.x0) && k < 4; k++ {
		series = append(series, viz.Column(result.States, k))
	}
	caption := fmt.Sprintf("%s  %s  steps=%d", p.Name, name, result.StepsTaken)
	fmt.Println(viz.Plot(caption, plotWidth, 12, series...))
	for k, s := range series {
		fmt.Printf("x%-3d %s\n", k, viz.SparklineChart(s, plotWidth))
	}
	fmt.Println(viz.RenderVector(fmt.Sprintf("x(%g)", result.Times[len(result.Times)-1]), result.Final()))

	report := store.NewReport(p.Name, sys.dtype.String(), p.Jacobian, p.Time, sys.x0, sys.shape, nil)
	report.Trajectory = &store.Trajectory{
		Integrator: name,
		Times:      result.Times,
		States:     result.States,
	}
	return writeOutputs(report, nil)
}

func writeOutputs(report *store.Report, jac mat.Matrix) error {
	if jsonOut != "" {
		if err := store.ExportJSON(jsonOut, report); err != nil {
			return err
		}
		fmt.Printf("report written to %s\n", jsonOut)
	}
	if csvOut != "" && jac != nil {
		if err := store.ExportMatrixCSV(csvOut, jac); err != nil {
			return err
		}
		fmt.Printf("jacobian written to %s\n", csvOut)
	}
	if saveRun {
		st := store.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(report)
		if err != nil {
			return err
		}
		fmt.Printf("saved: %s\n", runID)
	}
	return nil
}

// runCheck evaluates the Jacobian from every source and compares each one,
// and its vec · J, against the dense matrix.
func runCheck(cmd *cobra.Command, args []string) error {
	p, err := loadProblem(cmd, args)
	if err != nil {
		return err
	}
	sys, err := buildSystem(p)
	if err != nil {
		return err
	}

	vec := p.Vec
	if len(vec) == 0 {
		vec = make([]float64, len(sys.x0))
		for i := range vec {
			vec[i] = 1
		}
	}

	ref, err := sys.jacobianFn(config.ModeDense)
	if err != nil {
		return err
	}
	refJac, err := ref.Evaluate(p.Time, sys.x0)
	if err != nil {
		return err
	}
	refProd, err := ode.RightMultByJacobian(ref, sys.fn, p.Time, sys.x0, vec)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tCONSTANT\tMAX |ΔJ|\tMAX |Δ(vec·J)|")
	var failed []string
	for _, m := range []string{config.ModeDense, config.ModeNested, config.ModeAutoDiff} {
		jf, err := sys.jacobianFn(m)
		if err != nil {
			return err
		}
		jac, err := jf.Evaluate(p.Time, sys.x0)
		if err != nil {
			return err
		}
		prod, err := ode.RightMultByJacobian(jf, sys.fn, p.Time, sys.x0, vec)
		if err != nil {
			return err
		}
		dj := maxAbsDiff(jac.RawMatrix().Data, refJac.RawMatrix().Data)
		dp := maxAbsDiff(prod, refProd)
		fmt.Fprintf(w, "%s\t%t\t%.3g\t%.3g\n", m, jf.Constant(), dj, dp)
		if dj > tolerance || dp > tolerance {
			failed = append(failed, m)
		}
	}
	w.Flush()

	if len(failed) > 0 {
		return fmt.Errorf("sources differ from dense by more than %g: %v", tolerance, failed)
	}
	fmt.Println(viz.Positive.Render("all sources agree"))
	return nil
}

func maxAbsDiff(a, b []float64) float64 {
	d := 0.0
	for i := range a {
		d = math.Max(d, math.Abs(a[i]-b[i]))
	}
	return d
}

func listReports(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	reports, err := st.List()
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		fmt.Println("no saved reports")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROBLEM\tSOURCE\tDTYPE\tSIZE\tTIMESTAMP")
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			r.ID, r.Problem, r.Source, r.DType, len(r.State), r.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}
