package ode_test

import (
	"errors"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/odejac/internal/ode"
	"github.com/san-kum/odejac/internal/tensor"
)

// linearRHS returns f(t, s) = m · flatten(s), reshaped like s.
func linearRHS(m *mat.Dense, shape ode.StateShape) ode.Func {
	return func(_ float64, s ode.State) (ode.State, error) {
		x, err := ode.FlattenAs(s, shape)
		if err != nil {
			return ode.State{}, err
		}
		n := len(x)
		y := mat.NewVecDense(n, nil)
		y.MulVec(m, mat.NewVecDense(n, x))
		return ode.Unflatten(y.RawVector().Data, shape)
	}
}

// squareRHS is f(x) = x*x elementwise, whose Jacobian is diag(2x).
func squareRHS(_ float64, x []float64) ([]float64, error) {
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = v * v
	}
	return y, nil
}

// jacobianOnly hides the Gradienter side of a differentiator.
type jacobianOnly struct {
	ode.Differentiator
}

var _ = Describe("Jacobian utilities", func() {
	var (
		vec      []float64
		jacobian *mat.Dense
		x0       []float64
		shape    ode.StateShape
		fn       ode.VecFunc
	)

	BeforeEach(func() {
		vec = []float64{1, 2, 3}
		jacobian = mat.NewDense(3, 3, []float64{
			-1, -2, -3,
			-4, -5, -6,
			-7, -8, -9,
		})
		var err error
		x0, shape, err = ode.Flatten(ode.Single(tensor.Vector(1, 1, 1)))
		Expect(err).NotTo(HaveOccurred())
		fn = ode.Vectorize(linearRHS(jacobian, shape), shape)
	})

	Describe("RightMultByJacobian", func() {
		want := []float64{-30, -36, -42}

		DescribeTable("multiplies vec by the jacobian from the left",
			func(source func() ode.Source) {
				jf, err := ode.NewJacobianFn(source(), fn, shape, tensor.Float32)
				Expect(err).NotTo(HaveOccurred())

				got, err := ode.RightMultByJacobian(jf, fn, 0, x0, vec)
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(HaveLen(3))
				for i := range want {
					Expect(got[i]).To(BeNumerically("~", want[i], 1e-4))
				}
			},
			// Sources are built inside the body, after BeforeEach has set jacobian.
			Entry("explicit jacobian", func() ode.Source { return ode.Dense{M: jacobian} }),
			Entry("automatic differentiation", func() ode.Source { return ode.AutoDiff{} }),
			Entry("automatic differentiation through the matrix", func() ode.Source {
				return ode.AutoDiff{Differentiator: jacobianOnly{ode.DefaultFiniteDiff()}}
			}),
		)

		It("treats a nil source as automatic differentiation", func() {
			jf, err := ode.NewJacobianFn(nil, fn, shape, tensor.Float32)
			Expect(err).NotTo(HaveOccurred())
			Expect(jf.Constant()).To(BeFalse())

			got, err := ode.RightMultByJacobian(jf, nil, 0, x0, vec)
			Expect(err).NotTo(HaveOccurred())
			for i := range want {
				Expect(got[i]).To(BeNumerically("~", want[i], 1e-4))
			}
		})

		It("agrees with the materialized product for a nonlinear function", func() {
			x := []float64{0.5, -1.5, 2}
			v := []float64{3, 1, -2}
			direct, err := ode.NewJacobianFn(nil, squareRHS, ode.SingleShape(tensor.Shape{3}), tensor.Float64)
			Expect(err).NotTo(HaveOccurred())
			viaMatrix, err := ode.NewJacobianFn(ode.AutoDiff{Differentiator: jacobianOnly{ode.DefaultFiniteDiff()}},
				squareRHS, ode.SingleShape(tensor.Shape{3}), tensor.Float64)
			Expect(err).NotTo(HaveOccurred())

			a, err := ode.RightMultByJacobian(direct, squareRHS, 0, x, v)
			Expect(err).NotTo(HaveOccurred())
			b, err := ode.RightMultByJacobian(viaMatrix, squareRHS, 0, x, v)
			Expect(err).NotTo(HaveOccurred())
			for i := range x {
				Expect(a[i]).To(BeNumerically("~", 2*x[i]*v[i], 1e-6))
				Expect(b[i]).To(BeNumerically("~", a[i], 1e-6))
			}
		})

		It("rejects a vector of the wrong length", func() {
			jf, err := ode.NewJacobianFn(ode.Dense{M: jacobian}, fn, shape, tensor.Float64)
			Expect(err).NotTo(HaveOccurred())

			_, err = ode.RightMultByJacobian(jf, fn, 0, x0, []float64{1, 2})
			Expect(err).To(MatchError(ode.ErrShape))
		})
	})

	Describe("MultByJacobian", func() {
		It("multiplies the jacobian by a column vector", func() {
			jf, err := ode.NewJacobianFn(ode.Dense{M: jacobian}, fn, shape, tensor.Float64)
			Expect(err).NotTo(HaveOccurred())

			got, err := ode.MultByJacobian(jf, 0, nil, vec)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal([]float64{-14, -32, -50}))
		})
	})

	Describe("NewJacobianFn", func() {
		It("matches an explicit matrix when differentiating", func() {
			ad, err := ode.NewJacobianFn(nil, fn, shape, tensor.Float64)
			Expect(err).NotTo(HaveOccurred())
			dense, err := ode.NewJacobianFn(ode.Dense{M: jacobian}, nil, shape, tensor.Float64)
			Expect(err).NotTo(HaveOccurred())

			a, err := ad.Evaluate(0, x0)
			Expect(err).NotTo(HaveOccurred())
			b, err := dense.Evaluate(0, x0)
			Expect(err).NotTo(HaveOccurred())
			Expect(mat.EqualApprox(a, b, 1e-6)).To(BeTrue())
		})

		It("returns the same matrix for any time and state from constant sources", func() {
			blocks := ode.Nested{{tensor.MustNew(tensor.Shape{3, 3}, jacobian.RawMatrix().Data)}}
			for _, src := range []ode.Source{ode.Dense{M: jacobian}, blocks} {
				jf, err := ode.NewJacobianFn(src, nil, shape, tensor.Float32)
				Expect(err).NotTo(HaveOccurred())
				Expect(jf.Constant()).To(BeTrue())
				Expect(jf.Size()).To(Equal(3))

				first, err := jf.Evaluate(0, nil)
				Expect(err).NotTo(HaveOccurred())
				second, err := jf.Evaluate(7.5, []float64{4, -2, 9})
				Expect(err).NotTo(HaveOccurred())
				Expect(mat.Equal(first, second)).To(BeTrue())
				Expect(mat.Equal(first, jacobian)).To(BeTrue())
			}
		})

		It("re-linearizes at every state when differentiating", func() {
			jf, err := ode.NewJacobianFn(nil, squareRHS, ode.SingleShape(tensor.Shape{2}), tensor.Float64)
			Expect(err).NotTo(HaveOccurred())

			a, err := jf.Evaluate(0, []float64{1, 2})
			Expect(err).NotTo(HaveOccurred())
			b, err := jf.Evaluate(0, []float64{3, -1})
			Expect(err).NotTo(HaveOccurred())

			Expect(a.At(0, 0)).To(BeNumerically("~", 2, 1e-6))
			Expect(a.At(1, 1)).To(BeNumerically("~", 4, 1e-6))
			Expect(b.At(0, 0)).To(BeNumerically("~", 6, 1e-6))
			Expect(b.At(1, 1)).To(BeNumerically("~", -2, 1e-6))
			Expect(a.At(0, 1)).To(BeNumerically("~", 0, 1e-9))
		})

		It("casts constant matrices to the requested precision", func() {
			m := mat.NewDense(1, 1, []float64{0.1})
			jf, err := ode.NewJacobianFn(ode.Dense{M: m}, nil, ode.SingleShape(tensor.Shape{1}), tensor.Float32)
			Expect(err).NotTo(HaveOccurred())

			got, _ := jf.Evaluate(0, nil)
			Expect(got.At(0, 0)).To(Equal(float64(float32(0.1))))
			Expect(m.At(0, 0)).To(Equal(0.1))
		})

		It("evaluates caller-supplied dense functions per call", func() {
			src := ode.DenseFunc(func(t float64, _ []float64) (mat.Matrix, error) {
				return mat.NewDiagDense(2, []float64{t, t}), nil
			})
			jf, err := ode.NewJacobianFn(src, nil, ode.SingleShape(tensor.Shape{2}), tensor.Float64)
			Expect(err).NotTo(HaveOccurred())
			Expect(jf.Constant()).To(BeFalse())

			got, err := jf.Evaluate(2, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.At(1, 1)).To(Equal(2.0))

			bad := ode.DenseFunc(func(float64, []float64) (mat.Matrix, error) {
				return mat.NewDense(3, 2, nil), nil
			})
			jf, err = ode.NewJacobianFn(bad, nil, ode.SingleShape(tensor.Shape{2}), tensor.Float64)
			Expect(err).NotTo(HaveOccurred())
			_, err = jf.Evaluate(0, nil)
			Expect(err).To(MatchError(ode.ErrShape))
		})

		It("evaluates caller-supplied nested functions at the structured state", func() {
			shape := ode.NestedShape(tensor.Shape{1}, tensor.Shape{1})
			src := ode.NestedFunc(func(_ float64, s ode.State) (ode.Nested, error) {
				a, b := s.Part(0).At(0), s.Part(1).At(0)
				return ode.Nested{
					{tensor.Vector(b), tensor.Vector(a)},
					{tensor.Vector(0), tensor.Vector(1)},
				}, nil
			})
			jf, err := ode.NewJacobianFn(src, nil, shape, tensor.Float64)
			Expect(err).NotTo(HaveOccurred())

			got, err := jf.Evaluate(0, []float64{2, 5})
			Expect(err).NotTo(HaveOccurred())
			Expect(mat.Equal(got, mat.NewDense(2, 2, []float64{5, 2, 0, 1}))).To(BeTrue())

			_, err = jf.Evaluate(0, nil)
			Expect(err).To(MatchError(ode.ErrNoState))
		})

		It("reports construction errors", func() {
			_, err := ode.NewJacobianFn(ode.Dense{M: mat.NewDense(2, 2, nil)}, nil, shape, tensor.Float64)
			Expect(err).To(MatchError(ode.ErrShape))

			_, err = ode.NewJacobianFn(ode.Dense{}, nil, shape, tensor.Float64)
			Expect(err).To(MatchError(ode.ErrShape))

			_, err = ode.NewJacobianFn(nil, nil, shape, tensor.Float64)
			Expect(err).To(MatchError(ode.ErrNilFunc))

			_, err = ode.NewJacobianFn(ode.Dense{M: jacobian}, nil, ode.NestedShape(), tensor.Float64)
			Expect(err).To(MatchError(ode.ErrEmptyState))
		})

		It("rejects a typed nil matrix instead of panicking", func() {
			var m *mat.Dense
			_, err := ode.NewJacobianFn(ode.Dense{M: m}, nil, ode.SingleShape(tensor.Shape{2}), tensor.Float64)
			Expect(err).To(MatchError(ode.ErrShape))

			src := ode.DenseFunc(func(float64, []float64) (mat.Matrix, error) {
				return m, nil
			})
			jf, err := ode.NewJacobianFn(src, nil, ode.SingleShape(tensor.Shape{2}), tensor.Float64)
			Expect(err).NotTo(HaveOccurred())
			_, err = jf.Evaluate(0, []float64{1, 2})
			Expect(err).To(MatchError(ode.ErrShape))
		})

		It("requires a state of the right length when differentiating", func() {
			jf, err := ode.NewJacobianFn(nil, fn, shape, tensor.Float64)
			Expect(err).NotTo(HaveOccurred())

			_, err = jf.Evaluate(0, nil)
			Expect(err).To(MatchError(ode.ErrNoState))

			_, err = jf.Evaluate(0, []float64{1, 2})
			Expect(err).To(MatchError(ode.ErrShape))
		})

		It("surfaces errors from the right-hand side", func() {
			boom := errors.New("boom")
			failing := func(float64, []float64) ([]float64, error) { return nil, boom }
			jf, err := ode.NewJacobianFn(nil, failing, shape, tensor.Float64)
			Expect(err).NotTo(HaveOccurred())

			_, err = jf.Evaluate(0, x0)
			Expect(err).To(MatchError(boom))

			_, err = ode.RightMultByJacobian(jf, failing, 0, x0, vec)
			Expect(err).To(MatchError(boom))
		})
	})

	Describe("nested jacobians", func() {
		var (
			state  ode.State
			shape  ode.StateShape
			m      *mat.Dense
			gradFn ode.Func
		)

		BeforeEach(func() {
			state = ode.NestedState(
				tensor.Vector(1, 2),
				tensor.Vector(3),
				tensor.MustNew(tensor.Shape{2, 2}, []float64{4, 5, 6, 7}),
			)
			var err error
			_, shape, err = ode.Flatten(state)
			Expect(err).NotTo(HaveOccurred())

			rng := rand.New(rand.NewSource(1))
			data := make([]float64, 49)
			for i := range data {
				data[i] = float64(float32(rng.NormFloat64()))
			}
			m = mat.NewDense(7, 7, data)
			gradFn = linearRHS(m, shape)
		})

		// blockOf slices m into the (row, col) block with the shape a
		// batched jacobian of component row w.r.t. component col would have.
		blockOf := func(row, col int) *tensor.Tensor {
			rb, cb := shape.Block(row), shape.Block(col)
			sub := mat.DenseCopyOf(m.Slice(rb.Offset, rb.Offset+rb.Size(), cb.Offset, cb.Offset+cb.Size()))
			r, c := sub.Dims()
			data := make([]float64, 0, r*c)
			for i := 0; i < r; i++ {
				data = append(data, sub.RawRowView(i)...)
			}
			blockShape := append(rb.Shape.Clone(), cb.Shape...)
			return tensor.MustNew(blockShape, data)
		}

		It("assembles blocks into the dense matrix exactly", func() {
			blocks := make(ode.Nested, shape.Len())
			for i := range blocks {
				blocks[i] = make([]*tensor.Tensor, shape.Len())
				for j := range blocks[i] {
					blocks[i][j] = blockOf(i, j)
				}
			}

			jf, err := ode.NewJacobianFn(blocks, nil, shape, tensor.Float32)
			Expect(err).NotTo(HaveOccurred())
			got, err := jf.Evaluate(0, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(mat.Equal(got, m)).To(BeTrue())
		})

		It("assembles blocks obtained by differentiating each component pair", func() {
			d := ode.DefaultFiniteDiff()
			blocks := make(ode.Nested, shape.Len())
			for j := range blocks {
				blocks[j] = make([]*tensor.Tensor, shape.Len())
				for i := 0; i < shape.Len(); i++ {
					in, out := shape.Block(i), shape.Block(j)
					x := state.Part(i).Data()
					dst := mat.NewDense(out.Size(), in.Size(), nil)
					d.Jacobian(dst, func(y, x []float64) {
						part := tensor.MustNew(in.Shape, x)
						ds, err := gradFn(0, state.Replace(i, part))
						Expect(err).NotTo(HaveOccurred())
						copy(y, ds.Part(j).Data())
					}, x)
					blocks[j][i] = tensor.MustNew(tensor.Shape{out.Size(), in.Size()}, dst.RawMatrix().Data)
				}
			}

			got, err := ode.Assemble(blocks, shape, tensor.Float64)
			Expect(err).NotTo(HaveOccurred())
			Expect(mat.EqualApprox(got, m, 1e-8)).To(BeTrue())
		})

		It("treats a single state as one block at (0, 0)", func() {
			single := ode.SingleShape(tensor.Shape{7})
			got, err := ode.Assemble(ode.Nested{{tensor.MustNew(tensor.Shape{7, 7}, m.RawMatrix().Data)}}, single, tensor.Float64)
			Expect(err).NotTo(HaveOccurred())
			Expect(mat.Equal(got, m)).To(BeTrue())
		})

		It("rejects malformed block grids", func() {
			good := func() ode.Nested {
				blocks := make(ode.Nested, 3)
				for i := range blocks {
					blocks[i] = []*tensor.Tensor{blockOf(i, 0), blockOf(i, 1), blockOf(i, 2)}
				}
				return blocks
			}

			wrongBlock := good()
			wrongBlock[2][0] = tensor.Vector(1, 2, 3)
			_, err := ode.Assemble(wrongBlock, shape, tensor.Float64)
			Expect(err).To(MatchError(ode.ErrShape))

			shortRow := good()
			shortRow[1] = shortRow[1][:2]
			_, err = ode.Assemble(shortRow, shape, tensor.Float64)
			Expect(err).To(MatchError(ode.ErrShape))

			_, err = ode.Assemble(good()[:2], shape, tensor.Float64)
			Expect(err).To(MatchError(ode.ErrShape))

			nilBlock := good()
			nilBlock[0][0] = nil
			_, err = ode.NewJacobianFn(nilBlock, nil, shape, tensor.Float64)
			Expect(err).To(MatchError(ode.ErrShape))
		})
	})
})
