package tensor

import "fmt"

// FromValues builds a tensor from nested numeric values such as those
// decoded from YAML or JSON: scalars, []float64, [][]float64, []int or
// arbitrarily nested []any. Every level must be rectangular.
func FromValues(v any) (*Tensor, error) {
	shape, data, err := walk(v)
	if err != nil {
		return nil, err
	}
	return &Tensor{shape: shape, data: data}, nil
}

func walk(v any) (Shape, []float64, error) {
	switch x := v.(type) {
	case float64:
		return Shape{}, []float64{x}, nil
	case float32:
		return Shape{}, []float64{float64(x)}, nil
	case int:
		return Shape{}, []float64{float64(x)}, nil
	case int64:
		return Shape{}, []float64{float64(x)}, nil
	case []float64:
		d := make([]float64, len(x))
		copy(d, x)
		return Shape{len(x)}, d, nil
	case []int:
		d := make([]float64, len(x))
		for i, e := range x {
			d[i] = float64(e)
		}
		return Shape{len(x)}, d, nil
	case [][]float64:
		items := make([]any, len(x))
		for i := range x {
			items[i] = x[i]
		}
		return walkList(items)
	case []any:
		return walkList(x)
	case *Tensor:
		return x.Shape(), x.Data(), nil
	}
	return nil, nil, fmt.Errorf("%w: unsupported element %T", ErrRagged, v)
}

func walkList(items []any) (Shape, []float64, error) {
	if len(items) == 0 {
		return Shape{0}, []float64{}, nil
	}
	var inner Shape
	var data []float64
	for i, item := range items {
		s, d, err := walk(item)
		if err != nil {
			return nil, nil, err
		}
		if i == 0 {
			inner = s
		} else if !inner.Equal(s) {
			return nil, nil, fmt.Errorf("%w: element %d has shape %v, want %v", ErrRagged, i, s, inner)
		}
		data = append(data, d...)
	}
	return append(Shape{len(items)}, inner...), data, nil
}
