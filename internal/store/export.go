package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

func ExportJSON(path string, r *Report) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteJSON(file, r)
}

func WriteJSON(w io.Writer, r *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// ExportMatrixCSV writes m one row per line, full precision.
func ExportMatrixCSV(path string, m mat.Matrix) error {
	return writeRows(path, nil, rows(m))
}

func ExportTrajectoryCSV(path string, tr *Trajectory) error {
	var header []string
	if len(tr.States) > 0 {
		header = []string{"time"}
		for i := range tr.States[0] {
			header = append(header, fmt.Sprintf("x%d", i))
		}
	}

	data := make([][]float64, len(tr.States))
	for i, s := range tr.States {
		data[i] = append([]float64{tr.Times[i]}, s...)
	}
	return writeRows(path, header, data)
}

func writeRows(path string, header []string, data [][]float64) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if header != nil {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	for _, row := range data {
		record := make([]string, len(row))
		for j, v := range row {
			record[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
