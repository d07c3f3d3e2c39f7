package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"FallScope/internal/model"
)

// WriteFallCSV writes the fall table with its original column names. Missing
// forward values are empty cells.
func WriteFallCSV(w io.Writer, t model.FallTable, horizonDays int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(FallHeaders(horizonDays)); err != nil {
		return err
	}
	for _, r := range t.Records {
		if err := cw.Write(fallCells(r, horizonDays)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDrawdownCSV writes one row per drawdown record.
func WriteDrawdownCSV(w io.Writer, t model.DrawdownTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(DrawdownHeaders()); err != nil {
		return err
	}
	for _, r := range t.Records {
		if err := cw.Write(drawdownCells(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes falls_<run>.csv and drawdowns_<run>.csv into dir and returns
// their paths.
func SaveCSV(dir string, res *model.BatchResult) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create csv dir: %w", err)
	}
	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"falls_" + res.RunID + ".csv", func(w io.Writer) error {
			return WriteFallCSV(w, res.Falls, res.Params.ForwardHorizonDays)
		}},
		{"drawdowns_" + res.RunID + ".csv", func(w io.Writer) error {
			return WriteDrawdownCSV(w, res.Drawdowns)
		}},
	}

	var paths []string
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeFile(path, f.write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(fh); err != nil {
		fh.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return fh.Close()
}
