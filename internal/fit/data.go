package fit

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/cwbudde/ransacfit/internal/ransac"
)

// ParseFloats reads whitespace separated ASCII numbers.
func ParseFloats(r io.Reader) ([]float64, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)

	var out []float64
	for sc.Scan() {
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", len(out)+1, err)
		}
		out = append(out, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return out, nil
}

// LoadDataset parses points of dim fields each. Trailing values that do not
// make up a whole point are dropped with a warning.
func LoadDataset(r io.Reader, dim int) (ransac.Dataset, error) {
	if dim < 1 {
		return ransac.Dataset{}, fmt.Errorf("invalid point dimension %d", dim)
	}

	values, err := ParseFloats(r)
	if err != nil {
		return ransac.Dataset{}, err
	}

	if rem := len(values) % dim; rem != 0 {
		slog.Warn("Dropping incomplete trailing point", "dim", dim, "values", rem)
		values = values[:len(values)-rem]
	}
	return ransac.NewDataset(values, dim), nil
}

// LoadFile is LoadDataset on a named file.
func LoadFile(path string, dim int) (ransac.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return ransac.Dataset{}, fmt.Errorf("failed to open data file: %w", err)
	}
	defer f.Close()

	ds, err := LoadDataset(f, dim)
	if err != nil {
		return ransac.Dataset{}, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}
