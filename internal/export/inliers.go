package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cwbudde/ransacfit/internal/ransac"
)

// WriteInliers writes the points selected by mask, one per line with the
// fields separated by spaces.
func WriteInliers(w io.Writer, ds ransac.Dataset, mask []bool) error {
	if len(mask) != ds.Len() {
		return fmt.Errorf("mask covers %d points, data set has %d", len(mask), ds.Len())
	}

	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 32)
	for i, in := range mask {
		if !in {
			continue
		}
		for j, v := range ds.Point(i) {
			if j > 0 {
				bw.WriteByte(' ')
			}
			buf = strconv.AppendFloat(buf[:0], v, 'g', -1, 64)
			bw.Write(buf)
		}
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write inliers: %w", err)
	}
	return nil
}

// WriteInliersFile is WriteInliers into a newly created file.
func WriteInliersFile(path string, ds ransac.Dataset, mask []bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create inliers file: %w", err)
	}
	if err := WriteInliers(f, ds, mask); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
