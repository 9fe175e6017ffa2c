package sensor

import "github.com/itohio/golightmeter/pkg/sample"

// Static returns the same raw reading for a cell on every read.
type Static struct {
	Raw [sample.Rows][sample.Cols]sample.Raw
}

// Uniform creates a static grid with every cell at raw.
func Uniform(raw sample.Raw) *Static {
	s := &Static{}
	for r := range sample.Rows {
		for c := range sample.Cols {
			s.Raw[r][c] = raw
		}
	}
	return s
}

func (s *Static) Read(row, col int) (sample.Raw, error) {
	if err := sample.CheckCoord(row, col); err != nil {
		return 0, err
	}
	return s.Raw[row-1][col-1], nil
}
