package matrix

import (
	"bytes"
	"fmt"
)

// LabelMatrix is a rows x cols grid of 0/1 cells stored row-major.
type LabelMatrix struct {
	Rows int
	Cols int
	Data []uint8
}

// New returns a zero-filled matrix.
func New(rows, cols int) *LabelMatrix {
	return &LabelMatrix{Rows: rows, Cols: cols, Data: make([]uint8, rows*cols)}
}

// At returns the cell at (row, col).
func (m *LabelMatrix) At(row, col int) uint8 {
	return m.Data[row*m.Cols+col]
}

// Set marks the cell at (row, col).
func (m *LabelMatrix) Set(row, col int) {
	m.Data[row*m.Cols+col] = 1
}

// Row returns the cells of one frame.
func (m *LabelMatrix) Row(row int) []uint8 {
	return m.Data[row*m.Cols : (row+1)*m.Cols]
}

// Active returns the column ids set in row.
func (m *LabelMatrix) Active(row int) []int {
	var out []int
	for col, v := range m.Row(row) {
		if v != 0 {
			out = append(out, col)
		}
	}
	return out
}

// Ones counts set cells.
func (m *LabelMatrix) Ones() int {
	n := 0
	for _, v := range m.Data {
		if v != 0 {
			n++
		}
	}
	return n
}

// Equal reports whether both matrices have the same shape and cells.
func (m *LabelMatrix) Equal(other *LabelMatrix) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.Rows == other.Rows && m.Cols == other.Cols && bytes.Equal(m.Data, other.Data)
}

func (m *LabelMatrix) validate() error {
	if m.Rows < 0 || m.Cols < 0 {
		return fmt.Errorf("matrix shape (%d, %d) must not be negative", m.Rows, m.Cols)
	}
	if len(m.Data) != m.Rows*m.Cols {
		return fmt.Errorf("matrix data has %d cells, shape (%d, %d) needs %d", len(m.Data), m.Rows, m.Cols, m.Rows*m.Cols)
	}
	return nil
}
