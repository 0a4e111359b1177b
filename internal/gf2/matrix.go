// Package gf2 provides bitset matrices over the two-element field.
//
// The extractor uses these to find CNOT sequences: every row operation
// performed by GaussJordan is recorded so the caller can replay it as a gate.
package gf2

import (
	"math/bits"
	"strings"
)

// RowOp records the elementary operation row[Dst] ^= row[Src].
type RowOp struct {
	Src, Dst int
}

// Matrix is a dense rows×cols matrix over GF(2).
type Matrix struct {
	rows, cols int
	data       [][]uint64
}

// New returns a zero matrix.
func New(rows, cols int) *Matrix {
	words := (cols + 63) / 64
	data := make([][]uint64, rows)
	for i := range data {
		data[i] = make([]uint64, words)
	}
	return &Matrix{rows: rows, cols: cols, data: data}
}

// FromRows builds a matrix from 0/1 rows. All rows must have equal length.
func FromRows(rows [][]int) *Matrix {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	m := New(len(rows), cols)
	for r, row := range rows {
		for c, v := range row {
			m.Set(r, c, v&1 == 1)
		}
	}
	return m
}

// Rows returns the row count.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the column count.
func (m *Matrix) Cols() int { return m.cols }

// Get returns entry (r, c).
func (m *Matrix) Get(r, c int) bool {
	return m.data[r][c/64]&(1<<(c%64)) != 0
}

// Set assigns entry (r, c).
func (m *Matrix) Set(r, c int, v bool) {
	if v {
		m.data[r][c/64] |= 1 << (c % 64)
	} else {
		m.data[r][c/64] &^= 1 << (c % 64)
	}
}

// AddRow performs row[dst] ^= row[src].
func (m *Matrix) AddRow(src, dst int) {
	d, s := m.data[dst], m.data[src]
	for i := range d {
		d[i] ^= s[i]
	}
}

// RowWeight returns the number of ones in row r.
func (m *Matrix) RowWeight(r int) int {
	n := 0
	for _, w := range m.data[r] {
		n += bits.OnesCount64(w)
	}
	return n
}

// RowOnes returns the column indices of the ones in row r, ascending.
func (m *Matrix) RowOnes(r int) []int {
	var out []int
	for i, w := range m.data[r] {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			out = append(out, i*64+b)
			w &= w - 1
		}
	}
	return out
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	c := New(m.rows, m.cols)
	for i := range m.data {
		copy(c.data[i], m.data[i])
	}
	return c
}

// Equal reports whether m and o have the same shape and entries.
func (m *Matrix) Equal(o *Matrix) bool {
	if m.rows != o.rows || m.cols != o.cols {
		return false
	}
	for i := range m.data {
		for j := range m.data[i] {
			if m.data[i][j] != o.data[i][j] {
				return false
			}
		}
	}
	return true
}

// GaussJordan reduces m in place to reduced row echelon form using row
// additions only and returns the rank with the operations performed, in order.
//
// Row swaps are never used: a missing pivot is fixed by adding a lower row
// that has a one in the pivot column. Every recorded op therefore maps to a
// single CNOT.
func (m *Matrix) GaussJordan() (int, []RowOp) {
	var ops []RowOp
	rank := 0
	for c := 0; c < m.cols && rank < m.rows; c++ {
		if !m.Get(rank, c) {
			k := rank + 1
			for k < m.rows && !m.Get(k, c) {
				k++
			}
			if k == m.rows {
				continue
			}
			m.AddRow(k, rank)
			ops = append(ops, RowOp{Src: k, Dst: rank})
		}
		for r := 0; r < m.rows; r++ {
			if r != rank && m.Get(r, c) {
				m.AddRow(rank, r)
				ops = append(ops, RowOp{Src: rank, Dst: r})
			}
		}
		rank++
	}
	return rank, ops
}

// String renders the matrix as rows of 0/1.
func (m *Matrix) String() string {
	var sb strings.Builder
	for r := 0; r < m.rows; r++ {
		for c := 0; c < m.cols; c++ {
			if m.Get(r, c) {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
