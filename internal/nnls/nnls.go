// Package nnls solves small non-negative least-squares problems by projected coordinate
// descent. It is approximate: the plans it serves have tolerance bands, not equalities.
package nnls

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNoCandidates is returned when there are no columns to solve for
	ErrNoCandidates = errors.New("nnls: no candidates")
	// ErrDegenerate is returned when the only non-negative solution found is all zeros
	ErrDegenerate = errors.New("nnls: degenerate solution")
)

// Convergence threshold on the largest per-sweep change of any variable
const Tolerance = 1e-4

// DefaultMaxIterations caps the number of full sweeps
const DefaultMaxIterations = 500

// zeroEpsilon below which a component counts as zero when checking for degeneracy
const zeroEpsilon = 1e-9

// Result is the outcome of a solve
type Result struct {
	X          []float64
	Iterations int
	Converged  bool
}

// Solve finds x >= 0 minimizing ||Ax - b||². a has one row per equation and one column per
// candidate. maxIter <= 0 uses DefaultMaxIterations.
func Solve(a [][]float64, b []float64, maxIter int) (*Result, error) {
	if len(a) == 0 || len(a[0]) == 0 {
		return nil, ErrNoCandidates
	}
	if len(a) != len(b) {
		return nil, fmt.Errorf("nnls: %d rows but %d targets", len(a), len(b))
	}
	n := len(a[0])
	for i, row := range a {
		if len(row) != n {
			return nil, fmt.Errorf("nnls: row %d has %d columns, expected %d", i, len(row), n)
		}
	}
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	ata, atb := normalEquations(a, b)

	x := make([]float64, n)
	res := &Result{X: x}
	for iter := 1; iter <= maxIter; iter++ {
		res.Iterations = iter
		maxChange := 0.0
		for i := 0; i < n; i++ {
			curvature := ata[i][i]
			if curvature <= 0 {
				// column of zeros: it cannot help, keep it at zero
				continue
			}
			grad := -atb[i]
			for j := 0; j < n; j++ {
				grad += ata[i][j] * x[j]
			}
			next := math.Max(0, x[i]-grad/curvature)
			if change := math.Abs(next - x[i]); change > maxChange {
				maxChange = change
			}
			x[i] = next
		}
		if maxChange < Tolerance {
			res.Converged = true
			break
		}
	}

	degenerate := true
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("nnls: non-finite value at column %d", i)
		}
		if v > zeroEpsilon {
			degenerate = false
		}
	}
	if degenerate {
		return nil, ErrDegenerate
	}

	return res, nil
}

// normalEquations returns AᵗA and Aᵗb
func normalEquations(a [][]float64, b []float64) ([][]float64, []float64) {
	n := len(a[0])
	ata := make([][]float64, n)
	atb := make([]float64, n)
	for i := 0; i < n; i++ {
		ata[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			sum := 0.0
			for r := range a {
				sum += a[r][i] * a[r][j]
			}
			ata[i][j] = sum
		}
		for r := range a {
			atb[i] += a[r][i] * b[r]
		}
	}
	return ata, atb
}

// Residual returns Ax - b
func Residual(a [][]float64, x, b []float64) []float64 {
	out := make([]float64, len(a))
	for r, row := range a {
		sum := 0.0
		for j, v := range row {
			sum += v * x[j]
		}
		out[r] = sum - b[r]
	}
	return out
}
