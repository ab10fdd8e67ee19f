package processing

import "math"

// solveLinear solves a*x = rhs in place with partial pivoting. a and rhs are
// clobbered. It returns false when the system is singular.
func solveLinear(a [][]float64, rhs []float64) ([]float64, bool) {
	n := len(a)
	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-14 {
			return nil, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		rhs[col], rhs[pivot] = rhs[pivot], rhs[col]

		for row := col + 1; row < n; row++ {
			f := a[row][col] / a[col][col]
			if f == 0 {
				continue
			}
			for k := col; k < n; k++ {
				a[row][k] -= f * a[col][k]
			}
			rhs[row] -= f * rhs[col]
		}
	}

	x := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := rhs[row]
		for k := row + 1; k < n; k++ {
			sum -= a[row][k] * x[k]
		}
		x[row] = sum / a[row][row]
	}
	return x, true
}

// polyFit returns the least-squares polynomial coefficients
// c[0] + c[1]*x + ... + c[degree]*x^degree for the given points, via the
// normal equations.
func polyFit(xs, ys []float64, degree int) ([]float64, bool) {
	m := degree + 1
	ata := make([][]float64, m)
	atb := make([]float64, m)
	for i := range ata {
		ata[i] = make([]float64, m)
	}
	for k := range xs {
		pow := make([]float64, m)
		pow[0] = 1
		for p := 1; p < m; p++ {
			pow[p] = pow[p-1] * xs[k]
		}
		for i := 0; i < m; i++ {
			for j := 0; j < m; j++ {
				ata[i][j] += pow[i] * pow[j]
			}
			atb[i] += pow[i] * ys[k]
		}
	}
	return solveLinear(ata, atb)
}

// polyEval evaluates c[0] + c[1]*x + ... at x.
func polyEval(c []float64, x float64) float64 {
	v := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		v = v*x + c[i]
	}
	return v
}
