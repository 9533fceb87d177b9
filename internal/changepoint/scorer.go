package changepoint

import (
	"math"
	"sort"
)

// Scorer computes per-window change-point scores. It is stateless and safe
// for concurrent use across sessions.
type Scorer struct {
	alpha  float64
	lambda float64
	subLen int
}

// NewScorer builds a scorer with the given relative parameter alpha, ridge
// regularization lambda, and reference/test sub-window length in samples.
func NewScorer(alpha, lambda float64, subWindowLength int) *Scorer {
	return &Scorer{alpha: alpha, lambda: lambda, subLen: subWindowLength}
}

// SubWindowLength returns the configured sub-window sample count.
func (s *Scorer) SubWindowLength() int {
	return s.subLen
}

// Score estimates the distributional shift between reference and test
// sample runs. Both slices hold (gsr, hr) pairs; only the most recent
// sub-window length entries of each are used. The result is non-negative
// and deterministic for identical input and configuration. Runs too short
// to fit a density-ratio model score zero.
func (s *Scorer) Score(reference, test [][2]float64) float64 {
	x := tail(reference, s.subLen)
	y := tail(test, s.subLen)
	if len(x) < 2 || len(y) < 2 {
		return 0
	}

	forward := s.relativePearson(x, y)
	backward := s.relativePearson(y, x)
	return math.Abs(forward) + math.Abs(backward)
}

// relativePearson fits an alpha-relative density-ratio model r(z) ~ p_x(z) /
// (alpha p_x(z) + (1-alpha) p_y(z)) with Gaussian kernels centered on the x
// samples and returns the Pearson divergence estimate.
func (s *Scorer) relativePearson(x, y [][2]float64) float64 {
	sigma := medianDistance(append(append([][2]float64{}, x...), y...))
	if sigma <= 0 {
		// Degenerate input: every point identical.
		return 0
	}

	centers := x
	b := len(centers)

	phiX := designMatrix(x, centers, sigma)
	phiY := designMatrix(y, centers, sigma)

	// H = alpha/n_x * PhiX'PhiX + (1-alpha)/n_y * PhiY'PhiY + lambda I
	h := make([][]float64, b)
	for i := range h {
		h[i] = make([]float64, b)
	}
	accumulateGram(h, phiX, s.alpha/float64(len(x)))
	accumulateGram(h, phiY, (1-s.alpha)/float64(len(y)))
	for i := 0; i < b; i++ {
		h[i][i] += s.lambda
	}

	// rhs = mean of PhiX rows
	rhs := make([]float64, b)
	for _, row := range phiX {
		for j, v := range row {
			rhs[j] += v
		}
	}
	for j := range rhs {
		rhs[j] /= float64(len(x))
	}

	theta, ok := solveCholesky(h, rhs)
	if !ok {
		return 0
	}

	gx := apply(phiX, theta)
	gy := apply(phiY, theta)

	meanGX, meanGX2 := moments(gx)
	_, meanGY2 := moments(gy)

	return meanGX - 0.5*(s.alpha*meanGX2+(1-s.alpha)*meanGY2) - 0.5
}

func tail(values [][2]float64, n int) [][2]float64 {
	if n <= 0 || len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

func designMatrix(points, centers [][2]float64, sigma float64) [][]float64 {
	denom := 2 * sigma * sigma
	out := make([][]float64, len(points))
	for i, p := range points {
		row := make([]float64, len(centers))
		for j, c := range centers {
			d0 := p[0] - c[0]
			d1 := p[1] - c[1]
			row[j] = math.Exp(-(d0*d0 + d1*d1) / denom)
		}
		out[i] = row
	}
	return out
}

func accumulateGram(dst [][]float64, phi [][]float64, scale float64) {
	b := len(dst)
	for _, row := range phi {
		for i := 0; i < b; i++ {
			ri := row[i] * scale
			for j := i; j < b; j++ {
				dst[i][j] += ri * row[j]
			}
		}
	}
	for i := 0; i < b; i++ {
		for j := 0; j < i; j++ {
			dst[i][j] = dst[j][i]
		}
	}
}

// medianDistance is the median heuristic kernel bandwidth: the median of
// pairwise Euclidean distances over the pooled samples.
func medianDistance(points [][2]float64) float64 {
	if len(points) < 2 {
		return 0
	}
	dists := make([]float64, 0, len(points)*(len(points)-1)/2)
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			d0 := points[i][0] - points[j][0]
			d1 := points[i][1] - points[j][1]
			dists = append(dists, math.Sqrt(d0*d0+d1*d1))
		}
	}
	sort.Float64s(dists)
	mid := len(dists) / 2
	if len(dists)%2 == 1 {
		return dists[mid]
	}
	return (dists[mid-1] + dists[mid]) / 2
}

// solveCholesky solves A x = b for symmetric positive-definite A. The ridge
// term keeps the Gram matrix positive definite for any sane lambda.
func solveCholesky(a [][]float64, b []float64) ([]float64, bool) {
	n := len(a)
	l := make([][]float64, n)
	for i := range l {
		l[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := a[i][j]
			for k := 0; k < j; k++ {
				sum -= l[i][k] * l[j][k]
			}
			if i == j {
				if sum <= 0 {
					return nil, false
				}
				l[i][i] = math.Sqrt(sum)
			} else {
				l[i][j] = sum / l[j][j]
			}
		}
	}

	// Forward substitution: L y = b
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := b[i]
		for k := 0; k < i; k++ {
			sum -= l[i][k] * y[k]
		}
		y[i] = sum / l[i][i]
	}

	// Back substitution: L' x = y
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := y[i]
		for k := i + 1; k < n; k++ {
			sum -= l[k][i] * x[k]
		}
		x[i] = sum / l[i][i]
	}
	return x, true
}

func apply(phi [][]float64, theta []float64) []float64 {
	out := make([]float64, len(phi))
	for i, row := range phi {
		sum := 0.0
		for j, v := range row {
			sum += v * theta[j]
		}
		out[i] = sum
	}
	return out
}

func moments(values []float64) (mean, meanSq float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
		meanSq += v * v
	}
	n := float64(len(values))
	return mean / n, meanSq / n
}
