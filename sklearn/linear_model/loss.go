package linear_model

import (
	"math"

	"github.com/YuminosukeSato/nutriclass/core/parallel"
	"github.com/YuminosukeSato/nutriclass/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// logisticObjective is the L2-regularised log-loss minimised by L-BFGS.
//
// Parameters are laid out row by row: for row r, params[r*stride : r*stride+F]
// are the feature weights and, when fitting an intercept, params[r*stride+F]
// is the intercept. Multinomial problems have one row per class; binary
// problems have a single row.
//
// The value is
//
//	sum_i s_i * loss_i / sum_i s_i  +  ||W||^2 / (2 * C * sum_i s_i)
//
// with s_i the sample weights and intercepts left unpenalised.
type logisticObjective struct {
	X            *mat.Dense
	classIdx     []int     // multinomial targets, class index per sample
	binaryY      []float64 // binary targets in {0, 1}
	sampleWeight []float64

	multinomial  bool
	nRows        int
	nFeatures    int
	fitIntercept bool
	l2           float64 // 1 / (C * sum(sampleWeight)), 0 without penalty
	weightSum    float64

	// samples above which the gradient is computed across CPU cores
	parallelThreshold int

	evals int
	err   error
}

func (o *logisticObjective) stride() int {
	if o.fitIntercept {
		return o.nFeatures + 1
	}
	return o.nFeatures
}

func (o *logisticObjective) nParams() int {
	return o.nRows * o.stride()
}

type partial struct {
	loss float64
	grad []float64
}

// eval returns the objective at params and, when grad is non-nil, writes the
// gradient into it. Chunk results are summed in chunk order so repeated
// evaluations are bit-identical.
func (o *logisticObjective) eval(params, grad []float64) float64 {
	o.evals++
	nSamples, _ := o.X.Dims()
	wantGrad := grad != nil

	partials := make([]partial, parallel.NumChunks(nSamples, o.parallelThreshold))

	parallel.ForEachChunk(nSamples, o.parallelThreshold, func(chunk, start, end int) {
		p := partial{}
		if wantGrad {
			p.grad = make([]float64, len(params))
		}
		if o.multinomial {
			p.loss = o.softmaxRange(params, p.grad, start, end)
		} else {
			p.loss = o.sigmoidRange(params, p.grad, start, end)
		}
		partials[chunk] = p
	})

	loss := 0.0
	if wantGrad {
		for i := range grad {
			grad[i] = 0
		}
	}
	for _, p := range partials {
		loss += p.loss
		if wantGrad {
			floats.Add(grad, p.grad)
		}
	}

	loss /= o.weightSum
	if wantGrad {
		floats.Scale(1/o.weightSum, grad)
	}

	if o.l2 > 0 {
		stride := o.stride()
		for r := 0; r < o.nRows; r++ {
			w := params[r*stride : r*stride+o.nFeatures]
			loss += 0.5 * o.l2 * floats.Dot(w, w)
			if wantGrad {
				floats.AddScaled(grad[r*stride:r*stride+o.nFeatures], o.l2, w)
			}
		}
	}

	if o.err == nil {
		if err := errors.CheckScalar("logistic_loss", loss, o.evals); err != nil {
			o.err = err
		}
	}
	return loss
}

func (o *logisticObjective) softmaxRange(params, grad []float64, start, end int) float64 {
	stride := o.stride()
	z := make([]float64, o.nRows)
	loss := 0.0
	for i := start; i < end; i++ {
		x := o.X.RawRowView(i)
		for k := 0; k < o.nRows; k++ {
			row := params[k*stride : (k+1)*stride]
			z[k] = floats.Dot(row[:o.nFeatures], x)
			if o.fitIntercept {
				z[k] += row[o.nFeatures]
			}
		}
		lse := errors.LogSumExp(z)
		s := o.sampleWeight[i]
		loss += s * (lse - z[o.classIdx[i]])

		if grad == nil {
			continue
		}
		for k := 0; k < o.nRows; k++ {
			diff := math.Exp(z[k] - lse)
			if k == o.classIdx[i] {
				diff -= 1
			}
			diff *= s
			g := grad[k*stride : (k+1)*stride]
			floats.AddScaled(g[:o.nFeatures], diff, x)
			if o.fitIntercept {
				g[o.nFeatures] += diff
			}
		}
	}
	return loss
}

func (o *logisticObjective) sigmoidRange(params, grad []float64, start, end int) float64 {
	w := params[:o.nFeatures]
	loss := 0.0
	for i := start; i < end; i++ {
		x := o.X.RawRowView(i)
		z := floats.Dot(w, x)
		if o.fitIntercept {
			z += params[o.nFeatures]
		}
		y := o.binaryY[i]
		s := o.sampleWeight[i]
		loss -= s * (y*errors.LogSigmoid(z) + (1-y)*errors.LogSigmoid(-z))

		if grad == nil {
			continue
		}
		diff := s * (sigmoid(z) - y)
		floats.AddScaled(grad[:o.nFeatures], diff, x)
		if o.fitIntercept {
			grad[o.nFeatures] += diff
		}
	}
	return loss
}

// sigmoid computes the logistic function without overflow for large |z|.
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1.0 / (1.0 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1.0 + e)
}
