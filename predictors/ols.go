package predictors

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// linearModel is an ordinary least squares fit with an intercept term.
type linearModel struct {
	intercept float64
	coef      []float64
}

// fitOLS solves min ||Xb - y|| through a QR factorisation of the design
// matrix with a leading column of ones.
func fitOLS(x [][]float64, y []float64) (*linearModel, error) {
	rows := len(x)
	if rows == 0 || rows != len(y) {
		return nil, fmt.Errorf("fit: %d samples for %d targets", rows, len(y))
	}
	cols := len(x[0]) + 1
	if rows < cols {
		return nil, fmt.Errorf("fit: %d samples cannot determine %d parameters", rows, cols)
	}

	design := mat.NewDense(rows, cols, nil)
	for i, sample := range x {
		design.Set(i, 0, 1)
		for j, v := range sample {
			design.Set(i, j+1, v)
		}
	}

	var qr mat.QR
	qr.Factorize(design)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, mat.NewVecDense(rows, y)); err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}

	m := &linearModel{intercept: beta.AtVec(0), coef: make([]float64, cols-1)}
	for j := range m.coef {
		m.coef[j] = beta.AtVec(j + 1)
	}
	return m, nil
}

func (m *linearModel) predict(features []float64) float64 {
	out := m.intercept
	for j, v := range features {
		out += m.coef[j] * v
	}
	return out
}
