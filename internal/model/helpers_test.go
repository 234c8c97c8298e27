package model

import "gonum.org/v1/gonum/mat"

func mat64Col(m *mat.Dense, j int) []float64 {
	return mat.Col(nil, j, m)
}
