// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package linear implements the vector and matrix types
// that shader uniforms are set from.
// Matrices are column-major, which is the layout that
// the GPU expects.
package linear

// V3 is a 3-component vector of float32.
type V3 [3]float32

// V4 is a 4-component vector of float32.
type V4 [4]float32
