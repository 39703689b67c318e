// Package tensorutils provides utilities for working with tensors
package tensorutils

import (
	"fmt"

	"gorgonia.org/tensor"
)

// ScatterRows builds a dense matrix with len(blocks) rows and rowLen
// columns. Row j of the matrix holds the j'th length-block chunk of
// src at columns [blocks[j]*block, (blocks[j]+1)*block), and zeros
// everywhere else.
func ScatterRows(rowLen, block int, blocks []int,
	src []float64) (*tensor.Dense, error) {
	rows := len(blocks)
	if len(src) != rows*block {
		return nil, fmt.Errorf("scatterrows: invalid source length "+
			"\n\twant(%v)\n\thave(%v)", rows*block, len(src))
	}

	backing := make([]float64, rows*rowLen)
	for j := 0; j < rows; j++ {
		col := blocks[j] * block
		if col < 0 || col+block > rowLen {
			return nil, fmt.Errorf("scatterrows: block %v of row %v "+
				"exceeds row length %v", blocks[j], j, rowLen)
		}

		start := j*rowLen + col
		copy(backing[start:start+block], src[j*block:(j+1)*block])
	}

	return tensor.New(
		tensor.WithShape(rows, rowLen),
		tensor.WithBacking(backing),
	), nil
}
