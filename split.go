/*
Copyright © 2021 the InMAP authors.
This file is part of nccmp.

nccmp is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

nccmp is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with nccmp.  If not, see <http://www.gnu.org/licenses/>.
*/

package nccmp

import (
	"github.com/spatialmodel/nccmp/ncio"
)

// Splitter decomposes one variable into its slices along a single
// dimension, typically time, so that a large variable can be compared one
// slice at a time without holding the whole array in memory. Each Slice
// call performs a fresh read through the file; nothing is cached between
// calls, so a Splitter can be iterated any number of times.
type Splitter struct {
	f       ncio.File
	varName string
	dim     string
	dimIdx  int
	n       int

	dims  []string
	shape []int

	labels   []float64
	hasCoord bool
}

// NewSplitter prepares splitting of varName along dim. When the file
// contains a one-dimensional coordinate variable with the same name as
// dim, its values become the slice labels; otherwise labels are the
// positional indices. A ncio.DimensionError is returned if dim is not
// among the variable's dimensions.
func NewSplitter(f ncio.File, varName, dim string) (*Splitter, error) {
	dims, err := f.Dimensions(varName)
	if err != nil {
		return nil, err
	}
	lengths, err := f.Lengths(varName)
	if err != nil {
		return nil, err
	}
	s := &Splitter{f: f, varName: varName, dim: dim, dimIdx: -1, dims: dims, shape: lengths}
	for i, d := range dims {
		if d == dim {
			s.dimIdx = i
			break
		}
	}
	if s.dimIdx < 0 {
		return nil, ncio.DimensionError{File: f.Path(), Variable: varName, Dim: dim,
			Msg: "no such dimension"}
	}
	s.n = lengths[s.dimIdx]

	s.labels = make([]float64, s.n)
	for i := range s.labels {
		s.labels[i] = float64(i)
	}
	if coord, err := coordValues(f, dim, s.n); err == nil && coord != nil {
		s.labels = coord
		s.hasCoord = true
	}
	return s, nil
}

// coordValues reads the coordinate variable named dim if one exists with
// the single dimension dim and the expected length.
func coordValues(f ncio.File, dim string, n int) ([]float64, error) {
	found := false
	for _, v := range f.Variables() {
		if v == dim {
			found = true
			break
		}
	}
	if !found {
		return nil, nil
	}
	dims, err := f.Dimensions(dim)
	if err != nil {
		return nil, err
	}
	if len(dims) != 1 || dims[0] != dim {
		return nil, nil
	}
	vd, err := f.GetValues(dim, nil)
	if err != nil {
		return nil, err
	}
	if len(vd.Data.Elements) != n {
		return nil, nil
	}
	return vd.Data.Elements, nil
}

// Len returns the number of slices.
func (s *Splitter) Len() int { return s.n }

// HasCoord reports whether labels come from a coordinate variable.
func (s *Splitter) HasCoord() bool { return s.hasCoord }

/// Label returns the label of slice i: the coordinate variable's value when
// one exists, the positional index otherwise.
func (s *Splitter) Label(i int) float64 { return s.labels[i] }

// Dims returns the variable's dimension names with the split dimension
// removed, matching the dimensions of the arrays Slice returns.
func (s *Splitter) Dims() []string {
	out := make([]string, 0, len(s.dims)-1)
	for i, d := range s.dims {
		if i != s.dimIdx {
			out = append(out, d)
		}
	}
	return out
}

// Shape returns the variable's full shape, including the split dimension.
func (s *Splitter) Shape() []int { return s.shape }

// Slice reads slice i of the variable. The split dimension is squeezed out
// of the returned data, so a (time, x) variable yields (x) slices.
func (s *Splitter) Slice(i int) (*ncio.VarData, error) {
	vd, err := s.f.GetValues(s.varName, &ncio.Slice{Dim: s.dim, Start: i, End: i + 1})
	if err != nil {
		return nil, err
	}
	squeeze(vd, s.dimIdx)
	return vd, nil
}

// squeeze removes a length-1 dimension from vd in place.
func squeeze(vd *ncio.VarData, dim int) {
	if dim >= len(vd.Data.Shape) || vd.Data.Shape[dim] != 1 {
		return
	}
	shape := make([]int, 0, len(vd.Data.Shape)-1)
	dims := make([]string, 0, len(vd.Dims)-1)
	for i := range vd.Data.Shape {
		if i != dim {
			shape = append(shape, vd.Data.Shape[i])
			dims = append(dims, vd.Dims[i])
		}
	}
	vd.Data.Shape = shape
	vd.Dims = dims
}
