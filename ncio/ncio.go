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

// Package ncio provides read access to NetCDF files through a backend-neutral
// interface, so that the comparison engine never depends on which NetCDF
// library actually performs the I/O.
package ncio

import (
	"fmt"

	"github.com/ctessum/sparse"
)

// DType is the numeric kind of a variable as declared in the file,
// before values are widened to float64.
type DType int

const (
	Int8 DType = iota
	Int16
	Int32
	Int64
	Float32
	Float64
	// Char marks character data, which cannot be compared numerically.
	Char
)

func (d DType) String() string {
	switch d {
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Char:
		return "char"
	}
	return fmt.Sprintf("DType(%d)", int(d))
}

// IsFloat reports whether d is a floating-point kind.
func (d DType) IsFloat() bool { return d == Float32 || d == Float64 }

// IsNumeric reports whether values of kind d can be compared numerically.
func (d DType) IsNumeric() bool { return d != Char }

// Slice restricts a read to the half-open index range [Start,End)
// along the named dimension.
type Slice struct {
	Dim        string
	Start, End int
}

// VarData holds one variable's values as read from a file. Values are
// widened to float64 regardless of the on-disk type; elements equal to the
// variable's fill value are replaced with NaN by the backend.
type VarData struct {
	Name  string
	DType DType
	Dims  []string
	Data  *sparse.DenseArray
}

// Shape returns the dimension lengths of the data
// (empty for a scalar variable).
func (v *VarData) Shape() []int { return v.Data.Shape }

// File is the capability interface over one open NetCDF file.
// Implementations may perform I/O on every GetValues call; no caching is
// guaranteed at this layer. Implementations must be safe for concurrent
// reads.
type File interface {
	// Path returns the path or label identifying the file.
	Path() string

	// Variables returns the variable names in their declared order.
	Variables() []string

	// Dimensions returns the ordered dimension names of a variable;
	// a scalar variable has none.
	Dimensions(varName string) ([]string, error)

	// Lengths returns the dimension sizes of a variable, in the same
	// order as Dimensions.
	Lengths(varName string) ([]int, error)

	// GetValues reads a variable's values, optionally restricted along
	// one dimension. A nil Slice reads the full variable.
	GetValues(varName string, s *Slice) (*VarData, error)

	// Attribute returns the value of a variable attribute, or of a
	// global attribute when varName is empty.
	Attribute(varName, attrName string) (interface{}, error)

	Close() error
}

// VariableNotFoundError reports a request for a variable
// that is not in the file.
type VariableNotFoundError struct {
	File, Variable string
}

func (e VariableNotFoundError) Error() string {
	return fmt.Sprintf("ncio: variable %s not found in %s", e.Variable, e.File)
}

// DimensionError reports a slice specification naming a dimension the
// variable does not have, or an index outside the dimension's extent.
type DimensionError struct {
	File, Variable, Dim string
	Msg                 string
}

func (e DimensionError) Error() string {
	return fmt.Sprintf("ncio: dimension %s of variable %s in %s: %s",
		e.Dim, e.Variable, e.File, e.Msg)
}

// AttributeNotFoundError reports a missing attribute.
type AttributeNotFoundError struct {
	File, Variable, Attribute string
}

func (e AttributeNotFoundError) Error() string {
	if e.Variable == "" {
		return fmt.Sprintf("ncio: global attribute %s not found in %s", e.Attribute, e.File)
	}
	return fmt.Sprintf("ncio: attribute %s of variable %s not found in %s",
		e.Attribute, e.Variable, e.File)
}

// NonNumericError reports an attempt to read values of a
// character variable.
type NonNumericError struct {
	File, Variable string
}

func (e NonNumericError) Error() string {
	return fmt.Sprintf("ncio: variable %s in %s is not numeric", e.Variable, e.File)
}

// checkSlice validates s against a variable's dimensions and returns the
// index of the sliced dimension.
func checkSlice(path, varName string, dims []string, lengths []int, s *Slice) (int, error) {
	for i, d := range dims {
		if d != s.Dim {
			continue
		}
		if s.Start < 0 || s.End > lengths[i] || s.Start >= s.End {
			return 0, DimensionError{File: path, Variable: varName, Dim: s.Dim,
				Msg: fmt.Sprintf("index range [%d,%d) outside extent %d", s.Start, s.End, lengths[i])}
		}
		return i, nil
	}
	return 0, DimensionError{File: path, Variable: varName, Dim: s.Dim, Msg: "no such dimension"}
}

// subsetDim returns the subset of a row-major array restricted to
// [start,end) along dimension number dim.
func subsetDim(data *sparse.DenseArray, dim, start, end int) *sparse.DenseArray {
	shape := data.Shape
	outShape := make([]int, len(shape))
	copy(outShape, shape)
	outShape[dim] = end - start

	outer := 1 // product of lengths before dim
	for _, n := range shape[:dim] {
		outer *= n
	}
	inner := 1 // product of lengths after dim
	for _, n := range shape[dim+1:] {
		inner *= n
	}

	out := sparse.ZerosDense(outShape...)
	oi := 0
	for i := 0; i < outer; i++ {
		base := i * shape[dim] * inner
		copy(out.Elements[oi:oi+(end-start)*inner],
			data.Elements[base+start*inner:base+end*inner])
		oi += (end - start) * inner
	}
	return out
}

// scalarDense wraps a single value in a zero-dimensional array.
func scalarDense(v float64) *sparse.DenseArray {
	return &sparse.DenseArray{Shape: []int{}, Elements: []float64{v}}
}
