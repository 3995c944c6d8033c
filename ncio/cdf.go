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

package ncio

import (
	"fmt"
	"math"
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// CDFFile reads NetCDF classic-format files using github.com/ctessum/cdf.
type CDFFile struct {
	path string
	f    *os.File
	nc   *cdf.File
	vars map[string]struct{}
}

var _ File = (*CDFFile)(nil)

// OpenCDF opens a NetCDF classic file.
func OpenCDF(path string) (*CDFFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ncio: opening NetCDF file %s: %v", path, err)
	}
	nc, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ncio: opening NetCDF file %s: %v", path, err)
	}
	c := &CDFFile{
		path: path,
		f:    f,
		nc:   nc,
		vars: make(map[string]struct{}),
	}
	for _, v := range nc.Header.Variables() {
		c.vars[v] = struct{}{}
	}
	return c, nil
}

func (c *CDFFile) Path() string { return c.path }

func (c *CDFFile) Close() error { return c.f.Close() }

func (c *CDFFile) Variables() []string { return c.nc.Header.Variables() }

func (c *CDFFile) Dimensions(varName string) ([]string, error) {
	if _, ok := c.vars[varName]; !ok {
		return nil, VariableNotFoundError{File: c.path, Variable: varName}
	}
	return c.nc.Header.Dimensions(varName), nil
}

func (c *CDFFile) Lengths(varName string) ([]int, error) {
	if _, ok := c.vars[varName]; !ok {
		return nil, VariableNotFoundError{File: c.path, Variable: varName}
	}
	return c.nc.Header.Lengths(varName), nil
}

func (c *CDFFile) Attribute(varName, attrName string) (interface{}, error) {
	if varName != "" {
		if _, ok := c.vars[varName]; !ok {
			return nil, VariableNotFoundError{File: c.path, Variable: varName}
		}
	}
	a := c.nc.Header.GetAttribute(varName, attrName)
	if a == nil {
		return nil, AttributeNotFoundError{File: c.path, Variable: varName, Attribute: attrName}
	}
	return a, nil
}

// GetValues reads a variable, restricted along one dimension when s is
// non-nil. The read is a hyperslab read; only the requested range is
// buffered.
func (c *CDFFile) GetValues(varName string, s *Slice) (*VarData, error) {
	if _, ok := c.vars[varName]; !ok {
		return nil, VariableNotFoundError{File: c.path, Variable: varName}
	}
	dims := c.nc.Header.Dimensions(varName)
	lengths := c.nc.Header.Lengths(varName)

	var begin, end []int
	shape := make([]int, len(lengths))
	copy(shape, lengths)
	if s != nil {
		di, err := checkSlice(c.path, varName, dims, lengths, s)
		if err != nil {
			return nil, err
		}
		begin, end = make([]int, len(lengths)), make([]int, len(lengths))
		begin[di], end[di] = s.Start, s.End
		shape[di] = s.End - s.Start
	}

	nread := 1
	for _, n := range shape {
		nread *= n
	}
	r := c.nc.Reader(varName, begin, end)
	buf := r.Zero(nread)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("ncio: reading variable %s from %s: %v", varName, c.path, err)
	}

	data := sparse.ZerosDense(shape...)
	if len(shape) == 0 {
		data = scalarDense(0)
	}
	var dtype DType
	switch vals := buf.(type) {
	case []float64:
		dtype = Float64
		copy(data.Elements, vals)
	case []float32:
		dtype = Float32
		for i, v := range vals {
			data.Elements[i] = float64(v)
		}
	case []int32:
		dtype = Int32
		for i, v := range vals {
			data.Elements[i] = float64(v)
		}
	case []int16:
		dtype = Int16
		for i, v := range vals {
			data.Elements[i] = float64(v)
		}
	case []int8:
		dtype = Int8
		for i, v := range vals {
			data.Elements[i] = float64(v)
		}
	default:
		return nil, NonNumericError{File: c.path, Variable: varName}
	}

	c.maskFill(varName, data)
	return &VarData{Name: varName, DType: dtype, Dims: dims, Data: data}, nil
}

// maskFill replaces elements equal to the variable's fill value with NaN.
func (c *CDFFile) maskFill(varName string, data *sparse.DenseArray) {
	fill, ok := fillValue(
		c.nc.Header.GetAttribute(varName, "_FillValue"),
		c.nc.Header.GetAttribute(varName, "missing_value"))
	if !ok {
		return
	}
	for i, v := range data.Elements {
		if v == fill {
			data.Elements[i] = math.NaN()
		}
	}
}

// fillValue extracts a numeric fill value from the first non-nil attribute
// value given.
func fillValue(attrs ...interface{}) (float64, bool) {
	for _, a := range attrs {
		if a == nil {
			continue
		}
		switch v := a.(type) {
		case []float64:
			if len(v) > 0 {
				return v[0], true
			}
		case []float32:
			if len(v) > 0 {
				return float64(v[0]), true
			}
		case []int32:
			if len(v) > 0 {
				return float64(v[0]), true
			}
		case []int16:
			if len(v) > 0 {
				return float64(v[0]), true
			}
		case []int8:
			if len(v) > 0 {
				return float64(v[0]), true
			}
		case float64:
			return v, true
		case float32:
			return float64(v), true
		}
	}
	return 0, false
}
