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
	"reflect"
	"sync"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/ctessum/sparse"
)

// NativeFile reads NetCDF files (classic and netCDF-4/HDF5) using
// github.com/batchatco/go-native-netcdf.
type NativeFile struct {
	path string
	g    api.Group

	mx    sync.Mutex
	dims  map[string][]string
	sizes map[string][]int
}

var _ File = (*NativeFile)(nil)

// OpenNative opens a NetCDF file of either format.
func OpenNative(path string) (*NativeFile, error) {
	g, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ncio: opening NetCDF file %s: %v", path, err)
	}
	return &NativeFile{
		path:  path,
		g:     g,
		dims:  make(map[string][]string),
		sizes: make(map[string][]int),
	}, nil
}

func (n *NativeFile) Path() string { return n.path }

func (n *NativeFile) Close() error {
	n.g.Close()
	return nil
}

func (n *NativeFile) Variables() []string { return n.g.ListVariables() }

func (n *NativeFile) Dimensions(varName string) ([]string, error) {
	dims, _, err := n.meta(varName)
	return dims, err
}

func (n *NativeFile) Lengths(varName string) ([]int, error) {
	_, sizes, err := n.meta(varName)
	return sizes, err
}

// meta returns (and memoizes) the dimension names and sizes of a variable.
// The library exposes dimension names but not sizes, so sizes are derived
// from the nesting of the value slices on first use.
func (n *NativeFile) meta(varName string) ([]string, []int, error) {
	n.mx.Lock()
	defer n.mx.Unlock()
	if dims, ok := n.dims[varName]; ok {
		return dims, n.sizes[varName], nil
	}
	vg, err := n.getter(varName)
	if err != nil {
		return nil, nil, err
	}
	dims := vg.Dimensions()
	vals, err := vg.Values()
	if err != nil {
		return nil, nil, fmt.Errorf("ncio: reading variable %s from %s: %v", varName, n.path, err)
	}
	sizes := nestedShape(vals, len(dims))
	n.dims[varName] = dims
	n.sizes[varName] = sizes
	return dims, sizes, nil
}

func (n *NativeFile) getter(varName string) (api.VarGetter, error) {
	for _, v := range n.g.ListVariables() {
		if v == varName {
			vg, err := n.g.GetVarGetter(varName)
			if err != nil {
				return nil, fmt.Errorf("ncio: variable %s in %s: %v", varName, n.path, err)
			}
			return vg, nil
		}
	}
	return nil, VariableNotFoundError{File: n.path, Variable: varName}
}

func (n *NativeFile) Attribute(varName, attrName string) (interface{}, error) {
	var attrs api.AttributeMap
	if varName == "" {
		attrs = n.g.Attributes()
	} else {
		vg, err := n.getter(varName)
		if err != nil {
			return nil, err
		}
		attrs = vg.Attributes()
	}
	if v, ok := attrs.Get(attrName); ok {
		return v, nil
	}
	return nil, AttributeNotFoundError{File: n.path, Variable: varName, Attribute: attrName}
}

func (n *NativeFile) GetValues(varName string, s *Slice) (*VarData, error) {
	vg, err := n.getter(varName)
	if err != nil {
		return nil, err
	}
	dims, lengths, err := n.meta(varName)
	if err != nil {
		return nil, err
	}

	di := -1
	if s != nil {
		di, err = checkSlice(n.path, varName, dims, lengths, s)
		if err != nil {
			return nil, err
		}
	}

	var vals interface{}
	if di == 0 {
		// An outermost-dimension slice can be read without buffering
		// the whole variable.
		vals, err = vg.GetSlice(int64(s.Start), int64(s.End))
	} else {
		vals, err = vg.Values()
	}
	if err != nil {
		return nil, fmt.Errorf("ncio: reading variable %s from %s: %v", varName, n.path, err)
	}

	shape := make([]int, len(lengths))
	copy(shape, lengths)
	if di == 0 {
		shape[0] = s.End - s.Start
	}

	dtype, ok := goTypeDType(vg.GoType())
	if !ok || dtype == Char {
		return nil, NonNumericError{File: n.path, Variable: varName}
	}

	data := sparse.ZerosDense(shape...)
	if len(shape) == 0 {
		data = scalarDense(0)
	}
	if err := flattenInto(vals, data.Elements); err != nil {
		return nil, fmt.Errorf("ncio: reading variable %s from %s: %v", varName, n.path, err)
	}
	if di > 0 {
		data = subsetDim(data, di, s.Start, s.End)
		shape = data.Shape
	}

	n.maskFill(vg, data)
	return &VarData{Name: varName, DType: dtype, Dims: dims, Data: data}, nil
}

func (n *NativeFile) maskFill(vg api.VarGetter, data *sparse.DenseArray) {
	attrs := vg.Attributes()
	var raw []interface{}
	if v, ok := attrs.Get("_FillValue"); ok {
		raw = append(raw, v)
	}
	if v, ok := attrs.Get("missing_value"); ok {
		raw = append(raw, v)
	}
	fill, ok := fillValue(raw...)
	if !ok {
		return
	}
	for i, v := range data.Elements {
		if v == fill {
			data.Elements[i] = math.NaN()
		}
	}
}

// goTypeDType maps the library's Go type names to DType.
func goTypeDType(t string) (DType, bool) {
	switch t {
	case "int8", "uint8", "byte":
		return Int8, true
	case "int16", "uint16":
		return Int16, true
	case "int32", "uint32", "int", "uint":
		return Int32, true
	case "int64", "uint64":
		return Int64, true
	case "float32":
		return Float32, true
	case "float64":
		return Float64, true
	case "string":
		return Char, true
	}
	return 0, false
}

// nestedShape derives dimension sizes from nested value slices.
// ndims bounds the depth so that character data (strings) does not
// contribute a spurious dimension.
func nestedShape(vals interface{}, ndims int) []int {
	shape := make([]int, 0, ndims)
	v := reflect.ValueOf(vals)
	for i := 0; i < ndims && v.Kind() == reflect.Slice; i++ {
		shape = append(shape, v.Len())
		if v.Len() == 0 {
			break
		}
		v = v.Index(0)
	}
	for len(shape) < ndims {
		shape = append(shape, 0)
	}
	return shape
}

// flattenInto copies arbitrarily nested numeric slices into dst in
// row-major order.
func flattenInto(vals interface{}, dst []float64) error {
	i := 0
	var walk func(v reflect.Value) error
	walk = func(v reflect.Value) error {
		switch v.Kind() {
		case reflect.Slice, reflect.Array:
			for j := 0; j < v.Len(); j++ {
				if err := walk(v.Index(j)); err != nil {
					return err
				}
			}
			return nil
		case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
			if i >= len(dst) {
				return fmt.Errorf("more values than expected (%d)", len(dst))
			}
			dst[i] = float64(v.Int())
			i++
			return nil
		case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
			if i >= len(dst) {
				return fmt.Errorf("more values than expected (%d)", len(dst))
			}
			dst[i] = float64(v.Uint())
			i++
			return nil
		case reflect.Float32, reflect.Float64:
			if i >= len(dst) {
				return fmt.Errorf("more values than expected (%d)", len(dst))
			}
			dst[i] = v.Float()
			i++
			return nil
		default:
			return fmt.Errorf("unsupported value kind %v", v.Kind())
		}
	}
	if err := walk(reflect.ValueOf(vals)); err != nil {
		return err
	}
	if i != len(dst) {
		return fmt.Errorf("expected %d values, read %d", len(dst), i)
	}
	return nil
}
