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
	"math"

	"github.com/spatialmodel/nccmp/ncio"
)

// compensatedSumThreshold is the element count above which means are
// accumulated with compensated (Kahan) summation to bound floating-point
// error on large grids.
const compensatedSumThreshold = 10000

// VarInfo holds descriptive statistics for one variable from one file.
// All statistics are computed when the VarInfo is created, from a single
// pass over the values; the values themselves are not retained, and a
// VarInfo never re-reads from its source file. Scalar variables take the
// same path as arrays, with zero dimensions and a single element.
type VarInfo struct {
	name       string
	dtype      ncio.DType
	dims       []string
	shape      []int
	count      int
	min        float64
	max        float64
	mean       float64
	hasMissing bool
}

// NewVarInfo computes the statistics of vd. The returned VarInfo is
// immutable; vd.Data may be released afterward. An EmptyVariableError is
// returned if vd has a zero-length dimension.
func NewVarInfo(vd *ncio.VarData) (*VarInfo, error) {
	v := &VarInfo{
		name:  vd.Name,
		dtype: vd.DType,
		dims:  append([]string{}, vd.Dims...),
		shape: append([]int{}, vd.Data.Shape...),
	}
	elems := vd.Data.Elements
	if len(elems) == 0 {
		return nil, EmptyVariableError{Variable: vd.Name}
	}

	v.min = math.Inf(1)
	v.max = math.Inf(-1)
	var sum, comp float64
	kahan := len(elems) > compensatedSumThreshold
	for _, x := range elems {
		if math.IsNaN(x) {
			v.hasMissing = true
			continue
		}
		v.count++
		if x < v.min {
			v.min = x
		}
		if x > v.max {
			v.max = x
		}
		if kahan {
			y := x - comp
			t := sum + y
			comp = (t - sum) - y
			sum = t
		} else {
			sum += x
		}
	}
	if v.count == 0 {
		v.min = Undefined()
		v.max = Undefined()
		v.mean = Undefined()
	} else {
		v.mean = sum / float64(v.count)
	}
	return v, nil
}

// Name returns the variable name.
func (v *VarInfo) Name() string { return v.name }

// DType returns the variable's declared numeric kind.
func (v *VarInfo) DType() ncio.DType { return v.dtype }

// Dims returns the ordered dimension names (empty for a scalar).
func (v *VarInfo) Dims() []string { return v.dims }

// Shape returns the dimension sizes (empty for a scalar).
func (v *VarInfo) Shape() []int { return v.shape }

// Count returns the number of finite elements; missing elements
// are excluded.
func (v *VarInfo) Count() int { return v.count }

// Min returns the minimum over finite elements, or Undefined if
// every element is missing.
func (v *VarInfo) Min() float64 { return v.min }

// Max returns the maximum over finite elements, or Undefined if
// every element is missing.
func (v *VarInfo) Max() float64 { return v.max }

// Mean returns the mean over finite elements, or Undefined if
// every element is missing.
func (v *VarInfo) Mean() float64 { return v.mean }

// HasMissing reports whether any element is missing.
func (v *VarInfo) HasMissing() bool { return v.hasMissing }

// infoAccum merges the statistics of several VarInfos covering disjoint
// slices of one variable, so that a variable compared slice-by-slice still
// gets whole-variable statistics without a second read.
type infoAccum struct {
	count      int
	min, max   float64
	sum        float64 // Σ mean·count over slices
	comp       float64
	hasMissing bool
	n          int
}

func (a *infoAccum) add(v *VarInfo) {
	if a.n == 0 {
		a.min = math.Inf(1)
		a.max = math.Inf(-1)
	}
	a.n++
	a.hasMissing = a.hasMissing || v.hasMissing
	if v.count == 0 {
		return
	}
	a.count += v.count
	if v.min < a.min {
		a.min = v.min
	}
	if v.max > a.max {
		a.max = v.max
	}
	y := v.mean*float64(v.count) - a.comp
	t := a.sum + y
	a.comp = (t - a.sum) - y
	a.sum = t
}

func (a *infoAccum) finish(name string, dims []string, shape []int, dtype ncio.DType) *VarInfo {
	v := &VarInfo{
		name:       name,
		dtype:      dtype,
		dims:       append([]string{}, dims...),
		shape:      append([]int{}, shape...),
		count:      a.count,
		min:        a.min,
		max:        a.max,
		hasMissing: a.hasMissing,
	}
	if a.count == 0 {
		v.min = Undefined()
		v.max = Undefined()
		v.mean = Undefined()
	} else {
		v.mean = a.sum / float64(a.count)
	}
	return v
}
