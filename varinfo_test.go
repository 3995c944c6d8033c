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
	"math/rand"
	"testing"

	"github.com/GaryBoone/GoStats/stats"
	"github.com/ctessum/sparse"

	"github.com/spatialmodel/nccmp/ncio"
)

const testTolerance = 1e-10

func testVar(name string, dims []string, shape []int, vals []float64) *ncio.VarData {
	var data *sparse.DenseArray
	if len(shape) == 0 {
		data = &sparse.DenseArray{Shape: []int{}, Elements: vals}
	} else {
		data = sparse.ZerosDense(shape...)
		copy(data.Elements, vals)
	}
	return &ncio.VarData{
		Name:  name,
		DType: ncio.Float64,
		Dims:  dims,
		Data:  data,
	}
}

func TestVarInfo(t *testing.T) {
	v, err := NewVarInfo(testVar("T", []string{"x"}, []int{4}, []float64{3, 1, 4, 2}))
	if err != nil {
		t.Fatal(err)
	}
	if v.Count() != 4 {
		t.Errorf("count: want 4, got %d", v.Count())
	}
	if v.Min() != 1 || v.Max() != 4 {
		t.Errorf("min/max: want 1/4, got %g/%g", v.Min(), v.Max())
	}
	if math.Abs(v.Mean()-2.5) > testTolerance {
		t.Errorf("mean: want 2.5, got %g", v.Mean())
	}
	if v.HasMissing() {
		t.Error("no elements are missing")
	}
	if v.Mean() < v.Min() || v.Mean() > v.Max() {
		t.Errorf("mean %g outside [%g,%g]", v.Mean(), v.Min(), v.Max())
	}
}

func TestVarInfoMissing(t *testing.T) {
	v, err := NewVarInfo(testVar("T", []string{"x"}, []int{3},
		[]float64{1, 2, math.NaN()}))
	if err != nil {
		t.Fatal(err)
	}
	if v.Count() != 2 {
		t.Errorf("count excludes missing: want 2, got %d", v.Count())
	}
	if !v.HasMissing() {
		t.Error("HasMissing: want true")
	}
	if math.Abs(v.Mean()-1.5) > testTolerance {
		t.Errorf("mean over finite elements: want 1.5, got %g", v.Mean())
	}
}

func TestVarInfoAllMissing(t *testing.T) {
	v, err := NewVarInfo(testVar("T", []string{"x"}, []int{2},
		[]float64{math.NaN(), math.NaN()}))
	if err != nil {
		t.Fatal(err)
	}
	if v.Count() != 0 {
		t.Errorf("count: want 0, got %d", v.Count())
	}
	for n, s := range map[string]float64{"min": v.Min(), "max": v.Max(), "mean": v.Mean()} {
		if !IsUndefined(s) {
			t.Errorf("%s of all-missing variable: want undefined, got %g", n, s)
		}
	}
}

// A scalar variable must travel the same path as arrays, with count 1 when
// the value is finite and 0 otherwise.
func TestVarInfoScalar(t *testing.T) {
	v, err := NewVarInfo(testVar("c", nil, nil, []float64{7}))
	if err != nil {
		t.Fatal(err)
	}
	single, err := NewVarInfo(testVar("c1", []string{"x"}, []int{1}, []float64{7}))
	if err != nil {
		t.Fatal(err)
	}
	if v.Count() != single.Count() || v.Min() != single.Min() ||
		v.Max() != single.Max() || v.Mean() != single.Mean() {
		t.Errorf("scalar and single-element array disagree: %v vs %v", v, single)
	}
	if len(v.Shape()) != 0 {
		t.Errorf("scalar shape: want empty, got %v", v.Shape())
	}

	missing, err := NewVarInfo(testVar("c2", nil, nil, []float64{math.NaN()}))
	if err != nil {
		t.Fatal(err)
	}
	if missing.Count() != 0 || !missing.HasMissing() {
		t.Errorf("missing scalar: count %d, hasMissing %v", missing.Count(), missing.HasMissing())
	}
}

func TestVarInfoEmpty(t *testing.T) {
	_, err := NewVarInfo(testVar("e", []string{"x"}, []int{0}, nil))
	if _, ok := err.(EmptyVariableError); !ok {
		t.Fatalf("want EmptyVariableError, got %v", err)
	}
}

// Compare the compensated-summation mean on a large array against an
// independent implementation.
func TestVarInfoMeanLarge(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	n := compensatedSumThreshold * 2
	vals := make([]float64, n)
	var ref stats.Stats
	for i := range vals {
		vals[i] = rng.Float64()*1e6 - 5e5
		ref.Update(vals[i])
	}
	v, err := NewVarInfo(testVar("big", []string{"n"}, []int{n}, vals))
	if err != nil {
		t.Fatal(err)
	}
	if v.Count() != ref.Count() {
		t.Errorf("count: want %d, got %d", ref.Count(), v.Count())
	}
	if math.Abs(v.Mean()-ref.Mean()) > 1e-6 {
		t.Errorf("mean: want %g, got %g", ref.Mean(), v.Mean())
	}
	if v.Min() != ref.Min() || v.Max() != ref.Max() {
		t.Errorf("min/max: want %g/%g, got %g/%g", ref.Min(), ref.Max(), v.Min(), v.Max())
	}
}

func TestInfoAccum(t *testing.T) {
	a, err := NewVarInfo(testVar("s0", []string{"x"}, []int{3}, []float64{1, 2, 3}))
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewVarInfo(testVar("s1", []string{"x"}, []int{3},
		[]float64{4, math.NaN(), 6}))
	if err != nil {
		t.Fatal(err)
	}
	var acc infoAccum
	acc.add(a)
	acc.add(b)
	merged := acc.finish("s", []string{"t", "x"}, []int{2, 3}, ncio.Float64)
	if merged.Count() != 5 {
		t.Errorf("merged count: want 5, got %d", merged.Count())
	}
	if merged.Min() != 1 || merged.Max() != 6 {
		t.Errorf("merged min/max: want 1/6, got %g/%g", merged.Min(), merged.Max())
	}
	if math.Abs(merged.Mean()-16.0/5) > testTolerance {
		t.Errorf("merged mean: want %g, got %g", 16.0/5, merged.Mean())
	}
	if !merged.HasMissing() {
		t.Error("merged HasMissing: want true")
	}
}
