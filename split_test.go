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
	"reflect"
	"testing"

	"github.com/spatialmodel/nccmp/ncio"
)

func splitFixture() *memFile {
	return newMemFile("split.nc").
		addVar("time", []string{"time"}, []int{3}, ncio.Float64, []float64{100, 200, 300}).
		addVar("T", []string{"time", "x"}, []int{3, 2}, ncio.Float64,
			[]float64{1, 2, 3, 4, 5, 6}).
		addVar("P", []string{"x"}, []int{2}, ncio.Float64, []float64{7, 8})
}

func TestSplitter(t *testing.T) {
	f := splitFixture()
	s, err := NewSplitter(f, "T", "time")
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 3 {
		t.Fatalf("len: want 3, got %d", s.Len())
	}
	if !s.HasCoord() {
		t.Fatal("time coordinate variable must be used for labels")
	}
	for i, want := range []float64{100, 200, 300} {
		if s.Label(i) != want {
			t.Errorf("label %d: want %g, got %g", i, want, s.Label(i))
		}
	}
	want := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	for i := range want {
		vd, err := s.Slice(i)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(vd.Data.Elements, want[i]) {
			t.Errorf("slice %d: want %v, got %v", i, want[i], vd.Data.Elements)
		}
		if !reflect.DeepEqual(vd.Data.Shape, []int{2}) {
			t.Errorf("slice %d shape: the split dimension must be squeezed, got %v",
				i, vd.Data.Shape)
		}
		if !reflect.DeepEqual(vd.Dims, []string{"x"}) {
			t.Errorf("slice %d dims: want [x], got %v", i, vd.Dims)
		}
	}
}

// Each Slice call reads through the file again; the sequence can be
// iterated any number of times.
func TestSplitterRestartable(t *testing.T) {
	f := splitFixture()
	s, err := NewSplitter(f, "T", "time")
	if err != nil {
		t.Fatal(err)
	}
	reads0 := f.reads
	for pass := 0; pass < 2; pass++ {
		for i := 0; i < s.Len(); i++ {
			if _, err := s.Slice(i); err != nil {
				t.Fatal(err)
			}
		}
	}
	if got := f.reads - reads0; got != 2*s.Len() {
		t.Errorf("reads: want %d fresh reads, got %d", 2*s.Len(), got)
	}
}

func TestSplitterPositionalLabels(t *testing.T) {
	f := newMemFile("nocoord.nc").
		addVar("T", []string{"time", "x"}, []int{2, 2}, ncio.Float64,
			[]float64{1, 2, 3, 4})
	s, err := NewSplitter(f, "T", "time")
	if err != nil {
		t.Fatal(err)
	}
	if s.HasCoord() {
		t.Error("no coordinate variable exists")
	}
	for i := 0; i < s.Len(); i++ {
		if s.Label(i) != float64(i) {
			t.Errorf("positional label %d: got %g", i, s.Label(i))
		}
	}
}

func TestSplitterBadDim(t *testing.T) {
	f := splitFixture()
	if _, err := NewSplitter(f, "T", "height"); err == nil {
		t.Fatal("want DimensionError for unknown dimension")
	} else if _, ok := err.(ncio.DimensionError); !ok {
		t.Fatalf("want DimensionError, got %T", err)
	}
	// The dimension exists in the file but not on this variable.
	if _, err := NewSplitter(f, "P", "time"); err == nil {
		t.Fatal("want DimensionError for dimension not on variable")
	}
}
