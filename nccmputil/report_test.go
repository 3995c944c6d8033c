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

package nccmputil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ctessum/cdf"

	"github.com/spatialmodel/nccmp"
	"github.com/spatialmodel/nccmp/ncio"
)

// writeTestFile creates a NetCDF file with a (time=2, x=3) variable T and,
// optionally, an extra variable only this file has.
func writeTestFile(t *testing.T, path string, tVals []float32, extraVar string) {
	t.Helper()
	h := cdf.NewHeader([]string{"time", "x"}, []int{2, 3})
	h.AddVariable("T", []string{"time", "x"}, []float32{0})
	if extraVar != "" {
		h.AddVariable(extraVar, []string{"x"}, []float64{0})
	}
	h.Define()
	for _, err := range h.Check() {
		t.Fatal(err)
	}
	ff, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	f, err := cdf.Create(ff, h)
	if err != nil {
		t.Fatal(err)
	}
	w := f.Writer("T", []int{0, 0}, []int{2, 3})
	if _, err := w.Write(tVals); err != nil {
		t.Fatal(err)
	}
	if extraVar != "" {
		w = f.Writer(extraVar, []int{0}, []int{3})
		if _, err := w.Write([]float64{1, 2, 3}); err != nil {
			t.Fatal(err)
		}
	}
	if err := cdf.UpdateNumRecs(ff); err != nil {
		t.Fatal(err)
	}
	if err := ff.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestCompareFilesIdentical(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "run1.nc")
	p2 := filepath.Join(dir, "run2.nc")
	vals := []float32{1, 2, 3, 4, 5, 6}
	writeTestFile(t, p1, vals, "")
	writeTestFile(t, p2, vals, "")

	r, err := CompareFiles(context.Background(), p1, p2, ncio.Auto, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Identical() {
		t.Fatal("identical files must compare identical")
	}

	var buf bytes.Buffer
	if err := Report(&buf, r, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "IDENTICAL") {
		t.Errorf("report must state IDENTICAL:\n%s", buf.String())
	}
}

func TestCompareFilesDiffer(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "run1.nc")
	p2 := filepath.Join(dir, "run2.nc")
	writeTestFile(t, p1, []float32{1, 2, 3, 4, 5, 6}, "extra")
	writeTestFile(t, p2, []float32{1, 2, 3, 4, 5, 7}, "")

	r, err := CompareFiles(context.Background(), p1, p2, ncio.Auto,
		&nccmp.Options{SplitDim: "time"})
	if err != nil {
		t.Fatal(err)
	}
	if r.Identical() {
		t.Fatal("differing files must not compare identical")
	}
	if r.NumDiffer != 1 {
		t.Errorf("differing variables: want 1, got %d", r.NumDiffer)
	}
	if len(r.AOnly) != 1 || r.AOnly[0] != "extra" {
		t.Errorf("AOnly: want [extra], got %v", r.AOnly)
	}

	var buf bytes.Buffer
	if err := Report(&buf, r, true); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"DIFFERENT",
		"RMS T",
		"found in file 1 but not in file 2",
		"slice",
		// |6-7| = 1 is the largest difference, in the second time slice
		// at local index 2. Without a time coordinate variable, the
		// slice label is the positional index.
		"MAX ABS DIFF  1.0000E+00 at slice 1 element 2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestReportShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "run1.nc")
	p2 := filepath.Join(dir, "run2.nc")
	writeTestFile(t, p1, []float32{1, 2, 3, 4, 5, 6}, "")

	// Same variable name with a different x extent.
	h := cdf.NewHeader([]string{"time", "x"}, []int{2, 4})
	h.AddVariable("T", []string{"time", "x"}, []float32{0})
	h.Define()
	for _, err := range h.Check() {
		t.Fatal(err)
	}
	ff, err := os.Create(p2)
	if err != nil {
		t.Fatal(err)
	}
	f, err := cdf.Create(ff, h)
	if err != nil {
		t.Fatal(err)
	}
	w := f.Writer("T", []int{0, 0}, []int{2, 4})
	if _, err := w.Write(make([]float32, 8)); err != nil {
		t.Fatal(err)
	}
	if err := cdf.UpdateNumRecs(ff); err != nil {
		t.Fatal(err)
	}
	if err := ff.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := CompareFiles(context.Background(), p1, p2, ncio.CDF, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Identical() {
		t.Fatal("shape mismatch is a difference")
	}
	var buf bytes.Buffer
	if err := Report(&buf, r, false); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "DIMSIZEDIFF") {
		t.Errorf("report missing DIMSIZEDIFF marker:\n%s", out)
	}
	// Shape mismatches report no difference statistics, sentinel or zero.
	if strings.Contains(out, "RMS T") {
		t.Errorf("shape-mismatch entry must not carry difference statistics:\n%s", out)
	}
}

func TestCompareOptions(t *testing.T) {
	opts, err := compareOptions(Cfg)
	if err != nil {
		t.Fatal(err)
	}
	if opts.SplitDim != "time" {
		t.Errorf("default SplitDim: want time, got %q", opts.SplitDim)
	}
	if opts.SplitThreshold != nccmp.DefaultSplitThreshold {
		t.Errorf("default SplitThreshold: want %d, got %d",
			nccmp.DefaultSplitThreshold, opts.SplitThreshold)
	}
	if opts.Tolerance != 0 {
		t.Errorf("default Tolerance: want 0, got %g", opts.Tolerance)
	}
}

func TestVersionCmd(t *testing.T) {
	var buf bytes.Buffer
	Root.SetOutput(&buf)
	Root.SetArgs([]string{"version"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), nccmp.Version) {
		t.Errorf("version output %q missing %q", buf.String(), nccmp.Version)
	}
}
