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
	"context"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/spatialmodel/nccmp/ncio"
)

// DefaultSplitThreshold is the element count above which a variable with
// the separation dimension is compared slice-by-slice.
const DefaultSplitThreshold = 1 << 23

// coordMatchTol is the absolute tolerance used when aligning slices by
// coordinate value.
const coordMatchTol = 1e-9

// Options configures a comparison. The zero value compares whole
// variables with the default tolerance and epsilon.
type Options struct {
	// Tolerance is the absolute difference above which two elements are
	// counted as differing.
	Tolerance float64

	// Epsilon is the relative-difference denominator floor;
	// zero selects DefaultEpsilon.
	Epsilon float64

	// SplitDim names the separation dimension (e.g. "time"). Variables
	// that have this dimension and more than SplitThreshold elements are
	// compared slice-by-slice. Empty disables splitting.
	SplitDim string

	// SplitThreshold is the element count above which splitting applies;
	// zero splits every variable that has the separation dimension.
	SplitThreshold int

	// MatchCoords aligns split slices by coordinate-variable value
	// instead of by position, for files whose grids are offset.
	MatchCoords bool

	// Workers is the number of variables compared concurrently;
	// zero means runtime.GOMAXPROCS(0).
	Workers int

	// Log receives progress information; nil means the logrus
	// standard logger.
	Log *logrus.Logger
}

func (o *Options) diffOptions() *DiffOptions {
	return &DiffOptions{Tolerance: o.Tolerance, Epsilon: o.Epsilon}
}

// SliceDiff is the comparison of one aligned slice pair of a
// split variable.
type SliceDiff struct {
	IndexA, IndexB int
	LabelA, LabelB float64
	Diff           *VarDiffs
}

// VarEntry is the comparison outcome for one variable name.
type VarEntry struct {
	Name string

	// InfoA and InfoB are the per-file statistics; one of them is nil
	// when the variable exists in only one file.
	InfoA, InfoB *VarInfo

	// Diff holds the difference statistics when the variable was
	// compared. For a split variable it is the exact merge of the
	// per-slice diffs.
	Diff *VarDiffs

	// Slices holds the per-slice comparisons of a split variable.
	Slices []SliceDiff

	// MaxAbsSlice and MaxRelSlice index into Slices, locating the slice
	// where the merged maximum absolute and relative differences occur;
	// Diff's location indices are local to those slices. Both are -1
	// when the variable was not split or nothing was comparable.
	MaxAbsSlice, MaxRelSlice int

	// UnmatchedSlices counts slices whose coordinate label had no
	// counterpart in the other file.
	UnmatchedSlices int

	AOnly, BOnly bool
	NonNumeric   bool

	// Err records a per-variable read failure; the rest of the
	// comparison proceeds without this variable.
	Err error
}

// Differ reports whether the comparison found this variable's values,
// shapes, or missing patterns to disagree.
func (e *VarEntry) Differ() bool {
	if e.Diff != nil && e.Diff.VarsDiffer() {
		return true
	}
	return e.UnmatchedSlices > 0
}

// ComparisonResult is the ordered outcome of comparing two files:
// file 1's variables in declared order, then file-2-only variables in
// file 2's order.
type ComparisonResult struct {
	Path1, Path2 string
	Entries      []VarEntry

	// AOnly and BOnly list variables present in only one file.
	AOnly, BOnly []string

	NumCompared   int // variables with difference statistics
	NumDiffer     int // compared variables that differ
	NumFailed     int // variables that could not be read
	NumNonNumeric int // variables that cannot be compared numerically
}

// Identical reports whether the two files matched exactly: every shared
// variable compared equal and neither file has extra variables.
func (r *ComparisonResult) Identical() bool {
	return r.NumDiffer == 0 && r.NumFailed == 0 &&
		len(r.AOnly) == 0 && len(r.BOnly) == 0
}

// Compare compares every variable of a with every variable of b.
// Variables are processed concurrently, but the result preserves the
// deterministic name order regardless of completion order. A failure to
// read one variable is recorded on that variable's entry and does not
// abort the comparison; Compare itself only fails when ctx is canceled.
func Compare(ctx context.Context, a, b ncio.File, o *Options) (*ComparisonResult, error) {
	if o == nil {
		o = &Options{}
	}
	log := o.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	aNames := a.Variables()
	inA := make(map[string]struct{}, len(aNames))
	for _, n := range aNames {
		inA[n] = struct{}{}
	}
	inB := make(map[string]struct{})
	names := append([]string{}, aNames...)
	for _, n := range b.Variables() {
		inB[n] = struct{}{}
		if _, ok := inA[n]; !ok {
			names = append(names, n)
		}
	}

	entries := make([]VarEntry, len(names))
	nprocs := o.Workers
	if nprocs <= 0 {
		nprocs = runtime.GOMAXPROCS(0)
	}
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func(pp int) {
			defer wg.Done()
			for ii := pp; ii < len(names); ii += nprocs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				name := names[ii]
				_, hasA := inA[name]
				_, hasB := inB[name]
				log.WithFields(logrus.Fields{
					"variable": name,
					"file1":    a.Path(),
					"file2":    b.Path(),
				}).Debug("comparing variable")
				entries[ii] = compareVariable(a, b, name, hasA, hasB, o)
				if err := entries[ii].Err; err != nil {
					log.WithFields(logrus.Fields{
						"variable": name,
					}).Warnf("variable could not be analyzed: %v", err)
				}
			}
		}(pp)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := &ComparisonResult{Path1: a.Path(), Path2: b.Path(), Entries: entries}
	for i := range entries {
		e := &entries[i]
		switch {
		case e.Err != nil:
			r.NumFailed++
		case e.NonNumeric:
			r.NumNonNumeric++
		case e.Diff != nil:
			r.NumCompared++
			if e.Differ() {
				r.NumDiffer++
			}
		}
		if e.AOnly {
			r.AOnly = append(r.AOnly, e.Name)
		}
		if e.BOnly {
			r.BOnly = append(r.BOnly, e.Name)
		}
	}
	return r, nil
}

// compareVariable builds the entry for one variable name. Boundary errors
// are captured on the entry, never propagated.
func compareVariable(a, b ncio.File, name string, hasA, hasB bool, o *Options) VarEntry {
	e := VarEntry{Name: name, MaxAbsSlice: -1, MaxRelSlice: -1}
	if hasA != hasB {
		// Present in one file only: compute single-file statistics.
		e.AOnly, e.BOnly = hasA, hasB
		f := a
		if hasB {
			f = b
		}
		info, err := readInfo(f, name)
		e.Err = filterNonNumeric(&e, err)
		if hasA {
			e.InfoA = info
		} else {
			e.InfoB = info
		}
		return e
	}

	if splitVar(a, name, o) && splitVar(b, name, o) {
		return compareSplit(a, b, name, o)
	}

	va, err := a.GetValues(name, nil)
	if err != nil {
		e.Err = filterNonNumeric(&e, err)
		return e
	}
	vb, err := b.GetValues(name, nil)
	if err != nil {
		e.Err = filterNonNumeric(&e, err)
		return e
	}
	if e.InfoA, err = NewVarInfo(va); err != nil {
		e.Err = err
		return e
	}
	if e.InfoB, err = NewVarInfo(vb); err != nil {
		e.Err = err
		return e
	}
	e.Diff = NewVarDiffs(name, va, vb, o.diffOptions())
	return e
}

// readInfo reads a variable and computes its statistics in one step.
func readInfo(f ncio.File, name string) (*VarInfo, error) {
	vd, err := f.GetValues(name, nil)
	if err != nil {
		return nil, err
	}
	return NewVarInfo(vd)
}

// filterNonNumeric turns a NonNumericError into the entry's NonNumeric
// flag; any other error passes through.
func filterNonNumeric(e *VarEntry, err error) error {
	if _, ok := err.(ncio.NonNumericError); ok {
		e.NonNumeric = true
		return nil
	}
	return err
}

// splitVar reports whether the variable should be compared slice-by-slice.
func splitVar(f ncio.File, name string, o *Options) bool {
	if o.SplitDim == "" {
		return false
	}
	dims, err := f.Dimensions(name)
	if err != nil {
		return false
	}
	has := false
	for _, d := range dims {
		if d == o.SplitDim {
			has = true
			break
		}
	}
	if !has {
		return false
	}
	lengths, err := f.Lengths(name)
	if err != nil {
		return false
	}
	n := 1
	for _, l := range lengths {
		n *= l
	}
	return n > o.SplitThreshold
}

// compareSplit compares a variable slice-by-slice along the separation
// dimension, aligning slices by position or, when requested and possible,
// by coordinate value. Whole-variable statistics are merged exactly from
// the per-slice passes, so the full arrays are never resident at once.
func compareSplit(a, b ncio.File, name string, o *Options) VarEntry {
	e := VarEntry{Name: name, MaxAbsSlice: -1, MaxRelSlice: -1}
	sa, err := NewSplitter(a, name, o.SplitDim)
	if err != nil {
		e.Err = err
		return e
	}
	sb, err := NewSplitter(b, name, o.SplitDim)
	if err != nil {
		e.Err = err
		return e
	}

	pairs, unmatched := alignSlices(sa, sb, o.MatchCoords)
	e.UnmatchedSlices = unmatched

	dimsA, _ := a.Dimensions(name)
	dimsB, _ := b.Dimensions(name)
	var accA, accB infoAccum
	var dtypeA, dtypeB ncio.DType
	usedA := make([]bool, sa.Len())
	usedB := make([]bool, sb.Len())
	dAcc := newDiffAccum(name)
	for _, p := range pairs {
		va, err := sa.Slice(p[0])
		if err != nil {
			e.Err = filterNonNumeric(&e, err)
			return e
		}
		vb, err := sb.Slice(p[1])
		if err != nil {
			e.Err = filterNonNumeric(&e, err)
			return e
		}
		usedA[p[0]], usedB[p[1]] = true, true
		dtypeA, dtypeB = va.DType, vb.DType
		ia, err := NewVarInfo(va)
		if err != nil {
			e.Err = err
			return e
		}
		ib, err := NewVarInfo(vb)
		if err != nil {
			e.Err = err
			return e
		}
		accA.add(ia)
		accB.add(ib)
		d := NewVarDiffs(name, va, vb, o.diffOptions())
		dAcc.add(d)
		e.Slices = append(e.Slices, SliceDiff{
			IndexA: p[0], IndexB: p[1],
			LabelA: sa.Label(p[0]), LabelB: sb.Label(p[1]),
			Diff: d,
		})
	}

	// Unpaired slices contribute no difference statistics but still
	// belong in the per-file statistics.
	if dtypeA, err = accumUnpaired(sa, usedA, &accA, dtypeA); err != nil {
		e.Err = filterNonNumeric(&e, err)
		return e
	}
	if dtypeB, err = accumUnpaired(sb, usedB, &accB, dtypeB); err != nil {
		e.Err = filterNonNumeric(&e, err)
		return e
	}
	if accA.n > 0 {
		e.InfoA = accA.finish(name, dimsA, sa.Shape(), dtypeA)
	}
	if accB.n > 0 {
		e.InfoB = accB.finish(name, dimsB, sb.Shape(), dtypeB)
	}

	e.Diff = dAcc.finish()
	switch {
	case !shapeEqual(sa.Shape(), sb.Shape()):
		e.Diff.shapesMatch = false
		e.Diff.setUndefined()
	case len(pairs) == 0:
		// Shapes agree but no slice could be aligned; no elementwise
		// statistics are defined.
		e.Diff.setUndefined()
	default:
		e.MaxAbsSlice = dAcc.maxAbsSlice
		e.MaxRelSlice = dAcc.maxRelSlice
	}
	return e
}

// accumUnpaired folds the statistics of the slices pairing left unused
// into the per-file accumulator.
func accumUnpaired(s *Splitter, used []bool, acc *infoAccum, dtype ncio.DType) (ncio.DType, error) {
	for i, u := range used {
		if u {
			continue
		}
		vd, err := s.Slice(i)
		if err != nil {
			return dtype, err
		}
		dtype = vd.DType
		info, err := NewVarInfo(vd)
		if err != nil {
			return dtype, err
		}
		acc.add(info)
	}
	return dtype, nil
}

// alignSlices pairs slice indices of the two splitters, positionally or by
// coordinate value. It returns the pairs and the number of slices left
// unmatched on either side.
func alignSlices(sa, sb *Splitter, matchCoords bool) (pairs [][2]int, unmatched int) {
	if matchCoords && sa.HasCoord() && sb.HasCoord() {
		used := make([]bool, sb.Len())
		for i := 0; i < sa.Len(); i++ {
			found := false
			for j := 0; j < sb.Len(); j++ {
				if !used[j] && floats.EqualWithinAbs(sa.Label(i), sb.Label(j), coordMatchTol) {
					pairs = append(pairs, [2]int{i, j})
					used[j] = true
					found = true
					break
				}
			}
			if !found {
				unmatched++
			}
		}
		for _, u := range used {
			if !u {
				unmatched++
			}
		}
		return pairs, unmatched
	}
	n := sa.Len()
	if sb.Len() < n {
		n = sb.Len()
	}
	for i := 0; i < n; i++ {
		pairs = append(pairs, [2]int{i, i})
	}
	if sa.Len() != sb.Len() {
		unmatched = sa.Len() + sb.Len() - 2*n
	}
	return pairs, unmatched
}
