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

const (
	// DefaultTolerance is the absolute difference above which two
	// corresponding elements are counted in NDiffs. The default of zero
	// counts every nonzero difference.
	DefaultTolerance = 0

	// DefaultEpsilon is the floor applied to the denominator of relative
	// differences, |a-b| / max(max(|a|,|b|), epsilon), so that pairs of
	// near-zero values cannot produce a division by zero.
	DefaultEpsilon = 1e-12
)

// DiffOptions configures a VarDiffs computation. The zero value (or a nil
// pointer) selects DefaultTolerance and DefaultEpsilon.
type DiffOptions struct {
	Tolerance float64
	Epsilon   float64
}

func (o *DiffOptions) tolerance() float64 {
	if o == nil {
		return DefaultTolerance
	}
	return o.Tolerance
}

func (o *DiffOptions) epsilon() float64 {
	if o == nil || o.Epsilon == 0 {
		return DefaultEpsilon
	}
	return o.Epsilon
}

// VarDiffs holds difference statistics between two variables that carry the
// same name in two files. All statistics are computed in one pass over the
// paired values when the VarDiffs is created; the arrays themselves are not
// retained. Statistics that could not be computed, either because the shapes
// do not match or because no element is valid in both arrays, are reported
// as the Undefined sentinel rather than zero.
//
// Elements that are missing in both arrays agree trivially and are excluded
// from the numeric statistics. Elements missing in exactly one array are
// excluded too, and counted in MissingMismatchCount.
type VarDiffs struct {
	name        string
	shapesMatch bool
	dtypesMatch bool

	maxAbsDiff float64
	maxAbsLoc  int
	maxRelDiff float64
	maxRelLoc  int
	rmsDiff    float64
	normRMS    float64
	logAvgRel  float64
	nDiffs     int

	bothHaveMissing bool
	missingMatches  bool
	missingMismatch int

	// raw accumulators, kept so that slice-wise diffs of one variable
	// can be merged exactly (see diffAccum).
	nValid   int
	nNonzero int
	sumSq    float64
	sumAbsA  float64
	sumAbsB  float64
	logSum   float64
	hasMissA bool
	hasMissB bool
	allMissA bool
	allMissB bool
}

// NewVarDiffs compares a against b. The two arrays must already be in
// memory; after construction they may be released. A nil opts selects the
// documented defaults.
func NewVarDiffs(name string, a, b *ncio.VarData, opts *DiffOptions) *VarDiffs {
	d := &VarDiffs{
		name:        name,
		dtypesMatch: a.DType == b.DType,
		shapesMatch: shapeEqual(a.Data.Shape, b.Data.Shape),
	}
	if !d.shapesMatch {
		// Elementwise comparison of mismatched shapes would be
		// meaningless; report sentinels only.
		d.setUndefined()
		return d
	}
	d.compute(a.Data.Elements, b.Data.Elements, opts.tolerance(), opts.epsilon())
	return d
}

func (d *VarDiffs) setUndefined() {
	d.maxAbsDiff = Undefined()
	d.maxRelDiff = Undefined()
	d.rmsDiff = Undefined()
	d.normRMS = Undefined()
	d.logAvgRel = Undefined()
	d.maxAbsLoc = -1
	d.maxRelLoc = -1
	d.nDiffs = 0
}

// compute performs the single statistics pass. Every numeric output is
// produced here; no partial result is observable because the VarDiffs is
// not published until the pass completes.
func (d *VarDiffs) compute(ea, eb []float64, tol, eps float64) {
	d.maxAbsLoc = -1
	d.maxRelLoc = -1
	validA, validB := 0, 0
	var sumSqComp float64
	for i := range ea {
		av, bv := ea[i], eb[i]
		aMiss, bMiss := math.IsNaN(av), math.IsNaN(bv)
		if !aMiss {
			validA++
		}
		if !bMiss {
			validB++
		}
		if aMiss != bMiss {
			d.missingMismatch++
			continue
		}
		if aMiss {
			continue
		}
		d.nValid++
		diff := av - bv
		ad := math.Abs(diff)
		if ad > d.maxAbsDiff || d.maxAbsLoc < 0 {
			d.maxAbsDiff = ad
			d.maxAbsLoc = i
		}
		if ad > tol {
			d.nDiffs++
		}
		y := diff*diff - sumSqComp
		t := d.sumSq + y
		sumSqComp = (t - d.sumSq) - y
		d.sumSq = t
		d.sumAbsA += math.Abs(av)
		d.sumAbsB += math.Abs(bv)

		denom := math.Max(math.Abs(av), math.Abs(bv))
		if denom < eps {
			denom = eps
		}
		rd := ad / denom
		if rd > d.maxRelDiff || d.maxRelLoc < 0 {
			d.maxRelDiff = rd
			d.maxRelLoc = i
		}
		if diff != 0 {
			d.nNonzero++
			d.logSum += -math.Log10(rd)
		}
	}

	d.hasMissA = validA < len(ea)
	d.hasMissB = validB < len(eb)
	d.allMissA = validA == 0 && len(ea) > 0
	d.allMissB = validB == 0 && len(eb) > 0
	d.bothHaveMissing = d.hasMissA && d.hasMissB
	d.missingMatches = d.missingMismatch == 0
	d.finalize()
}

// finalize derives the reported statistics from the accumulators.
func (d *VarDiffs) finalize() {
	switch {
	case d.allMissA && d.allMissB:
		// Two entirely-missing arrays agree trivially.
		d.maxAbsDiff, d.maxRelDiff, d.rmsDiff, d.normRMS, d.logAvgRel = 0, 0, 0, 0, 0
		d.maxAbsLoc, d.maxRelLoc = -1, -1
	case d.nValid == 0:
		// Nothing was comparable; zero here would falsely report
		// "no difference".
		d.setUndefined()
	default:
		d.rmsDiff = math.Sqrt(d.sumSq / float64(d.nValid))
		norm := (d.sumAbsA + d.sumAbsB) / (2 * float64(d.nValid))
		switch {
		case norm > 0:
			d.normRMS = d.rmsDiff / norm
		case d.sumSq == 0:
			d.normRMS = 0
		default:
			d.normRMS = Undefined()
		}
		if d.nNonzero > 0 {
			d.logAvgRel = d.logSum / float64(d.nNonzero)
		} else {
			d.logAvgRel = Undefined()
		}
	}
}

// Name returns the variable name.
func (d *VarDiffs) Name() string { return d.name }

// ShapesMatch reports whether the two variables have identical shapes.
// When false, every numeric statistic is Undefined.
func (d *VarDiffs) ShapesMatch() bool { return d.shapesMatch }

// DTypesMatch reports whether the two variables have the same declared
// numeric kind. A mismatch does not prevent comparison: values are widened
// to float64 at the read boundary.
func (d *VarDiffs) DTypesMatch() bool { return d.dtypesMatch }

// MaxAbsDiff returns the largest absolute difference over elements valid
// in both arrays.
func (d *VarDiffs) MaxAbsDiff() float64 { return d.maxAbsDiff }

// MaxAbsDiffLoc returns the flat row-major index where MaxAbsDiff occurs,
// or -1 if it is Undefined. For statistics merged from a slice-by-slice
// comparison the index is local to the slice holding the maximum; see
// VarEntry.MaxAbsSlice.
func (d *VarDiffs) MaxAbsDiffLoc() int { return d.maxAbsLoc }

// MaxRelDiff returns the largest relative difference,
// |a-b| / max(max(|a|,|b|), epsilon).
func (d *VarDiffs) MaxRelDiff() float64 { return d.maxRelDiff }

// MaxRelDiffLoc returns the flat row-major index where MaxRelDiff occurs,
// or -1 if it is Undefined. Like MaxAbsDiffLoc, the index is slice-local
// for merged statistics.
func (d *VarDiffs) MaxRelDiffLoc() int { return d.maxRelLoc }

// RMSDiff returns the root-mean-square of the elementwise differences.
func (d *VarDiffs) RMSDiff() float64 { return d.rmsDiff }

// NormalizedRMSDiff returns RMSDiff divided by the mean magnitude of the
// two arrays. It is 0 when both arrays are all zero, and Undefined when the
// magnitude is zero but the differences are not.
func (d *VarDiffs) NormalizedRMSDiff() float64 { return d.normRMS }

// LogAvgRelDiff returns the average of -log10 of the relative differences
// over differing elements; larger values mean closer agreement. Undefined
// when no elements differ.
func (d *VarDiffs) LogAvgRelDiff() float64 { return d.logAvgRel }

// NDiffs returns the number of element pairs whose absolute difference
// exceeds the tolerance.
func (d *VarDiffs) NDiffs() int { return d.nDiffs }

// ValidCount returns the number of element pairs valid in both arrays.
func (d *VarDiffs) ValidCount() int { return d.nValid }

// BothHaveMissing reports whether each array contains at least one
// missing element.
func (d *VarDiffs) BothHaveMissing() bool { return d.bothHaveMissing }

// MissingPatternMatches reports whether the two arrays are missing in
// exactly the same locations.
func (d *VarDiffs) MissingPatternMatches() bool { return d.missingMatches }

// MissingMismatchCount returns the number of elements missing in exactly
// one of the two arrays.
func (d *VarDiffs) MissingMismatchCount() int { return d.missingMismatch }

// VarsDiffer reports whether the comparison found any disagreement:
// a shape mismatch, a nonzero difference, or mismatched missing patterns.
func (d *VarDiffs) VarsDiffer() bool {
	if !d.shapesMatch {
		return true
	}
	if d.missingMismatch > 0 {
		return true
	}
	if IsUndefined(d.maxAbsDiff) {
		return false
	}
	return d.maxAbsDiff > 0
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// diffAccum merges the VarDiffs of disjoint slices of one variable into
// whole-variable difference statistics, using the raw accumulators so the
// merge is exact. The maximum-difference locations stay slice-local;
// maxAbsSlice and maxRelSlice record which added slice holds them.
type diffAccum struct {
	n           int
	maxAbsSlice int
	maxRelSlice int
	total       VarDiffs
}

func newDiffAccum(name string) *diffAccum {
	return &diffAccum{
		maxAbsSlice: -1,
		maxRelSlice: -1,
		total: VarDiffs{
			name:        name,
			shapesMatch: true,
			dtypesMatch: true,
			maxAbsLoc:   -1,
			maxRelLoc:   -1,
			allMissA:    true,
			allMissB:    true,
		},
	}
}

func (a *diffAccum) add(d *VarDiffs) {
	idx := a.n
	a.n++
	t := &a.total
	t.shapesMatch = t.shapesMatch && d.shapesMatch
	t.dtypesMatch = t.dtypesMatch && d.dtypesMatch
	if !t.shapesMatch {
		return
	}
	if !IsUndefined(d.maxAbsDiff) && (d.maxAbsDiff > t.maxAbsDiff || t.maxAbsLoc < 0 && d.maxAbsLoc >= 0) {
		t.maxAbsDiff = d.maxAbsDiff
		t.maxAbsLoc = d.maxAbsLoc
		a.maxAbsSlice = idx
	}
	if !IsUndefined(d.maxRelDiff) && (d.maxRelDiff > t.maxRelDiff || t.maxRelLoc < 0 && d.maxRelLoc >= 0) {
		t.maxRelDiff = d.maxRelDiff
		t.maxRelLoc = d.maxRelLoc
		a.maxRelSlice = idx
	}
	t.nDiffs += d.nDiffs
	t.nValid += d.nValid
	t.nNonzero += d.nNonzero
	t.sumSq += d.sumSq
	t.sumAbsA += d.sumAbsA
	t.sumAbsB += d.sumAbsB
	t.logSum += d.logSum
	t.missingMismatch += d.missingMismatch
	t.hasMissA = t.hasMissA || d.hasMissA
	t.hasMissB = t.hasMissB || d.hasMissB
	t.allMissA = t.allMissA && d.allMissA
	t.allMissB = t.allMissB && d.allMissB
}

func (a *diffAccum) finish() *VarDiffs {
	t := &a.total
	if !t.shapesMatch {
		t.setUndefined()
		return t
	}
	if a.n == 0 {
		t.allMissA, t.allMissB = false, false
	}
	// An array may be missing in one slice and complete in another, so
	// this flag must be derived from the per-side merges rather than
	// from any single slice.
	t.bothHaveMissing = t.hasMissA && t.hasMissB
	t.missingMatches = t.missingMismatch == 0
	t.finalize()
	return t
}
