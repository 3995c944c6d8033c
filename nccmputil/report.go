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
	"fmt"
	"io"
	"strings"

	"github.com/spatialmodel/nccmp"
)

// Report writes a human-readable rendering of r: one block per variable
// followed by a summary verdict. When verbose is true, the per-slice
// statistics of split variables are included.
func Report(w io.Writer, r *nccmp.ComparisonResult, verbose bool) error {
	if _, err := fmt.Fprintf(w, "Comparing  %s\n     with  %s\n\n", r.Path1, r.Path2); err != nil {
		return err
	}
	for i := range r.Entries {
		e := &r.Entries[i]
		if err := reportEntry(w, e, verbose); err != nil {
			return err
		}
	}
	return reportSummary(w, r)
}

func reportEntry(w io.Writer, e *nccmp.VarEntry, verbose bool) error {
	switch {
	case e.Err != nil:
		_, err := fmt.Fprintf(w, "%-24s could not be analyzed: %v\n", e.Name, e.Err)
		return err
	case e.NonNumeric:
		_, err := fmt.Fprintf(w, "%-24s non-numeric variable could not be analyzed\n", e.Name)
		return err
	case e.AOnly || e.BOnly:
		in, notIn := 1, 2
		if e.BOnly {
			in, notIn = 2, 1
		}
		if _, err := fmt.Fprintf(w, "%-24s found in file %d but not in file %d\n",
			e.Name, in, notIn); err != nil {
			return err
		}
		info := e.InfoA
		if e.BOnly {
			info = e.InfoB
		}
		return reportInfo(w, in, info)
	}

	if _, err := fmt.Fprintf(w, "%-24s (%s)\n", e.Name, dimString(e.InfoA)); err != nil {
		return err
	}
	if err := reportInfo(w, 1, e.InfoA); err != nil {
		return err
	}
	if err := reportInfo(w, 2, e.InfoB); err != nil {
		return err
	}
	d := e.Diff
	if !d.ShapesMatch() {
		_, err := fmt.Fprintf(w, "  DIMSIZEDIFF  variable dimension sizes differ; values were not compared\n")
		return err
	}
	if !d.DTypesMatch() {
		if _, err := fmt.Fprintf(w, "  TYPEDIFF     compared after widening cast\n"); err != nil {
			return err
		}
	}
	if !d.MissingPatternMatches() {
		if _, err := fmt.Fprintf(w, "  FILLDIFF     %d elements missing in only one file\n",
			d.MissingMismatchCount()); err != nil {
			return err
		}
	}
	if d.VarsDiffer() {
		if _, err := fmt.Fprintf(w,
			"  RMS %-20s %s   NORMALIZED %s\n  NDIFFS %8d   MAX ABS DIFF %s at %s   MAX REL DIFF %s at %s\n",
			e.Name, stat(d.RMSDiff()), stat(d.NormalizedRMSDiff()),
			d.NDiffs(), stat(d.MaxAbsDiff()), locString(e, e.MaxAbsSlice, d.MaxAbsDiffLoc()),
			stat(d.MaxRelDiff()), locString(e, e.MaxRelSlice, d.MaxRelDiffLoc())); err != nil {
			return err
		}
	}
	if verbose {
		for _, s := range e.Slices {
			if _, err := fmt.Fprintf(w,
				"    slice %v : %v  MAX ABS DIFF %s  NDIFFS %d\n",
				s.LabelA, s.LabelB, stat(s.Diff.MaxAbsDiff()), s.Diff.NDiffs()); err != nil {
				return err
			}
		}
	}
	return nil
}

// locString renders a maximum-difference location. For a variable compared
// slice-by-slice the flat index is local to the winning slice, so the slice
// label is printed alongside it.
func locString(e *nccmp.VarEntry, slice, loc int) string {
	if slice >= 0 && slice < len(e.Slices) {
		return fmt.Sprintf("slice %v element %d", e.Slices[slice].LabelA, loc)
	}
	return fmt.Sprintf("%d", loc)
}

func reportInfo(w io.Writer, filenum int, v *nccmp.VarInfo) error {
	if v == nil {
		return nil
	}
	_, err := fmt.Fprintf(w, "  file %d: %8d %-8s min %s  max %s  mean %s%s\n",
		filenum, v.Count(), v.DType(), stat(v.Min()), stat(v.Max()), stat(v.Mean()),
		missingNote(v))
	return err
}

func missingNote(v *nccmp.VarInfo) string {
	if v.HasMissing() {
		return "  (has missing values)"
	}
	return ""
}

func dimString(v *nccmp.VarInfo) string {
	if v == nil || len(v.Dims()) == 0 {
		return "scalar"
	}
	parts := make([]string, len(v.Dims()))
	for i, d := range v.Dims() {
		parts[i] = fmt.Sprintf("%s=%d", d, v.Shape()[i])
	}
	return strings.Join(parts, ",")
}

// stat formats a statistic, spelling out the undefined sentinel.
func stat(v float64) string {
	if nccmp.IsUndefined(v) {
		return "  undefined"
	}
	return fmt.Sprintf("%11.4E", v)
}

func reportSummary(w io.Writer, r *nccmp.ComparisonResult) error {
	if _, err := fmt.Fprintf(w,
		"\nSUMMARY: %d variables compared, %d differ, %d could not be analyzed\n",
		r.NumCompared, r.NumDiffer, r.NumFailed+r.NumNonNumeric); err != nil {
		return err
	}
	if len(r.AOnly) > 0 {
		if _, err := fmt.Fprintf(w, "         %d variables in file 1 only: %s\n",
			len(r.AOnly), strings.Join(r.AOnly, " ")); err != nil {
			return err
		}
	}
	if len(r.BOnly) > 0 {
		if _, err := fmt.Fprintf(w, "         %d variables in file 2 only: %s\n",
			len(r.BOnly), strings.Join(r.BOnly, " ")); err != nil {
			return err
		}
	}
	verdict := "IDENTICAL"
	if !r.Identical() {
		verdict = "DIFFERENT"
	}
	_, err := fmt.Fprintf(w, "diff_test: the two files appear to be %s\n", verdict)
	return err
}
