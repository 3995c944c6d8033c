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
	"fmt"
	"math"
)

// EmptyVariableError reports a variable whose shape contains a zero-length
// dimension, so that it has no elements at all. This is distinct from a
// variable whose elements are all missing.
type EmptyVariableError struct {
	Variable string
}

func (e EmptyVariableError) Error() string {
	return fmt.Sprintf("nccmp: variable %s has no elements", e.Variable)
}

// Undefined is the sentinel value reported for statistics that could not be
// computed, such as the mean of an all-missing variable or the difference
// statistics of variables whose shapes do not match. It is distinguishable
// from every genuine statistic because missing elements are excluded before
// any arithmetic, so a computed statistic is never NaN.
func Undefined() float64 { return math.NaN() }

// IsUndefined reports whether v is the Undefined sentinel.
func IsUndefined(v float64) bool { return math.IsNaN(v) }
