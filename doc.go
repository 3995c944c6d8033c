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

// Package nccmp compares the variables of two NetCDF datasets and computes
// per-variable descriptive and difference statistics. It is used to check
// that two runs of a numerical model produce equivalent output within
// tolerance, for example after a compiler or platform change.
//
// Statistics are computed once, when a VarInfo or VarDiffs is constructed,
// from a single read of the underlying values; after construction the raw
// arrays can be released. File access goes through the ncio.File interface,
// so the engine is independent of which NetCDF library backs a file.
package nccmp

// Version gives the version number of this version of nccmp.
const Version = "0.1.0"
