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
	"os"
)

// Backend selects which NetCDF library reads a file.
type Backend string

const (
	// Auto chooses by the file's magic number: classic files are read
	// with the cdf backend, HDF5-based files with the native backend.
	Auto Backend = "auto"
	// CDF forces the github.com/ctessum/cdf backend (classic only).
	CDF Backend = "cdf"
	// Native forces the github.com/batchatco/go-native-netcdf backend.
	Native Backend = "native"
)

const (
	magicCDF = 'C'
	magicHDF = 0x89
)

// Open opens a NetCDF file with the requested backend.
func Open(path string, backend Backend) (File, error) {
	switch backend {
	case CDF:
		return OpenCDF(path)
	case Native:
		return OpenNative(path)
	case Auto, "":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("ncio: opening NetCDF file %s: %v", path, err)
		}
		var magic [1]byte
		_, err = f.Read(magic[:])
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("ncio: reading NetCDF file %s: %v", path, err)
		}
		switch magic[0] {
		case magicCDF:
			return OpenCDF(path)
		case magicHDF:
			return OpenNative(path)
		}
		return nil, fmt.Errorf("ncio: %s is not a NetCDF file", path)
	}
	return nil, fmt.Errorf("ncio: unknown backend %q", backend)
}
