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

// Command nccmp is a command-line interface for comparing the variables of
// two NetCDF files.
package main

import (
	"fmt"
	"os"

	"github.com/spatialmodel/nccmp/nccmputil"
)

func main() {
	if err := nccmputil.Root.Execute(); err != nil {
		if err == nccmputil.ErrFilesDiffer {
			os.Exit(1)
		}
		fmt.Println(err)
		os.Exit(-1)
	}
}
