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

// Package nccmputil holds the command-line interface and report rendering
// for the nccmp NetCDF comparison tool.
package nccmputil

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/spatialmodel/nccmp"
	"github.com/spatialmodel/nccmp/ncio"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

// ErrFilesDiffer is returned by the compare command when the two files do
// not match; the executable turns it into a nonzero exit status.
var ErrFilesDiffer = errors.New("nccmp: files differ")

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to nccmp.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Tolerance",
			usage: `
              Tolerance is the absolute difference above which two corresponding
              elements are counted as differing. The default of zero counts every
              nonzero difference.`,
			shorthand:  "t",
			defaultVal: float64(nccmp.DefaultTolerance),
			flagsets:   []*pflag.FlagSet{compareCmd.Flags()},
		},
		{
			name: "Epsilon",
			usage: `
              Epsilon is the floor applied to relative-difference denominators
              to avoid division by zero.`,
			defaultVal: nccmp.DefaultEpsilon,
			flagsets:   []*pflag.FlagSet{compareCmd.Flags()},
		},
		{
			name: "SplitDim",
			usage: `
              SplitDim names the dimension along which large variables are
              compared one slice at a time (e.g. 'time'). Empty disables
              slice-by-slice comparison.`,
			defaultVal: "time",
			flagsets:   []*pflag.FlagSet{compareCmd.Flags()},
		},
		{
			name: "SplitThreshold",
			usage: `
              SplitThreshold is the element count above which a variable with
              the SplitDim dimension is compared slice-by-slice.`,
			defaultVal: int(nccmp.DefaultSplitThreshold),
			flagsets:   []*pflag.FlagSet{compareCmd.Flags()},
		},
		{
			name: "MatchCoords",
			usage: `
              MatchCoords aligns slices of split variables by the value of the
              coordinate variable instead of by position, for files whose
              grids are offset.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{compareCmd.Flags()},
		},
		{
			name: "Workers",
			usage: `
              Workers is the number of variables compared concurrently.
              Zero means the number of available processors.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{compareCmd.Flags()},
		},
		{
			name: "Backend",
			usage: `
              Backend selects the NetCDF reading library: 'auto' chooses by
              file magic number, 'cdf' forces the classic-format reader, and
              'native' forces the reader that also handles netCDF-4/HDF5.`,
			defaultVal: string(ncio.Auto),
			flagsets:   []*pflag.FlagSet{compareCmd.Flags()},
		},
		{
			name: "Verbose",
			usage: `
              Verbose enables per-slice output in the report and debug logging.`,
			shorthand:  "v",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("NCCMP")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(compareCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("nccmp: problem reading configuration file: %v", err)
		}
	}
	if Cfg.GetBool("Verbose") {
		logrus.SetLevel(logrus.DebugLevel)
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "nccmp",
	Short: "Compare two NetCDF files variable-by-variable.",
	Long: `nccmp compares the variables of two NetCDF datasets and reports
descriptive statistics and difference statistics for each variable, to check
that two model runs produce equivalent output within tolerance.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'NCCMP_var' where 'var' is
the name of the variable to be set.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of nccmp.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("nccmp v%s\n", nccmp.Version)
	},
	DisableAutoGenTag: true,
}

var compareCmd = &cobra.Command{
	Use:   "compare file1 file2",
	Short: "Compare the variables of two NetCDF files.",
	Long: `compare reads every variable of the two files, computes per-variable
statistics and difference statistics, and prints a report. The exit status
is nonzero when the files differ.`,
	Args:              cobra.ExactArgs(2),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := compareOptions(Cfg)
		if err != nil {
			return err
		}
		result, err := CompareFiles(context.Background(), args[0], args[1],
			ncio.Backend(Cfg.GetString("Backend")), opts)
		if err != nil {
			return err
		}
		if err := Report(os.Stdout, result, Cfg.GetBool("Verbose")); err != nil {
			return err
		}
		if !result.Identical() {
			return ErrFilesDiffer
		}
		return nil
	},
}

// compareOptions assembles engine options from the configuration.
func compareOptions(cfg *viper.Viper) (*nccmp.Options, error) {
	threshold, err := cast.ToIntE(cfg.Get("SplitThreshold"))
	if err != nil {
		return nil, fmt.Errorf("nccmp: invalid SplitThreshold: %v", err)
	}
	workers, err := cast.ToIntE(cfg.Get("Workers"))
	if err != nil {
		return nil, fmt.Errorf("nccmp: invalid Workers: %v", err)
	}
	return &nccmp.Options{
		Tolerance:      cfg.GetFloat64("Tolerance"),
		Epsilon:        cfg.GetFloat64("Epsilon"),
		SplitDim:       cfg.GetString("SplitDim"),
		SplitThreshold: threshold,
		MatchCoords:    cfg.GetBool("MatchCoords"),
		Workers:        workers,
	}, nil
}

// CompareFiles opens the two files with the requested backend and compares
// them.
func CompareFiles(ctx context.Context, path1, path2 string, backend ncio.Backend, opts *nccmp.Options) (*nccmp.ComparisonResult, error) {
	f1, err := ncio.Open(path1, backend)
	if err != nil {
		return nil, err
	}
	defer f1.Close()
	f2, err := ncio.Open(path2, backend)
	if err != nil {
		return nil, err
	}
	defer f2.Close()
	return nccmp.Compare(ctx, f1, f2, opts)
}
