package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"

	"github.com/multiply-org/multiply-core/internal/gdal"
	"github.com/multiply-org/multiply-core/pkg/errors"
	"github.com/multiply-org/multiply-core/pkg/types"
)

func newTypesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the registered data types",
		Long: `Lists every registered data type in classification order, whether it can be
filtered by region and time, and its file pattern.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := opts.app.registry
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tFILTERABLE\tPATTERN")
			for _, name := range registry.GetValidTypes() {
				fmt.Fprintf(w, "%s\t%t\t%s\n", name,
					registry.SupportsSpatioTemporalFilter(name), registry.GetFilePattern(name))
			}
			return w.Flush()
		},
	}
}

func newClassifyCmd(opts *rootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "classify PATH...",
		Short: "Print the data type of each path",
		Long: `Prints the data type of each path, or "-" when no registered type accepts it.
With --all every matching type is printed instead of the first one.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := opts.app.registry
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, p := range args {
				var found string
				if all {
					found = strings.Join(registry.MatchingTypes(p), ",")
				} else {
					found = registry.GetValidType(p)
				}
				if found == "" {
					found = "-"
				}
				fmt.Fprintf(w, "%s\t%s\n", p, found)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Print every matching data type")
	return cmd
}

func newValidForCmd(opts *rootOptions) *cobra.Command {
	var roiText, roiSRS, startText, endText string

	cmd := &cobra.Command{
		Use:   "valid-for TYPE PATH",
		Short: "Check a path against a region of interest and time window",
		Long: `Reports whether PATH is a valid item of TYPE intersecting the region of
interest and overlapping the inclusive time window. An omitted region or
time bound does not constrain.

The region is a WKT polygon in WGS84 longitude/latitude unless --roi-srs
names another reference system.

Example:
  multiply valid-for MCD43A1.006 MCD43A1.A2017250.h17v05.006.2017261201257.hdf \
    --roi "POLYGON((-6 34, -4 34, -4 36, -6 36, -6 34))" --start 2017-09-01 --end 2017-09-30`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dataType, p := args[0], args[1]
			registry := opts.app.registry
			if _, ok := registry.Validator(dataType); !ok {
				return errors.Newf(errors.ErrCodeUnknownType, "unknown data type %q", dataType).
					WithComponent("cli")
			}

			roi, err := parseRegion(roiText, roiSRS)
			if err != nil {
				return err
			}
			start, err := parseTime(startText, "start")
			if err != nil {
				return err
			}
			end, err := parseTime(endText, "end")
			if err != nil {
				return err
			}

			valid, err := registry.IsValidFor(p, dataType, roi, start, end)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), valid)
			return nil
		},
	}
	cmd.Flags().StringVar(&roiText, "roi", "", "Region of interest as WKT")
	cmd.Flags().StringVar(&roiSRS, "roi-srs", "", "Reference system of --roi (EPSG code or WKT)")
	cmd.Flags().StringVar(&startText, "start", "", "Window start (YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS)")
	cmd.Flags().StringVar(&endText, "end", "", "Window end (YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS)")
	return cmd
}

// parseRegion parses a WKT region, reprojecting it to WGS84 first when srs
// is set. An empty text gives a nil region.
func parseRegion(text, srs string) (geom.T, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if srs != "" {
		reprojected, err := gdal.ReprojectToWGS84(text, parseSRS(srs))
		if err != nil {
			return nil, err
		}
		text = reprojected
	}
	g, err := wkt.Unmarshal(text)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidRegion, "invalid region of interest").
			WithComponent("cli")
	}
	return g, nil
}

// parseTime parses a date or timestamp flag. An empty value gives the zero
// time.
func parseTime(value, name string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := types.ParseRefTime(value)
	if err != nil {
		return time.Time{}, errors.Wrap(err, errors.ErrCodeInvalidConfig, "invalid time").
			WithComponent("cli").
			WithContext("flag", name)
	}
	return t, nil
}
