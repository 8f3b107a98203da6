package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/multiply-org/multiply-core/internal/batch"
	"github.com/multiply-org/multiply-core/pkg/errors"
	"github.com/multiply-org/multiply-core/pkg/types"
)

func newFileRefCmd(opts *rootOptions) *cobra.Command {
	var output string
	var jobs int

	cmd := &cobra.Command{
		Use:   "fileref TYPE PATH...",
		Short: "Create file references",
		Long: `Creates a file reference {url, start_time, end_time, mime_type} for each
path of the given data type. Paths that yield no reference are skipped with
a warning.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dataType := args[0]
			creation := opts.app.creation

			known := false
			for _, name := range creation.DataTypes() {
				if name == dataType {
					known = true
					break
				}
			}
			if !known {
				return errors.Newf(errors.ErrCodeUnknownType, "no file reference creator for data type %q", dataType).
					WithComponent("cli")
			}

			processor := batch.NewProcessor(func(_ context.Context, p string) (*types.FileRef, error) {
				return creation.GetFileRef(dataType, p)
			}, jobs)
			results, stats, err := processor.Process(commandContext(cmd), args[1:])
			if err != nil {
				return err
			}

			refs := make([]types.FileRef, 0, len(results))
			for _, r := range results {
				if r.Err != nil {
					opts.app.logger.Warn("skipping path", "path", r.Input, "data_type", dataType, "error", r.Err)
					continue
				}
				if r.Value != nil {
					refs = append(refs, *r.Value)
				}
			}
			opts.app.logger.Debug("created file references", "data_type", dataType,
				"paths", stats.Processed, "failed", stats.Failed, "refs", len(refs), "duration", stats.Duration)
			if len(refs) == 0 {
				return errors.Newf(errors.ErrCodeMetadataMissing, "no file reference could be created for %s", dataType).
					WithComponent("cli")
			}
			types.SortByStartTime(refs)
			return writeRefs(cmd, refs, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format: json or yaml")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Paths processed concurrently (default: number of CPUs)")
	return cmd
}

// commandContext returns the command's context, which is nil when the
// command is run without ExecuteContext.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func writeRefs(cmd *cobra.Command, refs []types.FileRef, format string) error {
	var data []byte
	var err error
	switch format {
	case "json":
		data, err = json.MarshalIndent(refs, "", "  ")
		data = append(data, '\n')
	case "yaml":
		data, err = yaml.Marshal(refs)
	default:
		return errors.Newf(errors.ErrCodeInvalidConfig, "unknown output format %q", format).
			WithComponent("cli")
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to encode file references").
			WithComponent("cli")
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), string(data))
	return err
}
