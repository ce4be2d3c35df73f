package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"relmap-backend/domain/core/aggregates"
	"relmap-backend/infrastructure/persistence/snapshot"
)

var okLabel = color.New(color.FgGreen, color.Bold).Sprint("ok")

type rootOptions struct {
	lenient  bool
	maxBytes int64
	verbose  bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "relmap",
		Short:        "Inspect and upgrade character relationship map snapshots.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().BoolVar(&opts.lenient, "lenient", false, "accept relations whose endpoints are missing")
	cmd.PersistentFlags().Int64Var(&opts.maxBytes, "max-bytes", 10<<20, "largest accepted snapshot in bytes")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log migration and import details to stderr")

	addValidate(cmd, opts)
	addMigrate(cmd, opts)
	addStats(cmd, opts)
	return cmd
}

func (o *rootOptions) codec() (*snapshot.Codec, error) {
	logger := zap.NewNop()
	if o.verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, err
		}
	}
	return snapshot.NewCodec(
		snapshot.WithStrictReferences(!o.lenient),
		snapshot.WithMaxBytes(o.maxBytes),
		snapshot.WithLogger(logger),
	), nil
}

// prepare reads, migrates and validates the snapshot at path
func (o *rootOptions) prepare(ctx context.Context, path string) (*snapshot.Codec, snapshot.Document, snapshot.Result, error) {
	codec, err := o.codec()
	if err != nil {
		return nil, snapshot.Document{}, snapshot.Result{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, snapshot.Document{}, snapshot.Result{}, err
	}
	defer f.Close()

	doc, result, err := codec.Prepare(ctx, f)
	if err != nil {
		return nil, snapshot.Document{}, result, fmt.Errorf("%s: %w", path, err)
	}
	return codec, doc, result, nil
}

func addValidate(topLevel *cobra.Command, opts *rootOptions) {
	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Check that a snapshot can be imported.",
		Example: `
relmap validate char-relmap.v3.json
relmap validate --lenient old-map.json
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, doc, result, err := opts.prepare(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n", okLabel, args[0])
			if result.Migrated {
				fmt.Fprintf(out, "  version %d, migrates to %d\n", result.FromVersion, result.Version)
			} else {
				fmt.Fprintf(out, "  version %d\n", result.Version)
			}
			fmt.Fprintf(out, "  %d characters, %d relations, %d sheets\n",
				len(doc.Characters), len(doc.Relations), len(doc.Sheets))
			return nil
		},
	}
	topLevel.AddCommand(cmd)
}

func addMigrate(topLevel *cobra.Command, opts *rootOptions) {
	var output string

	cmd := &cobra.Command{
		Use:   "migrate FILE",
		Short: "Upgrade a snapshot to the current version.",
		Long: "Upgrade a snapshot to the current version. The result goes to stdout\n" +
			"unless -o names a file.",
		Example: `
relmap migrate old-map.json -o char-relmap.v3.json
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, doc, result, err := opts.prepare(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if doc.App == "" {
				doc.App = snapshot.DefaultAppTag
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := codec.Encode(w, doc); err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "migrated %s from version %d to %d: %s\n",
					args[0], result.FromVersion, result.Version, output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the migrated snapshot to this file")
	topLevel.AddCommand(cmd)
}

func addStats(topLevel *cobra.Command, opts *rootOptions) {
	cmd := &cobra.Command{
		Use:   "stats FILE",
		Short: "Count the entities in a snapshot after import.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := opts.codec()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			store := aggregates.NewStore()
			result, err := codec.Import(cmd.Context(), store, f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			s := result.Stats
			tbl := uitable.New()
			tbl.Separator = "  "
			tbl.AddRow("characters:", s.Characters)
			tbl.AddRow("relations:", s.Relations)
			tbl.AddRow("tag keys:", s.TagKeys)
			tbl.AddRow("sheets:", s.Sheets)
			tbl.AddRow("groups:", s.Groups)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tbl)
			return err
		},
	}
	topLevel.AddCommand(cmd)
}
