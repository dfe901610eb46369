package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"arxenbot/internal/kb"
)

var errDuplicates = errors.New("duplicate patterns found")

func (a *app) kbCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Knowledge base maintenance",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "override directory (defaults to kb.dir from config, then the embedded data)")

	load := func() (*kb.Corpus, error) {
		if dir == "" {
			dir = a.cfg.KB.Dir
		}
		c, err := kb.LoadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to load knowledge base: %w", err)
		}
		return c, nil
	}

	var strict bool
	check := &cobra.Command{
		Use:   "check",
		Short: "Validate entries and report patterns that appear more than once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			dups := kb.FindDuplicates(c)
			if len(dups) == 0 {
				fmt.Fprintf(out, "%s: %d entries, no duplicate patterns\n", c.Origin(), c.Len())
				return nil
			}
			for _, d := range dups {
				refs := make([]string, len(d.Refs))
				for i, r := range d.Refs {
					refs[i] = r.String()
				}
				fmt.Fprintf(out, "duplicate %q: %s\n", d.Pattern, strings.Join(refs, ", "))
			}
			fmt.Fprintf(out, "%d duplicate patterns\n", len(dups))
			if strict {
				return errDuplicates
			}
			return nil
		},
	}
	check.Flags().BoolVar(&strict, "strict", false, "exit non-zero when duplicates are found")

	count := &cobra.Command{
		Use:   "count",
		Short: "Print entry and pattern totals per source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := load()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SOURCE\tENTRIES\tPATTERNS\tUNIQUE")
			for _, s := range kb.Stats(c) {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", s.Source, s.Entries, s.Patterns, s.Unique)
			}
			return tw.Flush()
		},
	}

	patterns := &cobra.Command{
		Use:   "patterns",
		Short: "List every distinct normalised pattern",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := load()
			if err != nil {
				return err
			}
			for _, p := range kb.SortedPatterns(c) {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}

	cmd.AddCommand(check, count, patterns)
	return cmd
}
