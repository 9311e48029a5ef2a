package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/itbidhan/asterisk/registry"
)

// outputFormat is a pflag.Value restricting --output to a known set of
// renderings, rather than accepting an arbitrary string.
type outputFormat string

const (
	formatText outputFormat = "text"
	formatWide outputFormat = "wide"
)

func (f *outputFormat) String() string { return string(*f) }
func (f *outputFormat) Type() string   { return "format" }
func (f *outputFormat) Set(v string) error {
	switch outputFormat(v) {
	case formatText, formatWide:
		*f = outputFormat(v)
		return nil
	default:
		return fmt.Errorf("invalid --output %q: want %q or %q", v, formatText, formatWide)
	}
}

var _ pflag.Value = (*outputFormat)(nil)

func newRootCmd(reg *registry.Registry) *cobra.Command {
	format := formatText

	root := &cobra.Command{
		Use:   "ao2ctl",
		Short: "Inspect live containers registered with the runtime",
	}
	root.PersistentFlags().Var(&format, "output", `output format: "text" or "wide"`)

	root.AddCommand(newListCmd(reg, &format), newStatsCmd(reg), newCheckCmd(reg))
	return root
}

func completeNames(reg *registry.Registry) func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return reg.Complete(toComplete), cobra.ShellCompDirectiveNoFileComp
	}
}

func newListCmd(reg *registry.Registry, format *outputFormat) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every registered container",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range reg.Complete("") {
				stats, err := reg.Stats(name)
				if err != nil {
					return err
				}
				if *format == formatWide {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s elements\n",
						stats.Name, stats.ID, humanize.Comma(stats.Elements))
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s elements\n",
						stats.Name, humanize.Comma(stats.Elements))
				}
			}
			return nil
		},
	}
}

func newStatsCmd(reg *registry.Registry) *cobra.Command {
	return &cobra.Command{
		Use:               "stats <name>",
		Short:             "Show a container's element count",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeNames(reg),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := reg.Stats(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "name:     %s\nid:       %s\nelements: %s\n",
				stats.Name, stats.ID, humanize.Comma(stats.Elements))
			return nil
		},
	}
}

func newCheckCmd(reg *registry.Registry) *cobra.Command {
	return &cobra.Command{
		Use:               "check <name>",
		Short:             "Verify a container's internal element count",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeNames(reg),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := reg.Check(args[0]); err != nil {
				return fmt.Errorf("check failed for %q: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
			return nil
		},
	}
}
