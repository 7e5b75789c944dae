package cli

import (
	"github.com/alvarorichard/Gomanga/internal/models"
	"github.com/spf13/cobra"
)

func (a *app) sourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sources",
		Aliases: []string{"ls"},
		Short:   "List the registered sources",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeSources(cmd.OutOrStdout(), a.format, a.registry.Sources())
		},
	}
	cmd.AddCommand(a.filtersCmd())
	return cmd
}

func (a *app) filtersCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "filters <source>",
		Short:             "Show the search filters a source accepts",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: a.completeSources,
		RunE: func(cmd *cobra.Command, args []string) error {
			groups, err := a.registry.Filters(args[0])
			if err != nil {
				return err
			}
			if ok, err := encode(cmd.OutOrStdout(), a.format, groups); ok {
				return err
			}
			var rows [][]string
			for _, g := range groups {
				if len(g.Options) == 0 {
					rows = append(rows, []string{g.Key, multi(g), "(free text)", ""})
				}
				for _, o := range g.Options {
					rows = append(rows, []string{g.Key, multi(g), o.Label, o.Value})
				}
			}
			return renderTable(cmd.OutOrStdout(), []string{"Key", "Select", "Label", "Value"}, rows)
		},
	}
}

func multi(g models.FilterGroup) string {
	if g.Multi {
		return "many"
	}
	return "one"
}
