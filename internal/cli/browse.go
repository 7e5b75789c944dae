package cli

import (
	"fmt"

	"github.com/alvarorichard/Gomanga/internal/models"
	"github.com/alvarorichard/Gomanga/internal/scraper"
	"github.com/alvarorichard/Gomanga/internal/util"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// ErrNoResults is returned when an interactive search finds nothing to pick
var ErrNoResults = errors.New("no titles found")

func (a *app) browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "browse [source]",
		Short:             "Pick a title and a chapter or episode interactively",
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: a.completeSources,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			source := ""
			if len(args) == 1 {
				source = args[0]
			} else {
				names := lo.Map(a.registry.Sources(), func(s scraper.SourceInfo, _ int) string { return s.Name })
				_, picked, err := a.selectItem("Source", names)
				if err != nil {
					return err
				}
				source = picked
			}

			query, err := a.prompt("Search "+source+" (empty for popular)", 0)
			if err != nil {
				return err
			}
			util.Debug("Browsing", "source", source, "query", query)

			titles, err := a.titlesFor(ctx, source, query)
			if err != nil {
				return err
			}
			if len(titles) == 0 {
				return errors.Wrapf(ErrNoResults, "%s %q", source, query)
			}
			i, _, err := a.selectItem("Title", lo.Map(titles, func(t models.Title, _ int) string { return t.Name }))
			if err != nil {
				return err
			}

			title, err := a.registry.Detail(ctx, source, titles[i].ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, util.Heading(title.Name))

			labels := title.SortedLabels()
			if len(labels) == 0 {
				return errors.Errorf("%s has no %s", title.Name, title.Kind.UnitNoun())
			}
			_, label, err := a.selectItem(title.Kind.UnitNoun(), labels)
			if err != nil {
				return err
			}

			unit, err := a.registry.Unit(ctx, source, title.Units[label])
			if err != nil {
				return err
			}
			return writeUnit(out, a.format, unit)
		},
	}
}
