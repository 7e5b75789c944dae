package cli

import (
	"context"
	"strings"

	"github.com/alvarorichard/Gomanga/internal/models"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func (a *app) listCmd(use, short string) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:               use + " <source>",
		Short:             short,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: a.completeSources,
		RunE: func(cmd *cobra.Command, args []string) error {
			fetch := a.registry.Popular
			if use == "latest" {
				fetch = a.registry.Latest
			}
			titles, err := fetch(cmd.Context(), args[0], page)
			if err != nil {
				return err
			}
			return writeTitles(cmd.OutOrStdout(), a.format, titles)
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "result page, starting at 1")
	return cmd
}

func (a *app) searchCmd() *cobra.Command {
	var (
		page    int
		all     bool
		filters []string
	)
	cmd := &cobra.Command{
		Use:   "search <source> [query...]",
		Short: "Search a source, or every source with --all",
		Example: `  gomanga search mangadex solo leveling
  gomanga search comick --filter genres=action --filter sort=rating
  gomanga search --all berserk`,
		ValidArgsFunction: a.completeSources,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				results := a.registry.SearchAll(cmd.Context(), strings.Join(args, " "))
				return writeSearchAll(cmd.OutOrStdout(), a.format, results)
			}
			if len(args) == 0 {
				return errors.New("a source is required unless --all is set")
			}

			parsed, err := parseFilters(filters)
			if err != nil {
				return err
			}
			titles, err := a.registry.Search(cmd.Context(), args[0], strings.Join(args[1:], " "), page, parsed)
			if err != nil {
				return err
			}
			return writeTitles(cmd.OutOrStdout(), a.format, titles)
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "result page, starting at 1")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "search every source at once")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "search filter as key=value, repeatable")
	return cmd
}

// parseFilters turns repeated key=value flags into a filter bag
func parseFilters(raw []string) (models.Filters, error) {
	filters := models.Filters{}
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.Errorf("filter %q is not in key=value form", kv)
		}
		filters[key] = append(filters[key], strings.TrimSpace(value))
	}
	return filters, nil
}

func (a *app) detailCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "detail <source> <title-id>",
		Aliases:           []string{"info"},
		Short:             "Show a title with its chapters or episodes",
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: a.completeSources,
		RunE: func(cmd *cobra.Command, args []string) error {
			title, err := a.registry.Detail(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return writeTitle(cmd.OutOrStdout(), a.format, title)
		},
	}
}

func (a *app) unitCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "unit <source> <unit-id>",
		Aliases:           []string{"chapter", "episode"},
		Short:             "Show the pages of a chapter or the stream of an episode",
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: a.completeSources,
		RunE: func(cmd *cobra.Command, args []string) error {
			unit, err := a.registry.Unit(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return writeUnit(cmd.OutOrStdout(), a.format, unit)
		},
	}
}

// titlesFor searches when a query is given and falls back to the popular listing
func (a *app) titlesFor(ctx context.Context, source, query string) ([]models.Title, error) {
	if strings.TrimSpace(query) == "" {
		return a.registry.Popular(ctx, source, 1)
	}
	return a.registry.Search(ctx, source, query, 1, nil)
}
