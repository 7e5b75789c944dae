package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alvarorichard/Gomanga/internal/models"
	"github.com/alvarorichard/Gomanga/internal/scraper"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var formats = []string{formatTable, formatJSON, formatYAML}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF69B4")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00BFFF"))
)

func validFormat(format string) error {
	if !lo.Contains(formats, format) {
		return errors.Errorf("unknown format %q, want one of %s", format, strings.Join(formats, ", "))
	}
	return nil
}

// encode writes v as JSON or YAML; ok is false for the table format
func encode(w io.Writer, format string, v any) (ok bool, err error) {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return true, enc.Encode(v)
	}
	return false, nil
}

func renderTable(w io.Writer, headers []string, rows [][]string) error {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func writeSources(w io.Writer, format string, sources []scraper.SourceInfo) error {
	if ok, err := encode(w, format, sources); ok {
		return err
	}
	return renderTable(w, []string{"Name", "Kind", "Base URL"}, lo.Map(sources, func(s scraper.SourceInfo, _ int) []string {
		return []string{s.Name, string(s.Kind), s.BaseURL}
	}))
}

func writeTitles(w io.Writer, format string, titles []models.Title) error {
	if ok, err := encode(w, format, models.Summaries(titles)); ok {
		return err
	}
	if len(titles) == 0 {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}
	return renderTable(w, []string{"ID", "Title", "Status", "Units", "Rating"}, lo.Map(titles, func(t models.Title, _ int) []string {
		return []string{t.ID, truncate(t.Name, 60), string(t.Status), strconv.Itoa(t.UnitCount), formatRating(t.Rating)}
	}))
}

func writeTitle(w io.Writer, format string, t models.Title) error {
	if ok, err := encode(w, format, t.Get()); ok {
		return err
	}

	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(w, "%s %s\n", labelStyle.Render(label+":"), value)
		}
	}
	field("Title", t.Name)
	field("ID", t.ID)
	field("URL", t.SourceURL)
	field("Author", t.Author)
	field("Status", string(t.Status))
	field("Rating", formatRating(t.Rating))
	field("Genres", strings.Join(t.Genres, ", "))
	field("Cover", t.Cover)
	if t.Description != "" {
		fmt.Fprintf(w, "\n%s\n", t.Description)
	}

	labels := t.SortedLabels()
	if len(labels) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	return renderTable(w, []string{t.Kind.UnitNoun(), "ID"}, lo.Map(labels, func(label string, _ int) []string {
		return []string{label, truncate(t.Units[label], 60)}
	}))
}

func writeUnit(w io.Writer, format string, u models.Unit) error {
	if ok, err := encode(w, format, u.Get()); ok {
		return err
	}

	fmt.Fprintln(w, labelStyle.Render(u.Name))
	if u.Stream != nil {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Stream:"), u.Stream.URL)
		if u.Stream.Quality != "" {
			fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Quality:"), u.Stream.Quality)
		}
		return nil
	}
	for i, page := range u.Pages {
		fmt.Fprintf(w, "%3d  %s\n", i+1, page)
	}
	return nil
}

func writeSearchAll(w io.Writer, format string, results []scraper.SourceResults) error {
	type entry struct {
		Source string           `json:"source" yaml:"source"`
		Titles []models.Summary `json:"titles" yaml:"titles"`
		Error  string           `json:"error,omitempty" yaml:"error,omitempty"`
	}
	entries := lo.Map(results, func(r scraper.SourceResults, _ int) entry {
		e := entry{Source: r.Source, Titles: models.Summaries(r.Titles)}
		if r.Err != nil {
			e.Error = r.Err.Error()
		}
		return e
	})
	if ok, err := encode(w, format, entries); ok {
		return err
	}

	var rows [][]string
	for _, r := range results {
		if r.Err != nil {
			rows = append(rows, []string{r.Source, "", "unavailable", ""})
			continue
		}
		for _, t := range r.Titles {
			rows = append(rows, []string{r.Source, t.ID, truncate(t.Name, 50), string(t.Status)})
		}
	}
	return renderTable(w, []string{"Source", "ID", "Title", "Status"}, rows)
}

func formatRating(r float64) string {
	if r == models.NoRating {
		return "-"
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
