// Package cli implements the gomanga command line
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/alvarorichard/Gomanga/internal/config"
	"github.com/alvarorichard/Gomanga/internal/scraper"
	"github.com/alvarorichard/Gomanga/internal/util"
	"github.com/alvarorichard/Gomanga/internal/version"
	cc "github.com/ivanpirog/coloredcobra"
	"github.com/muesli/termenv"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries what every command needs once the root has been initialized
type app struct {
	registry *scraper.Registry
	fs       afero.Fs

	configDir string
	format    string

	// interactive hooks, replaced in tests
	selectItem func(label string, items []string) (int, string, error)
	prompt     func(label string, minLength int) (string, error)
}

// Option customizes the command tree
type Option func(*app)

// WithRegistry skips config loading and uses r for every command
func WithRegistry(r *scraper.Registry) Option {
	return func(a *app) { a.registry = r }
}

// WithPrompts replaces the interactive menu and text prompt
func WithPrompts(selectItem func(string, []string) (int, string, error), prompt func(string, int) (string, error)) Option {
	return func(a *app) { a.selectItem, a.prompt = selectItem, prompt }
}

// NewRootCmd builds the whole command tree
func NewRootCmd(opts ...Option) *cobra.Command {
	a := &app{
		fs:         afero.NewOsFs(),
		selectItem: util.SelectMenuItem,
		prompt:     util.Prompt,
	}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:           "gomanga",
		Short:         "Browse manga and anime from many sites through one interface",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if util.IsDebug && a.registry != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), a.registry.Perf().Report())
			}
		},
	}
	root.SetVersionTemplate(version.String() + "\n")

	flags := root.PersistentFlags()
	flags.Bool("debug", false, "enable debug logging")
	lo.Must0(viper.BindPFlag(config.LogDebug, flags.Lookup("debug")))
	flags.Duration("timeout", util.DefaultTimeout, "timeout of a single upstream request")
	lo.Must0(viper.BindPFlag(config.HTTPTimeout, flags.Lookup("timeout")))
	flags.Int("max-pages", scraper.DefaultMaxPages, "page ceiling of multi-page searches")
	lo.Must0(viper.BindPFlag(config.PaginationMaxPages, flags.Lookup("max-pages")))
	flags.StringVar(&a.configDir, "config-dir", config.Dir(), "directory holding "+config.FileName+".yaml")
	flags.StringVarP(&a.format, "format", "f", formatTable, "output format: table, json or yaml")
	lo.Must0(root.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return formats, cobra.ShellCompDirectiveNoFileComp
	}))

	root.AddCommand(
		a.sourcesCmd(),
		a.listCmd("popular", "List popular titles of a source"),
		a.listCmd("latest", "List recently updated titles of a source"),
		a.searchCmd(),
		a.detailCmd(),
		a.unitCmd(),
		a.browseCmd(),
		a.serveCmd(),
		versionCmd(),
	)
	return root
}

// init loads configuration and builds the registry once
func (a *app) init(cmd *cobra.Command) error {
	if err := validFormat(a.format); err != nil {
		return err
	}
	if a.registry != nil {
		return nil
	}

	if err := config.Setup(a.fs, a.configDir); err != nil {
		return err
	}
	util.SetDebugMode(config.Debug())
	util.InitLogger(cmd.ErrOrStderr())

	settings, err := config.Settings()
	if err != nil {
		return err
	}
	a.registry = scraper.NewRegistry(settings, scraper.Builtins)
	return nil
}

// completeSources offers registered source names for the first argument
func (a *app) completeSources(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return lo.Map(scraper.Builtins, func(p scraper.Provider, _ int) string { return p.Name }), cobra.ShellCompDirectiveNoFileComp
}

// Execute runs the CLI and exits non-zero on failure
func Execute(ctx context.Context) {
	root := NewRootCmd()
	if !termenv.EnvNoColor() {
		cc.Init(&cc.Config{
			RootCmd:       root,
			Headings:      cc.HiMagenta + cc.Bold + cc.Underline,
			Commands:      cc.HiCyan + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, util.ErrorHandler(err))
		os.Exit(1)
	}
}
