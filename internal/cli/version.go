package cli

import (
	"fmt"
	"runtime"

	"github.com/alvarorichard/Gomanga/internal/scraper"
	"github.com/alvarorichard/Gomanga/internal/updater"
	"github.com/alvarorichard/Gomanga/internal/version"
	"github.com/spf13/cobra"
)

func versionCmd() *cobra.Command {
	var (
		check      bool
		releaseAPI string
	)
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// skip config loading
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			version.ShowVersion(out, len(scraper.Builtins))
			if !check {
				return nil
			}

			checker, err := updater.NewChecker(releaseAPI)
			if err != nil {
				return err
			}
			release, newer, err := checker.CheckForUpdates(cmd.Context())
			if err != nil {
				return err
			}
			if !newer {
				fmt.Fprintln(out, "You are running the latest version.")
				return nil
			}

			fmt.Fprintf(out, "New version available: %s\n", release.TagName)
			asset, err := updater.FindAsset(release, updater.PlatformInfo{OS: runtime.GOOS, Arch: runtime.GOARCH})
			if err != nil {
				fmt.Fprintln(out, release.HTMLURL)
				return nil
			}
			fmt.Fprintln(out, asset.BrowserDownloadURL)
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "check GitHub for a newer release")
	cmd.Flags().StringVar(&releaseAPI, "release-api", updater.GitHubAPI, "releases API base URL")
	_ = cmd.Flags().MarkHidden("release-api")
	return cmd
}
