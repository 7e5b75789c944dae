// Package updater checks GitHub for newer gomanga releases
package updater

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/alvarorichard/Gomanga/internal/util"
	"github.com/alvarorichard/Gomanga/internal/version"
	"github.com/pkg/errors"
)

const (
	GitHubOwner = "alvarorichard"
	GitHubRepo  = "Gomanga"
	GitHubAPI   = "https://api.github.com/repos/" + GitHubOwner + "/" + GitHubRepo
)

// GitHubRelease represents a GitHub release
type GitHubRelease struct {
	TagName string  `json:"tag_name"`
	Name    string  `json:"name"`
	Body    string  `json:"body"`
	HTMLURL string  `json:"html_url"`
	Assets  []Asset `json:"assets"`
}

// Asset is one downloadable file of a release
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// PlatformInfo identifies the running binary's target
type PlatformInfo struct {
	OS   string
	Arch string
}

// Checker queries the releases API
type Checker struct {
	client *util.Client
	api    string
}

// NewChecker builds a checker against api, or GitHubAPI when empty
func NewChecker(api string) (*Checker, error) {
	if api == "" {
		api = GitHubAPI
	}
	client, err := util.NewClient(util.ClientOptions{
		Headers: map[string]string{"Accept": "application/vnd.github+json"},
	})
	if err != nil {
		return nil, err
	}
	return &Checker{client: client, api: strings.TrimRight(api, "/")}, nil
}

// CheckForUpdates fetches the latest release and reports whether it is newer
// than the running version
func (c *Checker) CheckForUpdates(ctx context.Context) (*GitHubRelease, bool, error) {
	release, err := util.FetchJSON[GitHubRelease](ctx, c.client, util.Request{URL: c.api + "/releases/latest"}).Get()
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to fetch latest release")
	}

	isNewer, err := isVersionNewer(strings.TrimPrefix(release.TagName, "v"), strings.TrimPrefix(version.Version, "v"))
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to compare versions")
	}
	util.Debug("Checked for updates", "latest", release.TagName, "current", version.Version, "newer", isNewer)
	return &release, isNewer, nil
}

// isVersionNewer compares dotted numeric versions, padding the shorter one with zeros
func isVersionNewer(latest, current string) (bool, error) {
	latestParts := strings.Split(latest, ".")
	currentParts := strings.Split(current, ".")

	maxLen := max(len(latestParts), len(currentParts))
	for len(latestParts) < maxLen {
		latestParts = append(latestParts, "0")
	}
	for len(currentParts) < maxLen {
		currentParts = append(currentParts, "0")
	}

	for i := range maxLen {
		latestNum, err := strconv.Atoi(latestParts[i])
		if err != nil {
			return false, fmt.Errorf("invalid version format in latest: %s", latest)
		}
		currentNum, err := strconv.Atoi(currentParts[i])
		if err != nil {
			return false, fmt.Errorf("invalid version format in current: %s", current)
		}

		if latestNum != currentNum {
			return latestNum > currentNum, nil
		}
	}
	return false, nil
}

// FindAsset picks the release asset built for platform
func FindAsset(release *GitHubRelease, platform PlatformInfo) (Asset, error) {
	var expectedNames []string
	switch platform.OS {
	case "windows":
		expectedNames = []string{
			fmt.Sprintf("gomanga-windows-%s.exe", platform.Arch),
			"gomanga-windows.exe",
			"gomanga.exe",
		}
	case "darwin":
		expectedNames = []string{
			fmt.Sprintf("gomanga-darwin-%s", platform.Arch),
			"gomanga-darwin-universal",
			"gomanga-darwin",
		}
	case "linux":
		expectedNames = []string{
			fmt.Sprintf("gomanga-linux-%s", platform.Arch),
			"gomanga-linux",
			"gomanga",
		}
	default:
		return Asset{}, fmt.Errorf("unsupported platform: %s", platform.OS)
	}

	// earlier names win
	for _, expected := range expectedNames {
		for _, asset := range release.Assets {
			if strings.EqualFold(asset.Name, expected) {
				return asset, nil
			}
		}
	}
	return Asset{}, fmt.Errorf("no compatible asset found for %s/%s", platform.OS, platform.Arch)
}
