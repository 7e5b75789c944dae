// Package config loads settings from defaults, an optional gomanga.yaml and GOMANGA_* environment variables
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/alvarorichard/Gomanga/internal/scraper"
	"github.com/alvarorichard/Gomanga/internal/util"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is prepended to every environment override, e.g. GOMANGA_HTTP_TIMEOUT
	EnvPrefix = "GOMANGA"
	// FileName is the config file name without extension
	FileName = "gomanga"
)

// EnvKeyReplacer maps config keys to environment variable names
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// ErrInvalid is returned when a configured value is out of range
var ErrInvalid = errors.New("invalid configuration")

// Dir returns the per-user config directory, or "" when the OS has none
func Dir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, FileName)
}

// Setup initializes the global viper instance. The config file is looked up
// in dirs and is optional.
func Setup(fs afero.Fs, dirs ...string) error {
	return setup(viper.GetViper(), fs, dirs)
}

func setup(v *viper.Viper, fs afero.Fs, dirs []string) error {
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.SetFs(fs)
	for _, dir := range lo.Compact(dirs) {
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(EnvKeyReplacer)

	v.SetTypeByDefaultValue(true)
	for _, f := range Fields {
		v.SetDefault(f.Key, f.Value)
		lo.Must0(v.BindEnv(f.Key))
	}

	if len(dirs) == 0 {
		return nil
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "reading config file")
	}
	util.Debug("Config file loaded", "path", v.ConfigFileUsed())
	return nil
}

// Settings builds the source settings from the global viper instance
func Settings() (scraper.Settings, error) {
	return settingsFrom(viper.GetViper())
}

func settingsFrom(v *viper.Viper) (scraper.Settings, error) {
	s := scraper.DefaultSettings()

	s.HTTP.Timeout = v.GetDuration(HTTPTimeout)
	if s.HTTP.Timeout <= 0 {
		return s, errors.Wrapf(ErrInvalid, "%s must be positive, got %q", HTTPTimeout, v.GetString(HTTPTimeout))
	}
	s.HTTP.UserAgent = strings.TrimSpace(v.GetString(HTTPUserAgent))
	s.HTTP.CloudflareBypass = v.GetBool(HTTPCloudflareBypass)
	s.HTTP.TLSFingerprint = v.GetBool(HTTPTLSFingerprint)
	s.HTTP.Retries = v.GetInt(HTTPRetries)
	if s.HTTP.Retries < 0 {
		return s, errors.Wrapf(ErrInvalid, "%s must not be negative", HTTPRetries)
	}

	s.MaxPages = v.GetInt(PaginationMaxPages)
	if s.MaxPages < 1 {
		return s, errors.Wrapf(ErrInvalid, "%s must be at least 1", PaginationMaxPages)
	}

	s.MangaDexDataSaver = v.GetBool(MangaDexDataSaver)

	s.AllAnimeTranslation = strings.ToLower(v.GetString(AllAnimeTranslationType))
	if !lo.Contains([]string{"sub", "dub", "raw"}, s.AllAnimeTranslation) {
		return s, errors.Wrapf(ErrInvalid, "%s must be sub, dub or raw, got %q", AllAnimeTranslationType, s.AllAnimeTranslation)
	}
	s.AllAnimeTitleStyle = strings.ToLower(v.GetString(AllAnimeTitleStyle))
	if !lo.Contains([]string{"romaji", "english", "native"}, s.AllAnimeTitleStyle) {
		return s, errors.Wrapf(ErrInvalid, "%s must be romaji, english or native, got %q", AllAnimeTitleStyle, s.AllAnimeTitleStyle)
	}

	s.Disabled = splitList(v.GetStringSlice(SourcesDisabled))
	return s, nil
}

// splitList accepts both YAML lists and comma separated env values
func splitList(values []string) []string {
	out := lo.FlatMap(values, func(v string, _ int) []string { return strings.Split(v, ",") })
	return lo.Compact(lo.Map(out, func(v string, _ int) string { return strings.TrimSpace(v) }))
}

// Debug reports whether debug logging is enabled
func Debug() bool {
	return viper.GetBool(LogDebug)
}

// Addr returns the HTTP listen address
func Addr() string {
	return viper.GetString(ServerAddr)
}
