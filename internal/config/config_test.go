package config

import (
	"testing"
	"time"

	"github.com/alvarorichard/Gomanga/internal/scraper"
	"github.com/alvarorichard/Gomanga/internal/util"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const configDir = "/home/reader/.config/gomanga"

func load(t *testing.T, yaml string) (*viper.Viper, error) {
	t.Helper()
	fs := afero.NewMemMapFs()
	if yaml != "" {
		require.NoError(t, afero.WriteFile(fs, configDir+"/"+FileName+".yaml", []byte(yaml), 0o644))
	}
	v := viper.New()
	return v, setup(v, fs, []string{configDir})
}

func TestDefaultsMatchSourceDefaults(t *testing.T) {
	v, err := load(t, "")
	require.NoError(t, err)

	s, err := settingsFrom(v)
	require.NoError(t, err)

	want := scraper.DefaultSettings()
	assert.Equal(t, want.HTTP.Timeout, s.HTTP.Timeout)
	assert.Equal(t, want.HTTP.CloudflareBypass, s.HTTP.CloudflareBypass)
	assert.Equal(t, want.HTTP.Retries, s.HTTP.Retries)
	assert.Equal(t, want.MaxPages, s.MaxPages)
	assert.Equal(t, want.MangaDexDataSaver, s.MangaDexDataSaver)
	assert.Equal(t, want.AllAnimeTranslation, s.AllAnimeTranslation)
	assert.Equal(t, want.AllAnimeTitleStyle, s.AllAnimeTitleStyle)
	assert.Equal(t, util.DefaultUserAgent, s.HTTP.UserAgent)
	assert.False(t, s.HTTP.TLSFingerprint)
	assert.Empty(t, s.Disabled)
	assert.Equal(t, ":8080", v.GetString(ServerAddr))
}

func TestConfigFileOverridesDefaults(t *testing.T) {
	v, err := load(t, `
server:
  addr: 127.0.0.1:9000
http:
  timeout: 5s
  retries: 3
  tls_fingerprint: true
sources:
  disabled: [NHentai, hentairead]
allanime:
  translation_type: DUB
  title_style: english
pagination:
  max_pages: 2
mangadex:
  data_saver: false
`)
	require.NoError(t, err)

	s, err := settingsFrom(v)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, s.HTTP.Timeout)
	assert.Equal(t, 3, s.HTTP.Retries)
	assert.True(t, s.HTTP.TLSFingerprint)
	assert.Equal(t, []string{"NHentai", "hentairead"}, s.Disabled)
	assert.Equal(t, "dub", s.AllAnimeTranslation)
	assert.Equal(t, "english", s.AllAnimeTitleStyle)
	assert.Equal(t, 2, s.MaxPages)
	assert.False(t, s.MangaDexDataSaver)
	assert.Equal(t, "127.0.0.1:9000", v.GetString(ServerAddr))
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("GOMANGA_HTTP_RETRIES", "4")
	t.Setenv("GOMANGA_SOURCES_DISABLED", "Comick, Toonily")
	t.Setenv("GOMANGA_LOG_DEBUG", "true")

	v, err := load(t, "http:\n  retries: 2\n")
	require.NoError(t, err)

	s, err := settingsFrom(v)
	require.NoError(t, err)
	assert.Equal(t, 4, s.HTTP.Retries)
	assert.Equal(t, []string{"Comick", "Toonily"}, s.Disabled)
	assert.True(t, v.GetBool(LogDebug))
}

func TestInvalidValuesAreRejected(t *testing.T) {
	tests := map[string]string{
		"timeout":     "http:\n  timeout: 0s\n",
		"retries":     "http:\n  retries: -1\n",
		"pages":       "pagination:\n  max_pages: 0\n",
		"translation": "allanime:\n  translation_type: fandub\n",
		"title style": "allanime:\n  title_style: klingon\n",
	}
	for name, yaml := range tests {
		t.Run(name, func(t *testing.T) {
			v, err := load(t, yaml)
			require.NoError(t, err)
			_, err = settingsFrom(v)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestMalformedFileIsAnError(t *testing.T) {
	_, err := load(t, "http: [unclosed")
	assert.Error(t, err)
}

func TestSetupWithoutDirsUsesDefaults(t *testing.T) {
	v := viper.New()
	require.NoError(t, setup(v, afero.NewMemMapFs(), nil))
	assert.Equal(t, "sub", v.GetString(AllAnimeTranslationType))
}

func TestEveryFieldIsDescribed(t *testing.T) {
	seen := map[string]bool{}
	for _, f := range Fields {
		assert.NotEmpty(t, f.Description, f.Key)
		assert.False(t, seen[f.Key], "duplicate key %s", f.Key)
		seen[f.Key] = true
	}
	assert.Equal(t, "GOMANGA_HTTP_TLS_FINGERPRINT", EnvPrefix+"_"+EnvKeyReplacer.Replace("HTTP.TLS_FINGERPRINT"))
}
