package program

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelarr/config"
)

func TestBuildProviders_SkipsProvidersWithoutAPIKeys(t *testing.T) {
	cfg := config.DownloaderConfig{
		ProviderOrder: []string{"realdebrid", "torbox", "alldebrid"},
		ProviderAPIKeys: map[string]string{
			"realdebrid": "rd-key",
			"alldebrid":  "",
		},
	}

	providers := buildProviders(cfg)

	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"realdebrid"}, names)
}

func TestBuildProviders_FallsBackToDefaultBaseURL(t *testing.T) {
	cfg := config.DownloaderConfig{
		ProviderOrder:   []string{"torbox"},
		ProviderAPIKeys: map[string]string{"torbox": "tb-key"},
		BaseURLs:        map[string]string{},
	}

	providers := buildProviders(cfg)
	require.Len(t, providers, 1)
	assert.Equal(t, "torbox", providers[0].Name())
}

func TestBuildProviders_PreservesConfiguredOrder(t *testing.T) {
	cfg := config.DownloaderConfig{
		ProviderOrder: []string{"torbox", "realdebrid"},
		ProviderAPIKeys: map[string]string{
			"torbox":     "tb-key",
			"realdebrid": "rd-key",
		},
	}

	providers := buildProviders(cfg)
	require.Len(t, providers, 2)
	assert.Equal(t, "torbox", providers[0].Name())
	assert.Equal(t, "realdebrid", providers[1].Name())
}

func TestBuildIndexerSources(t *testing.T) {
	indexers := []config.IndexerConfig{
		{Name: "nzbgeek", URL: "https://example.invalid/api", APIKey: "k"},
	}
	sources := buildIndexerSources(indexers)
	require.Len(t, sources, 1)
}

func TestParseYearAndDate_ValidDate(t *testing.T) {
	year, airedAt := parseYearAndDate("2023-06-15")
	assert.Equal(t, 2023, year)
	require.NotNil(t, airedAt)
	assert.True(t, airedAt.Equal(time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)))
}

func TestParseYearAndDate_EmptyString(t *testing.T) {
	year, airedAt := parseYearAndDate("")
	assert.Equal(t, 0, year)
	assert.Nil(t, airedAt)
}

func TestParseYearAndDate_MalformedString(t *testing.T) {
	year, airedAt := parseYearAndDate("not-a-date")
	assert.Equal(t, 0, year)
	assert.Nil(t, airedAt)
}

func TestDerefOr(t *testing.T) {
	s := "value"
	assert.Equal(t, "value", derefOr(&s))
	assert.Equal(t, "", derefOr(nil))
}
