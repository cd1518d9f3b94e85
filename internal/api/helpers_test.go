package api

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelarr/internal/apperr"
)

func TestWriteStoreError_MapsNotFoundTo404(t *testing.T) {
	rec := httptest.NewRecorder()
	writeStoreError(rec, apperr.NotFound)
	assert.Equal(t, 404, rec.Code)
}

func TestWriteStoreError_MapsIntegrityDuplicateTo409(t *testing.T) {
	rec := httptest.NewRecorder()
	writeStoreError(rec, apperr.IntegrityDuplicate)
	assert.Equal(t, 409, rec.Code)
}

func TestWriteStoreError_MapsLogicGateTo409(t *testing.T) {
	rec := httptest.NewRecorder()
	writeStoreError(rec, apperr.LogicGate)
	assert.Equal(t, 409, rec.Code)
}

func TestWriteStoreError_UnrecognizedIs500(t *testing.T) {
	rec := httptest.NewRecorder()
	writeStoreError(rec, assertErr("boom"))
	assert.Equal(t, 500, rec.Code)
}

func TestSettingsPatch_DecodesPartialFields(t *testing.T) {
	body := `{"postprocessor_enabled": true, "tmdb_api_key": "abc123"}`
	var patch settingsPatch
	require.NoError(t, json.Unmarshal([]byte(body), &patch))

	require.NotNil(t, patch.PostProcessorEnabled)
	assert.True(t, *patch.PostProcessorEnabled)
	require.NotNil(t, patch.TMDBAPIKey)
	assert.Equal(t, "abc123", *patch.TMDBAPIKey)
	assert.Nil(t, patch.Debug)
	assert.Nil(t, patch.GateMaxScrapeAttempts)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
