package fetcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFeatureService(t *testing.T) {
	body := `{
		"features": [
			{"attributes": {"PERMITNO": "BP-1", "APPLICATION_DATE": 1735689600000, "CONSTRUCTION_VALUE": 250000}},
			{"attributes": {"PERMITNO": "BP-2", "APPLICATION_DATE": 1742169600000}},
			{"attributes": {}}
		]
	}`

	raw, err := DecodeFeatureService(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, raw, 2) // the empty attribute map is skipped

	assert.Equal(t, "BP-1", raw[0]["PERMITNO"])
	assert.Equal(t, float64(1735689600000), raw[0]["APPLICATION_DATE"])
	assert.Equal(t, float64(250000), raw[0]["CONSTRUCTION_VALUE"])
}

func TestDecodeFeatureServiceEmpty(t *testing.T) {
	raw, err := DecodeFeatureService(strings.NewReader(`{"features": []}`))
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestDecodeFeatureServiceInBandError(t *testing.T) {
	body := `{"error": {"code": 400, "message": "Invalid query parameters", "details": []}}`

	_, err := DecodeFeatureService(strings.NewReader(body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "Invalid query parameters")
}

func TestDecodeFeatureServiceMalformedJSON(t *testing.T) {
	_, err := DecodeFeatureService(strings.NewReader(`{"features": [`))
	assert.Error(t, err)
}
