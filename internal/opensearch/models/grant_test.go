package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrantKeepsUnknownKeys(t *testing.T) {
	raw := `{
		"id": "360G-x-1",
		"title": "Extra fields",
		"currency": "GBP",
		"classifications": [{"title": "Arts"}],
		"dateModified": "2020-01-01T00:00:00Z"
	}`

	var grant Grant
	require.NoError(t, json.Unmarshal([]byte(raw), &grant))

	assert.Equal(t, "Extra fields", grant.Title)
	assert.Contains(t, grant.Extra, "classifications")
	assert.Contains(t, grant.Extra, "dateModified")

	out, err := json.Marshal(grant)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "360G-x-1", decoded["id"])
	assert.Equal(t, "2020-01-01T00:00:00Z", decoded["dateModified"])
	assert.Contains(t, decoded, "classifications")
}

func TestGrantKnownKeysWinOverExtra(t *testing.T) {
	grant := Grant{
		Title: "Typed title",
		Extra: map[string]any{"title": "Stale copy"},
	}

	out, err := json.Marshal(grant)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "Typed title", decoded["title"])
}

func TestEnsureAdditionalData(t *testing.T) {
	var grant Grant
	grant.EnsureAdditionalData()
	require.NotNil(t, grant.AdditionalData)

	grant.AdditionalData["key"] = "value"
	grant.EnsureAdditionalData()
	assert.Equal(t, "value", grant.AdditionalData["key"])
}
