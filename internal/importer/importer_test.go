package importer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThreeSixtyGiving/grantnav/internal/enrich"
	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/models"
	"github.com/ThreeSixtyGiving/grantnav/pkg/logger"
)

func TestSeekGrantsArray(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"grants first", `{"grants": [{"id": "a"}]}`, ""},
		{"grants after other keys", `{"license": "CC", "meta": {"version": 1}, "grants": []}`, ""},
		{"top-level array", `[{"id": "a"}]`, "expected a top-level JSON object"},
		{"no grants key", `{"license": "CC"}`, "no grants array found"},
		{"grants not a list", `{"grants": {"id": "a"}}`, "grants is not an array"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoder := json.NewDecoder(strings.NewReader(tt.data))
			err := seekGrantsArray(decoder)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGrantStream(t *testing.T) {
	path := writeFile(t, "grants.json", `{
		"license": "CC",
		"grants": [
			{"id": "360G-x-1", "title": "Gardens", "currency": "gbp"},
			{"id": "360G-x-2", "title": "Heritage", "currency": "usd"}
		]
	}`)

	imp := New(nil, nil, enrich.NewPipeline(nil, logger.NewNop()), logger.NewNop())

	var grants []*models.Grant
	for grant, err := range imp.grantStream(t.Context(), path) {
		require.NoError(t, err)
		grants = append(grants, grant)
	}

	require.Len(t, grants, 2)
	assert.Equal(t, "360G-x-1", grants[0].Id)
	// Каждая запись проходит обогащение
	assert.Equal(t, "GBP", grants[0].Currency)
	assert.Equal(t, "Direct grant", grants[1].SimpleGrantType)
	// Имя файла проставляется из пути
	assert.Equal(t, "grants.json", grants[0].Filename)
}

func TestGrantStream_MalformedRecordStops(t *testing.T) {
	path := writeFile(t, "grants.json", `{"grants": [{"id": "a"}, {"id": ]}`)

	imp := New(nil, nil, enrich.NewPipeline(nil, logger.NewNop()), logger.NewNop())

	var seen int
	var streamErr error
	for grant, err := range imp.grantStream(t.Context(), path) {
		if err != nil {
			streamErr = err
			break
		}
		_ = grant
		seen++
	}

	assert.Equal(t, 1, seen)
	require.Error(t, streamErr)
	assert.Contains(t, streamErr.Error(), "malformed grant record")
}

func TestGrantStream_MissingFile(t *testing.T) {
	imp := New(nil, nil, enrich.NewPipeline(nil, logger.NewNop()), logger.NewNop())

	var streamErr error
	for _, err := range imp.grantStream(t.Context(), filepath.Join(t.TempDir(), "absent.json")) {
		streamErr = err
	}
	assert.Error(t, streamErr)
}

func TestOrganisationStream(t *testing.T) {
	path := writeFile(t, "funders.jsonl",
		`{"id": "GB-CHC-1", "name": "One", "aggregate": {"currencies": {"GBP": {"total": 10}}}}
{"id": "GB-CHC-2", "name": "Two"}
`)

	imp := New(nil, nil, enrich.NewPipeline(nil, logger.NewNop()), logger.NewNop())

	var orgs []*models.Organisation
	for org, err := range imp.organisationStream(path) {
		require.NoError(t, err)
		orgs = append(orgs, org)
	}

	require.Len(t, orgs, 2)
	// Обогащение организации отработало на каждой записи
	assert.Equal(t, []string{"GBP"}, orgs[0].Currency)
	assert.Equal(t, "One", orgs[0].OrganizationName)
	assert.Equal(t, []string{"GB-CHC-1"}, orgs[0].OrgIDs)
	assert.Equal(t, "Two", orgs[1].OrganizationName)
}

func TestOrganisationStream_Malformed(t *testing.T) {
	path := writeFile(t, "funders.jsonl", `{"id": "GB-CHC-1"}
not json
`)

	imp := New(nil, nil, enrich.NewPipeline(nil, logger.NewNop()), logger.NewNop())

	var seen int
	var streamErr error
	for _, err := range imp.organisationStream(path) {
		if err != nil {
			streamErr = err
			break
		}
		seen++
	}

	assert.Equal(t, 1, seen)
	require.Error(t, streamErr)
	assert.Contains(t, streamErr.Error(), "malformed organisation record")
}
