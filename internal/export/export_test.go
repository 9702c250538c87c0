package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/client"
	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/search"
	"github.com/ThreeSixtyGiving/grantnav/pkg/logger"
)

func TestPathValue(t *testing.T) {
	doc := map[string]any{
		"id":    "360G-x-1",
		"title": "Gardens",
		"amountAwarded": float64(15000),
		"fromOpenCall":  true,
		"recipientOrganization": []any{
			map[string]any{"id": "GB-CHC-225922", "name": "The National Trust"},
		},
		"additional_data": map[string]any{
			"recipientRegionName": "London",
			"tags":                []any{"one", "two"},
		},
	}

	tests := []struct {
		path string
		want string
	}{
		{"id", "360G-x-1"},
		{"amountAwarded", "15000"},
		{"fromOpenCall", "true"},
		{"recipientOrganization.0.name", "The National Trust"},
		{"additional_data.recipientRegionName", "London"},
		// Список значений склеивается через запятую
		{"additional_data.tags", "one, two"},
		// Любое отсутствующее звено дает пустую строку
		{"missing", ""},
		{"recipientOrganization.5.name", ""},
		{"recipientOrganization.x.name", ""},
		{"id.deeper", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, PathValue(tt.path, doc))
		})
	}
}

func TestGrantColumns(t *testing.T) {
	require.NotEmpty(t, GrantColumns)

	seen := map[string]bool{}
	for _, column := range GrantColumns {
		assert.NotEmpty(t, column.Title)
		assert.NotEmpty(t, column.Path)
		assert.False(t, seen[column.Title], "duplicate column %q", column.Title)
		seen[column.Title] = true
	}

	// Первая колонка - идентификатор, контракт выгрузки
	assert.Equal(t, "Identifier", GrantColumns[0].Title)
}

// newTestExporter поднимает фейковый движок с одной scroll-страницей
func newTestExporter(t *testing.T) *Exporter {
	t.Helper()

	firstPage := `{
		"_scroll_id": "scroll-1",
		"hits": {"hits": [
			{"_source": {
				"id": "360G-x-1",
				"title": "Gardens",
				"currency": "GBP",
				"amountAwarded": 15000,
				"awardDateDateOnly": "2019-05-17",
				"recipientOrganization": [{"id": "GB-CHC-225922", "name": "The National Trust"}]
			}},
			{"_source": {"id": "360G-x-2", "title": "Heritage", "currency": "GBP"}}
		]}
	}`
	emptyPage := `{"_scroll_id": "scroll-1", "hits": {"hits": []}}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/_search/scroll"):
			_, _ = w.Write([]byte(emptyPage))
		case r.Method == http.MethodDelete:
			_, _ = w.Write([]byte(`{"succeeded": true}`))
		default:
			_, _ = w.Write([]byte(firstPage))
		}
	}))
	t.Cleanup(srv.Close)

	cfg := client.DefaultConfig()
	cfg.URL = srv.URL
	cfg.IndexName = "grantnav_test"

	osClient, err := client.New(cfg, logger.NewNop())
	require.NoError(t, err)

	return NewExporter(osClient, logger.NewNop(), 0)
}

func TestStreamCSV(t *testing.T) {
	exporter := newTestExporter(t)

	var buf bytes.Buffer
	err := exporter.StreamCSV(context.Background(), search.NewQuery(), &buf)
	require.NoError(t, err)

	out := buf.String()
	// Excel требует BOM перед заголовком
	require.True(t, strings.HasPrefix(out, "\uFEFF"))

	reader := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, "\uFEFF")))
	records, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "Identifier", records[0][0])
	assert.Equal(t, "360G-x-1", records[1][0])
	assert.Equal(t, "Gardens", records[1][1])
	assert.Equal(t, "360G-x-2", records[2][0])

	for _, record := range records {
		assert.Len(t, record, len(GrantColumns))
	}
}

func TestStreamJSON(t *testing.T) {
	exporter := newTestExporter(t)

	var buf bytes.Buffer
	err := exporter.StreamJSON(context.Background(), search.NewQuery(), &buf)
	require.NoError(t, err)

	var decoded struct {
		Grants []map[string]any `json:"grants"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Grants, 2)
	assert.Equal(t, "360G-x-1", decoded.Grants[0]["id"])
	assert.Equal(t, "Heritage", decoded.Grants[1]["title"])
}

func TestStreamCSV_RowLimit(t *testing.T) {
	exporter := newTestExporter(t)
	exporter.maxRows = 1

	var buf bytes.Buffer
	err := exporter.StreamCSV(context.Background(), search.NewQuery(), &buf)
	require.NoError(t, err)

	reader := csv.NewReader(strings.NewReader(strings.TrimPrefix(buf.String(), "\uFEFF")))
	records, err := reader.ReadAll()
	require.NoError(t, err)
	// Заголовок плюс одна строка - обрезано по лимиту
	assert.Len(t, records, 2)
}
