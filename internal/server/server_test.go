package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThreeSixtyGiving/grantnav/internal/config"
	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/client"
	"github.com/ThreeSixtyGiving/grantnav/pkg/logger"
)

const searchResponse = `{
	"took": 1,
	"hits": {"total": {"value": 21, "relation": "eq"}, "hits": []},
	"aggregations": {
		"currency": {"buckets": [{"key": "GBP", "doc_count": 21}]},
		"amountAwardedFixed": {"buckets": [{"key": "0.0-500.0", "from": 0.0, "to": 500.0, "doc_count": 3}]},
		"awardYear": {"buckets": [{"key": 1546300800000, "key_as_string": "2019", "doc_count": 21}]}
	}
}`

type fakeEngine struct {
	searchStatus int
	searchBody   string
	docStatus    int
	docBody      string
	pingStatus   int
}

func (f *fakeEngine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodHead:
		w.WriteHeader(f.pingStatus)
	case strings.Contains(r.URL.Path, "/_doc/"):
		w.WriteHeader(f.docStatus)
		_, _ = w.Write([]byte(f.docBody))
	default:
		if f.searchStatus != http.StatusOK {
			w.WriteHeader(f.searchStatus)
		}
		_, _ = w.Write([]byte(f.searchBody))
	}
}

func newTestServer(t *testing.T, engine *fakeEngine) *Server {
	t.Helper()

	if engine.pingStatus == 0 {
		engine.pingStatus = http.StatusOK
	}
	if engine.searchStatus == 0 {
		engine.searchStatus = http.StatusOK
	}
	if engine.docStatus == 0 {
		engine.docStatus = http.StatusOK
	}

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)

	osCfg := client.DefaultConfig()
	osCfg.URL = srv.URL
	osCfg.IndexName = "grantnav_test"

	osClient, err := client.New(osCfg, logger.NewNop())
	require.NoError(t, err)

	cfg := &config.Config{
		Server:     config.ServerConfig{Addr: ":0", DownloadLimit: 1000},
		OpenSearch: osCfg,
	}

	return NewServer(cfg, osClient, logger.NewNop())
}

func doRequest(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestHandleSearch(t *testing.T) {
	s := newTestServer(t, &fakeEngine{searchBody: searchResponse})

	rec := doRequest(s, http.MethodGet, "/search?query=gardens")
	require.Equal(t, http.StatusOK, rec.Code)

	var view searchView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))

	assert.False(t, view.SearchError)
	require.NotNil(t, view.Results)
	assert.Equal(t, int64(21), view.Results.Hits.Total.Value)
	assert.Equal(t, 1, view.Page)
	// 21 результат при странице в 20 - две страницы
	assert.Equal(t, 2, view.TotalPages)
	assert.Contains(t, view.NextPage, "/search?")
	assert.Contains(t, view.NextPage, "page=2")
	assert.Contains(t, view.NextPage, "query=gardens")
	assert.Empty(t, view.PrevPage)
}

func TestHandleSearch_SecondPage(t *testing.T) {
	s := newTestServer(t, &fakeEngine{searchBody: searchResponse})

	rec := doRequest(s, http.MethodGet, "/search?page=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var view searchView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))

	assert.Equal(t, 2, view.Page)
	assert.Empty(t, view.NextPage)
	assert.Contains(t, view.PrevPage, "page=1")
}

func TestHandleSearch_BadQueryIsNotAnError(t *testing.T) {
	s := newTestServer(t, &fakeEngine{
		searchStatus: http.StatusBadRequest,
		searchBody:   `{"error": {"type": "search_phase_execution_exception", "reason": "parse failure"}}`,
	})

	rec := doRequest(s, http.MethodGet, `/search?query="unclosed`)
	// Нечитаемая строка поиска - подсказка пользователю, не пятисотка
	require.Equal(t, http.StatusOK, rec.Code)

	var view searchView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.True(t, view.SearchError)
	assert.Nil(t, view.Results)
}

func TestHandleSearch_EngineFailure(t *testing.T) {
	s := newTestServer(t, &fakeEngine{
		searchStatus: http.StatusInternalServerError,
		searchBody:   `{"error": "boom"}`,
	})

	rec := doRequest(s, http.MethodGet, "/search")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleGetGrant(t *testing.T) {
	s := newTestServer(t, &fakeEngine{
		searchBody: searchResponse,
		docBody:    `{"_source": {"id": "360G-x-1", "title": "Gardens", "currency": "GBP"}}`,
	})

	rec := doRequest(s, http.MethodGet, "/grants/360G-x-1")
	require.Equal(t, http.StatusOK, rec.Code)

	var grant map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grant))
	assert.Equal(t, "Gardens", grant["title"])
}

func TestHandleGetGrant_NotFound(t *testing.T) {
	s := newTestServer(t, &fakeEngine{
		searchBody: searchResponse,
		docStatus:  http.StatusNotFound,
		docBody:    `{"found": false}`,
	})

	rec := doRequest(s, http.MethodGet, "/grants/360G-missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSearchCSV(t *testing.T) {
	s := newTestServer(t, &fakeEngine{searchBody: searchResponse})

	rec := doRequest(s, http.MethodGet, "/search.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")
	// BOM и заголовок колонок на месте
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\uFEFFIdentifier"))
}

func TestHandleSearchJSON(t *testing.T) {
	s := newTestServer(t, &fakeEngine{searchBody: searchResponse})

	rec := doRequest(s, http.MethodGet, "/search.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".json")

	var decoded struct {
		Grants []map[string]any `json:"grants"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Empty(t, decoded.Grants)
}

func TestHandleHealthz(t *testing.T) {
	s := newTestServer(t, &fakeEngine{searchBody: searchResponse})

	rec := doRequest(s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestHandleHealthz_Unavailable(t *testing.T) {
	s := newTestServer(t, &fakeEngine{
		searchBody: searchResponse,
		pingStatus: http.StatusServiceUnavailable,
	})

	rec := doRequest(s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
