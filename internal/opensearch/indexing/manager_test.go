package indexing

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/client"
	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/models"
	"github.com/ThreeSixtyGiving/grantnav/pkg/logger"
)

func newTestManager(t *testing.T) (*Manager, *strings.Builder) {
	t.Helper()

	var mu sync.Mutex
	var requests strings.Builder
	bulk, _ := newTestBulk(t, 10, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests.Write(body)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(bulkAllOK))
	})

	return &Manager{
		client:  bulk.client,
		bulkOps: bulk,
		logger:  logger.NewNop(),
	}, &requests
}

func TestIndexGrants_StampsDataType(t *testing.T) {
	manager, requests := newTestManager(t)

	grants := func(yield func(*models.Grant, error) bool) {
		yield(&models.Grant{Id: "360G-x-1", Title: "Gardens"}, nil)
	}

	report, err := manager.IndexGrants(context.Background(), grants)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Indexed)

	assert.Contains(t, requests.String(), `"dataType":"grant"`)
}

func TestIndexOrganisations_StampsDataType(t *testing.T) {
	manager, requests := newTestManager(t)

	orgs := func(yield func(*models.Organisation, error) bool) {
		yield(&models.Organisation{Id: "GB-CHC-1", Name: "One"}, nil)
	}

	report, err := manager.IndexOrganisations(context.Background(), orgs, models.DataTypeFunder)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Indexed)

	assert.Contains(t, requests.String(), `"dataType":"funder"`)
}

func TestNewManagerDefaults(t *testing.T) {
	cfg := client.DefaultConfig()
	osClient, err := client.New(cfg, logger.NewNop())
	require.NoError(t, err)

	manager := NewManager(osClient, logger.NewNop(), 0, 3, 2.0)
	require.NotNil(t, manager.bulkOps)
	// Нулевой размер пачки заменяется дефолтом
	assert.Equal(t, 500, manager.bulkOps.batchSize)
}
