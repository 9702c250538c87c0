package orgs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/client"
	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/models"
	"github.com/ThreeSixtyGiving/grantnav/pkg/logger"
	"github.com/ThreeSixtyGiving/grantnav/pkg/metrics"
)

const DefaultMaxEntries = 300000

// ReferenceStore - справочник организаций поверх индекса с ограниченным
// кешем в памяти. При переполнении кеш сбрасывается целиком, без
// повыборочного вытеснения: промах стоит лишний запрос к движку, а не
// неверный результат, поэтому простота важнее точности вытеснения.
type ReferenceStore struct {
	client     *client.Client
	logger     logger.Logger
	maxEntries int

	mu    sync.RWMutex
	cache map[string]*cacheEntry
}

// Промахи кешируются наравне с попаданиями: отсутствующие в справочнике
// организации встречаются в каждом файле грантов и долбить движок по
// каждому гранту того же получателя незачем
type cacheEntry struct {
	org *models.Organisation
}

func NewReferenceStore(client *client.Client, logger logger.Logger, maxEntries int) *ReferenceStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &ReferenceStore{
		client:     client,
		logger:     logger,
		maxEntries: maxEntries,
		cache:      make(map[string]*cacheEntry),
	}
}

// Lookup ищет организацию по любому из ее идентификаторов. Отсутствие
// организации - не ошибка, а штатный путь: (nil, false, nil).
func (s *ReferenceStore) Lookup(ctx context.Context, orgID, dataType string) (*models.Organisation, bool, error) {
	key := dataType + "\x00" + orgID

	s.mu.RLock()
	entry, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		metrics.RecordOrgCacheLookup("hit")
		return entry.org, entry.org != nil, nil
	}
	metrics.RecordOrgCacheLookup("miss")

	org, err := s.fetch(ctx, orgID, dataType)
	if err != nil {
		metrics.RecordOrgCacheLookup("error")
		return nil, false, err
	}

	s.store(key, org)

	return org, org != nil, nil
}

func (s *ReferenceStore) store(key string, org *models.Organisation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cache) >= s.maxEntries {
		s.logger.Info("Organisation cache full, resetting", "entries", len(s.cache))
		s.cache = make(map[string]*cacheEntry)
	}
	s.cache[key] = &cacheEntry{org: org}
}

// Size возвращает текущее число записей в кеше
func (s *ReferenceStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

func (s *ReferenceStore) fetch(ctx context.Context, orgID, dataType string) (*models.Organisation, error) {
	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{"dataType": dataType}},
					map[string]any{"term": map[string]any{"orgIDs": orgID}},
				},
			},
		},
	}

	queryBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal org lookup: %w", err)
	}

	res, err := s.client.GetNativeClient().Search(
		s.client.GetNativeClient().Search.WithContext(ctx),
		s.client.GetNativeClient().Search.WithIndex(s.client.GetIndexName()),
		s.client.GetNativeClient().Search.WithBody(bytes.NewReader(queryBody)),
		s.client.GetNativeClient().Search.WithSize(1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to look up organisation %s: %w", orgID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		errBody, _ := io.ReadAll(res.Body)
		s.logger.Error("Organisation lookup failed",
			"org_id", orgID,
			"data_type", dataType,
			"status", res.Status(),
			"error_body", string(errBody),
		)
		return nil, fmt.Errorf("organisation lookup failed with status: %s", res.Status())
	}

	var response struct {
		Hits struct {
			Hits []struct {
				Source *models.Organisation `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to parse org lookup response: %w", err)
	}

	if len(response.Hits.Hits) == 0 {
		return nil, nil
	}
	return response.Hits.Hits[0].Source, nil
}
