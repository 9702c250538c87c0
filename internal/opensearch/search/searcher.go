package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/client"
	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/models"
	"github.com/ThreeSixtyGiving/grantnav/pkg/logger"
	"github.com/ThreeSixtyGiving/grantnav/pkg/metrics"
)

// ErrBadQuery сигнализирует, что движок не смог разобрать поисковую строку.
// Страница поиска на такую ошибку отвечает подсказкой, а не пятисоткой.
var ErrBadQuery = errors.New("search query could not be parsed")

type Searcher struct {
	client *client.Client
	logger logger.Logger
}

func NewSearcher(client *client.Client, logger logger.Logger) *Searcher {
	return &Searcher{
		client: client,
		logger: logger,
	}
}

// Execute выполняет поиск по скомпилированному запросу. Фильтр по dataType
// добавляется здесь, вне массива слотов - позиции слотов принадлежат URL.
func (s *Searcher) Execute(ctx context.Context, q *Query, from, size int) (*models.SearchResponse, error) {
	body := q.EngineBody(true)
	s.appendDataTypeFilter(body, q.DataType)

	queryBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	s.logger.Debug("Executing OpenSearch query",
		"query_text", q.Text,
		"index", s.client.GetIndexName(),
		"data_type", q.DataType,
		"from", from,
		"size", size,
	)

	start := time.Now()
	res, err := s.client.GetNativeClient().Search(
		s.client.GetNativeClient().Search.WithContext(ctx),
		s.client.GetNativeClient().Search.WithIndex(s.client.GetIndexName()),
		s.client.GetNativeClient().Search.WithBody(bytes.NewReader(queryBody)),
		s.client.GetNativeClient().Search.WithFrom(from),
		s.client.GetNativeClient().Search.WithSize(size),
		s.client.GetNativeClient().Search.WithTrackTotalHits(true), // Важно для точного подсчета
	)
	searchTime := time.Since(start)

	if err != nil {
		metrics.RecordSearchRequest(q.DataType, "error", searchTime)
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		errBody, _ := io.ReadAll(res.Body)
		if isQueryParseError(errBody) {
			metrics.RecordSearchRequest(q.DataType, "bad_query", searchTime)
			s.logger.Info("Rejecting unparseable search query", "query_text", q.Text)
			return nil, fmt.Errorf("%w: %s", ErrBadQuery, q.Text)
		}
		metrics.RecordSearchRequest(q.DataType, "error", searchTime)
		s.logger.Error("OpenSearch query failed",
			"status", res.Status(),
			"error_body", string(errBody),
			"query", string(queryBody),
		)
		return nil, fmt.Errorf("search failed with status: %s", res.Status())
	}

	var response models.SearchResponse
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	metrics.RecordSearchRequest(q.DataType, "success", searchTime)

	s.logger.Info("Search completed",
		"query_text", q.Text,
		"data_type", q.DataType,
		"total_found", response.Hits.Total.Value,
		"returned", len(response.Hits.Hits),
		"search_time", searchTime,
	)

	return &response, nil
}

// isQueryParseError распознает ответ движка на синтаксически неверную
// строку запроса (незакрытые кавычки, висячие операторы и тому подобное)
func isQueryParseError(body []byte) bool {
	return bytes.Contains(body, []byte("search_phase_execution_exception")) ||
		bytes.Contains(body, []byte("query_shard_exception"))
}

// GetByID возвращает один документ по идентификатору
func (s *Searcher) GetByID(ctx context.Context, id string) (*models.Grant, error) {
	res, err := s.client.GetNativeClient().Get(
		s.client.GetIndexName(),
		id,
		s.client.GetNativeClient().Get.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return nil, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("get document failed with status: %s", res.Status())
	}

	var doc struct {
		Source *models.Grant `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse document response: %w", err)
	}

	return doc.Source, nil
}

// Summary - сводные показатели по текущей выборке
type Summary struct {
	TotalGrants     int64                       `json:"total_grants"`
	DistinctFunders int64                       `json:"distinct_funders"`
	DistinctRecipients int64                    `json:"distinct_recipients"`
	CurrencyTotals  map[string]*CurrencyTotal   `json:"currency_totals"`
}

type CurrencyTotal struct {
	Total float64 `json:"total"`
	Avg   float64 `json:"avg"`
	Count int64   `json:"count"`
}

// Summarize считает сводку по выборке: число грантов, число различных
// грантодателей и получателей, суммы с разбивкой по валютам
func (s *Searcher) Summarize(ctx context.Context, q *Query) (*Summary, error) {
	body := q.EngineBody(false)
	s.appendDataTypeFilter(body, q.DataType)
	body["aggs"] = map[string]any{
		"distinct_funders": map[string]any{
			"cardinality": map[string]any{"field": "fundingOrganization.id"},
		},
		"distinct_recipients": map[string]any{
			"cardinality": map[string]any{"field": "recipientOrganization.id"},
		},
		"currency_stats": map[string]any{
			"terms": map[string]any{"field": "currency", "size": 50},
			"aggs": map[string]any{
				"amount_stats": map[string]any{
					"stats": map[string]any{"field": "amountAwarded"},
				},
			},
		},
	}

	raw, err := s.executeRaw(ctx, body, 0)
	if err != nil {
		return nil, err
	}

	var response struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
		} `json:"hits"`
		Aggregations struct {
			DistinctFunders struct {
				Value int64 `json:"value"`
			} `json:"distinct_funders"`
			DistinctRecipients struct {
				Value int64 `json:"value"`
			} `json:"distinct_recipients"`
			CurrencyStats struct {
				Buckets []struct {
					Key         string `json:"key"`
					AmountStats struct {
						Count int64   `json:"count"`
						Sum   float64 `json:"sum"`
						Avg   float64 `json:"avg"`
					} `json:"amount_stats"`
				} `json:"buckets"`
			} `json:"currency_stats"`
		} `json:"aggregations"`
	}
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("failed to parse summary response: %w", err)
	}

	summary := &Summary{
		TotalGrants:        response.Hits.Total.Value,
		DistinctFunders:    response.Aggregations.DistinctFunders.Value,
		DistinctRecipients: response.Aggregations.DistinctRecipients.Value,
		CurrencyTotals:     make(map[string]*CurrencyTotal),
	}
	for _, bucket := range response.Aggregations.CurrencyStats.Buckets {
		summary.CurrencyTotals[bucket.Key] = &CurrencyTotal{
			Total: bucket.AmountStats.Sum,
			Avg:   bucket.AmountStats.Avg,
			Count: bucket.AmountStats.Count,
		}
	}

	return summary, nil
}

// ResolveOrgKeys восстанавливает составные ключи [name, id] по голым
// идентификаторам из URL: агрегация по полю фасета, отфильтрованная по id.
// Идентификатор без единого документа в индексе ключа не дает.
func (s *Searcher) ResolveOrgKeys(ctx context.Context, facet TermFacet, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	idField := strings.TrimSuffix(facet.FieldName, ".id_and_name") + ".id"
	body := map[string]any{
		"query": map[string]any{
			"terms": map[string]any{idField: ids},
		},
		"aggs": map[string]any{
			"keys": map[string]any{
				"terms": map[string]any{
					"field": facet.FieldName,
					"size":  len(ids) * 2,
				},
			},
		},
	}

	raw, err := s.executeRaw(ctx, body, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s keys: %w", facet.ParamName, err)
	}

	var response struct {
		Aggregations struct {
			Keys struct {
				Buckets []struct {
					Key string `json:"key"`
				} `json:"buckets"`
			} `json:"keys"`
		} `json:"aggregations"`
	}
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("failed to parse key resolution response: %w", err)
	}

	// Оставляем только ключи запрошенных организаций - по одному id могут
	// попасться соседние организации из того же документа
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var keys []string
	for _, bucket := range response.Aggregations.Keys.Buckets {
		if id := CompositeId(bucket.Key); wanted[id] {
			keys = append(keys, bucket.Key)
		}
	}

	return keys, nil
}

func (s *Searcher) executeRaw(ctx context.Context, body map[string]any, size int) ([]byte, error) {
	queryBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	var raw []byte
	err = metrics.OpenSearchInterceptor("search", s.client.GetIndexName(), func() error {
		res, err := s.client.GetNativeClient().Search(
			s.client.GetNativeClient().Search.WithContext(ctx),
			s.client.GetNativeClient().Search.WithIndex(s.client.GetIndexName()),
			s.client.GetNativeClient().Search.WithBody(bytes.NewReader(queryBody)),
			s.client.GetNativeClient().Search.WithSize(size),
			s.client.GetNativeClient().Search.WithTrackTotalHits(true),
		)
		if err != nil {
			return fmt.Errorf("failed to execute search: %w", err)
		}
		defer res.Body.Close()

		if res.IsError() {
			errBody, _ := io.ReadAll(res.Body)
			s.logger.Error("OpenSearch query failed",
				"status", res.Status(),
				"error_body", string(errBody),
			)
			return fmt.Errorf("search failed with status: %s", res.Status())
		}

		raw, err = io.ReadAll(res.Body)
		return err
	})
	if err != nil {
		return nil, err
	}

	return raw, nil
}

func (s *Searcher) appendDataTypeFilter(body map[string]any, dataType string) {
	if dataType == "" {
		return
	}
	boolQuery, ok := body["query"].(map[string]any)["bool"].(map[string]any)
	if !ok {
		return
	}
	filter, _ := boolQuery["filter"].([]any)
	boolQuery["filter"] = append(filter, map[string]any{
		"term": map[string]any{"dataType": dataType},
	})
}
