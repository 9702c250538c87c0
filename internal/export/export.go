// Package export отдает текущую выборку целиком в CSV или JSON. Выгрузка
// потоковая через scroll движка: полный результат никогда не буферизуется.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/opensearchapi"

	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/client"
	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/search"
	"github.com/ThreeSixtyGiving/grantnav/pkg/logger"
	"github.com/ThreeSixtyGiving/grantnav/pkg/metrics"
)

const (
	scrollKeepAlive = 2 * time.Minute
	scrollPageSize  = 500
)

type Exporter struct {
	client  *client.Client
	logger  logger.Logger
	maxRows int
}

func NewExporter(client *client.Client, logger logger.Logger, maxRows int) *Exporter {
	if maxRows <= 0 {
		maxRows = 500000
	}
	return &Exporter{
		client:  client,
		logger:  logger,
		maxRows: maxRows,
	}
}

// StreamCSV пишет выборку в CSV по схеме GrantColumns. Фильтр по dataType
// тот же, что в интерактивном поиске.
func (e *Exporter) StreamCSV(ctx context.Context, q *search.Query, w io.Writer) error {
	// BOM, иначе Excel не распознает UTF-8
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return err
	}

	writer := csv.NewWriter(w)

	header := make([]string, len(GrantColumns))
	for i, column := range GrantColumns {
		header[i] = column.Title
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	rows := 0
	err := e.scroll(ctx, q, func(source json.RawMessage) error {
		var doc map[string]any
		if err := json.Unmarshal(source, &doc); err != nil {
			return fmt.Errorf("failed to decode document: %w", err)
		}

		row := make([]string, len(GrantColumns))
		for i, column := range GrantColumns {
			row[i] = PathValue(column.Path, doc)
		}
		rows++
		return writer.Write(row)
	})
	if err != nil {
		return err
	}

	writer.Flush()
	metrics.RecordExportRows("csv", rows)
	return writer.Error()
}

// StreamJSON пишет выборку как объект {"grants": [...]} с построчной
// сериализацией документов
func (e *Exporter) StreamJSON(ctx context.Context, q *search.Query, w io.Writer) error {
	if _, err := io.WriteString(w, "{\n\"grants\": [\n"); err != nil {
		return err
	}

	rows := 0
	err := e.scroll(ctx, q, func(source json.RawMessage) error {
		prefix := ", "
		if rows == 0 {
			prefix = ""
		}
		rows++
		if _, err := io.WriteString(w, prefix); err != nil {
			return err
		}
		if _, err := w.Write(source); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return err
	})
	if err != nil {
		return err
	}

	if _, err := io.WriteString(w, "]}"); err != nil {
		return err
	}
	metrics.RecordExportRows("json", rows)
	return nil
}

// scroll перебирает все документы выборки страницами scroll API,
// вызывая fn для каждого исходника документа
func (e *Exporter) scroll(ctx context.Context, q *search.Query, fn func(json.RawMessage) error) error {
	body := q.EngineBody(false)
	if q.DataType != "" {
		boolQuery := body["query"].(map[string]any)["bool"].(map[string]any)
		filter, _ := boolQuery["filter"].([]any)
		boolQuery["filter"] = append(filter, map[string]any{
			"term": map[string]any{"dataType": q.DataType},
		})
	}

	queryBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal export query: %w", err)
	}

	res, err := e.client.GetNativeClient().Search(
		e.client.GetNativeClient().Search.WithContext(ctx),
		e.client.GetNativeClient().Search.WithIndex(e.client.GetIndexName()),
		e.client.GetNativeClient().Search.WithBody(bytes.NewReader(queryBody)),
		e.client.GetNativeClient().Search.WithSize(scrollPageSize),
		e.client.GetNativeClient().Search.WithScroll(scrollKeepAlive),
	)
	if err != nil {
		return fmt.Errorf("failed to start export scroll: %w", err)
	}

	scrollID := ""
	defer func() {
		if scrollID != "" {
			e.clearScroll(scrollID)
		}
	}()

	seen := 0
	for {
		page, err := parseScrollPage(res)
		if err != nil {
			return err
		}
		scrollID = page.ScrollID

		if len(page.Hits.Hits) == 0 {
			return nil
		}

		for _, hit := range page.Hits.Hits {
			if seen >= e.maxRows {
				e.logger.Warn("Export truncated at row limit", "limit", e.maxRows)
				return nil
			}
			if err := fn(hit.Source); err != nil {
				return err
			}
			seen++
		}

		res, err = e.client.GetNativeClient().Scroll(
			e.client.GetNativeClient().Scroll.WithContext(ctx),
			e.client.GetNativeClient().Scroll.WithScrollID(scrollID),
			e.client.GetNativeClient().Scroll.WithScroll(scrollKeepAlive),
		)
		if err != nil {
			return fmt.Errorf("failed to continue export scroll: %w", err)
		}
	}
}

type scrollPage struct {
	ScrollID string `json:"_scroll_id"`
	Hits     struct {
		Hits []struct {
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func parseScrollPage(res *opensearchapi.Response) (*scrollPage, error) {
	defer res.Body.Close()

	if res.IsError() {
		errBody, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("export scroll failed with status %s: %s", res.Status(), string(errBody))
	}

	var page scrollPage
	if err := json.NewDecoder(res.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to parse scroll page: %w", err)
	}
	return &page, nil
}

func (e *Exporter) clearScroll(scrollID string) {
	res, err := e.client.GetNativeClient().ClearScroll(
		e.client.GetNativeClient().ClearScroll.WithScrollID(scrollID),
	)
	if err != nil {
		e.logger.Warn("Failed to clear export scroll", "error", err)
		return
	}
	res.Body.Close()
}

// PathValue достает значение по точечному пути ("fundingOrganization.0.id");
// числовой сегмент - индекс списка. Отсутствие любого звена дает пустую
// строку, список значений склеивается через запятую.
func PathValue(path string, data any) string {
	current := data
	for _, part := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			value, ok := node[part]
			if !ok {
				return ""
			}
			current = value
		case []any:
			index, err := strconv.Atoi(part)
			if err != nil || index < 0 || index >= len(node) {
				return ""
			}
			current = node[index]
		default:
			return ""
		}
	}

	return stringify(current)
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = stringify(item)
		}
		return strings.Join(parts, ", ")
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
