package indexing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/google/uuid"

	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/client"
	"github.com/ThreeSixtyGiving/grantnav/pkg/logger"
)

// Report - итог прогона индексации: сколько документов легло в индекс,
// сколько отвалилось и почему. Частичный провал пачки не прерывает прогон.
type Report struct {
	Indexed int
	Failed  int
	Errors  []string
}

func (r *Report) merge(other *Report) {
	r.Indexed += other.Indexed
	r.Failed += other.Failed
	r.Errors = append(r.Errors, other.Errors...)
}

// Ограничиваем список ошибок в отчете, счетчики не ограничены
const maxReportErrors = 50

func (r *Report) addError(message string) {
	if len(r.Errors) < maxReportErrors {
		r.Errors = append(r.Errors, message)
	}
}

type BulkOperations struct {
	client     *client.Client
	retryLogic *RetryLogic
	logger     logger.Logger
	batchSize  int
}

func NewBulkOperations(client *client.Client, retryLogic *RetryLogic, logger logger.Logger, batchSize int) *BulkOperations {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &BulkOperations{
		client:     client,
		retryLogic: retryLogic,
		logger:     logger,
		batchSize:  batchSize,
	}
}

// IndexStream гонит ленивую последовательность документов в индекс
// пачками: память O(пачки), а не O(файла). Каждый документ получает
// свежий uuid. Ошибка декодирования одного документа учитывается в отчете
// с его позицией и не останавливает прогон.
func (b *BulkOperations) IndexStream(ctx context.Context, docs iter.Seq2[any, error]) (*Report, error) {
	report := &Report{}
	batch := make([]any, 0, b.batchSize)
	position := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		batchReport, err := b.processBatch(ctx, batch)
		if err != nil {
			return err
		}
		report.merge(batchReport)
		batch = batch[:0]
		return nil
	}

	for doc, err := range docs {
		position++
		if err != nil {
			report.Failed++
			report.addError(fmt.Sprintf("record %d: %v", position, err))
			b.logger.Warn("Skipping unreadable record", "position", position, "error", err)
			continue
		}

		batch = append(batch, doc)
		if len(batch) >= b.batchSize {
			if err := flush(); err != nil {
				return report, err
			}
		}
	}

	if err := flush(); err != nil {
		return report, err
	}

	return report, nil
}

// processBatch выполняет одну bulk-пачку с повторами. Повторы лечат
// транспортные отказы; ошибки отдельных документов повторами не лечатся
// и попадают в отчет.
func (b *BulkOperations) processBatch(ctx context.Context, docs []any) (*Report, error) {
	body, err := b.buildBulkBody(docs)
	if err != nil {
		return nil, fmt.Errorf("failed to build bulk body: %w", err)
	}

	var report *Report
	err = b.retryLogic.ExecuteWithRetry(ctx, func(ctx context.Context) error {
		res, err := b.client.GetNativeClient().Bulk(
			strings.NewReader(body),
			b.client.GetNativeClient().Bulk.WithContext(ctx),
		)
		if err != nil {
			return fmt.Errorf("failed to execute bulk request: %w", err)
		}
		defer res.Body.Close()

		if res.IsError() {
			return fmt.Errorf("bulk request failed with status: %s", res.Status())
		}

		report, err = b.checkBulkResponse(res.Body)
		return err
	})
	if err != nil {
		return nil, err
	}

	b.logger.Debug("Batch processed",
		"batch_size", len(docs),
		"indexed", report.Indexed,
		"failed", report.Failed,
	)

	return report, nil
}

func (b *BulkOperations) buildBulkBody(docs []any) (string, error) {
	var buf bytes.Buffer

	for _, doc := range docs {
		actionLine := map[string]any{
			"index": map[string]any{
				"_index": b.client.GetIndexName(),
				"_id":    uuid.NewString(),
			},
		}

		actionBytes, err := json.Marshal(actionLine)
		if err != nil {
			return "", fmt.Errorf("failed to marshal action line: %w", err)
		}
		buf.Write(actionBytes)
		buf.WriteByte('\n')

		docBytes, err := json.Marshal(doc)
		if err != nil {
			return "", fmt.Errorf("failed to marshal document: %w", err)
		}
		buf.Write(docBytes)
		buf.WriteByte('\n')
	}

	return buf.String(), nil
}

// checkBulkResponse разбирает поэлементный ответ движка. Частичный провал
// не ошибка прогона; провал всей пачки - ошибка, ее имеет смысл повторять.
func (b *BulkOperations) checkBulkResponse(body io.Reader) (*Report, error) {
	var response struct {
		Errors bool `json:"errors"`
		Items  []struct {
			Index struct {
				Status int `json:"status"`
				Error  *struct {
					Type   string `json:"type"`
					Reason string `json:"reason"`
				} `json:"error,omitempty"`
			} `json:"index"`
		} `json:"items"`
	}

	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode bulk response: %w", err)
	}

	report := &Report{}

	if !response.Errors {
		report.Indexed = len(response.Items)
		return report, nil
	}

	for i, item := range response.Items {
		if item.Index.Error != nil {
			report.Failed++
			report.addError(fmt.Sprintf("item %d: %s - %s",
				i, item.Index.Error.Type, item.Index.Error.Reason))
		} else if item.Index.Status >= 200 && item.Index.Status < 300 {
			report.Indexed++
		}
	}

	b.logger.Warn("Bulk operation completed with errors",
		"total_operations", len(response.Items),
		"successful", report.Indexed,
		"failed", report.Failed,
	)

	if report.Indexed == 0 && report.Failed > 0 {
		return nil, fmt.Errorf("all bulk operations failed: %v", report.Errors[:min(5, len(report.Errors))])
	}

	return report, nil
}
