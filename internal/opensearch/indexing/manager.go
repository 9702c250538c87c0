package indexing

import (
	"context"
	"iter"
	"time"

	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/client"
	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/models"
	"github.com/ThreeSixtyGiving/grantnav/pkg/logger"
	"github.com/ThreeSixtyGiving/grantnav/pkg/metrics"
)

// Manager - фасад индексации для импортера: помечает документы типом,
// прогоняет их через bulk-операции и пишет метрики
type Manager struct {
	client  *client.Client
	bulkOps *BulkOperations
	logger  logger.Logger
}

func NewManager(client *client.Client, logger logger.Logger, batchSize, maxRetries int, backoffFactor float64) *Manager {
	retryLogic := NewRetryLogic(logger).
		WithMaxRetries(maxRetries).
		WithBackoffFactor(backoffFactor)

	return &Manager{
		client:  client,
		bulkOps: NewBulkOperations(client, retryLogic, logger, batchSize),
		logger:  logger,
	}
}

// IndexGrants индексирует поток грантов одного файла в исходном порядке
func (m *Manager) IndexGrants(ctx context.Context, grants iter.Seq2[*models.Grant, error]) (*Report, error) {
	start := time.Now()

	report, err := m.bulkOps.IndexStream(ctx, func(yield func(any, error) bool) {
		for grant, err := range grants {
			if grant != nil {
				grant.DataType = models.DataTypeGrant
			}
			if !yield(grant, err) {
				return
			}
		}
	})
	if report != nil {
		metrics.RecordImportedDocuments(models.DataTypeGrant, report.Indexed, report.Failed)
	}

	m.logger.Info("Grant indexing finished",
		"indexed", reportIndexed(report),
		"failed", reportFailed(report),
		"duration", time.Since(start),
		"error", err,
	)

	return report, err
}

// IndexOrganisations индексирует поток канонических записей организаций
// под заданным dataType (funder или recipient)
func (m *Manager) IndexOrganisations(ctx context.Context, organisations iter.Seq2[*models.Organisation, error], dataType string) (*Report, error) {
	start := time.Now()

	report, err := m.bulkOps.IndexStream(ctx, func(yield func(any, error) bool) {
		for org, err := range organisations {
			if org != nil {
				org.DataType = dataType
			}
			if !yield(org, err) {
				return
			}
		}
	})
	if report != nil {
		metrics.RecordImportedDocuments(dataType, report.Indexed, report.Failed)
	}

	m.logger.Info("Organisation indexing finished",
		"data_type", dataType,
		"indexed", reportIndexed(report),
		"failed", reportFailed(report),
		"duration", time.Since(start),
		"error", err,
	)

	return report, err
}

func reportIndexed(r *Report) int {
	if r == nil {
		return 0
	}
	return r.Indexed
}

func reportFailed(r *Report) int {
	if r == nil {
		return 0
	}
	return r.Failed
}
