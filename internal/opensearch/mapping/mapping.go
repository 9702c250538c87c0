// Package mapping владеет схемой индекса. Явный маппинг с dynamic: false -
// индексируются только перечисленные поля, остальное хранится, но не ищется.
package mapping

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/client"
	"github.com/ThreeSixtyGiving/grantnav/pkg/logger"
)

//go:embed grants.json
var mappingFiles embed.FS

type Manager struct {
	client *client.Client
	logger logger.Logger
}

func NewManager(client *client.Client, log logger.Logger) *Manager {
	return &Manager{
		client: client,
		logger: log,
	}
}

// EnsureIndex создает индекс с маппингом, если его еще нет
func (m *Manager) EnsureIndex(ctx context.Context) error {
	indexName := m.client.GetIndexName()

	exists, err := m.indexExists(ctx, indexName)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	if exists {
		m.logger.Info("OpenSearch index already exists", "index", indexName)
		return nil
	}

	return m.createIndex(ctx, indexName)
}

// DeleteIndex удаляет индекс целиком; отсутствие индекса не ошибка
func (m *Manager) DeleteIndex(ctx context.Context) error {
	indexName := m.client.GetIndexName()

	res, err := m.client.GetNativeClient().Indices.Delete(
		[]string{indexName},
		m.client.GetNativeClient().Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to delete index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("failed to delete index, status: %s", res.Status())
	}

	m.logger.Info("OpenSearch index deleted", "index", indexName)
	return nil
}

func (m *Manager) indexExists(ctx context.Context, indexName string) (bool, error) {
	res, err := m.client.GetNativeClient().Indices.Exists(
		[]string{indexName},
		m.client.GetNativeClient().Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	return res.StatusCode == 200, nil
}

func (m *Manager) createIndex(ctx context.Context, indexName string) error {
	mapping, err := m.loadGrantsMapping()
	if err != nil {
		return fmt.Errorf("failed to load mapping: %w", err)
	}

	res, err := m.client.GetNativeClient().Indices.Create(
		indexName,
		m.client.GetNativeClient().Indices.Create.WithContext(ctx),
		m.client.GetNativeClient().Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to create index, status: %s", res.Status())
	}

	m.logger.Info("OpenSearch index created successfully", "index", indexName)

	return nil
}

func (m *Manager) loadGrantsMapping() (string, error) {
	data, err := mappingFiles.ReadFile("grants.json")
	if err != nil {
		return "", fmt.Errorf("failed to read grants mapping: %w", err)
	}
	return string(data), nil
}
