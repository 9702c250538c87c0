package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// HealthChecker проверяет доступность кластера. Импортер использует его
// перед bulk-загрузкой, http-сервер - для /healthz.
type HealthChecker struct {
	client *Client
}

func NewHealthChecker(client *Client) *HealthChecker {
	return &HealthChecker{client: client}
}

func (h *HealthChecker) Check(ctx context.Context) error {
	res, err := h.client.client.Ping(
		h.client.client.Ping.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to ping opensearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch ping failed with status: %s", res.Status())
	}

	return nil
}

// WaitForHealthy ждет пока кластер станет доступен
func (h *HealthChecker) WaitForHealthy(ctx context.Context, maxRetries int, retryInterval time.Duration) error {
	for i := 0; i < maxRetries; i++ {
		if err := h.Check(ctx); err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled while waiting for OpenSearch: %w", ctx.Err())
		case <-time.After(retryInterval):
		}
	}

	return fmt.Errorf("opensearch not healthy after %d retries", maxRetries)
}

type ClusterHealth struct {
	ClusterName   string `json:"cluster_name"`
	Status        string `json:"status"`
	NumberOfNodes int    `json:"number_of_nodes"`
	ActiveShards  int    `json:"active_shards"`
	TimedOut      bool   `json:"timed_out"`
}

func (ch *ClusterHealth) IsHealthy() bool {
	return ch.Status == "green" || ch.Status == "yellow"
}

func (h *HealthChecker) GetClusterHealth(ctx context.Context) (*ClusterHealth, error) {
	res, err := h.client.client.Cluster.Health(
		h.client.client.Cluster.Health.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster health: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("cluster health request failed: %s", res.Status())
	}

	var health ClusterHealth
	if err := json.NewDecoder(res.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("failed to decode cluster health response: %w", err)
	}

	return &health, nil
}
