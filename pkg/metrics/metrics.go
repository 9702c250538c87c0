package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики для HTTP запросов
var (
	// Счетчик всех HTTP запросов
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// Гистограмма времени обработки HTTP запросов
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets, // 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10
		},
		[]string{"route", "method"},
	)
)

// Метрики для OpenSearch
var (
	// Счетчик OpenSearch операций
	OpenSearchOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opensearch_operations_total",
			Help: "Total number of OpenSearch operations",
		},
		[]string{"operation", "index", "status"},
	)

	// Время выполнения OpenSearch операций
	OpenSearchOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opensearch_operation_duration_seconds",
			Help:    "Duration of OpenSearch operations in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation", "index"},
	)

	// Количество документов в индексе
	OpenSearchDocumentsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "opensearch_documents_total",
			Help: "Total number of documents in OpenSearch index",
		},
		[]string{"index", "data_type"},
	)
)

// Бизнес метрики
var (
	// Счетчик поисковых запросов
	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_requests_total",
			Help: "Total number of search requests",
		},
		[]string{"data_type", "status"}, // status: success, bad_query, error
	)

	// Время выполнения поиска
	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_duration_seconds",
			Help:    "Duration of search operations",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"data_type"},
	)

	// Счетчик проиндексированных при импорте документов
	ImportDocumentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_documents_total",
			Help: "Total number of documents processed during import",
		},
		[]string{"data_type", "status"}, // status: indexed, failed
	)

	// Счетчик обращений к кешу организаций
	OrgCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "org_cache_lookups_total",
			Help: "Total number of organisation cache lookups",
		},
		[]string{"result"}, // hit, miss, error
	)

	// Счетчик строк, отданных в выгрузках
	ExportRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "export_rows_total",
			Help: "Total number of rows written to downloads",
		},
		[]string{"format"}, // csv, json
	)
)

// Системные метрики
var (
	// Информация о сервисе
	ServiceInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "service_info",
			Help: "Information about the service",
		},
		[]string{"version", "service", "environment"},
	)

	// Время работы сервиса
	ServiceUptime = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "service_uptime_seconds",
			Help: "Service uptime in seconds",
		},
		[]string{"service"},
	)
)

// Хелперы для удобного использования метрик

// RecordHTTPRequest записывает метрику HTTP запроса
func RecordHTTPRequest(route, method, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
	HTTPRequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordOpenSearchOperation записывает метрику OpenSearch операции
func RecordOpenSearchOperation(operation, index, status string, duration time.Duration) {
	OpenSearchOperationsTotal.WithLabelValues(operation, index, status).Inc()
	OpenSearchOperationDuration.WithLabelValues(operation, index).Observe(duration.Seconds())
}

// RecordSearchRequest записывает метрику поискового запроса
func RecordSearchRequest(dataType, status string, duration time.Duration) {
	SearchRequestsTotal.WithLabelValues(dataType, status).Inc()
	SearchDuration.WithLabelValues(dataType).Observe(duration.Seconds())
}

// RecordImportedDocuments записывает результат пачки импорта
func RecordImportedDocuments(dataType string, indexed, failed int) {
	ImportDocumentsTotal.WithLabelValues(dataType, "indexed").Add(float64(indexed))
	ImportDocumentsTotal.WithLabelValues(dataType, "failed").Add(float64(failed))
}

// RecordOrgCacheLookup записывает обращение к кешу организаций
func RecordOrgCacheLookup(result string) {
	OrgCacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordExportRows записывает количество строк в выгрузке
func RecordExportRows(format string, rows int) {
	ExportRowsTotal.WithLabelValues(format).Add(float64(rows))
}

// SetServiceInfo устанавливает информацию о сервисе
func SetServiceInfo(version, service, environment string) {
	ServiceInfo.WithLabelValues(version, service, environment).Set(1)
}

// UpdateServiceUptime обновляет время работы сервиса
func UpdateServiceUptime(service string, startTime time.Time) {
	ServiceUptime.WithLabelValues(service).Set(time.Since(startTime).Seconds())
}

// UpdateOpenSearchDocuments обновляет количество документов в индексе
func UpdateOpenSearchDocuments(index, dataType string, count int64) {
	OpenSearchDocumentsTotal.WithLabelValues(index, dataType).Set(float64(count))
}

// StatusFromError возвращает статус на основе ошибки
func StatusFromError(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
