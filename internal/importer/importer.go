// Package importer грузит опубликованные файлы грантов и организаций в
// индекс: потоковый разбор, обогащение по записи, bulk-индексация.
// Файл любого размера обрабатывается в памяти одной пачки.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/ThreeSixtyGiving/grantnav/internal/enrich"
	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/indexing"
	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/mapping"
	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/models"
	"github.com/ThreeSixtyGiving/grantnav/pkg/logger"
)

type Importer struct {
	mapping  *mapping.Manager
	indexer  *indexing.Manager
	pipeline *enrich.Pipeline
	logger   logger.Logger
}

type Options struct {
	// Снести индекс перед импортом
	Clean bool
	// NDJSON-файлы канонических записей организаций
	Funders    string
	Recipients string
	// JSON-файлы грантов (объект с массивом grants)
	GrantFiles []string
}

func New(mapping *mapping.Manager, indexer *indexing.Manager, pipeline *enrich.Pipeline, logger logger.Logger) *Importer {
	return &Importer{
		mapping:  mapping,
		indexer:  indexer,
		pipeline: pipeline,
		logger:   logger,
	}
}

// Run выполняет импорт: организации первыми - каноническое разрешение
// организаций в обогащении грантов читает их из индекса
func (imp *Importer) Run(ctx context.Context, opts Options) error {
	if opts.Clean {
		if err := imp.mapping.DeleteIndex(ctx); err != nil {
			return err
		}
	}
	if err := imp.mapping.EnsureIndex(ctx); err != nil {
		return err
	}

	if opts.Recipients != "" {
		report, err := imp.indexer.IndexOrganisations(ctx,
			imp.organisationStream(opts.Recipients), models.DataTypeRecipient)
		if err != nil {
			return fmt.Errorf("failed to import recipients: %w", err)
		}
		imp.logReport(opts.Recipients, report)
	}
	if opts.Funders != "" {
		report, err := imp.indexer.IndexOrganisations(ctx,
			imp.organisationStream(opts.Funders), models.DataTypeFunder)
		if err != nil {
			return fmt.Errorf("failed to import funders: %w", err)
		}
		imp.logReport(opts.Funders, report)
	}

	for _, path := range opts.GrantFiles {
		if !strings.HasSuffix(path, ".json") {
			imp.logger.Warn("Skipping unimportable file, bad file type", "file", path)
			continue
		}

		report, err := imp.indexer.IndexGrants(ctx, imp.grantStream(ctx, path))
		if err != nil {
			return fmt.Errorf("failed to import %s: %w", path, err)
		}
		imp.logReport(path, report)
	}

	return nil
}

func (imp *Importer) logReport(path string, report *indexing.Report) {
	imp.logger.Info("File imported",
		"file", path,
		"indexed", report.Indexed,
		"failed", report.Failed,
	)
	for _, message := range report.Errors {
		imp.logger.Warn("Import error", "file", path, "detail", message)
	}
}

// grantStream потоково читает массив grants, обогащая каждую запись.
// Записи идут строго в порядке файла: ошибки в отчете позиционные.
func (imp *Importer) grantStream(ctx context.Context, path string) iter.Seq2[*models.Grant, error] {
	return func(yield func(*models.Grant, error) bool) {
		file, err := os.Open(path)
		if err != nil {
			yield(nil, fmt.Errorf("failed to open %s: %w", path, err))
			return
		}
		defer file.Close()

		decoder := json.NewDecoder(file)
		if err := seekGrantsArray(decoder); err != nil {
			yield(nil, fmt.Errorf("%s: %w", path, err))
			return
		}

		filename := filepath.Base(path)
		for decoder.More() {
			var grant models.Grant
			if err := decoder.Decode(&grant); err != nil {
				// После синтаксической ошибки декодер бесполезен
				yield(nil, fmt.Errorf("malformed grant record: %w", err))
				return
			}

			grant.Filename = filename
			if err := imp.pipeline.EnrichGrant(ctx, &grant); err != nil {
				yield(nil, fmt.Errorf("failed to enrich grant %s: %w", grant.Id, err))
				return
			}

			if !yield(&grant, nil) {
				return
			}
		}
	}
}

// organisationStream читает NDJSON-файл канонических записей организаций
func (imp *Importer) organisationStream(path string) iter.Seq2[*models.Organisation, error] {
	return func(yield func(*models.Organisation, error) bool) {
		file, err := os.Open(path)
		if err != nil {
			yield(nil, fmt.Errorf("failed to open %s: %w", path, err))
			return
		}
		defer file.Close()

		decoder := json.NewDecoder(file)
		for {
			var org models.Organisation
			if err := decoder.Decode(&org); err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				yield(nil, fmt.Errorf("malformed organisation record: %w", err))
				return
			}

			imp.pipeline.EnrichOrganisation(&org)

			if !yield(&org, nil) {
				return
			}
		}
	}
}

// seekGrantsArray позиционирует декодер на первом элементе массива
// grants верхнего уровня, пропуская остальные ключи объекта
func seekGrantsArray(decoder *json.Decoder) error {
	token, err := decoder.Token()
	if err != nil {
		return fmt.Errorf("failed to read file start: %w", err)
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return errors.New("expected a top-level JSON object")
	}

	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return fmt.Errorf("failed to read object key: %w", err)
		}
		key, ok := keyToken.(string)
		if !ok {
			return errors.New("expected an object key")
		}

		if key == "grants" {
			arrayToken, err := decoder.Token()
			if err != nil {
				return fmt.Errorf("failed to read grants value: %w", err)
			}
			if delim, ok := arrayToken.(json.Delim); !ok || delim != '[' {
				return errors.New("grants is not an array")
			}
			return nil
		}

		// Пропускаем значение целиком
		var skipped json.RawMessage
		if err := decoder.Decode(&skipped); err != nil {
			return fmt.Errorf("failed to skip %q: %w", key, err)
		}
	}

	return errors.New("no grants array found")
}
