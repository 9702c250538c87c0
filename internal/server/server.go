package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ThreeSixtyGiving/grantnav/internal/config"
	"github.com/ThreeSixtyGiving/grantnav/internal/export"
	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/client"
	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/search"
	"github.com/ThreeSixtyGiving/grantnav/pkg/logger"
	"github.com/ThreeSixtyGiving/grantnav/pkg/metrics"
)

// pageSize - количество результатов на странице поиска
const pageSize = 20

// Server - HTTP-фасад поиска: тонкий слой над компилятором запросов,
// серчером и аугментером. Вся логика фасетов живет в пакете search,
// хендлеры только собирают view-модель.
type Server struct {
	echo     *echo.Echo
	config   *config.Config
	logger   logger.Logger
	searcher *search.Searcher
	augment  *search.Augmenter
	exporter *export.Exporter
	health   *client.HealthChecker
}

func NewServer(cfg *config.Config, osClient *client.Client, log logger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(metrics.EchoMiddleware())

	searcher := search.NewSearcher(osClient, log)

	s := &Server{
		echo:     e,
		config:   cfg,
		logger:   log,
		searcher: searcher,
		augment:  search.NewAugmenter(searcher, log),
		exporter: export.NewExporter(osClient, log, cfg.Server.DownloadLimit),
		health:   client.NewHealthChecker(osClient),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/search", s.handleSearch)
	s.echo.GET("/search.csv", s.handleSearchCSV)
	s.echo.GET("/search.json", s.handleSearchJSON)
	s.echo.GET("/grants/:id", s.handleGetGrant)
	s.echo.GET("/healthz", s.handleHealthz)
}

// searchView - ответ страницы поиска. SearchError выставляется, когда
// движок не смог разобрать поисковую строку: страница отвечает подсказкой
// пользователю, а не пятисоткой.
type searchView struct {
	Results    *search.AugmentedResults `json:"results,omitempty"`
	Summary    *search.Summary          `json:"summary,omitempty"`
	Page       int                      `json:"page"`
	TotalPages int                      `json:"total_pages"`
	NextPage   string                   `json:"next_page,omitempty"`
	PrevPage   string                   `json:"prev_page,omitempty"`

	SearchError bool `json:"search_error,omitempty"`
}

func (s *Server) handleSearch(c echo.Context) error {
	ctx := c.Request().Context()
	page := parsePage(c.QueryParam("page"))

	q, err := search.ParseParameters(ctx, c.QueryParams(), s.searcher)
	if err != nil {
		s.logger.Error("Failed to compile search parameters", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to build query"})
	}

	resp, err := s.searcher.Execute(ctx, q, (page-1)*pageSize, pageSize)
	if err != nil {
		if errors.Is(err, search.ErrBadQuery) {
			return c.JSON(http.StatusOK, &searchView{Page: page, SearchError: true})
		}
		s.logger.Error("Search request failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "search failed"})
	}

	results, err := s.augment.Augment(ctx, resp, q)
	if err != nil {
		if errors.Is(err, search.ErrBadQuery) {
			return c.JSON(http.StatusOK, &searchView{Page: page, SearchError: true})
		}
		s.logger.Error("Failed to augment search results", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "search failed"})
	}

	summary, err := s.searcher.Summarize(ctx, q)
	if err != nil {
		// Сводка - украшение страницы, без нее результаты все равно отдаем
		s.logger.Warn("Failed to build search summary", "error", err)
		summary = nil
	}

	view := &searchView{
		Results:    results,
		Summary:    summary,
		Page:       page,
		TotalPages: totalPages(resp.Hits.Total.Value),
	}
	s.addPagination(c, view, q)

	return c.JSON(http.StatusOK, view)
}

func parsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func totalPages(total int64) int {
	return int((total + pageSize - 1) / pageSize)
}

// addPagination строит ссылки соседних страниц: тот же набор параметров,
// меняется только page. Ссылка вперед есть не на последней странице,
// назад - везде кроме первой.
func (s *Server) addPagination(c echo.Context, view *searchView, q *search.Query) {
	pageURL := func(page int) string {
		values := search.BuildParameters(q)
		values.Set("page", strconv.Itoa(page))
		return c.Path() + "?" + values.Encode()
	}

	if view.Page < view.TotalPages {
		view.NextPage = pageURL(view.Page + 1)
	}
	if view.Page != 1 && view.TotalPages > 1 {
		view.PrevPage = pageURL(view.Page - 1)
	}
}

func (s *Server) handleSearchCSV(c echo.Context) error {
	ctx := c.Request().Context()

	q, err := search.ParseParameters(ctx, c.QueryParams(), s.searcher)
	if err != nil {
		s.logger.Error("Failed to compile export parameters", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to build query"})
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, exportDisposition("csv"))
	c.Response().WriteHeader(http.StatusOK)

	if err := s.exporter.StreamCSV(ctx, q, c.Response()); err != nil {
		// Заголовки уже ушли клиенту, статус менять поздно
		s.logger.Error("CSV export aborted", "error", err)
	}
	return nil
}

func (s *Server) handleSearchJSON(c echo.Context) error {
	ctx := c.Request().Context()

	q, err := search.ParseParameters(ctx, c.QueryParams(), s.searcher)
	if err != nil {
		s.logger.Error("Failed to compile export parameters", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to build query"})
	}

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c.Response().Header().Set(echo.HeaderContentDisposition, exportDisposition("json"))
	c.Response().WriteHeader(http.StatusOK)

	if err := s.exporter.StreamJSON(ctx, q, c.Response()); err != nil {
		s.logger.Error("JSON export aborted", "error", err)
	}
	return nil
}

func exportDisposition(ext string) string {
	return fmt.Sprintf(`attachment; filename="grantnav-%s.%s"`,
		time.Now().Format("20060102150405"), ext)
}

func (s *Server) handleGetGrant(c echo.Context) error {
	id, err := url.PathUnescape(c.Param("id"))
	if err != nil || id == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid grant id"})
	}

	grant, err := s.searcher.GetByID(c.Request().Context(), id)
	if err != nil {
		s.logger.Error("Failed to fetch grant", "grant_id", id, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
	}
	if grant == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "grant not found"})
	}

	return c.JSON(http.StatusOK, grant)
}

func (s *Server) handleHealthz(c echo.Context) error {
	if err := s.health.Check(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.String(http.StatusOK, "OK")
}

func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "address", s.config.Server.Addr)
	if err := s.echo.Start(s.config.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// Echo отдает нижележащий роутер (используется в тестах)
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
