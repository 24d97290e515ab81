package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tungarlabs/fuelbills/internal/auth"
	"github.com/tungarlabs/fuelbills/internal/common"
	"github.com/tungarlabs/fuelbills/internal/export"
	"github.com/tungarlabs/fuelbills/internal/ingest"
	"github.com/tungarlabs/fuelbills/internal/llm"
	"github.com/tungarlabs/fuelbills/internal/pipeline"
)

// Service wires the upload/export/health HTTP surface.
type Service struct {
	cfg       common.ServerConfig
	logger    *slog.Logger
	ingestor  *ingest.FSIngestor
	processor *pipeline.Processor
	exporter  *export.Service
	pinger    llm.Pinger
	authmw    *auth.Middleware
}

func NewService(
	cfg common.ServerConfig,
	logger *slog.Logger,
	ingestor *ingest.FSIngestor,
	processor *pipeline.Processor,
	exporter *export.Service,
	pinger llm.Pinger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:       cfg,
		logger:    logger,
		ingestor:  ingestor,
		processor: processor,
		exporter:  exporter,
		pinger:    pinger,
		authmw:    auth.NewMiddleware([]byte(cfg.AuthSecret)),
	}
}

// Router builds the chi mux. Health and metrics stay open; upload and
// export sit behind auth when a secret is configured.
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.authmw.Wrap)
		r.Post("/upload", s.handleUpload)
		r.Get("/export.xlsx", s.handleExportXLSX)
		r.Get("/export.pdf", s.handleExportPDF)
	})

	return r
}
