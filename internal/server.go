package internal

import (
	"context"
	"database/sql"
	"embed"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"project-service/internal/config"
	"project-service/internal/handlers"
	"project-service/internal/service"
)

//go:embed openapi
var openapiFS embed.FS

type Server struct {
	DB       *sql.DB
	Router   *chi.Mux
	Metrics  *Metrics
	Projects *service.ProjectService
	Logger   *slog.Logger

	cfg *config.Config
}

// NewServer wires the router. db may be nil when the in-memory store is used.
func NewServer(cfg *config.Config, db *sql.DB, projects *service.ProjectService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		DB:       db,
		Router:   chi.NewRouter(),
		Metrics:  NewMetrics(),
		Projects: projects,
		Logger:   logger,
		cfg:      cfg,
	}

	s.Router.Use(RequestIDMiddleware)
	s.Router.Use(RequestLogger(logger))
	s.Router.Use(CORSMiddleware(cfg.AllowedOrigin))

	if cfg.EnableMetrics {
		s.Router.Use(s.Metrics.Middleware())
		s.Router.Get("/metrics", s.Metrics.Handler().ServeHTTP)
		if db != nil {
			if err := s.Metrics.RegisterDB(db, "projects"); err != nil {
				logger.Warn("db stats collector not registered", "err", err)
			}
		}
	}

	s.Router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	s.Router.Get("/dbping", s.dbPing)
	s.mountDocs(s.Router)

	imports := handlers.NewImportsHandler(projects, cfg.ImportMaxBytes, logger)
	exports := handlers.NewExportsHandler(projects, logger)

	s.Router.Route("/api/projects", func(r chi.Router) {
		r.Get("/", s.listProjects)
		r.Post("/", s.createProject)
		r.Get("/export", exports.DownloadExcel)
		r.Post("/import", imports.UploadExcel)
		r.Get("/artisan/{artisanId}", s.listArtisanProjects)
		r.Get("/{id}", s.getProject)
		r.Put("/{id}", s.updateProject)
		r.Delete("/{id}", s.deleteProject)
		r.Patch("/{id}/status", s.updateProjectStatus)
		r.Post("/{id}/updates", s.addProjectUpdate)
		r.Get("/{id}/updates", s.listProjectUpdates)
	})

	return s
}

func (s *Server) dbPing(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		if _, err := w.Write([]byte("db: memory")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		s.Logger.ErrorContext(r.Context(), "db ping failed", "err", err)
		http.Error(w, "db: unavailable", http.StatusServiceUnavailable)
		return
	}
	if _, err := w.Write([]byte("db: ok")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Close properly shuts down the server and cleans up resources
func (s *Server) Close(ctx context.Context) error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// mountDocs serves the OpenAPI document and Swagger UI
func (s *Server) mountDocs(mux *chi.Mux) {
	if !s.cfg.EnableSwagger {
		return
	}

	mux.HandleFunc("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		data, err := openapiFS.ReadFile("openapi/openapi.yaml")
		if err != nil {
			http.Error(w, "Failed to read OpenAPI document", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/x-yaml")
		if _, err := w.Write(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	mux.HandleFunc("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(docsPage))
	})
}

const docsPage = `<!doctype html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>Project Service API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            window.ui = SwaggerUIBundle({
                url: '/openapi.yaml',
                dom_id: '#swagger-ui',
                deepLinking: true,
                tryItOutEnabled: true
            });
        };
    </script>
</body>
</html>`
