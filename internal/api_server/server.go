package apiserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/clinicio/docflow/internal/config"
	handlers "github.com/clinicio/docflow/internal/handlers/v1alpha1"
	"github.com/clinicio/docflow/internal/service"
	"github.com/clinicio/docflow/internal/store"
	"github.com/clinicio/docflow/pkg/metrics"
	"github.com/clinicio/docflow/pkg/middleware"
)

const (
	gracefulShutdownTimeout = 5 * time.Second

	apiPrefix = "/api/v1alpha1"
)

type Server struct {
	cfg      *config.Config
	store    store.Store
	listener net.Listener
	docSrv   *service.DocumentService
}

// New returns a new instance of the docflow API server. The document
// service is built by the caller because the scheduler shares it as the
// smart-process job handler.
func New(cfg *config.Config, store store.Store, listener net.Listener, docSrv *service.DocumentService) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		listener: listener,
		docSrv:   docSrv,
	}
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")

	router := chi.NewRouter()

	metricMiddleware := metrics.NewMiddleware("api_server")
	metricMiddleware.MustRegisterDefault()

	router.Use(
		metricMiddleware.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "PUT", "POST", "DELETE", "HEAD", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: false,
			MaxAge:           300,
		}),
		middleware.RequestID,
		middleware.Logger(),
		chiMiddleware.Recoverer,
	)

	h := handlers.NewServiceHandler(
		service.NewBatchService(s.store, s.cfg.Pipeline.MaxRetries, s.cfg.Pipeline.MaxDateTolerance),
		s.docSrv,
		service.NewJobService(s.store),
		service.NewReviewService(s.store),
		service.NewNoteService(s.store, s.cfg.Pipeline.MaxDateTolerance),
		service.NewClientService(s.store),
	)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	router.Route(apiPrefix, h.Routes)

	srv := http.Server{Addr: s.cfg.Service.Address, Handler: router}

	go func() {
		<-ctx.Done()
		zap.S().Named("api_server").Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		zap.S().Named("api_server").Info("api server terminated")
	}()

	zap.S().Named("api_server").Infof("Listening on %s...", s.listener.Addr().String())
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}

	return nil
}
