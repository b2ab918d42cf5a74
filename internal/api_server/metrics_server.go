package apiserver

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/clinicio/docflow/pkg/metrics"
)

// MetricServer serves /metrics on its own listener so the scrape
// endpoint stays off the public API port.
type MetricServer struct {
	listener net.Listener
	srv      *http.Server
	log      *zap.SugaredLogger
}

func NewMetricServer(bindAddress string, listener net.Listener) *MetricServer {
	router := chi.NewRouter()
	router.Handle("/metrics", metrics.NewPrometheusMetricsHandler().Handler())

	return &MetricServer{
		listener: listener,
		srv:      &http.Server{Addr: bindAddress, Handler: router},
		log:      zap.S().Named("metrics_server"),
	}
}

func (m *MetricServer) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		m.srv.SetKeepAlivesEnabled(false)
		_ = m.srv.Shutdown(shutdownCtx)
		m.log.Info("metrics server terminated")
	}()

	m.log.Infof("serving metrics: %s", m.srv.Addr)
	if err := m.srv.Serve(m.listener); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
