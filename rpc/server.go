package rpc

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"
	"golang.org/x/net/netutil"

	"github.com/rollkit/fastlane/pkg/config"
	"github.com/rollkit/fastlane/pkg/log"
	"github.com/rollkit/fastlane/pkg/service"
	"github.com/rollkit/fastlane/rpc/json"
)

// Server serves the fastlane JSON-RPC API over HTTP.
type Server struct {
	*service.BaseService

	config  config.RPCConfig
	handler http.Handler

	mtx      sync.Mutex
	listener net.Listener
}

// NewServer creates new instance of Server with given configuration.
func NewServer(app json.Application, cfg config.RPCConfig, logger log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	handler, err := json.GetHTTPHandler(app, logger)
	if err != nil {
		return nil, err
	}

	if cfg.IsCorsEnabled() {
		logger.Debug("CORS enabled", "origins", cfg.CORSAllowedOrigins)
		c := cors.New(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodHead, http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Origin", "Accept", "Content-Type", "X-Requested-With"},
		})
		handler = c.Handler(handler)
	}

	srv := &Server{
		config:  cfg,
		handler: handler,
	}
	srv.BaseService = service.NewBaseService(logger, "RPC", srv)
	return srv, nil
}

// Listen binds the configured address. Run calls it when the server is not
// listening yet.
func (s *Server) Listen() (net.Addr, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.listener != nil {
		return s.listener.Addr(), nil
	}
	if s.config.Address == "" {
		return nil, errors.New("RPC listen address not specified")
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return nil, err
	}
	if s.config.MaxOpenConnections > 0 {
		s.Logger.Debug("limiting number of connections", "limit", s.config.MaxOpenConnections)
		listener = netutil.LimitListener(listener, s.config.MaxOpenConnections)
	}
	s.listener = listener
	return listener.Addr(), nil
}

// Run serves requests until ctx is canceled, then shuts the server down.
func (s *Server) Run(ctx context.Context) error {
	if s.config.Address == "" {
		s.Logger.Info("listen address not specified - RPC will not be exposed")
		<-ctx.Done()
		return nil
	}

	addr, err := s.Listen()
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: time.Second * 2,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("serving HTTP", "listen address", addr)
		errCh <- server.Serve(s.listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		s.Logger.Error("error while serving HTTP", "error", err)
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.Error("error while shutting down RPC server", "error", err)
		return err
	}
	return nil
}
