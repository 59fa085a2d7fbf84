package service

import (
	"context"

	"github.com/rollkit/fastlane/pkg/log"
)

// Service exposes a Run method that blocks until the service ends or the context is canceled.
type Service interface {
	// Run starts the service and blocks until it is shut down via context cancellation,
	// an error occurs, or all work is done.
	Run(ctx context.Context) error
}

// BaseService provides a basic implementation of the Service interface.
// Embedders pass themselves as impl to override Run.
type BaseService struct {
	Logger log.Logger
	name   string
	impl   Service
}

// NewBaseService creates a new BaseService. A nil logger discards output.
func NewBaseService(logger log.Logger, name string, impl Service) *BaseService {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &BaseService{
		Logger: logger.With("service", name),
		name:   name,
		impl:   impl,
	}
}

// SetLogger sets the logger.
func (bs *BaseService) SetLogger(l log.Logger) {
	bs.Logger = l
}

// Run logs the start of the service and defers to the implementation.
// Without an implementation it waits for ctx to be canceled.
func (bs *BaseService) Run(ctx context.Context) error {
	bs.Logger.Info("service start")

	if bs.impl == nil || bs.impl == bs {
		<-ctx.Done()
		bs.Logger.Info("service stop")
		return ctx.Err()
	}

	return bs.impl.Run(ctx)
}

// String returns the service name.
func (bs *BaseService) String() string {
	return bs.name
}
