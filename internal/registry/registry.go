package registry

import (
	"log/slog"

	"namereg/internal/platform/middleware"
	"namereg/internal/registry/handler"
	"namereg/internal/registry/service"
)

// Service exposes the name registry operations.
type Service = service.Service

// Handler wires HTTP endpoints to the registry service.
type Handler = handler.Handler

// NewService constructs the registry service with required dependencies.
func NewService(store service.RecordStore, opts ...service.Option) *Service {
	return service.New(store, opts...)
}

// NewHandler constructs an HTTP handler for the registry routes.
func NewHandler(s *Service, validator middleware.CallerValidator, logger *slog.Logger) *Handler {
	return handler.New(s, validator, logger)
}
