package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"namereg/internal/events"
	"namereg/internal/registry/metrics"
	"namereg/internal/registry/models"
	"namereg/pkg/attrs"
	"namereg/pkg/domain"
	"namereg/pkg/platform/sentinel"
	"namereg/pkg/requestcontext"
)

// RecordStore is the persistence boundary for the registry. Implementations
// must apply each call atomically with respect to readers; Transfer in
// particular must move the name between the two owners' index entries in one
// step.
type RecordStore interface {
	Create(ctx context.Context, record *models.Record) error
	Find(ctx context.Context, name string) (*models.Record, error)
	UpdateTarget(ctx context.Context, name string, target domain.Identity) error
	UpdateContentHash(ctx context.Context, name string, contentHash string) error
	Transfer(ctx context.Context, name string, newOwner domain.Identity) error
	ListByOwner(ctx context.Context, owner domain.Identity) ([]string, error)
}

// ResolveCache is an optional read cache consulted by Resolve and invalidated
// by every successful mutation.
type ResolveCache interface {
	Find(ctx context.Context, name string) (*models.Record, error)
	Save(ctx context.Context, record *models.Record) error
	Invalidate(ctx context.Context, name string) error
}

// Service is the registry: it owns the name→record mapping and the
// owner→names index behind the RecordStore, and mediates every operation.
//
// Mutating operations are serialized by a single mutex, so each one appears
// atomic to all others and validation is always front-loaded against settled
// state. Reads bypass the mutex; stores guarantee they never observe a
// mutation in progress.
type Service struct {
	mu sync.Mutex

	store     RecordStore
	cache     ResolveCache
	publisher events.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer

	// admin is recorded at construction. No operation grants it any
	// capability; it is inert metadata about who deployed the registry.
	admin domain.Identity
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithPublisher(publisher events.Publisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithCache(c ResolveCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithAdmin records the registry administrator identity.
func WithAdmin(admin domain.Identity) Option {
	return func(s *Service) {
		s.admin = admin
	}
}

// New constructs a Service.
func New(store RecordStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tracer: otel.Tracer("namereg/registry"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Admin returns the administrator identity recorded at construction.
func (s *Service) Admin() domain.Identity {
	return s.admin
}

// Register claims a free name for the caller. The record's RegisteredAt is
// fixed to the request time and never changes; the name can never become
// unregistered again.
func (s *Service) Register(ctx context.Context, name, contentHash string, target, caller domain.Identity) (*models.Record, error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "registry.Register", name, caller)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		return nil, s.reject(span, "register", "name_empty", &models.NameEmptyError{})
	}
	if len(name) > models.MaxNameLength {
		return nil, s.reject(span, "register", "name_too_long", &models.NameTooLongError{Name: name})
	}
	if _, err := s.store.Find(ctx, name); err == nil {
		return nil, s.reject(span, "register", "name_taken", &models.NameAlreadyRegisteredError{Name: name})
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, fmt.Errorf("register %q: %w", name, err)
	}
	if target.IsZero() {
		return nil, s.reject(span, "register", "invalid_target", &models.InvalidTargetError{Target: target})
	}
	if contentHash == "" {
		return nil, s.reject(span, "register", "invalid_content_hash", &models.InvalidContentHashError{Hash: contentHash})
	}

	record, err := models.NewRecord(name, caller, target, contentHash, requestcontext.Now(ctx).UTC())
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, s.reject(span, "register", "name_taken", &models.NameAlreadyRegisteredError{Name: name})
		}
		return nil, fmt.Errorf("register %q: %w", name, err)
	}

	s.invalidate(ctx, name)
	s.emit(ctx, events.NameRegistered(name, caller, contentHash, record.RegisteredAt))
	s.audit(ctx, "name_registered", "name", name, "owner", caller.String())
	if s.metrics != nil {
		s.metrics.NamesRegistered.Inc()
		s.metrics.ObserveOperation("register", start)
	}
	return record.Clone(), nil
}

// UpdateTarget repoints an owned name at a new target identity.
func (s *Service) UpdateTarget(ctx context.Context, name string, newTarget, caller domain.Identity) (*models.Record, error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "registry.UpdateTarget", name, caller)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.ownedRecord(ctx, span, "update_target", name, caller)
	if err != nil {
		return nil, err
	}
	if newTarget.IsZero() {
		return nil, s.reject(span, "update_target", "invalid_target", &models.InvalidTargetError{Target: newTarget})
	}

	if err := s.store.UpdateTarget(ctx, name, newTarget); err != nil {
		return nil, fmt.Errorf("update target of %q: %w", name, err)
	}
	record.Target = newTarget

	s.invalidate(ctx, name)
	s.emit(ctx, events.NameUpdated(name, record.Target, record.ContentHash, requestcontext.Now(ctx).UTC()))
	s.audit(ctx, "name_updated", "name", name, "field", "target")
	if s.metrics != nil {
		s.metrics.IncrementUpdate("target")
		s.metrics.ObserveOperation("update_target", start)
	}
	return record, nil
}

// UpdateContentHash replaces the content hash of an owned name.
func (s *Service) UpdateContentHash(ctx context.Context, name, newHash string, caller domain.Identity) (*models.Record, error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "registry.UpdateContentHash", name, caller)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.ownedRecord(ctx, span, "update_content_hash", name, caller)
	if err != nil {
		return nil, err
	}
	if newHash == "" {
		return nil, s.reject(span, "update_content_hash", "invalid_content_hash", &models.InvalidContentHashError{Hash: newHash})
	}

	if err := s.store.UpdateContentHash(ctx, name, newHash); err != nil {
		return nil, fmt.Errorf("update content hash of %q: %w", name, err)
	}
	record.ContentHash = newHash

	s.invalidate(ctx, name)
	s.emit(ctx, events.NameUpdated(name, record.Target, record.ContentHash, requestcontext.Now(ctx).UTC()))
	s.audit(ctx, "name_updated", "name", name, "field", "content_hash")
	if s.metrics != nil {
		s.metrics.IncrementUpdate("content_hash")
		s.metrics.ObserveOperation("update_content_hash", start)
	}
	return record, nil
}

// Transfer hands an owned name to a new owner. The ownership field and the
// owner index move together; no observer sees the name owned by neither or
// both parties.
func (s *Service) Transfer(ctx context.Context, name string, newOwner, caller domain.Identity) (*models.Record, error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "registry.Transfer", name, caller)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.ownedRecord(ctx, span, "transfer", name, caller)
	if err != nil {
		return nil, err
	}
	if newOwner.IsZero() {
		return nil, s.reject(span, "transfer", "invalid_target", &models.InvalidTargetError{Target: newOwner})
	}
	if newOwner == record.Owner {
		return nil, s.reject(span, "transfer", "already_owner", &models.AlreadyOwnerError{Name: name, Owner: newOwner})
	}

	oldOwner := record.Owner
	if err := s.store.Transfer(ctx, name, newOwner); err != nil {
		return nil, fmt.Errorf("transfer %q: %w", name, err)
	}
	record.Owner = newOwner

	s.invalidate(ctx, name)
	s.emit(ctx, events.NameTransferred(name, oldOwner, newOwner, requestcontext.Now(ctx).UTC()))
	s.audit(ctx, "name_transferred", "name", name, "old_owner", oldOwner.String(), "new_owner", newOwner.String())
	if s.metrics != nil {
		s.metrics.NamesTransferred.Inc()
		s.metrics.ObserveOperation("transfer", start)
	}
	return record, nil
}

// Resolve returns the full record for a name. Read-only.
func (s *Service) Resolve(ctx context.Context, name string) (*models.Record, error) {
	ctx, span := s.startSpan(ctx, "registry.Resolve", name, domain.Zero)
	defer span.End()

	if s.cache != nil {
		if record, err := s.cache.Find(ctx, name); err == nil {
			if s.metrics != nil {
				s.metrics.CacheHits.Inc()
			}
			return record, nil
		}
		if s.metrics != nil {
			s.metrics.CacheMisses.Inc()
		}
	}

	record, err := s.store.Find(ctx, name)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, &models.NameNotFoundError{Name: name}
		}
		return nil, fmt.Errorf("resolve %q: %w", name, err)
	}
	if s.cache != nil {
		if err := s.cache.Save(ctx, record); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "resolve cache save failed", "name", name, "error", err)
		}
	}
	return record, nil
}

// IsAvailable reports whether a name is still unclaimed. Never fails on an
// unknown name; only infrastructure errors surface.
func (s *Service) IsAvailable(ctx context.Context, name string) (bool, error) {
	_, err := s.store.Find(ctx, name)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return true, nil
	}
	return false, fmt.Errorf("check availability of %q: %w", name, err)
}

// NamesOwnedBy lists the names currently held by an identity. An identity that
// owns nothing yields an empty list, not an error.
func (s *Service) NamesOwnedBy(ctx context.Context, owner domain.Identity) ([]string, error) {
	names, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list names of %q: %w", owner, err)
	}
	return names, nil
}

// ownedRecord front-loads the shared existence and ownership checks.
// Must be called with the mutation mutex held.
func (s *Service) ownedRecord(ctx context.Context, span trace.Span, operation, name string, caller domain.Identity) (*models.Record, error) {
	record, err := s.store.Find(ctx, name)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, s.reject(span, operation, "name_not_found", &models.NameNotFoundError{Name: name})
		}
		return nil, fmt.Errorf("%s %q: %w", operation, name, err)
	}
	if record.Owner != caller {
		return nil, s.reject(span, operation, "not_owner", &models.NotOwnerError{Name: name, Caller: caller})
	}
	return record, nil
}

func (s *Service) reject(span trace.Span, operation, reason string, err error) error {
	span.RecordError(err)
	if s.metrics != nil {
		s.metrics.IncrementRejected(operation, reason)
	}
	return err
}

// invalidate drops the cached entry for a name after an applied mutation. The
// state change is already durable, so a failed invalidation is logged rather
// than unwound.
func (s *Service) invalidate(ctx context.Context, name string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, name); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "resolve cache invalidation failed", "name", name, "error", err)
	}
}

// emit delivers a notification for an applied mutation. The state change is
// already durable, so a failed publish is logged rather than unwound.
func (s *Service) emit(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.publisher.Publish(ctx, event); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "event publish failed",
			"kind", event.Kind,
			"name", event.Name,
			"error", err,
		)
	}
}

func (s *Service) audit(ctx context.Context, action string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.AddEvent(action, trace.WithAttributes(
			attribute.String("registry.name", attrs.ExtractString(attributes, "name")),
		))
	}
	if s.logger != nil {
		args := append(attributes, "event", action, "log_type", "audit")
		s.logger.InfoContext(ctx, action, args...)
	}
}

func (s *Service) startSpan(ctx context.Context, name, recordName string, caller domain.Identity) (context.Context, trace.Span) {
	spanAttrs := []attribute.KeyValue{attribute.String("registry.name", recordName)}
	if !caller.IsZero() {
		spanAttrs = append(spanAttrs, attribute.String("registry.caller", caller.String()))
	}
	return s.tracer.Start(ctx, name, trace.WithAttributes(spanAttrs...))
}
