package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"namereg/internal/platform/middleware"
	"namereg/internal/registry/models"
	"namereg/pkg/domain"
	"namereg/pkg/requestcontext"
)

// Service defines the registry operations the HTTP layer delegates to.
type Service interface {
	Register(ctx context.Context, name, contentHash string, target, caller domain.Identity) (*models.Record, error)
	UpdateTarget(ctx context.Context, name string, newTarget, caller domain.Identity) (*models.Record, error)
	UpdateContentHash(ctx context.Context, name, newHash string, caller domain.Identity) (*models.Record, error)
	Transfer(ctx context.Context, name string, newOwner, caller domain.Identity) (*models.Record, error)
	Resolve(ctx context.Context, name string) (*models.Record, error)
	IsAvailable(ctx context.Context, name string) (bool, error)
	NamesOwnedBy(ctx context.Context, owner domain.Identity) ([]string, error)
}

// Handler is the thin HTTP layer. It delegates to the registry service without
// embedding business logic so transport concerns remain isolated.
type Handler struct {
	registry  Service
	logger    *slog.Logger
	validator middleware.CallerValidator
}

// New creates a registry Handler.
func New(registry Service, validator middleware.CallerValidator, logger *slog.Logger) *Handler {
	return &Handler{registry: registry, logger: logger, validator: validator}
}

// Register wires the registry routes with their middleware chain. Mutating
// routes additionally require a bearer token identifying the caller.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Post("/v1/names", h.handleRegister)
		r.Put("/v1/names/{name}/target", h.handleUpdateTarget)
		r.Put("/v1/names/{name}/content-hash", h.handleUpdateContentHash)
		r.Post("/v1/names/{name}/transfer", h.handleTransfer)
	})

	router.Get("/v1/names/{name}", h.handleResolve)
	router.Get("/v1/names/{name}/available", h.handleAvailability)
	router.Get("/v1/owners/{identity}/names", h.handleNamesOwnedBy)

	r.Mount("/", router)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warnBadRequest(ctx, "invalid register request", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "invalid request body"})
		return
	}

	record, err := h.registry.Register(ctx, req.Name, req.ContentHash, domain.Identity(req.Target), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecordResponse(record))
}

func (h *Handler) handleUpdateTarget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req UpdateTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warnBadRequest(ctx, "invalid update target request", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "invalid request body"})
		return
	}

	record, err := h.registry.UpdateTarget(ctx, chi.URLParam(r, "name"), domain.Identity(req.Target), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(record))
}

func (h *Handler) handleUpdateContentHash(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req UpdateContentHashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warnBadRequest(ctx, "invalid update content hash request", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "invalid request body"})
		return
	}

	record, err := h.registry.UpdateContentHash(ctx, chi.URLParam(r, "name"), req.ContentHash, caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(record))
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warnBadRequest(ctx, "invalid transfer request", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "invalid request body"})
		return
	}

	record, err := h.registry.Transfer(ctx, chi.URLParam(r, "name"), domain.Identity(req.NewOwner), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(record))
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	record, err := h.registry.Resolve(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(record))
}

func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	available, err := h.registry.IsAvailable(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityResponse{Name: name, Available: available})
}

func (h *Handler) handleNamesOwnedBy(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")
	names, err := h.registry.NamesOwnedBy(r.Context(), domain.Identity(identity))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OwnedNamesResponse{Owner: identity, Names: names})
}

// caller reads the authenticated identity set by RequireAuth. A missing caller
// here means the route was mounted without the middleware.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	caller := requestcontext.Caller(r.Context())
	if caller.IsZero() {
		h.logger.ErrorContext(r.Context(), "caller missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal", Message: "authentication context error"})
		return domain.Zero, false
	}
	return caller, true
}

func (h *Handler) warnBadRequest(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	)
}
