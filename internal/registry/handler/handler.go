// Package handler wires the registry engine to its HTTP surface.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"registrar/internal/registry/fees"
	"registrar/internal/registry/models"
	"registrar/internal/registry/service"
	id "registrar/pkg/domain"
	"registrar/pkg/platform/httputil"
	"registrar/pkg/requestcontext"
)

// Service defines the engine operations the HTTP layer depends on.
type Service interface {
	Register(ctx context.Context, name, tld string, requester, target id.AccountID, years int) (*models.DomainRecord, error)
	Renew(ctx context.Context, name, tld string, requester id.AccountID, years int) (*models.DomainRecord, error)
	SetResolutionTarget(ctx context.Context, name, tld string, requester, target id.AccountID) (*models.DomainRecord, error)
	BatchRegister(ctx context.Context, requester id.AccountID, batch []service.BatchEntry) ([]models.RecordKey, error)
	Resolve(ctx context.Context, name, tld string) id.AccountID
	IsAvailable(ctx context.Context, name, tld string) (bool, error)
	GetRecord(ctx context.Context, name, tld string) (*models.DomainRecord, error)

	SetFee(ctx context.Context, caller id.AccountID, bucket fees.Bucket, price fees.Amount) error
	AddTLD(ctx context.Context, caller id.AccountID, tld string) error
	RemoveTLD(ctx context.Context, caller id.AccountID, tld string) error
	SetTreasury(ctx context.Context, caller, treasury id.AccountID) error
}

// TLDLister exposes the supported suffixes for the public listing endpoint.
type TLDLister interface {
	List() []string
}

// FeeSchedule exposes the current price table.
type FeeSchedule interface {
	Snapshot() map[fees.Bucket]fees.Amount
}

// Handler serves the registry endpoints.
type Handler struct {
	service Service
	tlds    TLDLister
	fees    FeeSchedule
	logger  *slog.Logger
}

// New constructs a registry handler with its dependencies.
func New(service Service, tlds TLDLister, fees FeeSchedule, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		tlds:    tlds,
		fees:    fees,
		logger:  logger,
	}
}

// Register mounts the public registry endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/resolve/{tld}/{name}", h.HandleResolve)
	r.Get("/domains/{tld}/{name}", h.HandleGetRecord)
	r.Get("/domains/{tld}/{name}/availability", h.HandleAvailability)
	r.Post("/domains", h.HandleRegister)
	r.Post("/domains/batch", h.HandleBatchRegister)
	r.Post("/domains/{tld}/{name}/renew", h.HandleRenew)
	r.Put("/domains/{tld}/{name}/target", h.HandleSetTarget)
	r.Get("/tlds", h.HandleListTLDs)
	r.Get("/fees", h.HandleFeeSchedule)
}

// HandleResolve handles GET /v1/resolve/{tld}/{name}. Absence and expiry
// both surface as the null identity with a 200, never as an error.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rawName := chi.URLParam(r, "name")
	rawTLD := chi.URLParam(r, "tld")

	target := h.service.Resolve(ctx, rawName, rawTLD)
	httputil.WriteJSON(w, http.StatusOK, ResolveResponse{
		Target:     target.String(),
		Registered: !target.IsNil(),
	})
}

// HandleGetRecord handles GET /v1/domains/{tld}/{name}.
func (h *Handler) HandleGetRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	record, err := h.service.GetRecord(ctx, chi.URLParam(r, "name"), chi.URLParam(r, "tld"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(chi.URLParam(r, "name"), record, requestcontext.Now(ctx)))
}

// HandleAvailability handles GET /v1/domains/{tld}/{name}/availability.
func (h *Handler) HandleAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	available, err := h.service.IsAvailable(ctx, chi.URLParam(r, "name"), chi.URLParam(r, "tld"))
	if err != nil {
		h.logger.ErrorContext(ctx, "availability check failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AvailabilityResponse{Available: available})
}

// HandleRegister handles POST /v1/domains.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.Register(ctx, req.Name, req.TLD, req.ParsedRequester(), req.ParsedTarget(), req.Years)
	if err != nil {
		h.logger.WarnContext(ctx, "registration rejected",
			"request_id", requestID,
			"name", req.Name,
			"tld", req.TLD,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "domain registered",
		"request_id", requestID,
		"name", req.Name,
		"tld", req.TLD,
		"owner", record.Owner.String(),
		"expires_at", record.ExpiresAt,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromRecord(req.Name, record, requestcontext.Now(ctx)))
}

// HandleBatchRegister handles POST /v1/domains/batch.
func (h *Handler) HandleBatchRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[BatchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	keys, err := h.service.BatchRegister(ctx, req.ParsedRequester(), req.Entries())
	if err != nil {
		h.logger.WarnContext(ctx, "batch registration rejected",
			"request_id", requestID,
			"count", len(req.Domains),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "batch registered",
		"request_id", requestID,
		"count", len(keys),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromBatch(keys))
}

// HandleRenew handles POST /v1/domains/{tld}/{name}/renew.
func (h *Handler) HandleRenew(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	rawName := chi.URLParam(r, "name")
	rawTLD := chi.URLParam(r, "tld")

	req, ok := httputil.DecodeAndPrepare[RenewRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.Renew(ctx, rawName, rawTLD, req.ParsedRequester(), req.Years)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "domain renewed",
		"request_id", requestID,
		"name", rawName,
		"tld", rawTLD,
		"expires_at", record.ExpiresAt,
	)
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rawName, record, requestcontext.Now(ctx)))
}

// HandleSetTarget handles PUT /v1/domains/{tld}/{name}/target.
func (h *Handler) HandleSetTarget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	rawName := chi.URLParam(r, "name")
	rawTLD := chi.URLParam(r, "tld")

	req, ok := httputil.DecodeAndPrepare[RetargetRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.SetResolutionTarget(ctx, rawName, rawTLD, req.ParsedRequester(), req.ParsedTarget())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "resolution target updated",
		"request_id", requestID,
		"name", rawName,
		"tld", rawTLD,
		"target", record.ResolvesTo.String(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rawName, record, requestcontext.Now(ctx)))
}

// HandleListTLDs handles GET /v1/tlds.
func (h *Handler) HandleListTLDs(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, TLDListResponse{TLDs: h.tlds.List()})
}

// HandleFeeSchedule handles GET /v1/fees.
func (h *Handler) HandleFeeSchedule(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, FromFeeSchedule(h.fees.Snapshot()))
}
