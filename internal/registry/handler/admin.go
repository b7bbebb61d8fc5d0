package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"registrar/internal/registry/fees"
	id "registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
	"registrar/pkg/platform/httputil"
	"registrar/pkg/requestcontext"
)

// TokenIssuer exchanges the admin API key for a bearer token.
type TokenIssuer interface {
	IssueToken(ctx context.Context, apiKey string) (string, error)
}

// AdminHandler serves the administrative endpoints. All routes except the
// token exchange sit behind the admin token middleware, which stamps the
// administrative identity as the requester.
type AdminHandler struct {
	service Service
	issuer  TokenIssuer
	logger  *slog.Logger
}

// NewAdmin constructs the admin handler.
func NewAdmin(service Service, issuer TokenIssuer, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		issuer:  issuer,
		logger:  logger,
	}
}

// RegisterToken mounts the unauthenticated token exchange.
func (h *AdminHandler) RegisterToken(r chi.Router) {
	r.Post("/token", h.HandleToken)
}

// Register mounts the guarded admin endpoints.
func (h *AdminHandler) Register(r chi.Router) {
	r.Put("/fees", h.HandleSetFee)
	r.Post("/tlds", h.HandleAddTLD)
	r.Delete("/tlds/{tld}", h.HandleRemoveTLD)
	r.Put("/treasury", h.HandleSetTreasury)
	r.Post("/domains", h.HandleAdminRegister)
}

// HandleToken handles POST /admin/token.
func (h *AdminHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[TokenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	token, err := h.issuer.IssueToken(ctx, req.APIKey)
	if err != nil {
		h.logger.WarnContext(ctx, "admin token exchange failed",
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, TokenResponse{Token: token})
}

// HandleSetFee handles PUT /admin/fees.
func (h *AdminHandler) HandleSetFee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[SetFeeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.service.SetFee(ctx, requestcontext.Requester(ctx), fees.Bucket(req.Bucket), fees.Amount(req.Price)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "fee updated",
		"request_id", requestcontext.RequestID(ctx),
		"bucket", req.Bucket,
		"price", req.Price,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddTLD handles POST /admin/tlds.
func (h *AdminHandler) HandleAddTLD(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[TLDRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.service.AddTLD(ctx, requestcontext.Requester(ctx), req.TLD); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "tld added",
		"request_id", requestcontext.RequestID(ctx),
		"tld", req.TLD,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleRemoveTLD handles DELETE /admin/tlds/{tld}.
func (h *AdminHandler) HandleRemoveTLD(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tld := chi.URLParam(r, "tld")

	if err := h.service.RemoveTLD(ctx, requestcontext.Requester(ctx), tld); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "tld removed",
		"request_id", requestcontext.RequestID(ctx),
		"tld", tld,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetTreasury handles PUT /admin/treasury.
func (h *AdminHandler) HandleSetTreasury(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[TreasuryRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.service.SetTreasury(ctx, requestcontext.Requester(ctx), req.ParsedTreasury()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "treasury updated",
		"request_id", requestcontext.RequestID(ctx),
		"treasury", req.Treasury,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleAdminRegister handles POST /admin/domains: a registration issued by
// the administrator, exempt from fee collection.
func (h *AdminHandler) HandleAdminRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AdminRegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	record, err := h.service.Register(ctx, req.Name, req.TLD, requestcontext.Requester(ctx), req.ParsedTarget(), req.Years)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "domain registered by admin",
		"request_id", requestID,
		"name", req.Name,
		"tld", req.TLD,
		"target", record.ResolvesTo.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromRecord(req.Name, record, requestcontext.Now(ctx)))
}

// TokenRequest is the HTTP request body for POST /admin/token.
type TokenRequest struct {
	APIKey string `json:"api_key"`
}

// Validate implements httputil.Validatable.
func (r *TokenRequest) Validate() error {
	if strings.TrimSpace(r.APIKey) == "" {
		return dErrors.New(dErrors.CodeValidation, "api_key is required")
	}
	return nil
}

// TokenResponse carries the issued bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// SetFeeRequest is the HTTP request body for PUT /admin/fees.
type SetFeeRequest struct {
	Bucket int   `json:"bucket"`
	Price  int64 `json:"price"`
}

// Validate implements httputil.Validatable.
func (r *SetFeeRequest) Validate() error {
	if !fees.Bucket(r.Bucket).IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "bucket must be one of 0, 1, 3, 4")
	}
	if r.Price < 0 {
		return fees.ErrNegativeFee
	}
	return nil
}

// TLDRequest is the HTTP request body for POST /admin/tlds.
type TLDRequest struct {
	TLD string `json:"tld"`
}

// Validate implements httputil.Validatable.
func (r *TLDRequest) Validate() error {
	r.TLD = strings.TrimSpace(r.TLD)
	if r.TLD == "" {
		return dErrors.New(dErrors.CodeValidation, "tld is required")
	}
	return nil
}

// TreasuryRequest is the HTTP request body for PUT /admin/treasury.
type TreasuryRequest struct {
	Treasury string `json:"treasury"`

	parsedTreasury id.AccountID
}

// Validate implements httputil.Validatable.
func (r *TreasuryRequest) Validate() error {
	treasury, err := id.ParseAccountID(strings.TrimSpace(r.Treasury))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "treasury must be a valid account id")
	}
	r.parsedTreasury = treasury
	return nil
}

// ParsedTreasury returns the validated treasury identity.
func (r *TreasuryRequest) ParsedTreasury() id.AccountID { return r.parsedTreasury }

// AdminRegisterRequest is the HTTP request body for POST /admin/domains.
// The requester is implied by the admin token; only the target is optional.
type AdminRegisterRequest struct {
	Name   string `json:"name"`
	TLD    string `json:"tld"`
	Years  int    `json:"years"`
	Target string `json:"target,omitempty"`

	parsedTarget id.AccountID
}

// Validate implements httputil.Validatable.
func (r *AdminRegisterRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.TLD = strings.TrimSpace(r.TLD)
	if r.TLD == "" {
		return dErrors.New(dErrors.CodeValidation, "tld is required")
	}
	if target := strings.TrimSpace(r.Target); target != "" {
		parsed, err := id.ParseAccountID(target)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, "target must be a valid account id")
		}
		r.parsedTarget = parsed
	}
	return nil
}

// ParsedTarget returns the validated target, or the null identity when the
// record should resolve to the administrator.
func (r *AdminRegisterRequest) ParsedTarget() id.AccountID { return r.parsedTarget }
