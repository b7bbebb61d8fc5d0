package handler

import (
	"strings"

	"registrar/internal/registry/service"
	id "registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
)

// Name and year bounds are enforced authoritatively by the engine; request
// validation only rejects what is structurally unusable, so the engine
// remains the single source of truth for domain rules.

// RegisterRequest is the HTTP request body for POST /v1/domains.
type RegisterRequest struct {
	Name      string `json:"name"`
	TLD       string `json:"tld"`
	Years     int    `json:"years"`
	Requester string `json:"requester"`
	Target    string `json:"target,omitempty"`

	parsedRequester id.AccountID
	parsedTarget    id.AccountID
}

// Validate implements httputil.Validatable.
func (r *RegisterRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.TLD = strings.TrimSpace(r.TLD)
	if r.TLD == "" {
		return dErrors.New(dErrors.CodeValidation, "tld is required")
	}
	requester, err := id.ParseAccountID(strings.TrimSpace(r.Requester))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "requester must be a valid account id")
	}
	r.parsedRequester = requester

	if target := strings.TrimSpace(r.Target); target != "" {
		parsed, err := id.ParseAccountID(target)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, "target must be a valid account id")
		}
		r.parsedTarget = parsed
	}
	return nil
}

// ParsedRequester returns the validated requester identity.
func (r *RegisterRequest) ParsedRequester() id.AccountID { return r.parsedRequester }

// ParsedTarget returns the validated target, or the null identity when the
// record should resolve to the requester.
func (r *RegisterRequest) ParsedTarget() id.AccountID { return r.parsedTarget }

// RenewRequest is the HTTP request body for POST /v1/domains/{tld}/{name}/renew.
type RenewRequest struct {
	Requester string `json:"requester"`
	Years     int    `json:"years"`

	parsedRequester id.AccountID
}

// Validate implements httputil.Validatable.
func (r *RenewRequest) Validate() error {
	requester, err := id.ParseAccountID(strings.TrimSpace(r.Requester))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "requester must be a valid account id")
	}
	r.parsedRequester = requester
	return nil
}

// ParsedRequester returns the validated requester identity.
func (r *RenewRequest) ParsedRequester() id.AccountID { return r.parsedRequester }

// RetargetRequest is the HTTP request body for PUT /v1/domains/{tld}/{name}/target.
type RetargetRequest struct {
	Requester string `json:"requester"`
	Target    string `json:"target"`

	parsedRequester id.AccountID
	parsedTarget    id.AccountID
}

// Validate implements httputil.Validatable.
func (r *RetargetRequest) Validate() error {
	requester, err := id.ParseAccountID(strings.TrimSpace(r.Requester))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "requester must be a valid account id")
	}
	r.parsedRequester = requester

	target, err := id.ParseAccountID(strings.TrimSpace(r.Target))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "target must be a valid account id")
	}
	r.parsedTarget = target
	return nil
}

// ParsedRequester returns the validated requester identity.
func (r *RetargetRequest) ParsedRequester() id.AccountID { return r.parsedRequester }

// ParsedTarget returns the validated new resolution target.
func (r *RetargetRequest) ParsedTarget() id.AccountID { return r.parsedTarget }

// BatchDomainRequest is one entry of a batch registration body.
type BatchDomainRequest struct {
	Name  string `json:"name"`
	TLD   string `json:"tld"`
	Years int    `json:"years"`
}

// BatchRequest is the HTTP request body for POST /v1/domains/batch.
type BatchRequest struct {
	Requester string               `json:"requester"`
	Domains   []BatchDomainRequest `json:"domains"`

	parsedRequester id.AccountID
}

// Validate implements httputil.Validatable. Per-entry rules stay with the
// engine so a batch fails atomically there, not piecemeal here.
func (r *BatchRequest) Validate() error {
	requester, err := id.ParseAccountID(strings.TrimSpace(r.Requester))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "requester must be a valid account id")
	}
	r.parsedRequester = requester
	if len(r.Domains) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "domains is required")
	}
	return nil
}

// ParsedRequester returns the validated requester identity.
func (r *BatchRequest) ParsedRequester() id.AccountID { return r.parsedRequester }

// Entries converts the body into engine batch entries.
func (r *BatchRequest) Entries() []service.BatchEntry {
	entries := make([]service.BatchEntry, len(r.Domains))
	for i, d := range r.Domains {
		entries[i] = service.BatchEntry{Name: d.Name, TLD: d.TLD, Years: d.Years}
	}
	return entries
}
