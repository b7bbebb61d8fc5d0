package service

import (
	dErrors "registrar/pkg/domain-errors"
)

// Engine failure kinds. Input validation errors are caller-correctable;
// state conflicts require different request parameters, not a retry;
// arithmetic failures are hard stops, never clamped values.
var (
	ErrUnsupportedTLD          = dErrors.New(dErrors.CodeValidation, "tld is not supported")
	ErrDomainExists            = dErrors.New(dErrors.CodeConflict, "domain is already registered")
	ErrDomainNotFound          = dErrors.New(dErrors.CodeNotFound, "domain not found")
	ErrDomainExpired           = dErrors.New(dErrors.CodeConflict, "domain has expired")
	ErrUnauthorized            = dErrors.New(dErrors.CodeUnauthorized, "caller does not own this domain")
	ErrWalletAlreadyOwnsDomain = dErrors.New(dErrors.CodeConflict, "identity already holds a live domain")
	ErrNilIdentity             = dErrors.New(dErrors.CodeInvalidInput, "identity must not be nil")
	ErrSameAddress             = dErrors.New(dErrors.CodeConflict, "target already resolves to this identity")
	ErrInsufficientFunds       = dErrors.New(dErrors.CodeInsufficientFunds, "insufficient funds or allowance")
	ErrAdminOnly               = dErrors.New(dErrors.CodeForbidden, "administrative caller required")
	ErrOperationInProgress     = dErrors.New(dErrors.CodeConflict, "another mutating operation is in progress")
	ErrEmptyBatch              = dErrors.New(dErrors.CodeBadRequest, "batch must contain at least one entry")
	ErrBatchTooLarge           = dErrors.New(dErrors.CodeBadRequest, "batch exceeds the maximum entry count")
	ErrDuplicateBatchEntry     = dErrors.New(dErrors.CodeConflict, "batch contains duplicate keys")
)
