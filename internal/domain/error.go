package domain

import "errors"

var (
	// Common storage errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Payment network errors
	ErrInvalidToken        = errors.New("access token rejected by payment network")
	ErrUpstreamUnavailable = errors.New("payment network unavailable")
	ErrUpstreamTimeout     = errors.New("payment network call timed out")
	ErrApprovalRejected    = errors.New("payment approval rejected by network")
	ErrCompletionRejected  = errors.New("payment completion rejected by network")

	// Ledger errors
	ErrMalformedMetadata  = errors.New("payment metadata is missing account or plan")
	ErrLedgerCommitFailed = errors.New("subscription ledger commit failed")
)
