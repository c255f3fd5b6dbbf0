package model

import (
	"time"

	"github.com/google/uuid"

	"pi-subscription-backend/internal/domain"
)

// Account is the internal identity a wallet resolves to. At most one Account
// exists per wallet uid; the contact key carries that uniqueness in storage.
type Account struct {
	ID           string
	ContactKey   string
	PiUID        string
	Username     string
	BusinessName string
	CreatedAt    time.Time
	LastSeenAt   time.Time
}

// NewAccount builds a fresh account for a first-time wallet sign-in. The
// username doubles as display name and account handle until the owner edits it.
func NewAccount(id string, ext ExternalIdentity) (*Account, error) {
	if err := ext.Validate(); err != nil {
		return nil, err
	}
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now()
	return &Account{
		ID:           id,
		ContactKey:   ext.ContactKey(),
		PiUID:        ext.UID,
		Username:     ext.Username,
		BusinessName: ext.Username,
		CreatedAt:    now,
		LastSeenAt:   now,
	}, nil
}

func (a *Account) IsZero() bool { return a == nil || a.ID == "" }
func (a *Account) Touch()       { a.LastSeenAt = time.Now() }

// Relink attaches the synthetic contact key of ext to an account that was
// created out-of-band (matched by username only). Callers must treat this as
// an auditable migration, never a silent merge.
func (a *Account) Relink(ext ExternalIdentity) error {
	if err := ext.Validate(); err != nil {
		return err
	}
	if a.ContactKey != "" && a.ContactKey != ext.ContactKey() {
		return domain.ErrAlreadyExists
	}
	a.ContactKey = ext.ContactKey()
	a.PiUID = ext.UID
	return nil
}
