// File: internal/usecase/identity_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"pi-subscription-backend/internal/domain"
	"pi-subscription-backend/internal/domain/model"
	"pi-subscription-backend/internal/domain/ports/adapter"
	"pi-subscription-backend/internal/domain/ports/repository"
	"pi-subscription-backend/internal/infra/logging"
	"pi-subscription-backend/internal/infra/metrics"
)

// Compile-time check
var _ IdentityUseCase = (*identityUC)(nil)

// IdentityUseCase maps an external wallet identity onto an internal account.
type IdentityUseCase interface {
	// Resolve verifies the access token upstream and returns the linked
	// account (creating one on first sign-in) plus a signed session token.
	Resolve(ctx context.Context, accessToken string) (*model.Account, string, error)
}

// IdentityOptions tune the resolution behavior.
type IdentityOptions struct {
	// AllowUsernameFallback permits linking by display name when no contact
	// key matches. Risky (names are reusable), so it is opt-in and audited.
	AllowUsernameFallback bool
	SessionSecret         []byte
	SessionTTL            time.Duration
}

type identityUC struct {
	network  adapter.PaymentNetwork
	accounts repository.AccountRepository
	subs     repository.SubscriptionRepository
	tm       repository.TransactionManager
	opts     IdentityOptions
	now      func() time.Time
	log      *zerolog.Logger
}

func NewIdentityUseCase(network adapter.PaymentNetwork, accounts repository.AccountRepository, subs repository.SubscriptionRepository, tm repository.TransactionManager, opts IdentityOptions, logger *zerolog.Logger) *identityUC {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	return &identityUC{
		network:  network,
		accounts: accounts,
		subs:     subs,
		tm:       tm,
		opts:     opts,
		now:      time.Now,
		log:      logger,
	}
}

func (u *identityUC) Resolve(ctx context.Context, accessToken string) (*model.Account, string, error) {
	defer logging.TraceDuration(u.log, "IdentityUC.Resolve")()

	ext, err := u.network.VerifyIdentity(ctx, accessToken)
	if err != nil {
		metrics.IncIdentityResolution(verifyResult(err))
		return nil, "", err
	}

	account, created, err := u.resolveAccount(ctx, ext)
	if errors.Is(err, domain.ErrAlreadyExists) {
		// Lost the insert race to a concurrent resolution of the same uid.
		// The winner's row is committed now; read and return it.
		account, err = u.accounts.FindByContactKey(ctx, repository.NoTX, ext.ContactKey())
		created = false
	}
	if err != nil {
		metrics.IncIdentityResolution("error")
		return nil, "", err
	}

	token, err := u.sessionToken(account)
	if err != nil {
		metrics.IncIdentityResolution("error")
		return nil, "", err
	}

	if created {
		metrics.IncIdentityResolution("created")
		u.log.Info().Str("account_id", account.ID).Str("username", account.Username).Msg("account created for first-time wallet sign-in")
	} else {
		metrics.IncIdentityResolution("existing")
	}
	return account, token, nil
}

// resolveAccount runs the lookup/backfill/create sequence in one transaction.
func (u *identityUC) resolveAccount(ctx context.Context, ext model.ExternalIdentity) (*model.Account, bool, error) {
	var (
		account *model.Account
		created bool
	)
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		existing, err := u.accounts.FindByContactKey(ctx, tx, ext.ContactKey())
		if err == nil {
			existing.Touch()
			if ext.Username != "" && existing.Username != ext.Username {
				existing.Username = ext.Username
			}
			if err := u.accounts.Save(ctx, tx, existing); err != nil {
				return err
			}
			account = existing
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		if u.opts.AllowUsernameFallback {
			byName, err := u.accounts.FindByUsername(ctx, tx, ext.Username)
			if err == nil && byName.ContactKey == "" {
				if err := byName.Relink(ext); err != nil {
					return err
				}
				byName.Touch()
				if err := u.accounts.Save(ctx, tx, byName); err != nil {
					return err
				}
				metrics.IncUsernameFallback()
				u.log.Warn().
					Str("account_id", byName.ID).
					Str("username", ext.Username).
					Str("contact_key", ext.ContactKey()).
					Msg("account linked through username fallback; audit this migration")
				account = byName
				return nil
			}
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
		}

		fresh, err := model.NewAccount("", ext)
		if err != nil {
			return err
		}
		if err := u.accounts.Save(ctx, tx, fresh); err != nil {
			return err
		}
		if err := u.subs.Save(ctx, tx, model.NewFreeSubscription(fresh.ID)); err != nil {
			return err
		}
		account = fresh
		created = true
		return nil
	})
	return account, created, err
}

func (u *identityUC) sessionToken(a *model.Account) (string, error) {
	now := u.now()
	claims := jwt.RegisteredClaims{
		Subject:   a.ID,
		Issuer:    "pi-subscription-backend",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(u.opts.SessionTTL)),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(u.opts.SessionSecret)
}

func verifyResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
