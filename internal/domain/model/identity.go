package model

import "pi-subscription-backend/internal/domain"

// NetworkDomain is the host part of the synthetic contact key. The payment
// network never issues emails, so the stable join key between its identities
// and our account store is derived from the wallet uid.
const NetworkDomain = "pi.network"

// ExternalIdentity is what the payment network asserts about a wallet holder.
// The uid is the stable key; the username is display-only and may be reused.
type ExternalIdentity struct {
	UID      string
	Username string
}

func (e ExternalIdentity) Validate() error {
	if e.UID == "" || e.Username == "" {
		return domain.ErrInvalidArgument
	}
	return nil
}

// ContactKey returns the deterministic synthetic identifier for this wallet,
// e.g. "a1b2c3@pi.network".
func (e ExternalIdentity) ContactKey() string {
	return e.UID + "@" + NetworkDomain
}
