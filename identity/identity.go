// Package identity defines the remote identity-provider contract used by the
// assurance ladder: password sign-in, authenticator assurance level (AAL)
// reporting and TOTP factor enrollment/challenge/verify.
package identity

import (
	"context"
	"time"
)

// AAL is an authenticator assurance level as reported by the provider.
type AAL string

const (
	// AALNone means there is no signed-in session.
	AALNone AAL = ""
	// AAL1 means a password was verified.
	AAL1 AAL = "aal1"
	// AAL2 means a second factor was verified in this session.
	AAL2 AAL = "aal2"
)

// AssuranceLevels reports the session's current level and the highest level
// it could reach with the factors the account has verified.
type AssuranceLevels struct {
	Current AAL `json:"current"`
	Next    AAL `json:"next"`
}

// FactorStatus is the enrollment state of a factor.
type FactorStatus string

const (
	FactorUnverified FactorStatus = "unverified"
	FactorVerified   FactorStatus = "verified"
)

// FactorTypeTOTP is the only factor type in use.
const FactorTypeTOTP = "totp"

// Factor is an enrolled second factor.
type Factor struct {
	ID           string       `json:"id"`
	FriendlyName string       `json:"friendly_name,omitempty"`
	FactorType   string       `json:"factor_type"`
	Status       FactorStatus `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Verified reports whether the factor has completed a successful verify.
func (f Factor) Verified() bool {
	return f.Status == FactorVerified
}

// Enrollment is the provisioning material for a newly created TOTP factor.
// It is only ever returned once.
type Enrollment struct {
	FactorID string `json:"factor_id"`
	Secret   string `json:"secret"`
	URI      string `json:"uri"`
	// QRCode is a data: URI holding a PNG rendering of URI.
	QRCode string `json:"qr_code,omitempty"`
}

// Challenge is a pending verification against one factor.
type Challenge struct {
	ID        string    `json:"id"`
	FactorID  string    `json:"factor_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// User is the signed-in account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Provider is a stateful client for one user's remote session. Every method
// is a fallible remote call; implementations must not cache assurance.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*User, error)
	SignOut(ctx context.Context) error
	AssuranceLevel(ctx context.Context) (AssuranceLevels, error)
	ListFactors(ctx context.Context) ([]Factor, error)
	EnrollFactor(ctx context.Context) (*Enrollment, error)
	CreateChallenge(ctx context.Context, factorID string) (*Challenge, error)
	VerifyChallenge(ctx context.Context, factorID, challengeID, code string) error
}

// VerifiedFactors filters factors down to verified TOTP factors.
func VerifiedFactors(factors []Factor) []Factor {
	var out []Factor
	for _, f := range factors {
		if f.FactorType == FactorTypeTOTP && f.Verified() {
			out = append(out, f)
		}
	}
	return out
}
