// Package local implements identity.Provider in-process: Argon2id password
// hashes, RFC 6238 TOTP factors and short-lived challenges. It backs offline
// use and tests; it holds one signed-in session at a time.
package local

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/skip2/go-qrcode"

	"github.com/jmcleod/pinlock/identity"
	"github.com/jmcleod/pinlock/internal/util"
	"github.com/jmcleod/pinlock/internal/uuid"
)

const (
	// ChallengeTTL is how long a challenge accepts codes.
	ChallengeTTL = 5 * time.Minute

	totpPeriod = 30
	totpDigits = otp.DigitsSix
	totpSkew   = 1
	qrSize     = 256
)

// ErrUserExists is returned by AddUser for a duplicate email.
var ErrUserExists = errors.New("user already exists")

// Option is a functional option for New.
type Option func(*Provider)

// WithClock sets the time source for TOTP validation and challenge expiry.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
	}
}

// WithIssuer sets the issuer label shown in authenticator apps.
func WithIssuer(issuer string) Option {
	return func(p *Provider) {
		p.issuer = issuer
	}
}

// WithArgon2idParams sets the password hashing parameters for AddUser.
func WithArgon2idParams(params util.Argon2idParams) Option {
	return func(p *Provider) {
		p.params = params
	}
}

type factor struct {
	identity.Factor
	secret string
	// lastStep is the TOTP time step of the last accepted code.
	lastStep int64
}

type user struct {
	id           string
	email        string
	passwordHash string
	factors      []*factor
}

type challenge struct {
	id        string
	userID    string
	factorID  string
	expiresAt time.Time
}

type session struct {
	userID string
	aal    identity.AAL
}

// Provider is an in-memory identity.Provider.
type Provider struct {
	now    func() time.Time
	issuer string
	params util.Argon2idParams

	mu         sync.Mutex
	users      map[string]*user // by lowercased email
	challenges map[string]*challenge
	session    *session
}

var _ identity.Provider = (*Provider)(nil)

// New creates an empty Provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		now:        time.Now,
		issuer:     "pinlock",
		params:     util.DefaultArgon2idParams(),
		users:      make(map[string]*user),
		challenges: make(map[string]*challenge),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddUser registers an account and returns its id.
func (p *Provider) AddUser(email, password string) (string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", errors.New("email and password are required")
	}
	hash, err := util.HashArgon2id(password, p.params)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.users[email]; ok {
		return "", ErrUserExists
	}
	u := &user{id: uuid.New(), email: email, passwordHash: hash}
	p.users[email] = u
	return u.id, nil
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*identity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	u, ok := p.users[normalizeEmail(email)]
	p.mu.Unlock()
	if !ok {
		// Burn a hash so unknown accounts take as long as wrong passwords.
		util.HashArgon2id(password, p.params) //nolint:errcheck
		return nil, identity.ErrInvalidCredentials
	}

	valid, err := util.VerifyArgon2id(password, u.passwordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	if !valid {
		return nil, identity.ErrInvalidCredentials
	}

	p.mu.Lock()
	p.session = &session{userID: u.id, aal: identity.AAL1}
	p.mu.Unlock()
	return &identity.User{ID: u.id, Email: u.email}, nil
}

func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = nil
	return nil
}

func (p *Provider) AssuranceLevel(ctx context.Context) (identity.AssuranceLevels, error) {
	if err := ctx.Err(); err != nil {
		return identity.AssuranceLevels{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	u, err := p.currentUserLocked()
	if err != nil {
		return identity.AssuranceLevels{}, nil
	}
	levels := identity.AssuranceLevels{Current: p.session.aal, Next: p.session.aal}
	if len(identity.VerifiedFactors(u.publicFactors())) > 0 {
		levels.Next = identity.AAL2
	}
	return levels, nil
}

func (p *Provider) ListFactors(ctx context.Context) ([]identity.Factor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	u, err := p.currentUserLocked()
	if err != nil {
		return nil, err
	}
	return u.publicFactors(), nil
}

func (p *Provider) EnrollFactor(ctx context.Context) (*identity.Enrollment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	u, err := p.currentUserLocked()
	if err != nil {
		return nil, err
	}
	if p.session.aal != identity.AAL2 && len(identity.VerifiedFactors(u.publicFactors())) > 0 {
		return nil, identity.ErrInsufficientAAL
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      p.issuer,
		AccountName: u.email,
		Period:      totpPeriod,
		Digits:      totpDigits,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	qrPNG, err := qrcode.Encode(key.URL(), qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}

	f := &factor{
		Factor: identity.Factor{
			ID:         uuid.New(),
			FactorType: identity.FactorTypeTOTP,
			Status:     identity.FactorUnverified,
			CreatedAt:  p.now(),
		},
		secret: key.Secret(),
	}
	u.factors = append(u.factors, f)

	return &identity.Enrollment{
		FactorID: f.ID,
		Secret:   key.Secret(),
		URI:      key.URL(),
		QRCode:   "data:image/png;base64," + base64.StdEncoding.EncodeToString(qrPNG),
	}, nil
}

func (p *Provider) CreateChallenge(ctx context.Context, factorID string) (*identity.Challenge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	u, err := p.currentUserLocked()
	if err != nil {
		return nil, err
	}
	if u.factor(factorID) == nil {
		return nil, identity.ErrFactorNotFound
	}

	p.pruneChallengesLocked()
	c := &challenge{
		id:        uuid.New(),
		userID:    u.id,
		factorID:  factorID,
		expiresAt: p.now().Add(ChallengeTTL),
	}
	p.challenges[c.id] = c
	return &identity.Challenge{ID: c.id, FactorID: factorID, ExpiresAt: c.expiresAt}, nil
}

// VerifyChallenge checks code against the factor's secret. Success marks the
// factor verified, consumes the challenge and raises the session to aal2.
// A wrong code leaves the challenge usable until it expires. A code from a
// time step at or before the last accepted one is rejected.
func (p *Provider) VerifyChallenge(ctx context.Context, factorID, challengeID, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	u, err := p.currentUserLocked()
	if err != nil {
		return err
	}
	f := u.factor(factorID)
	if f == nil {
		return identity.ErrFactorNotFound
	}
	c, ok := p.challenges[challengeID]
	if !ok || c.factorID != factorID || c.userID != u.id {
		return identity.ErrChallengeNotFound
	}
	now := p.now()
	if now.After(c.expiresAt) {
		delete(p.challenges, challengeID)
		return identity.ErrChallengeExpired
	}

	step, ok := matchStep(code, f.secret, now)
	if !ok {
		return identity.ErrInvalidCode
	}
	if step <= f.lastStep {
		return identity.ErrCodeReused
	}

	delete(p.challenges, challengeID)
	f.lastStep = step
	f.Status = identity.FactorVerified
	p.session.aal = identity.AAL2
	return nil
}

// matchStep returns the time step within the skew window whose code equals
// code.
func matchStep(code, secret string, now time.Time) (int64, bool) {
	opts := totp.ValidateOpts{
		Period:    totpPeriod,
		Digits:    totpDigits,
		Algorithm: otp.AlgorithmSHA1,
	}
	current := now.Unix() / totpPeriod
	for step := current - totpSkew; step <= current+totpSkew; step++ {
		valid, err := totp.ValidateCustom(code, secret, time.Unix(step*totpPeriod, 0), opts)
		if err == nil && valid {
			return step, true
		}
	}
	return 0, false
}

func (p *Provider) currentUserLocked() (*user, error) {
	if p.session == nil {
		return nil, identity.ErrNoSession
	}
	for _, u := range p.users {
		if u.id == p.session.userID {
			return u, nil
		}
	}
	return nil, identity.ErrNoSession
}

func (p *Provider) pruneChallengesLocked() {
	now := p.now()
	for id, c := range p.challenges {
		if now.After(c.expiresAt) {
			delete(p.challenges, id)
		}
	}
}

func (u *user) factor(id string) *factor {
	for _, f := range u.factors {
		if f.ID == id {
			return f
		}
	}
	return nil
}

func (u *user) publicFactors() []identity.Factor {
	out := make([]identity.Factor, 0, len(u.factors))
	for _, f := range u.factors {
		out = append(out, f.Factor)
	}
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
