package session

import (
	"context"
	"errors"

	"github.com/jmcleod/pinlock/identity"
)

// Controller composes the local PIN session and the remote assurance ladder
// behind a single "can the user proceed" predicate. Each ladder stays usable
// on its own.
type Controller struct {
	Local     *LocalSession
	Assurance *Assurance
}

// NewController composes local and assurance.
func NewController(local *LocalSession, assurance *Assurance) *Controller {
	return &Controller{Local: local, Assurance: assurance}
}

// Status is a point-in-time view of both ladders.
type Status struct {
	PinState    PinState `json:"pin_state"`
	HasPin      bool     `json:"has_pin"`
	Unlocked    bool     `json:"unlocked"`
	Level       Level    `json:"level"`
	Next        Step     `json:"next"`
	CanProceed  bool     `json:"can_proceed"`
	// RemoteError is set when the provider could not be asked. The level
	// then reads Unauthenticated.
	RemoteError string   `json:"remote_error,omitempty"`
}

// CanProceed is true only when the local session is unlocked and the provider
// reports TwoFactor right now.
func (c *Controller) CanProceed(ctx context.Context) (bool, error) {
	if !c.Local.IsUnlocked() {
		return false, nil
	}
	level, err := c.Assurance.Check(ctx)
	if err != nil {
		return false, err
	}
	return level == TwoFactor, nil
}

// Status reports both ladders and the next assurance step. The local fields
// are always filled; a provider failure only affects the remote ones.
func (c *Controller) Status(ctx context.Context) Status {
	st := Status{PinState: c.Local.State()}
	st.HasPin = st.PinState != NoPinSet
	st.Unlocked = st.PinState == Unlocked

	step, err := c.Assurance.Route(ctx)
	if err != nil {
		st.Next = StepSignIn
		if !errors.Is(err, identity.ErrNoSession) {
			st.RemoteError = MessageOf(err)
		}
		return st
	}
	st.Next = step
	switch step {
	case StepProceed:
		st.Level = TwoFactor
	case StepEnroll, StepChallenge:
		st.Level = SingleFactor
	default:
		st.Level = Unauthenticated
	}
	st.CanProceed = st.Unlocked && st.Level == TwoFactor
	return st
}

// Teardown locks the local session, dropping key material. The remote session
// is left alone; sign out explicitly to end it.
func (c *Controller) Teardown() {
	c.Local.Lock()
}
