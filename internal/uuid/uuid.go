// Package uuid generates random identifiers for factors, challenges and tokens.
package uuid

import guuid "github.com/google/uuid"

// New returns a random (version 4) UUID in canonical string form.
func New() string {
	return guuid.NewString()
}
