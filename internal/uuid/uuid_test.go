package uuid

import (
	"testing"

	guuid "github.com/google/uuid"
)

func TestNewIsCanonicalV4(t *testing.T) {
	seen := make(map[string]bool)
	for range 64 {
		id := New()
		parsed, err := guuid.Parse(id)
		if err != nil {
			t.Fatalf("New() = %q: %v", id, err)
		}
		if parsed.Version() != 4 {
			t.Errorf("New() = %q: version %d, want 4", id, parsed.Version())
		}
		if parsed.String() != id {
			t.Errorf("New() = %q is not in canonical form", id)
		}
		if seen[id] {
			t.Fatalf("New() repeated %q", id)
		}
		seen[id] = true
	}
}
