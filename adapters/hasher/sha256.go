package hasher

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/satriahrh/nutriplanner/domain"
)

// New returns a domain.Hasher producing quoted SHA-256 entity tags.
func New() domain.Hasher { return etagHasher{} }

type etagHasher struct{}

func (etagHasher) Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}
