package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Hasher turns plaintext passwords into stored credentials and checks them.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, stored string) bool
	// IsHash reports whether stored looks like a value this scheme produced.
	IsHash(stored string) bool
	Name() string
}

// SHA256Hasher is the legacy scheme: unsalted, single-round, lowercase hex.
// Kept for bit-compatibility with credentials written by the previous
// application.
type SHA256Hasher struct{}

func (SHA256Hasher) Name() string { return "sha256" }

func (SHA256Hasher) Hash(password string) (string, error) {
	return sha256Hex(password), nil
}

func (SHA256Hasher) Verify(password, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(sha256Hex(password)), []byte(stored)) == 1
}

func (SHA256Hasher) IsHash(stored string) bool {
	if len(stored) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(stored)
	return err == nil
}

func sha256Hex(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// BcryptHasher is the default scheme. bcrypt reads at most 72 bytes, so
// longer passwords are reduced to base64(sha256(password)) first.
type BcryptHasher struct {
	Cost int
}

const bcryptMaxInput = 72

func bcryptInput(password string) []byte {
	if len(password) <= bcryptMaxInput {
		return []byte(password)
	}
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

func (BcryptHasher) Name() string { return "bcrypt" }

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword(bcryptInput(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (BcryptHasher) Verify(password, stored string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), bcryptInput(password)) == nil
}

func (BcryptHasher) IsHash(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$")
}

// MultiHasher hashes with Primary and verifies against whichever scheme
// produced the stored value, so old rows keep working after a switch.
type MultiHasher struct {
	Primary Hasher
	Legacy  []Hasher
}

func (m MultiHasher) Name() string { return m.Primary.Name() }

func (m MultiHasher) Hash(password string) (string, error) {
	return m.Primary.Hash(password)
}

func (m MultiHasher) Verify(password, stored string) bool {
	for _, h := range m.all() {
		if h.IsHash(stored) {
			return h.Verify(password, stored)
		}
	}
	return false
}

func (m MultiHasher) IsHash(stored string) bool {
	for _, h := range m.all() {
		if h.IsHash(stored) {
			return true
		}
	}
	return false
}

// NeedsRehash reports whether stored was produced by a non-primary scheme.
func (m MultiHasher) NeedsRehash(stored string) bool {
	return !m.Primary.IsHash(stored)
}

func (m MultiHasher) all() []Hasher {
	return append([]Hasher{m.Primary}, m.Legacy...)
}

// NewHasher builds the hasher for a configured scheme name. With "bcrypt",
// legacy sha256 digests still verify and are upgraded on login.
func NewHasher(scheme string) Hasher {
	if scheme == "sha256" {
		return SHA256Hasher{}
	}
	return MultiHasher{Primary: BcryptHasher{}, Legacy: []Hasher{SHA256Hasher{}}}
}
