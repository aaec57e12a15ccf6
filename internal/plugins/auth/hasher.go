package auth

import (
	"crypto/md5" //nolint:gosec // legacy digest, kept only to verify pre-existing rows
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/keyxmakerx/userservice/internal/config"
)

// PasswordHasher digests a password with an account's salt. The salt is
// stored in its own column and passed in on every call; it is never embedded
// in or derived from the hash.
type PasswordHasher interface {
	// Hash returns the encoded digest of password with salt.
	Hash(password, salt string) string

	// Verify reports whether password with salt produces encodedHash.
	// Comparison is constant-time.
	Verify(password, salt, encodedHash string) bool

	// NeedsUpgrade reports whether encodedHash should be replaced by a fresh
	// Hash on the next successful login.
	NeedsUpgrade(encodedHash string) bool
}

// NewPasswordHasher returns the hasher for a configured scheme name.
func NewPasswordHasher(scheme string) (PasswordHasher, error) {
	switch scheme {
	case config.PasswordSchemeArgon2id:
		return NewArgon2idHasher(DefaultArgon2Params), nil
	case config.PasswordSchemeMD5:
		return LegacyMD5Hasher{}, nil
	default:
		return nil, fmt.Errorf("unknown password scheme %q", scheme)
	}
}

// --- argon2id ---

// Argon2Params are the argon2id cost parameters.
type Argon2Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
}

// DefaultArgon2Params follow the OWASP recommendation for argon2id:
// memory=64MB, iterations=1, parallelism=4.
var DefaultArgon2Params = Argon2Params{
	Time:    1,
	Memory:  64 * 1024,
	Threads: 4,
	KeyLen:  32,
}

// argon2Prefix marks digests produced by Argon2idHasher.
const argon2Prefix = "$argon2id$"

// Upper bounds on cost parameters read back from a stored digest. A row
// claiming more is rejected instead of being allowed to pin gigabytes of
// memory on a single login.
const (
	maxArgon2Memory = 4 * 64 * 1024 // KiB, four times the default
	maxArgon2Time   = 16
	maxArgon2KeyLen = 64
)

// Argon2idHasher digests passwords with argon2id keyed on the account salt.
// Encoded form: $argon2id$v=19$m=65536,t=1,p=4$<base64 digest>. The cost
// parameters travel with the digest so they can be raised without breaking
// existing rows. Digests without the prefix are treated as legacy md5.
type Argon2idHasher struct {
	params Argon2Params
}

// NewArgon2idHasher creates an argon2id hasher with the given parameters.
func NewArgon2idHasher(params Argon2Params) *Argon2idHasher {
	return &Argon2idHasher{params: params}
}

// Hash returns the encoded argon2id digest.
func (h *Argon2idHasher) Hash(password, salt string) string {
	p := h.params
	key := argon2.IDKey([]byte(password), []byte(salt), p.Time, p.Memory, p.Threads, p.KeyLen)

	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s",
		argon2Prefix, argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(key))
}

// Verify checks password against an argon2id or legacy md5 digest.
func (h *Argon2idHasher) Verify(password, salt, encodedHash string) bool {
	if !strings.HasPrefix(encodedHash, argon2Prefix) {
		return LegacyMD5Hasher{}.Verify(password, salt, encodedHash)
	}

	// "", "argon2id", "v=19", "m=..,t=..,p=..", "<digest>"
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 5 {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false
	}
	// argon2.IDKey panics on zero rounds or lanes.
	if iterations < 1 || parallelism < 1 {
		return false
	}
	if memory > maxArgon2Memory || iterations > maxArgon2Time {
		return false
	}

	expected, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(expected) == 0 || len(expected) > maxArgon2KeyLen {
		return false
	}

	computed := argon2.IDKey([]byte(password), []byte(salt), iterations, memory, parallelism, uint32(len(expected)))
	return subtle.ConstantTimeCompare(expected, computed) == 1
}

// NeedsUpgrade is true for legacy md5 digests.
func (h *Argon2idHasher) NeedsUpgrade(encodedHash string) bool {
	return !strings.HasPrefix(encodedHash, argon2Prefix)
}

// --- legacy md5 ---

// LegacyMD5Hasher is the original scheme: hex(md5(password || salt)). It is a
// single unstretched digest and is only selected with PASSWORD_SCHEME=md5 to
// stay byte-compatible with databases written by the previous service.
type LegacyMD5Hasher struct{}

// Hash returns the lowercase hex md5 of password followed by salt.
func (LegacyMD5Hasher) Hash(password, salt string) string {
	sum := md5.Sum([]byte(password + salt)) //nolint:gosec // see type comment
	return hex.EncodeToString(sum[:])
}

// Verify compares in constant time.
func (m LegacyMD5Hasher) Verify(password, salt, encodedHash string) bool {
	computed := m.Hash(password, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(encodedHash)) == 1
}

// NeedsUpgrade is always false: selecting md5 means staying on md5.
func (LegacyMD5Hasher) NeedsUpgrade(string) bool {
	return false
}
