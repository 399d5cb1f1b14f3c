package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	// ErrDecode is returned for a stored hash that cannot be parsed.
	ErrDecode = errors.New("malformed password hash")
	// ErrEmptyPassword is returned when hashing an empty password.
	ErrEmptyPassword = errors.New("password is empty")
)

// maxMemory caps the memory parameter accepted from a stored hash (KiB).
const maxMemory = 1 << 21

// Key derivations, replaced in tests to count work.
var (
	idKey = argon2.IDKey
	iKey  = argon2.Key
)

// Params are the argon2id cost parameters. They are constants of the
// deployment, never derived from input.
type Params struct {
	Time       uint32 // passes over memory
	Memory     uint32 // KiB
	Threads    uint8
	SaltLength uint32
	KeyLength  uint32
}

// DefaultParams: 3 passes over 64 MiB.
var DefaultParams = Params{Time: 3, Memory: 64 * 1024, Threads: 1, SaltLength: 16, KeyLength: 32}

func (p Params) validate() error {
	if p.Time == 0 || p.Memory == 0 || p.Threads == 0 || p.SaltLength < 8 || p.KeyLength < 16 {
		return fmt.Errorf("invalid argon2 parameters %+v", p)
	}
	if p.Memory > maxMemory {
		return fmt.Errorf("argon2 memory %d KiB exceeds %d", p.Memory, maxMemory)
	}
	return nil
}

// Hasher hashes passwords with argon2id and verifies argon2id and argon2i
// hashes made with its own cost parameters.
type Hasher struct {
	params Params
	// dummy is hashed with params so FakeVerify costs the same as Verify.
	dummy string
}

// NewHasher precomputes the dummy hash used on authentication failure paths.
func NewHasher(p Params) (*Hasher, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	h := &Hasher{params: p}
	secret, err := GeneratePassword(32)
	if err != nil {
		return nil, err
	}
	if h.dummy, err = h.Hash(secret); err != nil {
		return nil, err
	}
	return h, nil
}

// Hash returns the PHC-encoded argon2id hash of password with a fresh salt.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := idKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLength)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.Memory, h.params.Time, h.params.Threads,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// Verify reports whether password matches encoded. A hash that cannot be
// decoded, or whose cost differs from the hasher's, yields false and an error
// wrapping ErrDecode. Every call costs one derivation at the hasher's
// parameters, whatever the outcome.
func (h *Hasher) Verify(encoded, password string) (bool, error) {
	d, err := decodeArgon2(encoded)
	if err == nil && !h.sameCost(d) {
		err = fmt.Errorf("%w: cost m=%d,t=%d,p=%d,len=%d differs from m=%d,t=%d,p=%d,len=%d", ErrDecode,
			d.memory, d.time, d.threads, len(d.key), h.params.Memory, h.params.Time, h.params.Threads, h.params.KeyLength)
	}
	if err != nil {
		h.burn(password)
		return false, err
	}

	var key []byte
	if d.variant == "argon2id" {
		key = idKey([]byte(password), d.salt, d.time, d.memory, d.threads, uint32(len(d.key)))
	} else {
		key = iKey([]byte(password), d.salt, d.time, d.memory, d.threads, uint32(len(d.key)))
	}
	return subtle.ConstantTimeCompare(key, d.key) == 1, nil
}

// NeedsRehash reports whether encoded is a valid hash in a format Hash no
// longer produces.
func (h *Hasher) NeedsRehash(encoded string) bool {
	d, err := decodeArgon2(encoded)
	return err == nil && h.sameCost(d) && d.variant != "argon2id"
}

func (h *Hasher) sameCost(d *argon2Hash) bool {
	return d.memory == h.params.Memory && d.time == h.params.Time &&
		d.threads == h.params.Threads && uint32(len(d.key)) == h.params.KeyLength
}

// burn spends one derivation at the hasher's parameters.
func (h *Hasher) burn(password string) {
	salt := make([]byte, h.params.SaltLength)
	_ = idKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLength)
}

// FakeVerify spends the cost of one verification against the dummy hash.
func (h *Hasher) FakeVerify(password string) {
	_, _ = h.Verify(h.dummy, password)
}

type argon2Hash struct {
	variant string
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func decodeArgon2(encoded string) (*argon2Hash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("%w: expected 5 fields", ErrDecode)
	}

	d := &argon2Hash{variant: parts[1]}
	if d.variant != "argon2id" && d.variant != "argon2i" {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrDecode, d.variant)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrDecode, parts[2])
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &d.memory, &d.time, &d.threads); err != nil {
		return nil, fmt.Errorf("%w: parameters %q", ErrDecode, parts[3])
	}
	if d.memory == 0 || d.memory > maxMemory || d.time == 0 || d.threads == 0 {
		return nil, fmt.Errorf("%w: parameters out of range %q", ErrDecode, parts[3])
	}

	b64 := base64.RawStdEncoding
	var err error
	if d.salt, err = b64.DecodeString(strings.TrimRight(parts[4], "=")); err != nil {
		return nil, fmt.Errorf("%w: salt: %w", ErrDecode, err)
	}
	if d.key, err = b64.DecodeString(strings.TrimRight(parts[5], "=")); err != nil {
		return nil, fmt.Errorf("%w: key: %w", ErrDecode, err)
	}
	if len(d.salt) == 0 || len(d.key) == 0 {
		return nil, fmt.Errorf("%w: empty salt or key", ErrDecode)
	}
	return d, nil
}
