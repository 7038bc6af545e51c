package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var errMalformedHash = errors.New("malformed argon2id hash")

// Argon2Params is the cost of newly created password hashes. Stored hashes
// carry their own parameters, so changing these only affects new hashes.
type Argon2Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
	KeyLen    uint32
	SaltLen   uint32
}

// DefaultArgon2Params follows the OWASP baseline for argon2id.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{Time: 1, MemoryKiB: 64 * 1024, Threads: 4, KeyLen: 32, SaltLen: 16}
}

// Argon2HashService implements ports.HashService.
type Argon2HashService struct {
	p Argon2Params
}

// NewArgon2HashService returns a hasher using p. Zero fields fall back to the defaults.
func NewArgon2HashService(p Argon2Params) *Argon2HashService {
	def := DefaultArgon2Params()
	if p.Time == 0 {
		p.Time = def.Time
	}
	if p.MemoryKiB == 0 {
		p.MemoryKiB = def.MemoryKiB
	}
	if p.Threads == 0 {
		p.Threads = def.Threads
	}
	if p.KeyLen == 0 {
		p.KeyLen = def.KeyLen
	}
	if p.SaltLen == 0 {
		p.SaltLen = def.SaltLen
	}
	return &Argon2HashService{p: p}
}

// Hash encodes the password as $argon2id$v=19$m=<kib>,t=<time>,p=<threads>$<salt>$<key>.
func (s *Argon2HashService) Hash(password string) (string, error) {
	salt := make([]byte, s.p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, s.p.Time, s.p.MemoryKiB, s.p.Threads, s.p.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, s.p.MemoryKiB, s.p.Time, s.p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded, using the parameters stored in encoded.
func (s *Argon2HashService) Verify(password, encoded string) (bool, error) {
	h, err := parseArgon2(encoded)
	if err != nil {
		return false, err
	}
	key := argon2.IDKey([]byte(password), h.salt, h.params.Time, h.params.MemoryKiB, h.params.Threads, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(h.key, key) == 1, nil
}

// NeedsRehash reports whether encoded was produced with a different cost than
// the current one. Unparsable hashes always need a rehash.
func (s *Argon2HashService) NeedsRehash(encoded string) bool {
	h, err := parseArgon2(encoded)
	if err != nil {
		return true
	}
	return h.version != argon2.Version ||
		h.params.Time != s.p.Time ||
		h.params.MemoryKiB != s.p.MemoryKiB ||
		h.params.Threads != s.p.Threads ||
		uint32(len(h.key)) != s.p.KeyLen
}

type argon2Hash struct {
	version int
	params  Argon2Params
	salt    []byte
	key     []byte
}

func parseArgon2(encoded string) (*argon2Hash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, errMalformedHash
	}

	h := &argon2Hash{}
	if _, err := fmt.Sscanf(parts[2], "v=%d", &h.version); err != nil {
		return nil, fmt.Errorf("%w: version: %w", errMalformedHash, err)
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.params.MemoryKiB, &h.params.Time, &h.params.Threads); err != nil {
		return nil, fmt.Errorf("%w: params: %w", errMalformedHash, err)
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, fmt.Errorf("%w: salt: %w", errMalformedHash, err)
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, fmt.Errorf("%w: key: %w", errMalformedHash, err)
	}
	if len(h.key) == 0 {
		return nil, errMalformedHash
	}
	return h, nil
}
