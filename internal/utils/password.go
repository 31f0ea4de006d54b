package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// ErrHashingFailure is returned when a hash cannot be computed.
var ErrHashingFailure = errors.New("hashing failure")

const (
	saltLen = 16
	keyLen  = 32
)

// PasswordHasher hashes passwords with argon2id.  Hashes are stored in the
// PHC string format so the cost parameters travel with the hash:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt>$<key>
//
// Hashes written by earlier releases with bcrypt still verify and are
// reported by NeedsRehash so callers can upgrade them after a successful
// login.
type PasswordHasher struct {
	memory  uint32 // KiB
	time    uint32
	threads uint8
}

// NewPasswordHasher returns a hasher with the given argon2id parameters.
func NewPasswordHasher(memoryKiB, time uint32, threads uint8) *PasswordHasher {
	return &PasswordHasher{memory: memoryKiB, time: time, threads: threads}
}

// Hash returns the encoded argon2id hash of plain.
func (h *PasswordHasher) Hash(plain string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashingFailure, err)
	}
	key := argon2.IDKey([]byte(plain), salt, h.time, h.memory, h.threads, keyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.time, h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether plain matches hash.  Malformed hashes yield false.
func (h *PasswordHasher) Verify(plain, hash string) bool {
	if isBcrypt(hash) {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
	}
	p, err := decodeArgon2(hash)
	if err != nil {
		return false
	}
	key := argon2.IDKey([]byte(plain), p.salt, p.time, p.memory, p.threads, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(key, p.key) == 1
}

// NeedsRehash reports whether hash was produced with parameters other than
// the hasher's current ones.  Unparseable and bcrypt hashes always need a
// rehash.
func (h *PasswordHasher) NeedsRehash(hash string) bool {
	if isBcrypt(hash) {
		return true
	}
	p, err := decodeArgon2(hash)
	if err != nil {
		return true
	}
	return p.memory != h.memory || p.time != h.time || p.threads != h.threads || len(p.key) != keyLen
}

type argon2Params struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func decodeArgon2(encoded string) (*argon2Params, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, errors.New("not an argon2id hash")
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, err
	}
	if version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}
	p := &argon2Params{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return nil, err
	}
	if p.memory == 0 || p.time == 0 || p.threads == 0 {
		return nil, errors.New("invalid argon2 parameters")
	}
	var err error
	if p.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, err
	}
	if p.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, err
	}
	if len(p.salt) == 0 || len(p.key) == 0 {
		return nil, errors.New("empty salt or key")
	}
	return p, nil
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}
