package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const argonAlgorithm = "argon2id"

// Argon2Params tunes the memory-hard cost of credential hashing.
type Argon2Params struct {
	MemoryKB    uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params returns the cost parameters used when config omits them.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		MemoryKB:    64 * 1024,
		Time:        2,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher derives and verifies argon2id credential hashes in PHC string form.
type Hasher struct {
	params Argon2Params
}

// NewHasher builds a hasher, falling back to defaults for zero-valued params.
func NewHasher(params Argon2Params) *Hasher {
	def := DefaultArgon2Params()
	if params.MemoryKB == 0 {
		params.MemoryKB = def.MemoryKB
	}
	if params.Time == 0 {
		params.Time = def.Time
	}
	if params.Parallelism == 0 {
		params.Parallelism = def.Parallelism
	}
	if params.SaltLength == 0 {
		params.SaltLength = def.SaltLength
	}
	if params.KeyLength == 0 {
		params.KeyLength = def.KeyLength
	}
	return &Hasher{params: params}
}

// Hash derives a PHC-encoded argon2id hash with a fresh random salt.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.MemoryKB, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argonAlgorithm,
		argon2.Version,
		h.params.MemoryKB,
		h.params.Time,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks a plaintext secret against a stored PHC hash. A malformed
// stored hash is verification failure, never an error, so callers cannot be
// turned into a format oracle. The comparison is constant time.
func (h *Hasher) Verify(password, storedHash string) bool {
	parsed, err := parseArgon2Hash(storedHash)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), parsed.salt, parsed.time, parsed.memoryKB, parsed.parallelism, uint32(len(parsed.key)))
	return subtle.ConstantTimeCompare(computed, parsed.key) == 1
}

// DummyVerify burns one hash derivation against a throwaway salt. Login uses
// it when the subject does not exist so that the response time does not
// reveal which accounts are registered.
func (h *Hasher) DummyVerify() {
	salt := make([]byte, h.params.SaltLength)
	argon2.IDKey([]byte("invalid-credential-filler"), salt, h.params.Time, h.params.MemoryKB, h.params.Parallelism, h.params.KeyLength)
}

type argon2Hash struct {
	memoryKB    uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func parseArgon2Hash(encoded string) (*argon2Hash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != argonAlgorithm {
		return nil, errors.New("invalid hash format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	parsed := &argon2Hash{}
	for _, pair := range strings.Split(parts[3], ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, errors.New("invalid cost parameters")
		}
		value, err := strconv.ParseUint(kv[1], 10, 32)
		if err != nil {
			return nil, errors.New("invalid cost parameters")
		}
		switch kv[0] {
		case "m":
			parsed.memoryKB = uint32(value)
		case "t":
			parsed.time = uint32(value)
		case "p":
			parsed.parallelism = uint8(value)
		default:
			return nil, errors.New("invalid cost parameters")
		}
	}
	if parsed.memoryKB == 0 || parsed.time == 0 || parsed.parallelism == 0 {
		return nil, errors.New("missing cost parameters")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return nil, errors.New("invalid salt")
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return nil, errors.New("invalid key")
	}

	parsed.salt = salt
	parsed.key = key
	return parsed, nil
}
