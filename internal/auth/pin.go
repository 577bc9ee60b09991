package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/readypay/backend/internal/config"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// PINHasher hashes PIN secrets one way and compares them in constant time.
type PINHasher interface {
	Hash(pin string) (string, error)
	// Compare returns nil on match and ErrPINMismatch otherwise.
	Compare(hash, pin string) error
}

// NewPINHasher builds the hasher selected by cfg.Algorithm.
func NewPINHasher(cfg config.PINConfig) (PINHasher, error) {
	switch cfg.Algorithm {
	case "", "bcrypt":
		return NewBcryptHasher(cfg.BcryptCost), nil
	case "argon2id", "argon2":
		return NewArgon2Hasher(cfg), nil
	default:
		return nil, fmt.Errorf("unknown pin hashing algorithm %q", cfg.Algorithm)
	}
}

// BcryptHasher salts and hashes with bcrypt at a fixed cost factor.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(pin string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash pin: %w", err)
	}
	return string(hashed), nil
}

func (h *BcryptHasher) Compare(hash, pin string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPINMismatch
	}
	return fmt.Errorf("%w: %v", ErrMalformedHash, err)
}

// Argon2Hasher stores hashes in the PHC string format
// $argon2id$v=19$m=<KiB>,t=<passes>,p=<threads>$<salt>$<key>, so hashes keep
// verifying after the configured parameters change.
type Argon2Hasher struct {
	time    uint32
	memory  uint32
	threads uint8
	keyLen  uint32
	saltLen uint32
}

func NewArgon2Hasher(cfg config.PINConfig) *Argon2Hasher {
	h := &Argon2Hasher{
		time:    cfg.Argon2Time,
		memory:  cfg.Argon2Memory,
		threads: cfg.Argon2Threads,
		keyLen:  cfg.Argon2KeyLen,
		saltLen: cfg.Argon2SaltLen,
	}
	if h.time == 0 {
		h.time = 1
	}
	if h.memory == 0 {
		h.memory = 64 * 1024
	}
	if h.threads == 0 {
		h.threads = 4
	}
	if h.keyLen == 0 {
		h.keyLen = 32
	}
	if h.saltLen == 0 {
		h.saltLen = 16
	}
	return h
}

func (h *Argon2Hasher) Hash(pin string) (string, error) {
	salt := make([]byte, h.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(pin), salt, h.time, h.memory, h.threads, h.keyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.time, h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (h *Argon2Hasher) Compare(hash, pin string) error {
	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return ErrMalformedHash
	}

	var memory, passes uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &passes, &threads); err != nil {
		return ErrMalformedHash
	}
	if memory == 0 || passes == 0 || threads == 0 {
		return ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return ErrMalformedHash
	}

	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return ErrMalformedHash
	}

	computed := argon2.IDKey([]byte(pin), salt, passes, memory, threads, uint32(len(expected)))
	if subtle.ConstantTimeCompare(expected, computed) != 1 {
		return ErrPINMismatch
	}
	return nil
}
