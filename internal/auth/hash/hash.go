// Package hash derives and verifies argon2id password hashes in PHC form,
// for credential entries that should not sit in the config as plain text.
package hash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	defaultTime    uint32 = 3
	defaultMemory  uint32 = 64 * 1024 // KiB
	defaultThreads uint8  = 1
	defaultSaltLen uint32 = 16
	defaultKeyLen  uint32 = 32
	phcAlg                = "argon2id"
	phcVersion            = argon2.Version
)

// Prefix starts every string HashPassword produces.
const Prefix = "$" + phcAlg + "$"

var errMalformed = errors.New("malformed phc string")

type phcParams struct {
	time    uint32
	memory  uint32
	threads uint8
}

// IsPHC reports whether s looks like an argon2id PHC string.
func IsPHC(s string) bool { return strings.HasPrefix(s, Prefix) }

// HashPassword returns $argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>
// with unpadded standard base64 salt and hash.
func HashPassword(plain string) (string, error) {
	salt := make([]byte, defaultSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	p := phcParams{time: defaultTime, memory: defaultMemory, threads: defaultThreads}
	sum := argon2.IDKey([]byte(plain), salt, p.time, p.memory, p.threads, defaultKeyLen)
	return format(p, salt, sum), nil
}

// VerifyPassword reports whether plain matches phc. Parameters are taken from
// the PHC string; the comparison is constant time.
func VerifyPassword(phc, plain string) bool {
	p, salt, sum, err := parsePHC(phc)
	if err != nil {
		return false
	}
	calc := argon2.IDKey([]byte(plain), salt, p.time, p.memory, p.threads, uint32(len(sum)))
	return subtle.ConstantTimeCompare(calc, sum) == 1
}

func format(p phcParams, salt, sum []byte) string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		phcAlg, phcVersion, p.memory, p.time, p.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum))
}

// parsePHC splits "$alg$v=N$m=..,t=..,p=..$salt$hash".
func parsePHC(phc string) (phcParams, []byte, []byte, error) {
	parts := strings.Split(phc, "$")
	if len(parts) != 6 || parts[0] != "" {
		return phcParams{}, nil, nil, errMalformed
	}
	if parts[1] != phcAlg {
		return phcParams{}, nil, nil, fmt.Errorf("unsupported alg: %s", parts[1])
	}
	if parts[2] != fmt.Sprintf("v=%d", phcVersion) {
		return phcParams{}, nil, nil, fmt.Errorf("unsupported version: %s", parts[2])
	}
	var p phcParams
	for _, kv := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return phcParams{}, nil, nil, errMalformed
		}
		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return phcParams{}, nil, nil, errMalformed
			}
			p.memory = uint32(n)
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return phcParams{}, nil, nil, errMalformed
			}
			p.time = uint32(n)
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil {
				return phcParams{}, nil, nil, errMalformed
			}
			p.threads = uint8(n)
		}
	}
	if p.memory == 0 || p.time == 0 || p.threads == 0 {
		return phcParams{}, nil, nil, errMalformed
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return phcParams{}, nil, nil, errMalformed
	}
	sum, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(sum) == 0 {
		return phcParams{}, nil, nil, errMalformed
	}
	return p, salt, sum, nil
}
