// Package totp implements RFC 6238 time-based one-time passwords for the
// second authentication factor, including the replay guard the coordinator
// uses to reject a code presented twice inside the same time step.
package totp

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmcleod/facelock/internal/util"
)

const (
	// SecretBytes is the raw entropy behind a provisioned secret.
	SecretBytes = 20

	// Digits is the code length shown to the user.
	Digits = 6

	// Period is the time-step length in seconds.
	Period = 30

	// Window is how many adjacent steps either side of now are accepted,
	// covering clock drift between the host and the authenticator device.
	Window = 1
)

// ErrBadSecret reports a secret that is not valid unpadded base32.
var ErrBadSecret = errors.New("totp: malformed secret")

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSecret returns a fresh shared secret as unpadded base32.
func GenerateSecret() (string, error) {
	raw, err := util.RandomBytes(SecretBytes)
	if err != nil {
		return "", err
	}
	return b32.EncodeToString(raw), nil
}

// Normalize strips the whitespace users paste along with a code.
func Normalize(code string) string {
	return strings.TrimSpace(strings.ReplaceAll(code, " ", ""))
}

// ValidCode reports whether code is exactly Digits decimal digits.
func ValidCode(code string) bool {
	if len(code) != Digits {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// StepAt returns the time-step counter for the given instant.
func StepAt(at time.Time) uint64 {
	return uint64(at.Unix() / Period)
}

// Remaining returns how long the code for the current step stays valid.
func Remaining(at time.Time) time.Duration {
	return time.Duration(Period-at.Unix()%Period) * time.Second
}

// CodeAt computes the code for the step containing at.
func CodeAt(secret string, at time.Time) (string, error) {
	return codeForStep(secret, StepAt(at))
}

// Verify checks code against the secret at the given instant, accepting the
// current step and Window steps either side. On success it returns the step
// that matched so the caller can persist it: a step at or below the last
// accepted one must be treated as a replay and refused, even though the code
// itself is arithmetically valid.
func Verify(secret, code string, now time.Time) (step uint64, ok bool) {
	code = Normalize(code)
	if !ValidCode(code) {
		return 0, false
	}

	center := StepAt(now)
	matched := uint64(0)
	found := 0
	for i := -Window; i <= Window; i++ {
		s := center + uint64(i) // wraps for i<0; harmless, Unix time >> Window
		expected, err := codeForStep(secret, s)
		if err != nil {
			return 0, false
		}
		// Check every candidate step regardless of earlier matches so the
		// comparison count does not depend on the input.
		if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) == 1 {
			matched = s
			found = 1
		}
	}
	return matched, found == 1
}

func codeForStep(secret string, step uint64) (string, error) {
	key, err := b32.DecodeString(strings.ToUpper(Normalize(secret)))
	if err != nil {
		return "", ErrBadSecret
	}

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], step)

	mac := hmac.New(sha1.New, key)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	binCode := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)
	return fmt.Sprintf("%0*d", Digits, binCode%1000000), nil
}
