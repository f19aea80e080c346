package auth

import "errors"

// Reason classifies why an attempt was denied. Reasons are recorded in the
// attempt log and exposed to the local UI; the outward error strings stay
// deliberately vague so a failed attempt learns nothing about which factor
// broke.
type Reason string

const (
	ReasonBadCredentials         Reason = "BAD_CREDENTIALS"
	ReasonLocked                 Reason = "LOCKED"
	ReasonFaceNotRecognized      Reason = "FACE_NOT_RECOGNIZED"
	ReasonSpoofSuspected         Reason = "SPOOF_SUSPECTED"
	ReasonBadTOTP                Reason = "BAD_TOTP"
	ReasonTOTPReplayed           Reason = "TOTP_REPLAYED"
	ReasonAttemptTimeout         Reason = "ATTEMPT_TIMEOUT"
	ReasonRegistrationIncomplete Reason = "REGISTRATION_INCOMPLETE"
)

// Denial is a refused attempt. It is an expected outcome, distinct from hard
// errors such as a failing store, which surface as ordinary wrapped errors.
type Denial struct {
	Reason Reason
	// Diagnostics carries the internal detail (which liveness signal failed,
	// best match distance) for the local operator. Never shown outward.
	Diagnostics string
}

func (d *Denial) Error() string {
	switch d.Reason {
	case ReasonLocked:
		return "account temporarily locked"
	case ReasonAttemptTimeout:
		return "authentication attempt timed out"
	case ReasonRegistrationIncomplete:
		return "registration incomplete"
	default:
		// One string for credential, face, liveness, and code failures:
		// distinguishing them would confirm which factor an attacker got right.
		return "authentication failed"
	}
}

// AsDenial unwraps a Denial from err, if there is one.
func AsDenial(err error) (*Denial, bool) {
	var d *Denial
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}
