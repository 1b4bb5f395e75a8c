package telegram

import "errors"

// ErrInvalidInitData is wrapped by every verification failure, so callers
// can treat them uniformly as an authentication rejection.
var ErrInvalidInitData = errors.New("invalid init data")

var (
	ErrMalformedPayload    = invalid("malformed payload")
	ErrMissingSignature    = invalid("missing signature")
	ErrSignatureMismatch   = invalid("signature mismatch")
	ErrMissingUserRecord   = invalid("missing user record")
	ErrMalformedUserRecord = invalid("malformed user record")
	ErrStale               = invalid("auth_date outside allowed window")
)

type verifyError struct {
	msg string
}

func invalid(msg string) error {
	return &verifyError{msg: msg}
}

func (e *verifyError) Error() string {
	return "telegram: " + e.msg
}

func (e *verifyError) Unwrap() error {
	return ErrInvalidInitData
}

// Reason returns a short, secret-free code for err, suitable for logs and
// metric labels.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMalformedPayload):
		return "malformed_payload"
	case errors.Is(err, ErrMissingSignature):
		return "missing_signature"
	case errors.Is(err, ErrSignatureMismatch):
		return "signature_mismatch"
	case errors.Is(err, ErrMissingUserRecord):
		return "missing_user"
	case errors.Is(err, ErrMalformedUserRecord):
		return "malformed_user"
	case errors.Is(err, ErrStale):
		return "stale"
	default:
		return "error"
	}
}
