package telegram

import (
	"bytes"
	"crypto/hmac"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"
)

// maxClockSkew bounds how far in the future auth_date may be.
const maxClockSkew = 5 * time.Minute

type WebAppUser struct {
	ID           json.Number `json:"id"`
	FirstName    string      `json:"first_name"`
	LastName     string      `json:"last_name,omitempty"`
	Username     string      `json:"username,omitempty"`
	LanguageCode string      `json:"language_code,omitempty"`
	IsPremium    bool        `json:"is_premium,omitempty"`
	PhotoURL     string      `json:"photo_url,omitempty"`
}

// Identity is the outcome of a successful verification.
type Identity struct {
	UserID      string
	DisplayName string
	Username    string
	User        WebAppUser
	// AuthDate is zero when the payload carries no auth_date.
	AuthDate time.Time
}

// Verifier checks initData signatures for a single bot. It only holds the
// derived signing key and is safe for concurrent use.
type Verifier struct {
	key []byte
}

func NewVerifier(botToken string) *Verifier {
	return &Verifier{key: deriveKey(botToken)}
}

// Verify validates a raw initData string and returns the identity it asserts.
// Failures wrap ErrInvalidInitData.
func (v *Verifier) Verify(initData string) (*Identity, error) {
	pairs, err := ParsePairs(initData)
	if err != nil {
		return nil, err
	}

	provided, ok := pairs.Get(hashKey)
	if !ok {
		return nil, ErrMissingSignature
	}

	expected := signCheckString(v.key, pairs.Without(hashKey).CheckString())
	if !hmac.Equal([]byte(expected), []byte(provided)) {
		return nil, ErrSignatureMismatch
	}

	rawUser, ok := pairs.Get(userKey)
	if !ok {
		return nil, ErrMissingUserRecord
	}

	user, err := parseUser(rawUser)
	if err != nil {
		return nil, err
	}

	id := &Identity{
		UserID:      user.ID.String(),
		DisplayName: displayName(user),
		Username:    user.Username,
		User:        *user,
	}
	if raw, ok := pairs.Get("auth_date"); ok {
		if sec, err := strconv.ParseInt(raw, 10, 64); err == nil {
			id.AuthDate = time.Unix(sec, 0).UTC()
		}
	}

	return id, nil
}

func parseUser(raw string) (*WebAppUser, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var user WebAppUser
	if err := dec.Decode(&user); err != nil {
		return nil, ErrMalformedUserRecord
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, ErrMalformedUserRecord
	}
	if _, err := strconv.ParseInt(user.ID.String(), 10, 64); err != nil {
		return nil, ErrMalformedUserRecord
	}

	return &user, nil
}

func displayName(u *WebAppUser) string {
	name := strings.TrimSpace(strings.Join([]string{u.FirstName, u.LastName}, " "))
	if name == "" {
		return u.Username
	}
	return name
}

// CheckFreshness rejects identities whose auth_date is older than maxAge or
// too far in the future. A zero maxAge disables the check.
func CheckFreshness(id *Identity, now time.Time, maxAge time.Duration) error {
	if maxAge <= 0 {
		return nil
	}
	if id.AuthDate.IsZero() {
		return ErrStale
	}
	age := now.Sub(id.AuthDate)
	if age > maxAge || age < -maxClockSkew {
		return ErrStale
	}
	return nil
}
