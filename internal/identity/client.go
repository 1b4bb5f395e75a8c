// Package identity exchanges a verified Telegram identity for a session
// issued by the hosted identity provider.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"boostclics/internal/domain"
	"boostclics/internal/telegram"
	"boostclics/internal/upstream"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer       = "boostclics"
	assertionTTL = time.Minute
	signInPath   = "/signin/telegram"
)

// ErrExchangeRejected means the provider refused to issue a session.
var ErrExchangeRejected = errors.New("identity: exchange rejected")

type Config struct {
	BaseURL      string
	SharedSecret string
	Audience     string
	Timeout      time.Duration
	Retry        upstream.Policy
}

type Client struct {
	baseURL    string
	secret     []byte
	audience   string
	httpClient *http.Client
	retry      upstream.Policy
	now        func() time.Time
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		secret:     []byte(cfg.SharedSecret),
		audience:   cfg.Audience,
		httpClient: &http.Client{Timeout: timeout},
		retry:      cfg.Retry,
		now:        time.Now,
	}
}

// AssertionClaims are carried by the short-lived token presented to the provider.
type AssertionClaims struct {
	Name     string `json:"name,omitempty"`
	Username string `json:"preferred_username,omitempty"`
	jwt.RegisteredClaims
}

type signInRequest struct {
	TelegramID  string `json:"telegramId"`
	DisplayName string `json:"displayName"`
	Username    string `json:"username,omitempty"`
}

type signInResponse struct {
	Session *struct {
		AccessToken          string `json:"accessToken"`
		AccessTokenExpiresIn int64  `json:"accessTokenExpiresIn"`
		RefreshToken         string `json:"refreshToken"`
		User                 struct {
			ID string `json:"id"`
		} `json:"user"`
	} `json:"session"`
}

// Exchange trades a verified identity for a provider session.
func (c *Client) Exchange(ctx context.Context, id *telegram.Identity) (*domain.Session, error) {
	assertion, err := c.assertion(id)
	if err != nil {
		return nil, fmt.Errorf("sign assertion: %w", err)
	}

	body, err := json.Marshal(signInRequest{
		TelegramID:  id.UserID,
		DisplayName: id.DisplayName,
		Username:    id.Username,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal sign-in request: %w", err)
	}

	var out signInResponse
	err = upstream.Retry(ctx, c.retry, func(ctx context.Context) error {
		return c.doRequest(ctx, assertion, body, &out)
	})
	if err != nil {
		var se *upstream.StatusError
		if errors.As(err, &se) && se.Code >= 400 && se.Code < 500 && se.Code != http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %v", ErrExchangeRejected, err)
		}
		return nil, fmt.Errorf("identity exchange: %w", err)
	}

	if out.Session == nil || out.Session.AccessToken == "" {
		return nil, fmt.Errorf("%w: response carries no session", ErrExchangeRejected)
	}

	return &domain.Session{
		AccessToken:    out.Session.AccessToken,
		RefreshToken:   out.Session.RefreshToken,
		ExpiresAt:      c.now().Add(time.Duration(out.Session.AccessTokenExpiresIn) * time.Second).UTC(),
		ProviderUserID: out.Session.User.ID,
	}, nil
}

func (c *Client) assertion(id *telegram.Identity) (string, error) {
	now := c.now()
	claims := AssertionClaims{
		Name:     id.DisplayName,
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.UserID,
			Audience:  jwt.ClaimStrings{c.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(assertionTTL)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

func (c *Client) doRequest(ctx context.Context, assertion string, body []byte, out *signInResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+signInPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+assertion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return upstream.NewStatusError("identity", resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &decodeError{err: err}
	}
	return nil
}

type decodeError struct{ err error }

func (e *decodeError) Error() string   { return "decode sign-in response: " + e.err.Error() }
func (e *decodeError) Unwrap() error   { return e.err }
func (e *decodeError) Permanent() bool { return true }
