package domain

import "time"

// Session is issued by the external identity provider.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	// ProviderUserID is the provider's own id for the account.
	ProviderUserID string `json:"provider_user_id,omitempty"`
}
