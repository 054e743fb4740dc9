package domain

import (
	"context"
	"strings"
	"time"
)

// AccountRecord is a linked social account as returned by the backend.
type AccountRecord struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	AccountName string    `json:"account_name"`
	ExternalID  string    `json:"external_id,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
}

// ConnectRequest exchanges an authorization code for a linked account.
type ConnectRequest struct {
	Provider    string `json:"provider"`
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
}

// Validate checks the request before it is sent.
func (r ConnectRequest) Validate() error {
	if strings.TrimSpace(r.Code) == "" || strings.TrimSpace(r.RedirectURI) == "" {
		return ErrInvalidConnect
	}
	return nil
}

// ShareRequest posts content to one or more linked accounts.
type ShareRequest struct {
	Platforms []string `json:"platforms"`
	Caption   string   `json:"caption,omitempty"`
	MediaURL  string   `json:"media_url,omitempty"`
	Link      string   `json:"link,omitempty"`
}

// Validate checks there is somewhere to post and something to post.
func (r ShareRequest) Validate() error {
	if len(r.Platforms) == 0 {
		return ErrNoPlatforms
	}
	if strings.TrimSpace(r.Caption) == "" && strings.TrimSpace(r.MediaURL) == "" {
		return ErrEmptyContent
	}
	return nil
}

// ShareResult is the outcome on one platform.
type ShareResult struct {
	Platform string `json:"platform"`
	Success  bool   `json:"success"`
	PostID   string `json:"post_id,omitempty"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Gateway performs account linking and sharing on the backend. The
// idempotency key is the same for every attempt of one logical call.
type Gateway interface {
	Connect(ctx context.Context, req ConnectRequest, idempotencyKey string) (*AccountRecord, error)
	Share(ctx context.Context, req ShareRequest, idempotencyKey string) ([]ShareResult, error)
}
