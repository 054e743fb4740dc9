// Package domain models linked social accounts and cross-posting.
package domain

import (
	"sort"
	"strings"
)

// Provider is a social network accounts can be linked to.
type Provider struct {
	Name        string
	DisplayName string
	ClientID    string
	AuthURL     string
	TokenURL    string
	Scopes      []string
}

// Configured reports whether an authorization URL can be built.
func (p Provider) Configured() bool {
	return p.ClientID != "" && p.AuthURL != ""
}

// Catalogue is the set of supported providers keyed by name.
type Catalogue map[string]Provider

// DefaultCatalogue returns the supported providers with their public OAuth
// endpoints. Client IDs come from configuration.
func DefaultCatalogue() Catalogue {
	return Catalogue{
		"instagram": {
			Name:        "instagram",
			DisplayName: "Instagram",
			AuthURL:     "https://api.instagram.com/oauth/authorize",
			TokenURL:    "https://api.instagram.com/oauth/access_token",
			Scopes:      []string{"instagram_basic", "instagram_content_publish"},
		},
		"tiktok": {
			Name:        "tiktok",
			DisplayName: "TikTok",
			AuthURL:     "https://www.tiktok.com/v2/auth/authorize/",
			TokenURL:    "https://open.tiktokapis.com/v2/oauth/token/",
			Scopes:      []string{"user.info.basic", "video.publish"},
		},
		"facebook": {
			Name:        "facebook",
			DisplayName: "Facebook",
			AuthURL:     "https://www.facebook.com/v19.0/dialog/oauth",
			TokenURL:    "https://graph.facebook.com/v19.0/oauth/access_token",
			Scopes:      []string{"public_profile", "pages_manage_posts"},
		},
	}
}

// Lookup returns the provider named name, case-insensitively.
func (c Catalogue) Lookup(name string) (Provider, error) {
	provider, ok := c[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Provider{}, ErrUnknownProvider
	}
	return provider, nil
}

// Override replaces the non-empty settings of a known provider.
func (c Catalogue) Override(name, clientID, authURL, tokenURL string, scopes []string) {
	provider, ok := c[name]
	if !ok {
		return
	}
	if clientID != "" {
		provider.ClientID = clientID
	}
	if authURL != "" {
		provider.AuthURL = authURL
	}
	if tokenURL != "" {
		provider.TokenURL = tokenURL
	}
	if len(scopes) > 0 {
		provider.Scopes = scopes
	}
	c[name] = provider
}

// Names returns the provider names in sorted order.
func (c Catalogue) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
