// Package application links social accounts and shares content through the
// backend.
package application

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/oauth2"

	"github.com/felixgeelhaar/nourish/internal/shared/resilience"
	"github.com/felixgeelhaar/nourish/internal/social/domain"
	"github.com/felixgeelhaar/nourish/pkg/observability"
	"github.com/google/uuid"
)

// Executor operation names.
const (
	OpConnect = "social.connect"
	OpShare   = "social.share"
)

// Service links accounts and shares content.
type Service struct {
	gateway   domain.Gateway
	providers domain.Catalogue
	executor  *resilience.Executor
	policy    resilience.RetryPolicy
	metrics   observability.Metrics
	logger    *slog.Logger
	newKey    func() string
}

// NewService creates the service. policy should be the write policy: both
// calls are writes made safe to retry by their idempotency key.
func NewService(gateway domain.Gateway, providers domain.Catalogue, executor *resilience.Executor, policy resilience.RetryPolicy, metrics observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		gateway:   gateway,
		providers: providers,
		executor:  executor,
		policy:    policy,
		metrics:   observability.OrNoop(metrics),
		logger:    observability.ForComponent(logger, "social"),
		newKey:    uuid.NewString,
	}
}

// Providers returns the provider catalogue.
func (s *Service) Providers() domain.Catalogue {
	return s.providers
}

// AuthURL returns the provider's authorization URL for state and redirectURI.
func (s *Service) AuthURL(provider, state, redirectURI string) (string, error) {
	p, err := s.providers.Lookup(provider)
	if err != nil {
		return "", err
	}
	if !p.Configured() {
		return "", notConfigured(p.Name)
	}
	cfg := oauth2.Config{
		ClientID:    p.ClientID,
		RedirectURL: redirectURI,
		Scopes:      p.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  p.AuthURL,
			TokenURL: p.TokenURL,
		},
	}
	return cfg.AuthCodeURL(state), nil
}

// ConnectAccount exchanges an authorization code for a linked account.
func (s *Service) ConnectAccount(ctx context.Context, provider, authCode, redirectURI string) (*domain.AccountRecord, error) {
	p, err := s.providers.Lookup(provider)
	if err != nil {
		return nil, err
	}
	req := domain.ConnectRequest{
		Provider:    p.Name,
		Code:        strings.TrimSpace(authCode),
		RedirectURI: strings.TrimSpace(redirectURI),
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := s.newKey()
	account, err := resilience.Execute(ctx, s.executor, OpConnect, s.policy,
		func(ctx context.Context) (*domain.AccountRecord, error) {
			return s.gateway.Connect(ctx, req, key)
		})
	if err != nil {
		s.logger.Warn("account connection failed", "provider", p.Name, observability.ErrorKey, err)
		return nil, failure(domain.ErrConnectFailed, err)
	}

	s.metrics.Counter(observability.MetricSocialConnected, 1, observability.T("provider", p.Name))
	s.logger.Info("account connected", "provider", p.Name, "account", account.AccountName)
	return account, nil
}

// ShareContent posts req to every requested platform.
func (s *Service) ShareContent(ctx context.Context, req domain.ShareRequest) ([]domain.ShareResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	platforms := make([]string, 0, len(req.Platforms))
	for _, platform := range req.Platforms {
		p, err := s.providers.Lookup(platform)
		if err != nil {
			return nil, err
		}
		platforms = append(platforms, p.Name)
	}
	req.Platforms = platforms

	key := s.newKey()
	results, err := resilience.Execute(ctx, s.executor, OpShare, s.policy,
		func(ctx context.Context) ([]domain.ShareResult, error) {
			return s.gateway.Share(ctx, req, key)
		})
	if err != nil {
		s.logger.Warn("sharing failed", "platforms", platforms, observability.ErrorKey, err)
		return nil, failure(domain.ErrShareFailed, err)
	}

	for _, result := range results {
		s.metrics.Counter(observability.MetricSocialShared, 1,
			observability.T("provider", result.Platform),
			observability.T("success", boolTag(result.Success)),
		)
	}
	return results, nil
}

// failure surfaces the upstream message when there is one.
func failure(base, err error) error {
	message := resilience.UpstreamMessage(err)
	if message == "" {
		message = base.Error()
	}
	return &domain.FailureError{Base: base, Message: message, Err: err}
}

// notConfigured reports a provider without client settings.
func notConfigured(provider string) error {
	return &domain.FailureError{
		Base:    domain.ErrProviderNotConfigured,
		Message: provider + " is not configured",
	}
}

func boolTag(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
