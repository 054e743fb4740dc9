// Package application resolves and changes a user's premium entitlement.
package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/nourish/internal/billing/domain"
	"github.com/felixgeelhaar/nourish/internal/shared/cache"
	"github.com/felixgeelhaar/nourish/internal/shared/resilience"
	"github.com/felixgeelhaar/nourish/pkg/observability"
	"github.com/google/uuid"
)

// Operation names used with the executor.
const (
	OpFindSubscription = "billing.subscription.find"
	OpFindProfile      = "billing.profile.find"
	OpCheckPremium     = "billing.premium.check"
)

// DefaultSnapshotTTL is how long a resolved snapshot is served from cache.
const DefaultSnapshotTTL = 5 * time.Minute

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	TTL      time.Duration
	Policies resilience.Policies
}

// Resolver answers "does this user have premium access" from three sources
// of decreasing authority, caching the merged answer.
type Resolver struct {
	subscriptions domain.SubscriptionRepository
	profiles      domain.ProfileRepository
	premium       domain.PremiumChecker
	cache         cache.Cache[domain.Snapshot]
	executor      *resilience.Executor
	config        ResolverConfig
	metrics       observability.Metrics
	logger        *slog.Logger
	now           func() time.Time
}

// NewResolver creates a resolver. A zero TTL uses DefaultSnapshotTTL.
func NewResolver(
	subscriptions domain.SubscriptionRepository,
	profiles domain.ProfileRepository,
	premium domain.PremiumChecker,
	snapshots cache.Cache[domain.Snapshot],
	executor *resilience.Executor,
	config ResolverConfig,
	metrics observability.Metrics,
	logger *slog.Logger,
) *Resolver {
	if config.TTL <= 0 {
		config.TTL = DefaultSnapshotTTL
	}
	return &Resolver{
		subscriptions: subscriptions,
		profiles:      profiles,
		premium:       premium,
		cache:         snapshots,
		executor:      executor,
		config:        config,
		metrics:       observability.OrNoop(metrics),
		logger:        observability.ForComponent(logger, "subscription_resolver"),
		now:           time.Now,
	}
}

// Resolve returns the user's entitlement snapshot. It never fails: when no
// source answers, the snapshot reports no entitlement.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) domain.Snapshot {
	key := domain.CacheKey(userID)
	if snap, ok := r.cache.Get(ctx, key); ok {
		snap.Source = domain.SourceCached
		r.recordResolved(snap)
		return snap
	}

	logger := r.logger.With("user_id", userID.String())

	sub, err := resilience.Execute(ctx, r.executor, OpFindSubscription, r.config.Policies.Read,
		func(ctx context.Context) (*domain.Subscription, error) {
			return r.subscriptions.FindByUserID(ctx, userID)
		})
	snap := domain.Snapshot{Status: domain.StatusNone}
	answered := false

	if err != nil {
		logger.Warn("subscription record unavailable", observability.ErrorKey, err)
	} else if sub.Usable() {
		snap = domain.SnapshotFromSubscription(sub, r.now())
		if snap.HasEntitlement {
			r.cache.Set(ctx, key, snap, r.config.TTL)
			r.recordResolved(snap)
			return snap
		}
		// An inactive record is still a reading; the fallbacks may grant access.
		answered = true
	}

	profile, err := resilience.Execute(ctx, r.executor, OpFindProfile, r.config.Policies.Read,
		func(ctx context.Context) (*domain.Profile, error) {
			return r.profiles.FindByUserID(ctx, userID)
		})
	if err != nil {
		logger.Warn("profile status unavailable", observability.ErrorKey, err)
	} else if profile != nil {
		if !answered {
			snap.Source = domain.SourceSecondaryProfile
			if status, ok := profile.SnapshotStatus(); ok {
				snap.Status = status
			}
		}
		answered = true
		snap.HasEntitlement = snap.HasEntitlement || profile.Entitled()
	}

	premium, err := resilience.Execute(ctx, r.executor, OpCheckPremium, r.config.Policies.Check,
		r.premium.HasPremiumAccess)
	if err != nil {
		logger.Warn("premium check unavailable", observability.ErrorKey, err)
	} else {
		if !answered {
			snap.Source = domain.SourceTertiaryCheck
		}
		answered = true
		snap.HasEntitlement = snap.HasEntitlement || premium
	}

	snap.ResolvedAt = r.now()
	if !answered {
		logger.Error("no entitlement source answered")
		r.metrics.Counter(observability.MetricSubscriptionDegraded, 1)
		return domain.Snapshot{
			Status:     domain.StatusNone,
			Source:     domain.SourceTertiaryCheck,
			ResolvedAt: snap.ResolvedAt,
		}
	}

	r.cache.Set(ctx, key, snap, r.config.TTL)
	r.recordResolved(snap)
	return snap
}

// Invalidate drops the cached snapshot so the next Resolve reads the sources.
func (r *Resolver) Invalidate(ctx context.Context, userID uuid.UUID) {
	r.cache.Invalidate(ctx, domain.CacheKey(userID))
}

func (r *Resolver) recordResolved(snap domain.Snapshot) {
	r.metrics.Counter(observability.MetricSubscriptionResolved, 1,
		observability.T("source", string(snap.Source)))
}
