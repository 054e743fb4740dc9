package app

import (
	"fmt"

	billingDomain "github.com/felixgeelhaar/nourish/internal/billing/domain"
	billingPersistence "github.com/felixgeelhaar/nourish/internal/billing/infrastructure/persistence"
	referralDomain "github.com/felixgeelhaar/nourish/internal/referral/domain"
	referralPersistence "github.com/felixgeelhaar/nourish/internal/referral/infrastructure/persistence"
	sharedApplication "github.com/felixgeelhaar/nourish/internal/shared/application"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/clientstore"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/outbox"
)

// RepositoryFactory creates repositories for an open connection. Queries are
// written once with '?' placeholders; the connection rebinds them for its
// driver.
type RepositoryFactory struct {
	conn   database.Connection
	driver database.Driver
}

// NewRepositoryFactory creates a new repository factory.
func NewRepositoryFactory(conn database.Connection) (*RepositoryFactory, error) {
	driver := conn.Driver()
	if !driver.IsValid() {
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
	return &RepositoryFactory{conn: conn, driver: driver}, nil
}

// Driver returns the driver of the underlying connection.
func (f *RepositoryFactory) Driver() database.Driver {
	return f.driver
}

// SubscriptionRepository creates the subscription repository.
func (f *RepositoryFactory) SubscriptionRepository() billingDomain.SubscriptionRepository {
	return billingPersistence.NewSubscriptionRepository(f.conn)
}

// ProfileRepository creates the profile repository.
func (f *RepositoryFactory) ProfileRepository() billingDomain.ProfileRepository {
	return billingPersistence.NewProfileRepository(f.conn)
}

// AffiliateRepository creates the affiliate repository.
func (f *RepositoryFactory) AffiliateRepository() referralDomain.AffiliateRepository {
	return referralPersistence.NewAffiliateRepository(f.conn)
}

// ClientStore creates durable client storage on the connection.
func (f *RepositoryFactory) ClientStore() clientstore.Store {
	return clientstore.NewSQLStore(f.conn)
}

// OutboxRepository creates the outbox repository.
func (f *RepositoryFactory) OutboxRepository() outbox.Repository {
	return outbox.NewSQLRepository(f.conn)
}

// UnitOfWork creates a unit of work bound to the connection.
func (f *RepositoryFactory) UnitOfWork() sharedApplication.UnitOfWork {
	return database.NewUnitOfWork(f.conn)
}
