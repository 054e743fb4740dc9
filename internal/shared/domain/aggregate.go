package domain

// BaseAggregateRoot records domain events raised by an aggregate until they
// are published.
type BaseAggregateRoot struct {
	domainEvents []DomainEvent
}

// DomainEvents returns all unpublished domain events.
func (a *BaseAggregateRoot) DomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents removes all unpublished domain events.
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// AddDomainEvent records an event.
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}
