package exchange

import (
	"context"

	"github.com/KLLNR/trading-exchange-api/internal/models"
)

// Direction selects which side of a proposal a listing is scoped to.
type Direction string

const (
	DirectionIncoming Direction = "incoming" // proposals addressed to the user
	DirectionOutgoing Direction = "outgoing" // proposals sent by the user
)

// SortOrder is the created-at ordering of a listing. The SPA sends
// Spring-style "createdAt,desc" values; anything unrecognized falls back to
// newest-first.
type SortOrder string

const (
	SortNewestFirst SortOrder = "createdAt,desc"
	SortOldestFirst SortOrder = "createdAt,asc"
)

// ParseSortOrder normalizes a sort query parameter.
func ParseSortOrder(s string) SortOrder {
	if SortOrder(s) == SortOldestFirst {
		return SortOldestFirst
	}
	return SortNewestFirst
}

// ProposalStore is the persistence boundary for proposals. A proposal is
// never deleted; it only moves to a terminal status, and it moves exactly
// once: UpdateStatus and Supersede are compare-and-set on PENDING.
type ProposalStore interface {
	// Create persists a new proposal, assigning ID, CreatedAt and PENDING
	// status. Fails with a validation error on self-proposals or empty
	// product lists.
	Create(ctx context.Context, p *models.Proposal) error

	// GetByID returns the proposal or a not-found error.
	GetByID(ctx context.Context, id int64) (*models.Proposal, error)

	// ListByUser returns one page of the user's proposals for the given
	// direction plus the total number of matching rows.
	ListByUser(ctx context.Context, userID int64, dir Direction, page, size int, sort SortOrder) ([]models.Proposal, int, error)

	// UpdateStatus atomically moves the proposal from PENDING to next.
	// A concurrent transition that already resolved the proposal surfaces
	// as a conflict error, never as a silent overwrite.
	UpdateStatus(ctx context.Context, id int64, next Status) error

	// Supersede terminates the original proposal (same compare-and-set as
	// UpdateStatus) and creates the reversed counter proposal in a single
	// atomic step. On conflict nothing is written.
	Supersede(ctx context.Context, originalID int64, next Status, counter *models.Proposal) error
}

// AddressStore persists the shipping-address snapshot taken at acceptance
// time. The snapshot is write-once per proposal.
type AddressStore interface {
	// SaveSnapshot stores the address for a proposal unless one already
	// exists; the stored value always wins.
	SaveSnapshot(ctx context.Context, proposalID int64, addr *models.ShippingAddress) error

	// GetSnapshot returns the stored address or a not-found error.
	GetSnapshot(ctx context.Context, proposalID int64) (*models.ShippingAddress, error)
}
