package exchange

import (
	"context"
	"log"

	"github.com/KLLNR/trading-exchange-api/internal/apperrors"
	"github.com/KLLNR/trading-exchange-api/internal/models"
)

// AddressCache is an optional read-through cache in front of the snapshot
// store. A miss or cache failure is never fatal; the store is the source of
// truth.
type AddressCache interface {
	GetAddress(ctx context.Context, proposalID int64) (*models.ShippingAddress, bool)
	SetAddress(ctx context.Context, proposalID int64, addr *models.ShippingAddress)
}

// AddressGate controls when and to whom a shipping address is revealed.
// The recipient's address becomes visible to the proposer once the
// recipient accepts, as an immutable snapshot taken at acceptance time.
// Later edits to the user's profile address must not redirect a shipment
// already in flight.
type AddressGate struct {
	users UserDirectory
	store AddressStore
	cache AddressCache
}

func NewAddressGate(users UserDirectory, store AddressStore, cache AddressCache) *AddressGate {
	return &AddressGate{users: users, store: store, cache: cache}
}

// RevealOnAccept computes and persists the address snapshot for a
// just-accepted proposal. Safe to call more than once for the same
// proposal; the first stored snapshot always wins.
func (g *AddressGate) RevealOnAccept(ctx context.Context, p *models.Proposal) (*models.ShippingAddress, error) {
	if Status(p.Status) != StatusAccepted {
		return nil, apperrors.InvalidState("proposal %d is %s, address is only revealed on acceptance", p.ID, p.Status)
	}

	// Retry after a previous accept already snapshotted the address.
	if addr, err := g.store.GetSnapshot(ctx, p.ID); err == nil {
		g.cacheSet(ctx, p.ID, addr)
		return addr, nil
	} else if !apperrors.Is(err, apperrors.KindNotFound) {
		return nil, err
	}

	addr, err := g.users.GetShippingAddress(ctx, p.ToUserID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindNotFound, "shipping address unavailable")
	}
	if err := g.store.SaveSnapshot(ctx, p.ID, addr); err != nil {
		return nil, err
	}

	// Read back so a concurrent accept that won the insert race is what we
	// return to both callers.
	stored, err := g.store.GetSnapshot(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	g.cacheSet(ctx, p.ID, stored)
	return stored, nil
}

// AddressFor returns the revealed address for a proposal. Only the proposer
// of an accepted proposal is entitled to it; the recipient receives the
// shipment and never needs it.
func (g *AddressGate) AddressFor(ctx context.Context, p *models.Proposal, callerID int64) (*models.ShippingAddress, error) {
	if callerID != p.FromUserID {
		return nil, apperrors.Authorization("user %d may not view the address for proposal %d", callerID, p.ID)
	}
	if Status(p.Status) != StatusAccepted {
		return nil, apperrors.InvalidState("proposal %d is %s, no address has been revealed", p.ID, p.Status)
	}

	if g.cache != nil {
		if addr, ok := g.cache.GetAddress(ctx, p.ID); ok {
			return addr, nil
		}
	}

	addr, err := g.store.GetSnapshot(ctx, p.ID)
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			// Accepted before the snapshot landed (crash between the status
			// update and the insert). Recompute from the directory.
			log.Printf("proposal %d accepted without address snapshot, recomputing", p.ID)
			return g.RevealOnAccept(ctx, p)
		}
		return nil, err
	}
	g.cacheSet(ctx, p.ID, addr)
	return addr, nil
}

func (g *AddressGate) cacheSet(ctx context.Context, proposalID int64, addr *models.ShippingAddress) {
	if g.cache != nil {
		g.cache.SetAddress(ctx, proposalID, addr)
	}
}
