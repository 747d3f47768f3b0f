package exchange

import (
	"context"
	"log"

	"github.com/KLLNR/trading-exchange-api/internal/apperrors"
	"github.com/KLLNR/trading-exchange-api/internal/models"
)

// Service orchestrates the proposal state machine on top of the store and
// the external collaborators. Every authorization decision lives here; the
// HTTP layer never compares user IDs itself.
type Service struct {
	store   ProposalStore
	catalog ProductCatalog
	users   UserDirectory
	gate    *AddressGate
}

func NewService(store ProposalStore, catalog ProductCatalog, users UserDirectory, gate *AddressGate) *Service {
	return &Service{store: store, catalog: catalog, users: users, gate: gate}
}

// Propose creates a new PENDING proposal from fromUserID to toUserID.
// Every offered product must be owned by the proposer and flagged for
// trade (and not for sale); every requested product must be owned by the
// recipient. Ownership is checked at creation time only.
func (s *Service) Propose(ctx context.Context, fromUserID, toUserID int64, productFromIDs, productToIDs []int64) (*models.Proposal, error) {
	if fromUserID == toUserID {
		return nil, apperrors.Validation("cannot propose an exchange to yourself")
	}
	if len(productFromIDs) == 0 || len(productToIDs) == 0 {
		return nil, apperrors.Validation("both product lists must be non-empty")
	}

	if err := s.checkOwnership(ctx, fromUserID, productFromIDs, true); err != nil {
		return nil, err
	}
	if err := s.checkOwnership(ctx, toUserID, productToIDs, false); err != nil {
		return nil, err
	}

	p := &models.Proposal{
		FromUserID:    fromUserID,
		ToUserID:      toUserID,
		ProductFromID: productFromIDs,
		ProductToID:   productToIDs,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Accept resolves a pending proposal in the recipient's favor and reveals
// the recipient's shipping address to the proposer. Accept is idempotent:
// repeating it on an already-accepted proposal returns the stored address
// snapshot instead of erroring, so client retries are harmless.
func (s *Service) Accept(ctx context.Context, proposalID, actorID int64) (*models.Proposal, *models.ShippingAddress, error) {
	p, err := s.store.GetByID(ctx, proposalID)
	if err != nil {
		return nil, nil, err
	}
	if actorID != p.ToUserID {
		return nil, nil, apperrors.Authorization("only the recipient may accept proposal %d", proposalID)
	}

	switch Status(p.Status) {
	case StatusAccepted:
		addr, err := s.gate.RevealOnAccept(ctx, p)
		if err != nil {
			return nil, nil, err
		}
		return p, addr, nil
	case StatusPending:
		// fall through to the transition
	default:
		return nil, nil, apperrors.InvalidState("proposal %d is already %s", proposalID, p.Status)
	}

	if err := s.store.UpdateStatus(ctx, proposalID, StatusAccepted); err != nil {
		if apperrors.Is(err, apperrors.KindConflict) {
			// A concurrent accept may have won; retries still get the
			// address. Any other resolution is a real conflict.
			current, gerr := s.store.GetByID(ctx, proposalID)
			if gerr == nil && Status(current.Status) == StatusAccepted {
				addr, aerr := s.gate.RevealOnAccept(ctx, current)
				if aerr != nil {
					return nil, nil, aerr
				}
				return current, addr, nil
			}
		}
		return nil, nil, err
	}

	p.Status = string(StatusAccepted)
	addr, err := s.gate.RevealOnAccept(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	return p, addr, nil
}

// Reject resolves a pending proposal against the proposer. Recipient only.
func (s *Service) Reject(ctx context.Context, proposalID, actorID int64) (*models.Proposal, error) {
	return s.resolve(ctx, proposalID, actorID, StatusRejected)
}

// Cancel withdraws a pending proposal. Proposer only.
func (s *Service) Cancel(ctx context.Context, proposalID, actorID int64) (*models.Proposal, error) {
	return s.resolve(ctx, proposalID, actorID, StatusCanceled)
}

func (s *Service) resolve(ctx context.Context, proposalID, actorID int64, next Status) (*models.Proposal, error) {
	p, err := s.store.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	switch next {
	case StatusRejected:
		if actorID != p.ToUserID {
			return nil, apperrors.Authorization("only the recipient may reject proposal %d", proposalID)
		}
	case StatusCanceled:
		if actorID != p.FromUserID {
			return nil, apperrors.Authorization("only the proposer may cancel proposal %d", proposalID)
		}
	}

	if Status(p.Status) != StatusPending {
		return nil, apperrors.InvalidState("proposal %d is already %s", proposalID, p.Status)
	}

	if err := s.store.UpdateStatus(ctx, proposalID, next); err != nil {
		return nil, err
	}
	p.Status = string(next)
	return p, nil
}

// Counter declines a pending proposal and creates a reversed one in a
// single atomic step: the recipient becomes the proposer, offering
// counterProductIDs against the products originally offered to them. The
// original proposal ends up REJECTED; there is no dedicated superseded
// status.
func (s *Service) Counter(ctx context.Context, proposalID, actorID int64, counterProductIDs []int64) (*models.Proposal, error) {
	p, err := s.store.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if actorID != p.ToUserID {
		return nil, apperrors.Authorization("only the recipient may counter proposal %d", proposalID)
	}
	if Status(p.Status) != StatusPending {
		return nil, apperrors.InvalidState("proposal %d is already %s", proposalID, p.Status)
	}
	if len(counterProductIDs) == 0 {
		return nil, apperrors.Validation("counter offer must include at least one product")
	}

	if err := s.checkOwnership(ctx, actorID, counterProductIDs, true); err != nil {
		return nil, err
	}

	counter := &models.Proposal{
		FromUserID:    p.ToUserID,
		ToUserID:      p.FromUserID,
		ProductFromID: counterProductIDs,
		ProductToID:   p.ProductFromID,
	}
	if err := s.store.Supersede(ctx, proposalID, StatusRejected, counter); err != nil {
		return nil, err
	}
	return counter, nil
}

// Get returns a proposal to one of its two parties.
func (s *Service) Get(ctx context.Context, proposalID, actorID int64) (*models.Proposal, error) {
	p, err := s.store.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if actorID != p.FromUserID && actorID != p.ToUserID {
		return nil, apperrors.Authorization("user %d is not a party to proposal %d", actorID, proposalID)
	}
	return p, nil
}

// GetView returns a proposal decorated for the detail page.
func (s *Service) GetView(ctx context.Context, proposalID, actorID int64) (*models.ProposalView, error) {
	p, err := s.Get(ctx, proposalID, actorID)
	if err != nil {
		return nil, err
	}
	views := s.decorate(ctx, []models.Proposal{*p})
	return &views[0], nil
}

// Address returns the shipping address revealed by an accepted proposal.
// Authorization and state gating are delegated to the disclosure gate.
func (s *Service) Address(ctx context.Context, proposalID, actorID int64) (*models.ShippingAddress, error) {
	p, err := s.store.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	return s.gate.AddressFor(ctx, p, actorID)
}

// List returns one page of the user's proposals for the given direction,
// decorated with product titles and counter-party names. Lookups are
// batched per distinct ID so a page render costs one collaborator call per
// referenced product and user, not one per row.
func (s *Service) List(ctx context.Context, userID int64, dir Direction, page, size int, sort SortOrder) (*models.ProposalPage, error) {
	proposals, total, err := s.store.ListByUser(ctx, userID, dir, page, size, sort)
	if err != nil {
		return nil, err
	}

	totalPages := 0
	if size > 0 {
		totalPages = (total + size - 1) / size
	}

	views := s.decorate(ctx, proposals)
	return &models.ProposalPage{Content: views, TotalPages: totalPages}, nil
}

func (s *Service) decorate(ctx context.Context, proposals []models.Proposal) []models.ProposalView {
	productIDs := make(map[int64]struct{})
	userIDs := make(map[int64]struct{})
	for _, p := range proposals {
		userIDs[p.FromUserID] = struct{}{}
		userIDs[p.ToUserID] = struct{}{}
		for _, id := range p.ProductFromID {
			productIDs[id] = struct{}{}
		}
		for _, id := range p.ProductToID {
			productIDs[id] = struct{}{}
		}
	}

	products := make(map[int64]*models.Product, len(productIDs))
	for id := range productIDs {
		product, err := s.catalog.GetProduct(ctx, id)
		if err != nil {
			// Deleted or unavailable products leave a bare ID in the view.
			log.Printf("resolve product %d: %v", id, err)
			continue
		}
		products[id] = product
	}

	users := make(map[int64]*models.User, len(userIDs))
	for id := range userIDs {
		user, err := s.users.GetUser(ctx, id)
		if err != nil {
			log.Printf("resolve user %d: %v", id, err)
			continue
		}
		users[id] = user
	}

	views := make([]models.ProposalView, 0, len(proposals))
	for _, p := range proposals {
		view := models.ProposalView{
			Proposal: p,
			FromUser: users[p.FromUserID],
			ToUser:   users[p.ToUserID],
		}
		for _, id := range p.ProductFromID {
			if product, ok := products[id]; ok {
				view.ProductFromTitles = append(view.ProductFromTitles, product.Title)
			}
		}
		for _, id := range p.ProductToID {
			if product, ok := products[id]; ok {
				view.ProductToTitles = append(view.ProductToTitles, product.Title)
			}
		}
		views = append(views, view)
	}
	return views
}

// checkOwnership verifies that ownerID owns every product in ids and, when
// requireEligible is set, that each one is flagged for trade and not listed
// for sale.
func (s *Service) checkOwnership(ctx context.Context, ownerID int64, ids []int64, requireEligible bool) error {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return apperrors.Validation("product %d is listed twice", id)
		}
		seen[id] = struct{}{}

		product, err := s.catalog.GetProduct(ctx, id)
		if err != nil {
			if apperrors.Is(err, apperrors.KindNotFound) {
				return apperrors.Ownership("product %d does not exist", id)
			}
			return err
		}
		if product.OwnerID != ownerID {
			return apperrors.Ownership("product %d is not owned by user %d", id, ownerID)
		}
		if requireEligible && !product.Eligible() {
			return apperrors.Ownership("product %d is not available for trade", id)
		}
	}
	return nil
}
