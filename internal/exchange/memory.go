package exchange

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/KLLNR/trading-exchange-api/internal/apperrors"
	"github.com/KLLNR/trading-exchange-api/internal/models"
)

// MemoryStore is an in-memory ProposalStore and AddressStore with the same
// transition semantics as PostgresStore. It backs the test suite and local
// development without a database.
type MemoryStore struct {
	mu        sync.RWMutex
	nextID    int64
	proposals map[int64]*models.Proposal
	addresses map[int64]*models.ShippingAddress
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:    1,
		proposals: make(map[int64]*models.Proposal),
		addresses: make(map[int64]*models.ShippingAddress),
	}
}

func (s *MemoryStore) Create(ctx context.Context, p *models.Proposal) error {
	if err := validateNew(p); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextID
	s.nextID++
	p.Status = string(StatusPending)
	p.CreatedAt = time.Now().UTC()

	stored := *p
	stored.ProductFromID = append([]int64(nil), p.ProductFromID...)
	stored.ProductToID = append([]int64(nil), p.ProductToID...)
	s.proposals[p.ID] = &stored
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id int64) (*models.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.proposals[id]
	if !ok {
		return nil, apperrors.NotFound("proposal %d not found", id)
	}
	copied := *p
	return &copied, nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID int64, dir Direction, page, size int, sortOrder SortOrder) ([]models.Proposal, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.Proposal
	for _, p := range s.proposals {
		if dir == DirectionOutgoing && p.FromUserID == userID {
			matched = append(matched, *p)
		}
		if dir == DirectionIncoming && p.ToUserID == userID {
			matched = append(matched, *p)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if sortOrder == SortOldestFirst {
			if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
				return matched[i].ID < matched[j].ID
			}
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := page * size
	if start >= total {
		return []models.Proposal{}, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id int64, next Status) error {
	if !CanTransition(StatusPending, next) {
		return apperrors.Validation("illegal transition to %s", next)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.proposals[id]
	if !ok {
		return apperrors.NotFound("proposal %d not found", id)
	}
	if p.Status != string(StatusPending) {
		return apperrors.Conflict("proposal %d already resolved as %s", id, p.Status)
	}
	p.Status = string(next)
	return nil
}

func (s *MemoryStore) Supersede(ctx context.Context, originalID int64, next Status, counter *models.Proposal) error {
	if err := validateNew(counter); err != nil {
		return err
	}
	if !CanTransition(StatusPending, next) {
		return apperrors.Validation("illegal transition to %s", next)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.proposals[originalID]
	if !ok {
		return apperrors.NotFound("proposal %d not found", originalID)
	}
	if original.Status != string(StatusPending) {
		return apperrors.Conflict("proposal %d already resolved as %s", originalID, original.Status)
	}

	original.Status = string(next)

	counter.ID = s.nextID
	s.nextID++
	counter.Status = string(StatusPending)
	counter.CreatedAt = time.Now().UTC()

	stored := *counter
	stored.ProductFromID = append([]int64(nil), counter.ProductFromID...)
	stored.ProductToID = append([]int64(nil), counter.ProductToID...)
	s.proposals[counter.ID] = &stored
	return nil
}

func (s *MemoryStore) SaveSnapshot(ctx context.Context, proposalID int64, addr *models.ShippingAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.addresses[proposalID]; exists {
		return nil
	}
	copied := *addr
	s.addresses[proposalID] = &copied
	return nil
}

func (s *MemoryStore) GetSnapshot(ctx context.Context, proposalID int64) (*models.ShippingAddress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	addr, ok := s.addresses[proposalID]
	if !ok {
		return nil, apperrors.NotFound("no address snapshot for proposal %d", proposalID)
	}
	copied := *addr
	return &copied, nil
}
