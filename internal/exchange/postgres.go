package exchange

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KLLNR/trading-exchange-api/internal/apperrors"
	"github.com/KLLNR/trading-exchange-api/internal/models"
)

// PostgresStore is the pgx-backed ProposalStore and AddressStore. The
// single-resolution invariant is enforced by conditional updates on
// status='PENDING' so two racing transitions can never both win.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, p *models.Proposal) error {
	if err := validateNew(p); err != nil {
		return err
	}

	err := s.pool.QueryRow(ctx, `
        INSERT INTO proposals (from_user_id, to_user_id, product_from_ids, product_to_ids, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at
    `, p.FromUserID, p.ToUserID, p.ProductFromID, p.ProductToID, string(StatusPending)).Scan(&p.ID, &p.CreatedAt)

	if err != nil {
		return fmt.Errorf("insert proposal: %w", err)
	}

	p.Status = string(StatusPending)
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*models.Proposal, error) {
	var p models.Proposal
	err := s.pool.QueryRow(ctx, `
        SELECT id, from_user_id, to_user_id, product_from_ids, product_to_ids, status, created_at
        FROM proposals
        WHERE id = $1
    `, id).Scan(&p.ID, &p.FromUserID, &p.ToUserID, &p.ProductFromID, &p.ProductToID, &p.Status, &p.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("proposal %d not found", id)
		}
		return nil, fmt.Errorf("select proposal %d: %w", id, err)
	}
	return &p, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID int64, dir Direction, page, size int, sort SortOrder) ([]models.Proposal, int, error) {
	column := "to_user_id"
	if dir == DirectionOutgoing {
		column = "from_user_id"
	}
	order := "DESC"
	if sort == SortOldestFirst {
		order = "ASC"
	}

	var total int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM proposals WHERE `+column+` = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count proposals: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
        SELECT id, from_user_id, to_user_id, product_from_ids, product_to_ids, status, created_at
        FROM proposals
        WHERE `+column+` = $1
        ORDER BY created_at `+order+`, id `+order+`
        LIMIT $2 OFFSET $3
    `, userID, size, page*size)
	if err != nil {
		return nil, 0, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	var proposals []models.Proposal
	for rows.Next() {
		var p models.Proposal
		if err := rows.Scan(&p.ID, &p.FromUserID, &p.ToUserID, &p.ProductFromID, &p.ProductToID, &p.Status, &p.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan proposal: %w", err)
		}
		proposals = append(proposals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list proposals: %w", err)
	}
	return proposals, total, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id int64, next Status) error {
	if !CanTransition(StatusPending, next) {
		return apperrors.Validation("illegal transition to %s", next)
	}

	ct, err := s.pool.Exec(ctx, `
        UPDATE proposals
        SET status = $2
        WHERE id = $1 AND status = $3
    `, id, string(next), string(StatusPending))
	if err != nil {
		return fmt.Errorf("update proposal %d status: %w", id, err)
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	return s.resolveFailed(ctx, id)
}

func (s *PostgresStore) Supersede(ctx context.Context, originalID int64, next Status, counter *models.Proposal) error {
	if err := validateNew(counter); err != nil {
		return err
	}
	if !CanTransition(StatusPending, next) {
		return apperrors.Validation("illegal transition to %s", next)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin supersede tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `
        UPDATE proposals
        SET status = $2
        WHERE id = $1 AND status = $3
    `, originalID, string(next), string(StatusPending))
	if err != nil {
		return fmt.Errorf("supersede proposal %d: %w", originalID, err)
	}
	if ct.RowsAffected() != 1 {
		return s.resolveFailed(ctx, originalID)
	}

	err = tx.QueryRow(ctx, `
        INSERT INTO proposals (from_user_id, to_user_id, product_from_ids, product_to_ids, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at
    `, counter.FromUserID, counter.ToUserID, counter.ProductFromID, counter.ProductToID, string(StatusPending)).Scan(&counter.ID, &counter.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert counter proposal: %w", err)
	}
	counter.Status = string(StatusPending)

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit supersede tx: %w", err)
	}
	return nil
}

// resolveFailed distinguishes a missing proposal from one another caller
// already resolved.
func (s *PostgresStore) resolveFailed(ctx context.Context, id int64) error {
	var status string
	err := s.pool.QueryRow(ctx, `SELECT status FROM proposals WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("proposal %d not found", id)
		}
		return fmt.Errorf("check proposal %d status: %w", id, err)
	}
	return apperrors.Conflict("proposal %d already resolved as %s", id, status)
}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, proposalID int64, addr *models.ShippingAddress) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO proposal_addresses (proposal_id, country, city, street, postal_code, phone)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (proposal_id) DO NOTHING
    `, proposalID, addr.Country, addr.City, addr.Street, addr.PostalCode, addr.Phone)
	if err != nil {
		return fmt.Errorf("save address snapshot for proposal %d: %w", proposalID, err)
	}
	return nil
}

func (s *PostgresStore) GetSnapshot(ctx context.Context, proposalID int64) (*models.ShippingAddress, error) {
	var addr models.ShippingAddress
	err := s.pool.QueryRow(ctx, `
        SELECT country, city, street, postal_code, phone
        FROM proposal_addresses
        WHERE proposal_id = $1
    `, proposalID).Scan(&addr.Country, &addr.City, &addr.Street, &addr.PostalCode, &addr.Phone)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("no address snapshot for proposal %d", proposalID)
		}
		return nil, fmt.Errorf("select address snapshot for proposal %d: %w", proposalID, err)
	}
	return &addr, nil
}

func validateNew(p *models.Proposal) error {
	if p.FromUserID == p.ToUserID {
		return apperrors.Validation("cannot propose an exchange to yourself")
	}
	if len(p.ProductFromID) == 0 {
		return apperrors.Validation("offered product list is empty")
	}
	if len(p.ProductToID) == 0 {
		return apperrors.Validation("requested product list is empty")
	}
	return nil
}
