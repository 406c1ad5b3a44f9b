package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cryptodegen12/bitcoinfun-bot/internal/model"
)

// Approval request errors.
var (
	ErrRequestNotFound = errors.New("approval request not found")

	// ErrRequestFinalized is returned when Finalize targets a request that is
	// no longer pending. An admin double-click must not credit twice.
	ErrRequestFinalized = errors.New("approval request already finalized")
)

const requestColumns = `id, kind, user_id, amount, address, proof_file_id,
		status, decided_by, created_at, decided_at`

// ApprovalRepository handles pending deposit/withdrawal request persistence.
type ApprovalRepository struct {
	pool *pgxpool.Pool
}

// NewApprovalRepository creates a new ApprovalRepository instance.
func NewApprovalRepository(pool *pgxpool.Pool) *ApprovalRepository {
	return &ApprovalRepository{pool: pool}
}

func scanRequest(row pgx.Row) (*model.ApprovalRequest, error) {
	var req model.ApprovalRequest
	err := row.Scan(
		&req.ID,
		&req.Kind,
		&req.UserID,
		&req.Amount,
		&req.Address,
		&req.ProofFileID,
		&req.Status,
		&req.DecidedBy,
		&req.CreatedAt,
		&req.DecidedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Create inserts a new pending request and returns it.
func (r *ApprovalRepository) Create(ctx context.Context, kind model.RequestKind, userID, amount int64, address, proofFileID *string) (*model.ApprovalRequest, error) {
	query := `
		INSERT INTO approval_requests (id, kind, user_id, amount, address, proof_file_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', NOW())
		RETURNING ` + requestColumns

	req, err := scanRequest(r.pool.QueryRow(ctx, query, uuid.New(), kind, userID, amount, address, proofFileID))
	if err != nil {
		return nil, fmt.Errorf("failed to create approval request: %w", err)
	}
	return req, nil
}

// GetByID retrieves a request by its id.
func (r *ApprovalRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ApprovalRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM approval_requests WHERE id = $1`

	req, err := scanRequest(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get approval request: %w", err)
	}
	return req, nil
}

// Finalize flips a pending request to a terminal status. The WHERE clause only
// matches pending rows, so of two concurrent decisions exactly one wins; the
// loser gets ErrRequestFinalized.
func (r *ApprovalRepository) Finalize(ctx context.Context, id uuid.UUID, status model.RequestStatus, decidedBy int64, decidedAt time.Time) (*model.ApprovalRequest, error) {
	query := `
		UPDATE approval_requests
		SET status = $2, decided_by = $3, decided_at = $4
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + requestColumns

	req, err := scanRequest(r.pool.QueryRow(ctx, query, id, status, decidedBy, decidedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, ErrRequestFinalized
		}
		return nil, fmt.Errorf("failed to finalize approval request: %w", err)
	}
	return req, nil
}

// ListPending returns open requests, oldest first.
func (r *ApprovalRepository) ListPending(ctx context.Context, limit int) ([]*model.ApprovalRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM approval_requests
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}
	defer rows.Close()

	var requests []*model.ApprovalRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending requests: %w", err)
	}
	return requests, nil
}
