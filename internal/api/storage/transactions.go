package storage

import (
	"context"
	"fmt"

	"github.com/taskpin/taskpin-be/internal/api/model"
)

// CreateTransaction appends an immutable ledger entry. Rows are never
// updated after insert.
func (s *Store) CreateTransaction(ctx context.Context, t *model.Transaction) error {
	query := `
		INSERT INTO transactions (
			transaction_id, user_id, job_id, type,
			amount_cents, currency, status, description, created_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9
		)
	`

	_, err := s.db.ExecContext(ctx, query,
		t.ID, t.UserID, t.JobID, t.Type,
		t.AmountCents, t.Currency, t.Status, t.Description, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// ListTransactionsByUser returns a user's ledger entries newest first.
func (s *Store) ListTransactionsByUser(ctx context.Context, userID string, limit, offset int) ([]model.Transaction, error) {
	query := `
		SELECT transaction_id, user_id, job_id, type,
		       amount_cents, currency, status, description, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, transaction_id DESC
		LIMIT $2 OFFSET $3
	`

	var transactions []model.Transaction
	if err := s.db.SelectContext(ctx, &transactions, query, userID, ClampLimit(limit), offset); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return transactions, nil
}
