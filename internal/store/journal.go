package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/models"
)

// RecordAttempt inserts a new journal row for a checkout attempt
func (s *Store) RecordAttempt(ctx context.Context, attempt *models.CheckoutAttempt) error {
	query := `
		INSERT INTO checkout_attempts (idempotency_key, user_id, stage, outcome, total_price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	row := s.db.QueryRowxContext(ctx, query,
		attempt.IdempotencyKey, attempt.UserID, attempt.Stage, attempt.Outcome, attempt.TotalPrice)
	if err := row.Scan(&attempt.ID, &attempt.CreatedAt, &attempt.UpdatedAt); err != nil {
		return fmt.Errorf("failed to record checkout attempt: %w", err)
	}
	return nil
}

// UpdateStage moves an attempt to stage with the given outcome. orderID and
// reason are stored when not empty.
func (s *Store) UpdateStage(ctx context.Context, idempotencyKey string, stage models.CheckoutStage, outcome, orderID, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE checkout_attempts
		SET stage = $1, outcome = $2,
			order_id = COALESCE(NULLIF($3, ''), order_id),
			error = NULLIF($4, ''),
			updated_at = NOW()
		WHERE idempotency_key = $5`,
		stage, outcome, orderID, reason, idempotencyKey)
	if err != nil {
		return fmt.Errorf("failed to update checkout stage: %w", err)
	}
	return nil
}

// GetAttempt retrieves an attempt by idempotency key. It returns nil when
// there is none.
func (s *Store) GetAttempt(ctx context.Context, idempotencyKey string) (*models.CheckoutAttempt, error) {
	var attempt models.CheckoutAttempt
	err := s.db.GetContext(ctx, &attempt,
		"SELECT * FROM checkout_attempts WHERE idempotency_key = $1", idempotencyKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// ListAttempts returns a user's most recent attempts, newest first
func (s *Store) ListAttempts(ctx context.Context, userID string, limit int) ([]models.CheckoutAttempt, error) {
	attempts := []models.CheckoutAttempt{}
	err := s.db.SelectContext(ctx, &attempts,
		"SELECT * FROM checkout_attempts WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2", userID, limit)
	return attempts, err
}
