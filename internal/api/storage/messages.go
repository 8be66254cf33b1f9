package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/taskpin/taskpin-be/internal/api/domain"
	"github.com/taskpin/taskpin-be/internal/api/model"
)

// CreateMessage appends one entry to a job's conversation.
func (s *Store) CreateMessage(ctx context.Context, m *model.Message) error {
	query := `
		INSERT INTO messages (
			message_id, job_id, sender_role, kind, body, read, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := s.db.ExecContext(ctx, query,
		m.ID, m.JobID, m.SenderRole, m.Kind, m.Body, m.Read, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

// ListMessages pages backwards through a job's conversation. The page
// is fetched newest-first below the cursor, then reversed so callers
// receive chronological order.
func (s *Store) ListMessages(ctx context.Context, jobID string, before *time.Time, limit int) ([]model.Message, error) {
	query := `
		SELECT message_id, job_id, sender_role, kind, body, read, created_at
		FROM messages
		WHERE job_id = $1
	`
	args := []interface{}{jobID}
	argIdx := 2

	if before != nil {
		query += fmt.Sprintf(" AND created_at < $%d", argIdx)
		args = append(args, *before)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, message_id DESC LIMIT $%d", argIdx)
	args = append(args, ClampLimit(limit))

	var messages []model.Message
	if err := s.db.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// MarkMessagesRead marks every unread message from senderRole on a
// job as read. Callers pass the counter-party's role: a reader can
// only consume the other side's messages.
func (s *Store) MarkMessagesRead(ctx context.Context, jobID string, senderRole domain.SenderRole) (int64, error) {
	query := `
		UPDATE messages
		SET read = TRUE
		WHERE job_id = $1
		  AND sender_role = $2
		  AND read = FALSE
	`

	result, err := s.db.ExecContext(ctx, query, jobID, senderRole)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}

	return affected, nil
}
