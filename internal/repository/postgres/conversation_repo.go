package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vedran77/campusnet/internal/database"
	"github.com/vedran77/campusnet/internal/domain"
)

type ConversationRepo struct {
	db database.DBTX
}

func NewConversationRepo(db database.DBTX) *ConversationRepo {
	return &ConversationRepo{db: db}
}

const conversationColumns = `c.id, c.creator, c.kind, c.title, c.pair_low, c.pair_high, c.created_at`

func (r *ConversationRepo) Create(ctx context.Context, conv *domain.Conversation) error {
	query := `
		INSERT INTO conversations (id, creator, kind, title, pair_low, pair_high, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, query,
		conv.ID, conv.Creator, conv.Kind, conv.Title, conv.PairLow, conv.PairHigh, conv.CreatedAt,
	)
	return translate(err)
}

func (r *ConversationRepo) AddParticipant(ctx context.Context, p *domain.Participant) error {
	query := `INSERT INTO conversation_participants (conversation_id, identity, joined_at) VALUES ($1, $2, $3)`
	_, err := r.db.Exec(ctx, query, p.ConversationID, p.Identity, p.JoinedAt)
	return translate(err)
}

func (r *ConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	return r.scanConversation(ctx, `SELECT `+conversationColumns+` FROM conversations c WHERE c.id = $1`, id)
}

func (r *ConversationRepo) FindPrivateBetween(ctx context.Context, a, b domain.Identity) (*domain.Conversation, error) {
	lo, hi := domain.OrderedPair(a, b)
	query := `SELECT ` + conversationColumns + ` FROM conversations c
		WHERE c.kind = 'private' AND c.pair_low = $1 AND c.pair_high = $2`
	return r.scanConversation(ctx, query, lo, hi)
}

func (r *ConversationRepo) ListParticipants(ctx context.Context, conversationID uuid.UUID) ([]domain.Participant, error) {
	query := `SELECT conversation_id, identity, joined_at
		FROM conversation_participants WHERE conversation_id = $1 ORDER BY joined_at, identity`

	rows, err := r.db.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.ConversationID, &p.Identity, &p.JoinedAt); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *ConversationRepo) ListSummaries(ctx context.Context, id domain.Identity) ([]domain.ConversationSummary, error) {
	query := `
		SELECT ` + conversationColumns + `,
			lm.body, lm.sent_at,
			(SELECT COUNT(*) FROM messages u
				WHERE u.conversation_id = c.id AND u.status = 'sent' AND u.author <> $1) AS unread
		FROM conversations c
		JOIN conversation_participants me ON me.conversation_id = c.id AND me.identity = $1
		LEFT JOIN LATERAL (
			SELECT m.body, m.sent_at FROM messages m
			WHERE m.conversation_id = c.id
			ORDER BY m.sent_at DESC, m.seq DESC
			LIMIT 1
		) lm ON TRUE
		ORDER BY lm.sent_at DESC NULLS LAST, c.created_at DESC`

	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.ConversationSummary
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var s domain.ConversationSummary
		if err := rows.Scan(
			&s.ID, &s.Creator, &s.Kind, &s.Title, &s.PairLow, &s.PairHigh, &s.CreatedAt,
			&s.LastMessagePreview, &s.LastMessageAt, &s.UnreadCount,
		); err != nil {
			return nil, err
		}
		index[s.ID] = len(summaries)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return summaries, nil
	}

	ids := make([]string, 0, len(summaries))
	for _, s := range summaries {
		ids = append(ids, s.ID.String())
	}
	prows, err := r.db.Query(ctx, `
		SELECT conversation_id, identity, joined_at FROM conversation_participants
		WHERE conversation_id = ANY($1::uuid[])
		ORDER BY joined_at, identity`, ids)
	if err != nil {
		return nil, err
	}
	defer prows.Close()

	for prows.Next() {
		var p domain.Participant
		if err := prows.Scan(&p.ConversationID, &p.Identity, &p.JoinedAt); err != nil {
			return nil, err
		}
		i := index[p.ConversationID]
		summaries[i].Participants = append(summaries[i].Participants, p)
	}
	return summaries, prows.Err()
}

func (r *ConversationRepo) CreateMessage(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, author, body, status, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq`
	return r.db.QueryRow(ctx, query,
		msg.ID, msg.ConversationID, msg.Author, msg.Body, msg.Status, msg.SentAt,
	).Scan(&msg.Seq)
}

func (r *ConversationRepo) ListMessages(ctx context.Context, conversationID uuid.UUID, before *uuid.UUID, limit int) ([]domain.Message, error) {
	var query string
	var args []any

	if before != nil {
		query = `
			SELECT m.id, m.conversation_id, m.seq, m.author, m.body, m.status, m.sent_at
			FROM messages m
			WHERE m.conversation_id = $1
				AND (m.sent_at, m.seq) < (SELECT sent_at, seq FROM messages WHERE id = $2 AND conversation_id = $1)
			ORDER BY m.sent_at DESC, m.seq DESC
			LIMIT $3`
		args = []any{conversationID, *before, limit}
	} else {
		query = `
			SELECT m.id, m.conversation_id, m.seq, m.author, m.body, m.status, m.sent_at
			FROM messages m
			WHERE m.conversation_id = $1
			ORDER BY m.sent_at DESC, m.seq DESC
			LIMIT $2`
		args = []any{conversationID, limit}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID, &msg.ConversationID, &msg.Seq, &msg.Author, &msg.Body, &msg.Status, &msg.SentAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to chronological order (query returns DESC)
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *ConversationRepo) MarkRead(ctx context.Context, conversationID uuid.UUID, viewer domain.Identity) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE messages SET status = 'read' WHERE conversation_id = $1 AND author <> $2 AND status = 'sent'`,
		conversationID, viewer,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *ConversationRepo) scanConversation(ctx context.Context, query string, args ...any) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&conv.ID, &conv.Creator, &conv.Kind, &conv.Title, &conv.PairLow, &conv.PairHigh, &conv.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &conv, err
}
