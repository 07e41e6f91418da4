package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"infinixai/internal/entities"
)

// DefaultLogLimit bounds the admin chat log listing.
const DefaultLogLimit = 200

const conversationColumns = "id, tenant_id, title, channel, customer_identifier, created_at"
const chatLogColumns = "id, COALESCE(conversation_id, ''), tenant_id, role, channel, customer_identifier, message, created_at"

type ConversationRepository struct {
	db *sql.DB
}

func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) GetConversation(ctx context.Context, tenantID, id string) (*entities.Conversation, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+conversationColumns+" FROM conversations WHERE tenant_id = $1 AND id = $2", tenantID, id)
	c, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &c, nil
}

func (r *ConversationRepository) FindByCustomer(ctx context.Context, tenantID string, channel entities.Channel, customer string) (*entities.Conversation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE tenant_id = $1 AND channel = $2 AND customer_identifier = $3
		ORDER BY created_at DESC LIMIT 1`,
		tenantID, string(channel), customer)
	c, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return &c, nil
}

func (r *ConversationRepository) CreateConversation(ctx context.Context, c *entities.Conversation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (id, tenant_id, title, channel, customer_identifier, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.TenantID, c.Title, string(c.Channel), c.Customer, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

func (r *ConversationRepository) AppendMessage(ctx context.Context, l *entities.ChatLog) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO chat_logs (conversation_id, tenant_id, role, channel, customer_identifier, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		l.ConversationID, l.TenantID, l.Role, string(l.Channel), l.Customer, l.Message, l.CreatedAt,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("insert chat log: %w", err)
	}
	return nil
}

// ListConversations returns a tenant's conversations, newest first.
func (r *ConversationRepository) ListConversations(ctx context.Context, tenantID string) ([]entities.Conversation, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+conversationColumns+" FROM conversations WHERE tenant_id = $1 ORDER BY created_at DESC", tenantID)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	out := []entities.Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListMessages returns the messages of one conversation in order.
func (r *ConversationRepository) ListMessages(ctx context.Context, tenantID, conversationID string) ([]entities.ChatLog, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+chatLogColumns+" FROM chat_logs WHERE tenant_id = $1 AND conversation_id = $2 ORDER BY id",
		tenantID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	return collectLogs(rows)
}

// RecentLogs returns the latest chat logs across tenants, or of one tenant
// when tenantID is set.
func (r *ConversationRepository) RecentLogs(ctx context.Context, tenantID string, limit int) ([]entities.ChatLog, error) {
	if limit <= 0 || limit > DefaultLogLimit {
		limit = DefaultLogLimit
	}
	var (
		rows *sql.Rows
		err  error
	)
	if tenantID == "" {
		rows, err = r.db.QueryContext(ctx,
			"SELECT "+chatLogColumns+" FROM chat_logs ORDER BY created_at DESC, id DESC LIMIT $1", limit)
	} else {
		rows, err = r.db.QueryContext(ctx,
			"SELECT "+chatLogColumns+" FROM chat_logs WHERE tenant_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2",
			tenantID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query chat logs: %w", err)
	}
	return collectLogs(rows)
}

func collectLogs(rows *sql.Rows) ([]entities.ChatLog, error) {
	defer rows.Close()
	out := []entities.ChatLog{}
	for rows.Next() {
		var l entities.ChatLog
		var channel string
		if err := rows.Scan(&l.ID, &l.ConversationID, &l.TenantID, &l.Role, &channel, &l.Customer, &l.Message, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat log: %w", err)
		}
		l.Channel = entities.Channel(channel)
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanConversation(s scanner) (entities.Conversation, error) {
	var c entities.Conversation
	var channel string
	err := s.Scan(&c.ID, &c.TenantID, &c.Title, &channel, &c.Customer, &c.CreatedAt)
	c.Channel = entities.Channel(channel)
	return c, err
}
