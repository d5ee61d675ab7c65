package repository

import (
	"context"
	"database/sql"
)

// ChatRepo handles conversations and their metadata documents.
type ChatRepo struct {
	db *sql.DB
}

func NewChatRepo(db *sql.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

func (r *ChatRepo) Create(ctx context.Context, c Chat) error {
	meta := c.Metadata
	if len(meta) == 0 {
		meta = []byte("{}")
	}
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO chats(id, name, metadata, created_at, updated_at)
	VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`, c.ID, c.Name, string(meta))
	return err
}

// Get returns nil when no chat has id.
func (r *ChatRepo) Get(ctx context.Context, id string) (*Chat, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, metadata, created_at, updated_at FROM chats WHERE id = ?`, id)
	c, err := scanChat(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns chats, most recently updated first.
func (r *ChatRepo) List(ctx context.Context) ([]Chat, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, metadata, created_at, updated_at FROM chats ORDER BY updated_at DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveMetadata replaces the metadata document of chat id.
func (r *ChatRepo) SaveMetadata(ctx context.Context, id string, meta []byte) error {
	res, err := r.db.ExecContext(ctx, `UPDATE chats SET metadata = ?, updated_at=CURRENT_TIMESTAMP WHERE id = ?`, string(meta), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *ChatRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, id)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChat(s scanner) (Chat, error) {
	var c Chat
	var meta string
	if err := s.Scan(&c.ID, &c.Name, &meta, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Chat{}, err
	}
	c.Metadata = []byte(meta)
	return c, nil
}
