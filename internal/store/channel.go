package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/shopsync/internal/model"
)

// ChannelStore reads and writes channels, their members and their groups.
// Membership management lives outside this service; the write methods here
// exist for seeding and tests.
type ChannelStore struct {
	db *sql.DB
}

func NewChannelStore(db *sql.DB) *ChannelStore {
	return &ChannelStore{db: db}
}

func scanChannel(scanner interface{ Scan(...any) error }) (*model.Channel, error) {
	var c model.Channel
	err := scanner.Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanGroup(scanner interface{ Scan(...any) error }) (*model.Group, error) {
	var g model.Group
	err := scanner.Scan(&g.ID, &g.ChannelID, &g.Name, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

const channelCols = `id, name, created_at`
const groupCols = `id, channel_id, name, created_at`

func (s *ChannelStore) CreateChannel(ctx context.Context, name string) (*model.Channel, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO channels (id, name, created_at) VALUES (?, ?, ?)`,
		id, name, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert channel: %w", err)
	}
	return s.GetChannel(ctx, id)
}

func (s *ChannelStore) GetChannel(ctx context.Context, id string) (*model.Channel, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+channelCols+` FROM channels WHERE id = ?`, id)
	c, err := scanChannel(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return c, nil
}

func (s *ChannelStore) AddMember(ctx context.Context, channelID, userID, role string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO channel_members (channel_id, user_id, role, created_at) VALUES (?, ?, ?, ?)`,
		channelID, userID, role, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (s *ChannelStore) RemoveMember(ctx context.Context, channelID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM channel_members WHERE channel_id = ? AND user_id = ?`,
		channelID, userID,
	)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

func (s *ChannelStore) IsMember(ctx context.Context, channelID, userID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM channel_members WHERE channel_id = ? AND user_id = ?`,
		channelID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check member: %w", err)
	}
	return n > 0, nil
}

func (s *ChannelStore) CreateGroup(ctx context.Context, channelID, name string) (*model.Group, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO item_groups (id, channel_id, name, created_at) VALUES (?, ?, ?, ?)`,
		id, channelID, name, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert group: %w", err)
	}
	return s.GetGroup(ctx, id)
}

// GetGroup returns the group, or nil if it does not exist.
func (s *ChannelStore) GetGroup(ctx context.Context, id string) (*model.Group, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+groupCols+` FROM item_groups WHERE id = ?`, id)
	g, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

func (s *ChannelStore) DeleteGroup(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM item_groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}
