package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- users ---

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, image, password_hash)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, user.Email, user.Name, user.Image, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, image, password_hash, created_at
		FROM users WHERE LOWER(email)=LOWER($1)
	`, email).Scan(&user.ID, &user.Email, &user.Name, &user.Image, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, image, password_hash, created_at
		FROM users WHERE id=$1
	`, userID).Scan(&user.ID, &user.Email, &user.Name, &user.Image, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// --- refresh sessions / token revocation ---

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.email, u.name, u.image
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(&user.ID, &user.Email, &user.Name, &user.Image)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// --- workspaces ---

// CreateWorkspace inserts the workspace, its creator's admin membership and
// the default channel in one transaction.
func (s *PostgresStore) CreateWorkspace(ctx context.Context, workspace Workspace, admin Member, general Channel) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create workspace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO workspaces (id, name, user_id, join_code)
		VALUES ($1, $2, $3, $4)
	`, workspace.ID, workspace.Name, workspace.UserID, workspace.JoinCode); err != nil {
		return fmt.Errorf("insert workspace: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO members (id, workspace_id, user_id, role)
		VALUES ($1, $2, $3, $4)
	`, admin.ID, admin.WorkspaceID, admin.UserID, admin.Role); err != nil {
		return fmt.Errorf("insert workspace admin: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO channels (id, workspace_id, name)
		VALUES ($1, $2, $3)
	`, general.ID, general.WorkspaceID, general.Name); err != nil {
		return fmt.Errorf("insert default channel: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create workspace: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetWorkspace(ctx context.Context, workspaceID string) (Workspace, error) {
	var workspace Workspace
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, user_id, join_code, created_at
		FROM workspaces WHERE id=$1
	`, workspaceID).Scan(&workspace.ID, &workspace.Name, &workspace.UserID, &workspace.JoinCode, &workspace.CreatedAt)
	if err != nil {
		return Workspace{}, err
	}
	return workspace, nil
}

func (s *PostgresStore) ListWorkspacesForUser(ctx context.Context, userID string) ([]Workspace, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.name, w.user_id, w.join_code, w.created_at
		FROM workspaces w
		JOIN members m ON m.workspace_id = w.id
		WHERE m.user_id = $1
		ORDER BY w.created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	items := make([]Workspace, 0)
	for rows.Next() {
		var workspace Workspace
		if err := rows.Scan(&workspace.ID, &workspace.Name, &workspace.UserID, &workspace.JoinCode, &workspace.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		items = append(items, workspace)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workspaces: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateWorkspaceName(ctx context.Context, workspaceID, name string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE workspaces SET name=$2 WHERE id=$1`, workspaceID, name)
	if err != nil {
		return fmt.Errorf("update workspace: %w", err)
	}
	return requireRow(result)
}

func (s *PostgresStore) UpdateWorkspaceJoinCode(ctx context.Context, workspaceID, joinCode string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE workspaces SET join_code=$2 WHERE id=$1`, workspaceID, joinCode)
	if err != nil {
		return fmt.Errorf("update join code: %w", err)
	}
	return requireRow(result)
}

// DeleteWorkspace removes the workspace and everything under it.
func (s *PostgresStore) DeleteWorkspace(ctx context.Context, workspaceID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete workspace: %w", err)
	}
	defer tx.Rollback()

	steps := []struct {
		name  string
		query string
	}{
		{"reactions", `DELETE FROM reactions WHERE workspace_id=$1`},
		{"messages", `DELETE FROM messages WHERE workspace_id=$1`},
		{"conversations", `DELETE FROM conversations WHERE workspace_id=$1`},
		{"channels", `DELETE FROM channels WHERE workspace_id=$1`},
		{"members", `DELETE FROM members WHERE workspace_id=$1`},
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step.query, workspaceID); err != nil {
			return fmt.Errorf("delete workspace %s: %w", step.name, err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM workspaces WHERE id=$1`, workspaceID)
	if err != nil {
		return fmt.Errorf("delete workspace: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete workspace: %w", err)
	}
	return nil
}

// --- members ---

func (s *PostgresStore) GetMember(ctx context.Context, memberID string) (Member, error) {
	var member Member
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, user_id, role, created_at
		FROM members WHERE id=$1
	`, memberID).Scan(&member.ID, &member.WorkspaceID, &member.UserID, &member.Role, &member.CreatedAt)
	if err != nil {
		return Member{}, err
	}
	return member, nil
}

func (s *PostgresStore) GetMemberByWorkspaceUser(ctx context.Context, workspaceID, userID string) (Member, error) {
	var member Member
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, user_id, role, created_at
		FROM members WHERE workspace_id=$1 AND user_id=$2
	`, workspaceID, userID).Scan(&member.ID, &member.WorkspaceID, &member.UserID, &member.Role, &member.CreatedAt)
	if err != nil {
		return Member{}, err
	}
	return member, nil
}

func (s *PostgresStore) ListMembers(ctx context.Context, workspaceID string) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, user_id, role, created_at
		FROM members WHERE workspace_id=$1
		ORDER BY created_at ASC
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	items := make([]Member, 0)
	for rows.Next() {
		var member Member
		if err := rows.Scan(&member.ID, &member.WorkspaceID, &member.UserID, &member.Role, &member.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		items = append(items, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertMember(ctx context.Context, member Member) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO members (id, workspace_id, user_id, role)
		VALUES ($1, $2, $3, $4)
	`, member.ID, member.WorkspaceID, member.UserID, member.Role)
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateMemberRole(ctx context.Context, memberID, role string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE members SET role=$2 WHERE id=$1`, memberID, role)
	if err != nil {
		return fmt.Errorf("update member role: %w", err)
	}
	return requireRow(result)
}

// DeleteMember removes a membership together with the member's messages,
// reactions, and any direct conversations they are part of.
func (s *PostgresStore) DeleteMember(ctx context.Context, memberID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete member: %w", err)
	}
	defer tx.Rollback()

	steps := []struct {
		name  string
		query string
	}{
		{"conversation reactions", `
			DELETE FROM reactions WHERE message_id IN (
				SELECT id FROM messages WHERE conversation_id IN (
					SELECT id FROM conversations WHERE member_one_id=$1 OR member_two_id=$1
				)
			)`},
		{"conversation messages", `
			DELETE FROM messages WHERE conversation_id IN (
				SELECT id FROM conversations WHERE member_one_id=$1 OR member_two_id=$1
			)`},
		{"conversations", `DELETE FROM conversations WHERE member_one_id=$1 OR member_two_id=$1`},
		{"message reactions", `
			DELETE FROM reactions WHERE message_id IN (
				SELECT id FROM messages WHERE member_id=$1
			)`},
		{"member reactions", `DELETE FROM reactions WHERE member_id=$1`},
		{"messages", `DELETE FROM messages WHERE member_id=$1`},
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step.query, memberID); err != nil {
			return fmt.Errorf("delete member %s: %w", step.name, err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM members WHERE id=$1`, memberID)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete member: %w", err)
	}
	return nil
}

// --- channels ---

func (s *PostgresStore) GetChannel(ctx context.Context, channelID string) (Channel, error) {
	var channel Channel
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, name, created_at
		FROM channels WHERE id=$1
	`, channelID).Scan(&channel.ID, &channel.WorkspaceID, &channel.Name, &channel.CreatedAt)
	if err != nil {
		return Channel{}, err
	}
	return channel, nil
}

func (s *PostgresStore) ListChannels(ctx context.Context, workspaceID string) ([]Channel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, name, created_at
		FROM channels WHERE workspace_id=$1
		ORDER BY created_at ASC
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	items := make([]Channel, 0)
	for rows.Next() {
		var channel Channel
		if err := rows.Scan(&channel.ID, &channel.WorkspaceID, &channel.Name, &channel.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		items = append(items, channel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertChannel(ctx context.Context, channel Channel) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO channels (id, workspace_id, name)
		VALUES ($1, $2, $3)
	`, channel.ID, channel.WorkspaceID, channel.Name)
	if err != nil {
		return fmt.Errorf("insert channel: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateChannelName(ctx context.Context, channelID, name string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE channels SET name=$2 WHERE id=$1`, channelID, name)
	if err != nil {
		return fmt.Errorf("update channel: %w", err)
	}
	return requireRow(result)
}

// DeleteChannel removes the channel, its messages and their reactions.
func (s *PostgresStore) DeleteChannel(ctx context.Context, channelID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete channel: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM reactions WHERE message_id IN (
			SELECT id FROM messages WHERE channel_id=$1
		)
	`, channelID); err != nil {
		return fmt.Errorf("delete channel reactions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE channel_id=$1`, channelID); err != nil {
		return fmt.Errorf("delete channel messages: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM channels WHERE id=$1`, channelID)
	if err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete channel: %w", err)
	}
	return nil
}

// --- conversations ---

func (s *PostgresStore) GetConversation(ctx context.Context, conversationID string) (Conversation, error) {
	var conversation Conversation
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, member_one_id, member_two_id, created_at
		FROM conversations WHERE id=$1
	`, conversationID).Scan(&conversation.ID, &conversation.WorkspaceID, &conversation.MemberOneID, &conversation.MemberTwoID, &conversation.CreatedAt)
	if err != nil {
		return Conversation{}, err
	}
	return conversation, nil
}

// FindConversation matches the member pair in either order.
func (s *PostgresStore) FindConversation(ctx context.Context, workspaceID, memberA, memberB string) (Conversation, error) {
	var conversation Conversation
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, member_one_id, member_two_id, created_at
		FROM conversations
		WHERE workspace_id=$1
			AND ((member_one_id=$2 AND member_two_id=$3) OR (member_one_id=$3 AND member_two_id=$2))
	`, workspaceID, memberA, memberB).Scan(&conversation.ID, &conversation.WorkspaceID, &conversation.MemberOneID, &conversation.MemberTwoID, &conversation.CreatedAt)
	if err != nil {
		return Conversation{}, err
	}
	return conversation, nil
}

func (s *PostgresStore) InsertConversation(ctx context.Context, conversation Conversation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, workspace_id, member_one_id, member_two_id)
		VALUES ($1, $2, $3, $4)
	`, conversation.ID, conversation.WorkspaceID, conversation.MemberOneID, conversation.MemberTwoID)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

// --- messages ---

const messageColumns = `
	id, seq, workspace_id, member_id,
	COALESCE(channel_id, ''), COALESCE(conversation_id, ''), COALESCE(parent_message_id, ''),
	body, image_key, created_at, updated_at
`

func scanMessage(row interface{ Scan(...any) error }) (Message, error) {
	var message Message
	err := row.Scan(
		&message.ID, &message.Seq, &message.WorkspaceID, &message.MemberID,
		&message.ChannelID, &message.ConversationID, &message.ParentMessageID,
		&message.Body, &message.ImageKey, &message.CreatedAt, &message.UpdatedAt,
	)
	return message, err
}

func (s *PostgresStore) InsertMessage(ctx context.Context, message Message, bodyText string) (Message, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO messages (id, workspace_id, member_id, channel_id, conversation_id, parent_message_id, body, body_text, image_key)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9)
		RETURNING seq, created_at
	`, message.ID, message.WorkspaceID, message.MemberID,
		message.ChannelID, message.ConversationID, message.ParentMessageID,
		message.Body, bodyText, message.ImageKey,
	).Scan(&message.Seq, &message.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}
	return message, nil
}

func (s *PostgresStore) GetMessage(ctx context.Context, messageID string) (Message, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	return scanMessage(row)
}

func (s *PostgresStore) UpdateMessageBody(ctx context.Context, messageID, body, bodyText string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE messages SET body=$2, body_text=$3, updated_at=NOW() WHERE id=$1
	`, messageID, body, bodyText)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	return requireRow(result)
}

// DeleteMessage removes the message and its reactions. Thread replies keep
// their parent_message_id, matching the thread view surviving a deleted root.
func (s *PostgresStore) DeleteMessage(ctx context.Context, messageID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete message: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reactions WHERE message_id=$1`, messageID); err != nil {
		return fmt.Errorf("delete message reactions: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE id=$1`, messageID)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete message: %w", err)
	}
	return nil
}

// ListMessages returns one page, newest first, scoped to exactly one of
// channel, conversation, or thread parent.
func (s *PostgresStore) ListMessages(ctx context.Context, query MessageQuery) (MessagePage, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 50
	}

	where := ""
	args := []any{}
	switch {
	case query.ParentMessageID != "":
		where = "parent_message_id=$1"
		args = append(args, query.ParentMessageID)
	case query.ChannelID != "":
		where = "channel_id=$1 AND parent_message_id IS NULL"
		args = append(args, query.ChannelID)
	case query.ConversationID != "":
		where = "conversation_id=$1 AND parent_message_id IS NULL"
		args = append(args, query.ConversationID)
	default:
		return MessagePage{}, fmt.Errorf("list messages: no scope")
	}

	if query.Cursor > 0 {
		where += fmt.Sprintf(" AND seq < $%d", len(args)+1)
		args = append(args, query.Cursor)
	}
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM messages WHERE %s ORDER BY seq DESC LIMIT $%d`,
		messageColumns, where, len(args),
	), args...)
	if err != nil {
		return MessagePage{}, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	items := make([]Message, 0, limit)
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return MessagePage{}, fmt.Errorf("scan message: %w", err)
		}
		items = append(items, message)
	}
	if err := rows.Err(); err != nil {
		return MessagePage{}, fmt.Errorf("iterate messages: %w", err)
	}

	page := MessagePage{IsDone: true}
	if len(items) > limit {
		items = items[:limit]
		page.IsDone = false
	}
	page.Messages = items
	if len(items) > 0 {
		page.ContinueCursor = items[len(items)-1].Seq
	}
	return page, nil
}

// ThreadSummary reports the reply count and the latest reply under a root.
func (s *PostgresStore) ThreadSummary(ctx context.Context, parentMessageID string) (int, *Message, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages WHERE parent_message_id=$1
	`, parentMessageID).Scan(&count)
	if err != nil {
		return 0, nil, fmt.Errorf("count thread replies: %w", err)
	}
	if count == 0 {
		return 0, nil, nil
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE parent_message_id=$1
		ORDER BY seq DESC LIMIT 1
	`, parentMessageID)
	last, err := scanMessage(row)
	if err != nil {
		return 0, nil, fmt.Errorf("last thread reply: %w", err)
	}
	return count, &last, nil
}

// --- reactions ---

func (s *PostgresStore) ListReactions(ctx context.Context, messageID string) ([]Reaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, message_id, member_id, value, created_at
		FROM reactions WHERE message_id=$1
		ORDER BY created_at ASC
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}
	defer rows.Close()

	items := make([]Reaction, 0)
	for rows.Next() {
		var reaction Reaction
		if err := rows.Scan(&reaction.ID, &reaction.WorkspaceID, &reaction.MessageID, &reaction.MemberID, &reaction.Value, &reaction.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reaction: %w", err)
		}
		items = append(items, reaction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reactions: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetReactionByMessageMember(ctx context.Context, messageID, memberID string) (Reaction, error) {
	var reaction Reaction
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, message_id, member_id, value, created_at
		FROM reactions WHERE message_id=$1 AND member_id=$2
	`, messageID, memberID).Scan(&reaction.ID, &reaction.WorkspaceID, &reaction.MessageID, &reaction.MemberID, &reaction.Value, &reaction.CreatedAt)
	if err != nil {
		return Reaction{}, err
	}
	return reaction, nil
}

func (s *PostgresStore) InsertReaction(ctx context.Context, reaction Reaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reactions (id, workspace_id, message_id, member_id, value)
		VALUES ($1, $2, $3, $4, $5)
	`, reaction.ID, reaction.WorkspaceID, reaction.MessageID, reaction.MemberID, reaction.Value)
	if err != nil {
		return fmt.Errorf("insert reaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateReactionValue(ctx context.Context, reactionID, value string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE reactions SET value=$2 WHERE id=$1`, reactionID, value)
	if err != nil {
		return fmt.Errorf("update reaction: %w", err)
	}
	return requireRow(result)
}

func (s *PostgresStore) DeleteReaction(ctx context.Context, reactionID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reactions WHERE id=$1`, reactionID)
	if err != nil {
		return fmt.Errorf("delete reaction: %w", err)
	}
	return requireRow(result)
}

// requireRow converts a zero-row write into sql.ErrNoRows so the HTTP edge
// maps it to 404.
func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
