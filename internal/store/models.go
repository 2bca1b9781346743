package store

import "time"

type User struct {
	ID           string
	Email        string
	Name         string
	Image        string
	PasswordHash string
	CreatedAt    time.Time
}

type Workspace struct {
	ID        string
	Name      string
	UserID    string
	JoinCode  string
	CreatedAt time.Time
}

type Member struct {
	ID          string
	WorkspaceID string
	UserID      string
	Role        string
	CreatedAt   time.Time
}

type Channel struct {
	ID          string
	WorkspaceID string
	Name        string
	CreatedAt   time.Time
}

type Conversation struct {
	ID          string
	WorkspaceID string
	MemberOneID string
	MemberTwoID string
	CreatedAt   time.Time
}

// Message target fields (ChannelID, ConversationID, ParentMessageID) use the
// empty string for absent; the store maps them to NULL columns.
type Message struct {
	ID              string
	Seq             int64
	WorkspaceID     string
	MemberID        string
	ChannelID       string
	ConversationID  string
	ParentMessageID string
	Body            string
	ImageKey        string
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

type Reaction struct {
	ID          string
	WorkspaceID string
	MessageID   string
	MemberID    string
	Value       string
	CreatedAt   time.Time
}

// MessageQuery selects exactly one message scope for a page load.
type MessageQuery struct {
	ChannelID       string
	ConversationID  string
	ParentMessageID string
	// Cursor is an exclusive upper bound on message seq; zero means newest.
	Cursor int64
	Limit  int
}

// MessagePage is one page of messages, newest first.
type MessagePage struct {
	Messages       []Message
	ContinueCursor int64
	IsDone         bool
}
