package search

// Result is a single message hit returned to the caller.
type Result struct {
	MessageID      string `json:"messageId"`
	WorkspaceID    string `json:"workspaceId"`
	ChannelID      string `json:"channelId,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	MemberID       string `json:"memberId"`
	Author         string `json:"author"`
	Snippet        string `json:"snippet"`
	CreatedAt      int64  `json:"createdAt"`
}

// Query describes a search request. WorkspaceIDs scopes results to the
// workspaces the caller is a member of; an empty list matches nothing.
type Query struct {
	Text         string
	WorkspaceIDs []string
	Limit        int
	Offset       int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search over messages.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// MessageRecord is the data we index for a message.
type MessageRecord struct {
	ID             string `json:"id"`
	WorkspaceID    string `json:"workspaceId"`
	ChannelID      string `json:"channelId,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	MemberID       string `json:"memberId"`
	Author         string `json:"author"`
	Text           string `json:"text"`
	CreatedAt      int64  `json:"createdAt"`
}
