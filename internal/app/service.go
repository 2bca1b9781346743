package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"strings"
	"time"

	"banter/api/internal/auth"
	"banter/api/internal/authpw"
	"banter/api/internal/config"
	"banter/api/internal/rbac"
	"banter/api/internal/richtext"
	"banter/api/internal/search"
	"banter/api/internal/session"
	"banter/api/internal/store"
	"banter/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	UserImage    string
	JTI          string
	ExpiresAt    time.Time
}

type CreateMessageInput struct {
	WorkspaceID     string `json:"workspaceId"`
	ChannelID       string `json:"channelId"`
	ConversationID  string `json:"conversationId"`
	ParentMessageID string `json:"parentMessageId"`
	Body            string `json:"body"`
	ImageKey        string `json:"imageKey"`
}

type ListMessagesInput struct {
	ChannelID       string
	ConversationID  string
	ParentMessageID string
	Cursor          int64
	Limit           int
}

type dataStore interface {
	CreateUser(context.Context, store.User) error
	GetUserByEmail(context.Context, string) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
	CreateWorkspace(context.Context, store.Workspace, store.Member, store.Channel) error
	GetWorkspace(context.Context, string) (store.Workspace, error)
	ListWorkspacesForUser(context.Context, string) ([]store.Workspace, error)
	UpdateWorkspaceName(context.Context, string, string) error
	UpdateWorkspaceJoinCode(context.Context, string, string) error
	DeleteWorkspace(context.Context, string) error
	GetMember(context.Context, string) (store.Member, error)
	GetMemberByWorkspaceUser(context.Context, string, string) (store.Member, error)
	ListMembers(context.Context, string) ([]store.Member, error)
	InsertMember(context.Context, store.Member) error
	UpdateMemberRole(context.Context, string, string) error
	DeleteMember(context.Context, string) error
	GetChannel(context.Context, string) (store.Channel, error)
	ListChannels(context.Context, string) ([]store.Channel, error)
	InsertChannel(context.Context, store.Channel) error
	UpdateChannelName(context.Context, string, string) error
	DeleteChannel(context.Context, string) error
	GetConversation(context.Context, string) (store.Conversation, error)
	FindConversation(context.Context, string, string, string) (store.Conversation, error)
	InsertConversation(context.Context, store.Conversation) error
	InsertMessage(context.Context, store.Message, string) (store.Message, error)
	GetMessage(context.Context, string) (store.Message, error)
	UpdateMessageBody(context.Context, string, string, string) error
	DeleteMessage(context.Context, string) error
	ListMessages(context.Context, store.MessageQuery) (store.MessagePage, error)
	ThreadSummary(context.Context, string) (int, *store.Message, error)
	ListReactions(context.Context, string) ([]store.Reaction, error)
	GetReactionByMessageMember(context.Context, string, string) (store.Reaction, error)
	InsertReaction(context.Context, store.Reaction) error
	UpdateReactionValue(context.Context, string, string) error
	DeleteReaction(context.Context, string) error
	Ping(ctx context.Context) error
}

type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

// ImageStore is the slice of the blob store the service needs for
// attachments. A nil ImageStore disables uploads.
type ImageStore interface {
	PresignedUpload(ctx context.Context, key string) (string, error)
	ResolveURL(ctx context.Context, key string) (string, error)
	Remove(ctx context.Context, key string) error
}

type searchIndex interface {
	Search(q search.Query) search.Response
	IndexMessage(record search.MessageRecord)
	DeleteMessage(id string)
}

type Service struct {
	cfg       config.Config
	store     dataStore
	sessions  sessionStore
	passwords *authpw.Service
	images    ImageStore  // nil when blob storage is not configured
	search    searchIndex // nil when search is not configured
}

func New(cfg config.Config, dataStore *store.PostgresStore, searchService *search.Service, images ImageStore) *Service {
	return newService(cfg, dataStore, session.NewPostgresStore(dataStore), searchService, images)
}

func NewWithSessionStore(cfg config.Config, dataStore *store.PostgresStore, sessions *session.RedisStore, searchService *search.Service, images ImageStore) *Service {
	return newService(cfg, dataStore, sessions, searchService, images)
}

func newService(cfg config.Config, dataStore *store.PostgresStore, sessions sessionStore, searchService *search.Service, images ImageStore) *Service {
	service := &Service{
		cfg:       cfg,
		store:     dataStore,
		sessions:  sessions,
		passwords: authpw.NewService(dataStore),
		images:    images,
	}
	if searchService != nil {
		service.search = searchService
	}
	return service
}

func (s *Service) AuthPasswordService() *authpw.Service {
	return s.passwords
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// --- sessions ---

func (s *Service) SignUp(ctx context.Context, req authpw.SignUpRequest) (Session, error) {
	user, err := s.passwords.SignUp(ctx, req)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) SignIn(ctx context.Context, req authpw.SignInRequest) (Session, error) {
	user, err := s.passwords.SignIn(ctx, req)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), user.ID, user.Name, jti, expiresAt)
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.Name,
		UserImage:    user.Image,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.Name,
		UserImage: user.Image,
		JTI:       claims.JTI,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// --- authorization guard ---

// member resolves the caller's membership in a workspace. sql.ErrNoRows
// means the caller is not a member; queries treat that as "see nothing",
// mutations raise.
func (s *Service) member(ctx context.Context, workspaceID string, session Session) (store.Member, error) {
	return s.store.GetMemberByWorkspaceUser(ctx, workspaceID, session.UserID)
}

func (s *Service) requireMember(ctx context.Context, workspaceID string, session Session) (store.Member, error) {
	member, err := s.member(ctx, workspaceID, session)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Member{}, errUnauthorized()
	}
	if err != nil {
		return store.Member{}, err
	}
	return member, nil
}

func (s *Service) requireAdmin(ctx context.Context, workspaceID string, session Session, action rbac.Action) (store.Member, error) {
	member, err := s.requireMember(ctx, workspaceID, session)
	if err != nil {
		return store.Member{}, err
	}
	if !rbac.Can(rbac.Normalize(member.Role), action) {
		return store.Member{}, errForbidden()
	}
	return member, nil
}

// --- workspaces ---

const joinCodeAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func generateJoinCode() string {
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	code := make([]byte, len(buf))
	for i, b := range buf {
		code[i] = joinCodeAlphabet[int(b)%len(joinCodeAlphabet)]
	}
	return string(code)
}

func (s *Service) CreateWorkspace(ctx context.Context, session Session, name string) (map[string]any, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errValidation("name is required")
	}

	workspace := store.Workspace{
		ID:       util.NewID("ws"),
		Name:     name,
		UserID:   session.UserID,
		JoinCode: generateJoinCode(),
	}
	admin := store.Member{
		ID:          util.NewID("mem"),
		WorkspaceID: workspace.ID,
		UserID:      session.UserID,
		Role:        string(rbac.RoleAdmin),
	}
	general := store.Channel{
		ID:          util.NewID("ch"),
		WorkspaceID: workspace.ID,
		Name:        "general",
	}
	if err := s.store.CreateWorkspace(ctx, workspace, admin, general); err != nil {
		return nil, err
	}
	return map[string]any{"workspaceId": workspace.ID}, nil
}

func (s *Service) ListWorkspaces(ctx context.Context, session Session) (map[string]any, error) {
	workspaces, err := s.store.ListWorkspacesForUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(workspaces))
	for _, workspace := range workspaces {
		items = append(items, workspacePayload(workspace))
	}
	return map[string]any{"workspaces": items}, nil
}

// GetWorkspace returns null for non-members rather than raising.
func (s *Service) GetWorkspace(ctx context.Context, session Session, workspaceID string) (map[string]any, error) {
	if _, err := s.member(ctx, workspaceID, session); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return map[string]any{"workspace": nil}, nil
		}
		return nil, err
	}
	workspace, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return map[string]any{"workspace": nil}, nil
		}
		return nil, err
	}
	return map[string]any{"workspace": workspacePayload(workspace)}, nil
}

// GetWorkspaceInfo is the pre-join peek: name and whether the caller is
// already a member, without exposing the join code.
func (s *Service) GetWorkspaceInfo(ctx context.Context, session Session, workspaceID string) (map[string]any, error) {
	workspace, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return map[string]any{"info": nil}, nil
		}
		return nil, err
	}
	isMember := true
	if _, err := s.member(ctx, workspaceID, session); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		isMember = false
	}
	return map[string]any{"info": map[string]any{
		"name":     workspace.Name,
		"isMember": isMember,
	}}, nil
}

func (s *Service) UpdateWorkspace(ctx context.Context, session Session, workspaceID, name string) (map[string]any, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errValidation("name is required")
	}
	if _, err := s.requireAdmin(ctx, workspaceID, session, rbac.ActionManageWorkspace); err != nil {
		return nil, err
	}
	if err := s.store.UpdateWorkspaceName(ctx, workspaceID, name); err != nil {
		return nil, err
	}
	return map[string]any{"workspaceId": workspaceID}, nil
}

func (s *Service) RemoveWorkspace(ctx context.Context, session Session, workspaceID string) (map[string]any, error) {
	if _, err := s.requireAdmin(ctx, workspaceID, session, rbac.ActionManageWorkspace); err != nil {
		return nil, err
	}
	if err := s.store.DeleteWorkspace(ctx, workspaceID); err != nil {
		return nil, err
	}
	return map[string]any{"workspaceId": workspaceID}, nil
}

func (s *Service) RotateJoinCode(ctx context.Context, session Session, workspaceID string) (map[string]any, error) {
	if _, err := s.requireAdmin(ctx, workspaceID, session, rbac.ActionManageWorkspace); err != nil {
		return nil, err
	}
	code := generateJoinCode()
	if err := s.store.UpdateWorkspaceJoinCode(ctx, workspaceID, code); err != nil {
		return nil, err
	}
	return map[string]any{"workspaceId": workspaceID, "joinCode": code}, nil
}

func (s *Service) JoinWorkspace(ctx context.Context, session Session, workspaceID, joinCode string) (map[string]any, error) {
	workspace, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(strings.TrimSpace(joinCode), workspace.JoinCode) {
		return nil, domainError(403, "INVALID_JOIN_CODE", "Invalid join code", nil)
	}
	if _, err := s.member(ctx, workspaceID, session); err == nil {
		return nil, domainError(409, "ALREADY_JOINED", "User already joined", nil)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	member := store.Member{
		ID:          util.NewID("mem"),
		WorkspaceID: workspaceID,
		UserID:      session.UserID,
		Role:        string(rbac.RoleMember),
	}
	if err := s.store.InsertMember(ctx, member); err != nil {
		return nil, err
	}
	return map[string]any{"workspaceId": workspaceID}, nil
}

func workspacePayload(workspace store.Workspace) map[string]any {
	return map[string]any{
		"id":        workspace.ID,
		"name":      workspace.Name,
		"userId":    workspace.UserID,
		"joinCode":  workspace.JoinCode,
		"createdAt": workspace.CreatedAt.UnixMilli(),
	}
}

// --- channels ---

// normalizeChannelName lowercases and replaces whitespace runs with dashes.
func normalizeChannelName(name string) (string, error) {
	normalized := strings.Join(strings.Fields(strings.ToLower(name)), "-")
	if len(normalized) < 3 || len(normalized) > 80 {
		return "", errValidation("channel name must be between 3 and 80 characters")
	}
	return normalized, nil
}

func (s *Service) ListChannels(ctx context.Context, session Session, workspaceID string) (map[string]any, error) {
	if _, err := s.member(ctx, workspaceID, session); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return map[string]any{"channels": []map[string]any{}}, nil
		}
		return nil, err
	}
	channels, err := s.store.ListChannels(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(channels))
	for _, channel := range channels {
		items = append(items, channelPayload(channel))
	}
	return map[string]any{"channels": items}, nil
}

func (s *Service) CreateChannel(ctx context.Context, session Session, workspaceID, name string) (map[string]any, error) {
	normalized, err := normalizeChannelName(name)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireAdmin(ctx, workspaceID, session, rbac.ActionManageChannels); err != nil {
		return nil, err
	}
	channel := store.Channel{
		ID:          util.NewID("ch"),
		WorkspaceID: workspaceID,
		Name:        normalized,
	}
	if err := s.store.InsertChannel(ctx, channel); err != nil {
		return nil, err
	}
	return map[string]any{"channelId": channel.ID}, nil
}

func (s *Service) GetChannel(ctx context.Context, session Session, channelID string) (map[string]any, error) {
	channel, err := s.store.GetChannel(ctx, channelID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return map[string]any{"channel": nil}, nil
		}
		return nil, err
	}
	if _, err := s.member(ctx, channel.WorkspaceID, session); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return map[string]any{"channel": nil}, nil
		}
		return nil, err
	}
	return map[string]any{"channel": channelPayload(channel)}, nil
}

func (s *Service) UpdateChannel(ctx context.Context, session Session, channelID, name string) (map[string]any, error) {
	normalized, err := normalizeChannelName(name)
	if err != nil {
		return nil, err
	}
	channel, err := s.store.GetChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireAdmin(ctx, channel.WorkspaceID, session, rbac.ActionManageChannels); err != nil {
		return nil, err
	}
	if err := s.store.UpdateChannelName(ctx, channelID, normalized); err != nil {
		return nil, err
	}
	return map[string]any{"channelId": channelID}, nil
}

func (s *Service) RemoveChannel(ctx context.Context, session Session, channelID string) (map[string]any, error) {
	channel, err := s.store.GetChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireAdmin(ctx, channel.WorkspaceID, session, rbac.ActionManageChannels); err != nil {
		return nil, err
	}
	if err := s.store.DeleteChannel(ctx, channelID); err != nil {
		return nil, err
	}
	return map[string]any{"channelId": channelID}, nil
}

func channelPayload(channel store.Channel) map[string]any {
	return map[string]any{
		"id":          channel.ID,
		"workspaceId": channel.WorkspaceID,
		"name":        channel.Name,
		"createdAt":   channel.CreatedAt.UnixMilli(),
	}
}

// --- members ---

func (s *Service) CurrentMember(ctx context.Context, session Session, workspaceID string) (map[string]any, error) {
	member, err := s.member(ctx, workspaceID, session)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return map[string]any{"member": nil}, nil
		}
		return nil, err
	}
	return map[string]any{"member": memberPayload(member, nil)}, nil
}

func (s *Service) ListMembers(ctx context.Context, session Session, workspaceID string) (map[string]any, error) {
	if _, err := s.member(ctx, workspaceID, session); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return map[string]any{"members": []map[string]any{}}, nil
		}
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(members))
	for _, member := range members {
		user, err := s.store.GetUserByID(ctx, member.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, err
		}
		items = append(items, memberPayload(member, &user))
	}
	return map[string]any{"members": items}, nil
}

func (s *Service) GetMemberByID(ctx context.Context, session Session, memberID string) (map[string]any, error) {
	target, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return map[string]any{"member": nil}, nil
		}
		return nil, err
	}
	if _, err := s.member(ctx, target.WorkspaceID, session); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return map[string]any{"member": nil}, nil
		}
		return nil, err
	}
	user, err := s.store.GetUserByID(ctx, target.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return map[string]any{"member": nil}, nil
		}
		return nil, err
	}
	return map[string]any{"member": memberPayload(target, &user)}, nil
}

func (s *Service) UpdateMemberRole(ctx context.Context, session Session, memberID, role string) (map[string]any, error) {
	if role != string(rbac.RoleAdmin) && role != string(rbac.RoleMember) {
		return nil, errValidation("role must be 'admin' or 'members'")
	}
	target, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireAdmin(ctx, target.WorkspaceID, session, rbac.ActionManageMembers); err != nil {
		return nil, err
	}
	if err := s.store.UpdateMemberRole(ctx, memberID, role); err != nil {
		return nil, err
	}
	return map[string]any{"memberId": memberID}, nil
}

// RemoveMember serves both "admin removes member" and "member leaves".
// Admins can never be removed, themselves included.
func (s *Service) RemoveMember(ctx context.Context, session Session, memberID string) (map[string]any, error) {
	target, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	caller, err := s.requireMember(ctx, target.WorkspaceID, session)
	if err != nil {
		return nil, err
	}
	if target.Role == string(rbac.RoleAdmin) {
		return nil, domainError(403, "FORBIDDEN", "Admin cannot be removed", nil)
	}
	if caller.ID != target.ID && !rbac.Can(rbac.Normalize(caller.Role), rbac.ActionManageMembers) {
		return nil, errForbidden()
	}
	if err := s.store.DeleteMember(ctx, memberID); err != nil {
		return nil, err
	}
	return map[string]any{"memberId": memberID}, nil
}

func memberPayload(member store.Member, user *store.User) map[string]any {
	payload := map[string]any{
		"id":          member.ID,
		"workspaceId": member.WorkspaceID,
		"userId":      member.UserID,
		"role":        member.Role,
	}
	if user != nil {
		payload["user"] = map[string]any{
			"id":    user.ID,
			"name":  user.Name,
			"image": user.Image,
			"email": user.Email,
		}
	}
	return payload
}

// --- conversations ---

// CreateOrGetConversation is idempotent per member pair: the stored pair
// order does not matter.
func (s *Service) CreateOrGetConversation(ctx context.Context, session Session, workspaceID, otherMemberID string) (map[string]any, error) {
	caller, err := s.requireMember(ctx, workspaceID, session)
	if err != nil {
		return nil, err
	}
	other, err := s.store.GetMember(ctx, otherMemberID)
	if err != nil {
		return nil, err
	}
	if other.WorkspaceID != workspaceID {
		return nil, sql.ErrNoRows
	}

	existing, err := s.store.FindConversation(ctx, workspaceID, caller.ID, other.ID)
	if err == nil {
		return map[string]any{"conversationId": existing.ID}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	conversation := store.Conversation{
		ID:          util.NewID("conv"),
		WorkspaceID: workspaceID,
		MemberOneID: caller.ID,
		MemberTwoID: other.ID,
	}
	if err := s.store.InsertConversation(ctx, conversation); err != nil {
		return nil, err
	}
	return map[string]any{"conversationId": conversation.ID}, nil
}

// --- messages ---

func (s *Service) CreateMessage(ctx context.Context, session Session, input CreateMessageInput) (map[string]any, error) {
	if err := richtext.Validate(input.Body); err != nil {
		return nil, errValidation("body must be a rich-text document")
	}

	member, err := s.requireMember(ctx, input.WorkspaceID, session)
	if err != nil {
		return nil, err
	}

	channelID := strings.TrimSpace(input.ChannelID)
	conversationID := strings.TrimSpace(input.ConversationID)
	parentMessageID := strings.TrimSpace(input.ParentMessageID)

	if channelID != "" {
		channel, err := s.store.GetChannel(ctx, channelID)
		if err != nil {
			return nil, err
		}
		if channel.WorkspaceID != input.WorkspaceID {
			return nil, sql.ErrNoRows
		}
	}

	// A thread reply outside a channel inherits the parent's conversation.
	if channelID == "" && conversationID == "" && parentMessageID != "" {
		parent, err := s.store.GetMessage(ctx, parentMessageID)
		if err != nil {
			return nil, err
		}
		conversationID = parent.ConversationID
	}

	if conversationID != "" {
		conversation, err := s.store.GetConversation(ctx, conversationID)
		if err != nil {
			return nil, err
		}
		if conversation.WorkspaceID != input.WorkspaceID {
			return nil, sql.ErrNoRows
		}
	}

	if channelID == "" && conversationID == "" {
		return nil, errValidation("message needs a channel or conversation")
	}

	message := store.Message{
		ID:              util.NewID("msg"),
		WorkspaceID:     input.WorkspaceID,
		MemberID:        member.ID,
		ChannelID:       channelID,
		ConversationID:  conversationID,
		ParentMessageID: parentMessageID,
		Body:            input.Body,
		ImageKey:        strings.TrimSpace(input.ImageKey),
	}
	bodyText := richtext.Extract(input.Body)
	inserted, err := s.store.InsertMessage(ctx, message, bodyText)
	if err != nil {
		return nil, err
	}

	if s.search != nil {
		s.search.IndexMessage(search.MessageRecord{
			ID:             inserted.ID,
			WorkspaceID:    inserted.WorkspaceID,
			ChannelID:      inserted.ChannelID,
			ConversationID: inserted.ConversationID,
			MemberID:       inserted.MemberID,
			Author:         session.UserName,
			Text:           bodyText,
			CreatedAt:      inserted.CreatedAt.UnixMilli(),
		})
	}
	return map[string]any{"messageId": inserted.ID}, nil
}

func (s *Service) ListMessages(ctx context.Context, session Session, input ListMessagesInput) (map[string]any, error) {
	channelID := strings.TrimSpace(input.ChannelID)
	conversationID := strings.TrimSpace(input.ConversationID)
	parentMessageID := strings.TrimSpace(input.ParentMessageID)

	emptyPage := map[string]any{"page": []map[string]any{}, "isDone": true, "continueCursor": int64(0)}

	// Resolve the workspace the scope lives in for the membership check.
	var workspaceID string
	switch {
	case parentMessageID != "":
		parent, err := s.store.GetMessage(ctx, parentMessageID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return emptyPage, nil
			}
			return nil, err
		}
		workspaceID = parent.WorkspaceID
	case channelID != "":
		channel, err := s.store.GetChannel(ctx, channelID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return emptyPage, nil
			}
			return nil, err
		}
		workspaceID = channel.WorkspaceID
	case conversationID != "":
		conversation, err := s.store.GetConversation(ctx, conversationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return emptyPage, nil
			}
			return nil, err
		}
		workspaceID = conversation.WorkspaceID
	default:
		return nil, errValidation("channelId, conversationId, or parentMessageId is required")
	}

	if _, err := s.member(ctx, workspaceID, session); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return emptyPage, nil
		}
		return nil, err
	}

	page, err := s.store.ListMessages(ctx, store.MessageQuery{
		ChannelID:       channelID,
		ConversationID:  conversationID,
		ParentMessageID: parentMessageID,
		Cursor:          input.Cursor,
		Limit:           input.Limit,
	})
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(page.Messages))
	for _, message := range page.Messages {
		payload, ok, err := s.enrichMessage(ctx, message, true)
		if err != nil {
			return nil, err
		}
		// Messages whose author member or user is gone are dropped.
		if !ok {
			continue
		}
		items = append(items, payload)
	}

	return map[string]any{
		"page":           items,
		"isDone":         page.IsDone,
		"continueCursor": page.ContinueCursor,
	}, nil
}

func (s *Service) GetMessageByID(ctx context.Context, session Session, messageID string) (map[string]any, error) {
	message, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return map[string]any{"message": nil}, nil
		}
		return nil, err
	}
	if _, err := s.member(ctx, message.WorkspaceID, session); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return map[string]any{"message": nil}, nil
		}
		return nil, err
	}
	payload, ok, err := s.enrichMessage(ctx, message, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return map[string]any{"message": nil}, nil
	}
	return map[string]any{"message": payload}, nil
}

func (s *Service) UpdateMessage(ctx context.Context, session Session, messageID, body string) (map[string]any, error) {
	if err := richtext.Validate(body); err != nil {
		return nil, errValidation("body must be a rich-text document")
	}
	message, err := s.authorizedMessage(ctx, session, messageID)
	if err != nil {
		return nil, err
	}

	bodyText := richtext.Extract(body)
	if err := s.store.UpdateMessageBody(ctx, messageID, body, bodyText); err != nil {
		return nil, err
	}

	if s.search != nil {
		s.search.IndexMessage(search.MessageRecord{
			ID:             message.ID,
			WorkspaceID:    message.WorkspaceID,
			ChannelID:      message.ChannelID,
			ConversationID: message.ConversationID,
			MemberID:       message.MemberID,
			Author:         session.UserName,
			Text:           bodyText,
			CreatedAt:      message.CreatedAt.UnixMilli(),
		})
	}
	return map[string]any{"messageId": messageID}, nil
}

func (s *Service) RemoveMessage(ctx context.Context, session Session, messageID string) (map[string]any, error) {
	message, err := s.authorizedMessage(ctx, session, messageID)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteMessage(ctx, messageID); err != nil {
		return nil, err
	}
	if s.search != nil {
		s.search.DeleteMessage(messageID)
	}
	// Best effort; an orphaned blob is harmless.
	if message.ImageKey != "" && s.images != nil {
		_ = s.images.Remove(ctx, message.ImageKey)
	}
	return map[string]any{"messageId": messageID}, nil
}

// authorizedMessage loads a message and verifies the caller authored it.
func (s *Service) authorizedMessage(ctx context.Context, session Session, messageID string) (store.Message, error) {
	message, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return store.Message{}, err
	}
	member, err := s.requireMember(ctx, message.WorkspaceID, session)
	if err != nil {
		return store.Message{}, err
	}
	if member.ID != message.MemberID {
		return store.Message{}, errForbidden()
	}
	return message, nil
}

// --- reactions ---

// ToggleReaction: same value removes, a different value patches the
// existing row, no existing reaction inserts. One reaction per member
// per message.
func (s *Service) ToggleReaction(ctx context.Context, session Session, messageID, value string) (map[string]any, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, errValidation("value is required")
	}
	message, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	member, err := s.requireMember(ctx, message.WorkspaceID, session)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetReactionByMessageMember(ctx, messageID, member.ID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		reaction := store.Reaction{
			ID:          util.NewID("rct"),
			WorkspaceID: message.WorkspaceID,
			MessageID:   messageID,
			MemberID:    member.ID,
			Value:       value,
		}
		if err := s.store.InsertReaction(ctx, reaction); err != nil {
			return nil, err
		}
		return map[string]any{"reactionId": reaction.ID}, nil
	case err != nil:
		return nil, err
	case existing.Value == value:
		if err := s.store.DeleteReaction(ctx, existing.ID); err != nil {
			return nil, err
		}
	default:
		if err := s.store.UpdateReactionValue(ctx, existing.ID, value); err != nil {
			return nil, err
		}
	}
	// The removed or patched row's ID either way.
	return map[string]any{"reactionId": existing.ID}, nil
}

// --- enrichment ---

// enrichMessage builds the wire shape for a message: author user and
// member, reactions grouped by value with raw member rows replaced by
// memberIds, optional thread summary, and a resolved image URL. Returns
// ok=false when the author's member or user row no longer exists.
func (s *Service) enrichMessage(ctx context.Context, message store.Message, includeThread bool) (map[string]any, bool, error) {
	member, err := s.store.GetMember(ctx, message.MemberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	user, err := s.store.GetUserByID(ctx, member.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	reactions, err := s.store.ListReactions(ctx, message.ID)
	if err != nil {
		return nil, false, err
	}

	payload := map[string]any{
		"id":          message.ID,
		"workspaceId": message.WorkspaceID,
		"memberId":    message.MemberID,
		"body":        message.Body,
		"createdAt":   message.CreatedAt.UnixMilli(),
		"user": map[string]any{
			"id":    user.ID,
			"name":  user.Name,
			"image": user.Image,
		},
		"member":    memberPayload(member, nil),
		"reactions": groupReactions(reactions),
	}
	if message.ChannelID != "" {
		payload["channelId"] = message.ChannelID
	}
	if message.ConversationID != "" {
		payload["conversationId"] = message.ConversationID
	}
	if message.ParentMessageID != "" {
		payload["parentMessageId"] = message.ParentMessageID
	}
	if message.UpdatedAt != nil {
		payload["updatedAt"] = message.UpdatedAt.UnixMilli()
	}

	if message.ImageKey != "" && s.images != nil {
		url, err := s.images.ResolveURL(ctx, message.ImageKey)
		if err != nil {
			return nil, false, err
		}
		payload["image"] = url
	}

	if includeThread {
		count, last, err := s.store.ThreadSummary(ctx, message.ID)
		if err != nil {
			return nil, false, err
		}
		payload["threadCount"] = count
		payload["threadName"] = ""
		payload["threadImage"] = ""
		payload["threadTimestamp"] = int64(0)
		if last != nil {
			if lastMember, err := s.store.GetMember(ctx, last.MemberID); err == nil {
				if lastUser, err := s.store.GetUserByID(ctx, lastMember.UserID); err == nil {
					payload["threadName"] = lastUser.Name
					payload["threadImage"] = lastUser.Image
				}
			}
			payload["threadTimestamp"] = last.CreatedAt.UnixMilli()
		}
	}

	return payload, true, nil
}

// groupReactions dedupes raw reaction rows by value, preserving first-seen
// order. Individual member rows collapse into memberIds.
func groupReactions(reactions []store.Reaction) []map[string]any {
	order := make([]string, 0)
	grouped := make(map[string][]string)
	for _, reaction := range reactions {
		if _, seen := grouped[reaction.Value]; !seen {
			order = append(order, reaction.Value)
		}
		grouped[reaction.Value] = append(grouped[reaction.Value], reaction.MemberID)
	}

	items := make([]map[string]any, 0, len(order))
	for _, value := range order {
		memberIDs := grouped[value]
		items = append(items, map[string]any{
			"value":     value,
			"count":     len(memberIDs),
			"memberIds": memberIDs,
		})
	}
	return items
}

// --- uploads ---

func (s *Service) GenerateUploadURL(ctx context.Context, session Session) (map[string]any, error) {
	if s.images == nil {
		return nil, domainError(503, "UPLOADS_UNAVAILABLE", "Upload storage not configured", nil)
	}
	key := util.NewID("img")
	url, err := s.images.PresignedUpload(ctx, key)
	if err != nil {
		return nil, err
	}
	return map[string]any{"uploadUrl": url, "imageKey": key}, nil
}

// --- search ---

func (s *Service) SearchMessages(ctx context.Context, session Session, text string, limit, offset int) (map[string]any, error) {
	if s.search == nil {
		return map[string]any{"results": []any{}, "total": 0, "query": text}, nil
	}
	workspaces, err := s.store.ListWorkspacesForUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	workspaceIDs := make([]string, 0, len(workspaces))
	for _, workspace := range workspaces {
		workspaceIDs = append(workspaceIDs, workspace.ID)
	}

	response := s.search.Search(search.Query{
		Text:         text,
		WorkspaceIDs: workspaceIDs,
		Limit:        limit,
		Offset:       offset,
	})
	return map[string]any{
		"results": response.Results,
		"total":   response.Total,
		"query":   response.Query,
	}, nil
}
