package services

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/snapgram/backend/internal/models"
)

// fakeUserRepo is an in-memory UserRepository that mirrors the
// single-document update semantics of the Mongo implementation. The
// err* fields inject failures for specific mutators.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User

	errGetByID         error
	errAddFollowing    error
	errRemoveFollowing error
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[primitive.ObjectID]*models.User)}
	for _, u := range users {
		if u.Followers == nil {
			u.Followers = []primitive.ObjectID{}
		}
		if u.Following == nil {
			u.Following = []primitive.ObjectID{}
		}
		if u.FollowRequests == nil {
			u.FollowRequests = []models.FollowRequest{}
		}
		r.users[u.ID] = u
	}
	return r
}

func copyUser(u *models.User) *models.User {
	cp := *u
	cp.Followers = append([]primitive.ObjectID{}, u.Followers...)
	cp.Following = append([]primitive.ObjectID{}, u.Following...)
	cp.FollowRequests = append([]models.FollowRequest{}, u.FollowRequests...)
	cp.RefreshTokens = append([]models.RefreshToken{}, u.RefreshTokens...)
	return &cp
}

func (r *fakeUserRepo) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	user.Followers = []primitive.ObjectID{}
	user.Following = []primitive.ObjectID{}
	user.FollowRequests = []models.FollowRequest{}
	r.users[user.ID] = copyUser(user)
	return nil
}

func (r *fakeUserRepo) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	if r.errGetByID != nil {
		return nil, r.errGetByID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (r *fakeUserRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (r *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (r *fakeUserRepo) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, *copyUser(u))
		}
	}
	return out, nil
}

func (r *fakeUserRepo) SearchUsers(ctx context.Context, prefix string, limit int64) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, u := range r.users {
		if int64(len(out)) >= limit {
			break
		}
		if len(u.Username) >= len(prefix) && u.Username[:len(prefix)] == prefix {
			out = append(out, *copyUser(u))
		}
	}
	return out, nil
}

func (r *fakeUserRepo) UpdateProfile(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return models.ErrUserNotFound
	}
	if v, ok := set["username"].(string); ok {
		u.Username = v
	}
	if v, ok := set["is_private"].(bool); ok {
		u.IsPrivate = v
	}
	return nil
}

func (r *fakeUserRepo) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return models.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) PullUserFromAllRelations(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		u.Followers = removeID(u.Followers, id)
		u.Following = removeID(u.Following, id)
		reqs := u.FollowRequests[:0]
		for _, fr := range u.FollowRequests {
			if fr.User != id {
				reqs = append(reqs, fr)
			}
		}
		u.FollowRequests = reqs
	}
	return nil
}

func (r *fakeUserRepo) PushFollowRequest(ctx context.Context, ownerID, requesterID primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.users[ownerID]
	if !ok {
		return false, nil
	}
	for _, fr := range owner.FollowRequests {
		if fr.User == requesterID {
			return false, nil
		}
	}
	owner.FollowRequests = append(owner.FollowRequests, models.FollowRequest{User: requesterID, CreatedAt: time.Now()})
	return true, nil
}

func (r *fakeUserRepo) PullFollowRequest(ctx context.Context, ownerID, requesterID primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.users[ownerID]
	if !ok {
		return false, nil
	}
	for i, fr := range owner.FollowRequests {
		if fr.User == requesterID {
			owner.FollowRequests = append(owner.FollowRequests[:i], owner.FollowRequests[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) AddFollower(ctx context.Context, userID, followerID primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return false, nil
	}
	if containsID(u.Followers, followerID) {
		return false, nil
	}
	u.Followers = append(u.Followers, followerID)
	return true, nil
}

func (r *fakeUserRepo) RemoveFollower(ctx context.Context, userID, followerID primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return false, nil
	}
	if !containsID(u.Followers, followerID) {
		return false, nil
	}
	u.Followers = removeID(u.Followers, followerID)
	return true, nil
}

func (r *fakeUserRepo) AddFollowing(ctx context.Context, userID, followeeID primitive.ObjectID) (bool, error) {
	if r.errAddFollowing != nil {
		return false, r.errAddFollowing
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return false, nil
	}
	if containsID(u.Following, followeeID) {
		return false, nil
	}
	u.Following = append(u.Following, followeeID)
	return true, nil
}

func (r *fakeUserRepo) RemoveFollowing(ctx context.Context, userID, followeeID primitive.ObjectID) (bool, error) {
	if r.errRemoveFollowing != nil {
		return false, r.errRemoveFollowing
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return false, nil
	}
	if !containsID(u.Following, followeeID) {
		return false, nil
	}
	u.Following = removeID(u.Following, followeeID)
	return true, nil
}

func (r *fakeUserRepo) PushRefreshToken(ctx context.Context, userID primitive.ObjectID, token models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return models.ErrUserNotFound
	}
	u.RefreshTokens = append(u.RefreshTokens, token)
	return nil
}

func (r *fakeUserRepo) RemoveRefreshToken(ctx context.Context, userID primitive.ObjectID, tokenHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return false, nil
	}
	for i, t := range u.RefreshTokens {
		if t.TokenHash == tokenHash {
			u.RefreshTokens = append(u.RefreshTokens[:i], u.RefreshTokens[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

// fakeNotificationRepo records notifications in memory.
type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications []*models.Notification
	errCreate     error
}

func (r *fakeNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	if r.errCreate != nil {
		return r.errCreate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = primitive.NewObjectID()
	n.CreatedAt = time.Now()
	r.notifications = append(r.notifications, n)
	return nil
}

func (r *fakeNotificationRepo) ListByRecipient(ctx context.Context, userID primitive.ObjectID, page, limit int64, unreadOnly bool) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, n := range r.notifications {
		if n.User == userID && (!unreadOnly || !n.Read) {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, n := range r.notifications {
		if n.User == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notifications {
		if n.User == userID {
			n.Read = true
		}
	}
	return nil
}

func (r *fakeNotificationRepo) DeleteOwned(ctx context.Context, id, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.notifications {
		if n.ID == id && n.User == userID {
			r.notifications = append(r.notifications[:i], r.notifications[i+1:]...)
			return nil
		}
	}
	return models.ErrNotificationNotFound
}

func (r *fakeNotificationRepo) DeleteFollowRequest(ctx context.Context, ownerID, actorID primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.notifications {
		if n.User == ownerID && n.Actor == actorID && n.Kind == models.NotificationFollowRequest {
			r.notifications = append(r.notifications[:i], r.notifications[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeNotificationRepo) DeleteAllForUser(ctx context.Context, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.notifications[:0]
	for _, n := range r.notifications {
		if n.User != userID && n.Actor != userID {
			kept = append(kept, n)
		}
	}
	r.notifications = kept
	return nil
}

// byKind returns the recorded notifications of one kind for a recipient.
func (r *fakeNotificationRepo) byKind(userID primitive.ObjectID, kind models.NotificationKind) []*models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Notification
	for _, n := range r.notifications {
		if n.User == userID && n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// fakeStoryRepo serves canned stories, newest first.
type fakeStoryRepo struct {
	stories   []models.Story
	deleted   []primitive.ObjectID
	errActive error
}

func (r *fakeStoryRepo) CreateStory(ctx context.Context, story *models.Story, ttl time.Duration) error {
	story.ID = primitive.NewObjectID()
	story.CreatedAt = time.Now()
	story.ExpiresAt = story.CreatedAt.Add(ttl)
	r.stories = append(r.stories, *story)
	return nil
}

func (r *fakeStoryRepo) GetStoryByID(ctx context.Context, id primitive.ObjectID) (*models.Story, error) {
	for _, st := range r.stories {
		if st.ID == id {
			cp := st
			return &cp, nil
		}
	}
	return nil, models.ErrStoryNotFound
}

func (r *fakeStoryRepo) GetActiveByPosters(ctx context.Context, posterIDs []primitive.ObjectID) ([]models.Story, error) {
	if r.errActive != nil {
		return nil, r.errActive
	}
	var out []models.Story
	for _, st := range r.stories {
		if containsID(posterIDs, st.User) {
			out = append(out, st)
		}
	}
	return out, nil
}

func (r *fakeStoryRepo) DeleteStory(ctx context.Context, id, ownerID primitive.ObjectID) error {
	for i, st := range r.stories {
		if st.ID == id && st.User == ownerID {
			r.stories = append(r.stories[:i], r.stories[i+1:]...)
			r.deleted = append(r.deleted, id)
			return nil
		}
	}
	return models.ErrStoryNotFound
}

func (r *fakeStoryRepo) DeleteAllByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]primitive.ObjectID, error) {
	var ids []primitive.ObjectID
	kept := r.stories[:0]
	for _, st := range r.stories {
		if st.User == ownerID {
			ids = append(ids, st.ID)
		} else {
			kept = append(kept, st)
		}
	}
	r.stories = kept
	return ids, nil
}

// fakeInteractionRepo serves canned aggregation rows.
type fakeInteractionRepo struct {
	created  []models.Interaction
	stats    []models.InteractionStat
	viewed   map[primitive.ObjectID]bool
	errStats error
}

func (r *fakeInteractionRepo) Create(ctx context.Context, in *models.Interaction) error {
	in.ID = primitive.NewObjectID()
	in.CreatedAt = time.Now()
	r.created = append(r.created, *in)
	return nil
}

func (r *fakeInteractionRepo) StatsByViewer(ctx context.Context, viewerID primitive.ObjectID, posterIDs []primitive.ObjectID) ([]models.InteractionStat, error) {
	if r.errStats != nil {
		return nil, r.errStats
	}
	return r.stats, nil
}

func (r *fakeInteractionRepo) ViewedStoryIDs(ctx context.Context, viewerID primitive.ObjectID, storyIDs []primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	if r.viewed == nil {
		return map[primitive.ObjectID]bool{}, nil
	}
	return r.viewed, nil
}

func (r *fakeInteractionRepo) DeleteByStoryIDs(ctx context.Context, storyIDs []primitive.ObjectID) error {
	return nil
}

func (r *fakeInteractionRepo) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	return nil
}

// fakeMessageRepo keeps conversations and messages in memory.
type fakeMessageRepo struct {
	mu            sync.Mutex
	conversations []*models.Conversation
	messages      []*models.Message
}

func (r *fakeMessageRepo) CreateConversation(ctx context.Context, c *models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = primitive.NewObjectID()
	c.CreatedAt = time.Now()
	c.LastMessageAt = c.CreatedAt
	r.conversations = append(r.conversations, c)
	return nil
}

func (r *fakeMessageRepo) GetConversationByID(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.conversations {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, models.ErrConversationNotFound
}

func (r *fakeMessageRepo) FindConversationByParticipants(ctx context.Context, participants []primitive.ObjectID) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.conversations {
		if len(c.Participants) != len(participants) {
			continue
		}
		all := true
		for _, p := range participants {
			if !c.HasParticipant(p) {
				all = false
				break
			}
		}
		if all {
			cp := *c
			return &cp, nil
		}
	}
	return nil, models.ErrConversationNotFound
}

func (r *fakeMessageRepo) ListConversations(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Conversation
	for _, c := range r.conversations {
		if c.HasParticipant(userID) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) TouchConversation(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.conversations {
		if c.ID == id {
			c.LastMessageAt = at
		}
	}
	return nil
}

func (r *fakeMessageRepo) CreateMessage(ctx context.Context, m *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID = primitive.NewObjectID()
	m.CreatedAt = time.Now()
	r.messages = append(r.messages, m)
	return nil
}

func (r *fakeMessageRepo) ListMessages(ctx context.Context, conversationID primitive.ObjectID, page, limit int64) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Message
	for _, m := range r.messages {
		if m.Conversation == conversationID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) MarkSeen(ctx context.Context, conversationID, readerID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, m := range r.messages {
		if m.Conversation == conversationID && m.Sender != readerID && !m.Seen {
			m.Seen = true
			count++
		}
	}
	return count, nil
}
