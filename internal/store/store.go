// Package store implements the persistent document store: users, per-channel
// message history, and groups. All mutation logic lives here behind a single
// mutex; pluggable backends (jsonfile, memory, pgdoc) only implement the
// load/save contract, so every mutation is a full load, mutate, persist
// round trip and concurrent handlers cannot lose updates.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chathub/internal/chatkey"
	"github.com/chathub/internal/logger"
	"github.com/chathub/internal/model"
	"github.com/chathub/internal/observability"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrUsernameTaken    = errors.New("username already taken")
	ErrEmailTaken       = errors.New("email already registered")
	ErrAlreadyFriends   = errors.New("already friends")
	ErrAlreadyRequested = errors.New("friend request already sent")
	ErrRequestNotFound  = errors.New("friend request not found")
)

// historyLimit caps each channel's stored message list; the oldest entries
// beyond it are dropped, not archived.
const historyLimit = 1000

// Backend persists the document as a whole. Load returns (nil, nil) when no
// document exists yet.
type Backend interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
	Close() error
}

type Store struct {
	mu      sync.Mutex
	backend Backend
}

// Open wraps backend and makes sure an initial, normalized document exists.
func Open(ctx context.Context, backend Backend) (*Store, error) {
	s := &Store{backend: backend}
	doc, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.Open load: %w", err)
	}
	if doc == nil {
		if err := backend.Save(ctx, NewDocument()); err != nil {
			return nil, fmt.Errorf("store.Open init: %w", err)
		}
		return s, nil
	}
	if doc.normalize() {
		if err := backend.Save(ctx, doc); err != nil {
			return nil, fmt.Errorf("store.Open migrate: %w", err)
		}
	}
	return s, nil
}

func (s *Store) Close() error { return s.backend.Close() }

// load fetches and normalizes the document. Callers must hold s.mu.
func (s *Store) load(ctx context.Context) (*Document, error) {
	doc, err := s.backend.Load(ctx)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		doc = NewDocument()
	} else {
		doc.normalize()
	}
	return doc, nil
}

// mutate runs fn against the current document and persists the result when
// fn succeeds. Callers must hold s.mu.
func (s *Store) mutate(ctx context.Context, op string, fn func(doc *Document) error) error {
	doc, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("store.%s load: %w", op, err)
	}
	if err := fn(doc); err != nil {
		return err
	}
	if err := s.backend.Save(ctx, doc); err != nil {
		return fmt.Errorf("store.%s save: %w", op, err)
	}
	observability.IncStorePersist()
	return nil
}

// FindUser returns the user with the given username.
func (s *Store) FindUser(ctx context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.FindUser: %w", err)
	}
	i := doc.userIndex(username)
	if i < 0 {
		return nil, ErrNotFound
	}
	u := doc.Users[i]
	return &u, nil
}

// FindUserByEmail returns the user registered under email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.FindUserByEmail: %w", err)
	}
	for i := range doc.Users {
		if doc.Users[i].Email == email {
			u := doc.Users[i]
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

// AllUsers returns every user record.
func (s *Store) AllUsers(ctx context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.AllUsers: %w", err)
	}
	return doc.Users, nil
}

// NewUser carries the fields accepted at registration.
type NewUser struct {
	Username string
	Email    string
	Password string
	Avatar   string
}

// AddUser registers a user. Fails with ErrUsernameTaken or ErrEmailTaken on
// collision; the email check only applies when an email was given.
func (s *Store) AddUser(ctx context.Context, nu NewUser) (*model.User, error) {
	defer logger.DeferLogDuration("store.AddUser", time.Now())()
	s.mu.Lock()
	defer s.mu.Unlock()
	var created model.User
	err := s.mutate(ctx, "AddUser", func(doc *Document) error {
		if doc.userIndex(nu.Username) >= 0 {
			return ErrUsernameTaken
		}
		if nu.Email != "" {
			for i := range doc.Users {
				if doc.Users[i].Email == nu.Email {
					return ErrEmailTaken
				}
			}
		}
		created = model.User{
			ID:             uuid.New().String(),
			Username:       nu.Username,
			Email:          nu.Email,
			Password:       nu.Password,
			Avatar:         nu.Avatar,
			Friends:        []string{},
			FriendRequests: []model.FriendRequest{},
			CreatedAt:      time.Now().UTC(),
		}
		doc.Users = append(doc.Users, created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UserUpdate carries the optional profile fields; nil means unchanged.
type UserUpdate struct {
	Username *string
	Password *string
	Avatar   *string
}

// UpdateUser applies upd to the user named username. Renaming to a name held
// by a different user fails with ErrUsernameTaken.
func (s *Store) UpdateUser(ctx context.Context, username string, upd UserUpdate) (*model.User, error) {
	defer logger.DeferLogDuration("store.UpdateUser", time.Now())()
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated model.User
	err := s.mutate(ctx, "UpdateUser", func(doc *Document) error {
		i := doc.userIndex(username)
		if i < 0 {
			return ErrNotFound
		}
		if upd.Username != nil && *upd.Username != username {
			if doc.userIndex(*upd.Username) >= 0 {
				return ErrUsernameTaken
			}
			doc.Users[i].Username = *upd.Username
		}
		if upd.Password != nil {
			doc.Users[i].Password = *upd.Password
		}
		if upd.Avatar != nil {
			doc.Users[i].Avatar = *upd.Avatar
		}
		updated = doc.Users[i]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// SendFriendRequest records a pending request from -> to. At most one pending
// request per (from, to) pair; requests to an existing friend are rejected.
func (s *Store) SendFriendRequest(ctx context.Context, from, to string) error {
	defer logger.DeferLogDuration("store.SendFriendRequest", time.Now())()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(ctx, "SendFriendRequest", func(doc *Document) error {
		fi := doc.userIndex(from)
		ti := doc.userIndex(to)
		if fi < 0 || ti < 0 {
			return ErrNotFound
		}
		target := &doc.Users[ti]
		if target.HasFriend(from) {
			return ErrAlreadyFriends
		}
		if target.HasRequestFrom(from) {
			return ErrAlreadyRequested
		}
		target.FriendRequests = append(target.FriendRequests, model.FriendRequest{
			From:      from,
			Timestamp: time.Now().UTC(),
		})
		return nil
	})
}

// ResolveFriendRequest removes the pending request from -> username. When
// accept is true both friend sets gain the symmetric entry.
func (s *Store) ResolveFriendRequest(ctx context.Context, username, from string, accept bool) error {
	defer logger.DeferLogDuration("store.ResolveFriendRequest", time.Now())()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(ctx, "ResolveFriendRequest", func(doc *Document) error {
		ui := doc.userIndex(username)
		if ui < 0 {
			return ErrNotFound
		}
		user := &doc.Users[ui]
		ri := -1
		for i := range user.FriendRequests {
			if user.FriendRequests[i].From == from {
				ri = i
				break
			}
		}
		if ri < 0 {
			return ErrRequestNotFound
		}
		user.FriendRequests = append(user.FriendRequests[:ri], user.FriendRequests[ri+1:]...)
		if !accept {
			return nil
		}
		fi := doc.userIndex(from)
		if fi < 0 {
			// Requester vanished; the request is still consumed.
			return nil
		}
		friend := &doc.Users[fi]
		if !user.HasFriend(from) {
			user.Friends = append(user.Friends, from)
		}
		if !friend.HasFriend(username) {
			friend.Friends = append(friend.Friends, username)
		}
		return nil
	})
}

// AppendMessage appends msg to the channel stored under key, creating the
// list if needed and keeping only the most recent historyLimit entries.
func (s *Store) AppendMessage(ctx context.Context, key string, msg model.Message) error {
	defer logger.DeferLogDuration("store.AppendMessage", time.Now())()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(ctx, "AppendMessage", func(doc *Document) error {
		list := append(doc.Messages[key], msg)
		if len(list) > historyLimit {
			list = list[len(list)-historyLimit:]
		}
		doc.Messages[key] = list
		return nil
	})
}

// Messages returns the channel history under key, oldest first. An unknown
// key yields an empty list.
func (s *Store) Messages(ctx context.Context, key string) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.Messages: %w", err)
	}
	msgs := doc.Messages[key]
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, nil
}

// ToggleReaction toggles username's reaction with emoji on the message and
// returns the updated message for broadcast. Reacting twice with the same
// emoji removes the reaction; an emptied emoji bucket is deleted.
func (s *Store) ToggleReaction(ctx context.Context, key, messageID, emoji, username string) (*model.Message, error) {
	defer logger.DeferLogDuration("store.ToggleReaction", time.Now())()
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated model.Message
	err := s.mutate(ctx, "ToggleReaction", func(doc *Document) error {
		msgs, ok := doc.Messages[key]
		if !ok {
			return ErrNotFound
		}
		mi := -1
		for i := range msgs {
			if msgs[i].ID == messageID {
				mi = i
				break
			}
		}
		if mi < 0 {
			return ErrNotFound
		}
		msg := &msgs[mi]
		if msg.Reactions == nil {
			msg.Reactions = map[string][]string{}
		}
		users := msg.Reactions[emoji]
		removed := false
		for i, u := range users {
			if u == username {
				users = append(users[:i], users[i+1:]...)
				removed = true
				break
			}
		}
		if removed {
			if len(users) == 0 {
				delete(msg.Reactions, emoji)
			} else {
				msg.Reactions[emoji] = users
			}
		} else {
			msg.Reactions[emoji] = append(users, username)
		}
		updated = *msg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// CreateGroup creates a group whose member set is creator plus members,
// deduplicated, and initializes its empty message list.
func (s *Store) CreateGroup(ctx context.Context, name, creator string, members []string) (*model.Group, error) {
	defer logger.DeferLogDuration("store.CreateGroup", time.Now())()
	s.mu.Lock()
	defer s.mu.Unlock()
	var created model.Group
	err := s.mutate(ctx, "CreateGroup", func(doc *Document) error {
		seen := map[string]struct{}{creator: {}}
		memberSet := []string{creator}
		for _, m := range members {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			memberSet = append(memberSet, m)
		}
		created = model.Group{
			ID:        fmt.Sprintf("%s%d", chatkey.GroupPrefix, time.Now().UnixMilli()),
			Name:      name,
			Members:   memberSet,
			CreatedBy: creator,
			CreatedAt: time.Now().UTC(),
		}
		doc.Groups = append(doc.Groups, created)
		if _, ok := doc.Messages[created.ID]; !ok {
			doc.Messages[created.ID] = []model.Message{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Group returns the group with the given id.
func (s *Store) Group(ctx context.Context, id string) (*model.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.Group: %w", err)
	}
	i := doc.groupIndex(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	g := doc.Groups[i]
	return &g, nil
}

// GroupsForUser returns every group username belongs to.
func (s *Store) GroupsForUser(ctx context.Context, username string) ([]model.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.GroupsForUser: %w", err)
	}
	groups := []model.Group{}
	for i := range doc.Groups {
		if doc.Groups[i].HasMember(username) {
			groups = append(groups, doc.Groups[i])
		}
	}
	return groups, nil
}

// ExpireOldMessages drops messages older than maxAge from every channel and
// returns how many were removed. A maintenance sweep, not a request path.
func (s *Store) ExpireOldMessages(ctx context.Context, maxAge time.Duration) (int, error) {
	defer logger.DeferLogDuration("store.ExpireOldMessages", time.Now())()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	err := s.mutate(ctx, "ExpireOldMessages", func(doc *Document) error {
		cutoff := time.Now().Add(-maxAge)
		for key, msgs := range doc.Messages {
			kept := msgs[:0]
			for _, m := range msgs {
				if m.Timestamp.After(cutoff) {
					kept = append(kept, m)
				}
			}
			removed += len(msgs) - len(kept)
			doc.Messages[key] = kept
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
