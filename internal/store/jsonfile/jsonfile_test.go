package jsonfile_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chathub/internal/model"
	"github.com/chathub/internal/store"
	"github.com/chathub/internal/store/jsonfile"
)

func TestLoadMissingFile(t *testing.T) {
	b := jsonfile.New(filepath.Join(t.TempDir(), "db.json"))
	doc, err := b.Load(context.Background())
	require.NoError(t, err)
	require.Nil(t, doc)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	b := jsonfile.New(path)
	ctx := context.Background()

	doc := store.NewDocument()
	doc.Users = append(doc.Users, model.User{
		ID: "u1", Username: "alice", Password: "secret",
		Friends: []string{"bob"}, FriendRequests: []model.FriendRequest{},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	})
	doc.Messages["alice-bob"] = []model.Message{{
		ID: "m1", Content: "hi", Type: model.MessageTypeText,
		Sender:    model.Sender{ID: "u1", Username: "alice"},
		Timestamp: time.Now().UTC().Truncate(time.Second),
		Reactions: map[string][]string{"👍": {"bob"}},
		ReadBy:    []string{"conn1"},
	}}
	require.NoError(t, b.Save(ctx, doc))

	got, err := b.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, doc, got)
}

func TestOpenInitializesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	_, err := store.Open(context.Background(), jsonfile.New(path))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Contains(t, raw, "users")
	require.Contains(t, raw, "messages")
	require.Contains(t, raw, "groups")
}

// A legacy document missing friendRequests and groups is migrated on open.
func TestOpenNormalizesLegacyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	legacy := `{"users":[{"id":"u1","username":"alice","password":"x","friends":[]}],"messages":{"general":[]}}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	s, err := store.Open(context.Background(), jsonfile.New(path))
	require.NoError(t, err)
	u, err := s.FindUser(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, u.FriendRequests)
	groups, err := s.GroupsForUser(context.Background(), "alice")
	require.NoError(t, err)
	require.Empty(t, groups)
}
