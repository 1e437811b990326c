package chatkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorageKeySymmetry(t *testing.T) {
	pairs := [][2]string{
		{"alice", "bob"},
		{"bob", "alice"},
		{"zoe", "adam"},
		{"anna-maria", "bob"},
		{"Alice", "alice"}, // case-sensitive usernames are distinct
	}
	for _, p := range pairs {
		assert.Equal(t, StorageKey(p[0], p[1]), StorageKey(p[1], p[0]),
			"key must not depend on who resolves it: %v", p)
	}
}

func TestStorageKey(t *testing.T) {
	tests := []struct {
		name   string
		viewer string
		target string
		want   string
	}{
		{"general passthrough", "alice", "general", "general"},
		{"group passthrough", "alice", "group_1700000000000", "group_1700000000000"},
		{"direct sorted", "bob", "alice", "alice-bob"},
		{"direct already sorted", "alice", "bob", "alice-bob"},
		{"uppercase sorts before lowercase", "alice", "Bob", "Bob-alice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StorageKey(tt.viewer, tt.target))
		})
	}
}

func TestViewerChatID(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		viewer string
		want   string
	}{
		{"general", "general", "alice", "general"},
		{"group", "group_42", "bob", "group_42"},
		{"direct first participant", "alice-bob", "alice", "bob"},
		{"direct second participant", "alice-bob", "bob", "alice"},
		{"hyphenated username prefix", "anna-maria-bob", "anna-maria", "bob"},
		{"hyphenated username suffix", "anna-maria-bob", "bob", "anna-maria"},
		{"non-participant falls through", "alice-bob", "carol", "alice-bob"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ViewerChatID(tt.key, tt.viewer))
		})
	}
}

// After a direct message from A to B, A addresses the channel as B and B
// addresses it as A; both resolve to the same storage key.
func TestDirectChannelInversion(t *testing.T) {
	key := StorageKey("alice", "bob")
	assert.Equal(t, "bob", ViewerChatID(key, "alice"))
	assert.Equal(t, "alice", ViewerChatID(key, "bob"))
	assert.Equal(t, key, StorageKey("bob", ViewerChatID(key, "bob")))
	assert.Equal(t, key, StorageKey("alice", ViewerChatID(key, "alice")))
}

func TestIsGroup(t *testing.T) {
	assert.True(t, IsGroup("group_123"))
	assert.False(t, IsGroup("general"))
	assert.False(t, IsGroup("alice"))
}
