// Package chatkey maps between the three ways a channel is identified: the
// id a client uses locally, the canonical key history is stored under, and
// the id each recipient of a broadcast perceives. Sender and recipient
// compute the storage key independently and must agree, so everything here
// is pure and deterministic.
package chatkey

import "strings"

const (
	// General is the singleton broadcast channel, open to all users.
	General = "general"
	// GroupPrefix marks group channel ids (group_<timestamp>).
	GroupPrefix = "group_"
)

// IsGroup reports whether id names a group channel.
func IsGroup(id string) bool {
	return strings.HasPrefix(id, GroupPrefix)
}

// DirectKey returns the storage key for the direct channel between two
// usernames: the pair sorted lexicographically, joined with "-". Symmetric
// in its arguments.
func DirectKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "-" + b
}

// StorageKey resolves the channel id as named by viewer into the canonical
// storage key. "general" and group ids map to themselves; anything else is
// treated as a peer username of a direct channel. Group membership is not
// checked here; callers verify it against the store before acting.
func StorageKey(viewer, target string) string {
	if target == General || IsGroup(target) {
		return target
	}
	return DirectKey(viewer, target)
}

// ViewerChatID is the inverse of StorageKey for a given recipient: the id
// under which that recipient addresses the channel locally. For general and
// group keys this is the key itself; for a direct key it is the other
// participant's username.
func ViewerChatID(storageKey, viewer string) string {
	if storageKey == General || IsGroup(storageKey) {
		return storageKey
	}
	if rest, ok := strings.CutPrefix(storageKey, viewer+"-"); ok {
		return rest
	}
	if rest, ok := strings.CutSuffix(storageKey, "-"+viewer); ok {
		return rest
	}
	// Viewer is not a participant; return the key unchanged so the caller
	// can log the mismatch instead of mislabeling the channel.
	return storageKey
}
