package store

import (
	"github.com/chathub/internal/chatkey"
	"github.com/chathub/internal/model"
)

// Document is the full persisted state: the users collection, per-channel
// message lists keyed by storage key, and the groups collection.
type Document struct {
	Users    []model.User               `json:"users"`
	Messages map[string][]model.Message `json:"messages"`
	Groups   []model.Group              `json:"groups"`
}

// NewDocument returns an empty document with the general channel present.
func NewDocument() *Document {
	return &Document{
		Users:    []model.User{},
		Messages: map[string][]model.Message{chatkey.General: {}},
		Groups:   []model.Group{},
	}
}

// normalize materializes collections and per-user fields that older
// documents may lack, so the rest of the code never sees nil where a
// collection belongs. Reports whether anything changed.
func (d *Document) normalize() bool {
	changed := false
	if d.Users == nil {
		d.Users = []model.User{}
		changed = true
	}
	if d.Messages == nil {
		d.Messages = map[string][]model.Message{}
		changed = true
	}
	if _, ok := d.Messages[chatkey.General]; !ok {
		d.Messages[chatkey.General] = []model.Message{}
		changed = true
	}
	if d.Groups == nil {
		d.Groups = []model.Group{}
		changed = true
	}
	for i := range d.Users {
		if d.Users[i].Friends == nil {
			d.Users[i].Friends = []string{}
			changed = true
		}
		if d.Users[i].FriendRequests == nil {
			d.Users[i].FriendRequests = []model.FriendRequest{}
			changed = true
		}
	}
	return changed
}

func (d *Document) userIndex(username string) int {
	for i := range d.Users {
		if d.Users[i].Username == username {
			return i
		}
	}
	return -1
}

func (d *Document) groupIndex(id string) int {
	for i := range d.Groups {
		if d.Groups[i].ID == id {
			return i
		}
	}
	return -1
}
