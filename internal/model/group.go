package model

import "time"

// Group is a named multi-user channel. Members always includes the creator
// and is immutable after creation.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Members   []string  `json:"members"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	Avatar    string    `json:"avatar"`
}

// HasMember reports whether username belongs to the group.
func (g *Group) HasMember(username string) bool {
	for _, m := range g.Members {
		if m == username {
			return true
		}
	}
	return false
}
