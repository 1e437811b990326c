package model

import "time"

// FriendRequest is a pending inbound invitation stored on the recipient.
type FriendRequest struct {
	From      string    `json:"from"`
	Timestamp time.Time `json:"timestamp"`
}

// User is the persisted user record. Username is unique and serves as the
// primary key across the system; Password is opaque credential material and
// must never leave the server.
type User struct {
	ID             string          `json:"id"`
	Username       string          `json:"username"`
	Email          string          `json:"email"`
	Password       string          `json:"password"`
	Avatar         string          `json:"avatar"`
	Friends        []string        `json:"friends"`
	FriendRequests []FriendRequest `json:"friendRequests"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// UserPublic is the outbound representation with credential material removed.
type UserPublic struct {
	ID             string          `json:"id"`
	Username       string          `json:"username"`
	Email          string          `json:"email"`
	Avatar         string          `json:"avatar"`
	Friends        []string        `json:"friends"`
	FriendRequests []FriendRequest `json:"friendRequests"`
	CreatedAt      time.Time       `json:"createdAt"`
}

func (u *User) ToPublic() UserPublic {
	friends := u.Friends
	if friends == nil {
		friends = []string{}
	}
	requests := u.FriendRequests
	if requests == nil {
		requests = []FriendRequest{}
	}
	return UserPublic{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		Avatar:         u.Avatar,
		Friends:        friends,
		FriendRequests: requests,
		CreatedAt:      u.CreatedAt,
	}
}

// HasFriend reports whether username is in the friend set.
func (u *User) HasFriend(username string) bool {
	for _, f := range u.Friends {
		if f == username {
			return true
		}
	}
	return false
}

// HasRequestFrom reports whether a pending request from username exists.
func (u *User) HasRequestFrom(username string) bool {
	for _, r := range u.FriendRequests {
		if r.From == username {
			return true
		}
	}
	return false
}
