// Package models defines data models for the feed service.
package models

import "time"

// DefaultStatus is assigned to every new account.
const DefaultStatus = "I am new!"

// Account represents a registered user.
type Account struct {
	ID       string   `json:"_id" bson:"_id"`
	Email    string   `json:"email" bson:"email"`
	Password []byte   `json:"-" bson:"password"`
	Name     string   `json:"name" bson:"name"`
	Status   string   `json:"status" bson:"status"`
	Posts    []string `json:"posts" bson:"posts"`
}

type NewAccount struct {
	Email    string
	Password []byte
	Name     string
}

// Creator is the owner summary embedded in post responses.
type Creator struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Post represents a feed entry. CreatorID is persisted; Creator is populated
// for responses only.
type Post struct {
	ID        string    `json:"_id" bson:"_id"`
	Title     string    `json:"title" bson:"title"`
	Content   string    `json:"content" bson:"content"`
	ImageURL  string    `json:"imageUrl" bson:"imageUrl"`
	CreatorID string    `json:"-" bson:"creator"`
	Creator   Creator   `json:"creator" bson:"-"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

type NewPost struct {
	Title     string
	Content   string
	ImageURL  string
	CreatorID string
}

// Action names the kind of committed post mutation.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Event is broadcast to live clients after a post mutation commits.
type Event struct {
	Action Action `json:"action"`
	Post   Post   `json:"post"`
}
