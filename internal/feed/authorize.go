package feed

import (
	"github.com/Royleong31/Blog-APIs/internal/sdk/jwt"
	"github.com/Royleong31/Blog-APIs/internal/sdk/models"
)

// Action is a mutation on an existing post.
type Action int

const (
	ActionUpdate Action = iota
	ActionDelete
)

func (a Action) String() string {
	if a == ActionDelete {
		return "delete"
	}
	return "update"
}

// Authorize allows a mutation only when actor owns the stored post. post
// must come from the store, never from the request.
func Authorize(actor jwt.Identity, post models.Post, _ Action) error {
	if actor.Anonymous() || post.CreatorID == "" || post.CreatorID != actor.AccountID {
		return errForbidden
	}
	return nil
}
