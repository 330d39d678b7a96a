package graph

import (
	"context"
	"net/http"

	"github.com/Royleong31/Blog-APIs/internal/feed"
	"github.com/Royleong31/Blog-APIs/internal/sdk/middleware"
	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
)

// Resolver is the root resolver. The caller's identity is read from the
// request context, where middleware.Identify put it; the feed service
// rejects anonymous callers on every operation but login and createUser.
type Resolver struct {
	feed *feed.Service
}

// NewSchema parses Schema against the root resolver. It panics on a schema
// and resolver mismatch.
func NewSchema(svc *feed.Service) *graphql.Schema {
	return graphql.MustParseSchema(Schema, &Resolver{feed: svc})
}

// NewHandler returns an http.Handler speaking the GraphQL-over-HTTP POST
// protocol.
func NewHandler(svc *feed.Service) http.Handler {
	return &relay.Handler{Schema: NewSchema(svc)}
}

// ----------------------------------------------------------------------------
// Queries
// ----------------------------------------------------------------------------

func (r *Resolver) Login(ctx context.Context, args struct {
	Email    string
	Password string
}) (*authResolver, error) {
	res, err := r.feed.Login(ctx, args.Email, args.Password)
	if err != nil {
		return nil, resolverErr(err)
	}
	return &authResolver{res: res}, nil
}

func (r *Resolver) Posts(ctx context.Context, args struct{ Page *int32 }) (*postDataResolver, error) {
	page := 1
	if args.Page != nil {
		page = int(*args.Page)
	}

	res, err := r.feed.ListPosts(ctx, middleware.IdentityFromContext(ctx), page)
	if err != nil {
		return nil, resolverErr(err)
	}
	return &postDataResolver{page: res}, nil
}

func (r *Resolver) Post(ctx context.Context, args struct{ ID graphql.ID }) (*postResolver, error) {
	post, err := r.feed.GetPost(ctx, middleware.IdentityFromContext(ctx), string(args.ID))
	if err != nil {
		return nil, resolverErr(err)
	}
	return &postResolver{p: post}, nil
}

func (r *Resolver) User(ctx context.Context) (*userResolver, error) {
	account, err := r.feed.Account(ctx, middleware.IdentityFromContext(ctx))
	if err != nil {
		return nil, resolverErr(err)
	}
	return &userResolver{a: account}, nil
}

// ----------------------------------------------------------------------------
// Mutations
// ----------------------------------------------------------------------------

func (r *Resolver) CreateUser(ctx context.Context, args struct{ UserInput userInput }) (*userResolver, error) {
	account, err := r.feed.Signup(ctx, feed.SignupInput{
		Email:    args.UserInput.Email,
		Name:     args.UserInput.Name,
		Password: args.UserInput.Password,
	})
	if err != nil {
		return nil, resolverErr(err)
	}
	return &userResolver{a: account}, nil
}

func (r *Resolver) CreatePost(ctx context.Context, args struct{ PostInput postInput }) (*postResolver, error) {
	post, err := r.feed.CreatePost(ctx, middleware.IdentityFromContext(ctx), args.PostInput.toFeed())
	if err != nil {
		return nil, resolverErr(err)
	}
	return &postResolver{p: post}, nil
}

func (r *Resolver) UpdatePost(ctx context.Context, args struct {
	ID        graphql.ID
	PostInput postInput
}) (*postResolver, error) {
	post, err := r.feed.UpdatePost(ctx, middleware.IdentityFromContext(ctx), string(args.ID), args.PostInput.toFeed())
	if err != nil {
		return nil, resolverErr(err)
	}
	return &postResolver{p: post}, nil
}

func (r *Resolver) DeletePost(ctx context.Context, args struct{ ID graphql.ID }) (bool, error) {
	if err := r.feed.DeletePost(ctx, middleware.IdentityFromContext(ctx), string(args.ID)); err != nil {
		return false, resolverErr(err)
	}
	return true, nil
}

func (r *Resolver) UpdateStatus(ctx context.Context, args struct{ Status string }) (*userResolver, error) {
	account, err := r.feed.UpdateStatus(ctx, middleware.IdentityFromContext(ctx), args.Status)
	if err != nil {
		return nil, resolverErr(err)
	}
	return &userResolver{a: account}, nil
}
