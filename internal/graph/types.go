package graph

import (
	"time"

	"github.com/Royleong31/Blog-APIs/internal/feed"
	"github.com/Royleong31/Blog-APIs/internal/sdk/models"
	graphql "github.com/graph-gophers/graphql-go"
)

type postResolver struct {
	p models.Post
}

func (r *postResolver) ID() graphql.ID {
	return graphql.ID(r.p.ID)
}

func (r *postResolver) Title() string {
	return r.p.Title
}

func (r *postResolver) Content() string {
	return r.p.Content
}

func (r *postResolver) ImageURL() string {
	return r.p.ImageURL
}

func (r *postResolver) CreatedAt() string {
	return r.p.CreatedAt.Format(time.RFC3339)
}

func (r *postResolver) UpdatedAt() string {
	return r.p.UpdatedAt.Format(time.RFC3339)
}

func (r *postResolver) Creator() *creatorResolver {
	return &creatorResolver{c: r.p.Creator}
}

type creatorResolver struct {
	c models.Creator
}

func (r *creatorResolver) ID() graphql.ID {
	return graphql.ID(r.c.ID)
}

func (r *creatorResolver) Name() string {
	return r.c.Name
}

type userResolver struct {
	a models.Account
}

func (r *userResolver) ID() graphql.ID {
	return graphql.ID(r.a.ID)
}

func (r *userResolver) Name() string {
	return r.a.Name
}

func (r *userResolver) Email() string {
	return r.a.Email
}

func (r *userResolver) Status() string {
	return r.a.Status
}

func (r *userResolver) Posts() []graphql.ID {
	ids := make([]graphql.ID, 0, len(r.a.Posts))
	for _, id := range r.a.Posts {
		ids = append(ids, graphql.ID(id))
	}
	return ids
}

type authResolver struct {
	res feed.LoginResult
}

func (r *authResolver) Token() string {
	return r.res.Token
}

func (r *authResolver) UserID() string {
	return r.res.UserID
}

type postDataResolver struct {
	page feed.PostPage
}

func (r *postDataResolver) Posts() []*postResolver {
	out := make([]*postResolver, 0, len(r.page.Posts))
	for _, p := range r.page.Posts {
		out = append(out, &postResolver{p: p})
	}
	return out
}

func (r *postDataResolver) TotalPosts() int32 {
	return int32(r.page.TotalItems)
}

type userInput struct {
	Email    string
	Name     string
	Password string
}

type postInput struct {
	Title    string
	Content  string
	ImageURL *string
}

func (in postInput) toFeed() feed.PostInput {
	out := feed.PostInput{Title: in.Title, Content: in.Content}
	if in.ImageURL != nil {
		out.ImageURL = *in.ImageURL
	}
	return out
}
