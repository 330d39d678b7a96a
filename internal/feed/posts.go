package feed

import (
	"context"
	"errors"
	"strings"

	"github.com/Royleong31/Blog-APIs/internal/sdk/jwt"
	"github.com/Royleong31/Blog-APIs/internal/sdk/models"
	"github.com/Royleong31/Blog-APIs/internal/sdk/store"
	"github.com/Royleong31/Blog-APIs/internal/services/blob"
	"github.com/Royleong31/Blog-APIs/internal/services/sentry"
)

// PostInput carries the editable fields of a post. Image, when set, takes
// precedence over ImageURL. An empty ImageURL or "undefined" keeps the
// current image on update.
type PostInput struct {
	Title    string
	Content  string
	ImageURL string
	Image    *blob.Upload
}

func (in PostInput) imageKey() (string, bool) {
	key := strings.TrimPrefix(strings.TrimSpace(in.ImageURL), "/")
	if key == "" || key == keepImage {
		return "", false
	}
	return key, true
}

// upload returns the file to store, ignoring types outside the allowlist.
func (in PostInput) upload() *blob.Upload {
	if in.Image == nil || len(in.Image.Data) == 0 || !blob.Allowed(in.Image.ContentType) {
		return nil
	}
	return in.Image
}

func (in PostInput) hasImage() bool {
	if in.upload() != nil {
		return true
	}
	_, ok := in.imageKey()
	return ok
}

// PostPage is one page of the feed.
type PostPage struct {
	Posts      []models.Post `json:"posts"`
	TotalItems int           `json:"totalItems"`
}

// CreatePost stores a new post owned by actor and announces it.
func (s *Service) CreatePost(ctx context.Context, actor jwt.Identity, in PostInput) (models.Post, error) {
	const op = "create_post"

	if err := authenticate(actor); err != nil {
		return models.Post{}, err
	}
	if err := validatePost(in, true); err != nil {
		return models.Post{}, err
	}

	account, err := s.store.GetAccountByID(ctx, actor.AccountID)
	if err != nil {
		if store.IsNotFound(err) {
			return models.Post{}, errInvalidUser
		}
		return models.Post{}, s.internal(op, "load", err)
	}

	image, err := s.resolveImage(ctx, op, actor, in, "")
	if err != nil {
		return models.Post{}, err
	}

	post, err := s.store.CreatePost(ctx, models.NewPost{
		Title:     strings.TrimSpace(in.Title),
		Content:   strings.TrimSpace(in.Content),
		ImageURL:  image.key,
		CreatorID: account.ID,
	})
	if err != nil {
		s.abandonImage(ctx, op, actor, image)
		return models.Post{}, s.internal(op, "persist", err)
	}

	if err := s.store.AddAccountPost(ctx, account.ID, post.ID); err != nil {
		s.sentry.Report(op, "link_account", sentry.LevelWarning, err)
	}

	post.Creator = models.Creator{ID: account.ID, Name: account.Name}
	s.publisher.Publish(models.Event{Action: models.ActionCreate, Post: post})
	return post, nil
}

// UpdatePost edits a post owned by actor. A replaced image is removed only
// after the new version is stored.
func (s *Service) UpdatePost(ctx context.Context, actor jwt.Identity, postID string, in PostInput) (models.Post, error) {
	const op = "update_post"

	if err := authenticate(actor); err != nil {
		return models.Post{}, err
	}
	if err := validatePost(in, false); err != nil {
		return models.Post{}, err
	}

	current, err := s.loadPost(ctx, op, postID)
	if err != nil {
		return models.Post{}, err
	}
	if err := Authorize(actor, current, ActionUpdate); err != nil {
		return models.Post{}, err
	}

	image, err := s.resolveImage(ctx, op, actor, in, current.ImageURL)
	if err != nil {
		return models.Post{}, err
	}

	next := current
	next.Title = strings.TrimSpace(in.Title)
	next.Content = strings.TrimSpace(in.Content)
	next.ImageURL = image.key

	post, err := s.store.UpdatePost(ctx, next)
	if err != nil {
		s.abandonImage(ctx, op, actor, image)
		if store.IsNotFound(err) {
			return models.Post{}, errPostNotFound
		}
		return models.Post{}, s.internal(op, "persist", err)
	}

	if current.ImageURL != post.ImageURL {
		s.discardBlob(ctx, op, current.ImageURL)
	}

	post.Creator = s.creator(ctx, op, post.CreatorID)
	s.publisher.Publish(models.Event{Action: models.ActionUpdate, Post: post})
	return post, nil
}

// DeletePost removes a post owned by actor together with its image.
func (s *Service) DeletePost(ctx context.Context, actor jwt.Identity, postID string) error {
	const op = "delete_post"

	if err := authenticate(actor); err != nil {
		return err
	}

	post, err := s.loadPost(ctx, op, postID)
	if err != nil {
		return err
	}
	if err := Authorize(actor, post, ActionDelete); err != nil {
		return err
	}

	if err := s.store.DeletePost(ctx, post.ID); err != nil {
		if store.IsNotFound(err) {
			return errPostNotFound
		}
		return s.internal(op, "persist", err)
	}

	if err := s.store.RemoveAccountPost(ctx, post.CreatorID, post.ID); err != nil {
		s.sentry.Report(op, "unlink_account", sentry.LevelWarning, err)
	}

	s.discardBlob(ctx, op, post.ImageURL)

	post.Creator = s.creator(ctx, op, post.CreatorID)
	s.publisher.Publish(models.Event{Action: models.ActionDelete, Post: post})
	return nil
}

// GetPost returns a single post with its creator.
func (s *Service) GetPost(ctx context.Context, actor jwt.Identity, postID string) (models.Post, error) {
	if err := authenticate(actor); err != nil {
		return models.Post{}, err
	}

	post, err := s.loadPost(ctx, "get_post", postID)
	if err != nil {
		return models.Post{}, err
	}
	post.Creator = s.creator(ctx, "get_post", post.CreatorID)
	return post, nil
}

// ListPosts returns a 1-based page of posts, newest first.
func (s *Service) ListPosts(ctx context.Context, actor jwt.Identity, page int) (PostPage, error) {
	if err := authenticate(actor); err != nil {
		return PostPage{}, err
	}
	if page < 1 {
		page = 1
	}

	posts, total, err := s.store.ListPosts(ctx, page, s.cfg.PerPage)
	if err != nil {
		return PostPage{}, s.internal("list_posts", "load", err)
	}

	creators := make(map[string]models.Creator)
	for i := range posts {
		id := posts[i].CreatorID
		c, ok := creators[id]
		if !ok {
			c = s.creator(ctx, "list_posts", id)
			creators[id] = c
		}
		posts[i].Creator = c
	}

	if posts == nil {
		posts = []models.Post{}
	}
	return PostPage{Posts: posts, TotalItems: total}, nil
}

// UploadImage stores a file ahead of a post mutation and returns its key.
// The key is held for actor until one of actor's posts references it.
// An empty key with a nil error means nothing usable was uploaded.
func (s *Service) UploadImage(ctx context.Context, actor jwt.Identity, up *blob.Upload) (string, error) {
	const op = "upload_image"

	if err := authenticate(actor); err != nil {
		return "", err
	}

	in := PostInput{Image: up}
	if in.upload() == nil {
		return "", nil
	}

	key, err := s.blobs.Put(ctx, *up)
	if err != nil {
		return "", s.internal(op, "store", err)
	}

	if err := s.store.RecordUpload(ctx, key, actor.AccountID); err != nil {
		s.discardBlob(ctx, op, key)
		if store.IsNotFound(err) {
			return "", errInvalidUser
		}
		return "", s.internal(op, "record", err)
	}
	return key, nil
}

func (s *Service) loadPost(ctx context.Context, op, postID string) (models.Post, error) {
	post, err := s.store.GetPostByID(ctx, postID)
	if err != nil {
		if store.IsNotFound(err) {
			return models.Post{}, errPostNotFound
		}
		return models.Post{}, s.internal(op, "load", err)
	}
	return post, nil
}

// imageChoice is the image a new post version points at. uploaded is a file
// stored by this request and claimed an earlier upload taken off the ledger;
// both are handed back if the write fails.
type imageChoice struct {
	key      string
	uploaded string
	claimed  string
}

// resolveImage picks the image key for the new version of a post. A key
// sent by the client is accepted only if it is the current image or an
// unclaimed upload of actor's.
func (s *Service) resolveImage(ctx context.Context, op string, actor jwt.Identity, in PostInput, current string) (imageChoice, error) {
	if up := in.upload(); up != nil {
		uploaded, err := s.blobs.Put(ctx, *up)
		if err != nil {
			if errors.Is(err, blob.ErrUnsupportedType) {
				return imageChoice{key: current}, nil
			}
			return imageChoice{}, s.internal(op, "upload", err)
		}
		return imageChoice{key: uploaded, uploaded: uploaded}, nil
	}

	key, ok := in.imageKey()
	if !ok || key == current {
		return imageChoice{key: current}, nil
	}

	if err := s.store.ClaimUpload(ctx, key, actor.AccountID); err != nil {
		if store.IsNotFound(err) {
			return imageChoice{}, errImageUnavailable
		}
		return imageChoice{}, s.internal(op, "claim_image", err)
	}
	return imageChoice{key: key, claimed: key}, nil
}

// abandonImage undoes resolveImage after a failed write: a fresh file is
// removed and a claimed upload is handed back to actor.
func (s *Service) abandonImage(ctx context.Context, op string, actor jwt.Identity, image imageChoice) {
	s.discardBlob(ctx, op, image.uploaded)
	if image.claimed == "" {
		return
	}
	if err := s.store.RecordUpload(ctx, image.claimed, actor.AccountID); err != nil {
		s.log.Warn("releasing upload failed", "operation", op, "key", image.claimed, "error", err)
	}
}

// creator loads the display summary for a post owner. A failed lookup
// leaves the name empty.
func (s *Service) creator(ctx context.Context, op, accountID string) models.Creator {
	account, err := s.store.GetAccountByID(ctx, accountID)
	if err != nil {
		s.log.Warn("loading creator failed", "operation", op, "account", accountID, "error", err)
		return models.Creator{ID: accountID}
	}
	return models.Creator{ID: account.ID, Name: account.Name}
}
