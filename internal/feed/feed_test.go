package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Royleong31/Blog-APIs/internal/sdk/errs"
	"github.com/Royleong31/Blog-APIs/internal/sdk/jwt"
	"github.com/Royleong31/Blog-APIs/internal/sdk/models"
	"github.com/Royleong31/Blog-APIs/internal/sdk/store"
	"github.com/Royleong31/Blog-APIs/internal/services/blob"
	"github.com/Royleong31/Blog-APIs/internal/services/hash"
	"github.com/Royleong31/Blog-APIs/internal/services/sentry"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "feed-test-secret")
	os.Setenv("JWT_ISSUER", "feed-test")
	os.Unsetenv("SENTRY_DSN")
	os.Exit(m.Run())
}

// =============================================================================
// Fakes
// =============================================================================

type recordingBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    []string
	deletes []string
}

func newRecordingBlobs() *recordingBlobs {
	return &recordingBlobs{objects: make(map[string][]byte)}
}

func (b *recordingBlobs) Put(_ context.Context, up blob.Upload) (string, error) {
	if !blob.Allowed(up.ContentType) {
		return "", blob.ErrUnsupportedType
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	key := blob.NewKey(up.Filename, up.ContentType)
	b.objects[key] = up.Data
	b.puts = append(b.puts, key)
	return key, nil
}

func (b *recordingBlobs) Open(_ context.Context, key string) (io.ReadCloser, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, "", blob.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(string(data))), "image/png", nil
}

func (b *recordingBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deletes = append(b.deletes, key)
	delete(b.objects, key)
	return nil
}

func (b *recordingBlobs) deleteCount(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, k := range b.deletes {
		if k == key {
			n++
		}
	}
	return n
}

func (b *recordingBlobs) putCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.puts)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(ev models.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) all() []models.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.events)
}

// failingStore fails post writes or the owned-post bookkeeping on demand.
type failingStore struct {
	store.Store
	failWrites bool
	failLinks  bool
}

var errStoreDown = errors.New("store unavailable")

func (f *failingStore) CreatePost(ctx context.Context, p models.NewPost) (models.Post, error) {
	if f.failWrites {
		return models.Post{}, errStoreDown
	}
	return f.Store.CreatePost(ctx, p)
}

func (f *failingStore) UpdatePost(ctx context.Context, p models.Post) (models.Post, error) {
	if f.failWrites {
		return models.Post{}, errStoreDown
	}
	return f.Store.UpdatePost(ctx, p)
}

func (f *failingStore) DeletePost(ctx context.Context, id string) error {
	if f.failWrites {
		return errStoreDown
	}
	return f.Store.DeletePost(ctx, id)
}

func (f *failingStore) AddAccountPost(ctx context.Context, accountID, postID string) error {
	if f.failLinks {
		return errStoreDown
	}
	return f.Store.AddAccountPost(ctx, accountID, postID)
}

func (f *failingStore) RemoveAccountPost(ctx context.Context, accountID, postID string) error {
	if f.failLinks {
		return errStoreDown
	}
	return f.Store.RemoveAccountPost(ctx, accountID, postID)
}

// =============================================================================
// Harness
// =============================================================================

type harness struct {
	svc    *Service
	store  *failingStore
	blobs  *recordingBlobs
	events *recordingPublisher
	tokens *jwt.TokenService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	mem := store.NewMemory()
	var tick int64
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	mem.SetClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		store:  &failingStore{Store: mem},
		blobs:  newRecordingBlobs(),
		events: &recordingPublisher{},
		tokens: jwt.NewTokenService(),
	}
	h.svc = NewService(
		Config{PerPage: 2},
		h.store,
		h.blobs,
		hash.NewHashServiceWithCost(bcrypt.MinCost),
		h.tokens,
		h.events,
		sentry.NewSentryService(log),
		log,
	)
	t.Cleanup(h.svc.Wait)
	return h
}

func (h *harness) signup(t *testing.T, email, name string) jwt.Identity {
	t.Helper()
	acc, err := h.svc.Signup(context.Background(), SignupInput{Email: email, Name: name, Password: "secret"})
	if err != nil {
		t.Fatalf("signup %s: %v", email, err)
	}
	return jwt.Identity{AccountID: acc.ID, Email: acc.Email}
}

func pngUpload(name string) *blob.Upload {
	return &blob.Upload{Filename: name, ContentType: "image/png", Data: []byte("png-bytes")}
}

func (h *harness) createPost(t *testing.T, actor jwt.Identity, title string) models.Post {
	t.Helper()
	post, err := h.svc.CreatePost(context.Background(), actor, PostInput{
		Title:   title,
		Content: "This is a test post",
		Image:   pngUpload("photo.png"),
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	return post
}

func assertKind(t *testing.T, err error, want errs.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := errs.From(err).Kind; got != want {
		t.Fatalf("expected %s error, got %s (%v)", want, got, err)
	}
}

// =============================================================================
// Accounts
// =============================================================================

func TestSignup(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	acc, err := h.svc.Signup(ctx, SignupInput{Email: " Max@Test.com ", Name: "Max", Password: "secret"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if acc.Email != "max@test.com" {
		t.Fatalf("expected normalized email, got %q", acc.Email)
	}
	if acc.Status != models.DefaultStatus {
		t.Fatalf("expected default status, got %q", acc.Status)
	}
	if string(acc.Password) == "secret" {
		t.Fatal("password stored in plain text")
	}

	_, err = h.svc.Signup(ctx, SignupInput{Email: "max@test.com", Name: "Other", Password: "secret"})
	assertKind(t, err, errs.Conflict)
}

func TestSignupReportsAllViolations(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Signup(context.Background(), SignupInput{Email: "nope", Name: " ", Password: "abc"})
	assertKind(t, err, errs.Validation)

	fields := map[string]bool{}
	for _, f := range errs.From(err).Fields {
		fields[f.Field] = true
	}
	for _, want := range []string{"email", "password", "name"} {
		if !fields[want] {
			t.Fatalf("expected violation for %q, got %+v", want, errs.From(err).Fields)
		}
	}
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	actor := h.signup(t, "max@test.com", "Max")
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		res, err := h.svc.Login(ctx, "MAX@test.com", "secret")
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		if res.UserID != actor.AccountID {
			t.Fatalf("expected user %s, got %s", actor.AccountID, res.UserID)
		}
		claims, err := h.tokens.ParseToken(res.Token)
		if err != nil {
			t.Fatalf("parse token: %v", err)
		}
		if claims.UserID != actor.AccountID || claims.Email != actor.Email {
			t.Fatalf("unexpected claims %+v", claims)
		}
	})

	tests := []struct {
		name     string
		email    string
		password string
		kind     errs.Kind
	}{
		{"wrong password", "max@test.com", "secret2", errs.Unauthenticated},
		{"unknown email", "nobody@test.com", "secret", errs.Unauthenticated},
		{"missing fields", "", "", errs.Validation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.svc.Login(ctx, tt.email, tt.password)
			assertKind(t, err, tt.kind)
			if res.Token != "" {
				t.Fatal("expected no token")
			}
		})
	}
}

func TestStatus(t *testing.T) {
	h := newHarness(t)
	actor := h.signup(t, "max@test.com", "Max")
	ctx := context.Background()

	status, err := h.svc.GetStatus(ctx, actor)
	if err != nil || status != models.DefaultStatus {
		t.Fatalf("expected default status, got %q, %v", status, err)
	}

	if _, err := h.svc.UpdateStatus(ctx, actor, "  Busy  "); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if status, _ := h.svc.GetStatus(ctx, actor); status != "Busy" {
		t.Fatalf("expected Busy, got %q", status)
	}

	_, err = h.svc.UpdateStatus(ctx, actor, " ")
	assertKind(t, err, errs.Validation)

	_, err = h.svc.GetStatus(ctx, jwt.Identity{})
	assertKind(t, err, errs.Unauthenticated)

	_, err = h.svc.GetStatus(ctx, jwt.Identity{AccountID: "ghost"})
	assertKind(t, err, errs.NotFound)
}

// =============================================================================
// Posts
// =============================================================================

func TestCreateThenGetRoundTrip(t *testing.T) {
	h := newHarness(t)
	actor := h.signup(t, "max@test.com", "Max")
	ctx := context.Background()

	created := h.createPost(t, actor, "Hello World")

	got, err := h.svc.GetPost(ctx, actor, created.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if got.Title != "Hello World" || got.Content != "This is a test post" {
		t.Fatalf("unexpected post %+v", got)
	}
	if got.Creator.ID != actor.AccountID || got.Creator.Name != "Max" {
		t.Fatalf("unexpected creator %+v", got.Creator)
	}
	if !blob.ValidKey(got.ImageURL) {
		t.Fatalf("expected a stored image key, got %q", got.ImageURL)
	}

	acc, err := h.svc.Account(ctx, actor)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if !slices.Contains(acc.Posts, created.ID) {
		t.Fatalf("expected account to own %s, has %v", created.ID, acc.Posts)
	}

	events := h.events.all()
	if len(events) != 1 || events[0].Action != models.ActionCreate || events[0].Post.ID != created.ID {
		t.Fatalf("expected one create event, got %+v", events)
	}
	if events[0].Post.Title != got.Title || events[0].Post.ImageURL != got.ImageURL {
		t.Fatalf("event payload differs from stored post: %+v", events[0].Post)
	}
}

func TestCreateRejections(t *testing.T) {
	tests := []struct {
		name  string
		actor func(h *harness) jwt.Identity
		in    PostInput
		kind  errs.Kind
	}{
		{
			name:  "anonymous",
			actor: func(*harness) jwt.Identity { return jwt.Identity{} },
			in:    PostInput{Title: "Hello World", Content: "Some content", Image: pngUpload("a.png")},
			kind:  errs.Unauthenticated,
		},
		{
			name: "short fields",
			in:   PostInput{Title: "Hi", Content: "Yo", Image: pngUpload("a.png")},
			kind: errs.Validation,
		},
		{
			name: "missing image",
			in:   PostInput{Title: "Hello World", Content: "Some content", ImageURL: keepImage},
			kind: errs.Validation,
		},
		{
			name: "unsupported image type",
			in: PostInput{Title: "Hello World", Content: "Some content", Image: &blob.Upload{
				Filename: "a.gif", ContentType: "image/gif", Data: []byte("gif"),
			}},
			kind: errs.Validation,
		},
		{
			name: "image path outside namespace",
			in:   PostInput{Title: "Hello World", Content: "Some content", ImageURL: "../etc/passwd"},
			kind: errs.Validation,
		},
		{
			name:  "account gone",
			actor: func(*harness) jwt.Identity { return jwt.Identity{AccountID: "ghost"} },
			in:    PostInput{Title: "Hello World", Content: "Some content", Image: pngUpload("a.png")},
			kind:  errs.Unauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			actor := h.signup(t, "max@test.com", "Max")
			if tt.actor != nil {
				actor = tt.actor(h)
			}

			_, err := h.svc.CreatePost(context.Background(), actor, tt.in)
			assertKind(t, err, tt.kind)

			if n := len(h.events.all()); n != 0 {
				t.Fatalf("expected no broadcast, got %d", n)
			}
			if n := h.blobs.putCount(); n != 0 {
				t.Fatalf("expected nothing stored, got %d uploads", n)
			}
		})
	}
}

func TestCreatePersistFailureRemovesUpload(t *testing.T) {
	h := newHarness(t)
	actor := h.signup(t, "max@test.com", "Max")
	h.store.failWrites = true

	_, err := h.svc.CreatePost(context.Background(), actor, PostInput{
		Title: "Hello World", Content: "Some content", Image: pngUpload("a.png"),
	})
	assertKind(t, err, errs.Internal)
	if errs.From(err).Message != "An error occurred" {
		t.Fatalf("expected a generic message, got %q", errs.From(err).Message)
	}

	h.svc.Wait()
	if len(h.blobs.puts) != 1 || h.blobs.deleteCount(h.blobs.puts[0]) != 1 {
		t.Fatalf("expected the fresh upload to be removed once, deletes %v", h.blobs.deletes)
	}
	if n := len(h.events.all()); n != 0 {
		t.Fatalf("expected no broadcast, got %d", n)
	}
}

func TestUpdateKeepsImage(t *testing.T) {
	for _, imageURL := range []string{"", keepImage} {
		t.Run(fmt.Sprintf("imageUrl=%q", imageURL), func(t *testing.T) {
			h := newHarness(t)
			actor := h.signup(t, "max@test.com", "Max")
			post := h.createPost(t, actor, "Hello World")

			updated, err := h.svc.UpdatePost(context.Background(), actor, post.ID, PostInput{
				Title: "Hello Again", Content: "Changed content", ImageURL: imageURL,
			})
			if err != nil {
				t.Fatalf("update: %v", err)
			}
			if updated.ImageURL != post.ImageURL {
				t.Fatalf("expected image %q to be kept, got %q", post.ImageURL, updated.ImageURL)
			}
			if updated.Title != "Hello Again" || updated.Creator.Name != "Max" {
				t.Fatalf("unexpected post %+v", updated)
			}

			h.svc.Wait()
			if n := h.blobs.deleteCount(post.ImageURL); n != 0 {
				t.Fatalf("kept image was deleted %d times", n)
			}
		})
	}
}

func TestUpdateReplacesImage(t *testing.T) {
	h := newHarness(t)
	actor := h.signup(t, "max@test.com", "Max")
	post := h.createPost(t, actor, "Hello World")

	updated, err := h.svc.UpdatePost(context.Background(), actor, post.ID, PostInput{
		Title: "Hello World", Content: "This is a test post", Image: pngUpload("new.png"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ImageURL == post.ImageURL || !strings.HasSuffix(updated.ImageURL, "-new.png") {
		t.Fatalf("expected a new image key, got %q", updated.ImageURL)
	}

	h.svc.Wait()
	if n := h.blobs.deleteCount(post.ImageURL); n != 1 {
		t.Fatalf("expected old image deleted exactly once, got %d", n)
	}
	if n := h.blobs.deleteCount(updated.ImageURL); n != 0 {
		t.Fatalf("new image deleted %d times", n)
	}

	events := h.events.all()
	if len(events) != 2 || events[1].Action != models.ActionUpdate || events[1].Post.ImageURL != updated.ImageURL {
		t.Fatalf("expected create then update events, got %+v", events)
	}
}

func TestUpdateWithUnsupportedUploadKeepsImage(t *testing.T) {
	h := newHarness(t)
	actor := h.signup(t, "max@test.com", "Max")
	post := h.createPost(t, actor, "Hello World")

	updated, err := h.svc.UpdatePost(context.Background(), actor, post.ID, PostInput{
		Title: "Hello World", Content: "This is a test post",
		Image: &blob.Upload{Filename: "x.pdf", ContentType: "application/pdf", Data: []byte("pdf")},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ImageURL != post.ImageURL {
		t.Fatalf("expected image to be kept, got %q", updated.ImageURL)
	}
}

func TestUpdatePersistFailure(t *testing.T) {
	h := newHarness(t)
	actor := h.signup(t, "max@test.com", "Max")
	post := h.createPost(t, actor, "Hello World")
	h.store.failWrites = true

	_, err := h.svc.UpdatePost(context.Background(), actor, post.ID, PostInput{
		Title: "Hello World", Content: "This is a test post", Image: pngUpload("new.png"),
	})
	assertKind(t, err, errs.Internal)

	h.svc.Wait()
	if n := h.blobs.deleteCount(post.ImageURL); n != 0 {
		t.Fatalf("image still referenced by the stored post was deleted")
	}
	if n := h.blobs.deleteCount(h.blobs.puts[1]); n != 1 {
		t.Fatalf("expected the orphaned upload to be removed, got %d deletes", n)
	}
	if n := len(h.events.all()); n != 1 {
		t.Fatalf("expected only the create event, got %d", n)
	}
}

func TestMutationsByNonOwnerAreForbidden(t *testing.T) {
	h := newHarness(t)
	owner := h.signup(t, "owner@test.com", "Owner")
	other := h.signup(t, "other@test.com", "Other")
	post := h.createPost(t, owner, "Hello World")
	ctx := context.Background()

	_, err := h.svc.UpdatePost(ctx, other, post.ID, PostInput{
		Title: "Hijacked!", Content: "Hijacked!", Image: pngUpload("evil.png"),
	})
	assertKind(t, err, errs.Forbidden)

	err = h.svc.DeletePost(ctx, other, post.ID)
	assertKind(t, err, errs.Forbidden)

	stored, err := h.svc.GetPost(ctx, owner, post.ID)
	if err != nil || stored.Title != "Hello World" {
		t.Fatalf("post changed by non-owner: %+v, %v", stored, err)
	}

	h.svc.Wait()
	if n := h.blobs.putCount(); n != 1 {
		t.Fatalf("expected only the original upload, got %d", n)
	}
	if len(h.blobs.deletes) != 0 {
		t.Fatalf("expected no deletes, got %v", h.blobs.deletes)
	}
	if n := len(h.events.all()); n != 1 {
		t.Fatalf("expected only the create event, got %d", n)
	}
}

func TestMutationsOnMissingPost(t *testing.T) {
	h := newHarness(t)
	actor := h.signup(t, "max@test.com", "Max")
	ctx := context.Background()

	_, err := h.svc.UpdatePost(ctx, actor, "missing", PostInput{Title: "Hello World", Content: "Some content"})
	assertKind(t, err, errs.NotFound)

	err = h.svc.DeletePost(ctx, actor, "missing")
	assertKind(t, err, errs.NotFound)

	_, err = h.svc.GetPost(ctx, actor, "missing")
	assertKind(t, err, errs.NotFound)
}

func TestValidationRunsBeforeLoad(t *testing.T) {
	h := newHarness(t)
	actor := h.signup(t, "max@test.com", "Max")

	_, err := h.svc.UpdatePost(context.Background(), actor, "missing", PostInput{Title: "x", Content: "y"})
	assertKind(t, err, errs.Validation)
	if n := len(errs.From(err).Fields); n != 2 {
		t.Fatalf("expected both field violations, got %d", n)
	}
}

func TestDeletePost(t *testing.T) {
	h := newHarness(t)
	actor := h.signup(t, "max@test.com", "Max")
	post := h.createPost(t, actor, "Hello World")
	ctx := context.Background()

	if err := h.svc.DeletePost(ctx, actor, post.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, err := h.svc.GetPost(ctx, actor, post.ID)
	assertKind(t, err, errs.NotFound)

	acc, _ := h.svc.Account(ctx, actor)
	if slices.Contains(acc.Posts, post.ID) {
		t.Fatal("deleted post still referenced by its owner")
	}

	h.svc.Wait()
	if n := h.blobs.deleteCount(post.ImageURL); n != 1 {
		t.Fatalf("expected image deleted once, got %d", n)
	}

	events := h.events.all()
	if len(events) != 2 || events[1].Action != models.ActionDelete || events[1].Post.ID != post.ID {
		t.Fatalf("expected a delete event, got %+v", events)
	}
}

func TestDeletePersistFailure(t *testing.T) {
	h := newHarness(t)
	actor := h.signup(t, "max@test.com", "Max")
	post := h.createPost(t, actor, "Hello World")
	h.store.failWrites = true

	err := h.svc.DeletePost(context.Background(), actor, post.ID)
	assertKind(t, err, errs.Internal)

	h.svc.Wait()
	if len(h.blobs.deletes) != 0 {
		t.Fatalf("expected no blob deletes, got %v", h.blobs.deletes)
	}
	if n := len(h.events.all()); n != 1 {
		t.Fatalf("expected only the create event, got %d", n)
	}
}

func TestListPosts(t *testing.T) {
	h := newHarness(t)
	actor := h.signup(t, "max@test.com", "Max")
	for i := 1; i <= 5; i++ {
		h.createPost(t, actor, fmt.Sprintf("Post number %d", i))
	}
	ctx := context.Background()

	tests := []struct {
		page  int
		count int
		first string
	}{
		{page: 1, count: 2, first: "Post number 5"},
		{page: 2, count: 2, first: "Post number 3"},
		{page: 3, count: 1, first: "Post number 1"},
		{page: 4, count: 0},
		{page: 0, count: 2, first: "Post number 5"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d", tt.page), func(t *testing.T) {
			res, err := h.svc.ListPosts(ctx, actor, tt.page)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if res.TotalItems != 5 {
				t.Fatalf("expected total 5, got %d", res.TotalItems)
			}
			if len(res.Posts) != tt.count {
				t.Fatalf("expected %d posts, got %d", tt.count, len(res.Posts))
			}
			if tt.count > 0 {
				if res.Posts[0].Title != tt.first {
					t.Fatalf("expected %q first, got %q", tt.first, res.Posts[0].Title)
				}
				if res.Posts[0].Creator.Name != "Max" {
					t.Fatalf("expected creator name, got %+v", res.Posts[0].Creator)
				}
			}
		})
	}

	_, err := h.svc.ListPosts(ctx, jwt.Identity{}, 1)
	assertKind(t, err, errs.Unauthenticated)
}

func TestAccountLinkFailureKeepsMutation(t *testing.T) {
	h := newHarness(t)
	actor := h.signup(t, "max@test.com", "Max")
	ctx := context.Background()
	h.store.failLinks = true

	post, err := h.svc.CreatePost(ctx, actor, PostInput{
		Title: "Hello World", Content: "This is a test post", Image: pngUpload("a.png"),
	})
	if err != nil {
		t.Fatalf("create: expected success, got %v", err)
	}
	if _, err := h.svc.GetPost(ctx, actor, post.ID); err != nil {
		t.Fatalf("created post not stored: %v", err)
	}
	if events := h.events.all(); len(events) != 1 || events[0].Action != models.ActionCreate {
		t.Fatalf("expected exactly one create event, got %+v", events)
	}

	if err := h.svc.DeletePost(ctx, actor, post.ID); err != nil {
		t.Fatalf("delete: expected success, got %v", err)
	}
	_, err = h.svc.GetPost(ctx, actor, post.ID)
	assertKind(t, err, errs.NotFound)

	h.svc.Wait()
	if n := h.blobs.deleteCount(post.ImageURL); n != 1 {
		t.Fatalf("expected image deleted once, got %d", n)
	}
	events := h.events.all()
	if len(events) != 2 || events[1].Action != models.ActionDelete {
		t.Fatalf("expected exactly one delete event, got %+v", events)
	}
}

func TestImageKeyMustBeOwnUpload(t *testing.T) {
	h := newHarness(t)
	alice := h.signup(t, "alice@test.com", "Alice")
	mallory := h.signup(t, "mallory@test.com", "Mallory")
	ctx := context.Background()

	alicePost := h.createPost(t, alice, "Alice's post")

	aliceKey, err := h.svc.UploadImage(ctx, alice, pngUpload("pending.png"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	malloryPost := h.createPost(t, mallory, "Mallory's post")

	tests := []struct {
		name string
		key  string
	}{
		{"another account's post image", alicePost.ImageURL},
		{"another account's pending upload", aliceKey},
		{"unknown file", "images/does-not-exist.png"},
	}
	for _, tt := range tests {
		t.Run("create with "+tt.name, func(t *testing.T) {
			_, err := h.svc.CreatePost(ctx, mallory, PostInput{
				Title: "Borrowed image", Content: "Some content", ImageURL: tt.key,
			})
			assertKind(t, err, errs.Validation)
		})
		t.Run("update with "+tt.name, func(t *testing.T) {
			_, err := h.svc.UpdatePost(ctx, mallory, malloryPost.ID, PostInput{
				Title: "Borrowed image", Content: "Some content", ImageURL: tt.key,
			})
			assertKind(t, err, errs.Validation)
		})
	}

	if err := h.svc.DeletePost(ctx, mallory, malloryPost.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	h.svc.Wait()
	if n := h.blobs.deleteCount(alicePost.ImageURL); n != 0 {
		t.Fatalf("alice's post image was deleted %d times", n)
	}
	if n := h.blobs.deleteCount(aliceKey); n != 0 {
		t.Fatalf("alice's upload was deleted %d times", n)
	}

	post, err := h.svc.CreatePost(ctx, alice, PostInput{
		Title: "Hello World", Content: "Some content", ImageURL: "/" + aliceKey,
	})
	if err != nil || post.ImageURL != aliceKey {
		t.Fatalf("expected own upload to be accepted, got %+v, %v", post, err)
	}

	_, err = h.svc.CreatePost(ctx, alice, PostInput{
		Title: "Hello Again", Content: "Some content", ImageURL: aliceKey,
	})
	assertKind(t, err, errs.Validation)

	updated, err := h.svc.UpdatePost(ctx, alice, post.ID, PostInput{
		Title: "Hello World", Content: "Changed content", ImageURL: aliceKey,
	})
	if err != nil || updated.ImageURL != aliceKey {
		t.Fatalf("expected current image to be kept, got %+v, %v", updated, err)
	}
}

func TestPersistFailureReleasesClaimedUpload(t *testing.T) {
	h := newHarness(t)
	actor := h.signup(t, "max@test.com", "Max")
	ctx := context.Background()

	key, err := h.svc.UploadImage(ctx, actor, pngUpload("cat.png"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	h.store.failWrites = true
	in := PostInput{Title: "Hello World", Content: "Some content", ImageURL: key}
	_, err = h.svc.CreatePost(ctx, actor, in)
	assertKind(t, err, errs.Internal)

	h.svc.Wait()
	if n := h.blobs.deleteCount(key); n != 0 {
		t.Fatalf("pending upload deleted %d times", n)
	}

	h.store.failWrites = false
	post, err := h.svc.CreatePost(ctx, actor, in)
	if err != nil || post.ImageURL != key {
		t.Fatalf("expected retry to reuse the upload, got %+v, %v", post, err)
	}
}

func TestUploadImage(t *testing.T) {
	h := newHarness(t)
	actor := h.signup(t, "max@test.com", "Max")
	ctx := context.Background()

	key, err := h.svc.UploadImage(ctx, actor, pngUpload("cat.png"))
	if err != nil || !blob.ValidKey(key) {
		t.Fatalf("expected a stored key, got %q, %v", key, err)
	}

	key, err = h.svc.UploadImage(ctx, actor, &blob.Upload{Filename: "a.txt", ContentType: "text/plain", Data: []byte("x")})
	if err != nil || key != "" {
		t.Fatalf("expected unsupported file to be ignored, got %q, %v", key, err)
	}

	key, err = h.svc.UploadImage(ctx, actor, nil)
	if err != nil || key != "" {
		t.Fatalf("expected no key without a file, got %q, %v", key, err)
	}

	_, err = h.svc.UploadImage(ctx, jwt.Identity{}, pngUpload("cat.png"))
	assertKind(t, err, errs.Unauthenticated)

	_, err = h.svc.UploadImage(ctx, jwt.Identity{AccountID: "ghost"}, pngUpload("cat.png"))
	assertKind(t, err, errs.Unauthenticated)
}

// =============================================================================
// Authorization
// =============================================================================

func TestAuthorize(t *testing.T) {
	post := models.Post{ID: "p1", CreatorID: "owner"}

	tests := []struct {
		name    string
		actor   jwt.Identity
		post    models.Post
		allowed bool
	}{
		{"owner", jwt.Identity{AccountID: "owner"}, post, true},
		{"other account", jwt.Identity{AccountID: "intruder"}, post, false},
		{"anonymous", jwt.Identity{}, post, false},
		{"post without owner", jwt.Identity{AccountID: "owner"}, models.Post{ID: "p2"}, false},
	}

	for _, tt := range tests {
		for _, action := range []Action{ActionUpdate, ActionDelete} {
			t.Run(tt.name+"/"+action.String(), func(t *testing.T) {
				err := Authorize(tt.actor, tt.post, action)
				if tt.allowed && err != nil {
					t.Fatalf("expected allow, got %v", err)
				}
				if !tt.allowed {
					assertKind(t, err, errs.Forbidden)
				}
			})
		}
	}
}
