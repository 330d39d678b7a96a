package store

import (
	"context"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Royleong31/Blog-APIs/internal/sdk/models"
	"github.com/google/uuid"
)

// Memory is an in-process Store used by tests and local runs.
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
	posts    map[string]models.Post
	uploads  map[string]string
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[string]models.Account),
		posts:    make(map[string]models.Post),
		uploads:  make(map[string]string),
		now:      time.Now,
	}
}

// SetClock overrides the timestamp source.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) Health(context.Context) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]string{
		"status":   "up",
		"driver":   "memory",
		"accounts": strconv.Itoa(len(m.accounts)),
		"posts":    strconv.Itoa(len(m.posts)),
	}
}

func (m *Memory) Close(context.Context) error {
	return nil
}

func (m *Memory) GetAccountByID(_ context.Context, accountID string) (models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[accountID]
	if !ok {
		return models.Account{}, ErrNotFound
	}
	return cloneAccount(a), nil
}

func (m *Memory) GetAccountByEmail(_ context.Context, email string) (models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if a.Email == email {
			return cloneAccount(a), nil
		}
	}
	return models.Account{}, ErrNotFound
}

func (m *Memory) CreateAccount(_ context.Context, na models.NewAccount) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == na.Email {
			return models.Account{}, ErrDuplicate
		}
	}
	a := models.Account{
		ID:       uuid.NewString(),
		Email:    na.Email,
		Password: na.Password,
		Name:     na.Name,
		Status:   models.DefaultStatus,
		Posts:    []string{},
	}
	m.accounts[a.ID] = a
	return cloneAccount(a), nil
}

func (m *Memory) UpdateAccountStatus(_ context.Context, accountID, status string) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok {
		return models.Account{}, ErrNotFound
	}
	a.Status = status
	m.accounts[accountID] = a
	return cloneAccount(a), nil
}

func (m *Memory) AddAccountPost(_ context.Context, accountID, postID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok {
		return ErrNotFound
	}
	if !slices.Contains(a.Posts, postID) {
		a.Posts = append(slices.Clone(a.Posts), postID)
	}
	m.accounts[accountID] = a
	return nil
}

func (m *Memory) RemoveAccountPost(_ context.Context, accountID, postID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok {
		return ErrNotFound
	}
	a.Posts = slices.DeleteFunc(slices.Clone(a.Posts), func(id string) bool { return id == postID })
	m.accounts[accountID] = a
	return nil
}

func (m *Memory) CreatePost(_ context.Context, np models.NewPost) (models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now().UTC()
	p := models.Post{
		ID:        uuid.NewString(),
		Title:     np.Title,
		Content:   np.Content,
		ImageURL:  np.ImageURL,
		CreatorID: np.CreatorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.posts[p.ID] = p
	return p, nil
}

func (m *Memory) GetPostByID(_ context.Context, postID string) (models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.posts[postID]
	if !ok {
		return models.Post{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) UpdatePost(_ context.Context, post models.Post) (models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[post.ID]
	if !ok {
		return models.Post{}, ErrNotFound
	}
	p.Title = post.Title
	p.Content = post.Content
	p.ImageURL = post.ImageURL
	p.UpdatedAt = m.now().UTC()
	m.posts[p.ID] = p
	return p, nil
}

func (m *Memory) DeletePost(_ context.Context, postID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[postID]; !ok {
		return ErrNotFound
	}
	delete(m.posts, postID)
	return nil
}

func (m *Memory) RecordUpload(_ context.Context, key, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[accountID]; !ok {
		return ErrNotFound
	}
	if _, ok := m.uploads[key]; ok {
		return ErrDuplicate
	}
	m.uploads[key] = accountID
	return nil
}

func (m *Memory) ClaimUpload(_ context.Context, key, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if owner, ok := m.uploads[key]; !ok || owner != accountID {
		return ErrNotFound
	}
	delete(m.uploads, key)
	return nil
}

func (m *Memory) ListPosts(_ context.Context, page, perPage int) ([]models.Post, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]models.Post, 0, len(m.posts))
	for _, p := range m.posts {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	start := Offset(page, perPage)
	if start >= len(all) {
		return []models.Post{}, len(all), nil
	}
	end := min(start+perPage, len(all))
	return all[start:end], len(all), nil
}

func cloneAccount(a models.Account) models.Account {
	a.Posts = slices.Clone(a.Posts)
	if a.Posts == nil {
		a.Posts = []string{}
	}
	return a
}
