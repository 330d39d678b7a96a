package hash

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost matches the cost the feed accounts were first hashed with.
const DefaultCost = 12

var ErrFailedToHashPassword = errors.New("failed to hash password")

type HashService struct {
	cost int
}

func NewHashService() *HashService {
	return &HashService{
		cost: DefaultCost,
	}
}

// NewHashServiceWithCost is used by tests to keep hashing cheap.
func NewHashServiceWithCost(cost int) *HashService {
	return &HashService{cost: cost}
}

func (hs *HashService) HashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hs.cost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToHashPassword, err)
	}
	return hash, nil
}

func (hs *HashService) CheckPasswordHash(password string, hash []byte) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
