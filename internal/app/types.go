package app

import (
	"github.com/Royleong31/Blog-APIs/internal/sdk/errs"
	"github.com/Royleong31/Blog-APIs/internal/sdk/models"
)

type SignupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type SignupResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PostRequest is the JSON form of a post body. Multipart bodies carry the
// same fields plus an "image" file.
type PostRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl"`
}

type PostsResponse struct {
	Message    string        `json:"message"`
	Posts      []models.Post `json:"posts"`
	TotalItems int           `json:"totalItems"`
}

type PostResponse struct {
	Message string          `json:"message"`
	Post    models.Post     `json:"post"`
	Creator *models.Creator `json:"creator,omitempty"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ImageResponse struct {
	Message  string `json:"message"`
	FilePath string `json:"filePath,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Message string            `json:"message"`
	Data    []errs.FieldError `json:"data,omitempty"`
}

type LivenessResponse struct {
	Status     string `json:"status"`
	Host       string `json:"host"`
	GOMAXPROCS int    `json:"gomaxprocs"`
}
