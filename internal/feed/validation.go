package feed

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/Royleong31/Blog-APIs/internal/sdk/errs"
	"github.com/Royleong31/Blog-APIs/internal/services/blob"
)

const (
	minTitleLength    = 5
	minContentLength  = 5
	minPasswordLength = 5

	// keepImage is what browser clients send when no new file was picked.
	keepImage = "undefined"
)

var (
	errNotAuthenticated = errs.Newf(errs.Unauthenticated, "Not authenticated")
	errForbidden        = errs.Newf(errs.Forbidden, "Not authorized")
	errPostNotFound     = errs.Newf(errs.NotFound, "Could not find post")
	errUserNotFound     = errs.Newf(errs.NotFound, "User not found")
	errInvalidUser      = errs.Newf(errs.Unauthenticated, "Invalid user")
	errInvalidLogin     = errs.Newf(errs.Unauthenticated, "Invalid email or password")
	errEmailTaken       = errs.Newf(errs.Conflict, "E-Mail address already exists")

	errImageUnavailable = errs.Invalid(validationMessage, []errs.FieldError{
		{Field: "image", Message: "Image is not available"},
	})
)

const validationMessage = "Validation failed, entered data is incorrect"

type violations []errs.FieldError

func (v *violations) add(field, message string) {
	*v = append(*v, errs.FieldError{Field: field, Message: message})
}

// err returns every collected violation at once, or nil.
func (v violations) err() error {
	if len(v) == 0 {
		return nil
	}
	return errs.Invalid(validationMessage, v)
}

func tooShort(s string, min int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) < min
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateSignup(in SignupInput) error {
	var v violations
	if _, err := mail.ParseAddress(in.Email); err != nil || strings.ContainsAny(in.Email, " <>") {
		v.add("email", "E-Mail is invalid")
	}
	if tooShort(in.Password, minPasswordLength) {
		v.add("password", "Password is too short")
	}
	if strings.TrimSpace(in.Name) == "" {
		v.add("name", "Name is required")
	}
	return v.err()
}

func validateLogin(email, password string) error {
	var v violations
	if strings.TrimSpace(email) == "" {
		v.add("email", "E-Mail is required")
	}
	if password == "" {
		v.add("password", "Password is required")
	}
	return v.err()
}

func validateStatus(status string) error {
	var v violations
	if strings.TrimSpace(status) == "" {
		v.add("status", "Status must not be empty")
	}
	return v.err()
}

// validatePost checks the fields shared by create and update. requireImage
// is set on create, where a post without an image is rejected.
func validatePost(in PostInput, requireImage bool) error {
	var v violations
	if tooShort(in.Title, minTitleLength) {
		v.add("title", "Title is invalid")
	}
	if tooShort(in.Content, minContentLength) {
		v.add("content", "Content is invalid")
	}

	if key, ok := in.imageKey(); ok && !blob.ValidKey(key) {
		v.add("image", "Image path is invalid")
	} else if requireImage && !in.hasImage() {
		v.add("image", "No image provided")
	}
	return v.err()
}
