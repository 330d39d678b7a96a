package middleware

import (
	"context"

	"github.com/Royleong31/Blog-APIs/internal/sdk/errs"
	"github.com/Royleong31/Blog-APIs/internal/sdk/jwt"
	"github.com/gin-gonic/gin"
)

const (
	// IdentityKey is the gin context key holding the request's jwt.Identity.
	IdentityKey = "identity"

	// VerifyErrorKey holds the reason a presented token was not accepted.
	VerifyErrorKey = "identity_error"
)

type identityContextKey struct{}

// Verifier turns an Authorization header into an identity.
type Verifier interface {
	Verify(authHeader string) (jwt.Identity, error)
}

// Identify verifies the Authorization header once per request. Requests
// without a usable token continue as anonymous, so login and signup still
// work with a stale token; routes that need a caller add RequireIdentity.
func Identify(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := v.Verify(c.GetHeader("Authorization"))
		if err != nil {
			identity = jwt.Identity{}
			c.Set(VerifyErrorKey, err)
		}

		c.Set(IdentityKey, identity)
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), identity))
		c.Next()
	}
}

// RequireIdentity rejects anonymous requests. It must run after Identify.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetIdentity(c).Anonymous() {
			abort(c, errs.Newf(errs.Unauthenticated, "Not authenticated"))
			return
		}
		c.Next()
	}
}

// VerifyError returns why the request's token was rejected, or nil.
func VerifyError(c *gin.Context) error {
	v, exists := c.Get(VerifyErrorKey)
	if !exists {
		return nil
	}
	err, _ := v.(error)
	return err
}

// GetIdentity returns the identity stored by Identify, or the anonymous
// identity.
func GetIdentity(c *gin.Context) jwt.Identity {
	v, exists := c.Get(IdentityKey)
	if !exists {
		return jwt.Identity{}
	}
	identity, _ := v.(jwt.Identity)
	return identity
}

// WithIdentity attaches identity to ctx for handlers that only see the
// request context, such as GraphQL resolvers.
func WithIdentity(ctx context.Context, identity jwt.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext returns the identity attached by WithIdentity.
func IdentityFromContext(ctx context.Context) jwt.Identity {
	identity, _ := ctx.Value(identityContextKey{}).(jwt.Identity)
	return identity
}

func abort(c *gin.Context, e *errs.Error) {
	c.AbortWithStatusJSON(e.HTTPStatus(), gin.H{"message": e.Message})
}
