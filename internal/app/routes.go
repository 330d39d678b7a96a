// Package app provides the HTTP handlers for the feed API.
package app

import (
	"github.com/Royleong31/Blog-APIs/internal/sdk/middleware"
	"github.com/gin-gonic/gin"
)

// ----------------------------------------------------------------------------
// Route Registration
// ----------------------------------------------------------------------------

func (a *App) RegisterRoutes() *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = maxUploadSize

	// Global middleware chain
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(a.log))
	router.Use(middleware.CORS())

	// Health check routes (public)
	health := router.Group("/health")
	{
		health.GET("/readiness", a.HandleReadiness)
		health.GET("/liveness", a.HandleLiveness)
	}

	// Stored images (public)
	router.GET("/images/*key", a.HandleServeImage)

	// Live post changes (public)
	if a.socket != nil {
		router.GET("/socket", gin.WrapH(a.socket))
	}

	// Everything below knows who is calling, if anyone.
	api := router.Group("/")
	api.Use(middleware.Identify(a.verifier))
	{
		api.PUT("/signup", a.HandleSignup)
		api.POST("/login", a.HandleLogin)

		auth := api.Group("/auth")
		{
			auth.PUT("/signup", a.HandleSignup)
			auth.POST("/login", a.HandleLogin)
		}

		// Feed routes (protected - requires authentication)
		feed := api.Group("/feed")
		feed.Use(middleware.RequireIdentity())
		{
			feed.GET("/posts", a.HandleListPosts)
			feed.POST("/post", a.HandleCreatePost)
			feed.GET("/post/:postId", a.HandleGetPost)
			feed.PUT("/post/:postId", a.HandleUpdatePost)
			feed.DELETE("/post/:postId", a.HandleDeletePost)
			feed.GET("/status", a.HandleGetStatus)
			feed.PUT("/status", a.HandleUpdateStatus)
		}

		api.PUT("/post-image", middleware.RequireIdentity(), a.HandlePostImage)

		// Resolvers read the identity from the request context and reject
		// anonymous callers themselves.
		if a.graphql != nil {
			api.POST("/graphql", gin.WrapH(a.graphql))
		}
	}

	return router
}
