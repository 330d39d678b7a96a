package app

import (
	"net/http"

	"github.com/Royleong31/Blog-APIs/internal/sdk/middleware"
	"github.com/gin-gonic/gin"
)

func (a *App) HandleListPosts(c *gin.Context) {
	page, err := a.feed.ListPosts(c.Request.Context(), middleware.GetIdentity(c), pageParam(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, PostsResponse{
		Message:    "Fetched posts successfully.",
		Posts:      page.Posts,
		TotalItems: page.TotalItems,
	})
}

func (a *App) HandleCreatePost(c *gin.Context) {
	in, err := readPostInput(c)
	if err != nil {
		writeError(c, err)
		return
	}

	post, err := a.feed.CreatePost(c.Request.Context(), middleware.GetIdentity(c), in)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, PostResponse{
		Message: "Post created successfully!",
		Post:    post,
		Creator: &post.Creator,
	})
}

func (a *App) HandleGetPost(c *gin.Context) {
	post, err := a.feed.GetPost(c.Request.Context(), middleware.GetIdentity(c), c.Param("postId"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, PostResponse{Message: "Post fetched.", Post: post})
}

func (a *App) HandleUpdatePost(c *gin.Context) {
	in, err := readPostInput(c)
	if err != nil {
		writeError(c, err)
		return
	}

	post, err := a.feed.UpdatePost(c.Request.Context(), middleware.GetIdentity(c), c.Param("postId"), in)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, PostResponse{Message: "Post updated!", Post: post})
}

func (a *App) HandleDeletePost(c *gin.Context) {
	if err := a.feed.DeletePost(c.Request.Context(), middleware.GetIdentity(c), c.Param("postId")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Deleted post."})
}

func (a *App) HandleGetStatus(c *gin.Context) {
	status, err := a.feed.GetStatus(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, StatusResponse{Status: status})
}

func (a *App) HandleUpdateStatus(c *gin.Context) {
	var req StatusRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	if _, err := a.feed.UpdateStatus(c.Request.Context(), middleware.GetIdentity(c), req.Status); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "User updated."})
}
