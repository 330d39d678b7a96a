package app

import (
	"net/http"

	"github.com/Royleong31/Blog-APIs/internal/feed"
	"github.com/gin-gonic/gin"
)

func (a *App) HandleSignup(c *gin.Context) {
	var req SignupRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	account, err := a.feed.Signup(c.Request.Context(), feed.SignupInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SignupResponse{Message: "User created!", UserID: account.ID})
}

func (a *App) HandleLogin(c *gin.Context) {
	var req LoginRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	res, err := a.feed.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
