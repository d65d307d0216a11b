package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ninnin76-design/sm-manager/internal/logger"
	"github.com/ninnin76-design/sm-manager/internal/middleware"
	"github.com/ninnin76-design/sm-manager/internal/model"
	"github.com/ninnin76-design/sm-manager/internal/service"
)

const loginRejected = "올바르지 않은 구역번호 또는 비밀번호입니다."

type AuthHandler struct {
	auth   *service.AuthService
	tokens *middleware.Tokens
}

func NewAuthHandler(auth *service.AuthService, tokens *middleware.Tokens) *AuthHandler {
	return &AuthHandler{auth: auth, tokens: tokens}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": loginRejected})
		return
	}

	sess, err := h.auth.Login(c.Request.Context(), req.Credential)
	if err != nil {
		logger.Warn("login.failed", "ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": loginRejected})
		return
	}
	logger.Info("login.ok", "role", sess.Role, "pid", sess.PersonID)

	token, err := h.tokens.Issue(sess)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model.LoginResponse{Token: token, User: sess.User()})
}

// Me echoes the caller's session.
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.Session(c).User())
}
