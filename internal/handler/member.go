package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ninnin76-design/sm-manager/internal/middleware"
	"github.com/ninnin76-design/sm-manager/internal/model"
	"github.com/ninnin76-design/sm-manager/internal/service"
)

type MemberHandler struct{ members *service.MemberService }

func NewMemberHandler(members *service.MemberService) *MemberHandler {
	return &MemberHandler{members: members}
}

func (h *MemberHandler) List(c *gin.Context) {
	list, err := h.members.List(c.Request.Context(), middleware.Session(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *MemberHandler) Add(c *gin.Context) {
	var req model.MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	p, err := h.members.Add(c.Request.Context(), middleware.Session(c), service.MemberInputFrom(req))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *MemberHandler) Update(c *gin.Context) {
	var req model.MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	p, err := h.members.Update(c.Request.Context(), middleware.Session(c), c.Param("id"), service.MemberInputFrom(req))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *MemberHandler) Remove(c *gin.Context) {
	if err := h.members.Remove(c.Request.Context(), middleware.Session(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Replace handles PUT /api/members with the whole roster as body.
func (h *MemberHandler) Replace(c *gin.Context) {
	var req []model.Person
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	list, err := h.members.Replace(c.Request.Context(), middleware.Session(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
