package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ninnin76-design/sm-manager/internal/middleware"
	"github.com/ninnin76-design/sm-manager/internal/model"
	"github.com/ninnin76-design/sm-manager/internal/service"
)

type ScheduleHandler struct{ schedules *service.ScheduleService }

func NewScheduleHandler(schedules *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

func (h *ScheduleHandler) List(c *gin.Context) {
	list, err := h.schedules.List(c.Request.Context(), middleware.Session(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get handles GET /api/schedules/:id?mode=view|edit.
func (h *ScheduleHandler) Get(c *gin.Context) {
	mode, err := service.ParseLoadMode(c.Query("mode"))
	if err != nil {
		fail(c, err)
		return
	}
	view, err := h.schedules.Load(c.Request.Context(), middleware.Session(c), c.Param("id"), mode)
	if err != nil {
		fail(c, err)
		return
	}
	if view == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ScheduleHandler) Create(c *gin.Context) {
	var req model.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	e, err := h.schedules.Create(c.Request.Context(), middleware.Session(c), service.DraftFrom(req))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *ScheduleHandler) Update(c *gin.Context) {
	var req model.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	e, err := h.schedules.Update(c.Request.Context(), middleware.Session(c), c.Param("id"), service.DraftFrom(req))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// UpdateRecord handles PATCH /api/schedules/:id/records/:personId.
func (h *ScheduleHandler) UpdateRecord(c *gin.Context) {
	var req model.RecordPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	sess := middleware.Session(c)
	e, err := h.schedules.UpdateRecord(c.Request.Context(), sess, c.Param("id"), c.Param("personId"), req.Updates()...)
	if err != nil {
		fail(c, err)
		return
	}
	e.Records = sess.VisibleRecords(*e)
	c.JSON(http.StatusOK, e)
}

func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.schedules.Delete(c.Request.Context(), middleware.Session(c), c.Param("key")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ScheduleHandler) BulkDelete(c *gin.Context) {
	var req model.BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	res, list, err := h.schedules.DeleteMany(c.Request.Context(), middleware.Session(c), req.Keys)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": res.Deleted, "failed": res.Failed, "schedules": list})
}

// Report handles GET /api/schedules/:id/report.
func (h *ScheduleHandler) Report(c *gin.Context) {
	resp, err := h.schedules.Briefing(c.Request.Context(), middleware.Session(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DraftReport handles POST /api/report over unsaved edits.
func (h *ScheduleHandler) DraftReport(c *gin.Context) {
	var req model.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	resp, err := h.schedules.DraftBriefing(c.Request.Context(), middleware.Session(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
