package handler

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ninnin76-design/sm-manager/internal/logger"
	"github.com/ninnin76-design/sm-manager/internal/middleware"
	"github.com/ninnin76-design/sm-manager/internal/model"
	"github.com/ninnin76-design/sm-manager/internal/service"
)

const clearTokenTTL = 5 * time.Minute

// AdminHandler runs the destructive operations behind a prepare/confirm exchange:
// prepare hands out a one-time token, confirm spends it.
type AdminHandler struct {
	schedules *service.ScheduleService
	pending   sync.Map // token -> *pendingClear
	now       func() time.Time
}

type pendingClear struct {
	scope     model.ClearScope
	createdAt time.Time
}

func NewAdminHandler(schedules *service.ScheduleService) *AdminHandler {
	return &AdminHandler{schedules: schedules, now: time.Now}
}

// Prepare handles POST /api/admin/clear/prepare.
func (h *AdminHandler) Prepare(c *gin.Context) {
	var req model.ClearPrepareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	if req.Scope != model.ClearSchedules && req.Scope != model.ClearAll {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scope must be schedules or all"})
		return
	}
	h.sweep()

	token := uuid.NewString()
	h.pending.Store(token, &pendingClear{scope: req.Scope, createdAt: h.now()})
	resp := gin.H{"token": token, "scope": req.Scope, "expiresIn": int(clearTokenTTL.Seconds())}
	if req.Scope == model.ClearAll {
		resp["phrase"] = model.ResetPhrase
	}
	c.JSON(http.StatusOK, resp)
}

// Confirm handles POST /api/admin/clear/confirm. The token is spent even when the
// phrase is wrong.
func (h *AdminHandler) Confirm(c *gin.Context) {
	var req model.ClearConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	val, ok := h.pending.LoadAndDelete(req.Token)
	if !ok || h.now().Sub(val.(*pendingClear).createdAt) > clearTokenTTL {
		c.JSON(http.StatusBadRequest, gin.H{"error": "confirmation expired, start again"})
		return
	}
	p := val.(*pendingClear)

	ctx := c.Request.Context()
	sess := middleware.Session(c)
	var err error
	switch p.scope {
	case model.ClearAll:
		if strings.TrimSpace(req.Phrase) != model.ResetPhrase {
			c.JSON(http.StatusBadRequest, gin.H{"error": "confirmation phrase does not match"})
			return
		}
		err = h.schedules.Reset(ctx, sess)
	default:
		err = h.schedules.ClearSchedules(ctx, sess)
	}
	if err != nil {
		fail(c, err)
		return
	}
	logger.Warn("admin clear confirmed", "scope", p.scope)
	c.JSON(http.StatusOK, gin.H{"scope": p.scope})
}

func (h *AdminHandler) sweep() {
	h.pending.Range(func(k, v any) bool {
		if h.now().Sub(v.(*pendingClear).createdAt) > clearTokenTTL {
			h.pending.Delete(k)
		}
		return true
	})
}
