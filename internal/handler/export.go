package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ninnin76-design/sm-manager/internal/export"
	"github.com/ninnin76-design/sm-manager/internal/logger"
	"github.com/ninnin76-design/sm-manager/internal/middleware"
	"github.com/ninnin76-design/sm-manager/internal/service"
)

type ExportHandler struct {
	schedules *service.ScheduleService
	archive   export.Archiver
}

func NewExportHandler(schedules *service.ScheduleService, archive export.Archiver) *ExportHandler {
	return &ExportHandler{schedules: schedules, archive: archive}
}

// Export renders every summary into a workbook and returns where to fetch it.
func (h *ExportHandler) Export(c *gin.Context) {
	ctx := c.Request.Context()
	list, err := h.schedules.List(ctx, middleware.Session(c))
	if err != nil {
		fail(c, err)
		return
	}
	data, err := export.Workbook(list)
	if err != nil {
		fail(c, err)
		return
	}
	name := export.FileName(time.Now())
	url, err := h.archive.Put(ctx, name, data)
	if err != nil {
		fail(c, err)
		return
	}
	logger.Info("schedules exported", "file", name, "rows", len(list))
	c.JSON(http.StatusOK, gin.H{"downloadUrl": url, "downloadTitle": name})
}

// DownloadFile serves a locally archived export once, then removes it.
func (h *ExportHandler) DownloadFile(c *gin.Context) {
	local, ok := h.archive.(*export.LocalArchiver)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	path, err := local.Open(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	c.FileAttachment(path, c.Param("name"))
	local.Remove(c.Param("name"))
}
