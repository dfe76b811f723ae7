package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"pimonitor"
	"pimonitor/internal/bus"
	"pimonitor/internal/service"
	"pimonitor/internal/view"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK          = "ok"
	statusUnreachable = "unreachable"

	errBackend          = "backend request failed"
	errToggleInProgress = "a detection toggle is already in progress"
	errMediaUnavailable = "media proxy is not configured"
	errRenderFailed     = "failed to render dashboard"

	healthProbeTimeout = 3 * time.Second
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// backendStatus maps a service error to the HTTP status returned to the browser.
func backendStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrToggleInProgress):
		return http.StatusConflict
	case errors.Is(err, pimonitor.ErrUnknownDetectionKey):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// StateResponse is the JSON form of the dashboard.
type StateResponse struct {
	service.DashboardState
	// Expanded is the id of the open access log entry, if any.
	Expanded string `json:"expanded,omitempty"`
}

func (h *Handler) currentState() StateResponse {
	return StateResponse{
		DashboardState: h.services.Snapshot(),
		Expanded:       h.expansion.Current(),
	}
}

// @Summary      Health check
// @Description  Daemon status plus a probe of the backend /health endpoint
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	resp := gin.H{"status": statusOK}
	if h.services.Health == nil {
		c.JSON(http.StatusOK, resp)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthProbeTimeout)
	defer cancel()
	backend, err := h.services.BackendHealth(ctx)
	if err != nil {
		h.log.Warnw("backend_health_failed", "err", err)
		resp["backend"] = gin.H{"status": statusUnreachable, "error": err.Error()}
	} else {
		resp["backend"] = backend
	}
	c.JSON(http.StatusOK, resp)
}

// index renders the full dashboard page.
func (h *Handler) index(c *gin.Context) {
	st := h.currentState()
	c.HTML(http.StatusOK, "page", view.BuildPage(st.DashboardState, st.Expanded))
}

// @Summary      Get dashboard state
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  StateResponse
// @Router       /api/state [get]
func (h *Handler) getState(c *gin.Context) {
	c.JSON(http.StatusOK, h.currentState())
}

// @Summary      Refresh the sensor reading
// @Description  Fetches /reading now; the reading timer keeps its schedule
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  service.ReadingState
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}  "error, reading"
// @Router       /api/reading/refresh [post]
// @Security     BearerAuth
func (h *Handler) refreshReading(c *gin.Context) {
	st, err := h.services.RefreshReading(c.Request.Context())
	if err != nil {
		h.log.Infow("reading_refresh_failed", "err", err)
		c.JSON(backendStatus(err), gin.H{"error": st.Error, "reading": st})
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Toggle a detection flag
// @Tags         dashboard
// @Produce      json
// @Param        key  path  string  true  "Detection toggle"  Enums(faces,objects)
// @Success      200  {object}  pimonitor.DetectionStatus
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/detection/{key}/toggle [post]
// @Security     BearerAuth
func (h *Handler) toggleDetection(c *gin.Context) {
	key, err := pimonitor.ParseDetectionKey(c.Param("key"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, err := h.services.ToggleDetection(c.Request.Context(), key)
	if err != nil {
		code := backendStatus(err)
		msg := errBackend
		if code == http.StatusConflict {
			msg = errToggleInProgress
		}
		h.logAndJSONError(c, code, msg, "detection_toggle_failed", err, "key", key)
		return
	}
	c.JSON(http.StatusOK, status)
}

// @Summary      Play or pause the camera stream
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  service.StreamState
// @Failure      401  {object}  map[string]string
// @Router       /api/stream/toggle [post]
// @Security     BearerAuth
func (h *Handler) toggleStream(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.ToggleStream())
}

// @Summary      Refresh the access log
// @Tags         access-logs
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, entries"
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/access-logs/refresh [post]
// @Security     BearerAuth
func (h *Handler) refreshAccessLogs(c *gin.Context) {
	entries, err := h.services.RefreshAccessLogs(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, backendStatus(err), errBackend, "access_logs_refresh_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(entries),
		"entries": entries,
	})
}

// @Summary      Delete one access log entry
// @Tags         access-logs
// @Produce      json
// @Param        id   path  string  true  "Entry id"
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/access-logs/{id} [delete]
// @Security     BearerAuth
func (h *Handler) deleteAccessLog(c *gin.Context) {
	id := c.Param("id")
	if err := h.services.DeleteAccessLog(c.Request.Context(), id); err != nil {
		h.logAndJSONError(c, backendStatus(err), errBackend, "access_log_delete_failed", err, "id", id)
		return
	}
	h.expansion.Forget(id)
	h.services.Announce(bus.EventExpansion, h.expansion.Current())
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// @Summary      Delete every access log entry
// @Tags         access-logs
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/access-logs [delete]
// @Security     BearerAuth
func (h *Handler) clearAccessLogs(c *gin.Context) {
	if err := h.services.ClearAccessLogs(c.Request.Context()); err != nil {
		h.logAndJSONError(c, backendStatus(err), errBackend, "access_logs_clear_failed", err)
		return
	}
	h.expansion.Reset()
	h.services.Announce(bus.EventExpansion, "")
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

// @Summary      Expand or collapse an access log entry
// @Description  At most one entry is open; opening another collapses the previous one
// @Tags         access-logs
// @Produce      json
// @Param        id   path  string  true  "Entry id"
// @Success      200  {object}  map[string]string  "expanded"
// @Router       /api/access-logs/{id}/expand [post]
func (h *Handler) expandAccessLog(c *gin.Context) {
	id := h.expansion.Toggle(c.Param("id"))
	h.services.Announce(bus.EventExpansion, id)
	c.JSON(http.StatusOK, gin.H{"expanded": id})
}

// proxyMedia forwards the stream, snapshot and image requests to the backend.
func (h *Handler) proxyMedia(c *gin.Context) {
	if h.media == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errMediaUnavailable})
		return
	}
	h.media.ServeHTTP(c.Writer, c.Request)
}
