package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pimonitor/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid  = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid    = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"
	errRangeInvalid = "'from' must be <= 'to'"
	errLimitInvalid = "invalid 'limit'; use a positive integer"
	errNoStorage    = "local persistence is disabled"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// parseRange reads the optional from/to query parameters. A date-only 'to' is
// the end of that day. On failure it returns the message for a 400 response.
func parseRange(c *gin.Context) (from, to time.Time, msg string) {
	var err error
	if qs := c.Query("from"); qs != "" {
		if from, err = parseQueryTime(qs); err != nil {
			return from, to, errFromInvalid
		}
	}
	if qs := c.Query("to"); qs != "" {
		if to, err = parseQueryTime(qs); err != nil {
			return from, to, errToInvalid
		}
		if isDateOnly(qs) {
			to = to.Add(24*time.Hour - time.Nanosecond).UTC()
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return from, to, errRangeInvalid
	}
	return from, to, ""
}

// storageStatus maps a repository error to a response code and message.
func storageStatus(err error, fallback string) (int, string) {
	if errors.Is(err, service.ErrPersistenceDisabled) {
		return http.StatusServiceUnavailable, errNoStorage
	}
	return http.StatusInternalServerError, fallback
}

// @Summary      List activity
// @Description  Filter the local activity log by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). If 'to' is date-only, it is treated as end-of-day inclusive.
// @Tags         logs
// @Produce      json
// @Param        from  query   string  false  "Start of range"  example(2026-03-01)
// @Param        to    query   string  false  "End of range. Date-only treated as end of day."  example(2026-03-31)
// @Param        type  query   string  false  "Event type"  Enums(DETECTION_TOGGLE,ACCESS_LOG_DELETE,ACCESS_LOG_CLEAR,SENSOR_ERROR,SENSOR_RECOVERED,POLLING_SUSPENDED,POLLING_RESUMED)
// @Success      200   {object}  map[string]interface{}  "count, events"
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/activity [get]
func (h *Handler) getActivity(c *gin.Context) {
	from, to, msg := parseRange(c)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	// Normalize event type: trim spaces and uppercase to match expected values.
	eventType := strings.ToUpper(strings.TrimSpace(c.Query("type")))

	events, err := h.services.EventLog.List(c.Request.Context(), service.LogFilter{
		From: from,
		To:   to,
		Type: eventType,
	})
	if err != nil {
		code, userMsg := storageStatus(err, "failed to load activity")
		h.logAndJSONError(c, code, userMsg, "activity_list_failed", err, "from", from, "to", to, "type", eventType)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}

// @Summary      List reading history
// @Tags         logs
// @Produce      json
// @Param        from   query   string  false  "Start of range"  example(2026-03-01)
// @Param        to     query   string  false  "End of range. Date-only treated as end of day."  example(2026-03-31)
// @Param        limit  query   int     false  "Maximum number of samples"  example(500)
// @Success      200    {object}  map[string]interface{}  "count, readings"
// @Failure      400    {object}  map[string]string
// @Failure      500    {object}  map[string]string
// @Failure      503    {object}  map[string]string
// @Router       /api/readings [get]
func (h *Handler) getReadings(c *gin.Context) {
	from, to, msg := parseRange(c)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	limit := 0
	if qs := c.Query("limit"); qs != "" {
		v, err := strconv.Atoi(qs)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": errLimitInvalid})
			return
		}
		limit = v
	}

	samples, err := h.services.ListReadings(c.Request.Context(), service.HistoryFilter{
		From:  from,
		To:    to,
		Limit: limit,
	})
	if err != nil {
		code, userMsg := storageStatus(err, "failed to load readings")
		h.logAndJSONError(c, code, userMsg, "readings_list_failed", err, "from", from, "to", to, "limit", limit)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(samples),
		"readings": samples,
	})
}

func parseQueryTime(s string) (time.Time, error) {
	// Try multiple accepted formats, normalizing to UTC.
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format %q, expected one of: "+
			"RFC3339 (e.g. 2026-03-01T15:04:05Z), "+
			"'YYYY-MM-DD HH:MM:SS', "+
			"'YYYY-MM-DD'",
		s,
	)
}
