package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"asthma_shield/internal/service"

	"github.com/gin-gonic/gin"
)

var queryTimeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", time.DateOnly}

// parseQueryTime accepts the layouts in queryTimeLayouts. Results are UTC.
// dateOnly reports whether s carried no time of day.
func parseQueryTime(s string) (t time.Time, dateOnly bool, err error) {
	for _, layout := range queryTimeLayouts {
		if t, err = time.Parse(layout, s); err == nil {
			return t.UTC(), layout == time.DateOnly, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("invalid time %q; use RFC3339, 'YYYY-MM-DD HH:MM:SS' or YYYY-MM-DD", s)
}

// parseLogFilter reads from, to, type and limit. A date-only 'to' covers
// the whole day.
func parseLogFilter(c *gin.Context) (service.LogFilter, error) {
	var f service.LogFilter
	if s := c.Query("from"); s != "" {
		t, _, err := parseQueryTime(s)
		if err != nil {
			return f, fmt.Errorf("from: %w", err)
		}
		f.From = t
	}
	if s := c.Query("to"); s != "" {
		t, dateOnly, err := parseQueryTime(s)
		if err != nil {
			return f, fmt.Errorf("to: %w", err)
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = t
	}
	f.Type = strings.TrimSpace(c.Query("type"))
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return f, fmt.Errorf("limit: %w", service.ErrInvalidLimit)
		}
		f.Limit = n
	}
	return f, nil
}

// @Summary      List audit events
// @Description  Events oldest first. 'to' given as a bare date includes that whole day. 'limit' keeps only the newest N events.
// @Tags         logs
// @Produce      json
// @Param        from   query   string  false  "Start of range (RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD')"  example(2026-08-01)
// @Param        to     query   string  false  "End of range, same formats"  example(2026-08-31)
// @Param        type   query   string  false  "Event type"  Enums(COMMAND,COMMAND_FAILED,SEQUENCE_STARTED,SEQUENCE_COMPLETED,SEQUENCE_FAILED,SEQUENCE_REJECTED,STATE_UPDATE)
// @Param        limit  query   int     false  "Newest N events (max 1000)"
// @Success      200   {object}  map[string]interface{}  "count, events"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/logs [get]
// @Security     BearerAuth
func (h *Handler) getLogs(c *gin.Context) {
	f, err := parseLogFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, err := h.services.EventLog.List(c.Request.Context(), f)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"count": len(events), "events": events})
	case errors.Is(err, service.ErrInvalidTimeRange),
		errors.Is(err, service.ErrUnknownEventType),
		errors.Is(err, service.ErrInvalidLimit):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load logs", "logs_list_failed", err,
			"from", f.From, "to", f.To, "type", f.Type)
	}
}
