package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"salesguard/internal/adapter/http/dto"
	"salesguard/internal/adapter/http/middleware"
	"salesguard/internal/core/domain"
	"salesguard/pkg/apperror"
	"salesguard/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	dateLayout   = "2006-01-02"
	maxListLimit = 500
)

// bindJSON decodes and validates the body into req, then sanitizes it.
// On failure the error response has already been written.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, apperror.ErrPayloadTooLarge())
		} else {
			response.Error(c, apperror.Validation(err.Error()))
		}
		return false
	}
	dto.SanitizeStruct(req)
	return true
}

// actorOrAbort returns the authenticated worker or writes a 401.
func actorOrAbort(c *gin.Context) (domain.Actor, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrMissingToken())
		return domain.Actor{}, false
	}
	return actor, true
}

// uuidParam parses a path parameter or writes a 400.
func uuidParam(c *gin.Context, name, entity string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Error(c, apperror.ErrInvalidID(entity))
		return uuid.Nil, false
	}
	return id, true
}

// parseTimeQuery accepts RFC 3339 or a bare date in loc. A bare end date
// covers the whole day.
func parseTimeQuery(c *gin.Context, key string, loc *time.Location, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return nil, apperror.Validation(key + " must be YYYY-MM-DD or RFC 3339")
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}

// dateRange reads start_date and end_date.
func dateRange(c *gin.Context, loc *time.Location) (start, end *time.Time, err error) {
	if start, err = parseTimeQuery(c, "start_date", loc, false); err != nil {
		return nil, nil, err
	}
	if end, err = parseTimeQuery(c, "end_date", loc, true); err != nil {
		return nil, nil, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, apperror.Validation("end_date must not be before start_date")
	}
	return start, end, nil
}

// limitQuery reads ?limit, capped at maxListLimit. Zero means the
// repository default.
func limitQuery(c *gin.Context) (uint64, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return 0, apperror.Validation("limit must be a positive integer")
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, nil
}
