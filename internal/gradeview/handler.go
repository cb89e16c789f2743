// Package gradeview implements the student facing grade reader, gated by
// the configured view period.
package gradeview

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"

	"github.com/edusys/gradesystem/gradestore"
	"github.com/edusys/gradesystem/internal/gradedb"
	"github.com/edusys/gradesystem/internal/httpapi"
)

const placeholderName = "unknown"

// Handler answers GET /grades?studentId=.
type Handler struct {
	store gradedb.Store
	log   zerolog.Logger
}

// New builds the handler over the given store.
func New(store gradedb.Store, log zerolog.Logger) *Handler {
	return &Handler{store: store, log: log}
}

type gradeView struct {
	Subject  string  `json:"subject"`
	Grade    float64 `json:"grade"`
	Semester string  `json:"semester"`
}

// Handle fetches the student's grades when the view period allows it.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := httpapi.Headers("GET,OPTIONS")

	if httpapi.IsPreflight(req) {
		return httpapi.Preflight(headers), nil
	}

	if req.HTTPMethod != http.MethodGet {
		return httpapi.NotFound(headers, "not found"), nil
	}

	studentID := req.QueryStringParameters["studentId"]
	if studentID == "" {
		return httpapi.BadRequest(headers, "missing studentId"), nil
	}

	if !h.viewPeriodActive(ctx) {
		return httpapi.Forbidden(headers, "grades are not open for viewing"), nil
	}

	meta, grades, err := h.store.StudentRecords(ctx, studentID)
	if err != nil {
		h.log.Error().Err(err).Str("studentId", studentID).Msg("failed to fetch student records")
		return httpapi.Internal(headers), nil
	}

	name := placeholderName

	var class string

	if meta != nil {
		if meta.Name != "" {
			name = meta.Name
		}
		class = meta.Class
	}

	views := make([]gradeView, 0, len(grades))
	for _, g := range grades {
		views = append(views, gradeView{Subject: g.Subject, Grade: g.Grade, Semester: g.Semester})
	}

	return httpapi.OK(headers, map[string]interface{}{
		"success":   true,
		"studentId": studentID,
		"name":      name,
		"class":     class,
		"grades":    views,
	}), nil
}

// viewPeriodActive checks the singleton window, failing open when no
// period is configured or the stored record cannot be read.
func (h *Handler) viewPeriodActive(ctx context.Context) bool {
	vp, err := h.store.ViewPeriod(ctx)
	if err != nil {
		if !errors.Is(err, gradestore.ErrKeyNotFound) {
			h.log.Warn().Err(err).Msg("failed to check view period, allowing read")
		}
		return true
	}

	start, err := time.Parse(time.RFC3339, vp.StartTime)
	if err != nil {
		h.log.Warn().Str("startTime", vp.StartTime).Msg("unparsable view period start, allowing read")
		return true
	}

	end, err := time.Parse(time.RFC3339, vp.EndTime)
	if err != nil {
		h.log.Warn().Str("endTime", vp.EndTime).Msg("unparsable view period end, allowing read")
		return true
	}

	now := time.Now()

	return !now.Before(start) && !now.After(end)
}
