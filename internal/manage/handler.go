// Package manage implements the teacher scoped grade manager: subject
// listings, grade updates and the view period configuration.
package manage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"

	"github.com/edusys/gradesystem/gradestore"
	"github.com/edusys/gradesystem/internal/gradedb"
	"github.com/edusys/gradesystem/internal/httpapi"
)

// Handler answers the teacher management routes.
type Handler struct {
	store gradedb.Store
	log   zerolog.Logger
}

// New builds the handler over the given store.
func New(store gradedb.Store, log zerolog.Logger) *Handler {
	return &Handler{store: store, log: log}
}

// Handle routes on method and path, every route requires a resolved
// teacher id.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := httpapi.Headers("GET,PUT,POST,OPTIONS")

	if httpapi.IsPreflight(req) {
		return httpapi.Preflight(headers), nil
	}

	teacherID := resolveTeacherID(req)
	if teacherID == "" {
		// a missing id is an access problem, not an authentication one
		return httpapi.Forbidden(headers, "access denied: missing teacher id"), nil
	}

	h.log.Info().Str("method", req.HTTPMethod).Str("path", req.Path).Str("teacherId", teacherID).Msg("dispatching manage request")

	switch {
	case req.HTTPMethod == http.MethodGet && strings.HasPrefix(req.Path, "/teachers/"):
		return h.getSubjects(ctx, headers, req, teacherID), nil
	case req.HTTPMethod == http.MethodGet && req.Path == "/grades/subject":
		return h.getSubjectGrades(ctx, headers, req, teacherID), nil
	case req.HTTPMethod == http.MethodPost && req.Path == "/view-period":
		return h.setViewPeriod(ctx, headers, req, teacherID), nil
	case req.HTTPMethod == http.MethodPost && strings.HasPrefix(req.Path, "/teachers/"):
		return h.getTeacherInfo(ctx, headers, req, teacherID), nil
	case req.HTTPMethod == http.MethodPost && req.Path == "/grades/update":
		return h.updateGrade(ctx, headers, req, teacherID), nil
	default:
		return httpapi.NotFound(headers, "not found"), nil
	}
}

// resolveTeacherID picks the teacher id from the body, then the query
// string, then the path parameter, first non-empty wins.
func resolveTeacherID(req events.APIGatewayProxyRequest) string {
	if req.Body != "" {
		var body struct {
			TeacherID string `json:"teacherId"`
		}
		if err := json.Unmarshal([]byte(req.Body), &body); err == nil && body.TeacherID != "" {
			return body.TeacherID
		}
	}

	if id := req.QueryStringParameters["teacherId"]; id != "" {
		return id
	}

	return pathID(req)
}

func pathID(req events.APIGatewayProxyRequest) string {
	if id := req.PathParameters["id"]; id != "" {
		return id
	}

	// /teachers/t001 -> t001
	parts := strings.Split(req.Path, "/")
	if len(parts) == 3 && parts[1] == "teachers" {
		return parts[2]
	}

	return ""
}

func (h *Handler) getSubjects(ctx context.Context, headers map[string]string, req events.APIGatewayProxyRequest, teacherID string) events.APIGatewayProxyResponse {
	if pathID(req) != teacherID {
		return httpapi.Forbidden(headers, "access denied")
	}

	subjects, err := h.teacherSubjects(ctx, teacherID)
	if err != nil {
		h.log.Error().Err(err).Str("teacherId", teacherID).Msg("failed to fetch teacher subjects")
		return httpapi.Internal(headers)
	}

	return httpapi.OK(headers, map[string]interface{}{
		"teacherId": teacherID,
		"subjects":  subjects,
	})
}

func (h *Handler) getSubjectGrades(ctx context.Context, headers map[string]string, req events.APIGatewayProxyRequest, teacherID string) events.APIGatewayProxyResponse {
	subject := req.QueryStringParameters["subject"]
	if subject == "" {
		return httpapi.BadRequest(headers, "missing subject")
	}

	subjects, err := h.teacherSubjects(ctx, teacherID)
	if err != nil {
		h.log.Error().Err(err).Str("teacherId", teacherID).Msg("failed to fetch teacher subjects")
		return httpapi.Internal(headers)
	}

	if !contains(subjects, subject) {
		return httpapi.Forbidden(headers, "subject not assigned to teacher")
	}

	grades, err := h.store.GradesBySubject(ctx, subject)
	if err != nil {
		h.log.Error().Err(err).Str("subject", subject).Msg("failed to list subject grades")
		return httpapi.Internal(headers)
	}

	names, err := h.store.StudentNames(ctx, studentIDs(grades))
	if err != nil {
		h.log.Error().Err(err).Str("subject", subject).Msg("failed to resolve student names")
		return httpapi.Internal(headers)
	}

	type row struct {
		StudentID string  `json:"student_id"`
		Name      string  `json:"name"`
		Grade     float64 `json:"grade"`
		Semester  string  `json:"semester"`
		Timestamp string  `json:"timestamp"`
	}

	rows := make([]row, 0, len(grades))

	for _, g := range grades {
		name, ok := names[g.StudentID]
		if !ok || name == "" {
			name = "unknown"
		}

		rows = append(rows, row{
			StudentID: g.StudentID,
			Name:      name,
			Grade:     g.Grade,
			Semester:  g.Semester,
			Timestamp: g.Timestamp,
		})
	}

	return httpapi.OK(headers, map[string]interface{}{
		"subject": subject,
		"grades":  rows,
	})
}

func (h *Handler) setViewPeriod(ctx context.Context, headers map[string]string, req events.APIGatewayProxyRequest, teacherID string) events.APIGatewayProxyResponse {
	var body struct {
		StartTime string `json:"startTime"`
		EndTime   string `json:"endTime"`
	}
	if err := httpapi.DecodeBody(req, &body); err != nil {
		return httpapi.BadRequest(headers, "invalid JSON body")
	}

	if body.StartTime == "" || body.EndTime == "" {
		return httpapi.BadRequest(headers, "missing startTime or endTime")
	}

	vp := &gradedb.ViewPeriod{
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
		UpdatedBy: teacherID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.store.PutViewPeriod(ctx, vp); err != nil {
		h.log.Error().Err(err).Msg("failed to write view period")
		return httpapi.Internal(headers)
	}

	return httpapi.OK(headers, map[string]interface{}{
		"success": true,
		"message": "view period updated",
	})
}

func (h *Handler) getTeacherInfo(ctx context.Context, headers map[string]string, req events.APIGatewayProxyRequest, teacherID string) events.APIGatewayProxyResponse {
	if pathID(req) != teacherID {
		return httpapi.Forbidden(headers, "access denied")
	}

	var body struct {
		Action string `json:"action"`
	}
	if err := httpapi.DecodeBody(req, &body); err != nil {
		return httpapi.BadRequest(headers, "invalid JSON body")
	}

	if body.Action != "getTeacherInfo" {
		return httpapi.BadRequest(headers, "unsupported action")
	}

	rec, err := h.store.GetTeacher(ctx, teacherID)
	if err != nil {
		if errors.Is(err, gradestore.ErrKeyNotFound) {
			return httpapi.NotFound(headers, "teacher not found")
		}

		h.log.Error().Err(err).Str("teacherId", teacherID).Msg("failed to fetch teacher")
		return httpapi.Internal(headers)
	}

	return httpapi.OK(headers, map[string]interface{}{
		"teacherId": teacherID,
		"name":      rec.Name,
		"subject":   rec.Subject,
		"subjects":  subjectsOrEmpty(rec.Subjects),
		"email":     rec.Email,
	})
}

func (h *Handler) updateGrade(ctx context.Context, headers map[string]string, req events.APIGatewayProxyRequest, teacherID string) events.APIGatewayProxyResponse {
	var body struct {
		StudentID string   `json:"studentId"`
		Subject   string   `json:"subject"`
		Grade     *float64 `json:"grade"`
		Semester  string   `json:"semester"`
	}
	if err := httpapi.DecodeBody(req, &body); err != nil {
		return httpapi.BadRequest(headers, "invalid JSON body")
	}

	if body.StudentID == "" || body.Subject == "" || body.Grade == nil || body.Semester == "" {
		return httpapi.BadRequest(headers, "missing required fields: studentId, subject, grade, semester")
	}

	if *body.Grade < 0 || *body.Grade > 100 {
		return httpapi.BadRequest(headers, "grade must be between 0 and 100")
	}

	subjects, err := h.teacherSubjects(ctx, teacherID)
	if err != nil {
		h.log.Error().Err(err).Str("teacherId", teacherID).Msg("failed to fetch teacher subjects")
		return httpapi.Internal(headers)
	}

	if !contains(subjects, body.Subject) {
		return httpapi.Forbidden(headers, "subject not assigned to teacher")
	}

	grade := &gradedb.GradeRecord{
		StudentID: body.StudentID,
		Subject:   body.Subject,
		Grade:     *body.Grade,
		Semester:  body.Semester,
		TeacherID: teacherID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.store.PutGrade(ctx, grade); err != nil {
		h.log.Error().Err(err).Str("studentId", body.StudentID).Msg("failed to write grade")
		return httpapi.Internal(headers)
	}

	return httpapi.OK(headers, map[string]interface{}{
		"success":   true,
		"message":   "grade updated",
		"studentId": body.StudentID,
		"subject":   body.Subject,
		"grade":     *body.Grade,
		"semester":  body.Semester,
	})
}

// teacherSubjects returns the authorization list for grade edits, a
// missing teacher record yields an empty list rather than an error.
func (h *Handler) teacherSubjects(ctx context.Context, teacherID string) ([]string, error) {
	rec, err := h.store.GetTeacher(ctx, teacherID)
	if err != nil {
		if errors.Is(err, gradestore.ErrKeyNotFound) {
			return []string{}, nil
		}
		return nil, err
	}

	return subjectsOrEmpty(rec.Subjects), nil
}

func subjectsOrEmpty(subjects []string) []string {
	if subjects == nil {
		return []string{}
	}
	return subjects
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func studentIDs(grades []*gradedb.GradeRecord) []string {
	seen := make(map[string]struct{}, len(grades))

	ids := make([]string, 0, len(grades))

	for _, g := range grades {
		if _, ok := seen[g.StudentID]; ok {
			continue
		}
		seen[g.StudentID] = struct{}{}
		ids = append(ids, g.StudentID)
	}

	return ids
}
