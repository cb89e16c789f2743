// Package upload implements the bulk grade upload handler: a base64
// encoded CSV or spreadsheet payload is decoded, validated row by row and
// written in store sized batches.
package upload

import (
	"context"
	"encoding/base64"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"

	"github.com/edusys/gradesystem/gradestore"
	"github.com/edusys/gradesystem/internal/gradedb"
	"github.com/edusys/gradesystem/internal/httpapi"
)

// Handler answers POST /grades/upload.
type Handler struct {
	store gradedb.Store
	debug bool
	log   zerolog.Logger
}

// New builds the handler, debug controls whether failure detail reaches
// the response.
func New(store gradedb.Store, debug bool, log zerolog.Logger) *Handler {
	return &Handler{store: store, debug: debug, log: log}
}

type request struct {
	TeacherID string `json:"teacherId"`
	FileData  string `json:"fileData"`
	FileType  string `json:"fileType"`
}

// failure echoes the offending row back with the reason it was rejected.
type failure struct {
	Row   row    `json:"row"`
	Error string `json:"error"`
}

// Handle decodes, parses and writes the uploaded grade rows.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := httpapi.Headers("POST,OPTIONS")

	if httpapi.IsPreflight(req) {
		return httpapi.Preflight(headers), nil
	}

	if req.HTTPMethod != http.MethodPost {
		return httpapi.NotFound(headers, "not found"), nil
	}

	var body request
	if err := httpapi.DecodeBody(req, &body); err != nil {
		return httpapi.BadRequest(headers, "invalid JSON body"), nil
	}

	if body.TeacherID == "" {
		return httpapi.BadRequest(headers, "missing teacherId"), nil
	}
	if body.FileData == "" {
		return httpapi.BadRequest(headers, "missing fileData"), nil
	}

	switch body.FileType {
	case "csv", "xlsx", "xls":
	default:
		return httpapi.BadRequest(headers, "unsupported file type"), nil
	}

	data, err := base64.StdEncoding.DecodeString(body.FileData)
	if err != nil {
		return httpapi.BadRequest(headers, "invalid base64 payload"), nil
	}

	var rows []row

	if body.FileType == "csv" {
		rows, err = parseCSV(data)
	} else {
		rows, err = parseWorkbook(data)
	}
	if err != nil {
		h.log.Warn().Err(err).Str("fileType", body.FileType).Msg("failed to parse upload")
		return h.parseFailure(headers, err), nil
	}

	subjects, err := h.teacherSubjects(ctx, body.TeacherID)
	if err != nil {
		h.log.Error().Err(err).Str("teacherId", body.TeacherID).Msg("failed to fetch teacher subjects")
		return httpapi.Internal(headers), nil
	}

	successCount, failures := h.writeRows(ctx, body.TeacherID, subjects, rows)

	h.log.Info().Int("success", successCount).Int("failed", len(failures)).Msg("processed grade upload")

	return httpapi.OK(headers, map[string]interface{}{
		"successCount": successCount,
		"failureCount": len(failures),
		"failures":     failures,
	}), nil
}

// writeRows validates each row, then writes the valid ones in batches of
// the store limit. A failed batch marks all of its rows failed and the
// remaining batches still run.
func (h *Handler) writeRows(ctx context.Context, teacherID string, subjects []string, rows []row) (int, []failure) {
	failures := []failure{}

	now := time.Now().UTC().Format(time.RFC3339)

	var (
		grades  []*gradedb.GradeRecord
		sources []row
	)

	for _, r := range rows {
		grade, reason := validateRow(r, subjects)
		if reason != "" {
			failures = append(failures, failure{Row: r, Error: reason})
			continue
		}

		grade.TeacherID = teacherID
		grade.Timestamp = now

		grades = append(grades, grade)
		sources = append(sources, r)
	}

	var successCount int

	for start := 0; start < len(grades); start += gradestore.MaxBatchWriteItems {
		end := start + gradestore.MaxBatchWriteItems
		if end > len(grades) {
			end = len(grades)
		}

		if err := h.store.PutGrades(ctx, grades[start:end]); err != nil {
			h.log.Error().Err(err).Int("batch", start/gradestore.MaxBatchWriteItems).Msg("batch write failed")

			for _, src := range sources[start:end] {
				failures = append(failures, failure{Row: src, Error: "write failed: " + err.Error()})
			}
			continue
		}

		successCount += end - start
	}

	return successCount, failures
}

// validateRow checks the required fields, the grade range and the subject
// authorization, returning the record or a rejection reason.
func validateRow(r row, subjects []string) (*gradedb.GradeRecord, string) {
	studentID := r["studentId"]
	subject := r["subject"]
	semester := r["semester"]
	rawGrade := r["grade"]

	if studentID == "" || subject == "" || semester == "" || rawGrade == "" {
		return nil, "missing required fields"
	}

	grade, err := strconv.ParseFloat(rawGrade, 64)
	if err != nil || grade < 0 || grade > 100 {
		return nil, "invalid grade"
	}

	if !contains(subjects, subject) {
		return nil, "subject not assigned to teacher"
	}

	return &gradedb.GradeRecord{
		StudentID: studentID,
		Subject:   subject,
		Grade:     grade,
		Semester:  semester,
	}, ""
}

func (h *Handler) teacherSubjects(ctx context.Context, teacherID string) ([]string, error) {
	rec, err := h.store.GetTeacher(ctx, teacherID)
	if err != nil {
		if gradedb.IsNotFound(err) {
			return []string{}, nil
		}
		return nil, err
	}

	return rec.Subjects, nil
}

// parseFailure reports a parse error, with detail only in debug mode.
func (h *Handler) parseFailure(headers map[string]string, err error) events.APIGatewayProxyResponse {
	if h.debug {
		return httpapi.JSON(http.StatusBadRequest, headers, map[string]string{
			"error":  "failed to parse file",
			"detail": err.Error(),
		})
	}

	return httpapi.BadRequest(headers, "failed to parse file")
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
