package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/edusys/gradesystem/internal/gradedb"
)

type uploadResult struct {
	SuccessCount int `json:"successCount"`
	FailureCount int `json:"failureCount"`
	Failures     []struct {
		Row   map[string]string `json:"row"`
		Error string            `json:"error"`
	} `json:"failures"`
}

func seedTeacher(t *testing.T, store *gradedb.Memory) {
	t.Helper()

	err := store.CreateUser(context.TODO(), gradedb.RoleTeacher, "t001", &gradedb.UserRecord{
		Name:     "Ms Lin",
		Role:     gradedb.RoleTeacher,
		Subjects: []string{"math", "physics"},
	})
	require.NoError(t, err)
}

func postUpload(t *testing.T, h *Handler, body map[string]string) events.APIGatewayProxyResponse {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	res, err := h.Handle(context.TODO(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Body:       string(payload),
	})
	require.NoError(t, err)

	return res
}

func csvPayload(rows ...string) string {
	return base64.StdEncoding.EncodeToString([]byte(strings.Join(rows, "\n")))
}

func TestUploadCSV(t *testing.T) {
	store := gradedb.NewMemory()
	seedTeacher(t, store)

	h := New(store, false, zerolog.Nop())

	res := postUpload(t, h, map[string]string{
		"teacherId": "t001",
		"fileType":  "csv",
		"fileData": csvPayload(
			"studentId,subject,grade,semester",
			"s001,math,85,2024-1",
			"s002,math,73,2024-1",
			"s003,physics,91,2024-1",
		),
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	var result uploadResult
	require.NoError(t, json.Unmarshal([]byte(res.Body), &result))
	require.Equal(t, 3, result.SuccessCount)
	require.Equal(t, 0, result.FailureCount)

	g, ok := store.Grade("s001", "math", "2024-1")
	require.True(t, ok)
	require.Equal(t, float64(85), g.Grade)
	require.Equal(t, "t001", g.TeacherID)
	require.NotEmpty(t, g.Timestamp)
}

func TestUploadMixedRows(t *testing.T) {
	store := gradedb.NewMemory()
	seedTeacher(t, store)

	h := New(store, false, zerolog.Nop())

	res := postUpload(t, h, map[string]string{
		"teacherId": "t001",
		"fileType":  "csv",
		"fileData": csvPayload(
			"studentId,subject,grade,semester",
			"s001,math,85,2024-1",
			",math,70,2024-1",
			"s002,math,150,2024-1",
			"s003,history,88,2024-1",
			"s004,physics,64,2024-1",
		),
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	var result uploadResult
	require.NoError(t, json.Unmarshal([]byte(res.Body), &result))
	require.Equal(t, 2, result.SuccessCount)
	require.Equal(t, 3, result.FailureCount)
	require.Len(t, result.Failures, 3)

	reasons := map[string]bool{}
	for _, f := range result.Failures {
		reasons[f.Error] = true
	}
	require.True(t, reasons["missing required fields"])
	require.True(t, reasons["invalid grade"])
	require.True(t, reasons["subject not assigned to teacher"])

	// the rejected rows wrote nothing
	_, ok := store.Grade("s002", "math", "2024-1")
	require.False(t, ok)
	_, ok = store.Grade("s003", "history", "2024-1")
	require.False(t, ok)
}

func TestUploadBatchFailure(t *testing.T) {
	store := gradedb.NewMemory()
	seedTeacher(t, store)
	store.FailBatches = errors.New("provisioned throughput exceeded")

	h := New(store, false, zerolog.Nop())

	res := postUpload(t, h, map[string]string{
		"teacherId": "t001",
		"fileType":  "csv",
		"fileData": csvPayload(
			"studentId,subject,grade,semester",
			"s001,math,85,2024-1",
			"s002,math,73,2024-1",
		),
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	var result uploadResult
	require.NoError(t, json.Unmarshal([]byte(res.Body), &result))
	require.Equal(t, 0, result.SuccessCount)
	require.Equal(t, 2, result.FailureCount)
	for _, f := range result.Failures {
		require.Contains(t, f.Error, "write failed")
		require.NotEmpty(t, f.Row["studentId"])
	}
}

func TestUploadSplitsBatches(t *testing.T) {
	store := gradedb.NewMemory()
	seedTeacher(t, store)

	rows := []string{"studentId,subject,grade,semester"}
	for i := 0; i < 60; i++ {
		rows = append(rows, fmt.Sprintf("s%03d,math,%d,2024-1", i, 50+i%50))
	}

	h := New(store, false, zerolog.Nop())

	res := postUpload(t, h, map[string]string{
		"teacherId": "t001",
		"fileType":  "csv",
		"fileData":  csvPayload(rows...),
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	var result uploadResult
	require.NoError(t, json.Unmarshal([]byte(res.Body), &result))
	require.Equal(t, 60, result.SuccessCount)
	require.Equal(t, 0, result.FailureCount)

	_, ok := store.Grade("s059", "math", "2024-1")
	require.True(t, ok)
}

func TestUploadWorkbook(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	for i, record := range [][]interface{}{
		{"studentId", "subject", "grade", "semester"},
		{"s001", "math", 85, "2024-1"},
		{"s002", "physics", 91, "2024-1"},
	} {
		for j, v := range record {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	store := gradedb.NewMemory()
	seedTeacher(t, store)

	h := New(store, false, zerolog.Nop())

	res := postUpload(t, h, map[string]string{
		"teacherId": "t001",
		"fileType":  "xlsx",
		"fileData":  base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	var result uploadResult
	require.NoError(t, json.Unmarshal([]byte(res.Body), &result))
	require.Equal(t, 2, result.SuccessCount)
	require.Equal(t, 0, result.FailureCount)

	g, ok := store.Grade("s002", "physics", "2024-1")
	require.True(t, ok)
	require.Equal(t, float64(91), g.Grade)
}

func TestUploadBadRequests(t *testing.T) {
	store := gradedb.NewMemory()
	seedTeacher(t, store)

	h := New(store, false, zerolog.Nop())

	tests := []struct {
		name string
		body map[string]string
	}{
		{
			name: "missing teacherId",
			body: map[string]string{"fileType": "csv", "fileData": csvPayload("studentId,subject,grade,semester")},
		},
		{
			name: "missing fileData",
			body: map[string]string{"teacherId": "t001", "fileType": "csv"},
		},
		{
			name: "unsupported type",
			body: map[string]string{"teacherId": "t001", "fileType": "pdf", "fileData": csvPayload("x")},
		},
		{
			name: "invalid base64",
			body: map[string]string{"teacherId": "t001", "fileType": "csv", "fileData": "not base64!!"},
		},
		{
			name: "unparsable workbook",
			body: map[string]string{"teacherId": "t001", "fileType": "xlsx", "fileData": csvPayload("this is not a zip")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := postUpload(t, h, tt.body)
			require.Equal(t, http.StatusBadRequest, res.StatusCode)
		})
	}
}

func TestParseFailureDetailOnlyInDebug(t *testing.T) {
	store := gradedb.NewMemory()
	seedTeacher(t, store)

	body := map[string]string{
		"teacherId": "t001",
		"fileType":  "xlsx",
		"fileData":  csvPayload("this is not a workbook"),
	}

	res := postUpload(t, New(store, false, zerolog.Nop()), body)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.NotContains(t, res.Body, "detail")

	res = postUpload(t, New(store, true, zerolog.Nop()), body)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Contains(t, res.Body, "detail")
}
