package gradeview

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/edusys/gradesystem/internal/gradedb"
)

func seedStudent(t *testing.T, store *gradedb.Memory) {
	t.Helper()

	ctx := context.TODO()

	err := store.CreateUser(ctx, gradedb.RoleStudent, "s001", &gradedb.UserRecord{
		Name:  "Alice",
		Role:  gradedb.RoleStudent,
		Class: "1A",
	})
	require.NoError(t, err)

	err = store.PutGrade(ctx, &gradedb.GradeRecord{
		StudentID: "s001",
		Subject:   "math",
		Grade:     92,
		Semester:  "2024-1",
	})
	require.NoError(t, err)
}

func get(t *testing.T, h *Handler, studentID string) events.APIGatewayProxyResponse {
	t.Helper()

	req := events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet}
	if studentID != "" {
		req.QueryStringParameters = map[string]string{"studentId": studentID}
	}

	res, err := h.Handle(context.TODO(), req)
	require.NoError(t, err)

	return res
}

func TestGetGrades(t *testing.T) {
	store := gradedb.NewMemory()
	seedStudent(t, store)

	h := New(store, zerolog.Nop())

	res := get(t, h, "s001")
	require.Equal(t, http.StatusOK, res.StatusCode)

	var body struct {
		StudentID string `json:"studentId"`
		Name      string `json:"name"`
		Class     string `json:"class"`
		Grades    []struct {
			Subject  string  `json:"subject"`
			Grade    float64 `json:"grade"`
			Semester string  `json:"semester"`
		} `json:"grades"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Body), &body))
	require.Equal(t, "s001", body.StudentID)
	require.Equal(t, "Alice", body.Name)
	require.Equal(t, "1A", body.Class)
	require.Len(t, body.Grades, 1)
	require.Equal(t, float64(92), body.Grades[0].Grade)
}

func TestGetGradesMissingStudentID(t *testing.T) {
	h := New(gradedb.NewMemory(), zerolog.Nop())

	res := get(t, h, "")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestGetGradesUnknownStudent(t *testing.T) {
	h := New(gradedb.NewMemory(), zerolog.Nop())

	// a student with no records still gets a successful empty view
	res := get(t, h, "s999")
	require.Equal(t, http.StatusOK, res.StatusCode)

	var body struct {
		Name   string            `json:"name"`
		Grades []json.RawMessage `json:"grades"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Body), &body))
	require.Equal(t, "unknown", body.Name)
	require.Empty(t, body.Grades)
}

func TestViewPeriodGate(t *testing.T) {
	ctx := context.TODO()

	store := gradedb.NewMemory()
	seedStudent(t, store)

	h := New(store, zerolog.Nop())

	// a window in the past refuses the read
	err := store.PutViewPeriod(ctx, &gradedb.ViewPeriod{
		StartTime: "2020-01-01T00:00:00Z",
		EndTime:   "2020-01-31T23:59:59Z",
	})
	require.NoError(t, err)

	res := get(t, h, "s001")
	require.Equal(t, http.StatusForbidden, res.StatusCode)

	// a window around now allows it
	now := time.Now()
	err = store.PutViewPeriod(ctx, &gradedb.ViewPeriod{
		StartTime: now.Add(-time.Hour).Format(time.RFC3339),
		EndTime:   now.Add(time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)

	res = get(t, h, "s001")
	require.Equal(t, http.StatusOK, res.StatusCode)

	// an unparsable window fails open
	err = store.PutViewPeriod(ctx, &gradedb.ViewPeriod{StartTime: "yesterday", EndTime: "tomorrow"})
	require.NoError(t, err)

	res = get(t, h, "s001")
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	h := New(gradedb.NewMemory(), zerolog.Nop())

	res, err := h.Handle(context.TODO(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost})
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
}
