package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/edusys/gradesystem/internal/auth"
	"github.com/edusys/gradesystem/internal/gradedb"
)

func newTestHandler() (*Handler, *gradedb.Memory) {
	store := gradedb.NewMemory()
	return New(store, auth.Static{}, zerolog.Nop()), store
}

func post(t *testing.T, h *Handler, body interface{}) events.APIGatewayProxyResponse {
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

func TestCreateListDeleteUser(t *testing.T) {
	h, _ := newTestHandler()

	res := post(t, h, map[string]interface{}{
		"action": "createUser",
		"user":   map[string]string{"id": "s001", "name": "Alice", "role": "student", "class": "1A"},
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = post(t, h, map[string]interface{}{
		"action": "getUsers",
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	var listing struct {
		Data  []userView `json:"data"`
		Total int        `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Body), &listing))
	require.Equal(t, 1, listing.Total)
	require.Equal(t, "s001", listing.Data[0].ID)
	require.Equal(t, "1A", listing.Data[0].Class)

	res = post(t, h, map[string]interface{}{
		"action": "deleteUser",
		"user":   map[string]string{"id": "s001", "role": "student"},
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = post(t, h, map[string]interface{}{"action": "getUsers"})
	require.NoError(t, json.Unmarshal([]byte(res.Body), &listing))
	require.Equal(t, 0, listing.Total)

	// deleting again reports the missing record
	res = post(t, h, map[string]interface{}{
		"action": "deleteUser",
		"user":   map[string]string{"id": "s001", "role": "student"},
	})
	require.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestCreateUserDuplicate(t *testing.T) {
	h, store := newTestHandler()

	res := post(t, h, map[string]interface{}{
		"action": "createUser",
		"user":   map[string]string{"id": "s001", "name": "Alice", "role": "student"},
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = post(t, h, map[string]interface{}{
		"action": "createUser",
		"user":   map[string]string{"id": "s001", "name": "Mallory", "role": "student"},
	})
	require.Equal(t, http.StatusConflict, res.StatusCode)

	// the original record survives the refused create
	meta, _, err := store.StudentRecords(context.TODO(), "s001")
	require.NoError(t, err)
	require.NotNil(t, meta)
	require.Equal(t, "Alice", meta.Name)
}

func TestCreateUserValidation(t *testing.T) {
	h, _ := newTestHandler()

	res := post(t, h, map[string]interface{}{
		"action": "createUser",
		"user":   map[string]string{"id": "s001", "role": "student"},
	})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = post(t, h, map[string]interface{}{
		"action": "createUser",
		"user":   map[string]string{"id": "x001", "name": "Xavier", "role": "principal"},
	})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestCreateTeacherSubjectDefaults(t *testing.T) {
	h, store := newTestHandler()

	res := post(t, h, map[string]interface{}{
		"action": "createUser",
		"user":   map[string]string{"id": "t001", "name": "Ms Lin", "role": "teacher", "class": "math"},
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	rec, err := store.GetTeacher(context.TODO(), "t001")
	require.NoError(t, err)
	require.Equal(t, "math", rec.Subject)
	require.Equal(t, defaultPassword, rec.Password)
}

func TestGetUsersPagination(t *testing.T) {
	h, _ := newTestHandler()

	for i := 0; i < 25; i++ {
		res := post(t, h, map[string]interface{}{
			"action": "createUser",
			"user": map[string]string{
				"id":   fmt.Sprintf("s%03d", i),
				"name": fmt.Sprintf("Student %03d", i),
				"role": "student",
			},
		})
		require.Equal(t, http.StatusOK, res.StatusCode)
	}

	seen := map[string]bool{}

	for page := 1; ; page++ {
		res := post(t, h, map[string]interface{}{
			"action": "getUsers",
			"page":   page,
			"limit":  10,
		})
		require.Equal(t, http.StatusOK, res.StatusCode)

		var listing struct {
			Data       []userView `json:"data"`
			Total      int        `json:"total"`
			TotalPages int        `json:"totalPages"`
		}
		require.NoError(t, json.Unmarshal([]byte(res.Body), &listing))
		require.Equal(t, 25, listing.Total)
		require.Equal(t, 3, listing.TotalPages)

		for _, u := range listing.Data {
			require.False(t, seen[u.ID], "user %s appeared twice", u.ID)
			seen[u.ID] = true
		}

		if page >= listing.TotalPages {
			require.Len(t, listing.Data, 5)
			break
		}
		require.Len(t, listing.Data, 10)
	}

	require.Len(t, seen, 25)
}

func TestGetUsersSearch(t *testing.T) {
	h, _ := newTestHandler()

	for _, u := range []map[string]string{
		{"id": "s001", "name": "Alice", "role": "student", "class": "1A"},
		{"id": "s002", "name": "Bob", "role": "student", "class": "1B"},
		{"id": "t001", "name": "Ms Lin", "role": "teacher", "class": "math"},
	} {
		res := post(t, h, map[string]interface{}{"action": "createUser", "user": u})
		require.Equal(t, http.StatusOK, res.StatusCode)
	}

	res := post(t, h, map[string]interface{}{"action": "getUsers", "search": "ALICE"})
	require.Equal(t, http.StatusOK, res.StatusCode)

	var listing struct {
		Data []userView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Body), &listing))
	require.Len(t, listing.Data, 1)
	require.Equal(t, "s001", listing.Data[0].ID)

	// a teacher's subject is searchable through the class column
	res = post(t, h, map[string]interface{}{"action": "getUsers", "search": "math"})
	require.NoError(t, json.Unmarshal([]byte(res.Body), &listing))
	require.Len(t, listing.Data, 1)
	require.Equal(t, "t001", listing.Data[0].ID)
}

func TestUnsupportedAction(t *testing.T) {
	h, _ := newTestHandler()

	res := post(t, h, map[string]interface{}{"action": "dropTable"})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = post(t, h, map[string]interface{}{})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestPreflight(t *testing.T) {
	h, _ := newTestHandler()

	res, err := h.Handle(context.TODO(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodOptions})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "*", res.Headers["Access-Control-Allow-Origin"])
}
