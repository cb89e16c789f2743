// Package directory implements the user directory handler: listing,
// creating and deleting student, teacher and admin records.
package directory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/edusys/gradesystem/gradestore"
	"github.com/edusys/gradesystem/internal/auth"
	"github.com/edusys/gradesystem/internal/gradedb"
	"github.com/edusys/gradesystem/internal/httpapi"
)

const (
	defaultPassword = "123123" // TODO hash with bcrypt once real auth lands
	defaultLimit    = 10
	maxLimit        = 100

	placeholderName    = "unknown"
	placeholderClass   = "unassigned class"
	placeholderSubject = "unassigned subject"
)

// Handler answers the /users/manage endpoint.
type Handler struct {
	store gradedb.Store
	authn auth.Authenticator
	log   zerolog.Logger
}

// New builds the handler over the given store and authenticator.
func New(store gradedb.Store, authn auth.Authenticator, log zerolog.Logger) *Handler {
	return &Handler{store: store, authn: authn, log: log}
}

type request struct {
	Action string      `json:"action"`
	Search string      `json:"search"`
	Page   int         `json:"page"`
	Limit  int         `json:"limit"`
	User   userPayload `json:"user"`
}

type userPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Class    string `json:"class"`
	Password string `json:"password"`
}

// userView is the listing row: role and class are derived fields, a
// teacher's subject shows in the class column.
type userView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Class string `json:"class"`
}

// Handle dispatches on the action field of the request body.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := httpapi.Headers("GET,POST,PUT,DELETE,OPTIONS")

	if httpapi.IsPreflight(req) {
		return httpapi.Preflight(headers), nil
	}

	if _, err := h.authn.Authenticate(ctx, httpapi.BearerToken(req)); err != nil {
		return httpapi.Forbidden(headers, "access denied"), nil
	}

	var body request
	if err := httpapi.DecodeBody(req, &body); err != nil {
		return httpapi.BadRequest(headers, "invalid JSON body"), nil
	}

	if body.Action == "" {
		return httpapi.BadRequest(headers, "missing action"), nil
	}

	h.log.Info().Str("action", body.Action).Msg("dispatching user directory request")

	switch body.Action {
	case "getUsers":
		return h.getUsers(ctx, headers, &body), nil
	case "createUser":
		return h.createUser(ctx, headers, &body.User), nil
	case "deleteUser":
		return h.deleteUser(ctx, headers, &body.User), nil
	default:
		return httpapi.BadRequest(headers, fmt.Sprintf("unsupported action: %s", body.Action)), nil
	}
}

func (h *Handler) getUsers(ctx context.Context, headers map[string]string, body *request) events.APIGatewayProxyResponse {
	page := body.Page
	if page < 1 {
		page = 1
	}

	limit := body.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	listings, err := h.store.ListUsers(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list users")
		return httpapi.Internal(headers)
	}

	search := strings.ToLower(body.Search)

	users := make([]userView, 0, len(listings))

	for _, l := range listings {
		view := userView{ID: l.ID, Name: l.Name, Role: l.Role, Class: l.Class}
		if view.Name == "" {
			view.Name = placeholderName
		}
		if view.Class == "" {
			view.Class = l.Subject
		}

		if search != "" && !matches(view, search) {
			continue
		}

		users = append(users, view)
	}

	// names sort with locale aware collation, not byte order
	c := collate.New(language.Chinese)
	sort.SliceStable(users, func(i, j int) bool {
		return c.CompareString(users[i].Name, users[j].Name) < 0
	})

	total := len(users)
	totalPages := (total + limit - 1) / limit

	offset := (page - 1) * limit
	if offset > total {
		offset = total
	}

	end := offset + limit
	if end > total {
		end = total
	}

	return httpapi.OK(headers, map[string]interface{}{
		"success":    true,
		"data":       users[offset:end],
		"total":      total,
		"totalPages": totalPages,
	})
}

func matches(u userView, search string) bool {
	return strings.Contains(strings.ToLower(u.ID), search) ||
		strings.Contains(strings.ToLower(u.Name), search) ||
		strings.Contains(strings.ToLower(u.Class), search)
}

func (h *Handler) createUser(ctx context.Context, headers map[string]string, user *userPayload) events.APIGatewayProxyResponse {
	if user.ID == "" || user.Name == "" || user.Role == "" {
		return httpapi.BadRequest(headers, "missing required fields: id, name, role")
	}

	if !gradedb.ValidRole(user.Role) {
		return httpapi.BadRequest(headers, "role must be student, teacher or admin")
	}

	password := user.Password
	if password == "" {
		password = defaultPassword
	}

	rec := &gradedb.UserRecord{
		Name:      user.Name,
		Password:  password,
		Role:      user.Role,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	switch user.Role {
	case gradedb.RoleStudent:
		rec.Class = user.Class
		if rec.Class == "" {
			rec.Class = placeholderClass
		}
	case gradedb.RoleTeacher:
		rec.Subject = user.Class
		if rec.Subject == "" {
			rec.Subject = placeholderSubject
		}
	}

	err := h.store.CreateUser(ctx, user.Role, user.ID, rec)
	if err != nil {
		if errors.Is(err, gradestore.ErrKeyExists) {
			return httpapi.Conflict(headers, "user already exists")
		}

		h.log.Error().Err(err).Str("id", user.ID).Msg("failed to create user")
		return httpapi.Internal(headers)
	}

	return httpapi.OK(headers, map[string]interface{}{
		"success": true,
		"message": "user created",
	})
}

func (h *Handler) deleteUser(ctx context.Context, headers map[string]string, user *userPayload) events.APIGatewayProxyResponse {
	if user.ID == "" || user.Role == "" {
		return httpapi.BadRequest(headers, "delete requires id and role")
	}

	err := h.store.DeleteUser(ctx, user.Role, user.ID)
	if err != nil {
		if errors.Is(err, gradestore.ErrKeyNotFound) {
			return httpapi.NotFound(headers, "user not found")
		}

		h.log.Error().Err(err).Str("id", user.ID).Msg("failed to delete user")
		return httpapi.Internal(headers)
	}

	return httpapi.OK(headers, map[string]interface{}{
		"success": true,
		"message": "user deleted",
	})
}
