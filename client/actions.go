package client

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
)

// User is one directory entry, class carries a teacher's subject.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Class string `json:"class"`
}

// UserPage is one page of directory entries.
type UserPage struct {
	Data       []User `json:"data"`
	Total      int    `json:"total"`
	TotalPages int    `json:"totalPages"`
}

// GetUsers lists users with optional substring search and pagination.
func (c *Client) GetUsers(ctx context.Context, search string, page, limit int) (*UserPage, error) {
	out := new(UserPage)

	err := c.do(ctx, http.MethodPost, "/users/manage", map[string]interface{}{
		"action": "getUsers",
		"search": search,
		"page":   page,
		"limit":  limit,
	}, false, out)
	if err != nil {
		return nil, err
	}

	return out, nil
}

// NewUser carries the fields of a directory create.
type NewUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Class    string `json:"class,omitempty"`
	Password string `json:"password,omitempty"`
}

// CreateUser creates a student, teacher or admin record.
func (c *Client) CreateUser(ctx context.Context, user NewUser) error {
	return c.do(ctx, http.MethodPost, "/users/manage", map[string]interface{}{
		"action": "createUser",
		"user":   user,
	}, false, nil)
}

// DeleteUser removes a user record by id and role.
func (c *Client) DeleteUser(ctx context.Context, id, role string) error {
	return c.do(ctx, http.MethodPost, "/users/manage", map[string]interface{}{
		"action": "deleteUser",
		"user":   map[string]string{"id": id, "role": role},
	}, false, nil)
}

// Login authenticates without a stored token, any previously stored
// credential is discarded first.
func (c *Client) Login(ctx context.Context, id, password string) (map[string]interface{}, error) {
	c.tokens.Clear()

	out := map[string]interface{}{}

	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]interface{}{
		"action":   "login",
		"id":       id,
		"password": password,
	}, true, &out)
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Grade is one grade of a student.
type Grade struct {
	Subject  string  `json:"subject"`
	Grade    float64 `json:"grade"`
	Semester string  `json:"semester"`
}

// StudentGrades is the grade view of one student.
type StudentGrades struct {
	StudentID string  `json:"studentId"`
	Name      string  `json:"name"`
	Class     string  `json:"class"`
	Grades    []Grade `json:"grades"`
}

// GetGrades fetches a student's own grades, refused outside the
// configured view period.
func (c *Client) GetGrades(ctx context.Context, studentID string) (*StudentGrades, error) {
	out := new(StudentGrades)

	endpoint := "/grades?studentId=" + url.QueryEscape(studentID)

	if err := c.do(ctx, http.MethodGet, endpoint, nil, false, out); err != nil {
		return nil, err
	}

	return out, nil
}

// TeacherInfo is the full teacher profile.
type TeacherInfo struct {
	TeacherID string   `json:"teacherId"`
	Name      string   `json:"name"`
	Subject   string   `json:"subject"`
	Subjects  []string `json:"subjects"`
	Email     string   `json:"email"`
}

// GetTeacherInfo fetches the caller's own profile.
func (c *Client) GetTeacherInfo(ctx context.Context, teacherID string) (*TeacherInfo, error) {
	out := new(TeacherInfo)

	err := c.do(ctx, http.MethodPost, "/teachers/"+url.PathEscape(teacherID), map[string]interface{}{
		"action":    "getTeacherInfo",
		"teacherId": teacherID,
	}, false, out)
	if err != nil {
		return nil, err
	}

	return out, nil
}

// GetTeacherSubjects fetches the caller's subject list.
func (c *Client) GetTeacherSubjects(ctx context.Context, teacherID string) ([]string, error) {
	var out struct {
		Subjects []string `json:"subjects"`
	}

	endpoint := "/teachers/" + url.PathEscape(teacherID)

	err := c.do(ctx, http.MethodGet, endpoint, map[string]interface{}{
		"teacherId": teacherID,
	}, false, &out)
	if err != nil {
		return nil, err
	}

	return out.Subjects, nil
}

// SubjectGrade is one row of a subject listing.
type SubjectGrade struct {
	StudentID string  `json:"student_id"`
	Name      string  `json:"name"`
	Grade     float64 `json:"grade"`
	Semester  string  `json:"semester"`
	Timestamp string  `json:"timestamp"`
}

// SubjectGrades is the listing of every grade for one subject.
type SubjectGrades struct {
	Subject string         `json:"subject"`
	Grades  []SubjectGrade `json:"grades"`
}

// GetSubjectGrades lists all grades of one of the teacher's subjects.
func (c *Client) GetSubjectGrades(ctx context.Context, teacherID, subject string) (*SubjectGrades, error) {
	out := new(SubjectGrades)

	err := c.do(ctx, http.MethodGet, "/grades/subject", map[string]interface{}{
		"teacherId": teacherID,
		"subject":   subject,
	}, false, out)
	if err != nil {
		return nil, err
	}

	return out, nil
}

// SetViewPeriod configures the window during which students may read
// their grades.
func (c *Client) SetViewPeriod(ctx context.Context, teacherID, startTime, endTime string) error {
	return c.do(ctx, http.MethodPost, "/view-period", map[string]interface{}{
		"action":    "setViewPeriod",
		"teacherId": teacherID,
		"startTime": startTime,
		"endTime":   endTime,
	}, false, nil)
}

// UpdateGrade writes one grade for a student in one of the teacher's
// subjects.
func (c *Client) UpdateGrade(ctx context.Context, teacherID, studentID, subject string, grade float64, semester string) error {
	return c.do(ctx, http.MethodPost, "/grades/update", map[string]interface{}{
		"teacherId": teacherID,
		"studentId": studentID,
		"subject":   subject,
		"grade":     grade,
		"semester":  semester,
	}, false, nil)
}

// UploadResult reports the outcome of a bulk upload.
type UploadResult struct {
	SuccessCount int `json:"successCount"`
	FailureCount int `json:"failureCount"`
	Failures     []struct {
		Row   map[string]string `json:"row"`
		Error string            `json:"error"`
	} `json:"failures"`
}

// UploadGrades base64 encodes the file contents and submits them for
// batch insertion, the file type is inferred from the name.
func (c *Client) UploadGrades(ctx context.Context, teacherID, filename string, contents []byte) (*UploadResult, error) {
	fileType := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")

	switch fileType {
	case "csv", "xlsx", "xls":
	default:
		return nil, &APIError{Message: "unsupported file type: " + fileType}
	}

	out := new(UploadResult)

	err := c.do(ctx, http.MethodPost, "/grades/upload", map[string]interface{}{
		"action":    "uploadGrades",
		"teacherId": teacherID,
		"fileData":  base64.StdEncoding.EncodeToString(contents),
		"fileType":  fileType,
	}, false, out)
	if err != nil {
		return nil, err
	}

	return out, nil
}
