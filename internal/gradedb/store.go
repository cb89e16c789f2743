// Package gradedb maps the entities of the grade system onto the
// single-table store: students, teachers and admins keep their profile
// under ROLE#id / METADATA, grades live under the owning student's
// partition with a GRADE#subject#semester sort key, and the view period is
// a singleton configuration record.
package gradedb

import (
	"context"
)

// Store is the storage collaborator the handlers depend on. DB implements
// it over DynamoDB, Memory is the in-process stand-in used in tests.
type Store interface {
	// CreateUser inserts a metadata record, gradestore.ErrKeyExists is
	// returned when the role+id pair is already taken.
	CreateUser(ctx context.Context, role, id string, rec *UserRecord) error

	// DeleteUser removes a metadata record, gradestore.ErrKeyNotFound is
	// returned when there was none.
	DeleteUser(ctx context.Context, role, id string) error

	// ListUsers returns every metadata record in the table.
	ListUsers(ctx context.Context) ([]*UserListing, error)

	// GetTeacher fetches a teacher profile by id.
	GetTeacher(ctx context.Context, id string) (*UserRecord, error)

	// StudentRecords returns the student's metadata record (nil when
	// absent) along with all of their grade records.
	StudentRecords(ctx context.Context, studentID string) (*UserRecord, []*GradeRecord, error)

	// GradesBySubject returns every grade record for one subject across
	// all students.
	GradesBySubject(ctx context.Context, subject string) ([]*GradeRecord, error)

	// StudentNames resolves display names for a set of student ids in
	// bulk, ids without a metadata record are absent from the result.
	StudentNames(ctx context.Context, ids []string) (map[string]string, error)

	// ViewPeriod fetches the singleton view period configuration,
	// gradestore.ErrKeyNotFound when none has been set.
	ViewPeriod(ctx context.Context) (*ViewPeriod, error)

	// PutViewPeriod writes the singleton view period configuration.
	PutViewPeriod(ctx context.Context, vp *ViewPeriod) error

	// PutGrade writes one grade record, overwriting any previous grade
	// for the same student, subject and semester.
	PutGrade(ctx context.Context, g *GradeRecord) error

	// PutGrades writes one batch of grade records, the batch size is
	// bounded by the store's batch write limit and fails as a unit.
	PutGrades(ctx context.Context, gs []*GradeRecord) error
}
