package gradedb

import (
	"context"
	"errors"
	"fmt"

	dexp "github.com/aws/aws-sdk-go/service/dynamodb/expression"

	"github.com/edusys/gradesystem/gradestore"
)

// DB is the DynamoDB backed Store.
type DB struct {
	table *gradestore.Table
}

// New builds a Store over the given single table.
func New(table *gradestore.Table) *DB {
	return &DB{table: table}
}

// CreateUser inserts a metadata record using a conditional write, the
// store's native uniqueness guarantee is the only duplicate check.
func (db *DB) CreateUser(ctx context.Context, role, id string, rec *UserRecord) error {
	return db.table.CreateWithContext(ctx, UserKey(role, id), rec)
}

// DeleteUser removes a metadata record.
func (db *DB) DeleteUser(ctx context.Context, role, id string) error {
	return db.table.DeleteWithContext(ctx, UserKey(role, id))
}

// ListUsers scans the table for metadata records, paging through the scan
// with continuation tokens until it is exhausted. Records whose partition
// key is not one of the user roles (the view period singleton) are skipped.
func (db *DB) ListUsers(ctx context.Context) ([]*UserListing, error) {
	filter := dexp.Name(gradestore.DefaultSortKeyAttribute).Equal(dexp.Value(SortKeyMetadata))

	var users []*UserListing

	var startKey string

	for {
		opts := []gradestore.ReadOption{gradestore.ReadConsistentDisable()}
		if startKey != "" {
			opts = append(opts, gradestore.ReadWithStartKey(startKey))
		}

		page, err := db.table.ScanPageWithContext(ctx, filter, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}

		for _, item := range page.Items {
			role, id, ok := ParseUserPK(item.PartitionKey)
			if !ok {
				continue
			}

			listing := &UserListing{ID: id, Role: role}
			if err := item.Decode(&listing.UserRecord); err != nil {
				return nil, fmt.Errorf("failed to decode user %s: %w", item.PartitionKey, err)
			}

			users = append(users, listing)
		}

		if page.LastKey == "" {
			return users, nil
		}
		startKey = page.LastKey
	}
}

// GetTeacher fetches a teacher profile by id.
func (db *DB) GetTeacher(ctx context.Context, id string) (*UserRecord, error) {
	item, err := db.table.GetWithContext(ctx, UserKey(RoleTeacher, id))
	if err != nil {
		return nil, err
	}

	rec := new(UserRecord)
	if err := item.Decode(rec); err != nil {
		return nil, fmt.Errorf("failed to decode teacher %s: %w", id, err)
	}

	return rec, nil
}

// StudentRecords queries the student's partition and splits the metadata
// record from the grade records.
func (db *DB) StudentRecords(ctx context.Context, studentID string) (*UserRecord, []*GradeRecord, error) {
	items, err := db.table.QueryPartitionWithContext(ctx, StudentPK(studentID), "")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query student %s: %w", studentID, err)
	}

	var meta *UserRecord

	grades := []*GradeRecord{}

	for _, item := range items {
		switch {
		case item.SortKey == SortKeyMetadata:
			meta = new(UserRecord)
			if err := item.Decode(meta); err != nil {
				return nil, nil, fmt.Errorf("failed to decode student %s: %w", studentID, err)
			}
		case hasGradeKey(item.SortKey):
			g := new(GradeRecord)
			if err := item.Decode(g); err != nil {
				return nil, nil, fmt.Errorf("failed to decode grade %s: %w", item.SortKey, err)
			}
			grades = append(grades, g)
		}
	}

	return meta, grades, nil
}

// GradesBySubject scans for grade records matching the subject.
func (db *DB) GradesBySubject(ctx context.Context, subject string) ([]*GradeRecord, error) {
	filter := dexp.Name("grade").AttributeExists().
		And(dexp.Name("subject").Equal(dexp.Value(subject)))

	grades := []*GradeRecord{}

	var startKey string

	for {
		opts := []gradestore.ReadOption{gradestore.ReadConsistentDisable()}
		if startKey != "" {
			opts = append(opts, gradestore.ReadWithStartKey(startKey))
		}

		page, err := db.table.ScanPageWithContext(ctx, filter, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grades: %w", err)
		}

		for _, item := range page.Items {
			g := new(GradeRecord)
			if err := item.Decode(g); err != nil {
				return nil, fmt.Errorf("failed to decode grade %s: %w", item.SortKey, err)
			}
			grades = append(grades, g)
		}

		if page.LastKey == "" {
			return grades, nil
		}
		startKey = page.LastKey
	}
}

// StudentNames resolves display names for a set of student ids with batch
// reads rather than one lookup per student.
func (db *DB) StudentNames(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))

	keys := make([]gradestore.Key, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, UserKey(RoleStudent, id))
	}

	for len(keys) > 0 {
		chunk := keys
		if len(chunk) > gradestore.MaxBatchGetItems {
			chunk = chunk[:gradestore.MaxBatchGetItems]
		}
		keys = keys[len(chunk):]

		items, err := db.table.BatchGetWithContext(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve student names: %w", err)
		}

		for _, item := range items {
			_, id, ok := ParseUserPK(item.PartitionKey)
			if !ok {
				continue
			}

			rec := new(UserRecord)
			if err := item.Decode(rec); err != nil {
				return nil, fmt.Errorf("failed to decode student %s: %w", item.PartitionKey, err)
			}

			names[id] = rec.Name
		}
	}

	return names, nil
}

// ViewPeriod fetches the singleton view period configuration.
func (db *DB) ViewPeriod(ctx context.Context) (*ViewPeriod, error) {
	item, err := db.table.GetWithContext(ctx, ViewPeriodKey())
	if err != nil {
		return nil, err
	}

	vp := new(ViewPeriod)
	if err := item.Decode(vp); err != nil {
		return nil, fmt.Errorf("failed to decode view period: %w", err)
	}

	return vp, nil
}

// PutViewPeriod writes the singleton view period configuration.
func (db *DB) PutViewPeriod(ctx context.Context, vp *ViewPeriod) error {
	return db.table.PutWithContext(ctx, ViewPeriodKey(), vp)
}

// PutGrade writes one grade record, last write wins.
func (db *DB) PutGrade(ctx context.Context, g *GradeRecord) error {
	return db.table.PutWithContext(ctx, GradeKey(g.StudentID, g.Subject, g.Semester), g)
}

// PutGrades writes one batch of grade records.
func (db *DB) PutGrades(ctx context.Context, gs []*GradeRecord) error {
	writes := make([]gradestore.Write, 0, len(gs))
	for _, g := range gs {
		writes = append(writes, gradestore.Write{
			Key:   GradeKey(g.StudentID, g.Subject, g.Semester),
			Value: g,
		})
	}

	return db.table.BatchPutWithContext(ctx, writes)
}

// IsNotFound reports whether err is the store's missing record error.
func IsNotFound(err error) bool {
	return errors.Is(err, gradestore.ErrKeyNotFound)
}

func hasGradeKey(sortKey string) bool {
	return len(sortKey) > len(GradePrefix) && sortKey[:len(GradePrefix)] == GradePrefix
}
