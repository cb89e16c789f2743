package gradedb

import (
	"context"
	"strings"
	"sync"

	"github.com/edusys/gradesystem/gradestore"
)

var (
	_ Store = (*DB)(nil)
	_ Store = (*Memory)(nil)
)

// Memory is an in-process Store stand-in for tests and local development,
// it mirrors the conflict and not-found semantics of the DynamoDB backed
// implementation.
type Memory struct {
	mu    sync.RWMutex
	users map[string]UserRecord // keyed by ROLE#id
	// grades keyed by studentID then GRADE#subject#semester
	grades map[string]map[string]GradeRecord
	period *ViewPeriod

	// FailBatches when non-nil makes PutGrades fail with the given error,
	// used to exercise the upload handler's batch failure accounting.
	FailBatches error
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:  make(map[string]UserRecord),
		grades: make(map[string]map[string]GradeRecord),
	}
}

func (m *Memory) CreateUser(_ context.Context, role, id string, rec *UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := UserKey(role, id).PartitionKey
	if _, ok := m.users[key]; ok {
		return gradestore.ErrKeyExists
	}

	m.users[key] = *rec

	return nil
}

func (m *Memory) DeleteUser(_ context.Context, role, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := UserKey(role, id).PartitionKey
	if _, ok := m.users[key]; !ok {
		return gradestore.ErrKeyNotFound
	}

	delete(m.users, key)

	return nil
}

func (m *Memory) ListUsers(_ context.Context) ([]*UserListing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]*UserListing, 0, len(m.users))

	for pk, rec := range m.users {
		role, id, ok := ParseUserPK(pk)
		if !ok {
			continue
		}

		users = append(users, &UserListing{ID: id, Role: role, UserRecord: rec})
	}

	return users, nil
}

func (m *Memory) GetTeacher(_ context.Context, id string) (*UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.users[UserKey(RoleTeacher, id).PartitionKey]
	if !ok {
		return nil, gradestore.ErrKeyNotFound
	}

	return &rec, nil
}

func (m *Memory) StudentRecords(_ context.Context, studentID string) (*UserRecord, []*GradeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var meta *UserRecord

	if rec, ok := m.users[UserKey(RoleStudent, studentID).PartitionKey]; ok {
		meta = &rec
	}

	grades := []*GradeRecord{}

	for _, g := range m.grades[studentID] {
		g := g
		grades = append(grades, &g)
	}

	return meta, grades, nil
}

func (m *Memory) GradesBySubject(_ context.Context, subject string) ([]*GradeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	grades := []*GradeRecord{}

	for _, byKey := range m.grades {
		for _, g := range byKey {
			if g.Subject == subject {
				g := g
				grades = append(grades, &g)
			}
		}
	}

	return grades, nil
}

func (m *Memory) StudentNames(_ context.Context, ids []string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make(map[string]string, len(ids))

	for _, id := range ids {
		if rec, ok := m.users[UserKey(RoleStudent, id).PartitionKey]; ok {
			names[id] = rec.Name
		}
	}

	return names, nil
}

func (m *Memory) ViewPeriod(_ context.Context) (*ViewPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.period == nil {
		return nil, gradestore.ErrKeyNotFound
	}

	vp := *m.period

	return &vp, nil
}

func (m *Memory) PutViewPeriod(_ context.Context, vp *ViewPeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	period := *vp
	m.period = &period

	return nil
}

func (m *Memory) PutGrade(_ context.Context, g *GradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.putGradeLocked(g)

	return nil
}

func (m *Memory) PutGrades(_ context.Context, gs []*GradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(gs) > gradestore.MaxBatchWriteItems {
		return gradestore.ErrBatchTooLarge
	}

	if m.FailBatches != nil {
		return m.FailBatches
	}

	for _, g := range gs {
		m.putGradeLocked(g)
	}

	return nil
}

// Grade returns the stored grade for one student, subject and semester,
// test helper mirroring a consistent read.
func (m *Memory) Grade(studentID, subject, semester string) (*GradeRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.grades[studentID][gradeSK(subject, semester)]
	if !ok {
		return nil, false
	}

	return &g, true
}

func (m *Memory) putGradeLocked(g *GradeRecord) {
	byKey, ok := m.grades[g.StudentID]
	if !ok {
		byKey = make(map[string]GradeRecord)
		m.grades[g.StudentID] = byKey
	}

	byKey[gradeSK(g.Subject, g.Semester)] = *g
}

func gradeSK(subject, semester string) string {
	return GradePrefix + strings.Join([]string{subject, semester}, "#")
}
