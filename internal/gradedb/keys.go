package gradedb

import (
	"strings"

	"github.com/edusys/gradesystem/gradestore"
)

// Roles stored in the table, the partition key prefix is the upper cased
// role so the role is never stored redundantly.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

const (
	// SortKeyMetadata the profile record of a student, teacher or admin
	SortKeyMetadata = "METADATA"

	// GradePrefix sort key prefix of every grade record under a student
	GradePrefix = "GRADE#"

	viewPeriodPK = "SYSTEM#VIEW_PERIOD"
	viewPeriodSK = "CONFIG"
)

// ValidRole reports whether role is one of the three known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// UserKey builds the metadata key for a user of the given role.
func UserKey(role, id string) gradestore.Key {
	return gradestore.Key{
		PartitionKey: strings.ToUpper(role) + "#" + id,
		SortKey:      SortKeyMetadata,
	}
}

// GradeKey builds the key of one grade record, co-located under the owning
// student's partition and unique per subject and semester.
func GradeKey(studentID, subject, semester string) gradestore.Key {
	return gradestore.Key{
		PartitionKey: StudentPK(studentID),
		SortKey:      GradePrefix + subject + "#" + semester,
	}
}

// ViewPeriodKey the singleton view period configuration record.
func ViewPeriodKey() gradestore.Key {
	return gradestore.Key{PartitionKey: viewPeriodPK, SortKey: viewPeriodSK}
}

// StudentPK the partition key of a student and their grade records.
func StudentPK(id string) string {
	return "STUDENT#" + id
}

// ParseUserPK splits a metadata partition key into role and id, ok is false
// for partition keys which do not belong to one of the three user roles.
func ParseUserPK(pk string) (role, id string, ok bool) {
	prefix, id, found := strings.Cut(pk, "#")
	if !found {
		return "", "", false
	}

	role = strings.ToLower(prefix)
	if !ValidRole(role) {
		return "", "", false
	}

	return role, id, true
}
