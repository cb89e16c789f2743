package gradedb

// UserRecord is the metadata record of a student, teacher or admin. The
// role specific attributes (class, subject, subjects, email) are simply
// absent for the roles which do not carry them.
type UserRecord struct {
	Name      string   `dynamodbav:"name" json:"name"`
	Password  string   `dynamodbav:"password,omitempty" json:"-"`
	Role      string   `dynamodbav:"role" json:"role"`
	Class     string   `dynamodbav:"class,omitempty" json:"class,omitempty"`
	Subject   string   `dynamodbav:"subject,omitempty" json:"subject,omitempty"`
	Subjects  []string `dynamodbav:"subjects,omitempty" json:"subjects,omitempty"`
	Email     string   `dynamodbav:"email,omitempty" json:"email,omitempty"`
	Timestamp string   `dynamodbav:"timestamp" json:"timestamp"`
}

// UserListing pairs a metadata record with the role and id recovered from
// its partition key.
type UserListing struct {
	ID   string
	Role string
	UserRecord
}

// GradeRecord is one grade, co-located under the owning student.
type GradeRecord struct {
	StudentID string  `dynamodbav:"student_id" json:"student_id"`
	Subject   string  `dynamodbav:"subject" json:"subject"`
	Grade     float64 `dynamodbav:"grade" json:"grade"`
	Semester  string  `dynamodbav:"semester" json:"semester"`
	TeacherID string  `dynamodbav:"teacherId" json:"teacherId"`
	Timestamp string  `dynamodbav:"timestamp" json:"timestamp"`
}

// ViewPeriod is the singleton window outside which student grade reads are
// refused, times are stored as RFC 3339 strings.
type ViewPeriod struct {
	StartTime string `dynamodbav:"startTime" json:"startTime"`
	EndTime   string `dynamodbav:"endTime" json:"endTime"`
	UpdatedBy string `dynamodbav:"updatedBy" json:"updatedBy"`
	Timestamp string `dynamodbav:"timestamp" json:"timestamp"`
}
