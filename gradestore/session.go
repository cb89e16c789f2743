package gradestore

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

// Session wraps the DynamoDB service used by all tables.
type Session struct {
	dynamodbiface.DynamoDBAPI
}

// New construct a DynamoDB backed store with default session / service
func New(cfgs ...*aws.Config) *Session {
	sess := session.Must(session.NewSession(cfgs...))
	dynamoSvc := dynamodb.New(sess)

	return &Session{dynamoSvc}
}

// NewWithClient construct a store using the provided DynamoDB client,
// typically used in tests or where the caller manages the AWS session.
func NewWithClient(dynamoSvc dynamodbiface.DynamoDBAPI) *Session {
	return &Session{dynamoSvc}
}

// Table returns an accessor for the named single-entity table.
func (ds *Session) Table(tableName string) *Table {
	return &Table{session: ds, tableName: tableName}
}
