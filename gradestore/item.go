package gradestore

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
)

const (
	// DefaultPartitionKeyAttribute attribute which stores the partition key
	DefaultPartitionKeyAttribute = "PK"

	// DefaultSortKeyAttribute attribute which stores the sort key
	DefaultSortKeyAttribute = "SK"
)

// Key addresses one record in the table.
type Key struct {
	PartitionKey string
	SortKey      string
}

// Item represents one stored record, the key attributes are kept separate
// from the remaining fields which carry the entity payload.
type Item struct {
	Key
	fields map[string]*dynamodb.AttributeValue
}

// Decode the entity fields stored in the DynamoDB record using dynamodbattribute
func (i *Item) Decode(out interface{}) error {
	return dynamodbattribute.UnmarshalMap(i.fields, out)
}

// DecodeItem decode a DDB attribute value map into an Item
func DecodeItem(item map[string]*dynamodb.AttributeValue) (*Item, error) {
	res := &Item{fields: make(map[string]*dynamodb.AttributeValue)}

	for k, v := range item {
		switch k {
		case DefaultPartitionKeyAttribute:
			res.PartitionKey = aws.StringValue(v.S)
		case DefaultSortKeyAttribute:
			res.SortKey = aws.StringValue(v.S)
		default:
			res.fields[k] = v
		}
	}

	return res, nil
}

func marshalItem(key Key, in interface{}) (map[string]*dynamodb.AttributeValue, error) {
	item, err := dynamodbattribute.MarshalMap(in)
	if err != nil {
		return nil, err
	}

	item[DefaultPartitionKeyAttribute] = &dynamodb.AttributeValue{S: aws.String(key.PartitionKey)}
	item[DefaultSortKeyAttribute] = &dynamodb.AttributeValue{S: aws.String(key.SortKey)}

	return item, nil
}

func buildKeys(key Key) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{
		DefaultPartitionKeyAttribute: {S: aws.String(key.PartitionKey)},
		DefaultSortKeyAttribute:      {S: aws.String(key.SortKey)},
	}
}
