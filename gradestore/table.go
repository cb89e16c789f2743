package gradestore

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	dexp "github.com/aws/aws-sdk-go/service/dynamodb/expression"
)

const (
	// MaxBatchWriteItems DynamoDB limit on items in a single BatchWriteItem call
	MaxBatchWriteItems = 25

	// MaxBatchGetItems DynamoDB limit on keys in a single BatchGetItem call
	MaxBatchGetItems = 100

	queryDefaultTimeout = time.Second * 10
)

// Table provides access to a single DynamoDB table using the composite
// PK / SK key scheme.
type Table struct {
	session   *Session
	tableName string
}

func (dt *Table) GetTableName() string {
	return dt.tableName
}

// GetWithContext a record given its key
func (dt *Table) GetWithContext(ctx context.Context, key Key, options ...ReadOption) (*Item, error) {
	readOptions := NewReadOptions(options...)

	res, err := dt.session.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(dt.GetTableName()),
		Key:            buildKeys(key),
		ConsistentRead: aws.Bool(readOptions.consistent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if res.Item == nil {
		return nil, ErrKeyNotFound
	}

	item, err := DecodeItem(res.Item)
	if err != nil {
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}

	return item, nil
}

// PutWithContext write a record at the specified key, overwriting any
// existing record (last write wins).
func (dt *Table) PutWithContext(ctx context.Context, key Key, in interface{}) error {
	item, err := marshalItem(key, in)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	_, err = dt.session.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(dt.GetTableName()),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put item: %w", err)
	}

	return nil
}

// CreateWithContext write a record at the specified key only if no record
// exists there yet, relying on the conditional write for uniqueness rather
// than a separate existence read.
func (dt *Table) CreateWithContext(ctx context.Context, key Key, in interface{}) error {
	item, err := marshalItem(key, in)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	cond := dexp.AttributeNotExists(dexp.Name(DefaultPartitionKeyAttribute))

	expr, err := dexp.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build condition expression: %w", err)
	}

	_, err = dt.session.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(dt.GetTableName()),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if awsErr, ok := err.(awserr.Error); ok {
			if awsErr.Code() == dynamodb.ErrCodeConditionalCheckFailedException {
				return ErrKeyExists
			}
		}
		return fmt.Errorf("failed to create item: %w", err)
	}

	return nil
}

// DeleteWithContext the record at the specified key, returning
// ErrKeyNotFound when there was nothing to delete.
func (dt *Table) DeleteWithContext(ctx context.Context, key Key) error {
	cond := dexp.AttributeExists(dexp.Name(DefaultPartitionKeyAttribute))

	expr, err := dexp.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build condition expression: %w", err)
	}

	_, err = dt.session.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(dt.GetTableName()),
		Key:                       buildKeys(key),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
	})
	if err != nil {
		if awsErr, ok := err.(awserr.Error); ok {
			if awsErr.Code() == dynamodb.ErrCodeConditionalCheckFailedException {
				return ErrKeyNotFound
			}
		}
		return fmt.Errorf("failed to delete item: %w", err)
	}

	return nil
}

// QueryPartitionWithContext list all records in one partition whose sort key
// begins with the given prefix, an empty prefix lists the whole partition.
func (dt *Table) QueryPartitionWithContext(ctx context.Context, partitionKey, prefix string, options ...ReadOption) ([]*Item, error) {
	readOptions := NewReadOptions(options...)

	key := dexp.Key(DefaultPartitionKeyAttribute).Equal(dexp.Value(partitionKey))

	if prefix != "" {
		key = key.And(dexp.Key(DefaultSortKeyAttribute).BeginsWith(prefix))
	}

	expr, err := dexp.NewBuilder().WithKeyCondition(key).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build exp: %w", err)
	}

	query := &dynamodb.QueryInput{
		TableName:                 aws.String(dt.GetTableName()),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(readOptions.consistent),
	}

	qctx, cancel := context.WithTimeout(ctx, queryDefaultTimeout)
	defer cancel()

	var items []map[string]*dynamodb.AttributeValue

	err = dt.session.QueryPagesWithContext(qctx, query,
		func(page *dynamodb.QueryOutput, lastPage bool) bool {
			items = append(items, page.Items...)

			return !lastPage
		})
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}

	results := make([]*Item, 0, len(items))

	for _, item := range items {
		val, err := DecodeItem(item)
		if err != nil {
			return nil, fmt.Errorf("failed to decode item: %w", err)
		}

		results = append(results, val)
	}

	return results, nil
}

// ItemPage provides a page of items with a continuation token to enable paging
type ItemPage struct {
	Items   []*Item `json:"items"`
	LastKey string  `json:"last_key"`
}

// ScanPageWithContext scan the table returning one page of records matching
// the filter, along with an opaque continuation token when more remain.
func (dt *Table) ScanPageWithContext(ctx context.Context, filter dexp.ConditionBuilder, options ...ReadOption) (*ItemPage, error) {
	readOptions := NewReadOptions(options...)

	expr, err := dexp.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build exp: %w", err)
	}

	scan := &dynamodb.ScanInput{
		TableName:                 aws.String(dt.GetTableName()),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(readOptions.consistent),
		Limit:                     readOptions.limit,
	}

	// avoid either a nil or empty value
	if startKey := aws.StringValue(readOptions.startKey); startKey != "" {
		decodedKey, err := decompressAndDecodeKey(startKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress key: %w", err)
		}

		scan.ExclusiveStartKey = decodedKey
	}

	res, err := dt.session.ScanWithContext(ctx, scan)
	if err != nil {
		return nil, fmt.Errorf("failed to run scan: %w", err)
	}

	results := make([]*Item, len(res.Items))

	for n, item := range res.Items {
		val, err := DecodeItem(item)
		if err != nil {
			return nil, fmt.Errorf("failed to decode item: %w", err)
		}

		results[n] = val
	}

	page := &ItemPage{Items: results}

	if len(res.LastEvaluatedKey) != 0 {
		page.LastKey, err = compressAndEncodeKey(res.LastEvaluatedKey)
		if err != nil {
			return nil, fmt.Errorf("failed to compress key: %w", err)
		}
	}

	return page, nil
}

// Write represents one record in a batch put.
type Write struct {
	Key   Key
	Value interface{}
}

// BatchPutWithContext write up to MaxBatchWriteItems records in a single
// call, the batch either fully succeeds or fails as a unit.
func (dt *Table) BatchPutWithContext(ctx context.Context, writes []Write) error {
	if len(writes) > MaxBatchWriteItems {
		return ErrBatchTooLarge
	}

	requests := make([]*dynamodb.WriteRequest, 0, len(writes))

	for _, w := range writes {
		item, err := marshalItem(w.Key, w.Value)
		if err != nil {
			return fmt.Errorf("failed to marshal item: %w", err)
		}

		requests = append(requests, &dynamodb.WriteRequest{
			PutRequest: &dynamodb.PutRequest{Item: item},
		})
	}

	res, err := dt.session.BatchWriteItemWithContext(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]*dynamodb.WriteRequest{
			dt.GetTableName(): requests,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to batch write items: %w", err)
	}

	if unprocessed := res.UnprocessedItems[dt.GetTableName()]; len(unprocessed) != 0 {
		return fmt.Errorf("batch write left %d items unprocessed", len(unprocessed))
	}

	return nil
}

// BatchGetWithContext read up to MaxBatchGetItems records in a single call,
// keys which have no record are absent from the result.
func (dt *Table) BatchGetWithContext(ctx context.Context, keys []Key) ([]*Item, error) {
	if len(keys) > MaxBatchGetItems {
		return nil, ErrBatchTooLarge
	}

	attrs := make([]map[string]*dynamodb.AttributeValue, 0, len(keys))
	for _, key := range keys {
		attrs = append(attrs, buildKeys(key))
	}

	res, err := dt.session.BatchGetItemWithContext(ctx, &dynamodb.BatchGetItemInput{
		RequestItems: map[string]*dynamodb.KeysAndAttributes{
			dt.GetTableName(): {Keys: attrs},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to batch get items: %w", err)
	}

	items := res.Responses[dt.GetTableName()]

	results := make([]*Item, 0, len(items))

	for _, item := range items {
		val, err := DecodeItem(item)
		if err != nil {
			return nil, fmt.Errorf("failed to decode item: %w", err)
		}

		results = append(results, val)
	}

	return results, nil
}
