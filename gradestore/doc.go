// Package gradestore offers a single-table storage layer for AWS DynamoDB.
//
// All entities of the grade system live in one table addressed by a composite
// key: the partition key (PK) groups the records which belong to one entity,
// while the sort key (SK) distinguishes the records within the group. For
// more information on this pattern
// https://docs.aws.amazon.com/amazondynamodb/latest/developerguide/bp-modeling-nosql-B.html.
//
// To set up a session, configure a table and retrieve a record.
//
//	session := gradestore.New()
//	tbl := session.Table("grades-system-table")
//
//	key := gradestore.Key{PartitionKey: "STUDENT#s001", SortKey: "METADATA"}
//
//	item, err := tbl.GetWithContext(ctx, key)
//	if err != nil {
//	    if errors.Is(err, gradestore.ErrKeyNotFound) {
//	        log.Printf("not found: %s", key.PartitionKey)
//	    }
//	}
package gradestore
