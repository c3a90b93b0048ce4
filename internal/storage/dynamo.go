package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/jessyrel/wedding-rsvp/internal/aws"
	"github.com/jessyrel/wedding-rsvp/internal/rsvp"
)

// DynamoStore encapsulates operations on the RSVP table (partition key "id",
// type N).
type DynamoStore struct {
	client    aws.DynamoDBAPI
	tableName string
}

// NewDynamoStore creates a new DynamoDB backed store.
func NewDynamoStore(client aws.DynamoDBAPI, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
	}
}

// Initialize checks that the table exists. Tables are provisioned out of
// band, so a missing table is an error rather than something to create.
func (s *DynamoStore) Initialize(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dyn.DescribeTableInput{TableName: &s.tableName})
	if err != nil {
		var nf *types.ResourceNotFoundException
		if errors.As(err, &nf) {
			return &Error{Op: "initialize", Err: fmt.Errorf("table %s does not exist: %w", s.tableName, err)}
		}
		return &Error{Op: "initialize", Err: apiError("describe table", err)}
	}
	return nil
}

// Append writes rec only if no item with the same id exists.
func (s *DynamoStore) Append(ctx context.Context, rec rsvp.Record) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return &Error{Op: "append", Err: fmt.Errorf("marshal record: %w", err)}
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(id)"),
	})
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return &Error{Op: "append", Err: ErrDuplicateID}
		}
		return &Error{Op: "append", Err: apiError("put item", err)}
	}
	return nil
}

// ReadAll scans the whole table. Scan order is arbitrary, so records are
// sorted by id, which follows submission order.
func (s *DynamoStore) ReadAll(ctx context.Context) ([]rsvp.Record, error) {
	records := []rsvp.Record{}
	p := dyn.NewScanPaginator(s.client, &dyn.ScanInput{TableName: &s.tableName})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, &Error{Op: "read", Err: apiError("scan", err)}
		}
		var batch []rsvp.Record
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, &Error{Op: "read", Err: fmt.Errorf("unmarshal records: %w", err)}
		}
		records = append(records, batch...)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (s *DynamoStore) Statistics(ctx context.Context) (rsvp.Statistics, error) {
	records, err := s.ReadAll(ctx)
	if err != nil {
		return rsvp.Statistics{}, wrap("statistics", err)
	}
	return rsvp.ComputeStatistics(records), nil
}

func (s *DynamoStore) Close() error { return nil }

func awsString(s string) *string { return &s }

// apiError prefixes err with the DynamoDB error code when the SDK reports one.
func apiError(call string, err error) error {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return fmt.Errorf("%s: %s: %w", call, ae.ErrorCode(), err)
	}
	return fmt.Errorf("%s: %w", call, err)
}
