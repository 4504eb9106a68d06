package dynamo

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/subfinder/api/internal/domain"
)

// batchWriteMax is the DynamoDB BatchWriteItem limit per request.
const batchWriteMax = 25

// SubredditRepo provides typed DynamoDB operations for the subreddit catalog.
// The catalog is read-mostly: the importer job replaces it wholesale and the
// API only lists it.
type SubredditRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSubredditRepo(client *dynamodb.Client, tableName string) *SubredditRepo {
	return &SubredditRepo{client: client, tableName: tableName}
}

// BatchPut writes subreddits in chunks of 25. Unprocessed items are retried
// once; remaining leftovers are reported as an error.
func (r *SubredditRepo) BatchPut(ctx context.Context, subs []domain.Subreddit) error {
	for start := 0; start < len(subs); start += batchWriteMax {
		end := start + batchWriteMax
		if end > len(subs) {
			end = len(subs)
		}
		reqs := make([]types.WriteRequest, 0, end-start)
		for i := start; i < end; i++ {
			item, err := attributevalue.MarshalMap(subs[i])
			if err != nil {
				return fmt.Errorf("marshal subreddit %s: %w", subs[i].Name, err)
			}
			reqs = append(reqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
		}
		pending := map[string][]types.WriteRequest{r.tableName: reqs}
		for attempt := 0; len(pending[r.tableName]) > 0; attempt++ {
			out, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: pending,
			})
			if err != nil {
				return err
			}
			pending = out.UnprocessedItems
			if attempt >= 1 && len(pending[r.tableName]) > 0 {
				return fmt.Errorf("batch write left %d unprocessed items", len(pending[r.tableName]))
			}
		}
	}
	return nil
}

// ListAll scans the whole catalog and returns it sorted by subscriber count,
// descending. The table is small enough (tens of thousands of rows) that a
// full scan per request is acceptable for this read path.
func (r *SubredditRepo) ListAll(ctx context.Context) ([]domain.Subreddit, error) {
	var subs []domain.Subreddit
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		var page []domain.Subreddit
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		subs = append(subs, page...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Subscribers > subs[j].Subscribers })
	return subs, nil
}

// DeleteAll drains the catalog ahead of a reimport.
func (r *SubredditRepo) DeleteAll(ctx context.Context) error {
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:            aws.String(r.tableName),
			ProjectionExpression: aws.String("subreddit_id"),
			ExclusiveStartKey:    startKey,
		})
		if err != nil {
			return err
		}
		for start := 0; start < len(out.Items); start += batchWriteMax {
			end := start + batchWriteMax
			if end > len(out.Items) {
				end = len(out.Items)
			}
			reqs := make([]types.WriteRequest, 0, end-start)
			for _, item := range out.Items[start:end] {
				reqs = append(reqs, types.WriteRequest{
					DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{
						"subreddit_id": item["subreddit_id"],
					}},
				})
			}
			if _, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{r.tableName: reqs},
			}); err != nil {
				return err
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			return nil
		}
		startKey = out.LastEvaluatedKey
	}
}
