package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/subfinder/api/internal/domain"
)

// ResetTokenRepo manages password-reset token records.
// PK: user_id. A Put replaces any existing record for the same user, which
// gives the at-most-one-live-record invariant for free.
type ResetTokenRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewResetTokenRepo(client *dynamodb.Client, tableName string) *ResetTokenRepo {
	return &ResetTokenRepo{client: client, tableName: tableName}
}

func (r *ResetTokenRepo) Put(ctx context.Context, t *domain.ResetToken) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal reset token: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *ResetTokenRepo) GetByUser(ctx context.Context, userID string) (*domain.ResetToken, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("reset token not found: %w", domain.ErrNotFound)
	}
	var t domain.ResetToken
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *ResetTokenRepo) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	return err
}
