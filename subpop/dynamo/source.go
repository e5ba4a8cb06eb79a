// Package dynamo loads subpopulations from a DynamoDB table keyed by
// tenantId (partition) and id (sort).
package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goStudyAuth/subpop"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// API is the subset of *dynamodb.Client the source calls.
type API interface {
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Source implements subpop.Source and subpop.Creator.
type Source struct {
	client    API
	tableName string
}

func New(client API, tableName string) *Source {
	return &Source{client: client, tableName: tableName}
}

// Load pages through every record of tenantID, deleted ones included.
func (s *Source) Load(ctx context.Context, tenantID string) ([]subpop.Subpopulation, error) {
	var (
		out   []subpop.Subpopulation
		start map[string]types.AttributeValue
	)
	for {
		resp, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			KeyConditionExpression: aws.String("tenantId = :t"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":t": &types.AttributeValueMemberS{Value: tenantID},
			},
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, fmt.Errorf("query subpopulations: %w", err)
		}

		var page []subpop.Subpopulation
		if err := attributevalue.UnmarshalListOfMaps(resp.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal subpopulations: %w", err)
		}
		out = append(out, page...)

		if len(resp.LastEvaluatedKey) == 0 {
			return out, nil
		}
		start = resp.LastEvaluatedKey
	}
}

// Create writes sp unless a record with the same key already exists.
func (s *Source) Create(ctx context.Context, sp subpop.Subpopulation) error {
	if sp.ID == "" || sp.TenantID == "" {
		return subpop.ErrInvalidSubpopulation
	}
	item, err := attributevalue.MarshalMap(sp)
	if err != nil {
		return fmt.Errorf("marshal subpopulation: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	var exists *types.ConditionalCheckFailedException
	if errors.As(err, &exists) {
		return nil
	}
	return err
}
