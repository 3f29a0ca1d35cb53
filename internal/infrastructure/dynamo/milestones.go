package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/Eldan-star/ResearchCollab/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MilestoneRepo provides typed DynamoDB operations for project milestones.
type MilestoneRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewMilestoneRepo(client *dynamodb.Client, tableName string) *MilestoneRepo {
	return &MilestoneRepo{client: client, tableName: tableName}
}

func (r *MilestoneRepo) Put(ctx context.Context, m *domain.Milestone) error {
	item, err := attributevalue.MarshalMap(m)
	if err != nil {
		return fmt.Errorf("marshal milestone: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *MilestoneRepo) Get(ctx context.Context, milestoneID string) (*domain.Milestone, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("milestone_id", milestoneID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("milestone not found: %w", domain.ErrNotFound)
	}
	var m domain.Milestone
	if err := attributevalue.UnmarshalMap(out.Item, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MilestoneRepo) ListByProject(ctx context.Context, projectID string) ([]domain.Milestone, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("project_id-index"),
		KeyConditionExpression: aws.String("project_id = :pid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pid": &types.AttributeValueMemberS{Value: projectID},
		},
	})
	if err != nil {
		return nil, err
	}
	var ms []domain.Milestone
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &ms); err != nil {
		return nil, err
	}
	return ms, nil
}

func (r *MilestoneRepo) UpdateStatus(ctx context.Context, milestoneID, status string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldStatus:    status,
		fieldUpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("milestone_id", milestoneID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}
