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

// ApplicationRepo provides typed DynamoDB operations for project applications.
type ApplicationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewApplicationRepo(client *dynamodb.Client, tableName string) *ApplicationRepo {
	return &ApplicationRepo{client: client, tableName: tableName}
}

func (r *ApplicationRepo) Put(ctx context.Context, a *domain.ProjectApplication) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal application: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *ApplicationRepo) Get(ctx context.Context, applicationID string) (*domain.ProjectApplication, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("application_id", applicationID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("application not found: %w", domain.ErrNotFound)
	}
	var a domain.ProjectApplication
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ApplicationRepo) ListByProject(ctx context.Context, projectID string) ([]domain.ProjectApplication, error) {
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
	var apps []domain.ProjectApplication
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// GetByProjectAndApplicant finds the applicant's application to a project, if any.
func (r *ApplicationRepo) GetByProjectAndApplicant(ctx context.Context, projectID, applicantID string) (*domain.ProjectApplication, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("project_id-index"),
		KeyConditionExpression: aws.String("project_id = :pid"),
		FilterExpression:       aws.String("applicant_id = :aid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pid": &types.AttributeValueMemberS{Value: projectID},
			":aid": &types.AttributeValueMemberS{Value: applicantID},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("application not found: %w", domain.ErrNotFound)
	}
	var a domain.ProjectApplication
	if err := attributevalue.UnmarshalMap(out.Items[0], &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ApplicationRepo) UpdateStatus(ctx context.Context, applicationID, status string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldStatus:    status,
		fieldUpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("application_id", applicationID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}
