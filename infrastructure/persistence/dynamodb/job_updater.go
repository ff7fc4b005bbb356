package dynamodb

import (
	"context"
	"fmt"
	"time"

	"optigroup/application/ports"
	pkgerrors "optigroup/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// JobUpdater implements the SchedulingJobUpdater port against the job
// table. Each apply rewrites the job's assignment items wholesale: one
// metadata header plus one item per group, all under PK=JOB#<name>.
type JobUpdater struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewJobUpdater creates a new JobUpdater
func NewJobUpdater(client *dynamodb.Client, tableName string, logger *zap.Logger) *JobUpdater {
	return &JobUpdater{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

var _ ports.SchedulingJobUpdater = (*JobUpdater)(nil)

// jobHeaderItem is the job metadata header
type jobHeaderItem struct {
	PK              string `dynamodbav:"PK"`
	SK              string `dynamodbav:"SK"`
	EntityType      string `dynamodbav:"EntityType"`
	JobName         string `dynamodbav:"JobName"`
	AssignmentCount int    `dynamodbav:"AssignmentCount"`
	UpdatedAt       string `dynamodbav:"UpdatedAt"`
}

// assignmentItem is one group's assignment
type assignmentItem struct {
	PK           string   `dynamodbav:"PK"`
	SK           string   `dynamodbav:"SK"`
	EntityType   string   `dynamodbav:"EntityType"`
	JobName      string   `dynamodbav:"JobName"`
	PolicyID     string   `dynamodbav:"PolicyID"`
	TerritoryIDs []string `dynamodbav:"TerritoryIDs"`
	UpdatedAt    string   `dynamodbav:"UpdatedAt"`
}

const (
	jobKeyPrefix        = "JOB#"
	jobHeaderSK         = "METADATA"
	assignmentKeyPrefix = "ASSIGNMENT#"
	jobEntityType       = "JOB"
	assignmentEntity    = "ASSIGNMENT"
)

// newAssignmentItem builds the item for one group. The zero-padded index
// keeps assignments in group-key order under a begins_with query.
func newAssignmentItem(jobName string, index int, assignment ports.GroupAssignment, now string) assignmentItem {
	return assignmentItem{
		PK:           jobKeyPrefix + jobName,
		SK:           fmt.Sprintf("%s%06d", assignmentKeyPrefix, index),
		EntityType:   assignmentEntity,
		JobName:      jobName,
		PolicyID:     assignment.PolicyID,
		TerritoryIDs: assignment.TerritoryIDs,
		UpdatedAt:    now,
	}
}

// ApplyGroups writes one assignment item per group to the named job.
// An empty assignment list is a no-op and reports false so callers can
// tell "nothing to do" from "applied".
func (u *JobUpdater) ApplyGroups(ctx context.Context, jobName string, assignments []ports.GroupAssignment) (bool, error) {
	if len(assignments) == 0 {
		return false, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)

	if err := u.clearAssignments(ctx, jobName); err != nil {
		return false, err
	}

	for i, assignment := range assignments {
		item := newAssignmentItem(jobName, i, assignment, now)

		av, err := attributevalue.MarshalMap(item)
		if err != nil {
			return false, fmt.Errorf("failed to marshal assignment: %w", err)
		}

		if _, err := u.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(u.tableName),
			Item:      av,
		}); err != nil {
			return false, pkgerrors.NewUpstreamError("scheduling job", err)
		}
	}

	header := jobHeaderItem{
		PK:              jobKeyPrefix + jobName,
		SK:              jobHeaderSK,
		EntityType:      jobEntityType,
		JobName:         jobName,
		AssignmentCount: len(assignments),
		UpdatedAt:       now,
	}
	av, err := attributevalue.MarshalMap(header)
	if err != nil {
		return false, fmt.Errorf("failed to marshal job header: %w", err)
	}
	if _, err := u.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(u.tableName),
		Item:      av,
	}); err != nil {
		return false, pkgerrors.NewUpstreamError("scheduling job", err)
	}

	u.logger.Info("Applied group assignments to scheduling job",
		zap.String("jobName", jobName),
		zap.Int("assignmentCount", len(assignments)),
	)

	return true, nil
}

// clearAssignments removes the job's previous assignment items so a
// shrinking grouping never leaves stale groups behind
func (u *JobUpdater) clearAssignments(ctx context.Context, jobName string) error {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(u.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: jobKeyPrefix + jobName},
			":sk": &types.AttributeValueMemberS{Value: assignmentKeyPrefix},
		},
		ProjectionExpression: aws.String("PK, SK"),
	}

	for {
		result, err := u.client.Query(ctx, input)
		if err != nil {
			return pkgerrors.NewUpstreamError("scheduling job", err)
		}

		for _, item := range result.Items {
			if _, err := u.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(u.tableName),
				Key: map[string]types.AttributeValue{
					"PK": item["PK"],
					"SK": item["SK"],
				},
			}); err != nil {
				return pkgerrors.NewUpstreamError("scheduling job", err)
			}
		}

		if result.LastEvaluatedKey == nil {
			return nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}
