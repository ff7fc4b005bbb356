package dynamodb

import (
	"context"
	"time"

	"optigroup/application/ports"
	"optigroup/domain/versioning"
	pkgerrors "optigroup/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// RunHistory records every applied grouping run so operators can audit
// what was written to a job and when, and detect unchanged reruns by
// comparing checksums.
type RunHistory struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

var _ ports.RunRecorder = (*RunHistory)(nil)

// NewRunHistory creates a new RunHistory
func NewRunHistory(client *dynamodb.Client, tableName string, logger *zap.Logger) *RunHistory {
	return &RunHistory{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// runRecord is one applied run
type runRecord struct {
	PK             string `dynamodbav:"PK"` // RUNS#<job_name>
	SK             string `dynamodbav:"SK"` // RUN#<timestamp>#<run_id>
	EntityType     string `dynamodbav:"EntityType"`
	RunID          string `dynamodbav:"RunID"`
	JobName        string `dynamodbav:"JobName"`
	PolicyID       string `dynamodbav:"PolicyID"`
	Checksum       string `dynamodbav:"Checksum"`
	GroupCount     int    `dynamodbav:"GroupCount"`
	TerritoryCount int    `dynamodbav:"TerritoryCount"`
	CreatedAt      string `dynamodbav:"CreatedAt"`
}

// Record stores one applied run
func (h *RunHistory) Record(ctx context.Context, jobName, policyID string, version versioning.GroupingVersion) error {
	createdAt := version.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	record := runRecord{
		PK:             "RUNS#" + jobName,
		SK:             "RUN#" + createdAt.Format(time.RFC3339Nano) + "#" + version.RunID,
		EntityType:     "RUN",
		RunID:          version.RunID,
		JobName:        jobName,
		PolicyID:       policyID,
		Checksum:       version.Checksum,
		GroupCount:     version.GroupCount,
		TerritoryCount: version.TerritoryCount,
		CreatedAt:      createdAt.Format(time.RFC3339Nano),
	}

	av, err := attributevalue.MarshalMap(record)
	if err != nil {
		return pkgerrors.NewInternalError("failed to marshal run record").WithCause(err)
	}

	if _, err := h.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(h.tableName),
		Item:      av,
	}); err != nil {
		return pkgerrors.NewUpstreamError("run history", err)
	}

	h.logger.Debug("Recorded grouping run",
		zap.String("runID", version.RunID),
		zap.String("jobName", jobName),
		zap.String("checksum", version.Checksum),
	)

	return nil
}

// Latest returns the most recent run for a job, or nil when the job has
// never been applied
func (h *RunHistory) Latest(ctx context.Context, jobName string) (*versioning.GroupingVersion, error) {
	result, err := h.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(h.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "RUNS#" + jobName},
			":sk": &types.AttributeValueMemberS{Value: "RUN#"},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return nil, pkgerrors.NewUpstreamError("run history", err)
	}
	if len(result.Items) == 0 {
		return nil, nil
	}

	var record runRecord
	if err := attributevalue.UnmarshalMap(result.Items[0], &record); err != nil {
		return nil, pkgerrors.NewDataError("failed to unmarshal run record").WithCause(err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, record.CreatedAt)
	if err != nil {
		return nil, pkgerrors.NewDataError("run record has a malformed timestamp").WithCause(err)
	}

	return &versioning.GroupingVersion{
		RunID:          record.RunID,
		Checksum:       record.Checksum,
		GroupCount:     record.GroupCount,
		TerritoryCount: record.TerritoryCount,
		CreatedAt:      createdAt,
	}, nil
}
