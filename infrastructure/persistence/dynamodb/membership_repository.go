package dynamodb

import (
	"context"
	"fmt"
	"time"

	"optigroup/application/ports"
	"optigroup/domain/core/entities"
	"optigroup/domain/core/valueobjects"
	pkgerrors "optigroup/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// MembershipRepository implements the MembershipReader port against the
// membership table. Facts are stored one item per (territory, resource)
// assignment under PK=TERRITORY#<id>, with a sparse GSI keyed on the
// effective start for horizon-wide scans.
type MembershipRepository struct {
	client       *dynamodb.Client
	tableName    string
	horizonIndex string
	logger       *zap.Logger
}

// NewMembershipRepository creates a new MembershipRepository
func NewMembershipRepository(client *dynamodb.Client, tableName, horizonIndex string, logger *zap.Logger) *MembershipRepository {
	return &MembershipRepository{
		client:       client,
		tableName:    tableName,
		horizonIndex: horizonIndex,
		logger:       logger,
	}
}

var _ ports.MembershipReader = (*MembershipRepository)(nil)

// membershipItem represents the DynamoDB item structure for one fact
type membershipItem struct {
	PK                   string `dynamodbav:"PK"`
	SK                   string `dynamodbav:"SK"`
	GSI1PK               string `dynamodbav:"GSI1PK"`
	GSI1SK               string `dynamodbav:"GSI1SK"`
	EntityType           string `dynamodbav:"EntityType"`
	ResourceID           string `dynamodbav:"ResourceID"`
	TerritoryID          string `dynamodbav:"TerritoryID"`
	TerritoryName        string `dynamodbav:"TerritoryName"`
	TerritoryType        string `dynamodbav:"TerritoryType"`
	EffectiveStart       string `dynamodbav:"EffectiveStart"`
	EffectiveEnd         string `dynamodbav:"EffectiveEnd,omitempty"`
	ResourceActive       bool   `dynamodbav:"ResourceActive"`
	TerritoryActive      bool   `dynamodbav:"TerritoryActive"`
	OptimizationEligible bool   `dynamodbav:"OptimizationEligible"`
}

const (
	membershipEntityType = "MEMBERSHIP"
	territoryKeyPrefix   = "TERRITORY#"
	membershipKeyPrefix  = "MEMBERSHIP#"
)

// FetchMemberships returns all facts in scope for the horizon. A non-empty
// filter switches from the GSI scan to one base-table query per territory.
func (r *MembershipRepository) FetchMemberships(
	ctx context.Context,
	horizon valueobjects.Horizon,
	territoryFilter []valueobjects.TerritoryID,
) ([]entities.MembershipFact, error) {
	var items []membershipItem
	var err error

	if len(territoryFilter) > 0 {
		items, err = r.queryByTerritories(ctx, horizon, territoryFilter)
	} else {
		items, err = r.queryByHorizon(ctx, horizon)
	}
	if err != nil {
		return nil, err
	}

	facts := make([]entities.MembershipFact, 0, len(items))
	for _, item := range items {
		fact, err := r.toFact(item)
		if err != nil {
			return nil, err
		}
		facts = append(facts, fact)
	}

	r.logger.Debug("Fetched membership facts",
		zap.Int("count", len(facts)),
		zap.Int("territoryFilter", len(territoryFilter)),
	)

	return facts, nil
}

// queryByHorizon scans the horizon GSI for every fact whose effective range
// overlaps the horizon. The key condition bounds the effective start; the
// open-ended tail (no effective end) is handled in the filter.
func (r *MembershipRepository) queryByHorizon(ctx context.Context, horizon valueobjects.Horizon) ([]membershipItem, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(membershipEntityType)).
		And(expression.Key("GSI1SK").LessThanEqual(expression.Value(horizon.End().Format(time.RFC3339))))

	expr, err := expression.NewBuilder().
		WithKeyCondition(keyCond).
		WithFilter(r.scopeFilter(horizon)).
		Build()
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to build membership query").WithCause(err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.horizonIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	return r.queryAll(ctx, input)
}

// queryByTerritories fetches facts for the named territories only
func (r *MembershipRepository) queryByTerritories(
	ctx context.Context,
	horizon valueobjects.Horizon,
	territoryFilter []valueobjects.TerritoryID,
) ([]membershipItem, error) {
	var items []membershipItem
	for _, id := range territoryFilter {
		keyCond := expression.Key("PK").Equal(expression.Value(territoryKeyPrefix + id.String())).
			And(expression.Key("SK").BeginsWith(membershipKeyPrefix))

		expr, err := expression.NewBuilder().
			WithKeyCondition(keyCond).
			WithFilter(r.scopeFilter(horizon)).
			Build()
		if err != nil {
			return nil, pkgerrors.NewInternalError("failed to build membership query").WithCause(err)
		}

		input := &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		}

		page, err := r.queryAll(ctx, input)
		if err != nil {
			return nil, err
		}
		items = append(items, page...)
	}
	return items, nil
}

// scopeFilter restricts results to active, eligible facts that overlap the
// horizon. A missing EffectiveEnd means the membership is open-ended.
func (r *MembershipRepository) scopeFilter(horizon valueobjects.Horizon) expression.ConditionBuilder {
	overlap := expression.AttributeNotExists(expression.Name("EffectiveEnd")).
		Or(expression.Name("EffectiveEnd").GreaterThanEqual(expression.Value(horizon.Start().Format(time.RFC3339))))

	return expression.Name("EffectiveStart").LessThanEqual(expression.Value(horizon.End().Format(time.RFC3339))).
		And(overlap).
		And(expression.Name("ResourceActive").Equal(expression.Value(true))).
		And(expression.Name("TerritoryActive").Equal(expression.Value(true))).
		And(expression.Name("OptimizationEligible").Equal(expression.Value(true)))
}

// queryAll pages through a query until DynamoDB stops returning a cursor
func (r *MembershipRepository) queryAll(ctx context.Context, input *dynamodb.QueryInput) ([]membershipItem, error) {
	var items []membershipItem
	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewUpstreamError("membership source", err)
		}

		for _, raw := range result.Items {
			var item membershipItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, pkgerrors.NewDataError("failed to unmarshal membership item").WithCause(err)
			}
			items = append(items, item)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return items, nil
}

// toFact converts a stored item into a domain fact
func (r *MembershipRepository) toFact(item membershipItem) (entities.MembershipFact, error) {
	start, err := time.Parse(time.RFC3339, item.EffectiveStart)
	if err != nil {
		return entities.MembershipFact{}, pkgerrors.NewDataError(
			fmt.Sprintf("membership %s/%s has a malformed effective start", item.TerritoryID, item.ResourceID)).WithCause(err)
	}

	var end time.Time
	if item.EffectiveEnd != "" {
		end, err = time.Parse(time.RFC3339, item.EffectiveEnd)
		if err != nil {
			return entities.MembershipFact{}, pkgerrors.NewDataError(
				fmt.Sprintf("membership %s/%s has a malformed effective end", item.TerritoryID, item.ResourceID)).WithCause(err)
		}
	}

	return entities.NewMembershipFact(
		item.ResourceID,
		item.TerritoryID,
		item.TerritoryName,
		start,
		end,
		entities.TerritoryType(item.TerritoryType),
		item.OptimizationEligible,
	)
}

// Save persists one fact. Used by fixtures and the ingestion path, not by
// the grouping pipeline itself.
func (r *MembershipRepository) Save(ctx context.Context, fact entities.MembershipFact) error {
	item := membershipItem{
		PK:                   territoryKeyPrefix + fact.TerritoryID().String(),
		SK:                   membershipKeyPrefix + fact.ResourceID().String(),
		GSI1PK:               membershipEntityType,
		GSI1SK:               fact.EffectiveStart().Format(time.RFC3339),
		EntityType:           membershipEntityType,
		ResourceID:           fact.ResourceID().String(),
		TerritoryID:          fact.TerritoryID().String(),
		TerritoryName:        fact.TerritoryName(),
		TerritoryType:        string(fact.TerritoryType()),
		EffectiveStart:       fact.EffectiveStart().Format(time.RFC3339),
		ResourceActive:       true,
		TerritoryActive:      true,
		OptimizationEligible: fact.IsEligible(),
	}
	if !fact.EffectiveEnd().IsZero() {
		item.EffectiveEnd = fact.EffectiveEnd().Format(time.RFC3339)
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal membership: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	})
	if err != nil {
		return pkgerrors.NewUpstreamError("membership source", err)
	}
	return nil
}

// itemKey builds the base-table key for one fact
func itemKey(territoryID, resourceID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: territoryKeyPrefix + territoryID},
		"SK": &types.AttributeValueMemberS{Value: membershipKeyPrefix + resourceID},
	}
}

// Delete removes one fact
func (r *MembershipRepository) Delete(ctx context.Context, territoryID valueobjects.TerritoryID, resourceID valueobjects.ResourceID) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       itemKey(territoryID.String(), resourceID.String()),
	})
	if err != nil {
		return pkgerrors.NewUpstreamError("membership source", err)
	}
	return nil
}
