// Package main implements the Lambda handler for scheduled grouping runs.
// It rebuilds territory groups from the membership graph and writes the
// resulting assignments onto the scheduling job.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"optigroup/application/commands"
	commandbus "optigroup/application/commands/bus"
	commands_handlers "optigroup/application/commands/handlers"
	"optigroup/infrastructure/config"
	"optigroup/infrastructure/di"
	"optigroup/pkg/utils"
)

var (
	applyHandler *commands_handlers.ApplyGroupsHandler
	commandBus   *commandbus.CommandBus
	cfg          *config.Config
)

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	container, err := di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize dependency container: %v", err)
	}

	applyHandler = container.ApplyGroupsHandler
	commandBus = container.CommandBus

	log.Println("Group-territories handler initialized successfully")
}

// GroupingRequest represents the input for a grouping run
type GroupingRequest struct {
	JobName      string   `json:"job_name,omitempty"`
	PolicyID     string   `json:"policy_id,omitempty"`
	HorizonStart string   `json:"horizon_start,omitempty"` // YYYY-MM-DD
	HorizonEnd   string   `json:"horizon_end,omitempty"`   // YYYY-MM-DD
	TerritoryIDs []string `json:"territory_ids,omitempty"`
	DryRun       bool     `json:"dry_run,omitempty"`
	Force        bool     `json:"force,omitempty"`
}

// GroupingResponse summarizes the completed run
type GroupingResponse struct {
	RunID      string `json:"run_id"`
	JobName    string `json:"job_name"`
	Applied    bool   `json:"applied"`
	DryRun     bool   `json:"dry_run"`
	GroupCount int    `json:"group_count"`
	Checksum   string `json:"checksum"`
}

// buildCommand turns a request into a command, filling in configured defaults
func buildCommand(request GroupingRequest) (commands.ApplyGroupsCommand, error) {
	cmd := commands.ApplyGroupsCommand{
		JobName:      request.JobName,
		PolicyID:     request.PolicyID,
		TerritoryIDs: request.TerritoryIDs,
		DryRun:       request.DryRun,
		Force:        request.Force,
	}

	if cmd.JobName == "" {
		cmd.JobName = cfg.DefaultJobName
	}
	if cmd.PolicyID == "" {
		cmd.PolicyID = cfg.DefaultPolicyID
	}

	if request.HorizonStart != "" {
		start, err := utils.ParseDate(request.HorizonStart)
		if err != nil {
			return cmd, fmt.Errorf("invalid horizon_start: %w", err)
		}
		cmd.HorizonStart = start
	}
	if request.HorizonEnd != "" {
		end, err := utils.ParseDate(request.HorizonEnd)
		if err != nil {
			return cmd, fmt.Errorf("invalid horizon_end: %w", err)
		}
		cmd.HorizonEnd = end
	}

	return cmd, nil
}

// HandleGroupingRun executes one grouping run for the given request
func HandleGroupingRun(ctx context.Context, request GroupingRequest) (*GroupingResponse, error) {
	cmd, err := buildCommand(request)
	if err != nil {
		return nil, err
	}

	log.Printf("Starting grouping run for job %s", cmd.JobName)

	result, err := applyHandler.Handle(ctx, cmd)
	if err != nil {
		return nil, err
	}

	log.Printf("Grouping run %s completed: %d groups, applied=%t",
		result.RunID, result.GroupCount, result.Applied)

	return &GroupingResponse{
		RunID:      result.RunID,
		JobName:    result.JobName,
		Applied:    result.Applied,
		DryRun:     result.DryRun,
		GroupCount: result.GroupCount,
		Checksum:   result.Checksum,
	}, nil
}

// handler dispatches on the invocation shape: EventBridge schedule or
// direct invocation with a GroupingRequest payload. Scheduled runs go
// through the command bus since EventBridge discards the response; direct
// invocations return the full run summary.
func handler(ctx context.Context, event json.RawMessage) (*GroupingResponse, error) {
	var cloudWatchEvent awsevents.CloudWatchEvent
	if err := json.Unmarshal(event, &cloudWatchEvent); err == nil && cloudWatchEvent.DetailType != "" {
		var request GroupingRequest
		if len(cloudWatchEvent.Detail) > 0 {
			if err := json.Unmarshal(cloudWatchEvent.Detail, &request); err != nil {
				return nil, fmt.Errorf("failed to parse event detail: %w", err)
			}
		}

		cmd, err := buildCommand(request)
		if err != nil {
			return nil, err
		}
		if err := commandBus.Send(ctx, cmd); err != nil {
			return nil, err
		}
		return &GroupingResponse{JobName: cmd.JobName, DryRun: cmd.DryRun}, nil
	}

	var request GroupingRequest
	if err := json.Unmarshal(event, &request); err != nil {
		return nil, fmt.Errorf("unable to parse event: %w", err)
	}
	return HandleGroupingRun(ctx, request)
}

func main() {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		log.Println("Starting group-territories Lambda")
		lambda.Start(handler)
		return
	}

	// Local testing mode runs a dry run against the default job
	log.Println("Running in local test mode")

	response, err := HandleGroupingRun(context.Background(), GroupingRequest{DryRun: true})
	if err != nil {
		log.Fatalf("Dry run failed: %v", err)
	}

	responseJSON, _ := json.MarshalIndent(response, "", "  ")
	log.Printf("Dry run response:\n%s", responseJSON)
}
