// Copyright 2025 The Pubflow Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/swf"
	"github.com/aws/aws-sdk-go-v2/service/swf/types"
)

// maximumPageSize bounds each history page fetched with a decision task.
const maximumPageSize = 100

// lastCompletedLookback bounds how far back LastCompletedStartTime
// searches closed executions.
const lastCompletedLookback = 30 * 24 * time.Hour

// SWFAPI is the subset of the SWF client used by the adapter.
type SWFAPI interface {
	PollForDecisionTask(ctx context.Context, params *swf.PollForDecisionTaskInput, optFns ...func(*swf.Options)) (*swf.PollForDecisionTaskOutput, error)
	RespondDecisionTaskCompleted(ctx context.Context, params *swf.RespondDecisionTaskCompletedInput, optFns ...func(*swf.Options)) (*swf.RespondDecisionTaskCompletedOutput, error)
	PollForActivityTask(ctx context.Context, params *swf.PollForActivityTaskInput, optFns ...func(*swf.Options)) (*swf.PollForActivityTaskOutput, error)
	RespondActivityTaskCompleted(ctx context.Context, params *swf.RespondActivityTaskCompletedInput, optFns ...func(*swf.Options)) (*swf.RespondActivityTaskCompletedOutput, error)
	RespondActivityTaskFailed(ctx context.Context, params *swf.RespondActivityTaskFailedInput, optFns ...func(*swf.Options)) (*swf.RespondActivityTaskFailedOutput, error)
	RecordActivityTaskHeartbeat(ctx context.Context, params *swf.RecordActivityTaskHeartbeatInput, optFns ...func(*swf.Options)) (*swf.RecordActivityTaskHeartbeatOutput, error)
	StartWorkflowExecution(ctx context.Context, params *swf.StartWorkflowExecutionInput, optFns ...func(*swf.Options)) (*swf.StartWorkflowExecutionOutput, error)
	ListClosedWorkflowExecutions(ctx context.Context, params *swf.ListClosedWorkflowExecutionsInput, optFns ...func(*swf.Options)) (*swf.ListClosedWorkflowExecutionsOutput, error)
}

// Compile-time interface assertion.
var _ Client = (*SWFClient)(nil)

// SWFClient adapts Amazon SWF to the backend Client contract.
type SWFClient struct {
	api    SWFAPI
	domain string
}

// NewSWFClient creates an adapter for the given SWF domain.
func NewSWFClient(api SWFAPI, domain string) *SWFClient {
	return &SWFClient{api: api, domain: domain}
}

// PollForDecisionTask long-polls the decision task list. Returns
// (nil, nil) when the poll times out with no task.
func (c *SWFClient) PollForDecisionTask(ctx context.Context, taskList, identity, pageToken string) (*DecisionTask, error) {
	input := &swf.PollForDecisionTaskInput{
		Domain:          aws.String(c.domain),
		TaskList:        &types.TaskList{Name: aws.String(taskList)},
		Identity:        aws.String(identity),
		MaximumPageSize: maximumPageSize,
	}
	if pageToken != "" {
		input.NextPageToken = aws.String(pageToken)
	}
	out, err := c.api.PollForDecisionTask(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("poll for decision task: %w", err)
	}
	if out.TaskToken == nil || *out.TaskToken == "" {
		return nil, nil
	}

	task := &DecisionTask{
		TaskToken:     aws.ToString(out.TaskToken),
		NextPageToken: aws.ToString(out.NextPageToken),
	}
	if out.WorkflowType != nil {
		task.WorkflowType = aws.ToString(out.WorkflowType.Name)
	}
	if out.WorkflowExecution != nil {
		task.WorkflowID = aws.ToString(out.WorkflowExecution.WorkflowId)
		task.RunID = aws.ToString(out.WorkflowExecution.RunId)
	}
	for _, event := range out.Events {
		converted := convertEvent(event)
		if converted.Type == EventWorkflowExecutionStarted {
			task.Input = converted.Input
		}
		task.Events = append(task.Events, converted)
	}
	return task, nil
}

// convertEvent maps an SWF history event onto the neutral form. Unknown
// event kinds are carried through with only id, type and timestamp so
// the decider can skip them.
func convertEvent(event types.HistoryEvent) HistoryEvent {
	he := HistoryEvent{
		ID:   event.EventId,
		Type: EventType(event.EventType),
	}
	if event.EventTimestamp != nil {
		he.Timestamp = *event.EventTimestamp
	}
	switch {
	case event.WorkflowExecutionStartedEventAttributes != nil:
		he.Input = aws.ToString(event.WorkflowExecutionStartedEventAttributes.Input)
	case event.ActivityTaskScheduledEventAttributes != nil:
		attrs := event.ActivityTaskScheduledEventAttributes
		he.ActivityID = aws.ToString(attrs.ActivityId)
		if attrs.ActivityType != nil {
			he.ActivityType = aws.ToString(attrs.ActivityType.Name)
		}
		he.Input = aws.ToString(attrs.Input)
	case event.ActivityTaskCompletedEventAttributes != nil:
		attrs := event.ActivityTaskCompletedEventAttributes
		he.Result = aws.ToString(attrs.Result)
		he.ScheduledEventID = attrs.ScheduledEventId
	case event.ActivityTaskFailedEventAttributes != nil:
		attrs := event.ActivityTaskFailedEventAttributes
		he.Reason = aws.ToString(attrs.Reason)
		he.Details = aws.ToString(attrs.Details)
		he.ScheduledEventID = attrs.ScheduledEventId
	case event.ActivityTaskTimedOutEventAttributes != nil:
		attrs := event.ActivityTaskTimedOutEventAttributes
		he.Reason = string(attrs.TimeoutType)
		he.ScheduledEventID = attrs.ScheduledEventId
	}
	return he
}

// RespondDecisionTaskCompleted reports the decisions for a task.
func (c *SWFClient) RespondDecisionTaskCompleted(ctx context.Context, taskToken string, decisions []Decision) error {
	converted := make([]types.Decision, 0, len(decisions))
	for _, d := range decisions {
		converted = append(converted, convertDecision(d))
	}
	_, err := c.api.RespondDecisionTaskCompleted(ctx, &swf.RespondDecisionTaskCompletedInput{
		TaskToken: aws.String(taskToken),
		Decisions: converted,
	})
	if err != nil {
		return fmt.Errorf("respond decision task completed: %w", err)
	}
	return nil
}

func convertDecision(d Decision) types.Decision {
	switch d.Kind {
	case DecisionScheduleActivityTask:
		return types.Decision{
			DecisionType: types.DecisionTypeScheduleActivityTask,
			ScheduleActivityTaskDecisionAttributes: &types.ScheduleActivityTaskDecisionAttributes{
				ActivityId: aws.String(d.ActivityID),
				ActivityType: &types.ActivityType{
					Name:    aws.String(d.ActivityType),
					Version: aws.String(d.ActivityVersion),
				},
				TaskList:               &types.TaskList{Name: aws.String(d.TaskList)},
				Input:                  aws.String(d.Input),
				Control:                optionalString(d.Control),
				HeartbeatTimeout:       timeoutString(d.HeartbeatTimeout),
				ScheduleToStartTimeout: timeoutString(d.ScheduleToStart),
				ScheduleToCloseTimeout: timeoutString(d.ScheduleToClose),
				StartToCloseTimeout:    timeoutString(d.StartToClose),
			},
		}
	case DecisionCompleteWorkflowExecution:
		return types.Decision{
			DecisionType: types.DecisionTypeCompleteWorkflowExecution,
			CompleteWorkflowExecutionDecisionAttributes: &types.CompleteWorkflowExecutionDecisionAttributes{
				Result: optionalString(d.Result),
			},
		}
	default:
		return types.Decision{
			DecisionType: types.DecisionTypeFailWorkflowExecution,
			FailWorkflowExecutionDecisionAttributes: &types.FailWorkflowExecutionDecisionAttributes{
				Reason:  optionalString(d.Reason),
				Details: optionalString(d.Details),
			},
		}
	}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}

// timeoutString renders a timeout in the seconds-as-string form the
// backend expects; zero falls back to the registered default.
func timeoutString(seconds int) *string {
	if seconds <= 0 {
		return nil
	}
	return aws.String(strconv.Itoa(seconds))
}

// PollForActivityTask long-polls the activity task list. Returns
// (nil, nil) when the poll times out with no task.
func (c *SWFClient) PollForActivityTask(ctx context.Context, taskList, identity string) (*ActivityTask, error) {
	out, err := c.api.PollForActivityTask(ctx, &swf.PollForActivityTaskInput{
		Domain:   aws.String(c.domain),
		TaskList: &types.TaskList{Name: aws.String(taskList)},
		Identity: aws.String(identity),
	})
	if err != nil {
		return nil, fmt.Errorf("poll for activity task: %w", err)
	}
	if out.TaskToken == nil || *out.TaskToken == "" {
		return nil, nil
	}
	task := &ActivityTask{
		TaskToken:  aws.ToString(out.TaskToken),
		ActivityID: aws.ToString(out.ActivityId),
		Input:      aws.ToString(out.Input),
	}
	if out.ActivityType != nil {
		task.ActivityType = aws.ToString(out.ActivityType.Name)
	}
	if out.WorkflowExecution != nil {
		task.WorkflowID = aws.ToString(out.WorkflowExecution.WorkflowId)
		task.RunID = aws.ToString(out.WorkflowExecution.RunId)
	}
	return task, nil
}

// RespondActivityTaskCompleted reports activity success.
func (c *SWFClient) RespondActivityTaskCompleted(ctx context.Context, taskToken, result string) error {
	_, err := c.api.RespondActivityTaskCompleted(ctx, &swf.RespondActivityTaskCompletedInput{
		TaskToken: aws.String(taskToken),
		Result:    optionalString(result),
	})
	if err != nil {
		return fmt.Errorf("respond activity task completed: %w", err)
	}
	return nil
}

// RespondActivityTaskFailed reports activity failure.
func (c *SWFClient) RespondActivityTaskFailed(ctx context.Context, taskToken, reason, details string) error {
	_, err := c.api.RespondActivityTaskFailed(ctx, &swf.RespondActivityTaskFailedInput{
		TaskToken: aws.String(taskToken),
		Reason:    optionalString(reason),
		Details:   optionalString(details),
	})
	if err != nil {
		return fmt.Errorf("respond activity task failed: %w", err)
	}
	return nil
}

// RecordActivityTaskHeartbeat keeps a long-running task alive.
func (c *SWFClient) RecordActivityTaskHeartbeat(ctx context.Context, taskToken, details string) error {
	_, err := c.api.RecordActivityTaskHeartbeat(ctx, &swf.RecordActivityTaskHeartbeatInput{
		TaskToken: aws.String(taskToken),
		Details:   optionalString(details),
	})
	if err != nil {
		return fmt.Errorf("record activity task heartbeat: %w", err)
	}
	return nil
}

// StartWorkflowExecution starts an execution; a duplicate open workflow
// id maps to ErrExecutionAlreadyStarted.
func (c *SWFClient) StartWorkflowExecution(ctx context.Context, req StartRequest) error {
	input := &swf.StartWorkflowExecutionInput{
		Domain:     aws.String(c.domain),
		WorkflowId: aws.String(req.WorkflowID),
		WorkflowType: &types.WorkflowType{
			Name:    aws.String(req.WorkflowType),
			Version: aws.String(req.WorkflowVersion),
		},
		TaskList: &types.TaskList{Name: aws.String(req.TaskList)},
		Input:    aws.String(req.Input),
	}
	if req.ExecutionTimeout > 0 {
		input.ExecutionStartToCloseTimeout = aws.String(strconv.Itoa(req.ExecutionTimeout))
	}
	_, err := c.api.StartWorkflowExecution(ctx, input)
	if err != nil {
		var alreadyStarted *types.WorkflowExecutionAlreadyStartedFault
		if errors.As(err, &alreadyStarted) {
			return ErrExecutionAlreadyStarted
		}
		return fmt.Errorf("start workflow execution: %w", err)
	}
	return nil
}

// LastCompletedStartTime returns the start timestamp of the most recent
// completed execution of workflowID within the lookback window.
func (c *SWFClient) LastCompletedStartTime(ctx context.Context, workflowID string) (time.Time, bool, error) {
	oldest := time.Now().Add(-lastCompletedLookback)
	var latest time.Time
	var found bool
	var pageToken *string
	for {
		out, err := c.api.ListClosedWorkflowExecutions(ctx, &swf.ListClosedWorkflowExecutionsInput{
			Domain:          aws.String(c.domain),
			StartTimeFilter: &types.ExecutionTimeFilter{OldestDate: aws.Time(oldest)},
			ExecutionFilter: &types.WorkflowExecutionFilter{WorkflowId: aws.String(workflowID)},
			NextPageToken:   pageToken,
		})
		if err != nil {
			return time.Time{}, false, fmt.Errorf("list closed workflow executions: %w", err)
		}
		for _, info := range out.ExecutionInfos {
			if info.CloseStatus != types.CloseStatusCompleted || info.StartTimestamp == nil {
				continue
			}
			if info.StartTimestamp.After(latest) {
				latest = *info.StartTimestamp
				found = true
			}
		}
		if out.NextPageToken == nil || *out.NextPageToken == "" {
			break
		}
		pageToken = out.NextPageToken
	}
	return latest, found, nil
}
