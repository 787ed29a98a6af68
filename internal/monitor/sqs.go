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

package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/pubflow/pubflow/internal/log"
)

// SQSAPI is the subset of the SQS client used by the sink.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Compile-time interface assertion.
var _ Sink = (*SQSSink)(nil)

// SQSSink delivers monitor messages to the event queue as JSON. Delivery
// failures are logged and swallowed so a dead dashboard never blocks
// publication.
type SQSSink struct {
	client   SQSAPI
	queueURL string
	logger   *slog.Logger
}

// NewSQSSink creates a sink writing to the given queue URL.
func NewSQSSink(client SQSAPI, queueURL string, logger *slog.Logger) *SQSSink {
	return &SQSSink{
		client:   client,
		queueURL: queueURL,
		logger:   log.WithComponent(logger, "monitor"),
	}
}

// eventMessage is the wire form of a lifecycle event.
type eventMessage struct {
	MessageType    string `json:"message_type"`
	ItemIdentifier string `json:"item_identifier"`
	Version        string `json:"version"`
	Run            string `json:"run"`
	EventType      string `json:"event_type"`
	Status         string `json:"status"`
	Message        string `json:"message"`
	Timestamp      string `json:"timestamp"`
}

// propertyMessage is the wire form of a property update.
type propertyMessage struct {
	MessageType    string `json:"message_type"`
	ItemIdentifier string `json:"item_identifier"`
	Version        string `json:"version,omitempty"`
	Name           string `json:"name"`
	Value          any    `json:"value"`
	PropertyType   string `json:"property_type"`
	Timestamp      string `json:"timestamp"`
}

// Emit records a lifecycle event. Errors are swallowed after logging.
func (s *SQSSink) Emit(ctx context.Context, articleID, version, run, component string, phase Phase, message string) error {
	msg := eventMessage{
		MessageType:    "event",
		ItemIdentifier: articleID,
		Version:        version,
		Run:            run,
		EventType:      component,
		Status:         string(phase),
		Message:        message,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}
	s.send(ctx, msg)
	return nil
}

// SetProperty records a named article property. Errors are swallowed
// after logging.
func (s *SQSSink) SetProperty(ctx context.Context, articleID, name string, value any, propertyType, version string) error {
	msg := propertyMessage{
		MessageType:    "property",
		ItemIdentifier: articleID,
		Version:        version,
		Name:           name,
		Value:          value,
		PropertyType:   propertyType,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}
	s.send(ctx, msg)
	return nil
}

func (s *SQSSink) send(ctx context.Context, msg any) {
	body, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("Failed to encode monitor message", log.Error(err))
		return
	}
	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		s.logger.Error("Failed to send monitor message", log.Error(err))
	}
}
