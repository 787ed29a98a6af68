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

// Package queue routes object-store event notifications to workflow
// starters.
//
// The router consumes S3 event notifications from one queue, matches
// (bucket, key) against an ordered rule table and sends a start
// message to the starter queue. Routing is deterministic: the first
// matching rule wins. Unmatched notifications are acknowledged and
// dropped so a stray upload cannot wedge the queue.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"

	"github.com/pubflow/pubflow/internal/log"
	"github.com/pubflow/pubflow/internal/metrics"
)

// SQSAPI is the slice of the SQS API the router uses.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// StartMessage is the message sent to the starter queue.
type StartMessage struct {
	Starter string    `json:"starter"`
	Data    StartData `json:"data"`
}

// StartData carries the event payload a starter needs.
type StartData struct {
	Bucket    string `json:"bucket"`
	Key       string `json:"key"`
	EventTime string `json:"event_time,omitempty"`
	Run       string `json:"run"`
}

// s3Notification is the subset of the S3 event notification shape the
// router reads.
type s3Notification struct {
	Records []struct {
		EventName string `json:"eventName"`
		EventTime string `json:"eventTime"`
		S3        struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// Router runs the notification loop.
type Router struct {
	api      SQSAPI
	rules    Rules
	inQueue  string
	outQueue string
	logger   *slog.Logger
	metrics  *metrics.Metrics
	newRun   func() string
	waitTime int32

	// IdleDelay is slept after an empty receive. Zero disables the
	// delay.
	IdleDelay time.Duration
}

// NewRouter creates a router consuming inQueueURL and producing start
// messages on outQueueURL.
func NewRouter(api SQSAPI, rules Rules, inQueueURL, outQueueURL string, logger *slog.Logger, m *metrics.Metrics) *Router {
	return &Router{
		api:      api,
		rules:    rules,
		inQueue:  inQueueURL,
		outQueue: outQueueURL,
		logger:   log.WithComponent(logger, "queue-router"),
		metrics:  m,
		newRun:   func() string { return uuid.NewString() },
		waitTime: 20,
	}
}

// Run consumes notifications until ctx is cancelled. Receive errors
// are logged and the loop continues.
func (r *Router) Run(ctx context.Context) error {
	r.logger.Info("queue router started", "queue", r.inQueue)
	for {
		if err := ctx.Err(); err != nil {
			r.logger.Info("queue router stopped")
			return nil
		}

		out, err := r.api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(r.inQueue),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     r.waitTime,
		})
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			r.logger.Error("receive failed", log.Error(err))
			r.metrics.PollErrorsTotal.WithLabelValues("queue-router").Inc()
			r.idle(ctx)
			continue
		}
		if len(out.Messages) == 0 {
			r.idle(ctx)
			continue
		}

		for _, msg := range out.Messages {
			ack, err := r.handle(ctx, aws.ToString(msg.Body))
			if err != nil {
				r.logger.Error("failed to route notification", log.Error(err))
				r.metrics.QueueMessagesTotal.WithLabelValues("invalid").Inc()
			}
			// unmatched and malformed notifications are acknowledged so
			// they never block the queue; a failed start-message send is
			// not, so the visibility timeout redelivers the event
			if !ack {
				continue
			}
			_, err = r.api.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(r.inQueue),
				ReceiptHandle: msg.ReceiptHandle,
			})
			if err != nil {
				r.logger.Error("failed to delete notification", log.Error(err))
			}
		}
	}
}

// handle routes one notification body. It reports whether the source
// message may be acknowledged: true for routed, unmatched and malformed
// notifications, false when a start message could not be sent, so the
// source survives for redelivery.
func (r *Router) handle(ctx context.Context, body string) (bool, error) {
	var note s3Notification
	if err := json.Unmarshal([]byte(body), &note); err != nil {
		return true, fmt.Errorf("queue: decode notification: %w", err)
	}

	for _, record := range note.Records {
		bucket := record.S3.Bucket.Name
		key := record.S3.Object.Key
		// S3 notifications URL-encode keys, spaces arrive as '+'
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}

		logger := r.logger.With(log.BucketKey, bucket, log.KeyNameKey, key)

		starter := r.rules.Match(bucket, key)
		if starter == "" {
			logger.Info("no rule matched, dropping notification")
			r.metrics.QueueMessagesTotal.WithLabelValues("unmatched").Inc()
			continue
		}

		message := StartMessage{
			Starter: starter,
			Data: StartData{
				Bucket:    bucket,
				Key:       key,
				EventTime: record.EventTime,
				Run:       r.newRun(),
			},
		}
		encoded, err := json.Marshal(message)
		if err != nil {
			return true, fmt.Errorf("queue: encode start message: %w", err)
		}
		_, err = r.api.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(r.outQueue),
			MessageBody: aws.String(string(encoded)),
		})
		if err != nil {
			return false, fmt.Errorf("queue: send start message: %w", err)
		}
		logger.Info("routed notification", "starter", starter, log.RunKey, message.Data.Run)
		r.metrics.QueueMessagesTotal.WithLabelValues("routed").Inc()
	}
	return true, nil
}

func (r *Router) idle(ctx context.Context) {
	if r.IdleDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(r.IdleDelay):
	}
}
