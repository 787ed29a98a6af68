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

package starter

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/pubflow/pubflow/internal/log"
	"github.com/pubflow/pubflow/internal/metrics"
	"github.com/pubflow/pubflow/internal/queue"
)

// Dispatcher consumes start messages from the workflow-starter queue
// and submits them through the starter.
type Dispatcher struct {
	api      queue.SQSAPI
	registry *Registry
	starter  *Starter
	queueURL string
	logger   *slog.Logger
	metrics  *metrics.Metrics
	waitTime int32

	// IdleDelay is slept after an empty receive. Zero disables the
	// delay.
	IdleDelay time.Duration
}

// NewDispatcher creates a dispatcher on the given queue.
func NewDispatcher(api queue.SQSAPI, registry *Registry, s *Starter, queueURL string, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		api:      api,
		registry: registry,
		starter:  s,
		queueURL: queueURL,
		logger:   log.WithComponent(logger, "starter-dispatcher"),
		metrics:  m,
		waitTime: 20,
	}
}

// Run consumes start messages until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("starter dispatcher started", "queue", d.queueURL)
	for {
		if err := ctx.Err(); err != nil {
			d.logger.Info("starter dispatcher stopped")
			return nil
		}

		out, err := d.api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(d.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     d.waitTime,
		})
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			d.logger.Error("receive failed", log.Error(err))
			d.metrics.PollErrorsTotal.WithLabelValues("starter-dispatcher").Inc()
			d.idle(ctx)
			continue
		}
		if len(out.Messages) == 0 {
			d.idle(ctx)
			continue
		}

		for _, msg := range out.Messages {
			d.handle(ctx, aws.ToString(msg.Body))
			_, err := d.api.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(d.queueURL),
				ReceiptHandle: msg.ReceiptHandle,
			})
			if err != nil {
				d.logger.Error("failed to delete start message", log.Error(err))
			}
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, body string) {
	var msg queue.StartMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		d.logger.Error("malformed start message", log.Error(err))
		return
	}

	fn, ok := d.registry.Lookup(msg.Starter)
	if !ok {
		d.logger.Error("unknown starter", "starter", msg.Starter)
		return
	}
	req, err := fn(msg.Data)
	if err != nil {
		d.logger.Error("failed to compose start",
			log.Error(err), "starter", msg.Starter)
		return
	}
	if err := d.starter.Start(ctx, req); err != nil {
		d.logger.Error("start failed",
			log.Error(err), "starter", msg.Starter)
	}
}

func (d *Dispatcher) idle(ctx context.Context) {
	if d.IdleDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d.IdleDelay):
	}
}
