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

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/swf"

	"github.com/pubflow/pubflow/internal/backend"
	"github.com/pubflow/pubflow/internal/config"
	"github.com/pubflow/pubflow/internal/email"
	"github.com/pubflow/pubflow/internal/lax"
	"github.com/pubflow/pubflow/internal/log"
	"github.com/pubflow/pubflow/internal/metrics"
	"github.com/pubflow/pubflow/internal/monitor"
	"github.com/pubflow/pubflow/internal/objstore"
	"github.com/pubflow/pubflow/internal/session"
)

// Runtime bundles the clients every subcommand builds from settings.
type Runtime struct {
	Settings *config.Settings
	Logger   *slog.Logger
	Metrics  *metrics.Metrics

	swf *swf.Client
	s3  *s3.Client
	sqs *sqs.Client
	ses *sesv2.Client
}

// NewRuntime loads settings and constructs the AWS clients.
func NewRuntime(ctx context.Context, opts *Options, logger *slog.Logger) (*Runtime, error) {
	settings, err := config.Load(opts.SettingsPath)
	if err != nil {
		return nil, err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(settings.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Runtime{
		Settings: settings,
		Logger:   logger,
		Metrics:  metrics.New(),
		swf:      swf.NewFromConfig(awsCfg),
		s3:       s3.NewFromConfig(awsCfg),
		sqs:      sqs.NewFromConfig(awsCfg),
		ses:      sesv2.NewFromConfig(awsCfg),
	}, nil
}

// Backend returns the workflow backend client.
func (r *Runtime) Backend() backend.Client {
	return backend.NewSWFClient(r.swf, r.Settings.Domain)
}

// Store returns the object-store facade.
func (r *Runtime) Store() objstore.Store {
	return objstore.NewS3Store(r.s3)
}

// SQS returns the raw SQS client for queue consumers.
func (r *Runtime) SQS() *sqs.Client {
	return r.sqs
}

// Sink returns the monitor sink, or nil when no event queue is
// configured.
func (r *Runtime) Sink() monitor.Sink {
	if r.Settings.EventMonitorQueue == "" {
		return nil
	}
	return monitor.NewSQSSink(r.sqs, r.Settings.EventMonitorQueue, r.Logger)
}

// Sessions opens the session store.
func (r *Runtime) Sessions() (session.Store, error) {
	return session.OpenSQLite(r.Settings.SessionDBPath)
}

// Lax returns the article-versions client.
func (r *Runtime) Lax() *lax.Client {
	return lax.NewClient(r.Settings.Lax.ArticleVersionsURL, r.Settings.Lax.VerifySSL)
}

// Sender returns the mail transport selected by settings.
func (r *Runtime) Sender() email.Sender {
	if r.Settings.Email.Provider == "ses" {
		return email.NewSESSender(r.ses)
	}
	return email.NewSMTPSender(email.SMTPConfig{
		Host:     r.Settings.Email.SMTPHost,
		Port:     r.Settings.Email.SMTPPort,
		Username: r.Settings.Email.SMTPUser,
		Password: r.Settings.Email.SMTPPassword,
		StartTLS: r.Settings.Email.SMTPStartTLS,
		SSL:      r.Settings.Email.SMTPSSL,
	})
}

// ServeMetrics exposes the Prometheus endpoint until ctx is cancelled.
// An empty addr disables it.
func (r *Runtime) ServeMetrics(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Metrics.Handler())

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.Logger.Error("metrics server failed", log.Error(err))
		}
	}()
}

// rootLogger builds the process logger from the environment.
func rootLogger() *slog.Logger {
	return log.New(log.FromEnv())
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
