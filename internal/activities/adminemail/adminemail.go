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

// Package adminemail drains queued admin notifications from the bot
// bucket into a single summary email.
//
// Activities drop notification files under the admin outbox instead of
// emailing directly, so a noisy afternoon produces one digest instead
// of a hundred messages. Notifications are deleted only after the
// email is accepted by the transport.
package adminemail

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/pubflow/pubflow/internal/activity"
	"github.com/pubflow/pubflow/internal/email"
	"github.com/pubflow/pubflow/internal/log"
	"github.com/pubflow/pubflow/internal/objstore"
)

// OutboxPrefix is where activities queue notification files.
const OutboxPrefix = "admin/outbox/"

// Config configures the AdminEmail activity.
type Config struct {
	Bucket     string
	Domain     string
	FromEmail  string
	AdminEmail string
}

// AdminEmail is the AdminEmail activity.
type AdminEmail struct {
	store  objstore.Store
	sender email.Sender
	logger *slog.Logger
	cfg    Config

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

var _ activity.Activity = (*AdminEmail)(nil)

// New creates the activity.
func New(store objstore.Store, sender email.Sender, logger *slog.Logger, cfg Config) *AdminEmail {
	return &AdminEmail{
		store:  store,
		sender: sender,
		logger: log.WithComponent(logger, "adminemail"),
		cfg:    cfg,
	}
}

// Name implements activity.Activity.
func (a *AdminEmail) Name() string { return "AdminEmail" }

// Do implements activity.Activity. An unreadable outbox or a rejected
// email is temporary: the notifications stay queued for the next run.
func (a *AdminEmail) Do(ctx context.Context, env *activity.Env, params activity.Params) (activity.Outcome, error) {
	keys, err := a.store.List(ctx, objstore.Address{Bucket: a.cfg.Bucket, Key: OutboxPrefix})
	if err != nil {
		return activity.TemporaryFailure, fmt.Errorf("adminemail: list outbox: %w", err)
	}
	if len(keys) == 0 {
		a.logger.Info("admin outbox empty")
		return activity.Success, nil
	}
	sort.Strings(keys)

	now := time.Now
	if a.Now != nil {
		now = a.Now
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Queued notifications at %s\n", now().UTC().Format(time.RFC3339))
	for _, key := range keys {
		var buf bytes.Buffer
		if err := a.store.Get(ctx, objstore.Address{Bucket: a.cfg.Bucket, Key: key}, &buf); err != nil {
			return activity.TemporaryFailure, fmt.Errorf("adminemail: read %s: %w", key, err)
		}
		fmt.Fprintf(&body, "\n== %s ==\n%s\n", path.Base(key), strings.TrimRight(buf.String(), "\n"))
	}

	msg := email.Message{
		From: a.cfg.FromEmail,
		To:   email.AddressList(a.cfg.AdminEmail),
		Subject: fmt.Sprintf("AdminEmail Success! files: %d, %s",
			len(keys), a.cfg.Domain),
		Body: body.String(),
	}
	if err := a.sender.Send(ctx, msg); err != nil {
		return activity.TemporaryFailure, fmt.Errorf("adminemail: send: %w", err)
	}

	for _, key := range keys {
		if err := a.store.Delete(ctx, objstore.Address{Bucket: a.cfg.Bucket, Key: key}); err != nil {
			// a leftover notification repeats in the next digest, which
			// beats losing it
			a.logger.Error("outbox delete failed", log.Error(err), log.KeyNameKey, key)
		}
	}

	a.logger.Info("admin digest sent", "notifications", len(keys))
	return activity.Success, nil
}
