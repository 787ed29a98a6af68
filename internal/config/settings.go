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

// Package config loads the per-environment settings record.
//
// Settings are read once at process start and treated as immutable
// afterwards. Every component receives the record explicitly; nothing
// reaches into a package-level cache.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings is the frozen per-environment configuration record.
type Settings struct {
	// Domain is the workflow backend domain name.
	Domain string `yaml:"domain"`

	// DefaultTaskList is the task list polled by deciders and workers.
	DefaultTaskList string `yaml:"default_task_list"`

	// Region is the AWS region for SWF, S3, SQS and SES.
	Region string `yaml:"region"`

	// StorageProvider is the object-store URI scheme, normally "s3".
	StorageProvider string `yaml:"storage_provider"`

	// PublishingBucket holds the deposit outbox/published prefixes.
	PublishingBucket string `yaml:"publishing_bucket"`

	// ArticlesBucket receives incoming article packages.
	ArticlesBucket string `yaml:"articles_bucket"`

	// BotBucket holds intermediate files such as digest sources.
	BotBucket string `yaml:"bot_bucket"`

	// S3MonitorQueue is the queue receiving S3 event notifications.
	S3MonitorQueue string `yaml:"s3_monitor_queue"`

	// WorkflowStarterQueue receives workflow-start messages.
	WorkflowStarterQueue string `yaml:"workflow_starter_queue"`

	// EventMonitorQueue receives monitor lifecycle events.
	EventMonitorQueue string `yaml:"event_monitor_queue"`

	// SessionDBPath is the SQLite database file for session state.
	SessionDBPath string `yaml:"session_db_path"`

	// Timezone for local-time cron entries, e.g. "Europe/London".
	Timezone string `yaml:"timezone"`

	// JournalPrefix is the file-name prefix of article packages.
	JournalPrefix string `yaml:"journal_prefix"`

	Crossref CrossrefSettings `yaml:"crossref"`
	Pubmed   PubmedSettings   `yaml:"pubmed"`
	Lax      LaxSettings      `yaml:"lax"`
	Digest   DigestSettings   `yaml:"digest"`
	Fastly   FastlySettings   `yaml:"fastly"`
	Email    EmailSettings    `yaml:"email"`
}

// CrossrefSettings configures the Crossref deposit endpoint.
type CrossrefSettings struct {
	URL          string   `yaml:"url"`
	LoginID      string   `yaml:"login_id"`
	LoginPasswd  string   `yaml:"login_passwd"`
	PubDateTypes []string `yaml:"pub_date_types"`

	// Depositor fields go into the doi_batch head.
	DepositorName  string `yaml:"depositor_name"`
	DepositorEmail string `yaml:"depositor_email"`
	Registrant     string `yaml:"registrant"`
}

// PubmedSettings configures the PubMed SFTP endpoint.
type PubmedSettings struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// CWD is the remote working directory for uploads.
	CWD string `yaml:"cwd"`

	// JournalTitle and PublisherName go into each ArticleSet entry.
	JournalTitle  string `yaml:"journal_title"`
	PublisherName string `yaml:"publisher_name"`
}

// LaxSettings configures the article-versions service.
type LaxSettings struct {
	// ArticleVersionsURL is the base URL of the versions service; the
	// client appends /{article_id}/version/.
	ArticleVersionsURL string `yaml:"article_versions_url"`
	VerifySSL          bool   `yaml:"verify_ssl"`
}

// DigestSettings configures the digest API endpoint.
type DigestSettings struct {
	URL string `yaml:"url"`
	// AuthKey is sent in the Authorization header on PUT.
	AuthKey string `yaml:"auth_key"`
	// PreviewBaseURL composes the preview link in end events.
	PreviewBaseURL string `yaml:"preview_base_url"`
}

// FastlySettings configures CDN purging.
type FastlySettings struct {
	APIKey     string   `yaml:"api_key"`
	ServiceIDs []string `yaml:"service_ids"`
}

// EmailSettings configures outgoing mail.
type EmailSettings struct {
	// Provider selects the transport: "smtp" or "ses".
	Provider string `yaml:"provider"`

	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPStartTLS bool   `yaml:"smtp_starttls"`
	SMTPSSL      bool   `yaml:"smtp_ssl"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`

	// SenderEmail is the from address for system mail.
	SenderEmail string `yaml:"sender_email"`
	// AdminEmail is a comma-separated list of admin recipients.
	AdminEmail string `yaml:"admin_email"`
}

// Load reads the settings file at path and applies defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse settings YAML: %w", err)
	}

	s.applyDefaults()

	if err := s.validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// applyDefaults fills in any missing values.
func (s *Settings) applyDefaults() {
	if s.StorageProvider == "" {
		s.StorageProvider = "s3"
	}
	if s.DefaultTaskList == "" {
		s.DefaultTaskList = "DefaultTaskList"
	}
	if s.Timezone == "" {
		s.Timezone = "Europe/London"
	}
	if s.SessionDBPath == "" {
		s.SessionDBPath = "pubflow-session.db"
	}
	if s.Pubmed.Port == 0 {
		s.Pubmed.Port = 22
	}
	if s.Email.Provider == "" {
		s.Email.Provider = "smtp"
	}
	if s.Email.SMTPPort == 0 {
		s.Email.SMTPPort = 25
	}
}

// validate checks the fields every process depends on.
func (s *Settings) validate() error {
	if s.Domain == "" {
		return fmt.Errorf("settings: domain is required")
	}
	if s.Region == "" {
		return fmt.Errorf("settings: region is required")
	}
	return nil
}
