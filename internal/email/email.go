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

// Package email sends notification mail over SMTP or SES, selected by
// configuration.
package email

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/wneessen/go-mail"
)

// Message is one outbound mail.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Sender delivers messages over one transport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig describes the SMTP relay. Empty Username skips
// authentication, for relays inside the network boundary.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string

	// StartTLS requires the connection to upgrade via STARTTLS; SSL
	// dials with implicit TLS instead. Neither set means opportunistic
	// TLS.
	StartTLS bool
	SSL      bool
}

// TLSPolicy maps the configured flags onto the transport policy.
func (c SMTPConfig) TLSPolicy() mail.TLSPolicy {
	if c.StartTLS {
		return mail.TLSMandatory
	}
	return mail.TLSOpportunistic
}

// SMTPSender delivers over SMTP.
type SMTPSender struct {
	cfg SMTPConfig
}

var _ Sender = (*SMTPSender)(nil)

// NewSMTPSender creates an SMTP sender.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send delivers one message, dialing per call.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return fmt.Errorf("email: from address: %w", err)
	}
	if err := m.To(msg.To...); err != nil {
		return fmt.Errorf("email: to addresses: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(s.cfg.TLSPolicy()),
	}
	if s.cfg.SSL {
		opts = append(opts, mail.WithSSL())
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("email: smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("email: send via %s: %w", s.cfg.Host, err)
	}
	return nil
}

// SESAPI is the slice of the SES v2 API the sender uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender delivers through the SES v2 API.
type SESSender struct {
	api SESAPI
}

var _ Sender = (*SESSender)(nil)

// NewSESSender creates a sender on an SES client.
func NewSESSender(api SESAPI) *SESSender {
	return &SESSender{api: api}
}

// Send delivers one message.
func (s *SESSender) Send(ctx context.Context, msg Message) error {
	_, err := s.api.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From),
		Destination:      &sestypes.Destination{ToAddresses: msg.To},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(msg.Subject)},
				Body: &sestypes.Body{
					Text: &sestypes.Content{Data: aws.String(msg.Body)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("email: send via ses: %w", err)
	}
	return nil
}

// MemorySender captures messages for tests. A non-nil Err is returned
// from every Send without recording the message.
type MemorySender struct {
	mu       sync.Mutex
	Messages []Message
	Err      error
}

var _ Sender = (*MemorySender)(nil)

// Send records the message.
func (s *MemorySender) Send(ctx context.Context, msg Message) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, msg)
	return nil
}
