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

package email

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// AdminReport summarizes one deposit run for the admin email.
type AdminReport struct {
	Activity     string
	Domain       string
	Succeeded    bool
	Statuses     map[string]bool
	Outbox       []string
	Published    []string
	NotPublished []string
	Timestamp    time.Time

	// Detail carries the endpoint's verbatim response per deposit file.
	Detail map[string]string
}

// AdminMessage composes the per-run admin notification. The subject
// carries the published file count so run outcomes are scannable from
// an inbox listing; the body carries the phase statuses, the outbox
// contents and the per-file endpoint responses.
func AdminMessage(report AdminReport, from, to string) Message {
	outcome := "Success"
	if !report.Succeeded {
		outcome = "FAILED"
	}
	subject := fmt.Sprintf("%s %s! files: %d, %s",
		report.Activity, outcome, len(report.Published), report.Domain)

	ts := report.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s run at %s\n", report.Activity, ts.UTC().Format(time.RFC3339))

	if len(report.Statuses) > 0 {
		fmt.Fprintf(&b, "\nStatuses:\n")
		for _, key := range sortedKeys(report.Statuses) {
			fmt.Fprintf(&b, "  %s: %t\n", key, report.Statuses[key])
		}
	}
	if len(report.Outbox) > 0 {
		fmt.Fprintf(&b, "\nOutbox: %d\n", len(report.Outbox))
		for _, name := range report.Outbox {
			fmt.Fprintf(&b, "  %s\n", name)
		}
	}
	fmt.Fprintf(&b, "\nPublished files: %d\n", len(report.Published))
	for _, name := range report.Published {
		fmt.Fprintf(&b, "  %s\n", name)
	}
	if len(report.NotPublished) > 0 {
		fmt.Fprintf(&b, "\nNot published: %d\n", len(report.NotPublished))
		for _, name := range report.NotPublished {
			fmt.Fprintf(&b, "  %s\n", name)
		}
	}
	if len(report.Detail) > 0 {
		fmt.Fprintf(&b, "\nEndpoint responses:\n")
		for _, name := range sortedKeys(report.Detail) {
			fmt.Fprintf(&b, "  %s: %s\n", name, report.Detail[name])
		}
	}

	return Message{
		From:    from,
		To:      AddressList(to),
		Subject: subject,
		Body:    b.String(),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AddressList splits a comma-separated recipient setting into
// individual addresses.
func AddressList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
