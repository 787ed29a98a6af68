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

package workflow

// Workflow type names.
const (
	Ping                      = "Ping"
	DepositCrossref           = "DepositCrossref"
	DepositCrossrefPeerReview = "DepositCrossrefPeerReview"
	PubmedArticleDeposit      = "PubmedArticleDeposit"
	IngestDigest              = "IngestDigest"
	AdminEmail                = "AdminEmail"
)

// DefaultRegistry returns a registry holding every production workflow.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Ping, PingDefinition)
	r.Register(DepositCrossref, DepositCrossrefDefinition)
	r.Register(DepositCrossrefPeerReview, DepositCrossrefPeerReviewDefinition)
	r.Register(PubmedArticleDeposit, PubmedArticleDepositDefinition)
	r.Register(IngestDigest, IngestDigestDefinition)
	r.Register(AdminEmail, AdminEmailDefinition)
	return r
}

// PingDefinition is the trivial liveness workflow: a single worker
// round-trip.
func PingDefinition(taskList, input string) Definition {
	return Definition{
		Name:             Ping,
		Version:          "1",
		TaskList:         taskList,
		ExecutionTimeout: 60 * 5,
		Steps: []Step{
			shortStep("PingWorker", input),
		},
	}
}

// DepositCrossrefDefinition deposits journal article metadata with
// Crossref from the outbox.
func DepositCrossrefDefinition(taskList, input string) Definition {
	return Definition{
		Name:             DepositCrossref,
		Version:          "1",
		TaskList:         taskList,
		ExecutionTimeout: 60 * 20,
		Steps: []Step{
			shortStep("PingWorker", input),
			depositStep("DepositCrossref", input),
		},
	}
}

// DepositCrossrefPeerReviewDefinition deposits peer review material
// metadata with Crossref from its own outbox.
func DepositCrossrefPeerReviewDefinition(taskList, input string) Definition {
	return Definition{
		Name:             DepositCrossrefPeerReview,
		Version:          "1",
		TaskList:         taskList,
		ExecutionTimeout: 60 * 20,
		Steps: []Step{
			shortStep("PingWorker", input),
			depositStep("DepositCrossrefPeerReview", input),
		},
	}
}

// PubmedArticleDepositDefinition generates and uploads PubMed XML over
// SFTP from the outbox.
func PubmedArticleDepositDefinition(taskList, input string) Definition {
	return Definition{
		Name:             PubmedArticleDeposit,
		Version:          "1",
		TaskList:         taskList,
		ExecutionTimeout: 60 * 20,
		Steps: []Step{
			shortStep("PingWorker", input),
			depositStep("PubmedArticleDeposit", input),
		},
	}
}

// AdminEmailDefinition drains the queued admin notifications into one
// summary email.
func AdminEmailDefinition(taskList, input string) Definition {
	return Definition{
		Name:             AdminEmail,
		Version:          "1",
		TaskList:         taskList,
		ExecutionTimeout: 60 * 10,
		Steps: []Step{
			mediumStep("AdminEmail", input),
		},
	}
}

// IngestDigestDefinition ingests a digest package: version lookup then
// delivery to the digest endpoint.
func IngestDigestDefinition(taskList, input string) Definition {
	return Definition{
		Name:             IngestDigest,
		Version:          "1",
		TaskList:         taskList,
		ExecutionTimeout: 60 * 30,
		Steps: []Step{
			shortStep("PingWorker", input),
			mediumStep("VersionLookup", input),
			mediumStep("IngestDigestToEndpoint", input),
		},
	}
}
