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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wneessen/go-mail"
)

func TestSMTPTLSPolicy(t *testing.T) {
	assert.Equal(t, mail.TLSOpportunistic, SMTPConfig{}.TLSPolicy())
	assert.Equal(t, mail.TLSMandatory, SMTPConfig{StartTLS: true}.TLSPolicy())
	// implicit TLS needs no upgrade
	assert.Equal(t, mail.TLSOpportunistic, SMTPConfig{SSL: true}.TLSPolicy())
}
