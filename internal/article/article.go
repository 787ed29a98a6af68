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

// Package article derives article identity from package file names.
//
// Every pipeline downstream of the queue router re-parses file names
// into the same Info record, so the grammar lives in exactly one place:
//
//	<journal>-<id>[-<status>][-v<N>][-r<N>][-<timestamp>].<ext>
//	digest[-_ ]<id>.<ext>
//
// where <status> is "poa", "vor" or "silent", <id> is a zero-padded
// numeric article id and <timestamp> is a 14-digit UTC stamp.
package article

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind classifies the package a file name belongs to.
type Kind string

const (
	// KindPOA is a publish-on-accept article package.
	KindPOA Kind = "poa"
	// KindVOR is a version-of-record article package.
	KindVOR Kind = "vor"
	// KindDigest is a digest document package.
	KindDigest Kind = "digest"
	// KindSilent is a silent-correction re-ingest package.
	KindSilent Kind = "silent"
)

// Info is the identity parsed from a package file name.
type Info struct {
	Kind Kind

	// ID is the numeric article id as found in the name, zero padding
	// preserved.
	ID string

	// Version is the -v suffix value, or 0 when absent.
	Version int

	// Revision is the -r suffix value, or 0 when absent.
	Revision int
}

var (
	articlePattern = regexp.MustCompile(`^([a-z]+)-(\d+)(?:-(poa|vor|silent))?(?:-v(\d+))?(?:-r(\d+))?(?:-\d{14})?\.\w+$`)
	digestPattern  = regexp.MustCompile(`^(?i)digest[-_ ]0*(\d+)\.\w+$`)
	versionSuffix  = regexp.MustCompile(`-v\d+`)
)

// Parse derives an Info from a package file name. The name may carry a
// path prefix, which is ignored.
func Parse(name string) (Info, error) {
	base := name
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}

	if m := digestPattern.FindStringSubmatch(base); m != nil {
		return Info{Kind: KindDigest, ID: m[1]}, nil
	}

	m := articlePattern.FindStringSubmatch(strings.ToLower(base))
	if m == nil {
		return Info{}, fmt.Errorf("article: unrecognized file name %q", name)
	}

	info := Info{ID: m[2]}
	switch m[3] {
	case "poa":
		info.Kind = KindPOA
	case "silent":
		info.Kind = KindSilent
	default:
		// vor explicitly, or a bare article XML which follows the
		// version-of-record convention
		info.Kind = KindVOR
	}
	if m[4] != "" {
		info.Version, _ = strconv.Atoi(m[4])
	}
	if m[5] != "" {
		info.Revision, _ = strconv.Atoi(m[5])
	}
	return info, nil
}

// IDInt returns the article id as an integer.
func (i Info) IDInt() (int, error) {
	n, err := strconv.Atoi(i.ID)
	if err != nil {
		return 0, fmt.Errorf("article: non-numeric id %q: %w", i.ID, err)
	}
	return n, nil
}

// PadID zero-pads a numeric article id to five digits, the width used
// in bucket keys and surrogate keys.
func PadID(id string) string {
	n, err := strconv.Atoi(id)
	if err != nil {
		return id
	}
	return fmt.Sprintf("%05d", n)
}

// StripVersion removes the -v<N> suffix from a file name, the naming
// rule for outbound deposit files.
func StripVersion(name string) string {
	return versionSuffix.ReplaceAllString(name, "")
}
