// Copyright (c) 2025 The centralised-logging Authors
//
// This file is part of centralised-logging.
//
// centralised-logging is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact the centralised-logging maintainers for commercial licensing options.

// Package naming derives canonical destination keys for delivered log batches.
//
// A destination key has the form
//
//	<prefix><stem><timestamp>[-<token>]<suffix>
//
// for example "renamed-logs/renamed-20240102T030405678Z-9f86d081884c7d65.gz".
// The timestamp is the observation time in UTC with millisecond precision and
// the characters ':', '.' and '-' removed. The token depends on the policy.
package naming

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultPrefix is the destination prefix used when none is configured.
	DefaultPrefix = "renamed-logs/"

	// DefaultSuffix marks the destination as a compressed log batch.
	DefaultSuffix = ".gz"

	// Stem precedes the timestamp in every destination key.
	Stem = "renamed-"

	// TokenLength is the number of hex characters kept from the token digest.
	TokenLength = 16

	timestampLayout = "20060102T150405.000Z"
)

// Policy selects how the disambiguating token is derived.
type Policy string

const (
	// PolicyWallClock uses only the timestamp. Two sources observed in the
	// same millisecond collide on one destination key.
	PolicyWallClock Policy = "wallclock"

	// PolicySource appends a digest of bucket and source key.
	PolicySource Policy = "source"

	// PolicyContent appends a digest of bucket, source key and ETag, falling
	// back to PolicySource when no ETag is known.
	PolicyContent Policy = "content"
)

// DefaultPolicy is the policy used when none is configured.
const DefaultPolicy = PolicySource

// ErrUnknownPolicy is returned by ParsePolicy for an unrecognised name.
var ErrUnknownPolicy = errors.New("unknown naming policy")

// ParsePolicy converts a configuration value to a Policy. An empty value
// selects DefaultPolicy.
func ParsePolicy(name string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(name))); p {
	case "":
		return DefaultPolicy, nil
	case PolicyWallClock, PolicySource, PolicyContent:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// Source identifies the object being renamed.
type Source struct {
	Bucket string
	Key    string
	ETag   string
}

// Namer computes destination keys. The zero value is not usable; build one
// with New.
type Namer struct {
	prefix string
	suffix string
	policy Policy
}

// New returns a Namer. Empty prefix or suffix select the defaults.
func New(prefix, suffix string, policy Policy) (*Namer, error) {
	switch policy {
	case PolicyWallClock, PolicySource, PolicyContent:
	case "":
		policy = DefaultPolicy
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return &Namer{prefix: prefix, suffix: suffix, policy: policy}, nil
}

// Prefix returns the destination prefix.
func (n *Namer) Prefix() string {
	return n.prefix
}

// Policy returns the configured policy.
func (n *Namer) Policy() Policy {
	return n.policy
}

// DestinationKey returns the canonical key for src observed at observedAt.
func (n *Namer) DestinationKey(src Source, observedAt time.Time) string {
	var b strings.Builder
	b.WriteString(n.prefix)
	b.WriteString(Stem)
	b.WriteString(Timestamp(observedAt))
	if token := n.token(src); token != "" {
		b.WriteByte('-')
		b.WriteString(token)
	}
	b.WriteString(n.suffix)
	return b.String()
}

func (n *Namer) token(src Source) string {
	switch n.policy {
	case PolicyWallClock:
		return ""
	case PolicyContent:
		if src.ETag != "" {
			return digest(src.Bucket + "/" + src.Key + "@" + strings.Trim(src.ETag, `"`))
		}
	}
	return digest(src.Bucket + "/" + src.Key)
}

// Timestamp renders t in UTC as compact ISO-8601 with milliseconds,
// e.g. 2024-01-02T03:04:05.678Z becomes 20240102T030405678Z.
func Timestamp(t time.Time) string {
	return strings.Replace(t.UTC().Format(timestampLayout), ".", "", 1)
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:TokenLength]
}
