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

package rename

// Status is the terminal state of one rename.
type Status string

const (
	// StatusRenamed means the copy was confirmed and the source removed.
	StatusRenamed Status = "renamed"

	// StatusAlreadyRenamed means the source no longer existed. An earlier
	// delivery of the same notification finished the work.
	StatusAlreadyRenamed Status = "already_renamed"

	// StatusSkipped means the object is itself a rename product or a dead
	// letter and must not be renamed again.
	StatusSkipped Status = "skipped"

	// StatusFailed means Err is set.
	StatusFailed Status = "failed"
)

// Outcome describes what happened to one source object.
type Outcome struct {
	Bucket            string `json:"bucket"`
	SourceKey         string `json:"source_key"`
	DestinationBucket string `json:"destination_bucket,omitempty"`
	DestinationKey    string `json:"destination_key,omitempty"`
	Status            Status `json:"status"`

	// Copied is true once the destination is known to exist.
	Copied bool `json:"copied"`
	// Deleted is true once the source is known to be gone.
	Deleted bool `json:"deleted"`

	Bytes int64 `json:"bytes,omitempty"`
	Err   error `json:"-"`
}

// OK reports whether the outcome needs no further delivery.
func (o Outcome) OK() bool {
	return o.Err == nil
}
