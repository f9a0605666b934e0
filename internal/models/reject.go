package models

import (
	"fmt"
	"strings"
)

// Rejection explains why input was refused before any network call.
// Rejections are values, not panics: they carry enough detail (limit,
// actual value, offending file names) to render a precise user message.
type Rejection interface {
	error
	// Message returns the user-facing explanation
	Message() string
}

// AspectRejected reports an image outside the accepted aspect ratio window
type AspectRejected struct {
	FileName  string
	Ratio     float64
	Target    float64
	Tolerance float64
}

func (r *AspectRejected) Message() string {
	return fmt.Sprintf("%s has aspect ratio %.2f, expected %.2f (±%.2f)",
		r.FileName, r.Ratio, r.Target, r.Tolerance)
}

func (r *AspectRejected) Error() string { return r.Message() }

// TypeRejected reports a file whose MIME type is not in the allow-list,
// or a file that could not be decoded at all
type TypeRejected struct {
	FileName    string
	MimeType    string
	Allowed     []string
	Undecodable bool
}

func (r *TypeRejected) Message() string {
	if r.Undecodable {
		return fmt.Sprintf("%s could not be read as an image", r.FileName)
	}
	return fmt.Sprintf("%s has type %s, allowed: %s",
		r.FileName, r.MimeType, strings.Join(r.Allowed, ", "))
}

func (r *TypeRejected) Error() string { return r.Message() }

// SizeRejected reports every file exceeding the per-file size ceiling
type SizeRejected struct {
	FileNames  []string
	LimitBytes int64
}

func (r *SizeRejected) Message() string {
	return fmt.Sprintf("file(s) exceed the %s per-file limit: %s",
		FormatBytes(r.LimitBytes), strings.Join(r.FileNames, ", "))
}

func (r *SizeRejected) Error() string { return r.Message() }

// BatchRejected reports a batch pushing the pending set past its count
// or aggregate-size ceiling. The whole batch is refused, never truncated.
type BatchRejected struct {
	CountExceeded bool
	MaxCount      int
	ActualCount   int

	AggregateExceeded bool
	MaxTotalBytes     int64
	ActualTotalBytes  int64
}

func (r *BatchRejected) Message() string {
	if r.CountExceeded {
		return fmt.Sprintf("adding these files would stage %d items, the limit is %d",
			r.ActualCount, r.MaxCount)
	}
	return fmt.Sprintf("adding these files would stage %s in total, the limit is %s",
		FormatBytes(r.ActualTotalBytes), FormatBytes(r.MaxTotalBytes))
}

func (r *BatchRejected) Error() string { return r.Message() }

// FieldRejected reports a required scalar field that is empty after trimming
type FieldRejected struct {
	Field string
}

func (r *FieldRejected) Message() string {
	return fmt.Sprintf("%s is required", r.Field)
}

func (r *FieldRejected) Error() string { return r.Message() }

// MediaRequired reports an unmet domain media requirement, e.g. a news
// story needing at least one live image before it can be created
type MediaRequired struct {
	Requirement string
}

func (r *MediaRequired) Message() string { return r.Requirement }

func (r *MediaRequired) Error() string { return r.Message() }

// FormatBytes renders a byte count for user-facing messages
func FormatBytes(n int64) string {
	const (
		kb = 1 << 10
		mb = 1 << 20
	)
	switch {
	case n >= mb:
		return fmt.Sprintf("%.0fMB", float64(n)/float64(mb))
	case n >= kb:
		return fmt.Sprintf("%.0fKB", float64(n)/float64(kb))
	default:
		return fmt.Sprintf("%dB", n)
	}
}
