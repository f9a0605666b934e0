// Package validator gates candidate files before they are allowed into a
// pending media set. Every check returns a classified rejection value for
// expected-input problems; nothing here panics or errors on bad user input.
package validator

import (
	"image"
	"math"
	"slices"

	// Registered decoders for aspect-ratio probing. Only the image header
	// is read, never the full pixel data.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/JuanRG-20221039/paulofraire-media/internal/models"
)

// Rules captures every ceiling a call site applies to incoming files.
// Values come from configuration, never from literals at the call site.
type Rules struct {
	AllowedMimeTypes []string
	MaxFileBytes     int64
	MaxTotalBytes    int64
	MaxCount         int

	// AspectRatio is width/height; zero disables the aspect gate
	AspectRatio     float64
	AspectTolerance float64
}

// PendingState reports the current load of a staging set
type PendingState interface {
	Count() int
	TotalBytes() int64
}

// ValidateFileType checks a file's MIME type against an allow-list.
// The declared type is matched exactly; content is never sniffed.
func ValidateFileType(f *models.LocalFile, allowed []string) models.Rejection {
	if slices.Contains(allowed, f.MimeType) {
		return nil
	}
	return &models.TypeRejected{
		FileName: f.Name,
		MimeType: f.MimeType,
		Allowed:  allowed,
	}
}

// ValidateFileSize checks a file against the per-file size ceiling
func ValidateFileSize(f *models.LocalFile, maxBytes int64) models.Rejection {
	if f.SizeBytes <= maxBytes {
		return nil
	}
	return &models.SizeRejected{
		FileNames:  []string{f.Name},
		LimitBytes: maxBytes,
	}
}

// ValidateImageAspect probes the file's pixel dimensions and accepts when
// |width/height - target| <= tolerance (inclusive boundary). Only the
// image header is decoded. An undecodable file is a type rejection, not
// an error.
func ValidateImageAspect(f *models.LocalFile, target, tolerance float64) models.Rejection {
	rc, err := f.Source.Open()
	if err != nil {
		return &models.TypeRejected{FileName: f.Name, Undecodable: true}
	}
	defer rc.Close()

	cfg, _, err := image.DecodeConfig(rc)
	if err != nil || cfg.Height == 0 {
		return &models.TypeRejected{FileName: f.Name, Undecodable: true}
	}

	ratio := float64(cfg.Width) / float64(cfg.Height)
	if math.Abs(ratio-target) <= tolerance {
		return nil
	}
	return &models.AspectRejected{
		FileName:  f.Name,
		Ratio:     ratio,
		Target:    target,
		Tolerance: tolerance,
	}
}

// ValidateBatch runs every applicable gate over an incoming batch in a
// fixed order: type, per-file size, aspect, count ceiling, aggregate
// ceiling. The first failure rejects the whole batch; nothing is
// partially accepted and the pending set is never touched.
func ValidateBatch(files []*models.LocalFile, pending PendingState, rules Rules) models.Rejection {
	for _, f := range files {
		if rej := ValidateFileType(f, rules.AllowedMimeTypes); rej != nil {
			return rej
		}
	}

	// Per-file oversize is enumerated across the whole batch so the user
	// sees every offending file at once, distinct from the aggregate cap.
	var oversize []string
	for _, f := range files {
		if f.SizeBytes > rules.MaxFileBytes {
			oversize = append(oversize, f.Name)
		}
	}
	if len(oversize) > 0 {
		return &models.SizeRejected{FileNames: oversize, LimitBytes: rules.MaxFileBytes}
	}

	if rules.AspectRatio > 0 {
		for _, f := range files {
			if !isImageMime(f.MimeType) {
				continue
			}
			if rej := ValidateImageAspect(f, rules.AspectRatio, rules.AspectTolerance); rej != nil {
				return rej
			}
		}
	}

	if pending.Count()+len(files) > rules.MaxCount {
		return &models.BatchRejected{
			CountExceeded: true,
			MaxCount:      rules.MaxCount,
			ActualCount:   pending.Count() + len(files),
		}
	}

	var batchBytes int64
	for _, f := range files {
		batchBytes += f.SizeBytes
	}
	if pending.TotalBytes()+batchBytes > rules.MaxTotalBytes {
		return &models.BatchRejected{
			AggregateExceeded: true,
			MaxTotalBytes:     rules.MaxTotalBytes,
			ActualTotalBytes:  pending.TotalBytes() + batchBytes,
		}
	}

	return nil
}

// isImageMime reports whether the aspect gate applies to this type
func isImageMime(mimeType string) bool {
	switch mimeType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}
