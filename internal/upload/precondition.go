package upload

import (
	"strings"

	"github.com/JuanRG-20221039/paulofraire-media/internal/models"
)

// Precondition checks the form before dispatch. Fields arrive already
// trimmed; live holds the staged items that will survive the submission
// (tombstoned items are gone). A non-nil rejection stops the session
// before any network call.
//
// Predicates are supplied by the domain: the session itself knows nothing
// about what a news story or a scholarship requires.
type Precondition func(fields map[string]string, live []*models.MediaItem) models.Rejection

// RequireFields rejects when any named scalar field is empty after trimming
func RequireFields(names ...string) Precondition {
	return func(fields map[string]string, _ []*models.MediaItem) models.Rejection {
		for _, name := range names {
			if strings.TrimSpace(fields[name]) == "" {
				return &models.FieldRejected{Field: name}
			}
		}
		return nil
	}
}

// RequireMinItems rejects when fewer than min items are staged,
// e.g. a news story needs at least one live image
func RequireMinItems(min int, requirement string) Precondition {
	return func(_ map[string]string, live []*models.MediaItem) models.Rejection {
		if len(live) < min {
			return &models.MediaRequired{Requirement: requirement}
		}
		return nil
	}
}

// RequireMimePresent rejects when no staged item carries the given MIME
// type, e.g. a scholarship needs a PDF alongside its image
func RequireMimePresent(mimeType, requirement string) Precondition {
	return func(_ map[string]string, live []*models.MediaItem) models.Rejection {
		for _, item := range live {
			if item.MimeType == mimeType {
				return nil
			}
		}
		return &models.MediaRequired{Requirement: requirement}
	}
}
