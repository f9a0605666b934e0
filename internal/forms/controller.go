// Package forms wires one admin form session together: it owns the
// pending media set, runs the validator over incoming batches, drives
// upload sessions and translates every outcome into exactly one
// notification. No outcome is silently swallowed.
package forms

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/JuanRG-20221039/paulofraire-media/internal/feedback"
	"github.com/JuanRG-20221039/paulofraire-media/internal/models"
	"github.com/JuanRG-20221039/paulofraire-media/internal/staging"
	"github.com/JuanRG-20221039/paulofraire-media/internal/upload"
	"github.com/JuanRG-20221039/paulofraire-media/internal/validator"
)

// Session is the slice of upload.Session the controller drives; tests
// substitute a scripted implementation
type Session interface {
	Do(ctx context.Context, set *staging.PendingMediaSet, fields map[string]string,
		preconds []upload.Precondition, onProgress upload.ProgressFunc) (models.UploadOutcome, error)
}

// MediaExtractor pulls the authoritative media items out of the server's
// success response so local previews can be replaced with remote URLs.
// A nil extractor means the form simply resets after success.
type MediaExtractor func(response json.RawMessage) []*models.MediaItem

// Controller owns exactly one form session's staged media and its
// submissions
type Controller struct {
	set      *staging.PendingMediaSet
	rules    validator.Rules
	notifier feedback.Notifier
	extract  MediaExtractor
	logger   *zap.Logger
}

// NewController creates a controller over an existing set. The set may be
// pre-populated with remote items when editing an existing record.
func NewController(set *staging.PendingMediaSet, rules validator.Rules, notifier feedback.Notifier, extract MediaExtractor, logger *zap.Logger) *Controller {
	return &Controller{
		set:      set,
		rules:    rules,
		notifier: notifier,
		extract:  extract,
		logger:   logger,
	}
}

// Set returns the controller's pending media set
func (c *Controller) Set() *staging.PendingMediaSet { return c.set }

// StageFiles validates an incoming batch and appends it to the set.
// Rejection refuses the whole batch and leaves the set unchanged.
func (c *Controller) StageFiles(files ...*models.LocalFile) bool {
	if rej := validator.ValidateBatch(files, c.set, c.rules); rej != nil {
		c.notifier.Notify(feedback.KindError, rej.Message())
		return false
	}
	c.set.AddLocal(files...)
	return true
}

// Remove removes the staged item at index. Removing a remote item is
// destructive on the next submit, so the user confirms it first.
func (c *Controller) Remove(ctx context.Context, index int) error {
	items := c.set.Items()
	if index < 0 || index >= len(items) {
		// defect in the caller's wiring, not a user-facing condition
		c.logger.Error("remove with out-of-range index",
			zap.Int("index", index), zap.Int("count", len(items)))
		return staging.ErrIndexOutOfRange
	}

	if items[index].Origin == models.OriginRemote {
		ok, err := c.notifier.Confirm(ctx, "This will delete the file from the server on save. Continue?")
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	return c.set.RemoveAt(index)
}

// Cancel abandons the form: every staged item is dropped and every
// preview handle released
func (c *Controller) Cancel() {
	c.set.Reset()
}

// Submit runs one upload session over the staged set and translates the
// outcome. The set is cleared (or rebuilt from the server representation)
// only on success; every other outcome leaves it intact for retry.
func (c *Controller) Submit(
	ctx context.Context,
	session Session,
	fields map[string]string,
	preconds []upload.Precondition,
	onProgress upload.ProgressFunc,
) (models.UploadOutcome, error) {
	out, err := session.Do(ctx, c.set, fields, preconds, onProgress)
	if err != nil {
		return out, err
	}

	switch out.Kind {
	case models.OutcomeSuccess:
		if c.extract != nil {
			c.set.ReplaceWithRemote(c.extract(out.Response))
		} else {
			c.set.Reset()
		}
		c.notifier.Notify(feedback.KindSuccess, "changes saved")

	case models.OutcomeValidationRejected:
		c.notifier.Notify(feedback.KindError, out.Rejection.Message())

	case models.OutcomeTransportFailure:
		switch out.Transport {
		case models.TransportTimeout:
			// softer than a server rejection: the server-side effect is
			// unknown, so the user should verify instead of resubmitting
			c.notifier.Notify(feedback.KindWarning,
				"the request timed out; the changes may still have been applied, refresh before trying again")
		case models.TransportCanceled:
			c.notifier.Notify(feedback.KindWarning, "upload canceled before completion")
		default:
			c.notifier.Notify(feedback.KindError,
				"could not reach the server, check your connection and try again")
		}

	case models.OutcomeServerRejected:
		c.notifier.Notify(feedback.KindError, out.Message)
	}

	return out, nil
}
