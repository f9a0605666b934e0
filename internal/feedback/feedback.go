// Package feedback is the narrow surface through which upload outcomes
// and validation rejections reach the user. The concrete rendering
// (toast, dialog, terminal) is entirely up to the implementation; the
// core only supplies plain text and a severity.
package feedback

import "context"

// Kind is the severity of a notification
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Notifier delivers messages to the user and asks for confirmation
// before destructive actions
type Notifier interface {
	// Notify shows a plain-text message with the given severity
	Notify(kind Kind, message string)

	// Confirm asks the user to approve a destructive action. It blocks
	// until the user answers or ctx is done.
	Confirm(ctx context.Context, prompt string) (bool, error)
}
