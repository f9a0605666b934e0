package models

import "encoding/json"

// OutcomeKind classifies the result of one upload session
type OutcomeKind string

const (
	OutcomeSuccess            OutcomeKind = "success"
	OutcomeValidationRejected OutcomeKind = "validation_rejected"
	OutcomeTransportFailure   OutcomeKind = "transport_failure"
	OutcomeServerRejected     OutcomeKind = "server_rejected"
)

// TransportKind narrows a transport failure. Canceled covers a request
// aborted through the caller's context.
type TransportKind string

const (
	TransportTimeout     TransportKind = "timeout"
	TransportUnreachable TransportKind = "network_unreachable"
	TransportCanceled    TransportKind = "canceled"
)

// UploadOutcome is the classified result of one upload session.
// Exactly the fields matching Kind are populated.
type UploadOutcome struct {
	Kind OutcomeKind

	// Response is the server's JSON representation on success
	Response json.RawMessage

	// Rejection explains a local validation failure
	Rejection Rejection

	// Transport narrows a transport failure
	Transport TransportKind

	// Status and Message describe a server rejection
	Status  int
	Message string
}

// SuccessOutcome builds a success outcome carrying the server response
func SuccessOutcome(response json.RawMessage) UploadOutcome {
	return UploadOutcome{Kind: OutcomeSuccess, Response: response}
}

// RejectedOutcome builds an outcome for a local validation failure
func RejectedOutcome(r Rejection) UploadOutcome {
	return UploadOutcome{Kind: OutcomeValidationRejected, Rejection: r}
}

// TransportOutcome builds an outcome for a transport failure
func TransportOutcome(kind TransportKind) UploadOutcome {
	return UploadOutcome{Kind: OutcomeTransportFailure, Transport: kind}
}

// ServerOutcome builds an outcome for an HTTP 4xx/5xx response
func ServerOutcome(status int, message string) UploadOutcome {
	return UploadOutcome{Kind: OutcomeServerRejected, Status: status, Message: message}
}
