// Package models defines the wire types of the Resolwe REST API.
package models

import "time"

// Status is the raw processing status code reported by the platform.
type Status string

const (
	StatusUploading  Status = "UP"
	StatusResolving  Status = "RE"
	StatusWaiting    Status = "WT"
	StatusPreparing  Status = "PP"
	StatusProcessing Status = "PR"
	StatusDone       Status = "OK"
	StatusError      Status = "ER"
	StatusDirty      Status = "DR"
)

// Phase is the coarse lifecycle stage derived from a Status.
type Phase string

const (
	PhasePending   Phase = "pending"
	PhasePreparing Phase = "preparing"
	PhaseRunning   Phase = "running"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
	PhaseUnknown   Phase = "unknown"
)

// Phase maps the platform code to its lifecycle stage.
func (s Status) Phase() Phase {
	switch s {
	case StatusUploading, StatusResolving, StatusWaiting:
		return PhasePending
	case StatusPreparing:
		return PhasePreparing
	case StatusProcessing:
		return PhaseRunning
	case StatusDone:
		return PhaseSucceeded
	case StatusError, StatusDirty:
		return PhaseFailed
	default:
		return PhaseUnknown
	}
}

// Terminal reports whether the platform will not change this status again.
// The terminal set is OK, ER and DR.
func (s Status) Terminal() bool {
	switch s {
	case StatusDone, StatusError, StatusDirty:
		return true
	}
	return false
}

// HealthStatus represents service health
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProblemDetails represents RFC 7807 Problem Details
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Field    string `json:"field,omitempty"`
}
