package models

import "time"

// Data is a snapshot of one unit of work: a process run with fixed inputs.
//
// Snapshots are values received from the server at one point in time. They
// are never updated in place; a refresh produces a new Data.
type Data struct {
	ID         int            `json:"id"`
	Slug       string         `json:"slug,omitempty"`
	Name       string         `json:"name,omitempty"`
	Process    Ref            `json:"process"`
	Input      map[string]any `json:"input"`
	Output     map[string]any `json:"output"`
	Status     Status         `json:"status"`
	Progress   float64        `json:"process_progress"`
	ReturnCode *int           `json:"process_rc,omitempty"`
	Info       []string       `json:"process_info,omitempty"`
	Warning    []string       `json:"process_warning,omitempty"`
	Error      []string       `json:"process_error,omitempty"`
	Collection *Ref           `json:"collection,omitempty"`
	Descriptor map[string]any `json:"descriptor,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
	Created    time.Time      `json:"created"`
	Modified   time.Time      `json:"modified"`
	Started    *time.Time     `json:"started,omitempty"`
	Finished   *time.Time     `json:"finished,omitempty"`
}

// DataID lets a snapshot be passed directly as the value of a data: input.
func (d *Data) DataID() int { return d.ID }

// Done reports whether the snapshot is in a terminal status.
func (d *Data) Done() bool { return d.Status.Terminal() }
