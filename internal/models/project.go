package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	StatusPlanned    ProjectStatus = "PLANNED"
	StatusInProgress ProjectStatus = "IN_PROGRESS"
	StatusCompleted  ProjectStatus = "COMPLETED"
	StatusCancelled  ProjectStatus = "CANCELLED"
)

// DefaultStatus is assigned to every newly created project.
const DefaultStatus = StatusPlanned

// ProjectStatuses lists every recognized status.
var ProjectStatuses = []ProjectStatus{
	StatusPlanned,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
}

// Valid reports whether s is a member of the status enumeration.
func (s ProjectStatus) Valid() bool {
	for _, known := range ProjectStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Project represents a tracked piece of work owned by an artisan
type Project struct {
	ID          int64         `json:"id"`
	ArtisanID   int64         `json:"artisanId"`
	Title       string        `json:"title"`
	Description *string       `json:"description,omitempty"`
	Location    *string       `json:"location,omitempty"`
	StartDate   *Date         `json:"startDate,omitempty"`
	EndDate     *Date         `json:"endDate,omitempty"`
	Budget      *float64      `json:"budget,omitempty"`
	Status      ProjectStatus `json:"status"`
}

// ChantierUpdate is a dated progress report against a project
type ChantierUpdate struct {
	ID              int64     `json:"id"`
	ProjectID       int64     `json:"projectId"`
	ProgressPercent int       `json:"progressPercent"`
	Note            *string   `json:"note,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// CreateProjectRequest represents the request body for creating a project
type CreateProjectRequest struct {
	ArtisanID   *int64   `json:"artisanId" validate:"required"`
	Title       string   `json:"title" validate:"notblank"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=1000"`
	Location    *string  `json:"location,omitempty" validate:"omitempty,max=255"`
	StartDate   *Date    `json:"startDate,omitempty"`
	EndDate     *Date    `json:"endDate,omitempty"`
	Budget      *float64 `json:"budget" validate:"required,gte=0"`
}

// UpdateProjectRequest carries a partial update; nil fields are left untouched
type UpdateProjectRequest struct {
	Title       *string  `json:"title,omitempty" validate:"omitempty,notblank"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=1000"`
	Location    *string  `json:"location,omitempty" validate:"omitempty,max=255"`
	StartDate   *Date    `json:"startDate,omitempty"`
	EndDate     *Date    `json:"endDate,omitempty"`
	Budget      *float64 `json:"budget,omitempty" validate:"omitempty,gte=0"`
}

// Empty reports whether no field was supplied.
func (r UpdateProjectRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.Location == nil &&
		r.StartDate == nil && r.EndDate == nil && r.Budget == nil
}

// UpdateStatusRequest represents the request body for a status change
type UpdateStatusRequest struct {
	Status ProjectStatus `json:"status" validate:"required,projectstatus"`
}

// CreateChantierUpdateRequest represents the request body for a progress update
type CreateChantierUpdateRequest struct {
	ProgressPercent *int    `json:"progressPercent" validate:"required,gte=0,lte=100"`
	Note            *string `json:"note,omitempty" validate:"omitempty,max=1000"`
}

// DateLayout is the wire and storage layout of calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar date without time of day.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar date in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
