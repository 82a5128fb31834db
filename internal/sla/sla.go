// Package sla computes complaint resolution deadlines and their state.
// Everything here is derived from the creation time, the SLA hours and the
// current time; nothing is stored.
package sla

import (
	"errors"
	"fmt"
	"time"
)

// WarningFraction is the elapsed share of the window at which a complaint
// enters WARNING.
const WarningFraction = 0.75

// ErrInvalidHours is returned for SLA windows that are not positive.
var ErrInvalidHours = errors.New("sla hours must be positive")

// State is the derived SLA state.
type State string

const (
	StateOK       State = "OK"
	StateWarning  State = "WARNING"
	StateBreached State = "BREACHED"
)

// Window is an immutable SLA window.
type Window struct {
	CreatedAt time.Time
	Hours     int
}

// NewWindow validates hours.
func NewWindow(createdAt time.Time, hours int) (Window, error) {
	if hours <= 0 {
		return Window{}, fmt.Errorf("%w: got %d", ErrInvalidHours, hours)
	}
	return Window{CreatedAt: createdAt, Hours: hours}, nil
}

// Deadline is CreatedAt plus Hours.
func (w Window) Deadline() time.Time {
	return w.CreatedAt.Add(time.Duration(w.Hours) * time.Hour)
}

func (w Window) total() time.Duration {
	return time.Duration(w.Hours) * time.Hour
}

// RemainingMs is the signed time to the deadline in milliseconds; negative
// once the deadline has passed.
func (w Window) RemainingMs(now time.Time) int64 {
	return w.Deadline().Sub(now).Milliseconds()
}

// IsBreached reports whether now is past the deadline.
func (w Window) IsBreached(now time.Time) bool {
	return w.RemainingMs(now) < 0
}

// StateAt classifies the window at now.
func (w Window) StateAt(now time.Time) State {
	remaining := w.RemainingMs(now)
	if remaining < 0 {
		return StateBreached
	}
	totalMs := w.total().Milliseconds()
	elapsed := float64(totalMs-remaining) / float64(totalMs)
	if elapsed >= WarningFraction {
		return StateWarning
	}
	return StateOK
}

// Summary is the presentation-ready view of a window.
type Summary struct {
	State          State     `json:"state"`
	Deadline       time.Time `json:"deadline"`
	Breached       bool      `json:"breached"`
	RemainingMs    int64     `json:"remainingMs"`
	OverdueMs      int64     `json:"overdueMs"`
	RemainingLabel string    `json:"remainingLabel"`
}

// SummaryAt summarizes the window at now.
func (w Window) SummaryAt(now time.Time) Summary {
	remaining := w.RemainingMs(now)
	breached := remaining < 0
	var overdue int64
	if breached {
		overdue = -remaining
	}
	return Summary{
		State:          w.StateAt(now),
		Deadline:       w.Deadline(),
		Breached:       breached,
		RemainingMs:    remaining,
		OverdueMs:      overdue,
		RemainingLabel: label(remaining),
	}
}

func label(remainingMs int64) string {
	abs := remainingMs
	if abs < 0 {
		abs = -abs
	}
	hours := abs / int64(time.Hour/time.Millisecond)
	minutes := (abs % int64(time.Hour/time.Millisecond)) / int64(time.Minute/time.Millisecond)
	if remainingMs < 0 {
		return fmt.Sprintf("Overdue by %dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dh %dm remaining", hours, minutes)
}

// Calculator binds the window arithmetic to a clock.
type Calculator struct {
	Now func() time.Time
}

// New returns a Calculator on the wall clock.
func New() Calculator {
	return Calculator{Now: time.Now}
}

func (c Calculator) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// Deadline returns createdAt plus slaHours.
func (c Calculator) Deadline(createdAt time.Time, slaHours int) (time.Time, error) {
	w, err := NewWindow(createdAt, slaHours)
	if err != nil {
		return time.Time{}, err
	}
	return w.Deadline(), nil
}

// RemainingMs returns the signed milliseconds until the deadline.
func (c Calculator) RemainingMs(createdAt time.Time, slaHours int) (int64, error) {
	w, err := NewWindow(createdAt, slaHours)
	if err != nil {
		return 0, err
	}
	return w.RemainingMs(c.now()), nil
}

// IsBreached reports whether the deadline has passed.
func (c Calculator) IsBreached(createdAt time.Time, slaHours int) (bool, error) {
	w, err := NewWindow(createdAt, slaHours)
	if err != nil {
		return false, err
	}
	return w.IsBreached(c.now()), nil
}

// State returns the SLA state now.
func (c Calculator) State(createdAt time.Time, slaHours int) (State, error) {
	w, err := NewWindow(createdAt, slaHours)
	if err != nil {
		return "", err
	}
	return w.StateAt(c.now()), nil
}

// Summary summarizes the window now.
func (c Calculator) Summary(createdAt time.Time, slaHours int) (Summary, error) {
	w, err := NewWindow(createdAt, slaHours)
	if err != nil {
		return Summary{}, err
	}
	return w.SummaryAt(c.now()), nil
}
