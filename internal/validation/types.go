package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/jessyrel/wedding-rsvp/internal/rsvp"
)

// SubmitRequest is the payload for POST /rsvp/submit
type SubmitRequest struct {
	Name                string     `json:"name" validate:"required"`
	Email               string     `json:"email" validate:"required,ascii,rsvp_email"`
	Phone               string     `json:"phone,omitempty" validate:"omitempty,rsvp_phone"`
	Attending           Attendance `json:"attending"` // required, checked at struct level
	Guests              GuestCount `json:"guests"`
	DietaryRestrictions string     `json:"dietaryRestrictions,omitempty"`
	Message             string     `json:"message,omitempty"`
}

// Trim strips surrounding whitespace from every text field and all inner
// whitespace from the phone number.
func (r *SubmitRequest) Trim() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.Map(func(c rune) rune {
		if unicode.IsSpace(c) {
			return -1
		}
		return c
	}, r.Phone)
	r.DietaryRestrictions = strings.TrimSpace(r.DietaryRestrictions)
	r.Message = strings.TrimSpace(r.Message)
}

// Record converts a validated request into a record. Server-assigned fields
// (id, timestamp, submitter address) are left for the caller.
func (r SubmitRequest) Record() rsvp.Record {
	rec := rsvp.Record{
		Name:                r.Name,
		Email:               r.Email,
		Phone:               r.Phone,
		Attending:           r.Attending.Value,
		DietaryRestrictions: r.DietaryRestrictions,
		Message:             r.Message,
	}
	if rec.Attending && r.Guests.Valid {
		n := r.Guests.Value
		rec.Guests = &n
	}
	return rec
}

// DecodeError reports a field whose JSON value has the wrong shape.
type DecodeError struct {
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
}

// Attendance is the canonical boolean answer. It decodes from a JSON boolean
// or from "yes"/"no"; null or "" leave it unset.
type Attendance struct {
	Value bool
	Valid bool
}

// Attend builds a set Attendance.
func Attend(v bool) Attendance { return Attendance{Value: v, Valid: true} }

func (a *Attendance) UnmarshalJSON(data []byte) error {
	*a = Attendance{}
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*a = Attend(b)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &DecodeError{Field: "attending", Reason: "must be a boolean or \"yes\"/\"no\""}
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return nil
	case "yes", "true":
		*a = Attend(true)
	case "no", "false":
		*a = Attend(false)
	default:
		return &DecodeError{Field: "attending", Reason: "must be a boolean or \"yes\"/\"no\""}
	}
	return nil
}

func (a Attendance) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(a.Value)
}

// GuestCount decodes from a JSON integer or a numeric string ("2").
type GuestCount struct {
	Value int
	Valid bool
}

// Guests builds a set GuestCount.
func Guests(n int) GuestCount { return GuestCount{Value: n, Valid: true} }

func (g *GuestCount) UnmarshalJSON(data []byte) error {
	*g = GuestCount{}
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*g = Guests(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &DecodeError{Field: "guests", Reason: "must be a whole number"}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return &DecodeError{Field: "guests", Reason: "must be a whole number"}
	}
	*g = Guests(n)
	return nil
}

func (g GuestCount) MarshalJSON() ([]byte, error) {
	if !g.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(g.Value)
}
