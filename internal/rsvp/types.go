package rsvp

import (
	"sync"
	"time"
)

// Record is one guest's response as it is persisted by every store backend.
type Record struct {
	ID                  int64     `json:"id" db:"id" dynamodbav:"id"` // PK, assigned once
	Name                string    `json:"name" db:"name" dynamodbav:"name"`
	Email               string    `json:"email" db:"email" dynamodbav:"email"`
	Phone               string    `json:"phone,omitempty" db:"phone" dynamodbav:"phone,omitempty"`
	Attending           bool      `json:"attending" db:"attending" dynamodbav:"attending"`
	Guests              *int      `json:"guests,omitempty" db:"guests" dynamodbav:"guests,omitempty"` // only kept when attending
	DietaryRestrictions string    `json:"dietaryRestrictions,omitempty" db:"dietary_restrictions" dynamodbav:"dietary_restrictions,omitempty"`
	Message             string    `json:"message,omitempty" db:"message" dynamodbav:"message,omitempty"`
	Timestamp           time.Time `json:"timestamp" db:"-" dynamodbav:"timestamp"`
	SubmitterAddress    string    `json:"submitterAddress,omitempty" db:"submitter_address" dynamodbav:"submitter_address,omitempty"`
}

// GuestCount returns the number of people covered by the record when it is
// counted towards attendance. An absent count means the guest alone.
func (r Record) GuestCount() int {
	if r.Guests == nil {
		return 1
	}
	return *r.Guests
}

// Collection is the on-disk document shape: {"rsvps": [...]}.
type Collection struct {
	RSVPs []Record `json:"rsvps"`
}

// Statistics summarises a collection.
type Statistics struct {
	Total        int `json:"total" db:"total"`
	Attending    int `json:"attending" db:"attending"`
	NotAttending int `json:"notAttending" db:"not_attending"`
	TotalGuests  int `json:"totalGuests" db:"total_guests"`
}

// ComputeStatistics scans records once. Guests are only counted for
// attending records, defaulting to 1 when the count is absent.
func ComputeStatistics(records []Record) Statistics {
	stats := Statistics{Total: len(records)}
	for _, r := range records {
		if r.Attending {
			stats.Attending++
			stats.TotalGuests += r.GuestCount()
			continue
		}
		stats.NotAttending++
	}
	return stats
}

// IDSource hands out millisecond-timestamp ids. Two calls within the same
// millisecond still get distinct, increasing values.
type IDSource struct {
	mu      sync.Mutex
	last    int64
	nowFunc func() time.Time
}

// NewIDSource returns an IDSource reading the clock through now.
func NewIDSource(now func() time.Time) *IDSource {
	if now == nil {
		now = time.Now
	}
	return &IDSource{nowFunc: now}
}

// Next returns the next id.
func (s *IDSource) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nowFunc().UnixMilli()
	if id <= s.last {
		id = s.last + 1
	}
	s.last = id
	return id
}
