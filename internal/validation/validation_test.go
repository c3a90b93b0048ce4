package validation

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestSubmitRequest_Valid(t *testing.T) {
	v := New()

	req := SubmitRequest{
		Name:                "  Ana Cruz ",
		Email:               "ana@example.com",
		Phone:               "+63 917 123 4567",
		Attending:           Attend(true),
		Guests:              Guests(2),
		DietaryRestrictions: "vegetarian",
	}

	if err := v.Validate(&req); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}
	if req.Name != "Ana Cruz" {
		t.Fatalf("expected trimmed name, got %q", req.Name)
	}
	if req.Phone != "+639171234567" {
		t.Fatalf("expected phone without spaces, got %q", req.Phone)
	}
}

func TestSubmitRequest_NotAttendingIsValid(t *testing.T) {
	v := New()

	req := SubmitRequest{Name: "Bo", Email: "bo@example.org", Attending: Attend(false)}
	if err := v.Validate(&req); err != nil {
		t.Fatalf("explicit not attending must be valid, got %v", err)
	}
}

func TestSubmitRequest_MissingFields(t *testing.T) {
	v := New()

	req := SubmitRequest{}
	err := v.Validate(&req)

	var ve *Error
	if !errors.As(err, &ve) {
		t.Fatalf("expected *Error, got %v", err)
	}
	for _, field := range []string{"name", "email", "attending"} {
		if _, ok := ve.Fields[field]; !ok {
			t.Fatalf("expected an error for %s, got %v", field, ve.Fields)
		}
	}
	if ve.Fields["attending"] != "Please let us know if you'll be attending" {
		t.Fatalf("unexpected attending message: %q", ve.Fields["attending"])
	}
}

func TestSubmitRequest_InvalidEmail(t *testing.T) {
	v := New()

	for _, email := range []string{"not-an-email", "a@b", "a b@c.com", "ñ@example.com"} {
		req := SubmitRequest{Name: "Ana", Email: email, Attending: Attend(true)}
		err := v.Validate(&req)

		var ve *Error
		if !errors.As(err, &ve) {
			t.Fatalf("%q: expected *Error, got %v", email, err)
		}
		if ve.Fields["email"] != "Please enter a valid email address" {
			t.Fatalf("%q: expected email error, got %v", email, ve.Fields)
		}
		if len(ve.Fields) != 1 {
			t.Fatalf("%q: expected only the email error, got %v", email, ve.Fields)
		}
	}
}

func TestSubmitRequest_ShortNameAndBadPhone(t *testing.T) {
	v := New()

	req := SubmitRequest{Name: " A ", Email: "a@example.com", Phone: "0123", Attending: Attend(true)}
	err := v.Validate(&req)

	var ve *Error
	if !errors.As(err, &ve) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if ve.Fields["name"] != "Name must be at least 2 characters" {
		t.Fatalf("unexpected name message: %v", ve.Fields)
	}
	if ve.Fields["phone"] != "Please enter a valid phone number" {
		t.Fatalf("unexpected phone message: %v", ve.Fields)
	}
}

func TestSubmitRequest_BlankNameIsRequired(t *testing.T) {
	v := New()

	req := SubmitRequest{Name: "   ", Email: "a@example.com", Attending: Attend(true)}
	err := v.Validate(&req)

	var ve *Error
	if !errors.As(err, &ve) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if ve.Fields["name"] != "Name is required" {
		t.Fatalf("unexpected name message: %v", ve.Fields)
	}
}

func TestDecode_LegacyShapes(t *testing.T) {
	body := `{"name":"Ana","email":"ana@example.com","attending":"yes","guests":"3"}`

	var req SubmitRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !req.Attending.Valid || !req.Attending.Value {
		t.Fatalf("expected attending=true, got %+v", req.Attending)
	}
	if !req.Guests.Valid || req.Guests.Value != 3 {
		t.Fatalf("expected guests=3, got %+v", req.Guests)
	}

	body = `{"attending":"","guests":""}`
	req = SubmitRequest{}
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.Attending.Valid || req.Guests.Valid {
		t.Fatalf("empty strings must leave fields unset, got %+v", req)
	}
}

func TestDecode_BadAttendance(t *testing.T) {
	var req SubmitRequest
	err := json.Unmarshal([]byte(`{"attending":"maybe"}`), &req)

	var de *DecodeError
	if !errors.As(err, &de) || de.Field != "attending" {
		t.Fatalf("expected DecodeError for attending, got %v", err)
	}
}

func TestRecord_DropsGuestsWhenDeclining(t *testing.T) {
	req := SubmitRequest{Name: "Ana", Email: "ana@example.com", Attending: Attend(false), Guests: Guests(4)}
	rec := req.Record()
	if rec.Guests != nil {
		t.Fatalf("guests must be dropped when not attending, got %d", *rec.Guests)
	}

	req.Attending = Attend(true)
	rec = req.Record()
	if rec.Guests == nil || *rec.Guests != 4 {
		t.Fatalf("expected guests=4, got %v", rec.Guests)
	}
}

func TestSubmitRequest_GuestsAtLeastOneWhenAttending(t *testing.T) {
	v := New()

	req := SubmitRequest{Name: "Ana", Email: "ana@example.com", Attending: Attend(true), Guests: Guests(0)}
	err := v.Validate(&req)

	var ve *Error
	if !errors.As(err, &ve) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if ve.Fields["guests"] != "Number of guests must be at least 1" {
		t.Fatalf("unexpected guests message: %v", ve.Fields)
	}

	// the count is dropped when declining, so it is not checked
	req = SubmitRequest{Name: "Ana", Email: "ana@example.com", Attending: Attend(false), Guests: Guests(0)}
	if err := v.Validate(&req); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}
