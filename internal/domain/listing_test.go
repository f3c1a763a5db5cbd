package domain_test

import (
	"errors"
	"testing"

	"trip_hotel/internal/domain"
)

func TestListing_Validate(t *testing.T) {
	cases := []struct {
		name  string
		in    domain.Listing
		field string
	}{
		{"ok", domain.Listing{ExternalID: "HTL-1", Title: "Grand Plaza", City: "New York"}, ""},
		{"missing id", domain.Listing{Title: "Grand Plaza", City: "New York"}, "hotel_id"},
		{"blank title", domain.Listing{ExternalID: "HTL-7", Title: "   ", City: "Rome"}, "property_title"},
		{"empty title", domain.Listing{ExternalID: "HTL-7", City: "Rome"}, "property_title"},
		{"missing city", domain.Listing{ExternalID: "HTL-8", Title: "Inn"}, "city_name"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Validate()
			if tc.field == "" {
				if err != nil {
					t.Fatalf("unexpected err: %v", err)
				}
				return
			}
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tc.field {
				t.Fatalf("field = %q, want %q", ve.Field, tc.field)
			}
		})
	}
}

func TestListing_OptionalFieldsIgnored(t *testing.T) {
	neg := -3.0
	l := domain.Listing{ExternalID: "HTL-2", Title: "A", City: "B", Price: &neg}
	if err := l.Validate(); err != nil {
		t.Fatalf("optional fields must not be validated: %v", err)
	}
	if l.HasImage() {
		t.Fatalf("no image url set")
	}
	blank := " "
	l.ImageURL = &blank
	if l.HasImage() {
		t.Fatalf("blank image url must count as absent")
	}
}

func TestReasonFor(t *testing.T) {
	if r := domain.ReasonFor(&domain.ValidationError{Field: "x"}); r != domain.RejectValidation {
		t.Fatalf("got %s", r)
	}
	if r := domain.ReasonFor(&domain.DuplicateRecordError{ExternalID: "x"}); r != domain.RejectDuplicate {
		t.Fatalf("got %s", r)
	}
	if r := domain.ReasonFor(&domain.PersistenceError{Op: "insert", Err: errors.New("boom")}); r != domain.RejectPersistence {
		t.Fatalf("got %s", r)
	}
}

func TestReport_AddAndMerge(t *testing.T) {
	a := domain.NewReport()
	a.Add(domain.Outcome{State: domain.StatePersisted, Asset: domain.AssetResolved})
	a.Add(domain.Outcome{State: domain.StateRejected, Reason: domain.RejectDuplicate, Asset: domain.AssetSkipped})
	a.Add(domain.Outcome{State: domain.StateRejected, Reason: domain.RejectValidation})

	var b domain.Report
	b.Add(domain.Outcome{State: domain.StatePersisted, Asset: domain.AssetFailed})
	b.Interrupted = true

	a.Merge(b)
	if a.Received != 4 || a.Persisted != 2 || a.TotalRejected() != 2 {
		t.Fatalf("unexpected report: %+v", a)
	}
	if a.Assets[domain.AssetResolved] != 1 || a.Assets[domain.AssetFailed] != 1 || a.Assets[domain.AssetSkipped] != 1 {
		t.Fatalf("unexpected asset counts: %+v", a.Assets)
	}
	if _, ok := a.Assets[domain.AssetNone]; ok {
		t.Fatalf("validation rejects never reach the resolver")
	}
	if !a.Interrupted {
		t.Fatalf("interrupted flag must propagate")
	}
}
