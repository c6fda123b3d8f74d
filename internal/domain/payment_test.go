package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input   string
		want    Status
		wantErr bool
	}{
		{input: "pending", want: StatusPending},
		{input: "approved", want: StatusApproved},
		{input: "rejected", want: StatusRejected},
		{input: " Approved ", want: StatusApproved},
		{input: "REJECTED", want: StatusRejected},
		{input: "archived", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStatus(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidStatus) {
					t.Fatalf("expected ErrInvalidStatus for %q, got %v", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStatus(%q) returned error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusApproved, StatusRejected} {
		if !s.Valid() {
			t.Fatalf("expected %s to be valid", s)
		}
	}
	if Status("archived").Valid() {
		t.Fatal("expected unknown status to be invalid")
	}
}

func TestCreatePaymentInputTotal(t *testing.T) {
	in := CreatePaymentInput{
		Items: []NewLineItem{
			{FeeTypeID: uuid.New(), Amount: 200000},
			{FeeTypeID: uuid.New(), Amount: 500000},
		},
	}
	if got := in.Total(); got != 700000 {
		t.Fatalf("expected derived total 700000, got %d", got)
	}
}

func TestReportFilterNormalized(t *testing.T) {
	normalized := ReportFilter{}.Normalized()
	if normalized.Status == nil || *normalized.Status != StatusApproved {
		t.Fatalf("expected approved-only default, got %v", normalized.Status)
	}

	pending := StatusPending
	explicit := ReportFilter{Status: &pending}.Normalized()
	if explicit.Status == nil || *explicit.Status != StatusPending {
		t.Fatalf("expected explicit status preserved, got %v", explicit.Status)
	}
}
