package product

import (
	"errors"
	"strings"
	"testing"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
)

func sampleRecord() Record {
	return Record{
		Name:            "Manuka Honey 500g",
		SKU:             "MH-500",
		Batch:           "B-2026-07",
		ManufactureDate: "2026-07-01",
		Quantity:        12,
		Destination:     "Auckland",
	}
}

func TestSerializeFieldOrder(t *testing.T) {
	data, err := sampleRecord().Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	want := `{"name":"Manuka Honey 500g","sku":"MH-500","batch":"B-2026-07","manufacture_date":"2026-07-01","quantity":12,"destination":"Auckland"}`
	if string(data) != want {
		t.Errorf("Serialize() = %s, want %s", data, want)
	}
}

func TestParseRoundTrip(t *testing.T) {
	data, err := sampleRecord().Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	got, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got != sampleRecord() {
		t.Errorf("Parse() = %+v, want %+v", got, sampleRecord())
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte{0x8f, 0x01, 0x02})
	if !errors.Is(err, kerrors.ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *Record)
		wantErr string
	}{
		{"valid", func(r *Record) {}, ""},
		{"missing name", func(r *Record) { r.Name = " " }, "name is required"},
		{"missing sku", func(r *Record) { r.SKU = "" }, "sku is required"},
		{"negative quantity", func(r *Record) { r.Quantity = -1 }, "quantity"},
		{"bad date", func(r *Record) { r.ManufactureDate = "01/07/2026" }, "manufacture date"},
		{"empty date allowed", func(r *Record) { r.ManufactureDate = "" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sampleRecord()
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, kerrors.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestDetailsHash(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := DetailsHash([]byte("abc")); got != want {
		t.Errorf("DetailsHash() = %s, want %s", got, want)
	}
}
