package testfixtures

import "testing"

func TestIDGenerator(t *testing.T) {
	t.Parallel()

	gen := NewIDGenerator("booking")
	if got := gen.Next(); got != "booking-1" {
		t.Fatalf("expected booking-1, got %q", got)
	}
	if got := gen.Next(); got != "booking-2" {
		t.Fatalf("expected booking-2, got %q", got)
	}
}

func TestIDGeneratorDefaultPrefix(t *testing.T) {
	t.Parallel()

	gen := NewIDGenerator("")
	if got := gen.Next(); got != "id-1" {
		t.Fatalf("expected id-1, got %q", got)
	}
}

func TestIDGeneratorNextFunc(t *testing.T) {
	t.Parallel()

	gen := NewIDGenerator("u")
	next := gen.NextFunc()
	if got := next(); got != "u-1" {
		t.Fatalf("expected u-1, got %q", got)
	}

	var missing *IDGenerator
	if got := missing.NextFunc()(); got != "" {
		t.Fatalf("expected empty id from nil generator, got %q", got)
	}
}
