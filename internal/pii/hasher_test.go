package pii

import (
	"strings"
	"testing"
)

func TestHashNormalizesCaseAndWhitespace(t *testing.T) {
	a := Hash("Test@Example.com ")
	b := Hash("test@example.com")
	if a != b {
		t.Errorf("expected normalized inputs to hash identically: %s vs %s", a, b)
	}
}

func TestHashCollapsesInternalWhitespace(t *testing.T) {
	if Hash("John   Smith") != Hash("john smith") {
		t.Error("expected internal whitespace to collapse before hashing")
	}
}

func TestHashOutputShape(t *testing.T) {
	h := Hash("someone@example.com")
	if len(h) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(h))
	}
	if h != strings.ToLower(h) {
		t.Error("expected lowercase hex output")
	}
	if !IsHashed(h) {
		t.Error("expected output to satisfy IsHashed")
	}
}

func TestHashEmptyInput(t *testing.T) {
	if Hash("") != "" {
		t.Error("expected empty input to produce empty output")
	}
	if Hash("   ") != "" {
		t.Error("expected whitespace-only input to produce empty output")
	}
}

func TestHashDeterministicAcrossCalls(t *testing.T) {
	for i := 0; i < 10; i++ {
		if Hash("stable@example.com") != Hash("stable@example.com") {
			t.Fatal("hash must be deterministic")
		}
	}
}

func TestHashPhonePrependsCountryCode(t *testing.T) {
	// 11-digit local number gets the country code, so formatting noise
	// must not change the result.
	a := HashPhone("(11) 98765-4321")
	b := HashPhone("11987654321")
	c := HashPhone("5511987654321")
	if a != b {
		t.Error("expected formatting to be stripped before hashing")
	}
	if a != c {
		t.Error("expected local number to hash like its 55-prefixed form")
	}
}

func TestHashPhoneTenDigits(t *testing.T) {
	if HashPhone("1187654321") != HashPhone("551187654321") {
		t.Error("expected 10-digit number to receive the country code")
	}
}

func TestHashPhoneEmpty(t *testing.T) {
	if HashPhone("") != "" {
		t.Error("expected empty phone to produce empty output")
	}
	if HashPhone("abc") != "" {
		t.Error("expected digit-free phone to produce empty output")
	}
}

func TestIsHashed(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{Hash("x@example.com"), true},
		{"deadbeef", false},
		{strings.Repeat("A", 64), false}, // uppercase is not our form
		{strings.Repeat("g", 64), false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsHashed(tt.in); got != tt.want {
			t.Errorf("IsHashed(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
