package server

import (
	"strings"
	"testing"
)

func TestParseLabelPolicy(t *testing.T) {
	tests := []struct {
		policy string
		remote string
		want   string
	}{
		{"addr", "10.0.0.1:5000", "10.0.0.1:5000: "},
		{"static:Test:", "10.0.0.1:5000", "Test:"},
		{"static:", "10.0.0.1:5000", ""},
	}
	for _, tt := range tests {
		l, err := ParseLabelPolicy(tt.policy)
		if err != nil {
			t.Fatalf("ParseLabelPolicy(%q): %v", tt.policy, err)
		}
		if got := l.Label(tt.remote); got != tt.want {
			t.Errorf("%s: Label(%q) = %q, want %q", tt.policy, tt.remote, got, tt.want)
		}
	}

	if _, err := ParseLabelPolicy("bogus"); err == nil {
		t.Error("unknown policy accepted")
	}
}

func TestNUIDLabelIsUnique(t *testing.T) {
	l, err := ParseLabelPolicy("nuid")
	if err != nil {
		t.Fatalf("ParseLabelPolicy: %v", err)
	}
	a, b := l.Label("x"), l.Label("x")
	if a == b {
		t.Errorf("two connections share label %q", a)
	}
	if !strings.HasSuffix(a, ": ") {
		t.Errorf("label %q lacks its separator", a)
	}
}
