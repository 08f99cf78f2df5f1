package inputcheck

import (
	"testing"
)

func TestCheckField(t *testing.T) {
	tests := []struct {
		name       string
		value      string
		expectSQLi bool
		expectXSS  bool
	}{
		{name: "plain prompt", value: "Announce our new autumn coffee blend with a cozy vibe"},
		{name: "prompt with punctuation", value: "50% off! Don't miss it - today only."},
		{name: "hashtags and emoji", value: "Launch day 🚀 #startup #growth"},
		{name: "empty", value: ""},
		{name: "script tag", value: "<script>alert(1)</script>", expectXSS: true},
		{name: "event handler", value: `<img src=x onerror=alert(1)>`, expectXSS: true},
		{name: "tautology", value: "' OR '1'='1", expectSQLi: true},
		{name: "stacked query", value: "'; DROP TABLE users--", expectSQLi: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := CheckField("prompt", tt.value)
			if !tt.expectSQLi && !tt.expectXSS {
				if f != nil {
					t.Fatalf("expected clean value, got %+v", f)
				}
				return
			}
			if f == nil {
				t.Fatal("expected a finding")
			}
			if tt.expectSQLi && !f.IsSQLi {
				t.Errorf("expected SQLi detection, got %+v", f)
			}
			if tt.expectXSS && !f.IsXSS {
				t.Errorf("expected XSS detection, got %+v", f)
			}
			if f.Field != "prompt" {
				t.Errorf("expected field name to be recorded, got %q", f.Field)
			}
			if f.Reason() == "" {
				t.Error("expected a reason")
			}
		})
	}
}

func TestCheckFields(t *testing.T) {
	findings := CheckFields(
		"title", "Spring campaign",
		"prompt", "<script>alert(1)</script>",
		"dangling",
	)

	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	if findings[0].Field != "prompt" {
		t.Errorf("expected prompt finding, got %q", findings[0].Field)
	}
}
