package mailcode

import "testing"

func TestExtractCode(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		body    string
		want    string
		ok      bool
	}{
		{"subject carries code", "Your sign-in code is 482913", "", "482913", true},
		{"body fallback", "Sign-in confirmation", "Enter the code 7731 to continue.", "7731", true},
		{"subject wins over body", "Code 1111", "Code 2222", "1111", true},
		{"too short", "Code 42", "pin 123", "", false},
		{"too long", "ref 123456789", "", "", false},
		{"no digits", "Welcome back", "Click the link below.", "", false},
		{"digits inside a word are skipped", "order ab12345cd", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractCode(tt.subject, tt.body)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("ExtractCode(%q, %q) = (%q, %v), want (%q, %v)", tt.subject, tt.body, got, ok, tt.want, tt.ok)
			}
		})
	}
}
