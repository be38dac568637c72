package letter

import (
	"strings"
	"testing"

	"autoapply-engine/internal/domain"
)

func TestRelevantSkills(t *testing.T) {
	tests := []struct {
		name     string
		declared string
		desc     string
		want     []string
	}{
		{
			name:     "overlap wins",
			declared: "Go, Python, Kubernetes, Terraform",
			desc:     "We need strong go and kubernetes experience.",
			want:     []string{"Go", "Kubernetes"},
		},
		{
			name:     "no overlap falls back to first three",
			declared: "Go; Python; Rust; Haskell",
			desc:     "We build spreadsheets.",
			want:     []string{"Go", "Python", "Rust"},
		},
		{
			name:     "bullet separators",
			declared: "Go • Python • SQL",
			desc:     "sql heavy role",
			want:     []string{"SQL"},
		},
		{
			name:     "no skills declared",
			declared: "",
			desc:     "anything",
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := relevantSkills(tt.declared, tt.desc)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestComposeTemplate(t *testing.T) {
	profile := domain.CandidateProfile{
		Title:  "Backend Developer",
		About:  "Six years building APIs. Enjoy distributed systems.",
		Skills: "Go, PostgreSQL, Kafka",
	}

	out := composeTemplate("Hello!", profile, "Go Engineer", "Acme", "Looking for go and postgresql people")

	for _, want := range []string{"Go Engineer", "Acme", "Backend Developer", "Go", "PostgreSQL"} {
		if !strings.Contains(out, want) {
			t.Errorf("template missing %q:\n%s", want, out)
		}
	}
	if !strings.HasPrefix(out, "Hello!") {
		t.Errorf("template missing greeting:\n%s", out)
	}
	if strings.Contains(out, "Telegram") {
		t.Errorf("template must not carry a signature:\n%s", out)
	}
}

func TestMinimalTemplate(t *testing.T) {
	out := minimalTemplate("Hello!", "QA Engineer", "Acme")
	if !strings.Contains(out, "QA Engineer") || !strings.Contains(out, "Acme") {
		t.Errorf("minimal template missing vacancy/employer: %q", out)
	}
	if !strings.HasPrefix(out, "Hello!") {
		t.Errorf("minimal template missing greeting: %q", out)
	}
}

func TestAboutExcerpt(t *testing.T) {
	about := "First sentence here. Second sentence follows. " + strings.Repeat("Padding sentence appears. ", 20)
	out := aboutExcerpt(about, 60)
	if len(out) > 60 {
		t.Errorf("excerpt too long: %d chars", len(out))
	}
	if !strings.Contains(out, "First sentence here.") {
		t.Errorf("excerpt dropped leading sentence: %q", out)
	}
}
