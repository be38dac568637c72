package letter

import (
	"strings"
)

// SanitizeOptions parameterize the deterministic post-processing pass that
// runs on every generated letter, AI or template alike.
type SanitizeOptions struct {
	Greetings        []string // approved greeting prefixes, lowercase match
	DefaultGreeting  string
	MaxChars         int
	MaxParagraphs    int
	SignatureContact string // messenger handle, without "@"
	SignatureName    string
}

// minBoundaryRatio is the contractual lower bound for the sentence-boundary
// search during truncation: a cut point earlier than this share of the
// budget falls back to a hard cut.
const minBoundaryRatio = 0.7

// Sanitize normalizes a raw letter: strips generator artifacts, guarantees
// a greeting, caps paragraphs, truncates to the character budget at a
// sentence boundary, and appends exactly one signature block.
func Sanitize(text string, opts SanitizeOptions) string {
	text = stripArtifacts(text)
	text = ensureGreeting(text, opts.Greetings, opts.DefaultGreeting)
	text = capParagraphs(text, opts.MaxParagraphs)
	text = truncateAtBoundary(text, opts.MaxChars)
	text = ensureTerminal(stripSignatureLines(text))
	return appendSignature(text, opts.SignatureContact, opts.SignatureName)
}

func stripArtifacts(text string) string {
	text = strings.ReplaceAll(text, "```text", "")
	text = strings.ReplaceAll(text, "```", "")

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		lower := strings.ToLower(strings.TrimSpace(line))
		if strings.HasPrefix(lower, "subject:") || strings.HasPrefix(lower, "re:") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func ensureGreeting(text string, greetings []string, fallback string) string {
	lower := strings.ToLower(text)
	for _, g := range greetings {
		if strings.HasPrefix(lower, strings.ToLower(g)) {
			return text
		}
	}
	if fallback == "" {
		return text
	}
	return fallback + "\n\n" + text
}

func capParagraphs(text string, max int) string {
	if max <= 0 {
		return text
	}
	var paras []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paras = append(paras, p)
		}
	}
	if len(paras) > max {
		paras = paras[:max]
	}
	return strings.Join(paras, "\n\n")
}

var sentenceEnds = []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}

func truncateAtBoundary(text string, maxChars int) string {
	if maxChars <= 0 {
		return ensureTerminal(text)
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return ensureTerminal(text)
	}

	truncated := string(runes[:maxChars])
	floor := int(float64(maxChars) * minBoundaryRatio)
	for _, sep := range sentenceEnds {
		if idx := strings.LastIndex(truncated, sep); idx >= 0 {
			// idx is a byte offset; compare in runes
			if cut := len([]rune(truncated[:idx])); cut >= floor {
				truncated = truncated[:idx+1]
				break
			}
		}
	}
	return ensureTerminal(strings.TrimSpace(truncated))
}

func ensureTerminal(text string) string {
	if text == "" {
		return text
	}
	if strings.HasSuffix(text, ".") || strings.HasSuffix(text, "!") || strings.HasSuffix(text, "?") {
		return text
	}
	return text + "."
}

// signaturePrefixes mark lines the generator produced that would duplicate
// the canonical signature block.
var signaturePrefixes = []string{
	"telegram:", "tel:", "phone:", "e-mail:", "email:", "contact:",
	"best regards", "kind regards", "regards,", "sincerely",
}

func stripSignatureLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)

		drop := false
		for _, p := range signaturePrefixes {
			if strings.HasPrefix(lower, p) {
				drop = true
				break
			}
		}
		// standalone short handle token
		if !drop && strings.HasPrefix(trimmed, "@") && len(trimmed) < 30 && !strings.Contains(trimmed, " ") {
			drop = true
		}
		if drop {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func appendSignature(text, contact, name string) string {
	if contact != "" {
		text += "\n\nTelegram: @" + contact
	}
	if name != "" {
		text += "\n\nBest regards,\n" + name
	}
	return text
}
