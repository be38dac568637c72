package letter

import (
	"fmt"
	"strings"

	"autoapply-engine/internal/domain"
)

const maxTemplateSkills = 4

// minimalTemplate is the last-resort letter used when the profile carries
// nothing usable: greeting, interest statement, closing.
func minimalTemplate(greeting, vacancyTitle, employer string) string {
	return fmt.Sprintf(
		"%s\n\nI am interested in the %s position at %s.\n\nHappy to discuss the details.",
		greeting, vacancyTitle, employer,
	)
}

// composeTemplate is the deterministic generator: it picks the declared
// skills that overlap the vacancy description and builds a short letter
// around them. Signature handling belongs to Sanitize, not here.
func composeTemplate(greeting string, profile domain.CandidateProfile, vacancyTitle, employer, description string) string {
	parts := []string{
		greeting,
		fmt.Sprintf("I am interested in the %s position at %s.", vacancyTitle, employer),
	}

	skills := relevantSkills(profile.Skills, description)

	var exp []string
	if profile.Title != "" {
		exp = append(exp, "I currently work as a "+profile.Title)
	}
	if len(skills) > 0 {
		exp = append(exp, "my stack includes "+strings.Join(skills, ", "))
	}
	if len(exp) > 0 {
		parts = append(parts, strings.Join(exp, "; ")+".")
	}

	if about := aboutExcerpt(profile.About, 150); about != "" {
		parts = append(parts, about)
	}

	parts = append(parts, "I would be glad to discuss the details and answer your questions.")

	return strings.Join(parts, "\n\n")
}

// relevantSkills returns up to a few declared skills that textually occur
// in the vacancy description; absent any overlap, the first few declared
// skills.
func relevantSkills(declared, description string) []string {
	all := splitSkills(declared)
	if len(all) == 0 {
		return nil
	}

	descLower := strings.ToLower(description)
	var matched []string
	if descLower != "" {
		for _, s := range all {
			if strings.Contains(descLower, strings.ToLower(s)) {
				matched = append(matched, s)
				if len(matched) == maxTemplateSkills {
					break
				}
			}
		}
	}
	if len(matched) > 0 {
		return matched
	}
	if len(all) > 3 {
		all = all[:3]
	}
	return all
}

func splitSkills(raw string) []string {
	norm := strings.NewReplacer(",", "•", ";", "•").Replace(raw)
	var out []string
	for _, s := range strings.Split(norm, "•") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// aboutExcerpt trims the free-form about text to whole sentences within
// budget.
func aboutExcerpt(about string, budget int) string {
	about = strings.Join(strings.Fields(about), " ")
	if about == "" {
		return ""
	}

	var sentences []string
	total := 0
	for _, sent := range strings.Split(about, ". ") {
		sent = strings.TrimSpace(sent)
		if sent == "" {
			continue
		}
		if !strings.HasSuffix(sent, ".") {
			sent += "."
		}
		if total+len(sent) > budget {
			break
		}
		sentences = append(sentences, sent)
		total += len(sent) + 1
	}
	return strings.Join(sentences, " ")
}
