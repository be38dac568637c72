package letter

import (
	"fmt"
	"strings"

	"autoapply-engine/internal/domain"
)

// defaultSystemPrompt is configuration data: operators may override it per
// deployment via letter.ai.system_prompt.
const defaultSystemPrompt = `You are an expert at writing cover letters for job applications.
Write a SHORT, PERSONALIZED cover letter.

HARD CONSTRAINTS:
- At most 150-200 words
- 3-4 short paragraphs, each at most 2 sentences
- If the text runs long, cut secondary material

STRUCTURE:
1. Greeting plus the vacancy name (1 sentence)
2. Link the candidate's skills to the requirements (1-2 sentences)
3. Why this company is interesting (1 sentence)
4. Call to action (1 sentence)

FORBIDDEN:
- Repeating the resume verbatim
- Generic filler that fits any vacancy
- More than 4 paragraphs`

const (
	promptDescriptionBudget = 600
	promptExperienceBudget  = 300
)

func buildUserPrompt(profile domain.CandidateProfile, vacancyTitle, employer, description string) string {
	parts := []string{
		"# CANDIDATE",
		"Position: " + orUnknown(profile.Title),
	}

	if about := aboutExcerpt(profile.About, promptDescriptionBudget); about != "" {
		parts = append(parts, "About: "+about)
	}
	if profile.Skills != "" {
		parts = append(parts, "Skills: "+profile.Skills)
	}
	if profile.Experience != "" {
		parts = append(parts, "Experience: "+clip(profile.Experience, promptExperienceBudget))
	}

	parts = append(parts,
		"",
		"# VACANCY",
		"Title: "+vacancyTitle,
		"Company: "+employer,
	)
	if description != "" {
		parts = append(parts, "Description: "+clip(description, promptDescriptionBudget))
	}

	parts = append(parts,
		"",
		"# TASK",
		"Write a cover letter for this vacancy.",
		"Pick 2-3 candidate skills that directly match the requirements and name them explicitly.",
		fmt.Sprintf("Mention the %s vacancy and the company %s.", vacancyTitle, employer),
		"Do not add contact details or a signature; they are appended separately.",
	)

	return strings.Join(parts, "\n")
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(not specified)"
	}
	return s
}

func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + " …"
}
