package apply

// Selectors is the markup coupling of the submission flow, kept as data so
// the machine itself never branches on site specifics.
type Selectors struct {
	ApplyButton string

	LocationWarning         string
	LocationWarningContinue string
	PhotoPrompt             string
	PhotoPromptContinue     string

	ResponseModal   string
	SuccessMarker   string
	ErrorMarker     string
	QuickApplyNote  string
	ResponseURLHint string // substring of a full-page response/negotiation URL

	ResumeItems  string
	LetterField  string
	SubmitButton string
}

func DefaultSelectors() Selectors {
	return Selectors{
		ApplyButton: "[data-qa='vacancy-response-link-top'], [data-qa='vacancy-response-link-bottom']",

		LocationWarning:         "[data-qa='relocation-warning-popup']",
		LocationWarningContinue: "[data-qa='relocation-warning-confirm'], [data-qa='vacancy-response-relocation-submit']",
		PhotoPrompt:             "[data-qa='photo-upload-popup']",
		PhotoPromptContinue:     "[data-qa='photo-upload-submit'], [aria-label='Close']",

		ResponseModal:   "[data-qa='vacancy-response-popup']",
		SuccessMarker:   "[data-qa='vacancy-response-success']",
		ErrorMarker:     "[data-qa='error-message'], .error-message",
		QuickApplyNote:  "[data-qa='vacancy-response-resume-delivered']",
		ResponseURLHint: "/applicant/negotiations",

		ResumeItems:  "[data-qa='resume-in-popup']",
		LetterField:  "[data-qa='vacancy-response-letter-text'], textarea[name='text']",
		SubmitButton: "[data-qa='vacancy-response-submit-popup'], button[type='submit']",
	}
}
