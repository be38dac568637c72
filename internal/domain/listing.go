package domain

// ListingSummary is one card on a search results page. Produced by the
// extraction collaborator; immutable for the duration of processing.
type ListingSummary struct {
	ID       string
	Title    string
	Employer string
	URL      string
}

// ListingDetail is the snapshot taken when a listing's own page is opened.
// It may go stale; a re-fetch is trusted over any cached copy.
type ListingDetail struct {
	ID             string
	Title          string
	Employer       string
	URL            string
	Description    string
	HasTest        bool
	LetterRequired bool
	AlreadyApplied bool
	ExternalApply  bool
	Archived       bool
}

// CandidateProfile is the operator's resume content, fetched once per
// session and read-only afterwards.
type CandidateProfile struct {
	Title      string
	About      string
	Experience string
	Skills     string
}
