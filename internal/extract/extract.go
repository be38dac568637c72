// Package extract turns loaded pages into the typed records the engine
// works with. All selector knowledge and markup coupling lives here; the
// rest of the engine only sees the domain structs.
package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"autoapply-engine/internal/domain"
	"autoapply-engine/internal/page"
)

// Collector navigates via the page surface and parses HTML snapshots.
type Collector struct {
	pg      page.Page
	baseURL string // search endpoint, e.g. https://site.example/search/vacancy
	perPage int
	areaIDs []int
}

func NewCollector(pg page.Page, baseURL string, perPage int, areaIDs []int) *Collector {
	return &Collector{pg: pg, baseURL: baseURL, perPage: perPage, areaIDs: areaIDs}
}

// Search loads one page of search results and returns the listing cards.
func (c *Collector) Search(ctx context.Context, query string, pageNum int) ([]domain.ListingSummary, error) {
	u, err := searchURL(c.baseURL, query, pageNum, c.perPage, c.areaIDs)
	if err != nil {
		return nil, err
	}
	if err := c.pg.Navigate(ctx, u); err != nil {
		return nil, fmt.Errorf("navigate search page %d: %w", pageNum, err)
	}
	html, err := c.pg.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("search page content: %w", err)
	}
	return ParseSearchPage(html, c.baseURL)
}

// BumpResume refreshes the resume's publication date when the site offers
// the control, lifting it in search results. An absent control means the
// bump is still on cooldown and is not an error.
func (c *Collector) BumpResume(ctx context.Context, profileURL string) error {
	if err := c.pg.Navigate(ctx, profileURL); err != nil {
		return fmt.Errorf("navigate resume: %w", err)
	}
	btn := c.pg.Locate("[data-qa='resume-update-button']")
	n, err := btn.Count(ctx)
	if err != nil || n == 0 {
		return nil
	}
	if err := btn.Nth(0).Click(ctx); err != nil {
		return fmt.Errorf("bump resume: %w", err)
	}
	return nil
}

// Detail opens a listing's own page and parses the decision snapshot.
func (c *Collector) Detail(ctx context.Context, listingURL, id string) (domain.ListingDetail, error) {
	if err := c.pg.Navigate(ctx, listingURL); err != nil {
		return domain.ListingDetail{}, fmt.Errorf("navigate listing %s: %w", id, err)
	}
	html, err := c.pg.Content(ctx)
	if err != nil {
		return domain.ListingDetail{}, fmt.Errorf("listing content %s: %w", id, err)
	}
	d, err := ParseListingPage(html)
	if err != nil {
		return domain.ListingDetail{}, err
	}
	d.ID = id
	d.URL = listingURL
	return d, nil
}

// Profile parses the operator's resume page.
func (c *Collector) Profile(ctx context.Context, profileURL string) (domain.CandidateProfile, error) {
	if err := c.pg.Navigate(ctx, profileURL); err != nil {
		return domain.CandidateProfile{}, fmt.Errorf("navigate profile: %w", err)
	}
	html, err := c.pg.Content(ctx)
	if err != nil {
		return domain.CandidateProfile{}, fmt.Errorf("profile content: %w", err)
	}
	return ParseProfilePage(html)
}

func searchURL(base, query string, pageNum, perPage int, areaIDs []int) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("search base url: %w", err)
	}
	q := u.Query()
	q.Set("text", query)
	q.Set("page", fmt.Sprint(pageNum))
	q.Set("per_page", fmt.Sprint(perPage))
	q.Set("search_field", "name")
	for _, a := range areaIDs {
		q.Add("area", fmt.Sprint(a))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ParseSearchPage extracts listing cards from a search results snapshot.
// Card hrefs come off the wire relative; baseURL anchors them so the URL
// stored on the card is always navigable.
func ParseSearchPage(html, baseURL string) ([]domain.ListingSummary, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}

	var out []domain.ListingSummary
	doc.Find("[data-qa='vacancy-serp__vacancy']").Each(func(_ int, card *goquery.Selection) {
		link := card.Find("[data-qa='serp-item__title'], a[data-qa='vacancy-serp__vacancy-title']").First()
		href, _ := link.Attr("href")
		id := listingIDFromURL(href)
		if id == "" {
			return
		}
		out = append(out, domain.ListingSummary{
			ID:       id,
			Title:    strings.TrimSpace(link.Text()),
			Employer: strings.TrimSpace(card.Find("[data-qa='vacancy-serp__vacancy-employer']").First().Text()),
			URL:      absoluteURL(baseURL, stripQuery(href)),
		})
	})
	return out, nil
}

// ParseListingPage extracts the detail snapshot. ID and URL are filled by
// the caller, which already knows them.
func ParseListingPage(html string) (domain.ListingDetail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return domain.ListingDetail{}, fmt.Errorf("parse listing page: %w", err)
	}

	d := domain.ListingDetail{
		Title:       strings.TrimSpace(doc.Find("[data-qa='vacancy-title']").First().Text()),
		Employer:    strings.TrimSpace(doc.Find("[data-qa='vacancy-company-name']").First().Text()),
		Description: strings.TrimSpace(doc.Find("[data-qa='vacancy-description']").First().Text()),
	}
	if d.Title == "" {
		d.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	d.HasTest = doc.Find("[data-qa='vacancy-response-link-with-test'], [data-qa='vacancy-test-block']").Length() > 0
	d.LetterRequired = doc.Find("[data-qa='vacancy-response-letter-required']").Length() > 0
	d.AlreadyApplied = doc.Find("[data-qa='vacancy-response-already-applied'], [data-qa='vacancy-response-status']").Length() > 0
	d.ExternalApply = doc.Find("[data-qa='vacancy-response-link-top'][target='_blank'], [data-qa='vacancy-response-external']").Length() > 0
	d.Archived = doc.Find("[data-qa='vacancy-archived'], .vacancy-archive-description").Length() > 0

	return d, nil
}

// ParseProfilePage extracts the candidate's resume content.
func ParseProfilePage(html string) (domain.CandidateProfile, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return domain.CandidateProfile{}, fmt.Errorf("parse profile page: %w", err)
	}

	var skills []string
	doc.Find("[data-qa='bloko-tag__text'], [data-qa='skills-table'] li").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			skills = append(skills, t)
		}
	})

	return domain.CandidateProfile{
		Title:      strings.TrimSpace(doc.Find("[data-qa='resume-block-title-position']").First().Text()),
		About:      strings.TrimSpace(doc.Find("[data-qa='resume-block-skills-content']").First().Text()),
		Experience: strings.TrimSpace(doc.Find("[data-qa='resume-block-experience'] [data-qa='resume-block-experience-description']").First().Text()),
		Skills:     strings.Join(skills, ", "),
	}, nil
}

// listingIDFromURL pulls the trailing numeric id out of a listing URL like
// /vacancy/123456?query=....
func listingIDFromURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) == 0 {
		return ""
	}
	last := segs[len(segs)-1]
	for _, r := range last {
		if r < '0' || r > '9' {
			return ""
		}
	}
	if last == "" {
		return ""
	}
	return last
}

// absoluteURL resolves a relative href against the base; absolute hrefs
// pass through untouched.
func absoluteURL(base, href string) string {
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	if h.IsAbs() {
		return h.String()
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}

func stripQuery(href string) string {
	if i := strings.IndexByte(href, '?'); i >= 0 {
		return href[:i]
	}
	return href
}
