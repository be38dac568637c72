package mailcode

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// Fetcher pulls one-time login codes out of a mailbox over IMAP. The site
// mails a short numeric code during sign-in; we poll unseen messages that
// arrived after the sign-in attempt and pick the code out of the newest one.
type Fetcher struct {
	Host     string
	Port     int
	Username string
	Password string
	Mailbox  string
}

var codePattern = regexp.MustCompile(`\b(\d{4,8})\b`)

// ErrNoCode means the mailbox had no matching message yet.
var ErrNoCode = errors.New("no login code found")

// WaitForCode polls the mailbox until a code newer than since shows up or
// the context expires.
func (f *Fetcher) WaitForCode(ctx context.Context, since time.Time) (string, error) {
	tick := time.NewTicker(5 * time.Second)
	defer tick.Stop()
	for {
		code, err := f.fetchCode(ctx, since)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, ErrNoCode) {
			return "", err
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("waiting for login code: %w", ctx.Err())
		case <-tick.C:
		}
	}
}

func (f *Fetcher) fetchCode(ctx context.Context, since time.Time) (string, error) {
	addr := fmt.Sprintf("%s:%d", f.Host, f.Port)
	c, err := imapclient.DialTLS(addr, &imapclient.Options{
		TLSConfig: &tls.Config{MinVersion: tls.VersionTLS12, ServerName: f.Host},
	})
	if err != nil {
		return "", fmt.Errorf("imap dial %s: %w", addr, err)
	}
	defer func() {
		if err := c.Logout().Wait(); err != nil {
			log.Printf("[mailcode] imap logout: %v", err)
		}
		_ = c.Close()
	}()

	if err := c.Login(f.Username, f.Password).Wait(); err != nil {
		return "", fmt.Errorf("imap login: %w", err)
	}

	mailbox := f.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if _, err := c.Select(mailbox, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		return "", fmt.Errorf("imap select %s: %w", mailbox, err)
	}

	// SINCE has day granularity; the envelope date narrows it further below.
	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
		Since:   since.Add(-24 * time.Hour),
	}
	searchData, err := c.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return "", fmt.Errorf("imap uid search: %w", err)
	}
	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return "", ErrNoCode
	}

	bodyAll := &imap.FetchItemBodySection{Specifier: imap.PartSpecifierNone, Peek: true}
	fetchCmd := c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:         true,
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{bodyAll},
	})
	defer func() { _ = fetchCmd.Close() }()

	var best string
	var bestDate time.Time
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			return "", fmt.Errorf("imap fetch collect: %w", err)
		}
		var subject, body string
		var date time.Time
		if buf.Envelope != nil {
			subject = buf.Envelope.Subject
			date = buf.Envelope.Date
		}
		if b := buf.FindBodySection(bodyAll); b != nil {
			body = string(b)
		}
		if !date.IsZero() && date.Before(since) {
			continue
		}
		code, ok := ExtractCode(subject, body)
		if !ok {
			continue
		}
		if best == "" || date.After(bestDate) {
			best, bestDate = code, date
		}
	}
	if best == "" {
		return "", ErrNoCode
	}
	return best, nil
}

// ExtractCode finds the login code in a message. The subject usually
// carries it; the body is the fallback.
func ExtractCode(subject, body string) (string, bool) {
	for _, text := range []string{subject, body} {
		if m := codePattern.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}
