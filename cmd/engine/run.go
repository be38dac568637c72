package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"autoapply-engine/internal/ai"
	"autoapply-engine/internal/apply"
	"autoapply-engine/internal/auth"
	"autoapply-engine/internal/browser"
	"autoapply-engine/internal/config"
	"autoapply-engine/internal/domain"
	"autoapply-engine/internal/extract"
	"autoapply-engine/internal/ledger"
	"autoapply-engine/internal/letter"
	"autoapply-engine/internal/mailcode"
	"autoapply-engine/internal/secrets"
	"autoapply-engine/internal/session"
)

var flagQuery string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one application session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSession(cmd.Context())
	},
}

func init() {
	runCmd.Flags().StringVar(&flagQuery, "query", "", "search query (overrides search.query)")
}

func runSession(parent context.Context) error {
	cfg, dir, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// One session per data dir at a time.
	lock := flock.New(filepath.Join(dir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("session lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another session is already running in %s", dir)
	}
	defer func() { _ = lock.Unlock() }()

	led, err := ledger.Open(ledgerPath(dir))
	if err != nil {
		return err
	}
	defer led.Close()

	pg, closeBrowser, err := openBrowser(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBrowser()

	if err := ensureLoggedIn(ctx, cfg, pg); err != nil {
		return err
	}

	gen := buildLetters(ctx, cfg)
	machine := apply.NewMachine(
		apply.DefaultSelectors(),
		gen,
		cfg.Letter.Enabled,
		cfg.Resume.PreferredTitle,
		time.Duration(cfg.Limits.ProbeTimeoutSeconds)*time.Second,
	)
	collector := extract.NewCollector(pg, cfg.Search.BaseURL, cfg.Search.PerPage, cfg.Search.AreaIDs)
	runner := session.NewRunner(cfg, pg, collector, machine, gen, led, session.NewPacer(cfg))

	query := flagQuery
	if query == "" {
		query = cfg.Search.Query
	}

	stats, runErr := runner.Run(ctx, query)
	printSummary(stats)
	return runErr
}

func openBrowser(ctx context.Context, cfg config.Config) (*browser.Page, func(), error) {
	stopBrowser := func() {}
	if cfg.Browser.ExecPath != "" {
		var err error
		stopBrowser, err = browser.Launch(ctx, cfg.Browser.ExecPath, cfg.Browser.UserDataDir, cfg.Browser.DebugURL, cfg.Browser.Headless)
		if err != nil {
			return nil, nil, err
		}
	}
	client, err := browser.Connect(ctx, cfg.Browser.DebugURL)
	if err != nil {
		stopBrowser()
		return nil, nil, fmt.Errorf("attach to browser at %s: %w", cfg.Browser.DebugURL, err)
	}
	return browser.NewPage(client), func() {
		_ = client.Close()
		stopBrowser()
	}, nil
}

func ensureLoggedIn(ctx context.Context, cfg config.Config, pg *browser.Page) error {
	if cfg.Auth.LoginURL == "" || cfg.Auth.Email == "" {
		log.Printf("[auth] not configured, assuming an existing session")
		return nil
	}
	password, err := secrets.Get(secrets.IMAPAccount(cfg))
	if err != nil {
		// Only fatal if the code flow actually runs; the fetcher reports
		// the failure then.
		log.Printf("[auth] mail password unavailable: %v", err)
	}
	codes := &mailcode.Fetcher{
		Host:     cfg.Auth.IMAP.Host,
		Port:     cfg.Auth.IMAP.Port,
		Username: cfg.Auth.IMAP.Username,
		Password: password,
		Mailbox:  cfg.Auth.IMAP.Mailbox,
	}
	flow := auth.NewFlow(auth.DefaultSelectors(), codes, cfg.Auth.LoginURL, cfg.Auth.Email)
	return flow.EnsureLoggedIn(ctx, pg)
}

// buildLetters wires the provider cascade and probes reachability up front
// so a dead endpoint shows in the log before the session starts.
func buildLetters(ctx context.Context, cfg config.Config) *letter.Generator {
	var clients []*ai.Client
	limiter := ai.NewHostLimiter(1, 2)
	timeout := time.Duration(cfg.Letter.AI.TimeoutSeconds) * time.Second

	providers := letter.ProvidersFromConfig(cfg.Letter.AI,
		func(account string) string {
			v, err := secrets.Get(account)
			if err != nil {
				log.Printf("[letters] no key for account %q: %v", account, err)
				return ""
			}
			return v
		},
		func(p config.Provider, key string) letter.Completer {
			c := ai.New(p.Name, p.BaseURL, key, timeout, limiter)
			clients = append(clients, c)
			return c
		},
	)

	if cfg.Letter.AI.Enabled && len(clients) > 0 {
		probeCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Limits.ProbeTimeoutSeconds)*time.Second)
		defer cancel()
		ai.Probe(probeCtx, clients)
	}
	return letter.NewGenerator(cfg.Letter, providers)
}

func printSummary(stats *domain.SessionStats) {
	if stats == nil {
		return
	}
	fmt.Printf("\nSession finished: %d applied, %d skipped, %d errors\n", stats.Applied, stats.Skipped, stats.Errors)
	if len(stats.SkipReasons) == 0 {
		return
	}
	reasons := make([]string, 0, len(stats.SkipReasons))
	for r := range stats.SkipReasons {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	fmt.Println("Skip reasons:")
	for _, r := range reasons {
		fmt.Printf("  %-30s %d\n", r, stats.SkipReasons[r])
	}
}
