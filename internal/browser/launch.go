package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os/exec"
	"time"
)

// Launch starts a Chromium with remote debugging enabled and waits for the
// devtools endpoint to come up. The returned stop function kills the
// browser. A persistent user data dir keeps the site session between runs.
func Launch(ctx context.Context, execPath, userDataDir, debugURL string, headless bool) (stop func(), err error) {
	u, err := url.Parse(debugURL)
	if err != nil {
		return nil, fmt.Errorf("debug url: %w", err)
	}
	args := []string{
		"--remote-debugging-port=" + u.Port(),
		"--no-first-run",
		"--no-default-browser-check",
	}
	if userDataDir != "" {
		args = append(args, "--user-data-dir="+userDataDir)
	}
	if headless {
		args = append(args, "--headless=new")
	}
	cmd := exec.Command(execPath, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}
	stop = func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	}

	if err := waitEndpoint(ctx, debugURL, 20*time.Second); err != nil {
		stop()
		return nil, err
	}
	return stop, nil
}

func waitEndpoint(ctx context.Context, debugURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, debugURL+"/json/version", nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("devtools endpoint %s not reachable", debugURL)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}
}
