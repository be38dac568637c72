package ai

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"
)

// Probe checks all providers concurrently before a session starts, so the
// operator sees unreachable endpoints up front. Failures are logged only;
// the letter cascade decides what to do at generation time.
func Probe(ctx context.Context, clients []*Client) {
	var g errgroup.Group
	for _, c := range clients {
		c := c
		g.Go(func() error {
			if err := c.Reachable(ctx); err != nil {
				log.Printf("[ai] provider %s: %v", c.Name(), err)
			} else {
				log.Printf("[ai] provider %s reachable", c.Name())
			}
			return nil
		})
	}
	_ = g.Wait()
}
