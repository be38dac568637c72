// Package letter produces the cover letter for one application attempt:
// an AI cascade over configured providers and models, with a deterministic
// template underneath, and a uniform post-processing pass on every output.
package letter

import (
	"context"
	"errors"
	"log"
	"strings"

	"autoapply-engine/internal/ai"
	"autoapply-engine/internal/config"
	"autoapply-engine/internal/domain"
)

// Completer is the provider client surface the cascade drives.
type Completer interface {
	Name() string
	Complete(ctx context.Context, model, systemPrompt, userPrompt string, maxTokens int, temperature float64) (string, error)
}

// Provider is one endpoint with its model order: the primary model first,
// then the fallbacks.
type Provider struct {
	Client    Completer
	Primary   string
	Fallbacks []string
}

type Generator struct {
	cfg       config.Letter
	providers []Provider
}

func NewGenerator(cfg config.Letter, providers []Provider) *Generator {
	return &Generator{cfg: cfg, providers: providers}
}

// Ready reports whether a listing that demands a cover letter can be
// served: letters must be enabled and there must be either profile content
// to write from or an AI path.
func (g *Generator) Ready(profile domain.CandidateProfile) bool {
	if !g.cfg.Enabled {
		return false
	}
	return strings.TrimSpace(profile.Title) != "" || g.cfg.AI.Enabled
}

// Generate returns the letter text for one attempt. It never fails and the
// result is never empty: every AI failure falls through to the template.
func (g *Generator) Generate(ctx context.Context, profile domain.CandidateProfile, vacancyTitle, employer, description string) string {
	raw := g.rawLetter(ctx, profile, vacancyTitle, employer, description)
	return Sanitize(raw, SanitizeOptions{
		Greetings:        g.cfg.Greetings,
		DefaultGreeting:  g.cfg.DefaultGreeting,
		MaxChars:         g.cfg.MaxChars,
		MaxParagraphs:    g.cfg.MaxParagraphs,
		SignatureContact: g.cfg.Signature.Contact,
		SignatureName:    g.cfg.Signature.Name,
	})
}

func (g *Generator) rawLetter(ctx context.Context, profile domain.CandidateProfile, vacancyTitle, employer, description string) string {
	if !g.cfg.Enabled || strings.TrimSpace(profile.Title) == "" {
		return minimalTemplate(g.cfg.DefaultGreeting, vacancyTitle, employer)
	}

	if g.cfg.AI.Enabled {
		if text := g.cascade(ctx, profile, vacancyTitle, employer, description); text != "" {
			return text
		}
		log.Printf("[letter] all AI paths failed, using template")
	}

	return composeTemplate(g.cfg.DefaultGreeting, profile, vacancyTitle, employer, description)
}

// cascade walks providers in order, and within each provider the primary
// model followed by the fallback list, skipping duplicates. First success
// wins; at most one call per distinct model per provider.
func (g *Generator) cascade(ctx context.Context, profile domain.CandidateProfile, vacancyTitle, employer, description string) string {
	system := g.cfg.AI.SystemPrompt
	if system == "" {
		system = defaultSystemPrompt
	}
	user := buildUserPrompt(profile, vacancyTitle, employer, description)

	for _, p := range g.providers {
		for _, model := range modelOrder(p.Primary, p.Fallbacks) {
			text, err := p.Client.Complete(ctx, model, system, user, g.cfg.AI.MaxTokens, g.cfg.AI.Temperature)
			if err == nil {
				log.Printf("[letter] generated via %s/%s (%d chars)", p.Client.Name(), model, len(text))
				return text
			}

			var pe *ai.ProviderError
			if errors.As(err, &pe) && pe.RateLimited() {
				log.Printf("[letter] %s/%s rate limited, trying next model", p.Client.Name(), model)
			} else {
				log.Printf("[letter] %s/%s failed: %v", p.Client.Name(), model, err)
			}
		}
	}
	return ""
}

// modelOrder returns primary followed by fallbacks with duplicates removed.
func modelOrder(primary string, fallbacks []string) []string {
	out := make([]string, 0, 1+len(fallbacks))
	seen := map[string]bool{}
	for _, m := range append([]string{primary}, fallbacks...) {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// ProvidersFromConfig builds the cascade order from configuration. keyFor
// resolves a keychain account name to an API key; it may return "" for
// providers that need none.
func ProvidersFromConfig(cfg config.AI, keyFor func(account string) string, newClient func(p config.Provider, key string) Completer) []Provider {
	out := make([]Provider, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		key := ""
		if p.KeyAccount != "" && keyFor != nil {
			key = keyFor(p.KeyAccount)
		}
		out = append(out, Provider{
			Client:    newClient(p, key),
			Primary:   p.Model,
			Fallbacks: p.FallbackModels,
		})
	}
	return out
}
