// Package bot defines the decision-provider boundary for computer-controlled
// seats: a sanitized single-seat view goes out, a draw/discard choice comes
// back. The engine tolerates any provider failure by falling back to the
// deterministic random provider.
package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	rand "math/rand/v2"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cardroomlabs/rummyd/internal/deck"
)

// View is the sanitized game state a provider sees for one seat. It never
// contains another player's cards.
type View struct {
	GameID             string      `json:"gameId"`
	PlayerID           string      `json:"playerId"`
	Hand               []deck.Card `json:"hand"`
	DiscardTop         *deck.Card  `json:"discardTop,omitempty"`
	WildJoker          *deck.Card  `json:"wildJoker,omitempty"`
	DrawPileCount      int         `json:"drawPileCount"`
	OpponentCardCounts []int       `json:"opponentCardCounts"`
}

// Decision is a provider's answer: where to draw from and which held card to
// discard afterwards.
type Decision struct {
	DrawFromDiscard bool   `json:"drawFromDiscard"`
	CardToDiscard   string `json:"cardToDiscard"`
}

// Provider produces a decision for a computer-controlled turn. Implementations
// may be slow or fail; callers own the fallback.
type Provider interface {
	Decide(ctx context.Context, view View) (Decision, error)
}

// discardPickChance is how often the random provider takes the visible
// discard instead of a blind deck draw.
const discardPickChance = 0.3

// RandomProvider makes uniform random choices. It backs every fallback path
// and is deterministic for a fixed rng seed.
type RandomProvider struct {
	rng *rand.Rand
}

// NewRandomProvider creates a random provider over the given source.
func NewRandomProvider(rng *rand.Rand) *RandomProvider {
	return &RandomProvider{rng: rng}
}

// Decide picks the discard pile 30% of the time when it has a visible top,
// and discards a uniformly random held card.
func (p *RandomProvider) Decide(_ context.Context, view View) (Decision, error) {
	if len(view.Hand) == 0 {
		return Decision{}, fmt.Errorf("empty hand in view for player %s", view.PlayerID)
	}
	return Decision{
		DrawFromDiscard: view.DiscardTop != nil && p.rng.Float64() < discardPickChance,
		CardToDiscard:   view.Hand[p.rng.IntN(len(view.Hand))].ID,
	}, nil
}

// HTTPProvider consults an external decision service (which may in turn ask a
// language model) over JSON/HTTP. Any transport or shape problem surfaces as
// an error for the engine's fallback to absorb.
type HTTPProvider struct {
	url     string
	client  *http.Client
	timeout time.Duration
	logger  *log.Logger
}

// NewHTTPProvider creates a provider POSTing views to the given URL.
func NewHTTPProvider(url string, timeout time.Duration, logger *log.Logger) *HTTPProvider {
	return &HTTPProvider{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logger.WithPrefix("decision-provider"),
	}
}

// Decide POSTs the view and decodes the decision.
func (p *HTTPProvider) Decide(ctx context.Context, view View) (Decision, error) {
	body, err := json.Marshal(view)
	if err != nil {
		return Decision{}, fmt.Errorf("encode view: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return Decision{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Decision{}, fmt.Errorf("decision service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Decision{}, fmt.Errorf("decision service returned %d", resp.StatusCode)
	}

	var decision Decision
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&decision); err != nil {
		return Decision{}, fmt.Errorf("decode decision: %w", err)
	}
	if decision.CardToDiscard == "" {
		return Decision{}, fmt.Errorf("decision service returned no discard card")
	}

	p.logger.Debug("received decision", "player", view.PlayerID,
		"fromDiscard", decision.DrawFromDiscard, "discard", decision.CardToDiscard)
	return decision, nil
}
