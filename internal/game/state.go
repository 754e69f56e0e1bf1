package game

import (
	"time"

	"github.com/cardroomlabs/rummyd/internal/deck"
)

// PublicPlayer is the per-seat slice of state every client may see. Hands
// appear as counts only.
type PublicPlayer struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Seat         int      `json:"seat"`
	HandCount    int      `json:"handCount"`
	Score        int      `json:"score"`
	HasDropped   bool     `json:"hasDropped"`
	DropKind     DropKind `json:"dropKind,omitempty"`
	AutoDropped  bool     `json:"autoDropped,omitempty"`
	TimeoutCount int      `json:"timeoutCount"`
	IsBot        bool     `json:"isBot"`
	IsConnected  bool     `json:"isConnected"`
}

// PublicState is the broadcastable view of a game. It contains no private
// hand contents.
type PublicState struct {
	GameID        string         `json:"gameId"`
	Phase         string         `json:"phase"`
	Players       []PublicPlayer `json:"players"`
	CurrentTurn   int            `json:"currentTurn"`
	CurrentPlayer string         `json:"currentPlayer,omitempty"`
	TurnDeadline  time.Time      `json:"turnDeadline,omitempty"`
	WildJoker     *deck.Card     `json:"wildJoker,omitempty"`
	DiscardTop    *deck.Card     `json:"discardTop,omitempty"`
	DrawPileCount int            `json:"drawPileCount"`
	WinnerID      string         `json:"winnerId,omitempty"`
}

// PlayerScore is one line of the end-of-game summary.
type PlayerScore struct {
	PlayerID string   `json:"playerId"`
	Name     string   `json:"name"`
	Score    int      `json:"score"`
	Dropped  bool     `json:"dropped"`
	DropKind DropKind `json:"dropKind,omitempty"`
}

// Summary is the final accounting of a finished game.
type Summary struct {
	GameID    string        `json:"gameId"`
	WinnerID  string        `json:"winnerId,omitempty"`
	EndReason string        `json:"endReason,omitempty"`
	Scores    []PlayerScore `json:"scores"`
	Duration  time.Duration `json:"duration"`
}

// PublicState returns the current broadcastable view.
func (e *Engine) PublicState() PublicState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.publicStateLocked()
}

// Summary returns the scoring summary. Meaningful once the game finished;
// before that scores reflect penalties applied so far.
func (e *Engine) Summary() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.summaryLocked()
}

func (e *Engine) publicStateLocked() PublicState {
	state := PublicState{
		GameID:      e.id,
		Phase:       e.phase.String(),
		Players:     make([]PublicPlayer, 0, len(e.players)),
		CurrentTurn: e.currentTurn,
		WinnerID:    e.winnerID,
	}
	for _, p := range e.players {
		state.Players = append(state.Players, PublicPlayer{
			ID:           p.ID,
			Name:         p.Name,
			Seat:         p.Seat,
			HandCount:    len(p.Hand),
			Score:        p.Score,
			HasDropped:   p.HasDropped,
			DropKind:     p.DropKind,
			AutoDropped:  p.AutoDropped,
			TimeoutCount: p.TimeoutCount,
			IsBot:        p.Controller.IsBot(),
			IsConnected:  e.connected[p.ID],
		})
	}
	if e.phase == Playing {
		state.CurrentPlayer = e.players[e.currentTurn].ID
		state.TurnDeadline = e.turnDeadline
	}
	if e.deck != nil {
		state.DrawPileCount = e.deck.DrawCount()
		if wild, ok := e.deck.WildJoker(); ok {
			state.WildJoker = &wild
		}
		if top, ok := e.deck.PeekDiscard(); ok {
			state.DiscardTop = &top
		}
	}
	return state
}

func (e *Engine) summaryLocked() Summary {
	summary := Summary{
		GameID:    e.id,
		WinnerID:  e.winnerID,
		EndReason: e.endReason,
		Scores:    make([]PlayerScore, 0, len(e.players)),
	}
	for _, p := range e.players {
		summary.Scores = append(summary.Scores, PlayerScore{
			PlayerID: p.ID,
			Name:     p.Name,
			Score:    p.Score,
			Dropped:  p.HasDropped,
			DropKind: p.DropKind,
		})
	}
	if !e.endedAt.IsZero() {
		summary.Duration = e.endedAt.Sub(e.startedAt)
	}
	return summary
}
