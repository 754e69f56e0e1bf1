package game

import (
	"github.com/cardroomlabs/rummyd/internal/bot"
	"github.com/cardroomlabs/rummyd/internal/deck"
)

// DropKind is the category of an early exit from the hand.
type DropKind string

const (
	// DropFirst is a drop before the player's first draw of the game.
	DropFirst DropKind = "first"
	// DropMiddle is any later drop, voluntary or forced.
	DropMiddle DropKind = "middle"
)

// Controller says who plays a seat. Exactly one of the variants applies;
// turn dispatch branches on it once, nothing else does.
type Controller struct {
	Provider bot.Provider // nil for human seats
}

// Human returns a controller for a human-played seat.
func Human() Controller {
	return Controller{}
}

// Bot returns a controller whose turns are played by the given provider.
func Bot(provider bot.Provider) Controller {
	return Controller{Provider: provider}
}

// IsBot reports whether the seat is computer-controlled.
func (c Controller) IsBot() bool {
	return c.Provider != nil
}

// Player is one seat at the table. The hand is exclusively owned by the
// player and only mutated through engine-mediated actions.
type Player struct {
	ID             string
	Name           string
	Seat           int
	Hand           []deck.Card
	Score          int
	HasDropped     bool
	DropKind       DropKind
	AutoDropped    bool
	InvalidDeclare bool
	TimeoutCount   int
	Controller     Controller
}

// holds reports whether the player owns a card with the given identity and
// returns its position.
func (p *Player) holds(cardID string) (int, bool) {
	for i, c := range p.Hand {
		if c.ID == cardID {
			return i, true
		}
	}
	return -1, false
}

// removeCard takes the card at index i out of the hand, preserving order.
func (p *Player) removeCard(i int) deck.Card {
	card := p.Hand[i]
	p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
	return card
}

// handCopy returns a copy of the hand for views and results.
func (p *Player) handCopy() []deck.Card {
	hand := make([]deck.Card, len(p.Hand))
	copy(hand, p.Hand)
	return hand
}
