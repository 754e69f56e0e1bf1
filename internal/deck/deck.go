// Package deck models the physical card pool for 13-card Indian Rummy: two
// standard 52-card decks plus two printed jokers, a draw pile, a discard
// stack and the wild-joker determinant fixed for the hand.
package deck

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
)

// ErrInsufficientCards is returned when a deal asks for more cards than the
// draw pile holds. Callers are expected to reshuffle first.
var ErrInsufficientCards = errors.New("not enough cards in draw pile")

// Deck owns the draw pile (front = next dealt), the discard pile
// (top = most recently discarded) and the wild-joker determinant.
type Deck struct {
	drawPile      []Card
	discardPile   []Card
	wildJoker     Card
	wildJokerSet  bool
	printedJokers bool
	rng           *rand.Rand
}

// New builds the canonical unshuffled pool: 2×52 standard cards plus two
// printed jokers when enabled (106 cards, 104 without).
func New(rng *rand.Rand, withPrintedJokers bool) *Deck {
	d := &Deck{
		drawPile:      make([]Card, 0, 106),
		discardPile:   make([]Card, 0, 32),
		printedJokers: withPrintedJokers,
		rng:           rng,
	}
	for copies := 0; copies < 2; copies++ {
		for suit := Spades; suit <= Clubs; suit++ {
			for rank := Ace; rank <= King; rank++ {
				d.drawPile = append(d.drawPile, NewCard(suit, rank))
			}
		}
	}
	if withPrintedJokers {
		d.drawPile = append(d.drawPile, NewPrintedJoker(), NewPrintedJoker())
	}
	return d
}

// Shuffle permutes the draw pile uniformly (Fisher–Yates). The discard pile
// is untouched.
func (d *Deck) Shuffle() {
	for i := len(d.drawPile) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		d.drawPile[i], d.drawPile[j] = d.drawPile[j], d.drawPile[i]
	}
}

// Deal removes and returns the first n cards of the draw pile.
func (d *Deck) Deal(n int) ([]Card, error) {
	if n > len(d.drawPile) {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrInsufficientCards, n, len(d.drawPile))
	}
	cards := make([]Card, n)
	copy(cards, d.drawPile[:n])
	d.drawPile = d.drawPile[n:]
	return cards, nil
}

// DealOne removes and returns the next card of the draw pile.
func (d *Deck) DealOne() (Card, error) {
	cards, err := d.Deal(1)
	if err != nil {
		return Card{}, err
	}
	return cards[0], nil
}

// SetupWildJoker draws cards until a non-joker determinant is found. The
// determinant and any printed jokers drawn on the way are consumed: they sit
// face-up beside the table and never return to play.
func (d *Deck) SetupWildJoker() (Card, error) {
	for {
		card, err := d.DealOne()
		if err != nil {
			return Card{}, fmt.Errorf("setup wild joker: %w", err)
		}
		if !card.IsPrintedJoker() {
			d.wildJoker = card
			d.wildJokerSet = true
			return card, nil
		}
	}
}

// WildJoker returns the determinant card fixed for this hand.
func (d *Deck) WildJoker() (Card, bool) {
	return d.wildJoker, d.wildJokerSet
}

// IsWildcard reports whether a card plays as a joker: either a printed joker
// or a card sharing rank and suit with the wild-joker determinant.
func (d *Deck) IsWildcard(card Card) bool {
	if card.IsPrintedJoker() {
		return true
	}
	return d.wildJokerSet && card.Suit == d.wildJoker.Suit && card.Rank == d.wildJoker.Rank
}

// Discard pushes a card onto the discard pile.
func (d *Deck) Discard(card Card) {
	d.discardPile = append(d.discardPile, card)
}

// PeekDiscard returns the top of the discard pile without removing it.
func (d *Deck) PeekDiscard() (Card, bool) {
	if len(d.discardPile) == 0 {
		return Card{}, false
	}
	return d.discardPile[len(d.discardPile)-1], true
}

// DrawFromDiscard removes and returns the top of the discard pile.
func (d *Deck) DrawFromDiscard() (Card, bool) {
	if len(d.discardPile) == 0 {
		return Card{}, false
	}
	card := d.discardPile[len(d.discardPile)-1]
	d.discardPile = d.discardPile[:len(d.discardPile)-1]
	return card, true
}

// NeedsReshuffle reports whether the draw pile has run down to the threshold
// while discards are available to recycle.
func (d *Deck) NeedsReshuffle(threshold int) bool {
	return len(d.drawPile) <= threshold && len(d.discardPile) > 0
}

// ReshuffleFromDiscard moves all but the top discard card back into the draw
// pile and shuffles. A discard pile of one or fewer cards makes this a no-op;
// that top card must stay visible to the table.
func (d *Deck) ReshuffleFromDiscard() {
	if len(d.discardPile) <= 1 {
		return
	}
	top := d.discardPile[len(d.discardPile)-1]
	d.drawPile = append(d.drawPile, d.discardPile[:len(d.discardPile)-1]...)
	d.discardPile = d.discardPile[:0]
	d.discardPile = append(d.discardPile, top)
	d.Shuffle()
}

// DrawCount returns the number of cards left in the draw pile.
func (d *Deck) DrawCount() int {
	return len(d.drawPile)
}

// DiscardCount returns the number of cards on the discard pile.
func (d *Deck) DiscardCount() int {
	return len(d.discardPile)
}

// InPlayCount returns the number of cards owned by the deck (draw + discard).
// Together with the dealt hands this stays constant for the whole hand once
// the wild joker has been cut.
func (d *Deck) InPlayCount() int {
	return len(d.drawPile) + len(d.discardPile)
}

// PoolSize returns the size of the full pool this deck was built with.
func (d *Deck) PoolSize() int {
	if d.printedJokers {
		return 106
	}
	return 104
}
