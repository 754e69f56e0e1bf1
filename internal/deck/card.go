package deck

import (
	"fmt"

	"github.com/google/uuid"
)

// Suit represents a card suit
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
	// JokerSuit is the suit carried by printed jokers only.
	JokerSuit
)

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	case JokerSuit:
		return "★"
	default:
		return "?"
	}
}

// IsRed returns true if the suit is red (Hearts or Diamonds)
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// Rank represents a card rank. Ace is low (1); sequence validation decides
// when it may play high.
type Rank int

const (
	JokerRank Rank = 0
	Ace       Rank = 1
	Two       Rank = iota
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

// String returns the string representation of a rank
func (r Rank) String() string {
	switch r {
	case Ace:
		return "A"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case JokerRank:
		return "Joker"
	default:
		return fmt.Sprintf("%d", int(r))
	}
}

// JokerKind distinguishes printed jokers from ordinary cards. A wild-joker
// substitute is an ordinary card; only the Deck knows which rank+suit is wild
// for the hand, so wildness is never baked into the card itself.
type JokerKind int

const (
	NoJoker JokerKind = iota
	PrintedJoker
)

// Card represents a single playing card or printed joker. Cards are immutable
// once created; ID is a stable opaque identity unique within a deck lifetime
// (two physical copies of 5♥ carry distinct IDs).
type Card struct {
	ID    string
	Suit  Suit
	Rank  Rank
	Joker JokerKind
}

// NewCard creates a new ordinary card with a fresh identity.
func NewCard(suit Suit, rank Rank) Card {
	return Card{ID: uuid.NewString(), Suit: suit, Rank: rank, Joker: NoJoker}
}

// NewPrintedJoker creates a printed joker with a fresh identity.
func NewPrintedJoker() Card {
	return Card{ID: uuid.NewString(), Suit: JokerSuit, Rank: JokerRank, Joker: PrintedJoker}
}

// IsPrintedJoker returns true for the two printed jokers in the pool.
func (c Card) IsPrintedJoker() bool {
	return c.Joker == PrintedJoker
}

// String returns the display form of a card (e.g. "A♠", "10♥", "Joker")
func (c Card) String() string {
	if c.IsPrintedJoker() {
		return "Joker"
	}
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

// PointValue returns the penalty value of the card: jokers 0, Ace 1,
// face cards 10, numerals face value.
func (c Card) PointValue() int {
	if c.IsPrintedJoker() {
		return 0
	}
	if c.IsFaceCard() {
		return 10
	}
	return int(c.Rank)
}

// IsFaceCard returns true for J, Q and K.
func (c Card) IsFaceCard() bool {
	return c.Rank >= Jack && c.Rank <= King
}

// SameRank returns true if both cards are ordinary and share a rank.
func (c Card) SameRank(other Card) bool {
	if c.IsPrintedJoker() || other.IsPrintedJoker() {
		return false
	}
	return c.Rank == other.Rank
}

// SameSuit returns true if both cards are ordinary and share a suit.
func (c Card) SameSuit(other Card) bool {
	if c.IsPrintedJoker() || other.IsPrintedJoker() {
		return false
	}
	return c.Suit == other.Suit
}

// ConsecutiveTo returns true when the two cards are same-suited and one rank
// apart. King and Ace are adjacent in both directions so a King-high run can
// carry the Ace; this is an explicit adjacency rule, not a modulo wrap.
func (c Card) ConsecutiveTo(other Card) bool {
	if !c.SameSuit(other) {
		return false
	}
	a, b := c.Rank, other.Rank
	if a == King && b == Ace || a == Ace && b == King {
		return true
	}
	diff := int(a) - int(b)
	return diff == 1 || diff == -1
}

// Compare orders cards for display: jokers sort last, otherwise fixed suit
// priority (spades, hearts, diamonds, clubs) then ascending rank.
// Returns <0, 0, >0 in the usual way.
func (c Card) Compare(other Card) int {
	switch {
	case c.IsPrintedJoker() && other.IsPrintedJoker():
		return 0
	case c.IsPrintedJoker():
		return 1
	case other.IsPrintedJoker():
		return -1
	}
	if c.Suit != other.Suit {
		return int(c.Suit) - int(other.Suit)
	}
	return int(c.Rank) - int(other.Rank)
}
