// Package rules implements the Indian Rummy validation engine: classifying
// card groups as pure sequences, impure sequences or sets, judging full
// 13-card declarations and computing penalty points.
package rules

import (
	"sort"

	"github.com/cardroomlabs/rummyd/internal/deck"
)

// MaxHandPoints caps every penalty score (the "full count").
const MaxHandPoints = 80

// DeclarationSize is the number of cards a declared hand must cover.
const DeclarationSize = 13

// GroupKind classifies a proposed card group.
type GroupKind int

const (
	InvalidGroup GroupKind = iota
	PureSequence
	ImpureSequence
	Set
)

// String returns the string representation of a group kind
func (k GroupKind) String() string {
	switch k {
	case PureSequence:
		return "pure_sequence"
	case ImpureSequence:
		return "impure_sequence"
	case Set:
		return "set"
	default:
		return "invalid"
	}
}

// Valid reports whether the group counts toward a declaration.
func (k GroupKind) Valid() bool {
	return k != InvalidGroup
}

// GroupResult is the verdict for one proposed group.
type GroupResult struct {
	Kind   GroupKind   `json:"kind"`
	Cards  []deck.Card `json:"cards"`
	Points int         `json:"points"` // penalty carried by an invalid group
}

// DeclarationResult is the verdict for a full 13-card declaration.
type DeclarationResult struct {
	Valid           bool          `json:"isValid"`
	Groups          []GroupResult `json:"groups"`
	HasPureSequence bool          `json:"hasPureSequence"`
	TotalPoints     int           `json:"totalPoints"`
	Reason          string        `json:"reason,omitempty"`
}

// Validator judges groups and declarations against the hand's wild-joker
// determinant. It is stateless apart from that card and safe to share.
type Validator struct {
	wild    deck.Card
	hasWild bool
}

// NewValidator creates a validator for a hand whose wild joker is determined
// by the given card. A zero-value determinant (no wild joker cut, printed
// jokers only) is allowed.
func NewValidator(wild deck.Card) *Validator {
	return &Validator{wild: wild, hasWild: !wild.IsPrintedJoker() && wild.Rank != deck.JokerRank}
}

// IsWildcard reports whether a card plays as a joker for this hand.
func (v *Validator) IsWildcard(card deck.Card) bool {
	if card.IsPrintedJoker() {
		return true
	}
	return v.hasWild && card.Suit == v.wild.Suit && card.Rank == v.wild.Rank
}

// Classify judges a candidate group, trying pure sequence first, then impure
// sequence, then set; anything else is invalid.
func (v *Validator) Classify(cards []deck.Card) GroupKind {
	if v.isPureSequence(cards) {
		return PureSequence
	}
	if v.isImpureSequence(cards) {
		return ImpureSequence
	}
	if v.isSet(cards) {
		return Set
	}
	return InvalidGroup
}

// isPureSequence: 3+ same-suited cards, no wildcards, consecutive ranks.
// The Ace may sit below a Two or above a King, never both at once.
func (v *Validator) isPureSequence(cards []deck.Card) bool {
	if len(cards) < 3 {
		return false
	}
	suit := cards[0].Suit
	for _, c := range cards {
		if v.IsWildcard(c) || c.Suit != suit {
			return false
		}
	}
	return ranksConsecutive(rankList(cards))
}

// isImpureSequence: same-suited distinct-rank non-wildcards with every rank
// gap filled by a wildcard; wildcards beyond the gaps extend the run, so the
// whole group must still fit a contiguous rank window.
func (v *Validator) isImpureSequence(cards []deck.Card) bool {
	if len(cards) < 3 {
		return false
	}
	var plain []deck.Card
	wildcards := 0
	for _, c := range cards {
		if v.IsWildcard(c) {
			wildcards++
		} else {
			plain = append(plain, c)
		}
	}
	if len(plain) == 0 {
		return false
	}
	suit := plain[0].Suit
	for _, c := range plain {
		if c.Suit != suit {
			return false
		}
	}
	// Ace may count as 1 or 14; try both readings.
	ranks := rankList(plain)
	if sequenceFillable(ranks, wildcards, len(cards), 1, 13) {
		return true
	}
	if hasAce(ranks) {
		return sequenceFillable(aceHigh(ranks), wildcards, len(cards), 2, 14)
	}
	return false
}

// isSet: 3 or 4 cards of one rank across pairwise-distinct suits, wildcards
// standing in for suits not already present.
func (v *Validator) isSet(cards []deck.Card) bool {
	if len(cards) < 3 || len(cards) > 4 {
		return false
	}
	var plain []deck.Card
	wildcards := 0
	for _, c := range cards {
		if v.IsWildcard(c) {
			wildcards++
		} else {
			plain = append(plain, c)
		}
	}
	if len(plain) == 0 {
		return false
	}
	rank := plain[0].Rank
	suits := make(map[deck.Suit]bool, 4)
	for _, c := range plain {
		if c.Rank != rank || suits[c.Suit] {
			return false
		}
		suits[c.Suit] = true
	}
	return wildcards <= 4-len(suits)
}

// ValidateDeclaration judges a proposed grouping of a 13-card hand. Every
// hand card must appear in exactly one group, every group must classify as
// valid and at least one group must be a pure sequence. A failed declaration
// carries the summed points of its invalid groups, capped at MaxHandPoints.
func (v *Validator) ValidateDeclaration(hand []deck.Card, groups [][]deck.Card) DeclarationResult {
	if len(hand) != DeclarationSize {
		return DeclarationResult{Valid: false, TotalPoints: MaxHandPoints, Reason: "hand must contain exactly 13 cards"}
	}
	if len(groups) == 0 {
		return DeclarationResult{Valid: false, TotalPoints: MaxHandPoints, Reason: "no card groups provided"}
	}

	if !coversExactly(hand, groups) {
		return DeclarationResult{Valid: false, TotalPoints: MaxHandPoints, Reason: "groups must cover all 13 cards exactly once"}
	}

	result := DeclarationResult{Groups: make([]GroupResult, 0, len(groups))}
	invalidPoints := 0
	allValid := true
	for _, group := range groups {
		kind := v.Classify(group)
		gr := GroupResult{Kind: kind, Cards: group}
		if kind == PureSequence {
			result.HasPureSequence = true
		}
		if !kind.Valid() {
			allValid = false
			for _, c := range group {
				gr.Points += c.PointValue()
			}
			invalidPoints += gr.Points
		}
		result.Groups = append(result.Groups, gr)
	}

	if !result.HasPureSequence {
		result.Valid = false
		result.TotalPoints = MaxHandPoints
		result.Reason = "at least one pure sequence is required"
		return result
	}
	if !allValid {
		result.Valid = false
		result.TotalPoints = min(invalidPoints, MaxHandPoints)
		result.Reason = "some card groups are invalid"
		return result
	}
	result.Valid = true
	return result
}

// HandPoints computes the full-count penalty for an unfinished hand:
// wildcards contribute nothing, everything else its face point value,
// capped at MaxHandPoints.
func (v *Validator) HandPoints(hand []deck.Card) int {
	total := 0
	for _, c := range hand {
		if v.IsWildcard(c) {
			continue
		}
		total += c.PointValue()
	}
	return min(total, MaxHandPoints)
}

// coversExactly checks that the grouped cards are exactly the hand, by card
// identity, with no omissions and no duplicates.
func coversExactly(hand []deck.Card, groups [][]deck.Card) bool {
	want := make(map[string]bool, len(hand))
	for _, c := range hand {
		want[c.ID] = true
	}
	seen := 0
	for _, group := range groups {
		for _, c := range group {
			if !want[c.ID] {
				return false
			}
			want[c.ID] = false
			seen++
		}
	}
	return seen == len(hand)
}

func rankList(cards []deck.Card) []int {
	ranks := make([]int, len(cards))
	for i, c := range cards {
		ranks[i] = int(c.Rank)
	}
	sort.Ints(ranks)
	return ranks
}

func hasAce(sorted []int) bool {
	return len(sorted) > 0 && sorted[0] == int(deck.Ace)
}

// aceHigh re-reads aces as 14 and re-sorts.
func aceHigh(sorted []int) []int {
	out := make([]int, len(sorted))
	for i, r := range sorted {
		if r == int(deck.Ace) {
			out[i] = 14
		} else {
			out[i] = r
		}
	}
	sort.Ints(out)
	return out
}

// ranksConsecutive reports whether sorted ranks form a strict run. When the
// plain reading fails and an Ace is present, it is retried as ace-high
// (Q-K-A), which covers the King-high adjacency without a cyclic wrap.
func ranksConsecutive(sorted []int) bool {
	if strictRun(sorted) {
		return true
	}
	if hasAce(sorted) {
		return strictRun(aceHigh(sorted))
	}
	return false
}

func strictRun(sorted []int) bool {
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1]+1 {
			return false
		}
	}
	return len(sorted) > 0
}

// sequenceFillable reports whether distinct sorted ranks plus the given
// wildcards can fill a contiguous window of exactly groupSize ranks between
// lo and hi. Interior gaps consume wildcards first; leftovers extend the run
// at either end, which must stay inside the rank bounds.
func sequenceFillable(sorted []int, wildcards, groupSize, lo, hi int) bool {
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return false // duplicate rank can never sit in one run
		}
	}
	minRank, maxRank := sorted[0], sorted[len(sorted)-1]
	span := maxRank - minRank + 1
	gaps := span - len(sorted)
	if gaps > wildcards {
		return false
	}
	// Leftover wildcards stretch the window; it must still fit in [lo, hi].
	leftover := wildcards - gaps
	slack := (minRank - lo) + (hi - maxRank)
	if leftover > slack {
		return false
	}
	return groupSize == span+leftover
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
