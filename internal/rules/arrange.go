package rules

import (
	"sort"

	"github.com/cardroomlabs/rummyd/internal/deck"
)

// Arrange proposes a grouping for a 13-card hand: maximal same-suit runs
// first, then rank sets, then wildcards patching the shortest remainders.
// It is a greedy best effort for the bot declare heuristic, not a solver;
// callers judge the result with ValidateDeclaration.
func (v *Validator) Arrange(hand []deck.Card) [][]deck.Card {
	var wildcards, plain []deck.Card
	for _, c := range hand {
		if v.IsWildcard(c) {
			wildcards = append(wildcards, c)
		} else {
			plain = append(plain, c)
		}
	}

	groups, leftovers := v.suitRuns(plain)
	groups, leftovers = v.rankSets(groups, leftovers)

	// Spend wildcards turning pairs into 3-card groups: a suited near-run
	// becomes an impure sequence, a rank pair becomes a set.
	leftovers, wildcards, groups = v.patchPairs(leftovers, wildcards, groups)

	// Whatever remains travels as one final group so the declaration still
	// covers all 13 cards.
	rest := append(leftovers, wildcards...)
	if len(rest) > 0 {
		groups = append(groups, rest)
	}
	return groups
}

// suitRuns extracts maximal pure runs of length >= 3 per suit.
func (v *Validator) suitRuns(cards []deck.Card) (groups [][]deck.Card, leftovers []deck.Card) {
	bySuit := make(map[deck.Suit][]deck.Card)
	for _, c := range cards {
		bySuit[c.Suit] = append(bySuit[c.Suit], c)
	}
	for _, suited := range bySuit {
		sort.Slice(suited, func(i, j int) bool { return suited[i].Rank < suited[j].Rank })
		run := []deck.Card{suited[0]}
		flush := func() {
			if len(run) >= 3 {
				group := make([]deck.Card, len(run))
				copy(group, run)
				groups = append(groups, group)
			} else {
				leftovers = append(leftovers, run...)
			}
		}
		for _, c := range suited[1:] {
			last := run[len(run)-1]
			switch {
			case c.Rank == last.Rank:
				leftovers = append(leftovers, c) // duplicate copy, park it
			case int(c.Rank) == int(last.Rank)+1:
				run = append(run, c)
			default:
				flush()
				run = []deck.Card{c}
			}
		}
		flush()
	}
	return groups, leftovers
}

// rankSets pulls 3- and 4-card distinct-suit sets out of the leftovers.
func (v *Validator) rankSets(groups [][]deck.Card, cards []deck.Card) ([][]deck.Card, []deck.Card) {
	byRank := make(map[deck.Rank][]deck.Card)
	for _, c := range cards {
		byRank[c.Rank] = append(byRank[c.Rank], c)
	}
	var leftovers []deck.Card
	for _, same := range byRank {
		var set []deck.Card
		suits := make(map[deck.Suit]bool)
		for _, c := range same {
			if suits[c.Suit] || len(set) == 4 {
				leftovers = append(leftovers, c)
				continue
			}
			suits[c.Suit] = true
			set = append(set, c)
		}
		if len(set) >= 3 {
			groups = append(groups, set)
		} else {
			leftovers = append(leftovers, set...)
		}
	}
	return groups, leftovers
}

// patchPairs upgrades two-card remainders into valid 3-card groups while
// wildcards last.
func (v *Validator) patchPairs(cards, wildcards []deck.Card, groups [][]deck.Card) ([]deck.Card, []deck.Card, [][]deck.Card) {
	for i := 0; i < len(cards) && len(wildcards) > 0; i++ {
		for j := i + 1; j < len(cards); j++ {
			a, b := cards[i], cards[j]
			candidate := []deck.Card{a, b, wildcards[len(wildcards)-1]}
			if v.Classify(candidate).Valid() {
				wildcards = wildcards[:len(wildcards)-1]
				groups = append(groups, candidate)
				rest := make([]deck.Card, 0, len(cards)-2)
				for k, c := range cards {
					if k != i && k != j {
						rest = append(rest, c)
					}
				}
				cards = rest
				i = -1 // restart scan over the reduced remainder
				break
			}
		}
	}
	return cards, wildcards, groups
}
