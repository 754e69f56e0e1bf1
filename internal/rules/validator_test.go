package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardroomlabs/rummyd/internal/deck"
)

// testValidator uses 10♦ as the wild determinant so both copies of 10♦ play
// as jokers alongside the printed ones.
func testValidator() *Validator {
	return NewValidator(deck.NewCard(deck.Diamonds, deck.Ten))
}

func cards(specs ...[2]int) []deck.Card {
	out := make([]deck.Card, 0, len(specs))
	for _, s := range specs {
		out = append(out, deck.NewCard(deck.Suit(s[0]), deck.Rank(s[1])))
	}
	return out
}

func TestIsWildcard(t *testing.T) {
	v := testValidator()

	assert.True(t, v.IsWildcard(deck.NewPrintedJoker()))
	assert.True(t, v.IsWildcard(deck.NewCard(deck.Diamonds, deck.Ten)), "other copy of the determinant")
	assert.False(t, v.IsWildcard(deck.NewCard(deck.Hearts, deck.Ten)), "same rank, wrong suit")
	assert.False(t, v.IsWildcard(deck.NewCard(deck.Diamonds, deck.Nine)))
}

func TestClassifyPureSequence(t *testing.T) {
	v := testValidator()

	assert.Equal(t, PureSequence, v.Classify(cards(
		[2]int{int(deck.Hearts), int(deck.Three)},
		[2]int{int(deck.Hearts), int(deck.Four)},
		[2]int{int(deck.Hearts), int(deck.Five)},
	)))

	// Ace plays low below the Two.
	assert.Equal(t, PureSequence, v.Classify(cards(
		[2]int{int(deck.Spades), int(deck.Ace)},
		[2]int{int(deck.Spades), int(deck.Two)},
		[2]int{int(deck.Spades), int(deck.Three)},
	)))

	// Ace plays high above the King.
	assert.Equal(t, PureSequence, v.Classify(cards(
		[2]int{int(deck.Clubs), int(deck.Queen)},
		[2]int{int(deck.Clubs), int(deck.King)},
		[2]int{int(deck.Clubs), int(deck.Ace)},
	)))

	// No wrap-around: K-A-2 is never a run.
	assert.Equal(t, InvalidGroup, v.Classify(cards(
		[2]int{int(deck.Clubs), int(deck.King)},
		[2]int{int(deck.Clubs), int(deck.Ace)},
		[2]int{int(deck.Clubs), int(deck.Two)},
	)))

	// Mixed suits break the sequence.
	assert.Equal(t, InvalidGroup, v.Classify(cards(
		[2]int{int(deck.Hearts), int(deck.Three)},
		[2]int{int(deck.Spades), int(deck.Four)},
		[2]int{int(deck.Hearts), int(deck.Five)},
	)))

	// Too short.
	assert.Equal(t, InvalidGroup, v.Classify(cards(
		[2]int{int(deck.Hearts), int(deck.Three)},
		[2]int{int(deck.Hearts), int(deck.Four)},
	)))
}

func TestClassifyImpureSequence(t *testing.T) {
	v := testValidator()

	// 5♥ 6♥ Joker 8♥: the joker fills the 7.
	group := cards(
		[2]int{int(deck.Hearts), int(deck.Five)},
		[2]int{int(deck.Hearts), int(deck.Six)},
		[2]int{int(deck.Hearts), int(deck.Eight)},
	)
	group = append(group, deck.NewPrintedJoker())
	assert.Equal(t, ImpureSequence, v.Classify(group))

	// 5♥ 6♥ Joker Joker: no interior gap, the jokers extend the run.
	group = cards(
		[2]int{int(deck.Hearts), int(deck.Five)},
		[2]int{int(deck.Hearts), int(deck.Six)},
	)
	group = append(group, deck.NewPrintedJoker(), deck.NewPrintedJoker())
	assert.Equal(t, ImpureSequence, v.Classify(group))

	// A wild-joker copy used in its own suit run still makes it impure.
	group = cards(
		[2]int{int(deck.Diamonds), int(deck.Nine)},
		[2]int{int(deck.Diamonds), int(deck.Ten)},
		[2]int{int(deck.Diamonds), int(deck.Jack)},
	)
	assert.Equal(t, ImpureSequence, v.Classify(group))

	// Q-K + joker: the joker extends the run at either end.
	group = cards(
		[2]int{int(deck.Spades), int(deck.Queen)},
		[2]int{int(deck.Spades), int(deck.King)},
	)
	group = append(group, deck.NewPrintedJoker())
	assert.Equal(t, ImpureSequence, v.Classify(group))

	// Gap too wide for one joker.
	group = cards(
		[2]int{int(deck.Hearts), int(deck.Five)},
		[2]int{int(deck.Hearts), int(deck.Nine)},
	)
	group = append(group, deck.NewPrintedJoker())
	assert.Equal(t, InvalidGroup, v.Classify(group))

	// Duplicate ranks can never sit in one run.
	group = cards(
		[2]int{int(deck.Hearts), int(deck.Five)},
		[2]int{int(deck.Hearts), int(deck.Five)},
		[2]int{int(deck.Hearts), int(deck.Six)},
	)
	assert.Equal(t, InvalidGroup, v.Classify(group))

	// Jokers alone form nothing.
	assert.Equal(t, InvalidGroup, v.Classify([]deck.Card{
		deck.NewPrintedJoker(), deck.NewPrintedJoker(), deck.NewPrintedJoker(),
	}))
}

func TestClassifySet(t *testing.T) {
	v := testValidator()

	assert.Equal(t, Set, v.Classify(cards(
		[2]int{int(deck.Spades), int(deck.Seven)},
		[2]int{int(deck.Diamonds), int(deck.Seven)},
		[2]int{int(deck.Clubs), int(deck.Seven)},
	)))

	// Joker substitutes for the missing suit.
	group := cards(
		[2]int{int(deck.Clubs), int(deck.Nine)},
		[2]int{int(deck.Diamonds), int(deck.Nine)},
		[2]int{int(deck.Hearts), int(deck.Nine)},
	)
	group = append(group, deck.NewPrintedJoker())
	assert.Equal(t, Set, v.Classify(group))

	// Repeated suit invalidates a set.
	assert.Equal(t, InvalidGroup, v.Classify(cards(
		[2]int{int(deck.Spades), int(deck.Seven)},
		[2]int{int(deck.Spades), int(deck.Seven)},
		[2]int{int(deck.Diamonds), int(deck.Seven)},
	)))

	// Five cards can never be a set.
	assert.Equal(t, InvalidGroup, v.Classify(cards(
		[2]int{int(deck.Spades), int(deck.Seven)},
		[2]int{int(deck.Hearts), int(deck.Seven)},
		[2]int{int(deck.Diamonds), int(deck.Seven)},
		[2]int{int(deck.Clubs), int(deck.Seven)},
		[2]int{int(deck.Spades), int(deck.Seven)},
	)))
}

func TestValidateDeclarationMixedGroups(t *testing.T) {
	v := testValidator()

	pure := cards(
		[2]int{int(deck.Hearts), int(deck.Three)},
		[2]int{int(deck.Hearts), int(deck.Four)},
		[2]int{int(deck.Hearts), int(deck.Five)},
	)
	set := cards(
		[2]int{int(deck.Spades), int(deck.Seven)},
		[2]int{int(deck.Diamonds), int(deck.Seven)},
		[2]int{int(deck.Clubs), int(deck.Seven)},
	)
	setWithJoker := cards(
		[2]int{int(deck.Clubs), int(deck.Nine)},
		[2]int{int(deck.Diamonds), int(deck.Nine)},
		[2]int{int(deck.Hearts), int(deck.Nine)},
	)
	setWithJoker = append(setWithJoker, deck.NewPrintedJoker())
	junk := cards(
		[2]int{int(deck.Spades), int(deck.King)},
		[2]int{int(deck.Hearts), int(deck.King)},
		[2]int{int(deck.Clubs), int(deck.Two)},
	)

	var hand []deck.Card
	for _, g := range [][]deck.Card{pure, set, setWithJoker, junk} {
		hand = append(hand, g...)
	}
	require.Len(t, hand, DeclarationSize)

	result := v.ValidateDeclaration(hand, [][]deck.Card{pure, set, setWithJoker, junk})
	assert.False(t, result.Valid)
	assert.True(t, result.HasPureSequence)
	// Only the junk group counts: K + K + 2 = 22 points.
	assert.Equal(t, 22, result.TotalPoints)

	kinds := make([]GroupKind, 0, 4)
	for _, g := range result.Groups {
		kinds = append(kinds, g.Kind)
	}
	assert.Equal(t, []GroupKind{PureSequence, Set, Set, InvalidGroup}, kinds)
}

func TestValidateDeclarationValid(t *testing.T) {
	v := testValidator()

	groups := [][]deck.Card{
		cards(
			[2]int{int(deck.Spades), int(deck.Two)},
			[2]int{int(deck.Spades), int(deck.Three)},
			[2]int{int(deck.Spades), int(deck.Four)},
			[2]int{int(deck.Spades), int(deck.Five)},
		),
		cards(
			[2]int{int(deck.Hearts), int(deck.Seven)},
			[2]int{int(deck.Hearts), int(deck.Eight)},
			[2]int{int(deck.Hearts), int(deck.Nine)},
		),
		cards(
			[2]int{int(deck.Spades), int(deck.King)},
			[2]int{int(deck.Hearts), int(deck.King)},
			[2]int{int(deck.Diamonds), int(deck.King)},
		),
		append(cards(
			[2]int{int(deck.Clubs), int(deck.Five)},
			[2]int{int(deck.Diamonds), int(deck.Five)},
		), deck.NewPrintedJoker()),
	}

	var hand []deck.Card
	for _, g := range groups {
		hand = append(hand, g...)
	}
	require.Len(t, hand, DeclarationSize)

	result := v.ValidateDeclaration(hand, groups)
	assert.True(t, result.Valid)
	assert.True(t, result.HasPureSequence)
	assert.Zero(t, result.TotalPoints)
	assert.Empty(t, result.Reason)
}

func TestValidateDeclarationRequiresPureSequence(t *testing.T) {
	v := testValidator()

	// Four clean sets, no sequence anywhere: full count.
	var groups [][]deck.Card
	for _, rank := range []deck.Rank{deck.Two, deck.Seven, deck.Nine, deck.King} {
		groups = append(groups, cards(
			[2]int{int(deck.Spades), int(rank)},
			[2]int{int(deck.Hearts), int(rank)},
			[2]int{int(deck.Clubs), int(rank)},
		))
	}
	groups[3] = append(groups[3], deck.NewCard(deck.Diamonds, deck.King))

	var hand []deck.Card
	for _, g := range groups {
		hand = append(hand, g...)
	}
	require.Len(t, hand, DeclarationSize)

	result := v.ValidateDeclaration(hand, groups)
	assert.False(t, result.Valid)
	assert.False(t, result.HasPureSequence)
	assert.Equal(t, MaxHandPoints, result.TotalPoints)
}

func TestValidateDeclarationCoverage(t *testing.T) {
	v := testValidator()

	hand := make([]deck.Card, 0, DeclarationSize)
	for suit := deck.Spades; suit <= deck.Clubs; suit++ {
		for rank := deck.Two; rank <= deck.Four; rank++ {
			hand = append(hand, deck.NewCard(suit, rank))
		}
	}
	hand = append(hand, deck.NewCard(deck.Spades, deck.Nine))
	require.Len(t, hand, DeclarationSize)

	// Omitting a card fails coverage.
	result := v.ValidateDeclaration(hand, [][]deck.Card{hand[:6], hand[6:12]})
	assert.False(t, result.Valid)
	assert.Equal(t, MaxHandPoints, result.TotalPoints)

	// Using a card twice fails coverage.
	result = v.ValidateDeclaration(hand, [][]deck.Card{hand[:7], hand[6:]})
	assert.False(t, result.Valid)

	// A card from outside the hand fails coverage.
	foreign := append([]deck.Card{deck.NewCard(deck.Hearts, deck.Queen)}, hand[1:]...)
	result = v.ValidateDeclaration(hand, [][]deck.Card{foreign[:6], foreign[6:]})
	assert.False(t, result.Valid)

	// Wrong hand size is rejected outright.
	result = v.ValidateDeclaration(hand[:12], [][]deck.Card{hand[:12]})
	assert.False(t, result.Valid)
	assert.Equal(t, MaxHandPoints, result.TotalPoints)
}

func TestHandPoints(t *testing.T) {
	v := testValidator()

	hand := cards(
		[2]int{int(deck.Spades), int(deck.Ace)},
		[2]int{int(deck.Hearts), int(deck.Five)},
		[2]int{int(deck.Clubs), int(deck.King)},
	)
	assert.Equal(t, 16, v.HandPoints(hand))

	// Wildcards carry nothing.
	hand = append(hand, deck.NewPrintedJoker(), deck.NewCard(deck.Diamonds, deck.Ten))
	assert.Equal(t, 16, v.HandPoints(hand))

	// Thirteen face cards would be 130; the cap holds it at 80.
	var faces []deck.Card
	for i := 0; i < 13; i++ {
		faces = append(faces, deck.NewCard(deck.Suit(i%4), deck.King))
	}
	assert.Equal(t, MaxHandPoints, v.HandPoints(faces))
}

func TestArrangeSolvableHand(t *testing.T) {
	v := testValidator()

	hand := cards(
		[2]int{int(deck.Spades), int(deck.Two)},
		[2]int{int(deck.Spades), int(deck.Three)},
		[2]int{int(deck.Spades), int(deck.Four)},
		[2]int{int(deck.Hearts), int(deck.Five)},
		[2]int{int(deck.Hearts), int(deck.Six)},
		[2]int{int(deck.Hearts), int(deck.Seven)},
		[2]int{int(deck.Hearts), int(deck.Eight)},
		[2]int{int(deck.Clubs), int(deck.Nine)},
		[2]int{int(deck.Diamonds), int(deck.Nine)},
		[2]int{int(deck.Spades), int(deck.Nine)},
		[2]int{int(deck.Spades), int(deck.King)},
		[2]int{int(deck.Hearts), int(deck.King)},
	)
	hand = append(hand, deck.NewPrintedJoker())
	require.Len(t, hand, DeclarationSize)

	groups := v.Arrange(hand)
	result := v.ValidateDeclaration(hand, groups)
	assert.True(t, result.Valid, "reason: %s", result.Reason)
}

func TestArrangeCoversEverything(t *testing.T) {
	v := testValidator()

	// A hopeless hand still arranges into full coverage; the leftovers ride
	// in a final invalid group.
	hand := cards(
		[2]int{int(deck.Spades), int(deck.Two)},
		[2]int{int(deck.Hearts), int(deck.Four)},
		[2]int{int(deck.Clubs), int(deck.Six)},
		[2]int{int(deck.Diamonds), int(deck.Eight)},
		[2]int{int(deck.Spades), int(deck.Jack)},
		[2]int{int(deck.Hearts), int(deck.Ace)},
		[2]int{int(deck.Clubs), int(deck.Three)},
		[2]int{int(deck.Diamonds), int(deck.Queen)},
		[2]int{int(deck.Spades), int(deck.Seven)},
		[2]int{int(deck.Hearts), int(deck.Ten)},
		[2]int{int(deck.Clubs), int(deck.King)},
		[2]int{int(deck.Diamonds), int(deck.Two)},
		[2]int{int(deck.Spades), int(deck.Five)},
	)

	groups := v.Arrange(hand)
	covered := 0
	for _, g := range groups {
		covered += len(g)
	}
	assert.Equal(t, DeclarationSize, covered)

	result := v.ValidateDeclaration(hand, groups)
	assert.False(t, result.Valid)
}
