// Package game implements the server-authoritative turn state machine for
// 13-card Indian Rummy: lifecycle, dealing, draw/discard/declare/drop
// actions, the turn timer with its 3-strikes timeout policy, and
// computer-controlled turns with a deterministic fallback.
package game

import (
	"context"
	rand "math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/cardroomlabs/rummyd/internal/bot"
	"github.com/cardroomlabs/rummyd/internal/deck"
	"github.com/cardroomlabs/rummyd/internal/rules"
)

// Phase is the engine lifecycle state. Transitions are strictly forward.
type Phase int

const (
	Waiting Phase = iota
	Dealing
	Playing
	Finished
)

// String returns the string representation of a phase
func (p Phase) String() string {
	switch p {
	case Waiting:
		return "waiting"
	case Dealing:
		return "dealing"
	case Playing:
		return "playing"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// DrawSource names where a draw takes its card from.
type DrawSource string

const (
	DrawFromDeck    DrawSource = "deck"
	DrawFromDiscard DrawSource = "discard"
)

// Options carries the tunable rule constants for one game.
type Options struct {
	MaxPlayers                int
	TurnLimit                 time.Duration
	MaxTimeouts               int
	FirstDropPenalty          int
	MiddleDropPenalty         int
	InvalidDeclarationPenalty int
	ReshuffleThreshold        int
	MaxTurns                  int // 0 = unlimited; else the game ends by lowest count
	PrintedJokers             bool
	ThinkDelayMin             time.Duration
	ThinkDelayMax             time.Duration
	ProviderTimeout           time.Duration
}

// DefaultOptions mirrors the table rules the engine was built for: 10 second
// turns, three timeout chances, 20/40 drop penalties and an 80 point cap.
func DefaultOptions() Options {
	return Options{
		MaxPlayers:                4,
		TurnLimit:                 10 * time.Second,
		MaxTimeouts:               3,
		FirstDropPenalty:          20,
		MiddleDropPenalty:         40,
		InvalidDeclarationPenalty: rules.MaxHandPoints,
		ReshuffleThreshold:        10,
		PrintedJokers:             true,
		ThinkDelayMin:             2 * time.Second,
		ThinkDelayMax:             6 * time.Second,
		ProviderTimeout:           8 * time.Second,
	}
}

// Engine owns the complete state of one game. All mutations are serialised
// behind a single mutex; timers and bot turns are the only asynchronous
// entry points and both re-validate the turn sequence number before acting,
// so a stale callback against an advanced or finished game is a no-op.
type Engine struct {
	mu sync.Mutex

	id     string
	opts   Options
	logger *log.Logger
	clock  quartz.Clock
	rng    *rand.Rand
	bus    EventBus

	phase        Phase
	players      []*Player
	connected    map[string]bool
	deck         *deck.Deck
	validator    *rules.Validator
	currentTurn  int
	turnSeq      uint64
	turnDeadline time.Time
	turnTimer    *quartz.Timer
	winnerID     string
	endReason    string
	startedAt    time.Time
	endedAt      time.Time
}

// NewEngine creates a game in the Waiting phase.
func NewEngine(id string, opts Options, logger *log.Logger, clock quartz.Clock, rng *rand.Rand) *Engine {
	if opts.MaxPlayers < 2 {
		opts.MaxPlayers = 2
	}
	if opts.MaxPlayers > 4 {
		opts.MaxPlayers = 4
	}
	return &Engine{
		id:        id,
		opts:      opts,
		logger:    logger.WithPrefix("engine").With("game", id),
		clock:     clock,
		rng:       rng,
		bus:       NewEventBus(),
		phase:     Waiting,
		connected: make(map[string]bool),
	}
}

// ID returns the game identifier.
func (e *Engine) ID() string { return e.id }

// Events returns the bus the engine publishes on. Subscribers must not call
// back into the engine from OnEvent; events already carry the public view.
func (e *Engine) Events() EventBus { return e.bus }

// Phase returns the current lifecycle phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// AddPlayer seats a player. Only possible while Waiting.
func (e *Engine) AddPlayer(id, name string, controller Controller) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != Waiting {
		return ErrGameStarted
	}
	if len(e.players) >= e.opts.MaxPlayers {
		return ErrGameFull
	}
	for _, p := range e.players {
		if p.ID == id {
			return ErrDuplicatePlayer
		}
	}

	player := &Player{ID: id, Name: name, Seat: len(e.players), Controller: controller}
	e.players = append(e.players, player)
	e.connected[id] = true
	e.logger.Info("player joined", "player", id, "name", name, "seat", player.Seat, "bot", controller.IsBot())
	return nil
}

// RemovePlayer removes a seat before the game starts; during Playing it is
// treated as a middle drop (the leaver pays the penalty).
func (e *Engine) RemovePlayer(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := -1
	for i, p := range e.players {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrPlayerNotFound
	}

	switch e.phase {
	case Waiting:
		e.players = append(e.players[:idx], e.players[idx+1:]...)
		for i, p := range e.players {
			p.Seat = i
		}
		delete(e.connected, id)
		e.logger.Info("player left before start", "player", id)
		return nil
	case Playing:
		return e.dropLocked(e.players[idx], DropMiddle, false)
	default:
		return ErrGameNotPlaying
	}
}

// SetConnected records transport-level connectivity for the public view.
func (e *Engine) SetConnected(id string, connected bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.connected[id]; ok {
		e.connected[id] = connected
	}
}

// Start deals the game: shuffle, cut the wild joker, 13 sorted cards per
// seat, one seed discard, then the first turn begins.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != Waiting {
		return ErrGameStarted
	}
	if len(e.players) < 2 {
		return ErrNotEnoughPlayers
	}

	e.phase = Dealing
	e.startedAt = e.clock.Now()

	e.deck = deck.New(e.rng, e.opts.PrintedJokers)
	e.deck.Shuffle()
	wild, err := e.deck.SetupWildJoker()
	if err != nil {
		return err
	}
	e.validator = rules.NewValidator(wild)

	for _, p := range e.players {
		hand, err := e.deck.Deal(rules.DeclarationSize)
		if err != nil {
			return err
		}
		sort.Slice(hand, func(i, j int) bool { return hand[i].Compare(hand[j]) < 0 })
		p.Hand = hand
	}

	seed, err := e.deck.DealOne()
	if err != nil {
		return err
	}
	e.deck.Discard(seed)

	e.currentTurn = 0
	e.phase = Playing
	e.logger.Info("game started", "players", len(e.players), "wildJoker", wild.String())

	e.startTurnLocked()
	e.publishStateLocked()
	return nil
}

// Draw gives the turn-holder a card from the chosen source. The hand grows
// to 14; the turn does not advance.
func (e *Engine) Draw(playerID string, source DrawSource) (deck.Card, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	player, err := e.turnHolderLocked(playerID)
	if err != nil {
		return deck.Card{}, err
	}
	if len(player.Hand) != rules.DeclarationSize {
		return deck.Card{}, ErrWrongHandSize
	}

	card, err := e.drawLocked(player, source)
	if err != nil {
		return deck.Card{}, err
	}
	player.TimeoutCount = 0
	e.logger.Debug("player drew", "player", playerID, "source", source, "card", card.String())
	e.publishStateLocked()
	return card, nil
}

// DiscardCard removes the named card from the turn-holder's 14-card hand,
// pushes it onto the discard pile and advances the turn.
func (e *Engine) DiscardCard(playerID, cardID string) (deck.Card, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	player, err := e.turnHolderLocked(playerID)
	if err != nil {
		return deck.Card{}, err
	}
	if len(player.Hand) != rules.DeclarationSize+1 {
		return deck.Card{}, ErrWrongHandSize
	}
	idx, ok := player.holds(cardID)
	if !ok {
		return deck.Card{}, ErrCardNotInHand
	}

	card := e.discardLocked(player, idx)
	e.logger.Debug("player discarded", "player", playerID, "card", card.String())
	return card, nil
}

// Declare validates the turn-holder's proposed grouping of their 13 cards.
// A valid declaration ends the game with the declarer as winner. An invalid
// declaration is not an error: the declarer is scored the fixed penalty and
// forfeits the rest of the turn, which advances exactly as after a discard.
func (e *Engine) Declare(playerID string, groups [][]string) (rules.DeclarationResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	player, err := e.turnHolderLocked(playerID)
	if err != nil {
		return rules.DeclarationResult{}, err
	}
	if len(player.Hand) != rules.DeclarationSize {
		return rules.DeclarationResult{}, ErrWrongHandSize
	}

	cardGroups := make([][]deck.Card, 0, len(groups))
	for _, ids := range groups {
		group := make([]deck.Card, 0, len(ids))
		for _, id := range ids {
			idx, ok := player.holds(id)
			if !ok {
				return rules.DeclarationResult{}, ErrCardNotInHand
			}
			group = append(group, player.Hand[idx])
		}
		cardGroups = append(cardGroups, group)
	}

	result := e.validator.ValidateDeclaration(player.Hand, cardGroups)
	if result.Valid {
		e.logger.Info("valid declaration", "player", playerID)
		e.endGameLocked(player.ID, EndByDeclaration)
		return result, nil
	}

	player.Score = e.opts.InvalidDeclarationPenalty
	player.InvalidDeclare = true
	e.logger.Info("invalid declaration", "player", playerID, "reason", result.Reason)
	e.advanceTurnLocked()
	e.publishStateLocked()
	return result, nil
}

// Drop lets any active player leave the hand for a fixed penalty, at any
// point during Playing, regardless of turn.
func (e *Engine) Drop(playerID string, kind DropKind) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != Playing {
		return ErrGameNotPlaying
	}
	player := e.findLocked(playerID)
	if player == nil {
		return ErrPlayerNotFound
	}
	if kind != DropFirst && kind != DropMiddle {
		kind = DropMiddle
	}
	return e.dropLocked(player, kind, false)
}

// Hand returns a copy of one player's private hand.
func (e *Engine) Hand(playerID string) ([]deck.Card, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	player := e.findLocked(playerID)
	if player == nil {
		return nil, ErrPlayerNotFound
	}
	return player.handCopy(), nil
}

// CardsInPlay returns the total cards across the deck piles and all hands.
// Constant for the whole hand once the wild joker has been cut.
func (e *Engine) CardsInPlay() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deck == nil {
		return 0
	}
	total := e.deck.InPlayCount()
	for _, p := range e.players {
		total += len(p.Hand)
	}
	return total
}

// turnHolderLocked validates the common preconditions shared by draw,
// discard and declare: Playing phase, known player, not dropped, their turn.
func (e *Engine) turnHolderLocked(playerID string) (*Player, error) {
	if e.phase != Playing {
		return nil, ErrGameNotPlaying
	}
	player := e.findLocked(playerID)
	if player == nil {
		return nil, ErrPlayerNotFound
	}
	if player.HasDropped {
		return nil, ErrAlreadyDropped
	}
	if e.players[e.currentTurn].ID != playerID {
		return nil, ErrNotYourTurn
	}
	return player, nil
}

func (e *Engine) findLocked(playerID string) *Player {
	for _, p := range e.players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// drawLocked takes a card from the requested source into the player's hand,
// reshuffling the discard pile first when the draw pile has run dry.
func (e *Engine) drawLocked(player *Player, source DrawSource) (deck.Card, error) {
	var card deck.Card
	switch source {
	case DrawFromDiscard:
		var ok bool
		card, ok = e.deck.DrawFromDiscard()
		if !ok {
			return deck.Card{}, ErrNoCardsAvailable
		}
	default:
		if e.deck.NeedsReshuffle(e.opts.ReshuffleThreshold) {
			e.deck.ReshuffleFromDiscard()
		}
		var err error
		card, err = e.deck.DealOne()
		if err != nil {
			return deck.Card{}, ErrNoCardsAvailable
		}
	}
	player.Hand = append(player.Hand, card)
	return card, nil
}

// discardLocked pushes the card at idx to the discard pile, resets the
// player's timeout count and advances the turn.
func (e *Engine) discardLocked(player *Player, idx int) deck.Card {
	card := player.removeCard(idx)
	e.deck.Discard(card)
	player.TimeoutCount = 0
	e.advanceTurnLocked()
	e.publishStateLocked()
	return card
}

// dropLocked marks the player dropped, applies the penalty and either ends
// the game or hands the turn on if the dropper held it.
func (e *Engine) dropLocked(player *Player, kind DropKind, auto bool) error {
	if player.HasDropped {
		return ErrAlreadyDropped
	}

	player.HasDropped = true
	player.DropKind = kind
	player.AutoDropped = auto
	if kind == DropFirst {
		player.Score = e.opts.FirstDropPenalty
	} else {
		player.Score = e.opts.MiddleDropPenalty
	}
	e.logger.Info("player dropped", "player", player.ID, "kind", kind, "auto", auto, "penalty", player.Score)

	e.bus.Publish(PlayerDroppedEvent{
		GameID:    e.id,
		PlayerID:  player.ID,
		Kind:      kind,
		Auto:      auto,
		timestamp: e.clock.Now(),
	})

	active := e.activePlayersLocked()
	switch len(active) {
	case 1:
		e.endGameLocked(active[0].ID, EndByDrops)
	case 0:
		e.endGameLocked("", EndByDrops)
	default:
		if e.players[e.currentTurn] == player {
			e.advanceTurnLocked()
		}
		e.publishStateLocked()
	}
	return nil
}

// lowestCountLocked picks the active player holding the fewest points,
// earliest seat winning ties.
func (e *Engine) lowestCountLocked() *Player {
	var best *Player
	bestPoints := 0
	for _, p := range e.activePlayersLocked() {
		points := e.validator.HandPoints(p.Hand)
		if best == nil || points < bestPoints {
			best = p
			bestPoints = points
		}
	}
	return best
}

func (e *Engine) activePlayersLocked() []*Player {
	var active []*Player
	for _, p := range e.players {
		if !p.HasDropped {
			active = append(active, p)
		}
	}
	return active
}

// advanceTurnLocked cancels the current turn's timer and moves the turn
// pointer to the next undropped seat, wrapping. With one active seat left
// the game ends with that player as winner instead.
func (e *Engine) advanceTurnLocked() {
	e.stopTurnTimerLocked(true)

	active := e.activePlayersLocked()
	if len(active) <= 1 {
		winner := ""
		if len(active) == 1 {
			winner = active[0].ID
		}
		e.endGameLocked(winner, EndByDrops)
		return
	}

	if e.opts.MaxTurns > 0 && e.turnSeq >= uint64(e.opts.MaxTurns) {
		e.logger.Info("turn limit reached, ending by lowest count", "turns", e.turnSeq)
		e.endGameLocked(e.lowestCountLocked().ID, EndByTurnLimit)
		return
	}

	e.currentTurn = (e.currentTurn + 1) % len(e.players)
	for e.players[e.currentTurn].HasDropped {
		e.currentTurn = (e.currentTurn + 1) % len(e.players)
	}
	e.startTurnLocked()
}

// startTurnLocked arms the new turn: bumps the sequence number, publishes
// the deadline, and either arms the human timeout timer or kicks off the
// asynchronous bot task. At most one timer is ever live.
func (e *Engine) startTurnLocked() {
	e.turnSeq++
	seq := e.turnSeq
	player := e.players[e.currentTurn]
	e.turnDeadline = e.clock.Now().Add(e.opts.TurnLimit)

	e.bus.Publish(TurnStartedEvent{
		GameID:    e.id,
		PlayerID:  player.ID,
		Deadline:  e.turnDeadline,
		Limit:     e.opts.TurnLimit,
		timestamp: e.clock.Now(),
	})

	if player.Controller.IsBot() {
		think := e.opts.ThinkDelayMin
		if spread := e.opts.ThinkDelayMax - e.opts.ThinkDelayMin; spread > 0 {
			think += time.Duration(e.rng.Int64N(int64(spread)))
		}
		go e.runBotTurn(seq, player.ID, think)
		return
	}

	e.turnTimer = e.clock.AfterFunc(e.opts.TurnLimit, func() {
		e.handleTimeout(seq)
	})
}

// stopTurnTimerLocked cancels any live timer; stale fires are additionally
// guarded by the sequence number.
func (e *Engine) stopTurnTimerLocked(publish bool) {
	if e.turnTimer != nil {
		e.turnTimer.Stop()
		e.turnTimer = nil
	}
	if publish && e.phase == Playing {
		e.bus.Publish(TurnTimerStoppedEvent{
			GameID:    e.id,
			PlayerID:  e.players[e.currentTurn].ID,
			timestamp: e.clock.Now(),
		})
	}
}

// handleTimeout applies the 3-strikes policy when a human turn-holder lets
// the clock expire: skip the turn while chances remain, auto-drop with the
// middle penalty on the last strike.
func (e *Engine) handleTimeout(seq uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != Playing || e.turnSeq != seq {
		return // stale timer
	}
	player := e.players[e.currentTurn]
	if player.HasDropped || player.Controller.IsBot() {
		return
	}

	player.TimeoutCount++
	e.logger.Info("turn timed out", "player", player.ID, "count", player.TimeoutCount, "max", e.opts.MaxTimeouts)

	if player.TimeoutCount >= e.opts.MaxTimeouts {
		_ = e.dropLocked(player, DropMiddle, true)
		return
	}

	e.bus.Publish(PlayerTimedOutEvent{
		GameID:           e.id,
		PlayerID:         player.ID,
		TimeoutCount:     player.TimeoutCount,
		RemainingChances: e.opts.MaxTimeouts - player.TimeoutCount,
		timestamp:        e.clock.Now(),
	})
	e.advanceTurnLocked()
	e.publishStateLocked()
}

// How a game can finish.
const (
	EndByDeclaration = "declaration"
	EndByDrops       = "drops"
	EndByTurnLimit   = "turn_limit"
)

// endGameLocked finishes the game: the winner scores zero, still-playing
// seats pay their full count, dropped seats keep their penalties.
func (e *Engine) endGameLocked(winnerID, reason string) {
	e.stopTurnTimerLocked(false)
	e.phase = Finished
	e.endedAt = e.clock.Now()
	e.winnerID = winnerID
	e.endReason = reason

	for _, p := range e.players {
		switch {
		case p.ID == winnerID:
			p.Score = 0
		case !p.HasDropped && !p.InvalidDeclare:
			// Invalid declarers keep their fixed penalty.
			p.Score = e.validator.HandPoints(p.Hand)
		}
	}

	e.logger.Info("game ended", "winner", winnerID, "duration", e.endedAt.Sub(e.startedAt))
	e.bus.Publish(GameEndedEvent{GameID: e.id, Summary: e.summaryLocked(), timestamp: e.clock.Now()})
	e.publishStateLocked()
}

func (e *Engine) publishStateLocked() {
	e.bus.Publish(StateChangedEvent{GameID: e.id, State: e.publicStateLocked(), timestamp: e.clock.Now()})
}

// runBotTurn plays one computer-controlled turn end to end: thinking delay,
// declare heuristic, provider decision, draw, discard, with a uniform random
// fallback at every failure point. It re-validates the turn sequence after
// every suspension so a human drop or game end racing ahead of a slow
// provider makes this a no-op. A bot turn always ends in a discard or a
// declaration; the game never stalls on it.
func (e *Engine) runBotTurn(seq uint64, playerID string, think time.Duration) {
	fired := make(chan struct{})
	timer := e.clock.AfterFunc(think, func() { close(fired) })
	defer timer.Stop()
	<-fired

	view, provider, ok := e.botView(seq, playerID)
	if !ok {
		return
	}

	// Declare before drawing when the hand already arranges validly.
	if e.tryBotDeclare(seq, playerID) {
		return
	}

	ctx := context.Background()
	if e.opts.ProviderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.ProviderTimeout)
		defer cancel()
	}
	decision, err := provider.Decide(ctx, view)
	if err != nil {
		e.logger.Warn("decision provider failed, falling back to random", "player", playerID, "error", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != Playing || e.turnSeq != seq {
		return // the table moved on while the provider was thinking
	}
	player := e.findLocked(playerID)
	if player == nil || player.HasDropped {
		return
	}

	fromDiscard := err == nil && decision.DrawFromDiscard
	if err != nil {
		_, top := e.deck.PeekDiscard()
		fromDiscard = top && e.rng.Float64() < 0.3
	}

	source := DrawFromDeck
	if fromDiscard {
		source = DrawFromDiscard
	}
	card, drawErr := e.drawLocked(player, source)
	if drawErr != nil && source == DrawFromDiscard {
		card, drawErr = e.drawLocked(player, DrawFromDeck)
	}
	if drawErr != nil {
		// Nothing to draw anywhere: pathological all-cards-in-hands state.
		// Skip the turn so the table keeps moving.
		e.logger.Warn("bot could not draw", "player", playerID, "error", drawErr)
		e.advanceTurnLocked()
		e.publishStateLocked()
		return
	}
	player.TimeoutCount = 0
	e.logger.Debug("bot drew", "player", playerID, "source", source, "card", card.String())

	idx := -1
	if err == nil {
		idx, _ = player.holds(decision.CardToDiscard)
	}
	if idx < 0 {
		idx = e.rng.IntN(len(player.Hand))
	}
	discarded := e.discardLocked(player, idx)
	e.logger.Debug("bot discarded", "player", playerID, "card", discarded.String())
}

// botView snapshots the sanitized single-seat view under the lock.
func (e *Engine) botView(seq uint64, playerID string) (bot.View, bot.Provider, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != Playing || e.turnSeq != seq {
		return bot.View{}, nil, false
	}
	player := e.findLocked(playerID)
	if player == nil || player.HasDropped || !player.Controller.IsBot() {
		return bot.View{}, nil, false
	}

	view := bot.View{
		GameID:        e.id,
		PlayerID:      playerID,
		Hand:          player.handCopy(),
		DrawPileCount: e.deck.DrawCount(),
	}
	if top, ok := e.deck.PeekDiscard(); ok {
		view.DiscardTop = &top
	}
	if wild, ok := e.deck.WildJoker(); ok {
		view.WildJoker = &wild
	}
	for _, p := range e.players {
		if p.ID != playerID && !p.HasDropped {
			view.OpponentCardCounts = append(view.OpponentCardCounts, len(p.Hand))
		}
	}
	return view, player.Controller.Provider, true
}

// tryBotDeclare declares when the greedy arrangement of the current 13-card
// hand validates. Bots never risk an invalid declaration.
func (e *Engine) tryBotDeclare(seq uint64, playerID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != Playing || e.turnSeq != seq {
		return true // turn gone; treat as handled
	}
	player := e.findLocked(playerID)
	if player == nil || player.HasDropped || len(player.Hand) != rules.DeclarationSize {
		return false
	}

	groups := e.validator.Arrange(player.Hand)
	result := e.validator.ValidateDeclaration(player.Hand, groups)
	if !result.Valid {
		return false
	}
	e.logger.Info("bot declares", "player", playerID)
	e.endGameLocked(player.ID, EndByDeclaration)
	return true
}
