package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/cardroomlabs/rummyd/internal/bot"
	"github.com/cardroomlabs/rummyd/internal/deck"
	"github.com/cardroomlabs/rummyd/internal/game"
	"github.com/cardroomlabs/rummyd/internal/gameid"
	"github.com/cardroomlabs/rummyd/internal/randutil"
	"github.com/cardroomlabs/rummyd/internal/rules"
)

// Broadcaster delivers messages to connected clients. Implemented by Server;
// tests substitute their own.
type Broadcaster interface {
	BroadcastToGame(gameID string, msg *Message)
	SendToPlayer(playerID string, msg *Message) error
}

// GameService mediates between the transport layer and the game engines: it
// owns the registry of running games, applies client actions and relays
// engine events back out as messages.
type GameService struct {
	mu          sync.RWMutex
	games       map[string]*game.Engine
	config      *ServerConfig
	logger      *log.Logger
	clock       quartz.Clock
	broadcaster Broadcaster
	botSeq      int
}

// NewGameService creates a game service
func NewGameService(config *ServerConfig, logger *log.Logger, clock quartz.Clock, broadcaster Broadcaster) *GameService {
	return &GameService{
		games:       make(map[string]*game.Engine),
		config:      config,
		logger:      logger.WithPrefix("game-service"),
		clock:       clock,
		broadcaster: broadcaster,
	}
}

// CreateGame registers a new game in the Waiting phase and returns its ID.
func (gs *GameService) CreateGame(maxPlayers int) string {
	opts := gs.engineOptions()
	if maxPlayers >= 2 && maxPlayers <= 4 {
		opts.MaxPlayers = maxPlayers
	}

	id := gameid.New()
	engine := game.NewEngine(id, opts, gs.logger, gs.clock, randutil.New(int64(gs.config.Game.Seed)))
	engine.Events().Subscribe(&gameRelay{service: gs, gameID: id})

	gs.mu.Lock()
	gs.games[id] = engine
	gs.mu.Unlock()

	gs.logger.Info("game created", "game", id, "maxPlayers", opts.MaxPlayers)
	return id
}

// GetGame returns the engine for a game ID, or nil.
func (gs *GameService) GetGame(gameID string) *game.Engine {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.games[gameID]
}

// ListGames returns summaries of all registered games.
func (gs *GameService) ListGames() []GameInfo {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	infos := make([]GameInfo, 0, len(gs.games))
	for _, engine := range gs.games {
		state := engine.PublicState()
		infos = append(infos, GameInfo{
			ID:          state.GameID,
			PlayerCount: len(state.Players),
			MaxPlayers:  gs.config.Game.MaxPlayers,
			Phase:       state.Phase,
		})
	}
	return infos
}

// JoinGame seats a human player in a waiting game.
func (gs *GameService) JoinGame(gameID, playerID string) (game.PublicState, error) {
	engine := gs.GetGame(gameID)
	if engine == nil {
		return game.PublicState{}, fmt.Errorf("game not found: %s", gameID)
	}
	if err := engine.AddPlayer(playerID, playerID, game.Human()); err != nil {
		return game.PublicState{}, err
	}
	return engine.PublicState(), nil
}

// LeaveGame removes a player; mid-game this counts as a middle drop.
func (gs *GameService) LeaveGame(gameID, playerID string) error {
	engine := gs.GetGame(gameID)
	if engine == nil {
		return fmt.Errorf("game not found: %s", gameID)
	}
	return engine.RemovePlayer(playerID)
}

// AddBots seats count computer-controlled players using the first configured
// decision provider.
func (gs *GameService) AddBots(gameID string, count int) error {
	engine := gs.GetGame(gameID)
	if engine == nil {
		return fmt.Errorf("game not found: %s", gameID)
	}
	if count < 1 {
		count = 1
	}

	for i := 0; i < count; i++ {
		gs.mu.Lock()
		gs.botSeq++
		name := fmt.Sprintf("bot-%d", gs.botSeq)
		gs.mu.Unlock()

		provider, err := gs.newProvider()
		if err != nil {
			return err
		}
		if err := engine.AddPlayer(name, name, game.Bot(provider)); err != nil {
			return err
		}
	}
	return nil
}

// StartGame deals the game and begins the first turn.
func (gs *GameService) StartGame(gameID string) error {
	engine := gs.GetGame(gameID)
	if engine == nil {
		return fmt.Errorf("game not found: %s", gameID)
	}
	return engine.Start()
}

// Draw applies a draw action for the turn-holder.
func (gs *GameService) Draw(gameID, playerID, source string) (deck.Card, error) {
	engine := gs.GetGame(gameID)
	if engine == nil {
		return deck.Card{}, fmt.Errorf("game not found: %s", gameID)
	}
	src := game.DrawFromDeck
	if source == string(game.DrawFromDiscard) {
		src = game.DrawFromDiscard
	}
	return engine.Draw(playerID, src)
}

// Discard applies a discard action for the turn-holder.
func (gs *GameService) Discard(gameID, playerID, cardID string) (deck.Card, error) {
	engine := gs.GetGame(gameID)
	if engine == nil {
		return deck.Card{}, fmt.Errorf("game not found: %s", gameID)
	}
	return engine.DiscardCard(playerID, cardID)
}

// Declare applies a declaration; an invalid one is reported back, not an error.
func (gs *GameService) Declare(gameID, playerID string, groups [][]string) (rules.DeclarationResult, error) {
	engine := gs.GetGame(gameID)
	if engine == nil {
		return rules.DeclarationResult{}, fmt.Errorf("game not found: %s", gameID)
	}
	return engine.Declare(playerID, groups)
}

// Drop applies a voluntary drop.
func (gs *GameService) Drop(gameID, playerID, kind string) error {
	engine := gs.GetGame(gameID)
	if engine == nil {
		return fmt.Errorf("game not found: %s", gameID)
	}
	dropKind := game.DropKind(kind)
	if dropKind != game.DropFirst {
		dropKind = game.DropMiddle
	}
	return engine.Drop(playerID, dropKind)
}

// Hand returns a player's private hand.
func (gs *GameService) Hand(gameID, playerID string) ([]deck.Card, error) {
	engine := gs.GetGame(gameID)
	if engine == nil {
		return nil, fmt.Errorf("game not found: %s", gameID)
	}
	return engine.Hand(playerID)
}

// SetConnected relays transport connectivity into the engine's public state.
func (gs *GameService) SetConnected(gameID, playerID string, connected bool) {
	if engine := gs.GetGame(gameID); engine != nil {
		engine.SetConnected(playerID, connected)
	}
}

// engineOptions maps the config game block onto engine options.
func (gs *GameService) engineOptions() game.Options {
	opts := game.DefaultOptions()
	cfg := gs.config.Game
	opts.MaxPlayers = cfg.MaxPlayers
	opts.TurnLimit = gs.config.TurnLimit()
	opts.MaxTimeouts = cfg.MaxTimeouts
	opts.FirstDropPenalty = cfg.FirstDropPenalty
	opts.MiddleDropPenalty = cfg.MiddleDropPenalty
	opts.ReshuffleThreshold = cfg.ReshuffleThreshold
	opts.PrintedJokers = !cfg.DisablePrintedJokers
	return opts
}

// newProvider builds a decision provider from the first bot block.
func (gs *GameService) newProvider() (bot.Provider, error) {
	if len(gs.config.Bots) == 0 {
		return bot.NewRandomProvider(randutil.New(0)), nil
	}
	cfg := gs.config.Bots[0]
	switch cfg.Provider {
	case "http":
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 8 * time.Second
		}
		return bot.NewHTTPProvider(cfg.URL, timeout, gs.logger), nil
	case "random", "":
		return bot.NewRandomProvider(randutil.New(0)), nil
	default:
		return nil, fmt.Errorf("unknown bot provider: %s", cfg.Provider)
	}
}

// teardownDelay is how long a finished game stays queryable before the
// registry forgets it. Long enough for clients to fetch the final state.
const teardownDelay = time.Minute

// scheduleTeardown removes a finished game from the registry after a grace
// period. Finished games are terminal and never reused.
func (gs *GameService) scheduleTeardown(gameID string) {
	gs.clock.AfterFunc(teardownDelay, func() {
		gs.mu.Lock()
		delete(gs.games, gameID)
		gs.mu.Unlock()
		gs.logger.Info("game torn down", "game", gameID)
	})
}

// pushHands sends each human player their private hand. Runs outside the
// engine lock.
func (gs *GameService) pushHands(gameID string) {
	engine := gs.GetGame(gameID)
	if engine == nil || gs.broadcaster == nil {
		return
	}
	for _, p := range engine.PublicState().Players {
		if p.IsBot {
			continue
		}
		hand, err := engine.Hand(p.ID)
		if err != nil {
			continue
		}
		msg, err := NewMessage(MessageTypeHandUpdate, HandUpdateData{GameID: gameID, Hand: hand})
		if err != nil {
			continue
		}
		_ = gs.broadcaster.SendToPlayer(p.ID, msg)
	}
}

// gameRelay subscribes to one engine's events and fans them out as messages.
// OnEvent runs with the engine lock held, so anything that calls back into
// the engine is deferred to a goroutine.
type gameRelay struct {
	service *GameService
	gameID  string
}

func (r *gameRelay) OnEvent(event game.Event) {
	gs := r.service
	if gs.broadcaster == nil {
		return
	}

	var msg *Message
	var err error

	switch e := event.(type) {
	case game.TurnStartedEvent:
		msg, err = NewMessage(MessageTypeTurnStarted, TurnStartedData{
			GameID:   e.GameID,
			PlayerID: e.PlayerID,
			Deadline: e.Deadline,
			LimitMs:  e.Limit.Milliseconds(),
		})
	case game.TurnTimerStoppedEvent:
		msg, err = NewMessage(MessageTypeTurnEnded, TurnEndedData{
			GameID:   e.GameID,
			PlayerID: e.PlayerID,
		})
	case game.StateChangedEvent:
		msg, err = NewMessage(MessageTypeGameState, GameStateData{State: e.State})
		go gs.pushHands(r.gameID)
	case game.PlayerTimedOutEvent:
		msg, err = NewMessage(MessageTypeTimeout, TimeoutData{
			GameID:           e.GameID,
			PlayerID:         e.PlayerID,
			TimeoutCount:     e.TimeoutCount,
			RemainingChances: e.RemainingChances,
		})
	case game.PlayerDroppedEvent:
		msg, err = NewMessage(MessageTypePlayerDropped, PlayerDroppedData{
			GameID:   e.GameID,
			PlayerID: e.PlayerID,
			Kind:     string(e.Kind),
			Auto:     e.Auto,
		})
	case game.GameEndedEvent:
		msg, err = NewMessage(MessageTypeGameEnded, GameEndedData{Summary: e.Summary})
		gs.scheduleTeardown(r.gameID)
	default:
		return
	}

	if err != nil {
		gs.logger.Error("failed to encode event", "type", event.EventType(), "error", err)
		return
	}
	gs.broadcaster.BroadcastToGame(r.gameID, msg)
}
