package server

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardroomlabs/rummyd/internal/rules"
)

// fakeBroadcaster records delivered messages in place of live connections.
type fakeBroadcaster struct {
	mu       sync.Mutex
	byGame   map[string][]*Message
	byPlayer map[string][]*Message
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{
		byGame:   make(map[string][]*Message),
		byPlayer: make(map[string][]*Message),
	}
}

func (f *fakeBroadcaster) BroadcastToGame(gameID string, msg *Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byGame[gameID] = append(f.byGame[gameID], msg)
}

func (f *fakeBroadcaster) SendToPlayer(playerID string, msg *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byPlayer[playerID] = append(f.byPlayer[playerID], msg)
	return nil
}

func (f *fakeBroadcaster) gameMessages(gameID string, mt MessageType) []*Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Message
	for _, m := range f.byGame[gameID] {
		if m.Type == mt {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeBroadcaster) playerMessages(playerID string, mt MessageType) []*Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Message
	for _, m := range f.byPlayer[playerID] {
		if m.Type == mt {
			out = append(out, m)
		}
	}
	return out
}

func newTestService(t *testing.T) (*GameService, *fakeBroadcaster) {
	t.Helper()
	config := DefaultServerConfig()
	config.Game.Seed = 42
	broadcaster := newFakeBroadcaster()
	service := NewGameService(config, log.New(io.Discard), quartz.NewReal(), broadcaster)
	return service, broadcaster
}

func TestGameServiceLifecycle(t *testing.T) {
	service, broadcaster := newTestService(t)

	gameID := service.CreateGame(2)
	require.NotEmpty(t, gameID)

	infos := service.ListGames()
	require.Len(t, infos, 1)
	assert.Equal(t, "waiting", infos[0].Phase)

	state, err := service.JoinGame(gameID, "alice")
	require.NoError(t, err)
	assert.Len(t, state.Players, 1)
	_, err = service.JoinGame(gameID, "bob")
	require.NoError(t, err)

	require.NoError(t, service.StartGame(gameID))

	// A full turn through the service.
	card, err := service.Draw(gameID, "alice", "deck")
	require.NoError(t, err)
	_, err = service.Discard(gameID, "alice", card.ID)
	require.NoError(t, err)

	hand, err := service.Hand(gameID, "bob")
	require.NoError(t, err)
	assert.Len(t, hand, rules.DeclarationSize)

	// The relay broadcast turn and state messages for those actions.
	assert.NotEmpty(t, broadcaster.gameMessages(gameID, MessageTypeTurnStarted))
	assert.NotEmpty(t, broadcaster.gameMessages(gameID, MessageTypeGameState))

	// Private hands land per player, never on the broadcast channel.
	require.Eventually(t, func() bool {
		return len(broadcaster.playerMessages("alice", MessageTypeHandUpdate)) > 0 &&
			len(broadcaster.playerMessages("bob", MessageTypeHandUpdate)) > 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, broadcaster.gameMessages(gameID, MessageTypeHandUpdate))
}

func TestGameServiceDropRelay(t *testing.T) {
	service, broadcaster := newTestService(t)

	gameID := service.CreateGame(2)
	_, err := service.JoinGame(gameID, "alice")
	require.NoError(t, err)
	_, err = service.JoinGame(gameID, "bob")
	require.NoError(t, err)
	require.NoError(t, service.StartGame(gameID))

	require.NoError(t, service.Drop(gameID, "alice", "first"))

	assert.Len(t, broadcaster.gameMessages(gameID, MessageTypePlayerDropped), 1)
	assert.Len(t, broadcaster.gameMessages(gameID, MessageTypeGameEnded), 1)
}

func TestGameServiceTeardown(t *testing.T) {
	config := DefaultServerConfig()
	config.Game.Seed = 42
	mock := quartz.NewMock(t)
	service := NewGameService(config, log.New(io.Discard), mock, newFakeBroadcaster())

	gameID := service.CreateGame(2)
	_, err := service.JoinGame(gameID, "alice")
	require.NoError(t, err)
	_, err = service.JoinGame(gameID, "bob")
	require.NoError(t, err)
	require.NoError(t, service.StartGame(gameID))

	require.NoError(t, service.Drop(gameID, "alice", "first"))
	require.NotNil(t, service.GetGame(gameID), "finished game stays queryable for a while")

	mock.Advance(teardownDelay).MustWait(context.Background())
	assert.Nil(t, service.GetGame(gameID))
	assert.Empty(t, service.ListGames())
}

func TestGameServiceAddBots(t *testing.T) {
	service, _ := newTestService(t)

	gameID := service.CreateGame(4)
	require.NoError(t, service.AddBots(gameID, 4))

	infos := service.ListGames()
	require.Len(t, infos, 1)
	assert.Equal(t, 4, infos[0].PlayerCount)

	// Table is full now.
	assert.Error(t, service.AddBots(gameID, 1))
	_, err := service.JoinGame(gameID, "late")
	assert.Error(t, err)
}

func TestGameServiceUnknownGame(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.JoinGame("nope", "alice")
	assert.Error(t, err)
	assert.Error(t, service.StartGame("nope"))
	assert.Error(t, service.Drop("nope", "alice", "first"))
	_, err = service.Draw("nope", "alice", "deck")
	assert.Error(t, err)
	_, err = service.Declare("nope", "alice", nil)
	assert.Error(t, err)
}
