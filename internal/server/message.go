package server

import (
	"encoding/json"
	"time"

	"github.com/cardroomlabs/rummyd/internal/deck"
	"github.com/cardroomlabs/rummyd/internal/game"
	"github.com/cardroomlabs/rummyd/internal/rules"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type AuthData struct {
	PlayerName string `json:"playerName"`
	Token      string `json:"token,omitempty"`
}

type CreateGameData struct {
	MaxPlayers int `json:"maxPlayers,omitempty"`
}

type JoinGameData struct {
	GameID string `json:"gameId"`
}

type LeaveGameData struct {
	GameID string `json:"gameId"`
}

type StartGameData struct {
	GameID string `json:"gameId"`
}

type AddBotData struct {
	GameID string `json:"gameId"`
	Count  int    `json:"count,omitempty"` // number of bots to add, default 1
}

type DrawData struct {
	GameID string `json:"gameId"`
	Source string `json:"source"` // "deck" or "discard"
}

type DiscardData struct {
	GameID string `json:"gameId"`
	CardID string `json:"cardId"`
}

type DeclareData struct {
	GameID string     `json:"gameId"`
	Groups [][]string `json:"groups"` // card IDs grouped as the player arranges them
}

type DropData struct {
	GameID string `json:"gameId"`
	Kind   string `json:"kind,omitempty"` // "first" or "middle"
}

type GetHandData struct {
	GameID string `json:"gameId"`
}

type GetStateData struct {
	GameID string `json:"gameId"`
}

// Server → Client Messages

type AuthResponseData struct {
	Success  bool   `json:"success"`
	PlayerID string `json:"playerId,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type GameInfo struct {
	ID          string `json:"id"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	Phase       string `json:"phase"`
}

type GameListData struct {
	Games []GameInfo `json:"games"`
}

type GameCreatedData struct {
	GameID string `json:"gameId"`
}

type GameJoinedData struct {
	GameID string           `json:"gameId"`
	Seat   int              `json:"seat"`
	State  game.PublicState `json:"state"`
}

type GameLeftData struct {
	GameID string `json:"gameId"`
}

type GameStateData struct {
	State game.PublicState `json:"state"`
}

// HandUpdateData carries a player's private hand. Sent only to its owner.
type HandUpdateData struct {
	GameID string      `json:"gameId"`
	Hand   []deck.Card `json:"hand"`
}

type DrawResultData struct {
	GameID string    `json:"gameId"`
	Card   deck.Card `json:"card"`
}

type DeclareResultData struct {
	GameID string                  `json:"gameId"`
	Result rules.DeclarationResult `json:"result"`
}

type TurnStartedData struct {
	GameID   string    `json:"gameId"`
	PlayerID string    `json:"playerId"`
	Deadline time.Time `json:"deadline"`
	LimitMs  int64     `json:"limitMs"`
}

type TurnEndedData struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
}

type TimeoutData struct {
	GameID           string `json:"gameId"`
	PlayerID         string `json:"playerId"`
	TimeoutCount     int    `json:"timeoutCount"`
	RemainingChances int    `json:"remainingChances"`
}

type PlayerDroppedData struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
	Kind     string `json:"kind"`
	Auto     bool   `json:"auto"`
}

type GameEndedData struct {
	Summary game.Summary `json:"summary"`
}
