package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn        *websocket.Conn
	send        chan *Message
	playerID    string
	gameID      string
	logger      *log.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.RWMutex
	closeOnce   sync.Once
	gameService *GameService
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, gameService *GameService) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:        conn,
		send:        make(chan *Message, 256),
		logger:      logger.WithPrefix("conn"),
		ctx:         ctx,
		cancel:      cancel,
		gameService: gameService,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed during shutdown
			c.logger.Debug("attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// SetPlayer associates this connection with a player
func (c *Connection) SetPlayer(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
}

// GetPlayer returns the associated player ID
func (c *Connection) GetPlayer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// SetGame associates this connection with a game
func (c *Connection) SetGame(gameID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gameID = gameID
}

// GetGame returns the associated game ID
func (c *Connection) GetGame() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gameID
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("received message", "type", msg.Type, "player", c.GetPlayer())

	switch msg.Type {
	case MessageTypeAuth:
		var data AuthData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse auth data")
			return
		}
		c.handleAuth(data)

	case MessageTypeCreateGame:
		var data CreateGameData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse create game data")
			return
		}
		c.handleCreateGame(data)

	case MessageTypeJoinGame:
		var data JoinGameData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse join game data")
			return
		}
		c.handleJoinGame(data)

	case MessageTypeLeaveGame:
		var data LeaveGameData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse leave game data")
			return
		}
		c.handleLeaveGame(data)

	case MessageTypeListGames:
		c.handleListGames()

	case MessageTypeStartGame:
		var data StartGameData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse start game data")
			return
		}
		c.handleStartGame(data)

	case MessageTypeAddBot:
		var data AddBotData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse add bot data")
			return
		}
		c.handleAddBot(data)

	case MessageTypeDraw:
		var data DrawData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse draw data")
			return
		}
		c.handleDraw(data)

	case MessageTypeDiscard:
		var data DiscardData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse discard data")
			return
		}
		c.handleDiscard(data)

	case MessageTypeDeclare:
		var data DeclareData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse declare data")
			return
		}
		c.handleDeclare(data)

	case MessageTypeDrop:
		var data DropData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse drop data")
			return
		}
		c.handleDrop(data)

	case MessageTypeGetHand:
		var data GetHandData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse get hand data")
			return
		}
		c.handleGetHand(data)

	case MessageTypeGetState:
		var data GetStateData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse get state data")
			return
		}
		c.handleGetState(data)

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg)
}

// authedPlayer returns the player ID, or sends an error and returns "".
func (c *Connection) authedPlayer() string {
	if c.gameService == nil {
		c.sendError("service_unavailable", "Game service not available")
		return ""
	}
	playerID := c.GetPlayer()
	if playerID == "" {
		c.sendError("not_authenticated", "Must authenticate first")
	}
	return playerID
}

func (c *Connection) handleAuth(data AuthData) {
	c.logger.Info("auth request", "playerName", data.PlayerName)

	if data.PlayerName == "" {
		c.sendError("invalid_auth", "Player name required")
		return
	}

	c.SetPlayer(data.PlayerName)

	response, _ := NewMessage(MessageTypeAuthResponse, AuthResponseData{
		Success:  true,
		PlayerID: data.PlayerName,
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleCreateGame(data CreateGameData) {
	if c.authedPlayer() == "" {
		return
	}

	gameID := c.gameService.CreateGame(data.MaxPlayers)
	response, _ := NewMessage(MessageTypeGameCreated, GameCreatedData{GameID: gameID})
	_ = c.SendMessage(response)
}

func (c *Connection) handleJoinGame(data JoinGameData) {
	playerID := c.authedPlayer()
	if playerID == "" {
		return
	}

	state, err := c.gameService.JoinGame(data.GameID, playerID)
	if err != nil {
		c.sendError("join_failed", err.Error())
		return
	}

	c.SetGame(data.GameID)

	seat := 0
	for _, p := range state.Players {
		if p.ID == playerID {
			seat = p.Seat
		}
	}
	response, _ := NewMessage(MessageTypeGameJoined, GameJoinedData{
		GameID: data.GameID,
		Seat:   seat,
		State:  state,
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleLeaveGame(data LeaveGameData) {
	playerID := c.authedPlayer()
	if playerID == "" {
		return
	}

	if err := c.gameService.LeaveGame(data.GameID, playerID); err != nil {
		c.sendError("leave_failed", err.Error())
		return
	}

	c.SetGame("")
	response, _ := NewMessage(MessageTypeGameLeft, GameLeftData{GameID: data.GameID})
	_ = c.SendMessage(response)
}

func (c *Connection) handleListGames() {
	if c.gameService == nil {
		c.sendError("service_unavailable", "Game service not available")
		return
	}

	response, _ := NewMessage(MessageTypeGameList, GameListData{Games: c.gameService.ListGames()})
	_ = c.SendMessage(response)
}

func (c *Connection) handleStartGame(data StartGameData) {
	if c.authedPlayer() == "" {
		return
	}

	if err := c.gameService.StartGame(data.GameID); err != nil {
		c.sendError("start_failed", err.Error())
	}
	// The engine publishes the dealt state and first turn.
}

func (c *Connection) handleAddBot(data AddBotData) {
	if c.authedPlayer() == "" {
		return
	}

	if err := c.gameService.AddBots(data.GameID, data.Count); err != nil {
		c.sendError("add_bot_failed", err.Error())
	}
}

func (c *Connection) handleDraw(data DrawData) {
	playerID := c.authedPlayer()
	if playerID == "" {
		return
	}

	card, err := c.gameService.Draw(data.GameID, playerID, data.Source)
	if err != nil {
		c.sendError("draw_failed", err.Error())
		return
	}

	// Only the drawer learns which card arrived.
	response, _ := NewMessage(MessageTypeDrawResult, DrawResultData{GameID: data.GameID, Card: card})
	_ = c.SendMessage(response)
}

func (c *Connection) handleDiscard(data DiscardData) {
	playerID := c.authedPlayer()
	if playerID == "" {
		return
	}

	if _, err := c.gameService.Discard(data.GameID, playerID, data.CardID); err != nil {
		c.sendError("discard_failed", err.Error())
	}
}

func (c *Connection) handleDeclare(data DeclareData) {
	playerID := c.authedPlayer()
	if playerID == "" {
		return
	}

	result, err := c.gameService.Declare(data.GameID, playerID, data.Groups)
	if err != nil {
		c.sendError("declare_failed", err.Error())
		return
	}

	response, _ := NewMessage(MessageTypeDeclareResult, DeclareResultData{GameID: data.GameID, Result: result})
	_ = c.SendMessage(response)
}

func (c *Connection) handleDrop(data DropData) {
	playerID := c.authedPlayer()
	if playerID == "" {
		return
	}

	if err := c.gameService.Drop(data.GameID, playerID, data.Kind); err != nil {
		c.sendError("drop_failed", err.Error())
	}
}

func (c *Connection) handleGetHand(data GetHandData) {
	playerID := c.authedPlayer()
	if playerID == "" {
		return
	}

	hand, err := c.gameService.Hand(data.GameID, playerID)
	if err != nil {
		c.sendError("get_hand_failed", err.Error())
		return
	}

	response, _ := NewMessage(MessageTypeHandUpdate, HandUpdateData{GameID: data.GameID, Hand: hand})
	_ = c.SendMessage(response)
}

func (c *Connection) handleGetState(data GetStateData) {
	if c.gameService == nil {
		c.sendError("service_unavailable", "Game service not available")
		return
	}

	engine := c.gameService.GetGame(data.GameID)
	if engine == nil {
		c.sendError("get_state_failed", "game not found: "+data.GameID)
		return
	}

	response, _ := NewMessage(MessageTypeGameState, GameStateData{State: engine.PublicState()})
	_ = c.SendMessage(response)
}
