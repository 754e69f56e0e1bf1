package server

// MessageType identifies a WebSocket message
type MessageType string

const (
	// Client → Server
	MessageTypeAuth       MessageType = "auth"
	MessageTypeCreateGame MessageType = "create_game"
	MessageTypeJoinGame   MessageType = "join_game"
	MessageTypeLeaveGame  MessageType = "leave_game"
	MessageTypeListGames  MessageType = "list_games"
	MessageTypeStartGame  MessageType = "start_game"
	MessageTypeAddBot     MessageType = "add_bot"
	MessageTypeDraw       MessageType = "draw"
	MessageTypeDiscard    MessageType = "discard"
	MessageTypeDeclare    MessageType = "declare"
	MessageTypeDrop       MessageType = "drop"
	MessageTypeGetHand    MessageType = "get_hand"
	MessageTypeGetState   MessageType = "get_state"

	// Server → Client
	MessageTypeAuthResponse  MessageType = "auth_response"
	MessageTypeError         MessageType = "error"
	MessageTypeGameCreated   MessageType = "game_created"
	MessageTypeGameJoined    MessageType = "game_joined"
	MessageTypeGameLeft      MessageType = "game_left"
	MessageTypeGameList      MessageType = "game_list"
	MessageTypeGameState     MessageType = "game_state"
	MessageTypeHandUpdate    MessageType = "hand_update"
	MessageTypeDrawResult    MessageType = "draw_result"
	MessageTypeDeclareResult MessageType = "declare_result"
	MessageTypeTurnStarted   MessageType = "turn_started"
	MessageTypeTurnEnded     MessageType = "turn_ended"
	MessageTypeTimeout       MessageType = "timeout_warning"
	MessageTypePlayerDropped MessageType = "player_dropped"
	MessageTypeGameEnded     MessageType = "game_ended"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
