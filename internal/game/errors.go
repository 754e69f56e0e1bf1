package game

import "errors"

// Rejection reasons for malformed action requests. Every rejected action is
// all-or-nothing: the engine mutates nothing when one of these is returned.
var (
	ErrGameNotPlaying   = errors.New("game is not in playing state")
	ErrGameStarted      = errors.New("game already started")
	ErrGameFull         = errors.New("game is full")
	ErrDuplicatePlayer  = errors.New("player already in game")
	ErrNotEnoughPlayers = errors.New("need at least 2 players to start")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrAlreadyDropped   = errors.New("player has already dropped")
	ErrCardNotInHand    = errors.New("card not found in hand")
	ErrWrongHandSize    = errors.New("wrong hand size for this action")
	ErrNoCardsAvailable = errors.New("no cards available to draw")
)
