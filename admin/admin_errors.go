package admin

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/nrawrx3/unolink/internal/messages"
)

var (
	ErrUnknownRoom   = errors.New("no such room")
	ErrRoomFull      = errors.New("room is full")
	ErrMatchRunning  = errors.New("match in progress, not accepting players")
	ErrMissingName   = errors.New("missing player name")
	ErrInvalidName   = errors.New("player name must be letters, digits or underscores and differ from the host's")
	ErrNameTaken     = errors.New("player name already in the room")
	ErrNoSuchPeer    = errors.New("no connected player in seat")
	ErrOfflineOnly   = errors.New("not available without a room")
	errQuitRequested = errors.New("quit")
)

type SendMessageFailedError struct {
	PlayerName  string
	MessageType messages.MessageType
	Reason      error
}

func NewSendMessageFailedError(playerName string, messageType messages.MessageType, reason error) *SendMessageFailedError {
	return &SendMessageFailedError{
		PlayerName:  playerName,
		MessageType: messageType,
		Reason:      reason,
	}
}

func (e *SendMessageFailedError) Unwrap() error {
	return e.Reason
}

func (e *SendMessageFailedError) Error() string {
	reason := ""
	if e.Reason != nil {
		reason = fmt.Sprintf("Reason: %s", e.Reason.Error())
	}
	return fmt.Sprintf("Failed to send message '%s' to player '%s'. %s", e.MessageType, e.PlayerName, reason)
}
