package chathub

import "errors"

// Error taxonomy of the chat core. Validation and access errors are
// surfaced synchronously to the initiating connection and are never
// partially applied; persistence errors during best-effort bookkeeping
// are logged and swallowed.
var (
	ErrRoomNotFound       = errors.New("chat room not found")
	ErrAccessDenied       = errors.New("access denied to this chat room")
	ErrEmptyMessage       = errors.New("invalid message data")
	ErrMessageTooLong     = errors.New("message too long (max 2000 characters)")
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrInvalidReceiver    = errors.New("invalid receiver")
	ErrSelfSend           = errors.New("cannot send message to yourself")
	ErrNoAdminAvailable   = errors.New("no admin available")
	ErrNoActiveRoom       = errors.New("no active chat room")
)
