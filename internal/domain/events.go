package domain

// Inbound event types.
const (
	EventJoinRoom     = "join_room"
	EventLeaveRoom    = "leave_room"
	EventSendMove     = "send_move"
	EventGameReset    = "game_reset"
	EventSendLocation = "send_location"

	EventCallJoin     = "join-room"
	EventOffer        = "offer"
	EventAnswer       = "answer"
	EventIceCandidate = "ice-candidate"
	EventDebugPing    = "debug_ping"

	EventPing = "ping"
)

// Outbound event types.
const (
	EventReceiveMove     = "receive_move"
	EventReceiveReset    = "receive_reset"
	EventReceiveLocation = "receive_location"

	EventUserConnected    = "user-connected"
	EventUserDisconnected = "user-disconnected"

	EventPong  = "pong"
	EventError = "error"
)
