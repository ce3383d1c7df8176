package domain

type RoomName string

// ParseRoomName checks a raw room name from a payload, keeping it as is.
func ParseRoomName(raw string) (RoomName, error) {
	if len(raw) == 0 {
		return "", ErrRoomEmpty
	}
	if len(raw) > MaxRoomNameLen {
		return "", ErrRoomTooLong
	}
	return RoomName(raw), nil
}
