package survey

import "errors"

var (
	ErrInvalidTemperature = errors.New("invalid temperature")
	ErrInvalidAgeBand     = errors.New("invalid age band")
	ErrEmptyRoomName      = errors.New("room name is required")
	ErrRoomNotFound       = errors.New("room not found")
	ErrNoResolver         = errors.New("no climate resolver configured")
	ErrSuperseded         = errors.New("postcode lookup superseded by a newer request")
)
