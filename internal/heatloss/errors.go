package heatloss

import "errors"

var (
	ErrCeilingOnGround = errors.New("ceiling cannot be adjacent to ground")
	ErrInvalidPolicy   = errors.New("invalid ventilation policy")
)
