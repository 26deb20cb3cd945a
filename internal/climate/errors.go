package climate

import "errors"

var (
	ErrInvalidLatLon = errors.New("invalid lat,lon")
	ErrNotFound      = errors.New("location not found")
	ErrNoLocation    = errors.New("no location resolved")
	ErrNoNormals     = errors.New("no climate normals available")
	ErrUnknownStep   = errors.New("unknown resolver step")
)
