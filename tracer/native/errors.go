package native

import "errors"

var (
	ErrInvalidDevice     = errors.New("native tracer: invalid device handle")
	ErrNoFilmData        = errors.New("native tracer: no film attached")
	ErrNoSceneData       = errors.New("native tracer: no scene data uploaded")
	ErrUnsupportedUpdate = errors.New("native tracer: unsupported update type")
	ErrInvalidUpdateData = errors.New("native tracer: update payload does not match the update type")
)
