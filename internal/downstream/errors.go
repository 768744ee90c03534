package downstream

import "errors"

var (
	// ErrNoCommand is returned for a stdio target with no command.
	ErrNoCommand = errors.New("stdio target requires a command")

	// ErrNoURL is returned for an http target with no URL.
	ErrNoURL = errors.New("http target requires a url")

	// ErrUnknownTransport is returned for an unrecognized transport value.
	ErrUnknownTransport = errors.New("unknown downstream transport")
)
