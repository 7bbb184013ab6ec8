// Package command defines the user commands the frame loop acts on.
package command

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCommand is returned for keys that map to no command.
var ErrInvalidCommand = errors.New("invalid command")

// Command is a pending user request. None is the idle marker.
type Command int32

const (
	None Command = iota
	CaptureStructured
	DescribeScene
	Next
	Prev
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case None:
		return "none"
	case CaptureStructured:
		return "capture_structured"
	case DescribeScene:
		return "describe_scene"
	case Next:
		return "next"
	case Prev:
		return "prev"
	default:
		return fmt.Sprintf("command(%d)", int32(c))
	}
}

// Key returns the single-letter key for c, or "".
func (c Command) Key() string {
	switch c {
	case CaptureStructured:
		return "c"
	case DescribeScene:
		return "d"
	case Next:
		return "n"
	case Prev:
		return "p"
	default:
		return ""
	}
}

// Remote reports whether c is served by the remote extraction path.
func (c Command) Remote() bool {
	return c == CaptureStructured || c == DescribeScene
}

// Parse maps a key to a command. Keys are case-insensitive and may carry
// surrounding whitespace: c (capture), d (describe), n (next), p (prev).
func Parse(key string) (Command, error) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "c":
		return CaptureStructured, nil
	case "d":
		return DescribeScene, nil
	case "n":
		return Next, nil
	case "p":
		return Prev, nil
	default:
		return None, fmt.Errorf("%w: %q (expected one of c, d, n, p)", ErrInvalidCommand, key)
	}
}
