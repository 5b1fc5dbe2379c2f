package command

import (
	"fmt"
	"strings"
)

// Command is a door action understood by the controller.
type Command string

const (
	Open   Command = "open"
	Close  Command = "close"
	Toggle Command = "toggle"
)

// All lists the valid commands.
var All = []Command{Open, Close, Toggle}

// Valid reports whether c is one of the known commands.
func (c Command) Valid() bool {
	switch c {
	case Open, Close, Toggle:
		return true
	}
	return false
}

func (c Command) String() string {
	return string(c)
}

// Parse converts user input into a Command.
func Parse(s string) (Command, error) {
	c := Command(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown command %q (expected open, close or toggle)", s)
	}
	return c, nil
}
