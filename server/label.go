// File: server/label.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"fmt"
	"strings"

	"github.com/nats-io/nuid"
)

// Labeler assigns the display label prefixed to every message a connection
// sends. The label is written verbatim; it carries its own separator.
type Labeler interface {
	Label(remoteAddr string) string
}

// LabelFunc adapts a function to Labeler.
type LabelFunc func(remoteAddr string) string

// Label implements Labeler.
func (f LabelFunc) Label(remoteAddr string) string { return f(remoteAddr) }

// StaticLabel gives every connection the same label.
func StaticLabel(text string) Labeler {
	return LabelFunc(func(string) string { return text })
}

// AddrLabel labels a connection with its peer address, e.g. "10.0.0.1:5000: ".
func AddrLabel() Labeler {
	return LabelFunc(func(addr string) string { return addr + ": " })
}

// NUIDLabel labels each connection with a fresh unique identifier.
// The returned Labeler is not safe for concurrent use.
func NUIDLabel() Labeler {
	gen := nuid.New()
	return LabelFunc(func(string) string { return gen.Next() + ": " })
}

// ParseLabelPolicy maps "addr", "nuid" or "static:<text>" to a Labeler.
func ParseLabelPolicy(s string) (Labeler, error) {
	switch {
	case s == "addr":
		return AddrLabel(), nil
	case s == "nuid":
		return NUIDLabel(), nil
	case strings.HasPrefix(s, "static:"):
		return StaticLabel(strings.TrimPrefix(s, "static:")), nil
	}
	return nil, fmt.Errorf("unknown label policy %q (want addr, nuid or static:<text>)", s)
}
