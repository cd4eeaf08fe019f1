// Package qr owns the scannable payload format used by the dashboard's
// check-in flow. Rendering and camera scanning happen on the client;
// this side only encodes, decodes and validates the payload string.
package qr

import (
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	KindUser   Kind = "usuario"
	KindCourse Kind = "curso"
)

var (
	ErrInvalidFormat   = errors.New("qr: invalid payload format")
	ErrUnsupportedKind = errors.New("qr: unsupported payload kind")
)

type Payload struct {
	Kind Kind
	ID   string
}

// Encode renders a payload as "{kind}-{id}".
func Encode(kind Kind, id string) string {
	return fmt.Sprintf("%s-%s", kind, id)
}

// Decode splits a scanned string on the first hyphen. The kind never
// contains a hyphen, so ids that do (uuids) survive intact.
func Decode(raw string) (Payload, error) {
	kind, id, found := strings.Cut(raw, "-")
	if !found || kind == "" || id == "" {
		return Payload{}, ErrInvalidFormat
	}
	switch Kind(kind) {
	case KindUser, KindCourse:
		return Payload{Kind: Kind(kind), ID: id}, nil
	default:
		return Payload{}, ErrUnsupportedKind
	}
}

func (p Payload) String() string {
	return Encode(p.Kind, p.ID)
}
