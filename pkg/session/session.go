// Package session keeps the aircraft each operator session is working on.
package session

import (
	"context"
	"errors"
)

// ErrNoAircraft indicates the session has not selected an aircraft yet.
var ErrNoAircraft = errors.New("no aircraft selected")

// Store maps a session id to its current aircraft.
type Store interface {
	// Aircraft returns the current aircraft of a session, or ErrNoAircraft.
	Aircraft(ctx context.Context, sessionID string) (string, error)
	SetAircraft(ctx context.Context, sessionID, aircraftID string) error
	Clear(ctx context.Context, sessionID string) error
	Close() error
}
