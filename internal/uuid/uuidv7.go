// Package uuid generates the opaque external identifiers used in the API.
package uuid

import (
	googleuuid "github.com/google/uuid"
)

// New generates a new UUIDv7. UUIDv7 is time-ordered, so identifiers of
// records created later sort later, which keeps index inserts append-only.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		// Fallback to UUIDv4 if the random source fails
		return googleuuid.New().String()
	}
	return id.String()
}

// IsValid checks if a string is a valid UUID
func IsValid(s string) bool {
	_, err := googleuuid.Parse(s)
	return err == nil
}
