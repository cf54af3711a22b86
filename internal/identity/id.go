package identity

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Packed id layout, 16 bytes rendered as standard hyphenated UUID text:
//
//	bytes 0-3   tenant scope, uint32 big-endian
//	bytes 4-9   creation time, ms since epoch, 48-bit big-endian
//	byte  10    entity verification byte
//	bytes 11-15 crypto-random

// ValidationError is returned when id text fails format or type checks.
// It is a terminal result, never used for control flow.
type ValidationError struct {
	Code     string // "invalid_format" or "type_mismatch"
	Expected Entity
	Actual   Entity
	Detail   string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

func invalidFormat(text string) *ValidationError {
	return &ValidationError{
		Code:   "invalid_format",
		Detail: fmt.Sprintf("malformed id %q", text),
	}
}

func typeMismatch(expected, actual Entity) *ValidationError {
	return &ValidationError{
		Code:     "type_mismatch",
		Expected: expected,
		Actual:   actual,
		Detail:   fmt.Sprintf("expected %s id, got %s", expected, actual),
	}
}

// New mints an id for the given entity scoped to a tenant, using the current
// wall clock and fresh random bits.
func New(entity Entity, tenantScope uint32) (string, error) {
	typeByte, ok := entityBytes[entity]
	if !ok {
		return "", fmt.Errorf("identity: unregistered entity %q", entity)
	}
	var raw [16]byte
	binary.BigEndian.PutUint32(raw[0:4], tenantScope)
	ms := uint64(time.Now().UnixMilli())
	raw[4] = byte(ms >> 40)
	raw[5] = byte(ms >> 32)
	raw[6] = byte(ms >> 24)
	raw[7] = byte(ms >> 16)
	raw[8] = byte(ms >> 8)
	raw[9] = byte(ms)
	raw[10] = typeByte
	if _, err := rand.Read(raw[11:]); err != nil {
		return "", fmt.Errorf("identity: read random: %w", err)
	}
	return uuid.UUID(raw).String(), nil
}

// MustNew is New for callers where a mint failure is unrecoverable
// (the only failure source is the OS entropy pool).
func MustNew(entity Entity, tenantScope uint32) string {
	id, err := New(entity, tenantScope)
	if err != nil {
		panic(err)
	}
	return id
}

func parse(text string) ([16]byte, *ValidationError) {
	u, err := uuid.Parse(text)
	if err != nil || len(text) != 36 {
		return [16]byte{}, invalidFormat(text)
	}
	return [16]byte(u), nil
}

// TenantScope extracts the embedded tenant scope without touching storage.
func TenantScope(id string) (uint32, error) {
	raw, verr := parse(id)
	if verr != nil {
		return 0, verr
	}
	return binary.BigEndian.Uint32(raw[0:4]), nil
}

// EntityOf extracts the embedded entity name. Returns "" with a nil error
// when the type byte is not registered.
func EntityOf(id string) (Entity, error) {
	raw, verr := parse(id)
	if verr != nil {
		return "", verr
	}
	return entityNames[raw[10]], nil
}

// Timestamp extracts the embedded creation time.
func Timestamp(id string) (time.Time, error) {
	raw, verr := parse(id)
	if verr != nil {
		return time.Time{}, verr
	}
	ms := uint64(raw[4])<<40 | uint64(raw[5])<<32 | uint64(raw[6])<<24 |
		uint64(raw[7])<<16 | uint64(raw[8])<<8 | uint64(raw[9])
	return time.UnixMilli(int64(ms)).UTC(), nil
}

// Validate checks that text is well-formed id text whose type byte matches
// the registered byte for entity. On success the text is safe to treat as an
// id of that entity.
func Validate(entity Entity, text string) error {
	raw, verr := parse(text)
	if verr != nil {
		return verr
	}
	typeByte, ok := entityBytes[entity]
	if !ok {
		return fmt.Errorf("identity: unregistered entity %q", entity)
	}
	if raw[10] != typeByte {
		return typeMismatch(entity, entityNames[raw[10]])
	}
	return nil
}
