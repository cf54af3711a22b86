package identity

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewRoundTrip(t *testing.T) {
	for _, entity := range Entities() {
		for _, tenant := range []uint32{0, 7, 4021, 0xFFFFFFFF} {
			id, err := New(entity, tenant)
			if err != nil {
				t.Fatalf("New(%s, %d): %v", entity, tenant, err)
			}

			scope, err := TenantScope(id)
			if err != nil {
				t.Fatalf("TenantScope(%s): %v", id, err)
			}
			if scope != tenant {
				t.Errorf("%s: tenant scope = %d, want %d", entity, scope, tenant)
			}

			got, err := EntityOf(id)
			if err != nil {
				t.Fatalf("EntityOf(%s): %v", id, err)
			}
			if got != entity {
				t.Errorf("EntityOf = %s, want %s", got, entity)
			}

			if err := Validate(entity, id); err != nil {
				t.Errorf("Validate(%s, %s): %v", entity, id, err)
			}
		}
	}
}

func TestTimestampEmbedded(t *testing.T) {
	before := time.Now().Add(-time.Second)
	id := MustNew(Thread, 42)
	after := time.Now().Add(time.Second)

	ts, err := Timestamp(id)
	if err != nil {
		t.Fatalf("Timestamp: %v", err)
	}
	if ts.Before(before) || ts.After(after) {
		t.Errorf("embedded timestamp %v outside [%v, %v]", ts, before, after)
	}
}

func TestValidateRejectsMalformedText(t *testing.T) {
	cases := []string{
		"",
		"not-a-uuid",
		"123456789",
		strings.Repeat("a", 36),
		"00000000000000000000000000000000", // unhyphenated hex
	}
	for _, text := range cases {
		err := Validate(Collection, text)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("Validate(Collection, %q) = %v, want ValidationError", text, err)
		}
		if verr.Code != "invalid_format" {
			t.Errorf("Validate(Collection, %q) code = %s, want invalid_format", text, verr.Code)
		}
	}
}

// Flipping a Collection id's type byte to the User code must fail validation
// with a type mismatch naming both entities.
func TestValidateRejectsTamperedTypeByte(t *testing.T) {
	id := MustNew(Collection, 9)

	// Byte 10 lands in the fourth hyphenated group: positions 19-20 and 21-22
	// hold bytes 8 and 9, byte 10 starts the last group at position 24.
	tampered := id[:24] + "02" + id[26:]

	err := Validate(Collection, tampered)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate(tampered) = %v, want ValidationError", err)
	}
	if verr.Code != "type_mismatch" {
		t.Fatalf("code = %s, want type_mismatch", verr.Code)
	}
	if verr.Expected != Collection || verr.Actual != User {
		t.Errorf("mismatch = (%s, %s), want (Collection, User)", verr.Expected, verr.Actual)
	}
}

func TestValidateRejectsEveryOtherEntity(t *testing.T) {
	id := MustNew(CanvasCard, 3)
	for _, entity := range Entities() {
		err := Validate(entity, id)
		if entity == CanvasCard {
			if err != nil {
				t.Errorf("Validate(CanvasCard, id): %v", err)
			}
			continue
		}
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Code != "type_mismatch" {
			t.Errorf("Validate(%s, card id) = %v, want type_mismatch", entity, err)
		}
	}
}

func TestTypedParsersBrandOnlyMatchingEntity(t *testing.T) {
	cardID := MustNew(CanvasCard, 5)

	if _, err := ParseCardID(cardID); err != nil {
		t.Fatalf("ParseCardID: %v", err)
	}
	if _, err := ParseEdgeID(cardID); err == nil {
		t.Error("ParseEdgeID accepted a card id")
	}
	if _, err := ParseThreadID(cardID); err == nil {
		t.Error("ParseThreadID accepted a card id")
	}
}
