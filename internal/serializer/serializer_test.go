package serializer

import (
	"testing"
)

type multiMapStruct struct {
	Props map[string]string
}

// TestSerializeIsByteStableAcrossCalls guards the round-trip property
// spec.md requires: serialize(deserialize(s)) == s. A map with 2+ keys is
// the case that broke under gob, whose map encoding follows Go's
// randomized iteration order rather than a canonical one.
func TestSerializeIsByteStableAcrossCalls(t *testing.T) {
	v := multiMapStruct{Props: map[string]string{
		"alpha": "1", "bravo": "2", "charlie": "3", "delta": "4", "echo": "5",
	}}

	first, err := Serialize(v)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := Serialize(v)
		if err != nil {
			t.Fatalf("Serialize (call %d): %v", i, err)
		}
		if again != first {
			t.Fatalf("call %d produced a different encoding for an equal value:\n%q\n%q", i, first, again)
		}
	}
}

// TestSerializeDeserializeRoundTripsByteForByte reproduces the exact
// property: starting from an already-serialized string, deserializing
// and re-serializing must reproduce the same string.
func TestSerializeDeserializeRoundTripsByteForByte(t *testing.T) {
	v := multiMapStruct{Props: map[string]string{
		"z": "26", "y": "25", "x": "24", "a": "1", "m": "13",
	}}

	s, err := Serialize(v)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	decoded, err := Deserialize[multiMapStruct](s)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	reencoded, err := Serialize(*decoded)
	if err != nil {
		t.Fatalf("Serialize (second pass): %v", err)
	}
	if reencoded != s {
		t.Fatalf("serialize(deserialize(s)) != s:\n%q\n%q", s, reencoded)
	}
}

func TestDeserializeRejectsGarbage(t *testing.T) {
	if _, err := Deserialize[multiMapStruct]("not valid base64!!"); err == nil {
		t.Fatal("expected an error decoding non-base64 input")
	}
}
