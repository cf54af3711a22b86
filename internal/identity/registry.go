// Package identity implements the packed 16-byte identifier scheme used for
// every addressable entity in Weave, including sub-document entities that are
// never rows in a table. An id carries its tenant scope, creation time, and
// entity type in its bytes, so callers can authorize and route from the id
// text alone without a storage lookup.
package identity

// Entity is the logical name of an addressable entity kind.
type Entity string

const (
	Org        Entity = "Org"
	User       Entity = "User"
	Collection Entity = "Collection"
	Thread     Entity = "Thread"
	Message    Entity = "Message"
	DataSource Entity = "DataSource"
	Upload     Entity = "Upload"

	// Embedded entities live only inside a thread's canvas document.
	CanvasCard      Entity = "CanvasCard"
	CanvasEdge      Entity = "CanvasEdge"
	CanvasComponent Entity = "CanvasComponent"
)

// entityBytes is the single source of truth for the name -> verification
// byte mapping. The reverse map is derived from it at init, never maintained
// by hand.
var entityBytes = map[Entity]byte{
	Org:        0x01,
	User:       0x02,
	Collection: 0x10,
	Thread:     0x11,
	Message:    0x12,
	DataSource: 0x13,
	Upload:     0x14,

	CanvasCard:      0x31,
	CanvasEdge:      0x32,
	CanvasComponent: 0x33,
}

// embeddedEntities are the entities addressable only within a canvas
// document. Must be a subset of entityBytes; asserted at init.
var embeddedEntities = []Entity{CanvasCard, CanvasEdge, CanvasComponent}

var entityNames map[byte]Entity

func init() {
	entityNames = make(map[byte]Entity, len(entityBytes))
	for name, b := range entityBytes {
		if prev, ok := entityNames[b]; ok {
			panic("identity: duplicate entity byte for " + string(prev) + " and " + string(name))
		}
		entityNames[b] = name
	}
	for _, name := range embeddedEntities {
		if _, ok := entityBytes[name]; !ok {
			panic("identity: embedded entity " + string(name) + " missing from registry")
		}
	}
}

// Known reports whether name is a registered entity.
func Known(name Entity) bool {
	_, ok := entityBytes[name]
	return ok
}

// Entities returns all registered entity names.
func Entities() []Entity {
	names := make([]Entity, 0, len(entityBytes))
	for name := range entityBytes {
		names = append(names, name)
	}
	return names
}

// EmbeddedEntities returns the entities that exist only inside canvas
// documents.
func EmbeddedEntities() []Entity {
	out := make([]Entity, len(embeddedEntities))
	copy(out, embeddedEntities)
	return out
}
