// Package shelf provides the shelf registry for PickLight Core.
//
// The registry is the catalogue of everything the warehouse side of the
// system knows: which ESP32 controllers have announced themselves, which
// shelf each controller is bound to, and which LED ranges make up each
// pick position on a shelf. The gateway command layer and the REST API
// both consult it before touching the wire, and mutate it after a
// controller has acknowledged a configuration change.
//
// # Architecture
//
//	┌────────────────────────────────────────────────────────────────────────┐
//	│                           Shelf Registry                               │
//	│                                                                        │
//	│  ┌──────────────────┐    ┌──────────────────┐    ┌──────────────────┐  │
//	│  │     Registry     │    │    Repository    │    │    Validation    │  │
//	│  │   (registry.go)  │───▶│  (repository.go) │    │ (validation.go)  │  │
//	│  │                  │    │                  │    │                  │  │
//	│  │ • Bindings       │    │ • SQLite queries │    │ • MAC format     │  │
//	│  │ • LED conflicts  │    │ • Transactions   │    │ • Byte ranges    │  │
//	│  │ • In-memory cache│    │ • JSON LED lists │    │ • LED overlap    │  │
//	│  └──────────────────┘    └──────────────────┘    └──────────────────┘  │
//	│           │                       │                                    │
//	└───────────│───────────────────────│────────────────────────────────────┘
//	            │                       │
//	            ▼                       ▼
//	┌──────────────────────┐   ┌──────────────────────┐
//	│   Gateway + REST API │   │   SQLite Database    │
//	│  • command dispatch  │   │  controllers/shelves │
//	│  • /light/* routes   │   │  /positions tables   │
//	└──────────────────────┘   └──────────────────────┘
//
// # Key Types
//
//   - Controller: an ESP32 known from a pbl/register announcement
//   - Shelf: a shelf number bound to exactly one controller MAC
//   - Position: a pick position (id 0-255) owning a set of LED indices
//
// # Usage
//
//	repo := shelf.NewSQLiteRepository(db)
//	registry := shelf.NewRegistry(repo)
//	registry.SetLogger(log)
//
//	// Load everything into the cache on startup. Controllers are marked
//	// offline first; presence is re-learned from pbl/register.
//	if err := registry.Load(ctx); err != nil {
//	    return err
//	}
//
//	// A controller announced itself.
//	created, _ := registry.RegisterController(ctx, "24:6F:28:AE:52:7C")
//
//	// Bind it to shelf 3 and lay out a position.
//	if err := registry.CreateShelf(ctx, 3, "24:6F:28:AE:52:7C"); err != nil {
//	    return err
//	}
//	err := registry.AddPosition(ctx, 3, shelf.Position{ID: 1, LEDs: []int{0, 1, 2}})
//
// # Invariants
//
// A controller MAC is unique. A shelf number is unique and holds exactly
// one MAC; a MAC serves at most one shelf. Position ids are unique per
// shelf, and an LED index belongs to at most one position on its shelf.
// The repository schema enforces the uniqueness rules; the registry
// enforces the LED overlap rule before anything is persisted.
//
// # Thread Safety
//
// The Registry is safe for concurrent use. All operations are protected
// by a read-write mutex, and every record handed out is a deep copy.
package shelf
