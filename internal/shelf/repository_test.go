package shelf

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/picklight-core/internal/infrastructure/database"

	// Registers the embedded schema migrations.
	_ "github.com/nerrad567/picklight-core/migrations"
)

// setupRepo opens a migrated SQLite database in a temp directory and
// returns a repository backed by it. Foreign keys are on, so position
// rows cascade and shelf inserts enforce controller existence exactly
// as in production.
func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "shelf_test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	return NewSQLiteRepository(db.DB)
}

// seedController registers a controller directly through the repository.
func seedController(t *testing.T, repo *SQLiteRepository, mac string) {
	t.Helper()
	c := &Controller{MACAddress: mac, Online: true}
	if err := repo.CreateController(context.Background(), c); err != nil {
		t.Fatalf("CreateController(%s) error = %v", mac, err)
	}
}

// =============================================================================
// Controllers
// =============================================================================

func TestSQLiteRepository_CreateController(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	t.Run("creates and retrieves controller", func(t *testing.T) {
		seen := time.Now().UTC().Truncate(time.Second)
		c := &Controller{
			MACAddress: "AA:BB:CC:DD:EE:01",
			Used:       false,
			Online:     true,
			FirstSeen:  seen,
			LastSeen:   seen,
		}
		if err := repo.CreateController(ctx, c); err != nil {
			t.Fatalf("CreateController() error = %v", err)
		}

		got, err := repo.GetController(ctx, "AA:BB:CC:DD:EE:01")
		if err != nil {
			t.Fatalf("GetController() error = %v", err)
		}
		if got.MACAddress != "AA:BB:CC:DD:EE:01" {
			t.Errorf("MACAddress = %q, want %q", got.MACAddress, "AA:BB:CC:DD:EE:01")
		}
		if got.Used {
			t.Error("Used = true, want false")
		}
		if !got.Online {
			t.Error("Online = false, want true")
		}
		if !got.FirstSeen.Equal(seen) {
			t.Errorf("FirstSeen = %v, want %v", got.FirstSeen, seen)
		}
	})

	t.Run("fills zero timestamps", func(t *testing.T) {
		c := &Controller{MACAddress: "AA:BB:CC:DD:EE:02"}
		if err := repo.CreateController(ctx, c); err != nil {
			t.Fatalf("CreateController() error = %v", err)
		}
		if c.FirstSeen.IsZero() || c.LastSeen.IsZero() {
			t.Error("CreateController() left zero timestamps")
		}
	})

	t.Run("returns error for duplicate MAC", func(t *testing.T) {
		seedController(t, repo, "AA:BB:CC:DD:EE:03")
		err := repo.CreateController(ctx, &Controller{MACAddress: "AA:BB:CC:DD:EE:03"})
		if !errors.Is(err, ErrControllerExists) {
			t.Errorf("CreateController() error = %v, want ErrControllerExists", err)
		}
	})
}

func TestSQLiteRepository_GetController_NotFound(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.GetController(context.Background(), "00:00:00:00:00:00")
	if !errors.Is(err, ErrControllerNotFound) {
		t.Errorf("GetController() error = %v, want ErrControllerNotFound", err)
	}
}

func TestSQLiteRepository_SetControllerOnline(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	seedController(t, repo, "AA:BB:CC:DD:EE:10")

	t.Run("marks offline and updates last seen", func(t *testing.T) {
		seen := time.Now().UTC().Add(time.Minute).Truncate(time.Second)
		if err := repo.SetControllerOnline(ctx, "AA:BB:CC:DD:EE:10", false, seen); err != nil {
			t.Fatalf("SetControllerOnline() error = %v", err)
		}

		got, err := repo.GetController(ctx, "AA:BB:CC:DD:EE:10")
		if err != nil {
			t.Fatalf("GetController() error = %v", err)
		}
		if got.Online {
			t.Error("Online = true, want false")
		}
		if !got.LastSeen.Equal(seen) {
			t.Errorf("LastSeen = %v, want %v", got.LastSeen, seen)
		}
	})

	t.Run("returns error for unknown MAC", func(t *testing.T) {
		err := repo.SetControllerOnline(ctx, "00:00:00:00:00:00", true, time.Now())
		if !errors.Is(err, ErrControllerNotFound) {
			t.Errorf("SetControllerOnline() error = %v, want ErrControllerNotFound", err)
		}
	})
}

func TestSQLiteRepository_MarkAllControllersOffline(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	seedController(t, repo, "AA:BB:CC:DD:EE:20")
	seedController(t, repo, "AA:BB:CC:DD:EE:21")

	if err := repo.MarkAllControllersOffline(ctx); err != nil {
		t.Fatalf("MarkAllControllersOffline() error = %v", err)
	}

	controllers, err := repo.ListControllers(ctx)
	if err != nil {
		t.Fatalf("ListControllers() error = %v", err)
	}
	if len(controllers) != 2 {
		t.Fatalf("len(controllers) = %d, want 2", len(controllers))
	}
	for _, c := range controllers {
		if c.Online {
			t.Errorf("controller %s still online after MarkAllControllersOffline", c.MACAddress)
		}
	}
}

func TestSQLiteRepository_ListControllers_Ordering(t *testing.T) {
	repo := setupRepo(t)
	seedController(t, repo, "CC:00:00:00:00:00")
	seedController(t, repo, "AA:00:00:00:00:00")
	seedController(t, repo, "BB:00:00:00:00:00")

	controllers, err := repo.ListControllers(context.Background())
	if err != nil {
		t.Fatalf("ListControllers() error = %v", err)
	}

	want := []string{"AA:00:00:00:00:00", "BB:00:00:00:00:00", "CC:00:00:00:00:00"}
	for i, mac := range want {
		if controllers[i].MACAddress != mac {
			t.Errorf("controllers[%d] = %s, want %s", i, controllers[i].MACAddress, mac)
		}
	}
}

// =============================================================================
// Shelves
// =============================================================================

func TestSQLiteRepository_CreateShelf(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	seedController(t, repo, "AA:BB:CC:DD:EE:30")
	seedController(t, repo, "AA:BB:CC:DD:EE:31")

	t.Run("creates shelf and marks controller used", func(t *testing.T) {
		s := &Shelf{Number: 1, MACAddress: "AA:BB:CC:DD:EE:30"}
		if err := repo.CreateShelf(ctx, s); err != nil {
			t.Fatalf("CreateShelf() error = %v", err)
		}

		got, err := repo.GetShelf(ctx, 1)
		if err != nil {
			t.Fatalf("GetShelf() error = %v", err)
		}
		if got.MACAddress != "AA:BB:CC:DD:EE:30" {
			t.Errorf("MACAddress = %q, want %q", got.MACAddress, "AA:BB:CC:DD:EE:30")
		}
		if got.Positions == nil || len(got.Positions) != 0 {
			t.Errorf("Positions = %v, want empty non-nil slice", got.Positions)
		}

		c, err := repo.GetController(ctx, "AA:BB:CC:DD:EE:30")
		if err != nil {
			t.Fatalf("GetController() error = %v", err)
		}
		if !c.Used {
			t.Error("controller not marked used after CreateShelf")
		}
	})

	t.Run("returns error for taken number", func(t *testing.T) {
		err := repo.CreateShelf(ctx, &Shelf{Number: 1, MACAddress: "AA:BB:CC:DD:EE:31"})
		if !errors.Is(err, ErrShelfExists) {
			t.Errorf("CreateShelf() error = %v, want ErrShelfExists", err)
		}
	})

	t.Run("returns error for MAC already bound", func(t *testing.T) {
		err := repo.CreateShelf(ctx, &Shelf{Number: 2, MACAddress: "AA:BB:CC:DD:EE:30"})
		if !errors.Is(err, ErrControllerInUse) {
			t.Errorf("CreateShelf() error = %v, want ErrControllerInUse", err)
		}
	})

	t.Run("returns error for unregistered MAC", func(t *testing.T) {
		err := repo.CreateShelf(ctx, &Shelf{Number: 3, MACAddress: "00:00:00:00:00:00"})
		if !errors.Is(err, ErrControllerNotFound) {
			t.Errorf("CreateShelf() error = %v, want ErrControllerNotFound", err)
		}
	})
}

func TestSQLiteRepository_DeleteShelf(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	seedController(t, repo, "AA:BB:CC:DD:EE:40")

	if err := repo.CreateShelf(ctx, &Shelf{Number: 7, MACAddress: "AA:BB:CC:DD:EE:40"}); err != nil {
		t.Fatalf("CreateShelf() error = %v", err)
	}
	if err := repo.CreatePosition(ctx, &Position{ShelfNumber: 7, ID: 1, LEDs: []int{0, 1}}); err != nil {
		t.Fatalf("CreatePosition() error = %v", err)
	}

	t.Run("removes shelf, cascades positions, releases controller", func(t *testing.T) {
		if err := repo.DeleteShelf(ctx, 7); err != nil {
			t.Fatalf("DeleteShelf() error = %v", err)
		}

		if _, err := repo.GetShelf(ctx, 7); !errors.Is(err, ErrShelfNotFound) {
			t.Errorf("GetShelf() error = %v, want ErrShelfNotFound", err)
		}

		positions, err := repo.ListPositions(ctx, 7)
		if err != nil {
			t.Fatalf("ListPositions() error = %v", err)
		}
		if len(positions) != 0 {
			t.Errorf("len(positions) = %d, want 0 after cascade", len(positions))
		}

		c, err := repo.GetController(ctx, "AA:BB:CC:DD:EE:40")
		if err != nil {
			t.Fatalf("GetController() error = %v", err)
		}
		if c.Used {
			t.Error("controller still marked used after DeleteShelf")
		}
	})

	t.Run("returns error for unknown shelf", func(t *testing.T) {
		if err := repo.DeleteShelf(ctx, 99); !errors.Is(err, ErrShelfNotFound) {
			t.Errorf("DeleteShelf() error = %v, want ErrShelfNotFound", err)
		}
	})
}

func TestSQLiteRepository_ListShelves(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	seedController(t, repo, "AA:BB:CC:DD:EE:50")
	seedController(t, repo, "AA:BB:CC:DD:EE:51")

	if err := repo.CreateShelf(ctx, &Shelf{Number: 2, MACAddress: "AA:BB:CC:DD:EE:51"}); err != nil {
		t.Fatalf("CreateShelf() error = %v", err)
	}
	if err := repo.CreateShelf(ctx, &Shelf{Number: 1, MACAddress: "AA:BB:CC:DD:EE:50"}); err != nil {
		t.Fatalf("CreateShelf() error = %v", err)
	}
	if err := repo.CreatePosition(ctx, &Position{ShelfNumber: 2, ID: 5, LEDs: []int{7, 8}}); err != nil {
		t.Fatalf("CreatePosition() error = %v", err)
	}
	if err := repo.CreatePosition(ctx, &Position{ShelfNumber: 2, ID: 1, LEDs: []int{1}}); err != nil {
		t.Fatalf("CreatePosition() error = %v", err)
	}

	shelves, err := repo.ListShelves(ctx)
	if err != nil {
		t.Fatalf("ListShelves() error = %v", err)
	}
	if len(shelves) != 2 {
		t.Fatalf("len(shelves) = %d, want 2", len(shelves))
	}
	if shelves[0].Number != 1 || shelves[1].Number != 2 {
		t.Errorf("shelves ordered %d, %d, want 1, 2", shelves[0].Number, shelves[1].Number)
	}
	if len(shelves[0].Positions) != 0 {
		t.Errorf("shelf 1 has %d positions, want 0", len(shelves[0].Positions))
	}
	if len(shelves[1].Positions) != 2 {
		t.Fatalf("shelf 2 has %d positions, want 2", len(shelves[1].Positions))
	}
	if shelves[1].Positions[0].ID != 1 || shelves[1].Positions[1].ID != 5 {
		t.Errorf("positions ordered %d, %d, want 1, 5",
			shelves[1].Positions[0].ID, shelves[1].Positions[1].ID)
	}
}

// =============================================================================
// Positions
// =============================================================================

func TestSQLiteRepository_Positions(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	seedController(t, repo, "AA:BB:CC:DD:EE:60")
	if err := repo.CreateShelf(ctx, &Shelf{Number: 4, MACAddress: "AA:BB:CC:DD:EE:60"}); err != nil {
		t.Fatalf("CreateShelf() error = %v", err)
	}

	t.Run("creates position and round-trips LED list", func(t *testing.T) {
		p := &Position{ShelfNumber: 4, ID: 9, LEDs: []int{3, 4, 5, 200}}
		if err := repo.CreatePosition(ctx, p); err != nil {
			t.Fatalf("CreatePosition() error = %v", err)
		}

		positions, err := repo.ListPositions(ctx, 4)
		if err != nil {
			t.Fatalf("ListPositions() error = %v", err)
		}
		if len(positions) != 1 {
			t.Fatalf("len(positions) = %d, want 1", len(positions))
		}
		got := positions[0]
		if got.ID != 9 {
			t.Errorf("ID = %d, want 9", got.ID)
		}
		if len(got.LEDs) != 4 || got.LEDs[3] != 200 {
			t.Errorf("LEDs = %v, want [3 4 5 200]", got.LEDs)
		}
	})

	t.Run("returns error for duplicate id", func(t *testing.T) {
		err := repo.CreatePosition(ctx, &Position{ShelfNumber: 4, ID: 9, LEDs: []int{50}})
		if !errors.Is(err, ErrPositionExists) {
			t.Errorf("CreatePosition() error = %v, want ErrPositionExists", err)
		}
	})

	t.Run("returns error for unknown shelf", func(t *testing.T) {
		err := repo.CreatePosition(ctx, &Position{ShelfNumber: 99, ID: 1, LEDs: []int{1}})
		if !errors.Is(err, ErrShelfNotFound) {
			t.Errorf("CreatePosition() error = %v, want ErrShelfNotFound", err)
		}
	})

	t.Run("updates LED list", func(t *testing.T) {
		p := &Position{ShelfNumber: 4, ID: 9, LEDs: []int{100, 101}}
		if err := repo.UpdatePosition(ctx, p); err != nil {
			t.Fatalf("UpdatePosition() error = %v", err)
		}

		positions, err := repo.ListPositions(ctx, 4)
		if err != nil {
			t.Fatalf("ListPositions() error = %v", err)
		}
		if len(positions[0].LEDs) != 2 || positions[0].LEDs[0] != 100 {
			t.Errorf("LEDs = %v, want [100 101]", positions[0].LEDs)
		}
	})

	t.Run("update returns error for unknown position", func(t *testing.T) {
		err := repo.UpdatePosition(ctx, &Position{ShelfNumber: 4, ID: 42, LEDs: []int{1}})
		if !errors.Is(err, ErrPositionNotFound) {
			t.Errorf("UpdatePosition() error = %v, want ErrPositionNotFound", err)
		}
	})

	t.Run("deletes position", func(t *testing.T) {
		if err := repo.DeletePosition(ctx, 4, 9); err != nil {
			t.Fatalf("DeletePosition() error = %v", err)
		}
		positions, err := repo.ListPositions(ctx, 4)
		if err != nil {
			t.Fatalf("ListPositions() error = %v", err)
		}
		if len(positions) != 0 {
			t.Errorf("len(positions) = %d, want 0", len(positions))
		}
	})

	t.Run("delete returns error for unknown position", func(t *testing.T) {
		if err := repo.DeletePosition(ctx, 4, 9); !errors.Is(err, ErrPositionNotFound) {
			t.Errorf("DeletePosition() error = %v, want ErrPositionNotFound", err)
		}
	})
}
