package areas_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/VerbClub/VC-Backend/internal/areas"
	"github.com/VerbClub/VC-Backend/internal/db"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

var (
	dbAvailable bool
	testServer  *httptest.Server
)

func TestMain(m *testing.M) {
	_ = godotenv.Load("../../.env.local")

	if os.Getenv("DATABASE_URL") == "" {
		os.Exit(m.Run())
	}

	db.Connect()
	dbAvailable = true

	areas.Init()

	r := chi.NewRouter()
	r.Mount("/api/areas", areas.SetupRoutes())

	testServer = httptest.NewServer(r)
	defer testServer.Close()

	os.Exit(m.Run())
}

func requireDB(t *testing.T) {
	t.Helper()
	if testing.Short() || !dbAvailable {
		t.Skip("skipping integration test (requires DATABASE_URL)")
	}
}

// createTree inserts a four-deep chain (root > state > crag > wall) and
// registers cleanup. Returns the IDs top-down.
func createTree(t *testing.T) (rootID, stateID, cragID, wallID string) {
	t.Helper()

	rootID = uuid.NewString()
	stateID = uuid.NewString()
	cragID = uuid.NewString()
	wallID = uuid.NewString()

	rows := []areas.Area{
		{ID: rootID, Name: "USA"},
		{ID: stateID, Name: "Arizona", ParentID: &rootID},
		{ID: cragID, Name: "Mount Lemmon", ParentID: &stateID},
		{ID: wallID, Name: "Prison Camp", ParentID: &cragID, Leaf: true},
	}
	for i := range rows {
		if err := db.DB.Create(&rows[i]).Error; err != nil {
			t.Fatalf("failed to create area: %v", err)
		}
	}

	t.Cleanup(func() {
		db.DB.Where("id IN ?", []string{rootID, stateID, cragID, wallID}).Delete(&areas.Area{})
	})

	return rootID, stateID, cragID, wallID
}

func getInfo(t *testing.T, query string) (int, []areas.AreaInfo, string) {
	t.Helper()

	resp, err := http.Get(testServer.URL + "/api/areas/info" + query)
	if err != nil {
		t.Fatalf("GET /api/areas/info: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	var infos []areas.AreaInfo
	if resp.StatusCode == http.StatusOK {
		if err := json.Unmarshal(raw, &infos); err != nil {
			t.Fatalf("invalid JSON body: %s", raw)
		}
	}
	return resp.StatusCode, infos, string(raw)
}

// TestAreaInfoReturnsAncestorChain verifies requesting a deep leaf returns the
// leaf plus every transitive ancestor, deepest first, with root-relative
// levels.
func TestAreaInfoReturnsAncestorChain(t *testing.T) {
	requireDB(t)

	rootID, stateID, cragID, wallID := createTree(t)

	status, infos, body := getInfo(t, "?ids="+wallID)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d; body: %s", status, body)
	}
	if len(infos) != 4 {
		t.Fatalf("expected 4 records, got %d: %s", len(infos), body)
	}

	wantOrder := []struct {
		id    string
		level int
	}{
		{wallID, 3},
		{cragID, 2},
		{stateID, 1},
		{rootID, 0},
	}
	for i, want := range wantOrder {
		if infos[i].ID != want.id {
			t.Errorf("position %d: expected area %s, got %s", i, want.id, infos[i].ID)
		}
		if infos[i].Level != want.level {
			t.Errorf("position %d: expected level %d, got %d", i, want.level, infos[i].Level)
		}
	}

	if !infos[0].Leaf {
		t.Error("expected the wall to be marked leaf")
	}
	if infos[3].ParentID != nil {
		t.Error("expected root parent_id to be null")
	}
}

// TestAreaInfoDeduplicatesSharedAncestors verifies requesting two siblings
// returns their shared ancestors once.
func TestAreaInfoDeduplicatesSharedAncestors(t *testing.T) {
	requireDB(t)

	rootID, stateID, cragID, _ := createTree(t)

	otherCragID := uuid.NewString()
	if err := db.DB.Create(&areas.Area{ID: otherCragID, Name: "Cochise Stronghold", ParentID: &stateID}).Error; err != nil {
		t.Fatalf("failed to create sibling area: %v", err)
	}
	t.Cleanup(func() {
		db.DB.Where("id = ?", otherCragID).Delete(&areas.Area{})
	})

	status, infos, body := getInfo(t, "?ids="+cragID+","+otherCragID)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d; body: %s", status, body)
	}

	// Two crags plus state plus root, each exactly once.
	if len(infos) != 4 {
		t.Fatalf("expected 4 records, got %d: %s", len(infos), body)
	}
	counts := map[string]int{}
	for _, info := range infos {
		counts[info.ID]++
	}
	for _, id := range []string{rootID, stateID, cragID, otherCragID} {
		if counts[id] != 1 {
			t.Errorf("expected area %s exactly once, got %d", id, counts[id])
		}
	}

	// Siblings share a level and sort alphabetically within it.
	if infos[0].Name != "Cochise Stronghold" || infos[1].Name != "Mount Lemmon" {
		t.Errorf("expected siblings in alphabetical order, got %s then %s", infos[0].Name, infos[1].Name)
	}
}

// TestAreaInfoEmptyAndUnknownIDs verifies the empty-list and unknown-id
// behaviors both return empty arrays, not errors.
func TestAreaInfoEmptyAndUnknownIDs(t *testing.T) {
	requireDB(t)

	for _, query := range []string{"", "?ids=", "?ids=" + uuid.NewString()} {
		status, infos, body := getInfo(t, query)
		if status != http.StatusOK {
			t.Errorf("query %q: expected 200, got %d; body: %s", query, status, body)
		}
		if len(infos) != 0 {
			t.Errorf("query %q: expected empty array, got %s", query, body)
		}
	}
}

// TestRecomputeBreadcrumbs verifies the cache refresh writes the full
// root-to-node path for every reachable area.
func TestRecomputeBreadcrumbs(t *testing.T) {
	requireDB(t)

	rootID, stateID, cragID, wallID := createTree(t)

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		_, err := areas.RecomputeBreadcrumbs(tx)
		return err
	})
	if err != nil {
		t.Fatalf("RecomputeBreadcrumbs: %v", err)
	}

	var wall areas.Area
	if err := db.DB.First(&wall, "id = ?", wallID).Error; err != nil {
		t.Fatalf("fetch wall: %v", err)
	}

	want := []string{rootID, stateID, cragID, wallID}
	if len(wall.Breadcrumb) != len(want) {
		t.Fatalf("expected breadcrumb %v, got %v", want, wall.Breadcrumb)
	}
	for i := range want {
		if wall.Breadcrumb[i] != want[i] {
			t.Fatalf("expected breadcrumb %v, got %v", want, wall.Breadcrumb)
		}
	}

	var root areas.Area
	if err := db.DB.First(&root, "id = ?", rootID).Error; err != nil {
		t.Fatalf("fetch root: %v", err)
	}
	if len(root.Breadcrumb) != 1 || root.Breadcrumb[0] != rootID {
		t.Errorf("expected root breadcrumb [%s], got %v", rootID, root.Breadcrumb)
	}
}
