package people_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/VerbClub/VC-Backend/internal/db"
	"github.com/VerbClub/VC-Backend/internal/people"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// staticVerifier maps bearer tokens straight to user IDs, standing in for the
// JWT service so these tests exercise only the social graph.
type staticVerifier struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (v *staticVerifier) VerifyToken(token string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	userID, ok := v.tokens[token]
	if !ok {
		return "", fmt.Errorf("unknown token")
	}
	return userID, nil
}

func (v *staticVerifier) add(token, userID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tokens[token] = userID
}

var (
	dbAvailable bool
	testServer  *httptest.Server
	verifier    = &staticVerifier{tokens: make(map[string]string)}
)

func TestMain(m *testing.M) {
	_ = godotenv.Load("../../.env.local")

	if os.Getenv("DATABASE_URL") == "" {
		os.Exit(m.Run())
	}

	db.Connect()
	dbAvailable = true

	people.Init()

	r := chi.NewRouter()
	r.Mount("/api/people", people.SetupRoutes(verifier))

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

// createLinkedPerson inserts a Person tied to a fresh user ID and registers a
// token for it with the stub verifier. Returns the person ID and token.
func createLinkedPerson(t *testing.T, name string) (personID, token string) {
	t.Helper()

	userID := uuid.NewString()
	phone := fmt.Sprintf("+1520%s", uuid.NewString()[:7])
	person := people.Person{
		ID:          uuid.NewString(),
		Name:        name,
		PhoneNumber: &phone,
		UserID:      &userID,
	}
	if err := db.DB.Create(&person).Error; err != nil {
		t.Fatalf("failed to create person: %v", err)
	}

	token = "tok_" + uuid.NewString()
	verifier.add(token, userID)

	t.Cleanup(func() {
		db.DB.Where("person_id = ? OR connected_person_id = ?", person.ID, person.ID).Delete(&people.Connection{})
		db.DB.Where("person_id = ? OR blocked_person_id = ?", person.ID, person.ID).Delete(&people.Block{})
		db.DB.Where("id = ?", person.ID).Delete(&people.Person{})
	})

	return person.ID, token
}

func doJSON(t *testing.T, method, path, token string, payload any) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, testServer.URL+path, body)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func connect(t *testing.T, token, targetID string) {
	t.Helper()
	resp := doJSON(t, "POST", "/api/people/me/connections", token, map[string]string{"person_id": targetID})
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 creating connection, got %d; body: %s", resp.StatusCode, body)
	}
}

// TestConnectionIsSymmetric verifies a single connect call produces both
// directional rows, so the counterpart appears in both connection lists.
func TestConnectionIsSymmetric(t *testing.T) {
	requireDB(t)

	aliceID, aliceToken := createLinkedPerson(t, "Alice")
	bobID, bobToken := createLinkedPerson(t, "Bob")

	connect(t, aliceToken, bobID)

	var rows int64
	db.DB.Model(&people.Connection{}).
		Where("(person_id = ? AND connected_person_id = ?) OR (person_id = ? AND connected_person_id = ?)",
			aliceID, bobID, bobID, aliceID).
		Count(&rows)
	if rows != 2 {
		t.Fatalf("expected 2 connection rows, got %d", rows)
	}

	// Bob sees Alice even though Alice initiated.
	resp := doJSON(t, "GET", "/api/people/me/connections", bobToken, nil)
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 listing connections, got %d; body: %s", resp.StatusCode, body)
	}

	var list []map[string]any
	if err := json.Unmarshal([]byte(body), &list); err != nil {
		t.Fatalf("invalid JSON body: %s", body)
	}
	found := false
	for _, row := range list {
		if row["id"] == aliceID {
			found = true
			if row["initiated_by_person_id"] != aliceID {
				t.Errorf("expected initiated_by_person_id %s, got %v", aliceID, row["initiated_by_person_id"])
			}
		}
	}
	if !found {
		t.Errorf("expected Alice in Bob's connections: %s", body)
	}
}

// TestConnectRejectsSelfAndDuplicates covers the 400 paths on connection
// creation.
func TestConnectRejectsSelfAndDuplicates(t *testing.T) {
	requireDB(t)

	aliceID, aliceToken := createLinkedPerson(t, "Alice")
	bobID, _ := createLinkedPerson(t, "Bob")

	selfResp := doJSON(t, "POST", "/api/people/me/connections", aliceToken, map[string]string{"person_id": aliceID})
	readBody(t, selfResp)
	if selfResp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 connecting to self, got %d", selfResp.StatusCode)
	}

	connect(t, aliceToken, bobID)

	dupResp := doJSON(t, "POST", "/api/people/me/connections", aliceToken, map[string]string{"person_id": bobID})
	dupBody := readBody(t, dupResp)
	if dupResp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for duplicate connection, got %d; body: %s", dupResp.StatusCode, dupBody)
	}
}

// TestBlockRemovesConnection verifies the block transaction: the connection
// rows vanish, exactly one block row remains, and the blocked person can no
// longer fetch the blocker.
func TestBlockRemovesConnection(t *testing.T) {
	requireDB(t)

	aliceID, aliceToken := createLinkedPerson(t, "Alice")
	bobID, bobToken := createLinkedPerson(t, "Bob")

	connect(t, aliceToken, bobID)

	blockResp := doJSON(t, "POST", "/api/people/me/blocks", bobToken, map[string]string{"person_id": aliceID})
	blockBody := readBody(t, blockResp)
	if blockResp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 creating block, got %d; body: %s", blockResp.StatusCode, blockBody)
	}

	var connections int64
	db.DB.Model(&people.Connection{}).
		Where("(person_id = ? AND connected_person_id = ?) OR (person_id = ? AND connected_person_id = ?)",
			aliceID, bobID, bobID, aliceID).
		Count(&connections)
	if connections != 0 {
		t.Errorf("expected connections removed by block, found %d rows", connections)
	}

	var blocks int64
	db.DB.Model(&people.Block{}).
		Where("person_id = ? AND blocked_person_id = ?", bobID, aliceID).
		Count(&blocks)
	if blocks != 1 {
		t.Errorf("expected exactly 1 block row, got %d", blocks)
	}

	// Alice can no longer read Bob's profile.
	fetchResp := doJSON(t, "GET", "/api/people/"+bobID, aliceToken, nil)
	readBody(t, fetchResp)
	if fetchResp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 fetching blocker's profile, got %d", fetchResp.StatusCode)
	}

	// And connecting again is forbidden in either direction.
	reconnectResp := doJSON(t, "POST", "/api/people/me/connections", aliceToken, map[string]string{"person_id": bobID})
	readBody(t, reconnectResp)
	if reconnectResp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 reconnecting while blocked, got %d", reconnectResp.StatusCode)
	}
}

// TestUnblockRestoresAccess verifies deleting the block makes the profile
// readable again.
func TestUnblockRestoresAccess(t *testing.T) {
	requireDB(t)

	aliceID, aliceToken := createLinkedPerson(t, "Alice")
	bobID, bobToken := createLinkedPerson(t, "Bob")

	blockResp := doJSON(t, "POST", "/api/people/me/blocks", bobToken, map[string]string{"person_id": aliceID})
	readBody(t, blockResp)
	if blockResp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 creating block, got %d", blockResp.StatusCode)
	}

	unblockResp := doJSON(t, "DELETE", "/api/people/me/blocks/"+aliceID, bobToken, nil)
	readBody(t, unblockResp)
	if unblockResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 deleting block, got %d", unblockResp.StatusCode)
	}

	fetchResp := doJSON(t, "GET", "/api/people/"+bobID, aliceToken, nil)
	readBody(t, fetchResp)
	if fetchResp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 fetching profile after unblock, got %d", fetchResp.StatusCode)
	}
}

// TestDeleteConnectionNotFound verifies deleting a nonexistent connection
// returns 404 rather than silently succeeding.
func TestDeleteConnectionNotFound(t *testing.T) {
	requireDB(t)

	_, aliceToken := createLinkedPerson(t, "Alice")
	bobID, _ := createLinkedPerson(t, "Bob")

	resp := doJSON(t, "DELETE", "/api/people/me/connections/"+bobID, aliceToken, nil)
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d; body: %s", resp.StatusCode, body)
	}
}

// TestDirectoryHidesBlockedPeople verifies a block hides each party from the
// other's directory listing.
func TestDirectoryHidesBlockedPeople(t *testing.T) {
	requireDB(t)

	aliceID, aliceToken := createLinkedPerson(t, "Alice")
	bobID, bobToken := createLinkedPerson(t, "Bob")

	blockResp := doJSON(t, "POST", "/api/people/me/blocks", bobToken, map[string]string{"person_id": aliceID})
	readBody(t, blockResp)
	if blockResp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 creating block, got %d", blockResp.StatusCode)
	}

	assertAbsent := func(token, hiddenID string) {
		t.Helper()
		resp := doJSON(t, "GET", "/api/people/", token, nil)
		body := readBody(t, resp)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200 from directory, got %d; body: %s", resp.StatusCode, body)
		}
		var list []map[string]any
		if err := json.Unmarshal([]byte(body), &list); err != nil {
			t.Fatalf("invalid JSON body: %s", body)
		}
		for _, row := range list {
			if row["id"] == hiddenID {
				t.Errorf("expected %s to be hidden from directory", hiddenID)
			}
		}
	}

	assertAbsent(bobToken, aliceID)
	assertAbsent(aliceToken, bobID)
}
