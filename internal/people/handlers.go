package people

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/VerbClub/VC-Backend/internal/db"
	"github.com/VerbClub/VC-Backend/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// personIDForUser resolves the Person record owned by a user account.
func personIDForUser(userID string) (string, error) {
	var p Person
	err := db.DB.Select("id").First(&p, "user_id = ?", userID).Error
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

// requesterPersonID pulls the userID out of the request context and maps it to
// a person id, writing the appropriate error response on failure.
func requesterPersonID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return "", false
	}
	personID, err := personIDForUser(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Person record not found", http.StatusNotFound)
		} else {
			log.Printf("[People] resolve person for user %s: %v", userID, err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return "", false
	}
	return personID, true
}

// MeHandler returns the Person record for the authenticated user.
func MeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var person Person
	if err := db.DB.First(&person, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Person record not found", http.StatusNotFound)
			return
		}
		log.Printf("[People] fetch me: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, person)
}

// UpdateMeInput carries the PATCH body. Pointers distinguish "absent" from
// "set to empty", so the update statement stays fixed and parameterized.
type UpdateMeInput struct {
	Name        *string `json:"name"`
	PhoneNumber *string `json:"phone_number"`
}

func UpdateMeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var input UpdateMeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var person Person
	if err := db.DB.First(&person, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Person record not found", http.StatusNotFound)
			return
		}
		log.Printf("[People] fetch for update: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	updates := map[string]any{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.PhoneNumber != nil {
		updates["phone_number"] = NormalizePhone(*input.PhoneNumber)
	}
	if len(updates) == 0 {
		http.Error(w, "No fields to update", http.StatusBadRequest)
		return
	}
	updates["updated_at"] = time.Now()

	if err := db.DB.Model(&person).Updates(updates).Error; err != nil {
		log.Printf("[People] update me: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, person)
}

// CreatePersonHandler creates an invite placeholder: a Person with a phone
// number but no user account yet.
func CreatePersonHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name        string `json:"name"`
		PhoneNumber string `json:"phone_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if input.Name == "" || input.PhoneNumber == "" {
		http.Error(w, "Name and phone_number are required", http.StatusBadRequest)
		return
	}

	normalized := NormalizePhone(input.PhoneNumber)
	person := Person{
		ID:          uuid.NewString(),
		Name:        input.Name,
		PhoneNumber: &normalized,
	}
	if err := db.DB.Create(&person).Error; err != nil {
		log.Printf("[People] create person: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(person)
}

// GetPersonHandler returns a single Person. Reads are denied when the target
// person has blocked the requester.
func GetPersonHandler(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := requesterPersonID(w, r)
	if !ok {
		return
	}

	targetID := chi.URLParam(r, "id")

	var person Person
	if err := db.DB.First(&person, "id = ?", targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Person not found", http.StatusNotFound)
			return
		}
		log.Printf("[People] fetch person %s: %v", targetID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var blocked int64
	if err := db.DB.Model(&Block{}).
		Where("person_id = ? AND blocked_person_id = ?", targetID, requesterID).
		Count(&blocked).Error; err != nil {
		log.Printf("[People] block check: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if blocked > 0 {
		http.Error(w, "Access denied", http.StatusForbidden)
		return
	}

	writeJSON(w, person)
}

// ListPeopleHandler is the people directory: everyone except the requester and
// anyone with a block edge in either direction relative to the requester.
func ListPeopleHandler(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := requesterPersonID(w, r)
	if !ok {
		return
	}

	people := []Person{}
	err := db.DB.Raw(`
		SELECT * FROM people
		WHERE id <> ?
		  AND id NOT IN (
			SELECT blocked_person_id FROM people_blocks WHERE person_id = ?
			UNION
			SELECT person_id FROM people_blocks WHERE blocked_person_id = ?
		  )
		ORDER BY name ASC`,
		requesterID, requesterID, requesterID,
	).Scan(&people).Error
	if err != nil {
		log.Printf("[People] directory: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, people)
}

// CounterpartOut is a connection or block counterpart joined with its edge
// metadata.
type CounterpartOut struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	PhoneNumber         *string    `json:"phone_number"`
	UserID              *string    `json:"user_id"`
	ConnectedAt         *time.Time `json:"connected_at,omitempty"`
	InitiatedByPersonID string     `json:"initiated_by_person_id,omitempty"`
	Status              string     `json:"status,omitempty"`
	BlockedAt           *time.Time `json:"blocked_at,omitempty"`
}

// ListConnectionsHandler returns the counterpart for every connection row keyed
// by the requester, deduplicated by counterpart id.
func ListConnectionsHandler(w http.ResponseWriter, r *http.Request) {
	personID, ok := requesterPersonID(w, r)
	if !ok {
		return
	}

	var rows []CounterpartOut
	err := db.DB.Raw(`
		SELECT p.id, p.name, p.phone_number, p.user_id,
		       pc.connected_at, pc.initiated_by_person_id, pc.status
		FROM people_connections pc
		JOIN people p ON p.id = pc.connected_person_id
		WHERE pc.person_id = ? AND pc.status = ?
		ORDER BY pc.connected_at DESC`,
		personID, StatusConnected,
	).Scan(&rows).Error
	if err != nil {
		log.Printf("[Connections] list: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Earlier revisions could surface duplicate rows after person merges;
	// dedupe on output by counterpart id.
	seen := make(map[string]struct{}, len(rows))
	out := make([]CounterpartOut, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.ID]; ok {
			continue
		}
		seen[row.ID] = struct{}{}
		out = append(out, row)
	}

	writeJSON(w, out)
}

// CreateConnectionHandler adds a symmetric friend edge: both directional rows
// in one transaction.
func CreateConnectionHandler(w http.ResponseWriter, r *http.Request) {
	personID, ok := requesterPersonID(w, r)
	if !ok {
		return
	}

	var input struct {
		PersonID string `json:"person_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if input.PersonID == "" {
		http.Error(w, "person_id is required", http.StatusBadRequest)
		return
	}
	targetID := input.PersonID

	if personID == targetID {
		http.Error(w, "Cannot connect to yourself", http.StatusBadRequest)
		return
	}

	var target Person
	if err := db.DB.Select("id").First(&target, "id = ?", targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Target person not found", http.StatusNotFound)
			return
		}
		log.Printf("[Connections] target check: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var existing int64
	if err := db.DB.Model(&Connection{}).
		Where("(person_id = ? AND connected_person_id = ?) OR (person_id = ? AND connected_person_id = ?)",
			personID, targetID, targetID, personID).
		Count(&existing).Error; err != nil {
		log.Printf("[Connections] existing check: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if existing > 0 {
		http.Error(w, "Already connected", http.StatusBadRequest)
		return
	}

	var blocked int64
	if err := db.DB.Model(&Block{}).
		Where("(person_id = ? AND blocked_person_id = ?) OR (person_id = ? AND blocked_person_id = ?)",
			personID, targetID, targetID, personID).
		Count(&blocked).Error; err != nil {
		log.Printf("[Connections] block check: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if blocked > 0 {
		http.Error(w, "Cannot connect - blocked", http.StatusForbidden)
		return
	}

	now := time.Now()
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		pair := []Connection{
			{PersonID: personID, ConnectedPersonID: targetID, InitiatedByPersonID: personID, Status: StatusConnected, ConnectedAt: now},
			{PersonID: targetID, ConnectedPersonID: personID, InitiatedByPersonID: personID, Status: StatusConnected, ConnectedAt: now},
		}
		return tx.Create(&pair).Error
	})
	if err != nil {
		log.Printf("[Connections] create: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "Connection created"})
}

// DeleteConnectionHandler removes both directions of a connection.
func DeleteConnectionHandler(w http.ResponseWriter, r *http.Request) {
	personID, ok := requesterPersonID(w, r)
	if !ok {
		return
	}
	targetID := chi.URLParam(r, "personId")

	res := db.DB.
		Where("(person_id = ? AND connected_person_id = ?) OR (person_id = ? AND connected_person_id = ?)",
			personID, targetID, targetID, personID).
		Delete(&Connection{})
	if res.Error != nil {
		log.Printf("[Connections] delete: %v", res.Error)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if res.RowsAffected == 0 {
		http.Error(w, "Connection not found", http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]string{"message": "Connection removed"})
}

// ListBlocksHandler returns everyone the requester has blocked.
func ListBlocksHandler(w http.ResponseWriter, r *http.Request) {
	personID, ok := requesterPersonID(w, r)
	if !ok {
		return
	}

	rows := []CounterpartOut{}
	err := db.DB.Raw(`
		SELECT p.id, p.name, p.phone_number, p.user_id, pb.blocked_at
		FROM people_blocks pb
		JOIN people p ON p.id = pb.blocked_person_id
		WHERE pb.person_id = ?
		ORDER BY pb.blocked_at DESC`,
		personID,
	).Scan(&rows).Error
	if err != nil {
		log.Printf("[Blocks] list: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, rows)
}

// CreateBlockHandler blocks a person. Any existing connection between the pair
// is removed in the same transaction as the block insert, so a connection and
// a block never coexist.
func CreateBlockHandler(w http.ResponseWriter, r *http.Request) {
	personID, ok := requesterPersonID(w, r)
	if !ok {
		return
	}

	var input struct {
		PersonID string `json:"person_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if input.PersonID == "" {
		http.Error(w, "person_id is required", http.StatusBadRequest)
		return
	}
	targetID := input.PersonID

	if personID == targetID {
		http.Error(w, "Cannot block yourself", http.StatusBadRequest)
		return
	}

	var target Person
	if err := db.DB.Select("id").First(&target, "id = ?", targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Target person not found", http.StatusNotFound)
			return
		}
		log.Printf("[Blocks] target check: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var existing int64
	if err := db.DB.Model(&Block{}).
		Where("person_id = ? AND blocked_person_id = ?", personID, targetID).
		Count(&existing).Error; err != nil {
		log.Printf("[Blocks] existing check: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if existing > 0 {
		http.Error(w, "Already blocked", http.StatusBadRequest)
		return
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("(person_id = ? AND connected_person_id = ?) OR (person_id = ? AND connected_person_id = ?)",
				personID, targetID, targetID, personID).
			Delete(&Connection{}).Error; err != nil {
			return err
		}
		return tx.Create(&Block{PersonID: personID, BlockedPersonID: targetID}).Error
	})
	if err != nil {
		log.Printf("[Blocks] create: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "Person blocked"})
}

// DeleteBlockHandler removes a single directed block.
func DeleteBlockHandler(w http.ResponseWriter, r *http.Request) {
	personID, ok := requesterPersonID(w, r)
	if !ok {
		return
	}
	targetID := chi.URLParam(r, "personId")

	res := db.DB.
		Where("person_id = ? AND blocked_person_id = ?", personID, targetID).
		Delete(&Block{})
	if res.Error != nil {
		log.Printf("[Blocks] delete: %v", res.Error)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if res.RowsAffected == 0 {
		http.Error(w, "Block not found", http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]string{"message": "Person unblocked"})
}
