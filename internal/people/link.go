package people

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LinkPersonToUser attaches a freshly registered user to their Person record.
//
// With no phone number the user gets a bare Person named after their username.
// Otherwise unclaimed Person rows matching the normalized phone are resolved:
// zero matches creates a new linked row, one match is linked directly, and
// multiple matches are merged into the oldest — surviving social-graph edges
// are re-pointed to the primary before the duplicates are deleted.
//
// Callers must pass a transaction; the merge is multi-statement.
func LinkPersonToUser(tx *gorm.DB, phoneNumber, userID, defaultName string) (string, error) {
	if phoneNumber == "" {
		p := Person{
			ID:     uuid.NewString(),
			Name:   defaultName,
			UserID: &userID,
		}
		if err := tx.Create(&p).Error; err != nil {
			return "", fmt.Errorf("create person: %w", err)
		}
		return p.ID, nil
	}

	normalized := NormalizePhone(phoneNumber)

	var matches []Person
	if err := tx.
		Where("phone_number = ? AND user_id IS NULL", normalized).
		Order("created_at ASC").
		Find(&matches).Error; err != nil {
		return "", fmt.Errorf("find unclaimed people: %w", err)
	}

	if len(matches) == 0 {
		p := Person{
			ID:          uuid.NewString(),
			Name:        defaultName,
			PhoneNumber: &normalized,
			UserID:      &userID,
		}
		if err := tx.Create(&p).Error; err != nil {
			return "", fmt.Errorf("create person: %w", err)
		}
		return p.ID, nil
	}

	// Oldest record wins; the rest are merged into it.
	primary := matches[0]
	losers := matches[1:]

	if err := tx.Model(&Person{}).Where("id = ?", primary.ID).
		Update("user_id", userID).Error; err != nil {
		return "", fmt.Errorf("link person: %w", err)
	}

	if len(losers) > 0 {
		loserIDs := make([]string, len(losers))
		for i, p := range losers {
			loserIDs[i] = p.ID
		}
		log.Printf("[PersonLink] merging %d duplicate people into %s (phone %s)", len(losers), primary.ID, normalized)

		if err := repointEdges(tx, primary.ID, loserIDs); err != nil {
			return "", err
		}
		if err := tx.Where("id IN ?", loserIDs).Delete(&Person{}).Error; err != nil {
			return "", fmt.Errorf("delete merged people: %w", err)
		}
	}

	return primary.ID, nil
}

// repointEdges moves connection and block edges off the merged duplicates onto
// the primary person. Edges that would become self-referential or duplicate an
// edge the primary already holds are dropped instead of moved.
func repointEdges(tx *gorm.DB, primaryID string, loserIDs []string) error {
	var conns []Connection
	if err := tx.
		Where("person_id IN ? OR connected_person_id IN ?", loserIDs, loserIDs).
		Find(&conns).Error; err != nil {
		return fmt.Errorf("load connections for merge: %w", err)
	}

	loserSet := make(map[string]struct{}, len(loserIDs))
	for _, id := range loserIDs {
		loserSet[id] = struct{}{}
	}

	for _, c := range conns {
		newFrom, newTo := c.PersonID, c.ConnectedPersonID
		if _, ok := loserSet[newFrom]; ok {
			newFrom = primaryID
		}
		if _, ok := loserSet[newTo]; ok {
			newTo = primaryID
		}

		if err := tx.Where("person_id = ? AND connected_person_id = ?",
			c.PersonID, c.ConnectedPersonID).Delete(&Connection{}).Error; err != nil {
			return fmt.Errorf("remove stale connection: %w", err)
		}

		if newFrom == newTo {
			continue
		}

		initiatedBy := c.InitiatedByPersonID
		if _, ok := loserSet[initiatedBy]; ok {
			initiatedBy = primaryID
		}

		moved := Connection{
			PersonID:            newFrom,
			ConnectedPersonID:   newTo,
			InitiatedByPersonID: initiatedBy,
			Status:              c.Status,
			ConnectedAt:         c.ConnectedAt,
		}
		var existing int64
		if err := tx.Model(&Connection{}).
			Where("person_id = ? AND connected_person_id = ?", newFrom, newTo).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("check moved connection: %w", err)
		}
		if existing > 0 {
			continue
		}
		if err := tx.Create(&moved).Error; err != nil {
			return fmt.Errorf("re-point connection: %w", err)
		}
	}

	var blocks []Block
	if err := tx.
		Where("person_id IN ? OR blocked_person_id IN ?", loserIDs, loserIDs).
		Find(&blocks).Error; err != nil {
		return fmt.Errorf("load blocks for merge: %w", err)
	}

	for _, blk := range blocks {
		newFrom, newTo := blk.PersonID, blk.BlockedPersonID
		if _, ok := loserSet[newFrom]; ok {
			newFrom = primaryID
		}
		if _, ok := loserSet[newTo]; ok {
			newTo = primaryID
		}

		if err := tx.Where("person_id = ? AND blocked_person_id = ?",
			blk.PersonID, blk.BlockedPersonID).Delete(&Block{}).Error; err != nil {
			return fmt.Errorf("remove stale block: %w", err)
		}

		if newFrom == newTo {
			continue
		}

		var existing int64
		if err := tx.Model(&Block{}).
			Where("person_id = ? AND blocked_person_id = ?", newFrom, newTo).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("check moved block: %w", err)
		}
		if existing > 0 {
			continue
		}
		moved := Block{PersonID: newFrom, BlockedPersonID: newTo, BlockedAt: blk.BlockedAt}
		if err := tx.Create(&moved).Error; err != nil {
			return fmt.Errorf("re-point block: %w", err)
		}
	}

	// Re-pointing can land a block next to a connection the primary already
	// held with the same counterpart (or vice versa). A block and a connection
	// never coexist between a pair, and the block wins, so drop any connection
	// touching the primary whose pair is blocked in either direction.
	if err := tx.Exec(`
		DELETE FROM people_connections pc
		USING people_blocks pb
		WHERE (pc.person_id = ? OR pc.connected_person_id = ?)
		  AND ((pb.person_id = pc.person_id AND pb.blocked_person_id = pc.connected_person_id)
		    OR (pb.person_id = pc.connected_person_id AND pb.blocked_person_id = pc.person_id))`,
		primaryID, primaryID).Error; err != nil {
		return fmt.Errorf("remove connections shadowed by blocks: %w", err)
	}

	return nil
}
