package areas

import (
	"log"

	"gorm.io/gorm"
)

// RecomputeBreadcrumbs rebuilds the breadcrumb column for the whole tree in a
// single fixed-point recursive query. Roots are rows with a NULL or
// self-referential parent_id; the self-loop guard on the recursive branch
// keeps malformed self-referential rows from looping forever.
//
// Rows whose parent chain never reaches a root (dangling parent_id) are left
// untouched and reported as a warning — a data-quality problem, not an error.
//
// Callers decide the transaction boundary; the importer runs this inside its
// import transaction, the batch tool wraps it on its own.
func RecomputeBreadcrumbs(tx *gorm.DB) (int64, error) {
	res := tx.Exec(`
		WITH RECURSIVE area_hierarchy AS (
			SELECT id, parent_id, ARRAY[id]::text[] AS breadcrumb
			FROM areas
			WHERE parent_id IS NULL OR parent_id = id

			UNION ALL

			SELECT a.id, a.parent_id, ah.breadcrumb || a.id
			FROM areas a
			INNER JOIN area_hierarchy ah ON a.parent_id = ah.id
			WHERE a.id != a.parent_id
		)
		UPDATE areas a
		SET breadcrumb = h.breadcrumb
		FROM area_hierarchy h
		WHERE a.id = h.id`)
	if res.Error != nil {
		return 0, res.Error
	}

	var total int64
	if err := tx.Model(&Area{}).Count(&total).Error; err != nil {
		return res.RowsAffected, err
	}
	if orphans := total - res.RowsAffected; orphans > 0 {
		log.Printf("[Breadcrumbs] %d areas unreachable from any root (dangling parent_id), breadcrumbs not updated", orphans)
	}

	return res.RowsAffected, nil
}
