package areas

import (
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"strings"

	"github.com/VerbClub/VC-Backend/internal/db"
	"github.com/lib/pq"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// AreaInfo is one row of the /info response. Level is the distance from the
// area's root (root = 0); BBox is [minLng, minLat, maxLng, maxLat] or null.
type AreaInfo struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	ParentID *string         `json:"parent_id"`
	BBox     pq.Float64Array `gorm:"type:float8[]" json:"bbox"`
	Leaf     bool            `json:"leaf"`
	Lat      *float64        `json:"lat"`
	Lng      *float64        `json:"lng"`
	Level    int             `json:"level"`
}

// parseIDs splits a comma-separated id list, trimming whitespace and dropping
// empty entries.
func parseIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// sortAreaInfos orders deepest-first, siblings alphabetical (locale-aware,
// case-insensitive).
func sortAreaInfos(infos []AreaInfo) {
	c := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(infos, func(i, j int) bool {
		if infos[i].Level != infos[j].Level {
			return infos[i].Level > infos[j].Level
		}
		return c.CompareString(infos[i].Name, infos[j].Name) < 0
	})
}

// AreaInfoHandler returns the requested areas plus every transitive ancestor,
// annotated with depth and ordered for breadcrumb-trail rendering.
//
// The hierarchy is walked from the roots at read time; the materialized
// breadcrumb column is deliberately not consulted here, so the response stays
// correct even when the cache is stale.
func AreaInfoHandler(w http.ResponseWriter, r *http.Request) {
	ids := parseIDs(r.URL.Query().Get("ids"))
	if len(ids) == 0 {
		writeJSON(w, []AreaInfo{})
		return
	}

	infos := []AreaInfo{}
	err := db.DB.Raw(`
		WITH RECURSIVE area_hierarchy AS (
			SELECT id, parent_id, ARRAY[id]::text[] AS path, 0 AS level
			FROM areas
			WHERE parent_id IS NULL OR parent_id = id

			UNION ALL

			SELECT a.id, a.parent_id, ah.path || a.id, ah.level + 1
			FROM areas a
			INNER JOIN area_hierarchy ah ON a.parent_id = ah.id
			WHERE a.id != a.parent_id
		)
		SELECT
			a.id,
			a.name,
			a.parent_id,
			CASE
				WHEN a.bbox IS NOT NULL THEN
					ARRAY[
						ST_XMin(a.bbox), ST_YMin(a.bbox),
						ST_XMax(a.bbox), ST_YMax(a.bbox)
					]
				ELSE NULL
			END AS bbox,
			a.leaf,
			a.lat,
			a.lng,
			h.level
		FROM area_hierarchy h
		JOIN areas a ON a.id = h.id
		WHERE EXISTS (
			SELECT 1 FROM area_hierarchy t
			WHERE t.id = ANY(?) AND a.id = ANY(t.path)
		)`,
		pq.StringArray(ids),
	).Scan(&infos).Error
	if err != nil {
		log.Printf("[AreaInfo] query: %v", err)
		http.Error(w, "Failed to fetch area info", http.StatusInternalServerError)
		return
	}

	sortAreaInfos(infos)
	writeJSON(w, infos)
}
