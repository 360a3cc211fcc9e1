package areas

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// Area is a node in the geographic hierarchy. ParentID is NULL for roots
// (legacy imports also carry self-referential roots; both are treated as
// roots). Breadcrumb is the materialized root-to-self id path, refreshed by
// RecomputeBreadcrumbs — it is a cache, not the source of truth.
//
// The PostGIS columns (geometry, centroid, bbox) are managed with raw SQL in
// Init() and the importer; gorm only migrates the plain columns.
type Area struct {
	ID          string          `gorm:"primaryKey" json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	ParentID    *string         `gorm:"index" json:"parent_id"`
	Lat         *float64        `json:"lat"`
	Lng         *float64        `json:"lng"`
	Leaf        bool            `json:"leaf"`
	Breadcrumb  pq.StringArray  `gorm:"type:text[]" json:"breadcrumb"`
	Metadata    json.RawMessage `gorm:"type:jsonb" json:"metadata"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Route is a single climb attached to a leaf area.
type Route struct {
	ID          string          `gorm:"primaryKey" json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Grade       *string         `json:"grade"`
	AreaID      string          `gorm:"index" json:"area_id"`
	Lat         *float64        `json:"lat"`
	Lng         *float64        `json:"lng"`
	TypeSport   bool            `json:"type_sport"`
	TypeTrad    bool            `json:"type_trad"`
	TypeToprope bool            `json:"type_toprope"`
	Metadata    json.RawMessage `gorm:"type:jsonb" json:"metadata"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (Area) TableName() string  { return "areas" }
func (Route) TableName() string { return "routes" }
