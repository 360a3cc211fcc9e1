package areas

import (
	"log"

	"github.com/VerbClub/VC-Backend/internal/db"
)

func Init() {
	if err := db.DB.Exec(`CREATE EXTENSION IF NOT EXISTS postgis`).Error; err != nil {
		log.Fatal("Failed to enable postgis extension: ", err)
	}

	if err := db.DB.AutoMigrate(&Area{}, &Route{}); err != nil {
		log.Fatal("Failed to auto-migrate area tables: ", err)
	}

	// PostGIS columns are outside gorm's migration vocabulary.
	for _, stmt := range []string{
		`ALTER TABLE areas ADD COLUMN IF NOT EXISTS geometry geometry(Polygon, 4326)`,
		`ALTER TABLE areas ADD COLUMN IF NOT EXISTS centroid geometry(Point, 4326)`,
		`ALTER TABLE areas ADD COLUMN IF NOT EXISTS bbox geometry(Polygon, 4326)`,
		`ALTER TABLE routes ADD COLUMN IF NOT EXISTS geometry geometry(Point, 4326)`,
	} {
		if err := db.DB.Exec(stmt).Error; err != nil {
			log.Fatal("Failed to add geometry column: ", err)
		}
	}
}
