package people

import (
	"log"

	"github.com/VerbClub/VC-Backend/internal/db"
)

func Init() {
	if err := db.DB.AutoMigrate(&Person{}, &Connection{}, &Block{}); err != nil {
		log.Fatal("Failed to auto-migrate people tables: ", err)
	}

	// One Person row per registered user; NULLs (invited, unregistered) excluded.
	if err := db.DB.Exec(`
        CREATE UNIQUE INDEX IF NOT EXISTS people_user_id_unique
        ON people (user_id) WHERE user_id IS NOT NULL;
    `).Error; err != nil {
		log.Fatal("Failed to create people_user_id_unique: ", err)
	}
}
