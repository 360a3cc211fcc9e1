package auth

import (
	"log"

	"github.com/VerbClub/VC-Backend/internal/db"
)

// Tokens is the active token service, initialized in Init().
var Tokens *TokenService

func Init() {
	if err := db.DB.AutoMigrate(&User{}, &OAuthProvider{}); err != nil {
		log.Fatal("Failed to auto-migrate auth tables: ", err)
	}

	Tokens = TokenServiceFromEnv()
	initOAuthProviders()
}
