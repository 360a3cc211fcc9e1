package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/VerbClub/VC-Backend/internal/db"
	"github.com/VerbClub/VC-Backend/internal/people"
	"github.com/VerbClub/VC-Backend/internal/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username    string `json:"username"`
		Password    string `json:"password"`
		PhoneNumber string `json:"phone_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if input.Username == "" || input.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	var existing User
	err := db.DB.First(&existing, "username = ?", input.Username).Error
	if err == nil {
		http.Error(w, "Username already taken", http.StatusConflict)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("[Auth] register lookup: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Server error hashing password", http.StatusInternalServerError)
		return
	}

	hashedStr := string(hashed)
	user := User{
		ID:             uuid.NewString(),
		Username:       input.Username,
		HashedPassword: &hashedStr,
	}

	// User creation and person linking succeed or fail together.
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		_, err := people.LinkPersonToUser(tx, input.PhoneNumber, user.ID, input.Username)
		return err
	})
	if err != nil {
		log.Printf("[Auth] register: %v", err)
		http.Error(w, "Failed to register user", http.StatusInternalServerError)
		return
	}

	token, err := Tokens.Sign(user.ID)
	if err != nil {
		log.Printf("[Auth] sign token: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
}

func LoginHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var user User
	if err := db.DB.First(&user, "username = ?", input.Username).Error; err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	// OAuth-only accounts have no password hash.
	if user.HashedPassword == nil {
		http.Error(w, "This account uses OAuth login. Please sign in with your OAuth provider.", http.StatusUnauthorized)
		return
	}
	if input.Password == "" {
		http.Error(w, "Password is required", http.StatusUnauthorized)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.HashedPassword), []byte(input.Password)); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := Tokens.Sign(user.ID)
	if err != nil {
		log.Printf("[Auth] sign token: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]string{"token": token})
}

type MeResponse struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Email    *string `json:"email,omitempty"`
}

func MeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var user User
	if err := db.DB.First(&user, "id = ?", userID).Error; err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	writeJSON(w, MeResponse{ID: user.ID, Username: user.Username, Email: user.Email})
}
