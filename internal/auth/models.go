package auth

import "time"

// User is an authenticated account. HashedPassword stays NULL for accounts
// created through an OAuth provider; Email is only set for OAuth accounts and
// drives account linking across providers.
type User struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"uniqueIndex" json:"username"`
	Password       string    `json:"password,omitempty" gorm:"-"`
	HashedPassword *string   `json:"-"`
	Email          *string   `gorm:"index" json:"email,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// OAuthProvider links an external identity to a local user account.
type OAuthProvider struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	UserID         string    `gorm:"index" json:"user_id"`
	Provider       string    `gorm:"index:uniq_oauth_identity,unique" json:"provider"`
	ProviderUserID string    `gorm:"index:uniq_oauth_identity,unique" json:"provider_user_id"`
	Email          string    `json:"email"`
	CreatedAt      time.Time `json:"created_at"`
}

func (User) TableName() string          { return "users" }
func (OAuthProvider) TableName() string { return "oauth_providers" }
