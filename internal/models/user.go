package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a shopper profile row. Identity itself lives in Supabase; this is
// the profile record joined onto the auth subject.
type User struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Email       string    `db:"email" json:"email"`
	Password    string    `db:"password" json:"password"`
	DisplayName string    `db:"display_name" json:"display_name"`
	PhotoURL    string    `db:"photo_url" json:"photo_url"`
	Role        string    `db:"role" json:"role"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
