package models

import "time"

// User represents a row in the PostgreSQL users table.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"` // never serialize
	CreatedAt time.Time `json:"created_at"`
}

// UserPreference mirrors the user_preferences table. Nothing writes it yet.
type UserPreference struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	FavoriteGenre string    `json:"favorite_genre"`
	FavoriteMovie string    `json:"favorite_movie"`
	CreatedAt     time.Time `json:"created_at"`
}

// Profile is the public view of a user returned by /api/auth/me.
type Profile struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// RegisterRequest is the JSON body for POST /api/auth/register.
type RegisterRequest struct {
	Username        string `json:"username"         validate:"required"`
	Email           string `json:"email"            validate:"required"`
	Password        string `json:"password"         validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// LoginRequest is the JSON body for POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
