package model

import "time"

// User represents an account in the database.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	IsStaff      bool
	IsSuperuser  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateUserRequest represents a user registration request.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=5,max=128"`
	Name     string `json:"name" validate:"max=255"`
}

// LoginRequest represents a token issuance request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateUserRequest represents a partial profile update. Nil fields are left untouched.
type UpdateUserRequest struct {
	Email    *string `json:"email" validate:"omitnil,required,email,max=255"`
	Password *string `json:"password" validate:"omitnil,min=5,max=128"`
	Name     *string `json:"name" validate:"omitnil,max=255"`
}

// TokenResponse represents an issued bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// UserResponse represents user data safe for API responses (no credential fields).
type UserResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// ToResponse strips the credential and flags from a User.
func (u *User) ToResponse() UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Name: u.Name}
}
