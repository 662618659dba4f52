package models

import "github.com/golang-jwt/jwt/v5"

// SessionClaims is the payload of a session token. Subject mirrors UserID.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}
