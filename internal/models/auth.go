package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents staff roles issued by the external identity provider.
type UserRole string

const (
	RoleAdmin  UserRole = "ADMIN"
	RoleBursar UserRole = "BURSAR"
	RoleViewer UserRole = "VIEWER"
)

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// JWTClaims is the access-token payload the dashboard trusts. Tokens are
// issued elsewhere; this service only verifies them.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
