package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims: полезная нагрузка RS256 токена, которым закрывается API.
type CustomClaims struct {
	Scopes map[string]bool `json:"scopes"` // "registry.write": true, "chat": true
	jwt.RegisteredClaims
}

// Скоупы, которые проверяет периметр.
const (
	ScopeAdmin         = "admin"
	ScopeRegistryWrite = "registry.write"
	ScopeChat          = "chat"
)

// HasScope: admin покрывает все остальные скоупы.
func (c *CustomClaims) HasScope(scope string) bool {
	if c == nil {
		return false
	}
	return c.Scopes[ScopeAdmin] || c.Scopes[scope]
}
