package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xela07ax/agentdock/internal/domain"
)

var (
	// ErrNoPublicKey: периметр включен, но ключ оператора не загружен.
	ErrNoPublicKey = errors.New("auth: operator public key is not loaded")
	// ErrInvalidToken оборачивает любую причину отказа в доступе к API.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// RSAVerifier закрывает API AgentDock токенами оператора.
// Принимаются только RS256 подписи; скоупы (chat, registry.write, admin)
// из claims дальше проверяет RequireScope.
type RSAVerifier struct {
	key *rsa.PublicKey
}

func NewRSAVerifier(key *rsa.PublicKey) *RSAVerifier {
	return &RSAVerifier{key: key}
}

// VerifyToken implements TokenValidator. header: значение Authorization,
// с префиксом "Bearer " или без него.
func (v *RSAVerifier) VerifyToken(header string) (*domain.CustomClaims, error) {
	if v.key == nil {
		return nil, ErrNoPublicKey
	}
	raw, _ := strings.CutPrefix(header, "Bearer ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty bearer", ErrInvalidToken)
	}

	claims := &domain.CustomClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return v.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}

// ParseRSAPublicKey читает PEM ключ оператора из auth.public_key конфига.
func ParseRSAPublicKey(pemData []byte) (*rsa.PublicKey, error) {
	if len(pemData) == 0 {
		return nil, errors.New("auth: public key is empty")
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(pemData)
	if err != nil {
		return nil, fmt.Errorf("auth: parse public key: %w", err)
	}
	return key, nil
}
