package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/lestrrat-go/jwx/jwk"
)

// JWTTokenValidator is a concrete implementation of TokenValidator for JWT tokens.
type JWTTokenValidator struct {
	keySet  jwk.Set
	jwksURL string
	devMode bool
}

// NewTokenValidator creates a new JWT token validator with the given JWKS URL.
// An empty URL enables development mode: tokens are parsed but not verified.
func NewTokenValidator(jwksURL string) (TokenValidator, error) {
	if jwksURL == "" {
		return &JWTTokenValidator{
			keySet:  nil,
			jwksURL: "",
			devMode: true,
		}, nil
	}

	keySet, err := jwk.Fetch(context.Background(), jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS from %s: %w", jwksURL, err)
	}

	return &JWTTokenValidator{
		keySet:  keySet,
		jwksURL: jwksURL,
		devMode: false,
	}, nil
}

// RefreshKeys refreshes the JWKS from the URL.
func (v *JWTTokenValidator) RefreshKeys() error {
	if v.jwksURL == "" {
		return ErrNoJWKS
	}

	keySet, err := jwk.Fetch(context.Background(), v.jwksURL)
	if err != nil {
		return fmt.Errorf("failed to refresh JWKS from %s: %w", v.jwksURL, err)
	}

	v.keySet = keySet
	return nil
}

// ValidateToken validates a JWT token and returns the stable user ID.
func (v *JWTTokenValidator) ValidateToken(tokenString string) (string, error) {
	if v.devMode {
		// Parse without verification
		token, _, err := new(jwt.Parser).ParseUnverified(tokenString, &StandardClaims{})
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}

		claims, ok := token.Claims.(*StandardClaims)
		if !ok {
			return "", ErrInvalidToken
		}
		return userIDFromClaims(claims)
	}

	if v.keySet == nil {
		return "", ErrNoJWKS
	}

	// Parse the token header first to get the key ID without validation.
	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, &StandardClaims{})
	if err != nil {
		return "", fmt.Errorf("%w: failed to parse token header: %v", ErrInvalidToken, err)
	}

	kid, ok := token.Header["kid"].(string)
	if !ok {
		return "", fmt.Errorf("%w: token header missing kid", ErrInvalidToken)
	}

	key, found := v.keySet.LookupKeyID(kid)
	if !found {
		// The signing key may have rotated since startup.
		if err := v.RefreshKeys(); err != nil {
			return "", fmt.Errorf("%w: key with ID %s not found and failed to refresh keys: %v", ErrInvalidToken, kid, err)
		}

		key, found = v.keySet.LookupKeyID(kid)
		if !found {
			return "", fmt.Errorf("%w: key with ID %s not found", ErrInvalidToken, kid)
		}
	}

	var rawKey interface{}
	if err := key.Raw(&rawKey); err != nil {
		return "", fmt.Errorf("%w: failed to get raw key: %v", ErrInvalidToken, err)
	}

	validatedToken, err := jwt.ParseWithClaims(
		tokenString,
		&StandardClaims{},
		func(token *jwt.Token) (interface{}, error) {
			return rawKey, nil
		},
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := validatedToken.Claims.(*StandardClaims)
	if !ok || !validatedToken.Valid {
		return "", ErrInvalidToken
	}

	if !claims.VerifyExpiresAt(time.Now(), true) {
		return "", ErrExpiredToken
	}

	return userIDFromClaims(claims)
}

// userIDFromClaims prefers sub, then user_id, then email. Ownership records
// are keyed on this value, so the order must stay stable.
func userIDFromClaims(claims *StandardClaims) (string, error) {
	if claims.Sub != "" {
		return claims.Sub, nil
	}
	if claims.UserId != "" {
		return claims.UserId, nil
	}
	if claims.Email != "" {
		return claims.Email, nil
	}
	return "", fmt.Errorf("%w: no sub, user_id, or email found in token claims", ErrInvalidToken)
}
