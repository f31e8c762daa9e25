package utils

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"botoapp/user/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var parseJWT = func(tokenStr string, claims jwt.Claims, keyFunc jwt.Keyfunc) (*jwt.Token, error) {
	return jwt.ParseWithClaims(tokenStr, claims, keyFunc, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
}

var (
	ErrMissingAuthHeader = errors.New("missing or malformed Authorization header")
	ErrInvalidToken      = errors.New("invalid token")
	ErrInvalidClaims     = errors.New("invalid token claims")
	ErrWrongTokenType    = errors.New("wrong token type")
)

// Claims is the payload carried by both access and refresh tokens.
type Claims struct {
	TokenType string   `json:"token_type"`
	UserID    string   `json:"user_id"`
	Firstname string   `json:"firstname"`
	Lastname  string   `json:"lastname"`
	Email     string   `json:"email"`
	Roles     []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenPair is returned by a successful login.
type TokenPair struct {
	Refresh string `json:"refresh"`
	Access  string `json:"access"`
}

// TokenIssuer signs and verifies HS256 tokens for the service.
type TokenIssuer struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{Secret: []byte(secret), AccessTTL: accessTTL, RefreshTTL: refreshTTL, Now: time.Now}
}

func (ti *TokenIssuer) now() time.Time {
	if ti.Now == nil {
		return time.Now()
	}
	return ti.Now()
}

// IssuePair mints a refresh token and the access token derived from it.
func (ti *TokenIssuer) IssuePair(user *models.User) (TokenPair, error) {
	refresh, err := ti.sign(userClaims(user), TokenTypeRefresh, ti.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	access, err := ti.sign(userClaims(user), TokenTypeAccess, ti.AccessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Refresh: refresh, Access: access}, nil
}

// IssueAccess mints a fresh access token for user.
func (ti *TokenIssuer) IssueAccess(user *models.User) (string, error) {
	return ti.sign(userClaims(user), TokenTypeAccess, ti.AccessTTL)
}

func userClaims(user *models.User) Claims {
	return Claims{
		UserID:    user.ID,
		Firstname: user.Firstname,
		Lastname:  user.Lastname,
		Email:     user.EmailAddress(),
		Roles:     append([]string(nil), user.Roles...),
	}
}

func (ti *TokenIssuer) sign(claims Claims, tokenType string, ttl time.Duration) (string, error) {
	now := ti.now()
	claims.TokenType = tokenType
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.Secret)
}

// Parse validates tokenStr and, when wantType is non-empty, its token_type.
func (ti *TokenIssuer) Parse(tokenStr, wantType string) (*Claims, error) {
	claims := &Claims{}
	token, err := parseJWT(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return ti.Secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	parsed, ok := token.Claims.(*Claims)
	if !ok || parsed.UserID == "" {
		return nil, ErrInvalidClaims
	}
	if wantType != "" && parsed.TokenType != wantType {
		return nil, ErrWrongTokenType
	}
	return parsed, nil
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header.
func BearerToken(r *http.Request) (string, error) {
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return "", ErrMissingAuthHeader
	}
	tokenStr := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	if tokenStr == "" {
		return "", ErrMissingAuthHeader
	}
	return tokenStr, nil
}

// VerifyToken fetches the Authorization header, validates the access JWT,
// and returns the claims if everything is valid.
func (ti *TokenIssuer) VerifyToken(r *http.Request) (*Claims, error) {
	tokenStr, err := BearerToken(r)
	if err != nil {
		return nil, err
	}
	return ti.Parse(tokenStr, TokenTypeAccess)
}
