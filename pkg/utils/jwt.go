package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gearshed-backend/pkg/models"
)

// Token lifetimes. Access tokens are short-lived; refresh tokens let
// clients obtain new access tokens without re-authenticating.
const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

// JWTService signs and validates the HS256 tokens used for API access.
type JWTService struct {
	secretKey []byte
}

// NewJWTService creates a JWTService signing with secretKey.
func NewJWTService(secretKey string) *JWTService {
	return &JWTService{secretKey: []byte(secretKey)}
}

// GenerateTokenPair issues an access/refresh token pair for the user.
// expiresIn is the unix timestamp at which the access token expires.
func (j *JWTService) GenerateTokenPair(userID, email string) (accessToken, refreshToken string, expiresIn int64, err error) {
	now := time.Now()

	accessExpiry := now.Add(accessTokenTTL)
	accessToken, err = j.sign(&models.TokenClaims{
		UserID: userID,
		Email:  email,
		Type:   "access",
		Exp:    accessExpiry.Unix(),
		Iat:    now.Unix(),
	})
	if err != nil {
		return "", "", 0, fmt.Errorf("generating access token: %w", err)
	}

	refreshToken, err = j.sign(&models.TokenClaims{
		UserID: userID,
		Email:  email,
		Type:   "refresh",
		Exp:    now.Add(refreshTokenTTL).Unix(),
		Iat:    now.Unix(),
	})
	if err != nil {
		return "", "", 0, fmt.Errorf("generating refresh token: %w", err)
	}

	return accessToken, refreshToken, accessExpiry.Unix(), nil
}

func (j *JWTService) sign(claims *models.TokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secretKey)
}

// ValidateToken parses and validates a token of either type.
func (j *JWTService) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type")
	}
	return claims, nil
}

// ValidateAccessToken validates a token and requires the access type.
func (j *JWTService) ValidateAccessToken(tokenString string) (*models.TokenClaims, error) {
	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != "access" {
		return nil, fmt.Errorf("token is not an access token")
	}
	return claims, nil
}

// ValidateRefreshToken validates a token and requires the refresh type.
func (j *JWTService) ValidateRefreshToken(tokenString string) (*models.TokenClaims, error) {
	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != "refresh" {
		return nil, fmt.Errorf("token is not a refresh token")
	}
	return claims, nil
}

// RefreshAccessToken exchanges a valid refresh token for a new access token.
func (j *JWTService) RefreshAccessToken(refreshToken string) (string, int64, error) {
	claims, err := j.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", 0, err
	}

	now := time.Now()
	expiry := now.Add(accessTokenTTL)
	token, err := j.sign(&models.TokenClaims{
		UserID: claims.UserID,
		Email:  claims.Email,
		Type:   "access",
		Exp:    expiry.Unix(),
		Iat:    now.Unix(),
	})
	if err != nil {
		return "", 0, fmt.Errorf("generating access token: %w", err)
	}
	return token, expiry.Unix(), nil
}
