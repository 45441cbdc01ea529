package service

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are the fields read from an access token.
type Claims struct {
	UserID   string
	Username string
}

// AuthService validates access tokens issued by the account service.
type AuthService interface {
	ValidateToken(tokenString string) (*Claims, error)
}

type authService struct {
	jwtSecret string
}

func NewAuthService(jwtSecret string) AuthService {
	return &authService{jwtSecret: jwtSecret}
}

func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithExpirationRequired())

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	// refresh tokens must not be accepted as access tokens
	if typ, _ := claims["type"].(string); typ != "" && typ != "access" {
		return nil, fmt.Errorf("%w: unexpected token type %q", ErrInvalidToken, typ)
	}

	userID, _ := claims["user_id"].(string)
	if _, err := uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("%w: bad user_id", ErrInvalidToken)
	}
	username, _ := claims["username"].(string)

	return &Claims{UserID: userID, Username: username}, nil
}
