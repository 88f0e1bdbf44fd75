package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"

	"github.com/tripmesh/gateway/internal/types"
)

var ErrInvalidToken = errors.New("invalid token")

const (
	userIdClaim   = "user-id"
	userNameClaim = "user-name"
	expClaim      = "exp"
)

// TokenResolver turns a client-supplied token into an identity. The
// gateway caches the resolved identity on the connection so a token is
// resolved at most once per connection.
type TokenResolver interface {
	Resolve(token string) (types.Identity, error)
}

// JWTResolver verifies HMAC-signed tokens issued by the vacation-planning
// backend.
type JWTResolver struct {
	signingKey []byte
}

func NewJWTResolver(signingKey []byte) *JWTResolver {
	return &JWTResolver{signingKey: signingKey}
}

func (r *JWTResolver) Resolve(tokenString string) (types.Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.signingKey, nil
	})
	if err != nil {
		return types.Identity{}, fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}

	if !token.Valid {
		return types.Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return types.Identity{}, fmt.Errorf("%w: invalid claims", ErrInvalidToken)
	}

	userId, ok := claims[userIdClaim].(string)
	if !ok || userId == "" {
		return types.Identity{}, fmt.Errorf("%w: missing user id claim", ErrInvalidToken)
	}

	userName, _ := claims[userNameClaim].(string)

	return types.Identity{
		UserID:   userId,
		UserName: userName,
	}, nil
}

// CreateToken issues a token for the given identity, used by the backend
// when handing a session to the gateway.
func CreateToken(signingKey []byte, identity types.Identity, exp time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		userIdClaim:   identity.UserID,
		userNameClaim: identity.UserName,
		expClaim:      time.Now().Add(exp).Unix(),
	})

	return token.SignedString(signingKey)
}
