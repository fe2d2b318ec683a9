// Package auth verifies bearer tokens issued by the external identity
// service. Registration and token issuance live outside this server; only
// verification happens here.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog/log"
)

var (
	ErrMissingToken = errors.New("auth: missing token")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Claims is the identity a verified token asserts.
type Claims struct {
	UserID   uint
	Username string
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	if secret == "" {
		panic("auth: empty secret")
	}
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates an HS256 token carrying user_id and username
// claims.
func (v *Verifier) Verify(tokenStr string) (Claims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	idClaim, ok := mapClaims["user_id"].(float64)
	if !ok || idClaim <= 0 || idClaim != float64(uint(idClaim)) {
		return Claims{}, fmt.Errorf("%w: bad user_id claim", ErrInvalidToken)
	}
	username, _ := mapClaims["username"].(string)

	return Claims{UserID: uint(idClaim), Username: username}, nil
}

// Middleware authenticates requests via the Authorization header, falling back
// to a `token` query parameter for websocket upgrades where browsers cannot
// set headers. On success it stores user_id and username in the gin context.
func Middleware(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := extractToken(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authorization required"})
			return
		}
		claims, err := v.Verify(tokenStr)
		if err != nil {
			log.Warn().Str("module", "auth").Err(err).Msg("token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired token"})
			return
		}
		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Next()
	}
}

func extractToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", ErrInvalidToken
		}
		return parts[1], nil
	}
	if token := c.Query("token"); token != "" {
		return token, nil
	}
	return "", ErrMissingToken
}

// FromContext reads the identity the middleware stored.
func FromContext(c *gin.Context) (Claims, bool) {
	id, ok := c.Get("user_id")
	if !ok {
		return Claims{}, false
	}
	userID, ok := id.(uint)
	if !ok {
		return Claims{}, false
	}
	return Claims{UserID: userID, Username: c.GetString("username")}, true
}
