package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	AuthContextKey = "operator"
)

var jwtSecret string

// Claims identifies the operator behind an API token. There is no user
// database; tokens are minted out of band for the humans and switcher bots
// allowed to manage stream servers.
type Claims struct {
	Operator string `json:"operator"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// SetJWTSecret sets the signing secret for the middleware
func SetJWTSecret(secret string) {
	jwtSecret = secret
}

// JWTAuth middleware validates bearer tokens
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
			c.Abort()
			return
		}

		tokenString := parts[1]

		// Parse and validate token
		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(jwtSecret), nil
		})

		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(*Claims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		// Make the operator available to handlers and the rate limiter
		c.Set(AuthContextKey, claims.Operator)
		c.Next()
	}
}

// GenerateToken mints a token for an operator or switcher bot
func GenerateToken(operator, role string, expiresIn time.Duration) (string, error) {
	claims := Claims{
		Operator: operator,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// GetOperator retrieves the authenticated operator from the context
func GetOperator(c *gin.Context) (string, bool) {
	operator, exists := c.Get(AuthContextKey)
	if !exists {
		return "", false
	}

	name, ok := operator.(string)
	return name, ok
}
