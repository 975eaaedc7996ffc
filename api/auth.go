package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Domenick1991/smartticket/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const requesterKey = "requester"

var errNoToken = errors.New("no bearer token")

// Claims is the payload of access tokens issued for the booking API.
type Claims struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
	now    func() time.Time
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret), now: time.Now}
}

// Issue signs an HS256 token for the given user.
func (a *Authenticator) Issue(userID int64, role string, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) Parse(raw string) (domain.Requester, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return domain.Anonymous(), fmt.Errorf("parse token: %w", err)
	}
	return domain.Requester{ID: claims.UserID, Role: claims.Role, Authenticated: true}, nil
}

func (a *Authenticator) fromHeader(c *gin.Context) (domain.Requester, error) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return domain.Anonymous(), errNoToken
	}
	return a.Parse(strings.TrimSpace(token))
}

// OptionalAuth resolves the caller when a token is present. A request without
// a token proceeds anonymously; a request with a bad token is rejected.
func (a *Authenticator) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		requester, err := a.fromHeader(c)
		switch {
		case errors.Is(err, errNoToken):
			c.Set(requesterKey, domain.Anonymous())
		case err != nil:
			fail(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		default:
			c.Set(requesterKey, requester)
		}
		c.Next()
	}
}

// PublicAuth resolves the caller when a valid token is present and treats
// anything else as anonymous. It guards routes that never need a token.
func (a *Authenticator) PublicAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		requester, err := a.fromHeader(c)
		if err != nil {
			requester = domain.Anonymous()
		}
		c.Set(requesterKey, requester)
		c.Next()
	}
}

func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		requester, err := a.fromHeader(c)
		if errors.Is(err, errNoToken) {
			fail(c, http.StatusUnauthorized, "Access token required")
			return
		}
		if err != nil {
			fail(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		c.Set(requesterKey, requester)
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requesterFrom(c).IsAdmin() {
			fail(c, http.StatusForbidden, "Admin access required")
			return
		}
		c.Next()
	}
}

func requesterFrom(c *gin.Context) domain.Requester {
	if v, ok := c.Get(requesterKey); ok {
		if r, ok := v.(domain.Requester); ok {
			return r
		}
	}
	return domain.Anonymous()
}
