// Package fakeapi is a development stand-in for the remote dashboard
// backend: the token validation endpoint, a login endpoint, and the duplex
// event channel. Integration tests and local runs point the client core at
// it instead of a live deployment.
package fakeapi

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = 24 * time.Hour

type seededUser struct {
	name         string
	role         string
	passwordHash []byte
}

// Server implements the backend surface the client core depends on.
type Server struct {
	secret   string
	tokenTTL time.Duration
	engine   *gin.Engine
	log      *slog.Logger

	mu      sync.RWMutex
	users   map[string]seededUser
	clients map[*wsClient]bool
}

func NewServer(secret string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		secret:   secret,
		tokenTTL: defaultTokenTTL,
		log:      log,
		users:    make(map[string]seededUser),
		clients:  make(map[*wsClient]bool),
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.POST("/api/login", s.handleLogin)
	engine.GET("/api/check-token", s.handleCheckToken)
	engine.GET("/ws", s.handleWS)
	s.engine = engine
	return s
}

// Handler exposes the router for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// SeedUser registers a login the fake backend will accept.
func (s *Server) SeedUser(email, password, name, role string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.users[email] = seededUser{name: name, role: role, passwordHash: hash}
	s.mu.Unlock()
	return nil
}

// Mint issues a valid token for a seeded user, for tests that skip the
// login round-trip.
func (s *Server) Mint(email string, ttl time.Duration) (string, error) {
	return MintToken(s.secret, email, ttl)
}

func (s *Server) handleLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.RLock()
	user, ok := s.users[req.Email]
	s.mu.RUnlock()
	if !ok || bcrypt.CompareHashAndPassword(user.passwordHash, []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := MintToken(s.secret, req.Email, s.tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  gin.H{"name": user.name, "email": req.Email},
		"role":  user.role,
	})
}

func (s *Server) handleCheckToken(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
		return
	}
	tokenString := strings.Replace(authHeader, "Bearer ", "", 1)

	email, expired, err := parseToken(s.secret, tokenString)
	if err != nil {
		if expired {
			c.JSON(http.StatusUnauthorized, gin.H{"expired": true})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "email": email})
}
