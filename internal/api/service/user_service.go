package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ctarcade/Game-Arcade/internal/api/models"
	"ctarcade/Game-Arcade/internal/api/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const guestRating = 1200

var ErrInvalidToken = errors.New("invalid or expired token")

// UserService defines the interface for user-related business logic.
type UserService interface {
	Register(ctx context.Context, req *models.RegisterRequest) error
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	GuestLogin(ctx context.Context) (*models.LoginResponse, error)
	ValidateToken(tokenString string) (*models.Identity, error)
}

type userService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
}

// NewUserService creates a new UserService signing tokens with secret.
func NewUserService(userRepo repository.UserRepository, secret string) UserService {
	return &userService{userRepo: userRepo, jwtSecret: []byte(secret)}
}

// Register handles user registration.
func (s *userService) Register(ctx context.Context, req *models.RegisterRequest) error {
	// Check if user already exists
	existingUser, err := s.userRepo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return err
	}
	if existingUser != nil {
		return errors.New("username already taken")
	}

	user := &models.User{
		Username: req.Username,
	}

	return s.userRepo.CreateUser(ctx, user, req.Password)
}

// Login handles user login and returns a JWT on success.
func (s *userService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("invalid username or password")
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password))
	if err != nil {
		return nil, errors.New("invalid username or password")
	}

	token, err := s.signToken(models.Identity{
		ID:       fmt.Sprintf("%d", user.ID),
		Username: user.Username,
		Rating:   user.Rating,
	})
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{Token: token, Rating: user.Rating}, nil
}

// GuestLogin mints a throwaway identity so players can join without an
// account. Guests get the default rating and no persistence.
func (s *userService) GuestLogin(ctx context.Context) (*models.LoginResponse, error) {
	id := uuid.New().String()
	token, err := s.signToken(models.Identity{
		ID:       id,
		Username: "guest-" + id[:8],
		Rating:   guestRating,
		Guest:    true,
	})
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{Token: token, Rating: guestRating}, nil
}

// ValidateToken parses a JWT and returns the identity it carries.
func (s *userService) ValidateToken(tokenString string) (*models.Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	username, _ := claims["un"].(string)
	if sub == "" || username == "" {
		return nil, ErrInvalidToken
	}
	rating := guestRating
	if v, ok := claims["rating"].(float64); ok {
		rating = int(v)
	}
	guest, _ := claims["guest"].(bool)

	return &models.Identity{ID: sub, Username: username, Rating: rating, Guest: guest}, nil
}

func (s *userService) signToken(identity models.Identity) (string, error) {
	claims := jwt.MapClaims{
		"sub":    identity.ID,
		"un":     identity.Username,
		"rating": identity.Rating,
		"exp":    time.Now().Add(time.Hour * 72).Unix(),
	}
	if identity.Guest {
		claims["guest"] = true
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
