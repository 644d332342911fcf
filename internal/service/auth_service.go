package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4" // Import JWT library
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt" // Import bcrypt

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/repository" // Import repository package
)

// --- Error Definitions ---
var (
	ErrHashingFailed   = errors.New("failed to hash password")
	ErrTokenGeneration = errors.New("failed to generate authentication token")
	ErrInvalidToken    = fmt.Errorf("%w: invalid token", ErrUnauthorized)
	ErrTokenExpired    = fmt.Errorf("%w: token has expired", ErrUnauthorized)
)

// --- Service Interface ---
type AuthService interface {
	Register(ctx context.Context, username, email, password string, role domain.Role) (*domain.UserProfile, error)
	Login(ctx context.Context, email, password string) (token string, user *domain.UserProfile, err error)
	// ParseToken validates a bearer token and returns its email and role.
	ParseToken(token string) (*Claims, error)
	// ResolveIdentity maps the token's email to the stored user.
	ResolveIdentity(ctx context.Context, email string, role domain.Role) (domain.Identity, error)
}

// Claims is the JWT payload. The token carries the email; the durable user_id is
// resolved from it on every request.
type Claims struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// --- Service Implementation ---

// authService implements the AuthService interface.
type authService struct {
	userRepo      repository.UserProfileRepository
	jwtSecret     string
	jwtExpiration time.Duration
	log           *logger.Logger
	now           func() time.Time
}

// NewAuthService creates a new instance of authService.
func NewAuthService(userRepo repository.UserProfileRepository, jwtSecret string, jwtExpiration time.Duration, log *logger.Logger) AuthService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty") // Critical configuration
	}
	if jwtExpiration <= 0 {
		jwtExpiration = time.Hour * 1 // Default to 1 hour if not set properly
	}
	return &authService{
		userRepo:      userRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		log:           log.With("service", "auth"),
		now:           time.Now,
	}
}

// Register handles new user registration.
func (s *authService) Register(ctx context.Context, username, email, password string, role domain.Role) (*domain.UserProfile, error) {
	// 1. Basic input validation (handlers validate formats)
	username, email = strings.TrimSpace(username), strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" || password == "" {
		return nil, validationf("username, email and password cannot be empty")
	}
	if role == "" {
		role = domain.RoleUser
	}
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return nil, validationf("role must be %q or %q", domain.RoleUser, domain.RoleAdmin)
	}

	// 2. Check if username or email is taken
	if err := s.ensureFree(ctx, email, s.userRepo.GetByEmail); err != nil {
		return nil, err
	}
	if err := s.ensureFree(ctx, username, s.userRepo.GetByUsername); err != nil {
		return nil, err
	}

	// 3. Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrHashingFailed
	}

	// 4. Save the profile; the unique indexes catch a concurrent registration
	user := &domain.UserProfile{
		UserID:       uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		return nil, upstream(s.log, "create user profile", err, "email", email)
	}
	s.log.Info("User registered", "user_id", user.UserID, "role", role)

	// Remove password hash before returning
	user.PasswordHash = ""
	return user, nil
}

func (s *authService) ensureFree(ctx context.Context, key string, get func(context.Context, string) (*domain.UserProfile, error)) error {
	_, err := get(ctx, key)
	if err == nil {
		return ErrUserAlreadyExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return upstream(s.log, "check user exists", err)
	}
	return nil
}

// Login handles user authentication and JWT generation.
func (s *authService) Login(ctx context.Context, email, password string) (token string, user *domain.UserProfile, err error) {
	// 1. Basic Input Validation
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		err = validationf("email and password cannot be empty")
		return
	}

	// 2. Fetch user by email
	user, err = s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = ErrAuthenticationFailed // User not found maps to auth failure
			return
		}
		return "", nil, upstream(s.log, "load user profile", err, "email", email)
	}

	// 3. Compare the provided password with the stored hash
	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrAuthenticationFailed
	}

	// 4. Authentication successful - Generate JWT
	token, err = s.generateJWT(user)
	if err != nil {
		s.log.Error("Failed to sign token", "user_id", user.UserID, "error", err)
		return "", nil, ErrTokenGeneration
	}

	// Clear password hash before returning user object
	user.PasswordHash = ""
	return token, user, nil
}

// generateJWT creates a new JWT token for the given user.
func (s *authService) generateJWT(user *domain.UserProfile) (string, error) {
	now := s.now()
	claims := &Claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "fitness-coach",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// ParseToken validates the signature, algorithm and expiry of token.
func (s *authService) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Validate the alg is what we expect:
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Email == "" || claims.Role == "" {
		return nil, fmt.Errorf("%w: missing claims", ErrInvalidToken)
	}
	return claims, nil
}

func (s *authService) ResolveIdentity(ctx context.Context, email string, role domain.Role) (domain.Identity, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Identity{}, notFoundf("no user profile for %s", email)
		}
		return domain.Identity{}, upstream(s.log, "resolve identity", err, "email", email)
	}
	// The stored role wins over a stale token role.
	if user.Role != "" {
		role = user.Role
	}
	return domain.Identity{UserID: user.UserID, Email: user.Email, Role: role}, nil
}
