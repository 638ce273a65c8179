package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/Amit43verma/alumni-portal/apperrors"
	"github.com/Amit43verma/alumni-portal/config"
	"github.com/Amit43verma/alumni-portal/models"
	"github.com/Amit43verma/alumni-portal/repository"
	"github.com/Amit43verma/alumni-portal/utils"
)

// AuthService issues and verifies the bearer credential that authorizes
// both HTTP requests and websocket handshakes.
type AuthService struct {
	users  repository.UserRepository
	config *config.Config
}

func NewAuthService(userRepo repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{users: userRepo, config: cfg}
}

type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Batch    string `json:"batch"`
	Center   string `json:"center"`
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, string, error) {
	if in.Name == "" || in.Password == "" || in.Batch == "" || in.Center == "" {
		return nil, "", apperrors.E(apperrors.InvalidArgument, "Name, password, batch, and center are required")
	}
	if in.Email == "" && in.Phone == "" {
		return nil, "", apperrors.E(apperrors.InvalidArgument, "Either email or phone number is required")
	}
	if len(in.Password) < 6 {
		return nil, "", apperrors.E(apperrors.InvalidArgument, "Password must be at least 6 characters")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.Internal, "Server error", err)
	}

	user, err := s.users.Create(ctx, &models.User{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: string(hashed),
		Batch:        in.Batch,
		Center:       in.Center,
	})
	if err == repository.ErrDuplicateKey {
		return nil, "", apperrors.E(apperrors.InvalidArgument, "User already exists with this email or phone")
	}
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.Internal, "Server error", err)
	}

	token, err := s.CreateToken(user.ID)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.Internal, "Server error", err)
	}
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, identifier, password string) (*models.User, string, error) {
	if identifier == "" || password == "" {
		return nil, "", apperrors.E(apperrors.InvalidArgument, "Email/phone and password are required")
	}

	user, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, "", apperrors.E(apperrors.Unauthorized, "Invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", apperrors.E(apperrors.Unauthorized, "Invalid credentials")
	}

	token, err := s.CreateToken(user.ID)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.Internal, "Server error", err)
	}
	return user, token, nil
}

func (s *AuthService) CreateToken(userID primitive.ObjectID) (string, error) {
	ttl := time.Duration(s.config.JWTExpiry) * time.Hour
	return utils.GenerateJWT(s.config.JWTSecret, userID.Hex(), ttl)
}

// Verify resolves a bearer token to the user it was issued for. This is
// the single identity check shared by HTTP middleware and the websocket
// handshake; after a successful handshake the identity is trusted for the
// connection's lifetime.
func (s *AuthService) Verify(ctx context.Context, token string) (*models.User, error) {
	userIDHex, err := utils.ParseJWT(s.config.JWTSecret, token)
	if err != nil {
		return nil, apperrors.E(apperrors.Unauthorized, "Invalid token")
	}
	userID, err := primitive.ObjectIDFromHex(userIDHex)
	if err != nil {
		return nil, apperrors.E(apperrors.Unauthorized, "Invalid token")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.E(apperrors.Unauthorized, "Invalid token")
	}
	return user, nil
}
