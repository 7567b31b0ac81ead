package services

import (
	"context"
	"errors"
	"strings"

	appcontext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/learnproof/learnproof-api/dto"
	"github.com/learnproof/learnproof-api/model"
	"github.com/learnproof/learnproof-api/shared"
	log "github.com/sirupsen/logrus"
)

// IdentityVerifier checks a bearer credential with the identity provider.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*dto.Identity, error)
}

// UserResolver maps a verified identity to the local profile.
type UserResolver interface {
	ResolveOrCreate(ctx context.Context, identity dto.Identity) (*model.UserProfile, error)
}

// AuthService authenticates requests with identity-provider tokens and
// resolves them to local user profiles.
type AuthService struct {
	appcontext.DefaultService

	verifier IdentityVerifier
	users    UserResolver
}

const AUTH_SVC = "auth_svc"

func (svc AuthService) Id() string {
	return AUTH_SVC
}

func (svc *AuthService) Start() error {
	svc.setup(
		svc.Service(IDENTITY_SVC).(*FirebaseIdentityService),
		svc.Service(USER_SVC).(*UserService),
	)
	return nil
}

func (svc *AuthService) setup(verifier IdentityVerifier, users UserResolver) {
	svc.verifier = verifier
	svc.users = users
}

// ExtractTokenFromHeader returns the credential of a "Bearer <token>" header.
func ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return "", errors.New("invalid authorization header format")
	}

	token := strings.TrimSpace(authHeader[7:])
	if token == "" {
		return "", errors.New("token is missing from authorization header")
	}
	return token, nil
}

// requestToken reads the credential from the Authorization header, falling
// back to an idToken field in a JSON body.
func requestToken(c *fiber.Ctx) (string, error) {
	token, headerErr := ExtractTokenFromHeader(c.Get(fiber.HeaderAuthorization))
	if headerErr == nil {
		return token, nil
	}

	if body := c.Body(); len(body) > 0 {
		var req struct {
			IDToken string `json:"idToken"`
		}
		if err := shared.JSONUnmarshal(body, &req); err == nil && req.IDToken != "" {
			return req.IDToken, nil
		}
	}
	return "", headerErr
}

// Authenticate verifies the credential and returns the caller's profile,
// creating it on first sight.
func (svc *AuthService) Authenticate(ctx context.Context, token string) (*model.UserProfile, error) {
	identity, err := svc.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	return svc.users.ResolveOrCreate(ctx, *identity)
}

func (svc *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := svc.Authenticate(ctx, req.IDToken)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"user_id": user.ID, "uid": user.UID}).Info("User logged in")
	return &dto.LoginResponse{User: toProfileResponse(user)}, nil
}

// RequiredAuth rejects requests without a valid credential and stores the
// caller's ids in the request locals.
func (svc *AuthService) RequiredAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := requestToken(c)
		if err != nil {
			return shared.NewUnauthorizedError(err, "Unauthorized")
		}

		user, err := svc.Authenticate(c.UserContext(), token)
		if err != nil {
			return err
		}

		c.Locals(shared.UserID, user.ID)
		c.Locals(shared.FirebaseUID, user.UID)
		return c.Next()
	}
}
