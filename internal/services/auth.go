package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/campus-backend/internal/data/repos"
	"github.com/yungbote/campus-backend/internal/data/txscope"
	"github.com/yungbote/campus-backend/internal/domain/auth"
	"github.com/yungbote/campus-backend/internal/domain/domainerr"
	"github.com/yungbote/campus-backend/internal/domain/user"
	"github.com/yungbote/campus-backend/internal/domain/validation"
	"github.com/yungbote/campus-backend/internal/platform/logger"
	"github.com/yungbote/campus-backend/internal/selectors"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	TokenID string `json:"tid,omitempty"`
	jwt.RegisteredClaims
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	ParseAccessToken(token string) (*AccessClaims, error)
}

type authService struct {
	log    *logger.Logger
	runner txscope.Runner
	repos  repos.Set
	users  selectors.UserSelector
	cfg    Config
}

func NewAuthService(log *logger.Logger, runner txscope.Runner, set repos.Set, users selectors.UserSelector, cfg Config) AuthService {
	serviceLog := log.With("service", "AuthService")
	return &authService{log: serviceLog, runner: runner, repos: set, users: users, cfg: cfg}
}

func (as *authService) Login(ctx context.Context, email, password string) (_ TokenPair, err error) {
	const op = "auth.login"
	ctx, span := startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	u, err := as.users.GetByEmail(ctx, email)
	if err != nil {
		if domainerr.IsCode(err, domainerr.CodeNotFound) {
			return TokenPair{}, invalidCredentials(op)
		}
		return TokenPair{}, err
	}
	if !u.IsActive || u.CheckPassword(password) != nil {
		return TokenPair{}, invalidCredentials(op)
	}

	now := as.cfg.now()
	tok := auth.NewUserToken(u.ID, as.cfg.RefreshTokenTTL, now)
	if err := as.runner.InTx(ctx, op, func(ctx context.Context) error {
		return commit(ctx, op, tok, as.repos.UserTokens.Save)
	}); err != nil {
		return TokenPair{}, err
	}
	return as.pair(op, u, tok, now)
}

// Refresh rotates a refresh token. Tokens past expiry plus RefreshGrace are
// rejected. Of two refreshes racing on one token, the later one conflicts.
func (as *authService) Refresh(ctx context.Context, refreshToken string) (_ TokenPair, err error) {
	const op = "auth.refresh"
	ctx, span := startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	now := as.cfg.now()
	var (
		owner *user.User
		tok   *auth.UserToken
	)
	err = as.runner.InTx(ctx, op, func(ctx context.Context) error {
		t, err := as.users.RefreshToken(ctx, refreshToken)
		if err != nil {
			return err
		}
		if !t.Within(as.cfg.RefreshGrace, now) {
			return domainerr.Invalid(op, "refresh_token", "refresh token has expired")
		}
		view, err := as.users.Get(ctx, t.UserID)
		if err != nil {
			return err
		}
		if !view.User.IsActive {
			return domainerr.Invalid(op, "refresh_token", "user is not active")
		}
		t.Refresh(as.cfg.RefreshTokenTTL, now)
		if err := commit(ctx, op, t, as.repos.UserTokens.Save); err != nil {
			return err
		}
		owner, tok = view.User, t
		return nil
	})
	if err != nil {
		return TokenPair{}, err
	}
	return as.pair(op, owner, tok, now)
}

func (as *authService) Logout(ctx context.Context, userID uuid.UUID) (err error) {
	const op = "auth.logout"
	ctx, span := startSpan(ctx, op, attribute.String("user_id", userID.String()))
	defer func() { endSpan(span, err) }()

	return as.runner.InTx(ctx, op, func(ctx context.Context) error {
		return remove(ctx, op, userID, as.repos.UserTokens.DeleteByUser)
	})
}

func (as *authService) ParseAccessToken(token string) (*AccessClaims, error) {
	const op = "auth.parse_access_token"
	claims := &AccessClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(as.cfg.now),
		jwt.WithExpirationRequired(),
	}
	if as.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(as.cfg.Issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(as.cfg.JWTSecret), nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return nil, domainerr.Invalid(op, "access_token", "access token is invalid or expired")
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, domainerr.Invalid(op, "access_token", "access token subject is not a user id")
	}
	return claims, nil
}

func invalidCredentials(op string) error {
	var res validation.Result
	res.Add(validation.Global, ErrInvalidCredentials.Error())
	return &domainerr.Error{
		Code:    domainerr.CodeValidation,
		Op:      op,
		Message: res.String(),
		Cause:   ErrInvalidCredentials,
		Result:  res,
	}
}

func (as *authService) pair(op string, u *user.User, tok *auth.UserToken, now time.Time) (TokenPair, error) {
	exp := now.Add(as.cfg.AccessTokenTTL)
	claims := AccessClaims{
		TokenID: tok.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			Issuer:    as.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.New().String(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(as.cfg.JWTSecret))
	if err != nil {
		return TokenPair{}, domainerr.Wrap(domainerr.CodeInternal, op, fmt.Errorf("sign access token: %w", err))
	}
	return TokenPair{AccessToken: signed, RefreshToken: tok.RefreshToken, ExpiresAt: exp}, nil
}
