package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/campus-backend/internal/data/repos"
	"github.com/yungbote/campus-backend/internal/data/txscope"
	"github.com/yungbote/campus-backend/internal/domain/domainerr"
	"github.com/yungbote/campus-backend/internal/domain/user"
	"github.com/yungbote/campus-backend/internal/platform/logger"
	"github.com/yungbote/campus-backend/internal/selectors"
)

type ProfileInput struct {
	Bio      string
	Timezone string
}

type ProfileService interface {
	Create(ctx context.Context, userID uuid.UUID, in ProfileInput) (*user.Profile, error)
	Update(ctx context.Context, userID uuid.UUID, in ProfileInput) (*user.Profile, error)
}

type profileService struct {
	log    *logger.Logger
	runner txscope.Runner
	repos  repos.Set
	users  selectors.UserSelector
}

func NewProfileService(log *logger.Logger, runner txscope.Runner, set repos.Set, users selectors.UserSelector) ProfileService {
	serviceLog := log.With("service", "ProfileService")
	return &profileService{log: serviceLog, runner: runner, repos: set, users: users}
}

func (ps *profileService) Create(ctx context.Context, userID uuid.UUID, in ProfileInput) (_ *user.Profile, err error) {
	const op = "profile.create"
	ctx, span := startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	p := user.NewProfile(userID, in.Bio, in.Timezone)
	if err := validate(op, p); err != nil {
		return nil, err
	}
	if err := ps.runner.InTx(ctx, op, func(ctx context.Context) error {
		view, err := ps.users.Get(ctx, userID)
		if err != nil {
			return err
		}
		if view.Profile != nil {
			return domainerr.Conflict(op, "profile already exists", nil)
		}
		return commit(ctx, op, p, ps.repos.Profiles.Save)
	}); err != nil {
		return nil, err
	}
	return p, nil
}

func (ps *profileService) Update(ctx context.Context, userID uuid.UUID, in ProfileInput) (_ *user.Profile, err error) {
	const op = "profile.update"
	ctx, span := startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	var updated *user.Profile
	err = ps.runner.InTx(ctx, op, func(ctx context.Context) error {
		view, err := ps.users.Get(ctx, userID)
		if err != nil {
			return err
		}
		if view.Profile == nil {
			return domainerr.NotFound(op, "profile", userID)
		}
		p := view.Profile
		p.Bio = strings.TrimSpace(in.Bio)
		if tz := strings.TrimSpace(in.Timezone); tz != "" {
			p.Timezone = tz
		}
		if err := commit(ctx, op, p, ps.repos.Profiles.Save); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
