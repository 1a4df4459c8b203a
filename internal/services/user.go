package services

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/campus-backend/internal/data/repos"
	"github.com/yungbote/campus-backend/internal/data/txscope"
	"github.com/yungbote/campus-backend/internal/domain/domainerr"
	"github.com/yungbote/campus-backend/internal/domain/user"
	"github.com/yungbote/campus-backend/internal/jobs"
	"github.com/yungbote/campus-backend/internal/platform/logger"
	"github.com/yungbote/campus-backend/internal/selectors"
)

type UserCreateInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
	Bio       string
	Timezone  string
}

type UserService interface {
	Create(ctx context.Context, in UserCreateInput) (*user.User, error)
	UpdateName(ctx context.Context, id uuid.UUID, firstName, lastName string) (*user.User, error)
	// Deactivate marks the user inactive and revokes its refresh tokens.
	Deactivate(ctx context.Context, id uuid.UUID) (*user.User, error)
	// Delete removes the user with its profile, enrollments and tokens.
	Delete(ctx context.Context, id uuid.UUID) error
}

type userService struct {
	log      *logger.Logger
	runner   txscope.Runner
	repos    repos.Set
	users    selectors.UserSelector
	profiles ProfileService
	deferred Deferred
}

func NewUserService(
	log *logger.Logger,
	runner txscope.Runner,
	set repos.Set,
	users selectors.UserSelector,
	profiles ProfileService,
	deferred Deferred,
) UserService {
	serviceLog := log.With("service", "UserService")
	return &userService{
		log:      serviceLog,
		runner:   runner,
		repos:    set,
		users:    users,
		profiles: profiles,
		deferred: deferred,
	}
}

// Create stores the user and its profile in one scope and sends the welcome
// email once both are committed.
func (us *userService) Create(ctx context.Context, in UserCreateInput) (_ *user.User, err error) {
	const op = "user.create"
	ctx, span := startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	u := user.New(in.Email, in.FirstName, in.LastName)
	res := user.PasswordPolicy(in.Password)
	if res.OK() {
		if err := u.SetPassword(in.Password); err != nil {
			return nil, domainerr.Wrap(domainerr.CodeInternal, op, err)
		}
	}
	for _, f := range u.Validate().Failures {
		// a rejected password is already reported by the policy
		if f.Rule == user.RulePasswordSet && !res.OK() {
			continue
		}
		res.Failures = append(res.Failures, f)
	}
	if !res.OK() {
		return nil, domainerr.ValidationFailed(op, res)
	}

	if err := us.runner.InTx(ctx, op, func(ctx context.Context) error {
		if err := commit(ctx, op, u, us.repos.Users.Save); err != nil {
			return err
		}
		if _, err := us.profiles.Create(ctx, u.ID, ProfileInput{Bio: in.Bio, Timezone: in.Timezone}); err != nil {
			return err
		}
		us.deferred.schedule(ctx, jobs.KindWelcomeEmail, jobs.WelcomeEmailPayload{
			UserID: u.ID,
			Email:  u.Email,
			Name:   u.FullName(),
		})
		return nil
	}); err != nil {
		return nil, err
	}
	us.log.Info("User created", "user_id", u.ID)
	return u, nil
}

func (us *userService) UpdateName(ctx context.Context, id uuid.UUID, firstName, lastName string) (_ *user.User, err error) {
	const op = "user.update_name"
	ctx, span := startSpan(ctx, op, attribute.String("user_id", id.String()))
	defer func() { endSpan(span, err) }()

	var updated *user.User
	err = us.runner.InTx(ctx, op, func(ctx context.Context) error {
		view, err := us.users.Get(ctx, id)
		if err != nil {
			return err
		}
		view.User.Rename(firstName, lastName)
		if err := commit(ctx, op, view.User, us.repos.Users.Save); err != nil {
			return err
		}
		updated = view.User
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (us *userService) Deactivate(ctx context.Context, id uuid.UUID) (_ *user.User, err error) {
	const op = "user.deactivate"
	ctx, span := startSpan(ctx, op, attribute.String("user_id", id.String()))
	defer func() { endSpan(span, err) }()

	var updated *user.User
	err = us.runner.InTx(ctx, op, func(ctx context.Context) error {
		view, err := us.users.Get(ctx, id)
		if err != nil {
			return err
		}
		view.User.Deactivate()
		if err := commit(ctx, op, view.User, us.repos.Users.Save); err != nil {
			return err
		}
		if err := remove(ctx, op, id, us.repos.UserTokens.DeleteByUser); err != nil {
			return err
		}
		updated = view.User
		return nil
	})
	if err != nil {
		return nil, err
	}
	us.log.Info("User deactivated", "user_id", id)
	return updated, nil
}

func (us *userService) Delete(ctx context.Context, id uuid.UUID) (err error) {
	const op = "user.delete"
	ctx, span := startSpan(ctx, op, attribute.String("user_id", id.String()))
	defer func() { endSpan(span, err) }()

	err = us.runner.InTx(ctx, op, func(ctx context.Context) error {
		if _, err := us.users.Get(ctx, id); err != nil {
			return err
		}
		if err := remove(ctx, op, id, us.repos.Enrollments.DeleteByUser); err != nil {
			return err
		}
		if err := remove(ctx, op, id, us.repos.UserTokens.DeleteByUser); err != nil {
			return err
		}
		if err := remove(ctx, op, id, us.repos.Profiles.DeleteByUserID); err != nil {
			return err
		}
		return remove(ctx, op, id, us.repos.Users.Delete)
	})
	if err == nil {
		us.log.Info("User deleted", "user_id", id)
	}
	return err
}
