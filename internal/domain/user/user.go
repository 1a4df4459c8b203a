package user

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/campus-backend/internal/domain/validation"
)

const (
	RuleEmailRequired     = "email_required"
	RuleEmailFormat       = "email_format"
	RuleFirstNameRequired = "first_name_required"
	RuleLastNameLength    = "last_name_length"
	RulePasswordSet       = "password_set"

	RulePasswordLength = "password_length"
	MinPasswordLength  = 8
	MaxPasswordLength  = 72 // bcrypt input limit
)

var ErrPasswordMismatch = errors.New("password mismatch")

// tags only; one instance is safe for concurrent use
var fieldValidator = validator.New()

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	PasswordHash string    `gorm:"not null;column:password_hash" json:"-"`
	FirstName    string    `gorm:"not null;column:first_name" json:"first_name"`
	LastName     string    `gorm:"not null;column:last_name" json:"last_name"`
	IsActive     bool      `gorm:"not null;default:true;column:is_active" json:"is_active"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "user" }

var pipeline = validation.NewPipeline(
	validation.Rule[*User]{
		Name: RuleEmailRequired, Field: "email", Reason: "email is required",
		Check: func(u *User) bool { return strings.TrimSpace(u.Email) != "" },
	},
	validation.Rule[*User]{
		Name: RuleEmailFormat, Field: "email", Reason: "email is not a valid address",
		Check: func(u *User) bool {
			return u.Email == "" || fieldValidator.Var(u.Email, "email") == nil
		},
	},
	validation.Rule[*User]{
		Name: RuleFirstNameRequired, Field: "first_name", Reason: "first name is required",
		Check: func(u *User) bool { return strings.TrimSpace(u.FirstName) != "" },
	},
	validation.Rule[*User]{
		Name: RuleLastNameLength, Field: "last_name", Reason: "last name must be at most 255 characters",
		Check: func(u *User) bool { return len([]rune(u.LastName)) <= 255 },
	},
	validation.Rule[*User]{
		Name: RulePasswordSet, Field: "password", Reason: "password must be set",
		Check: func(u *User) bool { return u.PasswordHash != "" },
	},
)

func (u *User) Validate() validation.Result {
	if u == nil {
		return validation.Check(nil)
	}
	return pipeline.Validate(u)
}

// New builds an unsaved, active user with a fresh identity.
func New(email, firstName, lastName string) *User {
	return &User{
		ID:        uuid.New(),
		Email:     NormalizeEmail(email),
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		IsActive:  true,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PasswordPolicy checks a raw password before it is hashed.
func PasswordPolicy(raw string) validation.Result {
	var res validation.Result
	if n := len(raw); n < MinPasswordLength || n > MaxPasswordLength {
		res.Failures = append(res.Failures, validation.Failure{
			Field:  "password",
			Reason: "password must be between 8 and 72 characters",
			Rule:   RulePasswordLength,
		})
	}
	return res
}

// SetPassword hashes raw and stores the hash. Callers check PasswordPolicy first.
func (u *User) SetPassword(raw string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

func (u *User) CheckPassword(raw string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(raw)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}

func (u *User) Rename(firstName, lastName string) {
	u.FirstName = strings.TrimSpace(firstName)
	u.LastName = strings.TrimSpace(lastName)
}

func (u *User) Deactivate() { u.IsActive = false }

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
