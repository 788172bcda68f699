// Package account owns the per-user profile document. Sign-in itself belongs
// to the external auth provider; this package only trusts its tokens.
package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"

	"github.com/uptrace/bun"
	"golang.org/x/text/unicode/norm"

	"planner/src-server/model"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidProfile  = errors.New("invalid profile")
)

var (
	displayNameFirstRegexp  = regexp.MustCompile(`^[A-Za-z\x{AC00}-\x{D7A3}]`)
	displayNameCharsRegexp  = regexp.MustCompile(`^[A-Za-z0-9\x{AC00}-\x{D7A3}]+$`)
	displayNameKoreanRegexp = regexp.MustCompile(`^[0-9\x{AC00}-\x{D7A3}]{2,8}$`)
	displayNameLatinRegexp  = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]{2,15}$`)
)

// EventWiper removes every event kept on the device.
type EventWiper interface {
	DeleteAll(ctx context.Context) (int, error)
}

type Service struct {
	db     bun.IDB
	events EventWiper
	owner  *Owner
}

// NewService wires the profile table to the device's events. owner may be nil
// when nothing guards who owns them.
func NewService(db bun.IDB, events EventWiper, owner *Owner) *Service {
	return &Service{db: db, events: events, owner: owner}
}

// ValidateDisplayName accepts 2 to 8 Hangul syllables or digits, or 3 to 16
// latin letters or digits starting with a letter.
func ValidateDisplayName(name string) error {
	switch {
	case !displayNameFirstRegexp.MatchString(name):
		return fmt.Errorf("%w: display name must start with a letter", ErrInvalidProfile)
	case !displayNameCharsRegexp.MatchString(name):
		return fmt.Errorf("%w: display name can't contain spaces or symbols", ErrInvalidProfile)
	case !displayNameKoreanRegexp.MatchString(name) && !displayNameLatinRegexp.MatchString(name):
		return fmt.Errorf("%w: display name must be 2-8 korean or 3-16 latin characters", ErrInvalidProfile)
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: %q is not an email address", ErrInvalidProfile, email)
	}
	return strings.ToLower(email), nil
}

func (s *Service) Get(ctx context.Context, uid string) (*model.Profile, error) {
	profile := new(model.Profile)
	if err := s.db.NewSelect().
		Model(profile).
		Where("uid = ?", uid).
		Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Service.Get: %w: %s", ErrProfileNotFound, uid)
		}
		return nil, fmt.Errorf("Service.Get: %w", err)
	}
	return profile, nil
}

// Ensure returns the profile of uid, creating it on first sign-in.
func (s *Service) Ensure(ctx context.Context, uid, email string) (*model.Profile, error) {
	profile, err := s.Get(ctx, uid)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return nil, fmt.Errorf("Service.Ensure: %w", err)
	}
	if email, err = normalizeEmail(email); err != nil {
		return nil, fmt.Errorf("Service.Ensure: %w", err)
	}
	profile = &model.Profile{
		UID:             uid,
		Email:           email,
		SurveyCompleted: false,
		IsFirstLogin:    true,
	}
	if err := profile.Upsert(ctx, s.db); err != nil {
		return nil, fmt.Errorf("Service.Ensure: %w", err)
	}
	slog.Info("profile created", "uid", uid)
	return profile, nil
}

func (s *Service) update(ctx context.Context, uid string, mutate func(*model.Profile) error) (*model.Profile, error) {
	profile, err := s.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if err := mutate(profile); err != nil {
		return nil, err
	}
	if err := profile.Upsert(ctx, s.db); err != nil {
		return nil, err
	}
	return profile, nil
}

// UpdateDisplayName sets the nickname, which also ends the first-login flow.
func (s *Service) UpdateDisplayName(ctx context.Context, uid, name string) (*model.Profile, error) {
	name = norm.NFC.String(strings.TrimSpace(name))
	if err := ValidateDisplayName(name); err != nil {
		return nil, fmt.Errorf("Service.UpdateDisplayName: %w", err)
	}
	profile, err := s.update(ctx, uid, func(p *model.Profile) error {
		p.DisplayName = name
		p.IsFirstLogin = false
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Service.UpdateDisplayName: %w", err)
	}
	return profile, nil
}

func (s *Service) UpdateEmail(ctx context.Context, uid, email string) (*model.Profile, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, fmt.Errorf("Service.UpdateEmail: %w", err)
	}
	profile, err := s.update(ctx, uid, func(p *model.Profile) error {
		p.Email = email
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Service.UpdateEmail: %w", err)
	}
	return profile, nil
}

// RecordPreparationTime stores how long the user needs to get ready.
func (s *Service) RecordPreparationTime(ctx context.Context, uid string, hours, minutes int) (*model.Profile, error) {
	if hours < 0 || minutes < 0 || minutes >= 60 {
		return nil, fmt.Errorf("Service.RecordPreparationTime: %w: %dh %dm", ErrInvalidProfile, hours, minutes)
	}
	profile, err := s.update(ctx, uid, func(p *model.Profile) error {
		p.PreparationMinutes = hours*60 + minutes
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Service.RecordPreparationTime: %w", err)
	}
	return profile, nil
}

func (s *Service) RecordPreparationStyle(ctx context.Context, uid string, style model.PreparationStyle) (*model.Profile, error) {
	switch style {
	case model.PREPARATION_STYLE_RELAXED, model.PREPARATION_STYLE_ON_TIME:
	default:
		return nil, fmt.Errorf("Service.RecordPreparationStyle: %w: style %q", ErrInvalidProfile, style)
	}
	profile, err := s.update(ctx, uid, func(p *model.Profile) error {
		p.PreparationStyle = style
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Service.RecordPreparationStyle: %w", err)
	}
	return profile, nil
}

// CompleteSurvey marks the onboarding survey done. The welcome screen still
// shows once after it, so isFirstLogin is raised again.
func (s *Service) CompleteSurvey(ctx context.Context, uid string) (*model.Profile, error) {
	profile, err := s.update(ctx, uid, func(p *model.Profile) error {
		if p.PreparationStyle == "" {
			return fmt.Errorf("%w: preparation style not recorded", ErrInvalidProfile)
		}
		p.SurveyCompleted = true
		p.IsFirstLogin = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Service.CompleteSurvey: %w", err)
	}
	return profile, nil
}

// DeleteAccount removes the profile and every event on this device, then
// frees the device for the next account. Only the owner may do this.
func (s *Service) DeleteAccount(ctx context.Context, uid string) error {
	if s.owner != nil {
		if err := s.owner.Claim(ctx, uid); err != nil {
			return fmt.Errorf("Service.DeleteAccount: %w", err)
		}
	}
	if _, err := s.Get(ctx, uid); err != nil {
		return fmt.Errorf("Service.DeleteAccount: %w", err)
	}
	removed, err := s.events.DeleteAll(ctx)
	if err != nil {
		return fmt.Errorf("Service.DeleteAccount: can't remove events: %w", err)
	}
	if _, err := s.db.NewDelete().
		Model((*model.Profile)(nil)).
		Where("uid = ?", uid).
		Exec(ctx); err != nil {
		return fmt.Errorf("Service.DeleteAccount: %w", err)
	}
	if s.owner != nil {
		if err := s.owner.Release(ctx, uid); err != nil {
			return fmt.Errorf("Service.DeleteAccount: %w", err)
		}
	}
	slog.Info("account deleted", "uid", uid, "events", removed)
	return nil
}
