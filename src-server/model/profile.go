package model

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type PreparationStyle string

const (
	PREPARATION_STYLE_RELAXED = PreparationStyle("relaxed")
	PREPARATION_STYLE_ON_TIME = PreparationStyle("onTime")
)

// Profile is the per-user document kept next to the external auth account.
type Profile struct {
	bun.BaseModel `bun:"table:profiles"`

	UID         string `bun:"uid,pk" json:"uid"` // required
	DisplayName string `bun:"display_name" json:"displayName"`
	Email       string `bun:"email,notnull" json:"email"` // required

	SurveyCompleted bool `bun:"survey_completed,notnull" json:"surveyCompleted"`
	IsFirstLogin    bool `bun:"is_first_login,notnull" json:"isFirstLogin"`

	// minutes needed to get ready before an event
	PreparationMinutes int              `bun:"preparation_minutes" json:"preparationMinutes"`
	PreparationStyle   PreparationStyle `bun:"preparation_style,type:varchar" json:"preparationStyle"`

	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

func (p *Profile) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case p.UID == "":
		return fmt.Errorf("(*Profile).Upsert: uid is blank")
	case p.Email == "":
		return fmt.Errorf("(*Profile).Upsert: email is blank")
	case p.PreparationMinutes < 0:
		return fmt.Errorf("(*Profile).Upsert: preparation time is negative")
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	if _, err := db.NewInsert().
		Model(p).
		On("CONFLICT (uid) DO UPDATE").
		Set("display_name = EXCLUDED.display_name").
		Set("email = EXCLUDED.email").
		Set("survey_completed = EXCLUDED.survey_completed").
		Set("is_first_login = EXCLUDED.is_first_login").
		Set("preparation_minutes = EXCLUDED.preparation_minutes").
		Set("preparation_style = EXCLUDED.preparation_style").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*Profile).Upsert: %w", err)
	}
	return nil
}
