// Package seed loads the plan catalogue from a YAML file.
package seed

import (
	"context"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	planusecases "msgdeck/internal/application/plan/usecases"
	"msgdeck/internal/domain/plan"
	apperrors "msgdeck/internal/shared/errors"
	"msgdeck/internal/shared/logger"
)

// PlanFile is the document layout of configs/plans.yaml.
type PlanFile struct {
	Plans []PlanSpec `yaml:"plans"`
}

// PlanSpec uses strings for money so YAML floats never round.
type PlanSpec struct {
	Code          string            `yaml:"code"`
	Name          string            `yaml:"name"`
	Description   string            `yaml:"description"`
	Family        string            `yaml:"family"`
	Prices        map[string]string `yaml:"prices"`
	Limits        map[string]int64  `yaml:"limits"`
	Features      map[string]bool   `yaml:"features"`
	MessagePrices map[string]string `yaml:"message_prices"`
	Active        *bool             `yaml:"active"`
	Visible       *bool             `yaml:"visible"`
	SortOrder     int               `yaml:"sort_order"`
}

type PlanUpserter interface {
	FindByCode(ctx context.Context, code string) (*plan.Plan, error)
	CreatePlan(ctx context.Context, cmd planusecases.CreatePlanCommand) (*plan.Plan, error)
	UpdatePlan(ctx context.Context, cmd planusecases.UpdatePlanCommand) (*plan.Plan, error)
}

type Result struct {
	Created int
	Updated int
}

type PlanSeeder struct {
	plans  PlanUpserter
	logger logger.Interface
}

func NewPlanSeeder(plans PlanUpserter, log logger.Interface) *PlanSeeder {
	return &PlanSeeder{plans: plans, logger: log}
}

// ParsePlans decodes and checks a plan file without touching the database.
func ParsePlans(r io.Reader) (*PlanFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f PlanFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse plan file: %w", err)
	}
	if len(f.Plans) == 0 {
		return nil, fmt.Errorf("plan file has no plans")
	}

	seen := make(map[string]bool, len(f.Plans))
	for i, p := range f.Plans {
		code := plan.NormalizeCode(p.Code)
		if code == "" {
			return nil, fmt.Errorf("plan #%d: code is required", i+1)
		}
		if seen[code] {
			return nil, fmt.Errorf("plan %q appears twice", code)
		}
		seen[code] = true
	}
	return &f, nil
}

// Seed creates plans missing by code and updates the rest in place, so it can run on
// every deploy.
func (s *PlanSeeder) Seed(ctx context.Context, r io.Reader) (Result, error) {
	var res Result
	f, err := ParsePlans(r)
	if err != nil {
		return res, err
	}

	for _, entry := range f.Plans {
		prices, err := toDecimals(entry.Prices)
		if err != nil {
			return res, fmt.Errorf("plan %q prices: %w", entry.Code, err)
		}
		messagePrices, err := toDecimals(entry.MessagePrices)
		if err != nil {
			return res, fmt.Errorf("plan %q message_prices: %w", entry.Code, err)
		}
		active := boolOr(entry.Active, true)
		visible := boolOr(entry.Visible, true)

		existing, err := s.plans.FindByCode(ctx, entry.Code)
		switch {
		case apperrors.IsNotFoundError(err):
			if _, err := s.plans.CreatePlan(ctx, planusecases.CreatePlanCommand{
				Code:          entry.Code,
				Name:          entry.Name,
				Description:   entry.Description,
				Family:        entry.Family,
				Prices:        prices,
				Limits:        entry.Limits,
				Features:      entry.Features,
				MessagePrices: messagePrices,
				IsActive:      active,
				IsVisible:     visible,
				SortOrder:     entry.SortOrder,
			}); err != nil {
				return res, fmt.Errorf("plan %q: %w", entry.Code, err)
			}
			res.Created++
		case err != nil:
			return res, fmt.Errorf("plan %q: %w", entry.Code, err)
		default:
			sortOrder := entry.SortOrder
			if _, err := s.plans.UpdatePlan(ctx, planusecases.UpdatePlanCommand{
				ID:            existing.ID(),
				Name:          &entry.Name,
				Description:   &entry.Description,
				Family:        &entry.Family,
				Prices:        prices,
				Limits:        entry.Limits,
				Features:      entry.Features,
				MessagePrices: messagePrices,
				IsActive:      &active,
				IsVisible:     &visible,
				SortOrder:     &sortOrder,
			}); err != nil {
				return res, fmt.Errorf("plan %q: %w", entry.Code, err)
			}
			res.Updated++
		}
	}

	s.logger.Infow("plan catalogue seeded", "created", res.Created, "updated", res.Updated)
	return res, nil
}

func toDecimals(in map[string]string) (map[string]decimal.Decimal, error) {
	if in == nil {
		return nil, nil
	}
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a number", k, v)
		}
		out[k] = d
	}
	return out, nil
}

func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}
