// Command userplan performs the admin-override plan write against a single
// profile. It is the privileged counterpart of the self-service and
// reconciler paths and shares their audit trail.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"bookforge/internal/adapter/repo"
	"bookforge/internal/domain"
	"bookforge/internal/entitlement"
	"bookforge/internal/infra"
	"bookforge/internal/sqlinline"
)

func main() {
	var (
		idFlag         string
		emailFlag      string
		planFlag       string
		resetUsageFlag bool
	)

	flag.StringVar(&idFlag, "id", "", "profile ID to update (UUID)")
	flag.StringVar(&emailFlag, "email", "", "profile email to update")
	flag.StringVar(&planFlag, "plan", "", "plan to assign (basic, golden, unlimited)")
	flag.BoolVar(&resetUsageFlag, "reset-usage", false, "also reset today's usage counter to 0")
	flag.Parse()

	profileID := strings.TrimSpace(idFlag)
	email := strings.TrimSpace(strings.ToLower(emailFlag))

	if profileID == "" && email == "" {
		exitWithError(errors.New("either -id or -email must be provided"))
	}
	plan, err := domain.ParsePlan(strings.TrimSpace(strings.ToLower(planFlag)))
	if err != nil {
		exitWithError(fmt.Errorf("unsupported plan %q", planFlag))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "userplan").Logger()
	profiles := repo.NewProfileRepository(pool)
	entitlements := entitlement.NewManager(profiles, repo.NewPlanChangeRepository(pool), logger)

	if profileID == "" {
		profile, err := profiles.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, domain.ErrIntegrity) {
				exitWithError(fmt.Errorf("multiple profiles share email %s, refusing to pick one", email))
			}
			exitWithError(fmt.Errorf("failed to load profile: %w", err))
		}
		profileID = profile.ID
	}

	updated, err := entitlements.SetPlan(ctx, profileID, plan, entitlement.ActorAdminOverride)
	if err != nil {
		exitWithError(fmt.Errorf("failed to update plan: %w", err))
	}

	if resetUsageFlag {
		runner := infra.NewSQLRunner(pool, logger)
		row := runner.QueryRow(ctx, sqlinline.QResetUsage, profileID)
		var id, resetEmail string
		var resetPlan domain.Plan
		var usage int
		if err := row.Scan(&id, &resetEmail, &resetPlan, &usage); err != nil {
			exitWithError(fmt.Errorf("failed to reset usage: %w", err))
		}
		updated.UsageCount = usage
	}

	fmt.Printf("Profile %s (%s) updated to plan %s\n", updated.ID, updated.Email, updated.Plan)
	fmt.Printf("usage_count=%d last_reset_date=%s\n", updated.UsageCount, updated.LastResetDate)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
