package seeders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"crm-system/pkg/config"
	"crm-system/pkg/constants"
	"crm-system/pkg/utils"
)

// SeedAdmin creates the first ADMIN account. It never touches an existing user.
func SeedAdmin(ctx context.Context, db *pgxpool.Pool, cfg config.SeederConfig) error {
	log.Println("  - seeding ADMIN user...")

	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" || cfg.AdminPassword == "" {
		log.Println("    SEED_ADMIN_EMAIL or SEED_ADMIN_PASSWORD is not set, skipping")
		return nil
	}

	var existing string
	err := db.QueryRow(ctx, "SELECT id FROM users WHERE email = $1", email).Scan(&existing)
	if err == nil {
		log.Printf("    user %s already exists, skipping", email)
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("look up admin user: %w", err)
	}

	hash, err := utils.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	_, err = db.Exec(ctx,
		`INSERT INTO users (full_name, email, role, password_hash, is_active) VALUES ($1, $2, $3, $4, TRUE)`,
		cfg.AdminName, email, string(constants.RoleAdmin), hash,
	)
	if err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	log.Printf("    user %s created", email)
	return nil
}

// SeedBanks inserts the default financing banks; existing names are left alone.
func SeedBanks(ctx context.Context, db *pgxpool.Pool) error {
	log.Println("  - seeding banks...")

	batch := &pgx.Batch{}
	for _, b := range banksData {
		batch.Queue(
			`INSERT INTO banks (name, annual_rate, max_term_months) VALUES ($1, $2, $3) ON CONFLICT (name) DO NOTHING`,
			b.Name, b.AnnualRate, b.MaxTermMonths,
		)
	}

	results := db.SendBatch(ctx, batch)
	defer results.Close()
	inserted := int64(0)
	for _, b := range banksData {
		tag, err := results.Exec()
		if err != nil {
			return fmt.Errorf("insert bank %q: %w", b.Name, err)
		}
		inserted += tag.RowsAffected()
	}
	log.Printf("    %d of %d banks inserted", inserted, len(banksData))
	return nil
}
