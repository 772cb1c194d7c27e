package main

import (
	"context"
	"flag"
	"log"

	"crm-system/pkg/config"
	"crm-system/pkg/database/postgresql"
	applogger "crm-system/pkg/logger"
	"crm-system/seeders"
)

func main() {
	runAdmin := flag.Bool("admin", false, "create the ADMIN user from SEED_ADMIN_EMAIL / SEED_ADMIN_PASSWORD")
	runBanks := flag.Bool("banks", false, "insert the default financing banks")
	runMigrate := flag.Bool("migrate", false, "apply migrations before seeding")
	runAll := flag.Bool("all", false, "equivalent to -migrate -admin -banks")
	flag.Parse()

	if !*runAdmin && !*runBanks && !*runMigrate && !*runAll {
		log.Println("no seeder selected")
		flag.PrintDefaults()
		log.Println("example: go run ./seeders/cmd/seed -all")
		return
	}

	ctx := context.Background()
	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log)

	dbPool, err := postgresql.ConnectDB(ctx, cfg.Postgres, logger)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer dbPool.Close()

	if *runAll || *runMigrate {
		if err := postgresql.Migrate(ctx, dbPool); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
	}
	if *runAll || *runAdmin {
		if err := seeders.SeedAdmin(ctx, dbPool, cfg.Seeder); err != nil {
			log.Fatalf("admin seeder failed: %v", err)
		}
	}
	if *runAll || *runBanks {
		if err := seeders.SeedBanks(ctx, dbPool); err != nil {
			log.Fatalf("bank seeder failed: %v", err)
		}
	}

	log.Println("seeding finished")
}
