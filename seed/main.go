package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/learnproof/learnproof-api/seed/seeders"
	"github.com/learnproof/learnproof-api/services"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	var (
		seedType = flag.String("type", "all", "Type of seeding: all, users, content")
		driver   = flag.String("driver", "", "Database driver: sqlite or postgres (overrides DB_DRIVER)")
		dsn      = flag.String("db", "", "Database path or DSN (overrides DB_DATABASE / DATABASE_URL)")
		help     = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *help {
		showHelp()
		return
	}

	dialector, err := openDialector(*driver, *dsn)
	if err != nil {
		log.Fatalf("Invalid database configuration: %v", err)
	}

	db, err := services.OpenDatabase(dialector)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := services.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	mainSeeder := seeders.NewMainSeeder(db)

	switch *seedType {
	case "all":
		log.Println("Running complete database seeding...")
		err = mainSeeder.SeedAll()
	case "users":
		log.Println("Seeding demo users only...")
		err = mainSeeder.SeedUsersOnly()
	case "content":
		log.Println("Seeding demo content only...")
		err = mainSeeder.SeedContentOnly()
	default:
		log.Fatalf("Unknown seed type: %s. Use 'all', 'users', or 'content'", *seedType)
	}
	if err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	log.Println("Seeding operation completed successfully!")
}

func openDialector(driver, dsn string) (gorm.Dialector, error) {
	if driver == "" {
		driver = os.Getenv("DB_DRIVER")
	}

	switch driver {
	case "", "sqlite":
		if dsn == "" {
			dsn = os.Getenv("DB_DATABASE")
		}
		if dsn == "" {
			dsn = "learnproof.db"
		}
		log.Printf("Using sqlite database: %s", dsn)
		return sqlite.Open(dsn), nil
	case "postgres":
		if dsn == "" {
			dsn = os.Getenv("DATABASE_URL")
		}
		if dsn == "" {
			return nil, errMissingDSN
		}
		log.Println("Using postgres database")
		return postgres.Open(dsn), nil
	}
	return nil, errUnknownDriver(driver)
}

func showHelp() {
	log.Print(`
Demo data seeder for the LearnProof API

Usage: go run ./seed [flags]

Flags:
  -type string
        Type of seeding to perform (default "all")
        Options: all, users, content
  -driver string
        sqlite or postgres (default from DB_DRIVER, falling back to sqlite)
  -db string
        sqlite path or postgres DSN
  -help
        Show this help message

Environment Variables:
  DB_DRIVER    - sqlite or postgres
  DB_DATABASE  - sqlite path (default: learnproof.db)
  DATABASE_URL - postgres DSN
  SEED_USER_UID - identity-provider uid of the demo user (default: demo-user)
`)
}
