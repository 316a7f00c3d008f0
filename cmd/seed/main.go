package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"flowbot/internal/config"
	"flowbot/internal/repository/demo"
	"flowbot/internal/repository/postgres"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop the chat tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed sessions")
	clearData := flag.Bool("clear-data", false, "Delete all sessions and messages (keep schema)")
	caseID := flag.String("case", demo.CaseID, "Case the seeded sessions belong to")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("🚫 BLOCKED: Cannot run destructive operations (--drop-tables or --clear-data) in production environment")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if *clearData {
		log.Printf("🧹 Clearing data only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else if *schemaOnly {
		log.Printf("🏗️  Setting up schema only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else {
		log.Printf("🌱 Seeding sessions for case %s (environment: %s, prefix: %s)", *caseID, cfg.Environment, cfg.TablePrefix)
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("🗑️  Dropping chat tables...")
		if err := postgres.DropSchema(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	log.Println("📋 Ensuring database schema is up to date...")
	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	if *clearData {
		if err := postgres.ClearData(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		log.Println("✅ Data cleared successfully")
		return
	}

	store := postgres.NewSessionStore(
		&postgres.RepositoryConfig{Pool: pool, Tables: tables, Logger: logger},
		postgres.NewTransactionManager(pool, logger),
	)
	seeder := newSeeder(store, demo.NewBackend(demo.Options{Logger: logger}), time.Now().Add(-48*time.Hour))

	for i, conv := range seedConversations {
		sess, err := seeder.seed(ctx, *caseID, conv)
		if err != nil {
			log.Printf("❌ Failed to seed conversation %d: %v", i+1, err)
			continue
		}
		log.Printf("✅ Seeded session %d/%d: %q (ID: %s, messages: %d)",
			i+1, len(seedConversations), sess.Title, sess.ID, sess.MessageCount)
	}

	log.Println("🎉 Seeding complete!")
}
