package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"strconv"
	"strings"

	_ "github.com/lib/pq"

	"github.com/ttys3/gitea-sso/internal/config"
	"github.com/ttys3/gitea-sso/internal/db"
)

// Manually apply SQL migrations. Usage:
//
//	migrate [-dir migrations] [up|down] [steps]
//
// up applies *_up.sql files ascending, down applies *_down.sql files
// descending. steps limits how many files are applied.
func main() {
	dir := flag.String("dir", "migrations", "Migrations directory (contains *_up.sql and *_down.sql)")
	flag.Parse()

	action := "up"
	steps := 0
	args := flag.Args()
	if len(args) >= 1 && args[0] != "" {
		action = strings.ToLower(args[0])
	}
	if len(args) >= 2 {
		if n, err := strconv.Atoi(args[1]); err == nil && n > 0 {
			steps = n
		}
	}

	cfg := config.Load()
	if cfg.DatabaseDSN == "" {
		log.Fatal("DATABASE_DSN is not set")
	}

	ctx := context.Background()
	sqlDB, err := sql.Open("postgres", cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.PingContext(ctx); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	switch action {
	case "up":
		files, err := db.ListMigrations(*dir, "_up.sql")
		if err != nil {
			log.Fatalf("list up migrations: %v", err)
		}
		if len(files) == 0 {
			log.Println("No *_up.sql migrations found. Nothing to do.")
			return
		}
		if steps > 0 && steps < len(files) {
			files = files[:steps]
		}
		log.Printf("Applying %d up migration(s)...", len(files))
		apply(ctx, sqlDB, files)
		log.Println("Up migrations completed.")

	case "down":
		files, err := db.ListMigrations(*dir, "_down.sql")
		if err != nil {
			log.Fatalf("list down migrations: %v", err)
		}
		if len(files) == 0 {
			log.Println("No *_down.sql migrations found. Nothing to do.")
			return
		}
		// revert newest first
		for i, j := 0, len(files)-1; i < j; i, j = i+1, j-1 {
			files[i], files[j] = files[j], files[i]
		}
		if steps > 0 && steps < len(files) {
			files = files[:steps]
		}
		log.Printf("Applying %d down migration(s)...", len(files))
		apply(ctx, sqlDB, files)
		log.Println("Down migrations completed.")

	default:
		log.Fatalf("unknown action %q (want up or down)", action)
	}
}

func apply(ctx context.Context, sqlDB *sql.DB, files []string) {
	for _, f := range files {
		log.Printf("  %s", f)
		if err := db.ExecFile(ctx, sqlDB, f); err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}
	}
}
