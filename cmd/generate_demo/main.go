// Command generate_demo creates a demo database with a sample library of
// public domain books, reader accounts and loans.
// Usage: go run ./cmd/generate_demo [-db path/to/demo.db]
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/demo"
	"github.com/mrlokans/librarian/internal/entrypoint"
)

const defaultDemoDatabasePath = "./demo/demo.db"

func main() {
	dbPath := flag.String("db", defaultDemoDatabasePath, "path to the demo database file")
	flag.Parse()

	log.Printf("Generating demo database at %s...", *dbPath)

	// Delete existing demo database to start fresh
	if err := os.Remove(*dbPath); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to remove existing demo database: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(*dbPath), 0o755); err != nil {
		log.Fatalf("Failed to create demo directory: %v", err)
	}

	cfg := config.NewConfig()
	cfg.Database.Driver = config.DriverSQLite
	cfg.Database.Path = *dbPath
	cfg.Covers.Dir = filepath.Join(filepath.Dir(*dbPath), "covers")
	cfg.Metadata.Enabled = false

	services, err := entrypoint.NewServices(cfg)
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}
	defer services.Close()

	result, err := demo.Seed(context.Background(), demo.Library{
		Accounts:    services.Auth,
		Catalog:     services.Catalog,
		Circulation: services.Coordinator,
	})
	if err != nil {
		log.Fatalf("Failed to seed demo library: %v", err)
	}

	log.Printf("Created %d books, %d readers, %d loans (%d returned)", result.Books, result.Readers, result.Borrows, result.Returns)
	log.Printf("Sign in as %s with password %q", demo.AdminEmail, demo.Password)
	log.Println("Demo database generated successfully!")
}
