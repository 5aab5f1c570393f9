// Command mailforge-migrate copies a file-backed data directory into a
// sqlite database so a deployment can switch storage backends without
// losing templates, venue records, or schemas.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/venuehub/mailforge/internal/storage"
)

func main() {
	dataDir := flag.String("data-dir", "data", "file store directory to migrate from")
	dbPath := flag.String("db", "mailforge.db", "sqlite database to migrate into")
	yes := flag.Bool("yes", false, "skip the confirmation prompt")
	flag.Parse()

	src, err := storage.NewFileStore(*dataDir)
	if err != nil {
		fmt.Printf("Error opening file store: %v\n", err)
		os.Exit(1)
	}

	templates, err := src.List()
	if err != nil {
		fmt.Printf("Error listing templates: %v\n", err)
		os.Exit(1)
	}
	venueKeys, err := src.ListVenues()
	if err != nil {
		fmt.Printf("Error listing venues: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Found %d templates and %d venues in %s\n", len(templates), len(venueKeys), *dataDir)
	if len(templates) == 0 && len(venueKeys) == 0 {
		fmt.Println("Nothing to migrate")
		return
	}

	if !*yes {
		fmt.Printf("\nMigrate into %s? (y/N): ", *dbPath)
		var response string
		fmt.Scanln(&response)
		if strings.ToLower(response) != "y" {
			fmt.Println("Migration cancelled")
			return
		}
	}

	dst, err := storage.NewSQLiteStore(*dbPath)
	if err != nil {
		fmt.Printf("Error opening sqlite store: %v\n", err)
		os.Exit(1)
	}
	defer dst.Close()

	migrated := 0
	for _, tmpl := range templates {
		fmt.Printf("Copying template %s\n", tmpl.Key)
		if err := dst.SaveTemplate(tmpl); err != nil {
			fmt.Printf("Error saving template %s: %v\n", tmpl.Key, err)
			continue
		}

		schema, err := src.LoadSchema(tmpl.Key)
		if err != nil {
			fmt.Printf("Error loading schema for %s: %v\n", tmpl.Key, err)
			continue
		}
		if schema != nil {
			if err := dst.SaveSchema(schema); err != nil {
				fmt.Printf("Error saving schema for %s: %v\n", tmpl.Key, err)
				continue
			}
		}
		migrated++
	}

	venuesMigrated := 0
	for _, key := range venueKeys {
		vars, err := src.LoadVenue(key)
		if err != nil {
			fmt.Printf("Error loading venue %s: %v\n", key, err)
			continue
		}
		fmt.Printf("Copying venue %s\n", key)
		if err := dst.SaveVenue(key, vars); err != nil {
			fmt.Printf("Error saving venue %s: %v\n", key, err)
			continue
		}
		venuesMigrated++
	}

	fmt.Printf("Migration completed: %d templates, %d venues\n", migrated, venuesMigrated)
	fmt.Printf("Start the server with MAILFORGE_STORAGE=sqlite MAILFORGE_DB=%s\n", *dbPath)
}
