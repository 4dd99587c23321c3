package main

import (
	"log"
	"os"

	"doc-assistant-be/internal/model"
	"doc-assistant-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn, true)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	// 3. Extensions (things AutoMigrate does not do)
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		log.Printf("Warn: Failed to create uuid-ossp extension: %v. Continuing...", err)
	}

	// 4. AutoMigrate document tables
	log.Println("Running AutoMigrate for document tables...")
	if err := database.Migrate(db, &model.Document{}, &model.DocumentSection{}); err != nil {
		log.Fatal("Error: Migration failed:", err)
	}

	log.Println("Migration complete.")
}
