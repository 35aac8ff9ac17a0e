package database

import (
	"fmt"
	"log"

	"planning-poker-backend/internal/config"
	"planning-poker-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg *config.Config) *gorm.DB {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	log.Println("database connected")
	return db
}

func AutoMigrate(db *gorm.DB) {
	// Early deployments stored participant tokens in a column named web_token.
	db.Exec(`DO $$
	BEGIN
		IF EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'participants' AND column_name = 'web_token')
		   AND NOT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'participants' AND column_name = 'guest_token')
		THEN
			ALTER TABLE participants RENAME COLUMN web_token TO guest_token;
		END IF;
	END $$;`)

	// Sessions created before the summary counters existed default to zero.
	db.Exec(`DO $$
	BEGIN
		IF EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'sessions')
		   AND NOT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'sessions' AND column_name = 'consensus_rate')
		THEN
			ALTER TABLE sessions ADD COLUMN consensus_rate integer NOT NULL DEFAULT 0;
		END IF;
	END $$;`)

	err := db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Participant{},
		&models.Story{},
		&models.Vote{},
	)
	if err != nil {
		log.Fatalf("failed to auto-migrate: %v", err)
	}
	log.Println("database migrated")
}
