package repo

import (
	"log"
	"os"

	"cardroom/internal/config"
	"cardroom/internal/model"
	"cardroom/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	dsn := config.GlobalConfig.Database.DSN
	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Log.Fatal("Failed to connect to database",
			zap.Error(err),
		)
	}

	models := []interface{}{
		&model.Admin{},
		&model.RewardLedger{},
		&model.RewardEvent{},
	}

	if os.Getenv("SKIP_USER_MIGRATE") != "1" {
		models = append(models, &model.User{})
	}

	err = DB.AutoMigrate(models...)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
}
