package main

import (
	"meetroom/config"
	"meetroom/di"
	"meetroom/helper"
	"meetroom/shared/logger"

	"github.com/rs/zerolog/log"
)

// @title Meeting Room Booking API
// @version 1.0
// @description Room directory, booking requests with conflict detection, and availability.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Get()

	logger.InitLogger(cfg)

	if cfg.DB.Postgres.AutoMigrate {
		if err := helper.Up(cfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply database migrations")
		}
	}

	server := di.InitializeService()
	server.Serve()
}
