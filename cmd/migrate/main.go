package main

import (
	"os"
	"strconv"

	"meetroom/config"
	"meetroom/helper"
	"meetroom/shared/logger"

	"github.com/rs/zerolog/log"
)

const (
	argLength      = 2
	forceArgLength = 3
	actionForce    = "force"
)

func main() {
	cfg := config.Get()

	logger.InitLogger(cfg)

	if len(os.Args) < argLength {
		log.Fatal().Msg("Migration direction (up/down/step-up/drop/force) is required")
	}

	if os.Args[1] == actionForce {
		if len(os.Args) < forceArgLength {
			log.Fatal().Msg("force requires a version, e.g. 'force 2'")
		}

		version, err := strconv.Atoi(os.Args[2])
		if err != nil {
			log.Fatal().Err(err).Str("version", os.Args[2]).Msg("Invalid migration version")
		}

		if err := helper.Force(cfg, version); err != nil {
			log.Fatal().Err(err).Msg("Failed to force migration version")
		}

		return
	}

	if err := helper.Runner(cfg, helper.Action(os.Args[1])); err != nil {
		log.Fatal().Err(err).Str("action", os.Args[1]).Msg("Migration failed")
	}
}
