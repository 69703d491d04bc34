package helper

//nolint:revive
import (
	"errors"
	"fmt"
	"net/url"

	"meetroom/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog/log"
)

const migrationsSource = "file://migrations/postgres"

type Action string

const (
	ActionUp     Action = "up"
	ActionDown   Action = "down"
	ActionStepUp Action = "step-up"
	ActionDrop   Action = "drop"
)

func getConnection(cfg *config.Config) (*migrate.Migrate, error) {
	pg := cfg.DB.Postgres

	extra := url.Values{}
	if pg.MigrationTable != "" {
		extra.Set("x-migrations-table", pg.MigrationTable)
	}

	mig, err := migrate.New(migrationsSource, pg.Write.URL(pg.Prefix, extra))
	if err != nil {
		return nil, fmt.Errorf("error creating migrate instance: %w", err)
	}

	return mig, nil
}

// Runner applies one migration action. ErrNoChange is not an error.
func Runner(config *config.Config, action Action) error {
	mig, err := getConnection(config)
	if err != nil {
		return err
	}

	defer mig.Close()

	switch action {
	case ActionUp:
		err = mig.Up()
	case ActionDown:
		err = mig.Steps(-1)
	case ActionStepUp:
		err = mig.Steps(1)
	case ActionDrop:
		err = mig.Down()
	default:
		return fmt.Errorf("unknown migration action %q", action)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error running %s migration: %w", action, err)
	}

	version, dirty, _ := mig.Version()
	log.Info().Str("action", string(action)).Uint("version", version).Bool("dirty", dirty).Msg("Database migration finished")

	return nil
}

// Force marks version as applied without running it, clearing a dirty state left by a failed migration.
func Force(config *config.Config, version int) error {
	mig, err := getConnection(config)
	if err != nil {
		return err
	}

	defer mig.Close()

	if err := mig.Force(version); err != nil {
		return fmt.Errorf("error forcing migration version %d: %w", version, err)
	}

	log.Warn().Int("version", version).Msg("Database migration version forced")

	return nil
}

func Up(config *config.Config) error {
	return Runner(config, ActionUp)
}

func StepUp(config *config.Config) error {
	return Runner(config, ActionStepUp)
}

func Down(config *config.Config) error {
	return Runner(config, ActionDown)
}

func Drop(config *config.Config) error {
	return Runner(config, ActionDrop)
}
