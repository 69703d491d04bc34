package postgres

//nolint:revive
import (
	"time"

	"meetroom/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const (
	driverName         = "postgres"
	maxOpenConnections = 10
	maxIdleConnections = 10
	connMaxIdleTime    = 5 * time.Minute
)

// Connection keeps reads on the replica and everything transactional on the primary.
// Booking writes must stay on Write so the overlap check and the insert see the same data.
type Connection struct {
	Read  *sqlx.DB
	Write *sqlx.DB
}

func New(cfg *config.Config) *Connection {
	pg := cfg.DB.Postgres

	return &Connection{
		Read:  connect("read", pg.Read, pg.Prefix, pg.MaxRetry, pg.RetryWaitTime),
		Write: connect("write", pg.Write, pg.Prefix, pg.MaxRetry, pg.RetryWaitTime),
	}
}

func connect(role string, endpoint config.PostgresEndpoint, prefix string, maxRetry, waitSeconds int) *sqlx.DB {
	logger := log.With().
		Str("role", role).
		Str("host", endpoint.Host).
		Str("port", endpoint.Port).
		Str("dbName", prefix+endpoint.Name).
		Logger()

	var lastErr error

	for attempt := 1; attempt <= max(maxRetry, 1); attempt++ {
		db, err := sqlx.Connect(driverName, endpoint.URL(prefix, nil))
		if err == nil {
			db.SetMaxOpenConns(maxOpenConnections)
			db.SetMaxIdleConns(maxIdleConnections)
			db.SetConnMaxIdleTime(connMaxIdleTime)

			logger.Info().Msg("Connected to database")

			return db
		}

		lastErr = err

		logger.Error().Err(err).Int("attempt", attempt).Msg("Failed connecting to database, retrying")
		time.Sleep(time.Duration(waitSeconds) * time.Second)
	}

	logger.Fatal().Err(lastErr).Msg("Giving up on database connection")

	return nil
}
