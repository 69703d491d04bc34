package http

import (
	"context"
	"fmt"

	"meetroom/infras/postgres"

	goRedis "github.com/redis/go-redis/v9"
)

// Probe reports whether a backing service is reachable.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

type Probes []Probe

func NewProbes(db *postgres.Connection, rdb *goRedis.Client) Probes {
	return Probes{
		{Name: "postgres", Check: db.Write.PingContext},
		{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}},
	}
}

// Check returns the first failing probe.
func (p Probes) Check(ctx context.Context) error {
	for _, probe := range p {
		if err := probe.Check(ctx); err != nil {
			return fmt.Errorf("%s unreachable: %w", probe.Name, err)
		}
	}

	return nil
}
