package health

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

func RedisCheck(rdb *redis.Client) Check {
	return Check{Name: "redis", Probe: func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}}
}

func PostgresCheck(db *sql.DB) Check {
	return Check{Name: "postgres", Probe: db.PingContext}
}

func NATSCheck(nc *nats.Conn) Check {
	return Check{Name: "nats", Probe: func(ctx context.Context) error {
		if !nc.IsConnected() {
			return errors.New("nats: " + nc.Status().String())
		}
		return nil
	}}
}

// Pinger is satisfied by the telemetry archive.
type Pinger interface {
	Ping(ctx context.Context) error
}

func InfluxCheck(p Pinger) Check {
	return Check{Name: "influxdb", Probe: p.Ping}
}
