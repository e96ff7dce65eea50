package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryBackoff_ExponentialWithJitter(t *testing.T) {
	bases := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	for attempt, base := range bases {
		for i := 0; i < 50; i++ {
			d := retryBackoff(attempt)
			low := time.Duration(float64(base) * (1 - retryJitterFraction))
			high := time.Duration(float64(base) * (1 + retryJitterFraction))
			assert.GreaterOrEqual(t, d, low)
			assert.LessOrEqual(t, d, high)
		}
	}
}

func TestRetryBackoff_NegativeAttempt(t *testing.T) {
	d := retryBackoff(-1)
	assert.LessOrEqual(t, d, time.Duration(float64(time.Second)*(1+retryJitterFraction)))
}

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "db",
		Port:     5432,
		User:     "search",
		Password: "p@ss word",
		DBName:   "catalog",
		SSLMode:  "disable",
	}

	assert.Equal(t, "postgres://search:p%40ss%20word@db:5432/catalog?sslmode=disable", cfg.DSN())
}
