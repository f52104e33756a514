package main

import (
	"bytes"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRun_NoChangeIsNotFatal(t *testing.T) {
	var buf bytes.Buffer
	run(zerolog.New(&buf), "up", migrate.ErrNoChange)
	assert.Contains(t, buf.String(), "No change")

	buf.Reset()
	run(zerolog.New(&buf), "down", nil)
	assert.Contains(t, buf.String(), "Migration applied")
}

func TestMigrateLogger(t *testing.T) {
	var buf bytes.Buffer
	l := migrateLogger{log: zerolog.New(&buf).Level(zerolog.DebugLevel)}
	assert.True(t, l.Verbose())

	l.Printf("Start buffering %d/u %s", 1, "init_schema")
	assert.Contains(t, buf.String(), "Start buffering 1/u init_schema")

	quiet := migrateLogger{log: zerolog.New(&buf).Level(zerolog.InfoLevel)}
	assert.False(t, quiet.Verbose())
}
