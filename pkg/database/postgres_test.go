package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/timetable-editor/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "editor", Password: "pw", Name: "timetable", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5433 user=editor password=pw dbname=timetable sslmode=disable", dsn)
}
