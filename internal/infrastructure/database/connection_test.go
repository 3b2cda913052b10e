package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexora-inc/lexora/internal/shared/config"
)

func TestDialector(t *testing.T) {
	cfg := &config.DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, Username: "u", Password: "p", Database: "lexora"}
	d, err := Dialector(cfg)
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	cfg.Driver = "MySQL"
	d, err = Dialector(cfg)
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.Name())

	cfg.Driver = "oracle"
	_, err = Dialector(cfg)
	assert.Error(t, err)
}

func TestGetDSN(t *testing.T) {
	pg := config.DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, Username: "u", Password: "p", Database: "lexora"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=lexora sslmode=disable TimeZone=UTC", pg.GetDSN())

	my := config.DatabaseConfig{Driver: "mysql", Host: "db", Port: 3306, Username: "u", Password: "p", Database: "lexora"}
	assert.Equal(t, "u:p@tcp(db:3306)/lexora?charset=utf8mb4&parseTime=True&loc=UTC", my.GetDSN())
}
