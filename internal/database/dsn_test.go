package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSQLiteDSNDefaultsToSharedMemory(t *testing.T) {
	dsn, err := sqliteDSN(Config{})
	require.NoError(t, err)
	require.Equal(t, memoryDSN, dsn)

	dsn, err = sqliteDSN(Config{Path: ":memory:"})
	require.NoError(t, err)
	require.Equal(t, memoryDSN, dsn)
}

func TestSQLiteDSNPassesOverrideThrough(t *testing.T) {
	dsn, err := sqliteDSN(Config{DSN: "file:custom.db"})
	require.NoError(t, err)
	require.Equal(t, "file:custom.db", dsn)
}

func TestMySQLDSNBuildsFromParts(t *testing.T) {
	dsn, err := mysqlDSN(Config{
		User:     "collab",
		Password: "s3cret",
		Name:     "collabflow",
	})
	require.NoError(t, err)
	require.Equal(t, "collab:s3cret@tcp(127.0.0.1:3306)/collabflow?charset=utf8mb4&loc=UTC&parseTime=True", dsn)
}

func TestMySQLDSNRequiresUserAndName(t *testing.T) {
	_, err := mysqlDSN(Config{User: "collab"})
	require.Error(t, err)
}
