package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepare(t *testing.T) {
	opts := Options{MaxOpenConns: 7, MaxIdleConns: 3, ConnMaxLifetime: time.Minute, ConnectTimeout: 2 * time.Second}

	t.Run("applies pool settings", func(t *testing.T) {
		conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer conn.Close()
		mock.ExpectPing()

		require.NoError(t, prepare(context.Background(), conn, opts))
		assert.Equal(t, 7, conn.Stats().MaxOpenConnections)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ping failure names the timeout", func(t *testing.T) {
		conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer conn.Close()
		refused := errors.New("connection refused")
		mock.ExpectPing().WillReturnError(refused)

		err = prepare(context.Background(), conn, opts)
		assert.ErrorIs(t, err, refused)
		assert.ErrorContains(t, err, "within 2s")
	})
}
