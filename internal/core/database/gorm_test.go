package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNormalizeMySQLDSN(t *testing.T) {
	t.Run("go-sql-driver dsn untouched", func(t *testing.T) {
		in := "root:pw@tcp(127.0.0.1:3306)/feedback?parseTime=true"
		require.Equal(t, in, normalizeMySQLDSN(in, "admin", "secret"))
	})

	t.Run("jdbc url converted", func(t *testing.T) {
		got := normalizeMySQLDSN(
			"jdbc:mysql://db:3306/feedback?useUnicode=true&characterEncoding=utf8&useSSL=false",
			"", "",
		)
		require.Equal(t, "tcp(db:3306)/feedback?charset=utf8&parseTime=true&tls=false", got)
	})

	t.Run("credential override", func(t *testing.T) {
		got := normalizeMySQLDSN("mysql://u:p@db:3306/feedback", "admin", "secret")
		require.Equal(t, "admin:secret@tcp(db:3306)/feedback?charset=utf8mb4&parseTime=true", got)
	})

	t.Run("empty", func(t *testing.T) {
		require.Equal(t, "", normalizeMySQLDSN("  ", "", ""))
	})
}

func TestMaskDSN(t *testing.T) {
	require.Equal(t, "admin:****@tcp(db:3306)/feedback", MaskDSN("admin:secret@tcp(db:3306)/feedback"))
	require.Equal(t, "tcp(db:3306)/feedback", MaskDSN("tcp(db:3306)/feedback"))
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := NewGorm(Opts{Driver: "oracle"})
	require.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestGormLoggerNamedOnce(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	l := newGormLogger(zap.New(core), "warn")
	l.Warn(context.Background(), "slow query %s", "users")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "gorm", entries[0].LoggerName)
	require.Contains(t, entries[0].Message, "slow query users")
}
