/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package dbjournal

import (
	"testing"
	"time"

	"github.com/acronis/go-appkit/config"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		ping    bool
		wantErr string
	}{
		{
			name: "successful open with ping",
			cfg: &Config{
				Dialect:         DialectSQLite,
				SQLite:          SQLiteConfig{Path: ":memory:"},
				ConnMaxLifetime: config.TimeDuration(time.Minute * 10),
			},
			ping: true,
		},
		{
			name: "successful open with ping, pure go sqlite",
			cfg: &Config{
				Dialect: DialectSQLitePure,
				SQLite:  SQLiteConfig{Path: ":memory:"},
			},
			ping: true,
		},
		{
			name: "error on open",
			cfg: &Config{
				Dialect: Dialect("unknown"),
				SQLite:  SQLiteConfig{Path: ":memory:"},
			},
			ping:    false,
			wantErr: `unsupported dialect "unknown"`,
		},
		{
			name: "error on ping",
			cfg: &Config{
				Dialect:        DialectSQLite,
				SQLite:         SQLiteConfig{Path: "internal"}, // directory is not a valid path
				ConnectTimeout: config.TimeDuration(time.Second),
			},
			ping:    true,
			wantErr: "ping database",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbConn, err := Open(tt.cfg, tt.ping)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, dbConn)
			require.Equal(t, 1, dbConn.Stats().MaxOpenConnections)
			require.NoError(t, dbConn.Close())
		})
	}
}

func TestConfig_ConnectTimeoutOrDefault(t *testing.T) {
	require.Equal(t, DefaultConnectTimeout, (&Config{}).ConnectTimeoutOrDefault())
	require.Equal(t, 3*time.Second, (&Config{ConnectTimeout: config.TimeDuration(3 * time.Second)}).ConnectTimeoutOrDefault())
}

func TestPrometheusMetrics(t *testing.T) {
	metrics := NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{
		Namespace:   "app",
		ConstLabels: prometheus.Labels{"service": "billing"},
	})
	metrics.ObserveQueryDuration(DialectPostgres, "append_journal", 15*time.Millisecond)
	metrics.ObserveQueryDuration(DialectPostgres, "append_journal", 5*time.Millisecond)
	metrics.ObserveQueryDuration(DialectSQLite, "read_journal", time.Millisecond)

	require.Equal(t, 2, testutil.CollectAndCount(metrics.QueryDurations, "app_db_journal_query_duration_seconds"))

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(metrics.QueryDurations))
	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	var total uint64
	for _, m := range families[0].GetMetric() {
		total += m.GetHistogram().GetSampleCount()
	}
	require.Equal(t, uint64(3), total)
}

func TestPrometheusMetrics_MustRegister(t *testing.T) {
	metrics := NewPrometheusMetrics()
	require.NotPanics(t, metrics.MustRegister)
	defer metrics.Unregister()
	require.Panics(t, NewPrometheusMetrics().MustRegister)
}
