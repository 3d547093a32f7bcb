package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
database:
  host: "localhost"
  port: 5432
  username: "u"
  password: "p"
  name: "db"
kafka:
  host: "localhost"
  port: 9092
  trip_assigned_topic_name: "trip.assigned"
  pickup_resolved_topic_name: "pickup.resolved"
redis:
  host: "localhost"
  port: 6379
portal:
  grpc_addr: ":50051"
  http_addr: ":8080"
  kafka_consumer_group: "portal-api"
  feed_mode: "fake"
  sync_interval_seconds: 15
  session_ttl_seconds: 86400
  login_rate_limit_per_minute: 5
  api_base_url: "https://api.gocab.tech/api"
  default_office_id: "BR"
  offices:
    - id: "HQ"
      name: "Head Office"
      lat: 19.076
      lng: 72.8777
    - id: "BR"
      name: "Branch"
      working_hours: "09:00-18:00"
      lat: 19.0825
      lng: 72.8754
worker:
  http_addr: ":8082"
  poll_portal: true
  poll_interval_seconds: 60
`), 0o600))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "u", cfg.Database.Username)
	require.Equal(t, "trip.assigned", cfg.Kafka.TripAssignedTopicName)
	require.Equal(t, "pickup.resolved", cfg.Kafka.PickupResolvedTopicName)
	require.Equal(t, 6379, cfg.Redis.Port)
	require.Equal(t, ":8080", cfg.Portal.HTTPAddr)
	require.Equal(t, "fake", cfg.Portal.FeedMode)
	require.Equal(t, 15, cfg.Portal.SyncIntervalSeconds)
	require.Len(t, cfg.Portal.Offices, 2)
	require.Equal(t, "09:00-18:00", cfg.Portal.Offices[1].WorkingHours)
	require.Equal(t, 72.8754, cfg.Portal.Offices[1].Lng)
	require.True(t, cfg.Worker.PollPortal)
	require.Equal(t, 60, cfg.Worker.PollIntervalSeconds)
	require.Zero(t, cfg.Worker.PollRateLimitPerMinute)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "failed to read config file")

	p := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(p, []byte("portal: [unclosed"), 0o600))
	_, err = LoadConfig(p)
	require.ErrorContains(t, err, "failed to unmarshal YAML")
}
