package config

import (
	"os"
	"path/filepath"
	"testing"

	"clubhouse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
app:
  name: clubhouse
  environment: test
database:
  path: ${TEST_DB_PATH}
redis:
  enabled: true
  address: localhost:6379
api:
  enabled: true
  auth:
    enabled: true
    api_keys:
      - key: secret-key
        name: admin
facilities:
  - name: Room 101
    category: room
    member_rate: "1000"
    guest_rate: "1500.50"
  - name: Main Hall
    category: hall
    member_rate: "50000"
`

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_DB_PATH", "/tmp/club.db")
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	// Env vars are expanded before the YAML is parsed.
	assert.Equal(t, "/tmp/club.db", cfg.Database.Path)
	assert.Equal(t, "clubhouse", cfg.App.Name)
	require.Len(t, cfg.API.Auth.APIKeys, 1)
	assert.Equal(t, "secret-key", cfg.API.Auth.APIKeys[0].Key)
	require.Len(t, cfg.Facilities, 2)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TEST_DB_PATH", "/tmp/club.db")
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
	assert.Equal(t, models.DefaultSweepIntervalMinutes, cfg.Scheduler.SweepIntervalMinutes)
	assert.Equal(t, models.DefaultSnapshotTTL, cfg.Redis.SnapshotTTL)
	assert.Equal(t, "exports", cfg.Exports.Path)
}

func TestLoad_RequiresDatabasePath(t *testing.T) {
	_, err := Load(writeConfig(t, "app:\n  name: clubhouse\n"))
	assert.Error(t, err)
}

func TestValidateFacilities(t *testing.T) {
	valid := FacilityConfig{Name: "Room 101", Category: "room", MemberRate: "1000"}

	assert.NoError(t, ValidateFacilities([]FacilityConfig{valid}))

	err := ValidateFacilities([]FacilityConfig{valid, valid})
	assert.ErrorContains(t, err, "duplicate")

	err = ValidateFacilities([]FacilityConfig{{Name: "Garage", Category: "garage"}})
	assert.ErrorContains(t, err, "unknown category")

	err = ValidateFacilities([]FacilityConfig{{Name: "Room 101", Category: "room", MemberRate: "lots"}})
	assert.ErrorContains(t, err, "member_rate")

	err = ValidateFacilities([]FacilityConfig{{Category: "room"}})
	assert.ErrorContains(t, err, "empty name")
}

func TestFacilityModels(t *testing.T) {
	cfg := &Config{Facilities: []FacilityConfig{
		{Name: "Room 101", Category: "room", RoomType: "deluxe", Capacity: 2, MemberRate: "1000", GuestRate: "1500.50", SortOrder: 1},
	}}

	facilities := cfg.FacilityModels()
	require.Len(t, facilities, 1)
	f := facilities[0]
	assert.Equal(t, models.CategoryRoom, f.Category)
	assert.Equal(t, "1000", f.MemberRate.String())
	assert.Equal(t, "1500.5", f.GuestRate.String())
	assert.Equal(t, int64(2), f.Capacity)
}
