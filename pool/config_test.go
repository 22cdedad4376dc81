package pool

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
gc_interval: 2m
leak_audit_interval: 30m
history_size: 64
pools:
  - name: statistical
    size: 2097152
    block_size: 1024
    alignment: 8
  - name: text
    size: 4194304
    block_size: 4096
    gc_ttl: 10m
  - name: pinned
    size: 1048576
    block_size: 512
    gc_disabled: true
    leak_age: 15m
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pools.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func Test_LoadConfig_ParsesYAML(t *testing.T) {
	conf, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, conf.GCInterval)
	assert.Equal(t, 30*time.Minute, conf.LeakAuditInterval)
	assert.Equal(t, 64, conf.HistorySize)
	require.Len(t, conf.Pools, 3)

	assert.Equal(t, "statistical", conf.Pools[0].Name)
	assert.EqualValues(t, 2097152, conf.Pools[0].Size)
	assert.EqualValues(t, 1024, conf.Pools[0].BlockSize)

	assert.Equal(t, 10*time.Minute, conf.Pools[1].GCTTL)
	assert.True(t, conf.Pools[2].GCDisabled)
	assert.Equal(t, 15*time.Minute, conf.Pools[2].LeakAge)

	// The loaded config must build a working allocator.
	a, err := New(conf)
	require.NoError(t, err)
	defer a.Close()
	_, err = a.Allocate("statistical", 3000)
	require.NoError(t, err)
}

func Test_LoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("POOLKIT_GC_INTERVAL", "45s")
	t.Setenv("POOLKIT_HISTORY_SIZE", "16")

	conf, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, conf.GCInterval, "environment wins over file")
	assert.Equal(t, 16, conf.HistorySize)
}

func Test_LoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func Test_LoadConfig_BadDefinitionIsFatal(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
pools:
  - name: broken
    size: 100
    block_size: 1024
`))
	require.ErrorIs(t, err, ErrBadConfig)
}

func Test_ConfigValidate_AggregatesEverything(t *testing.T) {
	conf := Config{Pools: []PoolDef{
		{Name: "", Size: 1024, BlockSize: 256},
		{Name: "dup", Size: 1024, BlockSize: 256},
		{Name: "dup", Size: 1024, BlockSize: 256},
		{Name: "neg", Size: 1024, BlockSize: 256, Alignment: -8},
	}}
	err := conf.Validate()
	require.Error(t, err)

	// One message per problem: empty name, duplicate, negative alignment.
	msg := err.Error()
	assert.Contains(t, msg, "name must not be empty")
	assert.Contains(t, msg, "duplicate pool name")
	assert.Contains(t, msg, "alignment must not be negative")
}

func Test_ConfigValidate_RejectsEmptyPoolList(t *testing.T) {
	conf := Config{}
	require.ErrorIs(t, conf.Validate(), ErrBadConfig)
}

func Test_DefaultConfig_Builds(t *testing.T) {
	conf := DefaultConfig()
	require.NoError(t, conf.Validate())

	a, err := New(conf)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []string{"statistical", "text", "cache", "scratch"}, a.Pools())
}

func Test_PoolDefDefaults_FillZeroValues(t *testing.T) {
	def := PoolDef{Name: "d", Size: 4096, BlockSize: 512}.withDefaults()
	assert.EqualValues(t, DefaultAlignment, def.Alignment)
	assert.Equal(t, DefaultGCTTL, def.GCTTL)
	assert.Equal(t, DefaultLeakAge, def.LeakAge)
}
