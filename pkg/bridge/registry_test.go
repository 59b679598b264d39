package bridge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(filepath.Join(t.TempDir(), "bridges.json"), zerolog.Nop())
	require.NoError(t, r.Load())
	return r
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "default", NormalizeName(""))
	assert.Equal(t, "default", NormalizeName("   "))
	assert.Equal(t, "my-bridge", NormalizeName("  my-bridge  "))
	assert.Equal(t, strings.Repeat("a", 64), NormalizeName(strings.Repeat("a", 80)))
}

func TestNormalizeName_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"default",
		"  padded  ",
		strings.Repeat("a", 80),
		// Truncation at 64 runes lands on a space; a second pass must not
		// shorten the name further.
		strings.Repeat("a", 63) + " tail",
		strings.Repeat("ü", 100),
	}
	for _, in := range inputs {
		once := NormalizeName(in)
		assert.Equal(t, once, NormalizeName(once), "input %q", in)
		assert.NotEmpty(t, once)
		assert.LessOrEqual(t, len([]rune(once)), 64)
	}
}

func TestAddDiscordChannel_DuplicateIsNoOp(t *testing.T) {
	r := newTestRegistry(t)

	added, err := r.AddDiscordChannel("default", 42)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = r.AddDiscordChannel("default", 42)
	require.NoError(t, err)
	assert.False(t, added)

	assert.Equal(t, []int64{42}, r.DiscordChannels("default"))
}

func TestRemove_AbsentIsNoOp(t *testing.T) {
	r := newTestRegistry(t)

	removed, err := r.RemoveDiscordChannel("default", 42)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = r.RemoveTelegramChat("nope", 100)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRemove_LastMemberPrunesBridge(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.AddDiscordChannel("solo", 42)
	require.NoError(t, err)

	removed, err := r.RemoveDiscordChannel("solo", 42)
	require.NoError(t, err)
	assert.True(t, removed)

	assert.NotContains(t, r.List(), "solo")
}

func TestRemove_KeepsBridgeWithOtherSideMembers(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.AddDiscordChannel("mixed", 42)
	require.NoError(t, err)
	_, err = r.AddTelegramChat("mixed", 100)
	require.NoError(t, err)

	removed, err := r.RemoveDiscordChannel("mixed", 42)
	require.NoError(t, err)
	assert.True(t, removed)

	assert.Contains(t, r.List(), "mixed")
	assert.Equal(t, []int64{100}, r.TelegramChats("mixed"))
}

func TestBridgesForMembership(t *testing.T) {
	r := newTestRegistry(t)

	for _, name := range []string{"beta", "alpha"} {
		_, err := r.AddDiscordChannel(name, 42)
		require.NoError(t, err)
	}
	_, err := r.AddTelegramChat("alpha", 100)
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "beta"}, r.BridgesForDiscordChannel(42))
	assert.Equal(t, []string{"alpha"}, r.BridgesForTelegramChat(100))
	assert.Empty(t, r.BridgesForDiscordChannel(7))
}

func TestRegistry_PersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridges.json")

	r := NewRegistry(path, zerolog.Nop())
	require.NoError(t, r.Load())
	_, err := r.AddDiscordChannel("default", 42)
	require.NoError(t, err)
	_, err = r.AddTelegramChat("default", 100)
	require.NoError(t, err)

	fresh := NewRegistry(path, zerolog.Nop())
	require.NoError(t, fresh.Load())
	assert.Equal(t, []int64{42}, fresh.DiscordChannels("default"))
	assert.Equal(t, []int64{100}, fresh.TelegramChats("default"))
}

func TestRegistry_MalformedFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridges.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	r := NewRegistry(path, zerolog.Nop())
	require.NoError(t, r.Load())
	assert.Empty(t, r.List())

	// The registry must still be writable after recovery.
	added, err := r.AddDiscordChannel("default", 42)
	require.NoError(t, err)
	assert.True(t, added)
}

func TestAdd_RollsBackWhenPersistFails(t *testing.T) {
	// A regular file where the registry directory should be makes every
	// save fail with ENOTDIR, for any user.
	blocker := filepath.Join(t.TempDir(), "store")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	r := NewRegistry(filepath.Join(blocker, "bridges.json"), zerolog.Nop())
	require.NoError(t, r.Load())

	added, err := r.AddDiscordChannel("default", 42)
	require.Error(t, err)
	assert.False(t, added)

	// The failed add must not be visible to relay lookups.
	assert.Empty(t, r.BridgesForDiscordChannel(42))
	assert.NotContains(t, r.List(), "default")

	// A retry must fail again, not report the channel as already present.
	added, err = r.AddDiscordChannel("default", 42)
	require.Error(t, err)
	assert.False(t, added)
}

func TestRemove_RollsBackWhenPersistFails(t *testing.T) {
	storeDir := filepath.Join(t.TempDir(), "store")
	r := NewRegistry(filepath.Join(storeDir, "bridges.json"), zerolog.Nop())
	require.NoError(t, r.Load())

	_, err := r.AddDiscordChannel("default", 42)
	require.NoError(t, err)

	// Break persistence from here on.
	require.NoError(t, os.RemoveAll(storeDir))
	require.NoError(t, os.WriteFile(storeDir, []byte("x"), 0o600))

	removed, err := r.RemoveDiscordChannel("default", 42)
	require.Error(t, err)
	assert.False(t, removed)

	// The member and its bridge survive the failed removal.
	assert.Equal(t, []string{"default"}, r.BridgesForDiscordChannel(42))
	assert.Equal(t, []int64{42}, r.DiscordChannels("default"))
}

func TestRegistry_BlankNameCollapsesToDefault(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.AddTelegramChat("   ", 100)
	require.NoError(t, err)

	assert.Equal(t, []int64{100}, r.TelegramChats("default"))
}
