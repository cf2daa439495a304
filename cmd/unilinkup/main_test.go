package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/unilinkup/core/buildinfo"
	"github.com/m3rciful/unilinkup/internal/meetup"
	"github.com/m3rciful/unilinkup/internal/store"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "unilinkup "+buildinfo.Version)
	assert.Contains(t, out, "commit "+buildinfo.Commit)
}

func TestSnapshotInspect(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 30, 0, 0, time.UTC)
	st := store.New(store.Options{Now: func() time.Time { return now }})
	st.GetOrCreateSession(11, "ana")
	st.AppendPing(meetup.Ping{
		ID:             "p1",
		OrganizerID:    11,
		OrganizerName:  "ana",
		Type:           meetup.TypeLunch,
		Location:       "Roof Garden",
		Time:           "12:30",
		InvitedFriends: []string{"Alex", "Sam"},
		CreatedAt:      now,
	})
	path := filepath.Join(t.TempDir(), "snap.json")
	_, err := st.SaveSnapshot(t.Context(), path)
	require.NoError(t, err)

	out, err := execute(t, "snapshot", "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, "version "+store.SnapshotVersion)
	assert.Contains(t, out, "Sessions (1)")
	assert.Contains(t, out, "Pings (1 of 1, newest first)")
	assert.Contains(t, out, "Roof Garden")
	assert.Contains(t, out, "Alex, Sam")
	assert.Contains(t, out, "Most popular location")
}

func TestSnapshotInspectErrors(t *testing.T) {
	_, err := execute(t, "snapshot", "inspect", filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{nope"), 0o600))
	_, err = execute(t, "snapshot", "inspect", bad)
	require.Error(t, err)

	_, err = execute(t, "snapshot", "inspect")
	require.Error(t, err, "file argument is required")
}

func TestDotEnvLoadedForEverySubcommand(t *testing.T) {
	const key = "UNILINKUP_DOTENV_CHECK"
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(key+"=loaded\n"), 0o600))
	snap := filepath.Join(dir, "snap.json")
	_, err := store.New(store.Options{}).SaveSnapshot(t.Context(), snap)
	require.NoError(t, err)
	t.Chdir(dir)

	out, err := execute(t, "snapshot", "inspect", snap)
	require.NoError(t, err)
	assert.NotContains(t, out, ".env not loaded")
	assert.Equal(t, "loaded", os.Getenv(key))
}

func TestMissingDotEnvIsSilent(t *testing.T) {
	t.Chdir(t.TempDir())
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.NotContains(t, out, ".env")
}
