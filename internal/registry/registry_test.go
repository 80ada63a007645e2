package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/looxidlabs/link-band-core/internal/model"
)

func TestRegisterPersistsAndReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registered_devices.json")

	r, err := Open(path)
	require.NoError(t, err)
	require.Empty(t, r.List())

	d := model.DeviceDescriptor{Address: "AA:BB:CC:DD:EE:FF", Name: "LXB-1", LastSeen: time.Now()}
	require.True(t, r.Register(d))
	require.True(t, r.IsRegistered(d.Address))

	reloaded, err := Open(path)
	require.NoError(t, err)
	got, ok := reloaded.Get(d.Address)
	require.True(t, ok)
	require.Equal(t, d.Address, got.Address)
	require.Equal(t, d.Name, got.Name)
}

func TestUnregisterRestoresPreviousState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registered_devices.json")

	r, err := Open(path)
	require.NoError(t, err)

	before, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		before = nil
	}

	d := model.DeviceDescriptor{Address: "11:22:33:44:55:66", Name: "LXB-2"}
	require.True(t, r.Register(d))
	require.True(t, r.Unregister(d.Address))
	require.False(t, r.IsRegistered(d.Address))

	after, err := os.ReadFile(path)
	require.NoError(t, err)

	// No file before the first mutation means an empty registry.
	beforeMap := map[string]model.DeviceDescriptor{}
	var afterMap map[string]model.DeviceDescriptor
	if before != nil {
		require.NoError(t, json.Unmarshal(before, &beforeMap))
	}
	require.NoError(t, json.Unmarshal(after, &afterMap))
	require.Equal(t, beforeMap, afterMap)
}

func TestUnregisterUnknownAddressReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(filepath.Join(dir, "registered_devices.json"))
	require.NoError(t, err)
	require.False(t, r.Unregister("nonexistent"))
}
