package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/api"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/game"
)

func openTestDB(t *testing.T) context.Context {
	t.Helper()

	ctx := api.WithContext(context.Background(), api.CtxParams{SettingsPath: filepath.Join(t.TempDir(), "settings")})
	require.NoError(t, Open(ctx))
	t.Cleanup(func() { Close(ctx) })
	return ctx
}

func TestDiscoveryRoundTrip(t *testing.T) {
	ctx := openTestDB(t)

	missing, err := GetDiscovery(ctx, "ghostrunner")
	require.NoError(t, err)
	assert.Nil(t, missing)

	gameDir := t.TempDir()
	require.NoError(t, Discoveries.SaveDiscovery(ctx, "ghostrunner", game.DiscoveryResult{Path: gameDir, Source: game.SourceSteam}))

	found, err := Discoveries.GetDiscovery(ctx, "ghostrunner")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, game.DiscoveryResult{Path: gameDir, Source: game.SourceSteam}, *found)

	require.NoError(t, DeleteDiscovery(ctx, "ghostrunner"))
	found, err = GetDiscovery(ctx, "ghostrunner")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestCleanDropsMissingFolders(t *testing.T) {
	ctx := openTestDB(t)

	kept := t.TempDir()
	require.NoError(t, SaveDiscovery(ctx, "kept", game.DiscoveryResult{Path: kept}))
	require.NoError(t, SaveDiscovery(ctx, "gone", game.DiscoveryResult{Path: filepath.Join(kept, "missing")}))

	require.NoError(t, Clean(ctx))

	found, err := GetDiscovery(ctx, "kept")
	require.NoError(t, err)
	assert.NotNil(t, found)

	found, err = GetDiscovery(ctx, "gone")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestInstallRecords(t *testing.T) {
	ctx := openTestDB(t)

	first := &InstallRecord{GameID: "ghostrunner", Name: "first", InstalledAt: time.Now().Add(-time.Hour)}
	second := &InstallRecord{GameID: "ghostrunner", Name: "second", Files: []game.DeployedFile{
		{Source: "a/mod_P.pak", Destination: "Paks/~mods/mod_P.pak", Size: 3, Checksum: "abc"},
	}}
	other := &InstallRecord{GameID: "othergame", Name: "other"}

	for _, rec := range []*InstallRecord{second, first, other} {
		require.NoError(t, SaveInstall(ctx, rec))
		assert.NotEmpty(t, rec.ID)
		assert.False(t, rec.InstalledAt.IsZero())
	}

	recs, err := ListInstalls(ctx, "ghostrunner")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "first", recs[0].Name)
	assert.Equal(t, "second", recs[1].Name)

	all, err := ListInstalls(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	loaded, err := GetInstall(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Files, loaded.Files)

	require.NoError(t, DeleteInstall(ctx, second.ID))
	_, err = GetInstall(ctx, second.ID)
	assert.True(t, eris.Is(err, ErrInstallNotFound))
	assert.True(t, eris.Is(DeleteInstall(ctx, second.ID), ErrInstallNotFound))
}

func TestBatchUpdateSharesTransaction(t *testing.T) {
	ctx := openTestDB(t)

	err := BatchUpdate(ctx, func(ctx context.Context) error {
		require.NotNil(t, TxFromCtx(ctx))
		return SaveInstall(ctx, &InstallRecord{ID: "batched", GameID: "ghostrunner"})
	})
	require.NoError(t, err)

	rec, err := GetInstall(ctx, "batched")
	require.NoError(t, err)
	assert.Equal(t, "ghostrunner", rec.GameID)
}

func TestClosedDB(t *testing.T) {
	_, err := GetDiscovery(context.Background(), "ghostrunner")
	assert.True(t, eris.Is(err, ErrNotOpen))

	// an explicit transaction works even without the global handle
	tmp, err := bolt.Open(filepath.Join(t.TempDir(), "tmp.db"), 0o600, nil)
	require.NoError(t, err)
	defer tmp.Close()

	err = tmp.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(discoveryBucket)
		if err != nil {
			return err
		}
		return SaveDiscovery(CtxWithTx(context.Background(), tx), "ghostrunner", game.DiscoveryResult{Path: "/x"})
	})
	assert.NoError(t, err)
}

func TestOpenWithoutSettingsPath(t *testing.T) {
	assert.Error(t, Open(context.Background()))
}
