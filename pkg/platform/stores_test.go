package platform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/game"
)

type fakeStore struct {
	id    game.DiscoverySource
	games map[string]string
	calls []string
}

func (s *fakeStore) ID() game.DiscoverySource { return s.id }

func (s *fakeStore) FindByAppID(_ context.Context, appID string) (string, bool) {
	s.calls = append(s.calls, appID)
	p, ok := s.games[appID]
	return p, ok
}

func TestStoreHelperOrder(t *testing.T) {
	steam := &fakeStore{id: game.SourceSteam, games: map[string]string{}}
	gog := &fakeStore{id: game.SourceGOG, games: map[string]string{"2": "/gog/game"}}
	helper := &StoreHelper{Stores: []Store{steam, gog}}

	found, ok := helper.FindByAppID(context.Background(), "1", "2")
	assert.True(t, ok)
	assert.Equal(t, StoreGame{AppID: "2", Path: "/gog/game", Store: game.SourceGOG}, found)
	assert.Equal(t, []string{"1", "2"}, steam.calls)
	assert.Equal(t, []string{"1", "2"}, gog.calls)
}

func TestStoreHelperFirstStoreWins(t *testing.T) {
	steam := &fakeStore{id: game.SourceSteam, games: map[string]string{"1": "/steam/game"}}
	gog := &fakeStore{id: game.SourceGOG, games: map[string]string{"1": "/gog/game"}}
	helper := &StoreHelper{Stores: []Store{steam, gog}}

	found, ok := helper.FindByAppID(context.Background(), "1")
	assert.True(t, ok)
	assert.Equal(t, "/steam/game", found.Path)
	assert.Empty(t, gog.calls)
}

func TestStoreHelperMiss(t *testing.T) {
	helper := &StoreHelper{Stores: []Store{&fakeStore{id: game.SourceSteam}}}

	_, ok := helper.FindByAppID(context.Background(), "1")
	assert.False(t, ok)
}
