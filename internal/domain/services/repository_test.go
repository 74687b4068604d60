package services

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/realmforge/internal/domain/entities"
	"github.com/ersonp/realmforge/internal/domain/mocks"
	"github.com/ersonp/realmforge/internal/domain/ports"
)

type repoFixture struct {
	store   *mocks.ContentStore
	scopes  *WorldScopeManager
	tracker *SyncStateTracker
	repo    *ContentRepository
	worldA  entities.World
	worldB  entities.World
}

// setupRepo builds a repository over an in-memory store with two worlds,
// the first of them active.
func setupRepo(t *testing.T) *repoFixture {
	t.Helper()

	logger, _ := test.NewNullLogger()
	ctx := context.Background()

	scopes := NewWorldScopeManager(nil, "owner-1", logger)
	a, err := scopes.CreateWorld(ctx, "Aether", "", "")
	require.NoError(t, err)
	b, err := scopes.CreateWorld(ctx, "Brume", "", "")
	require.NoError(t, err)
	_, err = scopes.Use(ctx, a.ID)
	require.NoError(t, err)

	tracker := NewSyncStateTracker()
	store := mocks.NewContentStore()
	return &repoFixture{
		store:   store,
		scopes:  scopes,
		tracker: tracker,
		repo:    NewContentRepository(store, scopes, tracker, logger),
		worldA:  a,
		worldB:  b,
	}
}

func TestContentRepository_CreateThenFetchContainsPayload(t *testing.T) {
	payloads := map[entities.Kind]entities.Payload{
		entities.KindCharacter:   {"name": "Aria", "race": "elf", "abilities": []any{"flight"}},
		entities.KindMap:         {"name": "Continent", "description": "The known lands", "regions": []any{}},
		entities.KindPowerSystem: {"name": "Weaving", "description": "Thread magic"},
		entities.KindLore:        {"title": "The Fall", "content": "It fell.", "category": "history"},
	}

	for kind, payload := range payloads {
		t.Run(string(kind), func(t *testing.T) {
			f := setupRepo(t)
			ctx := context.Background()

			_, err := f.repo.Create(ctx, kind, payload)
			require.NoError(t, err)
			require.NoError(t, f.repo.FetchAll(ctx, kind))

			items := f.repo.Items(kind)
			require.Len(t, items, 1)
			assert.True(t, items[0].Payload.Matches(payload))
			assert.Equal(t, f.worldA.ID, items[0].WorldID)
		})
	}
}

func TestContentRepository_DeleteThenFetchLacksID(t *testing.T) {
	f := setupRepo(t)
	ctx := context.Background()
	seeded := f.store.Seed(f.worldA.ID, entities.KindLore,
		entities.Payload{"title": "One"},
		entities.Payload{"title": "Two"},
	)

	require.NoError(t, f.repo.Delete(ctx, entities.KindLore, seeded[0].ID))
	require.NoError(t, f.repo.FetchAll(ctx, entities.KindLore))

	items := f.repo.Items(entities.KindLore)
	require.Len(t, items, 1)
	for _, e := range items {
		assert.NotEqual(t, seeded[0].ID, e.ID)
	}
}

func TestContentRepository_AriaScenario(t *testing.T) {
	f := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, f.repo.FetchAll(ctx, entities.KindCharacter))
	assert.Empty(t, f.repo.Items(entities.KindCharacter))

	created, err := f.repo.Create(ctx, entities.KindCharacter, entities.Payload{"name": "Aria"})
	require.NoError(t, err)
	require.NoError(t, f.repo.FetchAll(ctx, entities.KindCharacter))

	items := f.repo.Items(entities.KindCharacter)
	require.Len(t, items, 1)
	assert.Equal(t, "Aria", items[0].Name())

	require.NoError(t, f.repo.Delete(ctx, entities.KindCharacter, created.ID))
	require.NoError(t, f.repo.FetchAll(ctx, entities.KindCharacter))
	assert.Empty(t, f.repo.Items(entities.KindCharacter))
	assert.NotNil(t, f.repo.Items(entities.KindCharacter))
}

func TestContentRepository_WorldRoundTripRestoresCollections(t *testing.T) {
	f := setupRepo(t)
	ctx := context.Background()
	f.store.Seed(f.worldA.ID, entities.KindCharacter, entities.Payload{"name": "Aria"}, entities.Payload{"name": "Bren"})
	f.store.Seed(f.worldA.ID, entities.KindMap, entities.Payload{"name": "Continent", "description": "d"})
	f.store.Seed(f.worldB.ID, entities.KindCharacter, entities.Payload{"name": "Cato"})

	before := map[entities.Kind][]entities.Entity{}
	for _, k := range entities.AllKinds {
		items, err := f.repo.Collection(ctx, k)
		require.NoError(t, err)
		before[k] = items
	}

	_, err := f.scopes.Use(ctx, f.worldB.ID)
	require.NoError(t, err)
	for _, k := range entities.AllKinds {
		assert.Nil(t, f.repo.Items(k), "collections are dropped on world switch")
	}
	bChars, err := f.repo.Collection(ctx, entities.KindCharacter)
	require.NoError(t, err)
	require.Len(t, bChars, 1)
	assert.Equal(t, "Cato", bChars[0].Name())

	_, err = f.scopes.Use(ctx, f.worldA.ID)
	require.NoError(t, err)
	for _, k := range entities.AllKinds {
		items, err := f.repo.Collection(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, before[k], items, "kind %s", k)
	}
}

func TestContentRepository_MutationRefetchesExactlyOnce(t *testing.T) {
	f := setupRepo(t)
	ctx := context.Background()

	created, err := f.repo.Create(ctx, entities.KindCharacter, entities.Payload{"name": "Aria"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.ListCallCount)

	_, err = f.repo.Update(ctx, entities.KindCharacter, created.ID, entities.Payload{"race": "elf"})
	require.NoError(t, err)
	assert.Equal(t, 2, f.store.ListCallCount)
	assert.Equal(t, "elf", f.repo.Items(entities.KindCharacter)[0].Payload["race"])

	require.NoError(t, f.repo.Delete(ctx, entities.KindCharacter, created.ID))
	assert.Equal(t, 3, f.store.ListCallCount)
}

func TestContentRepository_FailedMutationLeavesCollection(t *testing.T) {
	f := setupRepo(t)
	ctx := context.Background()
	f.store.Seed(f.worldA.ID, entities.KindCharacter, entities.Payload{"name": "Aria"})
	require.NoError(t, f.repo.FetchAll(ctx, entities.KindCharacter))
	before := f.repo.Items(entities.KindCharacter)

	f.store.CreateErr = ports.ErrValidation
	_, err := f.repo.Create(ctx, entities.KindCharacter, entities.Payload{"name": "Ghost"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrValidation)
	assert.Equal(t, before, f.repo.Items(entities.KindCharacter))
	assert.Equal(t, 1, f.store.ListCallCount, "no refetch after a failed mutation")
}

func TestContentRepository_ErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		kind    entities.Kind
		inject  func(*mocks.ContentStore)
		run     func(context.Context, *ContentRepository) error
		message string
	}{
		{
			name:   "fetch characters",
			kind:   entities.KindCharacter,
			inject: func(m *mocks.ContentStore) { m.ListErr = ports.ErrNetwork },
			run: func(ctx context.Context, r *ContentRepository) error {
				return r.FetchAll(ctx, entities.KindCharacter)
			},
			message: "Failed to fetch characters",
		},
		{
			name:   "add map",
			kind:   entities.KindMap,
			inject: func(m *mocks.ContentStore) { m.CreateErr = ports.ErrValidation },
			run: func(ctx context.Context, r *ContentRepository) error {
				_, err := r.Create(ctx, entities.KindMap, entities.Payload{"name": "x"})
				return err
			},
			message: "Failed to add map",
		},
		{
			name:   "update power system",
			kind:   entities.KindPowerSystem,
			inject: func(m *mocks.ContentStore) { m.UpdateErr = ports.ErrNotFound },
			run: func(ctx context.Context, r *ContentRepository) error {
				_, err := r.Update(ctx, entities.KindPowerSystem, "missing", entities.Payload{"name": "x"})
				return err
			},
			message: "Failed to update power system",
		},
		{
			name:   "delete lore",
			kind:   entities.KindLore,
			inject: func(m *mocks.ContentStore) { m.DeleteErr = ports.ErrNetwork },
			run: func(ctx context.Context, r *ContentRepository) error {
				return r.Delete(ctx, entities.KindLore, "missing")
			},
			message: "Failed to delete lore",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupRepo(t)
			tt.inject(f.store)

			err := tt.run(context.Background(), f.repo)

			require.Error(t, err)
			assert.Equal(t, tt.message, f.tracker.Err(tt.kind))
			assert.Equal(t, tt.message, f.tracker.LastError())
			assert.False(t, f.tracker.Loading(), "loading cleared on failure")
		})
	}
}

func TestContentRepository_ResyncFailureAfterCreate(t *testing.T) {
	f := setupRepo(t)
	f.store.ListErr = ports.ErrNetwork

	created, err := f.repo.Create(context.Background(), entities.KindCharacter, entities.Payload{"name": "Aria"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrNetwork)
	assert.Equal(t, "Aria", created.Name(), "the created entity is still returned")
	assert.Equal(t, "Failed to fetch characters", f.tracker.Err(entities.KindCharacter))
	assert.Equal(t, 1, f.store.CreateCallCount)
}

func TestContentRepository_LoadingHeldThroughNestedResync(t *testing.T) {
	f := setupRepo(t)

	var loadingDuringList []bool
	f.store.BeforeList = func(string, entities.Kind) {
		loadingDuringList = append(loadingDuringList, f.tracker.Loading())
	}

	var transitions []bool
	f.tracker.OnChange(func(s SyncState) { transitions = append(transitions, s.Loading) })

	_, err := f.repo.Create(context.Background(), entities.KindCharacter, entities.Payload{"name": "Aria"})
	require.NoError(t, err)

	assert.Equal(t, []bool{true}, loadingDuringList)
	assert.Equal(t, []bool{true, false}, transitions)
	assert.False(t, f.tracker.Loading())
}

func TestContentRepository_StaleFetchDiscarded(t *testing.T) {
	f := setupRepo(t)
	ctx := context.Background()
	f.store.Seed(f.worldA.ID, entities.KindCharacter, entities.Payload{"name": "Aria"})
	f.store.Seed(f.worldB.ID, entities.KindCharacter, entities.Payload{"name": "Cato"})

	switched := false
	f.store.BeforeList = func(worldID string, _ entities.Kind) {
		if switched {
			return
		}
		switched = true
		b := f.worldB
		f.scopes.SetCurrentWorld(&b)
	}

	err := f.repo.FetchAll(ctx, entities.KindCharacter)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStaleScope)
	assert.Nil(t, f.repo.Items(entities.KindCharacter), "world A's response never lands in world B")
	assert.Empty(t, f.tracker.Err(entities.KindCharacter))

	items, err := f.repo.Collection(ctx, entities.KindCharacter)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Cato", items[0].Name())
}

func TestContentRepository_NoActiveWorld(t *testing.T) {
	f := setupRepo(t)
	f.scopes.SetCurrentWorld(nil)

	err := f.repo.FetchAll(context.Background(), entities.KindMap)

	assert.ErrorIs(t, err, ErrNoActiveWorld)
	assert.Equal(t, "Failed to fetch maps", f.tracker.Err(entities.KindMap))
	assert.Zero(t, f.store.ListCallCount)
}

func TestContentRepository_UnknownKind(t *testing.T) {
	f := setupRepo(t)

	err := f.repo.FetchAll(context.Background(), entities.Kind("spells"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown content kind")
	assert.False(t, f.tracker.Loading())
}

func TestContentRepository_CollectionIsLazy(t *testing.T) {
	f := setupRepo(t)
	ctx := context.Background()
	f.store.Seed(f.worldA.ID, entities.KindLore, entities.Payload{"title": "Myth"})

	assert.Nil(t, f.repo.Items(entities.KindLore))

	_, err := f.repo.Collection(ctx, entities.KindLore)
	require.NoError(t, err)
	_, err = f.repo.Collection(ctx, entities.KindLore)
	require.NoError(t, err)

	assert.Equal(t, 1, f.store.ListCallCount)
}

func TestContentRepository_Get(t *testing.T) {
	f := setupRepo(t)
	ctx := context.Background()
	seeded := f.store.Seed(f.worldA.ID, entities.KindCharacter, entities.Payload{"name": "Aria"})

	got, err := f.repo.Get(ctx, entities.KindCharacter, seeded[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Aria", got.Name())

	_, err = f.repo.Get(ctx, entities.KindCharacter, "nope")
	assert.True(t, errors.Is(err, ports.ErrNotFound))
	assert.Equal(t, "Failed to fetch character", f.tracker.Err(entities.KindCharacter))
}

func TestContentRepository_LogsMutations(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	scopes := NewWorldScopeManager(nil, "owner-1", logger)
	w, err := scopes.CreateWorld(context.Background(), "Aether", "", "")
	require.NoError(t, err)
	scopes.SetCurrentWorld(&w)

	repo := NewContentRepository(mocks.NewContentStore(), scopes, NewSyncStateTracker(), logger)
	_, err = repo.Create(context.Background(), entities.KindCharacter, entities.Payload{"name": "Aria"})
	require.NoError(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "created entity", entry.Message)
	assert.Equal(t, entities.KindCharacter, entry.Data["kind"])
}
