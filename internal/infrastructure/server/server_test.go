package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/realmforge/internal/domain/entities"
	"github.com/ersonp/realmforge/internal/domain/mocks"
	"github.com/ersonp/realmforge/internal/domain/services"
	"github.com/ersonp/realmforge/internal/infrastructure/relationaldb/sqlite"
	"github.com/ersonp/realmforge/internal/infrastructure/remote"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(new(bytes.Buffer))
	return l
}

func setupServer(t *testing.T) (*httptest.Server, *HTTPServer) {
	t.Helper()
	repo, err := sqlite.Open(context.Background(), sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	logger := quietLogger()
	s, err := NewHTTPServer(sqlite.NewContentStore(repo), NewHub(logger), logger)
	require.NoError(t, err)

	ts := httptest.NewServer(CreateRouter(s))
	t.Cleanup(ts.Close)
	return ts, s
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var doc map[string]any
	json.NewDecoder(resp.Body).Decode(&doc)
	return resp, doc
}

func TestServer_CRUD(t *testing.T) {
	ts, _ := setupServer(t)
	base := ts.URL + "/api/characters"

	resp, created := doJSON(t, http.MethodPost, base, map[string]any{"world_id": "w1", "name": "Aria", "race": "elf"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "w1", created["world_id"])
	assert.Equal(t, "Aria", created["name"])

	resp, got := doJSON(t, http.MethodGet, base+"/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "elf", got["race"])

	resp, updated := doJSON(t, http.MethodPut, base+"/"+id, map[string]any{"race": "half-elf"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "half-elf", updated["race"])
	assert.Equal(t, "Aria", updated["name"])

	listResp, err := http.Get(base + "?world_id=w1")
	require.NoError(t, err)
	defer listResp.Body.Close()
	var list []map[string]any
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&list))
	require.Len(t, list, 1)

	resp, msg := doJSON(t, http.MethodDelete, base+"/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Character deleted successfully", msg["message"])

	resp, missing := doJSON(t, http.MethodGet, base+"/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Character not found", missing["error"])
}

func TestServer_ListIsScopedToWorld(t *testing.T) {
	ts, _ := setupServer(t)
	doJSON(t, http.MethodPost, ts.URL+"/api/lore", map[string]any{"world_id": "w1", "title": "Dawn", "content": "x", "category": "myth"})
	doJSON(t, http.MethodPost, ts.URL+"/api/lore", map[string]any{"world_id": "w2", "title": "Dusk", "content": "y", "category": "myth"})

	resp, err := http.Get(ts.URL + "/api/lore?world_id=w2")
	require.NoError(t, err)
	defer resp.Body.Close()
	var list []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "Dusk", list[0]["title"])

	resp2, body := doJSON(t, http.MethodGet, ts.URL+"/api/lore", nil)
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
	assert.Contains(t, body["error"], "world_id")
}

func TestServer_UpdateAndDeleteAreScopedToWorld(t *testing.T) {
	ts, _ := setupServer(t)
	base := ts.URL + "/api/characters"

	_, created := doJSON(t, http.MethodPost, base, map[string]any{"world_id": "w1", "name": "Aria"})
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	resp, body := doJSON(t, http.MethodPut, base+"/"+id+"?world_id=w2", map[string]any{"name": "Mallory"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Character not found", body["error"])

	resp, _ = doJSON(t, http.MethodDelete, base+"/"+id+"?world_id=w2", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, got := doJSON(t, http.MethodGet, base+"/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Aria", got["name"])

	resp, updated := doJSON(t, http.MethodPut, base+"/"+id+"?world_id=w1", map[string]any{"race": "elf"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "elf", updated["race"])

	resp, _ = doJSON(t, http.MethodDelete, base+"/"+id+"?world_id=w1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_Validation(t *testing.T) {
	ts, _ := setupServer(t)

	tests := []struct {
		name string
		path string
		body any
		want string
	}{
		{"missing name", "/api/characters", map[string]any{"world_id": "w1"}, "name"},
		{"missing world", "/api/characters", map[string]any{"name": "Aria"}, "world_id"},
		{"empty name", "/api/characters", map[string]any{"world_id": "w1", "name": ""}, "/name"},
		{"map needs description", "/api/maps", map[string]any{"world_id": "w1", "name": "Eastmarch"}, "description"},
		{"lore tags must be strings", "/api/lore", map[string]any{"world_id": "w1", "title": "t", "content": "c", "category": "x", "tags": []any{1}}, "/tags/0"},
		{"power system needs both", "/api/powersystems", map[string]any{"world_id": "w1"}, "name"},
		{"array body", "/api/characters", []any{1, 2}, "invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, http.MethodPost, ts.URL+tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, body["error"], tt.want)
		})
	}
}

func TestServer_UpdateValidation(t *testing.T) {
	ts, _ := setupServer(t)
	_, created := doJSON(t, http.MethodPost, ts.URL+"/api/maps", map[string]any{"world_id": "w1", "name": "Eastmarch", "description": "cold"})
	id := created["id"].(string)

	resp, _ := doJSON(t, http.MethodPut, ts.URL+"/api/maps/"+id, map[string]any{"description": "colder"})
	assert.Equal(t, http.StatusOK, resp.StatusCode, "partial updates skip required fields")

	resp, body := doJSON(t, http.MethodPut, ts.URL+"/api/maps/"+id, map[string]any{"name": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "/name")

	resp, _ = doJSON(t, http.MethodPut, ts.URL+"/api/maps/missing", map[string]any{"description": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_UnknownRoutes(t *testing.T) {
	ts, _ := setupServer(t)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/dragons?world_id=w1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "route not found", body["error"])

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/powersystems/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_OptionsAndCors(t *testing.T) {
	ts, _ := setupServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/characters", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestServer_Health(t *testing.T) {
	ts, _ := setupServer(t)
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestServer_Changes(t *testing.T) {
	ts, _ := setupServer(t)
	_, a := doJSON(t, http.MethodPost, ts.URL+"/api/characters", map[string]any{"world_id": "w1", "name": "Aria"})
	doJSON(t, http.MethodPut, ts.URL+"/api/characters/"+a["id"].(string), map[string]any{"race": "elf"})
	doJSON(t, http.MethodDelete, ts.URL+"/api/characters/"+a["id"].(string), nil)

	resp, err := http.Get(ts.URL + "/api/changes?world_id=w1&limit=2")
	require.NoError(t, err)
	defer resp.Body.Close()
	var changes []entities.ChangeEvent
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&changes))
	require.Len(t, changes, 2)
	assert.Equal(t, entities.ChangeUpdated, changes[0].Op)
	assert.Equal(t, entities.ChangeDeleted, changes[1].Op)

	bad, body := doJSON(t, http.MethodGet, ts.URL+"/api/changes?world_id=w1&limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
	assert.Contains(t, body["error"], "limit")
}

func TestServer_EventsStream(t *testing.T) {
	ts, s := setupServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events?world_id=w1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.Hub.SubscriberCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	doJSON(t, http.MethodPost, ts.URL+"/api/characters", map[string]any{"world_id": "w2", "name": "Other"})
	_, created := doJSON(t, http.MethodPost, ts.URL+"/api/characters", map[string]any{"world_id": "w1", "name": "Aria"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev entities.ChangeEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, entities.ChangeCreated, ev.Op)
	assert.Equal(t, entities.KindCharacter, ev.Kind)
	assert.Equal(t, "w1", ev.WorldID, "events of other worlds are filtered out")
	assert.Equal(t, created["id"], ev.EntityID)

	conn.Close()
	require.Eventually(t, func() bool { return s.Hub.SubscriberCount() == 0 },
		2*time.Second, 10*time.Millisecond, "subscriber is removed on disconnect")
}

func TestServer_RemoteClientRoundTrip(t *testing.T) {
	ts, _ := setupServer(t)
	ctx := context.Background()

	client, err := remote.NewClient(ts.URL+"/api", 2*time.Second, quietLogger())
	require.NoError(t, err)

	worlds := mocks.NewWorldStore()
	worlds.Worlds["alice"] = []entities.World{{ID: "w1", Name: "Aether"}}
	worlds.Active["alice"] = "w1"

	session := services.NewSession(worlds, client, services.SessionOptions{OwnerID: "alice", Logger: quietLogger()})
	require.NoError(t, session.Worlds.Load(ctx))

	created, err := session.Content.Create(ctx, entities.KindPowerSystem, entities.Payload{"name": "Runes", "description": "carved"})
	require.NoError(t, err)
	items := session.Content.Items(entities.KindPowerSystem)
	require.Len(t, items, 1)
	assert.Equal(t, created.ID, items[0].ID)

	_, err = session.Content.Create(ctx, entities.KindPowerSystem, entities.Payload{"name": "Nameless"})
	require.Error(t, err)
	assert.Equal(t, "Failed to add power system", session.Sync.Err(entities.KindPowerSystem))

	require.NoError(t, session.Content.Delete(ctx, entities.KindPowerSystem, created.ID))
	assert.Empty(t, session.Content.Items(entities.KindPowerSystem))
}

func TestServer_RunShutsDown(t *testing.T) {
	_, s := setupServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
