package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echoesrpg/echoes-server/lib/content"
	"github.com/echoesrpg/echoes-server/lib/service"
	"github.com/echoesrpg/echoes-server/lib/stats"
	"github.com/echoesrpg/echoes-server/lib/store"
)

var testMonsterID = uuid.MustParse("9f0c2a44-1111-4d7b-9a60-0a52da2b6c01")

func testServer(t *testing.T) (*httptest.Server, uuid.UUID) {
	t.Helper()
	catalog := &content.Catalog{
		Monsters: map[string]*content.MonsterBlueprint{
			testMonsterID.String(): {
				ID:            testMonsterID,
				Name:          "Ashen Wolf",
				BaseLevel:     1,
				Behavior:      content.BehaviorBasic,
				XPReward:      25,
				GoldRewardMin: 5,
				GoldRewardMax: 5,
				BaseStats:     stats.Block{MaxHP: 300, AD: 5, Speed: 10, CritDamage: 1.5},
			},
		},
		Items:      map[string]*content.ItemBlueprint{},
		StatusDefs: map[string]*content.StatusDefinition{},
	}
	mem := store.NewMemoryStore(catalog)
	playerID := uuid.New()
	mem.PutPlayer(&store.PlayerRecord{ID: playerID, Username: "hero", Level: 3, EchoMax: 100, ConsumableUses: 1})

	svc := service.New(mem, service.WithSeed(11))
	ts := httptest.NewServer(NewServer(svc).Router())
	t.Cleanup(ts.Close)
	return ts, playerID
}

func doJSON(t *testing.T, method, url string, playerID uuid.UUID, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if playerID != uuid.Nil {
		req.Header.Set(playerHeader, playerID.String())
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestStartActionFleeFlow(t *testing.T) {
	ts, playerID := testServer(t)

	// No session yet.
	resp := doJSON(t, http.MethodGet, ts.URL+"/combat/current", playerID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Start.
	resp = doJSON(t, http.MethodPost, ts.URL+"/combat/start", playerID,
		map[string]any{"monster_blueprint_id": testMonsterID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[service.CombatResult](t, resp)
	assert.True(t, result.Success)
	require.NotNil(t, result.State)
	assert.Equal(t, "Ashen Wolf", result.State.Monster.Name)

	// Starting again is a 400.
	resp = doJSON(t, http.MethodPost, ts.URL+"/combat/start", playerID,
		map[string]any{"monster_blueprint_id": testMonsterID})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Current session readable.
	resp = doJSON(t, http.MethodGet, ts.URL+"/combat/current", playerID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decode[service.CombatState](t, resp)
	assert.Equal(t, 1, state.TurnCount)

	// Basic attack.
	resp = doJSON(t, http.MethodPost, ts.URL+"/combat/action", playerID,
		map[string]any{"action_type": "basic_attack"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result = decode[service.CombatResult](t, resp)
	assert.True(t, result.Success)
	assert.Less(t, result.State.Monster.CurrentHP, result.State.Monster.MaxHP)
}

func TestActionErrors(t *testing.T) {
	ts, playerID := testServer(t)

	// Action with no session.
	resp := doJSON(t, http.MethodPost, ts.URL+"/combat/action", playerID,
		map[string]any{"action_type": "basic_attack"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, ts.URL+"/combat/start", playerID,
		map[string]any{"monster_blueprint_id": testMonsterID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Unknown action type.
	resp = doJSON(t, http.MethodPost, ts.URL+"/combat/action", playerID,
		map[string]any{"action_type": "dance"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Spell action without spell_id.
	resp = doJSON(t, http.MethodPost, ts.URL+"/combat/action", playerID,
		map[string]any{"action_type": "spell"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Unknown player on start.
	otherID := uuid.New()
	resp = doJSON(t, http.MethodPost, ts.URL+"/combat/start", otherID,
		map[string]any{"monster_blueprint_id": uuid.New()})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestAuthHeaderRequired(t *testing.T) {
	ts, _ := testServer(t)

	for _, endpoint := range []struct {
		method, path string
	}{
		{http.MethodPost, "/combat/start"},
		{http.MethodGet, "/combat/current"},
		{http.MethodPost, "/combat/action"},
		{http.MethodPost, "/combat/flee"},
	} {
		t.Run(fmt.Sprintf("%s %s", endpoint.method, endpoint.path), func(t *testing.T) {
			resp := doJSON(t, endpoint.method, ts.URL+endpoint.path, uuid.Nil, map[string]any{})
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			resp.Body.Close()
		})
	}
}

func TestFleeEndpoint(t *testing.T) {
	ts, playerID := testServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/combat/flee", playerID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "no session to flee")
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, ts.URL+"/combat/start", playerID,
		map[string]any{"monster_blueprint_id": testMonsterID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, ts.URL+"/combat/flee", playerID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[service.CombatResult](t, resp)
	if result.CombatEnded {
		assert.Equal(t, "fled", result.Result)
	} else {
		assert.False(t, result.Success)
	}
}
