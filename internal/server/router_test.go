package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jps1990/Night-Shade-V2/internal/config"
	"github.com/jps1990/Night-Shade-V2/internal/repository"
	"github.com/jps1990/Night-Shade-V2/internal/store"
	"github.com/jps1990/Night-Shade-V2/internal/ws"
)

type noopBots struct{}

func (noopBots) OnMessage(string, store.MessageDTO) {}
func (noopBots) ResetRoom(string)                   {}

func newTestRouter(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Env:                  "dev",
		JWTSecret:            "router-test-secret",
		MessageTTL:           time.Minute,
		ProfileTokenTTLHours: 1,
	}
	hub := ws.NewHub()
	go hub.Run()

	st, err := store.New(repository.NewMemory(), hub, cfg.MessageTTL)
	require.NoError(t, err)
	require.NoError(t, st.EnsurePermanentRooms())

	return SetupRouter(cfg, st, hub, noopBots{}), st
}

func doJSON(r *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func saveProfile(t *testing.T, r *gin.Engine, name string) string {
	t.Helper()
	w := doJSON(r, http.MethodPost, "/api/v1/profile", `{"name":"`+name+`"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(r, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)
}

func TestSaveProfileIssuesToken(t *testing.T) {
	r, _ := newTestRouter(t)
	token := saveProfile(t, r, "Morticia")
	assert.NotEmpty(t, token)
}

func TestSaveProfileRejectsBlankName(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(r, http.MethodPost, "/api/v1/profile", `{"name":"   "}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListRoomsContainsSeededRooms(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(r, http.MethodGet, "/api/v1/rooms", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Rooms []store.RoomDTO `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Rooms, 3)
	ids := make(map[string]bool)
	for _, room := range resp.Rooms {
		ids[room.ID] = true
	}
	assert.True(t, ids[store.RoomJesterAsylum])
	assert.True(t, ids[store.RoomGrokDomain])
	assert.True(t, ids[store.RoomSuggestions])
}

func TestListMessagesUnknownRoom(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(r, http.MethodGet, "/api/v1/rooms/nope/messages", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateRoomRequiresToken(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(r, http.MethodPost, "/api/v1/rooms", `{"name":"Crypt"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateRoomWithToken(t *testing.T) {
	r, st := newTestRouter(t)
	token := saveProfile(t, r, "Morticia")

	w := doJSON(r, http.MethodPost, "/api/v1/rooms", `{"name":"Crypt","icon":"🌙"}`, token)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Room store.RoomDTO `json:"room"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Crypt", resp.Room.Name)
	assert.Len(t, st.Rooms(), 4)
}

func TestUpdatePermanentRoomForbidden(t *testing.T) {
	r, _ := newTestRouter(t)
	token := saveProfile(t, r, "Morticia")

	w := doJSON(r, http.MethodPatch, "/api/v1/rooms/"+store.RoomJesterAsylum, `{"name":"Hijacked"}`, token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeletePermanentRoomForbidden(t *testing.T) {
	r, _ := newTestRouter(t)
	token := saveProfile(t, r, "Morticia")

	w := doJSON(r, http.MethodDelete, "/api/v1/rooms/"+store.RoomSuggestions, "", token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateUnknownRoomNotFound(t *testing.T) {
	r, _ := newTestRouter(t)
	token := saveProfile(t, r, "Morticia")

	w := doJSON(r, http.MethodPatch, "/api/v1/rooms/nope", `{"name":"X"}`, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
