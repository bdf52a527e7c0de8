// ABOUTME: Tests for the HTTP API handlers
// ABOUTME: Exercises auth, role gates, recording scoping and error details through httptest

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/ecg-gateway/internal/auth"
	"github.com/2389/ecg-gateway/internal/store"
)

// newTestAPI builds a gateway on an in-memory database and returns its handler.
func newTestAPI(t *testing.T) (*Gateway, http.Handler) {
	t.Helper()
	cfg := testConfig(t)
	cfg.Server.GRPCAddr = ""

	gw, err := New(cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { gw.Shutdown(context.Background()) })
	return gw, gw.Handler()
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postForm(t *testing.T, h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, h http.Handler, username, password string) string {
	t.Helper()
	rec := postForm(t, h, "/auth/token", url.Values{"username": {username}, "password": {password}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bearer", resp.TokenType)
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

// createUser creates a user principal through the admin API and logs in as it.
func createUser(t *testing.T, h http.Handler, adminToken, username string) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/auth/users/create", adminToken,
		CreateUserRequest{Username: username, Password: username + "-pw"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return login(t, h, username, username+"-pw")
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body["detail"]
}

type recordingEnvelope struct {
	Message string            `json:"message"`
	Data    RecordingResponse `json:"data"`
}

func createRecording(t *testing.T, h http.Handler, token string, leads []LeadRequest) RecordingResponse {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/ecg/create", token, leads)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env recordingEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "Created ecg", env.Message)
	return env.Data
}

func TestRootAndHealth(t *testing.T) {
	_, h := newTestAPI(t)

	rec := do(t, h, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Hello, World!"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocs(t *testing.T) {
	_, h := newTestAPI(t)

	rec := do(t, h, http.MethodGet, "/docs", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<h1>ECG Gateway API</h1>")
}

func TestToken(t *testing.T) {
	_, h := newTestAPI(t)

	t.Run("valid credentials", func(t *testing.T) {
		login(t, h, "admin", "password")
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := postForm(t, h, "/auth/token", url.Values{"username": {"admin"}, "password": {"wrong"}})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
		assert.Equal(t, "Incorrect username or password", detail(t, rec))
	})

	t.Run("unknown user", func(t *testing.T) {
		rec := postForm(t, h, "/auth/token", url.Values{"username": {"ghost"}, "password": {"x"}})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Incorrect username or password", detail(t, rec))
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := postForm(t, h, "/auth/token", url.Values{"username": {"admin"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMe(t *testing.T) {
	_, h := newTestAPI(t)
	adminToken := login(t, h, "admin", "password")

	rec := do(t, h, http.MethodGet, "/auth/users/me", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "admin", body["username"])
	assert.Equal(t, "admin", body["role"])
	assert.NotEmpty(t, body["id"])
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestUnauthenticated(t *testing.T) {
	_, h := newTestAPI(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
	}{
		{"me without token", http.MethodGet, "/auth/users/me", ""},
		{"list without token", http.MethodGet, "/ecg/get_all", ""},
		{"create without token", http.MethodPost, "/ecg/create", ""},
		{"garbage token", http.MethodGet, "/ecg/get_all", "not-a-jwt"},
		{"admin route without token", http.MethodPost, "/auth/users/create", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.token, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			assert.Equal(t, "Could not validate credentials", detail(t, rec))
		})
	}
}

func TestExpiredToken(t *testing.T) {
	gw, h := newTestAPI(t)

	issuer, err := auth.NewJWTIssuer([]byte(gw.config.Auth.SecretKey), gw.config.Auth.Algorithm)
	require.NoError(t, err)
	expired, err := issuer.Issue("admin", -time.Minute)
	require.NoError(t, err)

	rec := do(t, h, http.MethodGet, "/auth/users/me", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Could not validate credentials", detail(t, rec))

	// A token for the same subject signed with another key is rejected too
	other, err := auth.NewJWTIssuer([]byte("other-secret"), gw.config.Auth.Algorithm)
	require.NoError(t, err)
	forged, err := other.Issue("admin", time.Minute)
	require.NoError(t, err)

	rec = do(t, h, http.MethodGet, "/auth/users/me", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateUserEndpoint(t *testing.T) {
	_, h := newTestAPI(t)
	adminToken := login(t, h, "admin", "password")

	rec := do(t, h, http.MethodPost, "/auth/users/create", adminToken,
		CreateUserRequest{Username: "alice", Password: "alice-pw"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var created CreateUserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "User created successfully", created.Message)
	assert.NotEmpty(t, created.UserID)

	aliceToken := login(t, h, "alice", "alice-pw")

	t.Run("duplicate username", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/auth/users/create", adminToken,
			CreateUserRequest{Username: "alice", Password: "x"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Error creating user", detail(t, rec))
	})

	t.Run("missing password", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/auth/users/create", adminToken,
			CreateUserRequest{Username: "bob"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid json", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/auth/users/create", adminToken, "{")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("user role is forbidden", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/auth/users/create", aliceToken,
			CreateUserRequest{Username: "bob", Password: "x"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "admin required", detail(t, rec))
	})
}

func TestAuditEndpoint(t *testing.T) {
	_, h := newTestAPI(t)
	adminToken := login(t, h, "admin", "password")
	aliceToken := createUser(t, h, adminToken, "alice")

	createRecording(t, h, aliceToken, []LeadRequest{{Identifier: "I", Signal: []int{1, -1}}})

	rec := do(t, h, http.MethodGet, "/auth/audit", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Message string               `json:"message"`
		Data    []AuditEntryResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 3)
	// Newest first
	assert.Equal(t, string(store.AuditCreateRecording), body.Data[0].Action)
	assert.Equal(t, string(store.AuditCreateUser), body.Data[1].Action)
	assert.Equal(t, string(store.AuditBootstrapAdmin), body.Data[2].Action)

	rec = do(t, h, http.MethodGet, "/auth/audit?limit=1", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 1)

	rec = do(t, h, http.MethodGet, "/auth/audit?action=create_user", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, string(store.AuditCreateUser), body.Data[0].Action)
	aliceID := body.Data[0].TargetID

	rec = do(t, h, http.MethodGet, "/auth/audit?actor_id="+aliceID, adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, string(store.AuditCreateRecording), body.Data[0].Action)
	assert.Equal(t, aliceID, body.Data[0].ActorID)

	rec = do(t, h, http.MethodGet, "/auth/audit?action=drop_tables", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown audit action: drop_tables", detail(t, rec))

	rec = do(t, h, http.MethodGet, "/auth/audit?limit=zero", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/auth/audit", aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRecordingLifecycle(t *testing.T) {
	_, h := newTestAPI(t)
	adminToken := login(t, h, "admin", "password")
	aliceToken := createUser(t, h, adminToken, "alice")

	n := 6
	created := createRecording(t, h, aliceToken, []LeadRequest{
		{Identifier: "I", Signal: []int{1, 2, 3, 4, 5}},
		{Identifier: "II", Signal: []int{5, -1, 3, -5, -10, 10}, NumberOfSamples: &n},
		{Identifier: "III", Signal: []int{}},
	})
	require.NotEmpty(t, created.ID)
	require.Len(t, created.Leads, 3)
	assert.Equal(t, "I", created.Leads[0].Identifier)
	assert.Equal(t, 5, created.Leads[0].NumberOfSamples)
	assert.Equal(t, created.ID, created.Leads[0].ECGID)
	assert.Equal(t, []int{}, created.Leads[2].Signal)

	t.Run("get", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/ecg/get/"+created.ID, aliceToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var env recordingEnvelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, "ECG with ID: "+created.ID, env.Message)
		assert.Equal(t, created, env.Data)
	})

	t.Run("list", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/ecg/get_all", aliceToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var env struct {
			Message string              `json:"message"`
			Data    []RecordingResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, "All ecgs", env.Message)
		require.Len(t, env.Data, 1)
		assert.Equal(t, created.ID, env.Data[0].ID)
	})

	t.Run("insight", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/ecg/get_insight/"+created.ID, aliceToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t,
			`{"message":"Insight for ecg_id: `+created.ID+`","data":{"zero_crossings":{"I":0,"II":4,"III":0}}}`,
			rec.Body.String())
	})

	t.Run("delete", func(t *testing.T) {
		rec := do(t, h, http.MethodDelete, "/ecg/delete/"+created.ID, aliceToken, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = do(t, h, http.MethodGet, "/ecg/get/"+created.ID, aliceToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "ECG not found", detail(t, rec))

		rec = do(t, h, http.MethodDelete, "/ecg/delete/"+created.ID, aliceToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRecordingIsolation(t *testing.T) {
	_, h := newTestAPI(t)
	adminToken := login(t, h, "admin", "password")
	aliceToken := createUser(t, h, adminToken, "alice")
	bobToken := createUser(t, h, adminToken, "bob")

	aliceRec := createRecording(t, h, aliceToken, []LeadRequest{{Identifier: "I", Signal: []int{1, -1}}})

	// Bob's view of Alice's id is identical to a missing id
	for _, path := range []string{"/ecg/get/", "/ecg/get_insight/"} {
		foreign := do(t, h, http.MethodGet, path+aliceRec.ID, bobToken, nil)
		missing := do(t, h, http.MethodGet, path+"does-not-exist", bobToken, nil)

		assert.Equal(t, http.StatusNotFound, foreign.Code)
		assert.Equal(t, missing.Code, foreign.Code)
		assert.Equal(t, missing.Body.String(), foreign.Body.String())
	}

	rec := do(t, h, http.MethodDelete, "/ecg/delete/"+aliceRec.ID, bobToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/ecg/get_all", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"All ecgs","data":[]}`, rec.Body.String())

	// Alice still has hers
	rec = do(t, h, http.MethodGet, "/ecg/get/"+aliceRec.ID, aliceToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecordingRoutesRejectAdmin(t *testing.T) {
	_, h := newTestAPI(t)
	adminToken := login(t, h, "admin", "password")

	rec := do(t, h, http.MethodGet, "/ecg/get_all", adminToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "user required", detail(t, rec))

	rec = do(t, h, http.MethodPost, "/ecg/create", adminToken, []LeadRequest{{Identifier: "I", Signal: []int{1}}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateRecordingValidation(t *testing.T) {
	_, h := newTestAPI(t)
	adminToken := login(t, h, "admin", "password")
	aliceToken := createUser(t, h, adminToken, "alice")

	three := 3
	tests := []struct {
		name string
		body any
	}{
		{"invalid json", "[{"},
		{"object instead of array", `{"identifier":"I","signal":[1]}`},
		{"empty lead list", []LeadRequest{}},
		{"empty identifier", []LeadRequest{{Identifier: "", Signal: []int{1}}}},
		{"sample count mismatch", []LeadRequest{{Identifier: "I", Signal: []int{1, 2}, NumberOfSamples: &three}}},
		{"non integer sample", `[{"identifier":"I","signal":[1.5]}]`},
		{"trailing garbage", `[{"identifier":"I","signal":[1,-1]}]garbage`},
		{"second json value", `[{"identifier":"I","signal":[1,-1]}] {}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/ecg/create", aliceToken, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.NotEmpty(t, detail(t, rec))
		})
	}

	// Nothing was stored by any of the rejected requests
	rec := do(t, h, http.MethodGet, "/ecg/get_all", aliceToken, nil)
	assert.JSONEq(t, `{"message":"All ecgs","data":[]}`, rec.Body.String())
}

func TestCreateUserRejectsTrailingData(t *testing.T) {
	_, h := newTestAPI(t)
	adminToken := login(t, h, "admin", "password")

	rec := do(t, h, http.MethodPost, "/auth/users/create", adminToken, `{"username":"bob","password":"pw"}{"username":"eve"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid JSON body", detail(t, rec))

	rec = postForm(t, h, "/auth/token", url.Values{"username": {"bob"}, "password": {"pw"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Trailing whitespace is still a single value
	rec = do(t, h, http.MethodPost, "/auth/users/create", adminToken, "{\"username\":\"bob\",\"password\":\"pw\"}\n")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestCreateRecordingBodyTooLarge(t *testing.T) {
	_, h := newTestAPI(t)
	adminToken := login(t, h, "admin", "password")
	aliceToken := createUser(t, h, adminToken, "alice")

	var b strings.Builder
	b.WriteString(`[{"identifier":"I","signal":[`)
	for b.Len() < maxBodyBytes+1024 {
		b.WriteString("1,")
	}
	b.WriteString("1]}]")

	rec := do(t, h, http.MethodPost, "/ecg/create", aliceToken, b.String())
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCreateRecordingPersistenceFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.GRPCAddr = ""

	mock := store.NewMockStore()
	gw, err := newWithStore(cfg, mock, testLogger())
	require.NoError(t, err)
	h := gw.Handler()

	adminToken := login(t, h, "admin", "password")
	aliceToken := createUser(t, h, adminToken, "alice")

	mock.FailCreateRecording = errors.New("disk on fire")

	rec := do(t, h, http.MethodPost, "/ecg/create", aliceToken, []LeadRequest{{Identifier: "I", Signal: []int{1}}})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error creating ECG", detail(t, rec))
	assert.NotContains(t, rec.Body.String(), "disk on fire")

	mock.FailCreateRecording = nil
	rec = do(t, h, http.MethodGet, "/ecg/get_all", aliceToken, nil)
	assert.JSONEq(t, `{"message":"All ecgs","data":[]}`, rec.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	_, h := newTestAPI(t)

	rec := do(t, h, http.MethodGet, "/auth/token", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = do(t, h, http.MethodPost, "/ecg/get_all", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServiceForbiddenDetailNamesRole(t *testing.T) {
	gw, _ := newTestAPI(t)

	// The service layer checks roles itself; its 403 must match the route guard's.
	user := &store.User{ID: "u1", Username: "bob", Role: store.RoleUser}
	_, err := gw.users.CreateUser(context.Background(), user, "carol", "pw")
	require.ErrorIs(t, err, auth.ErrForbidden)

	rec := httptest.NewRecorder()
	gw.writeServiceError(rec, err)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "admin required", detail(t, rec))
}
