package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"brandcast-server/models"
	"brandcast-server/queue"
	"brandcast-server/routers"
	"brandcast-server/routers/api"
	"brandcast-server/storage"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*gin.Engine, *storage.FileStore, *queue.MemoryQueue) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	q := queue.NewMemoryQueue()
	return routers.InitRouter(api.NewHandler(store, q)), store, q
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func validBrandBody() map[string]interface{} {
	return map[string]interface{}{
		"accountId": "acct-1",
		"brand": map[string]interface{}{
			"name":               "Glow Coffee",
			"oneLineDescription": "Small-batch roastery",
			"tone":               []string{"warm", "playful"},
			"audienceSummary":    "City commuters",
			"valueProp":          "Fresh roasts delivered weekly",
			"primaryColorHex":    "#FF7A00",
		},
	}
}

func TestHealthz(t *testing.T) {
	r, _, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateContentRequest(t *testing.T) {
	r, _, q := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/v1/api/content-requests", map[string]interface{}{
		"accountId": "acct-1",
		"brief": map[string]interface{}{
			"goal":           "Promote the spring sale",
			"theme":          "spring renewal",
			"socialPlatform": "instagram",
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Request models.ContentRequest `json:"request"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Request.ID)
	assert.Equal(t, models.RequestStatusQueued, resp.Request.Status)
	assert.Equal(t, "acct-1", resp.Request.AccountID)

	// Exactly one job message was enqueued.
	assert.Equal(t, 1, q.Size())
}

func TestCreateContentRequestValidation(t *testing.T) {
	r, _, q := newTestServer(t)

	cases := []map[string]interface{}{
		{"brief": map[string]interface{}{"goal": "x", "socialPlatform": "instagram"}},
		{"accountId": "acct-1", "brief": map[string]interface{}{"socialPlatform": "instagram"}},
		{"accountId": "acct-1", "brief": map[string]interface{}{"goal": "x"}},
	}
	for _, body := range cases {
		w := doJSON(t, r, http.MethodPost, "/v1/api/content-requests", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	}
	assert.Equal(t, 0, q.Size())
}

func TestGetContentRequest(t *testing.T) {
	r, _, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/v1/api/content-requests", map[string]interface{}{
		"accountId": "acct-1",
		"brief":     map[string]interface{}{"goal": "Promote", "socialPlatform": "twitter"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Request models.ContentRequest `json:"request"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, r, http.MethodGet, "/v1/api/content-requests/"+created.Request.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/v1/api/content-requests/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListContentRequestsFilterByAccount(t *testing.T) {
	r, _, _ := newTestServer(t)

	for _, acct := range []string{"acct-1", "acct-1", "acct-2"} {
		w := doJSON(t, r, http.MethodPost, "/v1/api/content-requests", map[string]interface{}{
			"accountId": acct,
			"brief":     map[string]interface{}{"goal": "Promote", "socialPlatform": "instagram"},
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, r, http.MethodGet, "/v1/api/content-requests?accountId=acct-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Requests []models.ContentRequest `json:"requests"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Requests, 2)

	w = doJSON(t, r, http.MethodGet, "/v1/api/content-requests", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Requests, 3)
}

func TestDeleteContentRequest(t *testing.T) {
	r, _, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/v1/api/content-requests", map[string]interface{}{
		"accountId": "acct-1",
		"brief":     map[string]interface{}{"goal": "Promote", "socialPlatform": "instagram"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Request models.ContentRequest `json:"request"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, r, http.MethodDelete, "/v1/api/content-requests/"+created.Request.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/v1/api/content-requests/"+created.Request.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/v1/api/content-requests/"+created.Request.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpsertBrandProfile(t *testing.T) {
	r, _, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/v1/api/brand-profile", validBrandBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		BrandProfile models.BrandProfile `json:"brandProfile"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "acct-1", resp.BrandProfile.AccountID)
	assert.Equal(t, "Glow Coffee", resp.BrandProfile.Brand.Name)
}

func TestUpsertBrandProfileMissingFields(t *testing.T) {
	r, _, _ := newTestServer(t)

	body := validBrandBody()
	brand := body["brand"].(map[string]interface{})
	delete(brand, "tone")
	delete(brand, "valueProp")

	w := doJSON(t, r, http.MethodPost, "/v1/api/brand-profile", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "tone")
	assert.Contains(t, w.Body.String(), "valueProp")
}

func TestGetBrandProfile(t *testing.T) {
	r, _, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodGet, "/v1/api/brand-profile?accountId=acct-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/v1/api/brand-profile", validBrandBody())
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, "/v1/api/brand-profile?accountId=acct-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/v1/api/brand-profile", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListDrafts(t *testing.T) {
	r, store, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodGet, "/v1/api/drafts", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/v1/api/drafts?requestId=req-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"drafts":[]`)

	require.NoError(t, store.SaveDrafts(context.Background(),
		[]models.ContentDraft{{ID: "d-1", RequestID: "req-1", Caption: "hello"}}))

	w = doJSON(t, r, http.MethodGet, "/v1/api/drafts?requestId=req-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Drafts []models.ContentDraft `json:"drafts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Drafts, 1)
	assert.Equal(t, "hello", resp.Drafts[0].Caption)
}

type countingStore struct {
	storage.Store
	gets int64
}

func (s *countingStore) GetRequest(ctx context.Context, id string) (*models.ContentRequest, error) {
	atomic.AddInt64(&s.gets, 1)
	return s.Store.GetRequest(ctx, id)
}

func seedWSRequest(t *testing.T, store storage.Store, status string) {
	t.Helper()
	require.NoError(t, store.SaveRequest(context.Background(), &models.ContentRequest{
		ID:        "req-1",
		AccountID: "acct-1",
		Brief:     models.ContentBrief{Goal: "Promote", SocialPlatform: models.PlatformInstagram},
		Status:    status,
		CreatedAt: time.Now(),
	}))
}

func dialWS(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	return conn
}

func TestRequestStatusWebSocketTerminalStateCloses(t *testing.T) {
	r, store, _ := newTestServer(t)
	seedWSRequest(t, store, models.RequestStatusCompleted)
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn := dialWS(t, srv, "/v1/api/content-requests/req-1/ws")
	defer conn.Close()

	var got models.ContentRequest
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, models.RequestStatusCompleted, got.Status)

	// Terminal on connect: the server closes right after the first frame.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestRequestStatusWebSocketStopsWhenClientGone(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fileStore, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	store := &countingStore{Store: fileStore}
	r := routers.InitRouter(api.NewHandler(store, queue.NewMemoryQueue()))
	seedWSRequest(t, store, models.RequestStatusQueued)

	srv := httptest.NewServer(r)
	defer srv.Close()

	conn := dialWS(t, srv, "/v1/api/content-requests/req-1/ws")
	var got models.ContentRequest
	require.NoError(t, conn.ReadJSON(&got))
	require.NoError(t, conn.Close())

	// The request never goes terminal, so only the idle-tick ping can end
	// the watcher. Give it a few ticks, then verify polling has stopped.
	time.Sleep(2500 * time.Millisecond)
	polled := atomic.LoadInt64(&store.gets)
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, polled, atomic.LoadInt64(&store.gets))
}
