package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/isdelr/marketplace-be/internal/auth"
	"github.com/isdelr/marketplace-be/internal/database"
	"github.com/isdelr/marketplace-be/internal/models"
	"github.com/isdelr/marketplace-be/internal/services"
	"github.com/isdelr/marketplace-be/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	*httptest.Server
	t *testing.T
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "market.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	events := services.NewEventService(db)
	users := services.NewUserService(db, auth.NewPasswordHasher(bcrypt.MinCost), tokens, events)
	categories := services.NewCategoryService(db, events, hub)
	products := services.NewProductService(db, categories, events, hub)

	srv := httptest.NewServer(NewRouter(Deps{
		Users:      users,
		Categories: categories,
		Products:   products,
		Events:     events,
		Tokens:     tokens,
		Hub:        hub,
		DB:         db,
	}))
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, t: t}
}

func (s *testServer) do(method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.Client().Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (s *testServer) getList(path string, dst interface{}) int {
	s.t.Helper()
	resp, err := s.Client().Get(s.URL + path)
	require.NoError(s.t, err)
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		require.NoError(s.t, json.NewDecoder(resp.Body).Decode(dst))
	}
	return resp.StatusCode
}

func (s *testServer) login(name, email, password string) string {
	s.t.Helper()
	resp, _ := s.do(http.MethodPost, "/signup", "", map[string]string{
		"name": name, "email": email, "password": password,
	})
	require.Equal(s.t, http.StatusCreated, resp.StatusCode)

	resp, body := s.do(http.MethodPost, "/login", "", map[string]string{
		"email": email, "password": password,
	})
	require.Equal(s.t, http.StatusOK, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(s.t, token)
	return token
}

func TestSignupAndLogin(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(http.MethodPost, "/signup", "", map[string]string{
		"name": "Alice", "email": "a@x.io", "password": "pw1",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "User created successfully", body["message"])

	resp, body = s.do(http.MethodPost, "/signup", "", map[string]string{
		"name": "Alice again", "email": "a@x.io", "password": "other",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "User already exists", body["message"])

	resp, body = s.do(http.MethodPost, "/login", "", map[string]string{
		"email": "a@x.io", "password": "wrong",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid email or password", body["message"])

	resp, body = s.do(http.MethodPost, "/login", "", map[string]string{
		"email": "nobody@x.io", "password": "pw1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid email or password", body["message"])

	resp, body = s.do(http.MethodPost, "/login", "", map[string]string{"email": "a@x.io"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid email or password", body["message"])

	resp, body = s.do(http.MethodPost, "/login", "", map[string]string{
		"email": "a@x.io", "password": "pw1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["token"])
	assert.NotEmpty(t, body["userId"])
}

func TestSignup_RejectsBadInput(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(http.MethodPost, "/signup", "", map[string]string{"name": "Bob", "email": "b@x.io"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Validation failed", body["message"])

	req, err := http.NewRequest(http.MethodPost, s.URL+"/signup", strings.NewReader("{not json"))
	require.NoError(t, err)
	raw, err := s.Client().Do(req)
	require.NoError(t, err)
	raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestAuthGate(t *testing.T) {
	s := newTestServer(t)
	product := map[string]interface{}{"title": "Lamp", "category": "Home", "price": 5}

	resp, body := s.do(http.MethodPost, "/api/products", "", product)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Access denied. No token provided", body["message"])

	resp, body = s.do(http.MethodPost, "/api/products", "garbage", product)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid token", body["message"])

	resp, _ = s.do(http.MethodPost, "/api/categories", "", map[string]string{"name": "Home"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(http.MethodDelete, "/api/products/whatever", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCategories(t *testing.T) {
	s := newTestServer(t)
	token := s.login("Alice", "a@x.io", "pw1")

	var list []models.Category
	assert.Equal(t, http.StatusOK, s.getList("/api/categories", &list))
	assert.Empty(t, list)

	resp, body := s.do(http.MethodPost, "/api/categories", token, map[string]string{
		"name": "Home Goods", "description": "Things for the house",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Category created successfully", body["message"])

	resp, _ = s.do(http.MethodPost, "/api/categories", token, map[string]string{"description": "no name"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var cat models.Category
	assert.Equal(t, http.StatusOK, s.getList("/api/categories/Home%20Goods", &cat))
	assert.Equal(t, "Home Goods", cat.Name)
	assert.Equal(t, "Things for the house", cat.Description)

	resp, body = s.do(http.MethodGet, "/api/categories/Missing", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Category not found", body["message"])

	assert.Equal(t, http.StatusOK, s.getList("/api/categories", &list))
	assert.Len(t, list, 1)
}

func TestProductLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := s.login("Alice", "a@x.io", "pw1")

	resp, body := s.do(http.MethodPost, "/api/products", token, map[string]interface{}{
		"title": "Phone", "category": "Electronics", "price": 100,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid category", body["message"])

	resp, _ = s.do(http.MethodPost, "/api/categories", token, map[string]string{"name": "Electronics"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = s.do(http.MethodPost, "/api/products", token, map[string]interface{}{
		"title": "Phone", "category": "Electronics",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Validation failed", body["message"])

	var ids []string
	for _, title := range []string{"Phone", "Laptop"} {
		resp, body = s.do(http.MethodPost, "/api/products", token, map[string]interface{}{
			"title": title, "category": "Electronics", "price": 100, "images": []string{"a.png"},
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "Product created successfully", body["message"])
		product, ok := body["product"].(map[string]interface{})
		require.True(t, ok)
		ids = append(ids, product["id"].(string))
	}

	var all []models.Product
	require.Equal(t, http.StatusOK, s.getList("/api/products", &all))
	require.Len(t, all, 2)
	assert.Equal(t, "Laptop", all[0].Title)
	assert.Equal(t, "Phone", all[1].Title)
	assert.Equal(t, []string{"a.png"}, all[0].Images)

	var inCategory []models.Product
	assert.Equal(t, http.StatusOK, s.getList("/api/products/category/Electronics", &inCategory))
	assert.Len(t, inCategory, 2)

	resp, body = s.do(http.MethodGet, "/api/products/category/NoSuchCat", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "No products found for this category", body["message"])

	var one models.Product
	assert.Equal(t, http.StatusOK, s.getList("/api/products/"+ids[0], &one))
	assert.Equal(t, "Phone", one.Title)

	resp, body = s.do(http.MethodDelete, "/api/products/"+ids[0], token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Product deleted successfully", body["message"])

	resp, body = s.do(http.MethodDelete, "/api/products/"+ids[0], token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Product not found", body["message"])

	resp, _ = s.do(http.MethodGet, "/api/products/"+ids[0], "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var events []models.Event
	require.Equal(t, http.StatusOK, s.getList("/api/events?limit=50", &events))
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, services.EventUserSignup)
	assert.Contains(t, types, services.EventCategoryCreate)
	assert.Contains(t, types, services.EventProductCreate)
	assert.Contains(t, types, services.EventProductDelete)
}

func TestNamesWithPercentSigns(t *testing.T) {
	s := newTestServer(t)
	token := s.login("Alice", "a@x.io", "pw1")

	resp, _ := s.do(http.MethodPost, "/api/categories", token, map[string]string{"name": "50%41"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = s.do(http.MethodPost, "/api/products", token, map[string]interface{}{
		"title": "Coupon", "category": "50%41", "price": 1,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var cat models.Category
	require.Equal(t, http.StatusOK, s.getList("/api/categories/50%2541", &cat))
	assert.Equal(t, "50%41", cat.Name)

	var products []models.Product
	require.Equal(t, http.StatusOK, s.getList("/api/products/category/50%2541", &products))
	require.Len(t, products, 1)
	assert.Equal(t, "Coupon", products[0].Title)

	resp, _ = s.do(http.MethodGet, "/api/categories/50A", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestCategoryFeed(t *testing.T) {
	s := newTestServer(t)
	token := s.login("Alice", "a@x.io", "pw1")
	for _, name := range []string{"Books", "Garden"} {
		resp, _ := s.do(http.MethodPost, "/api/categories", token, map[string]string{"name": name})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	wsURL := "ws" + strings.TrimPrefix(s.URL, "http") + "/api/ws/categories/Books"
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	// A pong means the client is registered with the hub.
	require.NoError(t, conn.WriteJSON(websocket.Message{Action: websocket.ActionPing}))
	var msg websocket.Message
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, websocket.ActionPong, msg.Action)

	resp, _ := s.do(http.MethodPost, "/api/products", token, map[string]interface{}{
		"title": "Rake", "category": "Garden", "price": 12,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = s.do(http.MethodPost, "/api/products", token, map[string]interface{}{
		"title": "Novel", "category": "Books", "price": 8,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// The Garden listing is filtered out, so the first update is the book.
	msg = websocket.Message{}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, services.ActionProductCreated, msg.Action)
	payload, ok := msg.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Novel", payload["title"])
}
