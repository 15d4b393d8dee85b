package store

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

const regionalDatabaseURL = "https://demo-default-rtdb.europe-west1.firebasedatabase.app"

// serviceAccountJSON — учётные данные сервисного аккаунта с настоящим RSA-ключом; сеть не нужна.
func serviceAccountJSON(t *testing.T) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	creds, err := json.Marshal(map[string]string{
		"type":           "service_account",
		"project_id":     "demo",
		"private_key_id": "key-1",
		"private_key":    string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		"client_email":   "bot@demo.iam.gserviceaccount.com",
		"client_id":      "1",
		"token_uri":      "https://oauth2.googleapis.com/token",
	})
	require.NoError(t, err)
	return creds
}

// fakeRTDB отвечает на REST-запросы Realtime Database из дерева Memory:
// GET (shallow, X-Firebase-ETag), PUT (print=silent, if-match), POST.
type fakeRTDB struct {
	mu       sync.Mutex
	data     *Memory
	requests int
	ifMatch  int
	conflict int
}

func newFakeRTDB() *fakeRTDB {
	return &fakeRTDB{data: NewMemory()}
}

func (f *fakeRTDB) RoundTrip(r *http.Request) (*http.Response, error) {
	if err := r.Context().Err(); err != nil {
		return nil, err
	}
	rec := httptest.NewRecorder()
	f.serve(rec, r)
	resp := rec.Result()
	resp.Request = r
	return resp, nil
}

func (f *fakeRTDB) current(ctx context.Context, path string) json.RawMessage {
	var raw json.RawMessage
	if err := f.data.Get(ctx, path, &raw); err != nil || raw == nil {
		return json.RawMessage("null")
	}
	return raw
}

func etagOf(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:8])
}

func (f *fakeRTDB) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++

	ctx := r.Context()
	path := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ".json")
	body, _ := io.ReadAll(r.Body)
	cur := f.current(ctx, path)

	switch r.Method {
	case http.MethodGet:
		if r.Header.Get("X-Firebase-ETag") == "true" {
			w.Header().Set("ETag", etagOf(cur))
		}
		if r.URL.Query().Get("shallow") == "true" {
			var children map[string]json.RawMessage
			if json.Unmarshal(cur, &children) == nil && children != nil {
				keys := make(map[string]bool, len(children))
				for k := range children {
					keys[k] = true
				}
				cur, _ = json.Marshal(keys)
			}
		}
		_, _ = w.Write(cur)
	case http.MethodPut:
		if tag := r.Header.Get("if-match"); tag != "" {
			f.ifMatch++
			if tag != etagOf(cur) {
				f.conflict++
				w.Header().Set("ETag", etagOf(cur))
				w.WriteHeader(http.StatusPreconditionFailed)
				_, _ = w.Write(cur)
				return
			}
		}
		var v interface{} = json.RawMessage(body)
		if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
			v = nil
		}
		if err := f.data.Set(ctx, path, v); err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("print") == "silent" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("ETag", etagOf(body))
		_, _ = w.Write(body)
	case http.MethodPost:
		key, err := f.data.Push(ctx, path, json.RawMessage(body))
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"name": key})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeRTDB) stats() (requests, ifMatch, conflict int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests, f.ifMatch, f.conflict
}

func newFakeFirebase(t *testing.T) (*Firebase, *fakeRTDB) {
	t.Helper()
	t.Setenv("FIREBASE_DATABASE_EMULATOR_HOST", "")
	rtdb := newFakeRTDB()
	fb, err := newFirebase(context.Background(), regionalDatabaseURL,
		option.WithCredentialsJSON(serviceAccountJSON(t)),
		option.WithHTTPClient(&http.Client{Transport: rtdb}),
	)
	require.NoError(t, err)
	return fb, rtdb
}

func TestFirebaseContract(t *testing.T) {
	runContract(t, func(t *testing.T) Store {
		fb, _ := newFakeFirebase(t)
		return fb
	})
}

func TestNewFirebase_AcceptsRegionalAndLegacyHosts(t *testing.T) {
	t.Setenv("FIREBASE_DATABASE_EMULATOR_HOST", "")
	creds := serviceAccountJSON(t)
	for _, url := range []string{
		regionalDatabaseURL,
		"https://demo-default-rtdb.asia-southeast1.firebasedatabase.app",
		"https://demo-default-rtdb.firebaseio.com",
	} {
		fb, err := NewFirebase(context.Background(), url, creds)
		require.NoError(t, err, url)
		assert.NoError(t, fb.Close())
	}
}

func TestNewFirebase_RequiresURLAndCredentials(t *testing.T) {
	_, err := NewFirebase(context.Background(), "", serviceAccountJSON(t))
	assert.Error(t, err)
	_, err = NewFirebase(context.Background(), regionalDatabaseURL, nil)
	assert.Error(t, err)
}

func TestFirebase_IncrementUsesConditionalWrite(t *testing.T) {
	ctx := context.Background()
	fb, rtdb := newFakeFirebase(t)
	require.NoError(t, fb.Set(ctx, "tickets/1", record{Name: "a"}))
	require.NoError(t, fb.Set(ctx, "tickets/2", record{Name: "b"}))

	seed := func(ctx context.Context) (int64, error) {
		c, err := fb.Count(ctx, "tickets")
		return int64(c), err
	}
	n, err := fb.Increment(ctx, "counters/tickets", seed)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	n, err = fb.Increment(ctx, "counters/tickets", seed)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	_, ifMatch, _ := rtdb.stats()
	assert.Equal(t, 2, ifMatch)

	var stored int64
	require.NoError(t, fb.Get(ctx, "counters/tickets", &stored))
	assert.Equal(t, int64(4), stored)
}

func TestFirebase_IncrementRetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	fb, rtdb := newFakeFirebase(t)
	require.NoError(t, fb.Set(ctx, "counters/tickets", 10))

	seedless, err := fb.Increment(ctx, "counters/other", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seedless)

	n, err := fb.Increment(ctx, "counters/tickets", func(ctx context.Context) (int64, error) {
		t.Fatal("seed must not run for an existing counter")
		return 0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fb.Increment(ctx, "counters/tickets", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var stored int64
	require.NoError(t, fb.Get(ctx, "counters/tickets", &stored))
	assert.Equal(t, int64(16), stored)
	// Каждый конфликт if-match даёт ровно одну повторную запись.
	_, ifMatch, conflict := rtdb.stats()
	assert.Equal(t, 7+conflict, ifMatch)
}

func TestFirebase_PushReturnsKey(t *testing.T) {
	ctx := context.Background()
	fb, _ := newFakeFirebase(t)
	key, err := fb.Push(ctx, "messages/TKT-1001", record{Name: "hello"})
	require.NoError(t, err)
	require.NotEmpty(t, key)

	var r record
	require.NoError(t, fb.Get(ctx, Join("messages/TKT-1001", key), &r))
	assert.Equal(t, "hello", r.Name)
}

func TestFirebase_InvalidPathSkipsNetwork(t *testing.T) {
	fb, rtdb := newFakeFirebase(t)
	_, err := fb.Count(context.Background(), "tickets/a#b")
	require.Error(t, err)
	requests, _, _ := rtdb.stats()
	assert.Zero(t, requests)
}
