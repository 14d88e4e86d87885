package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI issues "t1" at login and "t2" at refresh. Item calls succeed only
// with the refreshed token, so every call through it needs one refresh.
type fakeAPI struct {
	*httptest.Server

	mu           sync.Mutex
	refreshes    int
	logouts      int
	authorized   []string
	refreshGate  chan struct{}
	refreshFails bool
	slowGate     chan struct{}
	slowWaiting  int
}

func newFakeAPI(t *testing.T, opts ...func(*fakeAPI)) *fakeAPI {
	api := &fakeAPI{}
	for _, opt := range opts {
		opt(api)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: "r1", Path: "/", HttpOnly: true})
		writeData(w, http.StatusOK, map[string]any{
			"success":     true,
			"accessToken": "t1",
			"user":        Identity{ID: uuid.New(), Name: "Alice", Email: "alice@example.com", Role: "customer"},
		})
	})

	mux.HandleFunc("POST /auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		api.refreshes++
		gate, fails := api.refreshGate, api.refreshFails
		api.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-time.After(5 * time.Second):
			}
		}

		if cookie, err := r.Cookie("refresh_token"); err != nil || cookie.Value != "r1" || fails {
			writeError(w, http.StatusUnauthorized, "SESSION_EXPIRED")

			return
		}

		writeData(w, http.StatusOK, map[string]any{"success": true, "accessToken": "t2"})
	})

	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		api.logouts++
		api.mu.Unlock()

		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer t2" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED")

			return
		}

		api.mu.Lock()
		api.authorized = append(api.authorized, r.PathValue("id"))
		api.mu.Unlock()

		writeData(w, http.StatusOK, map[string]string{"id": r.PathValue("id")})
	})

	mux.HandleFunc("GET /always-denied", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED")
	})

	mux.HandleFunc("GET /slow", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer t2" {
			writeData(w, http.StatusOK, map[string]string{"id": "slow"})

			return
		}

		api.mu.Lock()
		api.slowWaiting++
		api.mu.Unlock()

		<-api.slowGate
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED")
	})

	mux.HandleFunc("GET /missing", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND")
	})

	api.Server = httptest.NewServer(mux)
	t.Cleanup(api.Close)

	return api
}

func (a *fakeAPI) refreshCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.refreshes
}

func (a *fakeAPI) counts() (logouts, slowWaiting int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.logouts, a.slowWaiting
}

func (a *fakeAPI) authorizedOrder() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]string(nil), a.authorized...)
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": status < 300, "data": data})
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   map[string]string{"code": code, "message": http.StatusText(status)},
	})
}

func (c *Coordinator) parked() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.waiters)
}

type countingObserver struct {
	mu       sync.Mutex
	success  int
	failures int
}

func (o *countingObserver) ObserveRefresh(_ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		o.failures++
	} else {
		o.success++
	}
}

func loggedIn(t *testing.T, api *fakeAPI, opts ...Option) *Coordinator {
	t.Helper()

	c, err := New(api.URL, opts...)
	require.NoError(t, err)

	s, err := c.Login(t.Context(), "alice@example.com", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, "t1", s.AccessToken)

	return c
}

// launch starts n item calls one after another, waiting until each has either
// started the refresh or been parked before starting the next.
func launch(t *testing.T, api *fakeAPI, c *Coordinator, n int) ([]error, *sync.WaitGroup) {
	t.Helper()

	errs := make([]error, n)

	var wg sync.WaitGroup

	for i := range n {
		wg.Add(1)

		go func() {
			defer wg.Done()

			var out struct {
				ID string `json:"id"`
			}

			errs[i] = c.Do(t.Context(), http.MethodGet, fmt.Sprintf("/items/%d", i), nil, &out)
		}()

		if i == 0 {
			require.Eventually(t, func() bool { return api.refreshCount() == 1 }, 2*time.Second, 5*time.Millisecond)
		} else {
			require.Eventually(t, func() bool { return c.parked() == i }, 2*time.Second, 5*time.Millisecond)
		}
	}

	return errs, &wg
}

func TestCoordinator_ConcurrentExpiry(t *testing.T) {
	t.Run("Success - One refresh releases every call in arrival order", func(t *testing.T) {
		// Arrange
		gate := make(chan struct{})
		api := newFakeAPI(t, func(a *fakeAPI) { a.refreshGate = gate })
		observer := &countingObserver{}
		c := loggedIn(t, api, WithObserver(observer))

		// Act
		errs, wg := launch(t, api, c, 5)
		close(gate)
		wg.Wait()

		// Assert
		for _, err := range errs {
			assert.NoError(t, err)
		}

		assert.Equal(t, 1, api.refreshCount())
		assert.Equal(t, []string{"0", "1", "2", "3", "4"}, api.authorizedOrder())
		assert.Equal(t, "t2", c.Session().AccessToken)
		assert.Equal(t, 1, observer.success)
	})

	t.Run("Failure - Failed refresh fails every call and clears the session", func(t *testing.T) {
		// Arrange
		gate := make(chan struct{})
		api := newFakeAPI(t, func(a *fakeAPI) {
			a.refreshGate = gate
			a.refreshFails = true
		})

		cleared := 0
		c := loggedIn(t, api, OnSessionCleared(func() { cleared++ }))

		// Act
		errs, wg := launch(t, api, c, 5)
		close(gate)
		wg.Wait()

		// Assert
		for _, err := range errs {
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSessionExpired)
		}

		assert.Equal(t, 1, api.refreshCount())
		assert.Empty(t, api.authorizedOrder())
		assert.False(t, c.Authenticated())
		assert.Nil(t, c.Session().User)
		assert.Equal(t, 1, cleared)
	})

	t.Run("Failure - Late rejection after a failed refresh does not refresh again", func(t *testing.T) {
		// Arrange
		slowGate := make(chan struct{})
		api := newFakeAPI(t, func(a *fakeAPI) {
			a.slowGate = slowGate
			a.refreshFails = true
		})
		c := loggedIn(t, api)

		slowErr := make(chan error, 1)

		go func() {
			slowErr <- c.Do(t.Context(), http.MethodGet, "/slow", nil, nil)
		}()

		require.Eventually(t, func() bool {
			_, waiting := api.counts()

			return waiting == 1
		}, 2*time.Second, 5*time.Millisecond)

		// Act
		fastErr := c.Do(t.Context(), http.MethodGet, "/items/fast", nil, nil)
		close(slowGate)

		// Assert
		assert.ErrorIs(t, fastErr, ErrSessionExpired)
		assert.ErrorIs(t, <-slowErr, ErrSessionExpired)
		assert.Equal(t, 1, api.refreshCount())
		assert.False(t, c.Authenticated())
	})
}

func TestCoordinator_Do(t *testing.T) {
	t.Run("Failure - Rejected again after the retry", func(t *testing.T) {
		// Arrange
		api := newFakeAPI(t)
		c := loggedIn(t, api)

		// Act
		err := c.Do(t.Context(), http.MethodGet, "/always-denied", nil, nil)

		// Assert
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.Equal(t, 1, api.refreshCount())
		assert.True(t, c.Authenticated())
	})

	t.Run("Success - Superseded token retried without another refresh", func(t *testing.T) {
		// Arrange
		slowGate := make(chan struct{})
		api := newFakeAPI(t, func(a *fakeAPI) { a.slowGate = slowGate })
		c := loggedIn(t, api)

		slowErr := make(chan error, 1)

		go func() {
			slowErr <- c.Do(t.Context(), http.MethodGet, "/slow", nil, nil)
		}()

		require.Eventually(t, func() bool {
			_, waiting := api.counts()

			return waiting == 1
		}, 2*time.Second, 5*time.Millisecond)

		// Act
		require.NoError(t, c.Do(t.Context(), http.MethodGet, "/items/fast", nil, nil))
		close(slowGate)

		// Assert
		assert.NoError(t, <-slowErr)
		assert.Equal(t, 1, api.refreshCount())
	})

	t.Run("Failure - Other statuses surface as API errors", func(t *testing.T) {
		// Arrange
		api := newFakeAPI(t)
		c := loggedIn(t, api)

		// Act
		err := c.Do(t.Context(), http.MethodGet, "/missing", nil, nil)

		// Assert
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
		assert.Equal(t, "NOT_FOUND", apiErr.Code)
		assert.Zero(t, api.refreshCount())
	})

	t.Run("Failure - No refresh credential", func(t *testing.T) {
		// Arrange
		api := newFakeAPI(t)
		c, err := New(api.URL)
		require.NoError(t, err)

		// Act
		err = c.Do(t.Context(), http.MethodGet, "/items/1", nil, nil)

		// Assert
		assert.ErrorIs(t, err, ErrSessionExpired)
	})
}

func TestCoordinator_Logout(t *testing.T) {
	// Arrange
	api := newFakeAPI(t)
	cleared := false
	c := loggedIn(t, api, OnSessionCleared(func() { cleared = true }))

	// Act
	err := c.Logout(t.Context())

	// Assert
	require.NoError(t, err)
	assert.False(t, c.Authenticated())
	assert.True(t, cleared)
	logouts, _ := api.counts()
	assert.Equal(t, 1, logouts)
}

func TestCoordinator_SessionIsACopy(t *testing.T) {
	// Arrange
	api := newFakeAPI(t)
	c := loggedIn(t, api)

	// Act
	s := c.Session()
	s.User.Name = "Mallory"
	s.AccessToken = "forged"

	// Assert
	assert.Equal(t, "Alice", c.Session().User.Name)
	assert.Equal(t, "t1", c.Session().AccessToken)
}
