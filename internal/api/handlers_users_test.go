package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleGetUser(t *testing.T) {
	now := time.Now()
	db := &MockDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &MockRow{ScanFunc: func(dest ...any) error {
				if args[0].(int64) != 5 {
					return pgx.ErrNoRows
				}
				*dest[0].(*int64) = 5
				*dest[1].(*string) = "alice"
				*dest[2].(*string) = "Alice"
				*dest[3].(*string) = "Smith"
				*dest[4].(*string) = "a@b.com"
				*dest[5].(*string) = ""
				*dest[6].(*time.Time) = now
				return nil
			}}
		},
		QueryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			if strings.Contains(sql, "JOIN playlist_access") {
				return NewMockRows([][]any{
					{int64(9), "Unlocked Mix", "", int64(2), "bob", true, "", now},
				}), nil
			}
			return NewMockRows([][]any{
				{int64(3), "My Mix", "", int64(5), "alice", false, "", now},
			}), nil
		},
	}
	srv := newTestServer(db)

	t.Run("OK", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/users/5", nil)
		setAuth(t, srv, req, 5)
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			User userProfile `json:"user"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "alice", resp.User.Username)
		require.Len(t, resp.User.Playlists, 1)
		assert.Equal(t, "My Mix", resp.User.Playlists[0].Name)
		require.Len(t, resp.User.AccessPlaylists, 1)
		assert.Equal(t, "Unlocked Mix", resp.User.AccessPlaylists[0].Name)
	})

	t.Run("Not Found", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/users/404", nil)
		setAuth(t, srv, req, 5)
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Anonymous", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/users/5", nil)
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestHandleListUsers(t *testing.T) {
	now := time.Now()
	db := &MockDB{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return NewMockRows([][]any{
				{int64(1), "alice", "", "", "a@b.com", "", now},
				{int64(2), "bob", "", "", "b@b.com", "", now},
			}), nil
		},
	}
	srv := newTestServer(db)

	req := httptest.NewRequest("GET", "/users", nil)
	setAuth(t, srv, req, 1)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Users []User `json:"users"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Users, 2)
	assert.Equal(t, "bob", resp.Users[1].Username)
}

func TestHandlePatchUser(t *testing.T) {
	storedHash := mustHash(t, "old-password")

	tests := []struct {
		name     string
		callerID int64
		body     string
		wantCode int
	}{
		{name: "Other User", callerID: 2, body: `{"firstName":"X"}`, wantCode: http.StatusForbidden},
		{name: "Invalid Email", callerID: 5, body: `{"email":"nope"}`, wantCode: http.StatusBadRequest},
		{name: "Short Password", callerID: 5, body: `{"password":"abc"}`, wantCode: http.StatusBadRequest},
		{name: "Rename", callerID: 5, body: `{"firstName":"Alicia"}`, wantCode: http.StatusOK},
		{name: "Rotate Password", callerID: 5, body: `{"password":"new-password"}`, wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var updateArgs []any
			db := &MockDB{
				QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
					return &MockRow{ScanFunc: func(dest ...any) error {
						*dest[0].(*int64) = 5
						*dest[1].(*string) = "alice"
						*dest[2].(*string) = "Alice"
						*dest[3].(*string) = "Smith"
						*dest[4].(*string) = "a@b.com"
						*dest[5].(*string) = ""
						*dest[6].(*time.Time) = time.Now()
						*dest[7].(*string) = storedHash
						return nil
					}}
				},
				ExecFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
					updateArgs = args
					return pgconn.CommandTag{}, nil
				},
			}
			srv := newTestServer(db)

			req := httptest.NewRequest("PATCH", "/users/5", strings.NewReader(tt.body))
			setAuth(t, srv, req, tt.callerID)
			w := httptest.NewRecorder()
			srv.Router().ServeHTTP(w, req)

			require.Equal(t, tt.wantCode, w.Code, w.Body.String())
			assert.NotContains(t, w.Body.String(), storedHash)

			if tt.name == "Rotate Password" {
				// A new hash is written, not the plaintext and not the old hash.
				newHash := updateArgs[5].(string)
				assert.NotEqual(t, storedHash, newHash)
				assert.NotEqual(t, "new-password", newHash)
				assert.True(t, strings.HasPrefix(newHash, "$2"))
			}
			if tt.name == "Rename" {
				assert.Equal(t, "Alicia", updateArgs[1].(string))
				// Untouched fields keep their stored values.
				assert.Equal(t, storedHash, updateArgs[5].(string))
			}
		})
	}
}

func TestHandleDeleteUser(t *testing.T) {
	tests := []struct {
		name     string
		callerID int64
		exists   bool
		wantCode int
	}{
		{name: "Other User", callerID: 2, exists: true, wantCode: http.StatusForbidden},
		{name: "Not Found", callerID: 5, exists: false, wantCode: http.StatusNotFound},
		{name: "Self", callerID: 5, exists: true, wantCode: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &MockDB{
				QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
					return &MockRow{ScanFunc: func(dest ...any) error {
						if !tt.exists {
							return pgx.ErrNoRows
						}
						*dest[0].(*int64) = 5
						return nil
					}}
				},
			}
			srv := newTestServer(db)

			req := httptest.NewRequest("DELETE", "/users/5", nil)
			setAuth(t, srv, req, tt.callerID)
			w := httptest.NewRecorder()
			srv.Router().ServeHTTP(w, req)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
		})
	}
}
