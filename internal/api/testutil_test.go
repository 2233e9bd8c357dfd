package api

import (
	"net/http"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestServer(db DB) *Server {
	return NewServer(db, nil, nil, Config{
		JWTSecret:  []byte("test-secret"),
		BcryptCost: bcrypt.MinCost,
	})
}

// setAuth attaches a valid bearer token for the given user id.
func setAuth(t *testing.T, s *Server, r *http.Request, userID int64) {
	t.Helper()
	token, err := s.issueToken(User{ID: userID, Username: "tester"})
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}
	r.Header.Set("Authorization", "Bearer "+token)
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}
