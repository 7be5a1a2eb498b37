package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avioline/flight-seat-reservation/internal/config"
	"github.com/avioline/flight-seat-reservation/internal/repository"
	"github.com/avioline/flight-seat-reservation/internal/utils"
)

const selectUserByUsername = `SELECT id,username,email,password_hash,role,created_at,updated_at FROM users WHERE username=? LIMIT 1`

func newAuthHandler(t *testing.T) (*AuthHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{
		JWTSecret:      "test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 30,
		BcryptCost:     4, // bcrypt.MinCost keeps the test fast
	}
	return NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db)), mock
}

func doJSON(t *testing.T, h echo.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

func TestRegisterValidation(t *testing.T) {
	h, mock := newAuthHandler(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing fields", `{"username":"","email":"","password":""}`},
		{"no password", `{"username":"alice","email":"a@b.com"}`},
		{"bad email", `{"username":"alice","email":"not-an-email","password":"pw"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, h.Register, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet(), "validation failures must not hit the database")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'a@b.com' for key 'users.uq_users_email'"))

	rec := doJSON(t, h.Register, `{"username":"alice","email":"a@b.com","password":"pw"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "email already exists")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterIssuesTokenPair(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(uint64(7), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := doJSON(t, h.Register, `{"username":"alice","email":"A@B.com","password":"pw"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		User struct {
			ID       uint64 `json:"id"`
			Username string `json:"username"`
			Email    string `json:"email"`
			Role     string `json:"role"`
		} `json:"user"`
		Access  struct{ Token string } `json:"access"`
		Refresh struct{ Token string } `json:"refresh"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(7), resp.User.ID)
	assert.Equal(t, "a@b.com", resp.User.Email, "email is normalized to lower case")
	assert.Equal(t, "user", resp.User.Role, "registration never yields an admin")
	assert.NotEmpty(t, resp.Refresh.Token)

	sess, err := utils.ParseAccessToken("test-secret", resp.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.Username)
	assert.False(t, sess.IsAdmin())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func userRow(t *testing.T, password string) *sqlmock.Rows {
	t.Helper()
	hash, err := utils.HashPassword(password, 4)
	require.NoError(t, err)
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "role", "created_at", "updated_at"}).
		AddRow(3, "alice", "a@b.com", hash, "user", now, now)
}

func TestLoginSuccess(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectUserByUsername)).
		WithArgs("alice").
		WillReturnRows(userRow(t, "correct horse"))
	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := doJSON(t, h.Login, `{"username":"alice","password":"correct horse"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginWrongPassword(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectUserByUsername)).
		WithArgs("alice").
		WillReturnRows(userRow(t, "correct horse"))

	rec := doJSON(t, h.Login, `{"username":"alice","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid credentials")
}

func TestLoginUnknownUser(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectUserByUsername)).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	rec := doJSON(t, h.Login, `{"username":"ghost","password":"pw"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid credentials")
}

func TestRefreshRejectsUnknownToken(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectQuery(`SELECT user_id, expires_at, revoked_at FROM refresh_tokens`).
		WillReturnError(sql.ErrNoRows)

	rec := doJSON(t, h.Refresh, `{"refresh_token":"stale"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	h, mock := newAuthHandler(t)

	hash := utils.HashRefreshRaw("live-token")
	mock.ExpectQuery(`SELECT user_id, expires_at, revoked_at FROM refresh_tokens`).
		WithArgs(hash).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
			AddRow(3, time.Now().Add(time.Hour), nil))
	mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at=NOW\(\)`).
		WithArgs(hash).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := doJSON(t, h.Logout, `{"refresh_token":"live-token"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogoutMissingBody(t *testing.T) {
	h, _ := newAuthHandler(t)
	rec := doJSON(t, h.Logout, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
