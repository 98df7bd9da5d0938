package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xelth-com/iditgo/internal/errs"
	"github.com/xelth-com/iditgo/internal/metrics"
	"github.com/xelth-com/iditgo/internal/models"
	"github.com/xelth-com/iditgo/internal/utils"
)

const secret = "middleware-secret"

type fakeUsers map[string]*models.User

func (f fakeUsers) ActiveUser(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f[id]; ok && u.IsActive {
		return u, nil
	}
	return nil, errs.Authentication("user session invalid, please log in again")
}

func token(t *testing.T, u *models.User) string {
	t.Helper()
	tok, _, err := utils.GenerateToken(u, secret, time.Hour, time.Now())
	require.NoError(t, err)
	return "Bearer " + tok
}

func echoSubject(w http.ResponseWriter, r *http.Request) {
	c, ok := ClaimsFrom(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	w.Write([]byte(c.UserID))
}

func TestAuth(t *testing.T) {
	h := Auth(secret)(http.HandlerFunc(echoSubject))
	anna := &models.User{ID: "u-anna", Name: "Anna", Role: models.RoleStaff, IsActive: true}

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"malformed", "Token abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
		{"valid", token(t, anna), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/inventory", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, "u-anna", rec.Body.String())
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	admin := &models.User{ID: "u-admin", Role: models.RoleAdmin, IsActive: true}
	staff := &models.User{ID: "u-staff", Role: models.RoleStaff, IsActive: true}
	gone := &models.User{ID: "u-gone", Role: models.RoleAdmin, IsActive: false}
	users := fakeUsers{admin.ID: admin, staff.ID: staff, gone.ID: gone}

	h := Auth(secret)(RequireAdmin(users)(http.HandlerFunc(echoSubject)))
	for user, want := range map[*models.User]int{
		admin: http.StatusOK,
		staff: http.StatusForbidden,
		gone:  http.StatusUnauthorized,
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req.Header.Set("Authorization", token(t, user))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, user.ID)
	}

	// a token issued before a demotion no longer passes
	staffToken := token(t, &models.User{ID: staff.ID, Role: models.RoleAdmin})
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", staffToken)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCaseInsensitive(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/l/{id}", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(mux.Vars(req)["id"]))
	})
	h := CaseInsensitiveMiddleware(r)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/L/3F2A-BC", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3f2a-bc", rec.Body.String())
}

func TestRequestMetrics(t *testing.T) {
	m := metrics.New()
	r := mux.NewRouter()
	r.Use(RequestMetrics(m))
	r.HandleFunc("/api/locations/{id}", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/locations/abc", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	count, err := testutil.GatherAndCount(m.Registry(), "idit_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
