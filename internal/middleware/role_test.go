package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/cinema-ticketing/internal/apperr"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/policy"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

func guarded(mw echo.MiddlewareFunc, claims *service.Claims) error {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if claims != nil {
		c.Set(claimsKey, claims)
	}
	return mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
}

func TestRequirePermission(t *testing.T) {
	table := policy.Default()
	admin := &service.Claims{UserID: 1, Role: model.RoleAdmin}
	user := &service.Claims{UserID: 2, Role: model.RoleUser}
	stranger := &service.Claims{UserID: 3, Role: "guest"}

	tests := []struct {
		name   string
		perm   policy.Permission
		claims *service.Claims
		want   apperr.Kind
		ok     bool
	}{
		{"admin lists screenings", policy.ListScreenings, admin, 0, true},
		{"user books", policy.CreateBooking, user, 0, true},
		{"user cannot list screenings", policy.ListScreenings, user, apperr.KindForbidden, false},
		{"unknown role holds nothing", policy.CreateBooking, stranger, apperr.KindForbidden, false},
		{"anonymous fails closed", policy.CreateBooking, nil, apperr.KindUnauthorized, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guarded(RequirePermission(table, tt.perm), tt.claims)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.want, apperr.KindOf(err))
		})
	}
}

func TestRequirePermission_DeniedMessageNamesRole(t *testing.T) {
	err := guarded(RequirePermission(policy.Default(), policy.ManageCatalog), &service.Claims{Role: model.RoleUser})
	assert.Equal(t, "Access Denied For user Role", apperr.MessageOf(err))
}

func TestRequireRole(t *testing.T) {
	mw := RequireRole(model.RoleAdmin)
	assert.NoError(t, guarded(mw, &service.Claims{Role: model.RoleAdmin}))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(guarded(mw, &service.Claims{Role: model.RoleUser})))
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(guarded(mw, nil)))
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(guarded(RequireAuth(), nil)))
}
