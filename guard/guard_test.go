package guard_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/rewine-client/guard"
	"github.com/jrsteele09/rewine-client/users"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	user *users.User
}

func (f *fakeSession) IsAuthenticated() bool { return f.user != nil }

func (f *fakeSession) HasAnyRole(roles ...users.RoleType) bool { return f.user.HasAnyRole(roles...) }

func member() *fakeSession {
	return &fakeSession{user: &users.User{ID: "u-1", Roles: []users.RoleType{users.RoleUser}}}
}

func admin() *fakeSession {
	return &fakeSession{user: &users.User{ID: "u-2", Roles: []users.RoleType{users.RoleAdmin}}}
}

func TestGuard_Check(t *testing.T) {
	adminOnly := guard.Requirement{RequiresAuth: true, AllowedRoles: []users.RoleType{users.RoleAdmin}}

	tests := []struct {
		name     string
		session  *fakeSession
		nav      guard.Navigation
		outcome  guard.Outcome
		location string
	}{
		{"guest only while signed in", member(), guard.Navigation{Path: "/login", Requirement: guard.Requirement{GuestOnly: true}}, guard.RedirectHome, "/"},
		{"guest only while anonymous", &fakeSession{}, guard.Navigation{Path: "/login", Requirement: guard.Requirement{GuestOnly: true}}, guard.Allow, ""},
		{"public", &fakeSession{}, guard.Navigation{Path: "/wines"}, guard.Allow, ""},
		{"auth required while anonymous", &fakeSession{}, guard.Navigation{Path: "/cellar", Requirement: guard.Requirement{RequiresAuth: true}}, guard.RedirectLogin, "/login?returnUrl=%2Fcellar"},
		{"auth required while signed in", member(), guard.Navigation{Path: "/cellar", Requirement: guard.Requirement{RequiresAuth: true}}, guard.Allow, ""},
		{"role missing", member(), guard.Navigation{Path: "/admin", Requirement: adminOnly}, guard.RedirectForbidden, "/forbidden"},
		{"role missing while anonymous", &fakeSession{}, guard.Navigation{Path: "/admin", Requirement: adminOnly}, guard.RedirectLogin, "/login?returnUrl=%2Fadmin"},
		{"role present", admin(), guard.Navigation{Path: "/admin", Requirement: adminOnly}, guard.Allow, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := guard.New(tt.session).Check(tt.nav)
			require.Equal(t, tt.outcome, d.Outcome)
			require.Equal(t, tt.location, d.Location)
		})
	}
}

func TestGuard_ForbiddenNotLoginForSignedInNonAdmin(t *testing.T) {
	g := guard.New(member())
	d := g.Check(guard.Navigation{
		Path: "/admin/users",
		Requirement: guard.Requirement{
			GuestOnly:    false,
			RequiresAuth: true,
			AllowedRoles: []users.RoleType{users.RoleAdmin},
		},
	})
	require.Equal(t, guard.RedirectForbidden, d.Outcome)
	require.NotEqual(t, guard.RedirectLogin, d.Outcome)
}

func TestGuard_SimpleVariantRedirectsHome(t *testing.T) {
	g := guard.New(member(), guard.WithPaths("/", "/signin", "/"), guard.WithReturnParam("next"))

	d := g.Check(guard.Navigation{Path: "/admin", Requirement: guard.Requirement{RequiresAuth: true, AllowedRoles: []users.RoleType{users.RoleAdmin}}})
	require.Equal(t, "/", d.Location)

	anon := guard.New(&fakeSession{}, guard.WithPaths("", "/signin", ""), guard.WithReturnParam("next"))
	d = anon.Check(guard.Navigation{Path: "/cellar", Requirement: guard.Requirement{RequiresAuth: true}})
	require.Equal(t, "/signin?next=%2Fcellar", d.Location)
}

func TestRouter_Match(t *testing.T) {
	r := guard.NewRouter(guard.New(&fakeSession{}), guard.DefaultRoutes())

	tests := map[string]string{
		"/":              "home",
		"/wines":         "wines",
		"/wines/compare": "wine-compare",
		"/wines/42":      "wine-details",
		"/cellar?tab=2":  "cellar",
		"/admin":         "admin",
		"/admin/users":   "admin-section",
		"/no/such/page":  "not-found",
	}
	for path, name := range tests {
		route, ok := r.Match(path)
		require.True(t, ok, path)
		require.Equal(t, name, route.Name, path)
	}
}

func TestRouter_Navigate(t *testing.T) {
	t.Run("anonymous to protected lands on login", func(t *testing.T) {
		var changes []string
		r := guard.NewRouter(guard.New(&fakeSession{}), guard.DefaultRoutes(), guard.OnChange(func(_, to string) {
			changes = append(changes, to)
		}))
		loc, err := r.Navigate("/cellar")
		require.NoError(t, err)
		require.Equal(t, "/login?returnUrl=%2Fcellar", loc)
		require.Equal(t, loc, r.Current())
		require.Equal(t, []string{loc}, changes)
	})

	t.Run("signed in user bounced off login", func(t *testing.T) {
		r := guard.NewRouter(guard.New(member()), guard.DefaultRoutes(), guard.WithInitialLocation("/wines"))
		loc, err := r.Navigate("/register")
		require.NoError(t, err)
		require.Equal(t, "/", loc)
	})

	t.Run("non admin sent to forbidden", func(t *testing.T) {
		r := guard.NewRouter(guard.New(member()), guard.DefaultRoutes())
		loc, err := r.Navigate("/admin/wines")
		require.NoError(t, err)
		require.Equal(t, "/forbidden", loc)
	})

	t.Run("redirect loop is bounded", func(t *testing.T) {
		routes := []guard.Route{
			{Name: "forbidden", Pattern: "/forbidden", Requirement: guard.Requirement{RequiresAuth: true, AllowedRoles: []users.RoleType{users.RoleAdmin}}},
			{Name: "admin", Pattern: "/admin", Requirement: guard.Requirement{RequiresAuth: true, AllowedRoles: []users.RoleType{users.RoleAdmin}}},
		}
		r := guard.NewRouter(guard.New(member()), routes, guard.WithMaxRedirects(3), guard.WithInitialLocation("/wines"))
		loc, err := r.Navigate("/admin")
		require.ErrorIs(t, err, guard.ErrTooManyRedirects)
		require.Equal(t, "/wines", loc)
	})
}

func TestRouter_RefreshAfterSessionChange(t *testing.T) {
	s := member()
	r := guard.NewRouter(guard.New(s), guard.DefaultRoutes())
	_, err := r.Navigate("/cellar")
	require.NoError(t, err)

	s.user = nil
	loc, err := r.Refresh()
	require.NoError(t, err)
	require.Equal(t, "/login?returnUrl=%2Fcellar", loc)
}

func TestMiddleware(t *testing.T) {
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

	t.Run("requirement middleware", func(t *testing.T) {
		h := guard.New(&fakeSession{}).RequireRoute(guard.Requirement{RequiresAuth: true})(ok)
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/cellar?tab=2", nil))
		require.Equal(t, http.StatusSeeOther, w.Code)
		require.Equal(t, "/login?returnUrl=%2Fcellar%3Ftab%3D2", w.Header().Get("Location"))
	})

	t.Run("route table handler", func(t *testing.T) {
		r := guard.NewRouter(guard.New(member()), guard.DefaultRoutes())
		h := r.Handler(http.HandlerFunc(ok))

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
		require.Equal(t, http.StatusSeeOther, w.Code)
		require.Equal(t, "/forbidden", w.Header().Get("Location"))

		w = httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cellar", nil))
		require.Equal(t, http.StatusOK, w.Code)
	})
}
