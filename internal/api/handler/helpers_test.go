package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/dealflow/internal/tenant"
	"github.com/stretchr/testify/require"
)

var (
	orgA = uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
	orgB = uuid.MustParse("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb")
)

var testPager = Pager{DefaultPerPage: 10, MaxPerPage: 50}

func staffPrincipal() *tenant.Principal {
	return &tenant.Principal{UserID: uuid.New(), OrganizationID: orgA, Roles: []string{"staff"}}
}

func superAdmin() *tenant.Principal {
	return &tenant.Principal{UserID: uuid.New(), SuperAdmin: true, Roles: []string{"super_admin"}}
}

// newRequest builds a request carrying p and the given chi URL params
// (name, value pairs).
func newRequest(t *testing.T, method, target string, body any, p *tenant.Principal, params ...string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")

	ctx := r.Context()
	if p != nil {
		ctx = tenant.WithPrincipal(ctx, p)
	}
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(params); i += 2 {
		rctx.URLParams.Add(params[i], params[i+1])
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
	Error   struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func serve(t *testing.T, h http.HandlerFunc, r *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, r)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func fieldErrorsOf(env envelope) map[string]any {
	fe, _ := env.Error.Details["field_errors"].(map[string]any)
	return fe
}
