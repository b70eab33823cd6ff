package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	sessionDomain "github.com/allisson/authd/internal/session/domain"
	tenantDomain "github.com/allisson/authd/internal/tenant/domain"
)

// testLogger returns a logger that discards output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// createFormContext builds a gin test context carrying a form-encoded body.
func createFormContext(method, path string, form url.Values) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.Request = req

	return c, w
}

// createQueryContext builds a gin test context for a GET request.
func createQueryContext(path string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, path, nil)

	return c, w
}

// attachTenant puts a resolved tenant on the request context.
func attachTenant(c *gin.Context, tenantID uuid.UUID) {
	c.Request = c.Request.WithContext(WithTenant(c.Request.Context(), tenantID))
}

// attachSession puts an authenticated session on the request context.
func attachSession(c *gin.Context, session *sessionDomain.Session) {
	c.Request = c.Request.WithContext(WithSession(c.Request.Context(), session))
}

// mockTenantRepository is a mock implementation of TenantRepository for
// resolver-backed middleware tests.
type mockTenantRepository struct {
	mock.Mock
}

func (m *mockTenantRepository) Create(ctx context.Context, tenant *tenantDomain.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *mockTenantRepository) Get(ctx context.Context, tenantID uuid.UUID) (*tenantDomain.Tenant, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenantDomain.Tenant), args.Error(1)
}

func (m *mockTenantRepository) GetByDomain(ctx context.Context, domain string) (*tenantDomain.Tenant, error) {
	args := m.Called(ctx, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenantDomain.Tenant), args.Error(1)
}

func (m *mockTenantRepository) SetActive(ctx context.Context, tenantID uuid.UUID, isActive bool) error {
	args := m.Called(ctx, tenantID, isActive)
	return args.Error(0)
}
