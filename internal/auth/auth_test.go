package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/timesheet-invoicing/internal"
	"github.com/frahmantamala/timesheet-invoicing/internal/biller"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Suite")
}

const testSecret = "0123456789abcdef0123456789abcdef"

type mockBillers struct {
	billers map[int64]*biller.Biller
	err     error
}

func (m *mockBillers) GetActive(_ context.Context, id int64) (*biller.Biller, error) {
	if m.err != nil {
		return nil, m.err
	}
	b, ok := m.billers[id]
	if !ok {
		return nil, biller.ErrNotFound
	}
	if !b.IsActive {
		return nil, biller.ErrInactive
	}
	return b, nil
}

var _ = ginkgo.Describe("JWTTokenGenerator", func() {
	var gen *JWTTokenGenerator

	ginkgo.BeforeEach(func() {
		gen = NewJWTTokenGenerator(testSecret, "timesheet-invoicing", time.Hour)
	})

	ginkgo.It("round-trips identity claims", func() {
		token, err := gen.GenerateAccessToken(internal.Identity{UserID: 7, Email: "a@b.c", Role: internal.RoleWorker})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		claims, err := gen.ValidateToken(token)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(claims.Email).To(gomega.Equal("a@b.c"))
		uid, err := claims.BillerID()
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(uid).To(gomega.Equal(int64(7)))
	})

	ginkgo.It("reports expired tokens", func() {
		gen.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := gen.GenerateAccessToken(internal.Identity{UserID: 7})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		gen.now = time.Now
		_, err = gen.ValidateToken(token)
		gomega.Expect(errors.Is(err, ErrTokenExpired)).To(gomega.BeTrue())
	})

	ginkgo.It("rejects a token signed with another secret", func() {
		other := NewJWTTokenGenerator("another-secret-another-secret-xx", "timesheet-invoicing", time.Hour)
		token, err := other.GenerateAccessToken(internal.Identity{UserID: 7})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		_, err = gen.ValidateToken(token)
		gomega.Expect(errors.Is(err, ErrInvalidToken)).To(gomega.BeTrue())
	})

	ginkgo.It("rejects unsigned tokens", func() {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "7"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		_, err = gen.ValidateToken(token)
		gomega.Expect(errors.Is(err, ErrInvalidToken)).To(gomega.BeTrue())
	})

	ginkgo.It("rejects a foreign issuer", func() {
		other := NewJWTTokenGenerator(testSecret, "someone-else", time.Hour)
		token, err := other.GenerateAccessToken(internal.Identity{UserID: 7})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		_, err = gen.ValidateToken(token)
		gomega.Expect(errors.Is(err, ErrInvalidToken)).To(gomega.BeTrue())
	})
})

var _ = ginkgo.Describe("Middleware", func() {
	var (
		gen     *JWTTokenGenerator
		billers *mockBillers
		handler *Handler
		seen    *internal.Identity
		next    http.Handler
	)

	ginkgo.BeforeEach(func() {
		gen = NewJWTTokenGenerator(testSecret, "", time.Hour)
		billers = &mockBillers{billers: map[int64]*biller.Biller{
			1: {ID: 1, Email: "admin@example.com", Role: internal.RoleAdmin, IsActive: true},
			2: {ID: 2, Email: "worker@example.com", Role: internal.RoleWorker, IsActive: true},
			3: {ID: 3, Email: "gone@example.com", Role: internal.RoleWorker, IsActive: false},
		}}
		handler = NewHandler(NewService(gen, billers, slog.New(slog.NewTextHandler(io.Discard, nil))))
		seen = nil
		next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = internal.IdentityFromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		})
	})

	request := func(h http.Handler, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	tokenFor := func(id int64, role string) string {
		token, err := gen.GenerateAccessToken(internal.Identity{UserID: id, Role: role})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		return token
	}

	ginkgo.It("requires a bearer token", func() {
		rec := request(handler.AuthMiddleware(next), "")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(seen).To(gomega.BeNil())
	})

	ginkgo.It("takes the role from the stored biller", func() {
		rec := request(handler.AuthMiddleware(next), tokenFor(2, internal.RoleAdmin))
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNoContent))
		gomega.Expect(seen).NotTo(gomega.BeNil())
		gomega.Expect(seen.UserID).To(gomega.Equal(int64(2)))
		gomega.Expect(seen.Role).To(gomega.Equal(internal.RoleWorker))
	})

	ginkgo.It("rejects unknown billers", func() {
		rec := request(handler.AuthMiddleware(next), tokenFor(99, internal.RoleWorker))
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))

		var body map[string]map[string]interface{}
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(gomega.Succeed())
		gomega.Expect(body["error"]["code"]).To(gomega.Equal(string(internal.ErrCodeInvalidToken)))
	})

	ginkgo.It("rejects inactive billers", func() {
		rec := request(handler.AuthMiddleware(next), tokenFor(3, internal.RoleWorker))
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
	})

	ginkgo.It("lets admins through RequireAdmin", func() {
		rec := request(handler.AuthMiddleware(handler.RequireAdmin(next)), tokenFor(1, internal.RoleAdmin))
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNoContent))
	})

	ginkgo.It("stops workers at RequireAdmin", func() {
		rec := request(handler.AuthMiddleware(handler.RequireAdmin(next)), tokenFor(2, internal.RoleWorker))
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
		gomega.Expect(seen).To(gomega.BeNil())
	})
})
