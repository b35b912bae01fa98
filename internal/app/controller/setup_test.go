package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nearmi/localhunt-backend/config"
	"github.com/nearmi/localhunt-backend/internal/app/model"
	"github.com/nearmi/localhunt-backend/internal/app/repository"
	"github.com/nearmi/localhunt-backend/internal/app/service"
	"github.com/nearmi/localhunt-backend/internal/db"
	"github.com/nearmi/localhunt-backend/internal/middleware"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "controller-test-secret"

type testServer struct {
	t       *testing.T
	db      *gorm.DB
	router  *gin.Engine
	auth    service.AuthService
	vendors service.VendorService
}

func setupControllerTest(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	userRepo := repository.NewUserRepository(testDB)
	vendorRepo := repository.NewVendorRepository(testDB)
	reviewRepo := repository.NewReviewRepository(testDB)
	chatRepo := repository.NewChatRepository(testDB)

	authService := service.NewAuthService(userRepo, nil, testJWTSecret, 15*time.Minute, 24*time.Hour)
	ratingService := service.NewRatingService(vendorRepo)
	vendorService := service.NewVendorService(vendorRepo, reviewRepo, userRepo, nil, nil, nil,
		config.SearchConfig{DefaultLimit: 50, MaxLimit: 100})
	reviewService := service.NewReviewService(reviewRepo, vendorRepo, ratingService)
	chatService := service.NewChatService(chatRepo, vendorRepo, nil)

	authCtrl := NewAuthController(authService)
	vendorCtrl := NewVendorController(vendorService, config.UploadConfig{MaxImageBytes: 1 << 20, TempDir: t.TempDir()})
	reviewCtrl := NewReviewController(reviewService, authService)
	chatCtrl := NewChatController(chatService, nil, []string{"*"})
	adminCtrl := NewAdminController(vendorService, reviewService, ratingService)

	mw := middleware.NewAuthMiddleware(testJWTSecret, authService)
	authRequired := mw.Authenticate()

	r := gin.New()
	r.POST("/auth/register", authCtrl.Register)
	r.POST("/auth/login", authCtrl.Login)
	r.POST("/auth/refresh", authCtrl.Refresh)
	r.GET("/auth/me", authRequired, authCtrl.GetMe)
	r.PUT("/auth/me", authRequired, authCtrl.UpdateMe)

	r.GET("/vendors", vendorCtrl.QueryVendors)
	r.GET("/vendors/me", authRequired, vendorCtrl.ListMyVendors)
	r.GET("/vendors/:id", mw.OptionalAuthenticate(), vendorCtrl.GetVendor)
	r.POST("/vendors", authRequired, vendorCtrl.RegisterVendor)
	r.PATCH("/vendors/:id", authRequired, vendorCtrl.UpdateVendor)
	r.GET("/vendors/:id/stats", authRequired, vendorCtrl.GetVendorStats)
	r.GET("/vendors/:id/reviews", reviewCtrl.ListVendorReviews)
	r.POST("/vendors/:id/reviews", authRequired, reviewCtrl.CreateReview)

	r.POST("/reviews/:id/report", authRequired, reviewCtrl.ReportReview)
	r.DELETE("/reviews/:id", authRequired, reviewCtrl.DeleteReview)

	r.POST("/chats/conversations", authRequired, chatCtrl.StartConversation)
	r.POST("/chats/conversations/:id/messages", authRequired, chatCtrl.SendMessage)
	r.GET("/chats/conversations/:id/messages", authRequired, chatCtrl.ListMessages)

	admin := r.Group("/admin", authRequired, mw.RequireRole(model.RoleAdmin))
	admin.PATCH("/vendors/:id/status", adminCtrl.UpdateVendorStatus)
	admin.POST("/vendors/import", adminCtrl.ImportVendors)
	admin.POST("/ratings/recompute", adminCtrl.RecomputeAllRatings)
	admin.PATCH("/reviews/:id/status", adminCtrl.UpdateReviewStatus)

	return &testServer{t: t, db: testDB, router: r, auth: authService, vendors: vendorService}
}

// signup registers a user and returns its id and access token. Admins are
// promoted in the database and logged in again so the token carries the role.
func (s *testServer) signup(name string, role model.UserRole) (uint, string) {
	s.t.Helper()
	ctx := context.Background()
	email := name + "@example.com"

	user, tokens, err := s.auth.Register(ctx, email, "password123", name, "")
	require.NoError(s.t, err)

	if role != model.RoleUser {
		require.NoError(s.t, s.db.Model(&model.User{}).Where("id = ?", user.ID).Update("role", role).Error)
		_, tokens, err = s.auth.Login(ctx, email, "password123")
		require.NoError(s.t, err)
	}
	return user.ID, tokens.AccessToken
}

// approvedVendor registers a vendor for ownerID and approves it.
func (s *testServer) approvedVendor(ownerID uint, name, category, colony string) *model.Vendor {
	s.t.Helper()
	ctx := context.Background()
	vendor, err := s.vendors.RegisterVendor(ctx, ownerID, model.RoleUser, service.VendorInput{
		BusinessName: name,
		Category:     category,
		Address:      model.Address{Colony: colony, City: "Mumbai"},
	})
	require.NoError(s.t, err)
	require.NoError(s.t, s.vendors.UpdateVendorStatus(ctx, vendor.ID, string(model.VendorStatusApproved)))
	return vendor
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(b)
	}
	return s.send(method, path, token, "application/json", reader)
}

func (s *testServer) send(method, path, token, contentType string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorCodeOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	code, _ := decode(t, w)["error"].(string)
	return code
}


func adminViewer() service.Viewer {
	return service.Viewer{Role: model.RoleAdmin}
}
