package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/nearmi/localhunt-backend/config"
	"github.com/nearmi/localhunt-backend/internal/app/model"
	"github.com/nearmi/localhunt-backend/internal/app/repository"
	"github.com/nearmi/localhunt-backend/internal/db"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testSearchConfig = config.SearchConfig{DefaultLimit: 50, MaxLimit: 100}

type testEnv struct {
	db         *gorm.DB
	userRepo   repository.UserRepository
	vendorRepo repository.VendorRepository
	reviewRepo repository.ReviewRepository
	chatRepo   repository.ChatRepository
	ratings    RatingService
}

func setupServiceTest(t *testing.T) *testEnv {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	env := &testEnv{
		db:         testDB,
		userRepo:   repository.NewUserRepository(testDB),
		vendorRepo: repository.NewVendorRepository(testDB),
		reviewRepo: repository.NewReviewRepository(testDB),
		chatRepo:   repository.NewChatRepository(testDB),
	}
	env.ratings = NewRatingService(env.vendorRepo)
	return env
}

func (e *testEnv) createUser(t *testing.T, name string, role model.UserRole) *model.User {
	user := &model.User{
		Email:        fmt.Sprintf("%s@example.com", name),
		PasswordHash: "not-a-real-hash",
		Name:         name,
		Role:         role,
	}
	require.NoError(t, e.userRepo.Create(context.Background(), user))
	return user
}

// createVendor stores an approved vendor owned by ownerID with derived
// fields filled in the same way registration does.
func (e *testEnv) createVendor(t *testing.T, ownerID uint, input VendorInput) *model.Vendor {
	vendor, err := vendorFromInput(input)
	require.NoError(t, err)
	vendor.UserID = ownerID
	vendor.Status = model.VendorStatusApproved
	require.NoError(t, e.vendorRepo.Create(context.Background(), vendor))
	return vendor
}

func (e *testEnv) reloadVendor(t *testing.T, id string) *model.Vendor {
	vendor, err := e.vendorRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return vendor
}

func floatPtr(f float64) *float64 { return &f }
func strPtr(s string) *string     { return &s }
func intPtr(i int) *int           { return &i }
func boolPtr(b bool) *bool        { return &b }
