package docstore

import (
	"errors"
	"testing"
	"time"

	"github.com/nearmi/localhunt-backend/internal/app/model"
	"github.com/nearmi/localhunt-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"not found", status.Error(codes.NotFound, "no document"), repository.ErrNotFound},
		{"already exists", status.Error(codes.AlreadyExists, "exists"), repository.ErrDuplicate},
		{"aborted after retries", status.Error(codes.Aborted, "contention"), repository.ErrConflict},
		{"sentinel passes through", repository.ErrDuplicate, repository.ErrDuplicate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, translateError(tt.err), tt.want)
		})
	}

	assert.NoError(t, translateError(nil))

	other := errors.New("boom")
	assert.Equal(t, other, translateError(other))
}

func TestProfileUpdates_SkipsAggregates(t *testing.T) {
	updates := profileUpdates(&model.Vendor{BusinessName: "Ravi"})

	paths := make(map[string]bool, len(updates))
	for _, u := range updates {
		paths[u.Path] = true
	}

	assert.True(t, paths["businessName"])
	assert.True(t, paths["_searchKeywords"])
	assert.True(t, paths["location"])
	for _, protected := range []string{"status", "isVerified", "averageRating", "totalReviews", "profileViews", "searchImpressions", "userId"} {
		assert.False(t, paths[protected], protected)
	}
}

func TestVendorSortFields_CoverWhitelist(t *testing.T) {
	for _, f := range []repository.VendorSortField{
		repository.SortByAverageRating,
		repository.SortByTotalReviews,
		repository.SortByProfileViews,
		repository.SortBySearchImpressions,
		repository.SortByCreatedAt,
		repository.SortByBusinessName,
	} {
		assert.True(t, f.IsValid())
		assert.NotEmpty(t, vendorSortFields[f])
	}
}

func TestToVendorDoc_CarriesOwner(t *testing.T) {
	doc := toVendorDoc(&model.Vendor{ID: "v1", UserID: 42, BusinessName: "Ravi"})

	assert.EqualValues(t, 42, doc.OwnerID)
	assert.Equal(t, "Ravi", doc.BusinessName)
}

func TestToVendorDoc_StampsUnsetTimes(t *testing.T) {
	before := time.Now().UTC()
	vendor := &model.Vendor{ID: "v1", UserID: 42}
	doc := toVendorDoc(vendor)

	require.False(t, doc.CreatedAt.IsZero())
	assert.False(t, doc.CreatedAt.Before(before))
	assert.Equal(t, doc.CreatedAt, doc.UpdatedAt)
	assert.Equal(t, doc.CreatedAt, vendor.CreatedAt)
	assert.Equal(t, doc.UpdatedAt, vendor.UpdatedAt)
}

func TestToReviewDoc_KeepsExistingTimes(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	doc := toReviewDoc(&model.Review{ID: "r1", UserID: 7, CreatedAt: created, UpdatedAt: updated})
	assert.Equal(t, created, doc.CreatedAt)
	assert.Equal(t, updated, doc.UpdatedAt)
	assert.EqualValues(t, 7, doc.AuthorID)

	doc = toReviewDoc(&model.Review{ID: "r2", CreatedAt: created})
	assert.Equal(t, created, doc.UpdatedAt)

	fresh := &model.Review{ID: "r3"}
	doc = toReviewDoc(fresh)
	require.False(t, doc.CreatedAt.IsZero())
	assert.Equal(t, doc.CreatedAt, fresh.CreatedAt)
}
