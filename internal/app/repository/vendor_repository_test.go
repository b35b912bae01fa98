package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/nearmi/localhunt-backend/internal/app/model"
	"github.com/nearmi/localhunt-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupVendorTest(t *testing.T) (*gorm.DB, VendorRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)

	return testDB, NewVendorRepository(testDB)
}

func newTestVendor(name string, status model.VendorStatus) *model.Vendor {
	return &model.Vendor{
		ID:           uuid.NewString(),
		UserID:       1,
		BusinessName: name,
		Category:     "Electrician",
		Status:       status,
		Address:      model.Address{City: "Hyderabad", Colony: "Ameerpet"},
		Location:     model.Location{Latitude: 17.43, Longitude: 78.44, Geohash: "tdr1vs200"},
	}
}

func TestVendorRepository_CreateAndFind(t *testing.T) {
	testDB, repo := setupVendorTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	vendor := newTestVendor("Ravi Electricals", model.VendorStatusPending)
	vendor.SearchKeywords = []string{"ravi", "electricals"}
	vendor.Services = model.ServiceList{{Name: "Wiring", Price: 500}}
	vendor.OperatingHours = model.OperatingHours{"monday": "09:00 AM - 06:00 PM", "sunday": "Closed"}
	require.NoError(t, repo.Create(ctx, vendor))

	found, err := repo.FindByID(ctx, vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ravi Electricals", found.BusinessName)
	assert.Equal(t, model.VendorStatusPending, found.Status)
	assert.ElementsMatch(t, []string{"ravi", "electricals"}, []string(found.SearchKeywords))
	assert.Equal(t, "Wiring", found.Services[0].Name)
	assert.Equal(t, "Closed", found.OperatingHours["sunday"])
	assert.Equal(t, "tdr1vs200", found.Location.Geohash)

	var rows int64
	require.NoError(t, testDB.Model(&model.VendorKeyword{}).Where("vendor_id = ?", vendor.ID).Count(&rows).Error)
	assert.EqualValues(t, 2, rows)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVendorRepository_UpdateKeepsAggregates(t *testing.T) {
	testDB, repo := setupVendorTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	vendor := newTestVendor("Old Name", model.VendorStatusApproved)
	vendor.SearchKeywords = []string{"old", "name"}
	require.NoError(t, repo.Create(ctx, vendor))
	_, err := repo.UpdateRating(ctx, vendor.ID, func(model.RatingSummary) model.RatingSummary {
		return model.RatingSummary{AverageRating: 4.5, TotalReviews: 2}
	})
	require.NoError(t, err)

	// stale copy carries zero aggregates and a pending status
	stale := *vendor
	stale.BusinessName = "New Name"
	stale.Status = model.VendorStatusPending
	stale.SearchKeywords = []string{"new", "name"}
	require.NoError(t, repo.Update(ctx, &stale))

	found, err := repo.FindByID(ctx, vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Name", found.BusinessName)
	assert.Equal(t, model.VendorStatusApproved, found.Status)
	assert.Equal(t, 4.5, found.AverageRating)
	assert.Equal(t, 2, found.TotalReviews)

	var keywords []string
	require.NoError(t, testDB.Model(&model.VendorKeyword{}).Where("vendor_id = ?", vendor.ID).Pluck("keyword", &keywords).Error)
	assert.ElementsMatch(t, []string{"new", "name"}, keywords)

	missing := newTestVendor("Ghost", model.VendorStatusApproved)
	assert.ErrorIs(t, repo.Update(ctx, missing), ErrNotFound)
}

func TestVendorRepository_FindApproved_StatusAlwaysApplied(t *testing.T) {
	testDB, repo := setupVendorTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	for _, status := range []model.VendorStatus{
		model.VendorStatusApproved,
		model.VendorStatusPending,
		model.VendorStatusSuspended,
		model.VendorStatusRejected,
	} {
		v := newTestVendor(string(status), status)
		v.SearchKeywords = []string{"electrician"}
		require.NoError(t, repo.Create(ctx, v))
	}

	filters := []VendorFilter{
		{},
		{Keywords: []string{"electrician"}},
		{Geo: &GeohashRange{Start: "tdr1v", End: "tdr1v~"}},
		{Category: "Electrician", Colony: "Ameerpet"},
	}
	for i, filter := range filters {
		t.Run(fmt.Sprintf("filter %d", i), func(t *testing.T) {
			vendors, err := repo.FindApproved(ctx, filter)
			require.NoError(t, err)
			require.Len(t, vendors, 1)
			assert.Equal(t, model.VendorStatusApproved, vendors[0].Status)
		})
	}
}

func TestVendorRepository_FindApproved_Filters(t *testing.T) {
	testDB, repo := setupVendorTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	inCell := newTestVendor("In Cell", model.VendorStatusApproved)
	inCell.Location.Geohash = "tdr1vs200"
	inCell.SearchKeywords = []string{"electrician", "hyderabad"}
	inCell.IsOpen = true
	require.NoError(t, repo.Create(ctx, inCell))

	nextCell := newTestVendor("Next Cell", model.VendorStatusApproved)
	nextCell.Location.Geohash = "tdr1w0000"
	nextCell.SearchKeywords = []string{"plumber"}
	nextCell.Category = "Plumber"
	nextCell.Address.Colony = "Kukatpally"
	require.NoError(t, repo.Create(ctx, nextCell))

	open := true
	closed := false
	tests := []struct {
		name   string
		filter VendorFilter
		want   []string
	}{
		{"geo prefix", VendorFilter{Geo: &GeohashRange{Start: "tdr1v", End: "tdr1v~"}}, []string{"In Cell"}},
		{"keyword hit", VendorFilter{Keywords: []string{"good", "electrician", "near", "me"}}, []string{"In Cell"}},
		{"keyword miss", VendorFilter{Keywords: []string{"carpenter"}}, nil},
		{"keyword any", VendorFilter{Keywords: []string{"plumber", "hyderabad"}}, []string{"In Cell", "Next Cell"}},
		{"category", VendorFilter{Category: "Plumber"}, []string{"Next Cell"}},
		{"colony", VendorFilter{Colony: "Ameerpet"}, []string{"In Cell"}},
		{"open", VendorFilter{IsOpen: &open}, []string{"In Cell"}},
		{"closed", VendorFilter{IsOpen: &closed}, []string{"Next Cell"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vendors, err := repo.FindApproved(ctx, tt.filter)
			require.NoError(t, err)

			var names []string
			for _, v := range vendors {
				names = append(names, v.BusinessName)
			}
			assert.ElementsMatch(t, tt.want, names)
		})
	}
}

func TestVendorRepository_FindApproved_SortAndLimit(t *testing.T) {
	testDB, repo := setupVendorTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	for i, rating := range []float64{3.5, 4.8, 1.2} {
		v := newTestVendor(fmt.Sprintf("Vendor %c", 'A'+i), model.VendorStatusApproved)
		require.NoError(t, repo.Create(ctx, v))
		_, err := repo.UpdateRating(ctx, v.ID, func(model.RatingSummary) model.RatingSummary {
			return model.RatingSummary{AverageRating: rating, TotalReviews: 1}
		})
		require.NoError(t, err)
	}

	vendors, err := repo.FindApproved(ctx, VendorFilter{SortBy: SortByAverageRating, SortDesc: true})
	require.NoError(t, err)
	require.Len(t, vendors, 3)
	assert.Equal(t, []float64{4.8, 3.5, 1.2}, []float64{vendors[0].AverageRating, vendors[1].AverageRating, vendors[2].AverageRating})

	vendors, err = repo.FindApproved(ctx, VendorFilter{SortBy: SortByBusinessName, Limit: 2})
	require.NoError(t, err)
	require.Len(t, vendors, 2)
	assert.Equal(t, "Vendor A", vendors[0].BusinessName)
	assert.Equal(t, "Vendor B", vendors[1].BusinessName)
}

func TestVendorRepository_UpdateRating(t *testing.T) {
	testDB, repo := setupVendorTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	vendor := newTestVendor("Rated", model.VendorStatusApproved)
	require.NoError(t, repo.Create(ctx, vendor))

	var seen model.RatingSummary
	next, err := repo.UpdateRating(ctx, vendor.ID, func(current model.RatingSummary) model.RatingSummary {
		seen = current
		return model.RatingSummary{AverageRating: 4, TotalReviews: 1}
	})
	require.NoError(t, err)
	assert.Equal(t, model.RatingSummary{}, seen)
	assert.Equal(t, model.RatingSummary{AverageRating: 4, TotalReviews: 1}, next)

	found, err := repo.FindByID(ctx, vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, next, found.Rating())

	_, err = repo.UpdateRating(ctx, "missing", func(c model.RatingSummary) model.RatingSummary { return c })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVendorRepository_RebuildRating(t *testing.T) {
	testDB, repo := setupVendorTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()
	reviews := NewReviewRepository(testDB)

	vendor := newTestVendor("Rebuilt", model.VendorStatusApproved)
	require.NoError(t, repo.Create(ctx, vendor))
	other := newTestVendor("Other", model.VendorStatusApproved)
	require.NoError(t, repo.Create(ctx, other))

	require.NoError(t, reviews.Create(ctx, newTestReview(vendor.ID, 1, 5, model.ReviewStatusApproved)))
	require.NoError(t, reviews.Create(ctx, newTestReview(vendor.ID, 2, 4, model.ReviewStatusApproved)))
	require.NoError(t, reviews.Create(ctx, newTestReview(vendor.ID, 3, 1, model.ReviewStatusPendingReview)))
	require.NoError(t, reviews.Create(ctx, newTestReview(vendor.ID, 4, 1, model.ReviewStatusRemoved)))
	require.NoError(t, reviews.Create(ctx, newTestReview(other.ID, 1, 2, model.ReviewStatusApproved)))

	_, err := repo.UpdateRating(ctx, vendor.ID, func(model.RatingSummary) model.RatingSummary {
		return model.RatingSummary{AverageRating: 1, TotalReviews: 9}
	})
	require.NoError(t, err)

	var seen model.RatingSummary
	var approved []int
	next, err := repo.RebuildRating(ctx, vendor.ID, func(current model.RatingSummary, ratings []int) model.RatingSummary {
		seen, approved = current, ratings
		return model.RatingSummary{AverageRating: 4.5, TotalReviews: len(ratings)}
	})
	require.NoError(t, err)
	assert.Equal(t, model.RatingSummary{AverageRating: 1, TotalReviews: 9}, seen)
	assert.ElementsMatch(t, []int{5, 4}, approved)
	assert.Equal(t, model.RatingSummary{AverageRating: 4.5, TotalReviews: 2}, next)

	found, err := repo.FindByID(ctx, vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, next, found.Rating())

	_, err = repo.RebuildRating(ctx, "missing", func(c model.RatingSummary, _ []int) model.RatingSummary { return c })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVendorRepository_CountersAndFlags(t *testing.T) {
	testDB, repo := setupVendorTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	a := newTestVendor("A", model.VendorStatusPending)
	b := newTestVendor("B", model.VendorStatusPending)
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	require.NoError(t, repo.IncrementCounter(ctx, []string{a.ID, b.ID}, model.CounterSearchImpressions, 1))
	require.NoError(t, repo.IncrementCounter(ctx, []string{a.ID}, model.CounterProfileViews, 3))
	require.NoError(t, repo.UpdateStatus(ctx, a.ID, model.VendorStatusApproved))
	require.NoError(t, repo.SetVerified(ctx, a.ID, true))

	found, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, found.SearchImpressions)
	assert.EqualValues(t, 3, found.ProfileViews)
	assert.Equal(t, model.VendorStatusApproved, found.Status)
	assert.True(t, found.IsVerified)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, "missing", model.VendorStatusApproved), ErrNotFound)

	ids, err := repo.ListIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)
}

func TestVendorRepository_BulkCreate(t *testing.T) {
	testDB, repo := setupVendorTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	first := newTestVendor("First", model.VendorStatusApproved)
	first.SearchKeywords = []string{"first"}
	second := newTestVendor("Second", model.VendorStatusApproved)
	second.SearchKeywords = []string{"second"}
	require.NoError(t, repo.BulkCreate(ctx, []*model.Vendor{first, second}))

	vendors, err := repo.FindApproved(ctx, VendorFilter{Keywords: []string{"second"}})
	require.NoError(t, err)
	require.Len(t, vendors, 1)
	assert.Equal(t, second.ID, vendors[0].ID)

	// a duplicate id rolls back the whole batch
	third := newTestVendor("Third", model.VendorStatusApproved)
	dup := newTestVendor("Dup", model.VendorStatusApproved)
	dup.ID = first.ID
	assert.Error(t, repo.BulkCreate(ctx, []*model.Vendor{third, dup}))

	_, err = repo.FindByID(ctx, third.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

// The cell filter must not depend on how the database collates "~" against
// the geohash alphabet, so it is issued as a prefix match.
func TestApprovedQuery_GeohashCellIsPrefixMatch(t *testing.T) {
	testDB, _ := setupVendorTest(t)
	defer db.CleanupTestDB(testDB)

	dry := testDB.Session(&gorm.Session{DryRun: true})
	stmt := approvedQuery(dry, VendorFilter{
		Geo: &GeohashRange{Start: "tdr1v", End: "tdr1v~"},
	}).Find(&[]model.Vendor{}).Statement

	sql := stmt.SQL.String()
	assert.Contains(t, sql, "location_geohash LIKE ?")
	assert.NotContains(t, sql, "location_geohash <")
	assert.NotContains(t, sql, "location_geohash >=")
	assert.Contains(t, stmt.Vars, "tdr1v%")
	assert.NotContains(t, stmt.Vars, "tdr1v~")
}
