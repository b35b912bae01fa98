package model

import (
	"time"

	"github.com/lib/pq"
)

type VendorStatus string

const (
	VendorStatusPending   VendorStatus = "pending"
	VendorStatusApproved  VendorStatus = "approved"
	VendorStatusSuspended VendorStatus = "suspended"
	VendorStatusRejected  VendorStatus = "rejected"
)

// MaxAdditionalImages caps the gallery shown on a vendor profile.
const MaxAdditionalImages = 3

// IsValid reports whether s is one of the enumerated vendor statuses.
func (s VendorStatus) IsValid() bool {
	switch s {
	case VendorStatusPending, VendorStatusApproved, VendorStatusSuspended, VendorStatusRejected:
		return true
	}
	return false
}

type Address struct {
	Street  string `json:"street" firestore:"street"`
	Colony  string `gorm:"index" json:"colony" firestore:"colony"`
	City    string `json:"city" firestore:"city"`
	State   string `json:"state" firestore:"state"`
	ZipCode string `json:"zipCode" firestore:"zipCode"`
	Country string `json:"country" firestore:"country"`
}

// Location holds coordinates plus reverse-geocoded fields.
// Geohash is stored at precision 9.
type Location struct {
	Latitude         float64 `json:"latitude" firestore:"latitude"`
	Longitude        float64 `json:"longitude" firestore:"longitude"`
	FormattedAddress string  `json:"formattedAddress,omitempty" firestore:"formattedAddress"`
	Locality         string  `json:"locality,omitempty" firestore:"locality"`
	Sublocality      string  `json:"sublocality,omitempty" firestore:"sublocality"`
	Geohash          string  `gorm:"type:varchar(12);index" json:"geohash" firestore:"geohash"`
}

type Vendor struct {
	ID     string `gorm:"primaryKey;type:varchar(36)" json:"id" firestore:"-"`
	UserID uint   `gorm:"not null;index" json:"userId" firestore:"-"`

	BusinessName   string         `gorm:"not null" json:"businessName" firestore:"businessName"`
	Description    string         `gorm:"type:text" json:"description" firestore:"description"`
	Category       string         `gorm:"index" json:"category" firestore:"category"`
	Services       ServiceList    `gorm:"type:text" json:"services" firestore:"services"`
	OperatingHours OperatingHours `gorm:"type:text" json:"operatingHours" firestore:"operatingHours"`
	Awards         pq.StringArray `gorm:"type:text[]" json:"awards" firestore:"awards"`
	PhoneNumber    string         `gorm:"type:varchar(30)" json:"phoneNumber" firestore:"phoneNumber"`

	Address  Address  `gorm:"embedded;embeddedPrefix:address_" json:"address" firestore:"address"`
	Location Location `gorm:"embedded;embeddedPrefix:location_" json:"location" firestore:"location"`

	ProfileImageURL  string         `json:"profileImageUrl" firestore:"profileImageUrl"`
	AdditionalImages pq.StringArray `gorm:"type:text[]" json:"additionalImages" firestore:"additionalImages"`

	Status     VendorStatus `gorm:"type:varchar(20);default:'pending';index" json:"status" firestore:"status"`
	IsOpen     bool         `gorm:"index" json:"isOpen" firestore:"isOpen"`
	IsVerified bool         `gorm:"default:false" json:"isVerified" firestore:"isVerified"`

	// Derived from the descriptive fields on every write; never edited directly.
	SearchKeywords pq.StringArray `gorm:"type:text[]" json:"_searchKeywords" firestore:"_searchKeywords"`

	AverageRating     float64 `gorm:"default:0;index" json:"averageRating" firestore:"averageRating"`
	TotalReviews      int     `gorm:"default:0" json:"totalReviews" firestore:"totalReviews"`
	ProfileViews      int64   `gorm:"default:0" json:"profileViews" firestore:"profileViews"`
	SearchImpressions int64   `gorm:"default:0" json:"searchImpressions" firestore:"searchImpressions"`

	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`

	// Set on nearby-search results only.
	DistanceKm *float64 `gorm:"-" json:"distanceKm,omitempty" firestore:"-"`
}

func (Vendor) TableName() string {
	return "vendors"
}

// Rating returns the aggregate pair maintained on the vendor.
func (v *Vendor) Rating() RatingSummary {
	return RatingSummary{AverageRating: v.AverageRating, TotalReviews: v.TotalReviews}
}

// VendorKeyword is one row of the inverted index behind keyword search.
type VendorKeyword struct {
	VendorID string `gorm:"primaryKey;type:varchar(36)"`
	Keyword  string `gorm:"primaryKey;type:varchar(100);index"`
}

func (VendorKeyword) TableName() string {
	return "vendor_keywords"
}

// RatingSummary is the (averageRating, totalReviews) pair written atomically.
type RatingSummary struct {
	AverageRating float64 `json:"averageRating"`
	TotalReviews  int     `json:"totalReviews"`
}

// VendorCounter names an atomically incremented vendor metric.
type VendorCounter string

const (
	CounterProfileViews      VendorCounter = "profile_views"
	CounterSearchImpressions VendorCounter = "search_impressions"
)

// FirestoreField returns the document field name for the counter.
func (c VendorCounter) FirestoreField() string {
	switch c {
	case CounterProfileViews:
		return "profileViews"
	case CounterSearchImpressions:
		return "searchImpressions"
	}
	return ""
}
