package model

import (
	"time"

	"github.com/lib/pq"
)

type ReviewStatus string

const (
	ReviewStatusApproved      ReviewStatus = "approved"
	ReviewStatusPendingReview ReviewStatus = "pending_review"
	ReviewStatusRemoved       ReviewStatus = "removed"
)

const (
	MinRating = 1
	MaxRating = 5

	// ReportThreshold is the report count at which an approved review is
	// pulled back into moderation.
	ReportThreshold = 3
)

// IsValid reports whether s is one of the enumerated review statuses.
func (s ReviewStatus) IsValid() bool {
	switch s {
	case ReviewStatusApproved, ReviewStatusPendingReview, ReviewStatusRemoved:
		return true
	}
	return false
}

// Review is a user rating of a vendor. Only approved reviews count toward vendor aggregates.
type Review struct {
	ID       string `gorm:"primaryKey;type:varchar(36)" json:"id" firestore:"-"`
	VendorID string `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_review_vendor_user" json:"vendorId" firestore:"vendorId"`
	UserID   uint   `gorm:"not null;index;uniqueIndex:idx_review_vendor_user" json:"userId" firestore:"-"`
	UserName string `json:"userName" firestore:"userName"`

	Rating  int    `gorm:"not null" json:"rating" firestore:"rating"`
	Comment string `gorm:"type:text" json:"comment" firestore:"comment"`

	Status      ReviewStatus   `gorm:"type:varchar(20);not null;index" json:"status" firestore:"status"`
	Flagged     bool           `gorm:"index" json:"flagged" firestore:"flagged"`
	ReportCount int            `json:"reportCount" firestore:"reportCount"`
	ReportedBy  pq.Int64Array  `gorm:"type:integer[]" json:"reportedBy" firestore:"reportedBy"`
	VendorReply *VendorReply   `gorm:"type:text" json:"vendorReply" firestore:"vendorReply"`

	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}

func (Review) TableName() string {
	return "reviews"
}

// IsApproved reports whether the review currently counts toward the vendor rating.
func (r *Review) IsApproved() bool {
	return r.Status == ReviewStatusApproved
}

// HasReported reports whether userID already reported this review.
func (r *Review) HasReported(userID uint) bool {
	for _, id := range r.ReportedBy {
		if uint(id) == userID {
			return true
		}
	}
	return false
}
