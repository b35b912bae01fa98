package docstore

import (
	"time"

	"cloud.google.com/go/firestore"
	"github.com/nearmi/localhunt-backend/internal/app/model"
)

// Firestore stores integers as int64 and rejects uint, so owner ids are
// carried next to the embedded model.

type vendorDoc struct {
	model.Vendor
	OwnerID int64 `firestore:"userId"`
}

// stampTimes fills unset timestamps the way gorm does on insert.
func stampTimes(createdAt, updatedAt *time.Time) {
	if createdAt.IsZero() {
		*createdAt = time.Now().UTC()
	}
	if updatedAt.IsZero() {
		*updatedAt = *createdAt
	}
}

// toVendorDoc also stamps the vendor's unset timestamps in place.
func toVendorDoc(v *model.Vendor) *vendorDoc {
	stampTimes(&v.CreatedAt, &v.UpdatedAt)
	return &vendorDoc{Vendor: *v, OwnerID: int64(v.UserID)}
}

func snapshotToVendor(snap *firestore.DocumentSnapshot) (*model.Vendor, error) {
	var doc vendorDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}
	vendor := doc.Vendor
	vendor.ID = snap.Ref.ID
	vendor.UserID = uint(doc.OwnerID)
	return &vendor, nil
}

type reviewDoc struct {
	model.Review
	AuthorID int64 `firestore:"userId"`
}

func toReviewDoc(r *model.Review) *reviewDoc {
	stampTimes(&r.CreatedAt, &r.UpdatedAt)
	return &reviewDoc{Review: *r, AuthorID: int64(r.UserID)}
}

func snapshotToReview(snap *firestore.DocumentSnapshot) (*model.Review, error) {
	var doc reviewDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}
	review := doc.Review
	review.ID = snap.Ref.ID
	review.UserID = uint(doc.AuthorID)
	return &review, nil
}

func ratingsOf(snaps []*firestore.DocumentSnapshot) ([]int, error) {
	ratings := make([]int, 0, len(snaps))
	for _, snap := range snaps {
		var doc struct {
			Rating int `firestore:"rating"`
		}
		if err := snap.DataTo(&doc); err != nil {
			return nil, err
		}
		ratings = append(ratings, doc.Rating)
	}
	return ratings, nil
}
