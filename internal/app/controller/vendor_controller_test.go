package controller

import (
	"net/http"
	"testing"

	"github.com/nearmi/localhunt-backend/internal/app/model"
	apperrors "github.com/nearmi/localhunt-backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vendorNames(t *testing.T, body map[string]interface{}) []string {
	t.Helper()
	raw, ok := body["vendors"].([]interface{})
	require.True(t, ok)
	names := make([]string, 0, len(raw))
	for _, v := range raw {
		names = append(names, v.(map[string]interface{})["businessName"].(string))
	}
	return names
}

func TestVendorController_RegisterStartsPending(t *testing.T) {
	s := setupControllerTest(t)
	_, token := s.signup("owner", model.RoleUser)

	w := s.do(http.MethodPost, "/vendors", token, RegisterVendorRequest{
		BusinessName: "Sharma Electricals",
		Category:     "Electrician",
		Address:      AddressRequest{Colony: "Andheri", City: "Mumbai"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	vendor := decode(t, w)["vendor"].(map[string]interface{})
	assert.Equal(t, string(model.VendorStatusPending), vendor["status"])
	id := vendor["id"].(string)

	// hidden from anonymous readers until approved
	w = s.do(http.MethodGet, "/vendors/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.VendorNotFound, errorCodeOf(t, w))

	// visible to its owner
	w = s.do(http.MethodGet, "/vendors/"+id, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestVendorController_RegisterMissingFields(t *testing.T) {
	s := setupControllerTest(t)
	_, token := s.signup("owner", model.RoleUser)

	w := s.do(http.MethodPost, "/vendors", token, map[string]string{"businessName": "No Category"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ValidationRequired, errorCodeOf(t, w))
}

func TestVendorController_Query(t *testing.T) {
	s := setupControllerTest(t)
	ownerID, _ := s.signup("owner", model.RoleUser)
	s.approvedVendor(ownerID, "Sharma Electricals", "Electrician", "Andheri")
	s.approvedVendor(ownerID, "Patel Plumbing", "Plumber", "Bandra")

	w := s.do(http.MethodGet, "/vendors?search=electrician", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Sharma Electricals"}, vendorNames(t, decode(t, w)))

	w = s.do(http.MethodGet, "/vendors?colony=Bandra", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Patel Plumbing"}, vendorNames(t, decode(t, w)))

	w = s.do(http.MethodGet, "/vendors?sortBy=businessName&sortOrder=asc", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Patel Plumbing", "Sharma Electricals"}, vendorNames(t, decode(t, w)))
}

func TestVendorController_QueryRejectsBadParams(t *testing.T) {
	s := setupControllerTest(t)

	tests := []struct {
		name string
		path string
		code string
	}{
		{"unknown sort field", "/vendors?sortBy=phoneNumber", apperrors.ValidationInvalidSort},
		{"bad sort order", "/vendors?sortOrder=sideways", apperrors.ValidationInvalidSort},
		{"non numeric latitude", "/vendors?lat=north&lon=72.8", apperrors.ValidationInvalidCoords},
		{"latitude out of range", "/vendors?lat=120&lon=72.8", apperrors.ValidationInvalidCoords},
		{"bad isOpen", "/vendors?isOpen=maybe", apperrors.ValidationInvalidInput},
		{"negative limit", "/vendors?limit=-1", apperrors.ValidationInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodGet, tt.path, "", nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, errorCodeOf(t, w))
		})
	}
}

func TestVendorController_UpdateOwnerOnly(t *testing.T) {
	s := setupControllerTest(t)
	ownerID, ownerToken := s.signup("owner", model.RoleUser)
	_, otherToken := s.signup("other", model.RoleUser)
	vendor := s.approvedVendor(ownerID, "Sharma Electricals", "Electrician", "Andheri")

	rename := map[string]string{"businessName": "Sharma Electric Works"}

	w := s.do(http.MethodPatch, "/vendors/"+vendor.ID, otherToken, rename)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apperrors.AuthzOwnerOnly, errorCodeOf(t, w))

	w = s.do(http.MethodPatch, "/vendors/"+vendor.ID, ownerToken, rename)
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode(t, w)["vendor"].(map[string]interface{})
	assert.Equal(t, "Sharma Electric Works", updated["businessName"])
	assert.Equal(t, "Electrician", updated["category"])
}

func TestVendorController_MineAndStats(t *testing.T) {
	s := setupControllerTest(t)
	ownerID, ownerToken := s.signup("owner", model.RoleUser)
	_, otherToken := s.signup("other", model.RoleUser)
	vendor := s.approvedVendor(ownerID, "Sharma Electricals", "Electrician", "Andheri")

	w := s.do(http.MethodGet, "/vendors/me", ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Sharma Electricals"}, vendorNames(t, decode(t, w)))

	w = s.do(http.MethodGet, "/vendors/"+vendor.ID+"/stats", otherToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/vendors/"+vendor.ID+"/stats", ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode(t, w)["stats"].(map[string]interface{})
	assert.Equal(t, vendor.ID, stats["vendorId"])
}
