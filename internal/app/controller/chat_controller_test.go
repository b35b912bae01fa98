package controller

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/nearmi/localhunt-backend/internal/app/model"
	apperrors "github.com/nearmi/localhunt-backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatController_Conversation(t *testing.T) {
	s := setupControllerTest(t)
	ownerID, ownerToken := s.signup("owner", model.RoleUser)
	_, customerToken := s.signup("customer", model.RoleUser)
	_, strangerToken := s.signup("stranger", model.RoleUser)
	vendor := s.approvedVendor(ownerID, "Sharma Electricals", "Electrician", "Andheri")

	w := s.do(http.MethodPost, "/chats/conversations", customerToken, StartConversationRequest{VendorID: vendor.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	convID := uint(decode(t, w)["conversation"].(map[string]interface{})["id"].(float64))

	// starting again returns the same conversation
	w = s.do(http.MethodPost, "/chats/conversations", customerToken, StartConversationRequest{VendorID: vendor.ID})
	require.Equal(t, http.StatusOK, w.Code)

	messages := fmt.Sprintf("/chats/conversations/%d/messages", convID)

	w = s.do(http.MethodPost, messages, customerToken, SendMessageRequest{Text: "Are you open on Sunday?"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, messages, strangerToken, SendMessageRequest{Text: "hello"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apperrors.ChatNotParticipant, errorCodeOf(t, w))

	w = s.do(http.MethodGet, messages, ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["total"])
}

func TestChatController_OwnVendor(t *testing.T) {
	s := setupControllerTest(t)
	ownerID, ownerToken := s.signup("owner", model.RoleUser)
	vendor := s.approvedVendor(ownerID, "Sharma Electricals", "Electrician", "Andheri")

	w := s.do(http.MethodPost, "/chats/conversations", ownerToken, StartConversationRequest{VendorID: vendor.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.VendorOwnChat, errorCodeOf(t, w))
}

func TestChatController_InvalidConversationID(t *testing.T) {
	s := setupControllerTest(t)
	_, token := s.signup("customer", model.RoleUser)

	w := s.do(http.MethodGet, "/chats/conversations/abc/messages", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ValidationInvalidID, errorCodeOf(t, w))
}
