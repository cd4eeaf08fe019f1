package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"aula/server/internal/model"
	"aula/server/internal/repository"
)

type messageResponse struct {
	ID          string     `json:"id"`
	SenderID    string     `json:"senderId"`
	RecipientID string     `json:"recipientId"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func mapMessage(message model.Message) messageResponse {
	return messageResponse{
		ID:          message.ID,
		SenderID:    message.SenderID,
		RecipientID: message.RecipientID,
		Subject:     message.Subject,
		Body:        message.Body,
		ReadAt:      message.ReadAt,
		CreatedAt:   message.CreatedAt,
	}
}

type sendMessageRequest struct {
	RecipientID string `json:"recipientId"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.RecipientID == "" || req.Body == "" {
		writeError(w, http.StatusUnprocessableEntity, "missing_fields")
		return
	}
	if req.RecipientID == claims.UserID {
		writeError(w, http.StatusUnprocessableEntity, "self_message")
		return
	}

	recipient, err := s.store.GetUserByID(r.Context(), req.RecipientID)
	if err != nil {
		if repository.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "recipient_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !recipient.Active {
		writeError(w, http.StatusUnprocessableEntity, "recipient_inactive")
		return
	}

	message := model.Message{
		ID:          uuid.NewString(),
		SenderID:    claims.UserID,
		RecipientID: req.RecipientID,
		Subject:     req.Subject,
		Body:        req.Body,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateMessage(r.Context(), message); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusCreated, mapMessage(message))
}

func (s *Server) handleListInbox(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	messages, err := s.store.ListInbox(r.Context(), claims.UserID, parseLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, mapMessages(messages))
}

func (s *Server) handleListSent(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	messages, err := s.store.ListSent(r.Context(), claims.UserID, parseLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, mapMessages(messages))
}

func mapMessages(messages []model.Message) []messageResponse {
	resp := make([]messageResponse, 0, len(messages))
	for _, message := range messages {
		resp = append(resp, mapMessage(message))
	}
	return resp
}

// handleMarkMessageRead is recipient-only; re-reading an already read
// message is a no-op.
func (s *Server) handleMarkMessageRead(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	messageID := chi.URLParam(r, "messageId")
	message, err := s.store.GetMessage(r.Context(), messageID)
	if err != nil {
		if repository.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "message_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if message.RecipientID != claims.UserID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	if err := s.store.MarkMessageRead(r.Context(), messageID, time.Now().UTC()); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}
