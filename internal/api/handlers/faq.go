package handlers

import (
	"net/http"

	"github.com/jeevandhara/bloodbank/internal/faq"
)

// FAQHandler answers common questions.
type FAQHandler struct {
	responder *faq.Responder
}

// NewFAQHandler creates a FAQ handler.
func NewFAQHandler(responder *faq.Responder) *FAQHandler {
	return &FAQHandler{responder: responder}
}

// Ask matches the question against the rule list.
func (h *FAQHandler) Ask(w http.ResponseWriter, r *http.Request) {
	question := r.URL.Query().Get("q")
	if question == "" {
		WriteBadRequest(w, "query parameter q is required")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"question": question,
		"response": h.responder.Respond(question),
	})
}
