package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/auth"
	"fintrack/internal/core"
)

// transactionHandlers serves the CRUD routes of one kind. The kind's name
// shapes every message and payload key, e.g. "income_id" and "incomes".
type transactionHandlers struct {
	server *Server
	kind   core.Kind
}

func (h transactionHandlers) notFound() string {
	return h.kind.Label() + " not found"
}

func (h transactionHandlers) routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h transactionHandlers) create(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err, h.notFound())
		return
	}
	if err := p.RequireFields("title", "amount", "category", "date"); err != nil {
		writeError(w, r, err, h.notFound())
		return
	}

	amount, err := p.Amount("amount")
	if err != nil {
		writeError(w, r, err, h.notFound())
		return
	}
	date, err := p.Date("date")
	if err != nil {
		writeError(w, r, err, h.notFound())
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	tx, err := h.server.transactions.Create(r.Context(), core.Transaction{
		UserID:      userID,
		Kind:        h.kind,
		Title:       p.Get("title"),
		Amount:      amount,
		Category:    p.Get("category"),
		Date:        date,
		Description: p.Get("description"),
	})
	if err != nil {
		writeError(w, r, err, h.notFound())
		return
	}

	NewJSONResponse().
		Status(http.StatusCreated).
		Message(h.kind.Label()+" created successfully", map[string]any{string(h.kind) + "_id": tx.ID}).
		Write(w)
}

func (h transactionHandlers) list(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	txs, err := h.server.transactions.List(r.Context(), h.kind, userID)
	if err != nil {
		writeError(w, r, err, h.notFound())
		return
	}
	NewJSONResponse().Body(map[string]any{string(h.kind) + "s": txs}).Write(w)
}

func (h transactionHandlers) update(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err, h.notFound())
		return
	}

	patch := core.TransactionPatch{
		Title:       p.Optional("title"),
		Category:    p.Optional("category"),
		Description: p.Optional("description"),
	}
	if p.Has("amount") {
		amount, err := p.Amount("amount")
		if err != nil {
			writeError(w, r, err, h.notFound())
			return
		}
		patch.Amount = &amount
	}
	if p.Has("date") {
		date, err := p.Date("date")
		if err != nil {
			writeError(w, r, err, h.notFound())
			return
		}
		patch.Date = &date
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	if err := h.server.transactions.Update(r.Context(), h.kind, userID, chi.URLParam(r, "id"), patch); err != nil {
		writeError(w, r, err, h.notFound())
		return
	}
	NewJSONResponse().Message(h.kind.Label()+" updated successfully", nil).Write(w)
}

func (h transactionHandlers) delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	if err := h.server.transactions.Delete(r.Context(), h.kind, userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, h.notFound())
		return
	}
	NewJSONResponse().Message(h.kind.Label()+" deleted successfully", nil).Write(w)
}
