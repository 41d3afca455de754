package http

import (
	"net/http"

	"github.com/google/uuid"

	"bilancio/internal/core"
	"bilancio/internal/log"
)

type listResponse[T any] struct {
	Items []T `json:"items"`
}

func list[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items}
}

func (s *Server) handleListDebts(w http.ResponseWriter, r *http.Request) {
	debts, err := s.store.ListDebts(r.Context())
	if err != nil {
		writeError(w, r, err, log.OpList)
		return
	}
	OK(list(debts)).Write(w)
}

func (s *Server) handleSaveDebt(w http.ResponseWriter, r *http.Request) {
	var d core.DebtObligation
	if err := DecodeJSON(w, r, &d); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	d.Label = sanitizeInput(d.Label)
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if err := d.Validate(); err != nil {
		writeError(w, r, err, log.OpValidate)
		return
	}
	if err := s.store.SaveDebt(r.Context(), d); err != nil {
		writeError(w, r, err, log.OpCreate)
		return
	}
	Created(d).Write(w)
}

func (s *Server) handleDeleteDebt(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteDebt(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err, log.OpDelete)
		return
	}
	NoContent().Write(w)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.store.ListGoals(r.Context())
	if err != nil {
		writeError(w, r, err, log.OpList)
		return
	}
	OK(list(goals)).Write(w)
}

func (s *Server) handleSaveGoal(w http.ResponseWriter, r *http.Request) {
	var g core.Goal
	if err := DecodeJSON(w, r, &g); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	g.Label = sanitizeInput(g.Label)
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if err := g.Validate(); err != nil {
		writeError(w, r, err, log.OpValidate)
		return
	}
	if err := s.store.SaveGoal(r.Context(), g); err != nil {
		writeError(w, r, err, log.OpCreate)
		return
	}
	Created(g).Write(w)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteGoal(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err, log.OpDelete)
		return
	}
	NoContent().Write(w)
}

func (s *Server) handleListLedger(w http.ResponseWriter, r *http.Request) {
	kind, err := ParseLedgerKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, r, err, log.OpParse)
		return
	}
	items, err := s.store.ListLedger(r.Context(), kind)
	if err != nil {
		writeError(w, r, err, log.OpList)
		return
	}
	OK(list(items)).Write(w)
}

// handleSaveLedgerItem stores a manual item. Detected items are written only
// by the refresh worker.
func (s *Server) handleSaveLedgerItem(w http.ResponseWriter, r *http.Request) {
	kind, err := ParseLedgerKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, r, err, log.OpParse)
		return
	}
	var it core.LedgerItem
	if err := DecodeJSON(w, r, &it); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	it.Kind = kind
	it.Source = core.SourceManual
	it.Label = sanitizeInput(it.Label)
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if err := it.Validate(); err != nil {
		writeError(w, r, err, log.OpValidate)
		return
	}
	if err := s.store.SaveLedgerItem(r.Context(), it); err != nil {
		writeError(w, r, err, log.OpCreate)
		return
	}
	Created(it).Write(w)
}

func (s *Server) handleDeleteLedgerItem(w http.ResponseWriter, r *http.Request) {
	kind, err := ParseLedgerKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, r, err, log.OpParse)
		return
	}
	if err := s.store.DeleteLedgerItem(r.Context(), kind, r.PathValue("id")); err != nil {
		writeError(w, r, err, log.OpDelete)
		return
	}
	NoContent().Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	since, err := ParseSince(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	txs, err := s.store.ListTransactions(r.Context(), since)
	if err != nil {
		writeError(w, r, err, log.OpList)
		return
	}
	OK(list(txs)).Write(w)
}

type importRequest struct {
	Transactions []core.TransactionRecord `json:"transactions"`
}

func (s *Server) handleImportTransactions(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	for i := range req.Transactions {
		req.Transactions[i].Description = sanitizeInput(req.Transactions[i].Description)
		req.Transactions[i].Counterparty = sanitizeInput(req.Transactions[i].Counterparty)
	}
	res, err := s.importer.Import(r.Context(), req.Transactions)
	if err != nil {
		writeError(w, r, err, log.OpImport)
		return
	}
	Created(res).Write(w)
}
