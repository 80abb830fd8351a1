package http

import (
	"bytes"
	"net/http"
	"strconv"

	"finanzas/internal/auth"
	"finanzas/internal/core"
	"finanzas/internal/export"
	"finanzas/internal/ledger"
	applog "finanzas/internal/log"
)

var monthLabels = [12]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

type (
	periodView struct {
		Year  int `json:"year"`
		Month int `json:"month"`
	}

	transactionView struct {
		ID          string `json:"id"`
		Type        string `json:"type"`
		Amount      string `json:"amount"`
		AmountCents int64  `json:"amount_cents"`
		Description string `json:"description"`
		Date        string `json:"date"`
	}

	balancesView struct {
		Month        periodView `json:"month"`
		MonthBalance string     `json:"month_balance"`
		Year         int        `json:"year"`
		YearBalance  string     `json:"year_balance"`
	}

	ledgerView struct {
		Period       periodView        `json:"period"`
		Transactions []transactionView `json:"transactions"`
		Balance      string            `json:"balance"`
		Balances     balancesView      `json:"balances"`
	}

	monthOption struct {
		Value    int    `json:"value"`
		Label    string `json:"label"`
		Selected bool   `json:"selected"`
	}
)

func toPeriodView(p core.Period) periodView {
	return periodView{Year: p.Year, Month: p.Month}
}

func (s *Server) balances(st ledger.State) balancesView {
	sum := st.Summary(s.opts.Now())
	return balancesView{
		Month:        toPeriodView(sum.Month),
		MonthBalance: sum.MonthBalance.String(),
		Year:         sum.Year.Year,
		YearBalance:  sum.YearBalance.String(),
	}
}

func (s *Server) ledgerView(st ledger.State, p core.Period) ledgerView {
	txs := st.Transactions(p)
	view := ledgerView{
		Period:       toPeriodView(p),
		Transactions: make([]transactionView, 0, len(txs)),
		Balance:      st.Balance(p).String(),
		Balances:     s.balances(st),
	}
	loc := st.Location()
	for _, tx := range txs {
		view.Transactions = append(view.Transactions, transactionView{
			ID:          tx.ID,
			Type:        tx.Kind.String(),
			Amount:      tx.Amount.String(),
			AmountCents: tx.Amount.Cents,
			Description: tx.Description,
			Date:        tx.Date.In(loc).Format(dateLayout),
		})
	}
	return view
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	p, err := ParsePeriodParams(r.URL.Query(), s.opts.Now(), s.opts.Location)
	if err != nil {
		s.fail(w, r, applog.OpReload, err)
		return
	}
	st, err := s.ledger.Reload(r.Context(), sess)
	if err != nil {
		s.fail(w, r, applog.OpReload, err)
		return
	}
	NewResponse().JSON(s.ledgerView(st, p)).Write(w)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	st, err := s.ledger.Reload(r.Context(), sess)
	if err != nil {
		s.fail(w, r, applog.OpReload, err)
		return
	}
	NewResponse().JSON(s.balances(st)).Write(w)
}

// handleMonths lists the twelve month options with the current one selected.
func (s *Server) handleMonths(w http.ResponseWriter, _ *http.Request) {
	current, _ := core.CurrentPeriods(s.opts.Now(), s.opts.Location)
	opts := make([]monthOption, 0, len(monthLabels))
	for i, label := range monthLabels {
		opts = append(opts, monthOption{Value: i + 1, Label: label, Selected: i+1 == current.Month})
	}
	NewResponse().JSON(opts).Write(w)
}

// handleCreateTransaction answers with the reloaded ledger for the month of
// the new transaction.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	draft, err := NewRequestBodyParser(r).ParseDraft(s.opts.Now(), s.opts.Location)
	if err != nil {
		s.fail(w, r, applog.OpInsert, err)
		return
	}
	prev, err := s.ledger.Reload(r.Context(), sess)
	if err != nil {
		s.fail(w, r, applog.OpInsert, err)
		return
	}
	next, created, err := s.ledger.Create(r.Context(), prev, sess, draft)
	if err != nil {
		s.fail(w, r, applog.OpInsert, err)
		return
	}

	s.log.LogLedgerChange(r.Context(), applog.OpInsert, sess.UserID, created.ID, draft.Kind.String(), draft.Amount.Cents)

	d := draft.Date.In(next.Location())
	p := core.Period{Year: d.Year(), Month: int(d.Month())}
	NewResponse().
		Status(http.StatusCreated).
		TriggerTransactionCreated(created.ID, p).
		JSON(s.ledgerView(next, p)).
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	id := r.PathValue("id")
	prev, err := s.ledger.Reload(r.Context(), sess)
	if err != nil {
		s.fail(w, r, applog.OpRemove, err)
		return
	}
	next, err := s.ledger.Remove(r.Context(), prev, sess, id)
	if err != nil {
		s.fail(w, r, applog.OpRemove, err)
		return
	}
	if tx, ok := prev.Find(id); ok {
		s.log.LogLedgerChange(r.Context(), applog.OpRemove, sess.UserID, id, tx.Kind.String(), tx.Amount.Cents)
	}

	p, err := ParsePeriodParams(r.URL.Query(), s.opts.Now(), s.opts.Location)
	if err != nil {
		p, _ = core.CurrentPeriods(s.opts.Now(), s.opts.Location)
	}
	NewResponse().
		TriggerTransactionDeleted(id).
		JSON(s.ledgerView(next, p)).
		Write(w)
}

// handleExport streams the year's xlsx workbook.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	year, err := ParseYearParam(r.URL.Query(), s.opts.Now(), s.opts.Location)
	if err != nil {
		s.fail(w, r, applog.OpExport, err)
		return
	}
	st, err := s.ledger.Reload(r.Context(), sess)
	if err != nil {
		s.fail(w, r, applog.OpExport, err)
		return
	}
	sheets := export.GroupByMonth(st, year)
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, year, sheets, st.Location()); err != nil {
		s.fail(w, r, applog.OpExport, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Ledger exported",
		applog.FieldUserID, sess.UserID, applog.FieldYear, year, applog.FieldCount, len(sheets))

	name := export.FileName(s.opts.ExportPrefix, year)
	h := w.Header()
	h.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	h.Set("Content-Disposition", `attachment; filename="`+name+`"`)
	h.Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
