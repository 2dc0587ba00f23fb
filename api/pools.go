package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/rosca"
	"github.com/xraph/rosca/id"
	"github.com/xraph/rosca/journal"
	"github.com/xraph/rosca/pool"
	"github.com/xraph/rosca/types"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000

	maxBodyBytes = 1 << 20
)

type poolView struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Operator        types.Identity  `json:"operator"`
	MinContribution types.Money     `json:"min_contribution"`
	Quota           uint64          `json:"quota"`
	Cycle           uint64          `json:"cycle"`
	Total           types.Money     `json:"total"`
	Contributors    uint64          `json:"contributors"`
	Completed       uint64          `json:"completed"`
	AllPaid         bool            `json:"all_paid"`
	NextRequester   *types.Identity `json:"next_requester"`
	Pending         *pool.Request   `json:"pending"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func newPoolView(l *rosca.Ledger) poolView {
	s := l.State()
	v := poolView{
		ID:              s.ID.String(),
		Name:            s.Name,
		Operator:        l.Operator(),
		MinContribution: l.MinContribution(),
		Quota:           l.Quota(),
		Cycle:           l.Cycle(),
		Total:           l.TotalSupply(),
		Contributors:    l.TotalContributors(),
		Completed:       l.CompletedPayouts(),
		AllPaid:         l.AllPaid(),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
	if next, ok := l.NextRequester(); ok {
		v.NextRequester = &next
	}
	if req, ok := l.PendingRequest(); ok {
		v.Pending = &req
	}
	return v
}

type listResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ──────────────────────────────────────────────────
// Pools
// ──────────────────────────────────────────────────

type createPoolRequest struct {
	Name            string `json:"name"`
	Operator        string `json:"operator"`
	MinContribution string `json:"min_contribution"`
	Currency        string `json:"currency"`
	Quota           uint64 `json:"quota"`
}

func (h *Handler) createPool(w http.ResponseWriter, r *http.Request) {
	var req createPoolRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	operator := req.Operator
	if operator == "" {
		operator = r.Header.Get(CallerHeader)
	}
	op, err := types.ParseIdentity(operator)
	if err != nil {
		h.writeError(w, r, rosca.ValidationError{Field: "operator", Message: err.Error()})
		return
	}
	cfg := pool.Config{Operator: op, Quota: req.Quota}

	switch {
	case req.MinContribution != "" && req.Currency == "":
		h.writeError(w, r, rosca.ValidationError{Field: "currency", Message: "required with min_contribution"})
		return
	case req.MinContribution != "":
		if cfg.MinContribution, err = parseAmount(req.MinContribution, req.Currency); err != nil {
			h.writeError(w, r, err)
			return
		}
	case req.Currency != "":
		cfg.MinContribution = types.New(pool.DefaultMinContribution, req.Currency)
	}

	state, err := h.svc.CreatePool(r.Context(), req.Name, cfg)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPoolView(rosca.NewLedger(state, nil)))
}

func (h *Handler) listPools(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	opts := pool.ListOpts{
		Operator: types.Identity(r.URL.Query().Get("operator")),
		Limit:    limit,
		Offset:   offset,
	}
	states, err := h.svc.ListPools(r.Context(), opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	items := make([]poolView, len(states))
	for i, s := range states {
		items[i] = newPoolView(rosca.NewLedger(s, nil))
	}
	writeJSON(w, http.StatusOK, listResponse[poolView]{Items: items, Limit: limit, Offset: offset})
}

func (h *Handler) getPool(w http.ResponseWriter, r *http.Request) {
	l, ok := h.view(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newPoolView(l))
}

func (h *Handler) deletePool(w http.ResponseWriter, r *http.Request) {
	poolID, err := poolIDParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.DeletePool(r.Context(), poolID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ──────────────────────────────────────────────────
// Quota
// ──────────────────────────────────────────────────

type quotaBody struct {
	Quota *uint64 `json:"quota"`
}

func (h *Handler) getQuota(w http.ResponseWriter, r *http.Request) {
	l, ok := h.view(w, r)
	if !ok {
		return
	}
	q := l.Quota()
	writeJSON(w, http.StatusOK, quotaBody{Quota: &q})
}

func (h *Handler) setQuota(w http.ResponseWriter, r *http.Request) {
	poolID, caller, ok := h.target(w, r)
	if !ok {
		return
	}
	var body quotaBody
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	if body.Quota == nil {
		h.writeError(w, r, rosca.ValidationError{Field: "quota", Message: "required"})
		return
	}
	if err := h.svc.SetQuota(r.Context(), poolID, caller, *body.Quota); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// ──────────────────────────────────────────────────
// Contributions
// ──────────────────────────────────────────────────

type contributeRequest struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type balanceResponse struct {
	Identity types.Identity `json:"identity"`
	Balance  types.Money    `json:"balance"`
	Total    types.Money    `json:"total"`
}

func (h *Handler) contribute(w http.ResponseWriter, r *http.Request) {
	poolID, caller, ok := h.target(w, r)
	if !ok {
		return
	}
	var req contributeRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Amount == "" {
		h.writeError(w, r, rosca.ValidationError{Field: "amount", Message: "required"})
		return
	}

	currency := req.Currency
	if currency == "" {
		state, err := h.svc.GetPool(r.Context(), poolID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		currency = state.Currency()
	}
	amount, err := parseAmount(req.Amount, currency)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.svc.Contribute(r.Context(), poolID, caller, amount); err != nil {
		h.writeError(w, r, err)
		return
	}
	l, ok := h.view(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, balanceResponse{
		Identity: caller,
		Balance:  l.BalanceOf(caller),
		Total:    l.TotalSupply(),
	})
}

func (h *Handler) contributors(w http.ResponseWriter, r *http.Request) {
	l, ok := h.view(w, r)
	if !ok {
		return
	}
	items := l.Contributors()
	writeJSON(w, http.StatusOK, listResponse[pool.Contributor]{Items: items, Limit: len(items)})
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	l, ok := h.view(w, r)
	if !ok {
		return
	}
	who := types.Identity(chi.URLParam(r, "identity"))
	writeJSON(w, http.StatusOK, balanceResponse{
		Identity: who,
		Balance:  l.BalanceOf(who),
		Total:    l.TotalSupply(),
	})
}

// ──────────────────────────────────────────────────
// Payouts
// ──────────────────────────────────────────────────

type pendingResponse struct {
	Pending *pool.Request `json:"pending"`
}

type approveRequest struct {
	Requester string `json:"requester"`
}

type cycleResponse struct {
	Advanced bool   `json:"advanced"`
	Cycle    uint64 `json:"cycle"`
}

type nextRequesterResponse struct {
	Requester *types.Identity `json:"requester"`
}

func (h *Handler) requestPayout(w http.ResponseWriter, r *http.Request) {
	poolID, caller, ok := h.target(w, r)
	if !ok {
		return
	}
	req, err := h.svc.RequestPayout(r.Context(), poolID, caller)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (h *Handler) pendingRequest(w http.ResponseWriter, r *http.Request) {
	l, ok := h.view(w, r)
	if !ok {
		return
	}
	var resp pendingResponse
	if req, found := l.PendingRequest(); found {
		resp.Pending = &req
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) approvePayout(w http.ResponseWriter, r *http.Request) {
	poolID, caller, ok := h.target(w, r)
	if !ok {
		return
	}
	var req approveRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	payout, err := h.svc.ApprovePayout(r.Context(), poolID, caller, types.Identity(req.Requester))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payout)
}

func (h *Handler) payoutHistory(w http.ResponseWriter, r *http.Request) {
	l, ok := h.view(w, r)
	if !ok {
		return
	}
	items := l.PayoutHistory()
	writeJSON(w, http.StatusOK, listResponse[pool.Payout]{Items: items, Limit: len(items)})
}

func (h *Handler) nextCycle(w http.ResponseWriter, r *http.Request) {
	poolID, err := poolIDParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	advanced, err := h.svc.NextCycle(r.Context(), poolID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	l, ok := h.view(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, cycleResponse{Advanced: advanced, Cycle: l.Cycle()})
}

func (h *Handler) nextRequester(w http.ResponseWriter, r *http.Request) {
	l, ok := h.view(w, r)
	if !ok {
		return
	}
	var resp nextRequesterResponse
	if next, found := l.NextRequester(); found {
		resp.Requester = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

// ──────────────────────────────────────────────────
// Journal
// ──────────────────────────────────────────────────

func (h *Handler) journal(w http.ResponseWriter, r *http.Request) {
	poolID, err := poolIDParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	limit, offset := parsePagination(r)
	opts := journal.QueryOpts{
		Kind:   journal.Kind(q.Get("kind")),
		Limit:  limit,
		Offset: offset,
	}
	if opts.Start, err = parseTime(q.Get("start"), "start"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if opts.End, err = parseTime(q.Get("end"), "end"); err != nil {
		h.writeError(w, r, err)
		return
	}

	entries, err := h.svc.Journal(r.Context(), poolID, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []*journal.Entry{}
	}
	writeJSON(w, http.StatusOK, listResponse[*journal.Entry]{Items: entries, Limit: limit, Offset: offset})
}

// ──────────────────────────────────────────────────
// Request helpers
// ──────────────────────────────────────────────────

// view loads a read-only ledger for the pool in the URL, writing the error
// response itself when that fails.
func (h *Handler) view(w http.ResponseWriter, r *http.Request) (*rosca.Ledger, bool) {
	poolID, err := poolIDParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	l, err := h.svc.View(r.Context(), poolID)
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return l, true
}

// target resolves the pool in the URL and the caller header.
func (h *Handler) target(w http.ResponseWriter, r *http.Request) (id.PoolID, types.Identity, bool) {
	poolID, err := poolIDParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return id.Nil, types.Nobody, false
	}
	caller, err := types.ParseIdentity(r.Header.Get(CallerHeader))
	if err != nil {
		h.writeError(w, r, rosca.ValidationError{Field: "caller", Message: err.Error()})
		return id.Nil, types.Nobody, false
	}
	return poolID, caller, true
}

func poolIDParam(r *http.Request) (id.PoolID, error) {
	poolID, err := id.ParsePoolID(chi.URLParam(r, "poolID"))
	if err != nil {
		return id.Nil, rosca.ValidationError{Field: "pool_id", Message: err.Error()}
	}
	return poolID, nil
}

func decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return rosca.ValidationError{Field: "body", Message: err.Error()}
	}
	return nil
}

func parseAmount(s, currency string) (types.Money, error) {
	m, err := types.ParseMajor(s, currency)
	if err != nil {
		return types.Money{}, rosca.ValidationError{Field: "amount", Message: err.Error()}
	}
	return m, nil
}

func parseTime(s, field string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, rosca.ValidationError{Field: field, Message: "must be RFC 3339"}
	}
	return t, nil
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = DefaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = min(parsed, MaxLimit)
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}
