package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/rosca/bank"
	"github.com/xraph/rosca/types"
)

type depositRequest struct {
	Account  string `json:"account"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type balanceResponse struct {
	Account string      `json:"account"`
	Balance types.Money `json:"balance"`
}

// bankRoutes exposes the in-memory vault so accounts can be funded before
// they contribute.
func bankRoutes(v *bank.Vault) http.Handler {
	r := chi.NewRouter()
	r.Post("/deposits", func(w http.ResponseWriter, r *http.Request) {
		var req depositRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Account == "" || req.Currency == "" {
			http.Error(w, "account and currency are required", http.StatusBadRequest)
			return
		}
		amount, err := types.ParseMajor(req.Amount, req.Currency)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := v.Deposit(req.Account, amount); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		writeBalance(w, v, req.Account)
	})
	r.Get("/balances/{account}", func(w http.ResponseWriter, r *http.Request) {
		writeBalance(w, v, chi.URLParam(r, "account"))
	})
	return r
}

func writeBalance(w http.ResponseWriter, v *bank.Vault, account string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(balanceResponse{Account: account, Balance: v.Balance(account)})
}
