package api

import (
	"net/http"

	"earnify/api/dto"
	"earnify/domain/entities"
)

type authRequest struct {
	ReferralCode string `json:"referralCode"`
}

type withdrawRequest struct {
	Amount        int64  `json:"amount"`
	Bank          string `json:"bank"`
	AccountNumber string `json:"accountNumber"`
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.services.Users.Authenticate(r.Context(), *principal(r), req.ReferralCode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, map[string]any{
		"user":      dto.FromUser(result.User),
		"isNewUser": result.IsNewUser,
	})
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := s.services.Users.Dashboard(r.Context(), principal(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, map[string]any{"dashboard": dto.FromDashboard(dashboard)})
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	user, err := s.services.Users.Profile(r.Context(), principal(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, map[string]any{"profile": dto.FromProfile(user)})
}

func (s *Server) claimDaily(w http.ResponseWriter, r *http.Request) {
	result, err := s.services.Rewards.ClaimDaily(r.Context(), principal(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, map[string]any{
		"message": "Daily reward claimed!",
		"reward":  result.Reward,
		"streak":  result.Streak,
	})
}

func (s *Server) completeAd(w http.ResponseWriter, r *http.Request) {
	result, err := s.services.Rewards.CompleteAdView(r.Context(), principal(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, map[string]any{
		"message": "Ad reward added!",
		"reward":  result.Transaction.Amount,
		"balance": result.User.Balance,
	})
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.services.Withdrawals.RequestWithdrawal(r.Context(), principal(r).ID, req.Amount, entities.BankDetails{
		Bank:          req.Bank,
		AccountNumber: req.AccountNumber,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, map[string]any{
		"message":     "Withdrawal request submitted",
		"status":      string(result.Transaction.Status),
		"transaction": dto.FromTransaction(result.Transaction),
	})
}
