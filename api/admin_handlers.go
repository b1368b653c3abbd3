package api

import (
	"net/http"

	"earnify/api/dto"

	log "github.com/sirupsen/logrus"
)

type resolvePayoutRequest struct {
	Success *bool  `json:"success"`
	Reason  string `json:"reason"`
}

// resolvePayout applies the payout processor's verdict on a pending withdrawal
func (s *Server) resolvePayout(w http.ResponseWriter, r *http.Request) {
	txID, err := pathID(r, "transactionId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req resolvePayoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Success == nil {
		writeError(w, r, errMissingOutcome)
		return
	}

	tx, err := s.services.Withdrawals.ResolveWithdrawal(r.Context(), txID, *req.Success, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, map[string]any{"transaction": dto.FromTransaction(tx)})
}

func (s *Server) activateReferral(w http.ResponseWriter, r *http.Request) {
	refereeID, err := pathID(r, "refereeId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.services.Referrals.Activate(r.Context(), refereeID); err != nil {
		writeError(w, r, err)
		return
	}

	log.WithFields(log.Fields{
		"refereeId": refereeID,
		"adminId":   principal(r).ID,
	}).Info("Referral activated")
	writeSuccess(w, map[string]any{"message": "Referral activated"})
}

func (s *Server) reconcileUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.services.Ledger.Reconcile(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, map[string]any{
		"report": report,
		"inSync": report.InSync(),
	})
}
