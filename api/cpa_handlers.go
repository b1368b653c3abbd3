package api

import (
	"net/http"

	"earnify/api/dto"
	"earnify/domain/services"
)

type createOfferRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Reward      int64  `json:"reward"`
	Link        string `json:"link"`
	ImageURL    string `json:"imageUrl"`
	Category    string `json:"category"`
	Type        string `json:"type"`
}

// postback answers the offer network with a bare "1" once the conversion is recorded.
// Duplicates get the same answer so the network stops retrying.
func (s *Server) postback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	_, err := s.services.Postbacks.HandlePostback(r.Context(), services.PostbackRequest{
		UserID:  q.Get("userId"),
		Reward:  q.Get("reward"),
		OfferID: q.Get("offerId"),
		Secret:  q.Get("secret"),
		TxID:    q.Get("txId"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("1"))
}

func (s *Server) imageKitAuth(w http.ResponseWriter, _ *http.Request) {
	if s.opts.ImageKit == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error:   "ImageKitUnavailable",
			Message: "image hosting is not configured",
		})
		return
	}
	writeJSON(w, http.StatusOK, s.opts.ImageKit.Params())
}

func (s *Server) listOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := s.services.Offers.ListActive(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, map[string]any{"offers": dto.FromOffers(offers)})
}

func (s *Server) createOffer(w http.ResponseWriter, r *http.Request) {
	var req createOfferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	offer, err := s.services.Offers.Create(r.Context(), services.OfferInput{
		Title:       req.Title,
		Description: req.Description,
		Reward:      req.Reward,
		Link:        req.Link,
		ImageURL:    req.ImageURL,
		Category:    req.Category,
		Type:        req.Type,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, map[string]any{"offer": dto.FromOffer(offer)})
}

func (s *Server) trackClick(w http.ResponseWriter, r *http.Request) {
	offerID, err := pathID(r, "offerId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.services.Offers.TrackClick(r.Context(), principal(r).ID, offerID); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, map[string]any{"message": "Click tracked"})
}
