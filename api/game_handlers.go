package api

import (
	"net/http"

	"earnify/api/dto"
	"earnify/domain/services"
)

type createGameRequest struct {
	Name      string `json:"name"`
	IframeURL string `json:"iframeUrl"`
	ImageURL  string `json:"imageUrl"`
	MinWager  int64  `json:"minWager"`
	MaxWager  int64  `json:"maxWager"`
}

type playRequest struct {
	Wager int64 `json:"wager"`
}

func (s *Server) listGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.services.Games.ListGames(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, map[string]any{"games": dto.FromGames(games)})
}

func (s *Server) createGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	game, err := s.services.Games.CreateGame(r.Context(), services.GameInput{
		Name:      req.Name,
		IframeURL: req.IframeURL,
		ImageURL:  req.ImageURL,
		MinWager:  req.MinWager,
		MaxWager:  req.MaxWager,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, map[string]any{"game": dto.FromGame(game)})
}

func (s *Server) playGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := pathID(r, "gameId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req playRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.services.Games.PlaceWager(r.Context(), principal(r).ID, gameID, req.Wager)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, map[string]any{
		"message": "Wager placed successfully",
		"balance": result.User.Balance,
	})
}
