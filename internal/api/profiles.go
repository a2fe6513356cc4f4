package api

import (
	"encoding/json"
	"net/http"

	goaway "github.com/TwiN/go-away"
	"github.com/gorilla/mux"

	rkerrs "github.com/rssking/rssking/internal/errors"
	"github.com/rssking/rssking/internal/rssking"
	"github.com/rssking/rssking/internal/serverutil"
)

type profileRequest struct {
	DisplayName string `json:"display_name"`
	Interests   string `json:"interests"`
}

// checkProfile runs length and profanity checks.
//
// Since interests get fed to the LLM, it's imperative that we're trying to
// keep the input rather clean.
func checkProfile(body profileRequest) error {
	const (
		maxInterestsLength = 2000
		maxNameLength      = 100
	)
	if len(body.Interests) > maxInterestsLength {
		return rkerrs.E("interests too long", http.StatusUnprocessableEntity)
	}
	if len(body.DisplayName) > maxNameLength {
		return rkerrs.E("display name too long", http.StatusUnprocessableEntity)
	}
	if goaway.IsProfane(body.Interests) || goaway.IsProfane(body.DisplayName) {
		return rkerrs.E("profanity detected in profile", http.StatusUnprocessableEntity)
	}

	return nil
}

// This route is used to aid the front-end with validation before the user
// commits a profile change.
func (s Server) postProfilePrecheck(w http.ResponseWriter, r *http.Request) error {
	var body profileRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return rkerrs.E(err, http.StatusBadRequest)
	}

	if err := checkProfile(body); err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, struct{}{})
}

func (s Server) putProfile(w http.ResponseWriter, r *http.Request) error {
	userID := mux.Vars(r)["userID"]

	var body profileRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return rkerrs.E(err, http.StatusBadRequest)
	}

	if err := checkProfile(body); err != nil {
		return err
	}

	if err := s.repo.UpsertProfile(r.Context(), rssking.Profile{
		UserID:      userID,
		DisplayName: body.DisplayName,
		Interests:   body.Interests,
	}); err != nil {
		return rkerrs.E(err, http.StatusInternalServerError)
	}

	return serverutil.WriteJSON(w, http.StatusOK, struct{}{})
}
