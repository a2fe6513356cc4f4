package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	rkerrs "github.com/rssking/rssking/internal/errors"
	"github.com/rssking/rssking/internal/rssking"
	"github.com/rssking/rssking/internal/serverutil"
)

type ItemResp struct {
	ID          string     `json:"id"`
	FeedID      string     `json:"feed_id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Summary     string     `json:"summary"`
	PublishedAt *time.Time `json:"published_at"`
	Score       float64    `json:"score"`
	Category    string     `json:"category"`
	SourceName  string     `json:"source_name"`
	FetchedAt   time.Time  `json:"fetched_at"`
}

func apiItem(i rssking.Item) ItemResp {
	return ItemResp{
		ID:          i.ID,
		FeedID:      i.FeedID,
		Title:       i.Title,
		URL:         i.URL,
		Summary:     i.Summary,
		PublishedAt: i.PublishedAt,
		Score:       i.Score,
		Category:    i.Category,
		SourceName:  i.SourceName,
		FetchedAt:   i.FetchedAt,
	}
}

type ItemListResp struct {
	Items []ItemResp `json:"items"`
}

// getItems returns the user's recent items ranked by score, the same view
// the digest generator works from.
func (s Server) getItems(w http.ResponseWriter, r *http.Request) error {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		return rkerrs.E("user_id is required", http.StatusBadRequest)
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	hours, _ := strconv.Atoi(r.URL.Query().Get("window_hours"))
	if hours <= 0 {
		hours = 24
	}

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	items, err := s.repo.UserItems(r.Context(), userID, since, limit)
	if err != nil {
		return err
	}

	resp := ItemListResp{Items: []ItemResp{}}
	for _, item := range items {
		resp.Items = append(resp.Items, apiItem(item))
	}

	return serverutil.WriteJSON(w, http.StatusOK, resp)
}

func (s Server) getItem(w http.ResponseWriter, r *http.Request) error {
	id := mux.Vars(r)["itemID"]

	if cached, ok := s.itemRespCache.Get(id); ok {
		return serverutil.WriteJSON(w, http.StatusOK, cached)
	}

	item, err := s.repo.Item(r.Context(), id)
	if errors.Is(err, rssking.ErrNotFound) {
		return rkerrs.E("item not found", http.StatusNotFound)
	}
	if err != nil {
		return err
	}

	resp := apiItem(item)
	s.itemRespCache.Add(id, resp)

	return serverutil.WriteJSON(w, http.StatusOK, resp)
}

type itemStateRequest struct {
	UserID  string `json:"user_id"`
	Starred bool   `json:"starred"`
}

// putItemState records per-user item state. Starred titles are read back by
// the digest generator as an implicit interest signal.
func (s Server) putItemState(w http.ResponseWriter, r *http.Request) error {
	id := mux.Vars(r)["itemID"]

	var body itemStateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return rkerrs.E(err, http.StatusBadRequest)
	}
	if body.UserID == "" {
		return rkerrs.E("user_id is required", http.StatusBadRequest)
	}

	if _, err := s.repo.Item(r.Context(), id); errors.Is(err, rssking.ErrNotFound) {
		return rkerrs.E("item not found", http.StatusNotFound)
	} else if err != nil {
		return err
	}

	if err := s.repo.SetStarred(r.Context(), body.UserID, id, body.Starred); err != nil {
		return rkerrs.E(err, http.StatusInternalServerError)
	}

	return serverutil.WriteJSON(w, http.StatusOK, struct{}{})
}

type DigestResp struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	Overview        string         `json:"overview"`
	Picks           []rssking.Pick `json:"picks"`
	TimeWindowHours int            `json:"time_window_hours"`
	GeneratedAt     time.Time      `json:"generated_at"`
}

func (s Server) getLatestDigest(w http.ResponseWriter, r *http.Request) error {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		return rkerrs.E("user_id is required", http.StatusBadRequest)
	}

	digest, err := s.repo.LatestDigest(r.Context(), userID)
	if errors.Is(err, rssking.ErrNotFound) {
		return rkerrs.E("no digest yet", http.StatusNotFound)
	}
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, DigestResp{
		ID:              digest.ID,
		UserID:          digest.UserID,
		Overview:        digest.Overview,
		Picks:           digest.Picks,
		TimeWindowHours: digest.TimeWindowHours,
		GeneratedAt:     digest.GeneratedAt,
	})
}
