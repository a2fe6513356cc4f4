package api

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"

	rkerrs "github.com/rssking/rssking/internal/errors"
	"github.com/rssking/rssking/internal/rssking"
	"github.com/rssking/rssking/internal/serverutil"
)

type PostFeedReq struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Tier     int    `json:"tier"`
	Category string `json:"category"`
	MaxItems int    `json:"max_items"`
}

func (r PostFeedReq) Validate() error {
	var errs []rkerrs.Detail
	if r.UserID == "" {
		errs = append(errs, rkerrs.Detail{Field: "user_id", Error: "required"})
	}
	if r.URL == "" {
		errs = append(errs, rkerrs.Detail{Field: "url", Error: "required"})
	} else if u, err := url.Parse(r.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, rkerrs.Detail{Field: "url", Error: "must be an absolute url"})
	}
	if r.Tier < 0 {
		errs = append(errs, rkerrs.Detail{Field: "tier", Error: "must not be negative"})
	}
	if len(errs) > 0 {
		return rkerrs.E("invalid request", http.StatusBadRequest, errs)
	}

	return nil
}

type FeedResp struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Tier      int       `json:"tier"`
	Category  string    `json:"category"`
	MaxItems  int       `json:"max_items"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func apiFeed(f rssking.Feed) FeedResp {
	return FeedResp{
		ID:        f.ID,
		UserID:    f.UserID,
		Name:      f.Name,
		URL:       f.URL,
		Tier:      f.Tier,
		Category:  f.Category,
		MaxItems:  f.MaxItems,
		Active:    f.Active,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

func (s Server) postFeed(w http.ResponseWriter, r *http.Request) error {
	body, err := serverutil.DecodeValid[PostFeedReq](r.Body)
	if err != nil {
		var rkErr *rkerrs.Error
		if errors.As(err, &rkErr) {
			return rkErr
		}
		return rkerrs.E(err, http.StatusBadRequest)
	}

	feed, err := s.repo.InsertFeed(r.Context(), rssking.Feed{
		UserID:   body.UserID,
		Name:     body.Name,
		URL:      body.URL,
		Tier:     body.Tier,
		Category: body.Category,
		MaxItems: body.MaxItems,
		Active:   true,
	})
	if errors.Is(err, rssking.ErrConflict) {
		return rkerrs.E("feed url already exists", http.StatusConflict)
	}
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusCreated, apiFeed(feed))
}

type FeedListResp struct {
	Feeds []FeedResp `json:"feeds"`
}

func (s Server) getFeeds(w http.ResponseWriter, r *http.Request) error {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		return rkerrs.E("user_id is required", http.StatusBadRequest)
	}

	feeds, err := s.repo.UserFeeds(r.Context(), userID)
	if err != nil {
		return err
	}

	resp := FeedListResp{Feeds: []FeedResp{}}
	for _, feed := range feeds {
		resp.Feeds = append(resp.Feeds, apiFeed(feed))
	}

	return serverutil.WriteJSON(w, http.StatusOK, resp)
}

func (s Server) deleteFeed(w http.ResponseWriter, r *http.Request) error {
	id := mux.Vars(r)["feedID"]

	if _, err := s.repo.Feed(r.Context(), id); errors.Is(err, rssking.ErrNotFound) {
		return rkerrs.E("feed not found", http.StatusNotFound)
	} else if err != nil {
		return err
	}

	if err := s.repo.DeleteFeed(r.Context(), id); err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, struct{}{})
}
