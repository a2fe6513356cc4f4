// Package api is the management surface: feed and profile configuration
// plus read access to ranked items and digests. It trusts user_id
// parameters the way the original deployment trusted its service-role
// boundary; authentication is out of scope.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rssking/rssking/internal/rssking"
	"github.com/rssking/rssking/internal/serverutil"
)

type (
	// Server handles feed management and item/digest reads.
	Server struct {
		*http.Server

		// Items are immutable once written, so cached responses never go
		// stale; eviction only bounds memory.
		itemRespCache *lru.Cache[string, ItemResp]

		repo rssking.Repository
	}

	Config struct {
		Port       int
		CorsHeader string
	}
)

func NewServer(config Config, repo rssking.Repository) *Server {
	var (
		r        = serverutil.ErrRouter{Router: mux.NewRouter()}
		cache, _ = lru.New[string, ItemResp](1024)
	)

	srvr := Server{
		itemRespCache: cache,
		repo:          repo,
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			Handler: handlers.CORS(
				handlers.AllowedOrigins([]string{config.CorsHeader}),
				handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
				handlers.AllowedHeaders([]string{"content-type"}),
			)(r),
		},
	}

	r.Use(serverutil.AccessLogMiddleware) // Log everything

	// Feed management
	r.HandleFuncE("/v1/feeds", srvr.postFeed).Methods(http.MethodPost)
	r.HandleFuncE("/v1/feeds", srvr.getFeeds).Methods(http.MethodGet)
	r.HandleFuncE("/v1/feeds/{feedID}", srvr.deleteFeed).Methods(http.MethodDelete)

	// Ranked item reads
	r.HandleFuncE("/v1/items", srvr.getItems).Methods(http.MethodGet)
	r.HandleFuncE("/v1/items/{itemID}", srvr.getItem).Methods(http.MethodGet)
	r.HandleFuncE("/v1/items/{itemID}/state", srvr.putItemState).Methods(http.MethodPut)

	// Profile management
	r.HandleFuncE("/v1/profiles/{userID}", srvr.putProfile).Methods(http.MethodPut)
	r.HandleFuncE("/v1/profiles:precheck", srvr.postProfilePrecheck).Methods(http.MethodPost)

	// Digest reads
	r.HandleFuncE("/v1/digests/latest", srvr.getLatestDigest).Methods(http.MethodGet)

	slog.Debug("configured api server", "port", config.Port)

	return &srvr
}
