package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authgin "github.com/streamtrack/streamtrack/adapters/gin"
	"github.com/streamtrack/streamtrack/avatars"
	"github.com/streamtrack/streamtrack/identity"
	"github.com/streamtrack/streamtrack/keycloak"
	"github.com/streamtrack/streamtrack/notes"
	"github.com/streamtrack/streamtrack/tmdb"
	"github.com/streamtrack/streamtrack/users"
	"github.com/streamtrack/streamtrack/watchlist"
)

// Deps carries everything the route table needs. All fields are required
// except Audit and Limiter, which degrade to no-ops when nil.
type Deps struct {
	Verifier  *keycloak.Verifier
	Resolver  *identity.Resolver
	Users     *users.Service
	Notes     *notes.Store
	Watchlist *watchlist.Store
	Avatars   *avatars.Store
	TMDB      *tmdb.Client

	Audit   authgin.AuthAuditor
	Limiter authgin.RateLimiter

	AllowedOrigins []string
}

// Router assembles the full API surface under /api.
func Router(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(authgin.CORS(d.AllowedOrigins))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Avatars != nil {
		r.Static("/media/avatars", d.Avatars.Dir())
	}

	api := r.Group("/api")

	// Public.
	api.POST("/auth/register", HandleRegisterPOST(d.Users, d.Limiter))

	md := api.Group("/tmdb", authgin.Locale())
	md.GET("/search", HandleTMDBSearchGET(d.TMDB))
	md.GET("/details/:media_type/:media_id", HandleTMDBDetailsGET(d.TMDB))
	md.GET("/genres/:media_type", HandleTMDBGenresGET(d.TMDB))
	md.GET("/providers/:media_type", HandleTMDBProvidersGET(d.TMDB))
	md.GET("/discover/:media_type", HandleTMDBDiscoverGET(d.TMDB))
	md.GET("/:media_type/:media_id/credits", HandleTMDBCreditsGET(d.TMDB))
	md.GET("/:media_type/:media_id/videos", HandleTMDBVideosGET(d.TMDB))
	md.GET("/:media_type/:media_id/similar", HandleTMDBSimilarGET(d.TMDB))
	md.GET("/:media_type/:media_id/reviews", HandleTMDBReviewsGET(d.TMDB))
	md.GET("/:media_type/:media_id/external_ids", HandleTMDBExternalIDsGET(d.TMDB))
	md.GET("/:media_type/:media_id/watch/providers", HandleTMDBItemProvidersGET(d.TMDB))

	// Authenticated.
	auth := api.Group("")
	auth.Use(authgin.AuthRequired(d.Verifier, d.Resolver, d.Audit))

	auth.GET("/auth/session", HandleSessionGET())
	auth.GET("/users/me", HandleProfileGET())
	auth.PUT("/users/me", HandleProfilePUT(d.Users))
	auth.POST("/users/me/avatar", HandleAvatarPOST(d.Users, d.Avatars))

	auth.POST("/notes", HandleNotesPOST(d.Notes))
	auth.GET("/notes", HandleNotesGET(d.Notes))
	auth.GET("/notes/:note_id", HandleNoteGET(d.Notes))
	auth.PUT("/notes/:note_id", HandleNotePUT(d.Notes))
	auth.DELETE("/notes/:note_id", HandleNoteDELETE(d.Notes))

	auth.POST("/watchlist", HandleWatchlistPOST(d.Watchlist))
	auth.GET("/watchlist", HandleWatchlistGET(d.Watchlist))
	auth.DELETE("/watchlist/:movie_id", HandleWatchlistDELETE(d.Watchlist))
	auth.GET("/watchlist/check/:movie_id", HandleWatchlistCheckGET(d.Watchlist))

	// Admin.
	admin := auth.Group("/admin")
	admin.Use(authgin.RequireRole(identity.RoleAdmin))

	admin.GET("/users", HandleAdminUsersGET(d.Users))
	admin.GET("/users/:user_id", HandleAdminUserGET(d.Users))
	admin.DELETE("/users/:user_id", HandleAdminUserDeactivateDELETE(d.Users))
	admin.PUT("/users/:user_id/activate", HandleAdminUserActivatePUT(d.Users))
	admin.POST("/users/:user_id/role", HandleAdminPromotePOST(d.Users))

	admin.GET("/notes", HandleAdminNotesGET(d.Notes))
	admin.GET("/notes/authors", HandleAdminNoteAuthorsGET(d.Notes))

	return r
}
