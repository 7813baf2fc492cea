package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	authgin "github.com/streamtrack/streamtrack/adapters/gin"
	"github.com/streamtrack/streamtrack/lang"
	"github.com/streamtrack/streamtrack/tmdb"
)

func validMediaType(t string) bool { return t == "movie" || t == "tv" }

func locale(c *gin.Context) string { return lang.Locale(c.Request.Context()) }

// forward proxies a TMDB response through verbatim. Upstream failures map to
// an error without leaking the upstream URL or key.
func forward(c *gin.Context, client *tmdb.Client, path string, params url.Values) {
	body, status, err := client.Get(c.Request.Context(), path, params)
	if err != nil {
		authgin.Unavailable(c, "metadata service unreachable")
		return
	}
	if status != http.StatusOK {
		c.JSON(status, gin.H{"error": "upstream_error", "reason": "error fetching data from TMDB"})
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

func HandleTMDBSearchGET(client *tmdb.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Query("query")
		if query == "" {
			authgin.BadRequest(c, "missing query")
			return
		}
		forward(c, client, "/search/multi", url.Values{
			"query":    {query},
			"language": {locale(c)},
		})
	}
}

func HandleTMDBDetailsGET(client *tmdb.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		mediaType := c.Param("media_type")
		if !validMediaType(mediaType) {
			authgin.BadRequest(c, "media_type must be 'movie' or 'tv'")
			return
		}
		forward(c, client, "/"+mediaType+"/"+c.Param("media_id"), url.Values{"language": {locale(c)}})
	}
}

func HandleTMDBGenresGET(client *tmdb.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		mediaType := c.Param("media_type")
		if !validMediaType(mediaType) {
			authgin.BadRequest(c, "media_type must be 'movie' or 'tv'")
			return
		}
		forward(c, client, "/genre/"+mediaType+"/list", url.Values{"language": {locale(c)}})
	}
}

func HandleTMDBProvidersGET(client *tmdb.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		mediaType := c.Param("media_type")
		if !validMediaType(mediaType) {
			authgin.BadRequest(c, "media_type must be 'movie' or 'tv'")
			return
		}
		region := strings.ToUpper(c.DefaultQuery("watch_region", "PL"))
		forward(c, client, "/watch/providers/"+mediaType, url.Values{
			"language":     {locale(c)},
			"watch_region": {region},
		})
	}
}

func HandleTMDBDiscoverGET(client *tmdb.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		mediaType := c.Param("media_type")
		if !validMediaType(mediaType) {
			authgin.BadRequest(c, "media_type must be 'movie' or 'tv'")
			return
		}
		params := url.Values{
			"language":      {locale(c)},
			"watch_region":  {strings.ToUpper(c.DefaultQuery("watch_region", "PL"))},
			"page":          {c.DefaultQuery("page", "1")},
			"sort_by":       {c.DefaultQuery("sort_by", "popularity.desc")},
			"include_adult": {"false"},
		}
		if v := c.Query("with_genres"); v != "" {
			params.Set("with_genres", v)
		}
		if v := c.Query("with_watch_providers"); v != "" {
			params.Set("with_watch_providers", v)
		}
		forward(c, client, "/discover/"+mediaType, params)
	}
}
