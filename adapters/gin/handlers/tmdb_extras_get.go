package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	authgin "github.com/streamtrack/streamtrack/adapters/gin"
	"github.com/streamtrack/streamtrack/tmdb"
)

// forwardOrEmpty is forward with a graceful degrade: when the upstream call
// fails or returns a non-200, the client gets 200 with an empty shape so
// detail pages render without the optional section.
func forwardOrEmpty(c *gin.Context, client *tmdb.Client, path string, params url.Values, empty gin.H) {
	body, status, err := client.Get(c.Request.Context(), path, params)
	if err != nil || status != http.StatusOK {
		c.JSON(http.StatusOK, empty)
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

func HandleTMDBCreditsGET(client *tmdb.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		mediaType := c.Param("media_type")
		if !validMediaType(mediaType) {
			authgin.BadRequest(c, "media_type must be 'movie' or 'tv'")
			return
		}
		forwardOrEmpty(c, client, "/"+mediaType+"/"+c.Param("media_id")+"/credits",
			url.Values{"language": {locale(c)}},
			gin.H{"cast": []any{}, "crew": []any{}})
	}
}

func HandleTMDBVideosGET(client *tmdb.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		mediaType := c.Param("media_type")
		if !validMediaType(mediaType) {
			authgin.BadRequest(c, "media_type must be 'movie' or 'tv'")
			return
		}
		forwardOrEmpty(c, client, "/"+mediaType+"/"+c.Param("media_id")+"/videos",
			url.Values{"language": {locale(c)}},
			gin.H{"results": []any{}})
	}
}

func HandleTMDBSimilarGET(client *tmdb.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		mediaType := c.Param("media_type")
		if !validMediaType(mediaType) {
			authgin.BadRequest(c, "media_type must be 'movie' or 'tv'")
			return
		}
		forwardOrEmpty(c, client, "/"+mediaType+"/"+c.Param("media_id")+"/similar",
			url.Values{
				"language": {locale(c)},
				"page":     {c.DefaultQuery("page", "1")},
			},
			gin.H{"results": []any{}})
	}
}

func HandleTMDBReviewsGET(client *tmdb.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		mediaType := c.Param("media_type")
		if !validMediaType(mediaType) {
			authgin.BadRequest(c, "media_type must be 'movie' or 'tv'")
			return
		}
		forwardOrEmpty(c, client, "/"+mediaType+"/"+c.Param("media_id")+"/reviews",
			url.Values{"page": {c.DefaultQuery("page", "1")}},
			gin.H{"results": []any{}, "total_results": 0})
	}
}

func HandleTMDBExternalIDsGET(client *tmdb.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		mediaType := c.Param("media_type")
		if !validMediaType(mediaType) {
			authgin.BadRequest(c, "media_type must be 'movie' or 'tv'")
			return
		}
		forwardOrEmpty(c, client, "/"+mediaType+"/"+c.Param("media_id")+"/external_ids",
			url.Values{}, gin.H{})
	}
}

// HandleTMDBItemProvidersGET returns the watch providers for one title,
// filtered down to a single region. TMDB keys the payload by country code,
// so this one cannot be forwarded verbatim.
func HandleTMDBItemProvidersGET(client *tmdb.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		mediaType := c.Param("media_type")
		if !validMediaType(mediaType) {
			authgin.BadRequest(c, "media_type must be 'movie' or 'tv'")
			return
		}
		region := strings.ToUpper(c.DefaultQuery("watch_region", "PL"))

		body, status, err := client.Get(c.Request.Context(),
			"/"+mediaType+"/"+c.Param("media_id")+"/watch/providers", url.Values{})
		if err != nil || status != http.StatusOK {
			c.JSON(http.StatusOK, gin.H{"results": gin.H{}})
			return
		}

		var payload struct {
			Results map[string]json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			c.JSON(http.StatusOK, gin.H{"results": gin.H{}})
			return
		}
		results := gin.H{}
		if raw, ok := payload.Results[region]; ok {
			results[region] = raw
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}
