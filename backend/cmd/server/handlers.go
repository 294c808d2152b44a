package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fritter-circles/backend/internal/feed"
	"fritter-circles/backend/internal/graph"
	"fritter-circles/backend/internal/preview"
	apperrors "fritter-circles/backend/pkg/errors"
)

// api bundles the handler dependencies
type api struct {
	repo       *graph.Repository
	enricher   *feed.Enricher
	previews   *preview.Extractor // nil when previews are disabled
	adminToken string
	logger     *zap.Logger
}

// freetResponse is one feed entry on the wire: the enriched freet plus the
// per-post error tag and optional link preview
type freetResponse struct {
	feed.EnrichedFreet
	Flagged bool             `json:"flagged"`
	Error   string           `json:"error,omitempty"`
	Preview *preview.Preview `json:"preview,omitempty"`
}

func (a *api) registerRoutes(r *gin.RouterGroup) {
	r.POST("/users", a.createUser)
	r.DELETE("/users/:username", a.deleteUser)

	r.GET("/freets", a.listFreets)
	r.POST("/freets", a.createFreet)
	r.DELETE("/freets/:id", a.deleteFreet)

	r.GET("/follows", a.listFollows)
	r.POST("/follows", a.createFollow)
	r.DELETE("/follows/:followee", a.deleteFollow)

	r.GET("/circles", a.listCircles)
	r.POST("/circles", a.createCircle)
	r.PATCH("/circles/:name", a.updateCircle)
	r.DELETE("/circles/:name", a.deleteCircle)

	r.GET("/botscores", a.getBotscore)
	r.PATCH("/botscores/threshold", a.setThreshold)
	r.PUT("/botscores/:username/score", a.setScore)
}

// caller returns the requesting identity. Authentication proper is out of
// scope; the identity arrives in a header set by the front-end session
// layer.
func caller(c *gin.Context) string {
	return c.GetHeader("X-Username")
}

func (a *api) requireCaller(c *gin.Context) (string, bool) {
	username := caller(c)
	if username == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "not signed in"})
		return "", false
	}
	return username, true
}

// fail maps the error taxonomy onto HTTP statuses
func (a *api) fail(c *gin.Context, err error) {
	switch {
	case apperrors.IsErrorType(err, apperrors.ErrorTypeValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperrors.IsErrorType(err, apperrors.ErrorTypeAuthorization):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperrors.IsErrorType(err, apperrors.ErrorTypeConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		a.logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// Users

func (a *api) createUser(c *gin.Context) {
	var req struct {
		Username    string `json:"username" binding:"required"`
		DisplayName string `json:"display_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := a.repo.CreateUser(c.Request.Context(), req.Username, req.DisplayName)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (a *api) deleteUser(c *gin.Context) {
	actor, ok := a.requireCaller(c)
	if !ok {
		return
	}
	username := c.Param("username")
	if actor != username {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot delete another user"})
		return
	}

	if err := a.repo.DeleteUser(c.Request.Context(), username); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
}

// Freets

func (a *api) listFreets(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		freets []graph.Freet
		err    error
	)
	if author := c.Query("author"); author != "" {
		freets, err = a.repo.ListFreetsByAuthor(ctx, author)
	} else {
		freets, err = a.repo.ListFreets(ctx)
	}
	if err != nil {
		a.fail(c, err)
		return
	}

	enriched, err := a.enricher.Enrich(ctx, freets)
	if err != nil {
		a.fail(c, err)
		return
	}

	if c.Query("filter") == "visible" {
		viewer := c.Query("viewer")
		if viewer == "" {
			viewer = caller(c)
		}
		enriched = feed.VisibleTo(viewer, enriched)
	}

	withPreviews := a.previews != nil && c.Query("previews") == "1"

	response := make([]freetResponse, len(enriched))
	for i, e := range enriched {
		response[i] = freetResponse{EnrichedFreet: e, Flagged: e.Flagged()}
		if e.Err != nil {
			response[i].Error = e.Err.Error()
		}
		if withPreviews {
			if url := preview.FirstURL(e.Body); url != "" {
				if p, err := a.previews.Fetch(ctx, url); err == nil {
					response[i].Preview = p
				}
			}
		}
	}

	c.JSON(http.StatusOK, response)
}

func (a *api) createFreet(c *gin.Context) {
	author, ok := a.requireCaller(c)
	if !ok {
		return
	}

	var req struct {
		Body   string `json:"body" binding:"required"`
		Circle string `json:"circle"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	freet, err := a.repo.CreateFreet(c.Request.Context(), author, req.Body, req.Circle)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"freet": freet})
}

func (a *api) deleteFreet(c *gin.Context) {
	actor, ok := a.requireCaller(c)
	if !ok {
		return
	}

	if err := a.repo.DeleteFreet(c.Request.Context(), actor, c.Param("id")); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "freet deleted"})
}

// Follows

func (a *api) listFollows(c *gin.Context) {
	ctx := c.Request.Context()

	if follower := c.Query("follower"); follower != "" {
		following, err := a.repo.FollowingOf(ctx, follower)
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"follower": follower, "following": following})
		return
	}

	followee := c.Query("followee")
	if followee == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "follower or followee query parameter required"})
		return
	}
	followers, err := a.repo.FollowersOf(ctx, followee)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"followee": followee, "followers": followers})
}

func (a *api) createFollow(c *gin.Context) {
	follower, ok := a.requireCaller(c)
	if !ok {
		return
	}

	var req struct {
		Followee string `json:"followee" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := a.repo.Follow(c.Request.Context(), follower, req.Followee); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "followed", "followee": req.Followee})
}

func (a *api) deleteFollow(c *gin.Context) {
	follower, ok := a.requireCaller(c)
	if !ok {
		return
	}

	if err := a.repo.Unfollow(c.Request.Context(), follower, c.Param("followee")); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "unfollowed"})
}

// Circles

func (a *api) listCircles(c *gin.Context) {
	creator := c.Query("username")
	if creator == "" {
		creator = caller(c)
	}
	if creator == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username query parameter required"})
		return
	}

	circles, err := a.repo.CirclesOf(c.Request.Context(), creator)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, circles)
}

func (a *api) createCircle(c *gin.Context) {
	creator, ok := a.requireCaller(c)
	if !ok {
		return
	}

	var req struct {
		Name    string   `json:"name" binding:"required"`
		Members []string `json:"members"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	circle, err := a.repo.CreateCircle(c.Request.Context(), creator, req.Name, req.Members)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"circle": circle})
}

func (a *api) updateCircle(c *gin.Context) {
	actor, ok := a.requireCaller(c)
	if !ok {
		return
	}
	name := c.Param("name")

	var req struct {
		Name    *string   `json:"name"`
		Members *[]string `json:"members"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == nil && req.Members == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	ctx := c.Request.Context()
	if req.Members != nil {
		if err := a.repo.ReplaceCircleMembers(ctx, actor, actor, name, *req.Members); err != nil {
			a.fail(c, err)
			return
		}
	}
	if req.Name != nil {
		if err := a.repo.RenameCircle(ctx, actor, actor, name, *req.Name); err != nil {
			a.fail(c, err)
			return
		}
		name = *req.Name
	}

	circle, err := a.repo.ResolveCircle(ctx, actor, name)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"circle": circle})
}

func (a *api) deleteCircle(c *gin.Context) {
	actor, ok := a.requireCaller(c)
	if !ok {
		return
	}

	if err := a.repo.DeleteCircle(c.Request.Context(), actor, actor, c.Param("name")); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "circle deleted"})
}

// Botscores

func (a *api) getBotscore(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username query parameter required"})
		return
	}

	score, err := a.repo.GetBotscore(c.Request.Context(), username)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, score)
}

func (a *api) setThreshold(c *gin.Context) {
	username, ok := a.requireCaller(c)
	if !ok {
		return
	}

	var req struct {
		Threshold *int `json:"threshold" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	score, err := a.repo.SetBotscoreThreshold(c.Request.Context(), username, *req.Threshold)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, score)
}

// setScore is the privileged score setter; it requires the admin token
// rather than a signed-in user.
func (a *api) setScore(c *gin.Context) {
	if a.adminToken == "" || c.GetHeader("X-Admin-Token") != a.adminToken {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin token required"})
		return
	}

	var req struct {
		Score *int `json:"score" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	score, err := a.repo.SetBotscore(c.Request.Context(), c.Param("username"), *req.Score)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, score)
}
