package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"blogapi/models"
	"blogapi/services"

	"github.com/gin-gonic/gin"
)

// CreatePostRequest has no author or id fields; both come from the server.
type CreatePostRequest struct {
	Title   string `json:"title" binding:"required"`
	Image   string `json:"image" binding:"required"`
	Content string `json:"content" binding:"required"`
	Topic   string `json:"topic" binding:"required"`
}

type EditPostRequest struct {
	Title   *string `json:"title"`
	Image   *string `json:"image"`
	Content *string `json:"content"`
	Topic   *string `json:"topic"`
}

type PostHandler struct {
	posts   *services.PostService
	timeout time.Duration
	log     *slog.Logger
}

func NewPostHandler(posts *services.PostService, timeout time.Duration, log *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, timeout: timeout, log: log}
}

func (h *PostHandler) Create(c *gin.Context) {
	who, found := identity(c)
	if !found {
		return
	}
	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, bindError(err))
		return
	}

	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	post, err := h.posts.Create(ctx, who, services.CreatePostInput{
		Title:   req.Title,
		Image:   req.Image,
		Content: req.Content,
		Topic:   req.Topic,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, "Blog created successfully", post)
}

func (h *PostHandler) Edit(c *gin.Context) {
	who, found := identity(c)
	if !found {
		return
	}
	var req EditPostRequest
	// an empty body is an empty patch
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, bindError(err))
		return
	}

	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	post, err := h.posts.Edit(ctx, who, c.Param("id"), models.PostPatch{
		Title:   req.Title,
		Image:   req.Image,
		Content: req.Content,
		Topic:   req.Topic,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, "Blog updated successfully", post)
}

func (h *PostHandler) Delete(c *gin.Context) {
	who, found := identity(c)
	if !found {
		return
	}

	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	if err := h.posts.Delete(ctx, who, c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, "Blog deleted successfully", nil)
}

func (h *PostHandler) GetAll(c *gin.Context) {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	posts, err := h.posts.GetAll(ctx)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, "Blogs found", posts)
}

func (h *PostHandler) GetOne(c *gin.Context) {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	post, err := h.posts.GetOne(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, "Blog found", post)
}

// GetByTopic serves /getblogbytopic/:topic.
func (h *PostHandler) GetByTopic(c *gin.Context) {
	h.byTopic(c, c.Param("topic"))
}

// GetByQuery serves /getblogsbyquery?topic=.
func (h *PostHandler) GetByQuery(c *gin.Context) {
	h.byTopic(c, c.Query("topic"))
}

func (h *PostHandler) byTopic(c *gin.Context, topic string) {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	posts, err := h.posts.GetByTopic(ctx, topic)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, "Blogs found", posts)
}

// GetByMultipleQueries serves /getblogsbymultiplequeries?topic=a&topic=b.
func (h *PostHandler) GetByMultipleQueries(c *gin.Context) {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	posts, err := h.posts.GetByTopics(ctx, c.QueryArray("topic"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok(c, "Blogs found", posts)
}
