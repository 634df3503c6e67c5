package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotes-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotes-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotes-service/internal/app"
	"github.com/jsamuelsen/quotes-service/internal/platform/logging"
)

const messageLikesReset = "All likes have been reset"

// QuoteHandlerConfig wires the application services behind the quote routes.
type QuoteHandlerConfig struct {
	Quotes  *app.QuoteService
	Likes   *app.LikeService
	Ranking *app.RankingService

	// Importer is optional. Without it POST /quotes/import is not registered.
	Importer *app.ImportService
}

// QuoteHandler handles the /api/quotes endpoints.
type QuoteHandler struct {
	quotes   *app.QuoteService
	likes    *app.LikeService
	ranking  *app.RankingService
	importer *app.ImportService
}

// NewQuoteHandler creates a new quote handler.
// Panics if Quotes, Likes or Ranking is nil.
func NewQuoteHandler(cfg QuoteHandlerConfig) *QuoteHandler {
	if cfg.Quotes == nil || cfg.Likes == nil || cfg.Ranking == nil {
		panic("handlers: Quotes, Likes and Ranking services are required")
	}

	return &QuoteHandler{
		quotes:   cfg.Quotes,
		likes:    cfg.Likes,
		ranking:  cfg.Ranking,
		importer: cfg.Importer,
	}
}

// RegisterQuoteRoutes registers the quote routes on rg. Static segments are
// registered before the :id routes. admin guards write operations; pass
// none to leave them open.
func (h *QuoteHandler) RegisterQuoteRoutes(rg *gin.RouterGroup, admin ...gin.HandlerFunc) {
	quotes := rg.Group("/quotes")

	guarded := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, admin...), handler)
	}

	quotes.GET("/random", h.GetRandom)
	quotes.GET("/top", h.GetTop)
	quotes.GET("/top/weekly", h.GetTopWeekly)
	quotes.GET("/top/alltime", h.GetTopAllTime)
	quotes.DELETE("/likes/reset", guarded(h.ResetLikes)...)

	if h.importer != nil {
		quotes.POST("/import", guarded(h.Import)...)
	}

	quotes.GET("", h.List)
	quotes.POST("", guarded(h.Create)...)
	quotes.GET("/:id", h.Get)
	quotes.PUT("/:id", guarded(h.Update)...)
	quotes.DELETE("/:id", guarded(h.Delete)...)
	quotes.PUT("/:id/like", h.Like)
	quotes.GET("/:id/is-liked", h.IsLiked)
}

// GetRandom handles GET /api/quotes/random.
func (h *QuoteHandler) GetRandom(c *gin.Context) {
	quote, err := h.quotes.Random(c.Request.Context(), middleware.GetVisitor(c))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(quote))
}

// GetTop handles GET /api/quotes/top. Either winner may be null.
func (h *QuoteHandler) GetTop(c *gin.Context) {
	top, err := h.ranking.Top(c.Request.Context(), middleware.GetVisitor(c))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewTopQuotesResponse(top))
}

// GetTopWeekly handles GET /api/quotes/top/weekly.
func (h *QuoteHandler) GetTopWeekly(c *gin.Context) {
	quote, err := h.ranking.TopWeekly(c.Request.Context(), middleware.GetVisitor(c))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(quote))
}

// GetTopAllTime handles GET /api/quotes/top/alltime.
func (h *QuoteHandler) GetTopAllTime(c *gin.Context) {
	quote, err := h.ranking.TopAllTime(c.Request.Context(), middleware.GetVisitor(c))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(quote))
}

// ResetLikes handles DELETE /api/quotes/likes/reset.
func (h *QuoteHandler) ResetLikes(c *gin.Context) {
	removed, err := h.likes.Reset(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ResetLikesResponse{Message: messageLikesReset, Removed: removed})
}

// Import handles POST /api/quotes/import?limit=n.
func (h *QuoteHandler) Import(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		dto.AbortWithCode(c, dto.ErrorCodeBadRequest, "limit must be an integer")
		return
	}

	ctx := c.Request.Context()

	created, err := h.importer.Import(ctx, limit)
	if err != nil && len(created) == 0 {
		dto.HandleError(c, err)
		return
	}

	resp := dto.NewImportResponse(created)
	if err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "partial import",
			slog.Int("imported", len(created)),
			slog.Any("error", err),
		)

		resp.Incomplete = true
	}

	c.JSON(http.StatusCreated, resp)
}

// List handles GET /api/quotes?page=&page_size=&search=.
func (h *QuoteHandler) List(c *gin.Context) {
	query := dto.ParseListRequest(c).ToQuery()

	list, err := h.quotes.List(c.Request.Context(), query, middleware.GetVisitor(c))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteListResponse(list.Page, list.Liked))
}

// Create handles POST /api/quotes.
func (h *QuoteHandler) Create(c *gin.Context) {
	var req dto.CreateQuoteRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		respondBindError(c, err)
		return
	}

	quote, err := h.quotes.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewQuoteResponse(quote))
}

// Get handles GET /api/quotes/:id.
func (h *QuoteHandler) Get(c *gin.Context) {
	quote, err := h.quotes.Get(c.Request.Context(), c.Param("id"), middleware.GetVisitor(c))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(quote))
}

// Update handles PUT /api/quotes/:id.
func (h *QuoteHandler) Update(c *gin.Context) {
	var req dto.UpdateQuoteRequest
	if err := dto.BindPatchAndValidate(c, &req); err != nil {
		respondBindError(c, err)
		return
	}

	quote, err := h.quotes.Update(c.Request.Context(), c.Param("id"), req.ToPatch(), middleware.GetVisitor(c))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(quote))
}

// Delete handles DELETE /api/quotes/:id.
func (h *QuoteHandler) Delete(c *gin.Context) {
	if err := h.quotes.Delete(c.Request.Context(), c.Param("id")); err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Like handles PUT /api/quotes/:id/like.
func (h *QuoteHandler) Like(c *gin.Context) {
	quote, err := h.likes.Like(c.Request.Context(), c.Param("id"), middleware.GetVisitor(c))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(quote))
}

// IsLiked handles GET /api/quotes/:id/is-liked.
func (h *QuoteHandler) IsLiked(c *gin.Context) {
	liked, err := h.quotes.IsLiked(c.Request.Context(), c.Param("id"), middleware.GetVisitor(c))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.IsLikedResponse{IsLiked: liked})
}

func respondBindError(c *gin.Context, err error) {
	if errors.Is(err, dto.ErrValidation) {
		resp := dto.NewErrorResponseWithDetails(dto.ErrorCodeValidation, "invalid request", dto.ValidationErrors(err))
		c.AbortWithStatusJSON(http.StatusBadRequest, resp.WithTraceID(dto.GetTraceID(c)))

		return
	}

	dto.AbortWithCode(c, dto.ErrorCodeBadRequest, "invalid request body")
}
