package breakhandler

import (
	"errors"
	"net/http"

	"breakauction/internal/breaks"
	"breakauction/internal/services/bidengine"
	"breakauction/internal/services/breakadmin"
	"breakauction/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Handler struct {
	admin breakadmin.IBreakService
	bids  bidengine.IBidEngine
}

func New(admin breakadmin.IBreakService, bids bidengine.IBidEngine) *Handler {
	return &Handler{admin: admin, bids: bids}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/breaks", h.list)
	r.POST("/breaks", h.create)
	r.GET("/breaks/:id", h.info)
	r.GET("/breaks/:id/board", h.board)
	r.GET("/breaks/:id/stats", h.stats)
	r.GET("/breaks/:id/winners", h.winners)
	r.POST("/breaks/:id/groups", h.addGroup)
	r.POST("/breaks/:id/schedule", h.schedule)
	r.POST("/breaks/:id/activate", h.activate)
	r.POST("/breaks/:id/cancel", h.cancel)
	r.POST("/breaks/:id/complete", h.complete)
	r.POST("/breaks/:id/channel", h.channel)
	r.GET("/groups/:id", h.group)
	r.PUT("/groups/:id", h.updateGroup)
	r.POST("/groups/:id/bids", h.bid)
}

// statusOf maps domain errors onto HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, breaks.ErrBreakNotFound),
		errors.Is(err, breaks.ErrGroupNotFound),
		errors.Is(err, breaks.ErrWinnerNotFound):
		return http.StatusNotFound
	case errors.Is(err, breaks.ErrInvalidAmount),
		errors.Is(err, breaks.ErrBidTooLow),
		errors.Is(err, breaks.ErrInvalidGroup),
		errors.Is(err, breaks.ErrInvalidBreak):
		return http.StatusUnprocessableEntity
	case errors.Is(err, breaks.ErrAuctionNotActive),
		errors.Is(err, breaks.ErrOutbid),
		errors.Is(err, breaks.ErrInvalidTransition),
		errors.Is(err, breaks.ErrNotExpired),
		errors.Is(err, breaks.ErrGroupHasBids),
		errors.Is(err, breaks.ErrGroupLocked):
		return http.StatusConflict
	case errors.Is(err, breaks.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("http.request_failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	resp := ErrorResponse{Error: err.Error()}
	var tooLow *breaks.BidTooLowError
	if errors.As(err, &tooLow) {
		resp.MinNext = tooLow.MinNext.String()
	}
	c.JSON(status, resp)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}

// @Summary		List breaks
// @Description	Retrieves a paginated list of breaks, optionally filtered by status.
// @Tags			Breaks
// @Param			status	query		string	false	"Status filter"			Enums(draft,scheduled,active,completed,cancelled)
// @Param			limit	query		int		false	"Max results (0-100)"	minimum(0)	maximum(100)	default(10)
// @Param			offset	query		int		false	"Offset for pagination"	minimum(0)	default(0)
// @Success		200		{array}		breaks.Break
// @Failure		400		{object}	ErrorResponse
// @Router			/breaks [get]
func (h *Handler) list(c *gin.Context) {
	var q ListBreaksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	out, err := h.admin.ListBreaks(c.Request.Context(), breaks.Status(q.Status), q.Limit, q.Offset)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary		Create a break
// @Description	Creates a draft break.
// @Tags			Breaks
// @Param			body	body		CreateBreakBody	true	"Break payload"
// @Success		201		{object}	breaks.Break
// @Failure		400		{object}	ErrorResponse
// @Failure		422		{object}	ErrorResponse
// @Router			/breaks [post]
func (h *Handler) create(c *gin.Context) {
	var body CreateBreakBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	b, err := h.admin.CreateBreak(c.Request.Context(), breakadmin.CreateBreakInput{
		Name:        body.Name,
		Description: body.Description,
		StartsAt:    body.StartsAt,
		EndsAt:      body.EndsAt,
		ChannelRef:  body.ChannelRef,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// @Summary		Get break details
// @Tags			Breaks
// @Param			id	path		string	true	"Break ID"
// @Success		200	{object}	breaks.Break
// @Failure		404	{object}	ErrorResponse
// @Router			/breaks/{id} [get]
func (h *Handler) info(c *gin.Context) {
	b, err := h.admin.GetBreak(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// @Summary		Board of a break
// @Description	Active groups in board order with their current and minimum next bid. Pass format=text for the channel rendering.
// @Tags			Breaks
// @Param			id		path		string	true	"Break ID"
// @Param			format	query		string	false	"Response format"	Enums(json,text)
// @Success		200		{object}	breakadmin.Board
// @Failure		404		{object}	ErrorResponse
// @Router			/breaks/{id}/board [get]
func (h *Handler) board(c *gin.Context) {
	bd, err := h.admin.Board(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if c.Query("format") == "text" {
		c.JSON(http.StatusOK, BoardResponse{Text: bd.Text()})
		return
	}
	c.JSON(http.StatusOK, bd)
}

// @Summary		Break statistics
// @Tags			Breaks
// @Param			id	path		string	true	"Break ID"
// @Success		200	{object}	breaks.Stats
// @Failure		404	{object}	ErrorResponse
// @Router			/breaks/{id}/stats [get]
func (h *Handler) stats(c *gin.Context) {
	st, err := h.admin.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary		Winners of a break
// @Tags			Breaks
// @Param			id	path		string	true	"Break ID"
// @Success		200	{array}		breaks.Winner
// @Failure		404	{object}	ErrorResponse
// @Router			/breaks/{id}/winners [get]
func (h *Handler) winners(c *gin.Context) {
	ws, err := h.admin.Winners(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ws)
}

// @Summary		Add a group
// @Description	Adds a group to a draft or scheduled break.
// @Tags			Groups
// @Param			id		path		string			true	"Break ID"
// @Param			body	body		CreateGroupBody	true	"Group payload"
// @Success		201		{object}	breaks.Group
// @Failure		409		{object}	ErrorResponse
// @Failure		422		{object}	ErrorResponse
// @Router			/breaks/{id}/groups [post]
func (h *Handler) addGroup(c *gin.Context) {
	var body CreateGroupBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	minBid, err := parseMoney(body.MinBid, true)
	if err != nil {
		fail(c, err)
		return
	}
	step, err := parseMoney(body.BidStep, false)
	if err != nil {
		fail(c, err)
		return
	}
	active := true
	if body.IsActive != nil {
		active = *body.IsActive
	}
	g, err := h.admin.AddGroup(c.Request.Context(), c.Param("id"), breakadmin.GroupInput{
		Name:     body.Name,
		Order:    body.Order,
		MinBid:   minBid,
		BidStep:  step,
		IsActive: active,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

// @Summary		Get a group
// @Tags			Groups
// @Param			id	path		string	true	"Group ID"
// @Success		200	{object}	breakadmin.GroupView
// @Failure		404	{object}	ErrorResponse
// @Router			/groups/{id} [get]
func (h *Handler) group(c *gin.Context) {
	g, err := h.admin.GetGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// @Summary		Update a group
// @Description	Pricing can only change while the group has no bids.
// @Tags			Groups
// @Param			id		path		string			true	"Group ID"
// @Param			body	body		UpdateGroupBody	true	"Fields to change"
// @Success		200		{object}	breaks.Group
// @Failure		409		{object}	ErrorResponse
// @Router			/groups/{id} [put]
func (h *Handler) updateGroup(c *gin.Context) {
	var body UpdateGroupBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	upd := store.GroupUpdate{Name: body.Name, Order: body.Order, IsActive: body.IsActive}
	if body.MinBid != nil {
		d, err := parseMoney(*body.MinBid, true)
		if err != nil {
			fail(c, err)
			return
		}
		upd.MinBid = &d
	}
	if body.BidStep != nil {
		d, err := parseMoney(*body.BidStep, false)
		if err != nil {
			fail(c, err)
			return
		}
		upd.BidStep = &d
	}
	g, err := h.admin.UpdateGroup(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// @Summary		Schedule a break
// @Tags			Lifecycle
// @Param			id	path	string	true	"Break ID"
// @Success		202
// @Failure		409	{object}	ErrorResponse
// @Router			/breaks/{id}/schedule [post]
func (h *Handler) schedule(c *gin.Context) {
	if err := h.admin.Schedule(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// @Summary		Activate a break
// @Description	Opens bidding and arms the deadline timer.
// @Tags			Lifecycle
// @Param			id	path	string	true	"Break ID"
// @Success		202
// @Failure		409	{object}	ErrorResponse
// @Router			/breaks/{id}/activate [post]
func (h *Handler) activate(c *gin.Context) {
	if err := h.admin.Activate(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// @Summary		Cancel a break
// @Tags			Lifecycle
// @Param			id	path	string	true	"Break ID"
// @Success		202
// @Failure		409	{object}	ErrorResponse
// @Router			/breaks/{id}/cancel [post]
func (h *Handler) cancel(c *gin.Context) {
	if err := h.admin.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// @Summary		Settle a break now
// @Description	Settles an expired break without waiting for the sweep. Idempotent.
// @Tags			Lifecycle
// @Param			id	path		string	true	"Break ID"
// @Success		200	{object}	settlement.Report
// @Failure		409	{object}	ErrorResponse
// @Router			/breaks/{id}/complete [post]
func (h *Handler) complete(c *gin.Context) {
	rep, err := h.admin.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// @Summary		Attach the channel post
// @Tags			Lifecycle
// @Param			id		path	string		true	"Break ID"
// @Param			body	body	ChannelBody	true	"Channel reference"
// @Success		202
// @Failure		404	{object}	ErrorResponse
// @Router			/breaks/{id}/channel [post]
func (h *Handler) channel(c *gin.Context) {
	var body ChannelBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.admin.AttachChannel(c.Request.Context(), c.Param("id"), body.ChannelRef); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// @Summary		Place a bid
// @Description	Bids on one group. The amount accepts "," or "." as decimal separator.
// @Tags			Groups
// @Param			id		path		string			true	"Group ID"
// @Param			body	body		PlaceBidBody	true	"Bid payload"
// @Success		201		{object}	breaks.Bid
// @Failure		409		{object}	ErrorResponse
// @Failure		422		{object}	ErrorResponse
// @Router			/groups/{id}/bids [post]
func (h *Handler) bid(c *gin.Context) {
	var body PlaceBidBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	amount, err := breaks.ParseAmount(body.Amount)
	if err != nil {
		fail(c, err)
		return
	}
	bid, err := h.bids.PlaceBid(c.Request.Context(), c.Param("id"), body.BidderID, amount)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, bid)
}

// parseMoney accepts the same formats as bids; zero is allowed for floors.
func parseMoney(raw string, allowZero bool) (decimal.Decimal, error) {
	if allowZero {
		if d, err := decimal.NewFromString(raw); err == nil && d.IsZero() {
			return d, nil
		}
	}
	d, err := breaks.ParseAmount(raw)
	if err != nil {
		return decimal.Zero, errors.Join(breaks.ErrInvalidGroup, err)
	}
	return d, nil
}
