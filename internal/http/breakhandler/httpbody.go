package breakhandler

import "time"

type ErrorResponse struct {
	Error   string `json:"error"`
	MinNext string `json:"min_next,omitempty" example:"200"`
} // @name ErrorResponse

type ListBreaksQuery struct {
	Status string `form:"status"`
	Limit  int    `form:"limit"  binding:"min=0,max=100"`
	Offset int    `form:"offset" binding:"min=0"`
}

type CreateBreakBody struct {
	Name        string    `json:"name"        binding:"required"                  example:"Friday break"`
	Description string    `json:"description"                                     example:"Box #12"`
	StartsAt    time.Time `json:"starts_at"   binding:"required"                  example:"2025-07-27T16:05:05Z"`
	EndsAt      time.Time `json:"ends_at"     binding:"required,gtfield=StartsAt" example:"2025-07-27T18:05:05Z"`
	ChannelRef  string    `json:"channel_ref"                                     example:"@breaks_channel"`
} // @name CreateBreakRequest

// Money fields are strings so clients can send "1500,50".
type CreateGroupBody struct {
	Name     string `json:"name"      binding:"required" example:"Lakers"`
	Order    int    `json:"order"     binding:"min=0"    example:"0"`
	MinBid   string `json:"min_bid"   binding:"required" example:"100"`
	BidStep  string `json:"bid_step"  binding:"required" example:"50"`
	IsActive *bool  `json:"is_active"                    example:"true"`
} // @name CreateGroupRequest

type UpdateGroupBody struct {
	Name     *string `json:"name"      example:"Lakers"`
	Order    *int    `json:"order"     binding:"omitempty,min=0" example:"1"`
	MinBid   *string `json:"min_bid"   example:"100"`
	BidStep  *string `json:"bid_step"  example:"50"`
	IsActive *bool   `json:"is_active" example:"false"`
} // @name UpdateGroupRequest

type PlaceBidBody struct {
	BidderID string `json:"bidder_id" binding:"required" example:"user123"`
	Amount   string `json:"amount"    binding:"required" example:"1500,50"`
} // @name PlaceBidRequest

type ChannelBody struct {
	ChannelRef string `json:"channel_ref" binding:"required" example:"@breaks_channel"`
} // @name ChannelRequest

type BoardResponse struct {
	Text string `json:"text" example:"1 - 500\n2 - 300"`
} // @name BoardTextResponse
