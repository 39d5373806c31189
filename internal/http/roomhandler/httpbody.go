package roomhandler

type RoomStatusQuery struct {
	RoomID string `uri:"id" binding:"required"`
} // @name RoomStatusQuery

type RoomStatusResponse struct {
	Exists  bool `json:"exists"`
	CanJoin bool `json:"canJoin"`
} // @name RoomStatusResponse

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse
