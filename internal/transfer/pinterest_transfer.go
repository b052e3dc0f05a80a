package transfer

type PinRequest struct {
	BoardID     string         `json:"board_id"`
	Description string         `json:"description"`
	Title       string         `json:"title,omitempty"`
	MediaSource PinMediaSource `json:"media_source"`
}

type PinMediaSource struct {
	SourceType string `json:"source_type"`
	URL        string `json:"url"`
}

type PinResponse struct {
	ID string `json:"id"`
}

type PinterestErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
