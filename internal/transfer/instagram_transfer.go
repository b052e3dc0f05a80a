package transfer

// GraphID is the body of most Graph API create calls.
type GraphID struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

type InstagramContainerStatus struct {
	ID         string `json:"id"`
	StatusCode string `json:"status_code"` // EXPIRED, ERROR, FINISHED, IN_PROGRESS, PUBLISHED
	Status     string `json:"status"`
}

type GraphErrorResponse struct {
	Error struct {
		Message        string `json:"message"`
		Type           string `json:"type"`
		Code           int    `json:"code"`
		ErrorSubcode   int    `json:"error_subcode"`
		IsTransient    bool   `json:"is_transient"`
		ErrorUserTitle string `json:"error_user_title"`
		ErrorUserMsg   string `json:"error_user_msg"`
		FbtraceID      string `json:"fbtrace_id"`
	} `json:"error"`
}
