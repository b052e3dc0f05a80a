package transfer

type PostCreation struct {
	Text         string   `json:"text"`
	Platforms    []string `json:"platforms"`
	ScheduledFor string   `json:"scheduled_for"`
	Media        []string `json:"media"`
	Schedule     bool     `json:"schedule"`
	CampaignID   int64    `json:"campaign_id"`
}

type PostEdit struct {
	Text         *string   `json:"text"`
	Platforms    *[]string `json:"platforms"`
	ScheduledFor *string   `json:"scheduled_for"`
	Media        *[]string `json:"media"`
}

type Reschedule struct {
	ScheduledFor string `json:"scheduled_for"`
}

type CampaignCreation struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

type MediaUpload struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	MIME string `json:"mime"`
}

type TickResponse struct {
	Queued    bool   `json:"queued"`
	Ran       bool   `json:"ran"`
	TickID    string `json:"tick_id,omitempty"`
	Posts     int    `json:"posts"`
	Attempted int    `json:"attempted"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	Unsent    int    `json:"unsent"`
}

// CampaignImportEntry is one post of a content calendar file. ID picks the
// posting slot of the day and ScheduleDays the offset from the start day.
type CampaignImportEntry struct {
	ID           int      `json:"id"`
	Content      string   `json:"content"`
	Platforms    []string `json:"platforms"`
	ScheduleDays int      `json:"schedule_days"`
	Media        []string `json:"media"`
}

type CampaignImport struct {
	StartDate string                `json:"start_date"`
	Posts     []CampaignImportEntry `json:"posts"`
}

type CampaignImportResult struct {
	CampaignID int64    `json:"campaign_id"`
	Imported   int      `json:"imported"`
	FirstDate  string   `json:"first_date,omitempty"`
	LastDate   string   `json:"last_date,omitempty"`
	PostIDs    []int64  `json:"post_ids"`
	Platforms  []string `json:"platforms"`
}
