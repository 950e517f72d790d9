package domain

// Platform identifies a storefront review source.
type Platform string

const (
	GooglePlay Platform = "google-play"
	AppStore   Platform = "app-store"
)

// Sort modes accepted per platform.
const (
	SortNewest      = "newest"
	SortRating      = "rating"
	SortHelpfulness = "helpfulness"

	SortMostRecent  = "mostRecent"
	SortMostHelpful = "mostHelpful"
)

// Review is a single end-user review normalized to a platform-neutral shape.
// Platform-specific extras are zero-valued for the other platform.
type Review struct {
	ID          string `json:"id"`
	Author      string `json:"userName"`
	Body        string `json:"content"`
	Rating      int    `json:"score"`
	SubmittedAt string `json:"date"` // source format preserved
	Version     string `json:"version,omitempty"`

	// Google Play only
	ThumbsUp  int    `json:"thumbsUp,omitempty"`
	ReplyBody string `json:"replyContent,omitempty"`
	ReplyAt   string `json:"replyDate,omitempty"`

	// App Store only
	Title     string `json:"title,omitempty"`
	Permalink string `json:"url,omitempty"`
}

// AppDetails is the scraped storefront listing for an app.
type AppDetails struct {
	AppID     string `json:"appId"`
	Title     string `json:"title"`
	Developer string `json:"developer,omitempty"`
	Genre     string `json:"genre,omitempty"`
	Score     string `json:"score,omitempty"`
}
