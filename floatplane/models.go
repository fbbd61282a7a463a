package floatplane

import "time"

type ImageVariant struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Path   string `json:"path"`
}

type Icon struct {
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	Path        string         `json:"path"`
	ChildImages []ImageVariant `json:"childImages,omitempty"`
}

type Plan struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       string `json:"price"`
	PriceYearly string `json:"priceYearly"`
	Currency    string `json:"currency"`
	Interval    string `json:"interval"` // "month" | "year"
	Featured    bool   `json:"featured"`
}

type LiveStream struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	StreamPath  string   `json:"streamPath"`
	Offline     *Offline `json:"offline,omitempty"`
}

type Offline struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// BaseCreator is the summary returned by the creator list.
type BaseCreator struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URLName     string `json:"urlname"`
	Description string `json:"description"`
	About       string `json:"about"`
	Icon        Icon   `json:"icon"`
	Cover       *Icon  `json:"cover,omitempty"`
}

// Creator is the full profile, including live stream and plans.
type Creator struct {
	BaseCreator
	DefaultChannel         string      `json:"defaultChannel"`
	Channels               []string    `json:"channels"`
	Discoverable           bool        `json:"discoverable"`
	SubscriberCountDisplay string      `json:"subscriberCountDisplay"`
	IncomeDisplay          bool        `json:"incomeDisplay"`
	LiveStream             *LiveStream `json:"liveStream,omitempty"`
	SubscriptionPlans      []Plan      `json:"subscriptionPlans"`
}

type Subscription struct {
	Creator          string    `json:"creator"`
	StartDate        time.Time `json:"startDate"`
	EndDate          time.Time `json:"endDate"`
	Interval         string    `json:"interval"`
	PaymentCancelled bool      `json:"paymentCancelled"`
	PaymentID        int       `json:"paymentID"`
	Plan             Plan      `json:"plan"`
}

type QualityLevel struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Label  string `json:"label"`
	Order  int    `json:"order"`
}

// ContentVideo is the full metadata for one video, including the quality
// levels a FeedItem does not carry.
type ContentVideo struct {
	ID              string         `json:"id"`
	GUID            string         `json:"guid"`
	Title           string         `json:"title"`
	Type            string         `json:"type"`
	Description     string         `json:"description"`
	ReleaseDate     time.Time      `json:"releaseDate"`
	Duration        float64        `json:"duration"`
	Creator         string         `json:"creator"`
	PrimaryBlogPost string         `json:"primaryBlogPost"`
	Thumbnail       *Icon          `json:"thumbnail,omitempty"`
	Levels          []QualityLevel `json:"levels"`
}

type PostMetadata struct {
	HasVideo      bool    `json:"hasVideo"`
	VideoCount    int     `json:"videoCount"`
	VideoDuration float64 `json:"videoDuration"`
	HasAudio      bool    `json:"hasAudio"`
	HasPicture    bool    `json:"hasPicture"`
}

// FeedItem is one post in a creator's feed or search results.
type FeedItem struct {
	ID               string       `json:"id"`
	GUID             string       `json:"guid"`
	Title            string       `json:"title"`
	Text             string       `json:"text"`
	Type             string       `json:"type"`
	ReleaseDate      time.Time    `json:"releaseDate"`
	Creator          BaseCreator  `json:"creator"`
	Metadata         PostMetadata `json:"metadata"`
	VideoAttachments []string     `json:"videoAttachments"`
	Thumbnail        *Icon        `json:"thumbnail,omitempty"`
}

type DeliveryResource struct {
	URI  string       `json:"uri"`
	Data DeliveryData `json:"data"`
}

type DeliveryData struct {
	QualityLevels []QualityLevel `json:"qualityLevels"`
	// level name -> placeholder -> value, e.g. "1080" -> "4" -> token
	QualityLevelParams map[string]map[string]string `json:"qualityLevelParams"`
}

// DeliveryKey authorises streaming one video or live stream. Keys are
// generated on demand and never cached.
type DeliveryKey struct {
	CDN      string           `json:"cdn"`
	Strategy string           `json:"strategy"`
	Resource DeliveryResource `json:"resource"`
}
