package core

import (
	"context"
	"time"
)

// Prompt is the input to the AI content generator. Template names resolve
// against the persisted configuration document; Variables are substituted
// into the template by the generator adapter.
type Prompt struct {
	Template  string
	System    string
	Variables map[string]string
}

// Generator produces text from a prompt. Implementations wrap a hosted
// model API; calls carry a bounded timeout and may fail transiently.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// Profile is structured account data returned by the scraper.
type Profile struct {
	Username   string   `json:"username"`
	URL        string   `json:"profile_url"`
	FullName   string   `json:"full_name,omitempty"`
	Biography  string   `json:"biography,omitempty"`
	Followers  int      `json:"followers,omitempty"`
	IsBrand    bool     `json:"is_brand,omitempty"`
	Posts      []Post   `json:"posts,omitempty"`
	Candidates []string `json:"candidates,omitempty"` // non-empty when the lookup was ambiguous
}

// Ambiguous reports whether the scrape returned several candidate matches
// instead of one profile, requiring human disambiguation.
func (p *Profile) Ambiguous() bool { return len(p.Candidates) > 0 }

// Post is one scraped post belonging to a profile.
type Post struct {
	URL      string    `json:"url"`
	Caption  string    `json:"caption,omitempty"`
	Likes    int       `json:"likes,omitempty"`
	PostedAt time.Time `json:"posted_at,omitempty"`
}

// SearchPage is one page of profile discovery results.
type SearchPage struct {
	Page     int       `json:"page"`
	Profiles []Profile `json:"profiles"`
	HasMore  bool      `json:"has_more"`
}

// Scraper fetches public profile data. A network failure or rate limit is
// surfaced as a retryable CollaboratorError; invalid input is permanent.
type Scraper interface {
	// FetchProfile returns the profile for a username, or an ambiguous
	// profile listing candidate usernames.
	FetchProfile(ctx context.Context, username string) (*Profile, error)
	// SearchProfiles returns one page of discovery results for a query.
	SearchProfiles(ctx context.Context, query string, page, perPage int) (*SearchPage, error)
}

// MessageSender delivers one direct message. Send is side-effecting and is
// never retried blindly; the caller consults the sent ledger first so that
// replays and resumes stay at-most-once.
type MessageSender interface {
	Send(ctx context.Context, profileURL, text string) error
}

// SentRecord is one entry in the sent-message ledger.
type SentRecord struct {
	ProfileURL string    `json:"profile_url"`
	Username   string    `json:"username"`
	Message    string    `json:"message"`
	SentAt     time.Time `json:"sent_at"`
}

// SentLedger records delivered messages. It is the idempotence guard: a
// cursor is only advanced after Record succeeds, and Sent is checked before
// every send so a replayed resume cannot double-send.
type SentLedger interface {
	Sent(ctx context.Context, profileURL string) (bool, error)
	Record(ctx context.Context, rec SentRecord) error
}

// Upload is a stored CSV document consumed by the messaging workflow.
type Upload struct {
	Name     string    `json:"name"`
	Data     []byte    `json:"-"`
	Uploaded time.Time `json:"uploaded_at"`
}

// UploadStore holds uploaded CSV documents, newest first.
type UploadStore interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) (*Upload, error)
	// Latest returns the most recently uploaded document, or
	// ErrNoProfiles when nothing has been uploaded.
	Latest(ctx context.Context) (*Upload, error)
	List(ctx context.Context) ([]string, error)
}
