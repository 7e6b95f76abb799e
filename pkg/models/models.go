package models

import (
	"strconv"
	"time"
)

// Status describes the outcome of a single target job.
type Status string

const (
	// StatusSuccess means the full requested range was fetched and exported.
	StatusSuccess Status = "success"
	// StatusPartial means the fetch stopped mid-stream but gathered records were exported.
	StatusPartial Status = "partial"
	// StatusFailed means nothing usable was exported for the target.
	StatusFailed Status = "failed"
)

// Profile is the looked-up target account a follower fetch runs against.
type Profile struct {
	UserID         string `json:"user_id"`
	Handle         string `json:"handle"`
	DisplayName    string `json:"display_name"`
	FollowersTotal int    `json:"followers_total"`
}

// Follower is one profile discovered to be following a target.
// Field order here matches the CSV column order.
type Follower struct {
	Rank        int       `json:"rank"`
	Handle      string    `json:"handle"`
	DisplayName string    `json:"display_name"`
	UserID      string    `json:"user_id"`
	Followers   int       `json:"followers"`
	Following   int       `json:"following"`
	Tweets      int       `json:"tweets"`
	Verified    bool      `json:"verified"`
	CreatedAt   time.Time `json:"created_at"`
	Bio         string    `json:"bio"`
}

// Export is the envelope written to the per-target JSON file.
type Export struct {
	Target               string     `json:"target_user"`
	TargetDisplayName    string     `json:"target_display_name"`
	TargetFollowersTotal int        `json:"target_followers_total"`
	FetchedCount         int        `json:"fetched_count"`
	FetchedAt            time.Time  `json:"fetched_at"`
	Followers            []Follower `json:"followers"`
}

// Summary is one row of the batch summary file, one per target job.
type Summary struct {
	Target     string `json:"target_handle"`
	Fetched    int    `json:"followers_fetched"`
	Status     Status `json:"status"`
	OutputFile string `json:"output_file_path"`
}

// FollowerCSVHeader is the fixed column order of the tabular export.
var FollowerCSVHeader = []string{
	"rank", "handle", "display_name", "user_id", "followers",
	"following", "tweets", "verified", "created_at", "bio",
}

// CSVRow flattens a follower into a row matching FollowerCSVHeader.
func (f Follower) CSVRow() []string {
	return []string{
		strconv.Itoa(f.Rank),
		f.Handle,
		f.DisplayName,
		f.UserID,
		strconv.Itoa(f.Followers),
		strconv.Itoa(f.Following),
		strconv.Itoa(f.Tweets),
		strconv.FormatBool(f.Verified),
		f.CreatedAt.UTC().Format(time.RFC3339),
		f.Bio,
	}
}

// SummaryCSVHeader is the fixed column order of the summary export.
var SummaryCSVHeader = []string{
	"target_handle", "followers_fetched", "status", "output_file_path",
}

// CSVRow flattens a summary into a row matching SummaryCSVHeader.
func (s Summary) CSVRow() []string {
	return []string{
		s.Target,
		strconv.Itoa(s.Fetched),
		string(s.Status),
		s.OutputFile,
	}
}
