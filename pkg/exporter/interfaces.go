package exporter

import (
	"context"

	"xfollowers/pkg/models"
)

// Source defines the follower-enumeration operations the exporter needs.
// The production implementation wraps the scraping library; tests use stubs.
type Source interface {
	// LookupUser resolves a target handle to a profile. An error here means
	// the fetch for that target never starts.
	LookupUser(ctx context.Context, handle string) (*models.Profile, error)

	// Followers enumerates followers of a user. limit 0 means unbounded.
	// On a mid-stream error the records gathered so far are returned
	// alongside the error.
	Followers(ctx context.Context, userID string, limit int) ([]models.Follower, error)
}

// Store writes the export artifacts for a run. The production
// implementation is storage.Manager; tests inject write failures through
// this seam. Each method returns the path it wrote.
type Store interface {
	WriteJSON(export *models.Export, stamp string) (string, error)
	WriteCSV(export *models.Export, stamp string) (string, error)
	WriteSummary(summaries []models.Summary, stamp string) (string, error)
}
