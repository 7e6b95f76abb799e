package exporter

import (
	"context"
	"time"

	apperrors "xfollowers/pkg/errors"
	"xfollowers/pkg/logger"
	"xfollowers/pkg/models"
	"xfollowers/pkg/ui"
)

// stampLayout matches followers_<handle>_20251102_213045.json
const stampLayout = "20060102_150405"

// Options is the shared configuration for one batch run.
type Options struct {
	// Limit is the per-target follower cap. 0 means fetch until the
	// source reports exhaustion.
	Limit int

	// Timestamp suffixes output filenames with the capture time so
	// repeated runs never overwrite prior captures.
	Timestamp bool

	// TargetDelay is the pause between consecutive targets. The shared
	// account pool is rate limited; batches stay polite.
	TargetDelay time.Duration
}

// Exporter runs the sequential per-target fetch-and-export loop.
// Targets are processed one at a time: the authenticated account pool is a
// shared, rate-limited resource and concurrent fetches would contend for
// the same small set of sessions.
type Exporter struct {
	source Source
	store  Store
	opts   Options
	logger logger.Logger
	now    func() time.Time
}

// New creates an Exporter over the given source and store.
func New(source Source, store Store, opts Options) *Exporter {
	return &Exporter{
		source: source,
		store:  store,
		opts:   opts,
		logger: logger.GetLogger(),
		now:    time.Now,
	}
}

// Run processes every target in order and returns one summary row per
// target, in input order. A failing target never affects the others; the
// returned error is non-nil only when the summary file itself could not
// be written.
func (e *Exporter) Run(ctx context.Context, targets []string) ([]models.Summary, error) {
	stamp := ""
	if e.opts.Timestamp {
		stamp = e.now().Format(stampLayout)
	}

	seen := make(map[string]bool, len(targets))
	summaries := make([]models.Summary, 0, len(targets))

	for i, target := range targets {
		if i > 0 && e.opts.TargetDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(e.opts.TargetDelay):
			}
		}

		// The stamp is shared by the whole run, so duplicates overwrite
		// each other even with timestamped filenames.
		if seen[target] {
			e.logger.WithField("target", target).
				Warn("duplicate target in batch, earlier export files will be overwritten")
		}
		seen[target] = true

		ui.PrintHighlight("Processing @" + target)
		summaries = append(summaries, e.exportOne(ctx, target, stamp))
	}

	if len(targets) > 1 {
		path, err := e.store.WriteSummary(summaries, stamp)
		if err != nil {
			e.logger.WithError(err).Error("failed to write summary file")
			return summaries, err
		}
		ui.PrintSuccess("Summary saved to: " + path)
	}

	return summaries, nil
}

// exportOne fetches and exports a single target. All errors are contained
// here and reflected in the returned summary row.
func (e *Exporter) exportOne(ctx context.Context, target, stamp string) models.Summary {
	log := e.logger.WithField("target", target)

	profile, err := e.source.LookupUser(ctx, target)
	if err != nil {
		err = apperrors.Wrap(apperrors.ErrorTypeFetchStart, target, err)
		log.WithError(err).Error("failed to start follower fetch")
		ui.PrintError("Lookup failed for @"+target, err.Error())
		return models.Summary{Target: target, Status: models.StatusFailed}
	}

	log.WithFields(map[string]interface{}{
		"display_name":    profile.DisplayName,
		"followers_total": profile.FollowersTotal,
	}).Info("target resolved, fetching followers")

	followers, fetchErr := e.source.Followers(ctx, profile.UserID, e.opts.Limit)

	// The source may overshoot the cap by one page; the limit is exact.
	if e.opts.Limit > 0 && len(followers) > e.opts.Limit {
		followers = followers[:e.opts.Limit]
	}

	status := models.StatusSuccess
	if fetchErr != nil {
		fetchErr = apperrors.Wrap(apperrors.ErrorTypeFetchStream, target, fetchErr)
		if len(followers) == 0 {
			log.WithError(fetchErr).Error("follower fetch failed")
			ui.PrintError("Fetch failed for @"+target, fetchErr.Error())
			return models.Summary{Target: target, Status: models.StatusFailed}
		}
		// Fail-open: keep what was gathered and export it.
		status = models.StatusPartial
		log.WithError(fetchErr).WithField("fetched", len(followers)).
			Warn("follower stream ended early, exporting gathered records")
	}

	if followers == nil {
		followers = []models.Follower{}
	}
	for i := range followers {
		followers[i].Rank = i + 1
	}

	export := &models.Export{
		Target:               target,
		TargetDisplayName:    profile.DisplayName,
		TargetFollowersTotal: profile.FollowersTotal,
		FetchedCount:         len(followers),
		FetchedAt:            e.now(),
		Followers:            followers,
	}

	jsonPath, err := e.store.WriteJSON(export, stamp)
	if err != nil {
		log.WithError(err).Error("failed to write JSON export")
		ui.PrintError("Export failed for @"+target, err.Error())
		return models.Summary{Target: target, Fetched: len(followers), Status: models.StatusFailed}
	}
	ui.PrintInfo("JSON saved", jsonPath)

	csvPath, err := e.store.WriteCSV(export, stamp)
	if err != nil {
		log.WithError(err).Error("failed to write CSV export")
		ui.PrintError("Export failed for @"+target, err.Error())
		return models.Summary{Target: target, Fetched: len(followers), Status: models.StatusFailed, OutputFile: jsonPath}
	}
	ui.PrintInfo("CSV saved", csvPath)

	log.WithFields(map[string]interface{}{
		"fetched": len(followers),
		"status":  string(status),
	}).Info("target export complete")

	return models.Summary{
		Target:     target,
		Fetched:    len(followers),
		Status:     status,
		OutputFile: jsonPath,
	}
}
