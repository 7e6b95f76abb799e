package exporter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xfollowers/pkg/models"
	"xfollowers/pkg/storage"
)

// stubSource fakes the scraping library. Streams are keyed by user ID and
// returned whole regardless of limit, mimicking the page overshoot of the
// real paginator.
type stubSource struct {
	profiles   map[string]*models.Profile
	lookupErrs map[string]error
	streams    map[string][]models.Follower
	streamErrs map[string]error

	gotLimits []int
}

func (s *stubSource) LookupUser(_ context.Context, handle string) (*models.Profile, error) {
	if err := s.lookupErrs[handle]; err != nil {
		return nil, err
	}
	profile, ok := s.profiles[handle]
	if !ok {
		return nil, errors.New("user not found")
	}
	return profile, nil
}

func (s *stubSource) Followers(_ context.Context, userID string, limit int) ([]models.Follower, error) {
	s.gotLimits = append(s.gotLimits, limit)
	return s.streams[userID], s.streamErrs[userID]
}

func newStubSource() *stubSource {
	return &stubSource{
		profiles:   make(map[string]*models.Profile),
		lookupErrs: make(map[string]error),
		streams:    make(map[string][]models.Follower),
		streamErrs: make(map[string]error),
	}
}

func (s *stubSource) addTarget(handle, userID string, count int) {
	s.profiles[handle] = &models.Profile{
		UserID:         userID,
		Handle:         handle,
		DisplayName:    "Display " + handle,
		FollowersTotal: count,
	}
	stream := make([]models.Follower, 0, count)
	for i := 0; i < count; i++ {
		stream = append(stream, models.Follower{
			Handle:    fmt.Sprintf("%s_fan_%03d", handle, i+1),
			UserID:    fmt.Sprintf("%s%03d", userID, i+1),
			CreatedAt: time.Date(2018, 5, 1, 0, 0, 0, 0, time.UTC),
		})
	}
	s.streams[userID] = stream
}

func newTestExporter(t *testing.T, source Source, opts Options) (*Exporter, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewManager(dir)
	require.NoError(t, err)
	return New(source, store, opts), dir
}

func readExport(t *testing.T, path string) *models.Export {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var export models.Export
	require.NoError(t, json.Unmarshal(data, &export))
	return &export
}

func TestRunSingleTargetSuccess(t *testing.T) {
	source := newStubSource()
	source.addTarget("alice", "1001", 5)

	e, dir := newTestExporter(t, source, Options{Limit: 0})

	summaries, err := e.Run(context.Background(), []string{"alice"})
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	assert.Equal(t, "alice", summaries[0].Target)
	assert.Equal(t, 5, summaries[0].Fetched)
	assert.Equal(t, models.StatusSuccess, summaries[0].Status)
	assert.Equal(t, filepath.Join(dir, "followers_alice.json"), summaries[0].OutputFile)

	export := readExport(t, summaries[0].OutputFile)
	assert.Equal(t, "alice", export.Target)
	assert.Equal(t, 5, export.FetchedCount)
	require.Len(t, export.Followers, 5)
	for i, follower := range export.Followers {
		assert.Equal(t, i+1, follower.Rank)
	}

	_, err = os.Stat(filepath.Join(dir, "followers_alice.csv"))
	assert.NoError(t, err)

	// A single target produces no summary file
	_, err = os.Stat(filepath.Join(dir, "followers_summary.csv"))
	assert.True(t, os.IsNotExist(err))

	// Unlimited runs pass limit 0 through to the source
	require.Len(t, source.gotLimits, 1)
	assert.Equal(t, 0, source.gotLimits[0])
}

func TestRunTruncatesToExactLimit(t *testing.T) {
	source := newStubSource()
	// The stream overshoots the cap the way a page-based fetch does
	source.addTarget("alice", "1001", 25)

	e, _ := newTestExporter(t, source, Options{Limit: 10})

	summaries, err := e.Run(context.Background(), []string{"alice"})
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	assert.Equal(t, 10, summaries[0].Fetched)
	assert.Equal(t, models.StatusSuccess, summaries[0].Status)

	export := readExport(t, summaries[0].OutputFile)
	require.Len(t, export.Followers, 10)
	assert.Equal(t, 10, export.FetchedCount)
	assert.Equal(t, 1, export.Followers[0].Rank)
	assert.Equal(t, 10, export.Followers[9].Rank)
}

func TestRunFailedTargetDoesNotAffectOthers(t *testing.T) {
	source := newStubSource()
	source.addTarget("alice", "1001", 3)
	source.addTarget("carol", "1003", 2)
	source.lookupErrs["bob"] = errors.New("account suspended")

	e, dir := newTestExporter(t, source, Options{})

	summaries, err := e.Run(context.Background(), []string{"alice", "bob", "carol"})
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	assert.Equal(t, models.StatusSuccess, summaries[0].Status)
	assert.Equal(t, models.StatusFailed, summaries[1].Status)
	assert.Equal(t, models.StatusSuccess, summaries[2].Status)

	assert.Equal(t, 0, summaries[1].Fetched)
	assert.Empty(t, summaries[1].OutputFile)

	// Input order is preserved in the summary
	assert.Equal(t, []string{"alice", "bob", "carol"},
		[]string{summaries[0].Target, summaries[1].Target, summaries[2].Target})

	// The failed target leaves no export files behind
	_, err = os.Stat(filepath.Join(dir, "followers_bob.json"))
	assert.True(t, os.IsNotExist(err))

	// A batch of more than one target gets a summary file
	_, err = os.Stat(filepath.Join(dir, "followers_summary.csv"))
	assert.NoError(t, err)
}

func TestRunPartialFetchExportsGatheredRecords(t *testing.T) {
	source := newStubSource()
	source.addTarget("alice", "1001", 7)
	source.streamErrs["1001"] = errors.New("rate limited mid-stream")

	e, _ := newTestExporter(t, source, Options{Limit: 100})

	summaries, err := e.Run(context.Background(), []string{"alice"})
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	assert.Equal(t, models.StatusPartial, summaries[0].Status)
	assert.Equal(t, 7, summaries[0].Fetched)
	require.NotEmpty(t, summaries[0].OutputFile)

	export := readExport(t, summaries[0].OutputFile)
	assert.Len(t, export.Followers, 7)
}

func TestRunFetchErrorWithNoRecordsFails(t *testing.T) {
	source := newStubSource()
	source.addTarget("alice", "1001", 0)
	source.streamErrs["1001"] = errors.New("no active accounts")

	e, dir := newTestExporter(t, source, Options{Limit: 100})

	summaries, err := e.Run(context.Background(), []string{"alice"})
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	assert.Equal(t, models.StatusFailed, summaries[0].Status)
	assert.Equal(t, 0, summaries[0].Fetched)
	assert.Empty(t, summaries[0].OutputFile)

	_, err = os.Stat(filepath.Join(dir, "followers_alice.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunEmptyStreamIsSuccess(t *testing.T) {
	source := newStubSource()
	source.addTarget("newbie", "1009", 0)

	e, _ := newTestExporter(t, source, Options{Limit: 100})

	summaries, err := e.Run(context.Background(), []string{"newbie"})
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	assert.Equal(t, models.StatusSuccess, summaries[0].Status)
	assert.Equal(t, 0, summaries[0].Fetched)

	export := readExport(t, summaries[0].OutputFile)
	assert.NotNil(t, export.Followers)
	assert.Empty(t, export.Followers)
}

func TestRunTimestampedFilenames(t *testing.T) {
	source := newStubSource()
	source.addTarget("alice", "1001", 1)
	source.addTarget("bob", "1002", 1)

	e, dir := newTestExporter(t, source, Options{Timestamp: true})
	e.now = func() time.Time {
		return time.Date(2026, 3, 1, 8, 15, 30, 0, time.UTC)
	}

	summaries, err := e.Run(context.Background(), []string{"alice", "bob"})
	require.NoError(t, err)

	// One stamp is computed per run and shared by every file
	assert.Equal(t, filepath.Join(dir, "followers_alice_20260301_081530.json"), summaries[0].OutputFile)
	assert.Equal(t, filepath.Join(dir, "followers_bob_20260301_081530.json"), summaries[1].OutputFile)

	_, err = os.Stat(filepath.Join(dir, "followers_summary_20260301_081530.csv"))
	assert.NoError(t, err)
}

func TestRunDuplicateTargets(t *testing.T) {
	source := newStubSource()
	source.addTarget("alice", "1001", 2)

	e, dir := newTestExporter(t, source, Options{})

	summaries, err := e.Run(context.Background(), []string{"alice", "alice"})
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// Each occurrence is processed and gets its own summary row
	assert.Equal(t, "alice", summaries[0].Target)
	assert.Equal(t, "alice", summaries[1].Target)
	assert.Equal(t, summaries[0].OutputFile, summaries[1].OutputFile)

	_, err = os.Stat(filepath.Join(dir, "followers_alice.json"))
	assert.NoError(t, err)
}

func TestRunDuplicateTargetsShareTimestamp(t *testing.T) {
	source := newStubSource()
	source.addTarget("alice", "1001", 2)

	e, _ := newTestExporter(t, source, Options{Timestamp: true})
	e.now = func() time.Time {
		return time.Date(2026, 3, 1, 8, 15, 30, 0, time.UTC)
	}

	summaries, err := e.Run(context.Background(), []string{"alice", "alice"})
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// The stamp is computed once per run, so duplicates still collide
	// on the same timestamped filenames.
	assert.Equal(t, summaries[0].OutputFile, summaries[1].OutputFile)
	assert.Contains(t, summaries[0].OutputFile, "_20260301_081530")
}

// faultStore wraps a real storage manager and injects write failures.
type faultStore struct {
	*storage.Manager
	jsonErr    error
	csvErr     error
	summaryErr error
}

func (f *faultStore) WriteJSON(export *models.Export, stamp string) (string, error) {
	if f.jsonErr != nil {
		return "", f.jsonErr
	}
	return f.Manager.WriteJSON(export, stamp)
}

func (f *faultStore) WriteCSV(export *models.Export, stamp string) (string, error) {
	if f.csvErr != nil {
		return "", f.csvErr
	}
	return f.Manager.WriteCSV(export, stamp)
}

func (f *faultStore) WriteSummary(summaries []models.Summary, stamp string) (string, error) {
	if f.summaryErr != nil {
		return "", f.summaryErr
	}
	return f.Manager.WriteSummary(summaries, stamp)
}

func TestRunJSONWriteFailureIsContained(t *testing.T) {
	source := newStubSource()
	source.addTarget("alice", "1001", 3)
	source.addTarget("bob", "1002", 2)

	dir := t.TempDir()
	manager, err := storage.NewManager(dir)
	require.NoError(t, err)
	store := &faultStore{Manager: manager, jsonErr: errors.New("disk full")}

	e := New(source, store, Options{})

	summaries, err := e.Run(context.Background(), []string{"alice", "bob"})
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// A write failure marks the target failed but never aborts the batch
	for _, summary := range summaries {
		assert.Equal(t, models.StatusFailed, summary.Status)
		assert.Empty(t, summary.OutputFile)
	}
	assert.Equal(t, 3, summaries[0].Fetched)
	assert.Equal(t, 2, summaries[1].Fetched)

	// The summary file still gets written
	_, err = os.Stat(filepath.Join(dir, "followers_summary.csv"))
	assert.NoError(t, err)
}

func TestRunCSVWriteFailureKeepsJSONPath(t *testing.T) {
	source := newStubSource()
	source.addTarget("alice", "1001", 3)

	dir := t.TempDir()
	manager, err := storage.NewManager(dir)
	require.NoError(t, err)
	store := &faultStore{Manager: manager, csvErr: errors.New("disk full")}

	e := New(source, store, Options{})

	summaries, err := e.Run(context.Background(), []string{"alice"})
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	// The CSV failure fails the row, but the JSON export already written
	// stays referenced.
	assert.Equal(t, models.StatusFailed, summaries[0].Status)
	assert.Equal(t, 3, summaries[0].Fetched)
	assert.Equal(t, filepath.Join(dir, "followers_alice.json"), summaries[0].OutputFile)

	_, err = os.Stat(summaries[0].OutputFile)
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "followers_alice.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunSummaryWriteFailureReturnsError(t *testing.T) {
	source := newStubSource()
	source.addTarget("alice", "1001", 1)
	source.addTarget("bob", "1002", 1)

	dir := t.TempDir()
	manager, err := storage.NewManager(dir)
	require.NoError(t, err)
	store := &faultStore{Manager: manager, summaryErr: errors.New("disk full")}

	e := New(source, store, Options{})

	summaries, err := e.Run(context.Background(), []string{"alice", "bob"})
	require.Error(t, err)

	// Per-target exports are already on disk and the rows are returned
	require.Len(t, summaries, 2)
	for _, summary := range summaries {
		assert.Equal(t, models.StatusSuccess, summary.Status)
		_, statErr := os.Stat(summary.OutputFile)
		assert.NoError(t, statErr)
	}
}
