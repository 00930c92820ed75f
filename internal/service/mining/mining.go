// Package mining runs the relation pipeline: open or clone a repository,
// collect revisions, merge them into groups, extract relations and export.
package mining

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/panbanda/corel/internal/cache"
	"github.com/panbanda/corel/internal/export"
	"github.com/panbanda/corel/internal/progress"
	"github.com/panbanda/corel/internal/remote"
	"github.com/panbanda/corel/internal/vcs"
	"github.com/panbanda/corel/pkg/analyzer/extract"
	"github.com/panbanda/corel/pkg/analyzer/merge"
	"github.com/panbanda/corel/pkg/collect"
	"github.com/panbanda/corel/pkg/models"
)

// ErrNoRevisions is returned when collection yields nothing to merge.
var ErrNoRevisions = errors.New("no revisions collected")

// Service orchestrates mining runs.
type Service struct {
	opener   vcs.Opener
	logger   *logrus.Logger
	cache    *cache.Cache
	progress bool
}

// Option configures a Service.
type Option func(*Service)

// WithOpener sets the VCS opener (for testing).
func WithOpener(opener vcs.Opener) Option {
	return func(s *Service) {
		s.opener = opener
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithCache enables the revision cache.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithProgress shows spinners on stderr while phases run.
func WithProgress(enabled bool) Option {
	return func(s *Service) {
		s.progress = enabled
	}
}

// New creates a mining service.
func New(opts ...Option) *Service {
	s := &Service{
		opener: vcs.DefaultOpener(),
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExportOptions selects where and how relations are written.
type ExportOptions struct {
	Type     export.Type
	Path     string // empty derives a name from the target
	OnExists export.OnExists
}

// Options configures one mining run.
type Options struct {
	// Target is a local repository path or a remote reference understood
	// by remote.Parse.
	Target string
	// TempDir receives remote clones. PreserveTemp keeps the clone.
	TempDir      string
	PreserveTemp bool

	Collect collect.Options

	Method merge.Method
	Merge  merge.Options

	IgnoreSingleFileGroups bool
	MaxDistinctPackages    int

	// Top bounds the summary's top lists.
	Top int

	// Export is nil when nothing should be written.
	Export *ExportOptions
}

// Result is the outcome of a mining run.
type Result struct {
	Target     string                   `json:"target"`
	Head       string                   `json:"head"`
	Revisions  int                      `json:"revisions"`
	Groups     []*models.RevisionGroup  `json:"-"`
	Extractor  *extract.Extractor       `json:"-"`
	Latest     *models.Revision         `json:"-"`
	Summary    *extract.RelationSummary `json:"summary"`
	ExportPath string                   `json:"export_path,omitempty"`
	FromCache  bool                     `json:"from_cache"`
	Elapsed    time.Duration            `json:"elapsed"`
}

// Run executes the pipeline.
func (s *Service) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	log := s.logger.WithField("target", opts.Target)

	if opts.Method == "" {
		opts.Method = merge.MethodWindow
	}
	merger, err := merge.New(opts.Method, opts.Merge)
	if err != nil {
		return nil, err
	}

	repo, src, err := s.open(ctx, opts.Target, opts.TempDir, opts.PreserveTemp, opts.Collect.Branch)
	if err != nil {
		return nil, err
	}
	if src != nil {
		defer func() {
			if err := src.Cleanup(); err != nil {
				log.WithError(err).Warn("failed to remove clone")
			}
		}()
	}

	revisions, latest, head, fromCache, err := s.collect(ctx, repo, opts)
	if err != nil {
		return nil, err
	}
	if len(revisions) == 0 {
		return nil, fmt.Errorf("%s: %w", opts.Target, ErrNoRevisions)
	}

	tracker := s.spinner("Merging revisions...")
	merger.SetRevisions(revisions)
	groups := merger.Merge()
	merged := len(groups)
	if opts.IgnoreSingleFileGroups {
		groups = merge.FilterSingleFileGroups(groups)
	}
	groups = merge.FilterMaxPackages(groups, opts.MaxDistinctPackages)
	tracker.FinishSuccess()
	log.WithFields(logrus.Fields{
		"method":   opts.Method,
		"groups":   merged,
		"retained": len(groups),
	}).Info("merged revisions")

	tracker = s.spinner("Extracting relations...")
	ex := extract.New(groups)
	summary := extract.Summarize(ex, opts.Top)
	tracker.FinishSuccess()
	log.WithFields(logrus.Fields{
		"files": summary.Files,
		"pairs": summary.Pairs,
	}).Info("extracted relations")

	res := &Result{
		Target:    opts.Target,
		Head:      head,
		Revisions: len(revisions),
		Groups:    groups,
		Extractor: ex,
		Latest:    latest,
		Summary:   summary,
		FromCache: fromCache,
	}

	if opts.Export != nil {
		path, err := s.export(ctx, ex, latest, opts)
		if err != nil {
			return nil, err
		}
		res.ExportPath = path
	}

	res.Elapsed = time.Since(start)
	log.WithField("elapsed", res.Elapsed).Info("mining finished")
	return res, nil
}

// Branches lists the branches of target.
func (s *Service) Branches(ctx context.Context, target, tempDir string) ([]string, error) {
	repo, src, err := s.open(ctx, target, tempDir, false, "")
	if err != nil {
		return nil, err
	}
	if src != nil {
		defer src.Cleanup()
	}
	return repo.Branches()
}

func (s *Service) open(ctx context.Context, target, tempDir string, preserve bool, branch string) (vcs.Repository, *remote.Source, error) {
	src, err := remote.Parse(target)
	if err != nil {
		return nil, nil, err
	}

	if src == nil {
		repo, err := s.opener.PlainOpenWithDetect(target)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open repository: %w", err)
		}
		return repo, nil, nil
	}

	if src.Ref == "" {
		src.Ref = branch
	}
	tracker := s.spinner(fmt.Sprintf("Cloning %s...", src.URL))
	repo, err := src.Clone(ctx, s.opener, tempDir, preserve)
	if err != nil {
		tracker.FinishError(err)
		return nil, nil, err
	}
	tracker.FinishSuccess()
	s.logger.WithFields(logrus.Fields{
		"url": src.URL,
		"dir": src.CloneDir,
	}).Info("cloned repository")
	return repo, src, nil
}

func (s *Service) collect(ctx context.Context, repo vcs.Repository, opts Options) (revisions []*models.Revision, latest *models.Revision, head string, fromCache bool, err error) {
	tracker := s.spinner("Collecting revisions...")
	collector := collect.NewGitCollector(repo, opts.Collect,
		collect.WithLogger(s.logger),
		collect.WithProgress(tracker.Tick),
	)

	hash, err := collector.Head()
	if err != nil {
		tracker.FinishError(err)
		return nil, nil, "", false, err
	}
	head = hash.String()

	key := cacheKey(opts.Target, opts.Collect)
	if s.cache != nil && s.cache.Enabled() {
		if snap, ok := s.cache.LoadSnapshot(key, head); ok {
			tracker.FinishSkipped("cached")
			s.logger.WithFields(logrus.Fields{
				"head":      head,
				"revisions": len(snap.Revisions),
			}).Info("loaded revisions from cache")
			models.SortRevisions(snap.Revisions)
			return snap.Revisions, snap.Latest, head, true, nil
		}
	}

	revisions, err = collector.Collect(ctx)
	if err != nil {
		tracker.FinishError(err)
		return nil, nil, "", false, err
	}
	tracker.FinishSuccess()
	latest = collector.Latest()

	if s.cache != nil && s.cache.Enabled() {
		snap := &cache.Snapshot{Revisions: revisions, Latest: latest}
		if err := s.cache.StoreSnapshot(key, head, snap); err != nil {
			s.logger.WithError(err).Warn("failed to cache revisions")
		}
	}
	return revisions, latest, head, false, nil
}

func (s *Service) export(ctx context.Context, ex *extract.Extractor, latest *models.Revision, opts Options) (string, error) {
	eo := opts.Export
	path := eo.Path
	if path == "" {
		path = export.DefaultName(opts.Target, eo.Type)
	}
	path, err := export.ResolvePath(path, eo.OnExists)
	if err != nil {
		return "", err
	}

	tracker := s.spinner("Exporting relations...")
	exporter, err := export.New(eo.Type, path, s.logger)
	if err != nil {
		tracker.FinishError(err)
		return "", err
	}

	data := export.Data{
		Options:     optionRows(opts),
		Groups:      ex.GroupRecords(),
		Accumulated: ex.AccumulatedRows(),
		Pairs:       ex.PairRows(),
		Latest:      latest,
	}
	if err := export.ExportAll(ctx, exporter, data); err != nil {
		exporter.Close()
		tracker.FinishError(err)
		return "", fmt.Errorf("failed to export relations: %w", err)
	}
	if err := exporter.Close(); err != nil {
		tracker.FinishError(err)
		return "", err
	}
	tracker.FinishSuccess()

	s.logger.WithFields(logrus.Fields{
		"type": eo.Type,
		"path": path,
	}).Info("exported relations")
	return path, nil
}

func (s *Service) spinner(label string) *progress.Tracker {
	return progress.NewSpinner(label, progress.WithVisibility(s.progress))
}

func cacheKey(target string, opts collect.Options) string {
	if src, err := remote.Parse(target); err == nil && src == nil {
		if abs, err := filepath.Abs(target); err == nil {
			target = abs
		}
	}
	return target + "|" + opts.Key()
}

// optionRows records the run settings for the Options table. Unset values
// are omitted.
func optionRows(opts Options) []export.Option {
	var rows []export.Option
	add := func(name, value string) {
		if value != "" {
			rows = append(rows, export.Option{Name: name, Value: value})
		}
	}

	c := opts.Collect.Normalize()
	add("url", opts.Target)
	add("branch", c.Branch)
	if c.Limit > 0 {
		add("limit", strconv.Itoa(c.Limit))
	}
	if c.From > 0 {
		add("from", models.FormatMillis(c.From))
	}
	if c.To > 0 {
		add("to", models.FormatMillis(c.To))
	}
	add("allowedExtensions", strings.Join(c.Extensions, ","))
	add("ignoreStrings", strings.Join(c.IgnoreStrings, ","))
	add("mergeMethod", string(opts.Method))
	add("slidingWindowSize", strconv.FormatInt(int64(opts.Merge.Window/time.Second), 10))
	if opts.Method == merge.MethodDistance {
		add("distanceMode", string(opts.Merge.DistanceMode))
	}
	add("ignoreSingleFileGroup", strconv.FormatBool(opts.IgnoreSingleFileGroups))
	add("maxDistinctPackages", strconv.Itoa(opts.MaxDistinctPackages))
	if opts.Export != nil {
		add("exportType", string(opts.Export.Type))
		add("duplicatedFileHandling", string(opts.Export.OnExists))
	}
	return rows
}
