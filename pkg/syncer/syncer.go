package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/roleautomator/jamfroles/pkg/output"
	"github.com/roleautomator/jamfroles/pkg/privileges"
	"github.com/roleautomator/jamfroles/pkg/sources"
	"github.com/roleautomator/jamfroles/pkg/storage"
	"github.com/roleautomator/jamfroles/pkg/whttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// nopLogger silently discards all messages.
type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

var errEmptyBody = errors.New("empty response body")

// Job is one fetch, extract, aggregate and publish pass.
type Job struct {
	Config  Config
	Sources []sources.Source
	Log     Logger
	// Now stamps the database; defaults to time.Now.
	Now func() time.Time

	client *retryablehttp.Client
}

// SourceReport summarizes what one source contributed.
type SourceReport struct {
	Name      string
	URL       string
	Title     string
	Records   int
	Endpoints int
}

// Report is the outcome of a successful run.
type Report struct {
	Sources  []SourceReport
	Database *privileges.Database
	Publish  *output.Result
	History  *storage.RunResult
}

// New validates cfg and prepares a job for the default documentation sources.
func New(cfg Config, log Logger) (*Job, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = nopLogger{}
	}

	opts := whttp.ClientOptions{Timeout: cfg.Timeout, Retries: cfg.Retries, Proxy: cfg.Proxy}
	if fl, ok := log.(logrus.FieldLogger); ok {
		opts.Log = fl
	}
	client, err := whttp.NewClient(opts)
	if err != nil {
		return nil, err
	}

	return &Job{
		Config:  cfg,
		Sources: sources.Defaults(cfg.ClassicURL, cfg.JamfProURL),
		Log:     log,
		Now:     time.Now,
		client:  client,
	}, nil
}

// Run executes the job. Any error aborts the run before files are replaced;
// errors are *privileges.FetchError, *privileges.ParseError or
// *privileges.WriteError.
func (j *Job) Run(ctx context.Context) (*Report, error) {
	for _, src := range j.Sources {
		if err := sources.CheckHost(src.URL, j.Config.AllowedDomains); err != nil {
			return nil, &privileges.FetchError{Source: src.Name, URL: src.URL, Err: err}
		}
	}

	pages, err := j.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	var records []privileges.Record
	var endpoints []privileges.Endpoint
	for i, src := range j.Sources {
		ex, err := src.Extractor.Extract([]byte(pages[i].BodyString))
		if err != nil {
			return nil, &privileges.ParseError{Source: src.Name, Err: err}
		}
		if len(ex.Records) == 0 {
			return nil, &privileges.ParseError{Source: src.Name, Err: errors.New("no privileges found")}
		}
		j.Log.Infof("%s: %d privileges, %d endpoints", src.Name, len(ex.Records), len(ex.Endpoints))
		report.Sources = append(report.Sources, SourceReport{
			Name:      src.Name,
			URL:       src.URL,
			Title:     pages[i].HTTPTitle,
			Records:   len(ex.Records),
			Endpoints: len(ex.Endpoints),
		})
		records = append(records, ex.Records...)
		endpoints = append(endpoints, ex.Endpoints...)
	}

	now := j.Now
	if now == nil {
		now = time.Now
	}
	db := privileges.Aggregate(now(), records, endpoints)
	report.Database = db

	uncategorized := 0
	for _, r := range db.Privileges {
		if r.Category == privileges.Uncategorized {
			uncategorized++
		}
	}
	if uncategorized > 0 {
		j.Log.Warnf("%d privileges could not be categorized", uncategorized)
	}

	publisher := output.NewPublisher(j.Config.OutputDir, j.docURLs())
	publisher.DryRun = j.Config.DryRun
	res, err := publisher.Publish(db)
	if err != nil {
		return nil, err
	}
	report.Publish = res
	j.Log.Infof("%s: %s", j.Config.OutputDir, res)

	if j.Config.DBPath != "" && !j.Config.DryRun {
		hist, err := j.recordHistory(ctx, db)
		if err != nil {
			// The files are already published; history is best effort.
			j.Log.Warnf("Could not record run history in %s: %v", j.Config.DBPath, err)
		} else {
			report.History = hist
		}
	}

	return report, nil
}

func (j *Job) fetchAll(ctx context.Context) ([]*whttp.WHTTPRes, error) {
	pages := make([]*whttp.WHTTPRes, len(j.Sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range j.Sources {
		i, src := i, src
		g.Go(func() error {
			res, err := j.fetch(gctx, src)
			if err != nil {
				return err
			}
			pages[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}

func (j *Job) fetch(ctx context.Context, src sources.Source) (*whttp.WHTTPRes, error) {
	j.Log.Debugf("Fetching %s (%s)", src.Name, src.URL)
	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{Method: "GET", URL: src.URL}, j.client)
	if err != nil {
		return nil, &privileges.FetchError{Source: src.Name, URL: src.URL, Err: err}
	}
	if !res.IsSuccess() {
		return nil, &privileges.FetchError{Source: src.Name, URL: src.URL, Err: fmt.Errorf("HTTP %d", res.StatusCode)}
	}
	if strings.TrimSpace(res.BodyString) == "" {
		return nil, &privileges.FetchError{Source: src.Name, URL: src.URL, Err: errEmptyBody}
	}
	return res, nil
}

func (j *Job) recordHistory(ctx context.Context, db *privileges.Database) (*storage.RunResult, error) {
	store, err := storage.Open(j.Config.DBPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	hist, err := store.RecordRun(ctx, db.Updated, db)
	if err != nil {
		return nil, err
	}
	if hist.FirstRun {
		j.Log.Infof("First run recorded in %s, %d privileges", j.Config.DBPath, hist.Run.PrivilegeCount)
	}
	for _, c := range hist.Changes {
		switch c.ChangeType {
		case storage.ChangeRecategorized:
			j.Log.Infof("%-13s %s %q: %s -> %s", c.ChangeType, c.Surface, c.Name, c.PreviousCategory, c.Category)
		default:
			j.Log.Infof("%-13s %s %q (%s)", c.ChangeType, c.Surface, c.Name, c.Category)
		}
	}
	return hist, nil
}

func (j *Job) docURLs() []string {
	urls := make([]string, 0, len(j.Sources))
	// Jamf Pro API first, matching the published metadata order.
	for i := len(j.Sources) - 1; i >= 0; i-- {
		urls = append(urls, j.Sources[i].URL)
	}
	return urls
}
