package dashboard

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nregsmp/nregsreport/internal/model"
	"github.com/nregsmp/nregsreport/internal/stats"
)

// ErrSectionSkipped marks a section disabled in the config file.
var ErrSectionSkipped = errors.New("section skipped by configuration")

// Fetcher retrieves and summarizes the statistics of every report section.
type Fetcher struct {
	client *Client
	logger *slog.Logger
	skip   map[model.Section]bool
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithFetcherLogger sets the logger.
func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithSkippedSections marks sections that are never fetched.
// They are reported as unavailable.
func WithSkippedSections(sections ...model.Section) FetcherOption {
	return func(f *Fetcher) {
		for _, s := range sections {
			f.skip[s] = true
		}
	}
}

// NewFetcher creates a fetcher over client.
func NewFetcher(client *Client, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client: client,
		skip:   make(map[model.Section]bool),
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.logger == nil {
		f.logger = slog.Default()
	}

	return f
}

// Fetch retrieves the data of every section in report order.
//
// A section whose data cannot be retrieved is returned with Err set to a
// *model.DataUnavailableError; the remaining sections are still fetched.
// The returned slice always has one entry per section. When no section
// has data Fetch returns model.ErrNoDataAvailable alongside it.
// Cancellation of ctx stops the fetch and returns ctx.Err().
func (f *Fetcher) Fetch(ctx context.Context, req model.ReportRequest) ([]model.SectionData, error) {
	data := make([]model.SectionData, 0, model.SectionCount)
	available := 0

	for _, section := range model.Sections() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		d := f.FetchSection(ctx, section, req)
		if d.Available() {
			available++
		} else {
			f.logger.Warn("section data unavailable",
				"section", section.String(),
				"district", req.District.Name,
				"date", req.DateString(),
				"error", d.Err,
			)
		}
		data = append(data, d)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if available == 0 {
		return data, model.ErrNoDataAvailable
	}
	return data, nil
}

// FetchSection retrieves and summarizes one section.
// Failures are reported through the Err field of the result.
func (f *Fetcher) FetchSection(ctx context.Context, section model.Section, req model.ReportRequest) model.SectionData {
	unavailable := func(err error) model.SectionData {
		return model.SectionData{
			Section:  section,
			Date:     req.DateString(),
			District: req.District.Name,
			Err:      &model.DataUnavailableError{Section: section, Err: err},
		}
	}

	if f.skip[section] {
		return unavailable(ErrSectionSkipped)
	}

	endpoints := section.Info().Endpoints

	stateSets, err := f.fetchSets(ctx, endpoints, req.DateString(), "")
	if err != nil {
		return unavailable(err)
	}

	// Block-level data only enriches the analysis; its absence does not
	// make the section unavailable.
	blockSets, err := f.fetchSets(ctx, endpoints, req.DateString(), req.District.Name)
	if err != nil {
		f.logger.Debug("block data unavailable",
			"section", section.String(),
			"district", req.District.Name,
			"error", err,
		)
		blockSets = nil
	}

	data, err := stats.BuildSectionData(section, req,
		stats.Prepare(section, stateSets),
		stats.Prepare(section, blockSets),
	)
	if err != nil {
		return unavailable(err)
	}
	return data
}

// fetchSets fetches every endpoint of a section. Only a failure of the
// primary endpoint is an error; failed secondary endpoints contribute no rows.
func (f *Fetcher) fetchSets(ctx context.Context, endpoints []string, date, district string) ([][]model.Row, error) {
	sets := make([][]model.Row, 0, len(endpoints))
	for i, endpoint := range endpoints {
		rows, err := f.client.FetchRows(ctx, endpoint, date, district)
		if err != nil {
			if i == 0 {
				return nil, err
			}
			f.logger.Warn("secondary endpoint unavailable",
				"endpoint", endpoint,
				"district", district,
				"error", err,
			)
			rows = nil
		}
		sets = append(sets, rows)
	}
	return sets, nil
}

// FetchScorecardRows retrieves the rows of the endpoints that only
// contribute to the scorecard, state-wide and for the blocks of the
// report's district. Endpoints that fail are left out.
func (f *Fetcher) FetchScorecardRows(ctx context.Context, req model.ReportRequest) model.ScorecardRows {
	var out model.ScorecardRows
	for _, district := range []string{"", req.District.Name} {
		for _, endpoint := range model.ScorecardEndpoints {
			if ctx.Err() != nil {
				return out
			}
			rows, err := f.client.FetchRows(ctx, endpoint, req.DateString(), district)
			if err != nil {
				f.logger.Warn("scorecard endpoint unavailable",
					"endpoint", endpoint,
					"district", district,
					"error", err,
				)
				continue
			}
			if district == "" {
				out.State = append(out.State, rows)
			} else {
				out.Blocks = append(out.Blocks, rows)
			}
		}
	}
	return out
}

// FetchPanchayatRows retrieves the panchayat rows of block from every
// dashboard endpoint. Endpoints that fail are left out.
func (f *Fetcher) FetchPanchayatRows(ctx context.Context, req model.ReportRequest, block string) [][]model.Row {
	endpoints := model.AllEndpoints()
	sets := make([][]model.Row, 0, len(endpoints))
	for _, endpoint := range endpoints {
		if ctx.Err() != nil {
			break
		}
		rows, err := f.client.FetchPanchayatRows(ctx, endpoint, req.DateString(), req.District.Name, block)
		if err != nil {
			f.logger.Debug("panchayat data unavailable",
				"endpoint", endpoint,
				"block", block,
				"error", err,
			)
			continue
		}
		sets = append(sets, rows)
	}
	return sets
}
