package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/flowwatch/internal/flow"
)

const (
	boardConfigPath = "/rest/greenhopper/1.0/xboard/config.json"
	editModelPath   = "/rest/greenhopper/1.0/rapidviewconfig/editmodel.json"
	cfdPath         = "/rest/greenhopper/1.0/rapid/charts/cumulativeflowdiagram.json"

	defaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of a failed response is quoted in errors.
	maxErrorBody = 512
)

// Jira fetches boards through the greenhopper cumulative-flow endpoints.
type Jira struct {
	base         *url.URL
	token        string
	client       *http.Client
	swimlanes    []string
	quickFilters []string
}

// NewJira returns a client for the Jira instance at baseURL.
func NewJira(baseURL string, opts Options) (*Jira, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing jira url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("jira url %q has no host", baseURL)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Jira{
		base:         u,
		token:        opts.Token,
		client:       &http.Client{Timeout: timeout},
		swimlanes:    opts.Swimlanes,
		quickFilters: opts.QuickFilters,
	}, nil
}

// Host implements Source.
func (j *Jira) Host() string { return j.base.Host }

// Option is a selectable swimlane or quick filter of a board.
type Option struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BoardInfo describes a board as configured upstream.
type BoardInfo struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Columns      []flow.Stage `json:"columns"`
	Swimlanes    []Option     `json:"swimlanes"`
	QuickFilters []Option     `json:"quick_filters"`

	columnIDs []string
}

type idName struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}

type boardConfigResponse struct {
	CurrentViewConfig *struct {
		Name    string   `json:"name"`
		Columns []idName `json:"columns"`
	} `json:"currentViewConfig"`
}

type editModelResponse struct {
	Name            string `json:"name"`
	SwimlanesConfig struct {
		Swimlanes []idName `json:"swimlanes"`
	} `json:"swimlanesConfig"`
	QuickFilterConfig struct {
		QuickFilters []idName `json:"quickFilters"`
	} `json:"quickFilterConfig"`
}

type cfdResponse struct {
	Columns       []struct{ Name string } `json:"columns"`
	ColumnChanges map[string][]struct {
		Key        string `json:"key"`
		ColumnFrom *int   `json:"columnFrom"`
		ColumnTo   *int   `json:"columnTo"`
	} `json:"columnChanges"`
}

// Board fetches the board configuration and its edit model concurrently.
func (j *Jira) Board(ctx context.Context, board string) (*BoardInfo, error) {
	var cfg boardConfigResponse
	var edit editModelResponse

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		params := url.Values{"returnDefaultBoard": {"false"}, "rapidViewId": {board}}
		return j.getJSON(gctx, boardConfigPath, params, &cfg)
	})
	g.Go(func() error {
		return j.getJSON(gctx, editModelPath, url.Values{"rapidViewId": {board}}, &edit)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetching board %s: %w", board, err)
	}
	if cfg.CurrentViewConfig == nil {
		return nil, fmt.Errorf("fetching board %s: response has no currentViewConfig", board)
	}

	info := &BoardInfo{ID: board, Name: edit.Name}
	if info.Name == "" {
		info.Name = cfg.CurrentViewConfig.Name
	}
	for i, c := range cfg.CurrentViewConfig.Columns {
		info.Columns = append(info.Columns, flow.Stage{Index: i, Name: c.Name})
		info.columnIDs = append(info.columnIDs, c.ID.String())
	}
	info.Swimlanes = options(edit.SwimlanesConfig.Swimlanes)
	info.QuickFilters = options(edit.QuickFilterConfig.QuickFilters)
	return info, nil
}

// Fetch implements Source. It requests the cumulative flow data of every
// board column, restricted to the configured swimlanes (all when none are
// set) and quick filters.
func (j *Jira) Fetch(ctx context.Context, board string) (*flow.Log, error) {
	info, err := j.Board(ctx, board)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	swimlanes := j.swimlanes
	if len(swimlanes) == 0 {
		for _, s := range info.Swimlanes {
			swimlanes = append(swimlanes, s.ID)
		}
	}
	for _, id := range swimlanes {
		params.Add("swimlaneId", id)
	}
	for _, id := range info.columnIDs {
		params.Add("columnId", id)
	}
	for _, id := range j.quickFilters {
		params.Add("quickFilterId", id)
	}
	params.Set("rapidViewId", board)

	var cfd cfdResponse
	if err := j.getJSON(ctx, cfdPath, params, &cfd); err != nil {
		return nil, fmt.Errorf("fetching flow data for board %s: %w", board, err)
	}
	return cfd.toLog(), nil
}

// toLog converts the response. Column indices are positions in Columns.
// Unparseable timestamps become 0 and are skipped during normalization.
func (r *cfdResponse) toLog() *flow.Log {
	log := &flow.Log{
		Stages:                 make([]flow.Stage, 0, len(r.Columns)),
		TransitionsByTimestamp: make(map[int64][]flow.TransitionEvent, len(r.ColumnChanges)),
	}
	for i, c := range r.Columns {
		log.Stages = append(log.Stages, flow.Stage{Index: i, Name: c.Name})
	}
	for key, changes := range r.ColumnChanges {
		ts, _ := strconv.ParseInt(key, 10, 64)
		for _, ch := range changes {
			log.TransitionsByTimestamp[ts] = append(log.TransitionsByTimestamp[ts], flow.TransitionEvent{
				Timestamp: ts,
				TaskKey:   ch.Key,
				From:      ch.ColumnFrom,
				To:        ch.ColumnTo,
			})
		}
	}
	return log
}

func (j *Jira) getJSON(ctx context.Context, path string, params url.Values, into any) error {
	u := j.base.JoinPath(path)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if j.token != "" {
		req.Header.Set("Authorization", "Bearer "+j.token)
	}

	resp, err := j.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func options(in []idName) []Option {
	out := make([]Option, 0, len(in))
	for _, o := range in {
		out = append(out, Option{ID: o.ID.String(), Name: o.Name})
	}
	return out
}
