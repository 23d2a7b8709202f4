package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"golang.org/x/net/publicsuffix"

	"github.com/yegors/runboard/internal/schedule"
	"github.com/yegors/runboard/pkg/logger"
)

// Options configures a Client
type Options struct {
	BaseURL  string
	Airport  string
	Airline  string
	APIToken string
	// Timeout of zero leaves the transport default in place
	Timeout time.Duration
}

// Client talks to the remote ground-ops API. It never retries; every
// failure is returned to the caller as a *Failure.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	airport    string
	airline    string
	apiToken   string
	logger     *logger.Logger
}

// NewClient creates a new ops API client. The session cookie issued by the
// backend is kept in a public-suffix aware jar.
func NewClient(opts Options, logger *logger.Logger) (*Client, error) {
	base := opts.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", opts.BaseURL, err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute", opts.BaseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	// Feeds for a day are fetched concurrently from the same host
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        16,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
			Jar:       jar,
		},
		baseURL:  baseURL,
		airport:  opts.Airport,
		airline:  opts.Airline,
		apiToken: opts.APIToken,
		logger:   logger.Named("ops-client"),
	}, nil
}

// Airline is the airline filter applied to every feed
func (c *Client) Airline() string {
	return c.airline
}

func (c *Client) dayQuery(date string) url.Values {
	q := url.Values{}
	q.Set("date", date)
	if c.airport != "" {
		q.Set("airport", c.airport)
	}
	if c.airline != "" {
		q.Set("airline", c.airline)
	}
	return q
}

// FetchFlights loads the flight list for a date
func (c *Client) FetchFlights(ctx context.Context, date string) ([]schedule.Flight, error) {
	body, err := c.do(ctx, "fetch flights", http.MethodGet, pathFlights, c.dayQuery(date), nil)
	if err != nil {
		return nil, err
	}
	return schedule.NormalizeFlights(body.Get("flights")), nil
}

// FetchRuns loads the runs, with their flight-run members, for a date
func (c *Client) FetchRuns(ctx context.Context, date string) ([]schedule.Run, error) {
	body, err := c.do(ctx, "fetch runs", http.MethodGet, pathRuns, c.dayQuery(date), nil)
	if err != nil {
		return nil, err
	}
	return schedule.NormalizeRuns(body.Get("runs")), nil
}

// FetchStaffAssignments loads the staff overlay for a date
func (c *Client) FetchStaffAssignments(ctx context.Context, date string) ([]schedule.StaffAssignment, error) {
	body, err := c.do(ctx, "fetch staff", http.MethodGet, pathStaff, c.dayQuery(date), nil)
	if err != nil {
		return nil, err
	}
	rows := body.Get("assignments")
	if !rows.Exists() {
		rows = body.Get("staff")
	}
	return schedule.NormalizeStaff(rows, date), nil
}

// AssignFlight adds one flight to one run
func (c *Client) AssignFlight(ctx context.Context, runID, flightID string) error {
	_, err := c.do(ctx, "assign flight", http.MethodPost, pathAssign, nil, assignRequest{RunID: runID, FlightID: flightID})
	return err
}

// UpdateLayout submits the full run layout and returns how many flight-run
// rows the server rewrote
func (c *Client) UpdateLayout(ctx context.Context, req schedule.LayoutUpdate) (int, error) {
	body, err := c.do(ctx, "update layout", http.MethodPost, pathUpdateLayout, nil, req)
	if err != nil {
		return 0, err
	}
	return int(body.Get("updated_flight_runs").Int()), nil
}

// GenerateAssignments asks the server to rebuild the day's assignments
// from scratch
func (c *Client) GenerateAssignments(ctx context.Context, date string) (*GenerateResult, error) {
	body, err := c.do(ctx, "generate assignments", http.MethodPost, pathGenerate, nil,
		generateRequest{Date: date, RespectExistingRuns: false})
	if err != nil {
		return nil, err
	}

	result := &GenerateResult{
		Assigned:            int(body.Get("assigned").Int()),
		UnassignedFlightIDs: []string{},
		Mode:                body.Get("mode").String(),
	}
	body.Get("unassigned_flight_ids").ForEach(func(_, v gjson.Result) bool {
		result.UnassignedFlightIDs = append(result.UnassignedFlightIDs, v.String())
		return true
	})
	return result, nil
}

// AutoAssignRuns runs the run-level auto assignment for the configured
// airline
func (c *Client) AutoAssignRuns(ctx context.Context, date string) (*AutoAssignSummary, error) {
	body, err := c.do(ctx, "auto assign runs", http.MethodPost, pathAutoAssignRuns, nil,
		autoAssignRunsRequest{Date: date, Airline: c.airline})
	if err != nil {
		return nil, err
	}

	var summary AutoAssignSummary
	if raw := body.Get("summary"); raw.IsObject() {
		if err := json.Unmarshal([]byte(raw.Raw), &summary); err != nil {
			return nil, &Failure{Kind: ApplicationFailure, Op: "auto assign runs", Status: http.StatusOK,
				Message: "malformed summary", Err: err}
		}
	}
	return &summary, nil
}

// do executes one request and applies the uniform failure rules: transport
// errors, non-2xx statuses and ok:false bodies all become a *Failure.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, payload any) (gjson.Result, error) {
	endpoint := c.baseURL.ResolveReference(&url.URL{Path: path})
	if query != nil {
		endpoint.RawQuery = query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return gjson.Result{}, fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: failed to create request: %w", op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	log := c.logger.With(logger.String("op", op), logger.String("request_id", requestID))
	log.Debug("Calling ops API", logger.String("method", method), logger.String("url", endpoint.String()))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("Ops API unreachable", logger.Error(err))
		return gjson.Result{}, &Failure{Kind: NetworkFailure, Op: op, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn("Failed to read ops API response", logger.Error(err))
		return gjson.Result{}, &Failure{Kind: NetworkFailure, Op: op, Status: resp.StatusCode,
			Message: err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f := &Failure{Kind: HTTPFailure, Op: op, Status: resp.StatusCode, Message: failureMessage(body, resp.StatusCode)}
		log.Warn("Ops API returned an error status",
			logger.Int("status", resp.StatusCode),
			logger.String("message", f.Message))
		return gjson.Result{}, f
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return gjson.Result{}, nil
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, &Failure{Kind: ApplicationFailure, Op: op, Status: resp.StatusCode,
			Message: failureMessage(body, resp.StatusCode)}
	}

	parsed := gjson.ParseBytes(body)
	if ok := parsed.Get("ok"); ok.Exists() && !ok.Bool() {
		f := &Failure{Kind: ApplicationFailure, Op: op, Status: resp.StatusCode, Message: failureMessage(body, resp.StatusCode)}
		log.Warn("Ops API rejected the request", logger.String("message", f.Message))
		return gjson.Result{}, f
	}

	log.Debug("Ops API call succeeded",
		logger.Int("status", resp.StatusCode),
		logger.Duration("elapsed", time.Since(start)))
	return parsed, nil
}
