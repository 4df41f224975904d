// Package weather implements a tool that looks up active National Weather
// Service alerts for a US state and renders them for the reasoning engine.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/go-playground/validator/v10"
	"github.com/stormwatch/agentic/chatmodel"
	"github.com/stormwatch/agentic/pkg/llmutils"
	"github.com/stormwatch/agentic/schema"
	"github.com/stormwatch/agentic/tools"
)

var logger = xlog.NewPackageLogger("github.com/stormwatch/agentic", "tools/weather")

const ToolName = "GetWeatherAlerts"

// NoAlertsFound is returned when the lookup completed but the state has no
// active alerts. Distinct from an absent result, which means the lookup
// could not complete.
const NoAlertsFound = "No alerts found for the given state."

const (
	placeholderUnknown        = "Unknown"
	placeholderNoDescription  = "No description available"
	placeholderNoInstructions = "No instructions available"

	alertSeparator = "\n---\n"

	requestTimeout = 10 * time.Second
)

// AlertsRequest represents the tool input.
type AlertsRequest struct {
	Code string `json:"Code" yaml:"Code" jsonschema:"title=Code,description=The two-letter US state code to get weather alerts for. Eg: CA for California or NY for New York."`
}

// AlertsReport is the rendered alert listing for one state.
type AlertsReport struct {
	Code   string `json:"Code" yaml:"Code"`
	Report string `json:"Report" yaml:"Report"`
}

func (r *AlertsReport) GetContent() string {
	return r.Report
}

// Config describes the alerts API endpoint. The User-Agent is required by
// the weather service to identify callers.
type Config struct {
	APIBase   string `json:"api_base" yaml:"api_base" validate:"required,url"`
	UserAgent string `json:"user_agent" yaml:"user_agent" validate:"required"`
}

// Tool is a tool that provides active weather alerts by US state code.
type Tool struct {
	name        string
	description string
	funcParams  any

	cfg        Config
	httpClient *http.Client
}

var _ tools.Tool[AlertsRequest, AlertsReport] = (*Tool)(nil)

func New(cfg Config) (*Tool, error) {
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.WithMessage(err, "invalid weather tool configuration")
	}

	sc, err := schema.New(reflect.TypeOf(AlertsRequest{}))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create schema")
	}

	return &Tool{
		name:        ToolName,
		description: "Get active weather alerts for a US state by its two-letter code.",
		funcParams:  sc.Parameters,
		cfg:         cfg,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}, nil
}

// WithHTTPClient overrides the HTTP client, mostly for tests.
func (t *Tool) WithHTTPClient(client *http.Client) *Tool {
	t.httpClient = client
	return t
}

func (t *Tool) Name() string {
	return t.name
}

func (t *Tool) Description() string {
	return t.description
}

func (t *Tool) Parameters() any {
	return t.funcParams
}

// featureCollection is the subset of the GeoJSON alerts response we consume.
type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Properties alertProperties `json:"properties"`
}

type alertProperties struct {
	Event       string `json:"event"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	AreaDesc    string `json:"areaDesc"`
	Instruction string `json:"instruction"`
}

// Run fetches active alerts for the requested state code and renders them.
// The code is passed through as the engine supplied it; extracting and
// normalizing it from free text is the prompt's responsibility.
func (t *Tool) Run(ctx context.Context, req *AlertsRequest) (*AlertsReport, error) {
	if req == nil || req.Code == "" {
		return nil, errors.New("invalid request: empty state code")
	}

	uri := fmt.Sprintf("%s/alerts/active/area/%s",
		strings.TrimRight(t.cfg.APIBase, "/"),
		url.PathEscape(req.Code))

	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create alerts request")
	}
	hreq.Header.Set("User-Agent", t.cfg.UserAgent)
	hreq.Header.Set("Accept", "application/geo+json")

	resp, err := t.httpClient.Do(hreq)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to fetch alerts")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Newf("alerts request failed: status %d", resp.StatusCode)
	}

	var collection featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return nil, errors.WithMessage(err, "failed to decode alerts response")
	}

	if len(collection.Features) == 0 {
		return &AlertsReport{Code: req.Code, Report: NoAlertsFound}, nil
	}

	blocks := make([]string, 0, len(collection.Features))
	for _, f := range collection.Features {
		blocks = append(blocks, formatAlert(f.Properties))
	}

	return &AlertsReport{
		Code:   req.Code,
		Report: strings.Join(blocks, alertSeparator),
	}, nil
}

// Call implements tools.ITool. Transport and decode failures are absorbed
// here: they are logged and surfaced to the loop as an absent result, so a
// flaky weather service never aborts the agent call.
func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	var req AlertsRequest
	if err := json.Unmarshal(llmutils.CleanJSON([]byte(input)), &req); err != nil {
		return "", errors.WithMessagef(chatmodel.ErrFailedUnmarshalInput, "%s", err.Error())
	}

	res, err := t.Run(ctx, &req)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR,
			"tool", t.name,
			"code", req.Code,
			"err", err.Error(),
		)
		return "", nil
	}
	return res.Report, nil
}

func formatAlert(props alertProperties) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Event: %s\n", valueOrDefault(props.Event, placeholderUnknown))
	fmt.Fprintf(&buf, "Description: %s\n", valueOrDefault(props.Description, placeholderNoDescription))
	fmt.Fprintf(&buf, "Severity: %s\n", valueOrDefault(props.Severity, placeholderUnknown))
	fmt.Fprintf(&buf, "Area: %s\n", valueOrDefault(props.AreaDesc, placeholderUnknown))
	fmt.Fprintf(&buf, "Instructions: %s", valueOrDefault(props.Instruction, placeholderNoInstructions))
	return buf.String()
}

func valueOrDefault(val, def string) string {
	if val == "" {
		return def
	}
	return val
}
