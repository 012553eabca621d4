// Package scenario provides the canned incident datasets the dashboard can
// display. Each scenario is one snapshot: alert metadata, KPIs, a minute
// resolution time series and the dimension breakdowns.
package scenario

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"go-incident-analysis-ui/internal/analysis"
)

// Built-in scenario names.
const (
	GCPause         = "gc_pause"
	FirewallSession = "firewall_session"
	PMTUDBlackhole  = "pmtud_blackhole"
)

// ErrUnknownScenario is returned when a name is not in the catalog.
var ErrUnknownScenario = errors.New("unknown scenario")

//go:embed data/*.yaml
var dataFS embed.FS

// Status is the server-side state of an alert. PrimaryFactor, when set,
// overrides the factor picked by correlation analysis.
type Status struct {
	State         string             `json:"state" yaml:"state"`
	PrimaryFactor *analysis.Override `json:"primaryFactor,omitempty" yaml:"primaryFactor,omitempty"`
}

// Alert is the alert that opened the incident.
type Alert struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Level       string    `json:"level" yaml:"level"`
	App         string    `json:"app" yaml:"app"`
	Component   string    `json:"component" yaml:"component"`
	StartTime   time.Time `json:"startTime" yaml:"startTime"`
	EndTime     time.Time `json:"endTime" yaml:"endTime"`
	Description string    `json:"description" yaml:"description"`
	Status      Status    `json:"status" yaml:"status"`
}

// Duration is the length of the alert window.
func (a Alert) Duration() time.Duration {
	if a.EndTime.Before(a.StartTime) {
		return 0
	}
	return a.EndTime.Sub(a.StartTime)
}

// KPI compares the incident window with the preceding baseline.
type KPI struct {
	Cnt              int64   `json:"cnt" yaml:"cnt"`
	PreviousCnt      int64   `json:"previousCnt" yaml:"previousCnt"`
	Succ             float64 `json:"succ" yaml:"succ"`
	PreviousSucc     float64 `json:"previousSucc" yaml:"previousSucc"`
	RespTime         float64 `json:"respTime" yaml:"respTime"`
	PreviousRespTime float64 `json:"previousRespTime" yaml:"previousRespTime"`
}

// Point is one minute of the transaction time series.
type Point struct {
	Time     time.Time `json:"time"`
	Cnt      int64     `json:"cnt"`
	Succ     float64   `json:"succ"`
	RespTime float64   `json:"respTime"`
	Fail     int64     `json:"fail"`
}

// Snapshot is everything the dashboard shows for one scenario.
type Snapshot struct {
	Name        string                     `json:"name"`
	Title       string                     `json:"title"`
	Description string                     `json:"description"`
	Alert       Alert                      `json:"alert"`
	KPI         KPI                        `json:"kpi"`
	Series      []Point                    `json:"series"`
	Dimensions  map[string][]analysis.Item `json:"dimensions"`
}

// Dimension returns the items of one breakdown dimension; nil when the
// snapshot has none.
func (s *Snapshot) Dimension(dim string) []analysis.Item {
	if s == nil || s.Dimensions == nil {
		return nil
	}
	return s.Dimensions[dim]
}

// Breakdown returns the dimension sets used by correlation analysis.
func (s *Snapshot) Breakdown() analysis.Breakdown {
	return analysis.Breakdown{
		TransTypes: s.Dimension(analysis.DimTransType),
		Servers:    s.Dimension(analysis.DimServer),
		Clients:    s.Dimension(analysis.DimClient),
	}
}

type rawPoint struct {
	T        string  `yaml:"t"`
	Cnt      int64   `yaml:"cnt"`
	Succ     float64 `yaml:"succ"`
	RespTime float64 `yaml:"respTime"`
	Fail     int64   `yaml:"fail"`
}

type rawSnapshot struct {
	Name        string                     `yaml:"name"`
	Title       string                     `yaml:"title"`
	Description string                     `yaml:"description"`
	Alert       Alert                      `yaml:"alert"`
	KPI         KPI                        `yaml:"kpi"`
	Series      []rawPoint                 `yaml:"series"`
	Dimensions  map[string][]analysis.Item `yaml:"dimensions"`
}

// Parse decodes one scenario document.
func Parse(data []byte) (*Snapshot, error) {
	var raw rawSnapshot
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if strings.TrimSpace(raw.Name) == "" {
		return nil, errors.New("decode scenario: name is required")
	}

	out := &Snapshot{
		Name:        raw.Name,
		Title:       raw.Title,
		Description: raw.Description,
		Alert:       raw.Alert,
		KPI:         raw.KPI,
		Series:      make([]Point, 0, len(raw.Series)),
		Dimensions:  raw.Dimensions,
	}
	if out.Dimensions == nil {
		out.Dimensions = map[string][]analysis.Item{}
	}
	for i, p := range raw.Series {
		ts, err := time.Parse(time.RFC3339, p.T)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: series point %d: %w", raw.Name, i, err)
		}
		out.Series = append(out.Series, Point{Time: ts, Cnt: p.Cnt, Succ: p.Succ, RespTime: p.RespTime, Fail: p.Fail})
	}
	return out, nil
}

// Catalog is an immutable, ordered set of scenarios.
type Catalog struct {
	order []string
	byKey map[string]*Snapshot
}

// Summary is the catalog listing entry for one scenario.
type Summary struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	AlertLevel  string `json:"alertLevel"`
}

// LoadCatalog parses the embedded scenario files.
func LoadCatalog() (*Catalog, error) {
	entries, err := dataFS.ReadDir("data")
	if err != nil {
		return nil, err
	}

	snapshots := make([]*Snapshot, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".yaml" {
			continue
		}
		data, err := dataFS.ReadFile(path.Join("data", e.Name()))
		if err != nil {
			return nil, err
		}
		snap, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		snapshots = append(snapshots, snap)
	}
	return NewCatalog(snapshots...)
}

// NewCatalog builds a catalog from snapshots. Built-in scenarios are listed
// first in their canonical order, others follow by name.
func NewCatalog(snapshots ...*Snapshot) (*Catalog, error) {
	c := &Catalog{byKey: make(map[string]*Snapshot, len(snapshots))}
	for _, s := range snapshots {
		if s == nil {
			continue
		}
		if _, dup := c.byKey[s.Name]; dup {
			return nil, fmt.Errorf("duplicate scenario %q", s.Name)
		}
		c.byKey[s.Name] = s
		c.order = append(c.order, s.Name)
	}

	sort.SliceStable(c.order, func(i, j int) bool { return Less(c.order[i], c.order[j]) })
	return c, nil
}

var builtinRank = map[string]int{GCPause: 0, FirewallSession: 1, PMTUDBlackhole: 2}

// Less orders scenario names for display: built-ins first in their
// canonical order, then the rest by name.
func Less(a, b string) bool {
	ra, aok := builtinRank[a]
	rb, bok := builtinRank[b]
	switch {
	case aok && bok:
		return ra < rb
	case aok != bok:
		return aok
	default:
		return a < b
	}
}

// Names returns scenario names in display order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Has reports whether name is in the catalog.
func (c *Catalog) Has(name string) bool {
	_, ok := c.byKey[name]
	return ok
}

// Get returns the snapshot for name. Snapshots are shared between callers
// and must not be modified.
func (c *Catalog) Get(name string) (*Snapshot, error) {
	s, ok := c.byKey[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, name)
	}
	return s, nil
}

// Summaries lists all scenarios in display order.
func (c *Catalog) Summaries() []Summary {
	out := make([]Summary, 0, len(c.order))
	for _, name := range c.order {
		s := c.byKey[name]
		out = append(out, Summary{Name: s.Name, Title: s.Title, Description: s.Description, AlertLevel: s.Alert.Level})
	}
	return out
}

// Load is Get behind the context-aware signature used by snapshot sources.
func (c *Catalog) Load(_ context.Context, name string) (*Snapshot, error) {
	return c.Get(name)
}

// List is Summaries behind the context-aware signature used by snapshot
// sources.
func (c *Catalog) List(_ context.Context) ([]Summary, error) {
	return c.Summaries(), nil
}
