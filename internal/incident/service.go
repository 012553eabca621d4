// Package incident assembles the dashboard's view models: it resolves the
// selected scenario, loads its snapshot and runs the analysis core over it.
package incident

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-incident-analysis-ui/internal/analysis"
	"go-incident-analysis-ui/internal/scenario"
	"go-incident-analysis-ui/internal/selection"
)

// ErrUnknownDimension is returned for a breakdown dimension that does not
// exist.
var ErrUnknownDimension = errors.New("unknown dimension")

// Source provides scenario snapshots.
type Source interface {
	Load(ctx context.Context, name string) (*scenario.Snapshot, error)
	List(ctx context.Context) ([]scenario.Summary, error)
}

// Service is safe for concurrent use.
type Service struct {
	source          Source
	selection       selection.Store
	defaultScenario string
	log             *zap.Logger
	now             func() time.Time

	mu        sync.Mutex
	listeners []func(name string)
}

// NewService wires a snapshot source and a selection store. defaultScenario
// is used until a selection has been stored.
func NewService(source Source, sel selection.Store, defaultScenario string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		source:          source,
		selection:       sel,
		defaultScenario: defaultScenario,
		log:             log,
		now:             time.Now,
	}
}

// OnSelect registers fn to be called after every successful Select.
func (s *Service) OnSelect(fn func(name string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Current returns the selected scenario, or the default when nothing has
// been selected yet.
func (s *Service) Current(ctx context.Context) (string, error) {
	name, err := s.selection.Get(ctx)
	if errors.Is(err, selection.ErrNotSet) {
		return s.defaultScenario, nil
	}
	if err != nil {
		return "", fmt.Errorf("read selection: %w", err)
	}
	return name, nil
}

// Select switches the current scenario after checking that it exists.
func (s *Service) Select(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if _, err := s.source.Load(ctx, name); err != nil {
		return err
	}
	if err := s.selection.Set(ctx, name); err != nil {
		return fmt.Errorf("store selection: %w", err)
	}
	s.log.Info("scenario selected", zap.String("scenario", name))
	s.Notify(name)
	return nil
}

// Notify calls the OnSelect listeners. It is also used to relay changes
// made by other replicas.
func (s *Service) Notify(name string) {
	s.mu.Lock()
	listeners := make([]func(string), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(name)
	}
}

// Resolve returns name when given, otherwise the current selection.
func (s *Service) Resolve(ctx context.Context, name string) (string, error) {
	if name = strings.TrimSpace(name); name != "" {
		return name, nil
	}
	return s.Current(ctx)
}

// Snapshot loads the snapshot of the named (or current) scenario.
func (s *Service) Snapshot(ctx context.Context, name string) (*scenario.Snapshot, error) {
	name, err := s.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.source.Load(ctx, name)
}

// Catalog is the scenario listing with the current selection.
type Catalog struct {
	Current   string             `json:"current"`
	Scenarios []scenario.Summary `json:"scenarios"`
}

// Scenarios lists available scenarios.
func (s *Service) Scenarios(ctx context.Context) (Catalog, error) {
	list, err := s.source.List(ctx)
	if err != nil {
		return Catalog{}, err
	}
	current, err := s.Current(ctx)
	if err != nil {
		return Catalog{}, err
	}
	return Catalog{Current: current, Scenarios: list}, nil
}

// AlertView is the alert panel: metadata, KPIs and their display strings.
type AlertView struct {
	Scenario        string            `json:"scenario"`
	Alert           scenario.Alert    `json:"alert"`
	KPI             scenario.KPI      `json:"kpi"`
	DurationSeconds int64             `json:"durationSeconds"`
	Display         map[string]string `json:"display"`
}

// Alert builds the alert panel of the named (or current) scenario.
func (s *Service) Alert(ctx context.Context, name string) (AlertView, error) {
	snap, err := s.Snapshot(ctx, name)
	if err != nil {
		return AlertView{}, err
	}
	k := snap.KPI
	return AlertView{
		Scenario:        snap.Name,
		Alert:           snap.Alert,
		KPI:             k,
		DurationSeconds: int64(snap.Alert.Duration().Seconds()),
		Display: map[string]string{
			"cnt":              analysis.FormatNumber(float64(k.Cnt)),
			"previousCnt":      analysis.FormatNumber(float64(k.PreviousCnt)),
			"succ":             analysis.FormatPercent(k.Succ),
			"previousSucc":     analysis.FormatPercent(k.PreviousSucc),
			"respTime":         analysis.FormatNumber(k.RespTime) + "ms",
			"previousRespTime": analysis.FormatNumber(k.PreviousRespTime) + "ms",
		},
	}, nil
}

// Series returns the time series of the named (or current) scenario.
func (s *Service) Series(ctx context.Context, name string) ([]scenario.Point, error) {
	snap, err := s.Snapshot(ctx, name)
	if err != nil {
		return nil, err
	}
	return snap.Series, nil
}

// Dimension returns the annotated breakdown rows of one dimension.
func (s *Service) Dimension(ctx context.Context, name, dim string) ([]analysis.Row, error) {
	if !knownDimension(dim) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDimension, dim)
	}
	snap, err := s.Snapshot(ctx, name)
	if err != nil {
		return nil, err
	}
	return analysis.AnnotateRows(snap.Dimension(dim)), nil
}

func knownDimension(dim string) bool {
	for _, d := range analysis.Dimensions() {
		if d == dim {
			return true
		}
	}
	return false
}

// InsightView is a correlation analysis result for one scenario. When the
// alert carries a server-computed primary factor it replaces the analysed
// one, which is kept in ComputedFactor.
type InsightView struct {
	analysis.Insight
	ID             string                  `json:"id"`
	Scenario       string                  `json:"scenario"`
	GeneratedAt    time.Time               `json:"generatedAt"`
	Overridden     bool                    `json:"overridden"`
	ComputedFactor *analysis.PrimaryFactor `json:"computedFactor,omitempty"`
}

// Insight runs correlation analysis for the named (or current) scenario.
func (s *Service) Insight(ctx context.Context, name string) (InsightView, error) {
	snap, err := s.Snapshot(ctx, name)
	if err != nil {
		return InsightView{}, err
	}

	b := snap.Breakdown()
	insight := analysis.Analyze(b.TransTypes, b.Servers, b.Clients)
	out := InsightView{
		ID:          uuid.NewString(),
		Scenario:    snap.Name,
		GeneratedAt: s.now().UTC(),
	}
	if o := snap.Alert.Status.PrimaryFactor; o != nil {
		computed := insight.PrimaryFactor
		insight = analysis.ApplyOverride(insight, *o, b)
		out.Overridden = true
		out.ComputedFactor = &computed
	}
	out.Insight = insight

	s.log.Debug("correlation analysed",
		zap.String("scenario", snap.Name),
		zap.String("factor_type", insight.PrimaryFactor.Type),
		zap.String("factor_name", insight.PrimaryFactor.Name),
		zap.Bool("overridden", out.Overridden))
	return out, nil
}
