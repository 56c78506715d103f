// Package frontend serves a browser form that drives the iris API.
package frontend

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"irisapi/client"
	"irisapi/config"
)

//go:embed templates/index.html
var templateFS embed.FS

// Preset is a named set of example measurements.
type Preset struct {
	Key      string
	Name     string
	Features [4]float64
}

// Presets are typical flowers of each species.
var Presets = []Preset{
	{Key: "setosa", Name: "Setosa", Features: [4]float64{5.1, 3.5, 1.4, 0.2}},
	{Key: "versicolor", Name: "Versicolor", Features: [4]float64{5.9, 3.0, 4.2, 1.5}},
	{Key: "virginica", Name: "Virginica", Features: [4]float64{6.7, 3.0, 5.2, 2.3}},
}

var fieldLabels = [4]string{"Sepal length", "Sepal width", "Petal length", "Petal width"}

type field struct {
	Label string
	Value string
}

type healthView struct {
	Status    string
	Loaded    bool
	Version   string
	NFeatures int
	Accuracy  string
	Classes   []string
}

type probabilityRow struct {
	Class   string
	Value   float64
	Percent string
	Width   int
}

type predictionView struct {
	Label string
	Rows  []probabilityRow
}

type page struct {
	Lang       string
	APIURL     string
	Fields     [4]field
	Presets    []Preset
	Error      string
	Health     *healthView
	Prediction *predictionView
}

// Server renders the form and relays actions to the API.
type Server struct {
	tmpl    *template.Template
	printer *message.Printer
	lang    language.Tag
	apiURL  string
	timeout time.Duration
	logger  *zap.Logger
}

func New(cfg config.FrontendConfig, logger *zap.Logger) (*Server, error) {
	tag, err := language.Parse(cfg.Locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", cfg.Locale, err)
	}
	tmpl, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		tmpl:    tmpl,
		printer: message.NewPrinter(tag),
		lang:    tag,
		apiURL:  cfg.APIURL,
		timeout: cfg.RequestTimeout,
		logger:  logger,
	}, nil
}

// Handler returns the routes of the frontend.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /{$}", s.handleAction)
	return mux
}

func (s *Server) newPage() *page {
	p := &page{Lang: s.lang.String(), APIURL: s.apiURL, Presets: Presets}
	s.setFeatures(p, Presets[0].Features)
	return p
}

func (s *Server) setFeatures(p *page, features [4]float64) {
	for i, v := range features {
		p.Fields[i] = field{Label: fieldLabels[i], Value: strconv.FormatFloat(v, 'f', -1, 64)}
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, s.newPage())
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	p := s.newPage()
	if u := strings.TrimSpace(r.PostFormValue("api_url")); u != "" {
		p.APIURL = u
	}
	for i := range p.Fields {
		p.Fields[i].Value = strings.TrimSpace(r.PostFormValue(fmt.Sprintf("f%d", i)))
	}

	action := r.PostFormValue("action")
	switch {
	case strings.HasPrefix(action, "preset:"):
		key := strings.TrimPrefix(action, "preset:")
		for _, preset := range Presets {
			if preset.Key == key {
				s.setFeatures(p, preset.Features)
			}
		}
	case action == "health":
		s.checkHealth(r.Context(), p)
	case action == "predict":
		s.predict(r.Context(), p)
	}
	s.render(w, p)
}

func (s *Server) checkHealth(ctx context.Context, p *page) {
	c := client.New(p.APIURL, s.timeout)
	health, err := c.Health(ctx)
	if health == nil {
		p.Error = s.describeError(err)
		return
	}
	p.Health = &healthView{
		Status:    health.Status,
		Loaded:    health.ModelLoaded,
		Version:   health.Version,
		NFeatures: health.NFeatures,
		Accuracy:  s.percent(health.TestAccuracy),
		Classes:   health.ClassNames,
	}
	if err != nil {
		p.Error = s.describeError(err)
	}
}

func (s *Server) predict(ctx context.Context, p *page) {
	features := make([]float64, len(p.Fields))
	for i, f := range p.Fields {
		v, err := strconv.ParseFloat(f.Value, 64)
		if err != nil {
			p.Error = fmt.Sprintf("%s must be a number", f.Label)
			return
		}
		features[i] = v
	}

	c := client.New(p.APIURL, s.timeout)
	pred, err := c.Predict(ctx, features)
	if err != nil {
		p.Error = s.describeError(err)
		return
	}
	p.Prediction = &predictionView{Label: pred.Prediction, Rows: s.probabilityRows(pred)}
}

// probabilityRows prefers the formatted probabilities map and falls back to
// proba with target_names. Rows are sorted by probability, highest first.
func (s *Server) probabilityRows(pred *client.Prediction) []probabilityRow {
	var rows []probabilityRow
	if len(pred.Probabilities) > 0 {
		for name, raw := range pred.Probabilities {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			rows = append(rows, probabilityRow{Class: name, Value: v})
		}
	} else {
		for i, v := range pred.Proba {
			if i >= len(pred.TargetNames) {
				break
			}
			rows = append(rows, probabilityRow{Class: pred.TargetNames[i], Value: v})
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Value != rows[j].Value {
			return rows[i].Value > rows[j].Value
		}
		return rows[i].Class < rows[j].Class
	})
	for i := range rows {
		rows[i].Percent = s.percent(rows[i].Value)
		rows[i].Width = int(rows[i].Value * 300)
	}
	return rows
}

func (s *Server) percent(v float64) string {
	return s.printer.Sprint(number.Percent(v, number.MaxFractionDigits(1)))
}

func (s *Server) describeError(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("API error (%d): %s", apiErr.StatusCode, apiErr.Message)
	}
	return fmt.Sprintf("Could not reach the API: %v", err)
}

func (s *Server) render(w http.ResponseWriter, p *page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, p); err != nil {
		s.logger.Error("render failed", zap.Error(err))
	}
}
