// Package engine is the client side of the remote simulation engine's HTTP API.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/san-kum/natsel/internal/sim"
)

const (
	DefaultBaseURL = "http://localhost:5001"
	DefaultTimeout = 5 * time.Second

	maxBody = 16 << 20
)

// ErrRejected is returned when the engine answers a config update with success=false.
var ErrRejected = errors.New("engine: configuration rejected")

// ClientConfig is passed to NewClient; nothing about the engine location is global.
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to one engine. It is safe for concurrent use.
type Client struct {
	base *url.URL
	http *http.Client
	log  *slog.Logger
}

func NewClient(cfg ClientConfig) (*Client, error) {
	raw := cfg.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("engine base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("engine base url %q: scheme must be http or https", raw)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{base: base, http: hc, log: logger.With("component", "engine")}, nil
}

// BaseURL returns the engine root the client was built with.
func (c *Client) BaseURL() string { return c.base.String() }

// State fetches the current snapshot without advancing the engine.
func (c *Client) State(ctx context.Context) (*sim.Snapshot, error) {
	return c.snapshot(ctx, "state", http.MethodGet, "/state")
}

// Step advances the engine by one tick and returns the resulting snapshot.
func (c *Client) Step(ctx context.Context) (*sim.Snapshot, error) {
	return c.snapshot(ctx, "step", http.MethodGet, "/step")
}

// Reset applies cfg (when non-nil) and reinitializes the engine.
func (c *Client) Reset(ctx context.Context, cfg *sim.Config) (*sim.Snapshot, error) {
	if cfg != nil {
		ok, err := c.SetConfig(ctx, *cfg)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("engine reset: %w", ErrRejected)
		}
	}
	return c.snapshot(ctx, "reset", http.MethodPost, "/reset")
}

// Config fetches the configuration the engine will use on its next reset.
func (c *Client) Config(ctx context.Context) (*sim.Config, error) {
	var wire struct {
		TraitName                   *string  `json:"trait_name"`
		FoodNumber                  *int     `json:"food_number"`
		NumOrganisms                *int     `json:"num_organisms"`
		StartingEnergy              *int     `json:"starting_energy"`
		ReproductionEnergyThreshold *int     `json:"reproduction_energy_threshold"`
		ChanceReproductionThreshold *int     `json:"chance_reproduction_threshold"`
		ReproChance                 *float64 `json:"repro_chance"`
		MutationChance              *float64 `json:"mutation_chance"`
	}
	if err := c.do(ctx, "config", http.MethodGet, "/config", nil, &wire); err != nil {
		return nil, err
	}
	missing := func(field string) error {
		return &MalformedResponseError{Op: "config", Field: field, Err: errors.New("missing")}
	}
	switch {
	case wire.TraitName == nil:
		return nil, missing("trait_name")
	case wire.FoodNumber == nil:
		return nil, missing("food_number")
	case wire.NumOrganisms == nil:
		return nil, missing("num_organisms")
	case wire.StartingEnergy == nil:
		return nil, missing("starting_energy")
	case wire.ReproductionEnergyThreshold == nil:
		return nil, missing("reproduction_energy_threshold")
	case wire.ChanceReproductionThreshold == nil:
		return nil, missing("chance_reproduction_threshold")
	case wire.ReproChance == nil:
		return nil, missing("repro_chance")
	case wire.MutationChance == nil:
		return nil, missing("mutation_chance")
	}
	return &sim.Config{
		TraitName:                   *wire.TraitName,
		FoodNumber:                  *wire.FoodNumber,
		NumOrganisms:                *wire.NumOrganisms,
		StartingEnergy:              *wire.StartingEnergy,
		ReproductionEnergyThreshold: *wire.ReproductionEnergyThreshold,
		ChanceReproductionThreshold: *wire.ChanceReproductionThreshold,
		ReproChance:                 *wire.ReproChance,
		MutationChance:              *wire.MutationChance,
	}, nil
}

// SetConfig stores cfg on the engine for the next reset. It does not affect a
// running simulation.
func (c *Client) SetConfig(ctx context.Context, cfg sim.Config) (bool, error) {
	body, err := json.Marshal(cfg)
	if err != nil {
		return false, fmt.Errorf("engine set_config: %w", err)
	}
	var wire struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
	}
	if err := c.do(ctx, "set_config", http.MethodPost, "/config", body, &wire); err != nil {
		return false, err
	}
	if wire.Success == nil {
		return false, &MalformedResponseError{Op: "set_config", Field: "success", Err: errors.New("missing")}
	}
	if !*wire.Success {
		c.log.Warn("config rejected", "message", wire.Message)
	}
	return *wire.Success, nil
}

type wireSnapshot struct {
	Grid              *sim.Grid `json:"grid"`
	Food              *sim.Food `json:"food"`
	Alive             *bool     `json:"alive"`
	TraitDistribution []float64 `json:"trait_distribution"`
	TraitName         string    `json:"trait_name"`
	TraitLabels       []string  `json:"trait_labels"`
}

func (c *Client) snapshot(ctx context.Context, op, method, path string) (*sim.Snapshot, error) {
	var wire wireSnapshot
	if err := c.do(ctx, op, method, path, nil, &wire); err != nil {
		return nil, err
	}
	switch {
	case wire.Grid == nil:
		return nil, &MalformedResponseError{Op: op, Field: "grid", Err: errors.New("missing")}
	case wire.Food == nil:
		return nil, &MalformedResponseError{Op: op, Field: "food", Err: errors.New("missing")}
	case wire.Alive == nil:
		return nil, &MalformedResponseError{Op: op, Field: "alive", Err: errors.New("missing")}
	}
	snap := &sim.Snapshot{
		Grid:              *wire.Grid,
		Food:              *wire.Food,
		Alive:             *wire.Alive,
		TraitDistribution: wire.TraitDistribution,
		TraitName:         wire.TraitName,
		TraitLabels:       wire.TraitLabels,
	}
	if snap.TraitDistribution == nil {
		snap.TraitDistribution = []float64{}
	}
	if err := snap.Validate(); err != nil {
		var verr *sim.ValidationError
		if errors.As(err, &verr) {
			return nil, &MalformedResponseError{Op: op, Field: verr.Field, Err: errors.New(verr.Reason)}
		}
		return nil, &MalformedResponseError{Op: op, Err: err}
	}
	return snap, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte, out any) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed", "op", op, "err", err)
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug("request", "op", op, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := string(bytes.TrimSpace(text))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &TransportError{Op: op, Status: resp.StatusCode, Err: errors.New(msg)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: err}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &MalformedResponseError{Op: op, Err: err}
	}
	return nil
}
