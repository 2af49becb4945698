package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/himanishpuri/SignVault/pkg/models"
	"github.com/spf13/cobra"
)

const gravity = 9.81

// walker produces a bounded random walk around a device lying flat.
type walker struct {
	rng   *rand.Rand
	step  float64
	x, y  float64
	z     float64
	clock func() time.Time
	last  int64
}

func newWalker(seed uint64, step float64) *walker {
	return &walker{
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		step:  step,
		z:     gravity,
		clock: time.Now,
	}
}

func (w *walker) next() models.AccelerationSample {
	w.x = clamp(w.x+w.rng.NormFloat64()*w.step, -2*gravity, 2*gravity)
	w.y = clamp(w.y+w.rng.NormFloat64()*w.step, -2*gravity, 2*gravity)
	w.z = clamp(w.z+w.rng.NormFloat64()*w.step, -2*gravity, 2*gravity)

	// Timestamps never go backwards, even when the clock does.
	ts := w.clock().UnixMilli()
	if ts < w.last {
		ts = w.last
	}
	w.last = ts

	return models.AccelerationSample{X: round(w.x), Y: round(w.y), Z: round(w.z), Timestamp: ts}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// publisher posts sample batches to a running server.
type publisher struct {
	endpoint string
	client   *http.Client
}

func newPublisher(server string) *publisher {
	return &publisher{
		endpoint: strings.TrimRight(server, "/") + "/acceleration",
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *publisher) publish(ctx context.Context, samples []models.AccelerationSample) error {
	body, err := json.Marshal(struct {
		Samples []models.AccelerationSample `json:"samples"`
	}{samples})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Message string `json:"message"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &e) == nil && e.Message != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Message)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return nil
}

type simulateOptions struct {
	server string
	rate   int
	count  int
	batch  int
	step   float64
	seed   uint64
}

// runSimulation publishes samples at opts.rate per second until opts.count
// samples were sent (0 means until ctx is done). It returns how many were
// accepted.
func runSimulation(ctx context.Context, opts simulateOptions, w *walker, p *publisher) (int, error) {
	if opts.rate <= 0 {
		return 0, fmt.Errorf("rate must be positive")
	}
	if opts.batch <= 0 {
		opts.batch = 1
	}

	interval := time.Second * time.Duration(opts.batch) / time.Duration(opts.rate)
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sent := 0
	for opts.count == 0 || sent < opts.count {
		n := opts.batch
		if opts.count > 0 && opts.count-sent < n {
			n = opts.count - sent
		}
		batch := make([]models.AccelerationSample, n)
		for i := range batch {
			batch[i] = w.next()
		}
		if err := p.publish(ctx, batch); err != nil {
			if ctx.Err() != nil {
				return sent, nil
			}
			return sent, err
		}
		sent += n

		if opts.count > 0 && sent >= opts.count {
			break
		}
		select {
		case <-ctx.Done():
			return sent, nil
		case <-ticker.C:
		}
	}
	return sent, nil
}

func newSimulateCmd() *cobra.Command {
	var opts simulateOptions

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Stream synthetic accelerometer samples to a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.server = serverURL
			if opts.server == "" {
				opts.server = defaultServerURL
			}
			seed := opts.seed
			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}
			start := time.Now()

			fmt.Printf("📡 Publishing %d sample(s)/s to %s (Ctrl+C to stop)\n", opts.rate, opts.server)
			sent, err := runSimulation(cmd.Context(), opts, newWalker(seed, opts.step), newPublisher(opts.server))
			fmt.Printf("\n✅ Sent %s sample(s) in %s\n", humanize.Comma(int64(sent)), time.Since(start).Round(time.Millisecond))
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.rate, "rate", 20, "Samples per second")
	f.IntVarP(&opts.count, "count", "n", 0, "Stop after this many samples (0: run until interrupted)")
	f.IntVar(&opts.batch, "batch", 1, "Samples per request")
	f.Float64Var(&opts.step, "step", 0.3, "Standard deviation of each random-walk step")
	f.Uint64Var(&opts.seed, "seed", 0, "Random seed (0: time-based)")
	return cmd
}
