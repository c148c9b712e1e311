package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	mrand "math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/jam"
	"github.com/MrEthical07/jam/internal/b64"
)

type benchOptions struct {
	sessions    int
	concurrency int
	ops         int
	redisAddr   string
	prefix      string
	table       bool
}

type sessionState struct {
	id string
	mu sync.Mutex
}

func newBenchCmd() *cobra.Command {
	var opts benchOptions
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Load test sessions and token verification against Redis",
		Long: `Seed sessions in Redis, then time concurrent session reads, session
ID rotations and JWT verifications. Without --redis-addr or REDIS_ADDR an
in-process miniredis is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.sessions, "sessions", 10000, "number of sessions to seed")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 64, "number of concurrent workers")
	cmd.Flags().IntVar(&opts.ops, "ops", 50000, "operations per phase")
	cmd.Flags().StringVar(&opts.redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "bench:", "session key prefix")
	cmd.Flags().BoolVar(&opts.table, "table", false, "render results as a table")
	return cmd
}

func runBench(ctx context.Context, out io.Writer, opts benchOptions) error {
	if opts.sessions <= 0 || opts.concurrency <= 0 || opts.ops <= 0 {
		return errors.New("sessions, concurrency, and ops must be > 0")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	addr := opts.redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start miniredis: %w", err)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Fprintf(out, "using miniredis at %s\n", addr)
	} else {
		fmt.Fprintf(out, "using redis at %s\n", addr)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer client.Close()

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return err
	}
	cfg := jam.DefaultConfig()
	cfg.JWT = &jam.JWTConfig{Alg: "HS256", Secret: b64.Encode(secret), Expire: time.Hour}
	cfg.Session = &jam.SessionConfig{Backend: "redis", Prefix: opts.prefix, TTL: 24 * time.Hour}

	inst, err := jam.New().WithConfig(cfg).WithRedis(client).Build()
	if err != nil {
		return err
	}
	defer inst.Close()

	states := make([]sessionState, opts.sessions)
	fmt.Fprintf(out, "seeding %d sessions...\n", opts.sessions)
	startSeed := time.Now()
	for i := range states {
		id, err := inst.SessionCreate(ctx, fmt.Sprintf("user-%d", i%1000), map[string]any{
			"user": fmt.Sprintf("user-%d", i%1000),
			"role": "member",
		})
		if err != nil {
			return fmt.Errorf("seed session: %w", err)
		}
		states[i].id = id
	}
	fmt.Fprintf(out, "seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	token, err := inst.CreateJWT(inst.MakePayload(0, map[string]any{"sub": "bench"}))
	if err != nil {
		return err
	}

	getStats := runPhase(opts.ops, opts.concurrency, 7919, func(r *mrand.Rand) error {
		state := &states[r.Intn(len(states))]
		state.mu.Lock()
		id := state.id
		state.mu.Unlock()
		_, err := inst.SessionGet(ctx, id)
		return err
	})
	reworkStats := runPhase(opts.ops, opts.concurrency, 6151, func(r *mrand.Rand) error {
		state := &states[r.Intn(len(states))]
		state.mu.Lock()
		defer state.mu.Unlock()
		next, err := inst.SessionRework(ctx, state.id)
		if err == nil {
			state.id = next
		}
		return err
	})
	verifyStats := runPhase(opts.ops, opts.concurrency, 4271, func(*mrand.Rand) error {
		_, err := inst.VerifyJWT(ctx, token, true, false)
		return err
	})

	results := []namedStats{
		{"session-get", getStats},
		{"session-rework", reworkStats},
		{"jwt-verify", verifyStats},
	}
	if opts.table {
		renderTable(out, results)
		return nil
	}
	fmt.Fprintln(out, "---- results ----")
	for _, r := range results {
		printStats(out, r.name, r.stats)
	}
	return nil
}

// runPhase runs op ops times across concurrency workers and collects
// per-call latencies.
func runPhase(ops, concurrency int, seed int64, op func(r *mrand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := mrand.New(mrand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	s := phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
	}
	if total > 0 {
		s.opsPerS = float64(len(samples)) / total.Seconds()
	}
	return s
}

// percentile expects samples sorted ascending.
func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

type namedStats struct {
	name  string
	stats phaseStats
}

func renderTable(w io.Writer, results []namedStats) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"phase", "ops", "failures", "total", "ops/sec", "p50", "p95", "p99"})
	for _, r := range results {
		s := r.stats
		t.AppendRow(table.Row{
			r.name,
			s.ops,
			s.failures,
			s.total.Round(time.Millisecond),
			fmt.Sprintf("%.0f", s.opsPerS),
			s.p50.Round(time.Microsecond),
			s.p95.Round(time.Microsecond),
			s.p99.Round(time.Microsecond),
		})
	}
	t.Render()
}

func printStats(w io.Writer, name string, s phaseStats) {
	fmt.Fprintf(w, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
