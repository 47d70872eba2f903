// Command authgate-loadtest hammers refresh rotation against Redis.
//
// The race phase logs in once per round and fires the same refresh token from many
// goroutines; exactly one must win and the rest must be reported as reuse. The
// rotate phase walks independent lineages in parallel and reports latency.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/credstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const userPassword = "loadtest-password"

func main() {
	var (
		rounds      = flag.Int("rounds", 200, "race rounds")
		racers      = flag.Int("racers", 32, "concurrent refreshes per race round")
		users       = flag.Int("users", 64, "independent lineages in the rotate phase")
		rotations   = flag.Int("rotations", 50, "chained refreshes per lineage")
		concurrency = flag.Int("concurrency", 16, "parallel lineages in the rotate phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *rounds <= 0 || *racers <= 1 || *users <= 0 || *rotations <= 0 || *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "rounds, users, rotations and concurrency must be > 0; racers must be > 1")
		os.Exit(2)
	}

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv(authgate.EnvRedisAddr)
	}
	client, cleanup, err := connect(addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer cleanup()

	ctx := context.Background()
	svc, emails, err := buildService(client, *users)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer svc.Close()

	race, err := runRacePhase(ctx, svc, emails[0], *rounds, *racers)
	if err != nil {
		fmt.Fprintln(os.Stderr, "race phase:", err)
		os.Exit(1)
	}
	rotate, err := runRotatePhase(ctx, svc, emails, *rotations, *concurrency)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rotate phase:", err)
		os.Exit(1)
	}

	fmt.Println("---- results ----")
	printStats("race", race)
	printStats("rotate", rotate)

	snap := svc.MetricsSnapshot()
	fmt.Printf("counters: refresh_success=%d reuse_detected=%d lineage_invalidated=%d\n",
		snap.Counters[authgate.MetricRefreshSuccess],
		snap.Counters[authgate.MetricRefreshReuseDetected],
		snap.Counters[authgate.MetricLineageInvalidated],
	)
	if race.violations > 0 {
		fmt.Fprintf(os.Stderr, "single-winner violated in %d rounds\n", race.violations)
		os.Exit(1)
	}
}

func connect(addr string) (redis.UniversalClient, func(), error) {
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}
	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func buildService(client redis.UniversalClient, users int) (*authgate.Service, []string, error) {
	env, err := authgate.ConfigFromEnv(nil)
	if err != nil {
		return nil, nil, err
	}
	cfg := env.Config
	cfg.Rotation.RedisPrefix = "loadtest"

	store, err := credstore.NewMemoryStore()
	if err != nil {
		return nil, nil, err
	}
	svc, err := authgate.New().
		WithConfig(cfg).
		WithCredentialStore(store).
		WithRedis(client).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build service: %w", err)
	}

	hash, err := svc.HashPassword(userPassword)
	if err != nil {
		return nil, nil, err
	}
	emails := make([]string, users)
	for i := range users {
		emails[i] = fmt.Sprintf("load-%d@example.com", i)
		err := store.Add(authgate.Credential{
			SubjectID:    fmt.Sprintf("load-%d", i),
			Email:        emails[i],
			Name:         "Load User",
			PasswordHash: hash,
			Roles:        []string{authgate.RoleUser},
			Permissions:  []string{authgate.PermUserRead},
			Active:       true,
		})
		if err != nil {
			return nil, nil, err
		}
	}
	return svc, emails, nil
}

func runRacePhase(ctx context.Context, svc *authgate.Service, email string, rounds, racers int) (phaseStats, error) {
	var (
		latencies  []time.Duration
		mu         sync.Mutex
		failures   int64
		violations int
	)

	start := time.Now()
	for range rounds {
		login, err := svc.Login(ctx, email, userPassword)
		if err != nil {
			return phaseStats{}, err
		}

		var winners, reused atomic.Int64
		g, gctx := errgroup.WithContext(ctx)
		for range racers {
			g.Go(func() error {
				t0 := time.Now()
				_, err := svc.Refresh(gctx, login.RefreshToken)
				d := time.Since(t0)
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()

				switch {
				case err == nil:
					winners.Add(1)
				case errors.Is(err, authgate.ErrTokenReused):
					reused.Add(1)
				case errors.Is(err, authgate.ErrStoreUnavailable):
					return err
				default:
					atomic.AddInt64(&failures, 1)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return phaseStats{}, err
		}
		if winners.Load() != 1 || reused.Load() != int64(racers-1) {
			violations++
		}
	}

	stats := computeStats(time.Since(start), latencies, failures)
	stats.violations = violations
	return stats, nil
}

func runRotatePhase(ctx context.Context, svc *authgate.Service, emails []string, rotations, concurrency int) (phaseStats, error) {
	var (
		latencies []time.Duration
		mu        sync.Mutex
		failures  int64
	)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, email := range emails {
		g.Go(func() error {
			login, err := svc.Login(gctx, email, userPassword)
			if err != nil {
				return err
			}
			token := login.RefreshToken
			local := make([]time.Duration, 0, rotations)
			for range rotations {
				t0 := time.Now()
				pair, err := svc.Refresh(gctx, token)
				local = append(local, time.Since(t0))
				if err != nil {
					atomic.AddInt64(&failures, 1)
					break
				}
				token = pair.RefreshToken
			}
			mu.Lock()
			latencies = append(latencies, local...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return phaseStats{}, err
	}
	return computeStats(time.Since(start), latencies, failures), nil
}

type phaseStats struct {
	total      time.Duration
	ops        int
	failures   int64
	violations int
	p50        time.Duration
	p95        time.Duration
	p99        time.Duration
	opsPerS    float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	slices.Sort(samples)
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

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
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d violations=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.violations,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
