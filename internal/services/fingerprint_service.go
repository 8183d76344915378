package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/vmtest/internal/api"
	"github.com/miradorstack/vmtest/internal/cache"
	"github.com/miradorstack/vmtest/internal/codec"
	"github.com/miradorstack/vmtest/internal/consensus"
	"github.com/miradorstack/vmtest/internal/metrics"
	"github.com/miradorstack/vmtest/internal/models"
	"github.com/miradorstack/vmtest/internal/repo"
	"github.com/miradorstack/vmtest/internal/utils"
)

// Runner executes one probe suite run.
type Runner interface {
	Run(ctx context.Context, req models.RunRequest) (models.Fingerprint, error)
}

// HistoryAppender persists finished runs.
type HistoryAppender interface {
	Append(rows ...repo.HistoryRow) error
}

// Options tunes caching and retention for the service.
type Options struct {
	// CacheTTL bounds how long a cached fingerprint is served; zero disables
	// fingerprint caching.
	CacheTTL time.Duration
	// LockTTL bounds the run lock held while probing.
	LockTTL time.Duration
	// KeyParts identifies the probe and classifier configuration in cache keys.
	KeyParts []any
	// Hostname scopes cache keys to this machine.
	Hostname string
	// Retain is how many recent fingerprints feed Latest and Consensus.
	Retain int
	// MaxIterations rejects requests above this budget; zero means no cap.
	MaxIterations int
}

// ErrRunInProgress is returned when another suite holds the run lock.
var ErrRunInProgress = errors.New("probe run already in progress")

const defaultRetain = 32

// FingerprintService implements the gRPC fingerprint service.
type FingerprintService struct {
	logger    *slog.Logger
	runner    Runner
	cache     cache.Provider
	history   HistoryAppender
	miner     *consensus.Miner
	opts      Options
	latencies *utils.LatencyTracker
	// runGate admits one suite per process; the cache lock covers other processes.
	runGate chan struct{}

	mu     sync.Mutex
	recent []models.Fingerprint
}

var _ api.FingerprintServer = (*FingerprintService)(nil)

// NewFingerprintService constructs the service facade. cacheProvider,
// history and miner may be nil.
func NewFingerprintService(logger *slog.Logger, runner Runner, cacheProvider cache.Provider, history HistoryAppender, miner *consensus.Miner, opts Options) *FingerprintService {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if miner == nil {
		miner = consensus.NewMiner(logger, nil, nil)
	}
	if opts.Retain <= 0 {
		opts.Retain = defaultRetain
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 5 * time.Minute
	}
	return &FingerprintService{
		logger:    logger,
		runner:    runner,
		cache:     cacheProvider,
		history:   history,
		miner:     miner,
		opts:      opts,
		latencies: utils.NewLatencyTracker(256),
		runGate:   make(chan struct{}, 1),
	}
}

// Fingerprint returns a cached fingerprint for the request's configuration
// when one is fresh, otherwise runs the suite under the host run lock.
func (s *FingerprintService) Fingerprint(ctx context.Context, req models.RunRequest) (models.Fingerprint, error) {
	if s.runner == nil {
		return models.Fingerprint{}, utils.NewKindError(utils.KindFailedPrecondition, "Run", "probe pipeline not configured", nil)
	}

	if req.Iterations < 0 {
		return models.Fingerprint{}, utils.NewKindError(utils.KindInvalidArgument, "Run", "iterations must not be negative", nil)
	}
	if s.opts.MaxIterations > 0 && req.Iterations > s.opts.MaxIterations {
		return models.Fingerprint{}, utils.NewKindError(utils.KindInvalidArgument, "Run",
			fmt.Sprintf("iterations %d exceed the limit of %d", req.Iterations, s.opts.MaxIterations), nil)
	}

	key, err := s.cacheKey(req)
	if err != nil {
		return models.Fingerprint{}, utils.NewAppError("Run", "derive cache key", err)
	}

	if !req.Refresh && s.opts.CacheTTL > 0 {
		if fp, ok := s.lookup(ctx, key); ok {
			metrics.ObserveRun(0, metrics.OutcomeCached)
			return fp, nil
		}
	}

	select {
	case s.runGate <- struct{}{}:
		defer func() { <-s.runGate }()
	default:
		return models.Fingerprint{}, utils.NewKindError(utils.KindUnavailable, "Run", "a suite is already running in this process", ErrRunInProgress)
	}

	release, err := s.acquireRunLock(ctx)
	if err != nil {
		return models.Fingerprint{}, err
	}
	defer release()

	start := time.Now()
	fp, err := s.runner.Run(ctx, req)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveRun(duration, metrics.OutcomeError)
		s.logger.Error("probe suite failed", slog.Any("error", err))
		if ctx.Err() != nil {
			return models.Fingerprint{}, utils.NewKindError(utils.KindUnavailable, "Run", "run cancelled", err)
		}
		return models.Fingerprint{}, utils.NewAppError("Run", "probe suite failed", err)
	}
	metrics.ObserveRun(duration, metrics.OutcomeSuccess)
	s.observeLatency(duration)

	s.remember(fp)
	if s.opts.CacheTTL > 0 {
		s.store(ctx, key, fp)
	}
	if s.history != nil {
		if err := s.history.Append(repo.RowFromFingerprint(fp)); err != nil {
			s.logger.Warn("history append failed", slog.Any("error", err))
		}
	}
	return fp, nil
}

// Run implements api.FingerprintServer.
func (s *FingerprintService) Run(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := api.FromStructRunRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	s.logger.Debug("Run called", slog.Int("iterations", req.Iterations), slog.Bool("refresh", req.Refresh))

	fp, err := s.Fingerprint(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := api.ToStructFingerprint(fp)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode fingerprint: %v", err))
	}
	return out, nil
}

// Latest implements api.FingerprintServer.
func (s *FingerprintService) Latest(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	fp, ok := s.LatestFingerprint()
	if !ok {
		return nil, status.Error(codes.NotFound, "no fingerprint recorded yet")
	}
	out, err := api.ToStructFingerprint(fp)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode fingerprint: %v", err))
	}
	return out, nil
}

// Consensus implements api.FingerprintServer.
func (s *FingerprintService) Consensus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	runs := s.Recent()
	if len(runs) == 0 {
		return nil, status.Error(codes.NotFound, "no fingerprint recorded yet")
	}
	rep := s.miner.Mine(ctx, s.opts.Hostname, runs)
	out, err := api.ToStructConsensus(rep)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode consensus: %v", err))
	}
	return out, nil
}

// LatestFingerprint returns the most recent completed run.
func (s *FingerprintService) LatestFingerprint() (models.Fingerprint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.recent) == 0 {
		return models.Fingerprint{}, false
	}
	return s.recent[len(s.recent)-1], true
}

// Recent returns a copy of the retained runs, oldest first.
func (s *FingerprintService) Recent() []models.Fingerprint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Fingerprint(nil), s.recent...)
}

// LatencyP95 returns the current p95 run latency.
func (s *FingerprintService) LatencyP95() time.Duration {
	return s.latencies.Percentile(95)
}

func (s *FingerprintService) remember(fp models.Fingerprint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append(s.recent, fp)
	if len(s.recent) > s.opts.Retain {
		s.recent = s.recent[len(s.recent)-s.opts.Retain:]
	}
}

// acquireRunLock takes the host-wide run lock. When the cache cannot answer,
// the run proceeds unlocked and nothing is released afterwards.
func (s *FingerprintService) acquireRunLock(ctx context.Context) (func(), error) {
	lockKey := "vmtest:lock:" + s.opts.Hostname
	acquired, err := s.cache.SetNX(ctx, lockKey, utils.LockStamp(time.Now()), s.opts.LockTTL)
	switch {
	case err != nil:
		s.logger.Warn("run lock unavailable, probing without it", slog.Any("error", err))
		return func() {}, nil
	case !acquired:
		msg := "another suite is probing this host"
		if raw, getErr := s.cache.Get(ctx, lockKey); getErr == nil {
			if since, parseErr := utils.ParseLockStamp(raw); parseErr == nil {
				msg = fmt.Sprintf("%s (since %s)", msg, since.Format(time.RFC3339))
			}
		}
		return nil, utils.NewKindError(utils.KindUnavailable, "Run", msg, ErrRunInProgress)
	}
	return func() {
		if err := s.cache.Del(context.WithoutCancel(ctx), lockKey); err != nil {
			s.logger.Warn("release run lock", slog.Any("error", err))
		}
	}, nil
}

func (s *FingerprintService) cacheKey(req models.RunRequest) (string, error) {
	parts := append([]any{s.opts.Hostname, req.Iterations}, s.opts.KeyParts...)
	digest, err := codec.Digest(parts...)
	if err != nil {
		return "", err
	}
	return "vmtest:fp:" + digest, nil
}

func (s *FingerprintService) lookup(ctx context.Context, key string) (models.Fingerprint, bool) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("fingerprint cache get failed", slog.Any("error", err))
		}
		metrics.ObserveCacheLookup(false)
		return models.Fingerprint{}, false
	}
	var fp models.Fingerprint
	if err := codec.Unpack(data, &fp); err != nil {
		s.logger.Warn("discarding undecodable cache entry", slog.Any("error", err))
		_ = s.cache.Del(ctx, key)
		metrics.ObserveCacheLookup(false)
		return models.Fingerprint{}, false
	}
	metrics.ObserveCacheLookup(true)
	return fp, true
}

func (s *FingerprintService) store(ctx context.Context, key string, fp models.Fingerprint) {
	data, err := codec.Pack(fp)
	if err != nil {
		s.logger.Warn("encode fingerprint for cache", slog.Any("error", err))
		return
	}
	if err := s.cache.Set(ctx, key, data, s.opts.CacheTTL); err != nil {
		s.logger.Warn("fingerprint cache set failed", slog.Any("error", err))
	}
}

func (s *FingerprintService) observeLatency(d time.Duration) {
	s.latencies.Observe(d)
	if count := s.latencies.Count(); count >= 10 && count%10 == 0 {
		summary := s.latencies.Summary()
		s.logger.Info("run latency",
			slog.Duration("p50", summary.P50),
			slog.Duration("p95", summary.P95),
			slog.Int("samples", summary.Count),
		)
	}
}

func toStatus(err error) error {
	code := codes.Internal
	switch utils.KindOf(err) {
	case utils.KindInvalidArgument:
		code = codes.InvalidArgument
	case utils.KindFailedPrecondition:
		code = codes.FailedPrecondition
	case utils.KindUnavailable:
		code = codes.Unavailable
	case utils.KindNotFound:
		code = codes.NotFound
	}
	return status.Error(code, err.Error())
}
