package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Checker-Finance/refdata/internal/metrics"
	"github.com/Checker-Finance/refdata/internal/refdata"
)

// Redis key layout of the mirrored snapshot.
const (
	keyPrefix      = "refdata:"
	keyStats       = keyPrefix + "stats"
	keyProductSet  = keyPrefix + "products"
	keyProduct     = keyPrefix + "product:"  // + product name
	keySessions    = keyPrefix + "sessions:" // + timezone + ":" + product name
	keySessionsSet = keyPrefix + "session_keys"
)

// Store mirrors a frozen snapshot to external storage for consumers that
// cannot link the registry in-process.
type Store interface {
	SyncSnapshot(ctx context.Context, snap *refdata.Snapshot) error
	GetProductInfo(ctx context.Context, name string) (*refdata.ProductInfo, error)
	GetSessions(ctx context.Context, timezone, product string) ([]refdata.TradingSession, error)
	GetStats(ctx context.Context) (*refdata.Stats, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

// HybridStore writes the snapshot to Redis for fast reads and to Postgres
// for reporting. Either side may be absent.
type HybridStore struct {
	redis  *redis.Client
	PG     *pgxpool.Pool
	ttl    time.Duration
	logger *zap.Logger
}

type PGPoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// Options configures NewHybrid. An empty RedisAddr or PGURL disables that side.
type Options struct {
	RedisAddr string
	RedisDB   int
	RedisPass string
	PGURL     string
	PGPool    PGPoolConfig
	// TTL of the mirrored Redis keys; zero keeps them until the next sync.
	TTL time.Duration
}

// NewHybrid connects to the configured backends and pings them.
func NewHybrid(opts Options, logger *zap.Logger) (*HybridStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RedisAddr == "" && opts.PGURL == "" {
		return nil, errors.New("store: neither redis nor postgres configured")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	s := &HybridStore{ttl: opts.TTL, logger: logger}

	if opts.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			DB:       opts.RedisDB,
			Password: opts.RedisPass,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		s.redis = rdb
	}

	if opts.PGURL != "" {
		cfg, err := pgxpool.ParseConfig(opts.PGURL)
		if err != nil {
			s.closeRedis()
			return nil, fmt.Errorf("invalid pg config: %w", err)
		}
		applyPoolConfig(cfg, opts.PGPool)
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			s.closeRedis()
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		s.PG = pool
	}

	return s, nil
}

func applyPoolConfig(cfg *pgxpool.Config, pc PGPoolConfig) {
	if pc.MaxConns > 0 {
		cfg.MaxConns = pc.MaxConns
	}
	if pc.MinConns > 0 {
		cfg.MinConns = pc.MinConns
	}
	if pc.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = pc.MaxConnLifetime
	}
	if pc.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = pc.MaxConnIdleTime
	}
	if pc.HealthCheckPeriod > 0 {
		cfg.HealthCheckPeriod = pc.HealthCheckPeriod
	}
}

// SyncSnapshot writes snap to every configured backend.
func (s *HybridStore) SyncSnapshot(ctx context.Context, snap *refdata.Snapshot) error {
	var errs []error
	if s.redis != nil {
		if err := s.syncRedis(ctx, snap); err != nil {
			s.logger.Error("store.redis.sync_failed", zap.Error(err))
			metrics.IncError("store", "redis_sync")
			errs = append(errs, err)
		}
	}
	if s.PG != nil {
		if err := s.syncPostgres(ctx, snap); err != nil {
			s.logger.Error("store.pg.sync_failed", zap.Error(err))
			metrics.IncError("store", "pg_sync")
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.logger.Info("store.snapshot_synced",
		zap.String("snapshot_id", snap.ID.String()),
		zap.Bool("redis", s.redis != nil),
		zap.Bool("postgres", s.PG != nil))
	return nil
}

func sessionsKey(timezone, product string) string {
	return keySessions + timezone + ":" + product
}

// groupSessions splits a timezone listing into per-product runs, keeping the
// date order of the input.
func groupSessions(sessions []refdata.TradingSession) map[string][]refdata.TradingSession {
	out := make(map[string][]refdata.TradingSession)
	for _, s := range sessions {
		name := s.Product.Name()
		out[name] = append(out[name], s)
	}
	return out
}

func (s *HybridStore) syncRedis(ctx context.Context, snap *refdata.Snapshot) error {
	// Drop keys of the previous snapshot first so removed products vanish.
	stale, err := s.redis.SUnion(ctx, keyProductSet, keySessionsSet).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("list mirrored keys: %w", err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(stale) > 0 {
			pipe.Del(ctx, stale...)
		}
		pipe.Del(ctx, keyProductSet, keySessionsSet)

		for _, info := range snap.ProductInfos() {
			data, err := json.Marshal(info)
			if err != nil {
				return fmt.Errorf("marshal product %s: %w", info.Product.Name(), err)
			}
			key := keyProduct + info.Product.Name()
			pipe.Set(ctx, key, data, s.ttl)
			pipe.SAdd(ctx, keyProductSet, key)
		}

		for _, tz := range snap.Timezones() {
			for name, revs := range groupSessions(snap.Sessions(tz)) {
				data, err := json.Marshal(revs)
				if err != nil {
					return fmt.Errorf("marshal sessions %s/%s: %w", tz, name, err)
				}
				key := sessionsKey(tz, name)
				pipe.Set(ctx, key, data, s.ttl)
				pipe.SAdd(ctx, keySessionsSet, key)
			}
		}

		stats, err := json.Marshal(snap.Stats())
		if err != nil {
			return fmt.Errorf("marshal stats: %w", err)
		}
		pipe.Set(ctx, keyStats, stats, s.ttl)
		return nil
	})
	return err
}

const upsertProductInfo = `
	INSERT INTO reference.product_info (
		symbol, exchange, internal_product, prefix, currency,
		point_value, min_move, lot_size, commission_on_rate, commission_per_share,
		slippage_points, flat_today_discount, margin, snapshot_id, as_of
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	ON CONFLICT (symbol, exchange)
	DO UPDATE SET
		internal_product = EXCLUDED.internal_product,
		prefix = EXCLUDED.prefix,
		currency = EXCLUDED.currency,
		point_value = EXCLUDED.point_value,
		min_move = EXCLUDED.min_move,
		lot_size = EXCLUDED.lot_size,
		commission_on_rate = EXCLUDED.commission_on_rate,
		commission_per_share = EXCLUDED.commission_per_share,
		slippage_points = EXCLUDED.slippage_points,
		flat_today_discount = EXCLUDED.flat_today_discount,
		margin = EXCLUDED.margin,
		snapshot_id = EXCLUDED.snapshot_id,
		as_of = EXCLUDED.as_of;
`

const upsertTradingSession = `
	INSERT INTO reference.trading_session (
		timezone, symbol, exchange, effective_date, sessions, snapshot_id, as_of
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (timezone, symbol, exchange, effective_date)
	DO UPDATE SET
		sessions = EXCLUDED.sessions,
		snapshot_id = EXCLUDED.snapshot_id,
		as_of = EXCLUDED.as_of;
`

func (s *HybridStore) syncPostgres(ctx context.Context, snap *refdata.Snapshot) error {
	batch := &pgx.Batch{}
	asOf := snap.LoadedAt

	for _, info := range snap.ProductInfos() {
		p := info.Product
		batch.Queue(upsertProductInfo,
			p.Symbol, p.Exchange, p.InternalProduct, info.Prefix, info.Currency,
			info.PointValue, info.MinMove, info.LotSize, info.CommissionOnRate, info.CommissionPerShare,
			info.SlippagePoints, info.FlatTodayDiscount, info.Margin, snap.ID, asOf)
	}
	for _, tz := range snap.Timezones() {
		for _, ts := range snap.Sessions(tz) {
			sessions, err := json.Marshal(ts.Sessions)
			if err != nil {
				return fmt.Errorf("marshal sessions: %w", err)
			}
			batch.Queue(upsertTradingSession,
				tz, ts.Product.Symbol, ts.Product.Exchange, ts.Date, string(sessions), snap.ID, asOf)
		}
	}

	return pgx.BeginFunc(ctx, s.PG, func(tx pgx.Tx) error {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("upsert statement %d: %w", i, err)
			}
		}
		return br.Close()
	})
}

// GetProductInfo reads a mirrored product by canonical name. A miss returns nil, nil.
func (s *HybridStore) GetProductInfo(ctx context.Context, name string) (*refdata.ProductInfo, error) {
	var info refdata.ProductInfo
	ok, err := s.getJSON(ctx, keyProduct+name, &info)
	if err != nil || !ok {
		return nil, err
	}
	return &info, nil
}

// GetSessions reads the mirrored revisions of product in timezone, oldest first.
func (s *HybridStore) GetSessions(ctx context.Context, timezone, product string) ([]refdata.TradingSession, error) {
	var revs []refdata.TradingSession
	if _, err := s.getJSON(ctx, sessionsKey(timezone, product), &revs); err != nil {
		return nil, err
	}
	return revs, nil
}

func (s *HybridStore) GetStats(ctx context.Context) (*refdata.Stats, error) {
	var stats refdata.Stats
	ok, err := s.getJSON(ctx, keyStats, &stats)
	if err != nil || !ok {
		return nil, err
	}
	return &stats, nil
}

func (s *HybridStore) getJSON(ctx context.Context, key string, dest any) (bool, error) {
	if s.redis == nil {
		return false, errors.New("redis unavailable")
	}
	data, err := s.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *HybridStore) HealthCheck(ctx context.Context) error {
	if s.redis == nil && s.PG == nil {
		return fmt.Errorf("store not initialized")
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
	}
	if s.PG != nil {
		if err := s.PG.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping failed: %w", err)
		}
	}
	return nil
}

func (s *HybridStore) closeRedis() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
}

func (s *HybridStore) Close() error {
	if s.PG != nil {
		s.PG.Close()
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
