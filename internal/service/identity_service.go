package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"campus-feedback/internal/core/cache"
	"campus-feedback/internal/domain"
	"campus-feedback/internal/ledger"
)

const (
	DefaultBatchSize = 5

	triggerThreshold = "threshold"
	triggerForced    = "forced"

	statsCacheKey = "identity:stats"
)

type IdentityOptions struct {
	BatchSize int           // 自动批量准入阈值，<1 时取 DefaultBatchSize
	StatsTTL  time.Duration // Stats 缓存时间，默认 5s
	Log       *zap.Logger
	Cache     *cache.Cache // 可为 nil
}

type SubmitResult struct {
	Commitment   string `json:"commitment"`
	PendingCount int    `json:"pendingCount"` // 写入后、flush 前的 pending 数
	Flushed      int    `json:"-"`
}

type Stats struct {
	domain.StatusCounts
	BatchSize int `json:"batchSize"`
}

// IdentityService 负责身份 commitment 的排队与批量准入。
//
// mu 串行化"写入 → 扫描 pending → 判阈值 → flush"以及 ForceBatch，
// 仅在单进程内有效；多实例共享数据库时仍可能出现漏 flush（下一次调用会补上）
// 或重复 flush（幂等）。Stats 持读锁，缓存回填不会落在写入与失效之间。
type IdentityService struct {
	repo      domain.UserRepository
	admitter  ledger.Admitter
	batchSize int
	statsTTL  time.Duration
	log       *zap.Logger
	cache     *cache.Cache

	mu sync.RWMutex
}

func NewIdentityService(repo domain.UserRepository, admitter ledger.Admitter, opts IdentityOptions) *IdentityService {
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.StatsTTL <= 0 {
		opts.StatsTTL = 5 * time.Second
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if admitter == nil {
		admitter = ledger.NewMock(opts.Log)
	}
	return &IdentityService{
		repo:      repo,
		admitter:  admitter,
		batchSize: opts.BatchSize,
		statsTTL:  opts.StatsTTL,
		log:       opts.Log,
		cache:     opts.Cache,
	}
}

func (s *IdentityService) BatchSize() int { return s.batchSize }

// SubmitCommitment 记录 commitment（覆盖写）并在 pending 数达到阈值时整体 flush。
// 返回的 PendingCount 是 flush 之前的计数，即使本次调用触发了 flush。
func (s *IdentityService) SubmitCommitment(ctx context.Context, userID, commitment string) (SubmitResult, error) {
	if strings.TrimSpace(userID) == "" || commitment == "" {
		identitySubmissions.WithLabelValues("invalid").Inc()
		return SubmitResult{}, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return SubmitResult{}, s.submitFailed(userID, "find user", err)
	}
	if err := s.repo.RecordCommitment(ctx, userID, commitment); err != nil {
		return SubmitResult{}, s.submitFailed(userID, "record commitment", err)
	}
	if prev.IsOnChain {
		// 已准入用户再次提交会被打回 pending，保留原有语义，仅告警
		s.log.Warn("commitment overwrite demotes admitted user", zap.String("user_id", userID))
	}
	identitySubmissions.WithLabelValues("ok").Inc()

	pending, err := s.repo.ListPending(ctx)
	if err != nil {
		return SubmitResult{}, &StorageError{Op: "list pending", Err: err}
	}
	identityPending.Set(float64(len(pending)))
	s.invalidateStats(ctx)

	res := SubmitResult{Commitment: commitment, PendingCount: len(pending)}
	if len(pending) >= s.batchSize {
		s.log.Info("batch admission triggered",
			zap.Int("pending", len(pending)),
			zap.Int("batch_size", s.batchSize),
		)
		n, err := s.flushPending(ctx, pending, triggerThreshold)
		res.Flushed = n
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

// ForceBatch 立即准入全部 pending 用户，返回实际转换的人数
func (s *IdentityService) ForceBatch(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.repo.ListPending(ctx)
	if err != nil {
		return 0, &StorageError{Op: "list pending", Err: err}
	}
	if len(pending) == 0 {
		return 0, nil
	}
	s.log.Info("forcing batch admission", zap.Int("pending", len(pending)))
	return s.flushPending(ctx, pending, triggerForced)
}

func (s *IdentityService) Pending(ctx context.Context) ([]domain.User, error) {
	us, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list pending", Err: err}
	}
	return us, nil
}

func (s *IdentityService) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := cache.GetOrLoadJSON(s.cache, ctx, statsCacheKey, s.statsTTL, func(ctx context.Context) (*Stats, error) {
		counts, err := s.repo.CountByStatus(ctx)
		if err != nil {
			return nil, &StorageError{Op: "count by status", Err: err}
		}
		return &Stats{StatusCounts: counts, BatchSize: s.batchSize}, nil
	})
	if err != nil {
		return Stats{}, err
	}
	return *st, nil
}

// flushPending 是自动与强制两条路径共用的准入流程：
// 先整体提交账本，再逐个标记；任一标记失败即中止，剩余用户保持 pending 待下次处理。
func (s *IdentityService) flushPending(ctx context.Context, pending []domain.User, trigger string) (int, error) {
	commitments := make([]string, 0, len(pending))
	for i := range pending {
		commitments = append(commitments, pending[i].Commitment())
	}
	if err := s.admitter.AdmitBatch(ctx, commitments); err != nil {
		s.log.Error("ledger admission failed", zap.Int("size", len(pending)), zap.Error(err))
		return 0, &LedgerError{Size: len(pending), Err: err}
	}

	done := 0
	defer func() {
		identityAdmitted.Add(float64(done))
		s.invalidateStats(ctx)
	}()
	for i := range pending {
		if err := s.repo.MarkOnChain(ctx, pending[i].ID); err != nil {
			s.log.Error("mark on-chain failed",
				zap.String("user_id", pending[i].ID),
				zap.Int("done", done),
				zap.Int("remaining", len(pending)-done),
				zap.Error(err),
			)
			return done, &StorageError{Op: "mark on-chain", Err: err}
		}
		done++
	}
	identityBatches.WithLabelValues(trigger).Inc()
	identityPending.Set(0)
	s.log.Info("batch admitted", zap.String("trigger", trigger), zap.Int("count", done))
	return done, nil
}

func (s *IdentityService) submitFailed(userID, op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		identitySubmissions.WithLabelValues("not_found").Inc()
		return ErrUserNotFound
	}
	identitySubmissions.WithLabelValues("error").Inc()
	s.log.Error("submit commitment failed", zap.String("user_id", userID), zap.String("op", op), zap.Error(err))
	return &StorageError{Op: op, Err: err}
}

func (s *IdentityService) invalidateStats(ctx context.Context) {
	if err := s.cache.Delete(ctx, statsCacheKey); err != nil {
		s.log.Warn("stats cache invalidation failed", zap.Error(err))
	}
}
