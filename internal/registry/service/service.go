// Package service implements the registration/renewal engine.
//
// Every state-mutating entry point runs under an explicit non-reentrant
// execution guard: control leaves the engine at the fee collector call, and
// no second mutation may begin until the first commits or aborts. Mutations
// touch the store only after the collector confirms, so a failed charge
// leaves no partial writes. Reads bypass the guard and observe either the
// pre- or post-state of any write.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"registrar/internal/registry/events"
	"registrar/internal/registry/fees"
	regmetrics "registrar/internal/registry/metrics"
	"registrar/internal/registry/models"
	"registrar/internal/registry/name"
	"registrar/internal/registry/store"
	"registrar/internal/registry/tlds"
	id "registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
	"registrar/pkg/platform/sentinel"
	"registrar/pkg/requestcontext"
)

// MaxBatchSize bounds a single batch registration.
const MaxBatchSize = 10

// yearDays is the registry's fixed year length for expiry arithmetic.
const yearDays = 365

// Service orchestrates validation, pricing, fee collection and record
// mutation. Configuration (fee table, TLD set, collector, treasury) is
// injected at construction and mutated only through the admin operations.
type Service struct {
	records   store.Store
	feeTable  *fees.Table
	tldSet    *tlds.Set
	collector FeeCollector
	admin     id.AccountID
	treasury  id.AccountID

	emitter EventEmitter
	metrics *regmetrics.Metrics
	logger  *slog.Logger
	cache   *store.ResolveCache

	// busy is the re-entry exclusion flag around mutating operations.
	busy    atomic.Bool
	resolve singleflight.Group
	tracer  trace.Tracer
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets a logger for operational events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *regmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithEmitter sets the notification sink.
func WithEmitter(e EventEmitter) Option {
	return func(s *Service) { s.emitter = e }
}

// WithResolveCache enables the read-through cache on the resolve path.
func WithResolveCache(c *store.ResolveCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithTreasury sets the initial treasury identity.
func WithTreasury(t id.AccountID) Option {
	return func(s *Service) { s.treasury = t }
}

// New builds the engine. The admin identity gets the fee bypass and is the
// only caller accepted by the administrative operations.
func New(records store.Store, feeTable *fees.Table, tldSet *tlds.Set, collector FeeCollector, admin id.AccountID, opts ...Option) (*Service, error) {
	if records == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "record store is required")
	}
	if feeTable == nil || tldSet == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "fee table and tld set are required")
	}
	if collector == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "fee collector is required")
	}
	if admin.IsNil() {
		return nil, dErrors.New(dErrors.CodeInternal, "admin identity is required")
	}
	s := &Service{
		records:   records,
		feeTable:  feeTable,
		tldSet:    tldSet,
		collector: collector,
		admin:     admin,
		tracer:    otel.Tracer("registrar/registry"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// enter acquires the non-reentrant execution guard.
func (s *Service) enter() error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrOperationInProgress
	}
	return nil
}

func (s *Service) exit() {
	s.busy.Store(false)
}

// Register creates a record for an available key. The resolution target
// defaults to the requester; the admin path may set any non-nil target.
// Admin registrations bypass fee collection entirely.
func (s *Service) Register(ctx context.Context, rawName, rawTLD string, requester, target id.AccountID, years int) (*models.DomainRecord, error) {
	if err := s.enter(); err != nil {
		return nil, err
	}
	defer s.exit()
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "registry.Register")
	defer span.End()

	if requester.IsNil() {
		return nil, ErrNilIdentity
	}
	if target.IsNil() {
		target = requester
	}
	if !s.tldSet.IsSupported(rawTLD) {
		return nil, ErrUnsupportedTLD
	}
	if err := fees.ValidateYears(years); err != nil {
		return nil, err
	}
	canonical := name.Canonicalize(rawName)
	if err := name.Validate(canonical); err != nil {
		return nil, err
	}
	key := models.NewRecordKey(canonical, rawTLD)
	span.SetAttributes(attribute.String("domain", key.String()))

	now := requestcontext.Now(ctx)
	available, err := s.records.IsAvailable(ctx, key, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "availability check failed")
	}
	if !available {
		return nil, ErrDomainExists
	}
	if err := s.requireNoLiveHolding(ctx, requester, now); err != nil {
		return nil, err
	}
	if target != requester {
		if err := s.requireNoLiveHolding(ctx, target, now); err != nil {
			return nil, err
		}
	}

	expiresAt, err := expiryFrom(now, years)
	if err != nil {
		return nil, err
	}

	var fee fees.Amount
	if requester != s.admin {
		fee, err = fees.TotalFee(s.feeTable, canonical, years)
		if err != nil {
			return nil, err
		}
		if err := s.charge(ctx, requester, fee); err != nil {
			return nil, err
		}
	}

	record := models.NewDomainRecord(requester, target, key.TLD, now, expiresAt)
	if err := s.records.Put(ctx, key, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "record write failed")
	}
	s.invalidateCache(ctx, key)

	if s.metrics != nil {
		s.metrics.DomainsRegistered.Inc()
		s.metrics.FeesCollected.Add(float64(fee))
		s.metrics.ObserveRegister(start)
	}
	s.emit(ctx, events.Event{
		Action:    events.ActionDomainRegistered,
		Timestamp: now,
		Name:      key.Name,
		TLD:       key.TLD,
		Owner:     requester,
		Target:    target,
		Years:     years,
		Fee:       int64(fee),
		ExpiresAt: expiresAt,
		RequestID: requestcontext.RequestID(ctx),
	})
	return record, nil
}

// Renew extends a record's expiry additively from its previous value.
// The existence check deliberately precedes the liveness check: renewing an
// expired-but-present row fails with ErrDomainExpired, not ErrDomainNotFound.
func (s *Service) Renew(ctx context.Context, rawName, rawTLD string, requester id.AccountID, years int) (*models.DomainRecord, error) {
	if err := s.enter(); err != nil {
		return nil, err
	}
	defer s.exit()

	ctx, span := s.tracer.Start(ctx, "registry.Renew")
	defer span.End()

	if requester.IsNil() {
		return nil, ErrNilIdentity
	}
	if err := fees.ValidateYears(years); err != nil {
		return nil, err
	}
	key := models.NewRecordKey(rawName, rawTLD)

	record, err := s.records.Get(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, ErrDomainNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "record lookup failed")
	}
	if record.Owner != requester {
		return nil, ErrUnauthorized
	}
	now := requestcontext.Now(ctx)
	if record.IsExpired(now) {
		return nil, ErrDomainExpired
	}

	extension, err := yearsDuration(years)
	if err != nil {
		return nil, err
	}
	newExpiry := record.ExpiresAt.Add(extension)

	var fee fees.Amount
	if requester != s.admin {
		fee, err = fees.TotalFee(s.feeTable, key.Name, years)
		if err != nil {
			return nil, err
		}
		if err := s.charge(ctx, requester, fee); err != nil {
			return nil, err
		}
	}

	if err := record.ApplyRenewal(newExpiry); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "renewal would not extend expiry")
	}
	if err := s.records.Put(ctx, key, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "record write failed")
	}

	if s.metrics != nil {
		s.metrics.DomainsRenewed.Inc()
		s.metrics.FeesCollected.Add(float64(fee))
	}
	s.emit(ctx, events.Event{
		Action:    events.ActionDomainRenewed,
		Timestamp: now,
		Name:      key.Name,
		TLD:       key.TLD,
		Owner:     record.Owner,
		Years:     years,
		Fee:       int64(fee),
		ExpiresAt: record.ExpiresAt,
		RequestID: requestcontext.RequestID(ctx),
	})
	return record, nil
}

// SetResolutionTarget points a live record at a new identity. The owner
// index entry of the previous target is cleared in the same store write.
func (s *Service) SetResolutionTarget(ctx context.Context, rawName, rawTLD string, requester, newTarget id.AccountID) (*models.DomainRecord, error) {
	if err := s.enter(); err != nil {
		return nil, err
	}
	defer s.exit()

	ctx, span := s.tracer.Start(ctx, "registry.SetResolutionTarget")
	defer span.End()

	if newTarget.IsNil() {
		return nil, ErrNilIdentity
	}
	key := models.NewRecordKey(rawName, rawTLD)

	record, err := s.records.Get(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, ErrDomainNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "record lookup failed")
	}
	if record.Owner != requester {
		return nil, ErrUnauthorized
	}
	now := requestcontext.Now(ctx)
	if record.IsExpired(now) {
		return nil, ErrDomainExpired
	}
	if record.ResolvesTo == newTarget {
		return nil, ErrSameAddress
	}
	if err := s.requireNoLiveHolding(ctx, newTarget, now); err != nil {
		return nil, err
	}

	record.ApplyRetarget(newTarget)
	if err := s.records.Put(ctx, key, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "record write failed")
	}
	s.invalidateCache(ctx, key)

	if s.metrics != nil {
		s.metrics.TargetsUpdated.Inc()
	}
	s.emit(ctx, events.Event{
		Action:    events.ActionTargetUpdated,
		Timestamp: now,
		Name:      key.Name,
		TLD:       key.TLD,
		Owner:     record.Owner,
		Target:    newTarget,
		RequestID: requestcontext.RequestID(ctx),
	})
	return record, nil
}

// BatchEntry is one requested registration inside a batch.
type BatchEntry struct {
	Name  string
	TLD   string
	Years int
}

// BatchRegister registers up to MaxBatchSize names for one requester.
// Validation and fee accumulation complete for every entry before any money
// moves or any record is written: one failing entry aborts the whole batch
// with no side effects, and the aggregate fee is charged once.
func (s *Service) BatchRegister(ctx context.Context, requester id.AccountID, batch []BatchEntry) ([]models.RecordKey, error) {
	if err := s.enter(); err != nil {
		return nil, err
	}
	defer s.exit()

	ctx, span := s.tracer.Start(ctx, "registry.BatchRegister")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.size", len(batch)))

	if requester.IsNil() {
		return nil, ErrNilIdentity
	}
	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(batch) > MaxBatchSize {
		return nil, ErrBatchTooLarge
	}

	now := requestcontext.Now(ctx)
	if err := s.requireNoLiveHolding(ctx, requester, now); err != nil {
		return nil, err
	}

	// Phase one: validate everything and price the batch. No writes yet.
	var total fees.Amount
	entries := make([]store.Entry, 0, len(batch))
	keys := make([]models.RecordKey, 0, len(batch))
	seen := make(map[models.RecordKey]struct{}, len(batch))
	for _, entry := range batch {
		if !s.tldSet.IsSupported(entry.TLD) {
			return nil, ErrUnsupportedTLD
		}
		if err := fees.ValidateYears(entry.Years); err != nil {
			return nil, err
		}
		canonical := name.Canonicalize(entry.Name)
		if err := name.Validate(canonical); err != nil {
			return nil, err
		}
		key := models.NewRecordKey(canonical, entry.TLD)
		if _, dup := seen[key]; dup {
			return nil, ErrDuplicateBatchEntry
		}
		seen[key] = struct{}{}

		available, err := s.records.IsAvailable(ctx, key, now)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "availability check failed")
		}
		if !available {
			return nil, ErrDomainExists
		}

		expiresAt, err := expiryFrom(now, entry.Years)
		if err != nil {
			return nil, err
		}
		fee, err := fees.TotalFee(s.feeTable, canonical, entry.Years)
		if err != nil {
			return nil, err
		}
		total, err = fees.CheckedAdd(total, fee)
		if err != nil {
			return nil, err
		}

		entries = append(entries, store.Entry{
			Key:    key,
			Record: models.NewDomainRecord(requester, requester, key.TLD, now, expiresAt),
		})
		keys = append(keys, key)
	}

	if requester != s.admin {
		if err := s.charge(ctx, requester, total); err != nil {
			return nil, err
		}
	} else {
		total = 0
	}

	// Phase two: commit.
	if err := s.records.PutBatch(ctx, entries); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "batch write failed")
	}
	for i, e := range entries {
		s.invalidateCache(ctx, e.Key)
		s.emit(ctx, events.Event{
			Action:    events.ActionDomainRegistered,
			Timestamp: now,
			Name:      e.Key.Name,
			TLD:       e.Key.TLD,
			Owner:     requester,
			Target:    requester,
			Years:     batch[i].Years,
			ExpiresAt: e.Record.ExpiresAt,
			RequestID: requestcontext.RequestID(ctx),
		})
	}
	if s.metrics != nil {
		s.metrics.DomainsRegistered.Add(float64(len(entries)))
		s.metrics.FeesCollected.Add(float64(total))
	}
	s.emit(ctx, events.Event{
		Action:    events.ActionBatchCompleted,
		Timestamp: now,
		Owner:     requester,
		Count:     len(entries),
		Fee:       int64(total),
		RequestID: requestcontext.RequestID(ctx),
	})
	return keys, nil
}

// Resolve returns the identity a name resolves to, or the null identity for
// absent or expired records. It never fails: store errors degrade to the
// absent sentinel and are logged.
func (s *Service) Resolve(ctx context.Context, rawName, rawTLD string) id.AccountID {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveResolve(start)
		}
	}()

	key := models.NewRecordKey(rawName, rawTLD)
	now := requestcontext.Now(ctx)

	if s.cache != nil {
		if target, ok := s.cache.Lookup(ctx, key); ok {
			if s.metrics != nil {
				s.metrics.ResolveCacheHits.Inc()
			}
			return target
		}
		if s.metrics != nil {
			s.metrics.ResolveCacheMiss.Inc()
		}
	}

	// Collapse concurrent misses for the same key into one store read.
	v, _, _ := s.resolve.Do(key.String(), func() (any, error) {
		record, err := s.records.Get(ctx, key)
		if err != nil {
			if !errors.Is(err, sentinel.ErrNotFound) && s.logger != nil {
				s.logger.ErrorContext(ctx, "resolve store lookup failed",
					"domain", key.String(), "error", err)
			}
			return id.NilAccount, nil
		}
		if record.IsExpired(now) {
			return id.NilAccount, nil
		}
		if s.cache != nil {
			s.cache.Store(ctx, key, record.ResolvesTo, record.ExpiresAt, now)
		}
		return record.ResolvesTo, nil
	})
	return v.(id.AccountID)
}

// IsAvailable reports whether the key can be registered right now.
func (s *Service) IsAvailable(ctx context.Context, rawName, rawTLD string) (bool, error) {
	key := models.NewRecordKey(rawName, rawTLD)
	return s.records.IsAvailable(ctx, key, requestcontext.Now(ctx))
}

// GetRecord returns the stored record regardless of liveness, for status
// queries. Absence maps to ErrDomainNotFound.
func (s *Service) GetRecord(ctx context.Context, rawName, rawTLD string) (*models.DomainRecord, error) {
	key := models.NewRecordKey(rawName, rawTLD)
	record, err := s.records.Get(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, ErrDomainNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "record lookup failed")
	}
	return record, nil
}

// requireNoLiveHolding enforces the one-live-record-per-identity rule.
// A stale index entry pointing at an expired record does not block.
func (s *Service) requireNoLiveHolding(ctx context.Context, acct id.AccountID, now time.Time) error {
	held, err := s.records.HolderOf(ctx, acct)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "holder lookup failed")
	}
	record, err := s.records.Get(ctx, held)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "holder record lookup failed")
	}
	if record.IsExpired(now) {
		return nil
	}
	return ErrWalletAlreadyOwnsDomain
}

// charge pre-checks funds and allowance before invoking the collector, so
// an unauthorized spend surfaces as ErrInsufficientFunds rather than a
// generic collector failure.
func (s *Service) charge(ctx context.Context, payer id.AccountID, amount fees.Amount) error {
	if amount == 0 {
		return nil
	}
	balance, err := s.collector.Balance(ctx, payer)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "balance check failed")
	}
	allowance, err := s.collector.Allowance(ctx, payer)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "allowance check failed")
	}
	if balance < amount || allowance < amount {
		return ErrInsufficientFunds
	}
	if err := s.collector.Charge(ctx, payer, s.treasury, amount); err != nil {
		// Surface collector failures verbatim; the engine never retries.
		return err
	}
	return nil
}

func (s *Service) invalidateCache(ctx context.Context, key models.RecordKey) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, key); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "resolve cache invalidation failed",
			"domain", key.String(), "error", err)
	}
}

func (s *Service) emit(ctx context.Context, event events.Event) {
	if s.emitter != nil {
		s.emitter.Emit(ctx, event)
	}
}

// yearsDuration converts a validated year count to a duration, guarding the
// multiplication the same way fee arithmetic is guarded.
func yearsDuration(years int) (time.Duration, error) {
	if err := fees.ValidateYears(years); err != nil {
		return 0, err
	}
	const day = 24 * time.Hour
	days := int64(years) * yearDays
	d := time.Duration(days) * day
	if d/day != time.Duration(days) {
		return 0, fees.ErrFeeOverflow
	}
	return d, nil
}

func expiryFrom(now time.Time, years int) (time.Time, error) {
	d, err := yearsDuration(years)
	if err != nil {
		return time.Time{}, err
	}
	return now.Add(d), nil
}
