package providers

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ekaya-inc/ekaya-content/pkg/llm"
)

// DefaultFanOut lists the providers compared when a caller names none.
var DefaultFanOut = map[Kind][]ProviderID{
	KindImage: {ProviderOpenAI, ProviderStability, ProviderLeonardo},
	KindVideo: {ProviderRunway, ProviderGoogleVeo},
	KindText:  {ProviderOpenAI, ProviderAnthropic},
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// CallTimeout bounds one adapter call including any polling. Zero means no limit.
	CallTimeout time.Duration
	// BatchConcurrency bounds concurrent calls in GenerateBatch.
	BatchConcurrency int
}

// Dispatcher routes generation calls to registered adapters and converts
// every failure into a Result.
type Dispatcher struct {
	registry    *Registry
	pool        *Pool
	callTimeout time.Duration
	logger      *zap.Logger
}

// NewDispatcher creates a dispatcher over a registry.
func NewDispatcher(registry *Registry, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		registry:    registry,
		pool:        NewPool(PoolConfig{MaxConcurrent: cfg.BatchConcurrency}, logger),
		callTimeout: cfg.CallTimeout,
		logger:      logger.Named("providers"),
	}
}

// Registry returns the underlying registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Generate calls one provider. It never panics and never returns a Go error;
// failures are reported in Result.Error.
func (d *Dispatcher) Generate(ctx context.Context, id ProviderID, kind Kind, req Request) Result {
	res := Result{Provider: id, Kind: kind}

	e, ok := d.registry.entry(id)
	if !ok {
		res.Error = NewError(ErrorKindNotConfigured, id, "provider is not configured", nil)
		return res
	}
	if !Supports(e.adapter, kind) {
		res.Error = NewError(ErrorKindUnsupportedKind, id,
			fmt.Sprintf("%s does not generate %s", e.adapter.Name(), kind), nil)
		return res
	}

	if err := e.limiter.Wait(ctx); err != nil {
		res.Error = NewError(ErrorKindUnavailable, id, "throttled by client-side rate limit", err)
		return res
	}
	if err := e.breaker.Allow(); err != nil {
		res.Error = Classify(id, err)
		d.logger.Warn("Provider call skipped", append(llm.ContextFields(ctx),
			zap.String("provider", string(id)),
			zap.String("reason", res.Error.Message))...)
		return res
	}

	callCtx := ctx
	if d.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.callTimeout)
		defer cancel()
	}

	start := time.Now()
	asset, err := d.invoke(callCtx, e.adapter, kind, req)
	elapsed := time.Since(start)

	if err != nil {
		res.Error = Classify(id, err)
		res.Pending = res.Error.Kind == ErrorKindTimeout
		switch res.Error.Kind {
		case ErrorKindUnavailable, ErrorKindTimeout, ErrorKindInternal:
			e.breaker.RecordFailure()
		default:
			e.breaker.RecordSuccess()
		}
		d.logger.Warn("Provider call failed", append(llm.ContextFields(ctx),
			zap.String("provider", string(id)),
			zap.String("kind", string(kind)),
			zap.String("error_kind", string(res.Error.Kind)),
			zap.Duration("elapsed", elapsed),
			zap.String("error", res.Error.Detail()))...)
		return res
	}

	e.breaker.RecordSuccess()
	res.Success = true
	res.Asset = asset
	d.logger.Info("Provider call succeeded", append(llm.ContextFields(ctx),
		zap.String("provider", string(id)),
		zap.String("kind", string(kind)),
		zap.Duration("elapsed", elapsed))...)
	return res
}

// invoke calls the adapter, turning a panic into an internal error.
func (d *Dispatcher) invoke(ctx context.Context, a Adapter, kind Kind, req Request) (asset *Asset, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Provider adapter panicked",
				zap.String("provider", string(a.ID())),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			asset = nil
			err = NewError(ErrorKindInternal, a.ID(), fmt.Sprintf("adapter panic: %v", r), nil)
		}
	}()

	asset, err = a.Generate(ctx, kind, req)
	if err == nil && asset == nil {
		err = NewError(ErrorKindInternal, a.ID(), "adapter returned no asset", nil)
	}
	return asset, err
}

// GenerateDefault calls the default provider for a kind.
func (d *Dispatcher) GenerateDefault(ctx context.Context, kind Kind, req Request) Result {
	id, ok := d.registry.Default(kind)
	if !ok {
		return Result{
			Kind:  kind,
			Error: NewError(ErrorKindNotConfigured, "", fmt.Sprintf("no provider configured for %s", kind), nil),
		}
	}
	return d.Generate(ctx, id, kind, req)
}

// FanOut calls several providers independently. A failure in one never
// affects the others. An empty list uses DefaultFanOut for the kind,
// restricted to registered providers.
func (d *Dispatcher) FanOut(ctx context.Context, ids []ProviderID, kind Kind, req Request) FanOutResult {
	if len(ids) == 0 {
		ids = d.defaultFanOut(kind)
	}

	out := FanOutResult{
		Kind:    kind,
		Results: make([]Result, len(ids)),
		Total:   len(ids),
	}

	var g errgroup.Group
	for i, id := range ids {
		g.Go(func() error {
			out.Results[i] = d.Generate(ctx, id, kind, req)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range out.Results {
		if r.Success {
			out.SuccessfulCount++
		}
	}
	out.Success = out.SuccessfulCount > 0
	return out
}

func (d *Dispatcher) defaultFanOut(kind Kind) []ProviderID {
	var ids []ProviderID
	for _, id := range DefaultFanOut[kind] {
		if e, ok := d.registry.entry(id); ok && Supports(e.adapter, kind) {
			ids = append(ids, id)
		}
	}
	if len(ids) > 0 {
		return ids
	}
	for _, info := range d.registry.Available(kind) {
		ids = append(ids, info.ID)
	}
	return ids
}

// GenerateBatch runs several requests against one provider with bounded
// parallelism. Results are in request order.
func (d *Dispatcher) GenerateBatch(ctx context.Context, id ProviderID, kind Kind, reqs []Request) []Result {
	items := make([]WorkItem[Result], len(reqs))
	for i, req := range reqs {
		items[i] = WorkItem[Result]{
			ID: strconv.Itoa(i),
			Execute: func(ctx context.Context) (Result, error) {
				return d.Generate(ctx, id, kind, req), nil
			},
		}
	}

	work := Process(ctx, d.pool, items, nil)
	results := make([]Result, len(work))
	for i, w := range work {
		if w.Err != nil {
			results[i] = Result{Provider: id, Kind: kind, Error: Classify(id, w.Err)}
			continue
		}
		results[i] = w.Result
	}
	return results
}
