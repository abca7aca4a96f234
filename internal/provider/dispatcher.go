package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/venke07/conductor/internal/router"
	"golang.org/x/time/rate"
)

// Dispatcher routes a call to the client for its API and throttles calls
// per provider.
type Dispatcher struct {
	mu       sync.RWMutex
	clients  map[string]Caller
	limiters map[string]*rate.Limiter
}

type DispatcherOption func(*Dispatcher)

// WithClient overrides the client used for api.
func WithClient(api string, c Caller) DispatcherOption {
	return func(d *Dispatcher) { d.clients[api] = c }
}

// WithRateLimit caps calls to provider at rps with the given burst.
func WithRateLimit(provider string, rps float64, burst int) DispatcherOption {
	return func(d *Dispatcher) { d.SetRateLimit(provider, rps, burst) }
}

// NewDispatcher returns a dispatcher with SDK clients for both wire formats.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		clients: map[string]Caller{
			router.APIOpenAI:    NewOpenAIClient(),
			router.APIAnthropic: NewAnthropicClient(),
		},
		limiters: make(map[string]*rate.Limiter),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Dispatcher) SetRateLimit(provider string, rps float64, burst int) {
	if burst < 1 {
		burst = 1
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if rps <= 0 {
		delete(d.limiters, provider)
		return
	}
	d.limiters[provider] = rate.NewLimiter(rate.Limit(rps), burst)
}

func (d *Dispatcher) Call(ctx context.Context, req *CallRequest) (*CallResponse, error) {
	api := req.API
	if api == "" {
		api = router.APIOpenAI
	}

	d.mu.RLock()
	client, ok := d.clients[api]
	limiter := d.limiters[req.Provider]
	d.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown api type %q for model %q (supported: %s, %s)",
			api, req.Model, router.APIOpenAI, router.APIAnthropic)
	}
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit %s: %w", req.Provider, err)
		}
	}
	return client.Call(ctx, req)
}
