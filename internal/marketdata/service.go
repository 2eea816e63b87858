// Package marketdata implements the periodic poller over the upstream
// bridge (spec §4.2): a cached bid/ask/spread per symbol with an age,
// interval adaptation driven by subscriber count and inactivity, and cached
// reads that force a synchronous refresh on staleness.
package marketdata

import (
	"context"
	"log"
	"sync"
	"time"

	"ttb-broker/internal/bridge"
)

const (
	defaultInterval = 10 * time.Second
	minInterval     = 5 * time.Second
	maxInterval     = 30 * time.Second
	cacheTTL        = 15 * time.Second
	inactiveTimeout = 5 * time.Minute
	tickSpacing     = 50 * time.Millisecond
)

// Quote is a cached bid/ask/spread reading with a freshness flag (spec §4.1
// GetPrice, §4.2).
type Quote struct {
	Symbol     string
	Bid        float64
	Ask        float64
	Spread     float64
	LastUpdate time.Time
	IsFresh    bool
}

// Service is the long-lived poller owned by the server and passed through a
// server context rather than kept as a process-wide global (spec §9 Design
// Notes: "do not use process-wide mutable globals").
type Service struct {
	bridge *bridge.Bridge
	cache  *symbolCache
	bus    *Bus

	mu          sync.Mutex
	symbols     map[string]struct{}
	interval    time.Duration
	subscribers map[string]time.Time
	lastActive  time.Time
	updating    bool
}

// New constructs a Service polling through br. Start must be called to
// begin the poll loop.
func New(br *bridge.Bridge) *Service {
	return &Service{
		bridge:      br,
		cache:       newSymbolCache(),
		bus:         NewBus(),
		symbols:     make(map[string]struct{}),
		interval:    defaultInterval,
		subscribers: make(map[string]time.Time),
		lastActive:  time.Now().UTC(),
	}
}

// Bus exposes the admin push channel.
func (s *Service) Bus() *Bus { return s.bus }

// Track registers symbol for polling.
func (s *Service) Track(symbol string) {
	s.mu.Lock()
	s.symbols[symbol] = struct{}{}
	s.mu.Unlock()
}

// AddSubscriber records an active dashboard/session watching market data,
// scaling the poll interval down on the first subscriber (spec §4.2).
func (s *Service) AddSubscriber(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	first := len(s.subscribers) == 0
	s.subscribers[id] = time.Now().UTC()
	s.lastActive = time.Now().UTC()
	if first {
		s.interval = scaleDuration(s.interval, 0.8, minInterval, maxInterval)
	}
}

// RemoveSubscriber drops a subscriber.
func (s *Service) RemoveSubscriber(id string) {
	s.mu.Lock()
	delete(s.subscribers, id)
	s.lastActive = time.Now().UTC()
	s.mu.Unlock()
}

func scaleDuration(d time.Duration, factor float64, min, max time.Duration) time.Duration {
	scaled := time.Duration(float64(d) * factor)
	if scaled < min {
		return min
	}
	if scaled > max {
		return max
	}
	return scaled
}

// Start runs the adaptive poll loop until ctx is cancelled. Only one poll
// is ever in flight (guarded by the updating flag), matching the
// single-task poller described in spec §5.
func (s *Service) Start(ctx context.Context) {
	for {
		s.mu.Lock()
		interval := s.interval
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}

		if err := s.pollOnce(ctx); err != nil {
			log.Printf("marketdata: poll error: %v", err)
			s.mu.Lock()
			s.interval = scaleDuration(s.interval, 1.2, minInterval, maxInterval)
			s.mu.Unlock()
			continue
		}

		s.mu.Lock()
		noSubscribers := len(s.subscribers) == 0
		idle := time.Since(s.lastActive) > inactiveTimeout
		if noSubscribers && idle {
			s.interval = maxInterval
		}
		s.mu.Unlock()
	}
}

func (s *Service) pollOnce(ctx context.Context) error {
	s.mu.Lock()
	if s.updating {
		s.mu.Unlock()
		return nil
	}
	s.updating = true
	symbols := make([]string, 0, len(s.symbols))
	for sym := range s.symbols {
		symbols = append(symbols, sym)
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.updating = false
		s.mu.Unlock()
	}()

	for _, symbol := range symbols {
		if cached, ok := s.cache.get(symbol); ok && time.Since(cached.LastUpdate) < cacheTTL {
			continue
		}
		if err := s.refresh(ctx, symbol); err != nil {
			return err
		}
		time.Sleep(tickSpacing)
	}
	return nil
}

func (s *Service) refresh(ctx context.Context, symbol string) error {
	tick, err := s.bridge.RefreshPrice(ctx, symbol)
	if err != nil {
		return err
	}
	q := Quote{
		Symbol:     symbol,
		Bid:        tick.Bid,
		Ask:        tick.Ask,
		Spread:     tick.Spread,
		LastUpdate: time.Now().UTC(),
		IsFresh:    true,
	}
	s.cache.set(symbol, q)
	s.bus.Publish(Event{Type: "price_update", Data: q})
	return nil
}

// GetMarketData returns the cached quote for symbol. If stale, it forces a
// synchronous refresh; on refresh failure it returns the stale cached
// value with IsFresh=false rather than an error (spec §4.2).
func (s *Service) GetMarketData(ctx context.Context, symbol string, clientID string) (Quote, error) {
	if clientID != "" {
		s.AddSubscriber(clientID)
	}
	s.Track(symbol)

	cached, ok := s.cache.get(symbol)
	if ok && time.Since(cached.LastUpdate) < cacheTTL {
		return cached, nil
	}

	if err := s.refresh(ctx, symbol); err != nil {
		if ok {
			cached.IsFresh = false
			return cached, nil
		}
		return Quote{}, err
	}
	fresh, _ := s.cache.get(symbol)
	return fresh, nil
}
