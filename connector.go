package obix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cstbox/ext-obix/config"
	"github.com/cstbox/ext-obix/internal/gateway"
	"github.com/cstbox/ext-obix/internal/transport"
)

// Policy constants of the polling engine. Durations governing the error
// throttle and the transport retry policy; tunable in source, constant for
// the engine's lifetime.
const (
	maxRequestRetries = 3
	requestRetryDelay = 5 * time.Second

	errorReportTTL        = 2 * time.Hour
	maxReportCount        = 3
	solidFailureThreshold = 24 * time.Hour

	// loopWakeInterval is how often the worker checks the termination flag
	// between scheduled cycles.
	loopWakeInterval = 500 * time.Millisecond

	// terminateTimeout bounds how long Terminate waits for the worker.
	terminateTimeout = 30 * time.Second
)

// Transport abstracts the gateway exchange so tests can substitute a
// scripted gateway. The production implementation is [transport.Client].
type Transport interface {
	Send(ctx context.Context, url string, body []byte) transport.Response
}

// lastEmission records the last value published for a canonical name and
// when, for change detection and TTL-based re-emission.
type lastEmission struct {
	value any
	at    time.Time
}

// Connector is the polling engine bridging one oBIX gateway to an event sink.
//
// Create it with [New], run it with [Connector.Start], stop it with
// [Connector.Terminate]. All mutable engine state (last emissions, per-point
// error states, transport failure level, next tick) is owned exclusively by
// the worker goroutine; the termination flag is the only field written from
// outside it.
type Connector struct {
	gw            config.Gateway
	points        []string // sorted point ids; fixes request and reply order
	mapping       map[string]gateway.PointDef
	filters       map[string]config.Bounds
	eventsTTL     time.Duration
	pollingPeriod time.Duration

	sink      EventSink
	transport Transport
	logger    *slog.Logger

	// url and request depend only on immutable config, built once.
	url     string
	request []byte

	// worker-owned state
	last   map[string]lastEmission
	errors map[string]*errorState
	health *transport.Monitor
	nowFn  func() time.Time

	terminate atomic.Bool

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// Option customises a [Connector] created by [New].
type Option func(*Connector) error

// WithLogger sets the connector's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Connector) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithTransport replaces the gateway transport. Intended for tests that
// simulate the gateway; production code uses the default retrying client.
func WithTransport(t Transport) Option {
	return func(c *Connector) error {
		if t == nil {
			return errors.New("transport must not be nil")
		}
		c.transport = t
		return nil
	}
}

// New creates a [Connector] from a validated configuration and an event sink.
//
// The sink is mandatory; a nil sink or missing gateway parameters are
// construction errors and the engine never starts. Point identifiers are
// sorted once here; the resulting order is used for both request building
// and reply correlation (the protocol pairs entries positionally).
func New(cfg *config.Config, sink EventSink, opts ...Option) (*Connector, error) {
	if cfg == nil {
		return nil, errors.New("cfg parameter is mandatory")
	}
	if sink == nil {
		return nil, errors.New("sink parameter is mandatory")
	}
	if cfg.Gateway.Host == "" || cfg.Gateway.NodeID == "" || cfg.Gateway.DeviceID == "" {
		return nil, errors.New("gateway host, node_id and device_id parameters are mandatory")
	}
	if len(cfg.Mapping) == 0 {
		return nil, errors.New("mapping must define at least one point")
	}

	points := make([]string, 0, len(cfg.Mapping))
	mapping := make(map[string]gateway.PointDef, len(cfg.Mapping))
	for pointID, def := range cfg.Mapping {
		points = append(points, pointID)
		mapping[pointID] = gateway.PointDef{Name: def.Name, Type: def.Type}
	}
	sort.Strings(points)

	c := &Connector{
		gw:            cfg.Gateway,
		points:        points,
		mapping:       mapping,
		filters:       cfg.Filters,
		eventsTTL:     cfg.Global.EventsTTL.Duration(),
		pollingPeriod: cfg.Global.PollingPeriod.Duration(),
		sink:          sink,
		url:           gateway.BatchURL(cfg.Gateway.Host),
		request:       gateway.BuildBatchRequest(cfg.Gateway.Host, cfg.Gateway.NodeID, cfg.Gateway.DeviceID, points),
		last:          make(map[string]lastEmission),
		errors:        make(map[string]*errorState),
		nowFn:         time.Now,
	}
	if c.eventsTTL <= 0 || c.pollingPeriod <= 0 {
		return nil, errors.New("events TTL and polling period must be positive")
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.transport == nil {
		c.transport = transport.NewClient(maxRequestRetries, requestRetryDelay, c.logger)
	}
	c.health = transport.NewMonitor(c.logger)

	c.logConfiguration()
	return c, nil
}

// logConfiguration echoes the resolved configuration, the way operators
// expect to find it at the top of the daemon log.
func (c *Connector) logConfiguration() {
	c.logger.Info("gateway configuration",
		"host", c.gw.Host, "node_id", c.gw.NodeID, "device_id", c.gw.DeviceID)
	for _, p := range c.points {
		def := c.mapping[p]
		c.logger.Info("mapping", "point", p, "name", def.Name, "type", def.Type)
	}
	for p, b := range c.filters {
		c.logger.Info("filter", "point", p, "min", ptrOrNil(b.Min), "max", ptrOrNil(b.Max))
	}
	c.logger.Info("global configuration",
		"events_ttl", c.eventsTTL, "polling_period", c.pollingPeriod)
}

func ptrOrNil(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// Start launches the polling worker. It does not block.
//
// Start is idempotent: calling it while the worker is already running is a
// no-op, logged as a warning.
func (c *Connector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		c.logger.Warn("start ignored: already running")
		return
	}

	c.terminate.Store(false)
	c.done = make(chan struct{})
	c.running = true

	go func() {
		defer func() {
			c.mu.Lock()
			c.running = false
			close(c.done)
			c.mu.Unlock()
		}()
		c.loop(nil)
	}()
}

// Terminate asks the worker to stop and waits for it, up to a bounded
// timeout. Safe to call when the worker is not running.
func (c *Connector) Terminate() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	done := c.done
	c.mu.Unlock()

	c.logger.Info("terminating polling worker")
	c.terminate.Store(true)

	select {
	case <-done:
		c.logger.Info("polling worker terminated")
	case <-time.After(terminateTimeout):
		c.logger.Warn("timed out waiting for polling worker to stop")
	}
}

// StepRun drives the polling loop synchronously, calling callback after each
// iteration and stopping when it returns false.
//
// NOT FOR NORMAL USE: this is the unit-test entry point. It bypasses the
// worker goroutine and the wake-interval sleep so tests can drive cycles
// deterministically.
func (c *Connector) StepRun(callback func(*Connector) bool) {
	c.loop(callback)
}

// loop is the scheduler: it fires one full poll cycle whenever the current
// time reaches the next scheduled tick, then schedules the following tick at
// cycle start + polling period. Cycle duration is not added to the period;
// an overrunning cycle simply makes the next one fire immediately.
//
// Between ticks the worker sleeps in short increments so a termination
// request is observed with sub-second latency.
func (c *Connector) loop(step func(*Connector) bool) {
	c.logger.Info("starting polling loop", "period", c.pollingPeriod)

	var next time.Time
	for !c.terminate.Load() {
		now := c.nowFn()

		if !now.Before(next) {
			c.runCycle(context.Background(), now)
			next = now.Add(c.pollingPeriod)
		}

		if step != nil {
			if !step(c) {
				break
			}
			continue
		}
		time.Sleep(loopWakeInterval)
	}

	c.logger.Info("polling loop terminated")
}

// PointCount returns the number of monitored points.
func (c *Connector) PointCount() int { return len(c.points) }

// String implements fmt.Stringer for log-friendly identification.
func (c *Connector) String() string {
	return fmt.Sprintf("obix.Connector(%s/%s/%s, %d points)",
		c.gw.Host, c.gw.NodeID, c.gw.DeviceID, len(c.points))
}
