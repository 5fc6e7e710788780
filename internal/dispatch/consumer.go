// Package dispatch receives control messages from the worker's pull
// socket and fans each one out to a registered job handler.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-zeromq/zmq4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"

	"github.com/pushkind/crawler-service/internal/telemetry"
)

// Handler runs one job for a decoded envelope.
type Handler func(ctx context.Context, env Envelope) error

// ConsumerConfig configures the control socket consumer.
type ConsumerConfig struct {
	// Address is the endpoint the pull socket binds, e.g.
	// "tcp://127.0.0.1:5555".
	Address string
	// DrainTimeout bounds how long Run waits for in-flight jobs after
	// the receive loop stops.
	DrainTimeout time.Duration
	Logger       zerolog.Logger
}

// Consumer binds a pull socket and spawns one goroutine per received
// envelope. The receive loop never blocks on job execution.
type Consumer struct {
	cfg      ConsumerConfig
	sock     zmq4.Socket
	handlers map[Kind]Handler
	wg       sync.WaitGroup
}

func NewConsumer(cfg ConsumerConfig) *Consumer {
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 30 * time.Second
	}
	return &Consumer{
		cfg:      cfg,
		handlers: make(map[Kind]Handler),
	}
}

// RegisterHandler installs the handler for one envelope kind. All
// handlers must be registered before Run.
func (c *Consumer) RegisterHandler(kind Kind, handler Handler) {
	c.handlers[kind] = handler
}

// Listen binds the pull socket. The socket lives until ctx is
// cancelled.
func (c *Consumer) Listen(ctx context.Context) error {
	sock := zmq4.NewPull(ctx)
	if err := sock.Listen(c.cfg.Address); err != nil {
		return fmt.Errorf("bind %s: %w", c.cfg.Address, err)
	}
	c.sock = sock
	c.cfg.Logger.Info().Str("address", c.cfg.Address).Msg("Listening for control messages")
	return nil
}

// Addr returns the bound socket address. Useful when Listen was given
// a port-zero endpoint.
func (c *Consumer) Addr() net.Addr {
	if c.sock == nil {
		return nil
	}
	return c.sock.Addr()
}

// Run receives envelopes until ctx is cancelled, then waits up to
// DrainTimeout for spawned jobs to finish.
func (c *Consumer) Run(ctx context.Context) error {
	if c.sock == nil {
		return errors.New("consumer is not listening")
	}

	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			// Closing the socket is what unblocks a pending Recv.
			c.sock.Close()
		case <-stopped:
		}
	}()

	for {
		msg, err := c.sock.Recv()
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			c.cfg.Logger.Error().Err(err).Msg("Failed to receive message")
			continue
		}
		c.dispatch(ctx, msg.Bytes())
	}
	close(stopped)

	c.cfg.Logger.Info().Msg("Receive loop stopped, draining jobs")
	return c.drain()
}

func (c *Consumer) dispatch(ctx context.Context, payload []byte) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		envelopesMalformed.Inc()
		c.cfg.Logger.Error().Err(err).Bytes("payload", clip(payload)).Msg("Failed to parse message")
		return
	}

	kind := env.Kind()
	handler, ok := c.handlers[kind]
	if !ok {
		c.cfg.Logger.Error().Str("kind", string(kind)).Msg("No handler registered for message")
		return
	}
	envelopesReceived.WithLabelValues(string(kind)).Inc()

	// Concurrent jobs interleave their log lines; the job id ties the
	// lines of one envelope together.
	logger := c.cfg.Logger.With().
		Str("job_id", uuid.NewString()).
		Str("kind", string(kind)).
		Logger()
	logger.Info().Msg("Received message")

	// Jobs run on a context detached from the receive loop; shutdown
	// waits in drain() instead of cancelling them mid-transaction.
	jobCtx := context.WithoutCancel(ctx)
	c.wg.Add(1)
	jobsInFlight.Inc()
	go func() {
		defer c.wg.Done()
		defer jobsInFlight.Dec()
		ctx, span := telemetry.Tracer().Start(jobCtx, "job."+string(kind))
		defer span.End()
		if err := handler(ctx, env); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error().Err(err).Msg("Job failed")
		}
	}()
}

func (c *Consumer) drain() error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.cfg.Logger.Info().Msg("All in-flight jobs finished")
		return nil
	case <-time.After(c.cfg.DrainTimeout):
		c.cfg.Logger.Warn().Dur("timeout", c.cfg.DrainTimeout).Msg("Drain timed out, abandoning in-flight jobs")
		return fmt.Errorf("drain timed out after %s", c.cfg.DrainTimeout)
	}
}

func clip(b []byte) []byte {
	const max = 256
	if len(b) > max {
		return b[:max]
	}
	return b
}
