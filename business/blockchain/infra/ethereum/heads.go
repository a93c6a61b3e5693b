package ethereum

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel/codes"

	"github.com/fd1az/flashloan-arb/business/blockchain/domain"
)

// deliver feeds heads until the subscriber stops or no transport is left.
// A broken stream is redialled after ReconnectDelay; if that fails the
// subscriber polls HTTP for the rest of its life.
func (s *Subscriber) deliver(ctx context.Context, poll bool) {
	for {
		if poll {
			s.pollHeads(ctx)
			return
		}
		if err := s.streamHeads(ctx); err == nil {
			return
		}
		next, ok := s.redial(ctx)
		if !ok {
			return
		}
		poll = next
	}
}

// streamHeads reads the WebSocket subscription. It returns nil when the
// subscriber stops and the failure when the stream breaks.
func (s *Subscriber) streamHeads(ctx context.Context) error {
	stream, _ := s.nodes.get()
	if stream == nil {
		return errors.New("no ws client")
	}

	headers := make(chan *types.Header, s.cfg.BufferSize)
	sub, err := stream.SubscribeNewHead(ctx, headers)
	if err != nil {
		s.log.Error(ctx, "subscribe new head failed", "error", err)
		s.metrics.errors.Add(ctx, 1)
		return err
	}
	defer sub.Unsubscribe()
	s.log.Info(ctx, "subscribed to new heads via ws")

	for {
		select {
		case <-s.stop:
			return nil
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			if err == nil {
				err = errors.New("subscription ended")
			}
			s.log.Error(ctx, "subscription error", "error", err)
			s.metrics.errors.Add(ctx, 1)
			return err
		case h := <-headers:
			if h != nil {
				s.emit(ctx, h)
			}
		}
	}
}

// redial reconnects after a broken stream and reports whether delivery
// continues by polling. ok is false when delivery must end.
func (s *Subscriber) redial(ctx context.Context) (poll, ok bool) {
	if s.closed.Load() {
		return false, false
	}
	s.setState(domain.StateReconnecting)
	s.reconnects.Add(1)

	select {
	case <-time.After(s.cfg.ReconnectDelay):
	case <-s.stop:
		return false, false
	case <-ctx.Done():
		return false, false
	}

	err := s.dialStream(ctx)
	if err == nil {
		s.polling.Store(false)
		s.setState(domain.StateConnected)
		return false, true
	}
	s.log.Warn(ctx, "ws reconnect failed, switching to http", "error", err)

	if err = s.dialPoll(ctx); err != nil {
		s.log.Error(ctx, "http fallback connection failed", "error", err)
		s.setState(domain.StateDisconnected)
		return false, false
	}
	s.polling.Store(true)
	s.metrics.fallbacks.Add(ctx, 1)
	s.setState(domain.StateConnected)
	return true, true
}

func (s *Subscriber) pollHeads(ctx context.Context) {
	s.log.Info(ctx, "starting http polling fallback", "interval", s.cfg.PollInterval)

	t := time.NewTicker(s.cfg.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-t.C:
			s.pollOnce(ctx)
		}
	}
}

func (s *Subscriber) pollOnce(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "eth.poll.block")
	defer span.End()

	_, poll := s.nodes.get()
	if poll == nil {
		span.AddEvent("no_http_client")
		return
	}
	header, err := s.pollCB.Execute(func() (*types.Header, error) {
		return poll.HeaderByNumber(ctx, nil)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "poll failed")
		s.log.Error(ctx, "http poll failed", "error", err)
		s.metrics.errors.Add(ctx, 1)
		return
	}
	s.emit(ctx, header)
}
