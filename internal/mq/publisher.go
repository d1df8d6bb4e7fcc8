package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	ErrNotConfirmed = errors.New("message was not confirmed by broker")
	ErrUnavailable  = errors.New("rabbitmq is unavailable")
)

// Message — сообщение для топик-обменника.
type Message struct {
	ID         string
	RoutingKey string
	Body       []byte
	Timestamp  time.Time
	Headers    map[string]any
}

// session — соединение и канал в режиме подтверждений.
type session interface {
	// publish возвращает ack брокера.
	publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (bool, error)
	closed() bool
	close() error
}

type dialFunc func() (session, error)

// Publisher публикует сообщения в topic-exchange RabbitMQ в режиме
// publisher confirms: Publish возвращает nil только после ack от брокера.
//
// Если соединение или канал закрылись (рестарт брокера, обрыв сети),
// следующий Publish переподключается.
type Publisher struct {
	dial           dialFunc
	exchange       string
	confirmTimeout time.Duration

	// Канал AMQP не потокобезопасен для публикации с подтверждениями.
	mu   sync.Mutex
	sess session
}

func NewPublisher(url, exchange string, confirmTimeout time.Duration) (*Publisher, error) {
	p := newPublisher(func() (session, error) { return dialSession(url, exchange) }, exchange, confirmTimeout)
	sess, err := p.dial()
	if err != nil {
		return nil, err
	}
	p.sess = sess
	return p, nil
}

func newPublisher(dial dialFunc, exchange string, confirmTimeout time.Duration) *Publisher {
	if confirmTimeout <= 0 {
		confirmTimeout = 5 * time.Second
	}
	return &Publisher{dial: dial, exchange: exchange, confirmTimeout: confirmTimeout}
}

func (p *Publisher) Publish(ctx context.Context, msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	sess, err := p.session()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.confirmTimeout)
	defer cancel()

	acked, err := sess.publish(ctx, p.exchange, msg.RoutingKey, toPublishing(msg))
	if err != nil {
		if errors.Is(err, amqp.ErrClosed) || sess.closed() {
			p.reset()
		}
		return fmt.Errorf("publish %s: %w", msg.RoutingKey, err)
	}
	if !acked {
		return fmt.Errorf("publish %s: %w", msg.RoutingKey, ErrNotConfirmed)
	}
	return nil
}

// Ping проверяет соединение с брокером и при необходимости переподключается.
func (p *Publisher) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, err := p.session()
	return err
}

// session возвращает живую сессию, переподключаясь при необходимости.
// Вызывается под mu.
func (p *Publisher) session() (session, error) {
	if p.sess != nil && !p.sess.closed() {
		return p.sess, nil
	}
	p.reset()

	sess, err := p.dial()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	p.sess = sess
	return sess, nil
}

func (p *Publisher) reset() {
	if p.sess != nil {
		_ = p.sess.close()
		p.sess = nil
	}
}

func toPublishing(msg Message) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Type:         msg.RoutingKey,
		Timestamp:    msg.Timestamp,
		Headers:      amqp.Table(msg.Headers),
		Body:         msg.Body,
	}
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sess == nil {
		return nil
	}
	err := p.sess.close()
	p.sess = nil
	return err
}

type amqpSession struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	connClosed chan *amqp.Error
	chClosed   chan *amqp.Error
	lost       bool
}

func dialSession(url, exchange string) (session, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}

	return &amqpSession{
		conn:       conn,
		ch:         ch,
		connClosed: conn.NotifyClose(make(chan *amqp.Error, 1)),
		chClosed:   ch.NotifyClose(make(chan *amqp.Error, 1)),
	}, nil
}

func (s *amqpSession) publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (bool, error) {
	confirm, err := s.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
	if err != nil {
		return false, err
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return false, fmt.Errorf("wait confirm: %w", err)
	}
	return acked, nil
}

// closed сообщает, пришло ли уведомление о закрытии соединения или канала.
func (s *amqpSession) closed() bool {
	if s.lost {
		return true
	}
	select {
	case <-s.connClosed:
		s.lost = true
	case <-s.chClosed:
		s.lost = true
	default:
	}
	return s.lost || s.conn.IsClosed() || s.ch.IsClosed()
}

func (s *amqpSession) close() error {
	_ = s.ch.Close()
	if s.conn.IsClosed() {
		return nil
	}
	return s.conn.Close()
}
