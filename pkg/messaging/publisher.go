package messaging

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"
	"minihpa/pkg/klog"
)

type Publisher struct {
	conn          *amqp.Connection
	connUrl       string
	maxRetry      int
	retryInterval time.Duration
	normal        bool
	mtxNormal     sync.Mutex
	mtxConn       sync.RWMutex
}

/*
NewPublisher dials the broker. A connection lost later is redialed in the
background up to MaxRetry times.
*/
func NewPublisher(config *QConfig) (*Publisher, error) {
	p := &Publisher{
		connUrl:       config.URL,
		maxRetry:      config.MaxRetry,
		retryInterval: config.RetryInterval,
	}
	if err := p.reconnect(); err != nil {
		return nil, errors.Wrap(err, "dial amqp")
	}
	return p, nil
}

// Publish broadcasts body on a durable fanout exchange and returns at once.
func (p *Publisher) Publish(exchangeName string, body []byte, contentType string) error {
	p.mtxConn.RLock()
	conn := p.conn
	p.mtxConn.RUnlock()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	err = ch.ExchangeDeclare(
		exchangeName,
		amqp.ExchangeFanout,
		true,
		false,
		false,
		false,
		nil)
	if err != nil {
		return err
	}

	return ch.Publish(
		exchangeName,
		exchangeName,
		false,
		false,
		amqp.Publishing{
			ContentType: contentType,
			Timestamp:   time.Now(),
			Body:        body,
		})
}

func (p *Publisher) CloseConnection() error {
	p.mtxNormal.Lock()
	p.normal = true
	p.mtxNormal.Unlock()
	p.mtxConn.RLock()
	defer p.mtxConn.RUnlock()
	if !p.conn.IsClosed() {
		return p.conn.Close()
	}
	return nil
}

func (p *Publisher) rerun(errCh <-chan *amqp.Error) {
	<-errCh
	p.mtxNormal.Lock()
	normal := p.normal
	p.mtxNormal.Unlock()
	if normal {
		klog.Infof("Publisher : Close connection normally...\n")
		return
	}
	for i := 1; i <= p.maxRetry; i++ {
		klog.Warnf("Publisher : Trying to reconnect : retry - %d\n", i)
		if err := p.reconnect(); err == nil {
			klog.Infof("Publisher : reconnected!\n")
			return
		}
		time.Sleep(p.retryInterval)
	}
	klog.Errorf("Publisher : Error reconnecting!\n")
}

func (p *Publisher) reconnect() error {
	conn, err := amqp.Dial(p.connUrl)
	if err != nil {
		return err
	}
	p.mtxConn.Lock()
	p.conn = conn
	p.mtxConn.Unlock()
	errCh := make(chan *amqp.Error, 1)
	conn.NotifyClose(errCh)
	go p.rerun(errCh)
	return nil
}
