// 包 messaging 账本事件的 Kafka 发布
package messaging

import (
	"context"

	"github.com/wyfcoding/brokerage/internal/ledger/domain"
	"github.com/wyfcoding/brokerage/pkg/logger"
	"github.com/wyfcoding/brokerage/pkg/mq"
)

// KafkaPublisher 把账本事件发到 Kafka，key 取账户 ID 保证同账户事件有序
type KafkaPublisher struct {
	producer *mq.KafkaProducer
	topic    string
}

// NewKafkaPublisher 创建 Kafka 事件发布器
func NewKafkaPublisher(producer *mq.KafkaProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// Publish 发布事件。账本已提交，发布失败只记日志
func (p *KafkaPublisher) Publish(ctx context.Context, event *domain.LedgerEvent) {
	if err := p.producer.SendMessage(ctx, p.topic, event.AccountID, event); err != nil {
		logger.Error(ctx, "failed to publish ledger event",
			"transaction_id", event.TransactionID,
			"account_id", event.AccountID,
			"error", err,
		)
	}
}

// Fanout 把同一事件广播给多个发布器
type Fanout []domain.EventPublisher

// Publish 依次发布到每个下游
func (f Fanout) Publish(ctx context.Context, event *domain.LedgerEvent) {
	for _, p := range f {
		p.Publish(ctx, event)
	}
}
