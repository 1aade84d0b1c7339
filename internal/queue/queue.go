package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
)

// Publisher publishes dispatch requests and delivery events.
type Publisher interface {
	PublishDispatch(ctx context.Context, msg DispatchMessage) error
	PublishReport(ctx context.Context, report domain.DeliveryReport) error
	Close() error
}

// MessageHandler handles a consumed dispatch message.
type MessageHandler func(ctx context.Context, msg DispatchMessage) error

// Consumer consumes dispatch messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}

// QueueName returns the channel work queue name, e.g. dispatch.sms.
func QueueName(channel domain.ChannelID) string {
	return fmt.Sprintf("dispatch.%s", channel)
}

// channelForQueue reverses QueueName.
func channelForQueue(queue string) (domain.ChannelID, bool) {
	name, ok := strings.CutPrefix(queue, "dispatch.")
	if !ok {
		return "", false
	}
	channel := domain.ChannelID(name)
	return channel, channel.IsValid()
}

// DLQName returns the dead-letter queue name for a channel, e.g. dlq.dispatch.sms.
func DLQName(channel domain.ChannelID) string {
	return fmt.Sprintf("dlq.%s", QueueName(channel))
}

// ReportQueueName returns the queue delivery events are published to, e.g. delivery.sms.
func ReportQueueName(channel domain.ChannelID) string {
	return fmt.Sprintf("delivery.%s", channel)
}

// WorkQueueNames returns all channel work queues.
func WorkQueueNames() []string {
	return names(QueueName)
}

// DLQNames returns all dead-letter queues.
func DLQNames() []string {
	return names(DLQName)
}

// ReportQueueNames returns all delivery event queues.
func ReportQueueNames() []string {
	return names(ReportQueueName)
}

func names(fn func(domain.ChannelID) string) []string {
	channels := domain.Channels()
	queues := make([]string, 0, len(channels))
	for _, channel := range channels {
		queues = append(queues, fn(channel))
	}
	return queues
}
