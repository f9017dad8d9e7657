package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
)

// MockKafkaWriter mocks KafkaWriter interface
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

type fakeTopicAdmin struct {
	partitions  []kafka.Partition
	readErr     error
	reads       int
	created     []kafka.TopicConfig
	createError error
}

func (f *fakeTopicAdmin) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	f.reads++
	return f.partitions, f.readErr
}

func (f *fakeTopicAdmin) CreateTopics(topics ...kafka.TopicConfig) error {
	f.created = append(f.created, topics...)
	return f.createError
}

type countingRecorder struct {
	topics []string
}

func (c *countingRecorder) IncrPublisherFailure(topic string) {
	c.topics = append(c.topics, topic)
}
