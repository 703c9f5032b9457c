package testhelpers

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
)

// NewTestBroker starts a RabbitMQ container and returns its amqp:// URL.
// The container is terminated when the test finishes.
func NewTestBroker(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	rabbitmqContainer, err := rabbitmq.Run(ctx,
		"rabbitmq:3.12-management-alpine",
		rabbitmq.WithAdminPassword("password"),
	)
	if err != nil {
		t.Fatalf("failed to start rabbitmq container: %s", err)
	}
	t.Cleanup(func() {
		if termErr := rabbitmqContainer.Terminate(context.Background()); termErr != nil {
			t.Logf("failed to terminate container: %s", termErr)
		}
	})

	amqpURL, err := rabbitmqContainer.AmqpURL(ctx)
	if err != nil {
		t.Fatalf("failed to get amqp url: %s", err)
	}
	return amqpURL
}
