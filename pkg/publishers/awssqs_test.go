package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type fakeSQSClient struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-123")}, nil
}

func TestAWSSQSSenderSendSuccess(t *testing.T) {
	client := &fakeSQSClient{}
	sender := &awsSQSSender{
		queueURL: "https://example.com/queue",
		client:   client,
		log:      noopLogger{},
	}

	err := sender.Send(context.Background(), Event{
		ClientID:     "desk-1",
		Method:       "POST",
		Endpoint:     "/accounts",
		ResourcePath: "/accounts",
		RequestKey:   "4f1c2d3e-0000-4000-8000-000000000001",
	})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.QueueUrl); got != "https://example.com/queue" {
		t.Fatalf("QueueUrl = %s", got)
	}
	attr, ok := client.input.MessageAttributes["resource_path"]
	if !ok || attr.StringValue == nil || aws.ToString(attr.StringValue) != "/accounts" {
		t.Fatalf("resource_path attribute missing or wrong: %#v", attr)
	}
	if attr.DataType == nil || aws.ToString(attr.DataType) != "String" {
		t.Fatalf("DataType should be String, got %#v", attr.DataType)
	}
	if client.input.MessageBody == nil || !strings.Contains(aws.ToString(client.input.MessageBody), `"client_id":"desk-1"`) {
		t.Fatalf("MessageBody missing client_id: %s", aws.ToString(client.input.MessageBody))
	}
}

func TestAWSSQSSenderSendError(t *testing.T) {
	client := &fakeSQSClient{err: errors.New("boom")}
	sender := &awsSQSSender{
		queueURL: "https://example.com/queue",
		client:   client,
		log:      noopLogger{},
	}

	err := sender.Send(context.Background(), Event{
		ClientID:     "desk-1",
		Method:       "POST",
		Endpoint:     "/accounts",
		ResourcePath: "/accounts",
		RequestKey:   "4f1c2d3e-0000-4000-8000-000000000001",
	})
	if err == nil {
		t.Fatalf("expected error from Send")
	}
}

func TestAWSSQSSenderFIFOQueueSetsGroupAndDedup(t *testing.T) {
	client := &fakeSQSClient{}
	sender := &awsSQSSender{
		queueURL: "https://sqs.eu-west-1.amazonaws.com/123/mutations.fifo",
		client:   client,
		log:      noopLogger{},
	}

	if err := sender.Send(context.Background(), Event{ResourcePath: "/accounts", RequestKey: "rk-1"}); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if got := aws.ToString(client.input.MessageGroupId); got != "/accounts" {
		t.Fatalf("MessageGroupId = %q", got)
	}
	if got := aws.ToString(client.input.MessageDeduplicationId); got != "rk-1" {
		t.Fatalf("MessageDeduplicationId = %q", got)
	}
	if _, ok := client.input.MessageAttributes["client_id"]; ok {
		t.Fatalf("empty attributes should be omitted")
	}
}
