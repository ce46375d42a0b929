// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/google/cloudsdk-go/pkg/model"
)

var jsonMarshal = json.Marshal

// PubSub publishes every event of a wait as a JSON message, with the
// operation name and event type as attributes. Publishing is asynchronous;
// Close waits for the results.
type PubSub struct {
	topic  *pubsub.Topic
	client *pubsub.Client

	mu      sync.Mutex
	results []*pubsub.PublishResult
}

// NewPubSub publishes to topic. Messages of one operation share an ordering key.
func NewPubSub(topic *pubsub.Topic) (*PubSub, error) {
	if topic == nil {
		slog.Error("NewPubSub: topic cannot be nil")
		return nil, errors.New("topic cannot be nil")
	}
	topic.EnableMessageOrdering = true
	return &PubSub{topic: topic}, nil
}

// OpenPubSub connects to the topic named "projects/P/topics/T". The returned
// tracker owns the client and closes it in Close.
func OpenPubSub(ctx context.Context, topicName string, opts ...option.ClientOption) (*PubSub, error) {
	project, topicID, err := splitTopic(topicName)
	if err != nil {
		return nil, err
	}
	client, err := pubsub.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	p, err := NewPubSub(client.Topic(topicID))
	if err != nil {
		client.Close()
		return nil, err
	}
	p.client = client
	return p, nil
}

func splitTopic(name string) (string, string, error) {
	parts := strings.Split(name, "/")
	if len(parts) != 4 || parts[0] != "projects" || parts[2] != "topics" || parts[1] == "" || parts[3] == "" {
		return "", "", model.NewError(model.ErrorKindInvalidArgument, "invalid topic [%s]: expected projects/PROJECT/topics/TOPIC", name)
	}
	return parts[1], parts[3], nil
}

func (p *PubSub) Start(string) {}
func (p *PubSub) Tick(string) {}
func (p *PubSub) Done(Outcome) {}

// Observe publishes e.
func (p *PubSub) Observe(e model.ProgressEvent) {
	data, err := jsonMarshal(e)
	if err != nil {
		slog.Error("PubSub: Failed to marshal progress event", "operation", e.Operation, "error", err)
		return
	}
	res := p.topic.Publish(context.Background(), &pubsub.Message{
		Data:        data,
		OrderingKey: e.Operation,
		Attributes: map[string]string{
			"operation": e.Operation,
			"type":      string(e.Type),
		},
	})
	p.mu.Lock()
	p.results = append(p.results, res)
	p.mu.Unlock()
}

// Close waits for every publish to settle, stops the topic, and closes the
// client when the tracker owns it.
func (p *PubSub) Close(ctx context.Context) error {
	p.mu.Lock()
	results := p.results
	p.results = nil
	p.mu.Unlock()

	var errs []error
	for _, res := range results {
		if _, err := res.Get(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	p.topic.Stop()
	if p.client != nil {
		if err := p.client.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		slog.WarnContext(ctx, "PubSub: Some progress events were not published", "failed", len(errs), "error", err)
		return fmt.Errorf("failed to publish progress events: %w", err)
	}
	return nil
}
