package kube

import (
	"context"

	"github.com/onepanelio/podlogs/model"
)

// MockClient serves a fixed set of pods so the application can run without
// cluster access. Every namespace reports the same pods.
type MockClient struct{}

// NewMockClient creates a MockClient.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// ListPods returns the fixed pod set.
func (c *MockClient) ListPods(ctx context.Context, namespace string) ([]*model.Pod, error) {
	return []*model.Pod{
		{Name: "pod-1", Containers: []string{"container-1", "container-2"}},
		{Name: "pod-2", Containers: []string{"container-3"}},
	}, nil
}

// ClusterName returns the mock cluster name.
func (c *MockClient) ClusterName() string {
	return MockClusterName
}
