package kube

import (
	"context"
	"io"
	"testing"

	"github.com/onepanelio/podlogs/model"
	"github.com/stretchr/testify/assert"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func testPod(namespace, name string, containers, initContainers []string) *corev1.Pod {
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Namespace: namespace,
			Name:      name,
		},
	}

	for _, container := range containers {
		pod.Spec.Containers = append(pod.Spec.Containers, corev1.Container{Name: container})
	}
	for _, container := range initContainers {
		pod.Spec.InitContainers = append(pod.Spec.InitContainers, corev1.Container{Name: container})
	}

	return pod
}

func TestClientListPods(t *testing.T) {
	c := NewTestClient(
		testPod("default", "api", []string{"main", "sidecar"}, []string{"init-db"}),
		testPod("default", "worker", []string{"main"}, nil),
		testPod("other", "hidden", []string{"main"}, nil),
	)

	pods, err := c.ListPods(context.Background(), "default")
	assert.Nil(t, err)
	assert.Len(t, pods, 2)

	containersByName := map[string][]string{}
	for _, pod := range pods {
		containersByName[pod.Name] = pod.Containers
	}

	assert.Equal(t, []string{"main", "sidecar", "init-db"}, containersByName["api"])
	assert.Equal(t, []string{"main"}, containersByName["worker"])
}

func TestClientListPodsEmpty(t *testing.T) {
	c := NewTestClient()

	pods, err := c.ListPods(context.Background(), "default")
	assert.Nil(t, err)
	assert.Empty(t, pods)
}

func TestClientPodLogs(t *testing.T) {
	c := NewTestClient(testPod("default", "api", []string{"main"}, nil))

	stream, err := c.PodLogs(context.Background(), model.PodRef{
		Namespace: "default",
		Pod:       "api",
		Container: "main",
	}, 100)
	assert.Nil(t, err)
	defer stream.Close()

	data, err := io.ReadAll(stream)
	assert.Nil(t, err)
	assert.Equal(t, "fake logs", string(data))
}

func TestClientClusterName(t *testing.T) {
	c := NewTestClient()

	assert.Equal(t, UnknownClusterName, c.ClusterName())
}

func TestMockClientListPods(t *testing.T) {
	c := NewMockClient()

	pods, err := c.ListPods(context.Background(), "any-namespace")
	assert.Nil(t, err)
	assert.Len(t, pods, 2)
	assert.Equal(t, "pod-1", pods[0].Name)
	assert.Equal(t, []string{"container-1", "container-2"}, pods[0].Containers)
	assert.Equal(t, "pod-2", pods[1].Name)
	assert.Equal(t, []string{"container-3"}, pods[1].Containers)
}

func TestMockClientClusterName(t *testing.T) {
	c := NewMockClient()

	assert.Equal(t, MockClusterName, c.ClusterName())
}
