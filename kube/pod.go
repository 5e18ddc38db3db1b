package kube

import (
	"context"
	"io"

	"github.com/onepanelio/podlogs/model"
	"github.com/onepanelio/podlogs/util/ptr"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ListPods lists the pods in the namespace. Each entry carries the pod's
// regular container names followed by its init container names, both groups
// in the order the cluster reports them.
func (c *Client) ListPods(ctx context.Context, namespace string) (pods []*model.Pod, err error) {
	podList, err := c.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return
	}

	pods = make([]*model.Pod, 0, len(podList.Items))
	for _, pod := range podList.Items {
		containers := make([]string, 0, len(pod.Spec.Containers)+len(pod.Spec.InitContainers))
		for _, container := range pod.Spec.Containers {
			containers = append(containers, container.Name)
		}
		for _, container := range pod.Spec.InitContainers {
			containers = append(containers, container.Name)
		}

		pods = append(pods, &model.Pod{
			Name:       pod.Name,
			Containers: containers,
		})
	}

	return
}

// PodLogs opens a follow stream over the container's log, starting tailLines
// lines back. Reads block until new output arrives and the stream stays open
// until the container terminates, the connection drops, or ctx is cancelled.
func (c *Client) PodLogs(ctx context.Context, ref model.PodRef, tailLines int64) (io.ReadCloser, error) {
	return c.CoreV1().Pods(ref.Namespace).GetLogs(ref.Pod, &corev1.PodLogOptions{
		Container:  ref.Container,
		Follow:     true,
		Timestamps: true,
		TailLines:  ptr.Int64(tailLines),
	}).Stream(ctx)
}
