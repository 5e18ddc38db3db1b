package kube

import (
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
)

// NewTestClient returns a client backed by a fake clientset seeded with the
// given objects.
func NewTestClient(objects ...runtime.Object) (client *Client) {
	return &Client{
		Interface:   fake.NewSimpleClientset(objects...),
		clusterName: UnknownClusterName,
	}
}
