package kube

import (
	"context"

	"github.com/onepanelio/podlogs/model"
	"k8s.io/client-go/kubernetes"
	_ "k8s.io/client-go/plugin/pkg/client/auth"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

const (
	// UnknownClusterName is reported when the active kubeconfig context
	// does not name a cluster, or when running in-cluster.
	UnknownClusterName = "Unknown Cluster"

	// MockClusterName is reported by the mock client.
	MockClusterName = "Mock Cluster"
)

// Cluster is the view of the Kubernetes cluster the rest of the application
// consumes: pod discovery and identification of the cluster being browsed.
type Cluster interface {
	ListPods(ctx context.Context, namespace string) ([]*model.Pod, error)
	ClusterName() string
}

// Client connects to a real Kubernetes cluster.
type Client struct {
	kubernetes.Interface
	clusterName string
}

// NewClient creates a client from the given kubeconfig path. With an empty
// path it tries in-cluster configuration first and falls back to the default
// kubeconfig loading rules.
func NewClient(kubeconfig string) (client *Client, err error) {
	config, err := buildConfig(kubeconfig)
	if err != nil {
		return
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return
	}

	client = &Client{
		Interface:   clientset,
		clusterName: currentClusterName(kubeconfig),
	}

	return
}

func buildConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig != "" {
		return clientcmd.BuildConfigFromFlags("", kubeconfig)
	}

	config, err := rest.InClusterConfig()
	if err == rest.ErrNotInCluster {
		return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
			clientcmd.NewDefaultClientConfigLoadingRules(),
			&clientcmd.ConfigOverrides{},
		).ClientConfig()
	}

	return config, err
}

func currentClusterName(kubeconfig string) string {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		rules.ExplicitPath = kubeconfig
	}

	rawConfig, err := rules.Load()
	if err != nil {
		return UnknownClusterName
	}

	kubeContext, ok := rawConfig.Contexts[rawConfig.CurrentContext]
	if !ok || kubeContext.Cluster == "" {
		return UnknownClusterName
	}

	return kubeContext.Cluster
}

// ClusterName returns the name of the cluster the client was built against.
func (c *Client) ClusterName() string {
	return c.clusterName
}
