package model

import "time"

// PodRef identifies a single container's log stream within the cluster.
type PodRef struct {
	Namespace string
	Pod       string
	Container string
}

// Pod is a pod listing entry. Containers holds the pod's regular containers
// followed by its init containers, each group in cluster-reported order.
type Pod struct {
	Name       string   `json:"pod"`
	Containers []string `json:"containers"`
}

// LogEntry is one line of log output produced by a source. Timestamp is zero
// when the backing line carried no parseable timestamp.
type LogEntry struct {
	PodRef
	Line      string
	Timestamp time.Time
}
