// Package kube discovers cluster nodes from the Kubernetes API.
package kube

import (
	"context"
	"fmt"
	"net"
	"time"

	v1 "k8s.io/api/core/v1"
	"k8s.io/client-go/informers"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/cache"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/sakuffo/sakwatch/internal/cluster"
	"github.com/sakuffo/sakwatch/internal/logger"
	"github.com/sakuffo/sakwatch/internal/node"
)

// Role labels that make a node master eligible
var masterLabels = []string{
	"node-role.kubernetes.io/control-plane",
	"node-role.kubernetes.io/master",
}

// NewClientset builds a clientset from kubeconfig, or from the in-cluster
// service account when kubeconfig is empty.
func NewClientset(kubeconfig string) (kubernetes.Interface, error) {
	var (
		cfg *rest.Config
		err error
	)
	if kubeconfig == "" {
		cfg, err = rest.InClusterConfig()
	} else {
		cfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if err != nil {
		return nil, fmt.Errorf("kube: load config: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("kube: create clientset: %w", err)
	}
	return clientset, nil
}

// Discoverer watches core/v1 Nodes and reports ready nodes as cluster members.
type Discoverer struct {
	clientset kubernetes.Interface
	resync    time.Duration
	logger    logger.Logger
}

func New(clientset kubernetes.Interface, resync time.Duration, log logger.Logger) *Discoverer {
	return &Discoverer{clientset: clientset, resync: resync, logger: log}
}

func (d *Discoverer) Name() string { return "kubernetes" }

// Run starts a node informer and blocks until ctx is cancelled.
func (d *Discoverer) Run(ctx context.Context, m cluster.Membership) error {
	factory := informers.NewSharedInformerFactory(d.clientset, d.resync)
	informer := factory.Core().V1().Nodes().Informer()

	_, err := informer.AddEventHandler(cache.ResourceEventHandlerFuncs{
		AddFunc: func(obj interface{}) {
			if n, ok := obj.(*v1.Node); ok {
				d.observe(m, n)
			}
		},
		UpdateFunc: func(_, obj interface{}) {
			if n, ok := obj.(*v1.Node); ok {
				d.observe(m, n)
			}
		},
		DeleteFunc: func(obj interface{}) {
			if tombstone, ok := obj.(cache.DeletedFinalStateUnknown); ok {
				obj = tombstone.Obj
			}
			if n, ok := obj.(*v1.Node); ok {
				m.Leave(string(n.UID), cluster.SourceKubernetes)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("kube: add event handler: %w", err)
	}

	factory.Start(ctx.Done())
	for typ, synced := range factory.WaitForCacheSync(ctx.Done()) {
		if !synced {
			return fmt.Errorf("kube: cache for %v did not sync", typ)
		}
	}
	d.logger.Info("Kubernetes node informer started")

	<-ctx.Done()
	factory.Shutdown()
	return ctx.Err()
}

// observe joins ready nodes and removes nodes that stopped being ready.
func (d *Discoverer) observe(m cluster.Membership, n *v1.Node) {
	desc := toDescriptor(n)
	if desc.ID == m.Local().ID {
		return
	}
	if isReady(n) {
		m.Join(desc, cluster.SourceKubernetes)
		return
	}
	d.logger.Debug("Kubernetes node %s is not ready", n.Name)
	m.Leave(desc.ID, cluster.SourceKubernetes)
}

func isReady(n *v1.Node) bool {
	for _, cond := range n.Status.Conditions {
		if cond.Type == v1.NodeReady {
			return cond.Status == v1.ConditionTrue
		}
	}
	return false
}

func toDescriptor(n *v1.Node) *node.Descriptor {
	desc := &node.Descriptor{
		ID:         string(n.UID),
		Name:       n.Name,
		State:      node.Alive,
		Attributes: make(map[string]string, len(n.Labels)),
	}
	for k, v := range n.Labels {
		desc.Attributes[k] = v
	}
	for _, label := range masterLabels {
		if _, ok := n.Labels[label]; ok {
			desc.MasterEligible = true
		}
	}
	for _, addr := range n.Status.Addresses {
		switch addr.Type {
		case v1.NodeInternalIP:
			if desc.Address == nil {
				desc.Address = net.ParseIP(addr.Address)
			}
		case v1.NodeHostName:
			desc.HostName = addr.Address
		}
	}
	desc.Port = int(n.Status.DaemonEndpoints.KubeletEndpoint.Port)
	return desc
}
