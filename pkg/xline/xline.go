/*
Copyright 2021 The Cockroach Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package xline models the two ways a member of the managed store can be
// started and stopped: as a local child process, or as an in-pod exec
// session. Neither implementation is wired into the reconcile path; the
// managed store's own process supervisor (not this operator) is
// responsible for driving members across their lifecycle. The types
// exist so that alternate deployment topologies can reuse the same
// contract the reconciler's children assume.
package xline

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/remotecommand"
)

// Config is the set of arguments used to build a member's start command.
type Config struct {
	Name          string
	Executable    string
	StorageEngine string
	DataDir       string
	IsLeader      bool
	Additional    string
}

// startCommand renders the executable invocation for joining members,
// mirroring the managed store's own argument conventions.
func (c Config) startCommand(members map[string]string) []string {
	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(members))
	for _, name := range names {
		pairs = append(pairs, fmt.Sprintf("%s=%s", name, members[name]))
	}

	args := []string{
		c.Executable,
		"--name", c.Name,
		"--members", strings.Join(pairs, ","),
		"--storage-engine", c.StorageEngine,
		"--data-dir", c.DataDir,
	}
	if c.IsLeader {
		args = append(args, "--is-leader")
	}
	if c.Additional != "" {
		args = append(args, strings.Fields(strings.Trim(c.Additional, `'"`))...)
	}
	return args
}

// Handle starts and stops one member of the managed store. Start is
// idempotent: it kills any previously started instance before spawning
// the new one.
type Handle interface {
	Start(ctx context.Context, members map[string]string) error
	Kill(ctx context.Context) error
}

// LocalHandle runs a member as a local child process.
type LocalHandle struct {
	cfg Config

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewLocalHandle constructs a LocalHandle for cfg.
func NewLocalHandle(cfg Config) *LocalHandle {
	return &LocalHandle{cfg: cfg}
}

// Start kills any running instance, then spawns a new one with the given
// member set.
func (h *LocalHandle) Start(ctx context.Context, members map[string]string) error {
	if err := h.Kill(ctx); err != nil {
		return err
	}

	args := h.cfg.startCommand(members)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "starting local xline process")
	}

	h.mu.Lock()
	h.cmd = cmd
	h.mu.Unlock()
	return nil
}

// Kill terminates the running process, if any. It is a no-op otherwise.
func (h *LocalHandle) Kill(context.Context) error {
	h.mu.Lock()
	cmd := h.cmd
	h.cmd = nil
	h.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil {
		return errors.Wrap(err, "killing local xline process")
	}
	return nil
}

// PodExecHandle runs a member inside an existing pod's container via
// exec, the way a human operator would debug the real workload.
type PodExecHandle struct {
	cfg Config

	clientset     *kubernetes.Clientset
	restConfig    *rest.Config
	namespace     string
	podName       string
	containerName string

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewPodExecHandle constructs a PodExecHandle targeting a single
// container of a single pod.
func NewPodExecHandle(clientset *kubernetes.Clientset, restConfig *rest.Config, namespace, podName, containerName string, cfg Config) *PodExecHandle {
	return &PodExecHandle{
		cfg:           cfg,
		clientset:     clientset,
		restConfig:    restConfig,
		namespace:     namespace,
		podName:       podName,
		containerName: containerName,
	}
}

// Start kills any in-flight exec session, then attaches a new one
// running the member's start command inside the target container.
func (h *PodExecHandle) Start(ctx context.Context, members map[string]string) error {
	if err := h.Kill(ctx); err != nil {
		return err
	}

	req := h.clientset.CoreV1().RESTClient().Post().
		Resource("pods").
		Name(h.podName).
		Namespace(h.namespace).
		SubResource("exec").
		Param("container", h.containerName).
		VersionedParams(&corev1.PodExecOptions{
			Command: h.cfg.startCommand(members),
			Stdout:  true,
			Stderr:  true,
		}, scheme.ParameterCodec)

	executor, err := remotecommand.NewSPDYExecutor(h.restConfig, "POST", req.URL())
	if err != nil {
		return errors.Wrap(err, "building pod exec session")
	}

	execCtx, cancel := context.WithCancel(ctx)
	var stdout, stderr bytes.Buffer
	go func() {
		defer cancel()
		_ = executor.StreamWithContext(execCtx, remotecommand.StreamOptions{Stdout: &stdout, Stderr: &stderr})
	}()

	h.mu.Lock()
	h.cancel = cancel
	h.mu.Unlock()
	return nil
}

// Kill aborts the in-flight exec session, if any.
func (h *PodExecHandle) Kill(context.Context) error {
	h.mu.Lock()
	cancel := h.cancel
	h.cancel = nil
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}
