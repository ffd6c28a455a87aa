// Package dockersandbox is the production sandbox.Session backed by the
// real Docker daemon, grounded on the exec/attach/inspect pattern of the
// pack's agents/shared/docker/client.go: ContainerExecCreate +
// ContainerExecAttach + a goroutine-driven stdin copy with CloseWrite +
// stdcopy.StdCopy to demux stdout/stderr + ContainerExecInspect for the
// exit code (defaulting to -1 when the exec never reported one).
package dockersandbox

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	dockerclient "github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/mdvalidate/mdbook-validator/eventlog"
	"github.com/mdvalidate/mdbook-validator/sandbox"
)

// idleCommand keeps the sandbox's main process alive so SETUP and query
// execs share container filesystem state across calls, per spec.md
// §4.C's invariant.
var idleCommand = []string{"sleep", "infinity"}

// Starter starts sandbox.Session instances backed by a real Docker
// daemon.
type Starter struct {
	api *dockerclient.Client
	log eventlog.Sink
}

func NewStarter(log eventlog.Sink) (*Starter, error) {
	api, err := dockerclient.NewClientWithOpts(dockerclient.FromEnv, dockerclient.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to construct docker client: %w", err)
	}
	if log == nil {
		log = eventlog.Default
	}
	return &Starter{api: api, log: log}, nil
}

func (s *Starter) Start(ctx context.Context, opts sandbox.StartOptions) (sandbox.Session, error) {
	if opts.Image == "" {
		return nil, fmt.Errorf("sandbox start requires an image reference")
	}

	var mounts []mount.Mount
	if opts.MountHostPath != "" {
		hostPath, err := filepath.Abs(opts.MountHostPath)
		if err != nil {
			return nil, fmt.Errorf("canonicalizing mount host path: %w", err)
		}
		mounts = appendUniqueMount(mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   hostPath,
			Target:   opts.MountInnerPath,
			ReadOnly: false,
		})
	}

	cfg := &container.Config{
		Image: opts.Image,
		Cmd:   idleCommand,
		Tty:   false,
	}
	hostCfg := &container.HostConfig{Mounts: mounts}

	resp, err := s.api.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("creating sandbox container from %s: %w", opts.Image, err)
	}
	if err := s.api.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("starting sandbox container %s: %w", resp.ID, err)
	}

	if opts.ScriptHostPath != "" && opts.ScriptMountPath != "" {
		if err := copyFileToContainer(ctx, s.api, resp.ID, opts.ScriptHostPath, opts.ScriptMountPath); err != nil {
			return nil, fmt.Errorf("copying validator script into sandbox: %w", err)
		}
	}

	s.log.Debugf("sandbox container %s started from %s", resp.ID[:min(12, len(resp.ID))], opts.Image)
	return &Session{api: s.api, containerID: resp.ID, log: s.log}, nil
}

// appendUniqueMount mirrors agents/shared/docker/container_core.go's
// dedup helper: a later mount targeting the same interior path replaces
// an earlier one rather than producing a duplicate bind.
func appendUniqueMount(mounts []mount.Mount, m mount.Mount) []mount.Mount {
	for i, existing := range mounts {
		if existing.Target == m.Target {
			mounts[i] = m
			return mounts
		}
	}
	return append(mounts, m)
}

// Session is one running sandbox container.
type Session struct {
	api         *dockerclient.Client
	containerID string
	log         eventlog.Sink
}

func (s *Session) ID() string { return s.containerID }

func (s *Session) Exec(ctx context.Context, req sandbox.ExecRequest) (sandbox.Result, error) {
	var env []string
	for k, v := range req.Env {
		env = append(env, k+"="+v)
	}

	hasStdin := req.Stdin != ""
	execResp, err := s.api.ContainerExecCreate(ctx, s.containerID, container.ExecOptions{
		AttachStdout: true,
		AttachStderr: true,
		AttachStdin:  hasStdin,
		Cmd:          req.Argv,
		Env:          env,
	})
	if err != nil {
		return sandbox.Result{}, fmt.Errorf("creating exec in sandbox %s: %w", s.containerID, err)
	}

	attach, err := s.api.ContainerExecAttach(ctx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return sandbox.Result{}, fmt.Errorf("attaching exec in sandbox %s: %w", s.containerID, err)
	}
	defer attach.Close()

	errCh := make(chan error, 1)
	go func() {
		if !hasStdin {
			errCh <- nil
			return
		}
		_, err := io.Copy(attach.Conn, strings.NewReader(req.Stdin))
		if cw, ok := attach.Conn.(interface{ CloseWrite() error }); ok {
			_ = cw.CloseWrite()
		}
		errCh <- err
	}()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attach.Reader); err != nil {
		return sandbox.Result{}, fmt.Errorf("draining exec output in sandbox %s: %w", s.containerID, err)
	}
	if ioErr := <-errCh; ioErr != nil {
		return sandbox.Result{}, fmt.Errorf("writing exec stdin in sandbox %s: %w", s.containerID, ioErr)
	}

	inspect, err := s.api.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return sandbox.Result{}, fmt.Errorf("inspecting exec in sandbox %s: %w", s.containerID, err)
	}

	exitCode := -1
	if inspect.ExitCode != 0 || !inspect.Running {
		exitCode = inspect.ExitCode
	}

	return sandbox.Result{ExitCode: exitCode, Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

func (s *Session) Drop(ctx context.Context) error {
	return s.api.ContainerRemove(ctx, s.containerID, container.RemoveOptions{Force: true})
}

// copyFileToContainer places a single host file into the container at
// destPath, tar-encoded the way CopyFileToContainer does in the pack's
// docker client.
func copyFileToContainer(ctx context.Context, api *dockerclient.Client, containerID, hostPath, destPath string) error {
	data, err := os.ReadFile(hostPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", hostPath, err)
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	hdr := &tar.Header{
		Name: filepath.Base(destPath),
		Mode: 0o755,
		Size: int64(len(data)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if _, err := tw.Write(data); err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}

	return api.CopyToContainer(ctx, containerID, filepath.Dir(destPath), &buf, container.CopyToContainerOptions{})
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
