package bridge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"go.uber.org/zap"

	"github.com/ironsheep/shoreline-batch/internal/imagery"
	"github.com/ironsheep/shoreline-batch/internal/params"
)

// Worker method names.
const (
	MethodCheck    = "imagery/check"
	MethodRetrieve = "imagery/retrieve"
	MethodMetadata = "imagery/metadata"
	MethodPreviews = "imagery/previews"
	MethodExtract  = "shorelines/extract"
)

// Worker implements imagery.Worker on top of a Client.
type Worker struct {
	client *Client
	cmd    *exec.Cmd
	stderr chan struct{}
}

var _ imagery.Worker = (*Worker)(nil)

// NewWorker wraps an existing client, e.g. one connected to pipes in tests.
func NewWorker(client *Client) *Worker {
	return &Worker{client: client}
}

// Start launches the worker command and connects to its stdio.
func Start(ctx context.Context, command []string, dir string, logger *zap.Logger) (*Worker, error) {
	if len(command) == 0 {
		return nil, errors.New("worker command is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Dir = dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open worker stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open worker stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start worker %q: %w", command[0], err)
	}
	logger.Info("worker started", zap.Strings("command", command), zap.Int("pid", cmd.Process.Pid))

	w := &Worker{
		client: NewClient(stdout, stdin, logger),
		cmd:    cmd,
		stderr: make(chan struct{}),
	}
	go forwardStderr(stderr, logger, w.stderr)
	return w, nil
}

func forwardStderr(r io.Reader, logger *zap.Logger, done chan<- struct{}) {
	defer close(done)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		logger.Info("worker", zap.String("stderr", scanner.Text()))
	}
}

// Close ends the session and waits for the worker process to exit.
func (w *Worker) Close() error {
	err := w.client.Close()
	if w.cmd == nil {
		return err
	}
	<-w.stderr
	if waitErr := w.cmd.Wait(); waitErr != nil && err == nil {
		err = fmt.Errorf("worker exited: %w", waitErr)
	}
	return err
}

type inputsParams struct {
	Inputs params.Inputs `json:"inputs"`
}

type processParams struct {
	Metadata imagery.Metadata `json:"metadata"`
	Settings params.Settings  `json:"settings"`
}

// CheckAvailability asks whether any image matches the region's request.
func (w *Worker) CheckAvailability(ctx context.Context, in params.Inputs) (bool, error) {
	var available bool
	if err := w.call(ctx, MethodCheck, inputsParams{Inputs: in}, &available); err != nil {
		return false, err
	}
	return available, nil
}

// Retrieve downloads the region's imagery into the worker cache.
func (w *Worker) Retrieve(ctx context.Context, in params.Inputs) (imagery.Metadata, error) {
	var md imagery.Metadata
	if err := w.call(ctx, MethodRetrieve, inputsParams{Inputs: in}, &md); err != nil {
		return nil, err
	}
	return md, nil
}

// LoadMetadata reads the metadata of cached imagery.
func (w *Worker) LoadMetadata(ctx context.Context, in params.Inputs) (imagery.Metadata, error) {
	var md imagery.Metadata
	if err := w.call(ctx, MethodMetadata, inputsParams{Inputs: in}, &md); err != nil {
		return nil, err
	}
	return md, nil
}

// GeneratePreviews has the worker write cloud-masked previews.
func (w *Worker) GeneratePreviews(ctx context.Context, md imagery.Metadata, settings params.Settings) error {
	return w.call(ctx, MethodPreviews, processParams{Metadata: md, Settings: settings}, nil)
}

// Extract runs shoreline detection on every image of the region.
func (w *Worker) Extract(ctx context.Context, md imagery.Metadata, settings params.Settings) (imagery.Output, error) {
	var out imagery.Output
	if err := w.call(ctx, MethodExtract, processParams{Metadata: md, Settings: settings}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (w *Worker) call(ctx context.Context, method string, p, result interface{}) error {
	err := w.client.Call(ctx, method, p, result)
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) && rpcErr.Code == CodeNoImagery {
		return fmt.Errorf("%w: %s", imagery.ErrNoImagery, rpcErr.Message)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}
