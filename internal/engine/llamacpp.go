package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/jimmy12-d/rean-ai/internal/model"
)

type llamaCPPConfig struct {
	BinPath               string `json:"bin_path"`
	CtxSize               int    `json:"ctx_size"`
	GPULayers             int    `json:"gpu_layers"`
	StartupTimeoutSeconds int    `json:"startup_timeout_seconds"`
}

// llamaCPPEngine owns one llama-server subprocess serving a single base
// model + adapter pair. Loading a model means spawning the server and waiting
// for its health probe; closing kills the process, which is what actually
// releases the weights.
type llamaCPPEngine struct {
	client    *completionClient
	cmd       *exec.Cmd
	closeOnce sync.Once
	closeErr  error
}

func newLlamaCPPEngine(profile model.ModelProfile, args interface{}) (Engine, error) {
	cfg := &llamaCPPConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.BinPath == "" {
		cfg.BinPath = "llama-server"
	}
	if cfg.CtxSize <= 0 {
		cfg.CtxSize = 2048
	}
	if cfg.GPULayers == 0 {
		cfg.GPULayers = -1
	}
	if cfg.StartupTimeoutSeconds <= 0 {
		cfg.StartupTimeoutSeconds = 180
	}

	// Each instance gets its own port so an old engine can stay alive until
	// the replacement is confirmed healthy.
	port, err := freePort()
	if err != nil {
		return nil, err
	}
	cmdArgs := []string{
		"-m", profile.WeightsPath,
		"-c", strconv.Itoa(cfg.CtxSize),
		"-ngl", strconv.Itoa(cfg.GPULayers),
		"--host", "127.0.0.1",
		"--port", strconv.Itoa(port),
	}
	if profile.AdapterPath != "" {
		scale := profile.AdapterScale
		if scale == 0 {
			scale = 1.0
		}
		cmdArgs = append(cmdArgs, "--lora-scaled", profile.AdapterPath, strconv.FormatFloat(scale, 'f', -1, 64))
	}
	cmd := exec.Command(cfg.BinPath, cmdArgs...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start llama-server: %w", err)
	}

	eng := &llamaCPPEngine{
		client: newCompletionClient(fmt.Sprintf("http://127.0.0.1:%d", port)),
		cmd:    cmd,
	}
	logutil.GetLogger(context.Background()).Info("llama-server starting",
		zap.String("model", profile.Key),
		zap.String("weights", profile.WeightsPath),
		zap.String("adapter", profile.AdapterPath),
		zap.Int("port", port),
	)
	if err := eng.client.waitHealthy(time.Duration(cfg.StartupTimeoutSeconds) * time.Second); err != nil {
		_ = eng.Close()
		return nil, fmt.Errorf("llama-server for %s never became healthy: %w", profile.Key, err)
	}
	return eng, nil
}

func (e *llamaCPPEngine) Complete(ctx context.Context, prompt string, params Params, onToken func(string) error) error {
	return e.client.complete(ctx, prompt, params, onToken)
}

func (e *llamaCPPEngine) Close() error {
	e.closeOnce.Do(func() {
		if e.cmd == nil || e.cmd.Process == nil {
			return
		}
		if err := e.cmd.Process.Kill(); err != nil {
			e.closeErr = err
		}
		_ = e.cmd.Wait()
	})
	return e.closeErr
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("allocate engine port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// completionClient speaks the llama-server HTTP API.
type completionClient struct {
	baseURL string
	client  *http.Client
}

func newCompletionClient(baseURL string) *completionClient {
	return &completionClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		// No overall timeout: completions stream for minutes and are bounded
		// by the request context instead.
		client: &http.Client{},
	}
}

func (c *completionClient) waitHealthy(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	probe := &http.Client{Timeout: 2 * time.Second}
	for time.Now().Before(deadline) {
		resp, err := probe.Get(c.baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("health probe timed out after %s", timeout)
}

type completionRequest struct {
	Prompt        string   `json:"prompt"`
	NPredict      int      `json:"n_predict"`
	Temperature   float32  `json:"temperature"`
	RepeatPenalty float32  `json:"repeat_penalty,omitempty"`
	TopP          float32  `json:"top_p,omitempty"`
	TopK          int      `json:"top_k,omitempty"`
	Stop          []string `json:"stop,omitempty"`
	Stream        bool     `json:"stream"`
	CachePrompt   bool     `json:"cache_prompt"`
}

type completionChunk struct {
	Content string `json:"content"`
	Stop    bool   `json:"stop"`
}

func (c *completionClient) complete(ctx context.Context, prompt string, params Params, onToken func(string) error) error {
	body := completionRequest{
		Prompt:        prompt,
		NPredict:      params.MaxTokens,
		Temperature:   params.Temperature,
		RepeatPenalty: params.RepeatPenalty,
		TopP:          params.TopP,
		TopK:          params.TopK,
		Stop:          params.Stop,
		Stream:        true,
		CachePrompt:   true,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/completion", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("call llama-server: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("llama-server returned status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var chunk completionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if chunk.Content != "" {
			if err := onToken(chunk.Content); err != nil {
				return err
			}
		}
		if chunk.Stop {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read completion stream: %w", err)
	}
	return nil
}

func init() {
	Register("llamacpp", newLlamaCPPEngine)
}
