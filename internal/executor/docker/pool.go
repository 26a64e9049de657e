package docker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
)

// ErrPoolClosed is returned by Acquire once the pool has been stopped.
var ErrPoolClosed = errors.New("docker: container pool is closed")

const (
	refillInterval = 100 * time.Millisecond
	createBackoff  = time.Second
)

// Pool keeps a number of idle node containers running so a script run only
// pays for an exec, not for a container start. Every container is used for
// exactly one run and removed afterwards.
type Pool struct {
	api        containerAPI
	config     Config
	logger     *slog.Logger
	containers chan string
	done       chan struct{}
	wg         sync.WaitGroup
	startOnce  sync.Once
	stopOnce   sync.Once
}

// NewPool creates a pool. Call Start to begin warming containers.
func NewPool(api containerAPI, cfg Config, logger *slog.Logger) *Pool {
	size := cfg.PoolSize
	if size < 1 {
		size = 1
	}
	return &Pool{
		api:        api,
		config:     cfg,
		logger:     logger,
		containers: make(chan string, size),
		done:       make(chan struct{}),
	}
}

// Start launches the refill loop. Calling it again is a no-op.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		p.logger.Info("starting node container pool", slog.Int("poolSize", cap(p.containers)))
		p.wg.Add(1)
		go p.refill()
	})
}

// Stop ends the refill loop and removes every idle container.
// It is safe to call more than once.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("shutting down node container pool")
		close(p.done)
		p.wg.Wait()

		for {
			select {
			case id := <-p.containers:
				p.remove(id)
			default:
				return
			}
		}
	})
}

// Acquire hands out a warm container. The caller owns it and must Release
// it. Acquire blocks until a container is ready, ctx ends or the pool stops.
func (p *Pool) Acquire(ctx context.Context) (string, error) {
	select {
	case id := <-p.containers:
		return id, nil
	case <-p.done:
		return "", ErrPoolClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Release discards a container handed out by Acquire.
func (p *Pool) Release(id string) {
	p.remove(id)
}

func (p *Pool) refill() {
	defer p.wg.Done()

	for {
		wait := refillInterval
		if len(p.containers) < cap(p.containers) {
			id, err := p.create()
			if err != nil {
				p.logger.Error("failed to create warm container", slog.String("error", err.Error()))
				wait = createBackoff
			} else {
				select {
				case p.containers <- id:
					continue
				case <-p.done:
					p.remove(id)
					return
				}
			}
		}

		select {
		case <-p.done:
			return
		case <-time.After(wait):
		}
	}
}

// create starts an idle, network-less container running `sleep infinity`.
func (p *Pool) create() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hostConfig := &container.HostConfig{
		NetworkMode: "none",
		Resources: container.Resources{
			Memory:   p.config.MemoryLimit,
			NanoCPUs: int64(p.config.CPULimit * 1e9),
		},
		ReadonlyRootfs: true,
	}

	resp, err := p.api.ContainerCreate(ctx, &container.Config{
		Image: p.config.Image,
		Cmd:   []string{"sleep", "infinity"},
		User:  "node",
	}, hostConfig, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("docker: creating container: %w", err)
	}

	if err := p.api.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		p.remove(resp.ID)
		return "", fmt.Errorf("docker: starting container %s: %w", resp.ID, err)
	}

	return resp.ID, nil
}

func (p *Pool) remove(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.api.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		p.logger.Error("failed to remove container", slog.String("id", id), slog.String("error", err.Error()))
	}
}
