package health

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/theblitlabs/tinyml-runner/internal/execution/trainer"
	"github.com/theblitlabs/tinyml-runner/pkg/logger"
)

// Status represents the health status of a component
type Status string

const (
	StatusOK    Status = "OK"
	StatusError Status = "ERROR"
)

// ComponentHealth represents the health status of a system component
type ComponentHealth struct {
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Message     string    `json:"message"`
	LastChecked time.Time `json:"last_checked"`
}

// CheckFunc probes one component and describes its state.
type CheckFunc func(ctx context.Context) (string, error)

// Checker runs the registered component checks on demand or on a ticker.
type Checker struct {
	mu         sync.RWMutex
	names      []string
	checks     map[string]CheckFunc
	components map[string]*ComponentHealth
	timeout    time.Duration
	cancel     context.CancelFunc
}

// NewChecker bounds every individual check by timeout (5s when zero).
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{
		checks:     make(map[string]CheckFunc),
		components: make(map[string]*ComponentHealth),
		timeout:    timeout,
	}
}

func (c *Checker) Register(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.checks[name]; !exists {
		c.names = append(c.names, name)
	}
	c.checks[name] = fn
}

// Start refreshes every component each freq until ctx ends or Stop is called.
func (c *Checker) Start(ctx context.Context, freq time.Duration) {
	log := logger.WithComponent("health_checker")
	if freq <= 0 {
		freq = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	log.Info().Dur("frequency", freq).Msg("Starting health checker")

	ticker := time.NewTicker(freq)
	go func() {
		defer ticker.Stop()

		c.CheckAll(ctx)
		for {
			select {
			case <-ticker.C:
				c.CheckAll(ctx)
			case <-ctx.Done():
				log.Info().Msg("Health checker stopped")
				return
			}
		}
	}()
}

// Stop halts the health checker
func (c *Checker) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// CheckAll runs every registered check and returns the fresh results.
func (c *Checker) CheckAll(ctx context.Context) []ComponentHealth {
	c.mu.RLock()
	names := append([]string(nil), c.names...)
	checks := make(map[string]CheckFunc, len(c.checks))
	for k, v := range c.checks {
		checks[k] = v
	}
	c.mu.RUnlock()

	for _, name := range names {
		c.run(ctx, name, checks[name])
	}
	return c.GetAllHealth()
}

func (c *Checker) run(ctx context.Context, name string, fn CheckFunc) {
	log := logger.WithComponent("health_checker." + name)

	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	health := &ComponentHealth{Name: name, LastChecked: time.Now()}
	msg, err := fn(checkCtx)
	if err != nil {
		health.Status = StatusError
		health.Message = err.Error()
		log.Error().Err(err).Msg("Component unhealthy")
	} else {
		health.Status = StatusOK
		health.Message = msg
		log.Debug().Str("message", msg).Msg("Component healthy")
	}

	c.mu.Lock()
	c.components[name] = health
	c.mu.Unlock()
}

// GetAllHealth returns copies of the last results, sorted by name.
func (c *Checker) GetAllHealth() []ComponentHealth {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]ComponentHealth, 0, len(c.components))
	for _, v := range c.components {
		result = append(result, *v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Healthy reports whether every checked component is OK.
func (c *Checker) Healthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, v := range c.components {
		if v.Status != StatusOK {
			return false
		}
	}
	return true
}

// Program checks that the trainer or predictor binary resolves to a regular
// executable file.
func Program(program string) CheckFunc {
	return func(context.Context) (string, error) {
		path, err := trainer.ResolveProgram(program)
		if err != nil {
			return "", fmt.Errorf("cannot resolve %s: %w", program, err)
		}
		info, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("cannot stat %s: %w", path, err)
		}
		if info.IsDir() || info.Mode().Perm()&0o111 == 0 {
			return "", fmt.Errorf("%s is not executable", path)
		}
		return path, nil
	}
}

// Directory checks that dir accepts new files.
func Directory(dir string) CheckFunc {
	return func(context.Context) (string, error) {
		f, err := os.CreateTemp(dir, ".health-*")
		if err != nil {
			return "", fmt.Errorf("%s is not writable: %w", dir, err)
		}
		name := f.Name()
		f.Close()
		os.Remove(name)
		return dir, nil
	}
}

// Database pings the job store.
func Database(db *sqlx.DB) CheckFunc {
	return func(ctx context.Context) (string, error) {
		if err := db.PingContext(ctx); err != nil {
			return "", fmt.Errorf("database not responding: %w", err)
		}
		stats := db.Stats()
		return fmt.Sprintf("%d open connections", stats.OpenConnections), nil
	}
}
