package shutdown

import (
	"context"
	"sync"
	"time"

	"github.com/amir-mohammad-HP/sugarnexus/pkg/logger"
)

// Task is one named step of the shutdown sequence.
type Task func(ctx context.Context) error

type namedTask struct {
	name string
	task Task
}

// Manager runs registered tasks in registration order once shutdown is
// initiated. All tasks share a single deadline.
type Manager struct {
	logger   logger.Logger
	mu       sync.Mutex
	tasks    []namedTask
	shutdown chan struct{}
	once     sync.Once
	timeout  time.Duration
}

func NewManager(logger logger.Logger, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Manager{
		logger:   logger,
		shutdown: make(chan struct{}),
		timeout:  timeout,
	}
}

func (m *Manager) RegisterTask(name string, task Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, namedTask{name: name, task: task})
}

// Initiate starts shutdown. Safe to call more than once.
func (m *Manager) Initiate() {
	m.once.Do(func() { close(m.shutdown) })
}

func (m *Manager) Done() <-chan struct{} {
	return m.shutdown
}

// Wait blocks until shutdown is initiated, then runs every task.
func (m *Manager) Wait(ctx context.Context) error {
	select {
	case <-m.shutdown:
		m.logger.Info("shutdown | Starting shutdown sequence")
		return m.executeTasks()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// executeTasks never stops early: a failing task is logged and the
// sequence continues.
func (m *Manager) executeTasks() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.mu.Lock()
	tasks := append([]namedTask(nil), m.tasks...)
	m.mu.Unlock()

	m.logger.Debug("shutdown | executing %d tasks before shutdown", len(tasks))
	for i, t := range tasks {
		m.logger.Info("shutdown | Executing shutdown task %d: %s", i+1, t.name)
		if err := t.task(ctx); err != nil {
			m.logger.Error("shutdown | Task failed, task: %s, error: %s", t.name, err)
		}
	}

	return nil
}
