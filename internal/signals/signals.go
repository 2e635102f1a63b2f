package signals

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/amir-mohammad-HP/sugarnexus/pkg/logger"
)

// DefaultSignals are the signals that end the daemon.
var DefaultSignals = []os.Signal{syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP}

type Handler struct {
	logger  logger.Logger
	signals []os.Signal
}

func NewHandler(logger logger.Logger, sigs ...os.Signal) *Handler {
	if len(sigs) == 0 {
		sigs = DefaultSignals
	}
	return &Handler{logger: logger, signals: sigs}
}

// Handle blocks until one of the handler's signals arrives or ctx ends.
// shutdownFunc runs only for a signal.
func (h *Handler) Handle(ctx context.Context, shutdownFunc func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, h.signals...)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		h.logger.Debug("Signal handler context cancelled")
		return
	case sig := <-sigChan:
		h.logger.WithField("signal", sig.String()).Info("Received signal")
		shutdownFunc()
	}
}
