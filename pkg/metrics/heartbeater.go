package metrics

import (
	"github.com/telemetryworks/tracemetrics/pkg/application"
	"go.uber.org/zap"
	"sync"
	"time"
)

const heartbeatMetric = "~component.heartbeat"

const DefaultHeartbeatInterval = 5 * time.Minute

// Heartbeater periodically reports a liveness point per configured component
// so the backend can tell a silent application apart from a dead one. Send
// failures are logged and swallowed.
type Heartbeater struct {
	sender     Sender
	source     string
	components []string
	pointTags  map[string]string
	interval   time.Duration
	logger     *zap.Logger
	done       chan struct{}
	wg         sync.WaitGroup
	startOnce  sync.Once
	stopOnce   sync.Once
}

func NewHeartbeater(
	sender Sender,
	appTags application.Tags,
	components []string,
	source string,
	interval time.Duration,
	logger *zap.Logger,
) *Heartbeater {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &Heartbeater{
		sender:     sender,
		source:     source,
		components: components,
		pointTags:  appTags.ToPointTags(),
		interval:   interval,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

func (h *Heartbeater) Start() {
	h.startOnce.Do(func() {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			ticker := time.NewTicker(h.interval)
			defer ticker.Stop()
			h.beat()
			for {
				select {
				case <-ticker.C:
					h.beat()
				case <-h.done:
					return
				}
			}
		}()
	})
}

func (h *Heartbeater) Close() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
	h.wg.Wait()
}

func (h *Heartbeater) beat() {
	timestampMillis := time.Now().UnixMilli()
	for _, component := range h.components {
		tags := make(map[string]string, len(h.pointTags)+1)
		for key, value := range h.pointTags {
			tags[key] = value
		}
		tags[application.ComponentTagKey] = component
		err := h.sender.SendMetric(heartbeatMetric, 1, timestampMillis, h.source, tags)
		if err != nil {
			h.logger.Warn("Failed to report heartbeat",
				zap.String("component", component),
				zap.Error(err),
			)
		}
	}
}
