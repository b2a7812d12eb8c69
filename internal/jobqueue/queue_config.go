package jobqueue

import (
	"time"

	"github.com/riverqueue/river"
)

// QueueConfig holds settings for the agent run queue
type QueueConfig struct {
	// MaxWorkers controls worker concurrency. Keep at 1 so two agent
	// cycles never execute at the same time within one process.
	MaxWorkers int

	// JobTimeout bounds a single agent run
	JobTimeout time.Duration
}

// DefaultQueueConfig returns the default configuration
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		MaxWorkers: 1,
		JobTimeout: 15 * time.Minute,
	}
}

// GetQueueConfig returns the current queue configuration
func GetQueueConfig() *QueueConfig {
	return DefaultQueueConfig()
}

// RiverQueueConfig converts our config to River's queue configuration
func (c *QueueConfig) RiverQueueConfig() map[string]river.QueueConfig {
	return map[string]river.QueueConfig{
		river.QueueDefault: {MaxWorkers: c.MaxWorkers},
	}
}
