package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// RunLogger manages the decision trail for a single agent run. Every gate
// decision, send, skip, and escalation lands in a timestamped file under
// agent_logs/ so staff can reconstruct why the agent did (or did not) act on
// a claim.
type RunLogger struct {
	runID     string
	logFile   *os.File
	mutex     sync.Mutex
	startTime time.Time
}

var (
	currentLogger *RunLogger
	loggerMutex   sync.Mutex
)

// StartRunLogging initializes logging for a new agent run
func StartRunLogging(runID string) (*RunLogger, error) {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	// Close previous logger if exists
	if currentLogger != nil {
		currentLogger.Close()
	}

	timestamp := time.Now().Format("20060102_150405")
	logFileName := fmt.Sprintf("run_%s_%s.log", runID, timestamp)
	logPath := filepath.Join("agent_logs", logFileName)

	if err := os.MkdirAll("agent_logs", 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger := &RunLogger{
		runID:     runID,
		logFile:   logFile,
		startTime: time.Now(),
	}

	currentLogger = logger
	logger.writeHeader()

	return logger, nil
}

// GetCurrentLogger returns the current active run logger
func GetCurrentLogger() *RunLogger {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	return currentLogger
}

func (r *RunLogger) writeHeader() {
	separator := strings.Repeat("=", 80)
	r.logFile.WriteString(separator + "\n")
	r.logFile.WriteString(fmt.Sprintf("= AGENT RUN %s\n", r.runID))
	r.logFile.WriteString(fmt.Sprintf("= Started: %s\n", r.startTime.Format(time.RFC3339)))
	r.logFile.WriteString(separator + "\n")
}

// Log writes a message to the run log; nil receivers are safe so callers
// never need to guard against a missing logger.
func (r *RunLogger) Log(format string, args ...interface{}) {
	if r == nil {
		return
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	timestamp := time.Now().Format("15:04:05.000")
	elapsed := time.Since(r.startTime)
	logMessage := fmt.Sprintf(format, args...)

	message := fmt.Sprintf("[%s] [+%v] %s\n", timestamp, elapsed.Round(time.Millisecond), logMessage)
	r.logFile.WriteString(message)
	r.logFile.Sync()

	log.Debug().Str("run_id", r.runID).Msg(logMessage)
}

// LogSection writes a section header to the log
func (r *RunLogger) LogSection(title string) {
	if r == nil {
		return
	}

	separator := strings.Repeat("=", 80)
	r.Log("%s", separator)
	r.Log("= %s", title)
	r.Log("%s", separator)
}

// LogError logs an error with its context
func (r *RunLogger) LogError(where string, err error) {
	if r == nil {
		return
	}

	r.Log("ERROR in %s: %v", where, err)
	log.Error().Err(err).Str("run_id", r.runID).Str("context", where).Msg("agent run error")
}

// Close finalizes the log file
func (r *RunLogger) Close() {
	if r == nil {
		return
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.logFile != nil {
		// Write final message directly without r.Log() to avoid deadlock
		timestamp := time.Now().Format("15:04:05.000")
		elapsed := time.Since(r.startTime)
		finalMessage := fmt.Sprintf("[%s] [+%v] Agent run logging completed. Total duration: %v\n",
			timestamp, elapsed.Round(time.Millisecond), elapsed)
		r.logFile.WriteString(finalMessage)
		r.logFile.Sync()

		r.logFile.Close()
		r.logFile = nil
	}
}
