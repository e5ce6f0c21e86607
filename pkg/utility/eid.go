package utility

import (
	"sync"

	"github.com/google/uuid"
)

// ExecutionID tags every event produced by one run.
type ExecutionID = uuid.UUID

var (
	executionID     ExecutionID
	executionIDOnce sync.Once
	executionIDMu   sync.RWMutex
)

func initExecutionID() {
	executionID = uuid.Must(uuid.NewV7())
}

func GetExecutionID() ExecutionID {
	executionIDOnce.Do(initExecutionID)

	executionIDMu.RLock()
	defer executionIDMu.RUnlock()
	return executionID
}

// ResetExecutionID starts a new run and returns its id.
func ResetExecutionID() ExecutionID {
	executionIDOnce.Do(initExecutionID)

	executionIDMu.Lock()
	defer executionIDMu.Unlock()

	executionID = uuid.Must(uuid.NewV7())
	return executionID
}
