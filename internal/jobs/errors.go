package jobs

import "fmt"

// InterruptedMessage is recorded on jobs left unfinished by a previous process.
const InterruptedMessage = "interrupted: process restarted before job completed"

// ConfigurationError means a job cannot run with the current setup, such as a
// missing tenant credential or an unconfigured collaborator. The job fails
// before anything is fetched.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// PanicError wraps a panic recovered at the job boundary.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
