package deploy

import "fmt"

// RolledBackError reports that post-deployment validation failed in
// production and the automated rollback completed. The deployment itself is
// still a failure; the cluster is back on the previous known-good versions.
type RolledBackError struct {
	// Trigger is the smoke-test failure that caused the rollback.
	Trigger error
}

func (e *RolledBackError) Error() string {
	return fmt.Sprintf("deployment failed and was rolled back to the previous version: %v", e.Trigger)
}

func (e *RolledBackError) Unwrap() error {
	return e.Trigger
}

// DoubleFaultError reports that automated recovery itself failed: either no
// prior deployment record existed, or the rollback never reached readiness.
// The system is in an unknown state and needs manual intervention, so this
// is surfaced distinctly from a normal deployment failure.
type DoubleFaultError struct {
	// Trigger is the failure that demanded a rollback.
	Trigger error
	// Cause is the rollback failure.
	Cause error
}

func (e *DoubleFaultError) Error() string {
	return fmt.Sprintf("rollback failed after deployment failure, manual intervention required: %v (deployment failure: %v)",
		e.Cause, e.Trigger)
}

func (e *DoubleFaultError) Unwrap() error {
	return e.Cause
}
