package degradation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrServiceUnavailable matches every gate rejection.
var ErrServiceUnavailable = errors.New("service degraded")

// ServiceUnavailableError rejects a guarded call because the current level
// disables the service class.
type ServiceUnavailableError struct {
	Service ServiceType
	Level   Level
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("service %q is unavailable at degradation level %s", e.Service, e.Level)
}

func (e *ServiceUnavailableError) Is(target error) bool {
	return target == ErrServiceUnavailable
}

// RuleConflictError reports same-priority rules that fired with different
// target levels in one cycle. The engine resolves it by taking the highest
// level; the conflict surfaces only for WARN logging.
type RuleConflictError struct {
	Priority int
	Rules    []string
	Chosen   Level
}

func (e *RuleConflictError) Error() string {
	return fmt.Sprintf(
		"degradation rules %s at priority %d target different levels; chose %s",
		strings.Join(e.Rules, ", "), e.Priority, e.Chosen,
	)
}
