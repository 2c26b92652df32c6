package alert

import (
	"context"
	"strings"
)

// Kind tags an operator alert for throttling: a second alert of the same
// kind inside the cooldown window is suppressed.
type Kind string

const (
	KindDBError       Kind = "db_error"
	KindNotifyFailure Kind = "notification_failure"
	KindSweepCritical Kind = "sweep_critical"
)

// APIError builds the per-model kind for source API faults.
func APIError(model string) Kind { return Kind("api_error_" + strings.ToLower(model)) }

// AuthError builds the per-model kind for credential rejections.
func AuthError(model string) Kind { return Kind("auth_error_" + strings.ToLower(model)) }

// Unexpected builds the per-model kind for uncaught sweep faults.
func Unexpected(model string) Kind { return Kind("unexpected_" + strings.ToLower(model)) }

// Alerter delivers throttled operator alerts. Notify returns false when
// the alert was suppressed by the cooldown or could not be delivered;
// suppression only means the operator already heard about this kind
// recently, never that the underlying problem went away.
type Alerter interface {
	Notify(ctx context.Context, message string, kind Kind) bool
}
