package browser

import (
	"context"
	"errors"
	"strings"

	"github.com/CharbelDaher34/jarvis/internal/resilience"
)

// classifyCDPError maps a chromedp failure onto the error taxonomy so the
// retry layer can tell transient faults from permanent ones.
func classifyCDPError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return resilience.WrapError(resilience.KindTimeout, op, err)
	}
	if errors.Is(err, context.Canceled) {
		return resilience.WrapError(resilience.KindConnection, op, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "net::err_name_not_resolved"),
		strings.Contains(msg, "net::err_connection"),
		strings.Contains(msg, "net::err_internet_disconnected"),
		strings.Contains(msg, "websocket"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "broken pipe"):
		return resilience.WrapError(resilience.KindConnection, op, err)
	case strings.Contains(msg, "net::err_aborted"),
		strings.Contains(msg, "net::err_"),
		strings.Contains(msg, "page load"):
		return resilience.WrapError(resilience.KindNavigation, op, err)
	case strings.Contains(msg, "could not find node"),
		strings.Contains(msg, "no nodes found"),
		strings.Contains(msg, "node not found"):
		return resilience.WrapError(resilience.KindElementNotFound, op, err)
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return resilience.WrapError(resilience.KindTimeout, op, err)
	default:
		return resilience.WrapError(resilience.KindGeneric, op, err)
	}
}
