// Package testutil holds helpers shared by the HTTP and integration tests:
// table-driven request cases, envelope decoding, a recording event handler
// and polling assertions.
package testutil

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// WaitForCondition polls condition every interval until it holds or timeout
// passes. The condition gets one last look at the deadline.
func WaitForCondition(condition func() bool, timeout, interval time.Duration) bool {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		if condition() {
			return true
		}
		select {
		case <-deadline.C:
			return condition()
		case <-ticker.C:
		}
	}
}

// RequireEventually stops the test when condition does not hold within timeout
func RequireEventually(t *testing.T, condition func() bool, timeout, interval time.Duration, msgAndArgs ...interface{}) {
	t.Helper()
	if !WaitForCondition(condition, timeout, interval) {
		require.Fail(t, "condition not met within "+timeout.String(), msgAndArgs...)
	}
}
