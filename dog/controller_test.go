package dog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testController() *controller {
	cfg := DefaultConfig()
	cfg.TargetRedundancy = 1.0
	cfg.RedundancyDeltaPercent = 10
	return newController(cfg)
}

func TestControllerNoActionWithinBounds(t *testing.T) {
	c := testController()
	for i := 0; i < 10; i++ {
		c.recordFirstTime()
	}
	for i := 0; i < 10; i++ {
		c.recordDuplicate(TransactionId("tx"))
	}
	action, _ := c.evaluate()
	require.Equal(t, actionNone, action)
	require.False(t, c.haveTxBlocked)
}

func TestControllerSendsHaveTxOnHighRedundancy(t *testing.T) {
	c := testController()
	c.recordFirstTime()
	for i := 0; i < 5; i++ {
		c.recordDuplicate(TransactionId("dup"))
	}
	action, cited := c.evaluate()
	require.Equal(t, actionSendHaveTx, action)
	require.Equal(t, TransactionId("dup"), cited)
	require.True(t, c.haveTxBlocked)

	// Staying blocked while still over upper produces no repeat action.
	c.recordFirstTime()
	for i := 0; i < 5; i++ {
		c.recordDuplicate(TransactionId("dup2"))
	}
	action, _ = c.evaluate()
	require.Equal(t, actionNone, action)
}

func TestControllerSendsResetRouteOnLowRedundancy(t *testing.T) {
	c := testController()
	c.haveTxBlocked = true

	for i := 0; i < 10; i++ {
		c.recordFirstTime()
	}
	action, _ := c.evaluate()
	require.Equal(t, actionSendResetRoute, action)
	require.False(t, c.haveTxBlocked)
}

func TestControllerZeroFirstTimeTreatedAsUpperBound(t *testing.T) {
	c := testController()
	c.recordDuplicate(TransactionId("dup"))
	action, _ := c.evaluate()
	require.Equal(t, actionNone, action) // ratio==upper, not >upper
}
