package tracking_test

import (
	"fmt"
	"testing"

	"github.com/rento-fleet/fleet-tracker/internal/models"
	"github.com/rento-fleet/fleet-tracker/internal/tracking"
	"github.com/stretchr/testify/assert"
)

// TestReportQueue_FIFO verifies that bursts come back out in arrival
// order with nothing deduplicated.
func TestReportQueue_FIFO(t *testing.T) {
	queue := tracking.NewReportQueue()

	for i := 0; i < 5; i++ {
		queue.Enqueue(models.PositionReport{VehicleID: fmt.Sprintf("v%d", i)})
	}
	queue.Enqueue(models.PositionReport{VehicleID: "v0"}) // burst duplicate preserved

	assert.Equal(t, 6, queue.Len())

	for i := 0; i < 5; i++ {
		report, ok := queue.Dequeue()
		assert.True(t, ok)
		assert.Equal(t, fmt.Sprintf("v%d", i), report.VehicleID)
	}

	report, ok := queue.Dequeue()
	assert.True(t, ok)
	assert.Equal(t, "v0", report.VehicleID)
}

// TestReportQueue_EmptyDequeue verifies the empty-queue contract.
func TestReportQueue_EmptyDequeue(t *testing.T) {
	queue := tracking.NewReportQueue()

	_, ok := queue.Dequeue()
	assert.False(t, ok)
	assert.Equal(t, 0, queue.Len())

	queue.Enqueue(models.PositionReport{VehicleID: "v1"})
	_, _ = queue.Dequeue()
	_, ok = queue.Dequeue()
	assert.False(t, ok)
}
