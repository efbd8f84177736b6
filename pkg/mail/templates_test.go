package mail

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderDrowsinessAlert(t *testing.T) {
	msg, err := RenderDrowsinessAlert(DrowsinessAlertParams{
		UserName:         "Alex",
		DetectedAt:       time.Date(2026, 3, 14, 22, 15, 0, 0, time.UTC),
		HeartRate:        58,
		OxygenSaturation: 94,
	})
	require.NoError(t, err)
	assert.True(t, msg.HTML)
	assert.Equal(t, "Driver Drowsiness Alert", msg.Subject)
	assert.Contains(t, msg.Body, "Alex")
	assert.Contains(t, msg.Body, "2026-03-14 22:15:00")
	assert.Contains(t, msg.Body, "58 BPM")
	assert.Contains(t, msg.Body, "94%")
}

func TestRenderDrowsinessAlert_NoVitals(t *testing.T) {
	msg, err := RenderDrowsinessAlert(DrowsinessAlertParams{
		UserName:   "Alex",
		DetectedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NotContains(t, msg.Body, "Heart rate")
	assert.NotContains(t, msg.Body, "Oxygen saturation")
}

func TestRenderDrowsinessAlert_EscapesHTML(t *testing.T) {
	msg, err := RenderDrowsinessAlert(DrowsinessAlertParams{
		UserName:   "<script>alert(1)</script>",
		DetectedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NotContains(t, msg.Body, "<script>")
}

func TestRenderVitalsAlert(t *testing.T) {
	msg, err := RenderVitalsAlert(VitalsAlertParams{
		UserName:         "Alex",
		DetectedAt:       time.Now(),
		HeartRate:        142,
		OxygenSaturation: 88,
		Reason:           "oxygen saturation below threshold",
	})
	require.NoError(t, err)
	assert.Equal(t, "Driver Assistant Alert - Vital Signs", msg.Subject)
	assert.Contains(t, msg.Body, "142 BPM")
	assert.Contains(t, msg.Body, "88%")
	assert.Contains(t, msg.Body, "oxygen saturation below threshold")
}

func TestRenderTestMail(t *testing.T) {
	msg, err := RenderTestMail("driver@gmail.com")
	require.NoError(t, err)
	assert.Equal(t, "Driver Assistant Test Email", msg.Subject)
	assert.Contains(t, msg.Body, "driver@gmail.com")
}
