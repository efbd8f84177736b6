package mail

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vigilantes/alertmail/pkg/config"
	"github.com/vigilantes/alertmail/pkg/delivery"
	"github.com/vigilantes/alertmail/pkg/vault"
)

func TestCheckConfiguration_NotConfigured(t *testing.T) {
	env := newTestEnv(t, false)

	report := env.manager.CheckConfiguration(context.Background(), false)

	require.Len(t, report.Stages, 1)
	assert.Equal(t, StageConfiguration, report.Stages[0].Stage)
	assert.False(t, report.Stages[0].OK)
	assert.False(t, report.OK())
}

func TestCheckConfiguration_ConnectFailure(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	sugar := logger.Sugar()

	dir := t.TempDir()
	v, err := vault.New(dir, sugar)
	require.NoError(t, err)
	store, err := config.NewStore(dir, v, sugar)
	require.NoError(t, err)

	// Grab a port that is guaranteed closed.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	cfg := &config.EmailConfig{
		Provider:       config.ProviderCustom,
		SMTPServer:     "127.0.0.1",
		SMTPPort:       port,
		SenderEmail:    "driver@example.com",
		SenderPassword: "secret",
		AuthMethod:     config.AuthPassword,
		Timeout:        2,
	}
	require.NoError(t, store.Save(cfg, "test setup"))

	manager := NewManager(store, delivery.NewTracker(sugar), sugar)
	report := manager.CheckConfiguration(context.Background(), false)

	require.Len(t, report.Stages, 2)
	assert.True(t, report.Stages[0].OK)
	assert.Equal(t, StageConnect, report.Stages[1].Stage)
	assert.False(t, report.Stages[1].OK)
	assert.False(t, report.OK())
}
