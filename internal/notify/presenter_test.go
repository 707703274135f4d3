package notify

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simp-lee/mailsync/internal/eventbus"
)

func TestPresenter_WritesEachChannel(t *testing.T) {
	bus := eventbus.New()
	var out bytes.Buffer
	p, err := New(bus, &out)
	require.NoError(t, err)
	defer p.Close()

	bus.Emit(eventbus.Success, "Contact created successfully")
	bus.Emit(eventbus.Error, "contact already exists")
	bus.Emit(eventbus.Info, "no contacts selected")

	assert.Equal(t, "ok: Contact created successfully\nerror: contact already exists\ninfo: no contacts selected\n", out.String())
}

func TestPresenter_Quiet(t *testing.T) {
	bus := eventbus.New()
	var out bytes.Buffer
	p, err := New(bus, &out, Quiet(true))
	require.NoError(t, err)
	defer p.Close()

	bus.Emit(eventbus.Info, "hidden")
	bus.Emit(eventbus.Error, "shown")
	assert.Equal(t, "error: shown\n", out.String())
}

func TestPresenter_CloseUnsubscribes(t *testing.T) {
	bus := eventbus.New()
	var out bytes.Buffer
	p, err := New(bus, &out)
	require.NoError(t, err)

	p.Close()
	p.Close()
	bus.Emit(eventbus.Success, "after close")
	assert.Empty(t, out.String())
	for _, ch := range eventbus.Channels() {
		assert.Zero(t, bus.Len(ch))
	}
}

func TestPresenter_LogsWithoutWriter(t *testing.T) {
	bus := eventbus.New()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	p, err := New(bus, nil, WithLogger(logger))
	require.NoError(t, err)
	defer p.Close()

	bus.Emit(eventbus.Error, "could not save")
	assert.Contains(t, logs.String(), "level=ERROR")
	assert.Contains(t, logs.String(), `msg="could not save"`)
	assert.Contains(t, logs.String(), "channel=error")
}

func TestNew_RequiresBus(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}
