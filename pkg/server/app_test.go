package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OracleEngine/pkg/logger"
)

func TestApp_StartsInOrderStopsInReverse(t *testing.T) {
	var events []string
	mk := func(name string) Component {
		return ComponentFuncs{
			ID:      name,
			StartFn: func(context.Context) error { events = append(events, "start:"+name); return nil },
			StopFn:  func(context.Context) error { events = append(events, "stop:"+name); return nil },
		}
	}
	app := New(logger.NewNop(), time.Second, mk("http"), mk("scheduler"))
	closed := false
	app.OnClose(func() error { closed = true; return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, app.RunContext(ctx))

	assert.Equal(t, []string{"start:http", "start:scheduler", "stop:scheduler", "stop:http"}, events)
	assert.True(t, closed)
}

func TestApp_StartFailureStopsStartedComponents(t *testing.T) {
	var stopped []string
	ok := ComponentFuncs{ID: "ok", StopFn: func(context.Context) error { stopped = append(stopped, "ok"); return nil }}
	bad := ComponentFuncs{ID: "bad", StartFn: func(context.Context) error { return errors.New("boom") }}

	err := New(logger.NewNop(), time.Second, ok, bad).RunContext(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"ok"}, stopped)
}
