package headless_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/captcha/pkg/captcha"
	"github.com/go-drift/captcha/pkg/headless"
)

// recorder captures everything a widget reports.
type recorder struct {
	states    []captcha.WidgetState
	completed []captcha.CompleteEvent
	errors    []captcha.ErrorEvent
	expired   []captcha.ExpireEvent
}

func (r *recorder) attach(w *captcha.Widget) {
	w.OnStateChange(func(e captcha.StateChangeEvent) { r.states = append(r.states, e.State) })
	w.OnComplete(func(e captcha.CompleteEvent) { r.completed = append(r.completed, e) })
	w.OnError(func(e captcha.ErrorEvent) { r.errors = append(r.errors, e) })
	w.OnExpire(func(e captcha.ExpireEvent) { r.expired = append(r.expired, e) })
}

var demoConfig = captcha.Config{SiteKey: "FCMTEST"}

// boot mounts a widget and boots script with the recorder attached before
// the first message.
func boot(t *testing.T, script captcha.Script) (*captcha.Widget, *headless.Environment, *recorder) {
	t.Helper()
	w, env, err := headless.Mount(demoConfig, script)
	require.NoError(t, err)
	t.Cleanup(w.Destroy)

	rec := &recorder{}
	rec.attach(w)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, env.Boot(ctx, demoConfig, script))
	flush(t, env)
	return w, env, rec
}

func TestDemo_BootsUnactivated(t *testing.T) {
	w, _, rec := boot(t, headless.DemoScript())

	assert.Equal(t, []captcha.WidgetState{captcha.StateInit, captcha.StateUnactivated}, rec.states)
	assert.Equal(t, captcha.Snapshot{
		State:    captcha.StateUnactivated,
		Response: ".UNACTIVATED",
		ID:       "demo-FCMTEST",
	}, w.Snapshot())
}

func TestDemo_StartCompletes(t *testing.T) {
	w, env, rec := boot(t, headless.DemoScript())
	rec.states = nil

	w.Start()
	flush(t, env)

	assert.Equal(t, []captcha.WidgetState{
		captcha.StateActivating,
		captcha.StateRequesting,
		captcha.StateSolving,
		captcha.StateVerifying,
		captcha.StateCompleted,
	}, rec.states)
	require.Len(t, rec.completed, 1)
	assert.Equal(t, "demo.FCMTEST.1", rec.completed[0].Response)
	assert.Equal(t, captcha.StateCompleted, w.State())
	assert.Equal(t, "demo.FCMTEST.1", w.Response())

	// Completed widgets ignore further starts.
	w.Start()
	flush(t, env)
	assert.Len(t, rec.completed, 1)
}

func TestDemo_ResetThenStartIssuesNewToken(t *testing.T) {
	w, env, rec := boot(t, headless.DemoScript())

	w.Start()
	w.Reset()
	flush(t, env)
	assert.Equal(t, captcha.StateUnactivated, w.State())

	w.Start()
	flush(t, env)
	require.Len(t, rec.completed, 2)
	assert.Equal(t, "demo.FCMTEST.2", rec.completed[1].Response)
}

func TestDemo_ExpireAndFail(t *testing.T) {
	w, env, rec := boot(t, headless.DemoScript())

	w.Start()
	env.Evaluate(`window.captchaWidget.expire()`)
	flush(t, env)
	assert.Equal(t, captcha.StateExpired, w.State())
	require.Len(t, rec.expired, 1)
	assert.Equal(t, "demo-FCMTEST", rec.expired[0].ID)

	env.Evaluate(`window.captchaWidget.fail("network_error", "offline")`)
	flush(t, env)
	assert.Equal(t, captcha.StateError, w.State())
	require.Len(t, rec.errors, 1)
	assert.Equal(t, captcha.WidgetError{Code: "network_error", Detail: "offline"}, rec.errors[0].Error)
}

func TestDemo_DestroyClosesEnvironment(t *testing.T) {
	w, env, rec := boot(t, headless.DemoScript())
	rec.states = nil

	w.Destroy()

	select {
	case <-env.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("environment still running after Destroy")
	}
	assert.Equal(t, []captcha.WidgetState{captcha.StateDestroyed}, rec.states)
	assert.Equal(t, captcha.ResponseDestroyed, w.Response())
	assert.ErrorIs(t, env.Flush(context.Background()), captcha.ErrDestroyed)

	w.Start()
	assert.Equal(t, captcha.StateDestroyed, w.State())
}

func TestDemo_MissingFactoryReportsError(t *testing.T) {
	script := captcha.Script{Source: "var unrelated = 1;", Version: "1.0.0"}
	w, _, rec := boot(t, script)

	require.Len(t, rec.errors, 1)
	assert.Equal(t, "script_missing", rec.errors[0].Error.Code)
	assert.Equal(t, captcha.StateInit, w.State())
}

func TestDemo_DestroyFromGoroutineInHandler(t *testing.T) {
	w, env, _ := boot(t, headless.DemoScript())

	done := make(chan struct{})
	w.OnComplete(func(captcha.CompleteEvent) {
		go func() {
			w.Destroy()
			close(done)
		}()
	})
	w.Start()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Destroy did not finish")
	}
	assert.True(t, w.Destroyed())
	<-env.Done()
}

func TestMount_BootAfterDestroy(t *testing.T) {
	w, env, err := headless.Mount(demoConfig, headless.DemoScript())
	require.NoError(t, err)
	w.Destroy()

	err = env.Boot(context.Background(), demoConfig, headless.DemoScript())
	assert.ErrorIs(t, err, captcha.ErrDestroyed)
	assert.Equal(t, captcha.StateDestroyed, w.State())
}

func TestMount_InvalidScript(t *testing.T) {
	_, _, err := headless.Mount(demoConfig, captcha.Script{Source: "x", Version: "0.1.0"})
	assert.ErrorIs(t, err, captcha.ErrInvalidScript)
}

func TestMount_InvalidConfig(t *testing.T) {
	_, _, err := headless.Mount(captcha.Config{}, headless.DemoScript())
	assert.ErrorIs(t, err, captcha.ErrMissingSiteKey)
}

func TestDemoScript(t *testing.T) {
	s := headless.DemoScript()
	require.NoError(t, s.Validate())
	assert.Contains(t, s.Source, fmt.Sprintf("function %s(", captcha.DefaultFactory))
}
