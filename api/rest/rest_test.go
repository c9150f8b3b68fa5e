package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/scenarioplayer/api/rest"
	"github.com/kasuganosora/scenarioplayer/config"
	"github.com/kasuganosora/scenarioplayer/game/backlog"
	"github.com/kasuganosora/scenarioplayer/game/flag"
	"github.com/kasuganosora/scenarioplayer/game/ir"
	"github.com/kasuganosora/scenarioplayer/game/player"
	"github.com/kasuganosora/scenarioplayer/game/scenario"
	"github.com/kasuganosora/scenarioplayer/resource"
	"github.com/kasuganosora/scenarioplayer/scheduler"
	"github.com/kasuganosora/scenarioplayer/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const demoScript = `[event unlock="street"]
【aoi】「Good morning.」
[choice option1="Stay" option2="Leave"]
[if condition="choice_1==2"]
「You left.」
[endif]
`

type testServer struct {
	eng   *gin.Engine
	sm    *player.SessionManager
	flags *flag.Store
	sched *scheduler.Scheduler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	dir := t.TempDir()
	write := func(name, src string) {
		path := filepath.Join(dir, filepath.FromSlash(name)+".txt")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	}
	write("demo", demoScript)
	write("ch1/intro", "「Chapter one.」\n")
	write("broken", "[nope]\n「still plays」\n")
	lib := resource.NewLoader(config.AssetsConfig{ScriptDir: dir})

	db := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)
	svc := backlog.New(db, c, config.BacklogConfig{BatchSize: 1, FlushInterval: 10 * time.Millisecond, RecentLines: 10}, logger)
	t.Cleanup(func() { svc.Stop(context.Background()) })

	pcfg := config.Default().Playback
	pcfg.Profile = "test"
	flags := flag.NewStore(pcfg.Profile, flag.NewGormBackend(db), logger)
	events := scenario.NewGormEventRegistry(db, pcfg.Profile)

	sm := player.NewSessionManager(logger)
	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)
	factory := func(id string) *player.Session {
		return player.NewSession(id, pcfg, player.Deps{
			Scripts: lib,
			Flags:   flags,
			Events:  events,
			Backlog: svc,
		}, logger)
	}

	h := rest.Handlers{
		Scripts:  rest.NewScriptHandler(lib, player.NewCompiler(nil, "", logger), c, time.Minute, logger),
		Sessions: rest.NewSessionHandler(sm, factory, sched, time.Hour, logger),
		Story:    rest.NewStoryHandler(flags, events, svc, logger),
		Admin:    rest.NewAdminHandler(sm, sched, logger),
	}
	eng := gin.New()
	rest.Routes(eng.Group("/api"), h, sm, "secret")
	return &testServer{eng: eng, sm: sm, flags: flags, sched: sched}
}

func (ts *testServer) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var b []byte
	if body != nil {
		b, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	ts.eng.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListScripts(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodGet, "/api/scripts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"broken", "ch1/intro", "demo"}, decode(t, w)["scripts"])
}

func TestIRDumpIsCached(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/scripts/demo/ir", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "miss", w.Header().Get("X-Cache"))
	first := w.Body.Bytes()
	require.NoError(t, ir.Validate(first))

	w = ts.do(http.MethodGet, "/api/scripts/demo/ir", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hit", w.Header().Get("X-Cache"))
	assert.Equal(t, first, w.Body.Bytes())

	w = ts.do(http.MethodGet, "/api/scripts/demo/ir?format=yaml", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "miss", w.Header().Get("X-Cache"))
	assert.Contains(t, w.Header().Get("Content-Type"), "yaml")
	assert.Contains(t, w.Body.String(), "steps:")
}

func TestIRDumpErrors(t *testing.T) {
	ts := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/api/scripts/demo/ir?format=xml", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/scripts/missing/ir", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/scripts/demo/other", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/scripts/ch1/intro/ir", nil).Code)
}

func TestDiagnostics(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodGet, "/api/scripts/broken/diagnostics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	diags := body["diagnostics"].([]any)
	require.Len(t, diags, 1)
	assert.Equal(t, float64(1), diags[0].(map[string]any)["line"])

	w = ts.do(http.MethodGet, "/api/scripts/demo/diagnostics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["diagnostics"])
}

func TestSchema(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodGet, "/api/ir/schema", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ir.Schema(), w.Body.Bytes())
}

func TestSessionPlaythrough(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/sessions", map[string]any{"script": "demo"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w)["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, 1, ts.sm.Count())
	assert.True(t, ts.sched.Has("session_idle:"+id))

	base := "/api/sessions/" + id
	w = ts.do(http.MethodPost, base+"/advance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["advanced"])
	snap := body["snapshot"].(map[string]any)
	assert.Equal(t, "Good morning.", snap["text"])
	assert.Equal(t, "aoi", snap["speaker"])

	// reveal still running
	w = ts.do(http.MethodPost, base+"/advance", nil)
	assert.Equal(t, false, decode(t, w)["advanced"])

	w = ts.do(http.MethodPost, base+"/skip", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["text_complete"])

	assert.Equal(t, http.StatusConflict, ts.do(http.MethodPost, base+"/choice", map[string]any{"index": 0}).Code)

	w = ts.do(http.MethodPost, base+"/advance", nil)
	snap = decode(t, w)["snapshot"].(map[string]any)
	assert.Equal(t, []any{"Stay", "Leave"}, snap["choice"])

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPost, base+"/choice", map[string]any{}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPost, base+"/choice", map[string]any{"index": 5}).Code)

	w = ts.do(http.MethodPost, base+"/choice", map[string]any{"index": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "You left.", decode(t, w)["text"])

	w = ts.do(http.MethodGet, base+"/transcript", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["lines"])

	w = ts.do(http.MethodGet, "/api/flags", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["flags"].(map[string]any)["choice_1"])

	w = ts.do(http.MethodGet, "/api/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"street"}, decode(t, w)["unlocked"])

	assert.Eventually(t, func() bool {
		w := ts.do(http.MethodGet, "/api/backlog?script=demo", nil)
		return w.Code == http.StatusOK && len(decode(t, w)["entries"].([]any)) >= 1
	}, 2*time.Second, 20*time.Millisecond)

	assert.Equal(t, http.StatusNoContent, ts.do(http.MethodDelete, base, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, base, nil).Code)
	assert.False(t, ts.sched.Has("session_idle:"+id))
}

func TestSessionModeAndLoad(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodPost, "/api/sessions", map[string]any{"script": "ch1/intro", "skip": true})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	id := body["id"].(string)
	assert.Equal(t, true, body["snapshot"].(map[string]any)["skip"])

	base := "/api/sessions/" + id
	w = ts.do(http.MethodPost, base+"/mode", map[string]any{"auto": true})
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode(t, w)
	assert.Equal(t, true, snap["auto"])
	assert.Equal(t, true, snap["skip"])

	w = ts.do(http.MethodPost, base+"/load", map[string]any{"script": "demo"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "demo", decode(t, w)["script"])

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodPost, base+"/load", map[string]any{"script": "nope"}).Code)

	w = ts.do(http.MethodGet, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])
}

func TestCreateSessionErrors(t *testing.T) {
	ts := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPost, "/api/sessions", map[string]any{}).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodPost, "/api/sessions", map[string]any{"script": "missing"}).Code)
	assert.Zero(t, ts.sm.Count())
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodPost, "/api/sessions/nope/advance", nil).Code)
}

func TestAdmin(t *testing.T) {
	ts := newTestServer(t)
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/admin/metrics", nil).Code)

	require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, "/api/sessions", map[string]any{"script": "demo"}).Code)
	w := ts.do(http.MethodGet, "/api/admin/metrics", nil, "X-Admin-Key", "secret")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["sessions"])
	assert.Equal(t, float64(1), body["idle_timers"])

	w = ts.do(http.MethodPost, "/api/admin/sessions/close", nil, "X-Admin-Key", "secret")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, ts.sm.Count())
}

func TestAdminDisabledWithoutKey(t *testing.T) {
	eng := gin.New()
	rest.Routes(eng.Group("/api"), rest.Handlers{
		Admin: rest.NewAdminHandler(player.NewSessionManager(zap.NewNop()), scheduler.New(zap.NewNop()), zap.NewNop()),
	}, nil, "")
	w := httptest.NewRecorder()
	eng.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
