package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Pipeline hooks
	p := NoopPipelineHooks{}
	p.OnLayoutStart(ctx, "featured", 6)
	p.OnLayoutComplete(ctx, "featured", 6, time.Second, nil)
	p.OnComposeStart(ctx, 6, 5)
	p.OnDecodeComplete(ctx, "img-1", time.Millisecond, nil)
	p.OnComposeComplete(ctx, 1, time.Second, nil)
	p.OnEncodeComplete(ctx, "png", 4096, time.Second, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "layout")
	c.OnCacheMiss(ctx, "artifact")
	c.OnCacheSet(ctx, "artifact", 1024)

	// HTTP hooks
	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "/sessions/{id}/export")
	h.OnResponse(ctx, "GET", "/sessions/{id}/export", 200, time.Second)
	h.OnError(ctx, "GET", "/sessions/{id}/export", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	// Set custom hooks
	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testPipelineHooks{}
	SetPipelineHooks(custom)

	// Setting nil should be ignored
	SetPipelineHooks(nil)

	if Pipeline() != custom {
		t.Error("SetPipelineHooks(nil) should be ignored")
	}

	Reset()
}

func TestCustomHooksReceiveEvents(t *testing.T) {
	Reset()
	defer Reset()

	rec := &recordingPipelineHooks{}
	SetPipelineHooks(rec)
	Pipeline().OnDecodeComplete(context.Background(), "a", time.Millisecond, nil)
	Pipeline().OnDecodeComplete(context.Background(), "b", time.Millisecond, nil)

	if len(rec.decoded) != 2 || rec.decoded[0] != "a" {
		t.Errorf("decoded = %v, want [a b]", rec.decoded)
	}
}

// Test implementations
type testPipelineHooks struct{ NoopPipelineHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }

type recordingPipelineHooks struct {
	NoopPipelineHooks
	decoded []string
}

func (r *recordingPipelineHooks) OnDecodeComplete(_ context.Context, id string, _ time.Duration, _ error) {
	r.decoded = append(r.decoded, id)
}
