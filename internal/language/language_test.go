package language

import (
	"context"
	"testing"

	"github.com/Dmann24/quantina-core/internal/language/cache"
)

type fakeRemote struct {
	detectCalls    int
	translateCalls int
}

func (f *fakeRemote) Detect(context.Context, string) (string, error) {
	f.detectCalls++
	return "Spanish", nil
}

func (f *fakeRemote) Translate(_ context.Context, text, _, to string) (string, error) {
	f.translateCalls++
	return "[" + to + "] " + text, nil
}

type fakeLocal struct {
	lang string
	ok   bool
}

func (f fakeLocal) Detect(string) (string, bool) { return f.lang, f.ok }

func TestLocalFirst_UsesLocalWhenConfident(t *testing.T) {
	remote := &fakeRemote{}
	svc := LocalFirst(fakeLocal{lang: "French", ok: true}, remote)

	lang, err := svc.Detect(context.Background(), "Bonjour")
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if lang != "French" {
		t.Errorf("expected local result 'French', got %s", lang)
	}
	if remote.detectCalls != 0 {
		t.Error("confident local detection must not reach the remote service")
	}
}

func TestLocalFirst_FallsBackWhenUnsure(t *testing.T) {
	remote := &fakeRemote{}
	svc := LocalFirst(fakeLocal{ok: false}, remote)

	lang, err := svc.Detect(context.Background(), "ok")
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if lang != "Spanish" || remote.detectCalls != 1 {
		t.Errorf("expected remote fallback, got %s (%d calls)", lang, remote.detectCalls)
	}
}

func TestLocalFirst_TranslatePassesThrough(t *testing.T) {
	remote := &fakeRemote{}
	svc := LocalFirst(fakeLocal{lang: "French", ok: true}, remote)

	out, err := svc.Translate(context.Background(), "Bonjour", "French", "English")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if out != "[English] Bonjour" || remote.translateCalls != 1 {
		t.Errorf("unexpected translation %q (%d calls)", out, remote.translateCalls)
	}
}

func TestWithCache_SecondTranslateIsCached(t *testing.T) {
	c, err := cache.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer c.Close()

	remote := &fakeRemote{}
	svc := WithCache(remote, c, "test-model")
	ctx := context.Background()

	first, err := svc.Translate(ctx, "Bonjour", "French", "English")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	second, err := svc.Translate(ctx, "Bonjour", "French", "English")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}

	if first != second {
		t.Errorf("cached result %q differs from original %q", second, first)
	}
	if remote.translateCalls != 1 {
		t.Errorf("expected one upstream call, got %d", remote.translateCalls)
	}
}

func TestWithCache_KeyIncludesLanguagePair(t *testing.T) {
	c, err := cache.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer c.Close()

	remote := &fakeRemote{}
	svc := WithCache(remote, c, "test-model")
	ctx := context.Background()

	svc.Translate(ctx, "Bonjour", "French", "English")
	svc.Translate(ctx, "Bonjour", "French", "Hindi")

	if remote.translateCalls != 2 {
		t.Errorf("different target languages must not share entries, got %d calls", remote.translateCalls)
	}
}

func TestWithCache_DetectBypassesCache(t *testing.T) {
	c, err := cache.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer c.Close()

	remote := &fakeRemote{}
	svc := WithCache(remote, c, "test-model")
	ctx := context.Background()

	svc.Detect(ctx, "hola")
	svc.Detect(ctx, "hola")
	if remote.detectCalls != 2 {
		t.Errorf("detect is not cached, expected 2 calls, got %d", remote.detectCalls)
	}
}
