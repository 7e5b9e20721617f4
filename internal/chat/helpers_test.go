package chat

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/axiom-ai/axiom/internal/event"
	"github.com/axiom-ai/axiom/internal/store"
	"github.com/axiom-ai/axiom/pkg/llm"
	"github.com/axiom-ai/axiom/pkg/models"
	"github.com/axiom-ai/axiom/pkg/plugin"
	"github.com/axiom-ai/axiom/pkg/roles"
	"go.uber.org/zap/zaptest"
)

type fakeCall struct {
	Messages []llm.Message
	Config   llm.CallConfig
}

// fakeLLM is both the llm role and the provider behind it.
type fakeLLM struct {
	mu       sync.Mutex
	calls    []fakeCall
	defaults roles.LLMDefaults
	replies  []string // consumed in order; the last one repeats
	err      error
}

func newFakeLLM(replies ...string) *fakeLLM {
	if len(replies) == 0 {
		replies = []string{"Go 1.25 shipped in August."}
	}
	return &fakeLLM{
		defaults: roles.LLMDefaults{Model: "kimi-k2", SearchModel: "moonshot-v1-auto", EnableWebSearch: true, Configured: true},
		replies:  replies,
	}
}

func (f *fakeLLM) Provider() llm.Provider      { return f }
func (f *fakeLLM) Defaults() roles.LLMDefaults { return f.defaults }

func (f *fakeLLM) Generate(ctx context.Context, prompt string, opts ...llm.CallOption) (*llm.Response, error) {
	return f.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

func (f *fakeLLM) Chat(_ context.Context, messages []llm.Message, opts ...llm.CallOption) (*llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fakeCall{Messages: messages, Config: llm.ApplyOptions(opts...)})
	if f.err != nil {
		return nil, f.err
	}
	i := min(len(f.calls)-1, len(f.replies)-1)
	return &llm.Response{Content: f.replies[i], Model: "kimi-k2", Done: true}, nil
}

func (f *fakeLLM) Calls() []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeCall(nil), f.calls...)
}

type fakeSearch struct {
	queries []string
}

func (f *fakeSearch) WebContext(_ context.Context, query string) (string, []roles.Source) {
	f.queries = append(f.queries, query)
	return "Web search context:\n- Go 1.25: https://go.dev/doc/go1.25",
		[]roles.Source{{Title: "Go 1.25", URL: "https://go.dev/doc/go1.25"}}
}

type recordedEvent struct {
	Topic   string
	Payload models.ChatMessageEvent
}

type testEnv struct {
	svc    *Service
	store  *Store
	llm    *fakeLLM
	events *[]recordedEvent
}

func newTestDB(t *testing.T) *store.SQLiteStore {
	t.Helper()
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background(), "chat", migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestEnv(t *testing.T, fake *fakeLLM, search roles.SearchProvider) *testEnv {
	t.Helper()
	db := newTestDB(t)

	cfg := DefaultConfig()
	cfg.AttachmentsDir = t.TempDir()

	bus := event.NewBus(zaptest.NewLogger(t))
	var events []recordedEvent
	bus.Subscribe("chat.message.*", func(_ context.Context, e plugin.Event) {
		events = append(events, recordedEvent{Topic: e.Topic, Payload: e.Payload.(models.ChatMessageEvent)})
	})

	var resolver func() roles.SearchProvider
	if search != nil {
		resolver = func() roles.SearchProvider { return search }
	}

	st := NewStore(db.DB())
	var provider roles.LLMProvider
	if fake != nil {
		provider = fake
	}
	return &testEnv{
		svc:    NewService(st, cfg, provider, resolver, bus, zaptest.NewLogger(t)),
		store:  st,
		llm:    fake,
		events: &events,
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// pngHeader returns a PNG that declares w x h grayscale pixels but carries
// no image data. Header parsing succeeds; a full decode would not.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	chunk := func(typ string, data []byte) {
		_ = binary.Write(&buf, binary.BigEndian, uint32(len(data)))
		body := append([]byte(typ), data...)
		buf.Write(body)
		_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(body))
	}
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 8 // bit depth; color type 0 (gray), no interlace
	chunk("IHDR", ihdr)
	chunk("IEND", nil)
	return buf.Bytes()
}

var errBoom = errors.New("boom")
