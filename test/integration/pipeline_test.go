//go:build integration

package integration

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/ambientworks/companiond/internal/dispatch"
	"github.com/ambientworks/companiond/internal/domain"
	"github.com/ambientworks/companiond/internal/monitor"
	"github.com/ambientworks/companiond/internal/prompt"
	"github.com/ambientworks/companiond/internal/provider"
	"github.com/ambientworks/companiond/internal/server"
)

// scriptedProbe serves focus readings from a mutable script.
type scriptedProbe struct {
	mu    sync.Mutex
	app   string
	title string
}

func (p *scriptedProbe) focus(app string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.app = app
}

func (p *scriptedProbe) ActiveAppName(ctx context.Context) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.app
}

func (p *scriptedProbe) ActiveWindowTitle(ctx context.Context, appName string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.title
}

type stubProvider struct {
	name    string
	context string
}

func (p *stubProvider) Name() string                          { return p.name }
func (p *stubProvider) Match(appName string) bool             { return appName == p.name }
func (p *stubProvider) GetContext(ctx context.Context) string { return p.context }

type stubGenerator struct {
	mu          sync.Mutex
	reply       domain.Reply
	transcribed string
	prompts     []string
}

func (g *stubGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (domain.Reply, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, userPrompt)
	return g.reply, nil
}

func (g *stubGenerator) Transcribe(ctx context.Context, audio []byte) string {
	return g.transcribed
}

type silentSpeaker struct{}

func (silentSpeaker) Speak(string) {}

var _ = Describe("Companion Pipeline", func() {
	var (
		ctx       context.Context
		cancel    context.CancelFunc
		probe     *scriptedProbe
		generator *stubGenerator
		hub       *server.Hub
		wsURL     string
		mon       *monitor.Monitor
		monDone   chan error
	)

	newClient := func() *websocket.Conn {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { conn.Close() })
		return conn
	}

	readEvent := func(conn *websocket.Conn) domain.Event {
		var event domain.Event
		Expect(conn.SetReadDeadline(time.Now().Add(3 * time.Second))).To(Succeed())
		Expect(conn.ReadJSON(&event)).To(Succeed())
		return event
	}

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		logger := zap.NewNop()

		probe = &scriptedProbe{app: "Finder", title: "Desktop"}
		generator = &stubGenerator{
			reply: domain.Reply{Message: "looking sharp!", Emotion: "happy", Structured: true},
		}

		registry := provider.NewRegistry()
		registry.Register(&stubProvider{name: "Numbers", context: "Sheet1 totals"})

		state := monitor.NewState()
		hub = server.NewHub(logger)

		dispatcher := dispatch.New(
			registry,
			probe,
			state,
			prompt.NewComposer(prompt.DefaultPersona()),
			generator,
			generator,
			silentSpeaker{},
			hub,
			[]string{"Companion"},
			logger,
		)

		mon = monitor.New(
			monitor.Config{
				Interval:           20 * time.Millisecond,
				SuggestionCooldown: time.Hour,
				IgnoreApps:         []string{"Companion"},
			},
			state,
			registry,
			probe,
			dispatcher,
			logger,
		)

		srv := server.New("", hub, dispatcher, logger)
		ts := httptest.NewServer(srv.Handler(ctx))
		DeferCleanup(ts.Close)
		wsURL = "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

		monDone = make(chan error, 1)
		go func() { monDone <- mon.Run(ctx) }()
	})

	AfterEach(func() {
		cancel()
		Eventually(monDone, "2s").Should(Receive())
		hub.CloseAll()
	})

	Describe("autonomous suggestions", func() {
		It("streams thinking and suggestion events when focus lands on a target app", func() {
			conn := newClient()
			Expect(readEvent(conn).Type).To(Equal(domain.EventSessionStarted))

			probe.focus("Numbers")

			thinking := readEvent(conn)
			Expect(thinking.Type).To(Equal(domain.EventThinkingStart))
			Expect(thinking.Data.Context).To(Equal("User switched to Numbers"))

			suggestion := readEvent(conn)
			Expect(suggestion.Type).To(Equal(domain.EventSuggestion))
			Expect(suggestion.Data.AppName).To(Equal("Numbers"))
			Expect(suggestion.Data.Message).To(Equal("looking sharp!"))
			Expect(suggestion.Data.Emotion).To(Equal("happy"))
		})

		It("delivers the same suggestion to every connected client", func() {
			a := newClient()
			b := newClient()
			readEvent(a)
			readEvent(b)

			probe.focus("Numbers")

			for _, conn := range []*websocket.Conn{a, b} {
				Expect(readEvent(conn).Type).To(Equal(domain.EventThinkingStart))
				Expect(readEvent(conn).Type).To(Equal(domain.EventSuggestion))
			}
		})

		It("stays silent when focus lands on a non-target app", func() {
			conn := newClient()
			readEvent(conn)

			probe.focus("Safari")

			Expect(conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))).To(Succeed())
			var stray domain.Event
			Expect(conn.ReadJSON(&stray)).NotTo(Succeed())
		})
	})

	Describe("client questions", func() {
		It("answers a typed question with a reply event", func() {
			conn := newClient()
			readEvent(conn)

			payload := `{"type":"message","data":{"content":"what do these totals mean?"}}`
			Expect(conn.WriteMessage(websocket.TextMessage, []byte(payload))).To(Succeed())

			Expect(readEvent(conn).Type).To(Equal(domain.EventThinkingStart))
			reply := readEvent(conn)
			Expect(reply.Type).To(Equal(domain.EventReply))
			Expect(reply.Data.Message).To(Equal("looking sharp!"))
		})

		It("answers an audio question after transcription", func() {
			generator.transcribed = "read me the first row"

			conn := newClient()
			readEvent(conn)

			Expect(conn.WriteMessage(websocket.BinaryMessage, []byte{0x52, 0x49, 0x46, 0x46})).To(Succeed())

			Expect(readEvent(conn).Type).To(Equal(domain.EventThinkingStart))
			Expect(readEvent(conn).Type).To(Equal(domain.EventReply))

			generator.mu.Lock()
			defer generator.mu.Unlock()
			Expect(generator.prompts[len(generator.prompts)-1]).To(ContainSubstring("read me the first row"))
		})

		It("drops an audio question whose transcription is empty", func() {
			generator.transcribed = "   "

			conn := newClient()
			readEvent(conn)

			Expect(conn.WriteMessage(websocket.BinaryMessage, []byte{0x00})).To(Succeed())

			Expect(conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))).To(Succeed())
			var stray domain.Event
			Expect(conn.ReadJSON(&stray)).NotTo(Succeed())
		})
	})
})
