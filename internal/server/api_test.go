package server_test

import (
	"errors"
	"net/http"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/assistant"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/event"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/provider"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/server"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/storage"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/toolkit"
	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

var _ = Describe("POST /template", func() {
	It("streams snapshots and a completed result", func() {
		ts := newTestServer(nil, provider.TextScript(transcript, 16))

		resp := ts.postJSON("/template", server.GenerateRequest{Prompt: "retro gaming guild"})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Type")).To(Equal("text/event-stream"))
		runID := resp.Header.Get("X-Run-ID")
		Expect(runID).NotTo(BeEmpty())

		events := collect(streamEvents(resp.Body))
		Expect(events[0].Name).To(Equal(server.SSEEventRun))
		Expect(events[len(events)-1].Name).To(Equal(server.SSEEventResult))
		Expect(names(events[1 : len(events)-1])).To(HaveEach(server.SSEEventSnapshot))
		Expect(events).To(HaveLen(9))

		var first types.ServerTemplate
		events[1].decode(&first)
		Expect(first.Name).To(Equal("Pixel Raiders"))
		Expect(first.Streaming).To(BeTrue())

		var result server.RunResult
		events[len(events)-1].decode(&result)
		Expect(result.RunID).To(Equal(runID))
		Expect(result.Outcome).To(Equal("completed"))
		Expect(result.Units).To(Equal(7))
		Expect(result.Template.Complete).To(BeTrue())
		Expect(result.Template.Categories[0].Channels[0].Name).To(Equal("👋・welcome"))

		reqs := ts.provider.Requests()
		Expect(reqs).To(HaveLen(1))
		Expect(reqs[0].Model).To(Equal("replay"))
		Expect(reqs[0].Messages[0].Content).To(ContainSubstring("retro gaming guild"))
	})

	It("rejects invalid prompts before streaming", func() {
		ts := newTestServer(nil)

		resp := ts.postJSON("/template", server.GenerateRequest{Prompt: "Server"})
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(decodeError(resp).Code).To(Equal(server.ErrCodeInvalidPrompt))
		Expect(ts.provider.Requests()).To(BeEmpty())
	})

	It("rejects malformed bodies", func() {
		ts := newTestServer(nil)

		resp := ts.post("/template", "application/json", []byte(`{"prompt":`))
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(decodeError(resp).Code).To(Equal(server.ErrCodeInvalidRequest))
	})

	It("ends with an error event when the provider cannot open", func() {
		ts := newTestServer(nil, provider.Script{OpenErr: errors.New("quota exceeded")})

		events := collect(streamEvents(ts.postJSON("/template", server.GenerateRequest{Prompt: "chess club"}).Body))
		Expect(names(events)).To(Equal([]string{server.SSEEventRun, server.SSEEventError}))

		var detail server.ErrorDetail
		events[1].decode(&detail)
		Expect(detail.Code).To(Equal(server.ErrCodeProviderError))
		Expect(detail.Message).To(ContainSubstring("quota exceeded"))
	})

	It("reports an unknown model as an error event", func() {
		ts := newTestServer(nil, provider.TextScript(transcript, 0))

		events := collect(streamEvents(ts.postJSON("/template", server.GenerateRequest{Prompt: "chess club", Model: "nope/missing"}).Body))
		Expect(names(events)).To(Equal([]string{server.SSEEventRun, server.SSEEventError}))
	})

	It("lists and aborts active runs", func() {
		stall := newStallingProvider()
		ts := newTestServer([]provider.Provider{stall})

		resp := ts.postJSON("/template", server.GenerateRequest{Prompt: "slow jazz", Model: "stall/slow"})
		events := streamEvents(resp.Body)

		var first sseEvent
		Eventually(events).Should(Receive(&first))
		Expect(first.Name).To(Equal(server.SSEEventRun))
		var run server.RunInfo
		first.decode(&run)
		Eventually(stall.opened).Should(BeClosed())

		var snapshot sseEvent
		Eventually(events).Should(Receive(&snapshot))
		Expect(snapshot.Name).To(Equal(server.SSEEventSnapshot))

		var active []server.RunInfo
		Expect(ts.getJSON("/template/active", &active)).To(Equal(http.StatusOK))
		Expect(active).To(HaveLen(1))
		Expect(active[0].ID).To(Equal(run.ID))
		Expect(active[0].Kind).To(Equal("generate"))
		Expect(active[0].Model).To(Equal("stall/slow"))

		abort := ts.post("/template/"+run.ID+"/abort", "application/json", nil)
		Expect(abort.StatusCode).To(Equal(http.StatusOK))

		rest := collect(events)
		Expect(rest).NotTo(BeEmpty())
		var result server.RunResult
		rest[len(rest)-1].decode(&result)
		Expect(result.Outcome).To(Equal("cancelled"))
		Expect(result.Template.Name).To(Equal("Slow Burn"))
		Expect(result.Error).To(ContainSubstring("context canceled"))

		Eventually(func() []server.RunInfo {
			var list []server.RunInfo
			ts.getJSON("/template/active", &list)
			return list
		}).Should(BeEmpty())
	})

	It("returns 404 when aborting an unknown run", func() {
		ts := newTestServer(nil)
		resp := ts.post("/template/01HZZZZZZZZZZZZZZZZZZZZZZZ/abort", "application/json", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		Expect(decodeError(resp).Code).To(Equal(server.ErrCodeNotFound))
	})
})

var _ = Describe("POST /template/decode", func() {
	It("replays a transcript without a provider", func() {
		ts := newTestServer(nil)

		resp := ts.post("/template/decode?chunk=5", "text/plain", []byte(transcript))
		events := collect(streamEvents(resp.Body))
		Expect(events).To(HaveLen(9))

		var result server.RunResult
		events[len(events)-1].decode(&result)
		Expect(result.Outcome).To(Equal("completed"))
		Expect(result.Template.Roles).To(HaveLen(1))
		Expect(result.Template.Settings.VerificationLevel).To(Equal("MEDIUM"))
		Expect(ts.provider.Requests()).To(BeEmpty())
	})

	It("reports truncated transcripts and skipped units", func() {
		ts := newTestServer(nil)

		body := "<SERVER_NAME>Half</SERVER_NAME><ROLE>Broken</ROLE><CATEGORY>Lob"
		events := collect(streamEvents(ts.post("/template/decode?matcher=regex", "text/plain", []byte(body)).Body))

		var result server.RunResult
		events[len(events)-1].decode(&result)
		Expect(result.Outcome).To(Equal("truncated"))
		Expect(result.Skipped).To(Equal(1))
		Expect(result.Discarded).To(Equal("<CATEGORY>Lob"))
		Expect(result.Template.Name).To(Equal("Half"))
	})

	DescribeTable("rejects bad parameters",
		func(query string) {
			ts := newTestServer(nil)
			resp := ts.post("/template/decode?"+query, "text/plain", []byte(transcript))
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		},
		Entry("negative chunk", "chunk=-1"),
		Entry("non-numeric chunk", "chunk=big"),
		Entry("unknown matcher", "matcher=fuzzy"),
	)
})

var _ = Describe("POST /template/lint", func() {
	It("returns findings", func() {
		ts := newTestServer(nil)
		tmpl := types.NewServerTemplate()
		tmpl.Roles = []types.Role{{Name: "Mod", Color: "blue"}}

		resp := ts.postJSON("/template/lint", server.LintRequest{Template: tmpl})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var body struct {
			Findings []struct {
				Severity string `json:"severity"`
				Path     string `json:"path"`
			} `json:"findings"`
			HasErrors bool `json:"hasErrors"`
		}
		Expect(jsonDecode(resp, &body)).To(Succeed())
		Expect(body.HasErrors).To(BeTrue())
		Expect(body.Findings).To(ContainElement(HaveField("Path", "roles[0].color")))
	})

	It("requires a template", func() {
		ts := newTestServer(nil)
		Expect(ts.postJSON("/template/lint", map[string]any{}).StatusCode).To(Equal(http.StatusBadRequest))
	})
})

var _ = Describe("Toolkit", func() {
	tmpl := func() *types.ServerTemplate {
		t := types.NewServerTemplate()
		t.Name = "Chess Club"
		t.Categories = []types.Category{{Name: "Info", Channels: []types.Channel{{Kind: types.ChannelText, Name: "📜・rules"}}}}
		return t
	}

	It("lists the tools", func() {
		ts := newTestServer(nil)
		var tools []string
		Expect(ts.getJSON("/toolkit", &tools)).To(Equal(http.StatusOK))
		Expect(tools).To(HaveLen(len(toolkit.Tools)))
	})

	It("generates a welcome message", func() {
		ts := newTestServer(nil, provider.TextScript("Welcome to **Chess Club**!", 0))

		resp := ts.postJSON("/toolkit/welcome", server.ToolkitRequest{Template: tmpl(), Prompt: "chess"})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var out struct {
			Tool   string `json:"tool"`
			Result string `json:"result"`
		}
		Expect(jsonDecode(resp, &out)).To(Succeed())
		Expect(out.Tool).To(Equal("welcome"))
		Expect(out.Result).To(Equal("Welcome to **Chess Club**!"))
		Expect(ts.provider.Requests()[0].Messages[0].Content).To(ContainSubstring("📜・rules"))
	})

	It("generates an embed without a template", func() {
		ts := newTestServer(nil, provider.TextScript("```json\n{\"title\":\"Tournament\",\"description\":\"Sunday\",\"color\":3447003}\n```", 0))

		resp := ts.postJSON("/toolkit/embed", server.ToolkitRequest{Prompt: "tournament announcement"})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var out struct {
			Result types.EmbedMessage `json:"result"`
		}
		Expect(jsonDecode(resp, &out)).To(Succeed())
		Expect(out.Result.Embeds).To(HaveLen(1))
		Expect(out.Result.Embeds[0].Title).To(Equal("Tournament"))
	})

	It("maps provider failures to 502", func() {
		ts := newTestServer(nil, provider.Script{OpenErr: errors.New("down")})
		resp := ts.postJSON("/toolkit/rules", server.ToolkitRequest{Template: tmpl(), Prompt: "chess"})
		Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
		Expect(decodeError(resp).Code).To(Equal(server.ErrCodeProviderError))
	})

	DescribeTable("validates requests",
		func(path string, body server.ToolkitRequest, status int) {
			ts := newTestServer(nil)
			Expect(ts.postJSON(path, body).StatusCode).To(Equal(status))
		},
		Entry("unknown tool", "/toolkit/logo", server.ToolkitRequest{Template: types.NewServerTemplate()}, http.StatusNotFound),
		Entry("missing template", "/toolkit/rules", server.ToolkitRequest{Prompt: "chess"}, http.StatusBadRequest),
		Entry("embed without prompt", "/toolkit/embed", server.ToolkitRequest{}, http.StatusBadRequest),
	)
})

var _ = Describe("Chat", func() {
	It("streams deltas and keeps the conversation", func() {
		ts := newTestServer(nil,
			provider.Script{Chunks: []string{"Roles sit ", "highest first.", `[ACTIONS][{"label":"Roles","actionId":"NAV_RESULTS_ROLES"}]`}},
		)

		resp := ts.postJSON("/chat", server.ChatRequest{
			Message: "How are roles ordered?",
			Context: &assistant.Context{View: "results", ServerName: "Pixel Raiders"},
		})
		events := collect(streamEvents(resp.Body))
		Expect(names(events)).To(Equal([]string{
			server.SSEEventDelta, server.SSEEventDelta, server.SSEEventDelta, server.SSEEventReply,
		}))

		var reply server.ChatReply
		events[3].decode(&reply)
		Expect(reply.Message.Text).To(Equal("Roles sit highest first."))
		Expect(reply.Message.Actions).To(ConsistOf(types.ChatAction{Label: "Roles", ActionID: assistant.ActionResultsRoles}))
		Expect(reply.Topic).To(Equal(assistant.NewChatTopic))

		var info server.ConversationInfo
		Expect(ts.getJSON("/chat/"+reply.ConversationID, &info)).To(Equal(http.StatusOK))
		Expect(info.History).To(HaveLen(3))
		Expect(info.History[0].Text).To(ContainSubstring("Pixel Raiders"))

		req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/chat/"+reply.ConversationID, nil)
		del, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		del.Body.Close()
		Expect(del.StatusCode).To(Equal(http.StatusOK))
		Expect(ts.getJSON("/chat/"+reply.ConversationID, nil)).To(Equal(http.StatusNotFound))
	})

	It("returns the error reply when the model fails", func() {
		ts := newTestServer(nil, provider.Script{OpenErr: errors.New("overloaded")})

		events := collect(streamEvents(ts.postJSON("/chat", server.ChatRequest{Message: "hi"}).Body))
		Expect(names(events)).To(Equal([]string{server.SSEEventReply}))

		var reply server.ChatReply
		events[0].decode(&reply)
		Expect(reply.Message.Text).To(Equal(assistant.ErrorReply))
		Expect(reply.Error).To(ContainSubstring("overloaded"))
	})

	It("rejects unknown conversations and empty messages", func() {
		ts := newTestServer(nil)
		Expect(ts.postJSON("/chat", server.ChatRequest{ConversationID: "missing", Message: "hi"}).StatusCode).To(Equal(http.StatusNotFound))

		events := collect(streamEvents(ts.postJSON("/chat", server.ChatRequest{Message: "   "}).Body))
		Expect(names(events)).To(Equal([]string{server.SSEEventError}))
	})
})

var _ = Describe("History", func() {
	It("saves generations and serves them", func() {
		ts := newTestServer(nil, provider.TextScript(transcript, 32))
		collect(streamEvents(ts.postJSON("/template", server.GenerateRequest{Prompt: "retro gaming guild"}).Body))

		var list []storage.Creation
		Expect(ts.getJSON("/history", &list)).To(Equal(http.StatusOK))
		Expect(list).To(HaveLen(1))
		Expect(list[0].Prompt).To(Equal("retro gaming guild"))
		Expect(list[0].Outcome).To(Equal("completed"))
		Expect(list[0].Template.Name).To(Equal("Pixel Raiders"))

		var one storage.Creation
		Expect(ts.getJSON("/history/"+list[0].ID, &one)).To(Equal(http.StatusOK))
		Expect(one.Template.VanityURL).To(Equal("pixel-raiders"))

		req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/history/"+list[0].ID, nil)
		del, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		del.Body.Close()
		Expect(del.StatusCode).To(Equal(http.StatusOK))
		Expect(ts.getJSON("/history/"+list[0].ID, nil)).To(Equal(http.StatusNotFound))
	})

	It("does not keep failed generations", func() {
		ts := newTestServer(nil, provider.Script{OpenErr: errors.New("quota exceeded")})
		collect(streamEvents(ts.postJSON("/template", server.GenerateRequest{Prompt: "chess club"}).Body))

		var list []storage.Creation
		Expect(ts.getJSON("/history", &list)).To(Equal(http.StatusOK))
		Expect(list).To(BeEmpty())
	})
})

var _ = Describe("GET /event", func() {
	It("mirrors bus events with heartbeats", func() {
		ts := newTestServer(nil)

		resp, err := http.Get(ts.URL + "/event")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		events := streamEvents(resp.Body)

		var connected sseEvent
		Eventually(events).Should(Receive(&connected))
		Expect(connected.Data).To(ContainSubstring("server.connected"))

		ts.bus.Publish(event.Event{Type: event.ToolkitGenerated, Data: event.ToolkitGeneratedData{Tool: "rules", ServerName: "Chess Club"}})

		Eventually(events, time.Second).Should(Receive(WithTransform(func(e sseEvent) string { return e.Data },
			And(ContainSubstring(`"type":"toolkit.generated"`), ContainSubstring(`"serverName":"Chess Club"`)))))
	})

	It("closes when the bus closes", func() {
		ts := newTestServer(nil)

		resp, err := http.Get(ts.URL + "/event")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		events := streamEvents(resp.Body)
		Eventually(events).Should(Receive())

		ts.bus.Close()
		Eventually(events, 2*time.Second).Should(BeClosed())
	})
})

var _ = Describe("Providers and health", func() {
	It("lists providers with the default model", func() {
		ts := newTestServer(nil)

		var out server.ProvidersResponse
		Expect(ts.getJSON("/provider", &out)).To(Equal(http.StatusOK))
		Expect(out.Providers).To(HaveLen(1))
		Expect(out.Providers[0].ID).To(Equal("scripted"))
		Expect(out.Default).To(Equal("scripted/replay"))
	})

	It("reports health", func() {
		ts := newTestServer(nil)
		var out map[string]any
		Expect(ts.getJSON("/health", &out)).To(Equal(http.StatusOK))
		Expect(out).To(HaveKeyWithValue("status", "ok"))
		Expect(out).To(HaveKeyWithValue("activeRuns", BeNumerically("==", 0)))
	})

	It("answers CORS preflight", func() {
		ts := newTestServer(nil)
		req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/template", strings.NewReader(""))
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", "POST")
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.Header.Get("Access-Control-Allow-Origin")).NotTo(BeEmpty())
	})
})
