package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"srushti-backend/internal/llm"
	"srushti-backend/internal/models"
	"srushti-backend/internal/store"
)

// --- fakes ---

// scriptedProvider replays one prepared event sequence per StreamCompletion
// call and records the requests it saw.
type scriptedProvider struct {
	scripts  [][]llm.StreamEvent
	requests []llm.CompletionRequest
}

func (p *scriptedProvider) StreamCompletion(ctx context.Context, req llm.CompletionRequest) <-chan llm.StreamEvent {
	p.requests = append(p.requests, req)
	var script []llm.StreamEvent
	if len(p.requests) <= len(p.scripts) {
		script = p.scripts[len(p.requests)-1]
	}
	events := make(chan llm.StreamEvent, len(script))
	for _, ev := range script {
		events <- ev
	}
	close(events)
	return events
}

func (p *scriptedProvider) Select(model string) llm.Provider { return p }

type fakeStore struct {
	createErr    error
	created      []models.Conversation
	insertedPair *store.InsertMessagePairParams
	insertErr    error
	conversation *models.Conversation
	messages     []models.Message
	upserted     *models.User
}

func (s *fakeStore) UpsertUser(ctx context.Context, user *models.User) error {
	s.upserted = user
	return nil
}

func (s *fakeStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return nil, store.ErrNotFound
}

func (s *fakeStore) CreateConversation(ctx context.Context, userID, title string) (*models.Conversation, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	conv := models.Conversation{ID: uuid.New(), UserID: userID, Title: title}
	s.created = append(s.created, conv)
	return &conv, nil
}

func (s *fakeStore) GetConversationByID(ctx context.Context, id uuid.UUID, userID string) (*models.Conversation, error) {
	if s.conversation != nil && s.conversation.ID == id && s.conversation.UserID == userID {
		return s.conversation, nil
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) ListConversationsByUser(ctx context.Context, userID string, limit int) ([]models.Conversation, error) {
	return s.created, nil
}

func (s *fakeStore) ListMessagesByConversation(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	return s.messages, nil
}

func (s *fakeStore) InsertMessagePair(ctx context.Context, arg store.InsertMessagePairParams) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.insertedPair = &arg
	return nil
}

type fakeSearcher struct {
	sources      []models.Source
	contextBlock string
	queries      []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string) ([]models.Source, string) {
	f.queries = append(f.queries, query)
	return f.sources, f.contextBlock
}

type fakeUploader struct {
	paths []string
}

func (f *fakeUploader) UploadImage(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	f.paths = append(f.paths, objectPath)
	return fmt.Sprintf("https://storage.example/%s", objectPath), nil
}

// frame is one recorded emitter call. An empty name means an unnamed data
// frame; done marks the terminal sentinel.
type frame struct {
	name    string
	payload any
	done    bool
}

type recordingEmitter struct {
	frames []frame
}

func (r *recordingEmitter) Data(v any) error {
	r.frames = append(r.frames, frame{payload: v})
	return nil
}

func (r *recordingEmitter) Event(name string, v any) error {
	r.frames = append(r.frames, frame{name: name, payload: v})
	return nil
}

func (r *recordingEmitter) Done() error {
	r.frames = append(r.frames, frame{done: true})
	return nil
}

func (r *recordingEmitter) dataPayloads() []any {
	var out []any
	for _, f := range r.frames {
		if f.name == "" && !f.done {
			out = append(out, f.payload)
		}
	}
	return out
}

func (r *recordingEmitter) eventsNamed(name string) []frame {
	var out []frame
	for _, f := range r.frames {
		if f.name == name {
			out = append(out, f)
		}
	}
	return out
}

// failingEmitter errors on every write, simulating a disconnected client.
type failingEmitter struct{}

func (failingEmitter) Data(v any) error               { return errors.New("broken pipe") }
func (failingEmitter) Event(name string, v any) error { return errors.New("broken pipe") }
func (failingEmitter) Done() error                    { return errors.New("broken pipe") }

func existingConvID() string { return "5f9c2f4e-8a3b-4f26-9a07-2a6d2a6a6a01" }

// --- tests ---

func TestStreamChat_DirectAnswer(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]llm.StreamEvent{{
		{Kind: llm.EventContent, Content: "Hel"},
		{Kind: llm.EventContent, Content: "lo"},
		{Kind: llm.EventDone},
	}}}
	st := &fakeStore{}
	searcher := &fakeSearcher{}
	out := &recordingEmitter{}

	svc := NewChatService(st, provider, searcher, &fakeUploader{})
	svc.StreamChat(context.Background(), "user-1", models.ChatRequest{
		Message:        "say hello",
		ConversationID: existingConvID(),
		Model:          "google/gemini-2.0-flash-exp:free",
	}, out)

	// Deltas are forwarded as they arrive and the sentinel comes last.
	require.Len(t, out.frames, 3)
	assert.Equal(t, []any{"Hel", "lo"}, out.dataPayloads())
	assert.True(t, out.frames[2].done)

	// A single completion request: system prompt plus the user turn, with
	// the web search tool offered.
	require.Len(t, provider.requests, 1)
	req := provider.requests[0]
	assert.Equal(t, firstPassMaxTokens, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Equal(t, "say hello", req.Messages[1].Content)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, llm.WebSearchToolName, req.Tools[0].Function.Name)

	// Search never ran and the full answer was persisted.
	assert.Empty(t, searcher.queries)
	require.NotNil(t, st.insertedPair)
	assert.Equal(t, existingConvID(), st.insertedPair.ConversationID.String())
	assert.Equal(t, "user", st.insertedPair.UserMessage.Sender)
	assert.Equal(t, "say hello", st.insertedPair.UserMessage.Content)
	assert.Equal(t, "ai", st.insertedPair.AssistantMessage.Sender)
	assert.Equal(t, "Hello", st.insertedPair.AssistantMessage.Content)
	assert.Nil(t, st.insertedPair.AssistantMessage.Sources)
}

func TestStreamChat_NewConversationAnnounced(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]llm.StreamEvent{{
		{Kind: llm.EventContent, Content: "hi"},
		{Kind: llm.EventDone},
	}}}
	st := &fakeStore{}
	out := &recordingEmitter{}

	svc := NewChatService(st, provider, &fakeSearcher{}, &fakeUploader{})
	longMessage := "this message is well over forty characters long and gets clipped"
	svc.StreamChat(context.Background(), "user-1", models.ChatRequest{Message: longMessage}, out)

	require.Len(t, st.created, 1)
	assert.Equal(t, longMessage[:40], st.created[0].Title)

	events := out.eventsNamed("new_conversation")
	require.Len(t, events, 1)
	announced, ok := events[0].payload.(models.NewConversationEvent)
	require.True(t, ok)
	assert.Equal(t, st.created[0].ID.String(), announced.ID)
	assert.Equal(t, st.created[0].Title, announced.Title)

	// The announcement precedes every delta.
	assert.Equal(t, "new_conversation", out.frames[0].name)
}

func TestStreamChat_ToolCallFlow(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]llm.StreamEvent{
		{
			{Kind: llm.EventReasoning, Content: "I should"},
			{Kind: llm.EventReasoning, Content: " search."},
			{Kind: llm.EventToolCallFragment, Fragment: llm.ToolCallFragment{Index: 0, ID: "call_1", Type: "function", Name: llm.WebSearchToolName, ArgumentsDelta: `{"query":"go 1.`}},
			{Kind: llm.EventToolCallFragment, Fragment: llm.ToolCallFragment{Index: 0, ArgumentsDelta: `25 release"}`}},
			{Kind: llm.EventDone},
		},
		{
			{Kind: llm.EventContent, Content: "Go 1.25 shipped."},
			{Kind: llm.EventReasoning, Content: "Summarizing results."},
			{Kind: llm.EventDone},
		},
	}}
	st := &fakeStore{}
	searcher := &fakeSearcher{
		sources:      []models.Source{{Title: "Release notes", URL: "https://go.dev/doc"}},
		contextBlock: "Web search results:\n\n[1] Title: Release notes\nURL: https://go.dev/doc\nSnippet: s\n\n",
	}
	out := &recordingEmitter{}

	svc := NewChatService(st, provider, searcher, &fakeUploader{})
	svc.StreamChat(context.Background(), "user-1", models.ChatRequest{
		Message:        "when did go 1.25 ship?",
		ConversationID: existingConvID(),
	}, out)

	// The assembled query drove exactly one search.
	assert.Equal(t, []string{"go 1.25 release"}, searcher.queries)

	// Reasoning arrives as whole events, one per pass, before the content
	// of the pass that follows it.
	reasoning := out.eventsNamed("reasoning")
	require.Len(t, reasoning, 2)
	assert.Equal(t, "I should search.", reasoning[0].payload)
	assert.Equal(t, "Summarizing results.", reasoning[1].payload)

	sources := out.eventsNamed("sources")
	require.Len(t, sources, 1)
	assert.Equal(t, searcher.sources, sources[0].payload)

	assert.Equal(t, []any{"Go 1.25 shipped."}, out.dataPayloads())
	assert.True(t, out.frames[len(out.frames)-1].done)

	// The second pass carries the tool exchange and cannot call tools again.
	require.Len(t, provider.requests, 2)
	second := provider.requests[1]
	assert.Equal(t, "none", second.ToolChoice)
	assert.Equal(t, 0.7, second.Temperature)
	assert.Equal(t, 2000, second.MaxTokens)
	assert.Empty(t, second.Tools)

	require.Len(t, second.Messages, 5)
	assistant := second.Messages[2]
	assert.Equal(t, "assistant", assistant.Role)
	require.Len(t, assistant.ToolCalls, 1)
	assert.Equal(t, "call_1", assistant.ToolCalls[0].ID)
	assert.Equal(t, `{"query":"go 1.25 release"}`, assistant.ToolCalls[0].Function.Arguments)
	assert.Equal(t, "I should search.", assistant.Reasoning)

	tool := second.Messages[3]
	assert.Equal(t, "tool", tool.Role)
	assert.Equal(t, "call_1", tool.ToolCallID)
	assert.Equal(t, searcher.contextBlock, tool.Content)

	reask := second.Messages[4]
	assert.Equal(t, "user", reask.Role)
	assert.Equal(t, "Based on the provided web search results, please give a comprehensive answer to my original question: 'when did go 1.25 ship?'", reask.Content)

	// Persistence captures the answer, the combined reasoning and the
	// citation sources.
	require.NotNil(t, st.insertedPair)
	assistantRecord := st.insertedPair.AssistantMessage
	assert.Equal(t, "Go 1.25 shipped.", assistantRecord.Content)
	require.NotNil(t, assistantRecord.Reasoning)
	assert.Equal(t, "I should search.\n\n---\n\nSummarizing results.", *assistantRecord.Reasoning)

	var savedSources []models.Source
	require.NoError(t, json.Unmarshal(assistantRecord.Sources, &savedSources))
	assert.Equal(t, searcher.sources, savedSources)
}

func TestStreamChat_ForcedSearchSkipsFirstPass(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]llm.StreamEvent{{
		{Kind: llm.EventContent, Content: "Here is what I found."},
		{Kind: llm.EventDone},
	}}}
	st := &fakeStore{}
	searcher := &fakeSearcher{contextBlock: "No relevant information found on the web for the past week."}
	out := &recordingEmitter{}

	svc := NewChatService(st, provider, searcher, &fakeUploader{})
	svc.StreamChat(context.Background(), "user-1", models.ChatRequest{
		Message:        "latest llm news",
		ConversationID: existingConvID(),
		ForceWebSearch: true,
	}, out)

	// No first-pass model call: the search query is the raw message and the
	// single completion request is the second pass.
	assert.Equal(t, []string{"latest llm news"}, searcher.queries)
	require.Len(t, provider.requests, 1)
	assert.Equal(t, "none", provider.requests[0].ToolChoice)

	// The synthesized call id flows into the tool message.
	var toolMsg *llm.Message
	for i := range provider.requests[0].Messages {
		if provider.requests[0].Messages[i].Role == "tool" {
			toolMsg = &provider.requests[0].Messages[i]
		}
	}
	require.NotNil(t, toolMsg)
	assert.Equal(t, "forced_search", toolMsg.ToolCallID)

	// No sources, so no sources event; the answer still streams and ends.
	assert.Empty(t, out.eventsNamed("sources"))
	assert.Equal(t, []any{"Here is what I found."}, out.dataPayloads())
	assert.True(t, out.frames[len(out.frames)-1].done)

	require.NotNil(t, st.insertedPair)
	assert.Equal(t, "Here is what I found.", st.insertedPair.AssistantMessage.Content)
	assert.Nil(t, st.insertedPair.AssistantMessage.Sources)
}

func TestStreamChat_NoSourcesMeansNoSourcesEvent(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]llm.StreamEvent{
		{
			{Kind: llm.EventToolCallFragment, Fragment: llm.ToolCallFragment{Index: 0, ID: "call_1", Type: "function", Name: llm.WebSearchToolName, ArgumentsDelta: `{"query":"q"}`}},
			{Kind: llm.EventDone},
		},
		{
			{Kind: llm.EventContent, Content: "Search is unavailable right now."},
			{Kind: llm.EventDone},
		},
	}}
	searcher := &fakeSearcher{contextBlock: "Web search is not configured."}
	out := &recordingEmitter{}

	svc := NewChatService(&fakeStore{}, provider, searcher, &fakeUploader{})
	svc.StreamChat(context.Background(), "user-1", models.ChatRequest{
		Message:        "anything new?",
		ConversationID: existingConvID(),
	}, out)

	assert.Empty(t, out.eventsNamed("sources"))
	// The second pass still runs, with the explanatory string as the tool
	// result.
	require.Len(t, provider.requests, 2)
	var toolMsg *llm.Message
	for i := range provider.requests[1].Messages {
		if provider.requests[1].Messages[i].Role == "tool" {
			toolMsg = &provider.requests[1].Messages[i]
		}
	}
	require.NotNil(t, toolMsg)
	assert.Equal(t, "Web search is not configured.", toolMsg.Content)
}

func TestStreamChat_MalformedToolArgumentsFallBackToMessage(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]llm.StreamEvent{
		{
			{Kind: llm.EventToolCallFragment, Fragment: llm.ToolCallFragment{Index: 0, ID: "call_1", Type: "function", Name: llm.WebSearchToolName, ArgumentsDelta: `{"query": tru`}},
			{Kind: llm.EventDone},
		},
		{
			{Kind: llm.EventContent, Content: "answer"},
			{Kind: llm.EventDone},
		},
	}}
	searcher := &fakeSearcher{contextBlock: "No relevant information found on the web for the past week."}

	svc := NewChatService(&fakeStore{}, provider, searcher, &fakeUploader{})
	svc.StreamChat(context.Background(), "user-1", models.ChatRequest{
		Message:        "what happened today?",
		ConversationID: existingConvID(),
	}, &recordingEmitter{})

	assert.Equal(t, []string{"what happened today?"}, searcher.queries)
}

func TestStreamChat_ContentSuppressedAfterToolCallStarts(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]llm.StreamEvent{
		{
			{Kind: llm.EventContent, Content: "Let me look that up."},
			{Kind: llm.EventToolCallFragment, Fragment: llm.ToolCallFragment{Index: 0, ID: "call_1", Type: "function", Name: llm.WebSearchToolName, ArgumentsDelta: `{"query":"q"}`}},
			{Kind: llm.EventContent, Content: "stray preamble"},
			{Kind: llm.EventDone},
		},
		{
			{Kind: llm.EventContent, Content: "Final answer."},
			{Kind: llm.EventDone},
		},
	}}
	out := &recordingEmitter{}

	svc := NewChatService(&fakeStore{}, provider, &fakeSearcher{contextBlock: "ctx"}, &fakeUploader{})
	svc.StreamChat(context.Background(), "user-1", models.ChatRequest{
		Message:        "q",
		ConversationID: existingConvID(),
	}, out)

	// Content preceding the first fragment streams live; content after it
	// is buffered and never reaches the client.
	assert.Equal(t, []any{"Let me look that up.", "Final answer."}, out.dataPayloads())
}

func TestStreamChat_ImagesDisableToolsAndBuildParts(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]llm.StreamEvent{{
		{Kind: llm.EventContent, Content: "I see a cat."},
		{Kind: llm.EventDone},
	}}}
	st := &fakeStore{}
	uploader := &fakeUploader{}
	out := &recordingEmitter{}

	pngData := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	jpegData := base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))

	svc := NewChatService(st, provider, &fakeSearcher{}, uploader)
	svc.StreamChat(context.Background(), "user-1", models.ChatRequest{
		Message:        "what is in these?",
		ConversationID: existingConvID(),
		Images: []models.ImageAttachment{
			{Data: pngData, MimeType: "image/png", Filename: "cat.png"},
			{Data: jpegData, MimeType: "image/jpeg", Filename: "dog.jpeg"},
		},
	}, out)

	require.Len(t, provider.requests, 1)
	req := provider.requests[0]
	assert.Empty(t, req.Tools)

	parts, ok := req.Messages[len(req.Messages)-1].Content.([]llm.ContentPart)
	require.True(t, ok)
	require.Len(t, parts, 3)
	assert.Equal(t, "text", parts[0].Type)
	assert.Equal(t, "what is in these?", parts[0].Text)
	assert.Equal(t, "image_url", parts[1].Type)
	assert.Equal(t, "data:image/png;base64,"+pngData, parts[1].ImageURL.URL)
	assert.Equal(t, "auto", parts[1].ImageURL.Detail)
	assert.Equal(t, "data:image/jpeg;base64,"+jpegData, parts[2].ImageURL.URL)

	// Both attachments were uploaded during persistence and their URLs
	// landed on the user message.
	require.Len(t, uploader.paths, 2)
	assert.Contains(t, uploader.paths[0], "user-1/")
	assert.Contains(t, uploader.paths[0], "cat.png")
	assert.Contains(t, uploader.paths[1], "dog.jpeg")

	require.NotNil(t, st.insertedPair)
	assert.True(t, st.insertedPair.UserMessage.HasImage)
	require.Len(t, st.insertedPair.UserMessage.ImageURLs, 2)
	assert.Equal(t, "https://storage.example/"+uploader.paths[0], st.insertedPair.UserMessage.ImageURLs[0])
}

func TestStreamChat_ProviderErrorEndsStream(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]llm.StreamEvent{{
		{Kind: llm.EventContent, Content: "partial"},
		{Kind: llm.EventError, Content: "upstream timeout"},
	}}}
	st := &fakeStore{}
	out := &recordingEmitter{}

	svc := NewChatService(st, provider, &fakeSearcher{}, &fakeUploader{})
	svc.StreamChat(context.Background(), "user-1", models.ChatRequest{
		Message:        "q",
		ConversationID: existingConvID(),
	}, out)

	last := out.frames[len(out.frames)-1]
	assert.True(t, last.done)
	errFrame := out.frames[len(out.frames)-2]
	assert.Equal(t, "An error occurred: upstream timeout", errFrame.payload)

	// Failed turns are never persisted.
	assert.Nil(t, st.insertedPair)
}

func TestStreamChat_ConversationCreateFailure(t *testing.T) {
	provider := &scriptedProvider{}
	st := &fakeStore{createErr: errors.New("db down")}
	out := &recordingEmitter{}

	svc := NewChatService(st, provider, &fakeSearcher{}, &fakeUploader{})
	svc.StreamChat(context.Background(), "user-1", models.ChatRequest{Message: "hi"}, out)

	require.Len(t, out.frames, 2)
	payload, ok := out.frames[0].payload.(string)
	require.True(t, ok)
	assert.Contains(t, payload, "Could not start a new conversation")
	assert.True(t, out.frames[1].done)
	assert.Empty(t, provider.requests)
}

func TestStreamChat_InvalidConversationID(t *testing.T) {
	provider := &scriptedProvider{}
	out := &recordingEmitter{}

	svc := NewChatService(&fakeStore{}, provider, &fakeSearcher{}, &fakeUploader{})
	svc.StreamChat(context.Background(), "user-1", models.ChatRequest{
		Message:        "hi",
		ConversationID: "not-a-uuid",
	}, out)

	require.Len(t, out.frames, 2)
	payload, ok := out.frames[0].payload.(string)
	require.True(t, ok)
	assert.Contains(t, payload, "Invalid conversation id")
	assert.True(t, out.frames[1].done)
	assert.Empty(t, provider.requests)
}

func TestStreamChat_DisconnectedClientSkipsPersistence(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]llm.StreamEvent{{
		{Kind: llm.EventContent, Content: "hello"},
		{Kind: llm.EventDone},
	}}}
	st := &fakeStore{}

	svc := NewChatService(st, provider, &fakeSearcher{}, &fakeUploader{})
	svc.StreamChat(context.Background(), "user-1", models.ChatRequest{
		Message:        "hi",
		ConversationID: existingConvID(),
	}, failingEmitter{})

	assert.Nil(t, st.insertedPair)
}

func TestStreamChat_DefaultModel(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]llm.StreamEvent{{
		{Kind: llm.EventContent, Content: "hi"},
		{Kind: llm.EventDone},
	}}}

	svc := NewChatService(&fakeStore{}, provider, &fakeSearcher{}, &fakeUploader{})
	svc.StreamChat(context.Background(), "user-1", models.ChatRequest{
		Message:        "hi",
		ConversationID: existingConvID(),
	}, &recordingEmitter{})

	require.Len(t, provider.requests, 1)
	assert.Equal(t, llm.GroqModelGPTOSS120B, provider.requests[0].Model)
}

func TestStreamChat_HistoryIsForwardedInOrder(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]llm.StreamEvent{{
		{Kind: llm.EventContent, Content: "again?"},
		{Kind: llm.EventDone},
	}}}

	svc := NewChatService(&fakeStore{}, provider, &fakeSearcher{}, &fakeUploader{})
	svc.StreamChat(context.Background(), "user-1", models.ChatRequest{
		Message:        "and now?",
		ConversationID: existingConvID(),
		History: []models.ChatMessage{
			{Role: "user", Content: "first question"},
			{Role: "assistant", Content: "first answer"},
		},
	}, &recordingEmitter{})

	require.Len(t, provider.requests, 1)
	msgs := provider.requests[0].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "first question", msgs[1].Content)
	assert.Equal(t, "first answer", msgs[2].Content)
	assert.Equal(t, "and now?", msgs[3].Content)
}
