package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"srushti-backend/internal/llm"
	"srushti-backend/internal/models"
	"srushti-backend/internal/storage"
	"srushti-backend/internal/store"

	"github.com/google/uuid"
)

// systemPrompt is the fixed persona prompt sent as the first message of
// every completion request.
const systemPrompt = "You are Srushti, an AI trained by Shreyash shastri. Write like a human, Keep your responses professional but conversational. Don't use em dashes or buzzwords. Avoid sounding like a press release, dont use very high level language, keep it natural, use high level language only when requested by user. Be Clear Direct and natural, like you're writing to a smart friend. Always Use web_search function to find relevant info. Always keep the user engaged, and Please dont write the search results, its just for you to understand, dont mention it in response no matter what. Tell the user only what they have asked; don't introduce additional topics. Keep your answers concise and strictly relevant."

const firstPassMaxTokens = 4096

// StreamEmitter receives the frames of one chat turn in order. The HTTP
// layer backs it with an SSE writer; tests record frames in memory. A write
// error means the client is gone and the turn should be abandoned.
type StreamEmitter interface {
	Data(v any) error
	Event(name string, v any) error
	Done() error
}

// ProviderSelector routes a model identifier to the provider serving it.
type ProviderSelector interface {
	Select(model string) llm.Provider
}

// Searcher performs one web search. It never fails: on any error it returns
// no sources and an explanatory context string.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.Source, string)
}

// ImageUploader stores one image blob and returns its public URL.
type ImageUploader interface {
	UploadImage(ctx context.Context, objectPath string, data []byte, contentType string) (string, error)
}

// ChatService drives the two-pass streaming chat protocol.
type ChatService struct {
	store     store.Store
	providers ProviderSelector
	search    Searcher
	uploads   ImageUploader
}

// NewChatService creates a new ChatService with injected collaborators.
func NewChatService(st store.Store, providers ProviderSelector, search Searcher, uploads ImageUploader) *ChatService {
	return &ChatService{
		store:     st,
		providers: providers,
		search:    search,
		uploads:   uploads,
	}
}

// relayState enumerates the states of one chat turn. Transitions only move
// forward; stateError is reachable from anywhere and stateDone is terminal.
type relayState int

const (
	stateInit relayState = iota
	stateFirstPass
	stateDirectDone
	stateToolPending
	stateSearching
	stateSecondPass
	statePersist
	stateDone
	stateError
)

// chatTurn is the per-request working set. Which buffers are meaningful
// depends on the current state: bufferedContent/bufferedReasoning belong to
// the first pass, secondReasoning and finalAnswer to the second (or, for
// direct answers, finalAnswer is the first-pass content).
type chatTurn struct {
	userID string
	req    models.ChatRequest
	model  string

	provider       llm.Provider
	conversationID uuid.UUID
	messages       []llm.Message

	bufferedContent   string
	bufferedReasoning string
	secondReasoning   string
	allReasoning      string
	finalAnswer       string

	toolCalls     []llm.ToolCall
	searchQuery   string
	sources       []models.Source
	searchContext string

	errMessage string
	abandoned  bool
}

// StreamChat runs one complete chat turn against out. It always terminates
// the stream itself (with a [DONE] sentinel, possibly preceded by an error
// frame) unless the client has disconnected.
func (s *ChatService) StreamChat(ctx context.Context, userID string, req models.ChatRequest, out StreamEmitter) {
	t := &chatTurn{userID: userID, req: req, model: req.Model}
	if t.model == "" {
		t.model = llm.GroqModelGPTOSS120B
	}
	t.provider = s.providers.Select(t.model)

	state := stateInit
	for {
		switch state {
		case stateInit:
			state = s.runInit(ctx, t, out)
		case stateFirstPass:
			state = s.runFirstPass(ctx, t, out)
		case stateDirectDone:
			state = s.runDirectDone(t, out)
		case stateToolPending:
			state = s.runToolPending(t, out)
		case stateSearching:
			state = s.runSearching(ctx, t, out)
		case stateSecondPass:
			state = s.runSecondPass(ctx, t, out)
		case statePersist:
			state = s.runPersist(ctx, t)
		case stateError:
			state = s.runError(t, out)
		case stateDone:
			return
		}
	}
}

// runInit resolves the conversation id, creating a new conversation (and
// announcing it) when none was supplied, then builds the outgoing messages.
func (s *ChatService) runInit(ctx context.Context, t *chatTurn, out StreamEmitter) relayState {
	if t.req.ConversationID == "" {
		conv, err := s.store.CreateConversation(ctx, t.userID, truncateTitle(t.req.Message, 40))
		if err != nil {
			log.Printf("ERROR [ChatService] Failed to create conversation for user %s: %v", t.userID, err)
			t.errMessage = fmt.Sprintf("Error: Could not start a new conversation. %v", err)
			return stateError
		}
		t.conversationID = conv.ID
		if err := out.Event("new_conversation", models.NewConversationEvent{ID: conv.ID.String(), Title: conv.Title}); err != nil {
			t.abandoned = true
			return stateDone
		}
	} else {
		id, err := uuid.Parse(t.req.ConversationID)
		if err != nil {
			t.errMessage = fmt.Sprintf("Error: Invalid conversation id. %v", err)
			return stateError
		}
		t.conversationID = id
	}

	t.messages = buildInitialMessages(t.req)
	return stateFirstPass
}

// runFirstPass streams the first completion. Content deltas are forwarded
// live only while no tool-call fragments have arrived; reasoning is buffered
// whole. A forced search skips the model call entirely and synthesizes the
// tool call.
func (s *ChatService) runFirstPass(ctx context.Context, t *chatTurn, out StreamEmitter) relayState {
	if t.req.ForceWebSearch {
		log.Printf("[ChatService] Web search was forced by user for: %q", t.req.Message)
		args, err := json.Marshal(map[string]string{"query": t.req.Message})
		if err != nil {
			t.errMessage = fmt.Sprintf("An error occurred: %v", err)
			return stateError
		}
		t.toolCalls = []llm.ToolCall{{
			ID:   "forced_search",
			Type: "function",
			Function: llm.ToolCallFunction{
				Name:      llm.WebSearchToolName,
				Arguments: string(args),
			},
		}}
		return stateToolPending
	}

	// Many vision models reject tool definitions, so tools are only offered
	// when the request carries no attachments.
	var tools []llm.Tool
	if len(t.req.Images) == 0 {
		tools = []llm.Tool{llm.WebSearchTool()}
	}

	assembler := llm.NewToolCallAssembler()
	events := t.provider.StreamCompletion(ctx, llm.CompletionRequest{
		Model:     t.model,
		Messages:  t.messages,
		Tools:     tools,
		MaxTokens: firstPassMaxTokens,
	})

	for ev := range events {
		switch ev.Kind {
		case llm.EventContent:
			t.bufferedContent += ev.Content
			if assembler.Empty() {
				if err := out.Data(ev.Content); err != nil {
					t.abandoned = true
					drain(events)
					return stateDone
				}
			}
		case llm.EventReasoning:
			t.bufferedReasoning += ev.Content
		case llm.EventToolCallFragment:
			if len(t.req.Images) == 0 {
				assembler.Add(ev.Fragment)
			}
		case llm.EventError:
			t.errMessage = "An error occurred: " + ev.Content
			drain(events)
			return stateError
		case llm.EventDone:
		}
	}

	t.toolCalls = assembler.Finalize()
	if len(t.toolCalls) > 0 {
		return stateToolPending
	}
	return stateDirectDone
}

// runDirectDone finishes a turn the model answered without a tool call.
func (s *ChatService) runDirectDone(t *chatTurn, out StreamEmitter) relayState {
	if t.bufferedReasoning != "" {
		t.allReasoning = t.bufferedReasoning
		if err := out.Event("reasoning", t.bufferedReasoning); err != nil {
			t.abandoned = true
			return stateDone
		}
	}
	t.finalAnswer = t.bufferedContent
	if err := out.Done(); err != nil {
		t.abandoned = true
		return stateDone
	}
	return statePersist
}

// runToolPending flushes first-pass reasoning and extracts the search query
// from the first finalized tool call. Only the first call is ever executed;
// additional calls in the same pass are ignored.
func (s *ChatService) runToolPending(t *chatTurn, out StreamEmitter) relayState {
	if t.bufferedReasoning != "" {
		t.allReasoning = t.bufferedReasoning
		if err := out.Event("reasoning", t.bufferedReasoning); err != nil {
			t.abandoned = true
			return stateDone
		}
	}

	t.searchQuery = t.req.Message
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(t.toolCalls[0].Function.Arguments), &args); err == nil && args.Query != "" {
		t.searchQuery = args.Query
	} else if err != nil {
		log.Printf("[ChatService] Could not parse tool arguments, falling back to raw message: %v", err)
	}

	log.Printf("[ChatService] AI decided to search for: %q", t.searchQuery)
	return stateSearching
}

// runSearching invokes the web search and announces sources, if any, before
// the second pass starts.
func (s *ChatService) runSearching(ctx context.Context, t *chatTurn, out StreamEmitter) relayState {
	t.sources, t.searchContext = s.search.Search(ctx, t.searchQuery)
	if len(t.sources) > 0 {
		if err := out.Event("sources", t.sources); err != nil {
			t.abandoned = true
			return stateDone
		}
	}
	return stateSecondPass
}

// runSecondPass injects the tool result into the message list and streams
// the final completion with tool calling disabled so a second call cannot
// occur. Content deltas are forwarded live; reasoning is buffered and
// emitted once at the end of the pass.
func (s *ChatService) runSecondPass(ctx context.Context, t *chatTurn, out StreamEmitter) relayState {
	assistant := llm.Message{Role: "assistant", Content: nil, ToolCalls: t.toolCalls}
	if t.bufferedReasoning != "" {
		assistant.Reasoning = t.bufferedReasoning
	}
	t.messages = append(t.messages, assistant)
	t.messages = append(t.messages, llm.Message{
		Role:       "tool",
		Content:    t.searchContext,
		ToolCallID: t.toolCalls[0].ID,
	})
	t.messages = append(t.messages, llm.Message{
		Role:    "user",
		Content: fmt.Sprintf("Based on the provided web search results, please give a comprehensive answer to my original question: '%s'", t.req.Message),
	})

	events := t.provider.StreamCompletion(ctx, llm.CompletionRequest{
		Model:       t.model,
		Messages:    t.messages,
		ToolChoice:  "none",
		Temperature: 0.7,
		MaxTokens:   2000,
	})

	for ev := range events {
		switch ev.Kind {
		case llm.EventContent:
			t.finalAnswer += ev.Content
			if err := out.Data(ev.Content); err != nil {
				t.abandoned = true
				drain(events)
				return stateDone
			}
		case llm.EventReasoning:
			t.secondReasoning += ev.Content
		case llm.EventError:
			t.errMessage = "An error occurred: " + ev.Content
			drain(events)
			return stateError
		case llm.EventDone:
		}
	}

	if t.secondReasoning != "" {
		if t.allReasoning != "" {
			t.allReasoning += "\n\n---\n\n" + t.secondReasoning
		} else {
			t.allReasoning = t.secondReasoning
		}
		if err := out.Event("reasoning", t.secondReasoning); err != nil {
			t.abandoned = true
			return stateDone
		}
	}

	if err := out.Done(); err != nil {
		t.abandoned = true
		return stateDone
	}
	return statePersist
}

// runPersist saves the completed turn. The stream has already ended with the
// [DONE] sentinel, so failures here are logged and never surfaced. Abandoned
// turns (client disconnect) and empty answers are not persisted.
func (s *ChatService) runPersist(ctx context.Context, t *chatTurn) relayState {
	if t.abandoned || t.finalAnswer == "" {
		return stateDone
	}

	// The client may close the connection as soon as [DONE] arrives, which
	// cancels the request context; persistence must not be lost to that.
	persistCtx := context.WithoutCancel(ctx)

	userRecord := store.MessageRecord{Sender: "user", Content: t.req.Message}
	if len(t.req.Images) > 0 {
		userRecord.HasImage = true
		userRecord.ImageURLs = s.uploadAttachments(persistCtx, t)
	}

	assistantRecord := store.MessageRecord{Sender: "ai", Content: t.finalAnswer}
	if t.allReasoning != "" {
		reasoning := t.allReasoning
		assistantRecord.Reasoning = &reasoning
	}
	if len(t.sources) > 0 {
		encoded, err := json.Marshal(t.sources)
		if err == nil {
			assistantRecord.Sources = encoded
		} else {
			log.Printf("ERROR [ChatService] Failed to encode sources for conversation %s: %v", t.conversationID, err)
		}
	}

	err := s.store.InsertMessagePair(persistCtx, store.InsertMessagePairParams{
		ConversationID:   t.conversationID,
		UserMessage:      userRecord,
		AssistantMessage: assistantRecord,
	})
	if err != nil {
		log.Printf("ERROR [ChatService] Failed to save conversation turn for %s: %v", t.conversationID, err)
		return stateDone
	}

	log.Printf("[ChatService] Conversation turn saved for %s", t.conversationID)
	return stateDone
}

// runError reports the failure as one data frame followed by the terminal
// sentinel. Nothing is persisted on this path.
func (s *ChatService) runError(t *chatTurn, out StreamEmitter) relayState {
	if err := out.Data(t.errMessage); err != nil {
		t.abandoned = true
		return stateDone
	}
	if err := out.Done(); err != nil {
		t.abandoned = true
	}
	return stateDone
}

// uploadAttachments uploads each attachment and collects public URLs.
// Per-attachment failures are skipped, not fatal.
func (s *ChatService) uploadAttachments(ctx context.Context, t *chatTurn) []string {
	if s.uploads == nil {
		return nil
	}
	urls := make([]string, 0, len(t.req.Images))
	for _, img := range t.req.Images {
		raw, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			log.Printf("ERROR [ChatService] Failed to decode image %s: %v", img.Filename, err)
			continue
		}
		objectPath := fmt.Sprintf("%s/%d_%s", t.userID, time.Now().UnixNano(), storage.SanitizeFilename(img.Filename))
		url, err := s.uploads.UploadImage(ctx, objectPath, raw, img.MimeType)
		if err != nil {
			log.Printf("ERROR [ChatService] Failed to upload image %s: %v", img.Filename, err)
			continue
		}
		urls = append(urls, url)
	}
	return urls
}

// buildInitialMessages assembles [system, ...history, user]. The user turn
// is multi-part only when images are attached: the text part first, then one
// image part per attachment in attachment order.
func buildInitialMessages(req models.ChatRequest) []llm.Message {
	messages := make([]llm.Message, 0, len(req.History)+2)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	for _, turn := range req.History {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: userContent(req)})
	return messages
}

func userContent(req models.ChatRequest) any {
	if len(req.Images) == 0 {
		return req.Message
	}
	parts := make([]llm.ContentPart, 0, len(req.Images)+1)
	if req.Message != "" {
		parts = append(parts, llm.ContentPart{Type: "text", Text: req.Message})
	}
	for _, img := range req.Images {
		parts = append(parts, llm.ContentPart{
			Type: "image_url",
			ImageURL: &llm.ImageURL{
				URL:    fmt.Sprintf("data:%s;base64,%s", img.MimeType, img.Data),
				Detail: "auto",
			},
		})
	}
	return parts
}

// truncateTitle clips the message to a rune-safe conversation title.
func truncateTitle(message string, max int) string {
	runes := []rune(message)
	if len(runes) <= max {
		return message
	}
	return string(runes[:max])
}

// drain consumes any remaining events so the provider goroutine can exit.
func drain(events <-chan llm.StreamEvent) {
	for range events {
	}
}
