// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rexcorp1/rexpro-ai/internal/config"
	"github.com/rexcorp1/rexpro-ai/internal/genai"
	"github.com/rexcorp1/rexpro-ai/internal/model"
	"github.com/rexcorp1/rexpro-ai/internal/project"
	"github.com/rexcorp1/rexpro-ai/internal/response"
	"github.com/rexcorp1/rexpro-ai/internal/router"
	"github.com/rexcorp1/rexpro-ai/internal/session"
)

// StoppedNotice is appended to the partial text when the user aborts a
// send.
const StoppedNotice = "Response stopped by user."

// ErrorNotice replaces the trailing message content when a send fails.
// Fixed text; the underlying error travels on the Update and the Send
// return value, never into the transcript.
const ErrorNotice = "Something went wrong. Please try again."

// projectSystemPrompt is the output contract for project mode.
const projectSystemPrompt = `You are a project generator. Respond with a single JSON object and nothing else:
{"projectName": string, "explanation": string, "files": [{"path": string, "content": string}]}
Include every file that changed. Paths are relative, forward-slash separated.`

// Orchestrator errors.
var (
	// ErrBusy indicates a send is already in flight.
	ErrBusy = errors.New("a request is already in flight")

	// ErrEmptyPrompt indicates there was nothing to send.
	ErrEmptyPrompt = errors.New("nothing to send")
)

// Update is one progress event of a send. Content is the accumulated
// visible text so far; Done marks the terminal event.
type Update struct {
	SessionID string
	MessageID string
	Content   string
	Thinking  bool
	Done      bool
	Err       error
}

// UpdateFunc receives send progress. Called from the sending goroutine.
type UpdateFunc func(Update)

// Orchestrator drives sends end to end: session bookkeeping, the
// streaming read loop, and result application.
type Orchestrator struct {
	client    *genai.Client
	store     *session.Store
	selector  *router.Selector
	cfg       func() *config.Config
	cancelMgr *cancelManager

	mu      sync.Mutex
	loading bool
}

// New creates an orchestrator. cfg is called per send so hot-reloaded
// configuration takes effect without restart.
func New(client *genai.Client, store *session.Store, selector *router.Selector, cfg func() *config.Config) *Orchestrator {
	return &Orchestrator{
		client:    client,
		store:     store,
		selector:  selector,
		cfg:       cfg,
		cancelMgr: newCancelManager(),
	}
}

// Selector exposes the mode/toggle state for the UI.
func (o *Orchestrator) Selector() *router.Selector {
	return o.selector
}

// Store exposes the session store for the UI.
func (o *Orchestrator) Store() *session.Store {
	return o.store
}

// IsLoading reports whether a send is in flight.
func (o *Orchestrator) IsLoading() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loading
}

// Stop aborts the in-flight send, if any. Idempotent; returns false
// when nothing was running.
func (o *Orchestrator) Stop() bool {
	return o.cancelMgr.stop()
}

// beginSend claims the single-flight slot.
func (o *Orchestrator) beginSend() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.loading {
		return ErrBusy
	}
	o.loading = true
	return nil
}

func (o *Orchestrator) endSend() {
	o.mu.Lock()
	o.loading = false
	o.mu.Unlock()
	o.cancelMgr.clear()
}

// =============================================================================
// SEND
// =============================================================================

// Send runs one full exchange: it appends the user message and a
// placeholder, streams the response into the placeholder, and applies
// the post-processed result. Blocks until the send finishes; run it on
// its own goroutine when driving a UI. onUpdate may be nil.
func (o *Orchestrator) Send(ctx context.Context, prompt string, attachments []model.Attachment, onUpdate UpdateFunc) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" && len(attachments) == 0 {
		return ErrEmptyPrompt
	}
	if err := o.beginSend(); err != nil {
		return err
	}
	defer o.endSend()

	if onUpdate == nil {
		onUpdate = func(Update) {}
	}
	cfg := o.cfg()

	// The request is sealed before anything async starts; selector
	// changes made while streaming affect only the next send.
	req, err := o.selector.Build(prompt, attachments, router.Options{
		ThinkingBudgets:       cfg.Thinking.Budgets,
		DefaultThinkingBudget: cfg.Thinking.DefaultBudget,
		Temperature:           cfg.Temperature(),
		SystemPrompt:          cfg.Chat.SystemPrompt,
		ModelOverride:         o.selector.MediaModelOverride(),
		Image: router.ImageParams{
			Count:            cfg.Image.Count,
			NegativePrompt:   cfg.Image.NegativePrompt,
			Seed:             cfg.Image.Seed,
			AspectRatio:      cfg.Image.AspectRatio,
			PersonGeneration: cfg.Image.PersonGeneration,
		},
	})
	if err != nil {
		return err
	}

	sess := o.store.Active()
	if sess == nil {
		sess = o.store.Create(prompt)
	}

	user := model.NewUserMessage(prompt, req.Attachments)
	placeholder := model.NewModelPlaceholder(true)
	if err := o.store.Update(sess.ID, func(s *model.Session) error {
		s.AppendExchange(user, placeholder)
		return nil
	}); err != nil {
		return err
	}

	sendCtx := o.cancelMgr.begin(ctx)

	raw, partial, sendErr := o.dispatch(sendCtx, sess, req, placeholder.ID, onUpdate)
	if sendErr != nil {
		return o.failSend(sess.ID, placeholder.ID, partial, sendErr, onUpdate)
	}

	res := response.Finalize(req.Mode, raw, sess.Project, time.Now())

	// Streams normally report usage; when the metadata is missing, ask
	// the API for an exact count before falling back to the estimate.
	if res.TokenCount == 0 && (req.Mode == router.ModeChat || req.Mode == router.ModeProject) {
		contents := buildGenerateRequest(sess, req, cfg).Contents
		if res.Content != "" {
			contents = append(contents, genai.Content{Role: "model", Parts: []genai.Part{{Text: res.Content}}})
		}
		if n, err := o.client.CountTokens(sendCtx, req.ModelID, contents); err == nil {
			res.TokenCount = n
		}
	}

	if err := o.store.Update(sess.ID, func(s *model.Session) error {
		live := s.Message(placeholder.ID)
		if live == nil {
			return fmt.Errorf("placeholder %s vanished", placeholder.ID)
		}
		var proj *project.Project
		if res.FilesUpdated {
			proj = res.Project
		}
		live.Finalize(res.Content, res.Reasoning, res.Attachments, res.Citations, proj, res.FilesUpdated)
		if res.FilesUpdated {
			s.Project = res.Project
		}
		if res.TokenCount > 0 {
			live.TokenCount = res.TokenCount
			s.SetTokensUsed(s.TokensUsed + res.TokenCount)
		} else {
			s.SetTokensUsed(s.EstimateTokens())
		}
		return nil
	}); err != nil {
		return err
	}

	onUpdate(Update{
		SessionID: sess.ID,
		MessageID: placeholder.ID,
		Content:   res.Content,
		Done:      true,
	})
	return nil
}

// failSend turns an error into the placeholder's terminal state: the
// stopped notice for user aborts, the error text otherwise. The partial
// text survives either way.
func (o *Orchestrator) failSend(sessionID, messageID, partial string, sendErr error, onUpdate UpdateFunc) error {
	notice := ErrorNotice
	if genai.IsAborted(sendErr) {
		notice = StoppedNotice
	}

	content := notice
	if partial != "" {
		content = partial + "\n\n" + notice
	}

	updateErr := o.store.Update(sessionID, func(s *model.Session) error {
		live := s.Message(messageID)
		if live == nil {
			return nil
		}
		live.Finalize(content, "", nil, nil, nil, false)
		return nil
	})
	if updateErr != nil {
		return updateErr
	}

	onUpdate(Update{
		SessionID: sessionID,
		MessageID: messageID,
		Content:   content,
		Done:      true,
		Err:       sendErr,
	})
	if genai.IsAborted(sendErr) {
		return nil
	}
	return sendErr
}

// =============================================================================
// DISPATCH
// =============================================================================

// dispatch runs the mode-specific API call and returns the raw result
// plus whatever visible text had streamed when an error hit.
func (o *Orchestrator) dispatch(ctx context.Context, sess *model.Session, req router.Request, messageID string, onUpdate UpdateFunc) (response.Raw, string, error) {
	switch req.Mode {
	case router.ModeImage:
		return o.sendImage(ctx, req)
	case router.ModeVideo:
		return o.sendVideo(ctx, req)
	default:
		return o.streamChat(ctx, sess, req, messageID, onUpdate)
	}
}

func (o *Orchestrator) sendImage(ctx context.Context, req router.Request) (response.Raw, string, error) {
	if req.HasImageAttachment() {
		var inputs []genai.InlineData
		for _, att := range req.Attachments {
			if att.IsImage() {
				inputs = append(inputs, genai.InlineData{
					MimeType: att.MimeType,
					Data:     att.Base64Data(),
				})
			}
		}
		img, err := o.client.EditImage(ctx, req.ModelID, req.Prompt, inputs)
		if err != nil {
			return response.Raw{}, "", err
		}
		return response.Raw{Image: img}, "", nil
	}

	img, err := o.client.GenerateImage(ctx, req.ModelID, req.Prompt, &genai.ImageOptions{
		Count:            req.Image.Count,
		NegativePrompt:   req.Image.NegativePrompt,
		Seed:             req.Image.Seed,
		AspectRatio:      req.Image.AspectRatio,
		PersonGeneration: req.Image.PersonGeneration,
	})
	if err != nil {
		return response.Raw{}, "", err
	}
	return response.Raw{Image: img}, "", nil
}

func (o *Orchestrator) sendVideo(ctx context.Context, req router.Request) (response.Raw, string, error) {
	var seed *genai.InlineData
	for _, att := range req.Attachments {
		if att.IsImage() {
			seed = &genai.InlineData{
				MimeType: att.MimeType,
				Data:     att.Base64Data(),
			}
			break
		}
	}
	video, err := o.client.GenerateVideo(ctx, req.ModelID, req.Prompt, seed)
	if err != nil {
		return response.Raw{}, "", err
	}
	return response.Raw{Video: video}, "", nil
}

// streamChat drives the pull loop for the chat and project modes.
// Display flushes are throttled so a fast stream does not spin the UI.
func (o *Orchestrator) streamChat(ctx context.Context, sess *model.Session, req router.Request, messageID string, onUpdate UpdateFunc) (response.Raw, string, error) {
	cfg := o.cfg()

	stream, err := o.client.ChatStream(ctx, req.ModelID, buildGenerateRequest(sess, req, cfg))
	if err != nil {
		return response.Raw{}, "", err
	}
	defer stream.Close()

	interval := time.Duration(cfg.Chat.TypingIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	var raw response.Raw
	var text, thought strings.Builder

	// Only plain chat echoes incrementally. The project accumulator is
	// raw JSON, not user-presentable until finalization.
	echo := req.Mode == router.ModeChat

	flush := func() {
		content := text.String()
		_ = o.store.Update(sess.ID, func(s *model.Session) error {
			if live := s.Message(messageID); live != nil && live.IsThinking {
				live.SetContent(content)
			}
			return nil
		})
		onUpdate(Update{
			SessionID: sess.ID,
			MessageID: messageID,
			Content:   content,
			Thinking:  true,
		})
	}

	for {
		chunk, recvErr := stream.Recv()
		if recvErr == io.EOF {
			break
		}
		if recvErr != nil {
			return raw, text.String(), recvErr
		}

		text.WriteString(chunk.TextDelta)
		thought.WriteString(chunk.ThoughtDelta)
		raw.Grounding = append(raw.Grounding, chunk.GroundingChunks...)
		if chunk.Usage != nil {
			raw.Usage = chunk.Usage
		}

		if echo && chunk.TextDelta != "" && limiter.Allow() {
			flush()
		}
	}

	if echo {
		flush()
	}
	raw.Text = text.String()
	raw.Thought = thought.String()
	return raw, raw.Text, nil
}

// =============================================================================
// REQUEST ASSEMBLY
// =============================================================================

// buildGenerateRequest converts session history plus the sealed request
// into the wire shape.
func buildGenerateRequest(sess *model.Session, req router.Request, cfg *config.Config) *genai.GenerateRequest {
	history := sess.Messages
	if max := cfg.Chat.MaxHistoryMessages; max > 0 && len(history) > max {
		history = history[len(history)-max:]
	}

	var contents []genai.Content
	for _, msg := range history {
		if msg.IsThinking || msg.IsEmpty() {
			continue
		}
		contents = append(contents, messageToContent(msg))
	}
	contents = append(contents, genai.Content{
		Role:  "user",
		Parts: promptParts(req.Prompt, req.Attachments),
	})

	greq := &genai.GenerateRequest{
		Contents: contents,
		GenerationConfig: &genai.GenerationConfig{
			Temperature: req.Temperature,
		},
	}

	if req.ThinkingBudget != 0 {
		greq.GenerationConfig.ThinkingConfig = &genai.ThinkingConfig{
			ThinkingBudget:  req.ThinkingBudget,
			IncludeThoughts: true,
		}
	}

	system := req.SystemPrompt
	if req.Mode == router.ModeProject {
		system = strings.TrimSpace(system + "\n\n" + projectSystemPrompt)
		if sess.Project != nil && !sess.Project.IsEmpty() {
			system += "\n\nCurrent project files:\n" + sess.Project.RenderTree()
		}
	}
	if system != "" {
		greq.SystemInstruction = &genai.Content{Parts: []genai.Part{{Text: system}}}
	}

	if req.EnableSearch {
		greq.Tools = append(greq.Tools, genai.Tool{GoogleSearch: &struct{}{}})
	}
	if req.EnableCodeExecution {
		greq.Tools = append(greq.Tools, genai.Tool{CodeExecution: &struct{}{}})
	}
	return greq
}

func messageToContent(msg *model.Message) genai.Content {
	role := "user"
	if msg.Role == model.RoleModel {
		role = "model"
	}
	return genai.Content{Role: role, Parts: promptParts(msg.Content, msg.Attachments)}
}

func promptParts(text string, attachments []model.Attachment) []genai.Part {
	var parts []genai.Part
	if text != "" {
		parts = append(parts, genai.Part{Text: text})
	}
	for _, att := range attachments {
		data := att.Base64Data()
		if data == "" {
			continue
		}
		parts = append(parts, genai.Part{InlineData: &genai.InlineData{
			MimeType: att.MimeType,
			Data:     data,
		}})
	}
	if len(parts) == 0 {
		parts = append(parts, genai.Part{Text: text})
	}
	return parts
}
