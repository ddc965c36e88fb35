// Package chat drives one send interaction end to end: validate, show
// the user message, call the backend or answer locally, persist.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/patrickmn/go-cache"

	"github.com/joss/scanchat/internal/analysis"
	"github.com/joss/scanchat/internal/api"
	"github.com/joss/scanchat/internal/domain"
	"github.com/joss/scanchat/internal/logging"
	"github.com/joss/scanchat/internal/metrics"
	"github.com/joss/scanchat/internal/session"
	"github.com/joss/scanchat/internal/storage"
)

// ErrSendInProgress rejects a send while another is pending on the same chat.
var ErrSendInProgress = errors.New("a message is already being sent in this chat")

const (
	// NoReplyText is shown when the chat response carries no known field.
	NoReplyText = "죄송합니다. 응답을 받지 못했습니다."

	viewTTL = 10 * time.Minute
)

// FileReplyText is the reply that carries an analysis result.
func FileReplyText(name string) string {
	return fmt.Sprintf("네, 다음은 %s의 악성 코드를 분석한 결과입니다:", name)
}

// ErrorReplyText embeds the failure reason in an error bubble.
func ErrorReplyText(err error) string {
	return "오류가 발생했습니다: " + api.UserMessage(err)
}

// File is an upload.
type File struct {
	Name   string
	Size   int64
	Reader io.Reader
}

// Input is what the user submitted.
type Input struct {
	Text string
	File *File
}

// Outcome describes a completed exchange.
type Outcome struct {
	Session *domain.ChatSession
	Reply   domain.Message
	// View is the analysis view the reply refers to, nil when none.
	View *analysis.View
	// Local is set when the reply was answered without a remote call.
	Local bool
	// Err is the remote failure behind an error reply.
	Err error
	// SaveErr is set when the exchange could not be stored. Session then
	// holds an unsaved copy of the thread.
	SaveErr error
}

// Observer sees the in-flight thread, loading message included.
type Observer func(chatID string, thread []domain.Message)

// Orchestrator sends messages and files.
type Orchestrator struct {
	analyzer domain.Analyzer
	sessions *session.Manager
	validate *validator.Validate
	views    *cache.Cache
	observer Observer
	now      func() time.Time
	log      *logging.Logger
	metrics  *metrics.Metrics

	mu      sync.Mutex
	pending map[string]struct{}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithObserver(fn Observer) Option {
	return func(o *Orchestrator) { o.observer = fn }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New creates an Orchestrator over the backend and the session manager.
func New(analyzer domain.Analyzer, sessions *session.Manager, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		analyzer: analyzer,
		sessions: sessions,
		validate: newValidator(),
		views:    cache.New(viewTTL, 2*viewTTL),
		now:      time.Now,
		log:      logging.New("chat"),
		metrics:  metrics.Global(),
		pending:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Send runs one exchange. Remote failures do not return an error: they
// end as an error reply in the persisted thread and in Outcome.Err.
// An empty chatID starts a new session.
func (o *Orchestrator) Send(ctx context.Context, in Input, chatID string, authenticated bool) (*Outcome, error) {
	if err := validateInput(o.validate, in); err != nil {
		o.metrics.RecordRejected()
		return nil, err
	}

	if chatID != "" {
		if !o.acquire(chatID) {
			o.metrics.RecordRejected()
			return nil, ErrSendInProgress
		}
		defer o.release(chatID)
	}

	ctx, requestID := logging.EnsureRequestID(ctx)
	start := time.Now()

	existing := o.existing(ctx, chatID)
	now := o.clock()

	user := domain.NewUserMessage(userText(in), fileName(in), now)
	o.notify(chatID, existing, user, domain.NewLoading(now))

	var (
		out  = &Outcome{}
		opts session.UpsertOptions
	)

	switch {
	case in.File != nil:
		chatID = o.sendFile(ctx, in.File, chatID, out, &opts)
	default:
		if chatID == "" {
			chatID = session.NewChatID()
		}
		o.sendText(ctx, strings.TrimSpace(in.Text), in.Text, chatID, existing, out)
	}

	if out.Reply.Timestamp.IsZero() {
		out.Reply.Timestamp = o.clock()
	}

	sess, err := o.sessions.UpsertAll(ctx, chatID, []domain.Message{user, out.Reply}, opts)
	if err != nil {
		o.log.Warn("persist_failed", map[string]any{"chat_id": chatID, "request_id": requestID}, err)
		out.SaveErr = err
		if sess == nil {
			sess = unsaved(chatID, existing, now, user, out.Reply)
		}
	}
	if opts.AnalysisResult != nil {
		o.views.Delete(chatID)
	}
	out.Session = sess

	if o.observer != nil && sess != nil {
		o.observer(chatID, sess.Messages)
	}

	kind := metrics.SendText
	switch {
	case in.File != nil:
		kind = metrics.SendFile
	case out.Local:
		kind = metrics.SendLocal
	}
	o.metrics.RecordSend(kind, out.Err == nil, time.Since(start))

	o.log.TimedEvent("send", start, map[string]any{
		"chat_id":       chatID,
		"request_id":    requestID,
		"file":          in.File != nil,
		"local":         out.Local,
		"failed":        out.Err != nil,
		"authenticated": authenticated,
	})
	return out, nil
}

// sendFile uploads and returns the chat id to persist under.
func (o *Orchestrator) sendFile(ctx context.Context, f *File, chatID string, out *Outcome, opts *session.UpsertOptions) string {
	raw, err := o.analyzer.Upload(ctx, f.Name, f.Reader)

	var decodeErr *api.DecodeError
	switch {
	case errors.As(err, &decodeErr):
		// not JSON: keep the body as a JSON string so it still renders raw
		o.log.Warn("upload_decode_failed", map[string]any{"file": f.Name}, err)
		raw, _ = json.Marshal(string(decodeErr.Body))
	case err != nil:
		out.Err = err
		out.Reply = domain.NewErrorReply(ErrorReplyText(err), o.clock())
		if chatID == "" {
			chatID = session.NewChatID()
		}
		return chatID
	}

	view, ok := analysis.Normalize(raw)
	if ok {
		out.View = view
		if chatID == "" && view.SessionID != nil && *view.SessionID != "" {
			chatID = *view.SessionID
		}
	}
	if chatID == "" {
		chatID = session.NewChatID()
	}

	reply := domain.NewReply(FileReplyText(f.Name), o.clock())
	reply.Attachment = raw
	out.Reply = reply

	opts.File = &session.FileHint{Name: f.Name, Size: f.Size}
	opts.AnalysisResult = raw
	return chatID
}

func (o *Orchestrator) sendText(ctx context.Context, trimmed, text, chatID string, existing *domain.ChatSession, out *Outcome) {
	if view := o.viewFor(chatID, existing); analysis.CheckVariableExists(trimmed, view) {
		val, _ := analysis.GetVariableValue(trimmed, view)
		text := "null"
		if val != nil {
			text = fmt.Sprint(val)
		}
		out.Reply = domain.NewReply(text, o.clock())
		out.View = view
		out.Local = true
		return
	}

	raw, err := o.analyzer.Chat(ctx, chatID, text)

	var decodeErr *api.DecodeError
	switch {
	case errors.As(err, &decodeErr):
		body := strings.TrimSpace(string(decodeErr.Body))
		if body == "" {
			body = NoReplyText
		}
		out.Reply = domain.NewReply(body, o.clock())
	case err != nil:
		out.Err = err
		out.Reply = domain.NewErrorReply(ErrorReplyText(err), o.clock())
	default:
		out.Reply = domain.NewReply(ReplyText(raw), o.clock())
	}
}

// ReplyText picks the first present of answer, response, message.
func ReplyText(raw []byte) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return NoReplyText
	}
	switch t := v.(type) {
	case string:
		if t != "" {
			return t
		}
	case map[string]any:
		for _, key := range []string{"answer", "response", "message"} {
			val, ok := t[key]
			if !ok || val == nil {
				continue
			}
			if s, ok := val.(string); ok {
				return s
			}
			data, err := json.MarshalIndent(val, "", "  ")
			if err == nil {
				return string(data)
			}
		}
	}
	return NoReplyText
}

// View returns the analysis view of a stored session, memoized per chat.
func (o *Orchestrator) View(ctx context.Context, chatID string) *analysis.View {
	return o.viewFor(chatID, o.existing(ctx, chatID))
}

func (o *Orchestrator) viewFor(chatID string, sess *domain.ChatSession) *analysis.View {
	if sess == nil || len(sess.AnalysisResult) == 0 {
		return nil
	}
	if cached, ok := o.views.Get(chatID); ok {
		if m := cached.(*memoView); bytes.Equal(m.raw, sess.AnalysisResult) {
			return m.view
		}
	}
	view, ok := analysis.Normalize(sess.AnalysisResult)
	if !ok {
		o.views.Delete(chatID)
		return nil
	}
	raw := append([]byte(nil), sess.AnalysisResult...)
	o.views.SetDefault(chatID, &memoView{raw: raw, view: view})
	return view
}

// memoView pairs a normalized view with the stored result it came from.
// Imports and merges can replace the result behind the memo's back.
type memoView struct {
	raw  []byte
	view *analysis.View
}

func (o *Orchestrator) existing(ctx context.Context, chatID string) *domain.ChatSession {
	if chatID == "" {
		return nil
	}
	sess, err := o.sessions.Get(ctx, chatID)
	if err != nil {
		if !storage.IsNotFound(err) {
			o.log.Warn("session_lookup_failed", map[string]any{"chat_id": chatID}, err)
		}
		return nil
	}
	return sess
}

// unsaved builds the thread the caller would have seen had the write
// gone through.
func unsaved(chatID string, existing *domain.ChatSession, now time.Time, msgs ...domain.Message) *domain.ChatSession {
	sess := &domain.ChatSession{ChatID: chatID, CreatedAt: now}
	if existing != nil {
		sess = existing.Persistable()
	}
	sess.Append(now, msgs...)
	return sess
}

func (o *Orchestrator) notify(chatID string, existing *domain.ChatSession, msgs ...domain.Message) {
	if o.observer == nil {
		return
	}
	var thread []domain.Message
	if existing != nil {
		thread = append(thread, existing.Messages...)
	}
	thread = append(thread, msgs...)
	o.observer(chatID, thread)
}

func (o *Orchestrator) acquire(chatID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.pending[chatID]; busy {
		return false
	}
	o.pending[chatID] = struct{}{}
	return true
}

func (o *Orchestrator) release(chatID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.pending, chatID)
}

func (o *Orchestrator) clock() time.Time {
	return o.now().Round(0)
}

func userText(in Input) string {
	switch {
	case in.File != nil && strings.TrimSpace(in.Text) != "":
		return in.File.Name + "\n" + in.Text
	case in.File != nil:
		return in.File.Name
	default:
		return in.Text
	}
}

func fileName(in Input) string {
	if in.File == nil {
		return ""
	}
	return in.File.Name
}
