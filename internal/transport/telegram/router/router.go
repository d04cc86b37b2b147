// Package router turns transport updates into handler calls: slash commands,
// inline-button callbacks ("scope:action:payload") and free text. Handlers run
// on a bounded worker pool behind a middleware chain.
package router

import (
	"context"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	rtsup "habitbot/internal/runtime/supervisor"
	kit "habitbot/internal/transport"
	logx "habitbot/pkg/logx"
	"habitbot/pkg/tgui"
)

type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Timeout     time.Duration // optional per-command override
	Handle      HandlerFunc
}

type CallbackHandlerFunc func(ctx context.Context, req *Request, payload string) error

type CallbackRoute struct {
	Scope   string
	Action  string
	Timeout time.Duration
	Handle  CallbackHandlerFunc
}

type Request struct {
	Update  kit.Update
	Chat    kit.ChatTarget
	From    kit.User
	Command string // command name, "text", or "cb:scope:action"
	Args    []string
	// Text is everything after the command word, or the whole message for
	// free text.
	Text    string
	Payload string // callback payload
	// Message is the message a callback button belongs to.
	Message kit.MessageRef
	ReqID   string

	Adapter kit.Adapter
	Logger  logx.Logger
}

// Reply sends msg to the request's chat.
func (r *Request) Reply(ctx context.Context, msg tgui.Message) error {
	_, err := msg.Send(ctx, r.Adapter, r.Chat)
	return err
}

// ReplyText sends plain text to the request's chat.
func (r *Request) ReplyText(ctx context.Context, text string) error {
	_, err := r.Adapter.SendText(ctx, r.Chat, text, &kit.SendOptions{DisablePreview: true})
	return err
}

type Options struct {
	Workers        int
	QueueSize      int
	DefaultTimeout time.Duration
}

type Router struct {
	log     logx.Logger
	adapter kit.Adapter
	opts    Options

	mu        sync.RWMutex
	commands  map[string]*Command // name and aliases
	ordered   []Command
	callbacks map[string]map[string]CallbackRoute // scope -> action -> route
	text      HandlerFunc
	mws       []Middleware

	jobs chan func()
}

func New(log logx.Logger, adapter kit.Adapter, opts Options) *Router {
	if opts.Workers <= 0 {
		opts.Workers = max(2, runtime.NumCPU())
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = 30 * time.Second
	}
	return &Router{
		log:       log.With(logx.String("comp", "telegram.router")),
		adapter:   adapter,
		opts:      opts,
		commands:  map[string]*Command{},
		callbacks: map[string]map[string]CallbackRoute{},
		jobs:      make(chan func(), opts.QueueSize),
	}
}

// Use appends middleware that runs inside the built-in recover, log and
// timeout middleware, in the order given.
func (r *Router) Use(mw ...Middleware) {
	r.mu.Lock()
	r.mws = append(r.mws, mw...)
	r.mu.Unlock()
}

// SetRegistry replaces the routing table. text, when set, receives messages
// that are not commands. /help is always injected.
func (r *Router) SetRegistry(cmds []Command, cbs []CallbackRoute, text HandlerFunc) {
	cmds = append(append([]Command(nil), cmds...), Command{
		Name:        "help",
		Aliases:     []string{"h"},
		Description: "список команд",
		Usage:       "/help [команда]",
		Handle: func(ctx context.Context, req *Request) error {
			_, err := req.Adapter.SendText(ctx, req.Chat, r.helpText(req.Args), &kit.SendOptions{DisablePreview: true, ParseMode: "HTML"})
			return err
		},
	})

	byName := map[string]*Command{}
	ordered := make([]Command, 0, len(cmds))
	for _, c := range cmds {
		name := sanitizeTelegramCommand(c.Name)
		if name == "" || c.Handle == nil {
			continue
		}
		cc := c
		cc.Name = name
		ordered = append(ordered, cc)
		byName[name] = &cc
		for _, a := range c.Aliases {
			if sa := sanitizeTelegramCommand(a); sa != "" {
				if _, exists := byName[sa]; !exists {
					byName[sa] = &cc
				}
			}
		}
	}

	cb := map[string]map[string]CallbackRoute{}
	for _, rt := range cbs {
		s, a := strings.TrimSpace(rt.Scope), strings.TrimSpace(rt.Action)
		if s == "" || a == "" || rt.Handle == nil {
			continue
		}
		if cb[s] == nil {
			cb[s] = map[string]CallbackRoute{}
		}
		cb[s][a] = rt
	}

	r.mu.Lock()
	r.commands = byName
	r.ordered = ordered
	r.callbacks = cb
	r.text = text
	r.mu.Unlock()
}

// PublishMenu pushes the command list to the adapter when it supports it.
func (r *Router) PublishMenu(ctx context.Context) error {
	up, ok := r.adapter.(kit.CommandMenuUpdater)
	if !ok {
		return nil
	}
	r.mu.RLock()
	menu := buildMenuCommands(r.ordered)
	r.mu.RUnlock()
	return up.UpdateMenuCommands(ctx, menu)
}

// DispatchLoop routes updates until ctx is done or updates is closed.
func (r *Router) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	sup := rtsup.New(ctx, rtsup.WithLogger(r.log))
	r.log.Info("dispatcher started", logx.Int("workers", r.opts.Workers), logx.Int("job_queue_cap", cap(r.jobs)))

	for i := 0; i < r.opts.Workers; i++ {
		idx := i
		sup.GoRestart("command.worker."+strconv.Itoa(idx), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case job := <-r.jobs:
					r.runJob(idx, job)
				}
			}
		}, rtsup.WithRestartBackoff(200*time.Millisecond, 5*time.Second))
	}

	defer func() {
		sup.Cancel()
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Wait(wctx)
		cancel()
		r.log.Info("dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			r.Route(ctx, up)
		}
	}
}

func (r *Router) runJob(worker int, job func()) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("panic in command job", logx.Int("worker", worker), logx.Any("panic", p), logx.Stack(string(debug.Stack())))
		}
	}()
	job()
}

func (r *Router) tryEnqueue(fn func()) bool {
	select {
	case r.jobs <- fn:
		return true
	default:
		return false
	}
}

// Route builds a request for one update and queues its handler.
func (r *Router) Route(ctx context.Context, up kit.Update) {
	switch up.Kind {
	case kit.UpdateMessage:
		r.routeMessage(ctx, up)
	case kit.UpdateCallback:
		r.routeCallback(ctx, up)
	}
}

func (r *Router) newRequest(up kit.Update, chat kit.ChatTarget, from kit.User, command string) *Request {
	rid := uuid.NewString()
	return &Request{
		Update:  up,
		Chat:    chat,
		From:    from,
		Command: command,
		ReqID:   rid,
		Adapter: r.adapter,
		Logger: r.log.With(
			logx.String("rid", rid),
			logx.Int64("chat_id", chat.ChatID),
			logx.UserID(from.ID),
			logx.String("cmd", command),
		),
	}
}

func (r *Router) chain(h HandlerFunc, timeout time.Duration) HandlerFunc {
	if timeout <= 0 {
		timeout = r.opts.DefaultTimeout
	}
	r.mu.RLock()
	mws := append([]Middleware{MWPanicRecover(r.log), MWRequestLog(r.log), MWTimeout(timeout)}, r.mws...)
	r.mu.RUnlock()
	return Chain(h, mws...)
}

func (r *Router) routeMessage(ctx context.Context, up kit.Update) {
	msg := up.Message
	if msg == nil {
		return
	}
	chat := kit.ChatTarget{ChatID: msg.ChatID}
	text := strings.TrimSpace(msg.Text)

	if !strings.HasPrefix(text, "/") {
		r.mu.RLock()
		h := r.text
		r.mu.RUnlock()
		if h == nil || text == "" {
			return
		}
		req := r.newRequest(up, chat, msg.From, "text")
		req.Text = text
		r.enqueue(ctx, req, r.chain(h, 0))
		return
	}

	word, rest, _ := strings.Cut(text[1:], " ")
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}
	word = strings.ToLower(word)

	r.mu.RLock()
	cmd, ok := r.commands[word]
	r.mu.RUnlock()
	if !ok {
		_, _ = r.adapter.SendText(ctx, chat, "Неизвестная команда. Список команд: /help", nil)
		return
	}

	req := r.newRequest(up, chat, msg.From, cmd.Name)
	req.Text = strings.TrimSpace(rest)
	req.Args = strings.Fields(rest)
	r.enqueue(ctx, req, r.chain(cmd.Handle, cmd.Timeout))
}

func (r *Router) enqueue(ctx context.Context, req *Request, h HandlerFunc) {
	if !r.tryEnqueue(func() { _ = h(ctx, req) }) {
		_, _ = r.adapter.SendText(ctx, req.Chat, "Бот занят, попробуйте ещё раз.", nil)
	}
}

func (r *Router) routeCallback(ctx context.Context, up kit.Update) {
	cb := up.Callback
	if cb == nil {
		return
	}
	scope, action, payload, ok := tgui.ParseData(cb.Data)
	if !ok {
		return
	}

	r.mu.RLock()
	route, ok := r.callbacks[scope][action]
	r.mu.RUnlock()
	if !ok {
		_ = r.adapter.AnswerCallback(ctx, cb.ID, "")
		return
	}

	req := r.newRequest(up, kit.ChatTarget{ChatID: cb.ChatID}, cb.From, "cb:"+scope+":"+action)
	req.Payload = payload
	req.Message = kit.MessageRef{ChatID: cb.ChatID, MessageID: cb.MessageID}

	h := r.chain(func(c context.Context, rq *Request) error { return route.Handle(c, rq, payload) }, route.Timeout)
	if !r.tryEnqueue(func() {
		_ = h(ctx, req)
		// Stop the button's loading spinner.
		_ = r.adapter.AnswerCallback(ctx, cb.ID, "")
	}) {
		_ = r.adapter.AnswerCallback(ctx, cb.ID, "Бот занят")
	}
}
