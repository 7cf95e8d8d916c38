package transfer

import (
	"context"
	"net"
	"net/http"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

// Priority orders queued downloads: user plays beat prefetches.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityHigh
)

// CommandType tags a command to the transfer pool.
type CommandType int

const (
	CmdRequest CommandType = iota
	CmdCancel
	CmdInvalidate
	CmdClearAll
	CmdPurgeNotBr
)

// Command is consumed by the pool's actor goroutine.
type Command struct {
	Type     CommandType
	Token    uint64 // 0 = fire-and-forget (no reply expected)
	Key      Key
	URL      string
	Title    string
	Priority Priority
	Br       int64
	Keep     string // path never deleted by ClearAll/PurgeNotBr
}

// EventType tags a reply from the pool.
type EventType int

const (
	EvtReady EventType = iota
	EvtFailed
	EvtCacheCleared
)

// Event is emitted to the pool's single consumer (the audio engine).
type Event struct {
	Type    EventType
	Token   uint64
	Key     Key
	Path    string
	Message string
	Files   int
	Bytes   int64
}

// Config bounds the pool's HTTP and retry behaviour.
type Config struct {
	Concurrency  int // 0 means runtime.NumCPU()
	Retries      int
	BackoffMs    int64
	BackoffMaxMs int64
	TimeoutSecs  int
	ConnectSecs  int
}

type job struct {
	url      string
	title    string
	waiters  []uint64
	priority Priority
	seq      uint64
	inFlight bool
}

type result struct {
	key     Key
	tmpPath string
	err     error
}

// Pool serves (song, br) keys from the on-disk cache, downloading on
// miss with bounded concurrency. Concurrent requests for the same key
// trigger exactly one download; all waiters get the same outcome.
type Pool struct {
	cmds    chan Command
	events  chan Event
	results chan result

	cache  *Cache
	client *http.Client
	cfg    Config

	jobs    map[Key]*job
	queued  []Key // keys with a job but no download slot yet
	slots   int
	nextSeq uint64

	log *logrus.Entry
}

// NewPool creates a transfer pool over cache.
func NewPool(cache *Cache, cfg Config, log *logrus.Entry) *Pool {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	dialer := &net.Dialer{Timeout: time.Duration(cfg.ConnectSecs) * time.Second}
	client := &http.Client{
		Timeout: time.Duration(cfg.TimeoutSecs) * time.Second,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			MaxIdleConnsPerHost: cfg.Concurrency,
		},
	}
	return &Pool{
		cmds:    make(chan Command, 32),
		events:  make(chan Event, 32),
		results: make(chan result, cfg.Concurrency),
		cache:   cache,
		client:  client,
		cfg:     cfg,
		jobs:    make(map[Key]*job),
		slots:   cfg.Concurrency,
		log:     log,
	}
}

// Commands returns the pool's command channel.
func (p *Pool) Commands() chan<- Command {
	return p.cmds
}

// Events returns the pool's event channel.
func (p *Pool) Events() <-chan Event {
	return p.events
}

// Run is the pool's actor loop. The cache and the waiters map are only
// touched here; download goroutines report back via the results channel.
func (p *Pool) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.drain(ctx)
			return
		case cmd := <-p.cmds:
			p.handleCommand(ctx, cmd)
		case res := <-p.results:
			p.handleResult(ctx, res)
		}
	}
}

// drain lets in-flight downloads finish with a bounded deadline, then
// persists the index.
func (p *Pool) drain(ctx context.Context) {
	deadline := time.After(10 * time.Second)
	for p.slots < p.cfg.Concurrency {
		select {
		case res := <-p.results:
			p.handleResult(ctx, res)
		case <-deadline:
			p.log.Warn("transfer drain deadline hit, abandoning in-flight downloads")
			if err := p.cache.Persist(); err != nil {
				p.log.WithError(err).Warn("persist cache index failed")
			}
			return
		}
	}
	if err := p.cache.Persist(); err != nil {
		p.log.WithError(err).Warn("persist cache index failed")
	}
}

func (p *Pool) handleCommand(ctx context.Context, cmd Command) {
	switch cmd.Type {
	case CmdRequest:
		p.request(ctx, cmd)
	case CmdCancel:
		// Drop the waiter; the download itself is left to complete so
		// the cache stays warm.
		if j, ok := p.jobs[cmd.Key]; ok {
			for i, tok := range j.waiters {
				if tok == cmd.Token {
					j.waiters = append(j.waiters[:i], j.waiters[i+1:]...)
					break
				}
			}
		}
	case CmdInvalidate:
		p.cache.Invalidate(cmd.Key)
	case CmdClearAll:
		files, bytes := p.cache.ClearAll(cmd.Keep)
		p.emit(Event{Type: EvtCacheCleared, Files: files, Bytes: bytes})
	case CmdPurgeNotBr:
		files, bytes := p.cache.PurgeNotBr(cmd.Br, cmd.Keep)
		p.log.WithFields(logrus.Fields{"br": cmd.Br, "files": files, "bytes": bytes}).
			Info("purged cache entries with other bitrates")
	}
}

func (p *Pool) request(ctx context.Context, cmd Command) {
	if path, ok := p.cache.Lookup(cmd.Key); ok {
		if cmd.Token != 0 {
			p.emit(Event{Type: EvtReady, Token: cmd.Token, Key: cmd.Key, Path: path})
		}
		return
	}

	if j, ok := p.jobs[cmd.Key]; ok {
		// Coalesce: one download serves every waiter for the key.
		if cmd.Token != 0 {
			j.waiters = append(j.waiters, cmd.Token)
		}
		if cmd.Priority > j.priority {
			j.priority = cmd.Priority
		}
		return
	}

	p.nextSeq++
	j := &job{
		url:      cmd.URL,
		title:    cmd.Title,
		priority: cmd.Priority,
		seq:      p.nextSeq,
	}
	if cmd.Token != 0 {
		j.waiters = append(j.waiters, cmd.Token)
	}
	p.jobs[cmd.Key] = j
	p.queued = append(p.queued, cmd.Key)
	p.startQueued(ctx)
}

// startQueued starts downloads while slots are free, high priority
// first, FIFO within a priority. Nothing new starts once shutdown has
// begun.
func (p *Pool) startQueued(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	for p.slots > 0 {
		best := -1
		for i, key := range p.queued {
			j := p.jobs[key]
			if j == nil || j.inFlight {
				continue
			}
			if best == -1 {
				best = i
				continue
			}
			b := p.jobs[p.queued[best]]
			if j.priority > b.priority || (j.priority == b.priority && j.seq < b.seq) {
				best = i
			}
		}
		if best == -1 {
			return
		}

		key := p.queued[best]
		p.queued = append(p.queued[:best], p.queued[best+1:]...)
		j := p.jobs[key]
		j.inFlight = true
		p.slots--

		// Downloads do not inherit ctx's cancellation, so shutdown does
		// not abort them; drain bounds how long they are awaited.
		dlCtx := context.WithoutCancel(ctx)
		go func(key Key, url, title string) {
			tmpPath, err := p.download(dlCtx, url, title)
			p.results <- result{key: key, tmpPath: tmpPath, err: err}
		}(key, j.url, j.title)
	}
}

func (p *Pool) handleResult(ctx context.Context, res result) {
	p.slots++
	j := p.jobs[res.key]
	delete(p.jobs, res.key)

	if j != nil {
		if res.err != nil {
			p.log.WithError(res.err).WithField("key", res.key).Warn("download failed")
			for _, tok := range j.waiters {
				p.emit(Event{Type: EvtFailed, Token: tok, Key: res.key, Message: res.err.Error()})
			}
		} else {
			path, err := p.cache.Promote(res.key, res.tmpPath)
			if err != nil {
				p.log.WithError(err).WithField("key", res.key).Warn("cache promote failed")
				for _, tok := range j.waiters {
					p.emit(Event{Type: EvtFailed, Token: tok, Key: res.key, Message: err.Error()})
				}
			} else {
				for _, tok := range j.waiters {
					p.emit(Event{Type: EvtReady, Token: tok, Key: res.key, Path: path})
				}
			}
		}
	}

	p.startQueued(ctx)
}

func (p *Pool) emit(evt Event) {
	select {
	case p.events <- evt:
	default:
		// A stalled consumer must not wedge the pool; the engine treats
		// a missing reply like a superseded token.
		p.log.WithField("type", evt.Type).Warn("transfer event dropped, consumer is slow")
	}
}
