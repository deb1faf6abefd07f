// Package pipeline runs the crawl: a producer walking the identifier space
// and a consumer persisting records, joined by a bounded queue.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/avasilkov/hltb-crawler/config"
	"github.com/avasilkov/hltb-crawler/fetch"
	"github.com/avasilkov/hltb-crawler/models"
	"github.com/avasilkov/hltb-crawler/parser"
)

// Fetcher retrieves one page by URL. Satisfied by *fetch.Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, fetch.Outcome)
}

// item is one terminal per-identifier outcome flowing producer → consumer.
// rec == nil with an empty errDetail is a miss (404, exhausted retries, or a
// page with nothing worth storing).
type item struct {
	id        int
	rec       *models.Record
	errDetail string
}

// Pipeline wires the producer and consumer around shared run state.
//
// State is mutated only by the consumer; the producer reads nothing but the
// stop signal, so the queue is the only synchronization required.
type Pipeline struct {
	cfg     *config.Config
	fetcher Fetcher
	writer  RecordWriter
	state   *State
	metrics *fetch.Metrics

	queue    chan item
	stop     chan struct{}
	stopOnce sync.Once
}

// New builds a pipeline over previously loaded state.
func New(cfg *config.Config, fetcher Fetcher, writer RecordWriter, state *State, metrics *fetch.Metrics) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		fetcher: fetcher,
		writer:  writer,
		state:   state,
		metrics: metrics,
		queue:   make(chan item, cfg.QueueDepth()),
		stop:    make(chan struct{}),
	}
}

// Run executes the crawl until the id range is exhausted, the miss threshold
// trips (unbounded mode), or ctx is canceled. The consumer always drains the
// queue before Run returns, so every fully assembled record is persisted and
// no partial one ever is.
func (p *Pipeline) Run(ctx context.Context) *models.RunSummary {
	summary := &models.RunSummary{StartTime: time.Now()}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.consume(summary)
	}()

	p.produce(ctx)
	close(p.queue) // sentinel: no more items
	wg.Wait()

	summary.EndTime = time.Now()
	return summary
}

func (p *Pipeline) produce(ctx context.Context) {
	endID := 0
	if !p.cfg.Unbounded {
		endID = p.state.NextID + p.cfg.Count
	}

	for id := p.state.NextID; ; id++ {
		if p.stopped() || ctx.Err() != nil {
			return
		}
		if endID > 0 && id >= endID {
			return
		}

		pageURL := p.cfg.URLFor(id)
		html, outcome := p.fetcher.Fetch(ctx, pageURL)
		if outcome != fetch.OK {
			p.send(ctx, item{id: id})
			continue
		}

		rec, err := parser.Assemble(id, pageURL, html, time.Now())
		if err != nil {
			// A malformed page is an error entry, never a crawl abort.
			p.send(ctx, item{id: id, errDetail: err.Error()})
			continue
		}
		p.send(ctx, item{id: id, rec: rec})
	}
}

// send blocks when the queue is full; that backpressure is what keeps the
// producer from running ahead of the store.
func (p *Pipeline) send(ctx context.Context, it item) {
	select {
	case p.queue <- it:
	case <-ctx.Done():
	}
}

func (p *Pipeline) consume(summary *models.RunSummary) {
	for it := range p.queue {
		summary.LastID = it.id

		if it.errDetail != "" {
			summary.Errors++
			p.metrics.IncOutcome("error")
			slog.Error("error", slog.Int("id", it.id), slog.String("detail", it.errDetail))
			continue
		}

		if it.rec == nil {
			p.state.misses++
			summary.Skipped++
			p.metrics.IncOutcome("skip")
			slog.Info("skip",
				slog.Int("id", it.id),
				slog.Int("streak", p.state.misses),
				slog.Int("threshold", p.cfg.MissThreshold),
			)
			if p.cfg.Unbounded && p.state.misses >= p.cfg.MissThreshold {
				summary.AutoStop = true
				p.requestStop(it.id)
			}
			continue
		}

		p.state.misses = 0

		if p.state.IsKnown(it.rec.ID) {
			summary.Duplicates++
			p.metrics.IncOutcome("skip_duplicate")
			slog.Info("skip duplicate", slog.Int("id", it.id))
			continue
		}

		if err := p.writer.Write(it.rec); err != nil {
			summary.Errors++
			p.metrics.IncOutcome("error")
			slog.Error("write record", slog.Int("id", it.id), slog.Any("error", err))
			continue
		}
		p.state.MarkKnown(it.rec.ID)
		summary.Stored++
		p.metrics.IncOutcome("ok")
		slog.Info("ok", slog.Int("id", it.id), slog.String("name", it.rec.Name))
	}
}

// requestStop sets the shared stop signal once; the producer observes it on
// its next iteration.
func (p *Pipeline) requestStop(id int) {
	p.stopOnce.Do(func() {
		slog.Info("auto-stop: miss threshold reached",
			slog.Int("id", id),
			slog.Int("threshold", p.cfg.MissThreshold),
		)
		close(p.stop)
	})
}

func (p *Pipeline) stopped() bool {
	select {
	case <-p.stop:
		return true
	default:
		return false
	}
}
