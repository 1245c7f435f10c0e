package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"presentat/internal/eventloop"
	"presentat/internal/logger"
	"presentat/internal/markdown"
	"presentat/internal/models"
	"presentat/internal/services"
)

// PreviewPipeline runs rewrite + convert off the loop. Only the most recently
// dispatched request may deliver a result: dispatching cancels the request in
// flight and stale results are dropped on the loop.
type PreviewPipeline struct {
	converter services.Converter
	poster    eventloop.Poster
	logger    logger.Logger
	stats     Stats

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu       sync.Mutex
	seq      uint64
	inFlight context.CancelFunc
}

// NewPreviewPipeline creates a pipeline delivering through poster
func NewPreviewPipeline(converter services.Converter, poster eventloop.Poster, log logger.Logger) *PreviewPipeline {
	ctx, stop := context.WithCancel(context.Background())
	return &PreviewPipeline{
		converter: converter,
		poster:    poster,
		logger:    log,
		ctx:       ctx,
		stop:      stop,
	}
}

// Dispatch starts converting req and supersedes any earlier request.
// deliver runs on the loop, at most once, and only if req is still the latest.
func (p *PreviewPipeline) Dispatch(req models.ConversionRequest, deliver func(models.ConversionResult)) uint64 {
	p.mu.Lock()
	if p.ctx.Err() != nil {
		p.mu.Unlock()
		return 0
	}
	p.seq++
	req.Seq = p.seq
	if p.inFlight != nil {
		p.inFlight()
	}
	ctx, cancel := context.WithCancel(p.ctx)
	p.inFlight = cancel
	p.wg.Add(1)
	p.mu.Unlock()

	p.stats.recordDispatch()
	p.logger.Debug("PreviewPipeline", "conversion dispatched", map[string]interface{}{
		"request_id": req.ID.String(),
		"seq":        req.Seq,
		"bytes":      len(req.Markdown),
		"base_dir":   req.BaseDir,
	})

	go p.run(ctx, cancel, req, deliver)
	return req.Seq
}

func (p *PreviewPipeline) run(ctx context.Context, cancel context.CancelFunc, req models.ConversionRequest, deliver func(models.ConversionResult)) {
	defer p.wg.Done()
	defer cancel()

	start := time.Now()
	source := markdown.RewriteImagePaths(req.Markdown, req.BaseDir)
	html, err := p.converter.Convert(ctx, source)

	result := models.ConversionResult{
		RequestID: req.ID,
		Seq:       req.Seq,
		BaseDir:   req.BaseDir,
		HTML:      html,
		Err:       err,
		Duration:  time.Since(start),
	}

	if errors.Is(err, context.Canceled) {
		p.stats.recordSuperseded()
		p.logger.Debug("PreviewPipeline", "conversion superseded", map[string]interface{}{
			"request_id": req.ID.String(),
			"seq":        req.Seq,
		})
		return
	}

	p.poster.Post(func() {
		if !p.isLatest(req.Seq) {
			p.stats.recordSuperseded()
			return
		}
		p.stats.recordDelivered(result.Duration, err != nil)
		if err != nil {
			p.logger.Warning("PreviewPipeline", "conversion failed", map[string]interface{}{
				"request_id": req.ID.String(),
				"kind":       models.KindOf(err).String(),
			})
		}
		deliver(result)
	})
}

func (p *PreviewPipeline) isLatest(seq uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return seq == p.seq
}

// Stats returns the pipeline counters
func (p *PreviewPipeline) Stats() Snapshot {
	return p.stats.Snapshot()
}

// Shutdown cancels the conversion in flight and waits for its goroutine
func (p *PreviewPipeline) Shutdown() {
	p.mu.Lock()
	p.stop()
	p.mu.Unlock()
	p.wg.Wait()
}
