package posescore

import (
	"context"
	"errors"
	"io"
	"sync"
)

// ErrPoolClosed is returned when extracting from a closed Pool
var ErrPoolClosed = errors.New("posescore: extractor pool closed")

// Pool is a simple pool of the same Extractor opened multiple times so images
// can be processed concurrently.  Each pooled Extractor is only used by one
// goroutine at a time, and the Pool itself satisfies Extractor.
type Pool struct {
	// pool of extractors
	extractors chan Extractor
	// size of pool
	size   int
	mu     sync.Mutex
	closed bool
}

// NewPool creates a new extractor pool of the given size, calling create once
// for each member
func NewPool(size int, create func(i int) (Extractor, error)) (*Pool, error) {

	if size <= 0 {
		size = 1
	}

	p := &Pool{
		extractors: make(chan Extractor, size),
		size:       size,
	}

	for i := 0; i < size; i++ {
		ex, err := create(i)

		if err != nil {
			// close any instances that may have been created before receiving
			// the error
			_ = p.Close()
			return nil, err
		}

		// attach to pool
		p.Return(ex)
	}

	return p, nil
}

// Get an extractor from the pool, blocking until one is available or the
// context is done
func (p *Pool) Get(ctx context.Context) (Extractor, error) {
	select {
	case ex, ok := <-p.extractors:
		if !ok {
			return nil, ErrPoolClosed
		}
		return ex, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Return an extractor to the pool
func (p *Pool) Return(ex Extractor) {

	if ex == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		closeExtractor(ex)
		return
	}

	select {
	case p.extractors <- ex:
	default:
		// pool is full
		closeExtractor(ex)
	}
}

// Extract runs the extraction on the next available pooled Extractor
func (p *Pool) Extract(ctx context.Context, file string) (KeypointSet, error) {

	ex, err := p.Get(ctx)

	if err != nil {
		return nil, err
	}

	defer p.Return(ex)

	return ex.Extract(ctx, file)
}

// Size returns the pool size
func (p *Pool) Size() int {
	return p.size
}

// Close the pool and all extractors in it that implement io.Closer
func (p *Pool) Close() error {

	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return nil
	}

	p.closed = true
	close(p.extractors)
	p.mu.Unlock()

	var errs []error

	for next := range p.extractors {
		if c, ok := next.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}

// closeExtractor releases an extractor that can not go back into the pool
func closeExtractor(ex Extractor) {
	if c, ok := ex.(io.Closer); ok {
		_ = c.Close()
	}
}
