package treegrep

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/jward/treegrep/internal/store"
	"github.com/jward/treegrep/internal/syntax"
)

// workItem holds everything a scan worker needs.
type workItem struct {
	path    string
	lang    *syntax.Language
	content []byte
	// unchanged is set when the previous run saw the same content.
	unchanged bool

	// batch buffers the file's findings for the store; nil without one.
	batch *store.Batch
}

// scanOutput is a worker's result for one file.
type scanOutput struct {
	item     workItem
	findings []Finding
	err      error
}

// scanParallel scans files using a three-phase pipeline:
//
//	Phase A (serial):   Language filter, read, hash, prepare batches.
//	Phase B (parallel): Parse and match via worker pool (each with own parser).
//	Phase C (serial):   Commit batches to the store, collect findings.
func (e *Engine) scanParallel(ctx context.Context, paths []string, res *Result) error {
	// ---- Phase A: Serial file preparation ----
	var items []workItem
	for _, path := range paths {
		item, skip, err := e.prepareFile(path, res.Run)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			continue
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return aggregate(res.Errors)
	}

	// ---- Phase B: Parallel matching ----
	numWorkers := e.workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	numWorkers = max(min(numWorkers, len(items)), 1)

	workCh := make(chan workItem, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	resultCh := make(chan scanOutput, len(items))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each file is parsed with its own parser; trees never cross
			// goroutines.
			for item := range workCh {
				if err := ctx.Err(); err != nil {
					resultCh <- scanOutput{item: item, err: err}
					continue
				}
				resultCh <- e.scanItem(ctx, item)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase C: Serial commit ----
	for out := range resultCh {
		e.collect(out, res)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return aggregate(res.Errors)
}

// prepareFile does Phase A work for a single file. Returns (item, skip,
// error); skip=true means the file is unsupported or filtered out.
func (e *Engine) prepareFile(path string, run *store.Run) (workItem, bool, error) {
	lang, ok := syntax.ForFile(path)
	if !ok || len(e.rulesFor(lang.Name())) == 0 {
		e.logger.Debug("skipping file", zap.String("path", path))
		return workItem{}, true, nil
	}

	content, err := readFile(path)
	if err != nil {
		return workItem{}, false, err
	}

	item := workItem{path: path, lang: lang, content: content}
	if run != nil {
		hash := store.HashContent(content)
		prev, err := e.store.PreviousHash(path, run.ID)
		if err != nil {
			return workItem{}, false, err
		}
		item.unchanged = prev == hash
		item.batch = store.NewBatch(store.File{
			RunID:    run.ID,
			Path:     path,
			Language: lang.Name(),
			Hash:     hash,
			Size:     len(content),
		})
	}
	return item, false, nil
}

// scanItem parses and matches one file, buffering its findings in the
// item's batch.
func (e *Engine) scanItem(ctx context.Context, item workItem) scanOutput {
	findings, err := e.matchFile(ctx, item.lang, item.path, item.content)
	if err != nil {
		return scanOutput{item: item, err: err}
	}
	if item.batch != nil {
		for i := range findings {
			m := findings[i].storeMatch()
			item.batch.AddMatch(&m)
		}
	}
	return scanOutput{item: item, findings: findings}
}

// collect does Phase C work for one file: commit and gather.
func (e *Engine) collect(out scanOutput, res *Result) {
	if out.err != nil {
		e.logger.Warn("scan failed", zap.String("path", out.item.path), zap.Error(out.err))
		res.Errors = append(res.Errors, fmt.Errorf("scan %s: %w", out.item.path, out.err))
		return
	}
	if out.item.batch != nil {
		if err := e.store.CommitBatch(out.item.batch); err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("commit %s: %w", out.item.path, err))
			return
		}
	}
	res.Files++
	if out.item.unchanged {
		res.Unchanged++
	}
	res.Findings = append(res.Findings, out.findings...)
}
