// Package crawl fetches a seed page and the articles it links to.
//
// A Scheduler owns a bounded worker pool: at most MaxConcurrency fetches are
// in flight at any time. Each link is retried with exponential backoff
// (base delay doubling per attempt) up to the configured number of attempts;
// a link that exhausts its attempts is dropped without stopping the crawl.
// Only a seed page failure is fatal.
//
// Items are delivered in completion order through a Stream. Two consumption
// modes are supported:
//
//	// streaming
//	stream, err := scheduler.Crawl(ctx, seed)
//	if err != nil {
//	    return err
//	}
//	for item := range stream.All() {
//	    ...
//	}
//
//	// buffered
//	items, err := scheduler.Collect(ctx, seed)
//
// A consumer that stops reading stalls new fetch scheduling once the stream
// buffer is full. Closing the stream, breaking out of All, or cancelling ctx
// stops scheduling and aborts in-flight fetches.
//
// Link selection and article parsing are pluggable through LinkFilter and
// ContentParser. The defaults keep headline-like anchors (AnchorTextFilter)
// and join <p> text (ParagraphParser).
package crawl
