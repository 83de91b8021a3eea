// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package batching coalesces concurrent single-item inference requests into
// batches processed by one worker goroutine.
//
// Callers submit one item at a time and receive a Future. A dedicated worker
// takes whatever requests are queued, up to the batch size, and invokes the
// batch function once for all of them. It never waits for a batch to fill:
// when nothing more is pending a partial batch is processed immediately.
//
//	svc, err := batching.New(func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return embedder.EmbedTexts(ctx, texts)
//	}, batching.WithBatchSize(32))
//	if err != nil {
//	    return err
//	}
//	defer svc.Close()
//
//	vec, err := svc.Do(ctx, "Tesla")
//
// # Result Delivery
//
// Each Future is resolved exactly once by closing a channel, so a waiter
// wakes exactly once and can never observe a half-written result.
//
// # Shutdown
//
// Close stops accepting submissions and joins the worker. By default pending
// requests are drained; WithCancelOnClose instead cancels in-flight work and
// fails pending requests with ErrClosed.
package batching
