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


// Package storage provides the memoization cache abstraction for knownet.
//
// Model calls are expensive. Every embedding and every triple extraction is
// cached under a fingerprint of its input, inside a namespace derived from the
// model that produced it:
//
//	<cache root>/<component>/<model id>/
//
// Switching models therefore never serves results computed by another model.
//
// # Architecture
//
//   - Cache: contains / get / set / clear over one namespace
//   - Namespace: the (component, model) pair that names a cache directory
//   - Fingerprint: BLAKE2b hash of namespace and input, used as the record key
//   - Codecs: mus-go encodings for embedding vectors and triple lists
//
// The badger subpackage provides the durable implementation:
//
//	cache, err := badger.OpenCache(".knownet_cache", storage.Namespace{
//	    Component: "embedder",
//	    Model:     "nomic-embed-text",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cache.Close()
//
// # Thread Safety
//
// Caches are safe for concurrent readers and writers. Writes racing on the
// same key store equivalent values, so callers need no extra locking.
//
// # Errors
//
// Get returns ErrNotFound for absent keys. Any other error is a storage I/O
// failure; callers treat it as a miss and recompute.
package storage
