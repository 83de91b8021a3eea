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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidContentItem indicates a ContentItem failed validation.
	ErrInvalidContentItem = errors.New("invalid content item")

	// ErrInvalidTriple indicates a Triple or RawTriple failed validation.
	ErrInvalidTriple = errors.New("invalid triple")

	// ErrEmptySourceURL indicates the source URL is empty.
	ErrEmptySourceURL = errors.New("source url cannot be empty")

	// ErrEmptySubject indicates the subject mention is empty.
	ErrEmptySubject = errors.New("subject cannot be empty")

	// ErrEmptyPredicate indicates the predicate text is empty.
	ErrEmptyPredicate = errors.New("predicate cannot be empty")

	// ErrEmptyObject indicates the object mention is empty.
	ErrEmptyObject = errors.New("object cannot be empty")
)
