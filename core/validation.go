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

import (
	"fmt"
	"strings"
)

// ValidateContentItem validates a ContentItem according to domain rules.
//
// Validation rules:
//   - SourceURL must be non-empty
//
// NOT validated:
//   - Text (empty text marks a document whose parse failed)
func ValidateContentItem(item *ContentItem) error {
	if item == nil {
		return fmt.Errorf("%w: item is nil", ErrInvalidContentItem)
	}
	if strings.TrimSpace(item.SourceURL) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidContentItem, ErrEmptySourceURL)
	}
	return nil
}

// ValidateTriple validates that all three parts of a triple are non-empty.
func ValidateTriple(t Triple) error {
	if strings.TrimSpace(t.Subject) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTriple, ErrEmptySubject)
	}
	if strings.TrimSpace(t.Predicate) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTriple, ErrEmptyPredicate)
	}
	if strings.TrimSpace(t.Object) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTriple, ErrEmptyObject)
	}
	return nil
}

// ValidateRawTriple validates a RawTriple, including its source URL.
func ValidateRawTriple(t RawTriple) error {
	if err := ValidateTriple(t.Triple); err != nil {
		return err
	}
	if strings.TrimSpace(t.SourceURL) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTriple, ErrEmptySourceURL)
	}
	return nil
}
