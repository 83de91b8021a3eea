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


// Package search builds retrieval context from a knowledge graph.
//
// A Searcher turns a question into one or more entity mentions, finds the
// nearest entities for each through the graph's resolver index and returns
// their neighborhoods as "(subject, predicate, object)" strings. Entities
// whose name appears verbatim in the question get a score boost.
//
// The joined relations are meant to be handed to a question-answering model
// as context.
package search
