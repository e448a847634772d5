// Copyright 2025 Amit Akki
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


// Package extract classifies documents and pulls plain text out of them.
//
// The package implements two cooperating components:
//
//   - Classifier: decides whether a document is text-native, scanned, or
//     unsupported. Deterministic and side-effect free, so it can be re-run
//     independently of extraction.
//   - Router: dispatches to the extraction strategy matching the
//     classification (direct PDF text layer, per-page OCR, or a structural
//     walk of DOCX/HTML), normalizes output to per-page plain text, and
//     writes the derived artifacts.
//
// The three strategies are a closed set dispatched through one router
// function rather than open-ended polymorphism; only the OCR engine behind
// the scanned path is pluggable (see the ocr sub-package).
//
// ArtifactStore holds the durable per-document files: the uploaded
// original, the OCR-overlaid searchable copy, and the extracted text
// rendition.
package extract
