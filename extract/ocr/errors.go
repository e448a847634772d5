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


package ocr

import "errors"

var (
	// ErrRasterizeFailed indicates the PDF could not be rendered to images.
	ErrRasterizeFailed = errors.New("failed to rasterize document")

	// ErrRecognitionFailed indicates the OCR engine failed on a page.
	ErrRecognitionFailed = errors.New("text recognition failed")

	// ErrEngineUnavailable indicates the OCR binary or service is not
	// reachable.
	ErrEngineUnavailable = errors.New("ocr engine unavailable")
)
