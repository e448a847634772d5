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


package extract

import (
	"fmt"

	"github.com/amitakki/ocr-chatqa/core"
)

// ExtractionError wraps an extraction failure with the method that was
// attempted last. It unwraps to core.ErrExtractionFailed so callers can match
// with errors.Is.
type ExtractionError struct {
	// Method is the extraction strategy that failed.
	Method core.ExtractionMethod

	// Err is the underlying cause.
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%v (method %s): %v", core.ErrExtractionFailed, e.Method, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return core.ErrExtractionFailed
}

func newExtractionError(method core.ExtractionMethod, err error) *ExtractionError {
	return &ExtractionError{Method: method, Err: err}
}
