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


package badger

import "github.com/amitakki/ocr-chatqa/storage"

// NewMemoryStores creates an in-memory document registry and chunk index for
// testing. Returns registry, index, backend, and error.
// Caller must close the registry and backend when done.
func NewMemoryStores() (storage.DocumentRegistry, storage.ChunkIndex, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, nil, err
	}

	registry, err := NewDocumentRegistry(backend)
	if err != nil {
		backend.Close()
		return nil, nil, nil, err
	}

	return registry, NewChunkIndex(backend), backend, nil
}
