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

package badger

import (
	"errors"

	"github.com/poiesic/clinroute/core"
	"github.com/poiesic/clinroute/storage"
)

// Repositories bundles every store built on one backend.
type Repositories struct {
	Tools       storage.CatalogStore[core.ToolRecord]
	Orgs        storage.CatalogStore[core.OrgRecord]
	Checkpoints storage.CheckpointStore
	Threads     storage.ThreadRepository
	Backend     *Backend
}

// NewRepositories builds all stores on an open backend.
func NewRepositories(backend *Backend) (*Repositories, error) {
	tools, err := NewToolCatalog(backend)
	if err != nil {
		return nil, err
	}
	orgs, err := NewOrgCatalog(backend)
	if err != nil {
		tools.Close()
		return nil, err
	}
	threads, err := NewThreadRepository(backend)
	if err != nil {
		orgs.Close()
		tools.Close()
		return nil, err
	}
	return &Repositories{
		Tools:       tools,
		Orgs:        orgs,
		Checkpoints: NewCheckpointRepository(backend),
		Threads:     threads,
		Backend:     backend,
	}, nil
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Caller must Close the result when done.
func NewMemoryRepositories() (*Repositories, error) {
	backend, err := OpenBackend("", true, nil)
	if err != nil {
		return nil, err
	}
	repos, err := NewRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return repos, nil
}

// Close releases every store and then the backend.
func (r *Repositories) Close() error {
	return errors.Join(
		r.Threads.Close(),
		r.Orgs.Close(),
		r.Tools.Close(),
		r.Backend.Close(),
	)
}
