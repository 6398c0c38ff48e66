// Copyright 2019 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ErrMissingOrInvalidToken is returned when a request carries no usable
// bearer token.
var ErrMissingOrInvalidToken = errors.New("missing or invalid bearer token")

// StorageClient is an interface to the storage engine.
type StorageClient interface {
	// NewObjectHandle returns a handle to a specified object in the storage
	// engine.
	NewObjectHandle(bucket, object string) ObjectHandle
}

// ObjectHandle is an interface to the actual storage engine in use.
type ObjectHandle interface {
	// NewReader returns a reader for the whole object and the generation
	// being read.  It returns storage.ErrObjectNotExist when the object is
	// missing.
	NewReader(ctx context.Context) (io.ReadCloser, int64, error)
	// NewWriter returns a writer that replaces the object when closed, as
	// long as the object is still at generation.  Generation 0 requires that
	// the object does not exist.  A failed condition is reported by Close as
	// a googleapi.Error with code 412.
	NewWriter(ctx context.Context, generation int64) io.WriteCloser
}

// GCSClient is StorageClient for accessing Google Cloud Storage.
type GCSClient struct {
	*storage.Client
}

// NewObjectHandle returns a handle to a specified object in the storage
// engine.
func (c GCSClient) NewObjectHandle(bucket, object string) ObjectHandle {
	return gcsObjectHandle{c.Bucket(bucket).Object(object)}
}

type gcsObjectHandle struct {
	*storage.ObjectHandle
}

func (h gcsObjectHandle) NewReader(ctx context.Context) (io.ReadCloser, int64, error) {
	r, err := h.ObjectHandle.NewReader(ctx)
	if err != nil {
		return nil, 0, err
	}
	return r, r.Attrs.Generation, nil
}

func (h gcsObjectHandle) NewWriter(ctx context.Context, generation int64) io.WriteCloser {
	cond := storage.Conditions{GenerationMatch: generation}
	if generation == 0 {
		cond = storage.Conditions{DoesNotExist: true}
	}
	w := h.ObjectHandle.If(cond).NewWriter(ctx)
	w.ContentType = "application/json"
	return w
}

// NewDefaultClient returns a storage client that uses the application default
// credentials unless opts say otherwise.
func NewDefaultClient(ctx context.Context, opts ...option.ClientOption) (StorageClient, error) {
	gcs, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %v", err)
	}
	return GCSClient{gcs}, nil
}

// NewClientFromBearerToken constructs a storage client that uses the OAuth2
// bearer token found in req to make storage requests.
func NewClientFromBearerToken(req *http.Request) (StorageClient, error) {
	fields := strings.Split(req.Header.Get("Authorization"), " ")
	if len(fields) != 2 || fields[0] != "Bearer" {
		return nil, ErrMissingOrInvalidToken
	}

	token := oauth2.Token{
		TokenType:   fields[0],
		AccessToken: fields[1],
	}
	client, err := storage.NewClient(req.Context(), option.WithTokenSource(oauth2.StaticTokenSource(&token)))
	if err != nil {
		return nil, fmt.Errorf("creating client with token source: %v", err)
	}
	return GCSClient{client}, nil
}

// GCSStore keeps each session as a JSON object in a bucket.
type GCSStore struct {
	client StorageClient
	bucket string
	prefix string
}

// NewGCSStore returns a store writing objects named prefix/<id>.json into
// bucket.
func NewGCSStore(client StorageClient, bucket, prefix string) *GCSStore {
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}
}

func (s *GCSStore) object(id string) string {
	return path.Join(s.prefix, id+".json")
}

// maxModifyAttempts bounds the retries of a Modify that races with other
// writers of the same session.
const maxModifyAttempts = 5

// Load implements Store.
func (s *GCSStore) Load(ctx context.Context, id string) (Vars, error) {
	vars, _, err := s.load(ctx, id)
	return vars, err
}

func (s *GCSStore) load(ctx context.Context, id string) (Vars, int64, error) {
	r, generation, err := s.client.NewObjectHandle(s.bucket, s.object(id)).NewReader(ctx)
	if err == storage.ErrObjectNotExist {
		return make(Vars), 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("opening session %s: %w", id, err)
	}
	defer r.Close()

	vars := make(Vars)
	if err := json.NewDecoder(r).Decode(&vars); err != nil {
		return nil, 0, fmt.Errorf("decoding session %s: %v", id, err)
	}
	return vars, generation, nil
}

// Modify implements Store.  The session object is only replaced if nobody
// wrote it since it was read; otherwise the whole update is retried.
func (s *GCSStore) Modify(ctx context.Context, id string, fn func(Vars)) (Vars, error) {
	for attempt := 1; ; attempt++ {
		vars, generation, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		fn(vars)
		err = s.save(ctx, id, vars, generation)
		if err == nil {
			return vars, nil
		}
		var gerr *googleapi.Error
		if !errors.As(err, &gerr) || gerr.Code != http.StatusPreconditionFailed || attempt == maxModifyAttempts {
			return nil, err
		}
	}
}

func (s *GCSStore) save(ctx context.Context, id string, vars Vars, generation int64) error {
	w := s.client.NewObjectHandle(s.bucket, s.object(id)).NewWriter(ctx, generation)
	if err := json.NewEncoder(w).Encode(vars); err != nil {
		w.Close()
		return fmt.Errorf("encoding session %s: %v", id, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("writing session %s: %w", id, err)
	}
	return nil
}
