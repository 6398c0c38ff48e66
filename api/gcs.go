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

package api

import (
	"errors"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/googlegenomics/trackview/cart"
	"google.golang.org/api/googleapi"
)

// SharedStore returns a NewStoreFunc that uses store for every request.
func SharedStore(store cart.Store) NewStoreFunc {
	return func(*http.Request) (cart.Store, error) {
		return store, nil
	}
}

// BearerTokenStore returns a NewStoreFunc that keeps sessions under prefix in
// bucket, accessed with the OAuth2 bearer token of each request.
func BearerTokenStore(bucket, prefix string) NewStoreFunc {
	return func(req *http.Request) (cart.Store, error) {
		client, err := cart.NewClientFromBearerToken(req)
		if err != nil {
			return nil, err
		}
		return cart.NewGCSStore(client, bucket, prefix), nil
	}
}

func newStorageError(context string, err error) error {
	if errors.Is(err, cart.ErrMissingOrInvalidToken) {
		return newPermissionDeniedError(context, err)
	}
	if errors.Is(err, storage.ErrBucketNotExist) {
		return newNotFoundError("bucket does not exist", err)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized:
			return newInvalidAuthenticationError(context, err)
		case http.StatusForbidden:
			return newPermissionDeniedError(context, err)
		}
	}
	return err
}
