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

package trackview

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/googlegenomics/trackview/api"
	"github.com/googlegenomics/trackview/cart"
	"google.golang.org/appengine"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), appEngineContext)

	newStore := api.SharedStore(cart.NewMemoryStore())
	if bucket := os.Getenv("SESSION_BUCKET"); bucket != "" {
		newStore = api.BearerTokenStore(bucket, os.Getenv("SESSION_PREFIX"))
	}
	api.NewServer(newStore, api.Options{DB: os.Getenv("DEFAULT_DB")}).Export(router)
	http.Handle("/", router)
}

// appEngineContext makes the App Engine context available to the storage
// calls made while serving the request.
func appEngineContext(c *gin.Context) {
	c.Request = c.Request.WithContext(appengine.NewContext(c.Request))
	c.Next()
}
