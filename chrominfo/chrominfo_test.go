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

package chrominfo

import (
	"context"
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
)

func TestStatic(t *testing.T) {
	s := Static{"hg19": {"chr1": 249250621, "chrM": 16571}}
	testCases := []struct {
		db, chrom string
		want      int
		fail      bool
	}{
		{"hg19", "chr1", 249250621, false},
		{"hg19", "chrM", 16571, false},
		{"hg19", "chr99", 0, true},
		{"mm10", "chr1", 0, true},
	}
	for _, tc := range testCases {
		t.Run(tc.db+"."+tc.chrom, func(t *testing.T) {
			got, err := s.Size(context.Background(), tc.db, tc.chrom)
			if tc.fail {
				if err == nil {
					t.Fatalf("Size() succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Size() returned unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Wrong size: got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestMySQLDSN(t *testing.T) {
	m := NewMySQL(UCSCPublicDSN)
	defer m.Close()

	cfg, err := mysql.ParseDSN(m.DSN("hg38"))
	if err != nil {
		t.Fatalf("ParseDSN() returned unexpected error: %v", err)
	}
	if got, want := cfg.DBName, "hg38"; got != want {
		t.Errorf("Wrong database: got %q, want %q", got, want)
	}
	if got, want := cfg.User, "genome"; got != want {
		t.Errorf("Wrong user: got %q, want %q", got, want)
	}
	if got, want := cfg.Addr, "genome-mysql.soe.ucsc.edu:3306"; got != want {
		t.Errorf("Wrong address: got %q, want %q", got, want)
	}
}

func TestMySQLInvalidAssembly(t *testing.T) {
	m := NewMySQL(UCSCPublicDSN)
	defer m.Close()

	for _, db := range []string{"", "hg19?timeout=1s", "hg19/../mysql", "hg 19"} {
		t.Run(db, func(t *testing.T) {
			if _, err := m.Size(context.Background(), db, "chr1"); !errors.Is(err, ErrInvalidAssembly) {
				t.Errorf("Wrong error: got %v, want %v", err, ErrInvalidAssembly)
			}
		})
	}
	if got := len(m.dbs); got != 0 {
		t.Errorf("Wrong number of opened databases: got %d, want 0", got)
	}
	if !ValidAssembly("hg19") || !ValidAssembly("mm10_test") {
		t.Errorf("ValidAssembly() rejected a well formed name")
	}
}
