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

// Package chrominfo looks up chromosome sizes, which bound navigation.
package chrominfo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sync"

	// Registers the "mysql" driver.
	_ "github.com/go-sql-driver/mysql"
)

// UCSCPublicDSN is the data source name pattern of the public UCSC MySQL
// server.  The %s is replaced by the assembly name.
const UCSCPublicDSN = "genome@tcp(genome-mysql.soe.ucsc.edu:3306)/%s"

var (
	// ErrUnknownChrom is returned for chromosomes missing from an assembly.
	ErrUnknownChrom = errors.New("unknown chromosome")
	// ErrInvalidAssembly is returned for assembly names that cannot name a
	// database.
	ErrInvalidAssembly = errors.New("invalid assembly name")
)

var assemblyName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidAssembly reports whether db is a well formed assembly name.
func ValidAssembly(db string) bool {
	return assemblyName.MatchString(db)
}

// Source returns chromosome sizes.
type Source interface {
	// Size returns the length in bases of chrom in assembly db.
	Size(ctx context.Context, db, chrom string) (int, error)
}

// Static is a fixed table of sizes keyed by assembly then chromosome.
type Static map[string]map[string]int

// Size implements Source.
func (s Static) Size(_ context.Context, db, chrom string) (int, error) {
	size, ok := s[db][chrom]
	if !ok {
		return 0, fmt.Errorf("%s.%s: %w", db, chrom, ErrUnknownChrom)
	}
	return size, nil
}

// MySQL reads the chromInfo table of each assembly database.  Sizes are
// cached for the lifetime of the source.
type MySQL struct {
	dsnPattern string

	mu    sync.Mutex
	dbs   map[string]*sql.DB
	sizes map[string]int
}

// NewMySQL returns a source connecting with dsnPattern, in which %s names
// the assembly database.
func NewMySQL(dsnPattern string) *MySQL {
	return &MySQL{
		dsnPattern: dsnPattern,
		dbs:        make(map[string]*sql.DB),
		sizes:      make(map[string]int),
	}
}

// DSN returns the data source name used for assembly db.
func (m *MySQL) DSN(db string) string {
	return fmt.Sprintf(m.dsnPattern, db)
}

func (m *MySQL) open(db string) (*sql.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conn, ok := m.dbs[db]; ok {
		return conn, nil
	}
	conn, err := sql.Open("mysql", m.DSN(db))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %v", db, err)
	}
	m.dbs[db] = conn
	return conn, nil
}

// Size implements Source.
func (m *MySQL) Size(ctx context.Context, db, chrom string) (int, error) {
	if !ValidAssembly(db) {
		return 0, fmt.Errorf("%q: %w", db, ErrInvalidAssembly)
	}
	key := db + "." + chrom
	m.mu.Lock()
	size, ok := m.sizes[key]
	m.mu.Unlock()
	if ok {
		return size, nil
	}

	conn, err := m.open(db)
	if err != nil {
		return 0, err
	}
	err = conn.QueryRowContext(ctx, "SELECT size FROM chromInfo WHERE chrom = ?", chrom).Scan(&size)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%s: %w", key, ErrUnknownChrom)
	}
	if err != nil {
		return 0, fmt.Errorf("querying chromInfo for %s: %v", key, err)
	}

	m.mu.Lock()
	m.sizes[key] = size
	m.mu.Unlock()
	return size, nil
}

// Close closes every database connection.
func (m *MySQL) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var first error
	for name, conn := range m.dbs {
		if err := conn.Close(); err != nil && first == nil {
			first = err
		}
		delete(m.dbs, name)
	}
	return first
}
