/*
Copyright 2025 Sniperthink Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"database/sql"
	"log"
	"sync"

	_ "github.com/lib/pq"

	"github.com/sniperthink/chatcore/config"
	"github.com/sniperthink/chatcore/internal/cache"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn  *sql.DB
	Cache cache.Cache
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		ca, errCache := cache.NewCache()
		if errCache != nil {
			log.Printf("cache init failed, channel lookups go straight to the database: %v", errCache)
		}
		instance = &Datasource{Conn: con, Cache: ca}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		return nil, err
	}
	err = createChannelTable(db)
	if err != nil {
		return nil, err
	}
	err = createCreditLedgerTable(db)
	if err != nil {
		return nil, err
	}
	err = createConversationTable(db)
	if err != nil {
		return nil, err
	}
	err = createMessageTable(db)
	if err != nil {
		return nil, err
	}
	err = createExtractionTable(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func createChannelTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE SCHEMA IF NOT EXISTS chatcore;
		CREATE TABLE IF NOT EXISTS chatcore.channels (
			id SERIAL PRIMARY KEY,
			channel_id TEXT NOT NULL UNIQUE,
			tenant_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func createCreditLedgerTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS chatcore.credit_ledgers (
			id SERIAL PRIMARY KEY,
			tenant_id TEXT NOT NULL UNIQUE,
			remaining_credits BIGINT NOT NULL DEFAULT 0 CHECK (remaining_credits >= 0),
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func createConversationTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS chatcore.conversations (
			id SERIAL PRIMARY KEY,
			conversation_id TEXT NOT NULL UNIQUE,
			channel_id TEXT NOT NULL REFERENCES chatcore.channels(channel_id),
			counterpart TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_message_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (channel_id, counterpart)
		)
	`)
	return err
}

func createMessageTable(db *sql.DB) error {
	// The unique (conversation_id, sequence_no) index backstops the
	// sequencer: even a misbehaving writer cannot persist two messages with
	// the same sequence number.
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS chatcore.messages (
			id SERIAL PRIMARY KEY,
			message_id TEXT NOT NULL UNIQUE,
			conversation_id TEXT NOT NULL REFERENCES chatcore.conversations(conversation_id),
			sequence_no BIGINT NOT NULL,
			sender TEXT NOT NULL CHECK (sender IN ('user', 'agent')),
			text TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (conversation_id, sequence_no)
		)
	`)
	return err
}

func createExtractionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS chatcore.extraction_records (
			id SERIAL PRIMARY KEY,
			extraction_id TEXT NOT NULL UNIQUE,
			conversation_id TEXT NOT NULL REFERENCES chatcore.conversations(conversation_id),
			fields JSONB NOT NULL DEFAULT '{}',
			extracted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}
