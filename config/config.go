// Package config manages the persisted YAML configuration document the
// dashboard edits: prompt templates, search queries and per-workflow
// defaults. The document is not part of the workflow state machine; the
// executor reads it to parametrize steps.
package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// MessagingDefaults parametrize the messaging workflow.
type MessagingDefaults struct {
	Delay       int `yaml:"default_delay"`
	MaxProfiles int `yaml:"default_max_profiles"`
}

// SearchDefaults parametrize collaboration search.
type SearchDefaults struct {
	MaxPages int `yaml:"max_pages"`
	PerPage  int `yaml:"results_per_page"`
}

// Document is the typed view of the configuration file.
type Document struct {
	Messaging MessagingDefaults `yaml:"instagram_message_workflow"`
	Search    SearchDefaults    `yaml:"collaboration_search"`
	Prompts   map[string]string `yaml:"prompts"`
	Hashtags  []string          `yaml:"hashtags"`
}

// Defaults returns the configuration used when no file exists yet.
func Defaults() Document {
	return Document{
		Messaging: MessagingDefaults{Delay: 5, MaxProfiles: 10},
		Search:    SearchDefaults{MaxPages: 10, PerPage: 10},
		Prompts:   map[string]string{},
	}
}

// Store is a file-backed configuration document with concurrent readers.
// Save validates the YAML, writes a .bak backup of the previous content
// first, then replaces the file and the cached document atomically.
type Store struct {
	mu   sync.RWMutex
	path string
	raw  string
	doc  Document
}

// Load opens (or initializes) the configuration file at path.
func Load(path string) (*Store, error) {
	s := &Store{path: path, doc: Defaults()}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		out, merr := yaml.Marshal(s.doc)
		if merr != nil {
			return nil, fmt.Errorf("marshal default config: %w", merr)
		}
		s.raw = string(out)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	s.raw = string(data)
	s.doc = withDefaults(doc)
	return s, nil
}

// Raw returns the document text as last loaded or saved.
func (s *Store) Raw() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raw
}

// Document returns the typed configuration snapshot.
func (s *Store) Document() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// Prompt returns a named prompt template, or def when absent.
func (s *Store) Prompt(name, def string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.doc.Prompts[name]; ok && p != "" {
		return p
	}
	return def
}

// Save validates and persists new document content. Invalid YAML is
// rejected without touching the file or the cached document.
func (s *Store) Save(content string) error {
	var doc Document
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return fmt.Errorf("invalid yaml: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path != "" {
		if prev, err := os.ReadFile(s.path); err == nil {
			if err := os.WriteFile(s.path+".bak", prev, 0o644); err != nil {
				return fmt.Errorf("write config backup: %w", err)
			}
		}
		if err := os.WriteFile(s.path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
	}

	s.raw = content
	s.doc = withDefaults(doc)
	return nil
}

// withDefaults fills zero values so the executor never divides or loops on
// a missing bound.
func withDefaults(doc Document) Document {
	def := Defaults()
	if doc.Messaging.Delay <= 0 {
		doc.Messaging.Delay = def.Messaging.Delay
	}
	if doc.Messaging.MaxProfiles <= 0 {
		doc.Messaging.MaxProfiles = def.Messaging.MaxProfiles
	}
	if doc.Search.MaxPages <= 0 {
		doc.Search.MaxPages = def.Search.MaxPages
	}
	if doc.Search.PerPage <= 0 {
		doc.Search.PerPage = def.Search.PerPage
	}
	if doc.Prompts == nil {
		doc.Prompts = map[string]string{}
	}
	return doc
}
