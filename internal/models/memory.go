package models

import (
	"time"
)

// MemoryType classifies the kind of memory. The classifier emits one of the
// constants below, but callers may supply their own short tag (<= 20 chars).
type MemoryType = string

const (
	TypeInstruction MemoryType = "instruction"
	TypeDecision    MemoryType = "decision"
	TypePreference  MemoryType = "preference"
	TypeLearning    MemoryType = "learning"
	TypeTask        MemoryType = "task"
	TypeQuestion    MemoryType = "question"
	TypeNote        MemoryType = "note"
	TypeProgress    MemoryType = "progress"
	TypeInfo        MemoryType = "info"
)

// Memory is the central record persisted across all three layers.
// A forgotten memory keeps its graph node but loses Content and Summary.
type Memory struct {
	ID              string     `json:"id"`
	Content         string     `json:"content,omitempty"`
	Summary         string     `json:"summary,omitempty"`
	Type            MemoryType `json:"type"`
	Importance      int        `json:"importance"`
	Confidence      float64    `json:"confidence"`
	DecayDays       *int       `json:"decayDays,omitempty"` // nil = never expires
	Project         string     `json:"project,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	Entities        []string   `json:"entities,omitempty"`
	Created         time.Time  `json:"created"`
	Updated         time.Time  `json:"updated"`
	SessionID       string     `json:"sessionId,omitempty"`
	Source          string     `json:"source,omitempty"`
	SourceChannel   string     `json:"sourceChannel,omitempty"`
	SourceMessageID string     `json:"sourceMessageId,omitempty"`
	Supersedes      string     `json:"supersedes,omitempty"`
	Forgotten       bool       `json:"forgotten,omitempty"`
	ForgottenAt     string     `json:"forgottenAt,omitempty"`
	DeleteReason    string     `json:"deleteReason,omitempty"`
}

// SearchResult is a scored row returned by the search surfaces.
// Created carries the RFC 3339 string stored in the graph.
type SearchResult struct {
	ID         string  `json:"id"`
	Content    string  `json:"content,omitempty"`
	Summary    string  `json:"summary,omitempty"`
	Type       string  `json:"type,omitempty"`
	Importance int     `json:"importance,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Project    string  `json:"project,omitempty"`
	Created    string  `json:"created,omitempty"`
	Score      float64 `json:"score"`
	Source     string  `json:"source,omitempty"`
}

// MemoryRow is a row from the paginated listing. Unlike SearchResult it
// carries Updated and DecayDays and no score.
type MemoryRow struct {
	ID         string  `json:"id"`
	Content    string  `json:"content,omitempty"`
	Summary    string  `json:"summary,omitempty"`
	Type       string  `json:"type,omitempty"`
	Importance int     `json:"importance"`
	Confidence float64 `json:"confidence,omitempty"`
	Project    string  `json:"project,omitempty"`
	Created    string  `json:"created,omitempty"`
	Updated    string  `json:"updated,omitempty"`
	DecayDays  *int    `json:"decayDays,omitempty"`
}

// Session is the graph record for one assistant session.
type Session struct {
	ID        string `json:"id"`
	StartedAt string `json:"startedAt,omitempty"`
	EndedAt   string `json:"endedAt,omitempty"`
	Project   string `json:"project,omitempty"`
	Branch    string `json:"branch,omitempty"`
	Summary   string `json:"summary,omitempty"`
}

// EntityCount summarizes one entity node and its incoming MENTIONS edges.
type EntityCount struct {
	Name        string   `json:"name"`
	MemoryCount int64    `json:"memoryCount"`
	Types       []string `json:"types,omitempty"`
}

// Overview is the snapshot returned by sync-start.
type Overview struct {
	TotalMemories     int64         `json:"totalMemories"`
	TopEntities       []EntityCount `json:"topEntities"`
	Projects          []string      `json:"projects"`
	PendingEmbeddings int           `json:"pendingEmbeddings,omitempty"`
}
