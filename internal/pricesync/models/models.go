package models

import (
	"fmt"
	"time"

	sefaz "gopricewatch_api/internal/sefaz/business/models"
)

type ItemKind string

const (
	KindProduct ItemKind = "product"
	KindFuel    ItemKind = "fuel"
)

const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// TrackedItem is a user-configured (product-or-fuel, establishment) pair
// the engine re-prices on every run. The engine only ever writes the
// cached price fields; identity and criteria belong to the user.
type TrackedItem struct {
	ID       int64
	UserID   int64
	Kind     ItemKind
	Nickname string
	Criteria sefaz.SearchCriteria
	// FallbackDescription feeds the loosest search strategy when the
	// product locator itself is a code.
	FallbackDescription string
	Dias                int
	IsActive            bool
	LastPrice           *float64
	Trend               string
	LastUpdatedAt       *time.Time
}

func (t TrackedItem) Label() string {
	if t.Nickname != "" {
		return t.Nickname
	}
	return fmt.Sprintf("item #%d", t.ID)
}

// CompetitorTracking drives the broader "all products at this
// establishment" query.
type CompetitorTracking struct {
	ID          int64
	UserID      int64
	CNPJ        string
	DisplayName string
	IsActive    bool
}

func (c CompetitorTracking) Label() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return fmt.Sprintf("competitor #%d", c.ID)
}

// EstablishmentRecord is upserted by CNPJ, never duplicated.
type EstablishmentRecord struct {
	CNPJ         string
	RazaoSocial  string
	NomeFantasia string
	Logradouro   string
	Numero       string
	Bairro       string
	Municipio    string
	UF           string
	CEP          string
}

// PriceHistoryEntry is append-only: one row per observation, even when the
// price did not move since the previous fetch.
type PriceHistoryEntry struct {
	TrackedItemID  *int64
	CompetitorID   *int64
	CNPJ           string
	ValorVenda     float64
	ValorDeclarado *float64
	DataVenda      string
	FetchedAt      time.Time
	Raw            []byte
}

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunError     RunStatus = "error"
)

// SyncRunStatus is owned by exactly one run: created at start, updated
// throughout, finalized at the end.
type SyncRunStatus struct {
	ID           string
	Status       RunStatus
	Progress     int
	Total        int
	CurrentItem  string
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// RunStatusPatch carries only the fields a progress update wants to touch.
type RunStatusPatch struct {
	Status       *RunStatus
	Progress     *int
	Total        *int
	CurrentItem  *string
	ErrorMessage *string
}

// Scope selects whose active entries a run processes.
type Scope struct {
	AllUsers bool
	UserID   int64
}

func ScopeAllUsers() Scope {
	return Scope{AllUsers: true}
}

func ScopeUser(userID int64) Scope {
	return Scope{UserID: userID}
}

func (s Scope) String() string {
	if s.AllUsers {
		return "all"
	}
	return fmt.Sprintf("user:%d", s.UserID)
}
