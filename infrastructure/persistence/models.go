// Package persistence provides database storage implementations.
package persistence

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/arnavk-polka/onChain-Explorer/domain/proposal"
)

// ProposalModel is the GORM model for the proposals table.
// Nullable columns are pointers so the merge upsert can tell "absent" from
// "present but empty": a nil column never overwrites stored detail.
type ProposalModel struct {
	ID             string           `gorm:"column:id;primaryKey"`
	Network        string           `gorm:"column:network;not null;index:idx_proposals_network"`
	Type           string           `gorm:"column:type;not null;index:idx_proposals_type"`
	Title          *string          `gorm:"column:title;type:text"`
	Description    *string          `gorm:"column:description;type:text"`
	Proposer       *string          `gorm:"column:proposer"`
	AmountNumeric  *decimal.Decimal `gorm:"column:amount_numeric;type:numeric"`
	Currency       *string          `gorm:"column:currency"`
	Status         string           `gorm:"column:status"`
	CreatedAt      time.Time        `gorm:"column:created_at;not null;autoCreateTime:false;autoUpdateTime:false"`
	UpdatedAt      *time.Time       `gorm:"column:updated_at;autoUpdateTime:false"`
	Metadata       datatypes.JSON   `gorm:"column:metadata"`
	SearchDocument *string          `gorm:"column:search_document;type:text"`
}

// TableName implements the GORM table-name convention.
func (ProposalModel) TableName() string { return "proposals" }

// ProposalMapper maps between the domain Proposal and ProposalModel.
type ProposalMapper struct{}

// ToModel converts a domain Proposal to a ProposalModel. Empty optional
// fields map to nil so upserts leave stored values untouched.
func (ProposalMapper) ToModel(p proposal.Proposal) ProposalModel {
	var amount *decimal.Decimal
	if p.Amount().Valid {
		d := p.Amount().Decimal
		amount = &d
	}

	var updatedAt *time.Time
	if !p.UpdatedAt().IsZero() {
		t := p.UpdatedAt()
		updatedAt = &t
	}

	metadata, err := json.Marshal(p.Metadata())
	if err != nil {
		metadata = []byte("{}")
	}

	return ProposalModel{
		ID:            p.ID(),
		Network:       string(p.Network()),
		Type:          p.Type(),
		Title:         optional(p.Title()),
		Description:   optional(p.Description()),
		Proposer:      optional(p.Proposer()),
		AmountNumeric: amount,
		Currency:      optional(p.Currency()),
		Status:        p.Status(),
		CreatedAt:     p.CreatedAt(),
		UpdatedAt:     updatedAt,
		Metadata:      datatypes.JSON(metadata),
	}
}

// ToDomain converts a ProposalModel to a domain Proposal.
func (ProposalMapper) ToDomain(m ProposalModel) proposal.Proposal {
	amount := decimal.NullDecimal{}
	if m.AmountNumeric != nil {
		amount = decimal.NewNullDecimal(*m.AmountNumeric)
	}

	var updatedAt time.Time
	if m.UpdatedAt != nil {
		updatedAt = *m.UpdatedAt
	}

	metadata := make(map[string]any)
	if len(m.Metadata) > 0 {
		_ = json.Unmarshal(m.Metadata, &metadata)
	}

	return proposal.ReconstructProposal(
		m.ID,
		proposal.Network(m.Network),
		m.Type,
		deref(m.Title),
		deref(m.Description),
		deref(m.Proposer),
		amount,
		deref(m.Currency),
		m.Status,
		m.CreatedAt,
		updatedAt,
		metadata,
		deref(m.SearchDocument),
	)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
