// Package proposal provides the governance-proposal domain types.
package proposal

import (
	"maps"
	"time"

	"github.com/shopspring/decimal"
)

// Network identifies the chain a proposal belongs to.
type Network string

// Network values. Normalization guarantees every persisted proposal carries
// one of these; there is no "unknown" network in the store.
const (
	NetworkPolkadot Network = "polkadot"
	NetworkKusama   Network = "kusama"
)

// Valid reports whether the network is one of the permitted values.
func (n Network) Valid() bool {
	return n == NetworkPolkadot || n == NetworkKusama
}

// Canonical proposal-type tags. Free-text input maps onto this vocabulary;
// unrecognized input passes through unchanged.
const (
	TypeDemocracyProposal     = "DemocracyProposal"
	TypeTechCommitteeProposal = "TechCommitteeProposal"
	TypeTreasuryProposal      = "TreasuryProposal"
	TypeReferendum            = "Referendum"
	TypeReferendumV2          = "ReferendumV2"
	TypeFellowshipReferendum  = "FellowshipReferendum"
	TypeCouncilMotion         = "CouncilMotion"
	TypeBounty                = "Bounty"
	TypeChildBounty           = "ChildBounty"
	TypeTip                   = "Tip"
	TypeUnknown               = "Unknown"
)

// Proposal is the canonical, normalized governance-proposal entity.
type Proposal struct {
	id             string
	network        Network
	proposalType   string
	title          string
	description    string
	proposer       string
	amount         decimal.NullDecimal
	currency       string
	status         string
	createdAt      time.Time
	updatedAt      time.Time
	metadata       map[string]any
	searchDocument string
}

// NewProposal creates a normalized Proposal. Only the normalizer constructs
// proposals; everything downstream treats them as values.
func NewProposal(
	id string,
	network Network,
	proposalType string,
	title, description, proposer string,
	amount decimal.NullDecimal,
	currency string,
	status string,
	createdAt, updatedAt time.Time,
	metadata map[string]any,
) Proposal {
	md := make(map[string]any, len(metadata))
	maps.Copy(md, metadata)
	return Proposal{
		id:           id,
		network:      network,
		proposalType: proposalType,
		title:        title,
		description:  description,
		proposer:     proposer,
		amount:       amount,
		currency:     currency,
		status:       status,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
		metadata:     md,
	}
}

// ReconstructProposal rebuilds a Proposal from storage, including the derived
// search document.
func ReconstructProposal(
	id string,
	network Network,
	proposalType string,
	title, description, proposer string,
	amount decimal.NullDecimal,
	currency string,
	status string,
	createdAt, updatedAt time.Time,
	metadata map[string]any,
	searchDocument string,
) Proposal {
	p := NewProposal(id, network, proposalType, title, description, proposer,
		amount, currency, status, createdAt, updatedAt, metadata)
	p.searchDocument = searchDocument
	return p
}

// ID returns the globally unique proposal identifier.
func (p Proposal) ID() string { return p.id }

// Network returns the chain network.
func (p Proposal) Network() Network { return p.network }

// Type returns the canonical proposal-type tag.
func (p Proposal) Type() string { return p.proposalType }

// Title returns the proposal title, possibly empty.
func (p Proposal) Title() string { return p.title }

// Description returns the proposal description, possibly empty.
func (p Proposal) Description() string { return p.description }

// Proposer returns the proposer address, possibly empty.
func (p Proposal) Proposer() string { return p.proposer }

// Amount returns the requested amount; invalid when the source had none.
func (p Proposal) Amount() decimal.NullDecimal { return p.amount }

// Currency returns the upper-cased currency code, empty when absent.
func (p Proposal) Currency() string { return p.currency }

// Status returns the lifecycle status as imported from the source.
func (p Proposal) Status() string { return p.status }

// CreatedAt returns the creation timestamp. Never zero: unparsable input
// falls back to ingestion time during normalization.
func (p Proposal) CreatedAt() time.Time { return p.createdAt }

// UpdatedAt returns the last update timestamp; zero when never updated.
func (p Proposal) UpdatedAt() time.Time { return p.updatedAt }

// Metadata returns a copy of the opaque metadata blob.
func (p Proposal) Metadata() map[string]any {
	cp := make(map[string]any, len(p.metadata))
	maps.Copy(cp, p.metadata)
	return cp
}

// SearchDocument returns the derived full-text document. It is authored only
// by the full-text recomputer, never by callers.
func (p Proposal) SearchDocument() string { return p.searchDocument }

// Raw re-expresses the proposal as a raw record carrying its canonical field
// values. Normalizing the result reproduces the proposal, so reruns over
// already-normalized data are stable rather than drifting.
func (p Proposal) Raw() RawRecord {
	fields := make(map[string]any, len(p.metadata)+10)
	maps.Copy(fields, p.metadata)
	fields["id"] = p.id
	fields["network"] = string(p.network)
	if p.proposalType != TypeUnknown {
		fields["type"] = p.proposalType
	}
	if p.title != "" {
		fields["title"] = p.title
	}
	if p.description != "" {
		fields["description"] = p.description
	}
	if p.proposer != "" {
		fields["proposer"] = p.proposer
	}
	if p.amount.Valid {
		fields["amount"] = p.amount.Decimal.String()
	}
	if p.currency != "" {
		fields["currency"] = p.currency
	}
	fields["status"] = p.status
	fields["created_at"] = p.createdAt.Format(time.RFC3339Nano)
	return NewRawRecord(fields)
}

// EmbeddingText builds the structured text block submitted to the embedding
// provider. Empty when the proposal has no embeddable content.
func (p Proposal) EmbeddingText() string {
	const maxDescription = 2000

	var parts []string
	if p.title != "" {
		parts = append(parts, "Title: "+p.title)
	}
	if p.proposer != "" && p.proposer != TypeUnknown {
		parts = append(parts, "Proposer: "+p.proposer)
	}
	if p.network != "" {
		parts = append(parts, "Network: "+string(p.network))
	}
	if p.proposalType != "" {
		parts = append(parts, "Type: "+p.proposalType)
	}
	if p.description != "" {
		desc := p.description
		// Cut on rune boundaries; a byte slice could split a multibyte
		// character and hand the provider invalid UTF-8.
		if cut := truncateRunes(desc, maxDescription); len(cut) < len(desc) {
			desc = cut + "..."
		}
		parts = append(parts, "Description: "+desc)
	}
	return joinNonEmpty(parts)
}

func truncateRunes(s string, limit int) string {
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

func joinNonEmpty(parts []string) string {
	out := ""
	for i, part := range parts {
		if i > 0 {
			out += "\n"
		}
		out += part
	}
	return out
}
