// Package normalize canonicalizes raw governance-proposal records.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arnavk-polka/onChain-Explorer/domain/proposal"
)

// ErrMalformedRecord indicates a record that cannot be normalized at all
// (no id and no way to synthesize one). Such records are dropped with a
// warning; they never abort a batch.
var ErrMalformedRecord = errors.New("malformed record")

// networkAliases maps case-insensitive network spellings to the closed enum.
var networkAliases = map[string]proposal.Network{
	"polkadot": proposal.NetworkPolkadot,
	"dot":      proposal.NetworkPolkadot,
	"kusama":   proposal.NetworkKusama,
	"ksm":      proposal.NetworkKusama,
}

// typeAliases maps lowercase/snake_case type spellings to canonical tags.
var typeAliases = map[string]string{
	"democracyproposal":       proposal.TypeDemocracyProposal,
	"democracy_proposal":      proposal.TypeDemocracyProposal,
	"techcommitteeproposal":   proposal.TypeTechCommitteeProposal,
	"tech_committee_proposal": proposal.TypeTechCommitteeProposal,
	"treasuryproposal":        proposal.TypeTreasuryProposal,
	"treasury_proposal":       proposal.TypeTreasuryProposal,
	"referendum":              proposal.TypeReferendum,
	"referendumv2":            proposal.TypeReferendumV2,
	"referendum_v2":           proposal.TypeReferendumV2,
	"fellowshipreferendum":    proposal.TypeFellowshipReferendum,
	"fellowship_referendum":   proposal.TypeFellowshipReferendum,
	"councilmotion":           proposal.TypeCouncilMotion,
	"council_motion":          proposal.TypeCouncilMotion,
	"bounty":                  proposal.TypeBounty,
	"childbounty":             proposal.TypeChildBounty,
	"child_bounty":            proposal.TypeChildBounty,
	"tip":                     proposal.TypeTip,
}

// timestampFormats is the ordered list tried for created_at; first match wins.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// consumedKeys are raw fields mapped onto dedicated columns; everything else
// lands in the metadata blob.
var consumedKeys = map[string]bool{
	"id":             true,
	"network":        true,
	"type":           true,
	"proposalType":   true,
	"title":          true,
	"description":    true,
	"content":        true,
	"proposer":       true,
	"amount":         true,
	"amount_numeric": true,
	"currency":       true,
	"status":         true,
	"created_at":     true,
	"createdAt":      true,
	"updated_at":     true,
	"onChainInfo":    true,
}

// Record normalizes one raw record into a Proposal. It is pure: the only
// inputs are the record and the ingestion clock, so it is safe to run on a
// worker pool with no shared state. Returned warnings describe lossy
// fallbacks (defaulted network, unparsable timestamp, unknown type); they
// are informational, not errors.
func Record(raw proposal.RawRecord, ingestedAt time.Time) (proposal.Proposal, []string, error) {
	var warnings []string

	onChain := raw.Nested("onChainInfo")

	id := raw.String("id")
	if id == "" || id == "None" {
		index := raw.String("index")
		network := raw.String("network")
		if index == "" || network == "" {
			return proposal.Proposal{}, nil, fmt.Errorf("%w: missing id", ErrMalformedRecord)
		}
		id = network + "_" + index
	}

	network, warn := normalizeNetwork(raw.String("network"))
	if warn != "" {
		warnings = append(warnings, warn)
	}

	proposalType, warn := normalizeType(raw.FirstString("type", "proposalType"), onChain)
	if warn != "" {
		warnings = append(warnings, warn)
	}

	title := raw.String("title")
	description := raw.FirstString("description", "content")

	proposer := raw.String("proposer")
	if proposer == "" {
		proposer = onChain.String("proposer")
	}

	amount := normalizeAmount(raw.Get("amount"))
	if !amount.Valid {
		amount = normalizeAmount(raw.Get("amount_numeric"))
	}

	currency := strings.ToUpper(raw.String("currency"))

	status := raw.String("status")
	if status == "" {
		status = onChain.String("status")
	}
	if status == "" {
		status = "pending"
	}

	createdAt, warn := normalizeCreatedAt(raw.FirstString("created_at", "createdAt"), ingestedAt)
	if warn != "" {
		warnings = append(warnings, warn)
	}

	metadata := make(map[string]any)
	for key, value := range raw.Fields() {
		if !consumedKeys[key] {
			metadata[key] = value
		}
	}

	p := proposal.NewProposal(
		id, network, proposalType,
		title, description, proposer,
		amount, currency, status,
		createdAt, ingestedAt,
		metadata,
	)
	return p, warnings, nil
}

func normalizeNetwork(input string) (proposal.Network, string) {
	if input == "" {
		return proposal.NetworkPolkadot, ""
	}
	if network, ok := networkAliases[strings.ToLower(input)]; ok {
		return network, ""
	}
	// The persisted enum is closed: unrecognized values degrade to the
	// default rather than passing through.
	return proposal.NetworkPolkadot, fmt.Sprintf("unrecognized network %q, defaulting to polkadot", input)
}

func normalizeType(input string, onChain proposal.RawRecord) (string, string) {
	if input == "" {
		input = onChain.String("type")
	}
	if input == "" {
		return proposal.TypeUnknown, ""
	}
	if canonical, ok := typeAliases[strings.ToLower(input)]; ok {
		return canonical, ""
	}
	// Already-canonical tags round-trip through the alias table.
	for _, canonical := range typeAliases {
		if input == canonical {
			return canonical, ""
		}
	}
	return input, fmt.Sprintf("unrecognized proposal type %q, passing through", input)
}

// normalizeAmount parses a raw amount into a nullable decimal. Currency
// symbols, thousands separators, and whitespace are stripped first.
// Unparsable input yields null, never an error.
func normalizeAmount(value any) decimal.NullDecimal {
	switch v := value.(type) {
	case nil:
		return decimal.NullDecimal{}
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(v))
	case int:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(v)))
	case int64:
		return decimal.NewNullDecimal(decimal.NewFromInt(v))
	case decimal.Decimal:
		return decimal.NewNullDecimal(v)
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.NullDecimal{}
		}
		return decimal.NewNullDecimal(d)
	case string:
		cleaned := strings.Map(func(r rune) rune {
			switch r {
			case '$', '€', '£', ',', ' ', '\t':
				return -1
			}
			return r
		}, strings.TrimSpace(v))
		if cleaned == "" {
			return decimal.NullDecimal{}
		}
		d, err := decimal.NewFromString(cleaned)
		if err != nil {
			return decimal.NullDecimal{}
		}
		return decimal.NewNullDecimal(d)
	default:
		return decimal.NullDecimal{}
	}
}

// normalizeCreatedAt tries each timestamp format in order; total failure
// falls back to the ingestion clock. The fallback is documented lossy
// behavior, surfaced as a warning rather than an error.
func normalizeCreatedAt(input string, ingestedAt time.Time) (time.Time, string) {
	if input == "" {
		return ingestedAt, ""
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, input); err == nil {
			return t, ""
		}
	}
	return ingestedAt, fmt.Sprintf("unparsable created_at %q, using ingestion time", input)
}
